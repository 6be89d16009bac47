package lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/unkn0wn-root/asidecache"
	"github.com/unkn0wn-root/asidecache/backend"
	"github.com/unkn0wn-root/asidecache/backend/backendtest"
	"github.com/unkn0wn-root/asidecache/backend/memory"
)

type recLogger struct {
	mu     sync.Mutex
	debug  int
	errors int
}

func (l *recLogger) Debug(string, asidecache.Fields) { l.mu.Lock(); l.debug++; l.mu.Unlock() }
func (l *recLogger) Info(string, asidecache.Fields)  {}
func (l *recLogger) Warn(string, asidecache.Fields)  {}
func (l *recLogger) Error(string, asidecache.Fields) { l.mu.Lock(); l.errors++; l.mu.Unlock() }

func newLocker(t *testing.T, be backend.Backend, opts ...Option) *Locker {
	t.Helper()
	lk, err := New(be, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return lk
}

func lockers(t *testing.T) map[string]*Locker {
	return map[string]*Locker{
		"atomic":   newLocker(t, memory.New(memory.Config{})),
		"portable": newLocker(t, memory.New(memory.Config{}), WithoutAtomic()),
		"wrapped":  newLocker(t, backendtest.Wrap(memory.New(memory.Config{}))),
	}
}

func TestAtomicDetection(t *testing.T) {
	ls := lockers(t)
	if !ls["atomic"].Atomic() {
		t.Fatalf("memory backend should enable atomic path")
	}
	if ls["portable"].Atomic() || ls["wrapped"].Atomic() {
		t.Fatalf("portable lockers reported atomic")
	}
}

func TestFencingSequence(t *testing.T) {
	ctx := context.Background()
	for name, lk := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			const res = "orders:42"
			if err := lk.Lock(ctx, res, "T1", time.Minute); err != nil {
				t.Fatalf("T1 lock: %v", err)
			}
			if err := lk.Lock(ctx, res, "T1", time.Minute); !errors.Is(err, ErrAlreadyLocked) {
				t.Fatalf("T1 relock: want ErrAlreadyLocked, got %v", err)
			}
			if err := lk.Lock(ctx, res, "T2", time.Minute); !errors.Is(err, ErrAlreadyLocked) {
				t.Fatalf("T2 lock while T1 holds: want ErrAlreadyLocked, got %v", err)
			}
			if err := lk.Unlock(ctx, res, "T2"); err != nil {
				t.Fatalf("T2 unlock: %v", err)
			}
			if err := lk.Lock(ctx, res, "T1", time.Minute); !errors.Is(err, ErrAlreadyLocked) {
				t.Fatalf("T2 unlock released T1's lock: %v", err)
			}
			if err := lk.Unlock(ctx, res, "T1"); err != nil {
				t.Fatalf("T1 unlock: %v", err)
			}
			if err := lk.Lock(ctx, res, "T2", time.Minute); err != nil {
				t.Fatalf("T2 lock after release: %v", err)
			}
		})
	}
}

func TestUnlockFreeResourceIsNoop(t *testing.T) {
	for name, lk := range lockers(t) {
		if err := lk.Unlock(context.Background(), "free", "T1"); err != nil {
			t.Fatalf("%s: unlock free resource: %v", name, err)
		}
	}
}

func TestExpiredLockCanBeTaken(t *testing.T) {
	ctx := context.Background()
	for name, lk := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			if err := lk.Lock(ctx, "r", "T1", 20*time.Millisecond); err != nil {
				t.Fatalf("lock: %v", err)
			}
			time.Sleep(60 * time.Millisecond)
			if err := lk.Lock(ctx, "r", "T2", time.Minute); err != nil {
				t.Fatalf("takeover after expiry: %v", err)
			}
			// the stale holder must not release the new one
			if err := lk.Unlock(ctx, "r", "T1"); err != nil {
				t.Fatalf("stale unlock: %v", err)
			}
			if err := lk.Lock(ctx, "r", "T3", time.Minute); !errors.Is(err, ErrAlreadyLocked) {
				t.Fatalf("stale unlock released T2: %v", err)
			}
		})
	}
}

func TestInternalErrorOnBackendFailure(t *testing.T) {
	ctx := context.Background()
	faulty := backendtest.Wrap(memory.New(memory.Config{}))
	log := &recLogger{}
	lk := newLocker(t, faulty, WithLogger(log))

	faulty.FailOn(backendtest.OpGet)
	err := lk.Lock(ctx, "r", "T1", time.Minute)
	var ie *InternalError
	if !errors.As(err, &ie) || ie.Op != "get" || ie.Resource != "r" {
		t.Fatalf("want *InternalError on get, got %v", err)
	}
	if !errors.Is(err, backendtest.ErrForced) {
		t.Fatalf("InternalError must unwrap to the backend error")
	}
	if err := lk.Unlock(ctx, "r", "T1"); !errors.As(err, &ie) {
		t.Fatalf("unlock: want *InternalError, got %v", err)
	}

	faulty.Reset()
	faulty.FailOn(backendtest.OpSet)
	if err := lk.Lock(ctx, "r", "T1", time.Minute); !errors.As(err, &ie) || ie.Op != "set" {
		t.Fatalf("want *InternalError on set, got %v", err)
	}

	faulty.Reset()
	if err := lk.Lock(ctx, "r", "T1", time.Minute); err != nil {
		t.Fatalf("lock after reset: %v", err)
	}
	faulty.FailOn(backendtest.OpDel)
	if err := lk.Unlock(ctx, "r", "T1"); !errors.As(err, &ie) || ie.Op != "del" {
		t.Fatalf("want *InternalError on del, got %v", err)
	}

	log.mu.Lock()
	defer log.mu.Unlock()
	if log.errors != 4 {
		t.Fatalf("logged %d errors, want 4", log.errors)
	}
}

func TestInvalidArguments(t *testing.T) {
	ctx := context.Background()
	lk := newLocker(t, memory.New(memory.Config{}))

	cases := []struct {
		err  error
		want error
	}{
		{lk.Lock(ctx, "", "T", time.Minute), ErrEmptyResource},
		{lk.Lock(ctx, "r", "", time.Minute), ErrEmptyToken},
		{lk.Lock(ctx, "r", "T", 0), ErrInvalidTTL},
		{lk.Lock(ctx, "r", "T", -time.Second), ErrInvalidTTL},
		{lk.Unlock(ctx, "", "T"), ErrEmptyResource},
		{lk.Unlock(ctx, "r", ""), ErrEmptyToken},
	}
	for i, tc := range cases {
		if !errors.Is(tc.err, tc.want) {
			t.Fatalf("case %d: want %v, got %v", i, tc.want, tc.err)
		}
	}

	if _, err := New(nil); !errors.Is(err, ErrNilBackend) {
		t.Fatalf("want ErrNilBackend, got %v", err)
	}
}

func TestConcurrentLockSingleWinner(t *testing.T) {
	ctx := context.Background()
	lk := newLocker(t, memory.New(memory.Config{}))

	const n = 32
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token := string(rune('A' + i))
			if lk.Lock(ctx, "hot", token, time.Minute) == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("atomic path granted %d locks, want 1", wins)
	}
}
