// Package backendtest provides a Backend wrapper for tests: it counts calls per
// operation, can be forced to fail, and can add latency.
//
// Faulty deliberately does not forward the optional ConditionalSetter and
// CompareDeleter capabilities of the wrapped backend, so consumers exercise
// their portable code paths.
package backendtest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/asidecache/backend"
)

// ErrForced is the error returned by operations forced to fail.
var ErrForced = errors.New("backendtest: forced error")

// Op names one backend operation.
type Op string

const (
	OpGet      Op = "get"
	OpSet      Op = "set"
	OpDel      Op = "del"
	OpFlushAll Op = "flush_all"
)

// Faulty wraps a Backend.
type Faulty struct {
	inner backend.Backend

	mu     sync.RWMutex
	failOn map[Op]bool
	delay  time.Duration

	gets, sets, dels, flushes atomic.Int64
}

var _ backend.Backend = (*Faulty)(nil)

func Wrap(inner backend.Backend) *Faulty {
	return &Faulty{inner: inner, failOn: make(map[Op]bool)}
}

// FailOn forces the listed operations to fail with ErrForced.
// With no arguments every operation fails.
func (f *Faulty) FailOn(ops ...Op) {
	if len(ops) == 0 {
		ops = []Op{OpGet, OpSet, OpDel, OpFlushAll}
	}
	f.mu.Lock()
	for _, op := range ops {
		f.failOn[op] = true
	}
	f.mu.Unlock()
}

// Delay makes every operation sleep for d (or until ctx is done) before running.
func (f *Faulty) Delay(d time.Duration) {
	f.mu.Lock()
	f.delay = d
	f.mu.Unlock()
}

// Reset clears forced failures and latency. Counters are kept.
func (f *Faulty) Reset() {
	f.mu.Lock()
	clear(f.failOn)
	f.delay = 0
	f.mu.Unlock()
}

// Calls returns how many times op has been invoked.
func (f *Faulty) Calls(op Op) int64 {
	switch op {
	case OpGet:
		return f.gets.Load()
	case OpSet:
		return f.sets.Load()
	case OpDel:
		return f.dels.Load()
	case OpFlushAll:
		return f.flushes.Load()
	}
	return 0
}

func (f *Faulty) before(ctx context.Context, op Op) error {
	f.mu.RLock()
	fail, d := f.failOn[op], f.delay
	f.mu.RUnlock()
	if d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if fail {
		return ErrForced
	}
	return nil
}

func (f *Faulty) Get(ctx context.Context, key string) ([]byte, bool, error) {
	f.gets.Add(1)
	if err := f.before(ctx, OpGet); err != nil {
		return nil, false, err
	}
	return f.inner.Get(ctx, key)
}

func (f *Faulty) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	f.sets.Add(1)
	if err := f.before(ctx, OpSet); err != nil {
		return err
	}
	return f.inner.Set(ctx, key, value, ttl)
}

func (f *Faulty) Del(ctx context.Context, key string) error {
	f.dels.Add(1)
	if err := f.before(ctx, OpDel); err != nil {
		return err
	}
	return f.inner.Del(ctx, key)
}

func (f *Faulty) FlushAll(ctx context.Context) error {
	f.flushes.Add(1)
	if err := f.before(ctx, OpFlushAll); err != nil {
		return err
	}
	return f.inner.FlushAll(ctx)
}

func (f *Faulty) Close(ctx context.Context) error { return f.inner.Close(ctx) }
