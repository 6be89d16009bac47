// Package memory is an in-process Backend backed by a map.
// Entries expire lazily on read; an optional janitor sweeps expired entries.
package memory

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/unkn0wn-root/asidecache/backend"
)

type entry struct {
	v   []byte
	exp time.Time // zero => no TTL
}

func (e entry) expired(now time.Time) bool {
	return !e.exp.IsZero() && now.After(e.exp)
}

// Config tunes the in-memory backend.
type Config struct {
	// CleanupInterval enables a background sweep of expired entries. 0 disables it.
	CleanupInterval time.Duration
}

// Memory is safe for concurrent use.
type Memory struct {
	mu sync.Mutex
	m  map[string]entry

	ticker    *time.Ticker
	stopCh    chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

var (
	_ backend.Backend           = (*Memory)(nil)
	_ backend.ConditionalSetter = (*Memory)(nil)
	_ backend.CompareDeleter    = (*Memory)(nil)
)

func New(cfg Config) *Memory {
	s := &Memory{m: make(map[string]entry)}
	if cfg.CleanupInterval > 0 {
		s.ticker = time.NewTicker(cfg.CleanupInterval)
		s.stopCh = make(chan struct{})
		s.wg.Add(1)
		go s.janitor()
	}
	return s
}

func (s *Memory) janitor() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

func (s *Memory) sweep() {
	now := time.Now()
	s.mu.Lock()
	for k, e := range s.m {
		if e.expired(now) {
			delete(s.m, k)
		}
	}
	s.mu.Unlock()
}

// load returns the live entry under key; expired entries are removed. Caller holds mu.
func (s *Memory) load(key string, now time.Time) (entry, bool) {
	e, ok := s.m[key]
	if !ok {
		return entry{}, false
	}
	if e.expired(now) {
		delete(s.m, key)
		return entry{}, false
	}
	return e, true
}

func (s *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	e, ok := s.load(key, time.Now())
	s.mu.Unlock()
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(e.v), true, nil
}

func (s *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := newEntry(value, ttl)
	s.mu.Lock()
	s.m[key] = e
	s.mu.Unlock()
	return nil
}

func (s *Memory) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.load(key, now); ok {
		return false, nil
	}
	s.m[key] = newEntry(value, ttl)
	return true, nil
}

func (s *Memory) DelIfValue(_ context.Context, key string, value []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.load(key, time.Now())
	if !ok || !bytes.Equal(e.v, value) {
		return false, nil
	}
	delete(s.m, key)
	return true, nil
}

func (s *Memory) Del(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.m, key)
	s.mu.Unlock()
	return nil
}

func (s *Memory) FlushAll(_ context.Context) error {
	s.mu.Lock()
	clear(s.m)
	s.mu.Unlock()
	return nil
}

// Len reports the number of live entries.
func (s *Memory) Len() int {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.m {
		if !e.expired(now) {
			n++
		}
	}
	return n
}

func (s *Memory) Close(_ context.Context) error {
	s.closeOnce.Do(func() {
		if s.stopCh != nil {
			close(s.stopCh)
			s.ticker.Stop()
			s.wg.Wait()
		}
	})
	return nil
}

func newEntry(value []byte, ttl time.Duration) entry {
	e := entry{v: bytes.Clone(value)}
	if ttl > 0 {
		e.exp = time.Now().Add(ttl)
	}
	return e
}
