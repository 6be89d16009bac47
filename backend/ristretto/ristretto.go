// Package ristretto adapts github.com/dgraph-io/ristretto to the backend port.
//
// Ristretto applies writes through an internal buffer and may drop them under
// contention; dropped writes surface as backend.ErrRejected.
package ristretto

import (
	"context"
	"errors"
	"time"

	rc "github.com/dgraph-io/ristretto"

	"github.com/unkn0wn-root/asidecache/backend"
)

type Backend struct {
	c          *rc.Cache
	cost       func(value []byte) int64
	syncWrites bool
}

var _ backend.Backend = (*Backend)(nil)

type Config struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
	// Cost computes the admission cost of a value. nil => 1 per entry.
	Cost func(value []byte) int64
	// SyncWrites waits for each Set to be applied, so a Get issued right after
	// a successful Set observes it.
	SyncWrites bool
}

func New(cfg Config) (*Backend, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	cost := cfg.Cost
	if cost == nil {
		cost = func([]byte) int64 { return 1 }
	}
	return &Backend{c: c, cost: cost, syncWrites: cfg.SyncWrites}, nil
}

func (p *Backend) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := p.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, _ := v.([]byte)
	if b == nil {
		// self-heal: drop unexpected entry shape
		p.c.Del(key)
		return nil, false, nil
	}
	return b, true, nil
}

func (p *Backend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	// ristretto treats ttl <= 0 as "no expiry"
	if !p.c.SetWithTTL(key, value, p.cost(value), max(ttl, 0)) {
		return backend.ErrRejected
	}
	if p.syncWrites {
		p.c.Wait()
	}
	return nil
}

func (p *Backend) Del(_ context.Context, key string) error {
	p.c.Del(key)
	return nil
}

func (p *Backend) FlushAll(_ context.Context) error {
	p.c.Clear()
	return nil
}

// Metrics exposes ristretto counters; nil unless Config.Metrics is set.
func (p *Backend) Metrics() *rc.Metrics { return p.c.Metrics }

func (p *Backend) Close(_ context.Context) error {
	p.c.Wait()
	p.c.Close()
	return nil
}
