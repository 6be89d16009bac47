// Package lock is an advisory, TTL-bounded lock keyed by resource and owned
// by a caller-chosen fencing token, stored in the same backend as the cache.
//
// A resource is held by token T while the backend value under the resource
// key equals T. Lock stores T when nothing is stored; Unlock deletes the key
// only while it still holds T, so a holder whose lock expired and was taken
// over cannot release the new holder's lock.
//
// When the backend implements backend.ConditionalSetter and
// backend.CompareDeleter the operations are atomic. Otherwise Lock reads then
// writes, and two callers racing on a free resource may both succeed.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/unkn0wn-root/asidecache"
	"github.com/unkn0wn-root/asidecache/backend"
)

var (
	ErrAlreadyLocked = errors.New("lock: already locked")
	ErrInvalidTTL    = errors.New("lock: ttl must be positive")
	ErrEmptyResource = errors.New("lock: empty resource key")
	ErrEmptyToken    = errors.New("lock: empty fencing token")
	ErrNilBackend    = errors.New("lock: nil backend")
)

// InternalError reports a backend failure while locking or unlocking.
type InternalError struct {
	Resource string
	Op       string
	Err      error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("lock: %s %q: %v", e.Op, e.Resource, e.Err)
}

func (e *InternalError) Unwrap() error { return e.Err }

type Locker struct {
	be    backend.Backend
	log   asidecache.Logger
	setNX backend.ConditionalSetter
	delIf backend.CompareDeleter
}

type Option func(*Locker)

func WithLogger(l asidecache.Logger) Option {
	return func(lk *Locker) {
		if l != nil {
			lk.log = l
		}
	}
}

// WithoutAtomic forces the read-then-write path even when the backend
// supports conditional operations.
func WithoutAtomic() Option {
	return func(lk *Locker) {
		lk.setNX = nil
		lk.delIf = nil
	}
}

func New(be backend.Backend, opts ...Option) (*Locker, error) {
	if be == nil {
		return nil, ErrNilBackend
	}
	lk := &Locker{be: be, log: asidecache.NopLogger{}}
	lk.setNX, _ = be.(backend.ConditionalSetter)
	lk.delIf, _ = be.(backend.CompareDeleter)
	for _, o := range opts {
		o(lk)
	}
	return lk, nil
}

// Atomic reports whether Lock and Unlock use conditional backend operations.
func (l *Locker) Atomic() bool { return l.setNX != nil && l.delIf != nil }

// Lock acquires resource for token for at most ttl. It returns nil on
// success, ErrAlreadyLocked when the resource is held (by token or anyone
// else) and *InternalError when the backend fails.
func (l *Locker) Lock(ctx context.Context, resource, token string, ttl time.Duration) error {
	if err := validate(resource, token); err != nil {
		return err
	}
	if ttl <= 0 {
		return ErrInvalidTTL
	}

	if l.setNX != nil {
		ok, err := l.setNX.SetNX(ctx, resource, []byte(token), ttl)
		if err != nil {
			return l.internal(resource, "setnx", err)
		}
		if !ok {
			l.log.Debug("lock contended", asidecache.Fields{"resource": resource})
			return ErrAlreadyLocked
		}
		return nil
	}

	cur, held, err := l.be.Get(ctx, resource)
	if err != nil {
		return l.internal(resource, "get", err)
	}
	if held {
		l.log.Debug("lock contended", asidecache.Fields{
			"resource": resource,
			"reentry":  string(cur) == token,
		})
		return ErrAlreadyLocked
	}
	if err := l.be.Set(ctx, resource, []byte(token), ttl); err != nil {
		return l.internal(resource, "set", err)
	}
	return nil
}

// Unlock releases resource if token holds it and does nothing otherwise.
func (l *Locker) Unlock(ctx context.Context, resource, token string) error {
	if err := validate(resource, token); err != nil {
		return err
	}

	if l.delIf != nil {
		if _, err := l.delIf.DelIfValue(ctx, resource, []byte(token)); err != nil {
			return l.internal(resource, "delifvalue", err)
		}
		return nil
	}

	cur, held, err := l.be.Get(ctx, resource)
	if err != nil {
		return l.internal(resource, "get", err)
	}
	if !held || string(cur) != token {
		l.log.Debug("unlock ignored; token does not hold resource", asidecache.Fields{"resource": resource})
		return nil
	}
	if err := l.be.Del(ctx, resource); err != nil {
		return l.internal(resource, "del", err)
	}
	return nil
}

func (l *Locker) internal(resource, op string, err error) error {
	l.log.Error("lock backend failure", asidecache.Fields{"resource": resource, "op": op, "err": err})
	return &InternalError{Resource: resource, Op: op, Err: err}
}

func validate(resource, token string) error {
	if resource == "" {
		return ErrEmptyResource
	}
	if token == "" {
		return ErrEmptyToken
	}
	return nil
}
