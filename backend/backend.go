// Package backend defines the key/value store abstraction used by asidecache
// and by the fencing lock.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly the
// same []byte that was previously passed to Set for a key. The interceptor frames
// its own payloads (see internal/wire) and treats anything it cannot parse as
// corrupt, so foreign writes under keys it owns will be deleted on read.
package backend

import (
	"context"
	"errors"
	"time"
)

// ErrRejected is returned by Set when the store refused the write under pressure
// (admission policy, full buffer). Callers treat it like any other failed write.
var ErrRejected = errors.New("backend: write rejected")

// Backend is a minimal byte store with TTLs.
// Must be safe for concurrent use.
type Backend interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key. ttl <= 0 means the entry does not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Del removes a key. Deleting a missing key is not an error.
	Del(ctx context.Context, key string) error

	// FlushAll removes every entry the backend owns.
	FlushAll(ctx context.Context) error

	// Close releases resources.
	Close(ctx context.Context) error
}

// ConditionalSetter is implemented by backends that can store a value only when
// the key is absent, atomically.
type ConditionalSetter interface {
	// SetNX stores value iff key holds nothing. Reports whether the write happened.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
}

// CompareDeleter is implemented by backends that can delete a key only while it
// still holds an expected value, atomically.
type CompareDeleter interface {
	// DelIfValue removes key iff its current value equals value.
	// Reports whether the key was removed.
	DelIfValue(ctx context.Context, key string, value []byte) (bool, error)
}
