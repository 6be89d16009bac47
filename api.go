package asidecache

import (
	"context"
	"iter"
	"time"

	"github.com/unkn0wn-root/asidecache/backend"
	"github.com/unkn0wn-root/asidecache/keys"
)

// Shape is the declared shape of a wrapped call's result.
type Shape uint8

const (
	ShapeAuto     Shape = iota // taken from the wrapper: Single or Sequence
	ShapeSingle                // one value
	ShapeSequence              // a finite, ordered run of values
)

func (s Shape) String() string {
	switch s {
	case ShapeAuto:
		return "auto"
	case ShapeSingle:
		return "single"
	case ShapeSequence:
		return "sequence"
	}
	return "unknown"
}

// Policy selects how a call interacts with the cache.
type Policy uint8

const (
	PolicyGet Policy = iota + 1
	PolicyAdd
	PolicyUpdate
	PolicyEvict
	PolicyFlushAll
)

func (p Policy) String() string {
	switch p {
	case PolicyGet:
		return "get"
	case PolicyAdd:
		return "add"
	case PolicyUpdate:
		return "update"
	case PolicyEvict:
		return "evict"
	case PolicyFlushAll:
		return "flush_all"
	}
	return "unknown"
}

// Binding is the per-call-site cache configuration.
type Binding struct {
	// Key is a literal key or an expression over the call's arguments,
	// see package keys. Required except for FlushAll.
	Key string
	// UseArgsHash appends "_" + a hash of all argument values to the key.
	UseArgsHash bool
	Shape       Shape
	// TTL overrides Options.DefaultTTL. < 0 => never expires.
	TTL time.Duration
}

// Arg is one named argument of the wrapped call.
type Arg struct {
	Name  string
	Value any
}

// Proceed runs the wrapped call.
type Proceed[V any] func(ctx context.Context) (V, error)

// ProceedSeq runs a wrapped call producing a sequence. A non-nil error
// yielded at any point fails the whole call.
type ProceedSeq[V any] func(ctx context.Context) iter.Seq2[V, error]

// Options tune the cache. Only Backend is required.
type Options struct {
	Backend   backend.Backend
	Namespace string // prefixes storage keys as "<ns>:<key>"; "" => raw keys

	Logger Logger // if nil, NopLogger is used
	Hooks  Hooks  // if nil, NopHooks is used

	DefaultTTL    time.Duration // 0 => entries never expire
	DetachWorkers int           // 0 => 4
	DetachQueue   int           // pending detached writes; 0 => 1024
	DetachTimeout time.Duration // per detached write; 0 => none
	Disabled      bool          // call through without touching the backend

	Resolver *keys.Resolver // nil => private resolver
}

func New(opts Options) (*Cache, error) {
	return newCache(opts)
}
