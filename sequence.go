package asidecache

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"time"

	"github.com/unkn0wn-root/asidecache/codec"
	"github.com/unkn0wn-root/asidecache/internal/wire"
)

// Sequence applies cache policies to calls producing a finite sequence of V.
// The wrapped sequence is drained in full before anything is stored; the
// caller gets an equivalent sequence replayed from memory.
type Sequence[V any] struct {
	c     *Cache
	codec codec.Codec[V]
}

// NewSequence binds c to a codec for the element type V. A nil codec
// selects codec.JSON[V].
func NewSequence[V any](c *Cache, cd codec.Codec[V]) *Sequence[V] {
	if cd == nil {
		cd = codec.JSON[V]{}
	}
	return &Sequence[V]{c: c, codec: cd}
}

// Do dispatches to the method for p.
func (s *Sequence[V]) Do(ctx context.Context, p Policy, b Binding, args []Arg, proceed ProceedSeq[V]) (iter.Seq[V], error) {
	switch p {
	case PolicyGet:
		return s.Get(ctx, b, args, proceed)
	case PolicyAdd:
		return s.Add(ctx, b, args, proceed)
	case PolicyUpdate:
		return s.Update(ctx, b, args, proceed)
	case PolicyEvict:
		if err := checkShape(b.Shape, ShapeSequence); err != nil {
			return nil, err
		}
		return Evict(ctx, s.c, b, args, s.replay(proceed))
	case PolicyFlushAll:
		if err := checkShape(b.Shape, ShapeSequence); err != nil {
			return nil, err
		}
		return FlushAll(ctx, s.c, s.replay(proceed))
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownPolicy, p)
}

func (s *Sequence[V]) Get(ctx context.Context, b Binding, args []Arg, proceed ProceedSeq[V]) (iter.Seq[V], error) {
	key, err := s.prepare(b, args)
	if err != nil {
		return nil, err
	}
	if !s.c.enabled {
		return s.replay(proceed)(ctx)
	}

	raw, hit, ok := s.c.lookup(ctx, key)
	if !ok {
		return s.replay(proceed)(ctx)
	}
	if hit {
		items, reason, err := s.decode(raw)
		if err == nil {
			s.c.log.Debug("cache hit", Fields{"key": key, "items": len(items)})
			s.c.hooks.Hit(key)
			return slices.Values(items), nil
		}
		s.c.selfHeal(ctx, key, reason, err)
		return s.replay(proceed)(ctx)
	}

	s.c.log.Debug("cache miss", Fields{"key": key})
	s.c.hooks.Miss(key)
	items, err := drain(proceed(ctx))
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, items, s.c.ttl(b))
	return slices.Values(items), nil
}

func (s *Sequence[V]) Add(ctx context.Context, b Binding, args []Arg, proceed ProceedSeq[V]) (iter.Seq[V], error) {
	key, err := s.prepare(b, args)
	if err != nil {
		return nil, err
	}
	items, err := drain(proceed(ctx))
	if err != nil {
		return nil, err
	}
	if s.c.enabled {
		s.c.log.Debug("add", Fields{"key": key, "items": len(items)})
		s.store(ctx, key, items, s.c.ttl(b))
	}
	return slices.Values(items), nil
}

func (s *Sequence[V]) Update(ctx context.Context, b Binding, args []Arg, proceed ProceedSeq[V]) (iter.Seq[V], error) {
	key, err := s.prepare(b, args)
	if err != nil {
		return nil, err
	}
	if s.c.enabled {
		s.c.remove(ctx, key)
	}
	items, err := drain(proceed(ctx))
	if err != nil {
		return nil, err
	}
	if s.c.enabled {
		s.c.log.Debug("update", Fields{"key": key, "items": len(items)})
		s.store(ctx, key, items, s.c.ttl(b))
	}
	return slices.Values(items), nil
}

func (s *Sequence[V]) prepare(b Binding, args []Arg) (string, error) {
	if err := checkShape(b.Shape, ShapeSequence); err != nil {
		return "", err
	}
	if !s.c.enabled {
		return "", nil
	}
	return s.c.resolve(b, args)
}

// replay turns proceed into a Proceed that drains it.
func (s *Sequence[V]) replay(proceed ProceedSeq[V]) Proceed[iter.Seq[V]] {
	return func(ctx context.Context) (iter.Seq[V], error) {
		items, err := drain(proceed(ctx))
		if err != nil {
			return nil, err
		}
		return slices.Values(items), nil
	}
}

func (s *Sequence[V]) store(ctx context.Context, key string, items []V, ttl time.Duration) {
	payloads := make([][]byte, len(items))
	for i, v := range items {
		p, err := s.codec.Encode(v)
		if err != nil {
			s.c.log.Warn("encode failed; result not cached", Fields{"key": key, "index": i, "err": err})
			return
		}
		payloads[i] = p
	}
	s.c.persist(ctx, key, wire.EncodeList(payloads), ttl)
}

func (s *Sequence[V]) decode(raw []byte) ([]V, string, error) {
	payloads, err := wire.DecodeList(raw)
	if err != nil {
		return nil, "corrupt", err
	}
	items := make([]V, len(payloads))
	for i, p := range payloads {
		if items[i], err = s.codec.Decode(p); err != nil {
			return nil, "value_decode", err
		}
	}
	return items, "", nil
}

// drain collects seq in order, stopping at the first error. A nil seq is
// empty.
func drain[V any](seq iter.Seq2[V, error]) ([]V, error) {
	var items []V
	if seq == nil {
		return items, nil
	}
	for v, err := range seq {
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, nil
}
