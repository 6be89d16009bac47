package asidecache

import (
	"context"
	"fmt"
	"time"

	"github.com/unkn0wn-root/asidecache/codec"
	"github.com/unkn0wn-root/asidecache/internal/wire"
)

// Single applies cache policies to calls returning one value of type V.
type Single[V any] struct {
	c     *Cache
	codec codec.Codec[V]
}

// NewSingle binds c to a codec for V. A nil codec selects codec.JSON[V].
func NewSingle[V any](c *Cache, cd codec.Codec[V]) *Single[V] {
	if cd == nil {
		cd = codec.JSON[V]{}
	}
	return &Single[V]{c: c, codec: cd}
}

// Do dispatches to the method for p.
func (s *Single[V]) Do(ctx context.Context, p Policy, b Binding, args []Arg, proceed Proceed[V]) (V, error) {
	switch p {
	case PolicyGet:
		return s.Get(ctx, b, args, proceed)
	case PolicyAdd:
		return s.Add(ctx, b, args, proceed)
	case PolicyUpdate:
		return s.Update(ctx, b, args, proceed)
	case PolicyEvict:
		if err := checkShape(b.Shape, ShapeSingle); err != nil {
			var zero V
			return zero, err
		}
		return Evict(ctx, s.c, b, args, proceed)
	case PolicyFlushAll:
		if err := checkShape(b.Shape, ShapeSingle); err != nil {
			var zero V
			return zero, err
		}
		return FlushAll(ctx, s.c, proceed)
	}
	var zero V
	return zero, fmt.Errorf("%w: %d", ErrUnknownPolicy, p)
}

// Get returns the cached value for b when present. Otherwise it runs
// proceed and stores a successful result in the background.
func (s *Single[V]) Get(ctx context.Context, b Binding, args []Arg, proceed Proceed[V]) (V, error) {
	key, err := s.prepare(b, args)
	if err != nil || !s.c.enabled {
		return s.passthrough(ctx, err, proceed)
	}

	raw, hit, ok := s.c.lookup(ctx, key)
	if !ok {
		return proceed(ctx)
	}
	if hit {
		v, reason, err := s.decode(raw)
		if err == nil {
			s.c.log.Debug("cache hit", Fields{"key": key})
			s.c.hooks.Hit(key)
			return v, nil
		}
		s.c.selfHeal(ctx, key, reason, err)
		return proceed(ctx)
	}

	s.c.log.Debug("cache miss", Fields{"key": key})
	s.c.hooks.Miss(key)
	v, err := proceed(ctx)
	if err != nil {
		return v, err
	}
	s.store(ctx, key, v, s.c.ttl(b))
	return v, nil
}

// Add runs proceed and stores a successful result in the background.
func (s *Single[V]) Add(ctx context.Context, b Binding, args []Arg, proceed Proceed[V]) (V, error) {
	key, err := s.prepare(b, args)
	if err != nil || !s.c.enabled {
		return s.passthrough(ctx, err, proceed)
	}

	v, err := proceed(ctx)
	if err != nil {
		return v, err
	}
	s.c.log.Debug("add", Fields{"key": key})
	s.store(ctx, key, v, s.c.ttl(b))
	return v, nil
}

// Update deletes the entry in the background, runs proceed and stores a
// successful result in the background. The delete is ordered before the
// store.
func (s *Single[V]) Update(ctx context.Context, b Binding, args []Arg, proceed Proceed[V]) (V, error) {
	key, err := s.prepare(b, args)
	if err != nil || !s.c.enabled {
		return s.passthrough(ctx, err, proceed)
	}

	s.c.remove(ctx, key)
	v, err := proceed(ctx)
	if err != nil {
		return v, err
	}
	s.c.log.Debug("update", Fields{"key": key})
	s.store(ctx, key, v, s.c.ttl(b))
	return v, nil
}

// prepare validates b and resolves its key. Disabled caches skip resolution.
func (s *Single[V]) prepare(b Binding, args []Arg) (string, error) {
	if err := checkShape(b.Shape, ShapeSingle); err != nil {
		return "", err
	}
	if !s.c.enabled {
		return "", nil
	}
	return s.c.resolve(b, args)
}

func (s *Single[V]) passthrough(ctx context.Context, err error, proceed Proceed[V]) (V, error) {
	if err != nil {
		var zero V
		return zero, err
	}
	return proceed(ctx)
}

// store encodes v now, so later mutation by the caller cannot leak into the
// entry, and writes it in the background.
func (s *Single[V]) store(ctx context.Context, key string, v V, ttl time.Duration) {
	payload, err := s.codec.Encode(v)
	if err != nil {
		s.c.log.Warn("encode failed; result not cached", Fields{"key": key, "err": err})
		return
	}
	s.c.persist(ctx, key, wire.EncodeSingle(payload), ttl)
}

func (s *Single[V]) decode(raw []byte) (V, string, error) {
	var zero V
	payload, err := wire.DecodeSingle(raw)
	if err != nil {
		return zero, "corrupt", err
	}
	v, err := s.codec.Decode(payload)
	if err != nil {
		return zero, "value_decode", err
	}
	return v, "", nil
}
