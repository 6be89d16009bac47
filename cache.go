package asidecache

import (
	"context"
	"errors"
	"time"

	"github.com/unkn0wn-root/asidecache/backend"
	"github.com/unkn0wn-root/asidecache/internal/detach"
	"github.com/unkn0wn-root/asidecache/keys"
)

// Cache holds the backend and the detached writer shared by every typed
// view (Single, Sequence) built on it. Safe for concurrent use.
type Cache struct {
	be         backend.Backend
	ns         string
	log        Logger
	hooks      Hooks
	resolver   *keys.Resolver
	runner     *detach.Runner
	defaultTTL time.Duration
	enabled    bool
}

func newCache(opts Options) (*Cache, error) {
	if opts.Backend == nil && !opts.Disabled {
		return nil, ErrNilBackend
	}
	if opts.DefaultTTL < 0 {
		return nil, errors.New("asidecache: negative DefaultTTL")
	}

	c := &Cache{
		be:         opts.Backend,
		ns:         opts.Namespace,
		defaultTTL: opts.DefaultTTL,
		enabled:    !opts.Disabled,
	}
	c.log = coalesce[Logger](opts.Logger, NopLogger{})
	c.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	c.resolver = opts.Resolver
	if c.resolver == nil {
		c.resolver = keys.NewResolver()
	}
	c.runner = detach.New(detach.Options{
		Workers: coalesce(opts.DetachWorkers, defaultDetachWorkers),
		Queue:   coalesce(opts.DetachQueue, defaultDetachQueue),
		Timeout: opts.DetachTimeout,
	})
	return c, nil
}

func (c *Cache) Enabled() bool { return c.enabled }

// Backend returns the backend the cache writes to. nil when disabled
// without one.
func (c *Cache) Backend() backend.Backend { return c.be }

// Wait blocks until every detached write dispatched so far has finished.
func (c *Cache) Wait() { c.runner.Wait() }

// Close stops accepting detached writes, waits for queued ones (bounded by
// ctx) and closes the backend.
func (c *Cache) Close(ctx context.Context) error {
	err := c.runner.Close(ctx)
	if c.be != nil {
		err = errors.Join(err, c.be.Close(ctx))
	}
	return err
}

func (c *Cache) storageKey(key string) string {
	if c.ns == "" {
		return key
	}
	return c.ns + ":" + key
}

func (c *Cache) resolve(b Binding, args []Arg) (string, error) {
	names := make([]string, len(args))
	values := make([]any, len(args))
	for i, a := range args {
		names[i], values[i] = a.Name, a.Value
	}
	k, err := c.resolver.Resolve(b.Key, names, values, b.UseArgsHash)
	if err != nil {
		return "", err
	}
	return c.storageKey(k), nil
}

func (c *Cache) ttl(b Binding) time.Duration {
	switch {
	case b.TTL < 0:
		return 0
	case b.TTL == 0:
		return c.defaultTTL
	}
	return b.TTL
}

// lookup reads key. ok=false means the backend failed and the caller must
// call through.
func (c *Cache) lookup(ctx context.Context, key string) (raw []byte, hit, ok bool) {
	raw, hit, err := c.be.Get(ctx, key)
	if err != nil {
		berr := &BackendError{Op: OpGet, Key: key, Err: err}
		c.log.Warn("cache read failed; calling through", Fields{"key": key, "err": err})
		c.hooks.Bypass(OpGet, key, berr)
		return nil, false, false
	}
	return raw, hit, true
}

func (c *Cache) detach(ctx context.Context, op, key string, fn func(context.Context) error) {
	queued := c.runner.Submit(ctx, key, func(ctx context.Context) {
		if err := fn(ctx); err != nil {
			berr := &BackendError{Op: op, Key: key, Err: err}
			c.log.Warn("detached write failed", Fields{"op": op, "key": key, "err": err})
			c.hooks.DetachedFailed(op, key, berr)
		}
	})
	if !queued {
		c.log.Warn("detached write dropped", Fields{"op": op, "key": key})
		c.hooks.DetachedDropped(op, key)
	}
}

func (c *Cache) persist(ctx context.Context, key string, frame []byte, ttl time.Duration) {
	c.detach(ctx, OpSet, key, func(ctx context.Context) error {
		err := c.be.Set(ctx, key, frame, ttl)
		if errors.Is(err, backend.ErrRejected) {
			c.log.Debug("backend rejected write", Fields{"key": key})
		}
		return err
	})
}

func (c *Cache) remove(ctx context.Context, key string) {
	c.detach(ctx, OpDel, key, func(ctx context.Context) error {
		return c.be.Del(ctx, key)
	})
}

func (c *Cache) flush(ctx context.Context) {
	c.detach(ctx, OpFlushAll, "", func(ctx context.Context) error {
		return c.be.FlushAll(ctx)
	})
}

// selfHeal drops an entry that could not be read back.
func (c *Cache) selfHeal(ctx context.Context, key, reason string, err error) {
	c.log.Warn("unreadable cache entry; deleting", Fields{"key": key, "reason": reason, "err": err})
	c.hooks.SelfHeal(key, reason)
	c.remove(ctx, key)
}

func checkShape(declared, want Shape) error {
	if declared != ShapeAuto && declared != want {
		return ErrUnsupportedResultShape
	}
	return nil
}

// Evict deletes the entry for b in the background, then runs proceed and
// returns its result and error unmodified.
func Evict[R any](ctx context.Context, c *Cache, b Binding, args []Arg, proceed Proceed[R]) (R, error) {
	if b.Shape > ShapeSequence {
		var zero R
		return zero, ErrUnsupportedResultShape
	}
	if !c.enabled {
		return proceed(ctx)
	}
	key, err := c.resolve(b, args)
	if err != nil {
		var zero R
		return zero, err
	}
	c.log.Debug("evict", Fields{"key": key})
	c.remove(ctx, key)
	return proceed(ctx)
}

// FlushAll clears the backend in the background, then runs proceed.
func FlushAll[R any](ctx context.Context, c *Cache, proceed Proceed[R]) (R, error) {
	if c.enabled {
		c.log.Debug("flush all", nil)
		c.flush(ctx)
	}
	return proceed(ctx)
}
