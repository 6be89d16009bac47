package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/asidecache/backend"
)

var ErrNilClient = errors.New("redis backend: nil client")

// delIfValue removes KEYS[1] only while it still holds ARGV[1].
var delIfValue = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Redis struct {
	rdb         goredis.UniversalClient
	prefix      string
	scanCount   int64
	closeClient bool
}

var (
	_ backend.Backend           = (*Redis)(nil)
	_ backend.ConditionalSetter = (*Redis)(nil)
	_ backend.CompareDeleter    = (*Redis)(nil)
)

type Config struct {
	Client goredis.UniversalClient
	// Prefix namespaces every key as "<prefix>:<key>". With a prefix, FlushAll
	// only removes keys under it (SCAN + DEL); without one it issues FLUSHALL.
	Prefix string
	// ScanCount is the SCAN batch hint used by a prefixed FlushAll. 0 => 100.
	ScanCount   int64
	CloseClient bool // set true only if this backend exclusively owns the client
}

func New(cfg Config) (*Redis, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	sc := cfg.ScanCount
	if sc <= 0 {
		sc = 100
	}
	return &Redis{
		rdb:         cfg.Client,
		prefix:      cfg.Prefix,
		scanCount:   sc,
		closeClient: cfg.CloseClient,
	}, nil
}

func (p *Redis) key(k string) string {
	if p.prefix == "" {
		return k
	}
	return p.prefix + ":" + k
}

func (p *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := p.rdb.Get(ctx, p.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil // miss
	}
	if err != nil {
		return nil, false, err // transport/server error
	}
	return b, true, nil
}

func (p *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	// redis treats 0 as "no expiry"
	return p.rdb.Set(ctx, p.key(key), value, max(ttl, 0)).Err()
}

func (p *Redis) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	return p.rdb.SetNX(ctx, p.key(key), value, max(ttl, 0)).Result()
}

func (p *Redis) DelIfValue(ctx context.Context, key string, value []byte) (bool, error) {
	n, err := delIfValue.Run(ctx, p.rdb, []string{p.key(key)}, value).Int64()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (p *Redis) Del(ctx context.Context, key string) error {
	return p.rdb.Del(ctx, p.key(key)).Err()
}

func (p *Redis) FlushAll(ctx context.Context) error {
	if p.prefix == "" {
		return p.rdb.FlushAll(ctx).Err()
	}
	return p.flushPrefix(ctx)
}

// flushPrefix walks the keyspace with SCAN so the server is never blocked.
func (p *Redis) flushPrefix(ctx context.Context) error {
	pattern := p.prefix + ":*"
	var cursor uint64
	for {
		keys, next, err := p.rdb.Scan(ctx, cursor, pattern, p.scanCount).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := p.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// Close releases the underlying redis client only when this backend owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (p *Redis) Close(context.Context) error {
	if p.closeClient {
		if err := p.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}
