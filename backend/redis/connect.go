// Package redis adapts github.com/redis/go-redis/v9 to the backend port and
// provides a connector with pool tuning and startup retries.
package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

var (
	ErrEmptyConnectionURL = errors.New("redis backend: empty connection URL")
	ErrFailedToParseURL   = errors.New("redis backend: failed to parse connection URL")
	ErrConnectionFailed   = errors.New("redis backend: failed to establish connection")
)

// Option configures a connection opened with Open.
type Option func(*options)

type options struct {
	poolSize      int
	minIdleConns  int
	retryAttempts int
	retryInterval time.Duration
	readTimeout   time.Duration
	writeTimeout  time.Duration
	dialTimeout   time.Duration
}

func defaultOptions() *options {
	return &options{
		poolSize:      10,
		minIdleConns:  2,
		retryAttempts: 3,
		retryInterval: time.Second,
		readTimeout:   3 * time.Second,
		writeTimeout:  3 * time.Second,
		dialTimeout:   5 * time.Second,
	}
}

// WithPoolSize sets the maximum number of connections. Default: 10
func WithPoolSize(n int) Option { return func(o *options) { o.poolSize = n } }

// WithMinIdleConns sets the number of idle connections kept open. Default: 2
func WithMinIdleConns(n int) Option { return func(o *options) { o.minIdleConns = n } }

// WithRetry configures startup ping retries: attempts with a linearly growing wait.
// Default: 3 attempts, 1s base interval.
func WithRetry(attempts int, interval time.Duration) Option {
	return func(o *options) {
		o.retryAttempts = attempts
		o.retryInterval = interval
	}
}

// WithTimeouts sets read, write and dial timeouts. Zero keeps the default.
func WithTimeouts(read, write, dial time.Duration) Option {
	return func(o *options) {
		if read > 0 {
			o.readTimeout = read
		}
		if write > 0 {
			o.writeTimeout = write
		}
		if dial > 0 {
			o.dialTimeout = dial
		}
	}
}

// Open parses a redis:// or rediss:// URL, applies opts and pings the server
// until it answers or the retry budget is spent.
//
//	client, err := redis.Open(ctx, "redis://localhost:6379/0", redis.WithPoolSize(20))
//	be, _ := redis.New(redis.Config{Client: client, Prefix: "app", CloseClient: true})
func Open(ctx context.Context, url string, opts ...Option) (goredis.UniversalClient, error) {
	if url == "" {
		return nil, ErrEmptyConnectionURL
	}
	if !strings.HasPrefix(url, "redis://") && !strings.HasPrefix(url, "rediss://") {
		return nil, ErrFailedToParseURL
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	ro, err := goredis.ParseURL(url)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseURL, err)
	}
	ro.PoolSize = o.poolSize
	ro.MinIdleConns = o.minIdleConns
	ro.ReadTimeout = o.readTimeout
	ro.WriteTimeout = o.writeTimeout
	ro.DialTimeout = o.dialTimeout

	return connect(ctx, ro, o.retryAttempts, o.retryInterval)
}

func connect(ctx context.Context, ro *goredis.Options, attempts int, interval time.Duration) (goredis.UniversalClient, error) {
	attempts = max(attempts, 1)

	var lastErr error
	for i := 0; i < attempts; i++ {
		client := goredis.NewClient(ro)
		if lastErr = client.Ping(ctx).Err(); lastErr == nil {
			return client, nil
		}
		_ = client.Close()

		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrConnectionFailed, ctx.Err())
		case <-time.After(time.Duration(i+1) * interval):
		}
	}
	return nil, errors.Join(ErrConnectionFailed, lastErr)
}
