// Package cache holds the Redis-backed revocation blacklist and query cache.
// Both share one client and one circuit breaker but live under separate key
// namespaces because they fail in opposite directions.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

// ErrUnavailable wraps every failure talking to Redis, including calls
// rejected by an open breaker.
var ErrUnavailable = errors.New("cache: unavailable")

// Options tunes the Redis connection. Zero values fall back to defaults.
type Options struct {
	URL          string
	Prefix       string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Client struct {
	rdb    redis.UniversalClient
	prefix string
	cb     *gobreaker.CircuitBreaker
}

// Dial parses a redis:// URL and verifies the connection.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	ro, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("cache: parse url: %w", err)
	}
	ro.DialTimeout = durationOr(opts.DialTimeout, 2*time.Second)
	ro.ReadTimeout = durationOr(opts.ReadTimeout, 500*time.Millisecond)
	ro.WriteTimeout = durationOr(opts.WriteTimeout, 500*time.Millisecond)

	c := NewClient(redis.NewClient(ro), opts.Prefix)
	if err := c.Ping(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// NewClient wraps an existing go-redis client.
func NewClient(rdb redis.UniversalClient, prefix string) *Client {
	if prefix == "" {
		prefix = "taskd"
	}
	return &Client{
		rdb:    rdb,
		prefix: prefix,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "redis",
			MaxRequests: 1,
			Interval:    10 * time.Second,
			Timeout:     5 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 5 && failureRatio >= 0.6
			},
			IsSuccessful: func(err error) bool {
				return err == nil ||
					errors.Is(err, redis.Nil) ||
					errors.Is(err, redis.TxFailedErr) ||
					errors.Is(err, context.Canceled)
			},
		}),
	}
}

// do runs fn through the breaker. redis.Nil passes through untouched so
// callers can still tell a miss from an outage.
func (c *Client) do(fn func() error) error {
	_, err := c.cb.Execute(func() (any, error) {
		return nil, fn()
	})
	switch {
	case err == nil, errors.Is(err, redis.Nil), errors.Is(err, redis.TxFailedErr):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
}

func (c *Client) Ping(ctx context.Context) error {
	return c.do(func() error { return c.rdb.Ping(ctx).Err() })
}

func (c *Client) Close() error { return c.rdb.Close() }

func (c *Client) key(parts ...string) string {
	k := c.prefix
	for _, p := range parts {
		k += ":" + p
	}
	return k
}

func durationOr(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}
