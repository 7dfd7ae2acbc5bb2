package redisclient

import (
  "context"
  "errors"
  "sync/atomic"
  "time"

  "github.com/cenkalti/backoff/v4"
  "github.com/go-redis/redis/v8"
  "github.com/stellarcompass/compass/pkg/logger"
  "github.com/stellarcompass/compass/pkg/metrics"
  "go.uber.org/zap"
)

var (
  ErrCircuitBreakerOpen = errors.New("circuit breaker is open")
)

type Client struct {
  rdb *redis.Client
  // Circuit breaker state
  failureCount int64
  lastFailure  int64
  state        int32 // 0: closed, 1: open, 2: half-open
}

// New constructs a Client with sensible defaults & retry logic
func New(redisURL string) *Client {
  opt, err := redis.ParseURL(redisURL)
  if err != nil {
    panic("invalid REDIS_URL: " + err.Error())
  }
  opt.PoolSize = 20
  opt.MinIdleConns = 5
  opt.MaxRetries = 3
  opt.DialTimeout = 5 * time.Second
  opt.ReadTimeout = 3 * time.Second
  opt.WriteTimeout = 3 * time.Second
  opt.IdleTimeout = 5 * time.Minute
  rdb := redis.NewClient(opt)
  return &Client{rdb: rdb}
}

// NewFromClient wraps an existing go-redis client (mocks, custom pools)
func NewFromClient(rdb *redis.Client) *Client {
  return &Client{rdb: rdb}
}

// withMetrics wraps operations with metrics collection
func (c *Client) withMetrics(operation string, fn func() error) error {
  start := time.Now()
  err := fn()
  duration := time.Since(start).Seconds()

  metrics.RedisOperationDuration.WithLabelValues(operation, getStatus(err)).Observe(duration)
  if err != nil {
    metrics.RedisErrors.WithLabelValues(operation).Inc()
  }

  return err
}

func getStatus(err error) string {
  if err != nil {
    return "error"
  }
  return "success"
}

// checkCircuitBreaker checks if circuit breaker should be opened/closed
func (c *Client) checkCircuitBreaker(err error) {
  if err != nil {
    atomic.AddInt64(&c.failureCount, 1)
    atomic.StoreInt64(&c.lastFailure, time.Now().Unix())

    // Open circuit breaker after 5 consecutive failures
    if atomic.LoadInt64(&c.failureCount) >= 5 {
      atomic.CompareAndSwapInt32(&c.state, 0, 1) // closed -> open
      logger.Log.Warn("circuit breaker opened", zap.String("operation", "redis"))
    }
  } else {
    atomic.StoreInt64(&c.failureCount, 0)
    atomic.CompareAndSwapInt32(&c.state, 1, 2) // open -> half-open
  }
}

// retryable runs op with a 100ms per-attempt timeout and exponential backoff,
// max 3 retries, honoring the circuit breaker.
func (c *Client) retryable(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
  return c.withMetrics(operation, func() error {
    if atomic.LoadInt32(&c.state) == 1 {
      return ErrCircuitBreakerOpen
    }
    op := func() error {
      ctx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
      defer cancel()
      err := fn(ctx)
      c.checkCircuitBreaker(err)
      return err
    }
    return backoff.Retry(op, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3))
  })
}

// AddToStream appends into a Redis Stream with retry/backoff
func (c *Client) AddToStream(ctx context.Context, stream string, values map[string]interface{}) error {
  return c.retryable(ctx, "xadd", func(ctx context.Context) error {
    return c.rdb.XAdd(ctx, &redis.XAddArgs{
      Stream: stream,
      Values: values,
    }).Err()
  })
}

// Publish wraps rdb.Publish with a short timeout
func (c *Client) Publish(ctx context.Context, channel string, msg interface{}) error {
  return c.withMetrics("publish", func() error {
    if atomic.LoadInt32(&c.state) == 1 {
      return ErrCircuitBreakerOpen
    }

    ctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
    defer cancel()
    err := c.rdb.Publish(ctx, channel, msg).Err()
    c.checkCircuitBreaker(err)
    return err
  })
}

// HSet sets a hash with retry
func (c *Client) HSet(ctx context.Context, key string, values map[string]interface{}) error {
  return c.retryable(ctx, "hset", func(ctx context.Context) error {
    return c.rdb.HSet(ctx, key, values).Err()
  })
}

// SetEx stores a string value with a TTL
func (c *Client) SetEx(ctx context.Context, key, value string, ttl time.Duration) error {
  return c.retryable(ctx, "setex", func(ctx context.Context) error {
    return c.rdb.Set(ctx, key, value, ttl).Err()
  })
}

// PushCapped prepends to a list and trims it to the newest max entries.
func (c *Client) PushCapped(ctx context.Context, key, value string, max int64) error {
  return c.retryable(ctx, "lpush", func(ctx context.Context) error {
    pipe := c.rdb.Pipeline()
    pipe.LPush(ctx, key, value)
    pipe.LTrim(ctx, key, 0, max-1)
    _, err := pipe.Exec(ctx)
    return err
  })
}

// SAdd adds members to a set with retry
func (c *Client) SAdd(ctx context.Context, key string, members ...interface{}) error {
  return c.retryable(ctx, "sadd", func(ctx context.Context) error {
    return c.rdb.SAdd(ctx, key, members...).Err()
  })
}

// Expire sets a key TTL
func (c *Client) Expire(ctx context.Context, key string, ttl time.Duration) error {
  return c.retryable(ctx, "expire", func(ctx context.Context) error {
    return c.rdb.Expire(ctx, key, ttl).Err()
  })
}

// HGetAll retrieves all fields from a hash
func (c *Client) HGetAll(ctx context.Context, key string) *redis.StringStringMapCmd {
  return c.rdb.HGetAll(ctx, key)
}

// Subscribe creates a pub/sub subscription
func (c *Client) Subscribe(ctx context.Context, channels ...string) *redis.PubSub {
  return c.rdb.Subscribe(ctx, channels...)
}

// Ping checks connectivity
func (c *Client) Ping(ctx context.Context) error {
  return c.rdb.Ping(ctx).Err()
}

// Close closes the underlying connection pool
func (c *Client) Close() error {
  return c.rdb.Close()
}

// Client returns the underlying Redis client for direct access
func (c *Client) Client() *redis.Client {
  return c.rdb
}
