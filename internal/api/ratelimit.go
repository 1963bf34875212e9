package api

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// RateLimiter decides whether a client may send one more request
type RateLimiter interface {
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}

// NewRateLimiter returns the limiter for perMinute requests per client. It is
// shared through Redis when client is set. A non-positive perMinute disables
// limiting and returns nil.
func NewRateLimiter(perMinute int, client redis.UniversalClient) RateLimiter {
	if perMinute <= 0 {
		return nil
	}
	if client != nil {
		return NewRedisRateLimiter(client, perMinute)
	}
	return NewLocalRateLimiter(perMinute)
}

type localClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LocalRateLimiter keeps one token bucket per client in process memory
type LocalRateLimiter struct {
	mu        sync.Mutex
	perMinute int
	clients   map[string]*localClient
	now       func() time.Time
}

// NewLocalRateLimiter creates a limiter allowing bursts of perMinute requests,
// refilled evenly over a minute
func NewLocalRateLimiter(perMinute int) *LocalRateLimiter {
	return &LocalRateLimiter{
		perMinute: perMinute,
		clients:   make(map[string]*localClient),
		now:       time.Now,
	}
}

// Allow takes one token from the bucket of key
func (l *LocalRateLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	c, ok := l.clients[key]
	if !ok {
		if len(l.clients) > 10000 {
			l.prune(now)
		}
		c = &localClient{limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMinute)), l.perMinute)}
		l.clients[key] = c
	}
	c.lastSeen = now

	r := c.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay, nil
	}
	return true, 0, nil
}

// Idle clients have a full bucket again after a minute
func (l *LocalRateLimiter) prune(now time.Time) {
	for key, c := range l.clients {
		if now.Sub(c.lastSeen) >= time.Minute {
			delete(l.clients, key)
		}
	}
}

// RedisRateLimiter shares the per-client budget between portal instances
type RedisRateLimiter struct {
	limiter *redis_rate.Limiter
	limit   redis_rate.Limit
	prefix  string
}

// NewRedisRateLimiter creates a GCRA limiter stored in client
func NewRedisRateLimiter(client redis.UniversalClient, perMinute int) *RedisRateLimiter {
	return &RedisRateLimiter{
		limiter: redis_rate.NewLimiter(client),
		limit:   redis_rate.PerMinute(perMinute),
		prefix:  "activation:rate:",
	}
}

// Allow counts one request for key
func (l *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	res, err := l.limiter.Allow(ctx, l.prefix+key, l.limit)
	if err != nil {
		return false, 0, err
	}
	return res.Allowed > 0, res.RetryAfter, nil
}
