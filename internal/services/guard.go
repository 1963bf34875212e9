package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrSubmissionInFlight is returned while another activation for the same
// token has not finished.
var ErrSubmissionInFlight = errors.New("an activation request is already in progress")

// SubmitGuard serializes activation submissions per key. The returned
// release func must be called once the submission is over.
type SubmitGuard interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

type memoryLease struct {
	id      string
	expires time.Time
}

// MemoryGuard is a process-local SubmitGuard
type MemoryGuard struct {
	mu   sync.Mutex
	held map[string]memoryLease
	ttl  time.Duration
	now  func() time.Time
}

// NewMemoryGuard creates a guard whose locks expire after ttl
func NewMemoryGuard(ttl time.Duration) *MemoryGuard {
	return &MemoryGuard{
		held: make(map[string]memoryLease),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Acquire takes the lock for key or returns ErrSubmissionInFlight
func (g *MemoryGuard) Acquire(_ context.Context, key string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if lease, ok := g.held[key]; ok && now.Before(lease.expires) {
		return nil, ErrSubmissionInFlight
	}

	lease := memoryLease{id: uuid.NewString(), expires: now.Add(g.ttl)}
	g.held[key] = lease

	// Drop expired entries so abandoned tokens do not accumulate
	for k, l := range g.held {
		if !now.Before(l.expires) {
			delete(g.held, k)
		}
	}

	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		if current, ok := g.held[key]; ok && current.id == lease.id {
			delete(g.held, key)
		}
	}, nil
}

// Deletes the key only when it still holds our lease id
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisGuard is a SubmitGuard shared by every portal instance
type RedisGuard struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
	logger *zap.Logger
}

// NewRedisGuard creates a guard backed by client
func NewRedisGuard(client redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *RedisGuard {
	return &RedisGuard{
		client: client,
		ttl:    ttl,
		prefix: "activation:submit:",
		logger: logger,
	}
}

// NewRedisClient parses a redis:// URL and returns a connected client
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

// Acquire takes the lock for key with SET NX or returns ErrSubmissionInFlight
func (g *RedisGuard) Acquire(ctx context.Context, key string) (func(), error) {
	redisKey := g.prefix + key
	id := uuid.NewString()

	ok, err := g.client.SetNX(ctx, redisKey, id, g.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire submit lock: %w", err)
	}
	if !ok {
		return nil, ErrSubmissionInFlight
	}

	return func() {
		// The request context may already be done
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, g.client, []string{redisKey}, id).Err(); err != nil {
			g.logger.Warn("Failed to release submit lock", zap.String("key", key), zap.Error(err))
		}
	}, nil
}
