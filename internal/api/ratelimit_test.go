package api

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/valyala/fasthttp"
)

func TestLocalRateLimiter(t *testing.T) {
	limiter := NewLocalRateLimiter(2)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	allow := func(key string) (bool, time.Duration) {
		t.Helper()
		allowed, retryAfter, err := limiter.Allow(ctx, key)
		if err != nil {
			t.Fatalf("Allow() error = %v", err)
		}
		return allowed, retryAfter
	}

	for i := 0; i < 2; i++ {
		if ok, _ := allow("a"); !ok {
			t.Fatalf("Expected request %d to pass", i+1)
		}
	}

	ok, retryAfter := allow("a")
	if ok {
		t.Error("Expected third request to be limited")
	}
	if retryAfter < 29*time.Second || retryAfter > 31*time.Second {
		t.Errorf("Expected retry after about 30s, got %v", retryAfter)
	}

	if ok, _ := allow("b"); !ok {
		t.Error("Other clients must not be affected")
	}

	now = now.Add(31 * time.Second)
	if ok, _ := allow("a"); !ok {
		t.Error("Expected one token to be refilled")
	}
	if ok, _ := allow("a"); ok {
		t.Error("Expected the refilled token to be used up")
	}
}

func TestRedisRateLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	limiter := NewRedisRateLimiter(client, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, _, err := limiter.Allow(ctx, "a")
		if err != nil {
			t.Fatalf("Allow() error = %v", err)
		}
		if !allowed {
			t.Fatalf("Expected request %d to pass", i+1)
		}
	}

	allowed, retryAfter, err := limiter.Allow(ctx, "a")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if allowed || retryAfter <= 0 {
		t.Errorf("Expected third request to be limited, got allowed=%v retryAfter=%v", allowed, retryAfter)
	}

	if allowed, _, _ := limiter.Allow(ctx, "b"); !allowed {
		t.Error("Other clients must not be affected")
	}
}

func TestNewRateLimiter(t *testing.T) {
	if NewRateLimiter(0, nil) != nil {
		t.Error("A zero limit disables limiting")
	}
	if _, ok := NewRateLimiter(10, nil).(*LocalRateLimiter); !ok {
		t.Error("Expected a local limiter without Redis")
	}

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()
	if _, ok := NewRateLimiter(10, client).(*RedisRateLimiter); !ok {
		t.Error("Expected a Redis limiter when a client is given")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	server := newTestServer(t, &MockActivationAPI{})
	limiter := NewLocalRateLimiter(1)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	server.limiter = limiter

	handler := server.rateLimitMiddleware(server.healthHandler)

	ctx := &fasthttp.RequestCtx{}
	handler(ctx)
	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("Expected status 200, got %d", ctx.Response.StatusCode())
	}

	ctx = &fasthttp.RequestCtx{}
	handler(ctx)
	if ctx.Response.StatusCode() != fasthttp.StatusTooManyRequests {
		t.Fatalf("Expected status 429, got %d", ctx.Response.StatusCode())
	}
	if got := string(ctx.Response.Header.Peek("Retry-After")); got != "60" {
		t.Errorf("Expected Retry-After 60, got %q", got)
	}
}
