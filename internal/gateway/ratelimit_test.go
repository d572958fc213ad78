package gateway

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

func TestMemoryLimiterFixedWindow(t *testing.T) {
	limiter := NewMemoryLimiter()
	now := time.Now()
	limiter.now = func() time.Time { return now }

	ctx := context.Background()
	for i := 1; i <= 10; i++ {
		decision, err := limiter.Allow(ctx, "transfers:client", 10, time.Minute)
		if err != nil {
			t.Fatalf("allow %d: %v", i, err)
		}
		if !decision.Allowed {
			t.Fatalf("request %d should be admitted", i)
		}
		if decision.Remaining != 10-i {
			t.Fatalf("request %d: expected remaining %d, got %d", i, 10-i, decision.Remaining)
		}
	}

	decision, err := limiter.Allow(ctx, "transfers:client", 10, time.Minute)
	if err != nil {
		t.Fatalf("allow 11: %v", err)
	}
	if decision.Allowed {
		t.Fatal("11th request in the window must be rejected")
	}
	if decision.Remaining != 0 {
		t.Fatalf("expected remaining 0, got %d", decision.Remaining)
	}

	// A different key has its own budget.
	other, err := limiter.Allow(ctx, "transfers:other", 10, time.Minute)
	if err != nil {
		t.Fatalf("allow other: %v", err)
	}
	if !other.Allowed {
		t.Fatal("distinct clients must not share a window")
	}

	// Once the window elapses the count resets.
	now = now.Add(time.Minute + time.Second)
	decision, err = limiter.Allow(ctx, "transfers:client", 10, time.Minute)
	if err != nil {
		t.Fatalf("allow after reset: %v", err)
	}
	if !decision.Allowed || decision.Remaining != 9 {
		t.Fatalf("expected fresh window after reset, got %+v", decision)
	}
}

func TestRedisLimiter(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	limiter := NewRedisLimiter(cache)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		decision, err := limiter.Allow(ctx, "cash:client", 3, time.Minute)
		if err != nil {
			t.Fatalf("allow %d: %v", i, err)
		}
		if !decision.Allowed {
			t.Fatalf("request %d should be admitted", i)
		}
	}

	decision, err := limiter.Allow(ctx, "cash:client", 3, time.Minute)
	if err != nil {
		t.Fatalf("allow 4: %v", err)
	}
	if decision.Allowed {
		t.Fatal("4th request must be rejected")
	}

	// Expiring the key opens a fresh window.
	mr.FastForward(time.Minute + time.Second)
	decision, err = limiter.Allow(ctx, "cash:client", 3, time.Minute)
	if err != nil {
		t.Fatalf("allow after expiry: %v", err)
	}
	if !decision.Allowed {
		t.Fatal("expected fresh window after expiry")
	}
}

func newRateLimitedApp(limiter Limiter, policy AdmissionPolicy) *fiber.App {
	app := fiber.New()
	app.Use(RateLimit(limiter, "transfers", policy))
	app.Get("/transfers", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})
	return app
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := NewMemoryLimiter()
	app := newRateLimitedApp(limiter, AdmissionPolicy{MaxRequests: 2, Window: time.Minute})

	for i := 1; i <= 2; i++ {
		req := httptest.NewRequest(fiber.MethodGet, "/transfers", nil)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, resp.StatusCode)
		}
		if got := resp.Header.Get(HeaderRateLimitLimit); got != "2" {
			t.Fatalf("expected limit header 2, got %q", got)
		}
		resp.Body.Close()
	}

	req := httptest.NewRequest(fiber.MethodGet, "/transfers", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("third request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get(HeaderRateLimitRemaining); got != "0" {
		t.Fatalf("expected remaining 0, got %q", got)
	}
	if resp.Header.Get(HeaderRateLimitReset) == "" {
		t.Fatal("expected reset header on rejection")
	}
}

func TestRateLimitSeparatesClientsByUserAgent(t *testing.T) {
	limiter := NewMemoryLimiter()
	app := newRateLimitedApp(limiter, AdmissionPolicy{MaxRequests: 1, Window: time.Minute})

	first := httptest.NewRequest(fiber.MethodGet, "/transfers", nil)
	first.Header.Set(fiber.HeaderUserAgent, "client-a")
	resp, err := app.Test(first)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	// Same IP, different user agent: separate budget.
	second := httptest.NewRequest(fiber.MethodGet, "/transfers", nil)
	second.Header.Set(fiber.HeaderUserAgent, "client-b")
	resp, err = app.Test(second)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 for distinct user agent, got %d", resp.StatusCode)
	}
}

func TestRateLimitFailsOpenOnBackendError(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()
	mr.Close() // backend down before the first request

	app := newRateLimitedApp(NewRedisLimiter(cache), AdmissionPolicy{MaxRequests: 1, Window: time.Minute})

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(fiber.MethodGet, "/transfers", nil)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("expected fail-open 200, got %d", resp.StatusCode)
		}
	}
}
