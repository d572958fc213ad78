package gateway

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/danjos91/my-bank-app/internal/logging"
	"github.com/danjos91/my-bank-app/internal/resilience"
)

func newBreakerApp(t *testing.T, fail *bool) *fiber.App {
	t.Helper()
	registry := resilience.NewRegistry(logging.Discard())
	guard := registry.Register("transfers-route", AdmissionPolicy{
		FailureRateThreshold: 0.5,
		MinimumCalls:         3,
		WaitDurationOpen:     time.Minute,
	}.BreakerPolicy())

	app := fiber.New()
	app.Use(Breaker(guard, "transfers-route"))
	app.Get("/transfers", func(c *fiber.Ctx) error {
		if *fail {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "upstream"})
		}
		return c.JSON(fiber.Map{"ok": true})
	})
	return app
}

func TestBreakerPassesHealthyTraffic(t *testing.T) {
	fail := false
	app := newBreakerApp(t, &fail)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/transfers", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestBreakerShedsLoadWhenOpen(t *testing.T) {
	fail := true
	app := newBreakerApp(t, &fail)

	// Three straight 5xx responses trip the route breaker.
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/transfers", nil))
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		resp.Body.Close()
		if resp.StatusCode != fiber.StatusBadGateway {
			t.Fatalf("request %d: expected 502, got %d", i, resp.StatusCode)
		}
	}

	// The route is healthy again, but the open circuit sheds the call.
	fail = false
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/transfers", nil))
	if err != nil {
		t.Fatalf("shed request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Fatalf("expected 503 while open, got %d", resp.StatusCode)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var body struct {
		Error     string `json:"error"`
		Service   string `json:"service"`
		Message   string `json:"message"`
		Timestamp string `json:"timestamp"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		t.Fatalf("decode degraded body: %v", err)
	}
	if body.Service != "transfers-route" {
		t.Fatalf("expected degraded body to name the route, got %q", body.Service)
	}
	if body.Error == "" || body.Message == "" || body.Timestamp == "" {
		t.Fatalf("incomplete degraded body: %+v", body)
	}
}

func TestBreakerIgnoresClientErrors(t *testing.T) {
	registry := resilience.NewRegistry(logging.Discard())
	guard := registry.Register("queries-route", AdmissionPolicy{
		FailureRateThreshold: 0.5,
		MinimumCalls:         3,
		WaitDurationOpen:     time.Minute,
	}.BreakerPolicy())

	app := fiber.New()
	app.Use(Breaker(guard, "queries-route"))
	app.Get("/transactions", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusBadRequest, "account or status query parameter is required")
	})

	// Client errors never trip the circuit, no matter how many arrive.
	for i := 0; i < 5; i++ {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/transactions", nil))
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		resp.Body.Close()
		if resp.StatusCode != fiber.StatusBadRequest {
			t.Fatalf("request %d: expected 400, got %d", i, resp.StatusCode)
		}
	}
	if guard.State() != resilience.StateClosed {
		t.Fatalf("expected closed circuit, got %s", guard.State())
	}
}
