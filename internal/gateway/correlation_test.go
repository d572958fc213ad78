package gateway

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/danjos91/my-bank-app/internal/logging"
)

func newCorrelatedApp() *fiber.App {
	app := fiber.New()
	app.Use(Correlation(logging.Discard()))
	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"request_id": RequestIDFrom(c)})
	})
	return app
}

func TestCorrelationGeneratesRequestID(t *testing.T) {
	app := newCorrelatedApp()

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/ping", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.Header.Get(HeaderRequestID) == "" {
		t.Fatal("expected generated request id header")
	}
	if resp.Header.Get(HeaderGatewayTimestamp) == "" {
		t.Fatal("expected gateway timestamp header")
	}
}

func TestCorrelationPreservesInboundRequestID(t *testing.T) {
	app := newCorrelatedApp()

	req := httptest.NewRequest(fiber.MethodGet, "/ping", nil)
	req.Header.Set(HeaderRequestID, "caller-supplied-id")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get(HeaderRequestID); got != "caller-supplied-id" {
		t.Fatalf("expected inbound id to be preserved, got %q", got)
	}
}
