package transaction

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/danjos91/my-bank-app/internal/accounts"
	"github.com/danjos91/my-bank-app/internal/logging"
)

func newHandlerApp(t *testing.T) (*fiber.App, *accounts.Stub) {
	t.Helper()
	stub := accounts.NewStub()
	svc := NewService(NewMemoryStore(), stub, &captureNotifier{}, logging.Discard())
	h := NewHandler(svc)

	app := fiber.New()
	app.Post("/transfers", h.Transfer)
	app.Get("/transfers/:id", h.Get)
	app.Post("/transfers/:id/cancel", h.Cancel)
	app.Post("/cash/deposit", h.Deposit)
	app.Get("/transactions", h.List)
	app.Get("/accounts/:id/totals", h.Totals)
	return app, stub
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	decoded := map[string]any{}
	if len(payload) > 0 {
		json.Unmarshal(payload, &decoded)
	}
	return resp.StatusCode, decoded
}

func TestHandlerTransfer(t *testing.T) {
	app, stub := newHandlerApp(t)
	stub.Seed("a", amountOf("100.00"))
	stub.Seed("b", amountOf("0.00"))

	status, body := doJSON(t, app, fiber.MethodPost, "/transfers",
		`{"source_account_id":"a","destination_account_id":"b","amount":"25.00"}`)
	if status != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d (%v)", status, body)
	}
	if body["status"] != string(StatusCompleted) {
		t.Fatalf("expected COMPLETED, got %v", body["status"])
	}
	if body["amount"] != "25.00" {
		t.Fatalf("expected amount 25.00, got %v", body["amount"])
	}

	id, _ := body["id"].(string)
	status, body = doJSON(t, app, fiber.MethodGet, "/transfers/"+id, "")
	if status != fiber.StatusOK {
		t.Fatalf("expected 200 on get, got %d", status)
	}
	if body["id"] != id {
		t.Fatalf("expected record %s, got %v", id, body["id"])
	}
}

func TestHandlerErrorMapping(t *testing.T) {
	app, stub := newHandlerApp(t)
	stub.Seed("a", amountOf("10.00"))
	stub.Seed("b", amountOf("0.00"))

	// Insufficient funds.
	status, _ := doJSON(t, app, fiber.MethodPost, "/transfers",
		`{"source_account_id":"a","destination_account_id":"b","amount":"50.00"}`)
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for insufficient funds, got %d", status)
	}

	// Unknown destination account.
	status, _ = doJSON(t, app, fiber.MethodPost, "/transfers",
		`{"source_account_id":"a","destination_account_id":"ghost","amount":"5.00"}`)
	if status != fiber.StatusNotFound {
		t.Fatalf("expected 404 for unknown account, got %d", status)
	}

	// Invalid amount.
	status, _ = doJSON(t, app, fiber.MethodPost, "/transfers",
		`{"source_account_id":"a","destination_account_id":"b","amount":"-5.00"}`)
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for negative amount, got %d", status)
	}

	// Unknown record.
	status, _ = doJSON(t, app, fiber.MethodGet, "/transfers/missing", "")
	if status != fiber.StatusNotFound {
		t.Fatalf("expected 404 for missing record, got %d", status)
	}

	// Cancelling a terminal record conflicts.
	status, body := doJSON(t, app, fiber.MethodPost, "/transfers",
		`{"source_account_id":"a","destination_account_id":"b","amount":"5.00"}`)
	if status != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d", status)
	}
	id, _ := body["id"].(string)
	status, _ = doJSON(t, app, fiber.MethodPost, "/transfers/"+id+"/cancel", "")
	if status != fiber.StatusConflict {
		t.Fatalf("expected 409 cancelling COMPLETED record, got %d", status)
	}

	// Listing requires a filter.
	status, _ = doJSON(t, app, fiber.MethodGet, "/transactions", "")
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected 400 without filters, got %d", status)
	}
}

func TestHandlerDepositAndTotals(t *testing.T) {
	app, stub := newHandlerApp(t)
	stub.Seed("a", amountOf("100.00"))
	stub.Seed("b", amountOf("0.00"))

	status, _ := doJSON(t, app, fiber.MethodPost, "/cash/deposit",
		`{"account_id":"b","amount":"40.00"}`)
	if status != fiber.StatusCreated {
		t.Fatalf("expected 201 on deposit, got %d", status)
	}

	status, _ = doJSON(t, app, fiber.MethodPost, "/transfers",
		`{"source_account_id":"a","destination_account_id":"b","amount":"15.00"}`)
	if status != fiber.StatusCreated {
		t.Fatalf("expected 201 on transfer, got %d", status)
	}

	status, body := doJSON(t, app, fiber.MethodGet, "/accounts/a/totals", "")
	if status != fiber.StatusOK {
		t.Fatalf("expected 200 on totals, got %d", status)
	}
	if body["total_sent"] != "15.00" {
		t.Fatalf("expected total_sent 15.00, got %v", body["total_sent"])
	}
	if body["total_received"] != "0.00" {
		t.Fatalf("expected total_received 0.00, got %v", body["total_received"])
	}
	if body["completed_count"] != float64(1) {
		t.Fatalf("expected 1 completed record, got %v", body["completed_count"])
	}

	status, body = doJSON(t, app, fiber.MethodGet, "/transactions?account=b", "")
	if status != fiber.StatusOK {
		t.Fatalf("expected 200 listing by account, got %d", status)
	}
	items, _ := body["transactions"].([]any)
	if len(items) != 2 {
		t.Fatalf("expected 2 transactions for b, got %d", len(items))
	}
}
