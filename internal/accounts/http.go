package accounts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/danjos91/my-bank-app/internal/resilience"
)

// HTTPClient talks to the accounts service REST surface through a circuit
// breaker guard. All calls inherit the guard's retry and timeout policy.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	guard   *resilience.Guard
}

// NewHTTPClient builds a guarded accounts client. The http.Client timeout is
// left to the guard's per-attempt deadline.
func NewHTTPClient(baseURL string, guard *resilience.Guard) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
		guard:   guard,
	}
}

// Balance fetches the account balance. When the dependency is unavailable the
// call fails with resilience.ErrUnavailable rather than guessing a value.
func (c *HTTPClient) Balance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	op := func(ctx context.Context) (decimal.Decimal, error) {
		body, err := c.get(ctx, fmt.Sprintf("%s/api/accounts/%s/balance", c.baseURL, accountID))
		if err != nil {
			return decimal.Zero, err
		}
		balance, err := decimal.NewFromString(strings.TrimSpace(string(body)))
		if err != nil {
			return decimal.Zero, resilience.Permanent(fmt.Errorf("decode balance: %w", err))
		}
		return balance, nil
	}
	return resilience.Execute(ctx, c.guard, op, func(err error) (decimal.Decimal, error) {
		return decimal.Zero, err
	})
}

// Adjust posts a balance mutation: /add for credits, /subtract for debits.
func (c *HTTPClient) Adjust(ctx context.Context, accountID string, delta decimal.Decimal) error {
	path := "add"
	amount := delta
	if delta.IsNegative() {
		path = "subtract"
		amount = delta.Neg()
	}

	op := func(ctx context.Context) (struct{}, error) {
		payload, err := json.Marshal(amount)
		if err != nil {
			return struct{}{}, resilience.Permanent(err)
		}
		url := fmt.Sprintf("%s/api/accounts/%s/%s", c.baseURL, accountID, path)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return struct{}{}, resilience.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return struct{}{}, err
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body) // nolint:errcheck

		if resp.StatusCode == http.StatusNotFound {
			return struct{}{}, resilience.Permanent(ErrNotFound)
		}
		if resp.StatusCode >= 400 {
			return struct{}{}, fmt.Errorf("accounts service returned %d", resp.StatusCode)
		}
		return struct{}{}, nil
	}

	_, err := resilience.Execute(ctx, c.guard, op, func(err error) (struct{}, error) {
		return struct{}{}, err
	})
	return err
}

// Exists checks account existence. The fallback answers false so callers fail
// closed when the accounts service cannot be reached.
func (c *HTTPClient) Exists(ctx context.Context, accountID string) (bool, error) {
	op := func(ctx context.Context) (bool, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			fmt.Sprintf("%s/api/accounts/%s", c.baseURL, accountID), nil)
		if err != nil {
			return false, resilience.Permanent(err)
		}
		resp, err := c.client.Do(req)
		if err != nil {
			return false, err
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body) // nolint:errcheck

		if resp.StatusCode == http.StatusNotFound {
			return false, nil
		}
		if resp.StatusCode >= 400 {
			return false, fmt.Errorf("accounts service returned %d", resp.StatusCode)
		}
		return true, nil
	}
	return resilience.Execute(ctx, c.guard, op, func(error) (bool, error) {
		return false, nil
	})
}

func (c *HTTPClient) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, resilience.Permanent(err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, resilience.Permanent(ErrNotFound)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("accounts service returned %d", resp.StatusCode)
	}
	return body, nil
}
