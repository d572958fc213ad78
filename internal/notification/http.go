package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/danjos91/my-bank-app/internal/resilience"
)

// HTTPNotifier posts events to the notifications service through a circuit
// breaker guard.
type HTTPNotifier struct {
	baseURL string
	client  *http.Client
	guard   *resilience.Guard
}

// NewHTTPNotifier builds a guarded notifications client.
func NewHTTPNotifier(baseURL string, guard *resilience.Guard) *HTTPNotifier {
	return &HTTPNotifier{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
		guard:   guard,
	}
}

type createNotificationRequest struct {
	UserID  string `json:"userId"`
	Type    string `json:"type"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Emit delivers one event. The fallback surfaces the final error; callers are
// expected to log and discard it.
func (n *HTTPNotifier) Emit(ctx context.Context, event Event) error {
	op := func(ctx context.Context) (struct{}, error) {
		payload, err := json.Marshal(createNotificationRequest{
			UserID:  event.UserID,
			Type:    event.Kind,
			Title:   event.Title,
			Message: event.Message,
		})
		if err != nil {
			return struct{}{}, resilience.Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			n.baseURL+"/api/notifications", bytes.NewReader(payload))
		if err != nil {
			return struct{}{}, resilience.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := n.client.Do(req)
		if err != nil {
			return struct{}{}, err
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body) // nolint:errcheck

		if resp.StatusCode >= 400 {
			return struct{}{}, fmt.Errorf("notifications service returned %d", resp.StatusCode)
		}
		return struct{}{}, nil
	}

	_, err := resilience.Execute(ctx, n.guard, op, func(err error) (struct{}, error) {
		return struct{}{}, err
	})
	return err
}
