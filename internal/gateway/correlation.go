package gateway

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	// HeaderRequestID carries the correlation id across service hops.
	HeaderRequestID = "X-Request-ID"
	// HeaderGatewayTimestamp records when the gateway admitted the request.
	HeaderGatewayTimestamp = "X-Gateway-Timestamp"
)

// Correlation stamps every request with a request id and gateway timestamp,
// reusing an inbound X-Request-ID when the caller supplies one, and logs the
// request outcome.
func Correlation(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqID := c.Get(HeaderRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Locals(HeaderRequestID, reqID)
		c.Set(HeaderRequestID, reqID)
		c.Set(HeaderGatewayTimestamp, time.Now().UTC().Format(time.RFC3339Nano))

		start := time.Now()
		err := c.Next()

		logger.Info("request",
			"request_id", reqID,
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return err
	}
}

// RequestIDFrom returns the correlation id stored by Correlation, or "".
func RequestIDFrom(c *fiber.Ctx) string {
	if id, ok := c.Locals(HeaderRequestID).(string); ok {
		return id
	}
	return ""
}
