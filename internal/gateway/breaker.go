package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/danjos91/my-bank-app/internal/resilience"
)

// Breaker records route outcomes in a circuit breaker and sheds load while it
// is open. Handler errors and 5xx responses count as failures; 4xx responses
// describe the caller and leave the window alone.
func Breaker(guard *resilience.Guard, service string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var handlerErr error
		err := guard.Run(func() error {
			handlerErr = c.Next()
			if handlerErr != nil {
				var fe *fiber.Error
				if errors.As(handlerErr, &fe) && fe.Code < http.StatusInternalServerError {
					return nil
				}
				return handlerErr
			}
			if status := c.Response().StatusCode(); status >= http.StatusInternalServerError {
				return fmt.Errorf("%s responded %d", service, status)
			}
			return nil
		})

		if handlerErr != nil {
			return handlerErr
		}
		if errors.Is(err, resilience.ErrUnavailable) {
			return degraded(c, service)
		}
		// A synthetic 5xx failure: the response is already written.
		return nil
	}
}

func degraded(c *fiber.Ctx, service string) error {
	return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{
		"error":     "service temporarily unavailable",
		"service":   service,
		"message":   fmt.Sprintf("%s is experiencing issues, please try again later", service),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
