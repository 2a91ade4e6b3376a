package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sakashimaa/order-orchestrator/services/order/internal/gateway"
)

const RequestIDHeader = "X-Request-ID"

// NewRequestIDMiddleware keeps an inbound X-Request-ID (or mints one) and forwards it
// to the remote dependencies through the request context.
func NewRequestIDMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(RequestIDHeader, id)
		c.Locals("requestId", id)
		c.SetUserContext(gateway.WithRequestID(c.UserContext(), id))

		return c.Next()
	}
}
