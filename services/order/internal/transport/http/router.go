package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sakashimaa/order-orchestrator/services/order/internal/transport/http/handler"
	"github.com/sakashimaa/order-orchestrator/services/order/internal/transport/http/middleware"
)

type Handlers struct {
	Order *handler.OrderHandler
}

func RegisterRoutes(app *fiber.App, h *Handlers) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api", middleware.NewRequestIDMiddleware())

	order := api.Group("/orders")
	order.Post("", h.Order.Create)
	order.Get("", h.Order.ListAll)
	order.Get("/products/:productId/stock", h.Order.ProductStock)
	order.Get("/stats", h.Order.Stats)
	order.Get("/search", h.Order.Search)
	order.Get("/number/:number", h.Order.GetByNumber)
	order.Get("/customer/:customerId", h.Order.ListByCustomer)
	order.Get("/status/:status", h.Order.ListByStatus)
	order.Get("/:id", h.Order.GetByID)
	order.Get("/:id/exists", h.Order.Exists)
	order.Put("/:id", h.Order.UpdateDetails)
	order.Patch("/:id/status", h.Order.UpdateStatus)
	order.Patch("/:id/lines/:lineId", h.Order.UpdateLine)
	order.Post("/:id/cancel", h.Order.Cancel)
}
