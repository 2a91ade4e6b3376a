package handler

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sakashimaa/order-orchestrator/pkg/mylogger"
	"github.com/sakashimaa/order-orchestrator/services/order/internal/domain"
	"github.com/sakashimaa/order-orchestrator/services/order/internal/service"
	"go.uber.org/zap"
)

type OrderHandler struct {
	service  service.OrderService
	logger   *zap.Logger
	validate *validator.Validate
	timeout  time.Duration
}

func NewOrderHandler(svc service.OrderService, logger *zap.Logger, timeout time.Duration) *OrderHandler {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	return &OrderHandler{
		service:  svc,
		logger:   logger,
		validate: validate,
		timeout:  timeout,
	}
}

func (h *OrderHandler) log(c *fiber.Ctx, code int, msg string, err error) {
	fields := []zap.Field{
		zap.String("path", c.Path()),
		zap.Int("http_status", code),
		zap.Error(err),
	}

	if code >= fiber.StatusInternalServerError {
		mylogger.Error(c.UserContext(), h.logger, msg, fields...)
		return
	}

	mylogger.Warn(c.UserContext(), h.logger, msg, fields...)
}

func (h *OrderHandler) parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return fmt.Errorf("%w: error parsing body: %v", domain.ErrInvalidRequest, err)
	}

	if err := h.validate.Struct(out); err != nil {
		return &validationError{err: err}
	}

	return nil
}

func paramID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s is invalid", domain.ErrInvalidRequest, name)
	}

	return id, nil
}

func (h *OrderHandler) requestContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), h.timeout)
}

func (h *OrderHandler) Create(c *fiber.Ctx) error {
	req := new(CreateOrderRequest)
	if err := h.parseBody(c, req); err != nil {
		return h.fail(c, "create order", err)
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	order, err := h.service.CreateOrder(ctx, req.toInput())
	if err != nil {
		return h.fail(c, "create order", err)
	}

	mylogger.Info(
		ctx,
		h.logger,
		"create order succeeded",
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
	)

	return c.Status(fiber.StatusCreated).JSON(order)
}

func (h *OrderHandler) GetByID(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return h.fail(c, "get order", err)
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	order, err := h.service.GetByID(ctx, id)
	if err != nil {
		return h.fail(c, "get order", err)
	}

	return c.JSON(order)
}

func (h *OrderHandler) GetByNumber(c *fiber.Ctx) error {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	order, err := h.service.GetByNumber(ctx, c.Params("number"))
	if err != nil {
		return h.fail(c, "get order by number", err)
	}

	return c.JSON(order)
}

func (h *OrderHandler) ListAll(c *fiber.Ctx) error {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	orders, err := h.service.ListAll(ctx)
	if err != nil {
		return h.fail(c, "list orders", err)
	}

	return c.JSON(fiber.Map{"orders": orders})
}

func (h *OrderHandler) ProductStock(c *fiber.Ctx) error {
	productID, err := paramID(c, "productId")
	if err != nil {
		return h.fail(c, "check product stock", err)
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	level, err := h.service.ProductStock(ctx, productID)
	if err != nil {
		return h.fail(c, "check product stock", err)
	}

	return c.JSON(level)
}

func (h *OrderHandler) ListByCustomer(c *fiber.Ctx) error {
	customerID, err := paramID(c, "customerId")
	if err != nil {
		return h.fail(c, "list customer orders", err)
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	orders, err := h.service.ListByCustomer(ctx, customerID, c.Query("status"))
	if err != nil {
		return h.fail(c, "list customer orders", err)
	}

	return c.JSON(fiber.Map{"orders": orders})
}

func (h *OrderHandler) ListByStatus(c *fiber.Ctx) error {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	orders, err := h.service.ListByStatus(ctx, c.Params("status"))
	if err != nil {
		return h.fail(c, "list orders by status", err)
	}

	return c.JSON(fiber.Map{"orders": orders})
}

func (h *OrderHandler) Search(c *fiber.Ctx) error {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	orders, err := h.service.Search(ctx, c.Query("q"))
	if err != nil {
		return h.fail(c, "search orders", err)
	}

	return c.JSON(fiber.Map{"orders": orders})
}

func (h *OrderHandler) Exists(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return h.fail(c, "order exists", err)
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	exists, err := h.service.Exists(ctx, id)
	if err != nil {
		return h.fail(c, "order exists", err)
	}

	return c.JSON(fiber.Map{"exists": exists})
}

func (h *OrderHandler) Stats(c *fiber.Ctx) error {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	stats, err := h.service.Stats(ctx)
	if err != nil {
		return h.fail(c, "order stats", err)
	}

	return c.JSON(stats)
}

func (h *OrderHandler) UpdateStatus(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return h.fail(c, "update order status", err)
	}

	req := new(UpdateStatusRequest)
	if err := h.parseBody(c, req); err != nil {
		return h.fail(c, "update order status", err)
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	order, err := h.service.UpdateStatus(ctx, id, service.StatusInput{
		Status:         req.Status,
		TrackingNumber: req.TrackingNumber,
	})
	if err != nil {
		return h.fail(c, "update order status", err)
	}

	mylogger.Info(
		ctx,
		h.logger,
		"order status updated",
		zap.Int64("order_id", order.ID),
		zap.String("status", string(order.Status)),
	)

	return c.JSON(order)
}

func (h *OrderHandler) UpdateDetails(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return h.fail(c, "update order details", err)
	}

	req := new(UpdateDetailsRequest)
	if err := h.parseBody(c, req); err != nil {
		return h.fail(c, "update order details", err)
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	order, err := h.service.UpdateDetails(ctx, id, req.toInput())
	if err != nil {
		return h.fail(c, "update order details", err)
	}

	return c.JSON(order)
}

func (h *OrderHandler) UpdateLine(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return h.fail(c, "update order line", err)
	}

	lineID, err := paramID(c, "lineId")
	if err != nil {
		return h.fail(c, "update order line", err)
	}

	req := new(UpdateLineRequest)
	if err := h.parseBody(c, req); err != nil {
		return h.fail(c, "update order line", err)
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	order, err := h.service.UpdateLineQuantity(ctx, id, lineID, req.Quantity)
	if err != nil {
		return h.fail(c, "update order line", err)
	}

	mylogger.Info(
		ctx,
		h.logger,
		"order line updated",
		zap.Int64("order_id", order.ID),
		zap.Int64("line_id", lineID),
		zap.Int("quantity", req.Quantity),
	)

	return c.JSON(order)
}

func (h *OrderHandler) Cancel(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return h.fail(c, "cancel order", err)
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	order, err := h.service.Cancel(ctx, id)
	if err != nil {
		return h.fail(c, "cancel order", err)
	}

	mylogger.Info(ctx, h.logger, "order cancelled", zap.Int64("order_id", order.ID))

	return c.JSON(order)
}
