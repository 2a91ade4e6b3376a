package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sakashimaa/order-orchestrator/pkg/utils"
	"github.com/sakashimaa/order-orchestrator/services/order/internal/domain"
	"github.com/sakashimaa/order-orchestrator/services/order/internal/reservation"
)

type validationError struct {
	err error
}

func (e *validationError) Error() string {
	return "validation failed"
}

func (e *validationError) Unwrap() error {
	return domain.ErrInvalidRequest
}

// httpStatus maps orchestrator errors onto response codes. A compensated create is
// always 502 whatever its cause.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrUnknownStatus):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrOrderCreationFailed):
		return fiber.StatusBadGateway
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrProductUnavailable),
		errors.Is(err, domain.ErrCustomerInactive):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrNotEditable),
		errors.Is(err, domain.ErrConcurrentUpdate):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrDependencyFailure):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func errorDetails(err error) fiber.Map {
	details := fiber.Map{}

	var vErr *validationError
	if errors.As(err, &vErr) {
		for field, msg := range utils.FormatValidationError(vErr.err) {
			details[field] = msg
		}
	}

	var stockErr *domain.InsufficientStockError
	if errors.As(err, &stockErr) {
		details["product_id"] = stockErr.ProductID
		details["product_name"] = stockErr.ProductName
		details["requested"] = stockErr.Requested
		details["available"] = stockErr.Available
	}

	var unavailableErr *domain.ProductUnavailableError
	if errors.As(err, &unavailableErr) {
		details["product_id"] = unavailableErr.ProductID
		details["reason"] = unavailableErr.Reason
	}

	var partial *reservation.PartialFailure
	if errors.As(err, &partial) {
		details["product_id"] = partial.Failed.ProductID
		details["requested"] = partial.Failed.Quantity
	}

	var transitionErr *domain.TransitionError
	if errors.As(err, &transitionErr) {
		details["from"] = transitionErr.From
		details["to"] = transitionErr.To
	}

	var depErr *domain.DependencyError
	if errors.As(err, &depErr) {
		details["dependency"] = depErr.Dependency
		details["operation"] = depErr.Op
	}

	return details
}

func (h *OrderHandler) fail(c *fiber.Ctx, op string, err error) error {
	code := httpStatus(err)

	h.log(c, code, op+" failed", err)

	body := fiber.Map{"error": err.Error()}
	if code == fiber.StatusInternalServerError {
		body["error"] = "internal error"
	} else if details := errorDetails(err); len(details) > 0 {
		body["details"] = details
	}

	return c.Status(code).JSON(body)
}
