package reservation

import (
	"context"
	"errors"
	"fmt"

	"github.com/sakashimaa/order-orchestrator/pkg/mylogger"
	"github.com/sakashimaa/order-orchestrator/services/order/internal/domain"
	"github.com/sakashimaa/order-orchestrator/services/order/internal/gateway"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Inventory interface {
	FetchProduct(ctx context.Context, id int64) gateway.Result[domain.Product]
	CheckStock(ctx context.Context, id int64) gateway.Result[int]
	ReserveStock(ctx context.Context, id int64, quantity int) (domain.Product, error)
	ReleaseStock(ctx context.Context, id int64, quantity int) (domain.Product, error)
}

// Line is one product-quantity pair to reserve or release.
type Line struct {
	ProductID int64
	Quantity  int
}

// PartialFailure reports the reserved prefix and the line that could not be reserved.
type PartialFailure struct {
	Reserved []Line
	Failed   Line
	Err      error
}

func (e *PartialFailure) Error() string {
	return fmt.Sprintf("reserve product %d (qty %d) failed after %d reserved lines: %v",
		e.Failed.ProductID, e.Failed.Quantity, len(e.Reserved), e.Err)
}

func (e *PartialFailure) Unwrap() error {
	return e.Err
}

type ReleaseFailure struct {
	Line Line
	Err  error
}

type AdjustResult struct {
	Delta   int
	Product domain.Product
}

type Coordinator struct {
	inventory Inventory
	logger    *zap.Logger
	tracer    trace.Tracer
}

func NewCoordinator(inventory Inventory, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		inventory: inventory,
		logger:    logger,
		tracer:    otel.Tracer("reservation_coordinator"),
	}
}

// ReserveAll reserves lines one by one in the given order and stops at the
// first failure. It never releases what it reserved; callers compensate.
func (c *Coordinator) ReserveAll(ctx context.Context, lines []Line) ([]Line, error) {
	ctx, span := c.tracer.Start(ctx, "Coordinator.ReserveAll")
	defer span.End()

	span.SetAttributes(attribute.Int("lines_count", len(lines)))

	reserved := make([]Line, 0, len(lines))
	for _, line := range lines {
		if _, err := c.inventory.ReserveStock(ctx, line.ProductID, line.Quantity); err != nil {
			span.RecordError(err)

			mylogger.Warn(
				ctx,
				c.logger,
				"Reservation failed",
				zap.Int64("product_id", line.ProductID),
				zap.Int("quantity", line.Quantity),
				zap.Int("reserved_lines", len(reserved)),
				zap.Error(err),
			)

			return reserved, &PartialFailure{Reserved: reserved, Failed: line, Err: err}
		}

		reserved = append(reserved, line)
	}

	return reserved, nil
}

// ReleaseAll attempts every line regardless of earlier failures and returns
// the ones the ledger did not accept.
func (c *Coordinator) ReleaseAll(ctx context.Context, lines []Line) []ReleaseFailure {
	ctx, span := c.tracer.Start(ctx, "Coordinator.ReleaseAll")
	defer span.End()

	span.SetAttributes(attribute.Int("lines_count", len(lines)))

	var failures []ReleaseFailure
	for _, line := range lines {
		if _, err := c.inventory.ReleaseStock(ctx, line.ProductID, line.Quantity); err != nil {
			span.RecordError(err)

			mylogger.Error(
				ctx,
				c.logger,
				"CRITICAL: release failed, inventory ledger may drift",
				zap.Int64("product_id", line.ProductID),
				zap.Int("quantity", line.Quantity),
				zap.Error(err),
			)

			failures = append(failures, ReleaseFailure{Line: line, Err: err})
		}
	}

	return failures
}

// AdjustLine moves a line from oldQty to newQty by reserving or releasing the difference.
// Growth is validated against a fresh product snapshot first.
func (c *Coordinator) AdjustLine(ctx context.Context, productID int64, oldQty, newQty int) (AdjustResult, error) {
	ctx, span := c.tracer.Start(ctx, "Coordinator.AdjustLine")
	defer span.End()

	delta := newQty - oldQty
	span.SetAttributes(
		attribute.Int64("product_id", productID),
		attribute.Int("delta", delta),
	)

	result := AdjustResult{Delta: delta}

	switch {
	case delta > 0:
		fresh := c.inventory.FetchProduct(ctx, productID)
		if err := CheckAvailability(productID, fresh, delta); err != nil {
			span.RecordError(err)
			return result, err
		}

		product, err := c.inventory.ReserveStock(ctx, productID, delta)
		if err != nil {
			span.RecordError(err)
			return result, err
		}
		result.Product = product
	case delta < 0:
		product, err := c.inventory.ReleaseStock(ctx, productID, -delta)
		if err != nil {
			span.RecordError(err)
			return result, err
		}
		result.Product = product
	}

	return result, nil
}

// CheckAvailability turns a product read into the business error that blocks reserving qty of it.
// A degraded placeholder is treated as authoritative: it is inactive with no stock.
func CheckAvailability(productID int64, res gateway.Result[domain.Product], qty int) error {
	switch res.Outcome {
	case gateway.OutcomeFailed:
		if errors.Is(res.Err, domain.ErrNotFound) {
			return &domain.ProductUnavailableError{ProductID: productID, Reason: "not found"}
		}
		return &domain.DependencyError{Dependency: gateway.InventoryLedger, Op: "fetch product", Err: res.Err}
	case gateway.OutcomeDegraded:
		return &domain.ProductUnavailableError{ProductID: productID, Reason: "inventory ledger unavailable"}
	}

	product := res.Value
	if !product.Active {
		return &domain.ProductUnavailableError{ProductID: productID, Reason: "inactive"}
	}
	if qty > product.Stock {
		return &domain.InsufficientStockError{
			ProductID:   productID,
			ProductName: product.Name,
			Requested:   qty,
			Available:   product.Stock,
		}
	}

	return nil
}
