package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sakashimaa/order-orchestrator/pkg/mylogger"
	"github.com/sakashimaa/order-orchestrator/services/order/internal/domain"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const InventoryLedger = "inventory-ledger"

type InventoryClient struct {
	*remoteClient
	tracer trace.Tracer
}

func NewInventoryClient(cfg ClientConfig, httpClient *http.Client, logger *zap.Logger) *InventoryClient {
	return &InventoryClient{
		remoteClient: newRemoteClient(InventoryLedger, cfg, httpClient, logger),
		tracer:       otel.Tracer("inventory_client"),
	}
}

func productPlaceholder(id int64) domain.Product {
	return domain.Product{
		ID:     id,
		Name:   "Product Service Unavailable",
		SKU:    "N/A",
		Price:  decimal.Zero,
		Stock:  0,
		Active: false,
	}
}

func (c *InventoryClient) FetchProduct(ctx context.Context, id int64) Result[domain.Product] {
	ctx, span := c.tracer.Start(ctx, "InventoryClient.FetchProduct")
	defer span.End()

	span.SetAttributes(attribute.Int64("product_id", id))

	var product domain.Product
	err := c.call(ctx, http.MethodGet, fmt.Sprintf("/api/products/%d", id), nil, &product)
	if err == nil {
		return ok(product)
	}

	span.RecordError(err)

	if answered(err) {
		return failed[domain.Product](err)
	}

	mylogger.Warn(
		ctx,
		c.logger,
		"Inventory ledger unavailable, using product placeholder",
		zap.Int64("product_id", id),
		zap.Error(err),
	)

	return degraded(productPlaceholder(id), err)
}

func (c *InventoryClient) CheckStock(ctx context.Context, id int64) Result[int] {
	ctx, span := c.tracer.Start(ctx, "InventoryClient.CheckStock")
	defer span.End()

	span.SetAttributes(attribute.Int64("product_id", id))

	var stock int
	err := c.call(ctx, http.MethodGet, fmt.Sprintf("/api/products/%d/stock", id), nil, &stock)
	if err == nil {
		return ok(stock)
	}

	span.RecordError(err)

	if answered(err) {
		return failed[int](err)
	}

	mylogger.Warn(
		ctx,
		c.logger,
		"Inventory ledger unavailable, reporting zero stock",
		zap.Int64("product_id", id),
		zap.Error(err),
	)

	return degraded(0, err)
}

func (c *InventoryClient) ReserveStock(ctx context.Context, id int64, quantity int) (domain.Product, error) {
	return c.mutate(ctx, "reserve", id, quantity)
}

func (c *InventoryClient) ReleaseStock(ctx context.Context, id int64, quantity int) (domain.Product, error) {
	return c.mutate(ctx, "release", id, quantity)
}

// mutate never substitutes a placeholder: an unreachable ledger is reported as such.
func (c *InventoryClient) mutate(ctx context.Context, op string, id int64, quantity int) (domain.Product, error) {
	ctx, span := c.tracer.Start(ctx, "InventoryClient."+op)
	defer span.End()

	span.SetAttributes(
		attribute.Int64("product_id", id),
		attribute.Int("quantity", quantity),
	)

	query := url.Values{"quantity": []string{strconv.Itoa(quantity)}}

	var product domain.Product
	err := c.call(ctx, http.MethodPost, fmt.Sprintf("/api/products/%d/%s", id, op), query, &product)
	if err == nil {
		return product, nil
	}

	span.RecordError(err)

	if answered(err) {
		return domain.Product{}, fmt.Errorf("%s product %d: %w", op, id, err)
	}

	mylogger.Warn(
		ctx,
		c.logger,
		"Inventory mutation failed",
		zap.String("op", op),
		zap.Int64("product_id", id),
		zap.Int("quantity", quantity),
		zap.Error(err),
	)

	return domain.Product{}, c.unavailable(op, err)
}
