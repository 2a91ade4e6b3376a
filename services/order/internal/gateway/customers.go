package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sakashimaa/order-orchestrator/pkg/mylogger"
	"github.com/sakashimaa/order-orchestrator/services/order/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const CustomerDirectory = "customer-directory"

type CustomerClient struct {
	*remoteClient
	tracer trace.Tracer
}

func NewCustomerClient(cfg ClientConfig, httpClient *http.Client, logger *zap.Logger) *CustomerClient {
	return &CustomerClient{
		remoteClient: newRemoteClient(CustomerDirectory, cfg, httpClient, logger),
		tracer:       otel.Tracer("customer_client"),
	}
}

func customerPlaceholder(id int64) domain.Customer {
	return domain.Customer{
		ID:     id,
		Name:   "Customer Service Unavailable",
		Email:  "unavailable@placeholder.local",
		Active: false,
	}
}

func (c *CustomerClient) FetchCustomer(ctx context.Context, id int64) Result[domain.Customer] {
	ctx, span := c.tracer.Start(ctx, "CustomerClient.FetchCustomer")
	defer span.End()

	span.SetAttributes(attribute.Int64("customer_id", id))

	var customer domain.Customer
	err := c.call(ctx, http.MethodGet, fmt.Sprintf("/api/users/%d", id), nil, &customer)
	if err == nil {
		return ok(customer)
	}

	span.RecordError(err)

	if answered(err) {
		return failed[domain.Customer](err)
	}

	mylogger.Warn(
		ctx,
		c.logger,
		"Customer directory unavailable, using placeholder",
		zap.Int64("customer_id", id),
		zap.Error(err),
	)

	return degraded(customerPlaceholder(id), err)
}
