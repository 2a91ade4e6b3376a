package handler

import (
	"github.com/sakashimaa/order-orchestrator/services/order/internal/service"
)

type LineRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gte=1"`
}

type CreateOrderRequest struct {
	CustomerID      int64         `json:"customer_id" validate:"required,gt=0"`
	Lines           []LineRequest `json:"lines" validate:"required,min=1,dive"`
	ShippingAddress string        `json:"shipping_address" validate:"max=500"`
	BillingAddress  string        `json:"billing_address" validate:"max=500"`
	PaymentMethod   string        `json:"payment_method" validate:"max=50"`
	Notes           string        `json:"notes" validate:"max=1000"`
}

func (r CreateOrderRequest) toInput() service.CreateOrderInput {
	lines := make([]service.LineInput, 0, len(r.Lines))
	for _, l := range r.Lines {
		lines = append(lines, service.LineInput{ProductID: l.ProductID, Quantity: l.Quantity})
	}

	return service.CreateOrderInput{
		CustomerID:      r.CustomerID,
		Lines:           lines,
		ShippingAddress: r.ShippingAddress,
		BillingAddress:  r.BillingAddress,
		PaymentMethod:   r.PaymentMethod,
		Notes:           r.Notes,
	}
}

type UpdateStatusRequest struct {
	Status         string  `json:"status" validate:"required"`
	TrackingNumber *string `json:"tracking_number" validate:"omitempty,max=100"`
}

type UpdateDetailsRequest struct {
	ShippingAddress *string `json:"shipping_address" validate:"omitempty,max=500"`
	BillingAddress  *string `json:"billing_address" validate:"omitempty,max=500"`
	PaymentMethod   *string `json:"payment_method" validate:"omitempty,max=50"`
	Notes           *string `json:"notes" validate:"omitempty,max=1000"`
}

func (r UpdateDetailsRequest) toInput() service.DetailsInput {
	return service.DetailsInput{
		ShippingAddress: r.ShippingAddress,
		BillingAddress:  r.BillingAddress,
		PaymentMethod:   r.PaymentMethod,
		Notes:           r.Notes,
	}
}

type UpdateLineRequest struct {
	Quantity int `json:"quantity" validate:"required,gte=1"`
}
