package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

type Order struct {
	ID                int64           `db:"id" json:"id"`
	OrderNumber       string          `db:"order_number" json:"order_number"`
	CustomerID        int64           `db:"customer_id" json:"customer_id"`
	CustomerName      string          `db:"customer_name" json:"customer_name"`
	CustomerEmail     string          `db:"customer_email" json:"customer_email"`
	TotalAmount       decimal.Decimal `db:"total_amount" json:"total_amount"`
	Status            Status          `db:"status" json:"status"`
	ShippingAddress   string          `db:"shipping_address" json:"shipping_address"`
	BillingAddress    string          `db:"billing_address" json:"billing_address"`
	PaymentMethod     string          `db:"payment_method" json:"payment_method"`
	PaymentStatus     PaymentStatus   `db:"payment_status" json:"payment_status"`
	TrackingNumber    *string         `db:"tracking_number" json:"tracking_number,omitempty"`
	Notes             string          `db:"notes" json:"notes"`
	EstimatedDelivery time.Time       `db:"estimated_delivery" json:"estimated_delivery"`
	Lines             []OrderLine     `db:"lines" json:"lines"`
	// Version increases on every stored update; saves from a stale copy are refused.
	Version int64 `db:"version" json:"version"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type OrderLine struct {
	ID          int64           `db:"id" json:"id"`
	OrderID     int64           `db:"order_id" json:"order_id"`
	ProductID   int64           `db:"product_id" json:"product_id"`
	ProductName string          `db:"product_name" json:"product_name"`
	ProductSKU  string          `db:"product_sku" json:"product_sku"`
	Quantity    int             `db:"quantity" json:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unit_price"`
	Subtotal    decimal.Decimal `db:"subtotal" json:"subtotal"`
}

func NewOrderLine(product Product, quantity int) OrderLine {
	line := OrderLine{
		ProductID:   product.ID,
		ProductName: product.Name,
		ProductSKU:  product.SKU,
		UnitPrice:   product.Price,
	}
	line.SetQuantity(quantity)

	return line
}

// SetQuantity keeps Subtotal equal to Quantity * UnitPrice.
func (l *OrderLine) SetQuantity(quantity int) {
	l.Quantity = quantity
	l.Subtotal = l.UnitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

func (o *Order) Recalculate() {
	total := decimal.Zero
	for _, line := range o.Lines {
		total = total.Add(line.Subtotal)
	}
	o.TotalAmount = total
}

func (o *Order) Line(lineID int64) (*OrderLine, bool) {
	for i := range o.Lines {
		if o.Lines[i].ID == lineID {
			return &o.Lines[i], true
		}
	}

	return nil, false
}

// Editable reports whether lines and addresses may still change.
func (o *Order) Editable() bool {
	return o.Status == StatusPending
}

type Customer struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Active bool   `json:"active"`
}

type Product struct {
	ID     int64           `json:"id"`
	Name   string          `json:"name"`
	SKU    string          `json:"sku"`
	Price  decimal.Decimal `json:"price"`
	Stock  int             `json:"stock_quantity"`
	Active bool            `json:"active"`
}

// StockLevel is the ledger's current quantity for a product; Degraded marks a placeholder.
type StockLevel struct {
	ProductID int64 `json:"product_id"`
	Stock     int   `json:"stock"`
	Degraded  bool  `json:"degraded"`
}

type Stats struct {
	Total     int64           `json:"total"`
	Delivered int64           `json:"delivered"`
	Revenue   decimal.Decimal `json:"revenue"`
}
