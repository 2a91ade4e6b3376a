package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestOrder_Recalculate(t *testing.T) {
	order := &Order{
		Lines: []OrderLine{
			NewOrderLine(Product{ID: 1, Price: decimal.RequireFromString("20.00")}, 3),
			NewOrderLine(Product{ID: 2, Price: decimal.RequireFromString("4.15")}, 2),
		},
	}
	order.Recalculate()

	require.True(t, order.TotalAmount.Equal(decimal.RequireFromString("68.30")), order.TotalAmount.String())
	require.True(t, order.Lines[0].Subtotal.Equal(decimal.RequireFromString("60")))

	order.Lines[0].SetQuantity(1)
	order.Recalculate()

	require.True(t, order.Lines[0].Subtotal.Equal(decimal.RequireFromString("20")))
	require.True(t, order.TotalAmount.Equal(decimal.RequireFromString("28.30")), order.TotalAmount.String())
}

func TestOrder_Editable(t *testing.T) {
	order := &Order{Status: StatusPending}
	require.True(t, order.Editable())

	order.Status = StatusProcessing
	require.False(t, order.Editable())
}
