package reservation

import (
	"errors"
	"testing"

	"github.com/sakashimaa/order-orchestrator/services/order/internal/domain"
	"github.com/sakashimaa/order-orchestrator/services/order/internal/gateway/gatewaytest"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newInventory() *gatewaytest.Inventory {
	return gatewaytest.NewInventory(
		gatewaytest.Product(1, "Mouse", "10.00", 5),
		gatewaytest.Product(2, "Keyboard", "20.00", 5),
		gatewaytest.Product(3, "Monitor", "150.00", 5),
	)
}

func TestReserveAll_Success(t *testing.T) {
	inv := newInventory()
	c := NewCoordinator(inv, zap.NewNop())

	lines := []Line{{ProductID: 1, Quantity: 2}, {ProductID: 2, Quantity: 1}}
	reserved, err := c.ReserveAll(t.Context(), lines)
	require.NoError(t, err)
	require.Equal(t, lines, reserved)
	require.Equal(t, 3, inv.Stock(1))
	require.Equal(t, 4, inv.Stock(2))
}

func TestReserveAll_StopsAtFirstFailure(t *testing.T) {
	inv := newInventory()
	inv.ReserveErr[2] = gatewaytest.Unavailable("reserve")
	c := NewCoordinator(inv, zap.NewNop())

	lines := []Line{{ProductID: 1, Quantity: 2}, {ProductID: 2, Quantity: 1}, {ProductID: 3, Quantity: 1}}
	reserved, err := c.ReserveAll(t.Context(), lines)

	var partial *PartialFailure
	require.ErrorAs(t, err, &partial)
	require.Equal(t, []Line{{ProductID: 1, Quantity: 2}}, reserved)
	require.Equal(t, reserved, partial.Reserved)
	require.Equal(t, Line{ProductID: 2, Quantity: 1}, partial.Failed)
	require.ErrorIs(t, err, domain.ErrRemoteUnavailable)

	// no auto-compensation and nothing attempted after the failing line
	require.Equal(t, 3, inv.Stock(1))
	require.Equal(t, 5, inv.Stock(3))
	for _, call := range inv.Calls() {
		require.NotEqual(t, "release", call.Op)
		require.NotEqual(t, int64(3), call.ProductID)
	}
}

func TestReleaseAll_ContinuesPastFailures(t *testing.T) {
	inv := newInventory()
	inv.ReleaseErr[1] = errors.New("ledger timeout")
	c := NewCoordinator(inv, zap.NewNop())

	failures := c.ReleaseAll(t.Context(), []Line{
		{ProductID: 1, Quantity: 1},
		{ProductID: 2, Quantity: 2},
		{ProductID: 3, Quantity: 3},
	})

	require.Len(t, failures, 1)
	require.Equal(t, int64(1), failures[0].Line.ProductID)
	require.Equal(t, 5, inv.Stock(1))
	require.Equal(t, 7, inv.Stock(2))
	require.Equal(t, 8, inv.Stock(3))
}

func TestAdjustLine(t *testing.T) {
	inv := newInventory()
	c := NewCoordinator(inv, zap.NewNop())

	res, err := c.AdjustLine(t.Context(), 1, 1, 4)
	require.NoError(t, err)
	require.Equal(t, 3, res.Delta)
	require.Equal(t, 2, inv.Stock(1))

	res, err = c.AdjustLine(t.Context(), 1, 4, 2)
	require.NoError(t, err)
	require.Equal(t, -2, res.Delta)
	require.Equal(t, 4, inv.Stock(1))

	res, err = c.AdjustLine(t.Context(), 1, 2, 2)
	require.NoError(t, err)
	require.Zero(t, res.Delta)
	require.Equal(t, 4, inv.Stock(1))
}

func TestAdjustLine_RevalidatesFreshSnapshot(t *testing.T) {
	inv := newInventory()
	c := NewCoordinator(inv, zap.NewNop())

	_, err := c.AdjustLine(t.Context(), 2, 1, 7)

	var stockErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Equal(t, 6, stockErr.Requested)
	require.Equal(t, 5, stockErr.Available)
	require.Equal(t, "Keyboard", stockErr.ProductName)
	require.Equal(t, 5, inv.Stock(2))

	inactive := gatewaytest.Product(2, "Keyboard", "20.00", 50)
	inactive.Active = false
	inv.Set(inactive)

	_, err = c.AdjustLine(t.Context(), 2, 1, 2)
	require.ErrorIs(t, err, domain.ErrProductUnavailable)
}

func TestCheckAvailability(t *testing.T) {
	inv := newInventory()

	require.NoError(t, CheckAvailability(1, inv.FetchProduct(t.Context(), 1), 5))
	require.ErrorIs(t, CheckAvailability(1, inv.FetchProduct(t.Context(), 1), 6), domain.ErrInsufficientStock)
	require.ErrorIs(t, CheckAvailability(9, inv.FetchProduct(t.Context(), 9), 1), domain.ErrProductUnavailable)

	inv.Degraded = true
	require.ErrorIs(t, CheckAvailability(1, inv.FetchProduct(t.Context(), 1), 1), domain.ErrProductUnavailable)
}
