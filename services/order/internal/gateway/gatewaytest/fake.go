// Package gatewaytest provides in-memory stand-ins for the remote dependencies.
package gatewaytest

import (
	"context"
	"fmt"
	"sync"

	"github.com/sakashimaa/order-orchestrator/services/order/internal/domain"
	"github.com/sakashimaa/order-orchestrator/services/order/internal/gateway"
	"github.com/shopspring/decimal"
)

type Call struct {
	Op        string
	ProductID int64
	Quantity  int
}

// Inventory is a ledger that honours release-of-unreserved as a plain increment.
type Inventory struct {
	mu       sync.Mutex
	products map[int64]domain.Product
	calls    []Call

	// Degraded makes every read answer with the gateway placeholder.
	Degraded bool
	// ReserveErr and ReleaseErr inject failures per product.
	ReserveErr map[int64]error
	ReleaseErr map[int64]error
}

func NewInventory(products ...domain.Product) *Inventory {
	inv := &Inventory{
		products:   make(map[int64]domain.Product),
		ReserveErr: make(map[int64]error),
		ReleaseErr: make(map[int64]error),
	}
	for _, p := range products {
		inv.products[p.ID] = p
	}

	return inv
}

func Product(id int64, name, price string, stock int) domain.Product {
	return domain.Product{
		ID:     id,
		Name:   name,
		SKU:    fmt.Sprintf("SKU-%d", id),
		Price:  decimal.RequireFromString(price),
		Stock:  stock,
		Active: true,
	}
}

func (f *Inventory) Set(p domain.Product) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.products[p.ID] = p
}

func (f *Inventory) Stock(id int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.products[id].Stock
}

func (f *Inventory) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]Call(nil), f.calls...)
}

func (f *Inventory) FetchProduct(_ context.Context, id int64) gateway.Result[domain.Product] {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, Call{Op: "fetch", ProductID: id})

	if f.Degraded {
		return gateway.Result[domain.Product]{
			Value:   domain.Product{ID: id, Name: "Product Service Unavailable", SKU: "N/A"},
			Outcome: gateway.OutcomeDegraded,
			Err:     domain.ErrRemoteUnavailable,
		}
	}

	p, ok := f.products[id]
	if !ok {
		return gateway.Result[domain.Product]{Outcome: gateway.OutcomeFailed, Err: domain.ErrNotFound}
	}

	return gateway.Result[domain.Product]{Value: p, Outcome: gateway.OutcomeOK}
}

func (f *Inventory) CheckStock(_ context.Context, id int64) gateway.Result[int] {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, Call{Op: "stock", ProductID: id})

	if f.Degraded {
		return gateway.Result[int]{Outcome: gateway.OutcomeDegraded, Err: domain.ErrRemoteUnavailable}
	}

	p, ok := f.products[id]
	if !ok {
		return gateway.Result[int]{Outcome: gateway.OutcomeFailed, Err: domain.ErrNotFound}
	}

	return gateway.Result[int]{Value: p.Stock, Outcome: gateway.OutcomeOK}
}

func (f *Inventory) ReserveStock(_ context.Context, id int64, quantity int) (domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, Call{Op: "reserve", ProductID: id, Quantity: quantity})

	if err := f.ReserveErr[id]; err != nil {
		return domain.Product{}, err
	}

	p, ok := f.products[id]
	if !ok {
		return domain.Product{}, domain.ErrNotFound
	}
	if quantity > p.Stock {
		return domain.Product{}, fmt.Errorf("reserve product %d: %w", id, domain.ErrInsufficientStock)
	}

	p.Stock -= quantity
	f.products[id] = p

	return p, nil
}

func (f *Inventory) ReleaseStock(_ context.Context, id int64, quantity int) (domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, Call{Op: "release", ProductID: id, Quantity: quantity})

	if err := f.ReleaseErr[id]; err != nil {
		return domain.Product{}, err
	}

	p, ok := f.products[id]
	if !ok {
		return domain.Product{}, domain.ErrNotFound
	}

	p.Stock += quantity
	f.products[id] = p

	return p, nil
}

// Unavailable builds the error the gateway returns for a mutation it could not perform.
func Unavailable(op string) error {
	return &domain.DependencyError{
		Dependency: gateway.InventoryLedger,
		Op:         op,
		Err:        domain.ErrRemoteUnavailable,
	}
}

type Customers struct {
	mu        sync.Mutex
	customers map[int64]domain.Customer

	Degraded bool
}

func NewCustomers(customers ...domain.Customer) *Customers {
	c := &Customers{customers: make(map[int64]domain.Customer)}
	for _, cu := range customers {
		c.customers[cu.ID] = cu
	}

	return c
}

func (f *Customers) FetchCustomer(_ context.Context, id int64) gateway.Result[domain.Customer] {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Degraded {
		return gateway.Result[domain.Customer]{
			Value:   domain.Customer{ID: id, Name: "Customer Service Unavailable"},
			Outcome: gateway.OutcomeDegraded,
			Err:     domain.ErrRemoteUnavailable,
		}
	}

	c, ok := f.customers[id]
	if !ok {
		return gateway.Result[domain.Customer]{Outcome: gateway.OutcomeFailed, Err: domain.ErrNotFound}
	}

	return gateway.Result[domain.Customer]{Value: c, Outcome: gateway.OutcomeOK}
}
