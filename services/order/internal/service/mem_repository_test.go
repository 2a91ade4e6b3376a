package service

import (
	"context"
	"strings"
	"sync"

	"github.com/sakashimaa/order-orchestrator/services/order/internal/domain"
	"github.com/sakashimaa/order-orchestrator/services/order/internal/repository"
	"github.com/shopspring/decimal"
)

// memRepo is an in-memory OrderRepository with the same uniqueness and version rules as the store.
type memRepo struct {
	mu      sync.Mutex
	orders  map[int64]domain.Order
	nextID  int64
	lineID  int64
	saveErr func(order *domain.Order) error
	saves   int
}

func newMemRepo() *memRepo {
	return &memRepo{orders: make(map[int64]domain.Order)}
}

func cloneOrder(o domain.Order) domain.Order {
	o.Lines = append([]domain.OrderLine(nil), o.Lines...)
	return o
}

func (r *memRepo) Save(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.saves++
	if r.saveErr != nil {
		if err := r.saveErr(order); err != nil {
			return err
		}
	}

	if order.ID == 0 {
		for _, existing := range r.orders {
			if existing.OrderNumber == order.OrderNumber {
				return repository.ErrDuplicateOrderNumber
			}
		}

		r.nextID++
		order.ID = r.nextID
		order.Version = 1
		for i := range order.Lines {
			r.lineID++
			order.Lines[i].ID = r.lineID
			order.Lines[i].OrderID = order.ID
		}
	} else {
		stored, ok := r.orders[order.ID]
		if !ok {
			return repository.ErrOrderNotFound
		}
		if stored.Version != order.Version {
			return repository.ErrStaleOrder
		}

		order.Version++
	}

	r.orders[order.ID] = cloneOrder(*order)
	return nil
}

func (r *memRepo) get(id int64) (domain.Order, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	return cloneOrder(o), ok
}

func (r *memRepo) FindByID(_ context.Context, id int64) (*domain.Order, error) {
	o, ok := r.get(id)
	if !ok {
		return nil, repository.ErrOrderNotFound
	}

	return &o, nil
}

func (r *memRepo) filter(keep func(domain.Order) bool) []domain.Order {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.Order, 0)
	for id := int64(1); id <= r.nextID; id++ {
		if o, ok := r.orders[id]; ok && keep(o) {
			out = append(out, cloneOrder(o))
		}
	}

	return out
}

func (r *memRepo) FindByNumber(_ context.Context, number string) (*domain.Order, error) {
	found := r.filter(func(o domain.Order) bool { return o.OrderNumber == number })
	if len(found) == 0 {
		return nil, repository.ErrOrderNotFound
	}

	return &found[0], nil
}

func (r *memRepo) FindAll(context.Context) ([]domain.Order, error) {
	return r.filter(func(domain.Order) bool { return true }), nil
}

func (r *memRepo) FindByCustomer(_ context.Context, customerID int64, status *domain.Status) ([]domain.Order, error) {
	return r.filter(func(o domain.Order) bool {
		return o.CustomerID == customerID && (status == nil || o.Status == *status)
	}), nil
}

func (r *memRepo) FindByStatus(_ context.Context, status domain.Status) ([]domain.Order, error) {
	return r.filter(func(o domain.Order) bool { return o.Status == status }), nil
}

func (r *memRepo) Search(_ context.Context, keyword string) ([]domain.Order, error) {
	kw := strings.ToLower(keyword)
	return r.filter(func(o domain.Order) bool {
		return strings.Contains(strings.ToLower(o.OrderNumber), kw) ||
			strings.Contains(strings.ToLower(o.CustomerName), kw) ||
			strings.Contains(strings.ToLower(o.CustomerEmail), kw)
	}), nil
}

func (r *memRepo) Exists(_ context.Context, id int64) (bool, error) {
	_, ok := r.get(id)
	return ok, nil
}

func (r *memRepo) Count(_ context.Context) (int64, error) {
	return int64(len(r.filter(func(domain.Order) bool { return true }))), nil
}

func (r *memRepo) CountByStatus(_ context.Context, status domain.Status) (int64, error) {
	return int64(len(r.filter(func(o domain.Order) bool { return o.Status == status }))), nil
}

func (r *memRepo) DeliveredRevenue(_ context.Context) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, o := range r.filter(func(o domain.Order) bool { return o.Status == domain.StatusDelivered }) {
		total = total.Add(o.TotalAmount)
	}

	return total, nil
}
