package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sakashimaa/order-orchestrator/pkg/mylogger"
	"github.com/sakashimaa/order-orchestrator/services/order/internal/domain"
	"github.com/sakashimaa/order-orchestrator/services/order/internal/gateway"
	"github.com/sakashimaa/order-orchestrator/services/order/internal/repository"
	"github.com/sakashimaa/order-orchestrator/services/order/internal/reservation"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const maxNumberAttempts = 3

type CustomerDirectory interface {
	FetchCustomer(ctx context.Context, id int64) gateway.Result[domain.Customer]
}

type OrderService interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*domain.Order, error)
	UpdateStatus(ctx context.Context, orderID int64, input StatusInput) (*domain.Order, error)
	UpdateLineQuantity(ctx context.Context, orderID, lineID int64, quantity int) (*domain.Order, error)
	UpdateDetails(ctx context.Context, orderID int64, input DetailsInput) (*domain.Order, error)
	Cancel(ctx context.Context, orderID int64) (*domain.Order, error)

	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	GetByNumber(ctx context.Context, number string) (*domain.Order, error)
	ListAll(ctx context.Context) ([]domain.Order, error)
	ListByCustomer(ctx context.Context, customerID int64, status string) ([]domain.Order, error)
	ListByStatus(ctx context.Context, status string) ([]domain.Order, error)
	Search(ctx context.Context, keyword string) ([]domain.Order, error)
	Exists(ctx context.Context, id int64) (bool, error)
	Stats(ctx context.Context) (*domain.Stats, error)
	ProductStock(ctx context.Context, productID int64) (*domain.StockLevel, error)
}

type LineInput struct {
	ProductID int64
	Quantity  int
}

type CreateOrderInput struct {
	CustomerID      int64
	Lines           []LineInput
	ShippingAddress string
	BillingAddress  string
	PaymentMethod   string
	Notes           string
}

type StatusInput struct {
	Status         string
	TrackingNumber *string
}

// DetailsInput holds the editable fields of a pending order; nil leaves a field unchanged.
type DetailsInput struct {
	ShippingAddress *string
	BillingAddress  *string
	PaymentMethod   *string
	Notes           *string
}

type Options struct {
	NumberPrefix   string
	DeliveryWindow time.Duration
}

type Option func(*orderService)

func WithClock(now func() time.Time) Option {
	return func(s *orderService) {
		s.now = now
	}
}

func WithNumberGenerator(next func() string) Option {
	return func(s *orderService) {
		s.nextNumber = next
	}
}

type orderService struct {
	repo        repository.OrderRepository
	customers   CustomerDirectory
	inventory   reservation.Inventory
	coordinator *reservation.Coordinator
	logger      *zap.Logger
	tracer      trace.Tracer

	deliveryWindow time.Duration
	nextNumber     func() string
	now            func() time.Time
}

func NewOrderService(
	repo repository.OrderRepository,
	customers CustomerDirectory,
	inventory reservation.Inventory,
	logger *zap.Logger,
	opts Options,
	options ...Option,
) OrderService {
	if opts.NumberPrefix == "" {
		opts.NumberPrefix = "ORD"
	}
	if opts.DeliveryWindow == 0 {
		opts.DeliveryWindow = 72 * time.Hour
	}

	s := &orderService{
		repo:           repo,
		customers:      customers,
		inventory:      inventory,
		coordinator:    reservation.NewCoordinator(inventory, logger),
		logger:         logger,
		tracer:         otel.Tracer("order_service"),
		deliveryWindow: opts.DeliveryWindow,
		nextNumber:     NewNumberGenerator(opts.NumberPrefix),
		now:            time.Now,
	}

	for _, option := range options {
		option(s)
	}

	return s
}

func (s *orderService) CreateOrder(ctx context.Context, input CreateOrderInput) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.CreateOrder")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("customer_id", input.CustomerID),
		attribute.Int("lines_count", len(input.Lines)),
	)

	if err := validateCreate(input); err != nil {
		span.RecordError(err)
		return nil, err
	}

	customer, err := s.fetchCustomer(ctx, input.CustomerID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	requested := make([]reservation.Line, len(input.Lines))
	for i, in := range input.Lines {
		requested[i] = reservation.Line{ProductID: in.ProductID, Quantity: in.Quantity}
	}

	products, err := s.checkAvailability(ctx, requested)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	lines := make([]domain.OrderLine, 0, len(input.Lines))
	for _, in := range input.Lines {
		lines = append(lines, domain.NewOrderLine(products[in.ProductID], in.Quantity))
	}

	now := s.now()
	order := &domain.Order{
		OrderNumber:       s.nextNumber(),
		CustomerID:        customer.ID,
		CustomerName:      customer.Name,
		CustomerEmail:     customer.Email,
		Status:            domain.StatusPending,
		PaymentStatus:     domain.PaymentStatusPending,
		ShippingAddress:   input.ShippingAddress,
		BillingAddress:    input.BillingAddress,
		PaymentMethod:     input.PaymentMethod,
		Notes:             input.Notes,
		EstimatedDelivery: now.Add(s.deliveryWindow),
		Lines:             lines,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	order.Recalculate()

	reserved, err := s.coordinator.ReserveAll(ctx, reservationLines(order.Lines))
	if err != nil {
		span.RecordError(err)
		s.compensate(ctx, order, reserved)

		return nil, &domain.OrderCreationError{Err: err}
	}

	if err := s.saveNew(ctx, order); err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			s.logger,
			"Failed to persist order, releasing reservations",
			zap.String("order_number", order.OrderNumber),
			zap.Error(err),
		)

		s.compensate(ctx, order, reserved)

		return nil, &domain.OrderCreationError{Err: err}
	}

	mylogger.Info(
		ctx,
		s.logger,
		"Order created",
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("total", order.TotalAmount.StringFixed(2)),
	)

	return order, nil
}

// checkAvailability fetches one snapshot per product and checks it against the
// quantity summed over every line for that product. Nothing is reserved here.
func (s *orderService) checkAvailability(ctx context.Context, lines []reservation.Line) (map[int64]domain.Product, error) {
	totals := make(map[int64]int, len(lines))
	order := make([]int64, 0, len(lines))
	for _, line := range lines {
		if _, seen := totals[line.ProductID]; !seen {
			order = append(order, line.ProductID)
		}
		totals[line.ProductID] += line.Quantity
	}

	products := make(map[int64]domain.Product, len(order))
	for _, productID := range order {
		res := s.inventory.FetchProduct(ctx, productID)
		if err := reservation.CheckAvailability(productID, res, totals[productID]); err != nil {
			mylogger.Warn(
				ctx,
				s.logger,
				"Order line rejected",
				zap.Int64("product_id", productID),
				zap.Int("quantity", totals[productID]),
				zap.Error(err),
			)

			return nil, err
		}

		products[productID] = res.Value
	}

	return products, nil
}

// saveNew persists a fresh order, drawing a new number when the store reports a collision.
func (s *orderService) saveNew(ctx context.Context, order *domain.Order) error {
	var err error
	for attempt := 1; attempt <= maxNumberAttempts; attempt++ {
		err = s.repo.Save(ctx, order)
		if !errors.Is(err, repository.ErrDuplicateOrderNumber) {
			return err
		}

		mylogger.Warn(
			ctx,
			s.logger,
			"Order number collision, regenerating",
			zap.String("order_number", order.OrderNumber),
			zap.Int("attempt", attempt),
		)

		order.OrderNumber = s.nextNumber()
	}

	return err
}

func (s *orderService) fetchCustomer(ctx context.Context, id int64) (domain.Customer, error) {
	res := s.customers.FetchCustomer(ctx, id)

	switch res.Outcome {
	case gateway.OutcomeDegraded, gateway.OutcomeFailed:
		return domain.Customer{}, &domain.DependencyError{
			Dependency: gateway.CustomerDirectory,
			Op:         "fetch customer",
			Err:        res.Err,
		}
	}

	if !res.Value.Active {
		return domain.Customer{}, fmt.Errorf("%w: customer %d", domain.ErrCustomerInactive, id)
	}

	return res.Value, nil
}

func (s *orderService) compensate(ctx context.Context, order *domain.Order, reserved []reservation.Line) {
	if len(reserved) == 0 {
		return
	}

	ctx = context.WithoutCancel(ctx)
	failures := s.coordinator.ReleaseAll(ctx, reserved)
	if len(failures) > 0 {
		mylogger.Error(
			ctx,
			s.logger,
			"CRITICAL: compensation incomplete",
			zap.String("order_number", order.OrderNumber),
			zap.Int("failed_releases", len(failures)),
		)
	}
}

func (s *orderService) UpdateStatus(ctx context.Context, orderID int64, input StatusInput) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.UpdateStatus")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
		attribute.String("status", input.Status),
	)

	target, err := domain.ParseStatus(input.Status)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := s.transition(ctx, order, target, input.TrackingNumber); err != nil {
		span.RecordError(err)
		return nil, err
	}

	return order, nil
}

func (s *orderService) Cancel(ctx context.Context, orderID int64) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.Cancel")
	defer span.End()

	span.SetAttributes(attribute.Int64("order_id", orderID))

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := s.transition(ctx, order, domain.StatusCancelled, nil); err != nil {
		span.RecordError(err)
		return nil, err
	}

	return order, nil
}

func (s *orderService) transition(ctx context.Context, order *domain.Order, target domain.Status, tracking *string) error {
	plan, err := domain.Plan(order.Status, target)
	if err != nil {
		mylogger.Warn(
			ctx,
			s.logger,
			"Rejected status transition",
			zap.Int64("order_id", order.ID),
			zap.String("from", string(order.Status)),
			zap.String("to", string(target)),
		)

		return err
	}

	switch plan.Effect {
	case domain.EffectRelease:
		return s.cancel(ctx, order, plan)
	case domain.EffectReserve:
		return s.reactivate(ctx, order, plan)
	}

	apply(order, plan)
	if tracking != nil && plan.To == domain.StatusShipped {
		order.TrackingNumber = tracking
	}

	if err := s.repo.Save(ctx, order); err != nil {
		mylogger.Error(ctx, s.logger, "Failed to persist status change", zap.Int64("order_id", order.ID), zap.Error(err))
		return err
	}

	mylogger.Info(
		ctx,
		s.logger,
		"Order status changed",
		zap.Int64("order_id", order.ID),
		zap.String("from", string(plan.From)),
		zap.String("to", string(plan.To)),
	)

	return nil
}

// cancel commits the status before releasing stock; a failed release is logged
// as ledger drift and does not undo the cancellation.
func (s *orderService) cancel(ctx context.Context, order *domain.Order, plan domain.Transition) error {
	apply(order, plan)

	if err := s.repo.Save(ctx, order); err != nil {
		mylogger.Error(ctx, s.logger, "Failed to persist cancellation", zap.Int64("order_id", order.ID), zap.Error(err))
		return err
	}

	failures := s.coordinator.ReleaseAll(context.WithoutCancel(ctx), reservationLines(order.Lines))
	if len(failures) > 0 {
		mylogger.Error(
			ctx,
			s.logger,
			"CRITICAL: order cancelled with unreleased stock",
			zap.Int64("order_id", order.ID),
			zap.String("order_number", order.OrderNumber),
			zap.Int("failed_releases", len(failures)),
		)
	}

	mylogger.Info(
		ctx,
		s.logger,
		"Order cancelled",
		zap.Int64("order_id", order.ID),
		zap.String("from", string(plan.From)),
	)

	return nil
}

// reactivate re-checks and re-reserves every line of a cancelled order. On any
// failure the order keeps its cancelled status and whatever was reserved is released.
func (s *orderService) reactivate(ctx context.Context, order *domain.Order, plan domain.Transition) error {
	if _, err := s.checkAvailability(ctx, reservationLines(order.Lines)); err != nil {
		return err
	}

	reserved, err := s.coordinator.ReserveAll(ctx, reservationLines(order.Lines))
	if err != nil {
		s.compensate(ctx, order, reserved)
		return fmt.Errorf("reactivate order %d: %w", order.ID, err)
	}

	previous := *order
	apply(order, plan)

	if err := s.repo.Save(ctx, order); err != nil {
		mylogger.Error(ctx, s.logger, "Failed to persist reactivation", zap.Int64("order_id", order.ID), zap.Error(err))

		s.compensate(ctx, order, reserved)
		*order = previous

		return err
	}

	mylogger.Info(
		ctx,
		s.logger,
		"Order reactivated",
		zap.Int64("order_id", order.ID),
		zap.String("to", string(plan.To)),
	)

	return nil
}

func (s *orderService) UpdateLineQuantity(ctx context.Context, orderID, lineID int64, quantity int) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.UpdateLineQuantity")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", orderID),
		attribute.Int64("line_id", lineID),
		attribute.Int("quantity", quantity),
	)

	if quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", domain.ErrInvalidRequest)
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if !order.Editable() {
		return nil, fmt.Errorf("%w: order %d is %s", domain.ErrNotEditable, order.ID, order.Status)
	}

	line, ok := order.Line(lineID)
	if !ok {
		return nil, fmt.Errorf("order line %d: %w", lineID, domain.ErrNotFound)
	}

	oldQty := line.Quantity
	adjusted, err := s.coordinator.AdjustLine(ctx, line.ProductID, oldQty, quantity)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	line.SetQuantity(quantity)
	order.Recalculate()

	if err := s.repo.Save(ctx, order); err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			s.logger,
			"Failed to persist line quantity, reverting reservation",
			zap.Int64("order_id", order.ID),
			zap.Int64("line_id", lineID),
			zap.Error(err),
		)

		s.revertAdjustment(ctx, order, line.ProductID, adjusted.Delta)

		return nil, err
	}

	return order, nil
}

func (s *orderService) revertAdjustment(ctx context.Context, order *domain.Order, productID int64, delta int) {
	switch {
	case delta > 0:
		s.compensate(ctx, order, []reservation.Line{{ProductID: productID, Quantity: delta}})
	case delta < 0:
		line := reservation.Line{ProductID: productID, Quantity: -delta}
		if _, err := s.coordinator.ReserveAll(context.WithoutCancel(ctx), []reservation.Line{line}); err != nil {
			mylogger.Error(
				ctx,
				s.logger,
				"CRITICAL: could not restore released stock",
				zap.Int64("order_id", order.ID),
				zap.Int64("product_id", productID),
				zap.Int("quantity", -delta),
				zap.Error(err),
			)
		}
	}
}

func (s *orderService) UpdateDetails(ctx context.Context, orderID int64, input DetailsInput) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.UpdateDetails")
	defer span.End()

	span.SetAttributes(attribute.Int64("order_id", orderID))

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if !order.Editable() {
		return nil, fmt.Errorf("%w: order %d is %s", domain.ErrNotEditable, order.ID, order.Status)
	}

	if input.ShippingAddress != nil {
		order.ShippingAddress = *input.ShippingAddress
	}
	if input.BillingAddress != nil {
		order.BillingAddress = *input.BillingAddress
	}
	if input.PaymentMethod != nil {
		order.PaymentMethod = *input.PaymentMethod
	}
	if input.Notes != nil {
		order.Notes = *input.Notes
	}

	if err := s.repo.Save(ctx, order); err != nil {
		span.RecordError(err)
		return nil, err
	}

	return order, nil
}

func (s *orderService) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *orderService) GetByNumber(ctx context.Context, number string) (*domain.Order, error) {
	return s.repo.FindByNumber(ctx, number)
}

func (s *orderService) ListAll(ctx context.Context) ([]domain.Order, error) {
	return s.repo.FindAll(ctx)
}

func (s *orderService) ListByCustomer(ctx context.Context, customerID int64, status string) ([]domain.Order, error) {
	if status == "" {
		return s.repo.FindByCustomer(ctx, customerID, nil)
	}

	parsed, err := domain.ParseStatus(status)
	if err != nil {
		return nil, err
	}

	return s.repo.FindByCustomer(ctx, customerID, &parsed)
}

func (s *orderService) ListByStatus(ctx context.Context, status string) ([]domain.Order, error) {
	parsed, err := domain.ParseStatus(status)
	if err != nil {
		return nil, err
	}

	return s.repo.FindByStatus(ctx, parsed)
}

func (s *orderService) Search(ctx context.Context, keyword string) ([]domain.Order, error) {
	if keyword == "" {
		return nil, fmt.Errorf("%w: search keyword is required", domain.ErrInvalidRequest)
	}

	return s.repo.Search(ctx, keyword)
}

func (s *orderService) Exists(ctx context.Context, id int64) (bool, error) {
	return s.repo.Exists(ctx, id)
}

func (s *orderService) Stats(ctx context.Context) (*domain.Stats, error) {
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, err
	}

	delivered, err := s.repo.CountByStatus(ctx, domain.StatusDelivered)
	if err != nil {
		return nil, err
	}

	revenue, err := s.repo.DeliveredRevenue(ctx)
	if err != nil {
		return nil, err
	}

	return &domain.Stats{Total: total, Delivered: delivered, Revenue: revenue}, nil
}

// ProductStock passes the ledger's stock through; an unreachable ledger yields a
// degraded zero rather than an error.
func (s *orderService) ProductStock(ctx context.Context, productID int64) (*domain.StockLevel, error) {
	if productID <= 0 {
		return nil, fmt.Errorf("%w: product id must be positive", domain.ErrInvalidRequest)
	}

	res := s.inventory.CheckStock(ctx, productID)
	switch res.Outcome {
	case gateway.OutcomeFailed:
		return nil, &domain.DependencyError{Dependency: gateway.InventoryLedger, Op: "check stock", Err: res.Err}
	case gateway.OutcomeDegraded:
		mylogger.Warn(ctx, s.logger, "Serving placeholder stock", zap.Int64("product_id", productID), zap.Error(res.Err))
	}

	return &domain.StockLevel{
		ProductID: productID,
		Stock:     res.Value,
		Degraded:  res.Outcome == gateway.OutcomeDegraded,
	}, nil
}

func validateCreate(input CreateOrderInput) error {
	if input.CustomerID <= 0 {
		return fmt.Errorf("%w: customer id must be positive", domain.ErrInvalidRequest)
	}
	if len(input.Lines) == 0 {
		return fmt.Errorf("%w: order must contain at least one line", domain.ErrInvalidRequest)
	}

	for i, line := range input.Lines {
		if line.ProductID <= 0 {
			return fmt.Errorf("%w: line %d: product id must be positive", domain.ErrInvalidRequest, i)
		}
		if line.Quantity < 1 {
			return fmt.Errorf("%w: line %d: quantity must be at least 1", domain.ErrInvalidRequest, i)
		}
	}

	return nil
}

func apply(order *domain.Order, plan domain.Transition) {
	order.Status = plan.To
	order.PaymentStatus = plan.PaymentStatus
}

func reservationLines(lines []domain.OrderLine) []reservation.Line {
	out := make([]reservation.Line, len(lines))
	for i, line := range lines {
		out[i] = reservation.Line{ProductID: line.ProductID, Quantity: line.Quantity}
	}

	return out
}
