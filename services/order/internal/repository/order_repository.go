package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sakashimaa/order-orchestrator/pkg/db"
	"github.com/sakashimaa/order-orchestrator/pkg/mylogger"
	"github.com/sakashimaa/order-orchestrator/services/order/internal/domain"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const orderNumberConstraint = "orders_order_number_key"

type OrderRepository interface {
	Save(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id int64) (*domain.Order, error)
	FindByNumber(ctx context.Context, number string) (*domain.Order, error)
	FindAll(ctx context.Context) ([]domain.Order, error)
	FindByCustomer(ctx context.Context, customerID int64, status *domain.Status) ([]domain.Order, error)
	FindByStatus(ctx context.Context, status domain.Status) ([]domain.Order, error)
	Search(ctx context.Context, keyword string) ([]domain.Order, error)
	Exists(ctx context.Context, id int64) (bool, error)
	Count(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context, status domain.Status) (int64, error)
	DeliveredRevenue(ctx context.Context) (decimal.Decimal, error)
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type orderRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	tracer trace.Tracer
}

func NewOrderRepository(pool *pgxpool.Pool, logger *zap.Logger) OrderRepository {
	return &orderRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("order_repository"),
	}
}

const orderColumns = `
	id, order_number, customer_id, customer_name, customer_email, total_amount::text,
	status, shipping_address, billing_address, payment_method, payment_status,
	tracking_number, notes, estimated_delivery, version, created_at, updated_at`

// Save inserts an order without an id, or updates the mutable columns of an existing
// one. An update only applies when order.Version still matches the stored row,
// otherwise ErrStaleOrder is returned and nothing is written.
func (r *orderRepo) Save(ctx context.Context, order *domain.Order) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.Save")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("order_id", order.ID),
		attribute.String("order_number", order.OrderNumber),
		attribute.Int("lines_count", len(order.Lines)),
	)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to begin transaction", zap.Error(err))

		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		shutdownCtx := context.WithoutCancel(ctx)
		err := tx.Rollback(shutdownCtx)

		if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			mylogger.Warn(
				shutdownCtx,
				r.logger,
				"Error rolling back transaction",
				zap.Error(err),
			)
		}
	}()

	isNew := order.ID == 0
	version := order.Version
	if isNew {
		err = r.insert(ctx, tx, order)
	} else {
		err = r.update(ctx, tx, order)
	}
	if err != nil {
		span.RecordError(err)
		order.Version = version

		return err
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to commit transaction", zap.Error(err))

		if isNew {
			resetIDs(order)
		}
		order.Version = version

		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *orderRepo) insert(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	queryOrder := `
		INSERT INTO orders (
			order_number, customer_id, customer_name, customer_email, total_amount,
			status, shipping_address, billing_address, payment_method, payment_status,
			tracking_number, notes, estimated_delivery, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
		RETURNING id, version, created_at, updated_at
	`

	if err := tx.QueryRow(
		ctx,
		queryOrder,
		order.OrderNumber,
		order.CustomerID,
		order.CustomerName,
		order.CustomerEmail,
		order.TotalAmount.String(),
		string(order.Status),
		order.ShippingAddress,
		order.BillingAddress,
		order.PaymentMethod,
		string(order.PaymentStatus),
		order.TrackingNumber,
		order.Notes,
		order.EstimatedDelivery,
	).Scan(
		&order.ID,
		&order.Version,
		&order.CreatedAt,
		&order.UpdatedAt,
	); err != nil {
		if db.IsUniqueViolation(err, orderNumberConstraint) {
			mylogger.Warn(
				ctx,
				r.logger,
				"Order number already taken",
				zap.String("order_number", order.OrderNumber),
			)

			return ErrDuplicateOrderNumber
		}

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to insert order",
			zap.Int64("customer_id", order.CustomerID),
			zap.Error(err),
		)

		return fmt.Errorf("failed to insert order: %w", err)
	}

	queryLine := `
		INSERT INTO order_lines (order_id, position, product_id, product_name, product_sku, quantity, unit_price, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8::numeric)
		RETURNING id
	`

	for i := range order.Lines {
		line := &order.Lines[i]
		line.OrderID = order.ID

		if err := tx.QueryRow(
			ctx,
			queryLine,
			order.ID,
			i,
			line.ProductID,
			line.ProductName,
			line.ProductSKU,
			line.Quantity,
			line.UnitPrice.String(),
			line.Subtotal.String(),
		).Scan(&line.ID); err != nil {
			mylogger.Error(
				ctx,
				r.logger,
				"Failed to insert order line",
				zap.Int64("product_id", line.ProductID),
				zap.Error(err),
			)

			resetIDs(order)
			return fmt.Errorf("failed to insert order line: %w", err)
		}
	}

	return nil
}

// resetIDs clears ids handed out inside a transaction that will roll back.
func resetIDs(order *domain.Order) {
	order.ID = 0
	order.Version = 0
	for i := range order.Lines {
		order.Lines[i].ID = 0
		order.Lines[i].OrderID = 0
	}
}

func (r *orderRepo) update(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	queryOrder := `
		UPDATE orders
		SET total_amount = $1::numeric,
			status = $2,
			shipping_address = $3,
			billing_address = $4,
			payment_method = $5,
			payment_status = $6,
			tracking_number = $7,
			notes = $8,
			estimated_delivery = $9,
			version = version + 1,
			updated_at = NOW()
		WHERE id = $10 AND version = $11
		RETURNING version, updated_at
	`

	if err := tx.QueryRow(
		ctx,
		queryOrder,
		order.TotalAmount.String(),
		string(order.Status),
		order.ShippingAddress,
		order.BillingAddress,
		order.PaymentMethod,
		string(order.PaymentStatus),
		order.TrackingNumber,
		order.Notes,
		order.EstimatedDelivery,
		order.ID,
		order.Version,
	).Scan(&order.Version, &order.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.missedUpdate(ctx, tx, order)
		}

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to update order",
			zap.Int64("order_id", order.ID),
			zap.Error(err),
		)

		return fmt.Errorf("failed to update order: %w", err)
	}

	queryLine := `
		UPDATE order_lines
		SET quantity = $1, subtotal = $2::numeric
		WHERE id = $3 AND order_id = $4
	`

	for _, line := range order.Lines {
		commandTag, err := tx.Exec(ctx, queryLine, line.Quantity, line.Subtotal.String(), line.ID, order.ID)
		if err != nil {
			mylogger.Error(
				ctx,
				r.logger,
				"Failed to update order line",
				zap.Int64("line_id", line.ID),
				zap.Error(err),
			)

			return fmt.Errorf("failed to update order line: %w", err)
		}

		if commandTag.RowsAffected() == 0 {
			return fmt.Errorf("order line %d: %w", line.ID, domain.ErrNotFound)
		}
	}

	return nil
}

// missedUpdate tells a missing order apart from one another writer changed first.
func (r *orderRepo) missedUpdate(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, order.ID).Scan(&exists); err != nil {
		mylogger.Error(ctx, r.logger, "Failed to check order existence", zap.Int64("order_id", order.ID), zap.Error(err))
		return fmt.Errorf("failed to update order: %w", err)
	}

	if !exists {
		mylogger.Warn(ctx, r.logger, "Order not found", zap.Int64("order_id", order.ID))
		return ErrOrderNotFound
	}

	mylogger.Warn(
		ctx,
		r.logger,
		"Order changed since it was loaded",
		zap.Int64("order_id", order.ID),
		zap.Int64("version", order.Version),
	)

	return ErrStaleOrder
}

func (r *orderRepo) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.FindByID")
	defer span.End()

	span.SetAttributes(attribute.Int64("order_id", id))

	order, err := r.findOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return order, nil
}

func (r *orderRepo) FindByNumber(ctx context.Context, number string) (*domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.FindByNumber")
	defer span.End()

	span.SetAttributes(attribute.String("order_number", number))

	order, err := r.findOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_number = $1`, number)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return order, nil
}

func (r *orderRepo) FindAll(ctx context.Context) ([]domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.FindAll")
	defer span.End()

	return r.findMany(ctx, span, `
		SELECT `+orderColumns+`
		FROM orders
		ORDER BY created_at DESC, id DESC
	`)
}

func (r *orderRepo) FindByCustomer(ctx context.Context, customerID int64, status *domain.Status) ([]domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.FindByCustomer")
	defer span.End()

	span.SetAttributes(attribute.Int64("customer_id", customerID))

	if status != nil {
		span.SetAttributes(attribute.String("status", string(*status)))

		return r.findMany(ctx, span, `
			SELECT `+orderColumns+`
			FROM orders
			WHERE customer_id = $1 AND status = $2
			ORDER BY created_at DESC, id DESC
		`, customerID, string(*status))
	}

	return r.findMany(ctx, span, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE customer_id = $1
		ORDER BY created_at DESC, id DESC
	`, customerID)
}

func (r *orderRepo) FindByStatus(ctx context.Context, status domain.Status) ([]domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.FindByStatus")
	defer span.End()

	span.SetAttributes(attribute.String("status", string(status)))

	return r.findMany(ctx, span, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE status = $1
		ORDER BY created_at DESC, id DESC
	`, string(status))
}

func (r *orderRepo) Search(ctx context.Context, keyword string) ([]domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.Search")
	defer span.End()

	span.SetAttributes(attribute.String("keyword", keyword))

	return r.findMany(ctx, span, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE order_number ILIKE '%' || $1 || '%'
			OR customer_name ILIKE '%' || $1 || '%'
			OR customer_email ILIKE '%' || $1 || '%'
		ORDER BY created_at DESC, id DESC
	`, keyword)
}

func (r *orderRepo) Exists(ctx context.Context, id int64) (bool, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.Exists")
	defer span.End()

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to check order existence", zap.Int64("order_id", id), zap.Error(err))

		return false, err
	}

	return exists, nil
}

func (r *orderRepo) Count(ctx context.Context) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.Count")
	defer span.End()

	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders`).Scan(&count); err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to count orders", zap.Error(err))

		return 0, err
	}

	return count, nil
}

func (r *orderRepo) CountByStatus(ctx context.Context, status domain.Status) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.CountByStatus")
	defer span.End()

	span.SetAttributes(attribute.String("status", string(status)))

	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE status = $1`, string(status)).Scan(&count); err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to count orders by status", zap.Error(err))

		return 0, err
	}

	return count, nil
}

func (r *orderRepo) DeliveredRevenue(ctx context.Context) (decimal.Decimal, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.DeliveredRevenue")
	defer span.End()

	var raw string
	err := r.pool.QueryRow(
		ctx,
		`SELECT COALESCE(SUM(total_amount), 0)::text FROM orders WHERE status = $1`,
		string(domain.StatusDelivered),
	).Scan(&raw)
	if err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to sum delivered revenue", zap.Error(err))

		return decimal.Zero, err
	}

	return decimal.NewFromString(raw)
}

func (r *orderRepo) findOne(ctx context.Context, query string, args ...any) (*domain.Order, error) {
	order, err := scanOrder(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}

		mylogger.Error(ctx, r.logger, "Failed to query order", zap.Error(err))
		return nil, err
	}

	orders := []domain.Order{*order}
	if err := r.attachLines(ctx, r.pool, orders); err != nil {
		return nil, err
	}

	return &orders[0], nil
}

func (r *orderRepo) findMany(ctx context.Context, span trace.Span, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Failed to query orders", zap.Error(err))

		return nil, err
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			span.RecordError(err)
			mylogger.Error(ctx, r.logger, "Failed to scan row", zap.Error(err))

			return nil, err
		}

		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Rows error", zap.Error(err))

		return nil, err
	}

	if err := r.attachLines(ctx, r.pool, orders); err != nil {
		span.RecordError(err)
		return nil, err
	}

	return orders, nil
}

func (r *orderRepo) attachLines(ctx context.Context, q querier, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, len(orders))
	index := make(map[int64]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	query := `
		SELECT id, order_id, product_id, product_name, product_sku, quantity, unit_price::text, subtotal::text
		FROM order_lines
		WHERE order_id = ANY($1)
		ORDER BY order_id, position
	`

	rows, err := q.Query(ctx, query, ids)
	if err != nil {
		mylogger.Error(ctx, r.logger, "Failed to query order_lines", zap.Error(err))
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			line              domain.OrderLine
			unitPrice, subtotal string
		)
		if err := rows.Scan(
			&line.ID,
			&line.OrderID,
			&line.ProductID,
			&line.ProductName,
			&line.ProductSKU,
			&line.Quantity,
			&unitPrice,
			&subtotal,
		); err != nil {
			mylogger.Error(ctx, r.logger, "Failed to scan order line", zap.Error(err))
			return err
		}

		if line.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
			return err
		}
		if line.Subtotal, err = decimal.NewFromString(subtotal); err != nil {
			return err
		}

		i := index[line.OrderID]
		orders[i].Lines = append(orders[i].Lines, line)
	}

	return rows.Err()
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		order         domain.Order
		total         string
		status        string
		paymentStatus string
	)

	if err := row.Scan(
		&order.ID,
		&order.OrderNumber,
		&order.CustomerID,
		&order.CustomerName,
		&order.CustomerEmail,
		&total,
		&status,
		&order.ShippingAddress,
		&order.BillingAddress,
		&order.PaymentMethod,
		&paymentStatus,
		&order.TrackingNumber,
		&order.Notes,
		&order.EstimatedDelivery,
		&order.Version,
		&order.CreatedAt,
		&order.UpdatedAt,
	); err != nil {
		return nil, err
	}

	amount, err := decimal.NewFromString(total)
	if err != nil {
		return nil, fmt.Errorf("parse total_amount: %w", err)
	}

	order.TotalAmount = amount
	order.Status = domain.Status(status)
	order.PaymentStatus = domain.PaymentStatus(paymentStatus)

	return &order, nil
}
