package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shophub/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	db     DB
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(db DB, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		db:     db,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

// Begin starts a new database transaction.
func (r *orderRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// newOrderNumber generates a unique human-readable order number.
func newOrderNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:9])
	return fmt.Sprintf("ORD-%d-%s", time.Now().UnixMilli(), suffix)
}

// Create inserts a new order with a generated unique order number within the
// provided transaction. The generated number is written back to the order.
func (r *orderRepository) Create(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	order.OrderNumber = newOrderNumber()

	query := `
		INSERT INTO orders
			(id, order_number, customer_id, subtotal, discount, shipping_fee, total,
			 payment_method, status, payment_status, shipping_zip_code,
			 shipping_address, shipping_city, shipping_state, needs_reconciliation,
			 created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	_, err := tx.Exec(ctx, query,
		order.ID,
		order.OrderNumber,
		order.CustomerID,
		order.Subtotal,
		order.Discount,
		order.ShippingFee,
		order.Total,
		order.PaymentMethod,
		order.Status,
		order.PaymentStatus,
		order.ShippingZipCode,
		order.ShippingAddress,
		order.ShippingCity,
		order.ShippingState,
		order.NeedsReconciliation,
		order.CreatedBy,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Debug().
		Str("order_id", order.ID.String()).
		Str("order_number", order.OrderNumber).
		Msg("order created")

	return nil
}

// CreateItems inserts the order's line items within the provided transaction.
func (r *orderRepository) CreateItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO order_items
			(id, order_id, product_id, product_name, sku, quantity, unit_price, total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(query, item.ID, item.OrderID, item.ProductID, item.ProductName,
			item.SKU, item.Quantity, item.UnitPrice, item.Total)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(items); i++ {
		if _, err := results.Exec(); err != nil {
			r.logger.Error().
				Err(err).
				Str("order_id", items[i].OrderID.String()).
				Int64("product_id", items[i].ProductID).
				Msg("failed to create order item")
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	r.logger.Debug().
		Int("count", len(items)).
		Msg("order items created")

	return nil
}

const orderColumns = `id, order_number, customer_id, subtotal, discount, shipping_fee, total,
		payment_method, status, payment_status, payment_transaction_id, shipping_zip_code,
		shipping_address, shipping_city, shipping_state, needs_reconciliation,
		created_by, created_at, updated_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.CustomerID,
		&o.Subtotal,
		&o.Discount,
		&o.ShippingFee,
		&o.Total,
		&o.PaymentMethod,
		&o.Status,
		&o.PaymentStatus,
		&o.PaymentTransactionID,
		&o.ShippingZipCode,
		&o.ShippingAddress,
		&o.ShippingCity,
		&o.ShippingState,
		&o.NeedsReconciliation,
		&o.CreatedBy,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// GetByID retrieves an order by its ID along with its items.
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, []model.OrderItem, error) {
	orderQuery := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE id = $1
	`

	order, err := scanOrder(r.db.QueryRow(ctx, orderQuery, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("order_id", id.String()).Msg("order not found")
			return nil, nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to query order")
		return nil, nil, fmt.Errorf("failed to query order: %w", err)
	}

	itemsQuery := `
		SELECT id, order_id, product_id, product_name, sku, quantity, unit_price, total
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`

	rows, err := r.db.Query(ctx, itemsQuery, id)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", id.String()).
			Msg("failed to query order items")
		return nil, nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []model.OrderItem
	for rows.Next() {
		var item model.OrderItem
		err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName,
			&item.SKU, &item.Quantity, &item.UnitPrice, &item.Total)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order item row")
			return nil, nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order item rows")
		return nil, nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return order, items, nil
}

// Search lists orders matching the filter, newest first. Every predicate is
// bound as a parameter; no user input is ever concatenated into the SQL.
func (r *orderRepository) Search(ctx context.Context, filter model.OrderFilter) ([]model.Order, error) {
	var (
		conditions []string
		args       []any
	)

	appendCondition := func(clause string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(clause, len(args)))
	}

	if filter.CustomerID != nil {
		appendCondition("customer_id = $%d", *filter.CustomerID)
	}
	if filter.Status != nil {
		appendCondition("status = $%d", *filter.Status)
	}
	if filter.MinTotal != nil {
		appendCondition("total >= $%d", *filter.MinTotal)
	}
	if filter.MaxTotal != nil {
		appendCondition("total <= $%d", *filter.MaxTotal)
	}
	if filter.DateFrom != nil {
		appendCondition("created_at >= $%d", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		appendCondition("created_at <= $%d", *filter.DateTo)
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to search orders")
		return nil, fmt.Errorf("failed to search orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order row")
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order rows")
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}

// UpdateStatus sets the order status.
func (r *orderRepository) UpdateStatus(ctx context.Context, q Executor, id uuid.UUID, status model.OrderStatus) error {
	query := `
		UPDATE orders
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`

	if _, err := q.Exec(ctx, query, status, id); err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", id.String()).
			Str("status", string(status)).
			Msg("failed to update order status")
		return fmt.Errorf("failed to update order status: %w", err)
	}

	return nil
}

// UpdatePaymentStatus sets the payment status and optional transaction reference.
func (r *orderRepository) UpdatePaymentStatus(ctx context.Context, q Executor, id uuid.UUID, status model.PaymentStatus, transactionID *string) error {
	query := `
		UPDATE orders
		SET payment_status = $1, payment_transaction_id = COALESCE($2, payment_transaction_id), updated_at = NOW()
		WHERE id = $3
	`

	if _, err := q.Exec(ctx, query, status, transactionID, id); err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", id.String()).
			Str("payment_status", string(status)).
			Msg("failed to update payment status")
		return fmt.Errorf("failed to update payment status: %w", err)
	}

	return nil
}

// MarkForReconciliation flags the order for manual review after a failed compensation.
func (r *orderRepository) MarkForReconciliation(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE orders
		SET needs_reconciliation = TRUE, updated_at = NOW()
		WHERE id = $1
	`

	if _, err := r.db.Exec(ctx, query, id); err != nil {
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to flag order for reconciliation")
		return fmt.Errorf("failed to flag order for reconciliation: %w", err)
	}

	r.logger.Warn().Str("order_id", id.String()).Msg("order flagged for manual reconciliation")

	return nil
}

// PurchaseStats aggregates the customer's completed orders.
func (r *orderRepository) PurchaseStats(ctx context.Context, customerID int64) (model.PurchaseStats, error) {
	query := `
		SELECT COALESCE(SUM(total), 0), COUNT(*)
		FROM orders
		WHERE customer_id = $1 AND status = 'DELIVERED'
	`

	var stats model.PurchaseStats
	err := r.db.QueryRow(ctx, query, customerID).Scan(&stats.TotalPurchases, &stats.OrderCount)
	if err != nil {
		r.logger.Error().Err(err).Int64("customer_id", customerID).Msg("failed to query purchase stats")
		return model.PurchaseStats{}, fmt.Errorf("failed to query purchase stats: %w", err)
	}

	return stats, nil
}

// OutstandingTotal sums non-cancelled orders with pending or processing payment.
func (r *orderRepository) OutstandingTotal(ctx context.Context, customerID int64) (float64, error) {
	query := `
		SELECT COALESCE(SUM(total), 0)
		FROM orders
		WHERE customer_id = $1
		  AND payment_status IN ('PENDING', 'PROCESSING')
		  AND status NOT IN ('CANCELLED', 'REFUNDED')
	`

	var total float64
	if err := r.db.QueryRow(ctx, query, customerID).Scan(&total); err != nil {
		r.logger.Error().Err(err).Int64("customer_id", customerID).Msg("failed to query outstanding total")
		return 0, fmt.Errorf("failed to query outstanding total: %w", err)
	}

	return total, nil
}

// OverdueCount counts the customer's orders with overdue payment status.
func (r *orderRepository) OverdueCount(ctx context.Context, customerID int64) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM orders
		WHERE customer_id = $1 AND payment_status = 'OVERDUE'
	`

	var count int
	if err := r.db.QueryRow(ctx, query, customerID).Scan(&count); err != nil {
		r.logger.Error().Err(err).Int64("customer_id", customerID).Msg("failed to query overdue count")
		return 0, fmt.Errorf("failed to query overdue count: %w", err)
	}

	return count, nil
}

// FindExpiredPending lists unpaid PENDING orders older than the cutoff.
func (r *orderRepository) FindExpiredPending(ctx context.Context, olderThan time.Time, limit int) ([]model.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE status = 'PENDING'
		  AND payment_status = 'PENDING'
		  AND created_at < $1
		ORDER BY created_at
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, olderThan, limit)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query expired pending orders")
		return nil, fmt.Errorf("failed to query expired pending orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan expired order row")
			return nil, fmt.Errorf("failed to scan expired order: %w", err)
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating expired order rows")
		return nil, fmt.Errorf("error iterating expired orders: %w", err)
	}

	return orders, nil
}
