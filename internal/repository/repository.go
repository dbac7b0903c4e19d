package repository

import (
	"context"
	"time"

	"shophub/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the pool surface the repositories depend on. *pgxpool.Pool satisfies
// it, as does pgxmock's pool in tests.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Executor is the minimal statement surface shared by pools and transactions.
// Stock mutations accept it so the same operation serves the transactional
// reservation path and the post-commit compensation path.
type Executor interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// CustomerRepository defines the interface for customer data access operations.
type CustomerRepository interface {
	// GetByID retrieves a single customer by its ID.
	GetByID(ctx context.Context, id int64) (*model.Customer, error)

	// GetByEmail retrieves a single customer by email.
	GetByEmail(ctx context.Context, email string) (*model.Customer, error)
}

// ProductRepository defines the interface for product data access operations.
type ProductRepository interface {
	// GetByIDs retrieves multiple products by their IDs in one query.
	GetByIDs(ctx context.Context, ids []int64) ([]model.Product, error)

	// ReserveStock atomically decrements stock, failing with a domain error
	// when the resulting stock would be negative.
	ReserveStock(ctx context.Context, q Executor, productID int64, quantity int) error

	// ReleaseStock returns previously reserved stock to the product.
	ReleaseStock(ctx context.Context, q Executor, productID int64, quantity int) error
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// Begin starts a new database transaction.
	Begin(ctx context.Context) (pgx.Tx, error)

	// Create inserts a new order with a generated unique order number within
	// the provided transaction.
	Create(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// CreateItems inserts the order's line items within the provided transaction.
	CreateItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error

	// GetByID retrieves an order by its ID along with its items.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, []model.OrderItem, error)

	// Search lists orders matching the filter, newest first.
	Search(ctx context.Context, filter model.OrderFilter) ([]model.Order, error)

	// UpdateStatus sets the order status.
	UpdateStatus(ctx context.Context, q Executor, id uuid.UUID, status model.OrderStatus) error

	// UpdatePaymentStatus sets the payment status and optional transaction reference.
	UpdatePaymentStatus(ctx context.Context, q Executor, id uuid.UUID, status model.PaymentStatus, transactionID *string) error

	// MarkForReconciliation flags the order for manual review after a failed compensation.
	MarkForReconciliation(ctx context.Context, id uuid.UUID) error

	// PurchaseStats aggregates the customer's completed orders.
	PurchaseStats(ctx context.Context, customerID int64) (model.PurchaseStats, error)

	// OutstandingTotal sums non-cancelled orders with pending or processing payment.
	OutstandingTotal(ctx context.Context, customerID int64) (float64, error)

	// OverdueCount counts the customer's orders with overdue payment status.
	OverdueCount(ctx context.Context, customerID int64) (int, error)

	// FindExpiredPending lists unpaid PENDING orders older than the cutoff.
	FindExpiredPending(ctx context.Context, olderThan time.Time, limit int) ([]model.Order, error)
}

// CouponRepository defines the interface for coupon data access operations.
type CouponRepository interface {
	// GetByCode retrieves a coupon by its unique code.
	GetByCode(ctx context.Context, code string) (*model.Coupon, error)

	// UsageCount returns how many times the coupon has been used globally.
	UsageCount(ctx context.Context, code string) (int, error)

	// UsageCountByCustomer returns how many times the customer has used the coupon.
	UsageCountByCustomer(ctx context.Context, code string, customerID int64) (int, error)

	// RecordUsage inserts a usage event within the provided transaction.
	RecordUsage(ctx context.Context, tx pgx.Tx, usage model.CouponUsage) error
}

// AuditRepository defines the interface for the append-only audit log and
// daily metric counters. Write failures are non-fatal to the workflows.
type AuditRepository interface {
	// Append writes one audit entry.
	Append(ctx context.Context, entry model.AuditEntry) error

	// RecordDailyOrder bumps the per-date order count and revenue counters.
	RecordDailyOrder(ctx context.Context, total float64) error

	// MetricsForDate returns the aggregated counters for a calendar date.
	MetricsForDate(ctx context.Context, date time.Time) ([]model.DailyMetric, error)
}
