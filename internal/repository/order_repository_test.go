package repository

import (
	"context"
	"testing"
	"time"

	"shophub/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var orderColumnNames = []string{
	"id", "order_number", "customer_id", "subtotal", "discount", "shipping_fee", "total",
	"payment_method", "status", "payment_status", "payment_transaction_id", "shipping_zip_code",
	"shipping_address", "shipping_city", "shipping_state", "needs_reconciliation",
	"created_by", "created_at", "updated_at",
}

func orderRow(id uuid.UUID) []any {
	now := time.Now()
	return []any{
		id, "ORD-1", int64(42), 100.0, 0.0, 15.0, 115.0,
		model.PaymentMethodPix, model.OrderStatusPending, model.PaymentStatusPending,
		(*string)(nil), "01310-100", "Av Paulista 1000", "Sao Paulo", "SP", false,
		int64(1), now, now,
	}
}

func TestOrderRepository_Create(t *testing.T) {
	mock := newMockPool(t)
	repo := NewOrderRepository(mock, zerolog.Nop())

	order := &model.Order{
		ID:            uuid.New(),
		CustomerID:    42,
		Subtotal:      100,
		Total:         115,
		PaymentMethod: model.PaymentMethodPix,
		Status:        model.OrderStatusPending,
		PaymentStatus: model.PaymentStatusPending,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}

	mock.ExpectBegin()
	anyArgs := make([]any, 18)
	for i := range anyArgs {
		anyArgs[i] = pgxmock.AnyArg()
	}
	mock.ExpectExec("INSERT INTO orders").
		WithArgs(anyArgs...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), tx, order)

	require.NoError(t, err)
	assert.NotEmpty(t, order.OrderNumber)
	assert.Contains(t, order.OrderNumber, "ORD-")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_GetByID(t *testing.T) {
	t.Run("found with items", func(t *testing.T) {
		mock := newMockPool(t)
		repo := NewOrderRepository(mock, zerolog.Nop())

		id := uuid.New()
		mock.ExpectQuery("SELECT (.+) FROM orders").
			WithArgs(id).
			WillReturnRows(pgxmock.NewRows(orderColumnNames).AddRow(orderRow(id)...))
		mock.ExpectQuery("SELECT (.+) FROM order_items").
			WithArgs(id).
			WillReturnRows(pgxmock.NewRows([]string{"id", "order_id", "product_id", "product_name", "sku", "quantity", "unit_price", "total"}).
				AddRow(uuid.New(), id, int64(1), "Widget", "WID-1", 2, 30.0, 60.0))

		order, items, err := repo.GetByID(context.Background(), id)

		require.NoError(t, err)
		require.NotNil(t, order)
		assert.Equal(t, id, order.ID)
		require.Len(t, items, 1)
		assert.Equal(t, int64(1), items[0].ProductID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock := newMockPool(t)
		repo := NewOrderRepository(mock, zerolog.Nop())

		id := uuid.New()
		mock.ExpectQuery("SELECT (.+) FROM orders").
			WithArgs(id).
			WillReturnError(pgx.ErrNoRows)

		order, items, err := repo.GetByID(context.Background(), id)

		require.NoError(t, err)
		assert.Nil(t, order)
		assert.Nil(t, items)
	})
}

func TestOrderRepository_Search(t *testing.T) {
	t.Run("filters become bound parameters", func(t *testing.T) {
		mock := newMockPool(t)
		repo := NewOrderRepository(mock, zerolog.Nop())

		customerID := int64(42)
		status := model.OrderStatusPaid
		id := uuid.New()

		mock.ExpectQuery(`SELECT (.+) FROM orders WHERE customer_id = \$1 AND status = \$2 ORDER BY created_at DESC LIMIT \$3`).
			WithArgs(customerID, status, 50).
			WillReturnRows(pgxmock.NewRows(orderColumnNames).AddRow(orderRow(id)...))

		orders, err := repo.Search(context.Background(), model.OrderFilter{
			CustomerID: &customerID,
			Status:     &status,
		})

		require.NoError(t, err)
		require.Len(t, orders, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("limit capped at one hundred", func(t *testing.T) {
		mock := newMockPool(t)
		repo := NewOrderRepository(mock, zerolog.Nop())

		mock.ExpectQuery(`SELECT (.+) FROM orders ORDER BY created_at DESC LIMIT \$1`).
			WithArgs(50).
			WillReturnRows(pgxmock.NewRows(orderColumnNames))

		_, err := repo.Search(context.Background(), model.OrderFilter{Limit: 5000})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("offset appended when set", func(t *testing.T) {
		mock := newMockPool(t)
		repo := NewOrderRepository(mock, zerolog.Nop())

		mock.ExpectQuery(`SELECT (.+) FROM orders ORDER BY created_at DESC LIMIT \$1 OFFSET \$2`).
			WithArgs(20, 40).
			WillReturnRows(pgxmock.NewRows(orderColumnNames))

		_, err := repo.Search(context.Background(), model.OrderFilter{Limit: 20, Offset: 40})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOrderRepository_UpdatePaymentStatus(t *testing.T) {
	mock := newMockPool(t)
	repo := NewOrderRepository(mock, zerolog.Nop())

	id := uuid.New()
	txn := "txn_123"
	mock.ExpectExec("UPDATE orders").
		WithArgs(model.PaymentStatusPaid, &txn, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.UpdatePaymentStatus(context.Background(), mock, id, model.PaymentStatusPaid, &txn)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_MarkForReconciliation(t *testing.T) {
	mock := newMockPool(t)
	repo := NewOrderRepository(mock, zerolog.Nop())

	id := uuid.New()
	mock.ExpectExec("UPDATE orders").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.MarkForReconciliation(context.Background(), id)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_PurchaseStats(t *testing.T) {
	mock := newMockPool(t)
	repo := NewOrderRepository(mock, zerolog.Nop())

	mock.ExpectQuery("SELECT (.+) FROM orders").
		WithArgs(int64(42)).
		WillReturnRows(pgxmock.NewRows([]string{"sum", "count"}).AddRow(2500.0, 7))

	stats, err := repo.PurchaseStats(context.Background(), 42)

	require.NoError(t, err)
	assert.Equal(t, 2500.0, stats.TotalPurchases)
	assert.Equal(t, 7, stats.OrderCount)
}

func TestOrderRepository_FindExpiredPending(t *testing.T) {
	mock := newMockPool(t)
	repo := NewOrderRepository(mock, zerolog.Nop())

	cutoff := time.Now().Add(-48 * time.Hour)
	id := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM orders").
		WithArgs(cutoff, 100).
		WillReturnRows(pgxmock.NewRows(orderColumnNames).AddRow(orderRow(id)...))

	orders, err := repo.FindExpiredPending(context.Background(), cutoff, 100)

	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, id, orders[0].ID)
}
