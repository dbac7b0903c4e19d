package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestProductRepository_GetByIDs(t *testing.T) {
	mock := newMockPool(t)
	repo := NewProductRepository(mock, zerolog.Nop())

	now := time.Now()
	mock.ExpectQuery("SELECT id, name, sku, price, cost, weight, stock, active, created_at").
		WithArgs([]int64{1, 2}).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "sku", "price", "cost", "weight", "stock", "active", "created_at"}).
			AddRow(int64(1), "Widget", "WID-1", 30.00, 12.00, 1.0, 10, true, now).
			AddRow(int64(2), "Gadget", "GAD-2", 20.00, 8.00, 0.5, 5, true, now))

	products, err := repo.GetByIDs(context.Background(), []int64{1, 2})

	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Widget", products[0].Name)
	assert.Equal(t, 5, products[1].Stock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_GetByIDs_Empty(t *testing.T) {
	mock := newMockPool(t)
	repo := NewProductRepository(mock, zerolog.Nop())

	products, err := repo.GetByIDs(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, products)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_ReserveStock(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		mock := newMockPool(t)
		repo := NewProductRepository(mock, zerolog.Nop())

		mock.ExpectExec("UPDATE products").
			WithArgs(3, int64(1)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.ReserveStock(context.Background(), mock, 1, 3)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("conflict when guard matches no rows", func(t *testing.T) {
		mock := newMockPool(t)
		repo := NewProductRepository(mock, zerolog.Nop())

		mock.ExpectExec("UPDATE products").
			WithArgs(3, int64(1)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.ReserveStock(context.Background(), mock, 1, 3)
		assert.ErrorIs(t, err, ErrStockConflict)
	})

	t.Run("database error", func(t *testing.T) {
		mock := newMockPool(t)
		repo := NewProductRepository(mock, zerolog.Nop())

		mock.ExpectExec("UPDATE products").
			WithArgs(3, int64(1)).
			WillReturnError(errors.New("connection lost"))

		err := repo.ReserveStock(context.Background(), mock, 1, 3)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrStockConflict)
	})
}

func TestProductRepository_ReleaseStock(t *testing.T) {
	mock := newMockPool(t)
	repo := NewProductRepository(mock, zerolog.Nop())

	mock.ExpectExec("UPDATE products").
		WithArgs(3, int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.ReleaseStock(context.Background(), mock, 1, 3)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
