package repository

import (
	"context"
	"fmt"

	"shophub/internal/model"

	"github.com/rs/zerolog"
)

// ErrStockConflict is returned by ReserveStock when the decrement would drive
// stock negative. The caller translates it into the user-facing domain error
// carrying available/requested quantities.
var ErrStockConflict = model.NewDomainError(model.ErrCodeInsufficientStock, "Insufficient stock")

// productRepository implements the ProductRepository interface using PostgreSQL.
type productRepository struct {
	db     DB
	logger zerolog.Logger
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(db DB, logger zerolog.Logger) ProductRepository {
	return &productRepository{
		db:     db,
		logger: logger.With().Str("repository", "product").Logger(),
	}
}

// GetByIDs retrieves multiple products by their IDs in one query.
func (r *productRepository) GetByIDs(ctx context.Context, ids []int64) ([]model.Product, error) {
	if len(ids) == 0 {
		return []model.Product{}, nil
	}

	query := `
		SELECT id, name, sku, price, cost, weight, stock, active, created_at
		FROM products
		WHERE id = ANY($1)
		ORDER BY id
	`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to query products by IDs")
		return nil, fmt.Errorf("failed to query products by IDs: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		var p model.Product
		err := rows.Scan(&p.ID, &p.Name, &p.SKU, &p.Price, &p.Cost, &p.Weight, &p.Stock, &p.Active, &p.CreatedAt)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan product row")
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating product rows")
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// ReserveStock atomically decrements stock. The guard in the WHERE clause is
// what settles concurrent reservations: the statement affects no rows when
// stock would go negative, regardless of what any earlier read observed.
func (r *productRepository) ReserveStock(ctx context.Context, q Executor, productID int64, quantity int) error {
	query := `
		UPDATE products
		SET stock = stock - $1
		WHERE id = $2 AND stock >= $1
	`

	tag, err := q.Exec(ctx, query, quantity, productID)
	if err != nil {
		r.logger.Error().
			Err(err).
			Int64("product_id", productID).
			Int("quantity", quantity).
			Msg("failed to reserve stock")
		return fmt.Errorf("failed to reserve stock: %w", err)
	}

	if tag.RowsAffected() == 0 {
		r.logger.Warn().
			Int64("product_id", productID).
			Int("quantity", quantity).
			Msg("stock reservation conflict")
		return ErrStockConflict
	}

	return nil
}

// ReleaseStock returns previously reserved stock to the product.
func (r *productRepository) ReleaseStock(ctx context.Context, q Executor, productID int64, quantity int) error {
	query := `
		UPDATE products
		SET stock = stock + $1
		WHERE id = $2
	`

	if _, err := q.Exec(ctx, query, quantity, productID); err != nil {
		r.logger.Error().
			Err(err).
			Int64("product_id", productID).
			Int("quantity", quantity).
			Msg("failed to release stock")
		return fmt.Errorf("failed to release stock: %w", err)
	}

	r.logger.Debug().
		Int64("product_id", productID).
		Int("quantity", quantity).
		Msg("stock released")

	return nil
}
