package repository

import (
	"context"
	"errors"
	"fmt"

	"shophub/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// couponRepository implements the CouponRepository interface using PostgreSQL.
type couponRepository struct {
	db     DB
	logger zerolog.Logger
}

// NewCouponRepository creates a new PostgreSQL-backed coupon repository.
func NewCouponRepository(db DB, logger zerolog.Logger) CouponRepository {
	return &couponRepository{
		db:     db,
		logger: logger.With().Str("repository", "coupon").Logger(),
	}
}

// GetByCode retrieves a coupon by its unique code.
func (r *couponRepository) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	query := `
		SELECT code, discount_type, discount_value, max_discount_amount, min_order_value,
		       usage_limit, usage_limit_per_customer, expiry_date, active
		FROM coupons
		WHERE code = $1
	`

	var c model.Coupon
	err := r.db.QueryRow(ctx, query, code).Scan(
		&c.Code,
		&c.DiscountType,
		&c.DiscountValue,
		&c.MaxDiscountAmount,
		&c.MinOrderValue,
		&c.UsageLimit,
		&c.UsageLimitPerCustomer,
		&c.ExpiryDate,
		&c.Active,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("code", code).Msg("coupon not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("code", code).Msg("failed to query coupon")
		return nil, fmt.Errorf("failed to query coupon: %w", err)
	}

	return &c, nil
}

// UsageCount returns how many times the coupon has been used globally.
func (r *couponRepository) UsageCount(ctx context.Context, code string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM coupon_usage
		WHERE coupon_code = $1
	`

	var count int
	if err := r.db.QueryRow(ctx, query, code).Scan(&count); err != nil {
		r.logger.Error().Err(err).Str("code", code).Msg("failed to query coupon usage count")
		return 0, fmt.Errorf("failed to query coupon usage count: %w", err)
	}

	return count, nil
}

// UsageCountByCustomer returns how many times the customer has used the coupon.
func (r *couponRepository) UsageCountByCustomer(ctx context.Context, code string, customerID int64) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM coupon_usage
		WHERE coupon_code = $1 AND customer_id = $2
	`

	var count int
	if err := r.db.QueryRow(ctx, query, code, customerID).Scan(&count); err != nil {
		r.logger.Error().
			Err(err).
			Str("code", code).
			Int64("customer_id", customerID).
			Msg("failed to query per-customer coupon usage count")
		return 0, fmt.Errorf("failed to query per-customer coupon usage count: %w", err)
	}

	return count, nil
}

// RecordUsage inserts a usage event within the provided transaction. The
// coupon row itself is never mutated.
func (r *couponRepository) RecordUsage(ctx context.Context, tx pgx.Tx, usage model.CouponUsage) error {
	query := `
		INSERT INTO coupon_usage (coupon_code, order_id, customer_id, discount_applied, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := tx.Exec(ctx, query,
		usage.CouponCode,
		usage.OrderID,
		usage.CustomerID,
		usage.DiscountApplied,
		usage.CreatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("code", usage.CouponCode).
			Str("order_id", usage.OrderID).
			Msg("failed to record coupon usage")
		return fmt.Errorf("failed to record coupon usage: %w", err)
	}

	return nil
}
