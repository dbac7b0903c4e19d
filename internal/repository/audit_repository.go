package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"shophub/internal/model"

	"github.com/rs/zerolog"
)

// auditRepository implements the AuditRepository interface using PostgreSQL.
type auditRepository struct {
	db     DB
	logger zerolog.Logger
}

// NewAuditRepository creates a new PostgreSQL-backed audit repository.
func NewAuditRepository(db DB, logger zerolog.Logger) AuditRepository {
	return &auditRepository{
		db:     db,
		logger: logger.With().Str("repository", "audit").Logger(),
	}
}

// Append writes one audit entry. The log is append-only.
func (r *auditRepository) Append(ctx context.Context, entry model.AuditEntry) error {
	var details []byte
	if entry.Details != nil {
		var err error
		details, err = json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("failed to encode audit details: %w", err)
		}
	}

	query := `
		INSERT INTO order_logs (id, order_id, action, user_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Exec(ctx, query,
		entry.ID,
		entry.OrderID,
		entry.Action,
		entry.UserID,
		details,
		entry.CreatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", entry.OrderID.String()).
			Str("action", entry.Action).
			Msg("failed to append audit entry")
		return fmt.Errorf("failed to append audit entry: %w", err)
	}

	return nil
}

// RecordDailyOrder bumps the per-date order count and revenue counters.
func (r *auditRepository) RecordDailyOrder(ctx context.Context, total float64) error {
	query := `
		INSERT INTO daily_metrics (date, metric_type, value)
		VALUES (CURRENT_DATE, 'ORDERS_CREATED', 1),
		       (CURRENT_DATE, 'REVENUE', $1)
		ON CONFLICT (date, metric_type) DO UPDATE SET
		value = daily_metrics.value + EXCLUDED.value
	`

	if _, err := r.db.Exec(ctx, query, total); err != nil {
		r.logger.Error().Err(err).Msg("failed to record daily metrics")
		return fmt.Errorf("failed to record daily metrics: %w", err)
	}

	return nil
}

// MetricsForDate returns the aggregated counters for a calendar date.
func (r *auditRepository) MetricsForDate(ctx context.Context, date time.Time) ([]model.DailyMetric, error) {
	query := `
		SELECT date, metric_type, value
		FROM daily_metrics
		WHERE date = $1
		ORDER BY metric_type
	`

	rows, err := r.db.Query(ctx, query, date)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query daily metrics")
		return nil, fmt.Errorf("failed to query daily metrics: %w", err)
	}
	defer rows.Close()

	var metrics []model.DailyMetric
	for rows.Next() {
		var m model.DailyMetric
		if err := rows.Scan(&m.Date, &m.MetricType, &m.Value); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan daily metric row")
			return nil, fmt.Errorf("failed to scan daily metric: %w", err)
		}
		metrics = append(metrics, m)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating daily metric rows")
		return nil, fmt.Errorf("error iterating daily metrics: %w", err)
	}

	return metrics, nil
}
