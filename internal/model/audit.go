package model

import (
	"time"

	"github.com/google/uuid"
)

// Audit actions recorded against orders.
const (
	AuditActionCreated        = "CREATED"
	AuditActionCancelled      = "CANCELLED"
	AuditActionPaymentFailed  = "PAYMENT_FAILED"
	AuditActionReconciliation = "RECONCILIATION_FLAGGED"
	AuditActionExpired        = "EXPIRED"
)

// AuditEntry is an append-only record of a workflow action.
type AuditEntry struct {
	ID        uuid.UUID      `db:"id"`
	OrderID   uuid.UUID      `db:"order_id"`
	Action    string         `db:"action"`
	UserID    int64          `db:"user_id"`
	Details   map[string]any `db:"details"`
	CreatedAt time.Time      `db:"created_at"`
}

// Daily metric types aggregated per calendar date.
const (
	MetricOrdersCreated = "ORDERS_CREATED"
	MetricRevenue       = "REVENUE"
)

// DailyMetric is one aggregated counter for a calendar date.
type DailyMetric struct {
	Date       time.Time `db:"date"`
	MetricType string    `db:"metric_type"`
	Value      float64   `db:"value"`
}
