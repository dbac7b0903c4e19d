package service

import (
	"context"
	"time"

	"shophub/internal/model"

	"github.com/google/uuid"
)

// OrderService defines the order workflow operations.
type OrderService interface {
	// CreateOrder validates, authorizes, prices and persists a new order,
	// then attempts payment capture with compensation on failure.
	CreateOrder(ctx context.Context, requester model.Requester, req *model.OrderRequest) (*model.OrderResponse, error)

	// CancelOrder enforces cancellation eligibility, issues any refund due and
	// reverses stock reservations atomically with the status transition.
	CancelOrder(ctx context.Context, requester model.Requester, orderID uuid.UUID) (*model.CancellationResponse, error)

	// GetOrder retrieves an order scoped to the requester's role.
	GetOrder(ctx context.Context, requester model.Requester, orderID uuid.UUID) (*model.OrderView, error)

	// ListOrders lists orders matching the filter, scoped to the requester's role.
	ListOrders(ctx context.Context, requester model.Requester, filter model.OrderFilter) ([]model.Order, error)

	// ExpiredPendingOrders lists unpaid orders older than the cutoff.
	ExpiredPendingOrders(ctx context.Context, olderThan time.Time, limit int) ([]model.Order, error)

	// ExpireOrder cancels an unpaid order that outlived the payment window,
	// releasing its reserved stock.
	ExpireOrder(ctx context.Context, orderID uuid.UUID) error
}

// validateOrderRequest is the canonical request validation: every entry point
// goes through it exactly once, there are no parallel reimplementations.
func validateOrderRequest(req *model.OrderRequest) error {
	if req == nil {
		return model.NewDomainError(model.ErrCodeInvalidRequest, "Order request is required")
	}

	if len(req.Items) == 0 {
		return model.NewDomainError(model.ErrCodeInvalidRequest, "Order must contain at least one item")
	}

	for _, item := range req.Items {
		if item.ProductID <= 0 {
			return model.NewDomainError(model.ErrCodeInvalidRequest, "Each item must have a product ID")
		}
		if item.Quantity <= 0 {
			return model.ErrInvalidQuantity
		}
	}

	if req.PaymentMethod == "" {
		return model.NewDomainError(model.ErrCodeInvalidRequest, "Payment method is required")
	}
	if !model.ValidPaymentMethod(req.PaymentMethod) {
		return model.NewDomainError(model.ErrCodeInvalidRequest, "Invalid payment method")
	}

	return nil
}
