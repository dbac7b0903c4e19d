// Package authz is the single policy-evaluation point for the order workflows.
// Every entry point consults it with (requester, resource, action); no role
// checks live anywhere else.
package authz

import (
	"time"

	"shophub/internal/model"

	"github.com/rs/zerolog"
)

// Action names an operation a requester wants to perform.
type Action string

const (
	ActionCreateOrder Action = "order:create"
	ActionViewOrder   Action = "order:view"
	ActionCancelOrder Action = "order:cancel"
)

// UserCancellationWindow bounds how long after creation an end customer may
// cancel their own order. Account managers and administrators are not bound.
const UserCancellationWindow = 2 * time.Hour

// Resource describes what the action targets.
type Resource struct {
	// Customer is the customer the order belongs to (or is being created for).
	Customer *model.Customer

	// OwnCustomerID is the customer profile owned by the requester, nil when
	// the requester has none. Only meaningful for the USER role.
	OwnCustomerID *int64

	// OrderAge is the time elapsed since order creation. Only consulted for
	// cancellation by the USER role.
	OrderAge time.Duration
}

// Policy evaluates authorization decisions uniformly for all workflows.
type Policy struct {
	logger zerolog.Logger
}

// NewPolicy creates the policy evaluator.
func NewPolicy(logger zerolog.Logger) *Policy {
	return &Policy{
		logger: logger.With().Str("component", "authz").Logger(),
	}
}

// Authorize decides whether the requester may perform the action on the
// resource. A denial is always a user-safe domain error.
func (p *Policy) Authorize(req model.Requester, res Resource, action Action) error {
	switch req.Role {
	case model.RoleAdmin:
		return nil

	case model.RoleSales:
		// Account managers act only on customers assigned to them.
		if res.Customer == nil || res.Customer.SalesRepID == nil || *res.Customer.SalesRepID != req.UserID {
			p.logger.Warn().
				Str("action", string(action)).
				Int64("user_id", req.UserID).
				Msg("sales requester not assigned to customer")
			return model.NewDomainError(model.ErrCodeForbidden,
				"You can only act on orders of your assigned customers")
		}
		return nil

	case model.RoleUser:
		if res.OwnCustomerID == nil {
			return model.NewDomainError(model.ErrCodeForbidden,
				"You must have a customer profile to place orders")
		}
		if res.Customer == nil || res.Customer.ID != *res.OwnCustomerID {
			p.logger.Warn().
				Str("action", string(action)).
				Int64("user_id", req.UserID).
				Msg("user requester acting on another customer")
			return model.NewDomainError(model.ErrCodeForbidden,
				"You can only act on your own orders")
		}
		if action == ActionCancelOrder && res.OrderAge > UserCancellationWindow {
			return model.NewDomainError(model.ErrCodeForbidden,
				"Users can only cancel orders within 2 hours of creation")
		}
		return nil
	}

	p.logger.Warn().
		Str("action", string(action)).
		Str("role", string(req.Role)).
		Msg("unknown role denied")
	return model.ErrForbidden
}
