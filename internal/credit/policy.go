// Package credit decides whether a proposed order fits a customer's credit
// position. The policy is a pure decision over supplied aggregates: it never
// performs the aggregate queries itself.
package credit

import (
	"shophub/internal/model"
)

const (
	// FirstOrderLimit caps credit-based payment for customers with no
	// completed orders, regardless of their nominal limit.
	FirstOrderLimit = 500.0

	// overdueLimitFactor halves the usable limit for customers with any
	// overdue payment history.
	overdueLimitFactor = 0.5
)

// Check evaluates the proposed total against the customer's credit profile.
// Cash-equivalent payment methods bypass the check entirely.
func Check(profile model.CreditProfile, proposedTotal float64, method model.PaymentMethod) error {
	if !method.CreditBased() {
		return nil
	}

	available := profile.CreditLimit - profile.Outstanding
	if available < proposedTotal {
		return model.NewCreditLimitError(profile.CreditLimit, profile.Outstanding, available, proposedTotal)
	}

	if profile.CompletedOrders == 0 && proposedTotal > FirstOrderLimit {
		e := model.NewDomainError(model.ErrCodeCreditLimitExceeded,
			"First order limit is R$ 500.00 for credit purchases")
		return e.WithDetails(map[string]any{
			"firstOrderLimit": FirstOrderLimit,
			"orderTotal":      proposedTotal,
		})
	}

	if profile.OverdueCount > 0 {
		reducedLimit := profile.CreditLimit * overdueLimitFactor
		if profile.Outstanding+proposedTotal > reducedLimit {
			e := model.NewDomainError(model.ErrCodeCreditLimitExceeded,
				"Credit limit reduced due to late payments")
			return e.WithDetails(map[string]any{
				"reducedLimit":      reducedLimit,
				"latePaymentsCount": profile.OverdueCount,
			})
		}
	}

	return nil
}
