package model

import "fmt"

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON         = "INVALID_JSON"
	ErrCodeInvalidRequest      = "INVALID_REQUEST"
	ErrCodeCustomerNotFound    = "CUSTOMER_NOT_FOUND"
	ErrCodeProductNotFound     = "PRODUCT_NOT_FOUND"
	ErrCodeOrderNotFound       = "ORDER_NOT_FOUND"
	ErrCodeInsufficientStock   = "INSUFFICIENT_STOCK"
	ErrCodeCreditLimitExceeded = "CREDIT_LIMIT_EXCEEDED"
	ErrCodeCouponRejected      = "COUPON_REJECTED"
	ErrCodePaymentFailed       = "PAYMENT_FAILED"
	ErrCodeStateConflict       = "STATE_CONFLICT"
	ErrCodeCancellationExpired = "CANCELLATION_WINDOW_EXPIRED"
	ErrCodeUnauthorised        = "UNAUTHORIZED"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeInternalError       = "INTERNAL_ERROR"
)

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error         string         `json:"error"`
	Message       string         `json:"message"`
	Details       map[string]any `json:"details,omitempty"`
	CorrelationID string         `json:"correlationId,omitempty"`
}

// DomainError is a typed business outcome. It is safe to return to callers:
// the message and details never carry queries, credentials or stack traces.
type DomainError struct {
	Code    string
	Message string
	Details map[string]any
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with structured, user-safe context attached.
func (e *DomainError) WithDetails(details map[string]any) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
	}
}

// Common domain errors
var (
	ErrCustomerNotFound = NewDomainError(ErrCodeCustomerNotFound, "Customer not found")
	ErrCustomerInactive = NewDomainError(ErrCodeInvalidRequest, "Customer is not active")
	ErrProductNotFound  = NewDomainError(ErrCodeProductNotFound, "One or more products not found")
	ErrOrderNotFound    = NewDomainError(ErrCodeOrderNotFound, "Order not found")
	ErrInvalidQuantity  = NewDomainError(ErrCodeInvalidRequest, "Quantity must be greater than zero")
	ErrForbidden        = NewDomainError(ErrCodeForbidden, "Access denied")
	ErrInternal         = NewDomainError(ErrCodeInternalError, "Processing error, order under review")
)

// NewInsufficientStockError reports available versus requested stock for a product.
func NewInsufficientStockError(productName string, available, requested int) *DomainError {
	e := NewDomainError(ErrCodeInsufficientStock,
		fmt.Sprintf("Insufficient stock for %s", productName))
	return e.WithDetails(map[string]any{
		"available": available,
		"requested": requested,
	})
}

// NewCreditLimitError reports the credit position that caused the rejection.
func NewCreditLimitError(limit, used, available, requested float64) *DomainError {
	e := NewDomainError(ErrCodeCreditLimitExceeded, "Customer credit limit exceeded")
	return e.WithDetails(map[string]any{
		"creditLimit":     limit,
		"creditUsed":      used,
		"creditAvailable": available,
		"orderTotal":      requested,
	})
}

// NewCouponRejectedError reports why a supplied coupon could not be applied.
func NewCouponRejectedError(reason string) *DomainError {
	return NewDomainError(ErrCodeCouponRejected, reason)
}

// NewStateConflictError reports an illegal status transition attempt.
func NewStateConflictError(message string, currentStatus OrderStatus) *DomainError {
	e := NewDomainError(ErrCodeStateConflict, message)
	return e.WithDetails(map[string]any{
		"currentStatus": string(currentStatus),
	})
}
