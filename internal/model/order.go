package model

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending       OrderStatus = "PENDING"
	OrderStatusPaid          OrderStatus = "PAID"
	OrderStatusPaymentFailed OrderStatus = "PAYMENT_FAILED"
	OrderStatusProcessing    OrderStatus = "PROCESSING"
	OrderStatusPreparing     OrderStatus = "PREPARING"
	OrderStatusShipped       OrderStatus = "SHIPPED"
	OrderStatusInTransit     OrderStatus = "IN_TRANSIT"
	OrderStatusDelivered     OrderStatus = "DELIVERED"
	OrderStatusCancelled     OrderStatus = "CANCELLED"
	OrderStatusRefunded      OrderStatus = "REFUNDED"
)

// PaymentStatus is the payment sub-state of an order.
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "PENDING"
	PaymentStatusProcessing PaymentStatus = "PROCESSING"
	PaymentStatusPaid       PaymentStatus = "PAID"
	PaymentStatusFailed     PaymentStatus = "FAILED"
	PaymentStatusOverdue    PaymentStatus = "OVERDUE"
	PaymentStatusRefunded   PaymentStatus = "REFUNDED"
)

// PaymentMethod identifies how an order is paid.
type PaymentMethod string

const (
	PaymentMethodCreditCard PaymentMethod = "CREDIT_CARD"
	PaymentMethodDebitCard  PaymentMethod = "DEBIT_CARD"
	PaymentMethodPix        PaymentMethod = "PIX"
	PaymentMethodBoleto     PaymentMethod = "BOLETO"
)

// AllowedPaymentMethods lists every payment method the workflow accepts.
var AllowedPaymentMethods = []PaymentMethod{
	PaymentMethodCreditCard,
	PaymentMethodDebitCard,
	PaymentMethodPix,
	PaymentMethodBoleto,
}

// ValidPaymentMethod reports whether the method is one the workflow accepts.
func ValidPaymentMethod(m PaymentMethod) bool {
	for _, allowed := range AllowedPaymentMethods {
		if m == allowed {
			return true
		}
	}
	return false
}

// CreditBased reports whether the method is settled against the customer's
// credit limit. Cash-equivalent methods bypass the credit policy entirely.
func (m PaymentMethod) CreditBased() bool {
	return m == PaymentMethodCreditCard || m == PaymentMethodBoleto
}

// IsTerminal reports whether the status accepts no further transitions.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusCancelled, OrderStatusDelivered, OrderStatusRefunded:
		return true
	}
	return false
}

// InFulfillment reports whether the order is being prepared or shipped.
func (s OrderStatus) InFulfillment() bool {
	switch s {
	case OrderStatusPreparing, OrderStatusShipped, OrderStatusInTransit:
		return true
	}
	return false
}

// orderTransitions encodes the legal status graph. Terminal states have no entry.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:       {OrderStatusPaid, OrderStatusPaymentFailed, OrderStatusCancelled},
	OrderStatusPaid:          {OrderStatusProcessing, OrderStatusPreparing, OrderStatusCancelled},
	OrderStatusPaymentFailed: {OrderStatusPending, OrderStatusCancelled},
	OrderStatusProcessing:    {OrderStatusPreparing, OrderStatusCancelled},
	OrderStatusPreparing:     {OrderStatusShipped},
	OrderStatusShipped:       {OrderStatusInTransit, OrderStatusDelivered},
	OrderStatusInTransit:     {OrderStatusDelivered},
}

// CanTransitionTo reports whether moving from s to next is a legal transition.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if next == allowed {
			return true
		}
	}
	return false
}

// Order represents a customer order. Total is computed once at creation and
// never silently recomputed; orders are never hard-deleted.
type Order struct {
	ID                   uuid.UUID     `json:"id" db:"id"`
	OrderNumber          string        `json:"orderNumber" db:"order_number"`
	CustomerID           int64         `json:"customerId" db:"customer_id"`
	Subtotal             float64       `json:"subtotal" db:"subtotal"`
	Discount             float64       `json:"discount" db:"discount"`
	ShippingFee          float64       `json:"shippingFee" db:"shipping_fee"`
	Total                float64       `json:"total" db:"total"`
	PaymentMethod        PaymentMethod `json:"paymentMethod" db:"payment_method"`
	Status               OrderStatus   `json:"status" db:"status"`
	PaymentStatus        PaymentStatus `json:"paymentStatus" db:"payment_status"`
	PaymentTransactionID *string       `json:"-" db:"payment_transaction_id"`
	ShippingZipCode      string        `json:"shippingZipCode" db:"shipping_zip_code"`
	ShippingAddress      string        `json:"shippingAddress" db:"shipping_address"`
	ShippingCity         string        `json:"shippingCity" db:"shipping_city"`
	ShippingState        string        `json:"shippingState" db:"shipping_state"`
	NeedsReconciliation  bool          `json:"-" db:"needs_reconciliation"`
	CreatedBy            int64         `json:"-" db:"created_by"`
	CreatedAt            time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt            time.Time     `json:"updatedAt" db:"updated_at"`
}

// OrderItem represents a line item in an order. Name, SKU and unit price are
// snapshots taken at creation time.
type OrderItem struct {
	ID          uuid.UUID `json:"-" db:"id"`
	OrderID     uuid.UUID `json:"-" db:"order_id"`
	ProductID   int64     `json:"productId" db:"product_id"`
	ProductName string    `json:"productName" db:"product_name"`
	SKU         string    `json:"sku" db:"sku"`
	Quantity    int       `json:"quantity" db:"quantity"`
	UnitPrice   float64   `json:"unitPrice" db:"unit_price"`
	Total       float64   `json:"total" db:"total"`
}

// OrderRequest represents the request payload for creating an order.
type OrderRequest struct {
	CustomerID      int64              `json:"customerId"`
	Items           []OrderItemRequest `json:"items"`
	PaymentMethod   PaymentMethod      `json:"paymentMethod"`
	CouponCode      *string            `json:"couponCode,omitempty"`
	CardToken       string             `json:"cardToken,omitempty"`
	ExpressDelivery bool               `json:"expressDelivery,omitempty"`
}

// OrderItemRequest represents a single item in an order request.
type OrderItemRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// OrderResponse represents the response payload for a created order.
type OrderResponse struct {
	OrderID       uuid.UUID     `json:"orderId"`
	OrderNumber   string        `json:"orderNumber"`
	Status        OrderStatus   `json:"status"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	Total         float64       `json:"total"`
}

// CancellationResponse reports the outcome of a cancellation.
type CancellationResponse struct {
	OrderID          uuid.UUID `json:"orderId"`
	RefundAmount     float64   `json:"refundAmount"`
	RefundPercentage int       `json:"refundPercentage"`
}

// OrderFilter restricts order listing. All fields are optional; every
// predicate is applied through parameterized queries only.
type OrderFilter struct {
	CustomerID *int64
	Status     *OrderStatus
	MinTotal   *float64
	MaxTotal   *float64
	DateFrom   *time.Time
	DateTo     *time.Time
	Limit      int
	Offset     int
}

// OrderView is the role-scoped read model returned by GetOrder.
type OrderView struct {
	Order    Order         `json:"order"`
	Items    []OrderItem   `json:"items"`
	Customer *CustomerView `json:"customer,omitempty"`
	ViewedBy Role          `json:"viewedBy"`
}
