package model

import "time"

// DiscountType distinguishes percentage coupons from flat-amount coupons.
type DiscountType string

const (
	DiscountTypePercentage DiscountType = "PERCENTAGE"
	DiscountTypeFixed      DiscountType = "FIXED"
)

// Coupon is read-only to the order workflow; usage is recorded as side-table
// events, never by mutating the coupon itself.
type Coupon struct {
	Code                  string       `json:"code" db:"code"`
	DiscountType          DiscountType `json:"discountType" db:"discount_type"`
	DiscountValue         float64      `json:"discountValue" db:"discount_value"`
	MaxDiscountAmount     *float64     `json:"maxDiscountAmount,omitempty" db:"max_discount_amount"`
	MinOrderValue         *float64     `json:"minOrderValue,omitempty" db:"min_order_value"`
	UsageLimit            *int         `json:"-" db:"usage_limit"`
	UsageLimitPerCustomer *int         `json:"-" db:"usage_limit_per_customer"`
	ExpiryDate            time.Time    `json:"expiryDate" db:"expiry_date"`
	Active                bool         `json:"active" db:"active"`
}

// CouponUsage records a single application of a coupon to an order.
type CouponUsage struct {
	CouponCode      string    `db:"coupon_code"`
	OrderID         string    `db:"order_id"`
	CustomerID      int64     `db:"customer_id"`
	DiscountApplied float64   `db:"discount_applied"`
	CreatedAt       time.Time `db:"created_at"`
}
