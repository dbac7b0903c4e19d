// Package pricing computes order totals from snapshot inputs. The engine is a
// pure function of its input: it performs no lookups and has no side effects,
// so two calls with the same input always produce the same quote.
package pricing

import (
	"fmt"
	"time"

	"shophub/internal/model"
)

// Loyalty tiers keyed by historical completed-order spend.
const (
	loyaltyGoldThreshold   = 10000.0
	loyaltySilverThreshold = 5000.0
	loyaltyBronzeThreshold = 2000.0

	loyaltyGoldRate   = 0.15
	loyaltySilverRate = 0.10
	loyaltyBronzeRate = 0.05
)

// Bulk tiers keyed by line-item count in the current order.
const (
	bulkLargeCount = 10
	bulkSmallCount = 5

	bulkLargeRate = 0.08
	bulkSmallRate = 0.05
)

// Shipping rules.
const (
	FreeShippingThreshold = 200.0

	perKgFee            = 0.5
	heavyWeightLimit    = 10.0
	heavySurchargeRate  = 1.5
	expressSurchargeFee = 2.0
)

// Line pairs a product snapshot with the requested quantity.
type Line struct {
	Product  model.Product
	Quantity int
}

// Input is the full snapshot an order quote is computed from. The caller
// assembles it with a single batched read per computation; the engine never
// re-fetches prices or weights.
type Input struct {
	Lines []Line
	Stats model.PurchaseStats

	// Coupon is nil when the request carries no coupon code. An absent coupon
	// is valid; a present but unusable one rejects the whole computation.
	Coupon            *model.Coupon
	CouponUsageGlobal int
	CouponUsageByUser int

	// ZoneFee is the matched shipping zone base fee, nil when no zone matched.
	ZoneFee         *float64
	ExpressDelivery bool

	Now time.Time
}

// Quote is the priced breakdown of an order.
type Quote struct {
	Subtotal    float64
	Discount    float64
	ShippingFee float64
	Total       float64

	LoyaltyDiscount   float64
	BulkDiscount      float64
	AutomaticDiscount float64
	CouponDiscount    float64
	TotalWeight       float64
}

// Price computes the quote for the given input.
//
// Loyalty and bulk discounts are additive with each other; the coupon discount
// competes with that automatic sum and the larger of the two applies.
func Price(in Input) (*Quote, error) {
	if len(in.Lines) == 0 {
		return nil, model.NewDomainError(model.ErrCodeInvalidRequest, "Order must contain at least one item")
	}

	var subtotal, totalWeight float64
	for _, line := range in.Lines {
		if line.Quantity <= 0 {
			return nil, model.ErrInvalidQuantity
		}
		if !line.Product.Active {
			return nil, model.NewDomainError(model.ErrCodeProductNotFound,
				fmt.Sprintf("Product %s is not active", line.Product.Name))
		}
		if line.Product.Stock < line.Quantity {
			return nil, model.NewInsufficientStockError(line.Product.Name, line.Product.Stock, line.Quantity)
		}
		subtotal += line.Product.Price * float64(line.Quantity)
		totalWeight += line.Product.EffectiveWeight() * float64(line.Quantity)
	}

	quote := &Quote{
		Subtotal:    subtotal,
		TotalWeight: totalWeight,
	}

	quote.LoyaltyDiscount = loyaltyDiscount(subtotal, in.Stats.TotalPurchases)
	quote.BulkDiscount = bulkDiscount(subtotal, len(in.Lines))
	quote.AutomaticDiscount = quote.LoyaltyDiscount + quote.BulkDiscount

	if in.Coupon != nil {
		couponDiscount, err := applyCoupon(in, subtotal)
		if err != nil {
			return nil, err
		}
		quote.CouponDiscount = couponDiscount
	}

	quote.Discount = max(quote.AutomaticDiscount, quote.CouponDiscount)

	quote.ShippingFee = shippingFee(subtotal-quote.Discount, totalWeight, in.ZoneFee, in.ExpressDelivery)
	quote.Total = subtotal - quote.Discount + quote.ShippingFee

	return quote, nil
}

func loyaltyDiscount(subtotal, totalPurchases float64) float64 {
	switch {
	case totalPurchases > loyaltyGoldThreshold:
		return subtotal * loyaltyGoldRate
	case totalPurchases > loyaltySilverThreshold:
		return subtotal * loyaltySilverRate
	case totalPurchases > loyaltyBronzeThreshold:
		return subtotal * loyaltyBronzeRate
	}
	return 0
}

func bulkDiscount(subtotal float64, lineCount int) float64 {
	switch {
	case lineCount >= bulkLargeCount:
		return subtotal * bulkLargeRate
	case lineCount >= bulkSmallCount:
		return subtotal * bulkSmallRate
	}
	return 0
}

// applyCoupon validates the supplied coupon against its gates and returns the
// discount it yields. Any gate failure rejects the whole computation.
func applyCoupon(in Input, subtotal float64) (float64, error) {
	coupon := in.Coupon

	if !coupon.Active {
		return 0, model.NewCouponRejectedError("Coupon is not active")
	}
	if !coupon.ExpiryDate.After(in.Now) {
		return 0, model.NewCouponRejectedError("Coupon has expired")
	}
	if coupon.MinOrderValue != nil && subtotal < *coupon.MinOrderValue {
		return 0, model.NewCouponRejectedError(
			fmt.Sprintf("Minimum order value for this coupon is %.2f", *coupon.MinOrderValue))
	}
	if coupon.UsageLimit != nil && in.CouponUsageGlobal >= *coupon.UsageLimit {
		return 0, model.NewCouponRejectedError("Coupon usage limit exceeded")
	}
	if coupon.UsageLimitPerCustomer != nil && in.CouponUsageByUser >= *coupon.UsageLimitPerCustomer {
		return 0, model.NewCouponRejectedError("Coupon usage limit exceeded")
	}

	if coupon.DiscountType == model.DiscountTypePercentage {
		discount := subtotal * (coupon.DiscountValue / 100)
		if coupon.MaxDiscountAmount != nil && discount > *coupon.MaxDiscountAmount {
			discount = *coupon.MaxDiscountAmount
		}
		return discount, nil
	}
	return coupon.DiscountValue, nil
}

// shippingFee applies the zone fee plus weight surcharge when a zone matched,
// otherwise the flat weight-bracket table. Orders at or above the free
// shipping threshold after discount always ship free.
func shippingFee(totalAfterDiscount, totalWeight float64, zoneFee *float64, express bool) float64 {
	if totalAfterDiscount >= FreeShippingThreshold {
		return 0
	}

	if zoneFee != nil {
		fee := *zoneFee + totalWeight*perKgFee
		if totalWeight > heavyWeightLimit {
			fee *= heavySurchargeRate
		}
		if express {
			fee *= expressSurchargeFee
		}
		return fee
	}

	switch {
	case totalWeight <= 1:
		return 15
	case totalWeight <= 5:
		return 25
	case totalWeight <= 10:
		return 40
	default:
		return 40 + (totalWeight-10)*3
	}
}
