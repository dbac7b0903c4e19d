package model

import "time"

// Product represents a catalogue product. Cost is internal-only and never
// serialized to customers. Stock is mutated exclusively through the
// reservation/release repository operations.
type Product struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	SKU       string    `json:"sku" db:"sku"`
	Price     float64   `json:"price" db:"price"`
	Cost      float64   `json:"-" db:"cost"`
	Weight    float64   `json:"weight" db:"weight"`
	Stock     int       `json:"stock" db:"stock"`
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// EffectiveWeight returns the shipping weight in kilograms, falling back to
// the 0.5kg default used for unweighed products.
func (p Product) EffectiveWeight() float64 {
	if p.Weight <= 0 {
		return 0.5
	}
	return p.Weight
}
