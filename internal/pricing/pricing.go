// Package pricing computes effective unit prices from catalog state. It is
// the single source of truth for discounts: the cart store calls it when an
// item is added and the order writer calls it again at checkout, each time
// from the product's current catalog values. A discount change between
// add-to-cart and checkout is therefore honored at checkout; the cart price
// is only a preview.
package pricing

import "math"

// Effective returns the unit price actually charged for a product with the
// given base price and discount percentage. A non-positive discount leaves
// the base price untouched.
func Effective(basePrice, discountPercent float64) float64 {
	if discountPercent <= 0 {
		return roundCents(basePrice)
	}
	return roundCents(basePrice * (1 - discountPercent/100))
}

// LineTotal returns the charge for quantity units at the given unit price.
func LineTotal(unitPrice float64, quantity int) float64 {
	return roundCents(unitPrice * float64(quantity))
}

// roundCents rounds to two decimal places, half away from zero.
func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
