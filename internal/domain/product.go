package domain

import "github.com/shopspring/decimal"

// Product is a catalog entry. The catalog owns it; the cart only snapshots
// the name and price at add time.
type Product struct {
	ID                int64
	Name              string
	Description       string
	Price             decimal.Decimal
	AvailableQuantity int
	ImageRef          string
}

// Purchasable reports whether the product may be offered for adding to a cart.
func (p Product) Purchasable() bool {
	return p.AvailableQuantity > 0
}
