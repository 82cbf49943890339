package domain

import "github.com/shopspring/decimal"

// MinQuantity is the smallest quantity a line item may hold.
const MinQuantity = 1

type LineItem struct {
	ProductID int64
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
}

// Subtotal is UnitPrice * Quantity.
func (i LineItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Total sums the subtotals of items. An empty slice totals zero.
func Total(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}
