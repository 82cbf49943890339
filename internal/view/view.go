// Package view turns catalog and cart state into the rows and labels the
// shop page displays. It holds no state of its own.
package view

import (
	"github.com/fjod/go_cart/shopping/internal/cart"
	"github.com/fjod/go_cart/shopping/internal/domain"
	"github.com/shopspring/decimal"
)

const Currency = "USD"

type ProductCard struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
	PriceLabel  string `json:"price_label"`
	// CanAdd is false for out of stock products, which show the price as
	// plain text with no add control.
	CanAdd bool `json:"can_add"`
}

type CartRow struct {
	Index       int    `json:"index"`
	ProductID   int64  `json:"product_id"`
	Name        string `json:"name"`
	PriceLabel  string `json:"price_label"`
	Quantity    int    `json:"quantity"`
	MinQuantity int    `json:"min_quantity"`
}

type Banner struct {
	Class       string `json:"class"`
	Message     string `json:"message"`
	Dismissible bool   `json:"dismissible"`
}

type CartTable struct {
	Rows       []CartRow `json:"rows"`
	TotalLabel string    `json:"total_label"`
	Banner     *Banner   `json:"banner,omitempty"`
}

func PriceLabel(price decimal.Decimal) string {
	return price.String() + " " + Currency
}

func ProductList(products []domain.Product) []ProductCard {
	cards := make([]ProductCard, 0, len(products))
	for _, p := range products {
		cards = append(cards, ProductCard{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Image:       p.ImageRef,
			PriceLabel:  PriceLabel(p.Price),
			CanAdd:      p.Purchasable(),
		})
	}
	return cards
}

// Cart renders a snapshot. Rows are numbered from 1.
func Cart(snap cart.Snapshot) CartTable {
	rows := make([]CartRow, 0, len(snap.Items))
	for i, item := range snap.Items {
		rows = append(rows, CartRow{
			Index:       i + 1,
			ProductID:   item.ProductID,
			Name:        item.Name,
			PriceLabel:  PriceLabel(item.UnitPrice),
			Quantity:    item.Quantity,
			MinQuantity: domain.MinQuantity,
		})
	}

	return CartTable{
		Rows:       rows,
		TotalLabel: PriceLabel(snap.Total),
		Banner:     BannerFor(snap.Notification),
	}
}

// BannerFor returns nil when there is nothing to show.
func BannerFor(n domain.Notification) *Banner {
	if n.IsZero() {
		return nil
	}
	return &Banner{
		Class:       "alert alert-" + string(n.Kind),
		Message:     n.Text,
		Dismissible: true,
	}
}
