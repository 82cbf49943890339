package view

import (
	"testing"

	"github.com/fjod/go_cart/shopping/internal/cart"
	"github.com/fjod/go_cart/shopping/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductList_GatesOnStock(t *testing.T) {
	cards := ProductList([]domain.Product{
		{ID: 1, Name: "Widget", Price: decimal.RequireFromString("9.99"), AvailableQuantity: 2, ImageRef: "w.png"},
		{ID: 2, Name: "Gone", Price: decimal.NewFromInt(5), AvailableQuantity: 0},
	})

	require.Len(t, cards, 2)
	assert.True(t, cards[0].CanAdd)
	assert.Equal(t, "9.99 USD", cards[0].PriceLabel)
	assert.Equal(t, "w.png", cards[0].Image)
	assert.False(t, cards[1].CanAdd)
	assert.Equal(t, "5 USD", cards[1].PriceLabel)
}

func TestCart_Rows(t *testing.T) {
	table := Cart(cart.Snapshot{
		Items: []domain.LineItem{
			{ProductID: 4, Name: "a", UnitPrice: decimal.NewFromInt(10), Quantity: 2},
			{ProductID: 9, Name: "b", UnitPrice: decimal.NewFromInt(5), Quantity: 3},
		},
		Total: decimal.NewFromInt(35),
	})

	require.Len(t, table.Rows, 2)
	assert.Equal(t, 1, table.Rows[0].Index)
	assert.Equal(t, 2, table.Rows[1].Index)
	assert.Equal(t, int64(9), table.Rows[1].ProductID)
	assert.Equal(t, "10 USD", table.Rows[0].PriceLabel)
	assert.Equal(t, 1, table.Rows[0].MinQuantity)
	assert.Equal(t, "35 USD", table.TotalLabel)
	assert.Nil(t, table.Banner)
}

func TestCart_Empty(t *testing.T) {
	table := Cart(cart.Snapshot{Total: decimal.Zero})
	assert.NotNil(t, table.Rows)
	assert.Empty(t, table.Rows)
	assert.Equal(t, "0 USD", table.TotalLabel)
}

func TestBannerFor(t *testing.T) {
	assert.Nil(t, BannerFor(domain.Notification{}))

	b := BannerFor(domain.Notification{Text: "Update successfully", Kind: domain.KindWarning})
	require.NotNil(t, b)
	assert.Equal(t, "alert alert-warning", b.Class)
	assert.Equal(t, "Update successfully", b.Message)
	assert.True(t, b.Dismissible)
}
