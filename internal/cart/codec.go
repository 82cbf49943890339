package cart

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fjod/go_cart/shopping/internal/domain"
	"github.com/shopspring/decimal"
)

var ErrMalformed = errors.New("malformed cart data")

// lineItemRecord is the persisted shape of a line item. Prices stay JSON
// numbers so the payload matches what browser code writes.
type lineItemRecord struct {
	ID       int64       `json:"id"`
	Name     string      `json:"name"`
	Price    json.Number `json:"price"`
	Quantity int         `json:"quantity"`
}

// Encode serializes items as a JSON array. An empty cart encodes as [].
func Encode(items []domain.LineItem) (string, error) {
	records := make([]lineItemRecord, 0, len(items))
	for _, item := range items {
		records = append(records, lineItemRecord{
			ID:       item.ProductID,
			Name:     item.Name,
			Price:    json.Number(item.UnitPrice.String()),
			Quantity: item.Quantity,
		})
	}

	data, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("marshal cart failed: %w", err)
	}
	return string(data), nil
}

// Decode parses a persisted cart. Anything that is not an array of well
// formed line items with distinct ids and quantities of at least one is
// rejected with ErrMalformed.
func Decode(raw string) ([]domain.LineItem, error) {
	var records []lineItemRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	items := make([]domain.LineItem, 0, len(records))
	seen := make(map[int64]struct{}, len(records))
	for i, r := range records {
		price, err := decimal.NewFromString(r.Price.String())
		if err != nil {
			return nil, fmt.Errorf("%w: item %d price: %v", ErrMalformed, i, err)
		}
		if r.Quantity < domain.MinQuantity {
			return nil, fmt.Errorf("%w: item %d quantity %d", ErrMalformed, i, r.Quantity)
		}
		if _, dup := seen[r.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate product id %d", ErrMalformed, r.ID)
		}
		seen[r.ID] = struct{}{}

		items = append(items, domain.LineItem{
			ProductID: r.ID,
			Name:      r.Name,
			UnitPrice: price,
			Quantity:  r.Quantity,
		})
	}
	return items, nil
}
