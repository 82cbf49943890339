package catalog

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fjod/go_cart/shopping/internal/domain"
	"github.com/shopspring/decimal"
)

var ErrMalformed = errors.New("malformed catalog data")

// productRecord is the persisted product shape. The stock field is spelled
// "quantily" in existing payloads and is kept that way on the wire.
type productRecord struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Price       json.Number `json:"price"`
	Quantily    int         `json:"quantily"`
	Image       string      `json:"image"`
}

func Encode(products []domain.Product) (string, error) {
	records := make([]productRecord, 0, len(products))
	for _, p := range products {
		records = append(records, productRecord{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Price:       json.Number(p.Price.String()),
			Quantily:    p.AvailableQuantity,
			Image:       p.ImageRef,
		})
	}

	data, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("marshal products failed: %w", err)
	}
	return string(data), nil
}

func Decode(raw []byte) ([]domain.Product, error) {
	var records []productRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	products := make([]domain.Product, 0, len(records))
	for i, r := range records {
		price, err := decimal.NewFromString(r.Price.String())
		if err != nil {
			return nil, fmt.Errorf("%w: product %d price: %v", ErrMalformed, i, err)
		}
		if price.IsNegative() {
			return nil, fmt.Errorf("%w: product %d has negative price", ErrMalformed, i)
		}
		if r.Quantily < 0 {
			return nil, fmt.Errorf("%w: product %d has negative quantity", ErrMalformed, i)
		}
		products = append(products, domain.Product{
			ID:                r.ID,
			Name:              r.Name,
			Description:       r.Description,
			Price:             price,
			AvailableQuantity: r.Quantily,
			ImageRef:          r.Image,
		})
	}
	return products, nil
}
