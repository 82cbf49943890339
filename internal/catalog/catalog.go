package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fjod/go_cart/shopping/internal/domain"
	"github.com/fjod/go_cart/shopping/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var ErrProductNotFound = errors.New("product not found")

// Catalog reads the product list stored under the "products" key. It never
// writes it except through Seed.
type Catalog struct {
	adapter storage.Adapter
	logger  *zap.Logger
	sfg     singleflight.Group // collapses concurrent reads of the same snapshot
}

func New(adapter storage.Adapter, logger *zap.Logger) *Catalog {
	return &Catalog{
		adapter: adapter,
		logger:  logger,
	}
}

// Products returns the catalog in stored order. A missing or malformed
// snapshot reads as an empty catalog; backend failures are returned.
func (c *Catalog) Products(ctx context.Context) ([]domain.Product, error) {
	v, err, _ := c.sfg.Do(storage.KeyProducts, func() (interface{}, error) {
		raw, err := c.adapter.Get(ctx, storage.KeyProducts)
		if errors.Is(err, storage.ErrNotFound) {
			return []domain.Product{}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read products: %w", err)
		}

		products, err := Decode([]byte(raw))
		if err != nil {
			c.logger.Warn("discarding persisted catalog", zap.Error(err))
			return []domain.Product{}, nil
		}
		return products, nil
	})
	if err != nil {
		return nil, err
	}

	// callers sharing a flight must not share the slice
	shared := v.([]domain.Product)
	products := make([]domain.Product, len(shared))
	copy(products, shared)
	return products, nil
}

func (c *Catalog) Product(ctx context.Context, id int64) (domain.Product, error) {
	products, err := c.Products(ctx)
	if err != nil {
		return domain.Product{}, err
	}
	for _, p := range products {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Product{}, ErrProductNotFound
}

// Seed replaces the stored catalog.
func (c *Catalog) Seed(ctx context.Context, products []domain.Product) error {
	raw, err := Encode(products)
	if err != nil {
		return err
	}
	if err := c.adapter.Set(ctx, storage.KeyProducts, raw); err != nil {
		return fmt.Errorf("failed to store products: %w", err)
	}
	return nil
}

// LoadFile reads a catalog in the persisted JSON format from disk.
func LoadFile(path string) ([]domain.Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return Decode(data)
}
