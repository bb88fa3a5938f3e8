package catalog

import (
	"context"
	"errors"

	"github.com/basketwise/basketwise-backend/pkg/db/models"
)

// ErrDuplicateProduct is returned by Lookup.Insert or Lookup.Update when a
// uniqueness constraint rejects the write because another writer got there
// first. Callers re-run resolution, which then finds the winner as a match.
var ErrDuplicateProduct = errors.New("catalog: duplicate product")

// Lookup is the catalog storage surface the resolver needs. Find methods
// return (nil, nil) or an empty slice when nothing matches.
type Lookup interface {
	FindByBarcode(ctx context.Context, barcode string) (*models.Product, error)
	FindByNormalizedName(ctx context.Context, normalizedName string) ([]models.Product, error)
	FindBySlug(ctx context.Context, slug string) ([]models.Product, error)
	Insert(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
}
