package product

import (
	"time"

	"github.com/google/uuid"

	"github.com/basketwise/basketwise-backend/pkg/db/models"
	"github.com/basketwise/basketwise-backend/pkg/search"
)

// ProductDTO is the product payload returned to clients.
type ProductDTO struct {
	ID             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	NormalizedName string     `json:"normalizedName"`
	Slug           string     `json:"slug"`
	Barcode        *string    `json:"barcode,omitempty"`
	Brand          *string    `json:"brand,omitempty"`
	Size           *string    `json:"size,omitempty"`
	Unit           *string    `json:"unit,omitempty"`
	ImageURL       *string    `json:"imageUrl,omitempty"`
	CategoryID     *uuid.UUID `json:"categoryId,omitempty"`
	Description    *string    `json:"description,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// ProductListResult is one page of products.
type ProductListResult struct {
	Products   []ProductDTO `json:"products"`
	NextCursor string       `json:"nextCursor,omitempty"`
}

// SearchHit is a product returned by full-text search.
type SearchHit struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	NormalizedName string  `json:"normalizedName"`
	Slug           string  `json:"slug"`
	Barcode        *string `json:"barcode,omitempty"`
	Brand          *string `json:"brand,omitempty"`
	Size           *string `json:"size,omitempty"`
}

func toDTO(p *models.Product) *ProductDTO {
	return &ProductDTO{
		ID:             p.ID,
		Name:           p.Name,
		NormalizedName: p.NormalizedName,
		Slug:           p.Slug,
		Barcode:        p.Barcode,
		Brand:          p.Brand,
		Size:           p.Size,
		Unit:           p.Unit,
		ImageURL:       p.ImageURL,
		CategoryID:     p.CategoryID,
		Description:    p.Description,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

// ToSearchDocument maps a product onto its search index document.
func ToSearchDocument(p *models.Product) search.ProductDocument {
	return search.ProductDocument{
		ID:             p.ID.String(),
		Name:           p.Name,
		NormalizedName: p.NormalizedName,
		Slug:           p.Slug,
		Barcode:        p.Barcode,
		Brand:          p.Brand,
		Size:           p.Size,
		Unit:           p.Unit,
		ImageURL:       p.ImageURL,
		UpdatedAt:      p.UpdatedAt.Unix(),
	}
}

func toSearchHit(d search.ProductDocument) SearchHit {
	return SearchHit{
		ID:             d.ID,
		Name:           d.Name,
		NormalizedName: d.NormalizedName,
		Slug:           d.Slug,
		Barcode:        d.Barcode,
		Brand:          d.Brand,
		Size:           d.Size,
	}
}
