package catalog

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/basketwise/basketwise-backend/pkg/db/models"
)

// MatchStrategy names the step that produced a resolution.
type MatchStrategy string

const (
	MatchByBarcode        MatchStrategy = "barcode"
	MatchByNormalizedName MatchStrategy = "normalized_name"
	MatchBySlug           MatchStrategy = "slug"
	MatchNone             MatchStrategy = "none"
)

// Candidate is a vendor submission awaiting identity resolution.
type Candidate struct {
	Name        string
	Barcode     *string
	Brand       *string
	Size        *string
	Unit        *string
	ImageURL    *string
	CategoryID  *uuid.UUID
	Description *string
}

// Resolution is the outcome of Resolve. Created and Updated are mutually exclusive.
type Resolution struct {
	Product   *models.Product
	Created   bool
	Updated   bool
	MatchedBy MatchStrategy
}

// Resolver decides whether a candidate is an existing catalog product.
type Resolver struct {
	meta MetaExtractor
}

// NewResolver builds a resolver. A nil extractor falls back to RegexMetaExtractor.
func NewResolver(meta MetaExtractor) *Resolver {
	if meta == nil {
		meta = RegexMetaExtractor{}
	}
	return &Resolver{meta: meta}
}

// Resolve runs barcode, normalized name and slug matching in that order and
// creates a product when none of them hit. Matches are enriched by filling
// null fields only.
func (r *Resolver) Resolve(ctx context.Context, candidate Candidate, lookup Lookup) (Resolution, error) {
	if lookup == nil {
		return Resolution{}, fmt.Errorf("catalog lookup required")
	}
	name := strings.TrimSpace(candidate.Name)
	if name == "" {
		return Resolution{}, fmt.Errorf("candidate name required")
	}
	candidate = r.prepare(candidate)

	match, strategy, err := r.findMatch(ctx, candidate, lookup)
	if err != nil {
		return Resolution{}, err
	}

	if match == nil {
		product := newProduct(name, candidate)
		if err := lookup.Insert(ctx, product); err != nil {
			return Resolution{}, err
		}
		return Resolution{Product: product, Created: true, MatchedBy: MatchNone}, nil
	}

	if !Enrich(match, candidate) {
		return Resolution{Product: match, MatchedBy: strategy}, nil
	}
	if err := lookup.Update(ctx, match); err != nil {
		return Resolution{}, err
	}
	return Resolution{Product: match, Updated: true, MatchedBy: strategy}, nil
}

func (r *Resolver) findMatch(ctx context.Context, candidate Candidate, lookup Lookup) (*models.Product, MatchStrategy, error) {
	if candidate.Barcode != nil {
		product, err := lookup.FindByBarcode(ctx, *candidate.Barcode)
		if err != nil {
			return nil, "", fmt.Errorf("find by barcode: %w", err)
		}
		if product != nil {
			return product, MatchByBarcode, nil
		}
	}

	normalized := Normalize(candidate.Name)
	if normalized != "" {
		products, err := lookup.FindByNormalizedName(ctx, normalized)
		if err != nil {
			return nil, "", fmt.Errorf("find by normalized name: %w", err)
		}
		if product := firstCompatible(products, candidate.Barcode); product != nil {
			return product, MatchByNormalizedName, nil
		}
	}

	if slug := Slugify(candidate.Name); slug != "" {
		products, err := lookup.FindBySlug(ctx, slug)
		if err != nil {
			return nil, "", fmt.Errorf("find by slug: %w", err)
		}
		if product := firstCompatible(products, candidate.Barcode); product != nil {
			return product, MatchBySlug, nil
		}
	}

	return nil, MatchNone, nil
}

// firstCompatible returns the oldest product whose barcode does not contradict
// the candidate's. A product without a barcode, or a candidate without one,
// matches on name alone.
func firstCompatible(products []models.Product, barcode *string) *models.Product {
	if len(products) == 0 {
		return nil
	}
	ordered := slices.Clone(products)
	slices.SortStableFunc(ordered, func(a, b models.Product) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	for i := range ordered {
		p := ordered[i]
		if barcode != nil && p.Barcode != nil && *p.Barcode != *barcode {
			continue
		}
		return &p
	}
	return nil
}

// prepare trims the candidate and fills brand and size gaps from the name.
func (r *Resolver) prepare(c Candidate) Candidate {
	c.Name = strings.TrimSpace(c.Name)
	c.Barcode = CanonicalBarcode(c.Barcode)
	c.Brand = trimmed(c.Brand)
	c.Size = trimmed(c.Size)
	c.Unit = trimmed(c.Unit)
	c.ImageURL = trimmed(c.ImageURL)
	c.Description = trimmed(c.Description)
	if c.CategoryID != nil && *c.CategoryID == uuid.Nil {
		c.CategoryID = nil
	}

	if c.Brand == nil || c.Size == nil {
		guess := r.meta.Extract(c.Name)
		if c.Brand == nil {
			c.Brand = guess.Brand
		}
		if c.Size == nil {
			c.Size = guess.Size
		}
	}
	return c
}

func newProduct(name string, c Candidate) *models.Product {
	return &models.Product{
		Name:           name,
		NormalizedName: Normalize(name),
		Slug:           Slugify(name),
		Barcode:        c.Barcode,
		Brand:          c.Brand,
		Size:           c.Size,
		Unit:           c.Unit,
		ImageURL:       c.ImageURL,
		CategoryID:     c.CategoryID,
		Description:    c.Description,
	}
}

// Enrich copies candidate fields onto null product fields and reports whether
// anything changed. Populated fields and the display name are never touched.
func Enrich(p *models.Product, c Candidate) bool {
	changed := fillString(&p.Barcode, c.Barcode)
	changed = fillString(&p.Brand, c.Brand) || changed
	changed = fillString(&p.Size, c.Size) || changed
	changed = fillString(&p.Unit, c.Unit) || changed
	changed = fillString(&p.ImageURL, c.ImageURL) || changed
	changed = fillString(&p.Description, c.Description) || changed
	if p.CategoryID == nil && c.CategoryID != nil {
		id := *c.CategoryID
		p.CategoryID = &id
		changed = true
	}
	return changed
}

func fillString(dst **string, src *string) bool {
	if *dst != nil || src == nil {
		return false
	}
	v := *src
	*dst = &v
	return true
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	return &s
}

// CanonicalBarcode strips spaces and dashes so "5 000112-546415" and
// "5000112546415" compare equal. Blank input yields nil.
func CanonicalBarcode(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' || r == '\t' {
			return -1
		}
		return r
	}, *v)
	if s == "" {
		return nil
	}
	return &s
}
