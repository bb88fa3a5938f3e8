// Package catalogtest provides an in-memory catalog.Lookup for tests.
package catalogtest

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/basketwise/basketwise-backend/internal/catalog"
	"github.com/basketwise/basketwise-backend/pkg/db/models"
)

// Memory mimics the products table constraints: barcode is unique when set and
// normalized_name is unique among rows without a barcode.
type Memory struct {
	mu       sync.Mutex
	products map[uuid.UUID]models.Product
	clock    func() time.Time

	Inserts int
	Updates int
	// Err, when set, is returned from every call.
	Err error
}

func NewMemory() *Memory {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	return &Memory{
		products: map[uuid.UUID]models.Product{},
		clock: func() time.Time {
			tick++
			return start.Add(time.Duration(tick) * time.Second)
		},
	}
}

// Seed stores products as-is, assigning ids and timestamps when missing.
func (m *Memory) Seed(products ...models.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range products {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = m.clock()
		}
		m.products[p.ID] = p
	}
}

// All returns a snapshot of every stored product.
func (m *Memory) All() []models.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	return out
}

func (m *Memory) FindByBarcode(_ context.Context, barcode string) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, p := range m.products {
		if p.Barcode != nil && *p.Barcode == barcode {
			cp := p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *Memory) FindByNormalizedName(_ context.Context, normalizedName string) ([]models.Product, error) {
	return m.filter(func(p models.Product) bool { return p.NormalizedName == normalizedName })
}

func (m *Memory) FindBySlug(_ context.Context, slug string) ([]models.Product, error) {
	return m.filter(func(p models.Product) bool { return p.Slug == slug })
}

func (m *Memory) filter(keep func(models.Product) bool) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []models.Product
	for _, p := range m.products {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *Memory) Insert(_ context.Context, product *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if m.conflicts(*product) {
		return catalog.ErrDuplicateProduct
	}
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	now := m.clock()
	product.CreatedAt, product.UpdatedAt = now, now
	m.products[product.ID] = *product
	m.Inserts++
	return nil
}

func (m *Memory) Update(_ context.Context, product *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if m.conflicts(*product) {
		return catalog.ErrDuplicateProduct
	}
	product.UpdatedAt = m.clock()
	m.products[product.ID] = *product
	m.Updates++
	return nil
}

func (m *Memory) conflicts(candidate models.Product) bool {
	for id, p := range m.products {
		if id == candidate.ID {
			continue
		}
		if candidate.Barcode != nil && p.Barcode != nil && *p.Barcode == *candidate.Barcode {
			return true
		}
		if candidate.Barcode == nil && p.Barcode == nil && p.NormalizedName == candidate.NormalizedName {
			return true
		}
	}
	return false
}
