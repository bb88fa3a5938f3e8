package product

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/basketwise/basketwise-backend/internal/catalog"
	"github.com/basketwise/basketwise-backend/pkg/db"
	"github.com/basketwise/basketwise-backend/pkg/db/models"
	"github.com/basketwise/basketwise-backend/pkg/pagination"
)

// Repository persists catalog products. It satisfies catalog.Lookup.
type Repository struct {
	db *gorm.DB
}

var _ catalog.Lookup = (*Repository)(nil)

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindByID loads one product.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *Repository) FindByBarcode(ctx context.Context, barcode string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).Where("barcode = ?", barcode).Take(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *Repository) FindByNormalizedName(ctx context.Context, normalizedName string) ([]models.Product, error) {
	return r.findOrdered(ctx, "normalized_name = ?", normalizedName)
}

func (r *Repository) FindBySlug(ctx context.Context, slug string) ([]models.Product, error) {
	return r.findOrdered(ctx, "slug = ?", slug)
}

func (r *Repository) findOrdered(ctx context.Context, where string, arg any) ([]models.Product, error) {
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Where(where, arg).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// Insert creates the product. Any unique index rejection means a concurrent
// writer created the same identity first.
func (r *Repository) Insert(ctx context.Context, product *models.Product) error {
	err := r.db.WithContext(ctx).Create(product).Error
	if db.IsUniqueViolation(err, "") {
		return catalog.ErrDuplicateProduct
	}
	return err
}

func (r *Repository) Update(ctx context.Context, product *models.Product) error {
	err := r.db.WithContext(ctx).Save(product).Error
	if db.IsUniqueViolation(err, "") {
		return catalog.ErrDuplicateProduct
	}
	return err
}

// ListQuery selects a page of products, newest first.
type ListQuery struct {
	Pagination pagination.Params
	// NamePrefix filters on normalized_name; it must already be normalized.
	NamePrefix string
}

// List returns one page ordered by created_at DESC, id DESC.
func (r *Repository) List(ctx context.Context, query ListQuery) (pagination.Page[models.Product], error) {
	cursor, err := pagination.ParseCursor(query.Pagination.Cursor)
	if err != nil {
		return pagination.Page[models.Product]{}, err
	}

	qb := r.db.WithContext(ctx).Model(&models.Product{})
	if prefix := strings.TrimSpace(query.NamePrefix); prefix != "" {
		qb = qb.Where("normalized_name LIKE ? ESCAPE '\\'", escapeLike(prefix)+"%")
	}
	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Product
	if err := qb.Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(query.Pagination.Limit)).
		Find(&rows).Error; err != nil {
		return pagination.Page[models.Product]{}, err
	}
	return pagination.Trim(rows, query.Pagination.Limit, func(p models.Product) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	}), nil
}

// ListAfter walks the whole catalog in id order for maintenance jobs.
func (r *Repository) ListAfter(ctx context.Context, after uuid.UUID, limit int) ([]models.Product, error) {
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Where("id > ?", after).
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// UpdateNormalization rewrites only the derived identity columns.
func (r *Repository) UpdateNormalization(ctx context.Context, id uuid.UUID, normalizedName, slug string) error {
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Updates(map[string]any{"normalized_name": normalizedName, "slug": slug}).Error
	if db.IsUniqueViolation(err, "") {
		return catalog.ErrDuplicateProduct
	}
	return err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
