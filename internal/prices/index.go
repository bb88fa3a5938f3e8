package prices

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/basketwise/basketwise-backend/pkg/enums"
	pkgerrors "github.com/basketwise/basketwise-backend/pkg/errors"
)

// BranchPriceRecord is one visible price of a product at a branch.
type BranchPriceRecord struct {
	BranchPriceID uuid.UUID       `gorm:"column:branch_price_id"`
	BranchID      uuid.UUID       `gorm:"column:branch_id"`
	VendorID      uuid.UUID       `gorm:"column:vendor_id"`
	BranchName    string          `gorm:"column:branch_name"`
	VendorName    string          `gorm:"column:vendor_name"`
	ProductID     uuid.UUID       `gorm:"column:product_id"`
	Price         decimal.Decimal `gorm:"column:price"`
	InStock       bool            `gorm:"column:in_stock"`
}

// Index reads branch prices for a set of products.
type Index struct {
	db *gorm.DB
}

// NewIndex builds an index over the provided connection.
func NewIndex(db *gorm.DB) *Index {
	return &Index{db: db}
}

// FetchPrices returns every active price for productIDs whose branch and
// vendor are both approved and active. It is a single statement so the
// result reflects one snapshot of the table.
func (i *Index) FetchPrices(ctx context.Context, productIDs []uuid.UUID) ([]BranchPriceRecord, error) {
	ids := distinct(productIDs)
	if len(ids) == 0 {
		return []BranchPriceRecord{}, nil
	}

	var rows []BranchPriceRecord
	err := i.db.WithContext(ctx).
		Table("branch_prices AS bp").
		Select(`bp.id AS branch_price_id,
		        bp.branch_id,
		        b.vendor_id,
		        b.name AS branch_name,
		        v.name AS vendor_name,
		        bp.product_id,
		        bp.price,
		        bp.in_stock`).
		Joins("JOIN branches b ON b.id = bp.branch_id").
		Joins("JOIN vendors v ON v.id = b.vendor_id").
		Where("bp.product_id IN ?", ids).
		Where("bp.is_active = ?", true).
		Where("b.approval_status = ? AND b.is_active = ?", enums.ApprovalApproved, true).
		Where("v.approval_status = ? AND v.is_active = ?", enums.ApprovalApproved, true).
		Order("bp.branch_id ASC").
		Order("bp.product_id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorageUnavailable, err, fmt.Sprintf("fetch prices for %d products", len(ids)))
	}
	if rows == nil {
		rows = []BranchPriceRecord{}
	}
	return rows, nil
}

func distinct(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
