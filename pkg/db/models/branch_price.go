package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/basketwise/basketwise-backend/pkg/enums"
)

// BranchPrice is the current shelf price of a product at one branch. At most
// one row exists per (branch_id, product_id).
type BranchPrice struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	BranchID    uuid.UUID         `gorm:"column:branch_id;type:uuid;not null;uniqueIndex:ux_branch_prices_branch_product"`
	ProductID   uuid.UUID         `gorm:"column:product_id;type:uuid;not null;uniqueIndex:ux_branch_prices_branch_product"`
	Price       decimal.Decimal   `gorm:"column:price;type:numeric(12,2);not null"`
	InStock     bool              `gorm:"column:in_stock;not null;default:true"`
	IsActive    bool              `gorm:"column:is_active;not null;default:true"`
	MatchStatus enums.MatchStatus `gorm:"column:match_status;not null;default:not_linked"`
	SourceName  *string           `gorm:"column:source_name"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
