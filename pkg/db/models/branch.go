package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/basketwise/basketwise-backend/pkg/enums"
)

// Branch is one physical store of a vendor.
type Branch struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	VendorID       uuid.UUID            `gorm:"column:vendor_id;type:uuid;not null"`
	Name           string               `gorm:"column:name;not null"`
	City           *string              `gorm:"column:city"`
	ApprovalStatus enums.ApprovalStatus `gorm:"column:approval_status;not null;default:pending"`
	IsActive       bool                 `gorm:"column:is_active;not null;default:true"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// Visible reports whether the branch itself passes approval and activity checks.
func (b Branch) Visible() bool {
	return b.IsActive && b.ApprovalStatus == enums.ApprovalApproved
}
