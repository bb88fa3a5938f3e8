package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/basketwise/basketwise-backend/pkg/enums"
)

// Vendor is a retail chain. Onboarding flows own these rows; this service only
// reads their approval state.
type Vendor struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	Name           string               `gorm:"column:name;not null"`
	ApprovalStatus enums.ApprovalStatus `gorm:"column:approval_status;not null;default:pending"`
	IsActive       bool                 `gorm:"column:is_active;not null;default:true"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// Visible reports whether prices from this vendor may be shown to shoppers.
func (v Vendor) Visible() bool {
	return v.IsActive && v.ApprovalStatus == enums.ApprovalApproved
}
