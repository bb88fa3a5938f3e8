package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is a canonical catalog entry shared by every vendor listing it.
type Product struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Name           string     `gorm:"column:name;not null"`
	NormalizedName string     `gorm:"column:normalized_name;not null;index"`
	Slug           string     `gorm:"column:slug;not null;index"`
	Barcode        *string    `gorm:"column:barcode"`
	Brand          *string    `gorm:"column:brand"`
	Size           *string    `gorm:"column:size"`
	Unit           *string    `gorm:"column:unit"`
	ImageURL       *string    `gorm:"column:image_url"`
	CategoryID     *uuid.UUID `gorm:"column:category_id;type:uuid"`
	Description    *string    `gorm:"column:description"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
