package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// assignID fills a zero primary key so rows get an id on every driver,
// including sqlite which has no gen_random_uuid().
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (v *Vendor) BeforeCreate(*gorm.DB) error       { assignID(&v.ID); return nil }
func (b *Branch) BeforeCreate(*gorm.DB) error       { assignID(&b.ID); return nil }
func (p *Product) BeforeCreate(*gorm.DB) error      { assignID(&p.ID); return nil }
func (bp *BranchPrice) BeforeCreate(*gorm.DB) error { assignID(&bp.ID); return nil }
func (e *OutboxEvent) BeforeCreate(*gorm.DB) error  { assignID(&e.ID); return nil }
