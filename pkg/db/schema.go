package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/basketwise/basketwise-backend/pkg/db/models"
)

// partialIndexes mirror the goose migrations. gorm tags cannot express the
// WHERE clause, so they are created by hand after AutoMigrate.
var partialIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_products_barcode ON products (barcode) WHERE barcode IS NOT NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_products_normalized_name_no_barcode ON products (normalized_name) WHERE barcode IS NULL`,
}

// AutoMigrateSchema builds the catalog schema from the models. It backs sqlite
// dev runs and tests; postgres deployments use the goose migrations.
func AutoMigrateSchema(conn *gorm.DB) error {
	if err := conn.AutoMigrate(
		&models.Vendor{},
		&models.Branch{},
		&models.Product{},
		&models.BranchPrice{},
		&models.OutboxEvent{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	for _, stmt := range partialIndexes {
		if err := conn.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create partial index: %w", err)
		}
	}
	return nil
}
