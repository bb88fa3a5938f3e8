// Package dbtest opens throwaway sqlite databases with the catalog schema.
package dbtest

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/basketwise/basketwise-backend/pkg/db"
	"github.com/basketwise/basketwise-backend/pkg/db/models"
	"github.com/basketwise/basketwise-backend/pkg/enums"
)

// Open returns a client over a private in-memory database.
func Open(t testing.TB) *db.Client {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		// sqlite compares timestamps as text, so every write uses one zone.
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrateSchema(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db.NewFromGorm(conn)
}

// SeedVendor inserts a vendor with the given approval state.
func SeedVendor(t testing.TB, conn *gorm.DB, name string, status enums.ApprovalStatus, active bool) models.Vendor {
	t.Helper()
	v := models.Vendor{Name: name, ApprovalStatus: status, IsActive: true}
	if err := conn.Create(&v).Error; err != nil {
		t.Fatalf("seed vendor: %v", err)
	}
	// gorm skips zero values on create, so false needs an explicit update.
	if !active {
		if err := conn.Model(&v).Update("is_active", false).Error; err != nil {
			t.Fatalf("deactivate vendor: %v", err)
		}
		v.IsActive = false
	}
	return v
}

// SeedBranch inserts a branch under vendorID.
func SeedBranch(t testing.TB, conn *gorm.DB, vendorID uuid.UUID, name string, status enums.ApprovalStatus, active bool) models.Branch {
	t.Helper()
	b := models.Branch{VendorID: vendorID, Name: name, ApprovalStatus: status, IsActive: true}
	if err := conn.Create(&b).Error; err != nil {
		t.Fatalf("seed branch: %v", err)
	}
	if !active {
		if err := conn.Model(&b).Update("is_active", false).Error; err != nil {
			t.Fatalf("deactivate branch: %v", err)
		}
		b.IsActive = false
	}
	return b
}

// SeedProduct inserts a product with the given name; normalized name and slug are taken verbatim.
func SeedProduct(t testing.TB, conn *gorm.DB, name, normalized, slug string, barcode *string) models.Product {
	t.Helper()
	p := models.Product{Name: name, NormalizedName: normalized, Slug: slug, Barcode: barcode}
	if err := conn.Create(&p).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return p
}

// SeedPrice inserts an active, in-stock price row.
func SeedPrice(t testing.TB, conn *gorm.DB, branchID, productID uuid.UUID, price string) models.BranchPrice {
	t.Helper()
	bp := models.BranchPrice{
		BranchID:    branchID,
		ProductID:   productID,
		Price:       decimal.RequireFromString(price),
		InStock:     true,
		IsActive:    true,
		MatchStatus: enums.MatchLinked,
		CreatedAt:   time.Now().UTC(),
	}
	if err := conn.Create(&bp).Error; err != nil {
		t.Fatalf("seed price: %v", err)
	}
	return bp
}
