package database

import (
	"path/filepath"
	"testing"

	"github.com/keebstack/switchbook/internal/catalog"
	"github.com/keebstack/switchbook/internal/images"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func openTestDatabase(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "switchbook.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	return db
}

func TestOpenSQLiteSeedsCatalogDefaults(t *testing.T) {
	db := openTestDatabase(t)

	var materials, stems int64
	if err := db.Model(&catalog.Material{}).Count(&materials).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if err := db.Model(&catalog.StemShape{}).Count(&stems).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if materials == 0 || stems == 0 {
		t.Fatalf("expected seeded lookup tables, got %d materials and %d stems", materials, stems)
	}
}

func TestMigrationsApplyOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "switchbook.db")
	db, err := OpenSQLite(path, zap.NewNop())
	if err != nil {
		t.Fatalf("first open failed: %v", err)
	}
	var before int64
	if err := db.Model(&catalog.Material{}).Count(&before).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access sql db: %v", err)
	}
	if err := sqlDB.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	reopened, err := OpenSQLite(path, zap.NewNop())
	if err != nil {
		t.Fatalf("second open failed: %v", err)
	}
	var after int64
	if err := reopened.Model(&catalog.Material{}).Count(&after).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if after != before {
		t.Fatalf("reopening must not reseed: %d then %d", before, after)
	}
}

func TestRepairPrimaryImageFlags(t *testing.T) {
	db := openTestDatabase(t)

	switchID := "switch-1"
	rows := []images.SwitchImage{
		{ID: "image-1", SwitchID: &switchID, OwnerUserID: "user-1", Type: images.TypeUploaded, URL: "/uploads/a.jpg", Order: 0},
		{ID: "image-2", SwitchID: &switchID, OwnerUserID: "user-1", Type: images.TypeUploaded, URL: "/uploads/b.jpg", Order: 1},
	}
	for i := range rows {
		if err := db.Create(&rows[i]).Error; err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}

	if err := repairPrimaryImageFlags(db); err != nil {
		t.Fatalf("repair failed: %v", err)
	}

	var primary images.SwitchImage
	if err := db.Where("switch_id = ? AND is_primary = ?", switchID, true).Take(&primary).Error; err != nil {
		t.Fatalf("expected a promoted primary image: %v", err)
	}
	if primary.ID != "image-1" {
		t.Fatalf("expected the first image by order, got %s", primary.ID)
	}
}
