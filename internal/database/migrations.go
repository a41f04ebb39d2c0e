package database

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/keebstack/switchbook/internal/catalog"
	"github.com/keebstack/switchbook/internal/images"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	migrationSeedCatalogDefaults     = "2026-08-20_seed_catalog_defaults"
	migrationRepairPrimaryImageFlags = "2026-08-27_repair_primary_image_flags"
)

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationSeedCatalogDefaults, apply: seedCatalogDefaults},
		{name: migrationRepairPrimaryImageFlags, apply: repairPrimaryImageFlags},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// seedCatalogDefaults fills empty lookup tables with the common options so a
// fresh install has usable dropdowns.
func seedCatalogDefaults(db *gorm.DB) error {
	var materialCount int64
	if err := db.Model(&catalog.Material{}).Count(&materialCount).Error; err != nil {
		return err
	}
	if materialCount == 0 {
		for _, name := range []string{"Nylon", "Polycarbonate", "POM", "UHMWPE", "PME"} {
			record := catalog.Material{ID: uuid.NewString(), Name: name}
			if err := db.Create(&record).Error; err != nil {
				return err
			}
		}
	}

	var stemCount int64
	if err := db.Model(&catalog.StemShape{}).Count(&stemCount).Error; err != nil {
		return err
	}
	if stemCount == 0 {
		for _, name := range []string{"MX", "Box", "Alps", "Low Profile"} {
			record := catalog.StemShape{ID: uuid.NewString(), Name: name}
			if err := db.Create(&record).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// repairPrimaryImageFlags promotes the first image of any switch that has
// images but no primary flag set, restoring the at-most-one-primary invariant
// after older writers that did not maintain it.
func repairPrimaryImageFlags(db *gorm.DB) error {
	var orphanedSwitchIDs []string
	err := db.Model(&images.SwitchImage{}).
		Where("switch_id IS NOT NULL").
		Group("switch_id").
		Having("SUM(CASE WHEN is_primary THEN 1 ELSE 0 END) = 0").
		Pluck("switch_id", &orphanedSwitchIDs).Error
	if err != nil {
		return err
	}
	for _, switchID := range orphanedSwitchIDs {
		var first images.SwitchImage
		err := db.Where("switch_id = ?", switchID).
			Order("display_order ASC").Take(&first).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if err := db.Model(&images.SwitchImage{}).
			Where("id = ?", first.ID).Update("is_primary", true).Error; err != nil {
			return err
		}
	}
	return nil
}
