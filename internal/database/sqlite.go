package database

import (
	"fmt"

	sqlite "github.com/glebarez/sqlite"
	"github.com/keebstack/switchbook/internal/catalog"
	"github.com/keebstack/switchbook/internal/forcecurve"
	"github.com/keebstack/switchbook/internal/images"
	"github.com/keebstack/switchbook/internal/manufacturers"
	"github.com/keebstack/switchbook/internal/master"
	"github.com/keebstack/switchbook/internal/notify"
	"github.com/keebstack/switchbook/internal/switches"
	"github.com/keebstack/switchbook/internal/users"
	"github.com/keebstack/switchbook/internal/wishlist"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OpenSQLite establishes a SQLite connection and performs schema migrations.
func OpenSQLite(path string, logger *zap.Logger) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&users.Identity{},
		&switches.Switch{},
		&master.MasterSwitch{},
		&master.Edit{},
		&images.SwitchImage{},
		&manufacturers.Manufacturer{},
		&catalog.Material{},
		&catalog.StemShape{},
		&wishlist.Item{},
		&notify.Notification{},
		&forcecurve.CacheEntry{},
		&migrationRecord{},
	); err != nil {
		return nil, err
	}

	if err := applyMigrations(db, logger); err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("database initialized", zap.String("path", path))
	}

	return db, nil
}
