// Package sqlite opens a file backed gorm session for local runs and tests.
package sqlite

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Initialize opens the database at path and auto migrates given models.
func Initialize(path string, models []any) (*gorm.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	sqlDb, err := db.DB()
	if err != nil {
		return nil, err
	}
	// a single writer keeps transactions from tripping over SQLITE_BUSY
	sqlDb.SetMaxOpenConns(1)

	if err := db.AutoMigrate(models...); err != nil {
		_ = sqlDb.Close()
		return nil, fmt.Errorf("migrate sqlite db: %w", err)
	}

	return db, nil
}
