package db

import (
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open opens (or creates) the embedded SQLite database at path.
// Foreign keys are enabled so session rows follow their patient on delete.
// Use ":memory:" for an ephemeral database in tests.
func Open(path string) (*gorm.DB, error) {
	dsn := path
	if dsn != ":memory:" {
		dsn = fmt.Sprintf("%s?_foreign_keys=on&_busy_timeout=5000", path)
	}

	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite database %s: %w", path, err)
	}

	// Single-user tool: one writer avoids SQLITE_BUSY on concurrent handlers.
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("access underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return gdb, nil
}

// Migrate creates or updates the schema for the given models.
func Migrate(gdb *gorm.DB, models ...interface{}) error {
	if err := gdb.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto-migrate schema: %w", err)
	}
	return nil
}
