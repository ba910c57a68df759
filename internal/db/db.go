package db

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/oggyb/matchfeed/internal/config"
)

// Now is the clock used for every persisted timestamp: UTC, millisecond precision.
func Now() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }

// NewDB opens the configured dialect and migrates the schema.
func NewDB(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DB.Driver {
	case "sqlite":
		dialector = sqlite.Open(SQLiteDSN(cfg.DB.SQLitePath))
	default:
		dialector = mysql.Open(cfg.DB.DSN)
	}

	level := logger.Warn
	if strings.EqualFold(cfg.Log.Level, "debug") {
		level = logger.Info // log SQL queries
	}

	database, err := Open(dialector, logger.Default.LogMode(level))
	if err != nil {
		return nil, err
	}

	sqlDB, err := database.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql handle: %w", err)
	}
	if cfg.DB.Driver == "sqlite" {
		// sqlite allows a single writer.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	if err := Migrate(database); err != nil {
		return nil, err
	}
	return database, nil
}

// SQLiteDSN turns on foreign-key enforcement, which sqlite leaves off per connection.
func SQLiteDSN(path string) string {
	if strings.Contains(path, "_foreign_keys") {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=1"
}

// Open wraps gorm.Open with the settings every caller relies on:
// UTC millisecond timestamps and translated unique-violation errors.
func Open(dialector gorm.Dialector, log logger.Interface) (*gorm.DB, error) {
	database, err := gorm.Open(dialector, &gorm.Config{
		Logger:         log,
		NowFunc:        Now,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	return database, nil
}

// Migrate ensures schema is in sync with models.
func Migrate(database *gorm.DB) error {
	if err := database.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func Close(database *gorm.DB) error {
	sqlDB, err := database.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
