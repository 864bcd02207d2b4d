// Package db provides a GORM-based database layer for Inkwell.
// It uses the pure-Go SQLite driver.
package db

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/inkwell-app/inkwell/internal/models"
)

// DB wraps the GORM database connection with Inkwell-specific operations.
type DB struct {
	*gorm.DB
	path string
}

// Config holds database configuration options.
type Config struct {
	Path        string
	Debug       bool
	MaxIdleConn int
	MaxOpenConn int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(path string) Config {
	return Config{
		Path:        path,
		Debug:       false,
		MaxIdleConn: 1,
		MaxOpenConn: 1,
	}
}

// New creates a new database connection and runs migrations.
func New(cfg Config) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Configure GORM logger
	logLevel := logger.Silent
	if cfg.Debug {
		logLevel = logger.Info
	}

	// Build DSN with DELETE journal mode for simpler transaction handling
	// (WAL mode has visibility issues with the pure-Go SQLite driver)
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(DELETE)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)", cfg.Path)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 logger.Default.LogMode(logLevel),
		SkipDefaultTransaction: true, // Better performance for read operations
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConn)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConn)
	sqlDB.SetConnMaxLifetime(time.Hour)

	wrapped := &DB{DB: db, path: cfg.Path}

	// Run auto-migrations
	if err := wrapped.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return wrapped, nil
}

// migrate runs GORM auto-migrations for all models.
func (db *DB) migrate() error {
	return db.AutoMigrate(
		&models.Journal{},
		&models.Entry{},
		&models.Attachment{},
		&models.SyncConfig{},
		&models.ManifestEntry{},
		&models.SyncStatus{},
	)
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Close closes the database connection.
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Transaction executes a function within a database transaction.
// The callback receives a *DB wrapper that uses the transaction.
// If the callback returns an error, the transaction is rolled back.
func (d *DB) Transaction(fc func(tx *DB) error) error {
	return d.DB.Transaction(func(tx *gorm.DB) error {
		wrappedTx := &DB{DB: tx, path: d.path}
		return fc(wrappedTx)
	})
}

// Stats holds aggregate statistics about the local store.
type Stats struct {
	TotalJournals    int64     `json:"total_journals"`
	TotalEntries     int64     `json:"total_entries"`
	TotalAttachments int64     `json:"total_attachments"`
	LegacyPaths      int64     `json:"legacy_paths"`
	SyncConfigs      int64     `json:"sync_configs"`
	DBSizeBytes      int64     `json:"db_size_bytes"`
	LastUpdated      time.Time `json:"last_updated"`
}

// GetStats returns aggregate statistics about the database.
func (db *DB) GetStats() (*Stats, error) {
	var stats Stats

	if err := db.Model(&models.Journal{}).Count(&stats.TotalJournals).Error; err != nil {
		return nil, fmt.Errorf("count journals: %w", err)
	}
	if err := db.Model(&models.Entry{}).Count(&stats.TotalEntries).Error; err != nil {
		return nil, fmt.Errorf("count entries: %w", err)
	}
	if err := db.Model(&models.Attachment{}).Count(&stats.TotalAttachments).Error; err != nil {
		return nil, fmt.Errorf("count attachments: %w", err)
	}
	if err := db.Model(&models.SyncConfig{}).Count(&stats.SyncConfigs).Error; err != nil {
		return nil, fmt.Errorf("count sync configs: %w", err)
	}

	legacy, err := db.CountLegacyAttachments()
	if err != nil {
		return nil, fmt.Errorf("count legacy attachments: %w", err)
	}
	stats.LegacyPaths = legacy

	// Get database file size
	if info, err := os.Stat(db.path); err == nil {
		stats.DBSizeBytes = info.Size()
	}

	stats.LastUpdated = time.Now()

	return &stats, nil
}
