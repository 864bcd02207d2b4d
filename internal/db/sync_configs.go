package db

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/inkwell-app/inkwell/internal/models"
)

// CreateSyncConfig creates a new sync configuration.
func (db *DB) CreateSyncConfig(cfg *models.SyncConfig) error {
	return db.Create(cfg).Error
}

// UpdateSyncConfig updates a sync configuration.
func (db *DB) UpdateSyncConfig(cfg *models.SyncConfig) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(cfg).Error
}

// GetSyncConfig retrieves a sync configuration by ID. Returns nil, nil
// when not found.
func (db *DB) GetSyncConfig(id string) (*models.SyncConfig, error) {
	var cfg models.SyncConfig
	err := db.First(&cfg, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &cfg, nil
}

// ListSyncConfigs returns all sync configurations.
func (db *DB) ListSyncConfigs() ([]models.SyncConfig, error) {
	var cfgs []models.SyncConfig
	err := db.Order("created_at ASC").Find(&cfgs).Error
	return cfgs, err
}

// ListEnabledSyncConfigs returns all enabled sync configurations.
func (db *DB) ListEnabledSyncConfigs() ([]models.SyncConfig, error) {
	var cfgs []models.SyncConfig
	err := db.Where("enabled = ?", true).Order("created_at ASC").Find(&cfgs).Error
	return cfgs, err
}

// TouchLastSync stamps a configuration's last successful sync time.
func (db *DB) TouchLastSync(id string, at time.Time) error {
	return db.Model(&models.SyncConfig{}).
		Where("id = ?", id).
		Update("last_sync_at", at).Error
}

// DeleteSyncConfig deletes a configuration and cascades to its manifest
// and persisted status. This is the only place manifests are destroyed
// wholesale; the out-of-band credential is removed by the caller that
// owns the credential store.
func (db *DB) DeleteSyncConfig(id string) error {
	return db.Transaction(func(tx *DB) error {
		if err := tx.Where("config_id = ?", id).Delete(&models.ManifestEntry{}).Error; err != nil {
			return err
		}
		if err := tx.Where("config_id = ?", id).Delete(&models.SyncStatus{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.SyncConfig{}, "id = ?", id).Error
	})
}
