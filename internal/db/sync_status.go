package db

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/inkwell-app/inkwell/internal/models"
)

// GetSyncStatus returns the last persisted status of a configuration.
// Returns nil, nil when the configuration has never run.
func (db *DB) GetSyncStatus(configID string) (*models.SyncStatus, error) {
	var status models.SyncStatus
	err := db.First(&status, "config_id = ?", configID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &status, nil
}

// SaveSyncStatus persists a configuration's last known status for display
// between runs.
func (db *DB) SaveSyncStatus(status *models.SyncStatus) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "config_id"}},
		UpdateAll: true,
	}).Create(status).Error
}
