package db

import (
	"gorm.io/gorm/clause"

	"github.com/inkwell-app/inkwell/internal/models"
)

// LoadManifest returns all manifest entries of a configuration keyed by
// entity key. A configuration that has never synced returns an empty map.
func (db *DB) LoadManifest(configID string) (map[string]models.ManifestEntry, error) {
	var entries []models.ManifestEntry
	if err := db.Where("config_id = ?", configID).Find(&entries).Error; err != nil {
		return nil, err
	}
	manifest := make(map[string]models.ManifestEntry, len(entries))
	for _, e := range entries {
		manifest[e.EntityKey] = e
	}
	return manifest, nil
}

// SaveManifestEntry writes one manifest entry atomically, replacing any
// previous entry for the same key wholesale. The engine calls this only
// after the corresponding remote operation is confirmed.
func (db *DB) SaveManifestEntry(entry *models.ManifestEntry) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "config_id"}, {Name: "entity_key"}},
		UpdateAll: true,
	}).Create(entry).Error
}

// DeleteManifestEntry removes a single manifest entry.
func (db *DB) DeleteManifestEntry(configID, entityKey string) error {
	return db.Where("config_id = ? AND entity_key = ?", configID, entityKey).
		Delete(&models.ManifestEntry{}).Error
}

// DeleteManifest removes every manifest entry of a configuration, forcing
// a full re-diff on the next run.
func (db *DB) DeleteManifest(configID string) error {
	return db.Where("config_id = ?", configID).Delete(&models.ManifestEntry{}).Error
}
