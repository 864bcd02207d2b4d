package db

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/inkwell-app/inkwell/internal/models"
)

// CreateAttachment creates a new attachment.
func (db *DB) CreateAttachment(att *models.Attachment) error {
	return db.Create(att).Error
}

// UpsertAttachment creates or updates an attachment.
func (db *DB) UpsertAttachment(att *models.Attachment) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(att).Error
}

// GetAttachment retrieves an attachment by ID. Returns nil, nil when not
// found.
func (db *DB) GetAttachment(id string) (*models.Attachment, error) {
	var att models.Attachment
	err := db.First(&att, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &att, nil
}

// ListAttachments returns all attachments ordered by creation time.
func (db *DB) ListAttachments() ([]models.Attachment, error) {
	var atts []models.Attachment
	err := db.Order("created_at ASC, id ASC").Find(&atts).Error
	return atts, err
}

// ListAttachmentsByEntry returns an entry's attachments.
func (db *DB) ListAttachmentsByEntry(entryID string) ([]models.Attachment, error) {
	var atts []models.Attachment
	err := db.Where("entry_id = ?", entryID).Order("created_at ASC").Find(&atts).Error
	return atts, err
}

// ListLegacyAttachments returns attachments whose path is still absolute,
// classified by the model so list and migration always agree on what
// counts as legacy.
func (db *DB) ListLegacyAttachments() ([]models.Attachment, error) {
	atts, err := db.ListAttachments()
	if err != nil {
		return nil, err
	}
	legacy := atts[:0]
	for _, a := range atts {
		if a.IsLegacy() {
			legacy = append(legacy, a)
		}
	}
	return legacy, nil
}

// CountLegacyAttachments returns the number of attachments with legacy
// paths. The predicate mirrors models.IsLegacyPath in SQL so the count
// stays a single query: leading slash, leading backslash, or a drive
// letter in the second position. Backslash is not an escape character
// in SQLite LIKE without an ESCAPE clause.
func (db *DB) CountLegacyAttachments() (int64, error) {
	var count int64
	err := db.Model(&models.Attachment{}).
		Where(`path LIKE '/%' OR path LIKE '\%' OR substr(path, 2, 1) = ':'`).
		Count(&count).Error
	return count, err
}

// UpdateAttachmentPath rewrites an attachment's path. Used by the
// migration engine after a verified copy and by the sync engine when it
// applies a downloaded attachment record.
func (db *DB) UpdateAttachmentPath(id, newPath string) error {
	return db.Model(&models.Attachment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"path":       newPath,
			"updated_at": time.Now(),
		}).Error
}

// DeleteAttachment deletes an attachment record.
func (db *DB) DeleteAttachment(id string) error {
	return db.Delete(&models.Attachment{}, "id = ?", id).Error
}
