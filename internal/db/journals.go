package db

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/inkwell-app/inkwell/internal/models"
)

// CreateJournal creates a new journal.
func (db *DB) CreateJournal(journal *models.Journal) error {
	return db.Create(journal).Error
}

// UpsertJournal creates or updates a journal.
func (db *DB) UpsertJournal(journal *models.Journal) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(journal).Error
}

// GetJournal retrieves a journal by ID. Returns nil, nil when not found.
func (db *DB) GetJournal(id string) (*models.Journal, error) {
	var journal models.Journal
	err := db.First(&journal, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &journal, nil
}

// ListJournals returns all journals in display order.
func (db *DB) ListJournals() ([]models.Journal, error) {
	var journals []models.Journal
	err := db.Order("sort_order ASC, name ASC").Find(&journals).Error
	return journals, err
}

// ListJournalsByIDs returns the journals with the given IDs. An empty or
// nil slice returns all journals, matching the sync-scope convention.
func (db *DB) ListJournalsByIDs(ids []string) ([]models.Journal, error) {
	if len(ids) == 0 {
		return db.ListJournals()
	}
	var journals []models.Journal
	err := db.Where("id IN ?", ids).Order("sort_order ASC, name ASC").Find(&journals).Error
	return journals, err
}

// DeleteJournal soft-deletes a journal.
func (db *DB) DeleteJournal(id string) error {
	return db.Delete(&models.Journal{}, "id = ?", id).Error
}
