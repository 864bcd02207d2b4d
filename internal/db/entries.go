package db

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/inkwell-app/inkwell/internal/models"
)

// CreateEntry creates a new entry.
func (db *DB) CreateEntry(entry *models.Entry) error {
	return db.Create(entry).Error
}

// UpsertEntry creates or updates an entry.
func (db *DB) UpsertEntry(entry *models.Entry) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(entry).Error
}

// GetEntry retrieves an entry by ID. Returns nil, nil when not found.
func (db *DB) GetEntry(id string) (*models.Entry, error) {
	var entry models.Entry
	err := db.First(&entry, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// ListEntries returns all entries of a journal, newest first.
func (db *DB) ListEntries(journalID string) ([]models.Entry, error) {
	var entries []models.Entry
	err := db.Where("journal_id = ?", journalID).
		Order("entry_date DESC").
		Find(&entries).Error
	return entries, err
}

// ListEntriesByPeriod returns a journal's entries whose entry date falls
// within the given yyyy-mm period, ordered by ID for stable bundling.
func (db *DB) ListEntriesByPeriod(journalID, period string) ([]models.Entry, error) {
	start, err := time.ParseInLocation(models.PeriodFormat, period, time.UTC)
	if err != nil {
		return nil, err
	}
	end := start.AddDate(0, 1, 0)

	var entries []models.Entry
	err = db.Where("journal_id = ? AND entry_date >= ? AND entry_date < ?", journalID, start, end).
		Order("id ASC").
		Find(&entries).Error
	return entries, err
}

// ListEntryPeriods returns the distinct yyyy-mm periods a journal has
// entries in.
func (db *DB) ListEntryPeriods(journalID string) ([]string, error) {
	entries, err := db.ListEntries(journalID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var periods []string
	for i := range entries {
		p := entries[i].Period()
		if !seen[p] {
			seen[p] = true
			periods = append(periods, p)
		}
	}
	return periods, nil
}

// DeleteEntry soft-deletes an entry.
func (db *DB) DeleteEntry(id string) error {
	return db.Delete(&models.Entry{}, "id = ?", id).Error
}
