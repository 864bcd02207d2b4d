package models

import (
	"time"

	"gorm.io/gorm"
)

// PeriodFormat is the layout of a bundle period. Entries are grouped into
// one remote document per journal per calendar month.
const PeriodFormat = "2006-01"

// Entry represents a single journal entry.
type Entry struct {
	ID        string `gorm:"primaryKey;size:64" json:"id"`
	JournalID string `gorm:"size:64;index" json:"journal_id"`

	Title string `gorm:"size:500" json:"title"`
	Body  string `gorm:"type:text" json:"body"`
	Mood  string `gorm:"size:50" json:"mood"`
	Tags  string `gorm:"size:1000" json:"tags"` // comma-separated

	// EntryDate is the user-facing date of the entry, distinct from
	// CreatedAt which records when the row was written.
	EntryDate time.Time `gorm:"index" json:"entry_date"`

	// Optional geotag captured at write time.
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Attachments []Attachment `gorm:"foreignKey:EntryID" json:"attachments,omitempty"`
}

// TableName specifies the table name for GORM.
func (Entry) TableName() string {
	return "entries"
}

// Period returns the bundle period this entry belongs to (yyyy-mm of its
// entry date, UTC).
func (e *Entry) Period() string {
	return e.EntryDate.UTC().Format(PeriodFormat)
}
