// Package models defines the core data structures for Inkwell.
package models

import (
	"time"

	"gorm.io/gorm"
)

// Journal represents a named collection of entries.
type Journal struct {
	ID   string `gorm:"primaryKey;size:64" json:"id"`
	Name string `gorm:"size:255;index" json:"name"`

	// Presentation hints stored alongside the data so they travel
	// between devices with the journal itself.
	Color     string `gorm:"size:20" json:"color"`
	Icon      string `gorm:"size:50" json:"icon"`
	SortOrder int    `gorm:"default:0" json:"sort_order"`

	// Timestamps (GORM auto-manages CreatedAt/UpdatedAt)
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Entries []Entry `gorm:"foreignKey:JournalID" json:"-"`
}

// TableName specifies the table name for GORM.
func (Journal) TableName() string {
	return "journals"
}
