package models

import (
	"strings"
	"time"
)

// SyncFrequency controls when a configuration is due for an automatic run.
type SyncFrequency string

const (
	FrequencyManual     SyncFrequency = "manual"
	FrequencyOnAppStart SyncFrequency = "on_app_start"
	FrequencyHourly     SyncFrequency = "hourly"
	FrequencyDaily      SyncFrequency = "daily"
	FrequencyWeekly     SyncFrequency = "weekly"
)

// ValidFrequencies returns all valid sync frequencies.
func ValidFrequencies() []SyncFrequency {
	return []SyncFrequency{
		FrequencyManual, FrequencyOnAppStart,
		FrequencyHourly, FrequencyDaily, FrequencyWeekly,
	}
}

// interval returns the minimum gap between automatic runs, or 0 when the
// frequency never triggers on its own.
func (f SyncFrequency) interval() time.Duration {
	switch f {
	case FrequencyHourly:
		return time.Hour
	case FrequencyDaily:
		return 24 * time.Hour
	case FrequencyWeekly:
		return 7 * 24 * time.Hour
	default:
		return 0
	}
}

// SyncConfig is a named remote-endpoint configuration. Credentials are
// stored out-of-band in the credential store, referenced by ID, never
// embedded here.
type SyncConfig struct {
	ID          string `gorm:"primaryKey;size:64" json:"id"`
	DisplayName string `gorm:"size:255" json:"display_name"`

	ServerURL string `gorm:"size:500" json:"server_url"`
	Username  string `gorm:"size:255" json:"username"`

	Enabled    bool       `gorm:"default:true;index" json:"enabled"`
	LastSyncAt *time.Time `json:"last_sync_at"`

	SyncFrequency   SyncFrequency `gorm:"size:20;default:manual" json:"sync_frequency"`
	SyncOnWifiOnly  bool          `gorm:"default:false" json:"sync_on_wifi_only"`
	SyncAttachments bool          `gorm:"default:true" json:"sync_attachments"`
	EncryptData     bool          `gorm:"default:false" json:"encrypt_data"`

	// SyncedJournalIDs is a comma-separated list of journal IDs included
	// in this configuration. Empty means all journals.
	SyncedJournalIDs string `gorm:"size:2000" json:"synced_journal_ids"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (SyncConfig) TableName() string {
	return "sync_configs"
}

// JournalIDs returns the configured journal scope, nil when all journals
// are included.
func (c *SyncConfig) JournalIDs() []string {
	s := strings.TrimSpace(c.SyncedJournalIDs)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}

// IncludesJournal reports whether the given journal is in scope.
func (c *SyncConfig) IncludesJournal(journalID string) bool {
	ids := c.JournalIDs()
	if len(ids) == 0 {
		return true
	}
	for _, id := range ids {
		if id == journalID {
			return true
		}
	}
	return false
}

// Due reports whether an automatic run should happen at now, based on the
// configured frequency and the last successful sync.
func (c *SyncConfig) Due(now time.Time) bool {
	if !c.Enabled {
		return false
	}
	iv := c.SyncFrequency.interval()
	if iv == 0 {
		return false
	}
	if c.LastSyncAt == nil {
		return true
	}
	return now.Sub(*c.LastSyncAt) >= iv
}
