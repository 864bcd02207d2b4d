package models

import "time"

// Entity key prefixes used in the sync manifest. A key identifies one
// tracked entity: a journal's metadata, one journal+period entry bundle,
// or a single attachment.
const (
	KeyPrefixJournal    = "journal:"
	KeyPrefixEntries    = "entries:"
	KeyPrefixAttachment = "attachment:"
)

// JournalKey builds the manifest key for a journal's metadata.
func JournalKey(journalID string) string {
	return KeyPrefixJournal + journalID
}

// EntriesKey builds the manifest key for one journal+period entry bundle.
func EntriesKey(journalID, period string) string {
	return KeyPrefixEntries + journalID + ":" + period
}

// AttachmentKey builds the manifest key for an attachment.
func AttachmentKey(attachmentID string) string {
	return KeyPrefixAttachment + attachmentID
}

// ManifestEntry records the last known synchronized state of one entity
// for one sync configuration. An entry exists only for entities the engine
// has successfully written to or read from the remote at least once;
// absence means "never synced", not "deleted".
//
// Entries are replaced wholesale, never field-patched in place.
type ManifestEntry struct {
	ConfigID  string `gorm:"primaryKey;size:64" json:"config_id"`
	EntityKey string `gorm:"primaryKey;size:200" json:"entity_key"`

	RemotePath       string    `gorm:"size:1000" json:"remote_path"`
	Fingerprint      string    `gorm:"size:64" json:"fingerprint"`
	RemoteVersionTag string    `gorm:"size:64" json:"remote_version_tag"`
	LastSyncedAt     time.Time `json:"last_synced_at"`
}

// TableName specifies the table name for GORM.
func (ManifestEntry) TableName() string {
	return "manifest_entries"
}
