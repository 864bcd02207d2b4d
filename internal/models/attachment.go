package models

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// AttachmentType categorizes attachment content.
type AttachmentType string

const (
	AttachmentPhoto    AttachmentType = "photo"
	AttachmentAudio    AttachmentType = "audio"
	AttachmentFile     AttachmentType = "file"
	AttachmentLocation AttachmentType = "location"
)

// TypeDir returns the top-level storage directory for this attachment type.
func (t AttachmentType) TypeDir() string {
	switch t {
	case AttachmentPhoto:
		return "images"
	case AttachmentAudio:
		return "audio"
	case AttachmentLocation:
		return "locations"
	default:
		return "documents"
	}
}

// Attachment represents a file attached to an entry.
type Attachment struct {
	ID      string `gorm:"primaryKey;size:64" json:"id"`
	EntryID string `gorm:"size:64;index" json:"entry_id"`

	Type AttachmentType `gorm:"size:20;index" json:"type"`
	Name string         `gorm:"size:255" json:"name"`

	// Path is either Legacy (absolute, platform-specific) or Modern
	// (relative, content-organized). Migration only ever rewrites
	// Legacy to Modern, never the reverse.
	Path string `gorm:"size:1000" json:"path"`

	Size     int64  `gorm:"default:0" json:"size"`
	MimeType string `gorm:"size:100" json:"mime_type"`
	Metadata string `gorm:"type:text" json:"metadata"` // JSON map<string,string>

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (Attachment) TableName() string {
	return "attachments"
}

// IsLegacyPath reports whether p is an absolute, pre-migration path.
// Windows drive-letter paths ("C:\...", "C:/...") count as Legacy even
// when classified on a non-Windows host, since the store may have been
// imported from another device.
func IsLegacyPath(p string) bool {
	if p == "" {
		return false
	}
	if strings.HasPrefix(p, "/") || strings.HasPrefix(p, "\\") {
		return true
	}
	// Drive-letter colon, e.g. "C:\Users\...".
	if len(p) >= 2 && p[1] == ':' {
		return true
	}
	return false
}

// IsModernPath reports whether p is a relative, content-organized path.
func IsModernPath(p string) bool {
	return p != "" && !IsLegacyPath(p)
}

// IsLegacy reports whether the attachment still carries a Legacy path.
func (a *Attachment) IsLegacy() bool {
	return IsLegacyPath(a.Path)
}

// ModernPath synthesizes the content-organized relative path for this
// attachment: {typeDir}/{yyyy}/{mm}/{dd}/{entryID}/{filename}. The path is
// scoped by entry ID, so two attachments never collide at the target even
// when their filenames do.
func (a *Attachment) ModernPath() string {
	name := a.Name
	if name == "" {
		name = baseName(a.Path)
	}
	t := a.CreatedAt.UTC()
	return fmt.Sprintf("%s/%04d/%02d/%02d/%s/%s",
		a.Type.TypeDir(), t.Year(), int(t.Month()), t.Day(), a.EntryID, name)
}

// baseName extracts the final path element regardless of which platform's
// separator the stored path uses.
func baseName(p string) string {
	return path.Base(strings.ReplaceAll(p, "\\", "/"))
}
