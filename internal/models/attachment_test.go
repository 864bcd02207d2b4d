package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsLegacyPath(t *testing.T) {
	tests := []struct {
		path   string
		legacy bool
	}{
		{"/var/mobile/Containers/Data/photo.jpg", true},
		{"/home/user/journal/audio.m4a", true},
		{`C:\Users\me\Pictures\photo.jpg`, true},
		{"C:/Users/me/Pictures/photo.jpg", true},
		{`\\server\share\file.pdf`, true},
		{"images/2024/03/15/entry-1/photo.jpg", false},
		{"documents/2023/01/02/entry-9/scan.pdf", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.legacy, IsLegacyPath(tt.path))
			if tt.path != "" {
				assert.Equal(t, !tt.legacy, IsModernPath(tt.path))
			}
		})
	}

	// The empty path is neither: there is nothing to classify.
	assert.False(t, IsModernPath(""))
}

func TestModernPath(t *testing.T) {
	a := &Attachment{
		ID:        "att-1",
		EntryID:   "entry-42",
		Type:      AttachmentPhoto,
		Name:      "sunset.jpg",
		Path:      "/old/absolute/sunset.jpg",
		CreatedAt: time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC),
	}

	assert.Equal(t, "images/2024/03/05/entry-42/sunset.jpg", a.ModernPath())
}

func TestModernPath_NameFallsBackToPath(t *testing.T) {
	a := &Attachment{
		ID:        "att-2",
		EntryID:   "entry-7",
		Type:      AttachmentAudio,
		Path:      `C:\Users\me\Music\memo.m4a`,
		CreatedAt: time.Date(2023, 12, 31, 23, 0, 0, 0, time.UTC),
	}

	assert.Equal(t, "audio/2023/12/31/entry-7/memo.m4a", a.ModernPath())
}

func TestModernPath_EntryScopePreventsCollisions(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a := &Attachment{ID: "a", EntryID: "e1", Type: AttachmentFile, Name: "doc.pdf", CreatedAt: created}
	b := &Attachment{ID: "b", EntryID: "e2", Type: AttachmentFile, Name: "doc.pdf", CreatedAt: created}

	assert.NotEqual(t, a.ModernPath(), b.ModernPath())
}

func TestTypeDir(t *testing.T) {
	assert.Equal(t, "images", AttachmentPhoto.TypeDir())
	assert.Equal(t, "audio", AttachmentAudio.TypeDir())
	assert.Equal(t, "documents", AttachmentFile.TypeDir())
	assert.Equal(t, "locations", AttachmentLocation.TypeDir())
	assert.Equal(t, "documents", AttachmentType("unknown").TypeDir())
}

func TestEntryPeriod(t *testing.T) {
	e := &Entry{EntryDate: time.Date(2024, 7, 9, 22, 15, 0, 0, time.UTC)}
	assert.Equal(t, "2024-07", e.Period())
}
