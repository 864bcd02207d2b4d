package sync

import (
	"fmt"
	"time"

	"github.com/inkwell-app/inkwell/internal/db"
	"github.com/inkwell-app/inkwell/internal/models"
)

// entityKind discriminates what a snapshot entity carries.
type entityKind int

const (
	kindJournal entityKind = iota
	kindEntries
	kindAttachment
)

// entity is one tracked unit of the local snapshot: a journal's
// metadata, one journal+period entry bundle, or one attachment.
type entity struct {
	Key        string
	Kind       entityKind
	RemotePath string

	// Fingerprint of the local content, used against the manifest to
	// detect local change without touching the network.
	Fingerprint string

	// UpdatedAt is the entity's last local modification, the input to
	// last-write-wins conflict resolution.
	UpdatedAt time.Time

	Journal    *models.Journal
	JournalID  string
	Period     string
	Entries    []models.Entry
	Attachment *models.Attachment
}

// buildSnapshot enumerates local entities scoped by the configuration's
// journal set. Attachment entities are included only when the
// configuration syncs attachments.
func buildSnapshot(database *db.DB, cfg *models.SyncConfig) ([]entity, error) {
	journals, err := database.ListJournalsByIDs(cfg.JournalIDs())
	if err != nil {
		return nil, fmt.Errorf("list journals: %w", err)
	}

	var entities []entity

	for i := range journals {
		j := journals[i]
		entities = append(entities, entity{
			Key:         models.JournalKey(j.ID),
			Kind:        kindJournal,
			RemotePath:  journalsDocPath,
			Fingerprint: journalFingerprint(&j),
			UpdatedAt:   j.UpdatedAt,
			Journal:     &j,
			JournalID:   j.ID,
		})

		periods, err := database.ListEntryPeriods(j.ID)
		if err != nil {
			return nil, fmt.Errorf("list periods for %s: %w", j.ID, err)
		}
		for _, period := range periods {
			entries, err := database.ListEntriesByPeriod(j.ID, period)
			if err != nil {
				return nil, fmt.Errorf("list entries %s/%s: %w", j.ID, period, err)
			}
			for k := range entries {
				atts, err := database.ListAttachmentsByEntry(entries[k].ID)
				if err != nil {
					return nil, fmt.Errorf("list attachments for %s: %w", entries[k].ID, err)
				}
				entries[k].Attachments = atts
			}
			entities = append(entities, entity{
				Key:         models.EntriesKey(j.ID, period),
				Kind:        kindEntries,
				RemotePath:  entriesDocPath(j.ID, period),
				Fingerprint: entriesFingerprint(entries),
				UpdatedAt:   latestUpdate(entries),
				JournalID:   j.ID,
				Period:      period,
				Entries:     entries,
			})

			if !cfg.SyncAttachments {
				continue
			}
			for k := range entries {
				for a := range entries[k].Attachments {
					att := entries[k].Attachments[a]
					entities = append(entities, entity{
						Key:         models.AttachmentKey(att.ID),
						Kind:        kindAttachment,
						RemotePath:  attachmentRemotePath(att.ModernPath()),
						Fingerprint: attachmentFingerprint(&att),
						UpdatedAt:   att.UpdatedAt,
						JournalID:   j.ID,
						Attachment:  &att,
					})
				}
			}
		}
	}

	return entities, nil
}

func latestUpdate(entries []models.Entry) time.Time {
	var latest time.Time
	for i := range entries {
		if entries[i].UpdatedAt.After(latest) {
			latest = entries[i].UpdatedAt
		}
	}
	return latest
}
