// Package sync reconciles the local journal store against a remote
// WebDAV-accessible file store. Given local state, remote state, and the
// per-configuration manifest it computes and applies the minimal set of
// uploads and downloads, resolves conflicting edits, and produces a new
// manifest.
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/inkwell-app/inkwell/internal/hash"
	"github.com/inkwell-app/inkwell/internal/models"
	"github.com/inkwell-app/inkwell/internal/webdav"
)

// Remote layout: one root collection per installation, a journals
// metadata document, one entries bundle per journal per period, an index
// document, and an attachment tree mirroring the modern local scheme.
const (
	RemoteRoot      = "/journal_app"
	journalsDocPath = RemoteRoot + "/journals.json"
	indexDocPath    = RemoteRoot + "/index.json"
)

func entriesDocPath(journalID, period string) string {
	return fmt.Sprintf("%s/entries/%s/%s.json", RemoteRoot, journalID, period)
}

func attachmentRemotePath(modernRel string) string {
	return RemoteRoot + "/" + modernRel
}

// journalsDoc is the remote journals-metadata document. One document
// carries every journal; uploads read-modify-write it per journal.
type journalsDoc struct {
	Journals  []models.Journal `json:"journals"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// entriesDoc is one remote entry bundle: all entries of one journal in
// one period, each carrying its attachment records. One upload moves many
// entries; the engine read-modifies-writes the period's document rather
// than one file per entry.
type entriesDoc struct {
	JournalID string         `json:"journal_id"`
	Period    string         `json:"period"`
	Entries   []models.Entry `json:"entries"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// remoteEntity is one row of the remote index document: the last version
// written to the remote for one entity key.
type remoteEntity struct {
	Path       string    `json:"path"`
	VersionTag string    `json:"version_tag"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// remoteIndex is the remote metadata document enumerating everything the
// store holds. Reading one document instead of walking collections keeps
// the checking phase to a handful of round trips.
type remoteIndex struct {
	Version  int                     `json:"version"`
	Entities map[string]remoteEntity `json:"entities"`
}

const indexVersion = 1

func newRemoteIndex() *remoteIndex {
	return &remoteIndex{Version: indexVersion, Entities: make(map[string]remoteEntity)}
}

// readIndex fetches the remote index; an absent index means an empty
// remote store.
func readIndex(ctx context.Context, t webdav.Transport) (*remoteIndex, error) {
	data, err := t.Read(ctx, indexDocPath)
	if err != nil {
		if errors.Is(err, webdav.ErrNotFound) {
			return newRemoteIndex(), nil
		}
		return nil, fmt.Errorf("read remote index: %w", err)
	}
	idx := newRemoteIndex()
	if err := json.Unmarshal(data, idx); err != nil {
		return nil, fmt.Errorf("parse remote index: %w", err)
	}
	if idx.Entities == nil {
		idx.Entities = make(map[string]remoteEntity)
	}
	return idx, nil
}

// writeIndex persists the remote index document.
func writeIndex(ctx context.Context, t webdav.Transport, idx *remoteIndex) error {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal remote index: %w", err)
	}
	if err := t.Write(ctx, indexDocPath, data); err != nil {
		return fmt.Errorf("write remote index: %w", err)
	}
	return nil
}

// readJournalsDoc fetches the journals metadata document; absent means
// empty.
func readJournalsDoc(ctx context.Context, t webdav.Transport) (*journalsDoc, error) {
	data, err := t.Read(ctx, journalsDocPath)
	if err != nil {
		if errors.Is(err, webdav.ErrNotFound) {
			return &journalsDoc{}, nil
		}
		return nil, fmt.Errorf("read journals document: %w", err)
	}
	var doc journalsDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse journals document: %w", err)
	}
	return &doc, nil
}

// upsertJournal replaces one journal's record within the document,
// keeping the rest untouched.
func (d *journalsDoc) upsertJournal(j models.Journal) {
	for i := range d.Journals {
		if d.Journals[i].ID == j.ID {
			d.Journals[i] = j
			d.sort()
			return
		}
	}
	d.Journals = append(d.Journals, j)
	d.sort()
}

func (d *journalsDoc) find(journalID string) *models.Journal {
	for i := range d.Journals {
		if d.Journals[i].ID == journalID {
			return &d.Journals[i]
		}
	}
	return nil
}

func (d *journalsDoc) sort() {
	sort.Slice(d.Journals, func(i, j int) bool { return d.Journals[i].ID < d.Journals[j].ID })
}

func (d *journalsDoc) marshal() ([]byte, error) {
	d.sort()
	return json.MarshalIndent(d, "", "  ")
}

// readEntriesDoc fetches one entry bundle; absent means empty.
func readEntriesDoc(ctx context.Context, t webdav.Transport, journalID, period string) (*entriesDoc, error) {
	data, err := t.Read(ctx, entriesDocPath(journalID, period))
	if err != nil {
		if errors.Is(err, webdav.ErrNotFound) {
			return &entriesDoc{JournalID: journalID, Period: period}, nil
		}
		return nil, fmt.Errorf("read entries bundle %s/%s: %w", journalID, period, err)
	}
	var doc entriesDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse entries bundle %s/%s: %w", journalID, period, err)
	}
	return &doc, nil
}

// mergeEntries folds local entries over the remote bundle by entry ID,
// keeping remote-only entries so an upload never drops another device's
// work, then recomputes the bundle timestamp.
func (d *entriesDoc) mergeEntries(local []models.Entry) {
	byID := make(map[string]int, len(d.Entries))
	for i := range d.Entries {
		byID[d.Entries[i].ID] = i
	}
	for _, e := range local {
		if i, ok := byID[e.ID]; ok {
			d.Entries[i] = e
		} else {
			d.Entries = append(d.Entries, e)
		}
	}
	sort.Slice(d.Entries, func(i, j int) bool { return d.Entries[i].ID < d.Entries[j].ID })

	d.UpdatedAt = time.Time{}
	for i := range d.Entries {
		if d.Entries[i].UpdatedAt.After(d.UpdatedAt) {
			d.UpdatedAt = d.Entries[i].UpdatedAt
		}
	}
}

func (d *entriesDoc) marshal() ([]byte, error) {
	sort.Slice(d.Entries, func(i, j int) bool { return d.Entries[i].ID < d.Entries[j].ID })
	return json.MarshalIndent(d, "", "  ")
}

// journalFingerprint hashes the synchronized fields of a journal record.
func journalFingerprint(j *models.Journal) string {
	payload, _ := json.Marshal(struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		Color     string    `json:"color"`
		Icon      string    `json:"icon"`
		SortOrder int       `json:"sort_order"`
		UpdatedAt time.Time `json:"updated_at"`
	}{j.ID, j.Name, j.Color, j.Icon, j.SortOrder, j.UpdatedAt.UTC()})
	return hash.Fingerprint(payload)
}

// entriesFingerprint hashes an entry bundle, entries sorted by ID so the
// fingerprint is independent of query order.
func entriesFingerprint(entries []models.Entry) string {
	sorted := make([]models.Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	payload, _ := json.Marshal(sorted)
	return hash.Fingerprint(payload)
}

// attachmentFingerprint hashes the synchronized metadata of an
// attachment. Content bytes are addressed by path; the fingerprint only
// has to notice record-level change.
func attachmentFingerprint(a *models.Attachment) string {
	payload, _ := json.Marshal(struct {
		ID       string `json:"id"`
		EntryID  string `json:"entry_id"`
		Type     string `json:"type"`
		Name     string `json:"name"`
		Path     string `json:"path"`
		Size     int64  `json:"size"`
		MimeType string `json:"mime_type"`
	}{a.ID, a.EntryID, string(a.Type), a.Name, a.ModernPath(), a.Size, a.MimeType})
	return hash.Fingerprint(payload)
}
