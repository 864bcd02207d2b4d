package sync

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/inkwell-app/inkwell/internal/log"
	"github.com/inkwell-app/inkwell/internal/models"
	"github.com/inkwell-app/inkwell/internal/webdav"
)

// applyUpload pushes one entity's local state to the remote. The manifest
// entry is written only after the remote operation is confirmed; a
// failure leaves the manifest untouched.
func (e *Engine) applyUpload(ctx context.Context, transport webdav.Transport, cfg *models.SyncConfig, o *op, idx *remoteIndex) error {
	switch o.kind {
	case kindJournal:
		return e.uploadJournal(ctx, transport, cfg, o, idx)
	case kindEntries:
		return e.uploadEntries(ctx, transport, cfg, o, idx)
	default:
		return e.uploadAttachment(ctx, transport, cfg, o, idx)
	}
}

func (e *Engine) uploadJournal(ctx context.Context, transport webdav.Transport, cfg *models.SyncConfig, o *op, idx *remoteIndex) error {
	doc, err := readJournalsDoc(ctx, transport)
	if err != nil {
		return err
	}
	doc.upsertJournal(*o.entity.Journal)
	doc.UpdatedAt = time.Now().UTC()

	data, err := doc.marshal()
	if err != nil {
		return fmt.Errorf("marshal journals document: %w", err)
	}
	if err := transport.Write(ctx, journalsDocPath, data); err != nil {
		return fmt.Errorf("write journals document: %w", err)
	}

	tag := o.entity.Fingerprint
	e.commit(cfg.ID, o.key, journalsDocPath, tag, tag, o.entity.UpdatedAt, idx)
	return nil
}

func (e *Engine) uploadEntries(ctx context.Context, transport webdav.Transport, cfg *models.SyncConfig, o *op, idx *remoteIndex) error {
	doc, err := readEntriesDoc(ctx, transport, o.entity.JournalID, o.entity.Period)
	if err != nil {
		return err
	}

	// Entries present only on the remote (created by another device and
	// never seen here) survive the merge and are adopted locally, so an
	// upload never erases another device's work.
	localIDs := make(map[string]bool, len(o.entity.Entries))
	for i := range o.entity.Entries {
		localIDs[o.entity.Entries[i].ID] = true
	}
	var remoteOnly []models.Entry
	for i := range doc.Entries {
		if !localIDs[doc.Entries[i].ID] {
			remoteOnly = append(remoteOnly, doc.Entries[i])
		}
	}

	doc.mergeEntries(o.entity.Entries)

	data, err := doc.marshal()
	if err != nil {
		return fmt.Errorf("marshal entries bundle: %w", err)
	}
	docPath := entriesDocPath(o.entity.JournalID, o.entity.Period)
	if err := transport.Mkdir(ctx, path.Dir(docPath)); err != nil {
		return fmt.Errorf("prepare entries collection: %w", err)
	}
	if err := transport.Write(ctx, docPath, data); err != nil {
		return fmt.Errorf("write entries bundle: %w", err)
	}

	if err := e.applyEntriesLocally(remoteOnly); err != nil {
		return fmt.Errorf("adopt remote entries: %w", err)
	}

	fp, updatedAt, err := e.localEntriesFingerprint(o.entity.JournalID, o.entity.Period)
	if err != nil {
		return err
	}
	e.commit(cfg.ID, o.key, docPath, fp, fp, updatedAt, idx)
	return nil
}

func (e *Engine) uploadAttachment(ctx context.Context, transport webdav.Transport, cfg *models.SyncConfig, o *op, idx *remoteIndex) error {
	attID := strings.TrimPrefix(o.key, models.KeyPrefixAttachment)

	e.attLock.Acquire(attID)
	defer e.attLock.Release(attID)

	// Re-read inside the lock; a concurrent migration may have rewritten
	// the path since the snapshot was taken.
	att, err := e.db.GetAttachment(attID)
	if err != nil {
		return fmt.Errorf("reload attachment: %w", err)
	}
	if att == nil {
		return fmt.Errorf("attachment %s vanished from store", attID)
	}

	data, err := os.ReadFile(e.resolveLocal(att.Path))
	if err != nil {
		return fmt.Errorf("read attachment bytes: %w", err)
	}

	remotePath := attachmentRemotePath(att.ModernPath())
	if err := transport.Mkdir(ctx, path.Dir(remotePath)); err != nil {
		return fmt.Errorf("prepare attachment collection: %w", err)
	}
	if err := transport.Write(ctx, remotePath, data); err != nil {
		return fmt.Errorf("write attachment bytes: %w", err)
	}

	fp := attachmentFingerprint(att)
	e.commit(cfg.ID, o.key, remotePath, fp, fp, att.UpdatedAt, idx)
	return nil
}

// applyDownload applies one entity's remote state locally.
func (e *Engine) applyDownload(ctx context.Context, transport webdav.Transport, cfg *models.SyncConfig, o *op) error {
	switch o.kind {
	case kindJournal:
		return e.downloadJournal(ctx, transport, cfg, o)
	case kindEntries:
		return e.downloadEntries(ctx, transport, cfg, o)
	default:
		return e.downloadAttachment(ctx, transport, cfg, o)
	}
}

func (e *Engine) downloadJournal(ctx context.Context, transport webdav.Transport, cfg *models.SyncConfig, o *op) error {
	journalID := strings.TrimPrefix(o.key, models.KeyPrefixJournal)

	doc, err := readJournalsDoc(ctx, transport)
	if err != nil {
		return err
	}
	j := doc.find(journalID)
	if j == nil {
		return fmt.Errorf("journal %s missing from remote document", journalID)
	}
	if err := e.db.UpsertJournal(j); err != nil {
		return fmt.Errorf("apply journal: %w", err)
	}

	e.saveManifestEntry(cfg.ID, o.key, journalsDocPath, journalFingerprint(j), o.remote.VersionTag)
	return nil
}

func (e *Engine) downloadEntries(ctx context.Context, transport webdav.Transport, cfg *models.SyncConfig, o *op) error {
	journalID, period, err := parseEntriesKey(o.key)
	if err != nil {
		return err
	}

	doc, err := readEntriesDoc(ctx, transport, journalID, period)
	if err != nil {
		return err
	}
	if err := e.applyEntriesLocally(doc.Entries); err != nil {
		return fmt.Errorf("apply entries: %w", err)
	}

	// Fingerprint from the local store after application, so the next
	// snapshot sees this entity as unchanged.
	fp, _, err := e.localEntriesFingerprint(journalID, period)
	if err != nil {
		return err
	}
	e.saveManifestEntry(cfg.ID, o.key, entriesDocPath(journalID, period), fp, o.remote.VersionTag)
	return nil
}

func (e *Engine) downloadAttachment(ctx context.Context, transport webdav.Transport, cfg *models.SyncConfig, o *op) error {
	attID := strings.TrimPrefix(o.key, models.KeyPrefixAttachment)

	e.attLock.Acquire(attID)
	defer e.attLock.Release(attID)

	att, err := e.db.GetAttachment(attID)
	if err != nil {
		return fmt.Errorf("reload attachment: %w", err)
	}
	if att == nil {
		// The record travels in its entry bundle, which sorts before
		// attachment bytes; a missing record means the bundle download
		// failed or the remote is inconsistent.
		return fmt.Errorf("no local record for attachment %s", attID)
	}

	remotePath := o.remote.Path
	if remotePath == "" {
		remotePath = attachmentRemotePath(att.ModernPath())
	}
	data, err := transport.Read(ctx, remotePath)
	if err != nil {
		return fmt.Errorf("read attachment bytes: %w", err)
	}

	modernRel := att.ModernPath()
	dest := filepath.Join(e.attachmentsRoot, filepath.FromSlash(modernRel))
	if err := writeFileAtomic(dest, data); err != nil {
		return fmt.Errorf("store attachment bytes: %w", err)
	}

	if att.Path != modernRel {
		if err := e.db.UpdateAttachmentPath(attID, modernRel); err != nil {
			return fmt.Errorf("update attachment path: %w", err)
		}
		att.Path = modernRel
	}

	e.saveManifestEntry(cfg.ID, o.key, remotePath, attachmentFingerprint(att), o.remote.VersionTag)
	return nil
}

// applyEntriesLocally upserts entries and their attachment records.
// Attachment rows are written under the shared per-attachment lock so a
// concurrent migration of the same attachment serializes.
func (e *Engine) applyEntriesLocally(entries []models.Entry) error {
	for i := range entries {
		entry := entries[i]
		atts := entry.Attachments
		entry.Attachments = nil
		if err := e.db.UpsertEntry(&entry); err != nil {
			return fmt.Errorf("upsert entry %s: %w", entry.ID, err)
		}
		for a := range atts {
			att := atts[a]
			e.attLock.Acquire(att.ID)
			err := e.db.UpsertAttachment(&att)
			e.attLock.Release(att.ID)
			if err != nil {
				return fmt.Errorf("upsert attachment %s: %w", att.ID, err)
			}
		}
	}
	return nil
}

// localEntriesFingerprint recomputes a bundle's fingerprint from the
// local store.
func (e *Engine) localEntriesFingerprint(journalID, period string) (string, time.Time, error) {
	entries, err := e.db.ListEntriesByPeriod(journalID, period)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("reload entries: %w", err)
	}
	for i := range entries {
		atts, err := e.db.ListAttachmentsByEntry(entries[i].ID)
		if err != nil {
			return "", time.Time{}, fmt.Errorf("reload attachments: %w", err)
		}
		entries[i].Attachments = atts
	}
	return entriesFingerprint(entries), latestUpdate(entries), nil
}

// commit records a confirmed upload: manifest entry locally, index row
// for the remote.
func (e *Engine) commit(configID, key, remotePath, fingerprint, tag string, updatedAt time.Time, idx *remoteIndex) {
	e.saveManifestEntry(configID, key, remotePath, fingerprint, tag)
	idx.Entities[key] = remoteEntity{Path: remotePath, VersionTag: tag, UpdatedAt: updatedAt}
}

func (e *Engine) saveManifestEntry(configID, key, remotePath, fingerprint, tag string) {
	entry := &models.ManifestEntry{
		ConfigID:         configID,
		EntityKey:        key,
		RemotePath:       remotePath,
		Fingerprint:      fingerprint,
		RemoteVersionTag: tag,
		LastSyncedAt:     time.Now().UTC(),
	}
	if err := e.db.SaveManifestEntry(entry); err != nil {
		// A lost manifest write costs one redundant transfer next run.
		log.Errorf("save manifest entry %s: %v", key, err)
	}
}

// resolveLocal maps an attachment path to the local filesystem: legacy
// paths are already absolute, modern ones live under the root.
func (e *Engine) resolveLocal(p string) string {
	if models.IsLegacyPath(p) {
		return p
	}
	return filepath.Join(e.attachmentsRoot, filepath.FromSlash(p))
}

// parseEntriesKey splits "entries:<journalID>:<period>".
func parseEntriesKey(key string) (journalID, period string, err error) {
	rest := strings.TrimPrefix(key, models.KeyPrefixEntries)
	i := strings.LastIndex(rest, ":")
	if i <= 0 || i == len(rest)-1 {
		return "", "", fmt.Errorf("malformed entries key %q", key)
	}
	return rest[:i], rest[i+1:], nil
}

// writeFileAtomic writes data via a temp file and rename so no partial
// file is ever visible at the destination.
func writeFileAtomic(dest string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".sync-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, dest); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
