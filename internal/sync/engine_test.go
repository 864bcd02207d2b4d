package sync

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-app/inkwell/internal/cred"
	"github.com/inkwell-app/inkwell/internal/db"
	"github.com/inkwell-app/inkwell/internal/models"
	"github.com/inkwell-app/inkwell/internal/webdav"
)

type syncEnv struct {
	db      *db.DB
	creds   *cred.Store
	mem     *webdav.Memory
	engine  *Engine
	cfg     *models.SyncConfig
	attRoot string
}

func newSyncEnv(t *testing.T) *syncEnv {
	t.Helper()

	database, err := db.New(db.DefaultConfig(filepath.Join(t.TempDir(), "test.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	creds, err := cred.New(t.TempDir())
	require.NoError(t, err)

	mem := webdav.NewMemory()
	attRoot := t.TempDir()
	engine := New(database, creds, func(_, _, _ string) webdav.Transport { return mem }, attRoot, nil)

	cfg := &models.SyncConfig{
		ID:              "cfg1",
		DisplayName:     "Home NAS",
		ServerURL:       "https://dav.example.com/remote.php/dav",
		Username:        "alice",
		Enabled:         true,
		SyncAttachments: true,
		SyncFrequency:   models.FrequencyManual,
	}
	require.NoError(t, database.CreateSyncConfig(cfg))
	require.NoError(t, creds.Save(cfg.ID, "hunter2"))

	return &syncEnv{db: database, creds: creds, mem: mem, engine: engine, cfg: cfg, attRoot: attRoot}
}

var seedTime = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

// seedLocal populates one journal with two entries in the same period and
// one attachment whose bytes exist at its modern local path.
func (env *syncEnv) seedLocal(t *testing.T) *models.Attachment {
	t.Helper()

	require.NoError(t, env.db.CreateJournal(&models.Journal{
		ID: "j1", Name: "Travel", CreatedAt: seedTime, UpdatedAt: seedTime,
	}))
	require.NoError(t, env.db.CreateEntry(&models.Entry{
		ID: "e1", JournalID: "j1", Title: "Day one", Body: "Arrived late.",
		EntryDate: seedTime, CreatedAt: seedTime, UpdatedAt: seedTime,
	}))
	require.NoError(t, env.db.CreateEntry(&models.Entry{
		ID: "e2", JournalID: "j1", Title: "Day two", Body: "Rain all day.",
		EntryDate: seedTime.AddDate(0, 0, 1), CreatedAt: seedTime, UpdatedAt: seedTime,
	}))

	att := &models.Attachment{
		ID: "a1", EntryID: "e1", Type: models.AttachmentPhoto, Name: "sunset.jpg",
		Size: 9, MimeType: "image/jpeg", CreatedAt: seedTime, UpdatedAt: seedTime,
	}
	att.Path = att.ModernPath()
	require.NoError(t, env.db.CreateAttachment(att))

	dest := filepath.Join(env.attRoot, filepath.FromSlash(att.Path))
	require.NoError(t, os.MkdirAll(filepath.Dir(dest), 0755))
	require.NoError(t, os.WriteFile(dest, []byte("jpeg data"), 0644))
	return att
}

func TestPerformSyncUploadsFreshStore(t *testing.T) {
	env := newSyncEnv(t)
	att := env.seedLocal(t)

	status, err := env.engine.PerformSync(context.Background(), env.cfg.ID, nil)
	require.NoError(t, err)

	assert.Equal(t, models.StateCompleted, status.State)
	assert.Equal(t, 1.0, status.Progress)
	assert.Empty(t, status.ErrorMessage)
	assert.Contains(t, status.Message, "3 uploads")

	_, ok := env.mem.Get(journalsDocPath)
	assert.True(t, ok, "journals document uploaded")
	_, ok = env.mem.Get(entriesDocPath("j1", "2024-03"))
	assert.True(t, ok, "entries bundle uploaded")
	_, ok = env.mem.Get(attachmentRemotePath(att.ModernPath()))
	assert.True(t, ok, "attachment bytes uploaded")

	data, ok := env.mem.Get(indexDocPath)
	require.True(t, ok, "remote index written")
	var idx remoteIndex
	require.NoError(t, json.Unmarshal(data, &idx))
	assert.Len(t, idx.Entities, 3)

	manifest, err := env.db.LoadManifest(env.cfg.ID)
	require.NoError(t, err)
	assert.Len(t, manifest, 3)

	cfg, err := env.db.GetSyncConfig(env.cfg.ID)
	require.NoError(t, err)
	assert.NotNil(t, cfg.LastSyncAt)
}

func TestSecondRunTransfersNothing(t *testing.T) {
	env := newSyncEnv(t)
	env.seedLocal(t)

	_, err := env.engine.PerformSync(context.Background(), env.cfg.ID, nil)
	require.NoError(t, err)
	env.mem.ResetCounters()

	status, err := env.engine.PerformSync(context.Background(), env.cfg.ID, nil)
	require.NoError(t, err)

	assert.Equal(t, models.StateCompleted, status.State)
	assert.Contains(t, status.Message, "0 entities")
	assert.Zero(t, env.mem.Writes, "no remote writes on an unchanged store")
}

func TestRemoteOnlyChangeDownloads(t *testing.T) {
	env := newSyncEnv(t)
	env.seedLocal(t)

	_, err := env.engine.PerformSync(context.Background(), env.cfg.ID, nil)
	require.NoError(t, err)

	// Another device renames the journal: rewrite the remote document and
	// bump its version tag in the index.
	data, ok := env.mem.Get(journalsDocPath)
	require.True(t, ok)
	var doc journalsDoc
	require.NoError(t, json.Unmarshal(data, &doc))
	doc.Journals[0].Name = "Travel 2024"
	doc.Journals[0].UpdatedAt = seedTime.Add(time.Hour)
	updated, err := doc.marshal()
	require.NoError(t, err)
	env.mem.Put(journalsDocPath, updated)

	idxData, ok := env.mem.Get(indexDocPath)
	require.True(t, ok)
	var idx remoteIndex
	require.NoError(t, json.Unmarshal(idxData, &idx))
	key := models.JournalKey("j1")
	idx.Entities[key] = remoteEntity{
		Path: journalsDocPath, VersionTag: "device-b-tag", UpdatedAt: seedTime.Add(time.Hour),
	}
	require.NoError(t, writeIndex(context.Background(), env.mem, &idx))

	env.mem.ResetCounters()
	status, err := env.engine.PerformSync(context.Background(), env.cfg.ID, nil)
	require.NoError(t, err)

	assert.Equal(t, models.StateCompleted, status.State)
	assert.Contains(t, status.Message, "1 downloads")
	assert.Contains(t, status.Message, "0 uploads")
	assert.Zero(t, env.mem.Writes, "downloads never write to the remote")

	journal, err := env.db.GetJournal("j1")
	require.NoError(t, err)
	assert.Equal(t, "Travel 2024", journal.Name)

	manifest, err := env.db.LoadManifest(env.cfg.ID)
	require.NoError(t, err)
	assert.Equal(t, "device-b-tag", manifest[key].RemoteVersionTag)
}

func TestDownloadIntoEmptyStore(t *testing.T) {
	env := newSyncEnv(t)

	// Seed a remote store produced by another device: journal metadata,
	// one entry bundle carrying an attachment record, the attachment
	// bytes, and the index enumerating all three.
	journal := models.Journal{ID: "j9", Name: "Remote", CreatedAt: seedTime, UpdatedAt: seedTime}
	att := models.Attachment{
		ID: "a9", EntryID: "e9", Type: models.AttachmentPhoto, Name: "peak.jpg",
		Size: 8, MimeType: "image/jpeg", CreatedAt: seedTime, UpdatedAt: seedTime,
	}
	att.Path = att.ModernPath()
	entry := models.Entry{
		ID: "e9", JournalID: "j9", Title: "Summit", EntryDate: seedTime,
		CreatedAt: seedTime, UpdatedAt: seedTime,
		Attachments: []models.Attachment{att},
	}

	jdoc := &journalsDoc{Journals: []models.Journal{journal}, UpdatedAt: seedTime}
	data, err := jdoc.marshal()
	require.NoError(t, err)
	env.mem.Put(journalsDocPath, data)

	edoc := &entriesDoc{JournalID: "j9", Period: "2024-03", Entries: []models.Entry{entry}}
	data, err = edoc.marshal()
	require.NoError(t, err)
	env.mem.Put(entriesDocPath("j9", "2024-03"), data)

	env.mem.Put(attachmentRemotePath(att.ModernPath()), []byte("png data"))

	idx := newRemoteIndex()
	idx.Entities[models.JournalKey("j9")] = remoteEntity{
		Path: journalsDocPath, VersionTag: "t-j", UpdatedAt: seedTime,
	}
	idx.Entities[models.EntriesKey("j9", "2024-03")] = remoteEntity{
		Path: entriesDocPath("j9", "2024-03"), VersionTag: "t-e", UpdatedAt: seedTime,
	}
	idx.Entities[models.AttachmentKey("a9")] = remoteEntity{
		Path: attachmentRemotePath(att.ModernPath()), VersionTag: "t-a", UpdatedAt: seedTime,
	}
	require.NoError(t, writeIndex(context.Background(), env.mem, idx))

	status, err := env.engine.PerformSync(context.Background(), env.cfg.ID, nil)
	require.NoError(t, err)

	assert.Equal(t, models.StateCompleted, status.State)
	assert.Contains(t, status.Message, "3 downloads")

	got, err := env.db.GetJournal("j9")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Remote", got.Name)

	gotEntry, err := env.db.GetEntry("e9")
	require.NoError(t, err)
	require.NotNil(t, gotEntry)
	assert.Equal(t, "Summit", gotEntry.Title)

	gotAtt, err := env.db.GetAttachment("a9")
	require.NoError(t, err)
	require.NotNil(t, gotAtt)
	assert.Equal(t, att.ModernPath(), gotAtt.Path)

	bytes, err := os.ReadFile(filepath.Join(env.attRoot, filepath.FromSlash(att.ModernPath())))
	require.NoError(t, err)
	assert.Equal(t, []byte("png data"), bytes)

	// A follow-up run sees both sides converged.
	env.mem.ResetCounters()
	status, err = env.engine.PerformSync(context.Background(), env.cfg.ID, nil)
	require.NoError(t, err)
	assert.Contains(t, status.Message, "0 entities")
	assert.Zero(t, env.mem.Writes)
}

func TestAttachmentOptOutSkipsRemoteBytes(t *testing.T) {
	env := newSyncEnv(t)
	env.cfg.SyncAttachments = false
	require.NoError(t, env.db.UpdateSyncConfig(env.cfg))

	// Another device synced an attachment this device has opted out of.
	att := models.Attachment{
		ID: "a9", EntryID: "e9", Type: models.AttachmentPhoto, Name: "peak.jpg",
		Size: 8, MimeType: "image/jpeg", CreatedAt: seedTime, UpdatedAt: seedTime,
	}
	att.Path = att.ModernPath()
	journal := models.Journal{ID: "j9", Name: "Remote", CreatedAt: seedTime, UpdatedAt: seedTime}
	entry := models.Entry{
		ID: "e9", JournalID: "j9", Title: "Summit", EntryDate: seedTime,
		CreatedAt: seedTime, UpdatedAt: seedTime,
		Attachments: []models.Attachment{att},
	}

	jdoc := &journalsDoc{Journals: []models.Journal{journal}, UpdatedAt: seedTime}
	data, err := jdoc.marshal()
	require.NoError(t, err)
	env.mem.Put(journalsDocPath, data)

	edoc := &entriesDoc{JournalID: "j9", Period: "2024-03", Entries: []models.Entry{entry}}
	data, err = edoc.marshal()
	require.NoError(t, err)
	env.mem.Put(entriesDocPath("j9", "2024-03"), data)

	env.mem.Put(attachmentRemotePath(att.ModernPath()), []byte("png data"))

	idx := newRemoteIndex()
	idx.Entities[models.JournalKey("j9")] = remoteEntity{
		Path: journalsDocPath, VersionTag: "t-j", UpdatedAt: seedTime,
	}
	idx.Entities[models.EntriesKey("j9", "2024-03")] = remoteEntity{
		Path: entriesDocPath("j9", "2024-03"), VersionTag: "t-e", UpdatedAt: seedTime,
	}
	idx.Entities[models.AttachmentKey("a9")] = remoteEntity{
		Path: attachmentRemotePath(att.ModernPath()), VersionTag: "t-a", UpdatedAt: seedTime,
	}
	require.NoError(t, writeIndex(context.Background(), env.mem, idx))

	status, err := env.engine.PerformSync(context.Background(), env.cfg.ID, nil)
	require.NoError(t, err)

	// Records sync; attachment bytes stay remote.
	assert.Equal(t, models.StateCompleted, status.State)
	assert.Contains(t, status.Message, "2 downloads")

	_, err = os.Stat(filepath.Join(env.attRoot, filepath.FromSlash(att.ModernPath())))
	assert.True(t, os.IsNotExist(err), "opted-out attachment bytes were downloaded")

	manifest, err := env.db.LoadManifest(env.cfg.ID)
	require.NoError(t, err)
	assert.NotContains(t, manifest, models.AttachmentKey("a9"))
}

func TestAuthFailureIsFatal(t *testing.T) {
	env := newSyncEnv(t)
	env.seedLocal(t)
	env.mem.PingErr = webdav.ErrAuth

	status, err := env.engine.PerformSync(context.Background(), env.cfg.ID, nil)
	require.NoError(t, err)

	assert.Equal(t, models.StateFailed, status.State)
	assert.NotEmpty(t, status.ErrorMessage)
	assert.Zero(t, env.mem.Writes)

	cfg, err := env.db.GetSyncConfig(env.cfg.ID)
	require.NoError(t, err)
	assert.Nil(t, cfg.LastSyncAt, "failed runs do not stamp last sync")
}

func TestDisabledConfigFails(t *testing.T) {
	env := newSyncEnv(t)
	env.cfg.Enabled = false
	require.NoError(t, env.db.UpdateSyncConfig(env.cfg))

	status, err := env.engine.PerformSync(context.Background(), env.cfg.ID, nil)
	require.NoError(t, err)

	assert.Equal(t, models.StateFailed, status.State)
	assert.Contains(t, status.Message, "disabled")
}

func TestMissingCredentialFails(t *testing.T) {
	env := newSyncEnv(t)
	require.NoError(t, env.creds.Delete(env.cfg.ID))

	status, err := env.engine.PerformSync(context.Background(), env.cfg.ID, nil)
	require.NoError(t, err)

	assert.Equal(t, models.StateFailed, status.State)
	assert.Contains(t, status.Message, "credential")
}

func TestUnknownConfigRejected(t *testing.T) {
	env := newSyncEnv(t)

	_, err := env.engine.PerformSync(context.Background(), "nope", nil)
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestConcurrentRunRejected(t *testing.T) {
	env := newSyncEnv(t)

	require.True(t, env.engine.runLocks.TryAcquire(env.cfg.ID))
	defer env.engine.runLocks.Release(env.cfg.ID)

	_, err := env.engine.PerformSync(context.Background(), env.cfg.ID, nil)
	assert.ErrorIs(t, err, ErrSyncInProgress)
}

func TestPerEntityErrorCompletesWithErrors(t *testing.T) {
	env := newSyncEnv(t)
	env.seedLocal(t)
	env.mem.WriteErrs[journalsDocPath] = errors.New("disk full")

	status, err := env.engine.PerformSync(context.Background(), env.cfg.ID, nil)
	require.NoError(t, err)

	// One entity failed, so the run completes with a visible error list
	// instead of turning failed.
	assert.Equal(t, models.StateCompleted, status.State)
	assert.Contains(t, status.Message, "1 failed")
	assert.Contains(t, status.ErrorMessage, models.JournalKey("j1"))

	_, ok := env.mem.Get(entriesDocPath("j1", "2024-03"))
	assert.True(t, ok, "other entities still uploaded")

	// The failed entity never reached the manifest, so the next run
	// retries it.
	manifest, err := env.db.LoadManifest(env.cfg.ID)
	require.NoError(t, err)
	_, ok = manifest[models.JournalKey("j1")]
	assert.False(t, ok)
}

func TestMidRunAuthLossAbortsRun(t *testing.T) {
	env := newSyncEnv(t)
	env.seedLocal(t)
	env.mem.WriteErrs[journalsDocPath] = webdav.ErrAuth

	status, err := env.engine.PerformSync(context.Background(), env.cfg.ID, nil)
	require.NoError(t, err)

	// The journal uploads first; losing auth there aborts the run
	// instead of failing every remaining entity one by one.
	assert.Equal(t, models.StateFailed, status.State)
	_, ok := env.mem.Get(entriesDocPath("j1", "2024-03"))
	assert.False(t, ok, "no further entities attempted")
}

func TestCancelStopsBeforeNextEntity(t *testing.T) {
	env := newSyncEnv(t)
	env.seedLocal(t)

	status, err := env.engine.PerformSync(context.Background(), env.cfg.ID, func(s models.SyncStatus) {
		if s.State == models.StateUploading {
			env.engine.Cancel(env.cfg.ID)
		}
	})
	require.NoError(t, err)

	assert.Equal(t, models.StateCancelled, status.State)
	assert.Zero(t, env.mem.Writes, "cancellation before the first entity uploads nothing")
}

func TestStatusTransitionSequence(t *testing.T) {
	env := newSyncEnv(t)
	env.seedLocal(t)

	var states []models.SyncState
	_, err := env.engine.PerformSync(context.Background(), env.cfg.ID, func(s models.SyncStatus) {
		if len(states) == 0 || states[len(states)-1] != s.State {
			states = append(states, s.State)
		}
	})
	require.NoError(t, err)

	assert.Equal(t, []models.SyncState{
		models.StateChecking, models.StateUploading, models.StateCompleted,
	}, states)

	// Terminal state is persisted for display between runs.
	persisted, err := env.db.GetSyncStatus(env.cfg.ID)
	require.NoError(t, err)
	require.NotNil(t, persisted)
	assert.Equal(t, models.StateCompleted, persisted.State)
}

func TestClearLocalManifestForcesRediff(t *testing.T) {
	env := newSyncEnv(t)
	env.seedLocal(t)

	_, err := env.engine.PerformSync(context.Background(), env.cfg.ID, nil)
	require.NoError(t, err)

	require.NoError(t, env.engine.ClearLocalManifest(env.cfg.ID))

	// With the manifest gone every entity looks new on both sides; the
	// tie goes to the local copy, so everything re-uploads.
	env.mem.ResetCounters()
	status, err := env.engine.PerformSync(context.Background(), env.cfg.ID, nil)
	require.NoError(t, err)

	assert.Equal(t, models.StateCompleted, status.State)
	assert.Contains(t, status.Message, "3 uploads")
}

func TestDeleteConfigRemovesEverything(t *testing.T) {
	env := newSyncEnv(t)
	env.seedLocal(t)

	_, err := env.engine.PerformSync(context.Background(), env.cfg.ID, nil)
	require.NoError(t, err)

	require.NoError(t, env.engine.DeleteConfig(env.cfg.ID))

	cfg, err := env.db.GetSyncConfig(env.cfg.ID)
	require.NoError(t, err)
	assert.Nil(t, cfg)

	manifest, err := env.db.LoadManifest(env.cfg.ID)
	require.NoError(t, err)
	assert.Empty(t, manifest)

	_, err = env.creds.Get(env.cfg.ID)
	assert.ErrorIs(t, err, cred.ErrNotFound)
}

func TestJournalScopeLimitsSnapshot(t *testing.T) {
	env := newSyncEnv(t)
	env.seedLocal(t)

	require.NoError(t, env.db.CreateJournal(&models.Journal{
		ID: "j2", Name: "Work", CreatedAt: seedTime, UpdatedAt: seedTime,
	}))

	env.cfg.SyncedJournalIDs = "j2"
	require.NoError(t, env.db.UpdateSyncConfig(env.cfg))

	status, err := env.engine.PerformSync(context.Background(), env.cfg.ID, nil)
	require.NoError(t, err)

	assert.Equal(t, models.StateCompleted, status.State)
	assert.Contains(t, status.Message, "1 uploads")

	data, ok := env.mem.Get(journalsDocPath)
	require.True(t, ok)
	var doc journalsDoc
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Len(t, doc.Journals, 1)
	assert.Equal(t, "j2", doc.Journals[0].ID)
}
