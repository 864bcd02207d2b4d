package migration

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-app/inkwell/internal/db"
	"github.com/inkwell-app/inkwell/internal/models"
)

func newTestEngine(t *testing.T) (*Engine, *db.DB, string) {
	t.Helper()
	database, err := db.New(db.DefaultConfig(filepath.Join(t.TempDir(), "test.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	root := t.TempDir()
	return NewEngine(database, root, nil), database, root
}

// seedLegacy creates a legacy attachment row and, when withFile is set,
// the source file it points to.
func seedLegacy(t *testing.T, database *db.DB, srcDir, id, entryID string, withFile bool) {
	t.Helper()
	src := filepath.Join(srcDir, id+".jpg")
	if withFile {
		require.NoError(t, os.WriteFile(src, []byte("image bytes for "+id), 0644))
	}
	require.NoError(t, database.CreateAttachment(&models.Attachment{
		ID:        id,
		EntryID:   entryID,
		Type:      models.AttachmentPhoto,
		Name:      id + ".jpg",
		Path:      src,
		CreatedAt: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC),
	}))
}

func seedModern(t *testing.T, database *db.DB, id, entryID string) {
	t.Helper()
	require.NoError(t, database.CreateAttachment(&models.Attachment{
		ID:      id,
		EntryID: entryID,
		Type:    models.AttachmentPhoto,
		Name:    id + ".jpg",
		Path:    fmt.Sprintf("images/2024/03/15/%s/%s.jpg", entryID, id),
	}))
}

func TestIsMigrationNeeded(t *testing.T) {
	engine, database, _ := newTestEngine(t)

	needed, err := engine.IsMigrationNeeded()
	require.NoError(t, err)
	assert.False(t, needed)

	seedLegacy(t, database, t.TempDir(), "a1", "e1", true)

	needed, err = engine.IsMigrationNeeded()
	require.NoError(t, err)
	assert.True(t, needed)

	count, err := engine.MigrationCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

// Scenario A: 15 attachments, 12 legacy and 3 modern; every source file
// exists.
func TestMigrateAllFiles_MixedStore(t *testing.T) {
	engine, database, root := newTestEngine(t)
	srcDir := t.TempDir()

	for i := 0; i < 12; i++ {
		seedLegacy(t, database, srcDir, fmt.Sprintf("legacy-%02d", i), fmt.Sprintf("e%d", i/3), true)
	}
	for i := 0; i < 3; i++ {
		seedModern(t, database, fmt.Sprintf("modern-%d", i), "e9")
	}

	var calls int
	result, err := engine.MigrateAllFiles(context.Background(), func(current, total int, status string) {
		calls++
		assert.Equal(t, 15, total)
		assert.LessOrEqual(t, current, total)
	}, false)
	require.NoError(t, err)

	assert.Equal(t, 15, result.TotalAttachments)
	assert.Equal(t, 12, result.MigratedSuccessfully)
	assert.Equal(t, 3, result.AlreadyMigrated)
	assert.Equal(t, 0, result.Failed)
	assert.InDelta(t, 1.0, result.SuccessRate(), 1e-9)
	assert.True(t, result.IsComplete())
	assert.GreaterOrEqual(t, calls, 15, "progress at least once per attachment")

	// Migration monotonicity: no legacy path survives a clean run.
	atts, err := database.ListAttachments()
	require.NoError(t, err)
	for _, a := range atts {
		assert.False(t, a.IsLegacy(), "attachment %s still legacy", a.ID)
	}

	// Bytes landed under the modern tree.
	migrated, err := database.GetAttachment("legacy-00")
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(migrated.Path)))
	require.NoError(t, err)
	assert.Equal(t, []byte("image bytes for legacy-00"), data)
}

// Scenario B: 6 legacy attachments, source files exist for only 3.
func TestMigrateAllFiles_MissingSources(t *testing.T) {
	engine, database, _ := newTestEngine(t)
	srcDir := t.TempDir()

	for i := 0; i < 6; i++ {
		seedLegacy(t, database, srcDir, fmt.Sprintf("att-%d", i), "e1", i < 3)
	}

	result, err := engine.MigrateAllFiles(context.Background(), nil, false)
	require.NoError(t, err)

	assert.Equal(t, 6, result.TotalAttachments)
	assert.Equal(t, 3, result.MigratedSuccessfully)
	assert.Equal(t, 3, result.Failed)
	assert.Len(t, result.Errors, 3)
	assert.InDelta(t, 0.5, result.SuccessRate(), 1e-9)
	assert.True(t, result.HasErrors())
	assert.True(t, result.IsComplete())

	// Legacy survivors are exactly the failed ones.
	legacy, err := database.ListLegacyAttachments()
	require.NoError(t, err)
	var survivorIDs []string
	for _, a := range legacy {
		survivorIDs = append(survivorIDs, a.ID)
	}
	var failedIDs []string
	for _, e := range result.Errors {
		failedIDs = append(failedIDs, e.AttachmentID)
	}
	assert.ElementsMatch(t, failedIDs, survivorIDs)
}

func TestMigrateAllFiles_DryRunPurity(t *testing.T) {
	engine, database, root := newTestEngine(t)
	srcDir := t.TempDir()

	for i := 0; i < 4; i++ {
		seedLegacy(t, database, srcDir, fmt.Sprintf("att-%d", i), "e1", true)
	}
	seedModern(t, database, "m1", "e2")

	before, err := engine.MigrationCount()
	require.NoError(t, err)

	var calls int
	result, err := engine.MigrateAllFiles(context.Background(), func(current, total int, status string) {
		calls++
	}, true)
	require.NoError(t, err)

	assert.Equal(t, 5, result.TotalAttachments)
	assert.Equal(t, 4, result.MigratedSuccessfully)
	assert.Equal(t, 1, result.AlreadyMigrated)
	assert.Equal(t, 5, calls)

	// Store untouched.
	after, err := engine.MigrationCount()
	require.NoError(t, err)
	assert.Equal(t, before, after)

	// Filesystem untouched: nothing under the attachments root.
	var files []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	assert.Empty(t, files)
}

// Scenario D: cancellation after 2 of 10; the remaining 8 stay legacy
// with no partial destination files.
func TestMigrateAllFiles_Cancellation(t *testing.T) {
	engine, database, root := newTestEngine(t)
	srcDir := t.TempDir()

	for i := 0; i < 10; i++ {
		seedLegacy(t, database, srcDir, fmt.Sprintf("att-%d", i), "e1", true)
	}

	ctx, cancel := context.WithCancel(context.Background())
	result, err := engine.MigrateAllFiles(ctx, func(current, total int, status string) {
		if current == 2 {
			cancel()
		}
	}, false)
	require.NoError(t, err)

	assert.Equal(t, 2, result.MigratedSuccessfully)
	assert.Equal(t, 0, result.Failed)
	assert.False(t, result.IsComplete())

	legacy, err := database.ListLegacyAttachments()
	require.NoError(t, err)
	assert.Len(t, legacy, 8)

	// Exactly the two completed files exist under the root; no partial
	// destinations for the untouched 8.
	var files []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	assert.Len(t, files, 2)
}

func TestMigrateAllFiles_Idempotent(t *testing.T) {
	engine, database, _ := newTestEngine(t)
	srcDir := t.TempDir()
	seedLegacy(t, database, srcDir, "a1", "e1", true)

	first, err := engine.MigrateAllFiles(context.Background(), nil, false)
	require.NoError(t, err)
	assert.Equal(t, 1, first.MigratedSuccessfully)

	second, err := engine.MigrateAllFiles(context.Background(), nil, false)
	require.NoError(t, err)
	assert.Equal(t, 0, second.MigratedSuccessfully)
	assert.Equal(t, 1, second.AlreadyMigrated)
}

func TestMigrateAllFiles_SingleFlight(t *testing.T) {
	engine, database, _ := newTestEngine(t)
	srcDir := t.TempDir()
	for i := 0; i < 3; i++ {
		seedLegacy(t, database, srcDir, fmt.Sprintf("att-%d", i), "e1", true)
	}

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_, _ = engine.MigrateAllFiles(context.Background(), func(current, total int, status string) {
			if current == 1 {
				close(started)
				<-release
			}
		}, false)
		close(done)
	}()

	<-started
	_, err := engine.MigrateAllFiles(context.Background(), nil, false)
	assert.ErrorIs(t, err, ErrMigrationInProgress)
	close(release)
	<-done
}

func TestMigrateAllFiles_EmptyStore(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	result, err := engine.MigrateAllFiles(context.Background(), nil, false)
	require.NoError(t, err)

	assert.Equal(t, 0, result.TotalAttachments)
	assert.InDelta(t, 1.0, result.SuccessRate(), 1e-9)
	assert.True(t, result.IsComplete())
}

func TestValidate(t *testing.T) {
	engine, database, root := newTestEngine(t)
	srcDir := t.TempDir()

	// A legacy attachment whose source exists.
	seedLegacy(t, database, srcDir, "ok-legacy", "e1", true)

	// A modern attachment with real bytes under the root.
	seedModern(t, database, "ok-modern", "e1")
	modernFile := filepath.Join(root, "images", "2024", "03", "15", "e1", "ok-modern.jpg")
	require.NoError(t, os.MkdirAll(filepath.Dir(modernFile), 0755))
	require.NoError(t, os.WriteFile(modernFile, []byte("x"), 0644))

	// A modern attachment whose file was deleted externally.
	seedModern(t, database, "gone-modern", "e2")

	report, err := engine.Validate()
	require.NoError(t, err)

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Accessible)
	assert.Equal(t, 1, report.Inaccessible)
	require.Len(t, report.InaccessibleFiles, 1)
	assert.Contains(t, report.InaccessibleFiles[0], "gone-modern")
	assert.InDelta(t, 2.0/3.0, report.SuccessRate(), 1e-9)

	// Validation never mutates: a second pass sees the same store.
	count, err := engine.MigrationCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
