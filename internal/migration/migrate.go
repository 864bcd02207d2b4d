// Package migration rewrites attachment references from legacy absolute
// filesystem paths to the modern, content-organized relative scheme,
// copying file bytes as needed and validating the result.
package migration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/inkwell-app/inkwell/internal/db"
	"github.com/inkwell-app/inkwell/internal/locks"
	"github.com/inkwell-app/inkwell/internal/models"
)

// ErrMigrationInProgress is returned when a second MigrateAllFiles call
// arrives while one is already running.
var ErrMigrationInProgress = errors.New("a file migration is already running")

// ProgressFunc receives migration progress. current is monotonically
// non-decreasing and total is fixed for the run.
type ProgressFunc func(current, total int, status string)

// Engine migrates attachments one at a time. At most one migration run is
// in flight per process; per-attachment operations take the shared
// attachment lock so a concurrent sync run cannot race a path rewrite.
type Engine struct {
	db      *db.DB
	root    string // attachments root directory
	attLock *locks.KeyedMutex
	running sync.Mutex
}

// NewEngine creates a migration engine. attachmentsRoot is the local
// directory the modern relative paths resolve against. attLock is the
// per-attachment operation lock shared with the sync engine.
func NewEngine(database *db.DB, attachmentsRoot string, attLock *locks.KeyedMutex) *Engine {
	if attLock == nil {
		attLock = locks.New()
	}
	return &Engine{db: database, root: attachmentsRoot, attLock: attLock}
}

// IsMigrationNeeded reports whether at least one attachment still has a
// legacy path.
func (e *Engine) IsMigrationNeeded() (bool, error) {
	n, err := e.db.CountLegacyAttachments()
	if err != nil {
		return false, fmt.Errorf("count legacy attachments: %w", err)
	}
	return n > 0, nil
}

// MigrationCount returns the number of attachments with legacy paths.
func (e *Engine) MigrationCount() (int, error) {
	n, err := e.db.CountLegacyAttachments()
	if err != nil {
		return 0, fmt.Errorf("count legacy attachments: %w", err)
	}
	return int(n), nil
}

// Resolve maps an attachment path to the local filesystem: legacy paths
// are already absolute, modern ones live under the attachments root.
func (e *Engine) Resolve(path string) string {
	if models.IsLegacyPath(path) {
		return path
	}
	return filepath.Join(e.root, filepath.FromSlash(path))
}

// MigrateAllFiles migrates every legacy attachment. One bad file never
// aborts the run; each failure is recorded and the loop continues. With
// dryRun set the same classification and progress cadence run against
// simulated counters, with no filesystem copy and no store mutation.
//
// Cancellation is observed between attachments: the in-flight attachment
// finishes, the remainder stay legacy, and the returned result reflects
// exactly what completed.
func (e *Engine) MigrateAllFiles(ctx context.Context, onProgress ProgressFunc, dryRun bool) (*models.MigrationResult, error) {
	if !e.running.TryLock() {
		return nil, ErrMigrationInProgress
	}
	defer e.running.Unlock()

	start := time.Now()
	result := &models.MigrationResult{}

	attachments, err := e.db.ListAttachments()
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}

	total := len(attachments)
	result.TotalAttachments = total

	for i := range attachments {
		if ctx.Err() != nil {
			break
		}
		att := attachments[i]

		if !att.IsLegacy() {
			result.AlreadyMigrated++
			e.report(onProgress, i+1, total, fmt.Sprintf("already migrated: %s", att.Name))
			continue
		}

		if dryRun {
			result.MigratedSuccessfully++
			e.report(onProgress, i+1, total, fmt.Sprintf("would migrate: %s", att.Name))
			continue
		}

		if err := e.migrateOne(&att); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, models.MigrationError{
				AttachmentID: att.ID,
				Reason:       err.Error(),
			})
			e.report(onProgress, i+1, total, fmt.Sprintf("failed: %s", att.Name))
			continue
		}

		result.MigratedSuccessfully++
		e.report(onProgress, i+1, total, fmt.Sprintf("migrated: %s", att.Name))
	}

	result.Duration = time.Since(start)
	return result, nil
}

func (e *Engine) report(onProgress ProgressFunc, current, total int, status string) {
	if onProgress != nil {
		onProgress(current, total, status)
	}
}

// migrateOne moves a single legacy attachment to its modern path. The
// source is never deleted until the destination copy is verified present
// and non-empty, and the store is updated only after that verification.
func (e *Engine) migrateOne(att *models.Attachment) error {
	e.attLock.Acquire(att.ID)
	defer e.attLock.Release(att.ID)

	// Re-read inside the lock; a concurrent sync download may already
	// have rewritten this attachment.
	current, err := e.db.GetAttachment(att.ID)
	if err != nil {
		return fmt.Errorf("reload attachment: %w", err)
	}
	if current == nil {
		return fmt.Errorf("attachment %s vanished from store", att.ID)
	}
	if !current.IsLegacy() {
		return nil
	}

	modernRel := current.ModernPath()
	dest := filepath.Join(e.root, filepath.FromSlash(modernRel))

	if err := copyVerified(current.Path, dest); err != nil {
		return err
	}

	if err := e.db.UpdateAttachmentPath(current.ID, modernRel); err != nil {
		// The copied bytes are harmless on their own; the record still
		// points at the legacy source, so the attachment stays readable.
		return fmt.Errorf("update attachment path: %w", err)
	}

	return nil
}

// copyVerified copies src to dest via a temp file and rename, then
// verifies the destination is present and non-empty. A failed copy leaves
// no partial file at dest.
func copyVerified(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".migrating-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, in); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("copy bytes: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, dest); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("finalize destination: %w", err)
	}

	info, err := os.Stat(dest)
	if err != nil {
		return fmt.Errorf("verify destination: %w", err)
	}
	if info.Size() == 0 {
		srcInfo, serr := os.Stat(src)
		if serr == nil && srcInfo.Size() > 0 {
			_ = os.Remove(dest)
			return fmt.Errorf("destination %s is empty after copy", dest)
		}
	}

	return nil
}
