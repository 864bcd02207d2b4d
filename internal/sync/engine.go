package sync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/inkwell-app/inkwell/internal/cred"
	"github.com/inkwell-app/inkwell/internal/db"
	"github.com/inkwell-app/inkwell/internal/locks"
	"github.com/inkwell-app/inkwell/internal/log"
	"github.com/inkwell-app/inkwell/internal/models"
	"github.com/inkwell-app/inkwell/internal/webdav"
	gosync "sync"
)

// Engine-level sentinel errors.
var (
	// ErrSyncInProgress rejects a second run for a configuration that
	// already has one active.
	ErrSyncInProgress = errors.New("a sync run is already active for this configuration")
	// ErrConfigNotFound marks an unknown configuration ID.
	ErrConfigNotFound = errors.New("sync configuration not found")
)

// TransportFactory builds a Transport for a configuration. Tests inject a
// factory returning an in-memory double.
type TransportFactory func(serverURL, username, password string) webdav.Transport

// Engine reconciles local store state against a remote WebDAV store, one
// run per configuration at a time. Its collaborators arrive through the
// constructor; it instantiates nothing itself.
type Engine struct {
	db           *db.DB
	creds        *cred.Store
	newTransport TransportFactory

	// attachmentsRoot anchors modern relative attachment paths locally.
	attachmentsRoot string

	// attLock is the per-attachment operation lock shared with the
	// migration engine.
	attLock *locks.KeyedMutex

	// runLocks serializes runs per configuration ID.
	runLocks *locks.KeyedMutex

	mu      gosync.Mutex
	cancels map[string]context.CancelFunc
}

// New creates a sync engine. attLock may be shared with a migration
// engine; pass nil to use a private lock set.
func New(database *db.DB, creds *cred.Store, factory TransportFactory, attachmentsRoot string, attLock *locks.KeyedMutex) *Engine {
	if attLock == nil {
		attLock = locks.New()
	}
	return &Engine{
		db:              database,
		creds:           creds,
		newTransport:    factory,
		attachmentsRoot: attachmentsRoot,
		attLock:         attLock,
		runLocks:        locks.New(),
		cancels:         make(map[string]context.CancelFunc),
	}
}

// PerformSync runs one reconciliation for the configuration. Concurrent
// calls for the same configuration are rejected with ErrSyncInProgress;
// different configurations run independently. The returned status is
// always terminal; per-entity failures are carried inside it rather than
// as an error.
func (e *Engine) PerformSync(ctx context.Context, configID string, onStatus StatusFunc) (*models.SyncStatus, error) {
	if !e.runLocks.TryAcquire(configID) {
		return nil, ErrSyncInProgress
	}
	defer e.runLocks.Release(configID)

	cfg, err := e.db.GetSyncConfig(configID)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg == nil {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configID)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	e.mu.Lock()
	e.cancels[configID] = cancel
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		delete(e.cancels, configID)
		e.mu.Unlock()
	}()

	rep := newReporter(e.db, configID, onStatus)
	e.run(runCtx, cfg, rep)

	status := rep.snapshot()
	return &status, nil
}

// Cancel requests cancellation of the configuration's active run, if any.
// The in-flight entity operation finishes; no further entities are
// processed.
func (e *Engine) Cancel(configID string) {
	e.mu.Lock()
	cancel := e.cancels[configID]
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// TestConnection verifies that the given endpoint accepts the credential.
func (e *Engine) TestConnection(ctx context.Context, cfg *models.SyncConfig, secret string) error {
	return e.newTransport(cfg.ServerURL, cfg.Username, secret).Ping(ctx)
}

// ClearLocalManifest drops the configuration's manifest, forcing a full
// re-diff on the next run.
func (e *Engine) ClearLocalManifest(configID string) error {
	return e.db.DeleteManifest(configID)
}

// DeleteConfig removes a configuration along with its manifest, persisted
// status, and out-of-band credential.
func (e *Engine) DeleteConfig(configID string) error {
	if err := e.db.DeleteSyncConfig(configID); err != nil {
		return fmt.Errorf("delete config: %w", err)
	}
	if err := e.creds.Delete(configID); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}

// op is one planned corrective operation.
type op struct {
	entity   *entity // nil for pure downloads with no local side
	key      string
	kind     entityKind
	action   action
	conflict bool
	remote   *remoteEntity
}

// run executes one reconciliation. All failure modes end in a terminal
// state on the reporter; nothing escapes as a panic or stray error.
func (e *Engine) run(ctx context.Context, cfg *models.SyncConfig, rep *reporter) {
	if !cfg.Enabled {
		rep.recordError("configuration is disabled")
		rep.transition(models.StateFailed, "configuration is disabled")
		return
	}

	secret, err := e.creds.Get(cfg.ID)
	if err != nil {
		rep.recordError(fmt.Sprintf("credential: %v", err))
		rep.transition(models.StateFailed, "credential missing")
		return
	}

	transport := e.newTransport(cfg.ServerURL, cfg.Username, secret)

	rep.transition(models.StateChecking, "connecting")
	if err := transport.Ping(ctx); err != nil {
		rep.recordError(fmt.Sprintf("connect: %v", err))
		rep.transition(models.StateFailed, "server unreachable or credentials rejected")
		return
	}

	manifest, err := e.db.LoadManifest(cfg.ID)
	if err != nil {
		rep.recordError(fmt.Sprintf("load manifest: %v", err))
		rep.transition(models.StateFailed, "local store failure")
		return
	}

	idx, err := readIndex(ctx, transport)
	if err != nil {
		rep.recordError(fmt.Sprintf("remote index: %v", err))
		rep.transition(models.StateFailed, "remote store unreadable")
		return
	}

	snapshot, err := buildSnapshot(e.db, cfg)
	if err != nil {
		rep.recordError(fmt.Sprintf("snapshot: %v", err))
		rep.transition(models.StateFailed, "local store failure")
		return
	}

	ops := plan(snapshot, manifest, idx, cfg.SyncAttachments)
	uploads, downloads := split(ops)

	log.Printf("sync %s: %d entities, %d uploads, %d downloads\n",
		cfg.ID, len(snapshot), len(uploads), len(downloads))

	total := len(uploads) + len(downloads)
	done := 0
	idxDirty := false

	if len(uploads) > 0 {
		rep.transition(models.StateUploading, "uploading changes")
		if err := transport.Mkdir(ctx, RemoteRoot); err != nil {
			rep.recordError(fmt.Sprintf("prepare remote root: %v", err))
		}
	}
	for i := range uploads {
		if ctx.Err() != nil {
			e.finishIndex(transport, idx, idxDirty, rep)
			rep.transition(models.StateCancelled, "cancelled")
			return
		}
		o := &uploads[i]
		if err := e.applyUpload(ctx, transport, cfg, o, idx); err != nil {
			rep.recordError(fmt.Sprintf("%s: %v", o.key, err))
			// Losing auth or the server mid-run dooms every remaining
			// entity; stop instead of grinding through them.
			if webdav.Fatal(err) {
				e.finishIndex(transport, idx, idxDirty, rep)
				rep.transition(models.StateFailed, "connection lost during upload")
				return
			}
		} else {
			idxDirty = true
		}
		done++
		rep.progress(done, total, fmt.Sprintf("uploaded %d/%d", done, total))
	}

	if len(downloads) > 0 {
		rep.transition(models.StateDownloading, "downloading changes")
	}
	for i := range downloads {
		if ctx.Err() != nil {
			e.finishIndex(transport, idx, idxDirty, rep)
			rep.transition(models.StateCancelled, "cancelled")
			return
		}
		o := &downloads[i]
		if err := e.applyDownload(ctx, transport, cfg, o); err != nil {
			rep.recordError(fmt.Sprintf("%s: %v", o.key, err))
			if webdav.Fatal(err) {
				e.finishIndex(transport, idx, idxDirty, rep)
				rep.transition(models.StateFailed, "connection lost during download")
				return
			}
		}
		done++
		rep.progress(done, total, fmt.Sprintf("applied %d/%d", done, total))
	}

	e.finishIndex(transport, idx, idxDirty, rep)

	// Per-entity failures do not demote the run: completing with a
	// visible error list beats pretending nothing happened. Failed is
	// reserved for conditions that made continuing meaningless.
	message := fmt.Sprintf("synchronized %d entities (%d uploads, %d downloads)",
		total, len(uploads), len(downloads))
	if n := rep.errorCount(); n > 0 {
		message = fmt.Sprintf("%s, %d failed", message, n)
	}
	rep.transition(models.StateCompleted, message)

	if err := e.db.TouchLastSync(cfg.ID, time.Now()); err != nil {
		log.Errorf("stamp last sync for %s: %v", cfg.ID, err)
	}
}

// finishIndex writes the remote index when any upload changed it. An
// index write failure costs a re-diff next run, nothing more, so it is
// recorded rather than fatal.
func (e *Engine) finishIndex(transport webdav.Transport, idx *remoteIndex, dirty bool, rep *reporter) {
	if !dirty {
		return
	}
	if err := writeIndex(context.Background(), transport, idx); err != nil {
		rep.recordError(fmt.Sprintf("remote index: %v", err))
	}
}

// plan classifies the union of local snapshot, manifest, and remote index
// into corrective operations, ordered deterministically: metadata before
// entry bundles before attachment bytes, so downloads always see the
// records their bytes belong to. With attachments opted out the planner
// drops attachment keys from every source, not just the snapshot, so a
// remote-only attachment never becomes a download.
func plan(snapshot []entity, manifest map[string]models.ManifestEntry, idx *remoteIndex, syncAttachments bool) []op {
	locals := make(map[string]*entity, len(snapshot))
	for i := range snapshot {
		locals[snapshot[i].Key] = &snapshot[i]
	}

	keys := make(map[string]bool)
	for k := range locals {
		keys[k] = true
	}
	for k := range idx.Entities {
		keys[k] = true
	}
	for k := range manifest {
		keys[k] = true
	}

	var ops []op
	for key := range keys {
		local := locals[key]
		if !syncAttachments && kindOf(key, local) == kindAttachment {
			continue
		}

		var man *models.ManifestEntry
		if m, ok := manifest[key]; ok {
			man = &m
		}
		var remote *remoteEntity
		if r, ok := idx.Entities[key]; ok {
			remote = &r
		}

		d := decide(local, man, remote)
		if d.Action == actSkip {
			continue
		}
		ops = append(ops, op{
			entity:   local,
			key:      key,
			kind:     kindOf(key, local),
			action:   d.Action,
			conflict: d.Conflict,
			remote:   remote,
		})
	}

	sort.Slice(ops, func(i, j int) bool {
		if ops[i].kind != ops[j].kind {
			return ops[i].kind < ops[j].kind
		}
		return ops[i].key < ops[j].key
	})
	return ops
}

func kindOf(key string, local *entity) entityKind {
	if local != nil {
		return local.Kind
	}
	switch {
	case len(key) > len(models.KeyPrefixJournal) && key[:len(models.KeyPrefixJournal)] == models.KeyPrefixJournal:
		return kindJournal
	case len(key) > len(models.KeyPrefixEntries) && key[:len(models.KeyPrefixEntries)] == models.KeyPrefixEntries:
		return kindEntries
	default:
		return kindAttachment
	}
}

func split(ops []op) (uploads, downloads []op) {
	for _, o := range ops {
		if o.action == actUpload {
			uploads = append(uploads, o)
		} else {
			downloads = append(downloads, o)
		}
	}
	return uploads, downloads
}
