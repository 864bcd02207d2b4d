package sync

import (
	"strings"
	"sync"
	"time"

	"github.com/inkwell-app/inkwell/internal/db"
	"github.com/inkwell-app/inkwell/internal/models"
)

// StatusFunc observes status updates of one run. The engine never knows
// about any UI; callers subscribe with a function and render as they
// please.
type StatusFunc func(models.SyncStatus)

// reporter is the observable state machine of one sync run. It serializes
// updates, forwards each to the subscriber, and persists terminal states
// for display between runs.
type reporter struct {
	mu       sync.Mutex
	db       *db.DB
	status   models.SyncStatus
	onStatus StatusFunc
	errs     []string
}

func newReporter(database *db.DB, configID string, onStatus StatusFunc) *reporter {
	return &reporter{
		db: database,
		status: models.SyncStatus{
			ConfigID:      configID,
			State:         models.StateIdle,
			LastAttemptAt: time.Now(),
		},
		onStatus: onStatus,
	}
}

// transition moves the state machine and notifies the subscriber.
func (r *reporter) transition(state models.SyncState, message string) {
	r.mu.Lock()
	r.status.State = state
	r.status.Message = message
	if state.Terminal() {
		r.status.ErrorMessage = strings.Join(r.errs, "; ")
		if state == models.StateCompleted {
			r.status.Progress = 1
		}
	}
	snapshot := r.status
	r.mu.Unlock()

	if state.Terminal() && r.db != nil {
		_ = r.db.SaveSyncStatus(&snapshot)
	}
	if r.onStatus != nil {
		r.onStatus(snapshot)
	}
}

// progress reports completion over the run's entities.
func (r *reporter) progress(done, total int, message string) {
	r.mu.Lock()
	if total > 0 {
		r.status.Progress = float64(done) / float64(total)
	}
	r.status.Message = message
	snapshot := r.status
	r.mu.Unlock()

	if r.onStatus != nil {
		r.onStatus(snapshot)
	}
}

// recordError accumulates a per-entity error without stopping the run.
func (r *reporter) recordError(msg string) {
	r.mu.Lock()
	r.errs = append(r.errs, msg)
	r.mu.Unlock()
}

// errorCount returns the number of per-entity errors so far.
func (r *reporter) errorCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errs)
}

// snapshot returns a copy of the current status.
func (r *reporter) snapshot() models.SyncStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}
