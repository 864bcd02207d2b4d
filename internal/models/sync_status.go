package models

import "time"

// SyncState is one state of the reconciliation run state machine.
type SyncState string

const (
	StateIdle        SyncState = "idle"
	StateChecking    SyncState = "checking"
	StateUploading   SyncState = "uploading"
	StateDownloading SyncState = "downloading"
	StateCompleted   SyncState = "completed"
	StateFailed      SyncState = "failed"
	StateCancelled   SyncState = "cancelled"
)

// Terminal reports whether the state ends a run.
func (s SyncState) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled:
		return true
	}
	return false
}

// Active reports whether a run is in flight.
func (s SyncState) Active() bool {
	switch s {
	case StateChecking, StateUploading, StateDownloading:
		return true
	}
	return false
}

// SyncStatus is the observable state of one configuration's sync run.
// While a run is active there is one live instance; afterwards the last
// terminal state is persisted for display.
type SyncStatus struct {
	ConfigID string    `gorm:"primaryKey;size:64" json:"config_id"`
	State    SyncState `gorm:"size:20" json:"state"`

	// Progress is in [0,1] over the entities of the current run.
	Progress float64 `gorm:"default:0" json:"progress"`

	Message      string `gorm:"size:500" json:"message"`
	ErrorMessage string `gorm:"size:2000" json:"error_message"`

	LastAttemptAt time.Time `json:"last_attempt_at"`
}

// TableName specifies the table name for GORM.
func (SyncStatus) TableName() string {
	return "sync_statuses"
}
