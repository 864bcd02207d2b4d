package models

import "time"

// MigrationError records why one attachment could not be migrated.
type MigrationError struct {
	AttachmentID string `json:"attachment_id"`
	Reason       string `json:"reason"`
}

// MigrationResult summarizes one migration run.
type MigrationResult struct {
	TotalAttachments     int              `json:"total_attachments"`
	MigratedSuccessfully int              `json:"migrated_successfully"`
	AlreadyMigrated      int              `json:"already_migrated"`
	Failed               int              `json:"failed"`
	Errors               []MigrationError `json:"errors,omitempty"`
	Duration             time.Duration    `json:"duration"`
}

// SuccessRate is the share of attachments that ended the run on a
// modern path, whether this run moved them or they already were. With
// nothing to process the run is vacuously fully successful, so an empty
// run reports 1.0.
func (r *MigrationResult) SuccessRate() float64 {
	if r.TotalAttachments == 0 {
		return 1.0
	}
	return float64(r.MigratedSuccessfully+r.AlreadyMigrated) / float64(r.TotalAttachments)
}

// HasErrors reports whether any attachment failed.
func (r *MigrationResult) HasErrors() bool {
	return r.Failed > 0
}

// IsComplete reports whether every attachment was accounted for.
func (r *MigrationResult) IsComplete() bool {
	return r.MigratedSuccessfully+r.AlreadyMigrated+r.Failed == r.TotalAttachments
}

// ValidationReport is the observational result of a validation pass over
// all attachment paths. It never reflects mutation; validation only reads.
type ValidationReport struct {
	Total             int      `json:"total"`
	Accessible        int      `json:"accessible"`
	Inaccessible      int      `json:"inaccessible"`
	InaccessibleFiles []string `json:"inaccessible_files,omitempty"`
}

// SuccessRate is accessible/total, 1.0 for an empty store.
func (r *ValidationReport) SuccessRate() float64 {
	if r.Total == 0 {
		return 1.0
	}
	return float64(r.Accessible) / float64(r.Total)
}
