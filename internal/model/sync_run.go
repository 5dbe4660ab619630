package model

import (
	"time"

	"github.com/google/uuid"
)

// SyncRunStatus tracks a synchronization run through its state machine.
type SyncRunStatus string

const (
	SyncRunPending       SyncRunStatus = "pending"
	SyncRunRunning       SyncRunStatus = "running"
	SyncRunCompleted     SyncRunStatus = "completed"
	SyncRunFailed        SyncRunStatus = "failed"
	SyncRunRolledBack    SyncRunStatus = "rolled_back"
	SyncRunCriticalError SyncRunStatus = "critical_error"
)

// FileKind tags which export a processed file contained.
type FileKind string

const (
	FileKindFacilities FileKind = "facilities"
	FileKindServices   FileKind = "services"
)

// FileStats holds per-file row statistics inside a run result.
type FileStats struct {
	File        string   `json:"file"`
	Kind        FileKind `json:"kind"`
	TotalRows   int      `json:"total_rows"`
	ValidRows   int      `json:"valid_rows"`
	InvalidRows int      `json:"invalid_rows"`
	Imported    int      `json:"imported"`
	Updated     int      `json:"updated"`
	Skipped     int      `json:"skipped"`
	Errors      int      `json:"errors"`
}

// SyncRun is the result of one synchronization invocation. Mutated while
// the run progresses, immutable once returned to the caller.
type SyncRun struct {
	ID             uuid.UUID     `json:"id"`
	OrganizationID uuid.UUID     `json:"organization_id"`
	Status         SyncRunStatus `json:"status"`
	TotalRows      int           `json:"total_rows"`
	ValidRows      int           `json:"valid_rows"`
	InvalidRows    int           `json:"invalid_rows"`
	ImportedCount  int           `json:"imported_count"`
	UpdatedCount   int           `json:"updated_count"`
	SkippedCount   int           `json:"skipped_count"`
	ErrorCount     int           `json:"error_count"`
	Errors         []string      `json:"errors"`
	BackupCreated  bool          `json:"backup_created"`
	BackupID       *uuid.UUID    `json:"backup_id,omitempty"`
	FilesProcessed []FileStats   `json:"files_processed"`
	StartTime      time.Time     `json:"start_time"`
	EndTime        time.Time     `json:"end_time"`
}

// AddFileStats folds per-file statistics into the run totals.
func (r *SyncRun) AddFileStats(fs FileStats) {
	r.TotalRows += fs.TotalRows
	r.ValidRows += fs.ValidRows
	r.InvalidRows += fs.InvalidRows
	r.ImportedCount += fs.Imported
	r.UpdatedCount += fs.Updated
	r.SkippedCount += fs.Skipped
	r.ErrorCount += fs.Errors
	r.FilesProcessed = append(r.FilesProcessed, fs)
}

// AddError collects a non-fatal error message without aborting the run.
func (r *SyncRun) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}
