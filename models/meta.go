// models/meta.go
package models

import "time"

// Run outcomes recorded in logs, the run log and metrics.
const (
	OutcomeAppended  = "appended"
	OutcomeUnchanged = "unchanged"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
)

// RunEntry tracks a single scheduled run, mirrored into the run_log table.
type RunEntry struct {
	RunID          string    `db:"run_id" json:"run_id"`
	RunAt          time.Time `db:"run_at" json:"run_at"`
	SnapshotDate   string    `db:"snapshot_date" json:"snapshot_date"`
	Outcome        string    `db:"outcome" json:"outcome"`
	RecordID       *int      `db:"record_id" json:"record_id,omitempty"` // Set only when a record was appended
	ArchiveRecords int       `db:"archive_records" json:"archive_records"`
	GeometryHash   string    `db:"geometry_sha256" json:"geometry_sha256,omitempty"`
	Message        string    `db:"message" json:"message,omitempty"`
}
