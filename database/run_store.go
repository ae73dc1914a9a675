// database/run_store.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cyterat/deepstate-map-data/models"
)

// runAtLayout is fixed-width so run_at sorts lexically in both backends.
const runAtLayout = "2006-01-02T15:04:05.000000Z"

// LogRun records the outcome of one scheduled run. A missing RunID is
// filled with a time-ordered UUID.
func (s *Store) LogRun(ctx context.Context, entry *models.RunEntry) error {
	if entry.RunID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate run id: %w", err)
		}
		entry.RunID = id.String()
	}
	if entry.RunAt.IsZero() {
		entry.RunAt = time.Now().UTC()
	}

	var recordID sql.NullInt64
	if entry.RecordID != nil {
		recordID = sql.NullInt64{Int64: int64(*entry.RecordID), Valid: true}
	}
	var hash, message sql.NullString
	if entry.GeometryHash != "" {
		hash = sql.NullString{String: entry.GeometryHash, Valid: true}
	}
	if entry.Message != "" {
		message = sql.NullString{String: entry.Message, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO run_log (
			run_id, run_at, snapshot_date, outcome, record_id,
			archive_records, geometry_sha256, message
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.RunID, entry.RunAt.UTC().Format(runAtLayout), entry.SnapshotDate, entry.Outcome,
		recordID, entry.ArchiveRecords, hash, message,
	)
	if err != nil {
		return fmt.Errorf("failed to log run %s: %w", entry.RunID, err)
	}
	return nil
}

// RecentRuns returns up to limit run-log rows, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]models.RunEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, run_at, snapshot_date, outcome, record_id,
		       archive_records, geometry_sha256, message
		FROM run_log
		ORDER BY run_at DESC, run_id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query run_log: %w", err)
	}
	defer rows.Close()

	var runs []models.RunEntry
	for rows.Next() {
		var e models.RunEntry
		var runAt string
		var recordID sql.NullInt64
		var hash, message sql.NullString

		if err := rows.Scan(&e.RunID, &runAt, &e.SnapshotDate, &e.Outcome, &recordID,
			&e.ArchiveRecords, &hash, &message); err != nil {
			return nil, fmt.Errorf("failed to scan run_log row: %w", err)
		}
		if e.RunAt, err = time.Parse(runAtLayout, runAt); err != nil {
			return nil, fmt.Errorf("invalid run_at %q: %w", runAt, err)
		}
		if recordID.Valid {
			id := int(recordID.Int64)
			e.RecordID = &id
		}
		e.GeometryHash = hash.String
		e.Message = message.String
		runs = append(runs, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run_log rows: %w", err)
	}
	return runs, nil
}
