// database/archive_store.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/paulmach/orb/geojson"

	"github.com/cyterat/deepstate-map-data/archive"
	"github.com/cyterat/deepstate-map-data/geometry"
	"github.com/cyterat/deepstate-map-data/models"
)

// MaxRecordID returns the highest mirrored archive id, or -1 when none.
func (s *Store) MaxRecordID(ctx context.Context) (int, error) {
	var maxID int
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), -1) FROM archive_records`).Scan(&maxID)
	if err != nil {
		return 0, fmt.Errorf("failed to query max archive id: %w", err)
	}
	return maxID, nil
}

// MirrorRecords inserts every record newer than the mirrored max id. Records
// already present are skipped, so the mirror converges on repeated calls.
func (s *Store) MirrorRecords(ctx context.Context, records []models.ArchiveRecord) (int, error) {
	maxID, err := s.MaxRecordID(ctx)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction for archive records: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO archive_records (
			id, record_date, polygons, points, area_km2, geometry_sha256, geometry
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare archive record insert statement: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, rec := range records {
		if rec.ID <= maxID {
			continue
		}
		geom, err := geojson.NewGeometry(rec.Geometry).MarshalJSON()
		if err != nil {
			return 0, fmt.Errorf("failed to encode geometry of record %d: %w", rec.ID, err)
		}
		polygons, _, points := geometry.Counts(rec.Geometry)
		_, err = stmt.ExecContext(ctx,
			rec.ID, models.FormatDate(rec.Date), polygons, points,
			geometry.AreaKm2(rec.Geometry), geometry.Hash(rec.Geometry), string(geom),
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert archive record %d: %w", rec.ID, err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit archive records: %w", err)
	}
	s.logger.Info("mirrored archive records", "inserted", inserted, "previous_max_id", maxID)
	return inserted, nil
}

// LoadRecordGeometry returns the mirrored geometry of record id.
func (s *Store) LoadRecordGeometry(ctx context.Context, id int) (*models.ArchiveRecord, error) {
	var rawDate, rawGeom string
	err := s.db.QueryRowContext(ctx,
		`SELECT record_date, geometry FROM archive_records WHERE id = ?`, id,
	).Scan(&rawDate, &rawGeom)
	if err != nil {
		return nil, fmt.Errorf("failed to load archive record %d: %w", id, err)
	}

	g, err := geojson.UnmarshalGeometry([]byte(rawGeom))
	if err != nil {
		return nil, fmt.Errorf("failed to decode geometry of record %d: %w", id, err)
	}
	mp, err := geometry.Normalize(g.Geometry())
	if err != nil {
		return nil, err
	}
	d, err := models.ParseDate(rawDate)
	if err != nil {
		return nil, err
	}
	return &models.ArchiveRecord{ID: id, Date: d, Geometry: mp}, nil
}

// VerifyMirror compares the mirrored records with a. Archive records not yet
// mirrored are not violations; mirrored ids the archive lacks, and mirrored
// dates or geometries that differ from the archive, are.
func (s *Store) VerifyMirror(ctx context.Context, a *archive.Archive) ([]archive.Violation, error) {
	maxID, err := s.MaxRecordID(ctx)
	if err != nil {
		return nil, err
	}

	var out []archive.Violation
	for i, rec := range a.Records {
		if rec.ID > maxID {
			continue
		}
		mirrored, err := s.LoadRecordGeometry(ctx, rec.ID)
		if errors.Is(err, sql.ErrNoRows) {
			out = append(out, archive.Violation{Index: i, Rule: archive.RuleMirror,
				Detail: fmt.Sprintf("id %d missing from mirror", rec.ID)})
			continue
		}
		if err != nil {
			return nil, err
		}
		if !mirrored.Date.Equal(rec.Date) {
			out = append(out, archive.Violation{Index: i, Rule: archive.RuleMirror,
				Detail: fmt.Sprintf("mirror date %s, archive date %s",
					models.FormatDate(mirrored.Date), models.FormatDate(rec.Date))})
		}
		if !geometry.Equal(mirrored.Geometry, rec.Geometry) {
			out = append(out, archive.Violation{Index: i, Rule: archive.RuleMirror,
				Detail: "mirror geometry differs from archive"})
		}
	}

	lastID := -1
	if last, ok := a.Last(); ok {
		lastID = last.ID
	}
	if maxID > lastID {
		out = append(out, archive.Violation{Index: a.Len(), Rule: archive.RuleMirror,
			Detail: fmt.Sprintf("mirror holds ids up to %d, archive ends at %d", maxID, lastID)})
	}
	return out, nil
}
