// database/connection.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/go-sql-driver/mysql" // MariaDB driver
	_ "modernc.org/sqlite"             // SQLite driver, registered as "sqlite"

	"github.com/cyterat/deepstate-map-data/config"
)

// Store mirrors archive records and run history into a SQL database.
type Store struct {
	db     *sql.DB
	driver string
	logger *slog.Logger
}

// Open connects to the configured database and ensures the schema exists.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var driverName string
	switch cfg.Driver {
	case "mysql":
		driverName = "mysql"
	case "sqlite":
		driverName = "sqlite"
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := sql.Open(driverName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if cfg.Driver == "sqlite" {
		// SQLite allows a single writer.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db, driver: cfg.Driver, logger: logger}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	logger.Debug("connected to database", "driver", cfg.Driver)
	return s, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS archive_records (
		id BIGINT NOT NULL PRIMARY KEY,
		record_date VARCHAR(10) NOT NULL,
		polygons INT NOT NULL,
		points INT NOT NULL,
		area_km2 DOUBLE NOT NULL,
		geometry_sha256 CHAR(64) NOT NULL,
		geometry LONGTEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS run_log (
		run_id CHAR(36) NOT NULL PRIMARY KEY,
		run_at VARCHAR(35) NOT NULL,
		snapshot_date VARCHAR(10) NOT NULL,
		outcome VARCHAR(16) NOT NULL,
		record_id BIGINT NULL,
		archive_records INT NOT NULL,
		geometry_sha256 CHAR(64) NULL,
		message TEXT NULL
	)`,
}

func (s *Store) ensureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
