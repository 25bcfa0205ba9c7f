// Package sqlbase holds the schema migration runner shared by SQL backends.
package sqlbase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
)

// migrationLockID keys the advisory lock held while migrating, so instances starting
// together apply each migration once.
const migrationLockID = 7_311_017

// Migration is one schema step. Versions start at 1 and have no gaps.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Migrator applies pending migrations inside a single transaction and records each
// applied version in schema_migrations.
type Migrator struct {
	db         *sql.DB
	logger     *slog.Logger
	migrations []Migration
}

// NewMigrator validates migrations and sorts them by version.
func NewMigrator(logger *slog.Logger, db *sql.DB, migrations []Migration) (*Migrator, error) {
	sorted := slices.Clone(migrations)
	slices.SortFunc(sorted, func(a, b Migration) int { return a.Version - b.Version })

	for i, m := range sorted {
		if m.Version != i+1 {
			return nil, fmt.Errorf("migration versions must run 1..%d without gaps, found %d at position %d",
				len(sorted), m.Version, i+1)
		}

		if m.SQL == "" {
			return nil, fmt.Errorf("migration %d (%s) has no statements", m.Version, m.Name)
		}
	}

	return &Migrator{db: db, logger: logger, migrations: sorted}, nil
}

// Latest is the highest known version, 0 when there are none.
func (m *Migrator) Latest() int {
	return len(m.migrations)
}

// Pending returns the migrations above version.
func (m *Migrator) Pending(version int) []Migration {
	if version >= len(m.migrations) {
		return nil
	}

	return m.migrations[max(version, 0):]
}

// Up brings the schema to Latest.
func (m *Migrator) Up(ctx context.Context) (err error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration transaction: %w", err)
	}

	defer func() {
		if err != nil {
			err = errors.Join(err, tx.Rollback())
		}
	}()

	if _, err = tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", migrationLockID); err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	var current int
	if err = tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	pending := m.Pending(current)
	m.logger.InfoContext(ctx, "checking database schema", "version", current, "pending", len(pending))

	for _, migration := range pending {
		if _, err = tx.ExecContext(ctx, migration.SQL); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Name, err)
		}

		_, err = tx.ExecContext(ctx, "INSERT INTO schema_migrations (version, name) VALUES ($1, $2)",
			migration.Version, migration.Name)
		if err != nil {
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		m.logger.InfoContext(ctx, "applied migration", "version", migration.Version, "name", migration.Name)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migrations: %w", err)
	}

	return nil
}
