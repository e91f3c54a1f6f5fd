package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration is one schema step. Steps apply in slice order and each one
// runs in its own transaction together with its version record.
type Migration struct {
	Version    int
	Statements []string
}

// Migrate applies the steps of component newer than its recorded version.
// Several components share one database file and version independently.
func Migrate(ctx context.Context, db *sql.DB, component string, steps []Migration) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (
		component TEXT PRIMARY KEY,
		version   INTEGER NOT NULL
	)`); err != nil {
		return fmt.Errorf("%s: create schema_version: %w", component, err)
	}

	current, err := SchemaVersion(ctx, db, component)
	if err != nil {
		return err
	}
	for _, step := range steps {
		if step.Version <= current {
			continue
		}
		if err := applyStep(ctx, db, component, step); err != nil {
			return err
		}
		current = step.Version
	}
	return nil
}

// SchemaVersion returns the applied version of component, 0 when none.
func SchemaVersion(ctx context.Context, db *sql.DB, component string) (int, error) {
	var v int
	err := db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(version), 0) FROM schema_version WHERE component = ?", component,
	).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("%s: read schema version: %w", component, err)
	}
	return v, nil
}

func applyStep(ctx context.Context, db *sql.DB, component string, step Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin migration %d: %w", component, step.Version, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, stmt := range step.Statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s: migration %d: %w\nstatement: %s", component, step.Version, err, stmt)
		}
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO schema_version (component, version) VALUES (?, ?)", component, step.Version,
	); err != nil {
		return fmt.Errorf("%s: record version %d: %w", component, step.Version, err)
	}
	return tx.Commit()
}
