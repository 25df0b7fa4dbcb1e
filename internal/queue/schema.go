package queue

import (
	"context"
	_ "embed"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql changes.
const schemaVersion = 1

// sessionTables are dropped, children first, when an old schema is found.
var sessionTables = []string{"tasks", "defaults", "tracks", "schema_version"}

// initSchema creates the schema on first use. A database written by another
// schema version only ever holds a finished session, so it is rebuilt.
func (s *Store) initSchema(ctx context.Context) error {
	version, ok, err := s.storedVersion(ctx)
	if err != nil {
		return err
	}
	switch {
	case !ok:
		return s.createSchema(ctx, false)
	case version != schemaVersion:
		return s.createSchema(ctx, true)
	}
	return nil
}

func (s *Store) storedVersion(ctx context.Context) (int, bool, error) {
	var tables int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tables); err != nil {
		return 0, false, fmt.Errorf("check schema_version table: %w", err)
	}
	if tables == 0 {
		return 0, false, nil
	}
	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return 0, false, fmt.Errorf("read schema version: %w", err)
	}
	return version, true, nil
}

func (s *Store) createSchema(ctx context.Context, rebuild bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if rebuild {
		for _, table := range sessionTables {
			if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
				return fmt.Errorf("drop %s: %w", table, err)
			}
		}
	}
	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return tx.Commit()
}
