// Copyright 2025 Constellation 2.0
//
// Package readindex is an optional, derived, queryable index over a
// day's written artifacts. It is never the source of truth -- the
// flat-file ImmutableStore tree is authoritative -- this package only
// makes that tree's contents queryable by an out-of-scope dashboard. It
// can be dropped and rebuilt from the truth tree at any time with no
// loss of information.
package readindex

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Index wraps a pooled postgres connection used only to populate and
// query the derived artifact index.
type Index struct {
	db *sql.DB
}

// Open connects to dsn with a small, fixed connection pool and verifies
// connectivity before returning.
func Open(dsn string) (*Index, error) {
	if dsn == "" {
		return nil, fmt.Errorf("readindex: dsn cannot be empty")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("readindex: failed to open database: %w", err)
	}

	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("readindex: failed to ping database: %w", err)
	}

	return &Index{db: db}, nil
}

// Close releases the underlying connection pool.
func (i *Index) Close() error { return i.db.Close() }

// EnsureSchema creates the artifact index table if it does not already
// exist. Safe to call on every process start.
func (i *Index) EnsureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS c2_kernel_artifacts (
	day_utc       TEXT NOT NULL,
	stage         TEXT NOT NULL,
	schema_id     TEXT NOT NULL,
	artifact_hash TEXT NOT NULL,
	status        TEXT NOT NULL,
	produced_utc  TEXT NOT NULL,
	PRIMARY KEY (day_utc, stage, schema_id)
)`
	_, err := i.db.ExecContext(ctx, ddl)
	if err != nil {
		return fmt.Errorf("readindex: failed to ensure schema: %w", err)
	}
	return nil
}

// ArtifactRow is one row Populate writes into the derived index.
type ArtifactRow struct {
	DayUTC       string
	Stage        string
	SchemaID     string
	ArtifactHash string
	Status       string
	ProducedUTC  string
}

// Populate upserts a day's artifact rows into the index. It is the only
// write path this package exposes -- there is no Delete, since the
// index is always rebuilt forward from the truth tree, never edited.
func (i *Index) Populate(ctx context.Context, rows []ArtifactRow) error {
	const upsert = `
INSERT INTO c2_kernel_artifacts (day_utc, stage, schema_id, artifact_hash, status, produced_utc)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (day_utc, stage, schema_id) DO UPDATE
SET artifact_hash = EXCLUDED.artifact_hash,
    status        = EXCLUDED.status,
    produced_utc  = EXCLUDED.produced_utc`

	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("readindex: failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, r := range rows {
		if _, err := tx.ExecContext(ctx, upsert, r.DayUTC, r.Stage, r.SchemaID, r.ArtifactHash, r.Status, r.ProducedUTC); err != nil {
			return fmt.Errorf("readindex: failed to upsert artifact row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("readindex: failed to commit: %w", err)
	}
	return nil
}

// StatusForDay reports the recorded status of a single stage's artifact
// for a day, or sql.ErrNoRows if the index has never seen it.
func (i *Index) StatusForDay(ctx context.Context, dayUTC, stage string) (string, error) {
	var status string
	row := i.db.QueryRowContext(ctx,
		`SELECT status FROM c2_kernel_artifacts WHERE day_utc = $1 AND stage = $2 LIMIT 1`,
		dayUTC, stage)
	if err := row.Scan(&status); err != nil {
		return "", err
	}
	return status, nil
}
