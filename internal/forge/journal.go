// Copyright 2025 The crossforge Authors
// SPDX-License-Identifier: MIT

package forge

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitemigration"
	"zombiezen.com/go/sqlite/sqlitex"
)

//go:embed sql
var rawSQLFiles embed.FS

func sqlFiles() fs.FS {
	sub, err := fs.Sub(rawSQLFiles, "sql")
	if err != nil {
		panic(err)
	}
	return sub
}

func loadSchema() (sqlitemigration.Schema, error) {
	var schema sqlitemigration.Schema
	for i := 1; ; i++ {
		migration, err := fs.ReadFile(sqlFiles(), fmt.Sprintf("schema/%02d.sql", i))
		if errors.Is(err, fs.ErrNotExist) {
			break
		}
		if err != nil {
			return sqlitemigration.Schema{}, err
		}
		schema.Migrations = append(schema.Migrations, string(migration))
	}
	return schema, nil
}

// A Journal is the durable sqlite record of build runs and their
// per-stage outcomes. It is a supplementary record beside the on-disk
// completion markers: journal write failures never fail a build.
type Journal struct {
	pool *sqlitemigration.Pool
}

// OpenJournal opens (creating if necessary) the journal database
// at the given path.
func OpenJournal(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("open journal: %v", err)
	}
	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("open journal: %v", err)
	}
	pool := sqlitemigration.NewPool(path, schema, sqlitemigration.Options{
		Flags:    sqlite.OpenCreate | sqlite.OpenReadWrite,
		PoolSize: 1,
		PrepareConn: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteTransient(conn, "PRAGMA foreign_keys = on;", nil)
		},
	})
	return &Journal{pool: pool}, nil
}

// Close releases the journal's database connections.
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	return j.pool.Close()
}

// BeginRun records the start of a build run.
func (j *Journal) BeginRun(ctx context.Context, id uuid.UUID) error {
	if j == nil {
		return nil
	}
	conn, err := j.pool.Get(ctx)
	if err != nil {
		return fmt.Errorf("journal: begin run %v: %w", id, err)
	}
	defer j.pool.Put(conn)
	err = sqlitex.ExecuteFS(conn, sqlFiles(), "run_insert.sql", &sqlitex.ExecOptions{
		Named: map[string]any{
			":id":         id.String(),
			":created_at": time.Now().UTC().Format(time.RFC3339Nano),
		},
	})
	if err != nil {
		return fmt.Errorf("journal: begin run %v: %w", id, err)
	}
	return nil
}

// RecordStage records a stage status transition for the given run.
// exitCode is meaningful only for [StatusFailed];
// pass zero otherwise.
func (j *Journal) RecordStage(ctx context.Context, runID uuid.UUID, stage *Stage, status Status, exitCode int) error {
	if j == nil {
		return nil
	}
	conn, err := j.pool.Get(ctx)
	if err != nil {
		return fmt.Errorf("journal: record stage %s: %w", stage.Key(), err)
	}
	defer j.pool.Put(conn)

	now := time.Now().UTC().Format(time.RFC3339Nano)
	named := map[string]any{
		":run_id":     runID.String(),
		":name":       stage.Name,
		":env":        stage.Env.ID,
		":status":     status.String(),
		":exit_code":  nil,
		":started_at": nil,
		":ended_at":   nil,
	}
	switch status {
	case StatusRunning:
		named[":started_at"] = now
	case StatusFailed:
		named[":exit_code"] = exitCode
		named[":ended_at"] = now
	case StatusSucceeded, StatusSkipped:
		named[":ended_at"] = now
	}
	err = sqlitex.ExecuteFS(conn, sqlFiles(), "stage/upsert.sql", &sqlitex.ExecOptions{
		Named: named,
	})
	if err != nil {
		return fmt.Errorf("journal: record stage %s: %w", stage.Key(), err)
	}
	return nil
}

// An Outcome is the journal's record of a stage's most recent finish.
type Outcome struct {
	Status   Status
	ExitCode int
	EndedAt  time.Time
}

// LastOutcome reports the most recently recorded outcome
// of the named stage in the named environment across all runs.
// ok is false if the stage has never finished.
func (j *Journal) LastOutcome(ctx context.Context, envID, stageName string) (_ Outcome, ok bool, err error) {
	if j == nil {
		return Outcome{}, false, nil
	}
	conn, err := j.pool.Get(ctx)
	if err != nil {
		return Outcome{}, false, fmt.Errorf("journal: last outcome of %s/%s: %w", envID, stageName, err)
	}
	defer j.pool.Put(conn)

	var out Outcome
	err = sqlitex.ExecuteFS(conn, sqlFiles(), "stage/last.sql", &sqlitex.ExecOptions{
		Named: map[string]any{
			":env":  envID,
			":name": stageName,
		},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			ok = true
			var err error
			out.Status, err = parseStatus(stmt.GetText("status"))
			if err != nil {
				return err
			}
			out.ExitCode = int(stmt.GetInt64("exit_code"))
			out.EndedAt, err = time.Parse(time.RFC3339Nano, stmt.GetText("ended_at"))
			return err
		},
	})
	if err != nil {
		return Outcome{}, false, fmt.Errorf("journal: last outcome of %s/%s: %w", envID, stageName, err)
	}
	return out, ok, nil
}
