// Package history persists terminal workflows to a local SQLite journal so
// operators can inspect outcomes across process restarts. The journal is
// append-only and strictly observational; the pipeline itself remains
// in-memory.
package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rartzi/agentic-drop-zones/pkg/models"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS workflows (
	workflow_id TEXT PRIMARY KEY,
	zone        TEXT NOT NULL,
	file_path   TEXT NOT NULL,
	agent       TEXT NOT NULL,
	state       TEXT NOT NULL,
	error       TEXT,
	created_at  TEXT NOT NULL,
	started_at  TEXT,
	finished_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_workflows_finished_at ON workflows(finished_at);
`

// Store is a SQLite-backed journal of terminal workflows.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the journal at the given path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database '%s': %w", path, err)
	}
	// The journal is written from a single goroutine at a time, but the
	// health surface may read concurrently.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Append records a terminal workflow. Non-terminal workflows are rejected.
func (s *Store) Append(wf models.Workflow) error {
	if !wf.State.Terminal() {
		return fmt.Errorf("refusing to journal non-terminal workflow %s in state %s", wf.ID, wf.State)
	}

	var startedAt any
	if !wf.StartedAt.IsZero() {
		startedAt = wf.StartedAt.Format(time.RFC3339Nano)
	}

	_, err := s.db.Exec(
		`INSERT INTO workflows (workflow_id, zone, file_path, agent, state, error, created_at, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		wf.ID, wf.Zone, wf.FilePath, wf.Agent, string(wf.State), wf.Error,
		wf.CreatedAt.Format(time.RFC3339Nano), startedAt, wf.FinishedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to journal workflow %s: %w", wf.ID, err)
	}
	return nil
}

// Recent returns up to limit journaled workflows, newest first.
func (s *Store) Recent(limit int) ([]models.Workflow, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(
		`SELECT workflow_id, zone, file_path, agent, state, error, created_at, started_at, finished_at
		 FROM workflows ORDER BY finished_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow history: %w", err)
	}
	defer rows.Close()

	var out []models.Workflow
	for rows.Next() {
		var wf models.Workflow
		var state, createdAt, finishedAt string
		var errMsg, startedAt sql.NullString
		if err := rows.Scan(&wf.ID, &wf.Zone, &wf.FilePath, &wf.Agent, &state, &errMsg, &createdAt, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan workflow history row: %w", err)
		}
		wf.State = models.WorkflowState(state)
		wf.Error = errMsg.String
		wf.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		if startedAt.Valid {
			wf.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt.String)
		}
		wf.FinishedAt, _ = time.Parse(time.RFC3339Nano, finishedAt)
		out = append(out, wf)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
