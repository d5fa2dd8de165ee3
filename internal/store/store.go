package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/emilalvaro25/vibe/internal/config"
	_ "modernc.org/sqlite"
)

type RunStatus string

const (
	StatusRunning RunStatus = "running"
	StatusDone    RunStatus = "done"
	StatusError   RunStatus = "error"
)

// RelayRun is one end-to-end execution of the agent pipeline.
type RelayRun struct {
	ID        string    `json:"id"`
	Goal      string    `json:"goal"`
	Todo      string    `json:"todo"`
	Status    RunStatus `json:"status"`
	TaskMD    string    `json:"task_md"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CheckItem is one entry of the per-step rubric.
type CheckItem struct {
	Name string `json:"name"`
	Pass bool   `json:"pass"`
}

// RelayStep is a single agent stage's persisted record.
type RelayStep struct {
	ID        string      `json:"id"`
	RunID     string      `json:"run_id"`
	AgentID   string      `json:"agent_id"`
	Role      string      `json:"role"`
	Input     string      `json:"input"`
	Output    string      `json:"output"`
	Checklist []CheckItem `json:"checklist"`
	Status    string      `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
}

// RunStore is the persistence contract the orchestrator and UI share.
// Identifiers are generated by the store; steps are append-only and ordered
// by creation time.
type RunStore interface {
	CreateRun(goal, todo, taskMD string) (*RelayRun, error)
	UpdateRunStatus(id string, status RunStatus) error
	UpdateRunTaskMD(id, taskMD string) error
	AddStep(step *RelayStep) (*RelayStep, error)
	GetRun(id string) (*RelayRun, error)
	ListSteps(runID string) ([]RelayStep, error)
	ListRuns(limit int) ([]RelayRun, error)
}

// Store is the durable sqlite-backed implementation.
type Store struct {
	db *sql.DB
}

func New(cfg config.StoreConfig) (*Store, error) {
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// WAL for concurrent readers while a run is writing, busy timeout so
	// writers retry instead of returning SQLITE_BUSY.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("exec %s: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS relay_runs (
			id          TEXT PRIMARY KEY,
			goal        TEXT NOT NULL,
			todo        TEXT,
			status      TEXT DEFAULT 'running',
			task_md     TEXT,
			created_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at  DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS relay_steps (
			id          TEXT PRIMARY KEY,
			run_id      TEXT NOT NULL REFERENCES relay_runs(id),
			agent_id    TEXT NOT NULL,
			role        TEXT NOT NULL,
			input       TEXT,
			output      TEXT,
			checklist   TEXT,
			status      TEXT DEFAULT 'ok',
			created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_steps_run ON relay_steps(run_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS relay_schedules (
			id           TEXT PRIMARY KEY,
			name         TEXT NOT NULL,
			goal         TEXT NOT NULL,
			todo         TEXT,
			schedule     TEXT NOT NULL,
			status       TEXT DEFAULT 'active',
			next_run_at  DATETIME,
			last_run_at  DATETIME,
			last_status  TEXT,
			last_error   TEXT,
			created_at   DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_schedules_next_run ON relay_schedules(status, next_run_at)`,
		`CREATE TABLE IF NOT EXISTS secrets (
			name        TEXT PRIMARY KEY,
			value       BLOB NOT NULL,
			nonce       BLOB NOT NULL,
			updated_at  DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}

	return nil
}
