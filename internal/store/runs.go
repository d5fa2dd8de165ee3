package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

func (s *Store) CreateRun(goal, todo, taskMD string) (*RelayRun, error) {
	now := time.Now().UTC()
	run := &RelayRun{
		ID:        uuid.New().String(),
		Goal:      goal,
		Todo:      todo,
		Status:    StatusRunning,
		TaskMD:    taskMD,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.Exec(`
		INSERT INTO relay_runs (id, goal, todo, status, task_md, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Goal, run.Todo, run.Status, run.TaskMD, run.CreatedAt, run.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	return run, nil
}

func (s *Store) UpdateRunStatus(id string, status RunStatus) error {
	_, err := s.db.Exec(`
		UPDATE relay_runs SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update run status: %w", err)
	}
	return nil
}

// UpdateRunTaskMD replaces the whole cumulative log; the caller reads it back
// and re-appends in memory.
func (s *Store) UpdateRunTaskMD(id, taskMD string) error {
	_, err := s.db.Exec(`
		UPDATE relay_runs SET task_md = ?, updated_at = ? WHERE id = ?`,
		taskMD, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update run task_md: %w", err)
	}
	return nil
}

func (s *Store) GetRun(id string) (*RelayRun, error) {
	row := s.db.QueryRow(`
		SELECT id, goal, todo, status, task_md, created_at, updated_at
		FROM relay_runs WHERE id = ?`, id)

	r := &RelayRun{}
	var todo, taskMD sql.NullString
	err := row.Scan(&r.ID, &r.Goal, &todo, &r.Status, &taskMD, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	r.Todo = todo.String
	r.TaskMD = taskMD.String
	return r, nil
}

func (s *Store) ListRuns(limit int) ([]RelayRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, goal, todo, status, task_md, created_at, updated_at
		FROM relay_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RelayRun
	for rows.Next() {
		var r RelayRun
		var todo, taskMD sql.NullString
		if err := rows.Scan(&r.ID, &r.Goal, &todo, &r.Status, &taskMD, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Todo = todo.String
		r.TaskMD = taskMD.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
