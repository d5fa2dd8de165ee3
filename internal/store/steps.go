package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

func (s *Store) AddStep(step *RelayStep) (*RelayStep, error) {
	out := *step
	out.ID = uuid.New().String()
	out.CreatedAt = time.Now().UTC()
	if out.Status == "" {
		out.Status = "ok"
	}

	checklist, err := json.Marshal(out.Checklist)
	if err != nil {
		return nil, fmt.Errorf("marshal checklist: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO relay_steps (id, run_id, agent_id, role, input, output, checklist, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		out.ID, out.RunID, out.AgentID, out.Role, out.Input, out.Output, string(checklist), out.Status, out.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("add step: %w", err)
	}
	return &out, nil
}

func (s *Store) ListSteps(runID string) ([]RelayStep, error) {
	rows, err := s.db.Query(`
		SELECT id, run_id, agent_id, role, input, output, checklist, status, created_at
		FROM relay_steps WHERE run_id = ? ORDER BY created_at, rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	defer rows.Close()

	var steps []RelayStep
	for rows.Next() {
		var st RelayStep
		var checklist string
		if err := rows.Scan(&st.ID, &st.RunID, &st.AgentID, &st.Role, &st.Input, &st.Output, &checklist, &st.Status, &st.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		if checklist != "" {
			if err := json.Unmarshal([]byte(checklist), &st.Checklist); err != nil {
				return nil, fmt.Errorf("unmarshal checklist: %w", err)
			}
		}
		steps = append(steps, st)
	}
	return steps, rows.Err()
}
