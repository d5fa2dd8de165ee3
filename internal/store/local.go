package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	localRunsFile  = "relay_runs.json"
	localStepsFile = "relay_steps.json"
)

// Local is the on-device fallback implementation of RunStore: two named
// whole-collection JSON snapshots, read-modify-write per call. It serves the
// identical contract as the sqlite store so callers stay agnostic to which
// path handled a given operation.
type Local struct {
	dir string
	mu  sync.Mutex
}

func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create local store dir: %w", err)
	}
	return &Local{dir: dir}, nil
}

func readSnapshot[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return out, nil
}

func writeSnapshot[T any](path string, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

func (l *Local) runsPath() string  { return filepath.Join(l.dir, localRunsFile) }
func (l *Local) stepsPath() string { return filepath.Join(l.dir, localStepsFile) }

func (l *Local) CreateRun(goal, todo, taskMD string) (*RelayRun, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	runs, err := readSnapshot[RelayRun](l.runsPath())
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	run := RelayRun{
		ID:        uuid.New().String(),
		Goal:      goal,
		Todo:      todo,
		Status:    StatusRunning,
		TaskMD:    taskMD,
		CreatedAt: now,
		UpdatedAt: now,
	}
	runs = append([]RelayRun{run}, runs...)
	if err := writeSnapshot(l.runsPath(), runs); err != nil {
		return nil, err
	}
	return &run, nil
}

func (l *Local) updateRun(id string, patch func(*RelayRun)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	runs, err := readSnapshot[RelayRun](l.runsPath())
	if err != nil {
		return err
	}
	for i := range runs {
		if runs[i].ID == id {
			patch(&runs[i])
			runs[i].UpdatedAt = time.Now().UTC()
			return writeSnapshot(l.runsPath(), runs)
		}
	}
	return fmt.Errorf("run not found: %s", id)
}

func (l *Local) UpdateRunStatus(id string, status RunStatus) error {
	return l.updateRun(id, func(r *RelayRun) { r.Status = status })
}

func (l *Local) UpdateRunTaskMD(id, taskMD string) error {
	return l.updateRun(id, func(r *RelayRun) { r.TaskMD = taskMD })
}

func (l *Local) AddStep(step *RelayStep) (*RelayStep, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	steps, err := readSnapshot[RelayStep](l.stepsPath())
	if err != nil {
		return nil, err
	}

	out := *step
	out.ID = uuid.New().String()
	out.CreatedAt = time.Now().UTC()
	if out.Status == "" {
		out.Status = "ok"
	}
	steps = append(steps, out)
	if err := writeSnapshot(l.stepsPath(), steps); err != nil {
		return nil, err
	}
	return &out, nil
}

func (l *Local) GetRun(id string) (*RelayRun, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	runs, err := readSnapshot[RelayRun](l.runsPath())
	if err != nil {
		return nil, err
	}
	for i := range runs {
		if runs[i].ID == id {
			return &runs[i], nil
		}
	}
	return nil, nil
}

func (l *Local) ListSteps(runID string) ([]RelayStep, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	all, err := readSnapshot[RelayStep](l.stepsPath())
	if err != nil {
		return nil, err
	}
	var steps []RelayStep
	for _, st := range all {
		if st.RunID == runID {
			steps = append(steps, st)
		}
	}
	// Snapshot order is insertion order, which is creation order.
	return steps, nil
}

func (l *Local) ListRuns(limit int) ([]RelayRun, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	runs, err := readSnapshot[RelayRun](l.runsPath())
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}
