package store

import (
	"path/filepath"
	"testing"

	"github.com/emilalvaro25/vibe/internal/config"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := New(config.StoreConfig{Path: filepath.Join(dir, "test.db")})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRunLifecycle(t *testing.T) {
	s := newTestStore(t)

	run, err := s.CreateRun("build a todo app", "keep it simple", "# Task Log\n")
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	if run.ID == "" {
		t.Fatal("expected generated run id")
	}
	if run.Status != StatusRunning {
		t.Errorf("expected running status, got %s", run.Status)
	}

	got, err := s.GetRun(run.ID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if got == nil {
		t.Fatal("expected run, got nil")
	}
	if got.Goal != "build a todo app" || got.Todo != "keep it simple" {
		t.Errorf("round-trip mismatch: %+v", got)
	}
	if got.TaskMD != "# Task Log\n" {
		t.Errorf("task_md mismatch: %q", got.TaskMD)
	}

	if err := s.UpdateRunTaskMD(run.ID, got.TaskMD+"\nmore\n"); err != nil {
		t.Fatalf("update task_md: %v", err)
	}
	if err := s.UpdateRunStatus(run.ID, StatusDone); err != nil {
		t.Fatalf("update status: %v", err)
	}

	got, _ = s.GetRun(run.ID)
	if got.Status != StatusDone {
		t.Errorf("expected done, got %s", got.Status)
	}
	if got.TaskMD != "# Task Log\n\nmore\n" {
		t.Errorf("task_md not replaced: %q", got.TaskMD)
	}
	if !got.UpdatedAt.After(got.CreatedAt) {
		t.Error("updated_at not refreshed on mutation")
	}

	// Not found
	missing, err := s.GetRun("nonexistent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for unknown run")
	}
}

func TestStepsOrderedAndImmutableShape(t *testing.T) {
	s := newTestStore(t)

	run, _ := s.CreateRun("goal", "", "")

	for i, agent := range []string{"GEM-API-1", "GEM-API-2", "GEM-API-3"} {
		_, err := s.AddStep(&RelayStep{
			RunID:   run.ID,
			AgentID: agent,
			Role:    "planner",
			Input:   "prompt",
			Output:  "output",
			Checklist: []CheckItem{
				{Name: "Spec satisfied", Pass: i%2 == 0},
				{Name: "No TODOs left in code", Pass: true},
			},
		})
		if err != nil {
			t.Fatalf("add step %d: %v", i, err)
		}
	}

	steps, err := s.ListSteps(run.ID)
	if err != nil {
		t.Fatalf("list steps: %v", err)
	}
	if len(steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(steps))
	}
	for i, want := range []string{"GEM-API-1", "GEM-API-2", "GEM-API-3"} {
		if steps[i].AgentID != want {
			t.Errorf("step %d agent %q, want %q", i, steps[i].AgentID, want)
		}
	}
	if len(steps[0].Checklist) != 2 {
		t.Errorf("checklist not round-tripped: %+v", steps[0].Checklist)
	}
	if steps[0].Status != "ok" {
		t.Errorf("expected default ok status, got %q", steps[0].Status)
	}

	// Steps for other runs are not returned.
	other, _ := s.CreateRun("other", "", "")
	steps, _ = s.ListSteps(other.ID)
	if len(steps) != 0 {
		t.Errorf("expected no steps for fresh run, got %d", len(steps))
	}
}

func TestListRuns(t *testing.T) {
	s := newTestStore(t)

	for _, g := range []string{"one", "two", "three"} {
		if _, err := s.CreateRun(g, "", ""); err != nil {
			t.Fatalf("create run: %v", err)
		}
	}

	runs, err := s.ListRuns(2)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("expected limit of 2, got %d", len(runs))
	}
}

func TestScheduleCRUD(t *testing.T) {
	s := newTestStore(t)

	sc := &Schedule{
		ID:       "sched-1",
		Name:     "nightly",
		Goal:     "rebuild the landing page",
		Schedule: `{"kind":"cron","cron_expr":"0 3 * * *"}`,
		Status:   "active",
	}
	if err := s.SaveSchedule(sc); err != nil {
		t.Fatalf("save schedule: %v", err)
	}

	got, err := s.GetSchedule("sched-1")
	if err != nil {
		t.Fatalf("get schedule: %v", err)
	}
	if got == nil || got.Name != "nightly" {
		t.Fatalf("unexpected schedule: %+v", got)
	}

	all, _ := s.ListSchedules()
	if len(all) != 1 {
		t.Errorf("expected 1 schedule, got %d", len(all))
	}

	if err := s.UpdateScheduleStatus("sched-1", "paused"); err != nil {
		t.Fatalf("update status: %v", err)
	}
	got, _ = s.GetSchedule("sched-1")
	if got.Status != "paused" {
		t.Errorf("expected paused, got %s", got.Status)
	}

	if err := s.DeleteSchedule("sched-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, _ = s.GetSchedule("sched-1")
	if got != nil {
		t.Error("expected nil after delete")
	}
}

func TestSecretCRUD(t *testing.T) {
	s := newTestStore(t)

	if err := s.SaveSecret(&Secret{Name: "gemini_api_key", Value: []byte{1, 2}, Nonce: []byte{3}}); err != nil {
		t.Fatalf("save secret: %v", err)
	}

	got, err := s.GetSecret("gemini_api_key")
	if err != nil {
		t.Fatalf("get secret: %v", err)
	}
	if got == nil || len(got.Value) != 2 {
		t.Fatalf("unexpected secret: %+v", got)
	}

	names, _ := s.ListSecretNames()
	if len(names) != 1 || names[0] != "gemini_api_key" {
		t.Errorf("unexpected names: %v", names)
	}

	missing, err := s.GetSecret("nope")
	if err != nil || missing != nil {
		t.Errorf("expected nil,nil for unknown secret, got %v, %v", missing, err)
	}
}
