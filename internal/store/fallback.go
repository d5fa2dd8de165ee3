package store

import "log/slog"

// Fallback tries the durable backend first and falls through to the local
// snapshot store when it is absent or a call fails. The decision is made per
// call, so a transient outage degrades individual operations rather than the
// whole run, and callers never see a persistence failure.
type Fallback struct {
	primary RunStore
	local   RunStore
}

// NewFallback wires the two implementations together. primary may be nil,
// in which case every call is served locally.
func NewFallback(primary, local RunStore) *Fallback {
	return &Fallback{primary: primary, local: local}
}

func (f *Fallback) degraded(op string, err error) {
	slog.Warn("run store degraded to local fallback", "op", op, "error", err)
}

func (f *Fallback) CreateRun(goal, todo, taskMD string) (*RelayRun, error) {
	if f.primary != nil {
		run, err := f.primary.CreateRun(goal, todo, taskMD)
		if err == nil {
			return run, nil
		}
		f.degraded("create_run", err)
	}
	return f.local.CreateRun(goal, todo, taskMD)
}

func (f *Fallback) UpdateRunStatus(id string, status RunStatus) error {
	if f.primary != nil {
		if err := f.primary.UpdateRunStatus(id, status); err == nil {
			return nil
		} else {
			f.degraded("update_run_status", err)
		}
	}
	return f.local.UpdateRunStatus(id, status)
}

func (f *Fallback) UpdateRunTaskMD(id, taskMD string) error {
	if f.primary != nil {
		if err := f.primary.UpdateRunTaskMD(id, taskMD); err == nil {
			return nil
		} else {
			f.degraded("update_run_task_md", err)
		}
	}
	return f.local.UpdateRunTaskMD(id, taskMD)
}

func (f *Fallback) AddStep(step *RelayStep) (*RelayStep, error) {
	if f.primary != nil {
		out, err := f.primary.AddStep(step)
		if err == nil {
			return out, nil
		}
		f.degraded("add_step", err)
	}
	return f.local.AddStep(step)
}

func (f *Fallback) GetRun(id string) (*RelayRun, error) {
	if f.primary != nil {
		run, err := f.primary.GetRun(id)
		if err == nil && run != nil {
			return run, nil
		}
		if err != nil {
			f.degraded("get_run", err)
		}
	}
	return f.local.GetRun(id)
}

func (f *Fallback) ListSteps(runID string) ([]RelayStep, error) {
	if f.primary != nil {
		steps, err := f.primary.ListSteps(runID)
		if err == nil && len(steps) > 0 {
			return steps, nil
		}
		if err != nil {
			f.degraded("list_steps", err)
		}
		// No rows can mean the run was persisted locally during an outage.
	}
	return f.local.ListSteps(runID)
}

func (f *Fallback) ListRuns(limit int) ([]RelayRun, error) {
	if f.primary != nil {
		runs, err := f.primary.ListRuns(limit)
		if err == nil {
			return runs, nil
		}
		f.degraded("list_runs", err)
	}
	return f.local.ListRuns(limit)
}
