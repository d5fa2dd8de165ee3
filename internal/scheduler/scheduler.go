// Package scheduler polls the schedule table and launches relay runs when
// their next-run time arrives.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/emilalvaro25/vibe/internal/natsbus"
	"github.com/emilalvaro25/vibe/internal/schedule"
	"github.com/emilalvaro25/vibe/internal/store"
)

// Runner starts one relay run. Satisfied by relay.Orchestrator.
type Runner interface {
	Run(ctx context.Context, goal, todo string) (string, error)
}

// ScheduleStore is the slice of persistence the scheduler needs.
type ScheduleStore interface {
	GetDueSchedules(now time.Time) ([]store.Schedule, error)
	UpdateScheduleRun(id string, lastStatus, lastError string, nextRunAt *time.Time) error
	UpdateScheduleStatus(id string, status string) error
}

// Publisher fans fired-schedule events out. Satisfied by natsbus.Client.
type Publisher interface {
	PublishJSON(topic string, v any) error
}

type Scheduler struct {
	store        ScheduleStore
	runner       Runner
	pub          Publisher
	pollInterval time.Duration
	reloadCh     chan struct{}
}

func New(st ScheduleStore, runner Runner, pub Publisher, pollInterval time.Duration) *Scheduler {
	return &Scheduler{
		store:        st,
		runner:       runner,
		pub:          pub,
		pollInterval: pollInterval,
		reloadCh:     make(chan struct{}, 1),
	}
}

// SetPollInterval changes the cadence and signals the run loop to reset its
// ticker.
func (s *Scheduler) SetPollInterval(d time.Duration) {
	s.pollInterval = d
	select {
	case s.reloadCh <- struct{}{}:
	default:
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	if s.pollInterval == 0 {
		s.pollInterval = 30 * time.Second
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	slog.Info("scheduler started", "poll_interval", s.pollInterval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler stopped")
			return
		case <-s.reloadCh:
			ticker.Reset(s.pollInterval)
			slog.Info("scheduler poll interval changed", "poll_interval", s.pollInterval)
		case <-ticker.C:
			s.Poll(ctx)
		}
	}
}

// Poll runs every due schedule once. Exposed so a one-shot CLI invocation
// can drain due schedules without the ticker loop.
func (s *Scheduler) Poll(ctx context.Context) {
	due, err := s.store.GetDueSchedules(time.Now())
	if err != nil {
		slog.Error("failed to get due schedules", "error", err)
		return
	}
	for _, sc := range due {
		s.execute(ctx, sc)
	}
}

func (s *Scheduler) execute(ctx context.Context, sc store.Schedule) {
	slog.Info("firing schedule", "id", sc.ID, "name", sc.Name)

	runID, err := s.runner.Run(ctx, sc.Goal, sc.Todo)

	lastStatus := "success"
	lastError := ""
	if err != nil {
		lastStatus = "error"
		lastError = err.Error()
		slog.Error("scheduled run failed", "id", sc.ID, "run", runID, "error", err)
	}

	nextRun := schedule.NextRun(sc.Schedule)

	if err := s.store.UpdateScheduleRun(sc.ID, lastStatus, lastError, nextRun); err != nil {
		slog.Error("failed to update schedule", "id", sc.ID, "error", err)
	}

	if s.pub != nil {
		event := map[string]any{
			"id":        sc.ID,
			"name":      sc.Name,
			"run_id":    runID,
			"status":    lastStatus,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}
		if err := s.pub.PublishJSON(natsbus.TopicScheduleFired, event); err != nil {
			slog.Warn("publish schedule event", "id", sc.ID, "error", err)
		}
	}

	// One-shots with no next run are retired rather than re-polled forever.
	if nextRun == nil {
		slog.Info("schedule has no next run, completing", "id", sc.ID, "name", sc.Name)
		if err := s.store.UpdateScheduleStatus(sc.ID, "completed"); err != nil {
			slog.Error("failed to complete schedule", "id", sc.ID, "error", err)
		}
	}
}
