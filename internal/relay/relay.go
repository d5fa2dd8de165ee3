// Package relay runs the fixed ten-agent generation pipeline. Each agent
// sees the shared context, the latest artifact, and the cumulative task.md
// log, and every stage is persisted before and after its model call so a
// crash mid-run leaves an inspectable trail.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/emilalvaro25/vibe/internal/autofix"
	"github.com/emilalvaro25/vibe/internal/intent"
	"github.com/emilalvaro25/vibe/internal/llm"
	"github.com/emilalvaro25/vibe/internal/natsbus"
	"github.com/emilalvaro25/vibe/internal/store"
)

// Notifier receives run lifecycle signals. Satisfied by reporter.Reporter.
type Notifier interface {
	StartGeneration(runID string)
	EndGeneration(runID string, success bool)
}

// Publisher fans stage events out to external listeners. Satisfied by
// natsbus.Client. Publish failures are logged, never fatal to the run.
type Publisher interface {
	PublishJSON(topic string, v any) error
}

// Event is the wire form of one stage transition on a run's topic.
type Event struct {
	RunID   string `json:"run_id"`
	AgentID string `json:"agent_id,omitempty"`
	Role    string `json:"role,omitempty"`
	Stage   int    `json:"stage,omitempty"`
	Status  string `json:"status"`
}

// Options carries the optional collaborators. Zero values fall back to the
// built-in classifier and rubric, no notifier, and no event publishing.
type Options struct {
	ModelFor   func(agentID string) string
	Notifier   Notifier
	Classifier intent.Classifier
	Rubric     Rubric
	Publisher  Publisher
	Logger     *slog.Logger
}

type Orchestrator struct {
	store    store.RunStore
	gateway  llm.Gateway
	modelFor func(agentID string) string
	notifier Notifier
	classify intent.Classifier
	rubric   Rubric
	pub      Publisher
	log      *slog.Logger
}

func New(st store.RunStore, gw llm.Gateway, opts Options) *Orchestrator {
	o := &Orchestrator{
		store:    st,
		gateway:  gw,
		modelFor: opts.ModelFor,
		notifier: opts.Notifier,
		classify: opts.Classifier,
		rubric:   opts.Rubric,
		pub:      opts.Publisher,
		log:      opts.Logger,
	}
	if o.classify == nil {
		o.classify = intent.Default
	}
	if o.rubric == nil {
		o.rubric = DefaultRubric
	}
	if o.log == nil {
		o.log = slog.Default()
	}
	return o
}

var coderRoles = regexp.MustCompile(`(?i)coder|a11y|perf|bugfixer`)

// Run executes the full chain for one goal and returns the run id. The run
// record is created before the first stage and marked done or error at the
// end; a failed stage leaves all completed steps and the partial task.md in
// the store, and the stage error is returned wrapped.
func (o *Orchestrator) Run(ctx context.Context, goal, todo string) (string, error) {
	run, taskMD, err := o.create(goal, todo)
	if err != nil {
		return "", err
	}
	return run.ID, o.execute(ctx, run, taskMD)
}

// Start creates the run record, then executes the chain in the background.
// Callers get the run id immediately and follow progress over the event
// stream or by polling the store.
func (o *Orchestrator) Start(ctx context.Context, goal, todo string) (string, error) {
	run, taskMD, err := o.create(goal, todo)
	if err != nil {
		return "", err
	}
	go func() {
		if err := o.execute(context.WithoutCancel(ctx), run, taskMD); err != nil {
			o.log.Error("background relay run failed", "run", run.ID, "error", err)
		}
	}()
	return run.ID, nil
}

func (o *Orchestrator) create(goal, todo string) (*store.RelayRun, string, error) {
	taskMD := InitTaskMD(goal, todo)
	run, err := o.store.CreateRun(goal, todo, taskMD)
	if err != nil {
		return nil, "", fmt.Errorf("create run: %w", err)
	}
	return run, taskMD, nil
}

func (o *Orchestrator) execute(ctx context.Context, run *store.RelayRun, taskMD string) error {
	goal, todo := run.Goal, run.Todo

	if o.notifier != nil {
		o.notifier.StartGeneration(run.ID)
	}
	o.publish(run.ID, Event{RunID: run.ID, Status: "started"})
	o.log.Info("relay run started", "run", run.ID, "goal", summary(goal))

	artifact := ""
	shared := fmt.Sprintf("GOAL:\n%s\n\nTODO:\n%s\n", goal, todo)
	goalIntent := o.classify.Classify(goal)

	for i, agent := range Agents {
		if err := ctx.Err(); err != nil {
			return o.fail(run.ID, agent, err)
		}

		prompt := composePrompt(agent, shared, artifact, taskMD)
		taskMD = AppendTaskMD(taskMD, mdStartEntry(agent, extractTaskHeadline(prompt)))
		if err := o.store.UpdateRunTaskMD(run.ID, taskMD); err != nil {
			return o.fail(run.ID, agent, fmt.Errorf("persist task log: %w", err))
		}
		o.publish(run.ID, Event{RunID: run.ID, AgentID: agent.ID, Role: agent.Role, Stage: i + 1, Status: "running"})

		temperature := 0.4
		if coderRoles.MatchString(agent.Role) || goalIntent == intent.Coder {
			temperature = 0.2
		}
		res, err := o.gateway.Generate(ctx, llm.Request{
			Prompt:      prompt,
			System:      agent.System,
			Temperature: temperature,
			Model:       o.model(agent.ID),
		})
		if err != nil {
			return o.fail(run.ID, agent, fmt.Errorf("generate: %w", err))
		}

		output := autofix.Fix(res.Content)
		step := &store.RelayStep{
			RunID:     run.ID,
			AgentID:   agent.ID,
			Role:      agent.Role,
			Input:     prompt,
			Output:    output,
			Checklist: o.rubric.Grade(output),
			Status:    "ok",
		}
		if _, err := o.store.AddStep(step); err != nil {
			return o.fail(run.ID, agent, fmt.Errorf("persist step: %w", err))
		}

		taskMD = AppendTaskMD(taskMD, mdFinishEntry("ok", goal, summarizeForMD(output)))
		if err := o.store.UpdateRunTaskMD(run.ID, taskMD); err != nil {
			return o.fail(run.ID, agent, fmt.Errorf("persist task log: %w", err))
		}
		o.publish(run.ID, Event{RunID: run.ID, AgentID: agent.ID, Role: agent.Role, Stage: i + 1, Status: "ok"})

		shared += fmt.Sprintf("\n\n[%s %s]\n%s", agent.ID, strings.ToUpper(agent.Role), summary(output))
		if output != "" {
			artifact = output
		}
		o.log.Info("relay stage done", "run", run.ID, "agent", agent.ID, "model", res.Model)
	}

	if err := o.store.UpdateRunStatus(run.ID, store.StatusDone); err != nil {
		o.log.Error("mark run done", "run", run.ID, "error", err)
	}
	if o.notifier != nil {
		o.notifier.EndGeneration(run.ID, true)
	}
	o.publish(run.ID, Event{RunID: run.ID, Status: "done"})
	o.log.Info("relay run done", "run", run.ID)
	return nil
}

func (o *Orchestrator) model(agentID string) string {
	if o.modelFor == nil {
		return ""
	}
	return o.modelFor(agentID)
}

func (o *Orchestrator) fail(runID string, agent Agent, err error) error {
	if serr := o.store.UpdateRunStatus(runID, store.StatusError); serr != nil {
		o.log.Error("mark run error", "run", runID, "error", serr)
	}
	if o.notifier != nil {
		o.notifier.EndGeneration(runID, false)
	}
	o.publish(runID, Event{RunID: runID, AgentID: agent.ID, Role: agent.Role, Status: "error"})
	o.log.Error("relay run failed", "run", runID, "agent", agent.ID, "error", err)
	return fmt.Errorf("%s: %w", agent.ID, err)
}

func (o *Orchestrator) publish(runID string, ev Event) {
	if o.pub == nil {
		return
	}
	if err := o.pub.PublishJSON(natsbus.TopicRelayRun(runID), ev); err != nil {
		o.log.Warn("publish relay event", "run", runID, "error", err)
	}
}
