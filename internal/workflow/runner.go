package workflow

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/crewkit/crew/internal/agent"
	"github.com/crewkit/crew/internal/ai"
	crewerrors "github.com/crewkit/crew/internal/errors"
	"github.com/crewkit/crew/internal/event"
	"github.com/crewkit/crew/internal/logging"
	"github.com/crewkit/crew/internal/runlog"
	"github.com/crewkit/crew/internal/team"
)

// RunsDirName is the directory under the project marker that holds per-run
// logs.
const RunsDirName = "runs"

// Run states.
type RunState string

const (
	StatePending   RunState = "pending"
	StateRunning   RunState = "running"
	StateCompleted RunState = "completed"
	StateFailed    RunState = "failed"
)

// StepResult summarizes one finished step.
type StepResult struct {
	Name        string
	Index       int
	Kind        string
	ID          string
	Turns       int
	LastMessage string
}

// RunResult is the outcome of a workflow run. On failure it carries the
// results of the steps that completed before the failing one.
type RunResult struct {
	RunID       string
	Workflow    string
	State       RunState
	Steps       []StepResult
	LastMessage string
}

// Runner executes workflows. Steps run strictly in order; each step gets a
// brand-new session for its agent or team, with no shared state across steps.
// Only text crosses a step boundary, and only when forwarding is enabled.
type Runner struct {
	agents    *agent.Registry
	teams     *team.Registry
	completer ai.Completer
	bus       *event.Bus
	logger    *logging.Logger
	runsDir   string
	logLevel  string
	forward   bool
}

// RunnerOption customizes a Runner.
type RunnerOption func(*Runner)

// WithBus attaches an event bus for progress events.
func WithBus(bus *event.Bus) RunnerOption {
	return func(r *Runner) { r.bus = bus }
}

// WithLogger attaches a logger.
func WithLogger(logger *logging.Logger) RunnerOption {
	return func(r *Runner) { r.logger = logger }
}

// WithRunsDir enables run log persistence under dir/<run-id>/.
func WithRunsDir(dir string) RunnerOption {
	return func(r *Runner) { r.runsDir = dir }
}

// WithDebugLog writes a debug.log at the given level into each run's
// directory. Requires WithRunsDir.
func WithDebugLog(level string) RunnerOption {
	return func(r *Runner) { r.logLevel = level }
}

// WithForwardLastMessage appends each step's final text to the next step's
// prompt. Off by default; sessions stay isolated either way, only text
// crosses the boundary.
func WithForwardLastMessage() RunnerOption {
	return func(r *Runner) { r.forward = true }
}

// NewRunner creates a Runner over the given registries and completer.
func NewRunner(agents *agent.Registry, teams *team.Registry, completer ai.Completer, opts ...RunnerOption) *Runner {
	r := &Runner{
		agents:    agents,
		teams:     teams,
		completer: completer,
		bus:       event.NewBus(),
		logger:    logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the workflow. The run transitions Pending to Running before
// the first step and ends Completed or Failed. Any unrecoverable step error
// fails the whole run and halts remaining steps; run log records for prior
// completed steps are retained.
func (r *Runner) Run(ctx context.Context, wf *Workflow) (*RunResult, error) {
	runID := uuid.NewString()
	logger := r.logger.WithRun(runID)

	result := &RunResult{
		RunID:    runID,
		Workflow: wf.Name,
		State:    StatePending,
	}

	if r.runsDir != "" {
		runDir := filepath.Join(r.runsDir, runID)

		if r.logLevel != "" {
			runLogger, err := logging.NewLogger(runDir, r.logLevel)
			if err != nil {
				return result, err
			}
			defer runLogger.Close()
			logger = runLogger.WithRun(runID)
		}

		writer, err := runlog.NewWriter(runDir)
		if err != nil {
			return result, err
		}
		defer writer.Close()

		sub := r.bus.SubscribeAll(func(e event.Event) {
			if rec, ok := runlog.FromEvent(e); ok {
				if err := writer.Append(rec); err != nil {
					logger.Error("appending run record", "error", err)
				}
			}
		})
		defer r.bus.Unsubscribe(sub)
	}

	result.State = StateRunning
	r.bus.Publish(event.NewRunStartedEvent(runID, wf.Name, len(wf.Config.Steps)))
	logger.Info("run started", "workflow", wf.Name, "steps", len(wf.Config.Steps))

	for i, stepName := range wf.Config.Steps {
		// Cancellation stops before the next step begins.
		if err := ctx.Err(); err != nil {
			return r.fail(result, wf, stepName, i, err)
		}

		def := wf.Step(stepName)
		r.bus.Publish(event.NewStepStartedEvent(runID, stepName, i, def.Type, def.ID))
		logger.Info("step started", "step", stepName, "kind", def.Type, "id", def.ID)

		stepRes, err := r.runStep(ctx, runID, stepName, def, result.LastMessage, logger.WithStep(stepName))
		if err != nil {
			r.bus.Publish(event.NewStepCompletedEvent(runID, stepName, i, false, stepRes.Turns, err.Error()))
			return r.fail(result, wf, stepName, i, err)
		}

		stepRes.Index = i
		r.bus.Publish(event.NewStepCompletedEvent(runID, stepName, i, true, stepRes.Turns, ""))
		logger.Info("step completed", "step", stepName, "turns", stepRes.Turns)

		result.Steps = append(result.Steps, stepRes)
		result.LastMessage = stepRes.LastMessage
	}

	result.State = StateCompleted
	r.bus.Publish(event.NewRunCompletedEvent(runID, wf.Name, true, len(result.Steps), ""))
	logger.Info("run completed", "steps", len(result.Steps))
	return result, nil
}

// fail transitions the run to Failed and wraps the cause as a StepError.
func (r *Runner) fail(result *RunResult, wf *Workflow, step string, index int, cause error) (*RunResult, error) {
	result.State = StateFailed
	stepErr := crewerrors.NewStepError(wf.Name, step, index, cause)
	r.bus.Publish(event.NewRunCompletedEvent(result.RunID, wf.Name, false, len(result.Steps), stepErr.Error()))
	return result, stepErr
}

// runStep executes one step in a fresh session.
func (r *Runner) runStep(ctx context.Context, runID, stepName string, def StepConfig, priorText string, logger *logging.Logger) (StepResult, error) {
	res := StepResult{Name: stepName, Kind: def.Type, ID: def.ID}

	prompt := def.Prompt
	if r.forward && priorText != "" {
		prompt = joinPrompt(prompt, priorText)
	}

	switch def.Type {
	case StepAgent:
		a, err := r.agents.Load(def.ID)
		if err != nil {
			return res, err
		}

		text, err := r.completer.Complete(ctx, ai.Request{
			Model:  a.Config.Model,
			System: a.Prompt,
			Prompt: prompt,
		})
		if err != nil {
			return res, err
		}

		r.bus.Publish(event.NewTurnCompletedEvent(runID, stepName, 0, a.Name, text))
		res.Turns = 1
		res.LastMessage = text
		return res, nil

	case StepTeam:
		t, err := r.teams.Load(def.ID)
		if err != nil {
			return res, err
		}

		members := make(map[string]*agent.Agent, len(t.Config.Members))
		for _, name := range t.Config.Members {
			member, err := r.agents.Load(name)
			if err != nil {
				return res, err
			}
			members[name] = member
		}

		seed := prompt
		if seed == "" {
			seed = teamSeed(t, members)
		}

		conv := team.NewConversation(t, members, r.completer,
			team.WithMaxTurns(def.MaxTurns),
			team.WithBus(r.bus, runID, stepName),
			team.WithLogger(logger.WithTeam(t.Name)))

		convRes, err := conv.Run(ctx, seed)
		res.Turns = len(convRes.Turns)
		res.LastMessage = convRes.LastMessage
		return res, err
	}

	return res, crewerrors.NewConfigError("unknown step type '"+def.Type+"'", nil).
		WithSection("step." + stepName)
}

// teamSeed builds the default seed for a team step without a prompt: the team
// prompt followed by the first member's prompt.
func teamSeed(t *team.Team, members map[string]*agent.Agent) string {
	seed := t.Prompt
	if len(t.Config.Members) > 0 {
		if first := members[t.Config.Members[0]]; first != nil {
			seed = joinPrompt(seed, first.Prompt)
		}
	}
	return seed
}

func joinPrompt(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n\n")
}
