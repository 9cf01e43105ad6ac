package workflow

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/crewkit/crew/internal/agent"
	"github.com/crewkit/crew/internal/ai"
	"github.com/crewkit/crew/internal/config"
	crewerrors "github.com/crewkit/crew/internal/errors"
	"github.com/crewkit/crew/internal/event"
	"github.com/crewkit/crew/internal/runlog"
	"github.com/crewkit/crew/internal/team"
	"github.com/crewkit/crew/internal/testutil"
)

// scriptedCompleter returns canned outputs in call order; a nil entry in errs
// means success for that call.
type scriptedCompleter struct {
	outputs  []string
	errs     map[int]error
	requests []ai.Request
}

func (s *scriptedCompleter) Complete(_ context.Context, req ai.Request) (string, error) {
	i := len(s.requests)
	s.requests = append(s.requests, req)
	if err := s.errs[i]; err != nil {
		return "", err
	}
	if i < len(s.outputs) {
		return s.outputs[i], nil
	}
	return "output", nil
}

// fixture builds a project with agents planner/alice/bob, a round-robin team
// "builders" capped at 2 turns, and the named workflow files.
func fixture(t *testing.T, workflows map[string]string) (*Runner, *scriptedCompleter, string, *event.Bus) {
	t.Helper()
	p := testutil.NewProject(t)

	for _, name := range []string{"planner", "alice", "bob"} {
		p.WriteAgent(name, map[string]string{
			agent.ConfigFileName:    `model = "model-` + name + `"`,
			agent.DefaultPromptName: "You are " + name + ".",
		})
	}

	p.WriteTeam("builders", `
members = ["alice", "bob"]

[termination]
max_turns = 2
`)

	for name, content := range workflows {
		p.WriteWorkflow(name, content)
	}

	cfg := p.Resolve()
	agents, err := agent.NewRegistry(cfg)
	if err != nil {
		t.Fatal(err)
	}

	completer := &scriptedCompleter{}
	bus := event.NewBus()
	runner := NewRunner(agents, team.NewRegistry(cfg), completer,
		WithBus(bus),
		WithRunsDir(filepath.Join(p.CrewDir, RunsDirName)))
	return runner, completer, p.CrewDir, bus
}

const threeStepWorkflow = `
steps = ["plan", "implement", "review"]

[step.plan]
type = "agent"
id = "planner"
prompt = "draft a plan"

[step.implement]
type = "team"
id = "builders"
prompt = "build it"

[step.review]
type = "agent"
id = "planner"
prompt = "review the work"
`

func loadWorkflow(t *testing.T, crewDir, name string) *Workflow {
	t.Helper()
	root := filepath.Dir(crewDir)
	r := &config.Resolver{GlobalFile: filepath.Join(root, "no-such-global.toml")}
	cfg, err := r.Resolve(root, nil)
	if err != nil {
		t.Fatal(err)
	}
	wf, err := NewRegistry(cfg).Load(name)
	if err != nil {
		t.Fatalf("Load workflow: %v", err)
	}
	return wf
}

func TestRunThreeStepsInOrder(t *testing.T) {
	runner, completer, crewDir, bus := fixture(t, map[string]string{"release": threeStepWorkflow})
	// Calls: plan, implement turn 1, implement turn 2, review.
	completer.outputs = []string{"the plan", "built half", "built all", "looks good"}

	var types []string
	bus.SubscribeAll(func(e event.Event) { types = append(types, e.EventType()) })

	result, err := runner.Run(context.Background(), loadWorkflow(t, crewDir, "release"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.State != StateCompleted {
		t.Errorf("State = %q, want completed", result.State)
	}
	if len(result.Steps) != 3 {
		t.Fatalf("got %d steps, want 3", len(result.Steps))
	}
	wantSteps := []string{"plan", "implement", "review"}
	for i, s := range result.Steps {
		if s.Name != wantSteps[i] || s.Index != i {
			t.Errorf("step %d = %s/%d, want %s/%d", i, s.Name, s.Index, wantSteps[i], i)
		}
	}
	if result.Steps[1].Turns != 2 {
		t.Errorf("team step turns = %d, want 2", result.Steps[1].Turns)
	}
	if result.LastMessage != "looks good" {
		t.Errorf("LastMessage = %q", result.LastMessage)
	}

	wantEvents := []string{
		"run.started",
		"step.started", "turn.completed", "step.completed",
		"step.started", "turn.completed", "turn.completed", "step.completed",
		"step.started", "turn.completed", "step.completed",
		"run.completed",
	}
	if len(types) != len(wantEvents) {
		t.Fatalf("got %d events %v, want %d", len(types), types, len(wantEvents))
	}
	for i := range wantEvents {
		if types[i] != wantEvents[i] {
			t.Errorf("event %d = %q, want %q", i, types[i], wantEvents[i])
		}
	}
}

func TestRunWritesRunLog(t *testing.T) {
	runner, completer, crewDir, _ := fixture(t, map[string]string{"release": threeStepWorkflow})
	completer.outputs = []string{"a", "b", "c", "d"}

	result, err := runner.Run(context.Background(), loadWorkflow(t, crewDir, "release"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	records, err := runlog.Read(filepath.Join(crewDir, RunsDirName, result.RunID))
	if err != nil {
		t.Fatalf("Read run log: %v", err)
	}
	if len(records) == 0 {
		t.Fatal("run log is empty")
	}
	if records[0].Kind != "run.started" {
		t.Errorf("first record = %q", records[0].Kind)
	}
	last := records[len(records)-1]
	if last.Kind != "run.completed" || last.Outcome != runlog.OutcomeOK {
		t.Errorf("last record = %+v", last)
	}
	for _, r := range records {
		if r.RunID != result.RunID {
			t.Errorf("record has run_id %q, want %q", r.RunID, result.RunID)
		}
	}
}

func TestRunFailureHaltsAndKeepsPriorLogs(t *testing.T) {
	runner, completer, crewDir, _ := fixture(t, map[string]string{"release": threeStepWorkflow})
	// Step 1 succeeds; the team step's first turn fails.
	completer.outputs = []string{"the plan"}
	completer.errs = map[int]error{1: crewerrors.New("model unavailable")}

	result, err := runner.Run(context.Background(), loadWorkflow(t, crewDir, "release"))
	if !crewerrors.IsStepFailed(err) {
		t.Fatalf("expected StepFailed, got: %v", err)
	}

	var stepErr *crewerrors.StepError
	if !crewerrors.As(err, &stepErr) {
		t.Fatal("expected *StepError")
	}
	if stepErr.Step != "implement" || stepErr.Index != 1 {
		t.Errorf("failed step = %s/%d, want implement/1", stepErr.Step, stepErr.Index)
	}

	if result.State != StateFailed {
		t.Errorf("State = %q, want failed", result.State)
	}
	if len(result.Steps) != 1 || result.Steps[0].Name != "plan" {
		t.Errorf("completed steps = %+v, want only plan", result.Steps)
	}
	// Step 3 never ran: one agent call plus the failed team call.
	if len(completer.requests) != 2 {
		t.Errorf("completer called %d times, want 2", len(completer.requests))
	}

	// Step 1's records survive the failure.
	records, err := runlog.Read(filepath.Join(crewDir, RunsDirName, result.RunID))
	if err != nil {
		t.Fatalf("Read run log: %v", err)
	}
	var sawPlanOK, sawRunFailed bool
	for _, r := range records {
		if r.Kind == "step.completed" && r.Step == "plan" && r.Outcome == runlog.OutcomeOK {
			sawPlanOK = true
		}
		if r.Kind == "run.completed" && r.Outcome == runlog.OutcomeFailed {
			sawRunFailed = true
		}
		if r.Step == "review" {
			t.Errorf("unexpected record for unreached step: %+v", r)
		}
	}
	if !sawPlanOK || !sawRunFailed {
		t.Errorf("records missing outcomes: planOK=%v runFailed=%v", sawPlanOK, sawRunFailed)
	}
}

func TestRunUnknownStepReference(t *testing.T) {
	runner, _, crewDir, _ := fixture(t, map[string]string{"bad": `
steps = ["plan"]

[step.plan]
type = "agent"
id = "nobody"
prompt = "go"
`})

	_, err := runner.Run(context.Background(), loadWorkflow(t, crewDir, "bad"))
	if !crewerrors.IsStepFailed(err) {
		t.Fatalf("expected StepFailed, got: %v", err)
	}
	if !crewerrors.IsNotFound(err) {
		t.Errorf("cause should classify as NotFound: %v", err)
	}
}

func TestRunForwardLastMessage(t *testing.T) {
	workflows := map[string]string{"relay": `
steps = ["first", "second"]

[step.first]
type = "agent"
id = "planner"
prompt = "step one"

[step.second]
type = "agent"
id = "planner"
prompt = "step two"
`}

	t.Run("disabled by default", func(t *testing.T) {
		runner, completer, crewDir, _ := fixture(t, workflows)
		completer.outputs = []string{"first output", "second output"}

		if _, err := runner.Run(context.Background(), loadWorkflow(t, crewDir, "relay")); err != nil {
			t.Fatal(err)
		}
		if got := completer.requests[1].Prompt; got != "step two" {
			t.Errorf("second prompt = %q, want no forwarding", got)
		}
	})

	t.Run("enabled", func(t *testing.T) {
		runner, completer, crewDir, _ := fixture(t, workflows)
		WithForwardLastMessage()(runner)
		completer.outputs = []string{"first output", "second output"}

		if _, err := runner.Run(context.Background(), loadWorkflow(t, crewDir, "relay")); err != nil {
			t.Fatal(err)
		}
		got := completer.requests[1].Prompt
		if !strings.Contains(got, "step two") || !strings.Contains(got, "first output") {
			t.Errorf("second prompt = %q, want prompt plus forwarded text", got)
		}
	})
}

func TestRunTeamStepDefaultSeed(t *testing.T) {
	runner, completer, crewDir, _ := fixture(t, map[string]string{"noprompt": `
steps = ["build"]

[step.build]
type = "team"
id = "builders"
`})
	completer.outputs = []string{"one", "two"}

	if _, err := runner.Run(context.Background(), loadWorkflow(t, crewDir, "noprompt")); err != nil {
		t.Fatal(err)
	}
	// No step prompt: the seed falls back to the first member's prompt.
	if got := completer.requests[0].Prompt; !strings.Contains(got, "You are alice.") {
		t.Errorf("seed = %q, want first member prompt", got)
	}
}

func TestRunStepMaxTurnsOverride(t *testing.T) {
	runner, completer, crewDir, _ := fixture(t, map[string]string{"short": `
steps = ["build"]

[step.build]
type = "team"
id = "builders"
prompt = "go"
max_turns = 1
`})
	completer.outputs = []string{"only turn", "never requested"}

	result, err := runner.Run(context.Background(), loadWorkflow(t, crewDir, "short"))
	if err != nil {
		t.Fatal(err)
	}
	if result.Steps[0].Turns != 1 {
		t.Errorf("turns = %d, want 1 via step override", result.Steps[0].Turns)
	}
}

func TestRunCancelledBeforeStart(t *testing.T) {
	runner, completer, crewDir, _ := fixture(t, map[string]string{"release": threeStepWorkflow})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := runner.Run(ctx, loadWorkflow(t, crewDir, "release"))
	if !crewerrors.IsStepFailed(err) {
		t.Fatalf("expected StepFailed, got: %v", err)
	}
	if result.State != StateFailed {
		t.Errorf("State = %q, want failed", result.State)
	}
	if len(completer.requests) != 0 {
		t.Errorf("completer called %d times, want 0", len(completer.requests))
	}
}
