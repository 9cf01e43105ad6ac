// Package event defines event types for decoupling components in crew.
// The workflow runner publishes these as a run progresses so that command
// output, logging, and the run log writer can observe execution without the
// run loop depending on any of them.
package event

import "time"

// Event is the interface that all events must implement.
// It provides a common way to identify and timestamp events.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "step.started", "turn.completed")
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

// newBaseEvent creates a baseEvent with the current time.
func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Run Lifecycle Events
// -----------------------------------------------------------------------------

// RunStartedEvent is emitted when a workflow run begins executing.
type RunStartedEvent struct {
	baseEvent
	RunID    string // Unique identifier for this run
	Workflow string // Workflow name
	Steps    int    // Number of steps the run will execute
}

// NewRunStartedEvent creates a RunStartedEvent.
func NewRunStartedEvent(runID, workflow string, steps int) RunStartedEvent {
	return RunStartedEvent{
		baseEvent: newBaseEvent("run.started"),
		RunID:     runID,
		Workflow:  workflow,
		Steps:     steps,
	}
}

// RunCompletedEvent is emitted when a workflow run reaches a terminal state.
type RunCompletedEvent struct {
	baseEvent
	RunID    string // Unique identifier for this run
	Workflow string // Workflow name
	Success  bool   // true for Completed, false for Failed
	Steps    int    // Number of steps that finished before the run ended
	Error    string // Failure description (empty on success)
}

// NewRunCompletedEvent creates a RunCompletedEvent.
func NewRunCompletedEvent(runID, workflow string, success bool, steps int, errMsg string) RunCompletedEvent {
	return RunCompletedEvent{
		baseEvent: newBaseEvent("run.completed"),
		RunID:     runID,
		Workflow:  workflow,
		Success:   success,
		Steps:     steps,
		Error:     errMsg,
	}
}

// -----------------------------------------------------------------------------
// Step Lifecycle Events
// -----------------------------------------------------------------------------

// StepStartedEvent is emitted when a workflow step's session is created.
type StepStartedEvent struct {
	baseEvent
	RunID string
	Step  string // Step name from the workflow definition
	Index int    // Zero-based position in the step list
	Kind  string // "agent" or "team"
	ID    string // Referenced agent or team name
}

// NewStepStartedEvent creates a StepStartedEvent.
func NewStepStartedEvent(runID, step string, index int, kind, id string) StepStartedEvent {
	return StepStartedEvent{
		baseEvent: newBaseEvent("step.started"),
		RunID:     runID,
		Step:      step,
		Index:     index,
		Kind:      kind,
		ID:        id,
	}
}

// StepCompletedEvent is emitted when a workflow step finishes, successfully
// or not. On failure the run transitions to Failed and no further steps run.
type StepCompletedEvent struct {
	baseEvent
	RunID   string
	Step    string
	Index   int
	Success bool
	Turns   int    // Turns taken inside the step's session
	Error   string // Failure description (empty on success)
}

// NewStepCompletedEvent creates a StepCompletedEvent.
func NewStepCompletedEvent(runID, step string, index int, success bool, turns int, errMsg string) StepCompletedEvent {
	return StepCompletedEvent{
		baseEvent: newBaseEvent("step.completed"),
		RunID:     runID,
		Step:      step,
		Index:     index,
		Success:   success,
		Turns:     turns,
		Error:     errMsg,
	}
}

// -----------------------------------------------------------------------------
// Turn Events
// -----------------------------------------------------------------------------

// TurnCompletedEvent is emitted after each completed turn inside a team or
// agent session. Turns are strictly sequential; events arrive in turn order.
type TurnCompletedEvent struct {
	baseEvent
	RunID   string
	Step    string
	Turn    int    // Zero-based turn index within the session
	Speaker string // Agent that acted this turn
	Text    string // The turn's output text
}

// NewTurnCompletedEvent creates a TurnCompletedEvent.
func NewTurnCompletedEvent(runID, step string, turn int, speaker, text string) TurnCompletedEvent {
	return TurnCompletedEvent{
		baseEvent: newBaseEvent("turn.completed"),
		RunID:     runID,
		Step:      step,
		Turn:      turn,
		Speaker:   speaker,
		Text:      text,
	}
}

// SelectionFailedEvent is emitted when a selector model returns output that is
// not exactly one valid candidate name. The conversation does not advance.
type SelectionFailedEvent struct {
	baseEvent
	RunID  string
	Step   string
	Team   string
	Turn   int
	Output string // Raw selector output that failed to parse
}

// NewSelectionFailedEvent creates a SelectionFailedEvent.
func NewSelectionFailedEvent(runID, step, team string, turn int, output string) SelectionFailedEvent {
	return SelectionFailedEvent{
		baseEvent: newBaseEvent("selection.failed"),
		RunID:     runID,
		Step:      step,
		Team:      team,
		Turn:      turn,
		Output:    output,
	}
}
