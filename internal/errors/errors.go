// Package errors provides centralized error definitions and error handling
// utilities for the crew codebase. It defines the error taxonomy shared by the
// configuration resolver, the agent/team/workflow registries, and the workflow
// runner, along with constructors that attach enough context (file, section,
// step name, turn index) to locate the cause of a failure.
//
// # Error Types
//
//   - ConfigError: a config file is malformed, a required field is missing, or
//     cross-field validation failed (e.g. selector mode without a model)
//   - NotFoundError: a referenced agent, team, workflow, or step does not exist
//   - SelectionError: a selector model returned output that is not exactly one
//     valid candidate name
//   - StepError: a workflow step failed, transitioning the run to Failed
//
// # Usage
//
// Creating errors:
//
//	err := errors.NewConfigError("selector.model is required", nil).
//		WithPath(file).WithSection("selector")
//
//	err := errors.NewNotFoundError("agent", "researcher")
//
// Checking errors:
//
//	if errors.Is(err, errors.ErrConfigInvalid) { ... }
//
//	var selErr *errors.SelectionError
//	if errors.As(err, &selErr) { ... }
//
// None of these errors are retried automatically anywhere in crew; retry policy
// is always the caller's explicit decision.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Sentinel errors for the four failure categories. Every typed error in this
// package matches one of these via errors.Is.
var (
	// ErrConfigInvalid indicates a malformed or inconsistent configuration.
	ErrConfigInvalid = New("invalid configuration")
	// ErrNotFound indicates a referenced resource does not exist.
	ErrNotFound = New("not found")
	// ErrSelectionInvalid indicates a selector produced an unusable speaker choice.
	ErrSelectionInvalid = New("invalid speaker selection")
	// ErrStepFailed indicates a workflow step failed and the run halted.
	ErrStepFailed = New("workflow step failed")
)

// baseError provides common functionality for all error types.
type baseError struct {
	message string
	cause   error
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// -----------------------------------------------------------------------------
// ConfigError
// -----------------------------------------------------------------------------

// ConfigError represents a malformed file, a missing required field, or a
// failed cross-field validation. It is surfaced immediately at load time and
// never silently defaulted.
//
// Example:
//
//	err := errors.NewConfigError("mode 'selector' requires selector.model", nil).
//		WithPath(".crew/teams/reviewers.toml").WithSection("selector")
type ConfigError struct {
	baseError
	Path    string // file the error was found in
	Section string // table or field within the file
}

// NewConfigError creates a new ConfigError.
func NewConfigError(message string, cause error) *ConfigError {
	return &ConfigError{baseError: baseError{message: message, cause: cause}}
}

// WithPath records the file the error was found in.
func (e *ConfigError) WithPath(path string) *ConfigError {
	e.Path = path
	return e
}

// WithSection records the table or field the error applies to.
func (e *ConfigError) WithSection(section string) *ConfigError {
	e.Section = section
	return e
}

// Error returns the formatted error message.
func (e *ConfigError) Error() string {
	var parts []string
	if e.Path != "" {
		parts = append(parts, fmt.Sprintf("file=%s", e.Path))
	}
	if e.Section != "" {
		parts = append(parts, fmt.Sprintf("section=%s", e.Section))
	}

	prefix := "config error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("config error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ConfigError) Is(target error) bool {
	if target == ErrConfigInvalid {
		return true
	}
	if _, ok := target.(*ConfigError); ok {
		return true
	}
	return errors.Is(e.cause, target)
}

// -----------------------------------------------------------------------------
// NotFoundError
// -----------------------------------------------------------------------------

// NotFoundError represents a referenced agent, team, workflow, or step that
// does not exist. It is surfaced at the point of reference resolution.
//
// Example:
//
//	err := errors.NewNotFoundError("agent", "researcher")
//	fmt.Println(err) // "agent 'researcher' not found"
type NotFoundError struct {
	baseError
	Kind string // "agent", "team", "workflow", "step"
	Name string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(kind, name string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{message: fmt.Sprintf("%s '%s' not found", kind, name)},
		Kind:      kind,
		Name:      name,
	}
}

// WithCause adds a cause to the error.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s '%s' not found: %v", e.Kind, e.Name, e.cause)
	}
	return fmt.Sprintf("%s '%s' not found", e.Kind, e.Name)
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if target == ErrNotFound {
		return true
	}
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	return errors.Is(e.cause, target)
}

// -----------------------------------------------------------------------------
// SelectionError
// -----------------------------------------------------------------------------

// SelectionError represents selector output that is not exactly one valid
// candidate name. The conversation it belongs to must not advance; there is no
// heuristic fallback and no implicit retry.
//
// Example:
//
//	err := errors.NewSelectionError("reviewers", 3, "I pick alice!", []string{"alice", "bob"})
type SelectionError struct {
	baseError
	Team       string   // team whose conversation failed
	TurnIndex  int      // turn at which selection was attempted
	Output     string   // raw selector output
	Candidates []string // candidate set offered to the selector
}

// NewSelectionError creates a new SelectionError.
func NewSelectionError(team string, turnIndex int, output string, candidates []string) *SelectionError {
	return &SelectionError{
		baseError: baseError{
			message: fmt.Sprintf("selector output %q does not match exactly one candidate", output),
		},
		Team:       team,
		TurnIndex:  turnIndex,
		Output:     output,
		Candidates: candidates,
	}
}

// Error returns the formatted error message.
func (e *SelectionError) Error() string {
	return fmt.Sprintf("selection error [team=%s, turn=%d]: %s (candidates: %s)",
		e.Team, e.TurnIndex, e.message, strings.Join(e.Candidates, ", "))
}

// Is checks if this error matches the target.
func (e *SelectionError) Is(target error) bool {
	if target == ErrSelectionInvalid {
		return true
	}
	if _, ok := target.(*SelectionError); ok {
		return true
	}
	return errors.Is(e.cause, target)
}

// -----------------------------------------------------------------------------
// StepError
// -----------------------------------------------------------------------------

// StepError represents an unrecoverable failure inside a workflow step. It
// escalates the whole run to the Failed state; logs of prior completed steps
// are preserved.
//
// Example:
//
//	err := errors.NewStepError("release", "review", 2, cause)
type StepError struct {
	baseError
	Workflow string
	Step     string
	Index    int // zero-based position in the workflow's step list
}

// NewStepError creates a new StepError.
func NewStepError(workflow, step string, index int, cause error) *StepError {
	return &StepError{
		baseError: baseError{
			message: fmt.Sprintf("step '%s' failed", step),
			cause:   cause,
		},
		Workflow: workflow,
		Step:     step,
		Index:    index,
	}
}

// Error returns the formatted error message.
func (e *StepError) Error() string {
	prefix := fmt.Sprintf("workflow error [workflow=%s, step=%s, index=%d]", e.Workflow, e.Step, e.Index)
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *StepError) Is(target error) bool {
	if target == ErrStepFailed {
		return true
	}
	if _, ok := target.(*StepError); ok {
		return true
	}
	return errors.Is(e.cause, target)
}

// -----------------------------------------------------------------------------
// Classification Helpers
// -----------------------------------------------------------------------------

// IsConfigInvalid reports whether err is a configuration validation failure.
func IsConfigInvalid(err error) bool {
	return errors.Is(err, ErrConfigInvalid)
}

// IsNotFound reports whether err is a missing-resource failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsSelectionInvalid reports whether err is an invalid speaker selection.
func IsSelectionInvalid(err error) bool {
	return errors.Is(err, ErrSelectionInvalid)
}

// IsStepFailed reports whether err is a workflow step failure.
func IsStepFailed(err error) bool {
	return errors.Is(err, ErrStepFailed)
}
