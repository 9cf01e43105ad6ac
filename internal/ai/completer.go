// Package ai defines the model-invocation boundary for crew. Orchestration
// treats model inference as an opaque call that takes prompts and returns
// text; everything that knows about a concrete provider lives behind the
// Completer interface so the turn loop and the selector never depend on an
// SDK directly.
package ai

import "context"

// Request describes one model invocation.
type Request struct {
	// Model is the provider-specific model identifier.
	Model string
	// System is the system prompt, empty for none.
	System string
	// Prompt is the user-visible input for this call.
	Prompt string
}

// Completer performs a single blocking model call and returns the raw text
// output. Implementations must honor ctx cancellation.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// CompleterFunc adapts a plain function to the Completer interface.
type CompleterFunc func(ctx context.Context, req Request) (string, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
