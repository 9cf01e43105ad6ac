package team

import (
	"context"
	"fmt"
	"strings"

	"github.com/crewkit/crew/internal/agent"
	"github.com/crewkit/crew/internal/ai"
	crewerrors "github.com/crewkit/crew/internal/errors"
	"github.com/crewkit/crew/internal/event"
	"github.com/crewkit/crew/internal/logging"
)

// Turn is one completed turn in a conversation.
type Turn struct {
	Index   int
	Speaker string
	Text    string
}

// Result is the outcome of a finished conversation. On failure it still
// carries the turns that completed before the error.
type Result struct {
	Turns       []Turn
	LastMessage string
}

// Conversation drives one team session: a strictly sequential turn loop that
// joins the speaker policy and the termination policy. Each Conversation is
// single-use; a new step means a new Conversation.
type Conversation struct {
	team      *Team
	members   map[string]*agent.Agent
	completer ai.Completer
	policy    SpeakerPolicy
	term      TerminationPolicy
	bus       *event.Bus
	logger    *logging.Logger
	runID     string
	step      string
}

// ConversationOption customizes a Conversation.
type ConversationOption func(*Conversation)

// WithMaxTurns overrides the team's own turn cap for this conversation only.
func WithMaxTurns(n int) ConversationOption {
	return func(c *Conversation) {
		if n > 0 {
			c.term.MaxTurns = n
		}
	}
}

// WithBus attaches an event bus; turn and selection events are published with
// the given run and step identity.
func WithBus(bus *event.Bus, runID, step string) ConversationOption {
	return func(c *Conversation) {
		c.bus = bus
		c.runID = runID
		c.step = step
	}
}

// WithLogger attaches a logger for per-turn debug output.
func WithLogger(logger *logging.Logger) ConversationOption {
	return func(c *Conversation) { c.logger = logger }
}

// NewConversation creates a Conversation for the given team. The members map
// must be keyed by member name; missing members fail with NotFound at the
// turn that needs them. The completer serves both member turns and, in
// selector mode, the selection calls.
func NewConversation(t *Team, members map[string]*agent.Agent, completer ai.Completer, opts ...ConversationOption) *Conversation {
	c := &Conversation{
		team:      t,
		members:   members,
		completer: completer,
		term: TerminationPolicy{
			MaxTurns:    t.MaxTurns,
			MentionText: t.Config.Termination.MentionText,
		},
		logger: logging.NopLogger(),
	}

	switch t.Config.Mode {
	case ModeSelector:
		c.policy = &Selector{
			TeamName:             t.Name,
			Model:                t.Config.Selector.Model,
			Instruction:          t.SelectorPrompt,
			AllowRepeatedSpeaker: t.Config.Selector.AllowRepeatedSpeaker,
			Completer:            completer,
		}
	default:
		c.policy = RoundRobin{}
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes the conversation seeded with the given message. It returns
// when the termination policy fires, the context is cancelled, or a turn
// fails. Turns completed before an error are retained in the Result.
func (c *Conversation) Run(ctx context.Context, seed string) (*Result, error) {
	state := State{Members: c.team.Config.Members}
	result := &Result{LastMessage: seed}
	current := seed

	for {
		// Cancellation stops before the next turn begins, never mid-record.
		if err := ctx.Err(); err != nil {
			return result, err
		}

		speaker, err := c.policy.Next(ctx, state, current)
		if err != nil {
			var selErr *crewerrors.SelectionError
			if crewerrors.As(err, &selErr) && c.bus != nil {
				c.bus.Publish(event.NewSelectionFailedEvent(
					c.runID, c.step, c.team.Name, state.TurnIndex, selErr.Output))
			}
			return result, err
		}

		member, ok := c.members[speaker]
		if !ok {
			return result, crewerrors.NewNotFoundError("agent", speaker)
		}

		text, err := c.completer.Complete(ctx, ai.Request{
			Model:  member.Config.Model,
			System: c.systemPrompt(member),
			Prompt: c.turnPrompt(result.Turns, seed),
		})
		if err != nil {
			return result, fmt.Errorf("turn %d (%s) failed: %w", state.TurnIndex, speaker, err)
		}

		turn := Turn{Index: state.TurnIndex, Speaker: speaker, Text: text}
		result.Turns = append(result.Turns, turn)
		result.LastMessage = text

		c.logger.Debug("turn completed", "turn", turn.Index, "speaker", speaker)
		if c.bus != nil {
			c.bus.Publish(event.NewTurnCompletedEvent(c.runID, c.step, turn.Index, speaker, text))
		}

		state.Advance(speaker)
		current = text

		if c.term.ShouldStop(len(result.Turns), text) {
			return result, nil
		}
	}
}

// systemPrompt composes a member's system prompt from the team prompt and the
// member's own prompt.
func (c *Conversation) systemPrompt(member *agent.Agent) string {
	parts := make([]string, 0, 2)
	if c.team.Prompt != "" {
		parts = append(parts, c.team.Prompt)
	}
	if member.Prompt != "" {
		parts = append(parts, member.Prompt)
	}
	return strings.Join(parts, "\n\n")
}

// turnPrompt renders the transcript so far as the next speaker's input.
func (c *Conversation) turnPrompt(turns []Turn, seed string) string {
	var b strings.Builder
	b.WriteString(seed)
	for _, t := range turns {
		b.WriteString("\n\n")
		b.WriteString(t.Speaker)
		b.WriteString(": ")
		b.WriteString(t.Text)
	}
	return b.String()
}
