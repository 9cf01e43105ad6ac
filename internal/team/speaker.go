package team

import (
	"context"
	"fmt"
	"strings"

	"github.com/crewkit/crew/internal/ai"
	crewerrors "github.com/crewkit/crew/internal/errors"
)

// State tracks one active conversation's speaker bookkeeping. It is advanced
// by the conversation loop after every completed turn, never by the policy
// itself.
type State struct {
	Members     []string
	LastSpeaker string
	TurnIndex   int
}

// Advance records a completed turn by the given speaker.
func (s *State) Advance(speaker string) {
	s.LastSpeaker = speaker
	s.TurnIndex++
}

// SpeakerPolicy decides which team member acts on the next turn. The message
// argument is the message being responded to: the user's seed on the first
// turn, the previous speaker's output afterwards.
type SpeakerPolicy interface {
	Next(ctx context.Context, state State, message string) (string, error)
}

// -----------------------------------------------------------------------------
// Round-robin
// -----------------------------------------------------------------------------

// RoundRobin cycles through the member list in order. A @member directive in
// the user's message overrides the computed speaker for that turn only; the
// turn index still advances as if the override were the natural pick.
type RoundRobin struct{}

// Next returns the speaker for the current turn.
func (RoundRobin) Next(_ context.Context, state State, message string) (string, error) {
	if len(state.Members) == 0 {
		return "", crewerrors.New("round-robin requires at least one member")
	}
	// Only the user's seed message can carry a directive; later messages are
	// agent output.
	if state.TurnIndex == 0 {
		if override := parseDirective(message, state.Members); override != "" {
			return override, nil
		}
	}
	return state.Members[state.TurnIndex%len(state.Members)], nil
}

// parseDirective scans a message for a @member mention. The first token that
// names a team member wins; unknown mentions are ignored.
func parseDirective(message string, members []string) string {
	for _, field := range strings.Fields(message) {
		if !strings.HasPrefix(field, "@") {
			continue
		}
		name := strings.TrimFunc(field[1:], func(r rune) bool {
			return r == '.' || r == ',' || r == ':' || r == ';' || r == '!' || r == '?'
		})
		for _, m := range members {
			if name == m {
				return m
			}
		}
	}
	return ""
}

// -----------------------------------------------------------------------------
// Selector
// -----------------------------------------------------------------------------

// defaultSelectorInstruction heads the selection prompt when the team does not
// configure its own selector prompt.
const defaultSelectorInstruction = "You are coordinating a conversation between multiple agents. " +
	"Read the current message and pick which agent should respond next."

// Selector asks a model to pick the next speaker. The model's output, less
// surrounding whitespace, must be exactly one candidate name, matched
// case-sensitively; anything else is a SelectionInvalid failure with no
// fallback and no retry.
type Selector struct {
	TeamName             string
	Model                string
	Instruction          string // optional preamble; defaults when empty
	AllowRepeatedSpeaker bool
	Completer            ai.Completer
}

// Next invokes the selector model and parses its output against the candidate
// set. When repeats are disallowed the last speaker is excluded from the
// candidates, unless the team has only one member.
func (s *Selector) Next(ctx context.Context, state State, message string) (string, error) {
	candidates := s.candidates(state)
	if len(candidates) == 0 {
		return "", crewerrors.New("selector requires at least one candidate")
	}

	out, err := s.Completer.Complete(ctx, ai.Request{
		Model:  s.Model,
		Prompt: s.buildPrompt(state, candidates, message),
	})
	if err != nil {
		return "", fmt.Errorf("selector model call failed: %w", err)
	}

	choice := strings.TrimSpace(out)
	for _, c := range candidates {
		if choice == c {
			return c, nil
		}
	}
	return "", crewerrors.NewSelectionError(s.TeamName, state.TurnIndex, out, candidates)
}

func (s *Selector) candidates(state State) []string {
	if s.AllowRepeatedSpeaker || state.LastSpeaker == "" || len(state.Members) <= 1 {
		return state.Members
	}
	var out []string
	for _, m := range state.Members {
		if m != state.LastSpeaker {
			out = append(out, m)
		}
	}
	return out
}

func (s *Selector) buildPrompt(state State, candidates []string, message string) string {
	instruction := s.Instruction
	if instruction == "" {
		instruction = defaultSelectorInstruction
	}

	var b strings.Builder
	b.WriteString(instruction)
	b.WriteString("\n\nTeam: ")
	b.WriteString(s.TeamName)
	b.WriteString("\nCandidates:\n")
	for _, c := range candidates {
		b.WriteString("- ")
		b.WriteString(c)
		b.WriteString("\n")
	}
	if state.LastSpeaker != "" {
		b.WriteString("Last speaker: ")
		b.WriteString(state.LastSpeaker)
		b.WriteString("\n")
	}
	if message != "" {
		b.WriteString("\nCurrent message:\n")
		b.WriteString(message)
		b.WriteString("\n")
	}
	b.WriteString("\nRespond with exactly one candidate name and no other text.")
	return b.String()
}
