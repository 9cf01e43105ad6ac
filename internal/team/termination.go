package team

import "strings"

// TerminationPolicy decides when a team conversation must stop. It is
// evaluated after every completed turn: the turn cap first, then the mention
// check. It never inspects future turns.
type TerminationPolicy struct {
	MaxTurns    int
	MentionText string
}

// ShouldStop reports whether the conversation must end given the number of
// turns taken so far and the last turn's text. The mention check is a
// case-sensitive substring match.
func (p TerminationPolicy) ShouldStop(turnsTaken int, lastMessage string) bool {
	if turnsTaken >= p.MaxTurns {
		return true
	}
	if p.MentionText != "" && strings.Contains(lastMessage, p.MentionText) {
		return true
	}
	return false
}
