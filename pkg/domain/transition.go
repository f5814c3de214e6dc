package domain

import (
	"fmt"
	"strings"
)

// Transition defines a rule to move from one state to another.
type Transition struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Label   string `json:"label,omitempty"`
	Trigger string `json:"trigger"`

	// Priority orders the candidates of a state, higher first.
	Priority int `json:"priority"`

	RequiresValidation bool   `json:"requires_validation,omitempty"`
	ValidationType     string `json:"validation_type,omitempty"`

	// Fallback transitions are only considered when no other transition matches.
	Fallback bool `json:"fallback,omitempty"`

	// Error transitions are never selected by input; they are the route taken
	// once the retry budget of a state is exhausted.
	Error bool `json:"error,omitempty"`

	Guards       []Condition `json:"guards,omitempty"`
	Actions      []Action    `json:"-"`
	ErrorMessage string      `json:"error_message,omitempty"`
	MaxRetries   int         `json:"max_retries"`
}

// IsEpsilon reports whether the transition fires without a specific input.
func (t *Transition) IsEpsilon() bool {
	return t.Trigger == ""
}

// MatchesTrigger applies the trigger rules: empty matches unconditionally,
// "*" matches any non-empty trimmed input, anything else is an exact
// case-insensitive match against the trimmed input.
func (t *Transition) MatchesTrigger(input string) bool {
	trimmed := strings.TrimSpace(input)
	switch t.Trigger {
	case "":
		return true
	case "*":
		return trimmed != ""
	default:
		return strings.EqualFold(t.Trigger, trimmed)
	}
}

// GuardsPass reports whether every guard holds against the session.
func (t *Transition) GuardsPass(s *Session) bool {
	for _, g := range t.Guards {
		if !g.Eval(s) {
			return false
		}
	}
	return true
}

// String renders the transition as "FROM -> TO".
func (t *Transition) String() string {
	return fmt.Sprintf("%s -> %s", t.From, t.To)
}
