package automaton

import (
	"fmt"

	"github.com/aretw0/ussdgw/pkg/domain"
)

// Resolve selects the transition to take from stateID for the given input.
//
// Pass 1 scans the regular transitions by priority and returns the first whose
// trigger matches and whose guards all hold. Pass 2 scans the fallback
// transitions in the same order and returns the first whose guards hold,
// ignoring the trigger. Error transitions never take part.
func (g *Graph) Resolve(stateID, input string, s *domain.Session) (*domain.Transition, error) {
	if _, ok := g.states[stateID]; !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrStateNotFound, stateID)
	}
	if t := Resolve(g.outgoing[stateID], input, s); t != nil {
		return t, nil
	}
	return nil, fmt.Errorf("%w: state %s, input %q", domain.ErrNoMatchingTransition, stateID, input)
}

// Resolve applies the two-pass rule to candidates already sorted by priority.
// It returns nil when nothing matches.
func Resolve(candidates []*domain.Transition, input string, s *domain.Session) *domain.Transition {
	for _, t := range candidates {
		if t.Fallback || t.Error {
			continue
		}
		if t.MatchesTrigger(input) && t.GuardsPass(s) {
			return t
		}
	}
	for _, t := range candidates {
		if t.Fallback && t.GuardsPass(s) {
			return t
		}
	}
	return nil
}
