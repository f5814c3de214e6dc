package automaton

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/aretw0/ussdgw/pkg/domain"
)

// Graph is an immutable, validated automaton.
type Graph struct {
	ID          string
	Name        string
	Version     string
	Description string
	Metadata    map[string]string

	initial     string
	states      map[string]*domain.State
	order       []string
	transitions []*domain.Transition
	outgoing    map[string][]*domain.Transition
	finals      map[string]struct{}
}

// Stats summarises a graph for operators.
type Stats struct {
	AutomatonID      string   `json:"automatonId"`
	Name             string   `json:"name"`
	Version          string   `json:"version"`
	InitialState     string   `json:"initialState"`
	TotalStates      int      `json:"totalStates"`
	TotalTransitions int      `json:"totalTransitions"`
	FinalStates      []string `json:"finalStates"`
	MenuStates       int      `json:"menuStates"`
	ValidationStates int      `json:"validationStates"`
}

// State returns the state with the given id.
func (g *Graph) State(id string) (*domain.State, error) {
	s, ok := g.states[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrStateNotFound, id)
	}
	return s, nil
}

// InitialState returns the entry point of the dialog.
func (g *Graph) InitialState() *domain.State {
	return g.states[g.initial]
}

// TransitionsFrom returns the outgoing transitions of a state sorted by
// descending priority. Equal priorities keep their declaration order.
func (g *Graph) TransitionsFrom(stateID string) []*domain.Transition {
	return slices.Clone(g.outgoing[stateID])
}

// ErrorTransition returns the retry-exhaustion route of a state, if any.
func (g *Graph) ErrorTransition(stateID string) *domain.Transition {
	for _, t := range g.outgoing[stateID] {
		if t.Error {
			return t
		}
	}
	return nil
}

// States returns every state in declaration order.
func (g *Graph) States() []*domain.State {
	out := make([]*domain.State, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.states[id])
	}
	return out
}

// Transitions returns every transition in declaration order.
func (g *Graph) Transitions() []*domain.Transition {
	return slices.Clone(g.transitions)
}

// IsFinal reports whether id is one of the final states.
func (g *Graph) IsFinal(id string) bool {
	_, ok := g.finals[id]
	return ok
}

// Stats computes the summary served to operators.
func (g *Graph) Stats() Stats {
	st := Stats{
		AutomatonID:      g.ID,
		Name:             g.Name,
		Version:          g.Version,
		InitialState:     g.initial,
		TotalStates:      len(g.states),
		TotalTransitions: len(g.transitions),
		FinalStates:      []string{},
	}
	for _, id := range g.order {
		s := g.states[id]
		if g.IsFinal(id) {
			st.FinalStates = append(st.FinalStates, id)
		}
		if s.IsMenu() {
			st.MenuStates++
		}
		if s.ValidationType != "" {
			st.ValidationStates++
		}
	}
	return st
}

func sortByPriority(ts []*domain.Transition) {
	slices.SortStableFunc(ts, func(a, b *domain.Transition) int {
		return cmp.Compare(b.Priority, a.Priority)
	})
}
