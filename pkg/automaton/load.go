package automaton

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/ussdgw/pkg/domain"
)

// LoadOption tunes how strict Load is.
type LoadOption func(*loadConfig)

type loadConfig struct {
	knownTag  func(string) bool
	knownHook func(string) bool
}

// WithKnownValidationTags makes a reference to an unregistered validation tag
// a load problem.
func WithKnownValidationTags(known func(tag string) bool) LoadOption {
	return func(c *loadConfig) {
		c.knownTag = known
	}
}

// WithKnownHooks makes a reference to an unregistered business hook a load problem.
func WithKnownHooks(known func(name string) bool) LoadOption {
	return func(c *loadConfig) {
		c.knownHook = known
	}
}

// Load builds a Graph from a definition.
// It never stops at the first problem: the returned *domain.GraphLoadError
// lists every violation found.
func Load(def *Definition, opts ...LoadOption) (*Graph, error) {
	if def == nil {
		return nil, &domain.GraphLoadError{Problems: []error{errors.New("definition is nil")}}
	}

	var cfg loadConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	var problems []error
	report := func(format string, args ...any) {
		problems = append(problems, fmt.Errorf(format, args...))
	}

	g := &Graph{
		ID:          def.ID,
		Name:        def.Name,
		Version:     def.Version,
		Description: def.Description,
		Metadata:    def.Metadata,
		states:      make(map[string]*domain.State, len(def.States)),
		outgoing:    make(map[string][]*domain.Transition),
		finals:      make(map[string]struct{}),
	}

	if len(def.States) == 0 {
		report("automaton declares no states")
	}

	var declaredInitial []string
	for i, sd := range def.States {
		id := strings.TrimSpace(sd.ID)
		if id == "" {
			report("state #%d has no stateId", i)
			continue
		}
		if _, dup := g.states[id]; dup {
			report("duplicate state %q", id)
			continue
		}

		kind, ok := domain.ParseStateKind(sd.Type)
		if !ok {
			report("state %q: unknown stateType %q", id, sd.Type)
			kind = domain.KindNormal
		}

		st := &domain.State{
			ID:                id,
			Label:             sd.Label,
			Description:       sd.Description,
			Kind:              kind,
			Message:           sd.DisplayMessage,
			ValidationType:    normalizeTag(sd.ValidationType),
			Hook:              strings.TrimSpace(sd.BusinessMethod),
			StorageKey:        strings.TrimSpace(sd.ContextStorageKey),
			TerminatesSession: sd.TerminatesSession,
		}
		for _, mo := range sd.MenuOptions {
			st.Menu = append(st.Menu, domain.MenuOption{Key: mo.Key, Label: mo.Text, Trigger: mo.Trigger})
		}
		if err := st.Compile(); err != nil {
			report("state %q: invalid displayMessage template: %v", id, err)
		}
		if st.ValidationType != "" && cfg.knownTag != nil && !cfg.knownTag(st.ValidationType) {
			report("state %q: unknown validationType %q", id, sd.ValidationType)
		}
		if st.Hook != "" && cfg.knownHook != nil && !cfg.knownHook(st.Hook) {
			report("state %q: unknown businessServiceMethod %q", id, st.Hook)
		}

		if kind == domain.KindInitial {
			declaredInitial = append(declaredInitial, id)
		}
		if kind == domain.KindFinal {
			g.finals[id] = struct{}{}
		}
		g.states[id] = st
		g.order = append(g.order, id)
	}

	g.initial = resolveInitial(def.InitialStateID, declaredInitial, g.states, report)

	for _, id := range def.FinalStateIDs {
		st, ok := g.states[id]
		if !ok {
			report("final state %q not found", id)
			continue
		}
		st.Kind = domain.KindFinal
		g.finals[id] = struct{}{}
	}

	for _, td := range def.Transitions {
		t, errs := buildTransition(td, cfg)
		for _, err := range errs {
			problems = append(problems, fmt.Errorf("transition %s: %w", t, err))
		}
		if _, ok := g.states[t.From]; !ok {
			report("transition %s: source state %q not found", t, t.From)
		}
		if _, ok := g.states[t.To]; !ok {
			report("transition %s: target state %q not found", t, t.To)
		}
		g.transitions = append(g.transitions, t)
		g.outgoing[t.From] = append(g.outgoing[t.From], t)
	}
	for _, ts := range g.outgoing {
		sortByPriority(ts)
	}

	if g.initial != "" {
		for _, id := range unreachable(g) {
			report("state %q is unreachable from initial state %q", id, g.initial)
		}
	}

	if len(problems) > 0 {
		return nil, &domain.GraphLoadError{Problems: problems}
	}
	return g, nil
}

// Validate reports the problems Load would report, without keeping the graph.
func Validate(def *Definition, opts ...LoadOption) error {
	_, err := Load(def, opts...)
	return err
}

func resolveInitial(configured string, declared []string, states map[string]*domain.State, report func(string, ...any)) string {
	configured = strings.TrimSpace(configured)
	if len(declared) > 1 {
		report("multiple INITIAL states: %s", strings.Join(declared, ", "))
	}
	if configured == "" {
		if len(declared) == 0 {
			report("no initial state: set initialStateId or mark one state INITIAL")
			return ""
		}
		return declared[0]
	}

	st, ok := states[configured]
	if !ok {
		report("initial state %q not found", configured)
		return ""
	}
	if len(declared) == 1 && declared[0] != configured {
		report("initialStateId %q disagrees with INITIAL state %q", configured, declared[0])
	}
	st.Kind = domain.KindInitial
	return configured
}

func buildTransition(td TransitionDef, cfg loadConfig) (*domain.Transition, []error) {
	t := &domain.Transition{
		From:               strings.TrimSpace(td.From),
		To:                 strings.TrimSpace(td.To),
		Label:              td.Label,
		Trigger:            strings.TrimSpace(td.Trigger),
		Priority:           td.Priority,
		RequiresValidation: td.RequiresValidation,
		ValidationType:     normalizeTag(td.ValidationType),
		Fallback:           td.IsFallback,
		Error:              td.IsError,
		ErrorMessage:       td.ErrorMessage,
		MaxRetries:         domain.DefaultMaxRetries,
	}

	var errs []error
	if td.MaxRetries != nil {
		if *td.MaxRetries < 0 {
			errs = append(errs, fmt.Errorf("maxRetries must not be negative, got %d", *td.MaxRetries))
		}
		t.MaxRetries = *td.MaxRetries
	}
	if t.Fallback && t.Error {
		errs = append(errs, errors.New("cannot be both a fallback and an error transition"))
	}
	if t.ValidationType != "" && cfg.knownTag != nil && !cfg.knownTag(t.ValidationType) {
		errs = append(errs, fmt.Errorf("unknown validationType %q", td.ValidationType))
	}
	for _, raw := range td.GuardConditions {
		c, err := domain.ParseCondition(raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		t.Guards = append(t.Guards, c)
	}
	for _, raw := range td.Actions {
		a, err := domain.ParseAction(raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		t.Actions = append(t.Actions, a)
	}
	return t, errs
}

// unreachable walks the graph breadth-first from the initial state and returns
// the states never visited, in declaration order.
func unreachable(g *Graph) []string {
	visited := map[string]bool{g.initial: true}
	queue := []string{g.initial}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, t := range g.outgoing[current] {
			if _, ok := g.states[t.To]; !ok || visited[t.To] {
				continue
			}
			visited[t.To] = true
			queue = append(queue, t.To)
		}
	}

	var out []string
	for _, id := range g.order {
		if !visited[id] {
			out = append(out, id)
		}
	}
	return out
}

// normalizeTag lower-cases validation tags so NAME and name are the same rule.
func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}
