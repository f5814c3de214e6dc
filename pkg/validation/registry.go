// Package validation maps validation tags to input rules.
package validation

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/aretw0/ussdgw/pkg/domain"
)

// Rule checks raw input. The returned error text is shown to the user.
type Rule func(input string) error

// Registry manages the available rules. Tags are case-insensitive.
type Registry struct {
	mu    sync.RWMutex
	rules map[string]Rule
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rules: make(map[string]Rule),
	}
}

// Default returns a registry holding every built-in rule.
func Default() *Registry {
	r := NewRegistry()
	for tag, rule := range builtins {
		r.Register(tag, rule)
	}
	return r
}

// Register adds a rule. An existing rule with the same tag is overwritten.
func (r *Registry) Register(tag string, rule Rule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[normalize(tag)] = rule
}

// Has reports whether a rule exists for tag.
func (r *Registry) Has(tag string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rules[normalize(tag)]
	return ok
}

// Tags lists the registered tags in sorted order.
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.rules))
	for t := range r.rules {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

// Validate runs the rule registered for tag.
// An empty or unknown tag accepts any input; strict deployments reject
// unknown tags when the automaton is loaded instead.
// Failures are returned as *domain.ValidationError.
func (r *Registry) Validate(tag, input string) error {
	tag = normalize(tag)
	if tag == "" {
		return nil
	}

	r.mu.RLock()
	rule, ok := r.rules[tag]
	r.mu.RUnlock()
	if !ok {
		return nil
	}

	if err := rule(input); err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			return verr
		}
		return &domain.ValidationError{Tag: tag, Reason: err.Error()}
	}
	return nil
}

func normalize(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}
