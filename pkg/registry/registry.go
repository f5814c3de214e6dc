// Package registry maps business hook names to their implementations.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/ussdgw/pkg/domain"
)

// Hook defines the signature for a business hook implementation.
// It receives the current answers (plus the caller's phone number and user id
// under domain.KeyPhone and domain.KeyUserID) and returns answers to merge.
type Hook func(ctx context.Context, answers map[string]string) (map[string]string, error)

// Registry manages the available hooks.
type Registry struct {
	mu    sync.RWMutex
	hooks map[string]Hook
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		hooks: make(map[string]Hook),
	}
}

// Register adds a hook to the registry.
// If a hook with the same name exists, it is overwritten.
func (r *Registry) Register(name string, fn Hook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks[name] = fn
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.hooks[name]
	return ok
}

// Names lists registered hooks in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.hooks))
	for n := range r.hooks {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Execute looks up a hook by name and executes it.
// Unknown names wrap domain.ErrUnknownHook; hook failures are returned as
// *domain.HookError.
func (r *Registry) Execute(ctx context.Context, name string, answers map[string]string) (map[string]string, error) {
	r.mu.RLock()
	fn, ok := r.hooks[name]
	r.mu.RUnlock()

	if !ok {
		return nil, &domain.HookError{Hook: name, Err: fmt.Errorf("%w: %s", domain.ErrUnknownHook, name)}
	}

	out, err := fn(ctx, answers)
	if err != nil {
		return nil, &domain.HookError{Hook: name, Err: err}
	}
	return out, nil
}
