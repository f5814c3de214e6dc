package dialog

import (
	"context"
	"log/slog"

	"github.com/aretw0/ussdgw/pkg/automaton"
	"github.com/aretw0/ussdgw/pkg/domain"
	"go.opentelemetry.io/otel/trace"
)

// GraphSource hands out the automaton currently in service.
// *automaton.Holder satisfies it.
type GraphSource interface {
	Graph() *automaton.Graph
}

// Validator checks input against a validation tag.
// *validation.Registry satisfies it.
type Validator interface {
	Validate(tag, input string) error
}

// HookExecutor runs business hooks by name.
// *registry.Registry satisfies it.
type HookExecutor interface {
	Execute(ctx context.Context, name string, answers map[string]string) (map[string]string, error)
}

// Authenticator resolves the account behind a phone number.
// It returns nil, nil for unknown numbers.
type Authenticator interface {
	Authenticate(ctx context.Context, phone string) (*domain.User, error)
}

// Option configures the Orchestrator.
type Option func(*Orchestrator)

// WithLogger configures a logger for the Orchestrator.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithValidator sets the validator registry.
func WithValidator(v Validator) Option {
	return func(o *Orchestrator) {
		o.validator = v
	}
}

// WithHookExecutor sets the business hook registry.
func WithHookExecutor(h HookExecutor) Option {
	return func(o *Orchestrator) {
		o.executor = h
	}
}

// WithAuthenticator enables the user lookup done when a session starts.
func WithAuthenticator(a Authenticator) Option {
	return func(o *Orchestrator) {
		o.auth = a
	}
}

// WithLifecycleHooks registers observability callbacks. Calling it more than
// once chains the hooks in registration order.
func WithLifecycleHooks(h domain.LifecycleHooks) Option {
	return func(o *Orchestrator) {
		o.lifecycle = o.lifecycle.Merge(h)
	}
}

// WithMaxRetries sets the retry limit of states whose transitions do not
// carry one, i.e. plain invalid options on a state without error route.
func WithMaxRetries(n int) Option {
	return func(o *Orchestrator) {
		if n >= 0 {
			o.maxRetries = n
		}
	}
}

// WithTracer overrides the OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) {
		o.tracer = t
	}
}
