package ussdgw

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/ussdgw/automata"
	"github.com/aretw0/ussdgw/internal/logging"
	"github.com/aretw0/ussdgw/pkg/adapters/memory"
	"github.com/aretw0/ussdgw/pkg/automaton"
	"github.com/aretw0/ussdgw/pkg/delivery"
	"github.com/aretw0/ussdgw/pkg/dialog"
	"github.com/aretw0/ussdgw/pkg/domain"
	"github.com/aretw0/ussdgw/pkg/ports"
	"github.com/aretw0/ussdgw/pkg/registry"
	"github.com/aretw0/ussdgw/pkg/session"
	"github.com/aretw0/ussdgw/pkg/validation"
)

// Gateway is the high-level entry point of the library.
// It wires the automaton, the session manager, the validator and hook
// registries and the dialog orchestrator.
type Gateway struct {
	holder       *automaton.Holder
	sessions     *session.Manager
	orchestrator *dialog.Orchestrator
	validators   *validation.Registry
	hooks        *registry.Registry
	service      *delivery.Service

	logger *slog.Logger
}

var _ ports.DialogHandler = (*Gateway)(nil)

type config struct {
	automatonPath string
	automatonDoc  []byte

	store          ports.SessionStore
	locker         ports.DistributedLocker
	sessionTimeout time.Duration
	lockTTL        time.Duration

	users     ports.UserRepository
	shipments ports.ShipmentRepository

	validators *validation.Registry
	hooks      *registry.Registry
	lifecycle  domain.LifecycleHooks

	maxRetries int
	strict     bool
	now        func() time.Time
	logger     *slog.Logger
}

// Option defines a functional option for configuring the Gateway.
type Option func(*config)

// WithAutomatonFile loads the automaton from a JSON or YAML file. The file
// can be reloaded later with Reload or Watch.
func WithAutomatonFile(path string) Option {
	return func(c *config) {
		c.automatonPath = path
	}
}

// WithAutomaton uses an in-memory JSON or YAML document.
func WithAutomaton(doc []byte) Option {
	return func(c *config) {
		c.automatonDoc = doc
	}
}

// WithSessionStore sets the session store (default: in memory).
func WithSessionStore(s ports.SessionStore) Option {
	return func(c *config) {
		c.store = s
	}
}

// WithLocker enables distributed per-session locking.
func WithLocker(l ports.DistributedLocker, ttl time.Duration) Option {
	return func(c *config) {
		c.locker = l
		c.lockTTL = ttl
	}
}

// WithSessionTimeout sets the idle timeout of sessions.
func WithSessionTimeout(d time.Duration) Option {
	return func(c *config) {
		c.sessionTimeout = d
	}
}

// WithRepositories sets the user and shipment repositories used by the
// delivery hooks (default: in memory).
func WithRepositories(users ports.UserRepository, shipments ports.ShipmentRepository) Option {
	return func(c *config) {
		c.users = users
		c.shipments = shipments
	}
}

// WithValidators replaces the default validator registry.
func WithValidators(r *validation.Registry) Option {
	return func(c *config) {
		c.validators = r
	}
}

// WithHooks adds business hooks on top of the delivery hooks. Hooks
// registered here win over delivery hooks of the same name.
func WithHooks(r *registry.Registry) Option {
	return func(c *config) {
		c.hooks = r
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(h domain.LifecycleHooks) Option {
	return func(c *config) {
		c.lifecycle = c.lifecycle.Merge(h)
	}
}

// WithMaxRetries sets the default retry limit.
func WithMaxRetries(n int) Option {
	return func(c *config) {
		c.maxRetries = n
	}
}

// WithStrictValidation makes unknown validation tags and hook names load
// errors instead of being accepted at runtime.
func WithStrictValidation(strict bool) Option {
	return func(c *config) {
		c.strict = strict
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		c.now = now
	}
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// New builds a Gateway. The automaton is loaded and validated eagerly; any
// problem fails construction.
func New(opts ...Option) (*Gateway, error) {
	cfg := &config{
		sessionTimeout: session.DefaultTimeout,
		lockTTL:        session.DefaultLockTTL,
		maxRetries:     domain.DefaultMaxRetries,
		strict:         true,
		now:            time.Now,
		logger:         logging.NewNop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.store == nil {
		cfg.store = memory.NewStore()
	}
	if cfg.users == nil || cfg.shipments == nil {
		repo := memory.NewRepository()
		if cfg.users == nil {
			cfg.users = repo
		}
		if cfg.shipments == nil {
			cfg.shipments = repo
		}
	}
	if cfg.validators == nil {
		cfg.validators = validation.Default()
	}

	hooks := registry.NewRegistry()
	svc := delivery.NewService(cfg.users, cfg.shipments,
		delivery.WithClock(cfg.now),
		delivery.WithLogger(cfg.logger),
	)
	svc.Register(hooks)
	if cfg.hooks != nil {
		for _, name := range cfg.hooks.Names() {
			hooks.Register(name, hookFrom(cfg.hooks, name))
		}
	}

	var loadOpts []automaton.LoadOption
	if cfg.strict {
		loadOpts = append(loadOpts,
			automaton.WithKnownValidationTags(cfg.validators.Has),
			automaton.WithKnownHooks(hooks.Has),
		)
	}

	holder, err := openAutomaton(cfg, loadOpts)
	if err != nil {
		return nil, err
	}

	managerOpts := []session.Option{
		session.WithTimeout(cfg.sessionTimeout),
		session.WithClock(cfg.now),
		session.WithLogger(cfg.logger),
	}
	if cfg.locker != nil {
		managerOpts = append(managerOpts,
			session.WithLocker(cfg.locker),
			session.WithLockTTL(cfg.lockTTL),
		)
	}
	sessions := session.NewManager(cfg.store, managerOpts...)

	orch := dialog.New(holder, sessions,
		dialog.WithValidator(cfg.validators),
		dialog.WithHookExecutor(hooks),
		dialog.WithAuthenticator(svc),
		dialog.WithLifecycleHooks(cfg.lifecycle),
		dialog.WithMaxRetries(cfg.maxRetries),
		dialog.WithLogger(cfg.logger),
	)

	return &Gateway{
		holder:       holder,
		sessions:     sessions,
		orchestrator: orch,
		validators:   cfg.validators,
		hooks:        hooks,
		service:      svc,
		logger:       cfg.logger,
	}, nil
}

func openAutomaton(cfg *config, opts []automaton.LoadOption) (*automaton.Holder, error) {
	if cfg.automatonPath != "" {
		h, err := automaton.OpenFile(cfg.automatonPath, opts...)
		if err != nil {
			return nil, fmt.Errorf("load automaton %s: %w", cfg.automatonPath, err)
		}
		return h, nil
	}

	doc := cfg.automatonDoc
	if doc == nil {
		doc = automata.Delivery
	}
	def, err := automaton.Parse(doc)
	if err != nil {
		return nil, fmt.Errorf("parse automaton: %w", err)
	}
	g, err := automaton.Load(def, opts...)
	if err != nil {
		return nil, err
	}
	return automaton.NewHolder(g, "", opts...), nil
}

func hookFrom(r *registry.Registry, name string) registry.Hook {
	return func(ctx context.Context, answers map[string]string) (map[string]string, error) {
		return r.Execute(ctx, name, answers)
	}
}

// Handle processes one aggregator callback.
func (g *Gateway) Handle(ctx context.Context, req domain.Request) domain.Directive {
	return g.orchestrator.Handle(ctx, req)
}

// Graph returns the automaton currently in service.
func (g *Gateway) Graph() *automaton.Graph {
	return g.holder.Graph()
}

// Holder exposes the automaton holder for reloads.
func (g *Gateway) Holder() *automaton.Holder {
	return g.holder
}

// Reload re-reads the automaton file and swaps it in when it is valid.
func (g *Gateway) Reload() (*automaton.Graph, error) {
	return g.holder.Reload()
}

// Watch reloads the automaton whenever its file changes, until ctx ends.
// Pass automaton.OnReload to observe each attempt.
func (g *Gateway) Watch(ctx context.Context, opts ...automaton.WatchOption) error {
	return automaton.Watch(ctx, g.holder, g.logger, opts...)
}

// Sessions exposes the session manager.
func (g *Gateway) Sessions() *session.Manager {
	return g.sessions
}

// Validators returns the validator registry.
func (g *Gateway) Validators() *validation.Registry {
	return g.validators
}

// Hooks returns the business hook registry.
func (g *Gateway) Hooks() *registry.Registry {
	return g.hooks
}

// Delivery returns the delivery service backing the hooks.
func (g *Gateway) Delivery() *delivery.Service {
	return g.service
}
