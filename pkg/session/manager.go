package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/ussdgw/internal/logging"
	"github.com/aretw0/ussdgw/pkg/domain"
	"github.com/aretw0/ussdgw/pkg/ports"
	"github.com/google/uuid"
)

const (
	// DefaultTimeout is the idle time after which a session expires.
	DefaultTimeout = 10 * time.Minute

	// DefaultLockTTL bounds how long a crashed replica can hold a distributed lock.
	DefaultLockTTL = 30 * time.Second

	// IDPrefix prefixes generated session ids.
	IDPrefix = "USSD_"
)

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// heldKey marks a context as already holding the lock of a session.
type heldKey struct{ id string }

// Manager orchestrates session access, ensuring safe concurrent operations.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	store ports.SessionStore

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	timeout time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the TTL of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithTimeout sets the idle timeout. A non-positive value disables expiry.
func WithTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.timeout = d
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a new session Manager with the given persistence store.
func NewManager(store ports.SessionStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		timeout: DefaultTimeout,
		now:     time.Now,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Timeout returns the configured idle timeout.
func (m *Manager) Timeout() time.Duration {
	return m.timeout
}

// Now returns the manager's clock reading.
func (m *Manager) Now() time.Time {
	return m.now()
}

// Store returns the underlying session store.
func (m *Manager) Store() ports.SessionStore {
	return m.store
}

// CreateOption configures Create.
type CreateOption func(*createConfig)

type createConfig struct {
	id string
}

// WithSessionID uses an externally supplied id, typically the aggregator's.
func WithSessionID(id string) CreateOption {
	return func(c *createConfig) {
		c.id = id
	}
}

// NewID generates a session id.
func NewID() string {
	return IDPrefix + uuid.Must(uuid.NewV7()).String()
}

// Create initialises and persists a fresh session with the current state unset.
func (m *Manager) Create(ctx context.Context, phone string, opts ...CreateOption) (*domain.Session, error) {
	var cfg createConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.id == "" {
		cfg.id = NewID()
	}

	s := domain.NewSession(cfg.id, phone, m.now())
	err := m.guard(ctx, s.ID, func(ctx context.Context) error {
		if err := m.store.Save(ctx, s); err != nil {
			return fmt.Errorf("failed to initialize session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Get loads a session.
// It returns domain.ErrSessionNotFound for unknown ids and
// domain.ErrSessionExpired (after deleting the entry) when the session has
// been idle for longer than the timeout. Every successful read counts as
// activity and is persisted.
func (m *Manager) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	var s *domain.Session
	err := m.guard(ctx, sessionID, func(ctx context.Context) error {
		var err error
		s, err = m.store.Load(ctx, sessionID)
		if err != nil {
			return err
		}

		now := m.now()
		if s.Expired(now, m.timeout) {
			if err := m.store.Delete(ctx, sessionID); err != nil {
				m.logger.Warn("Failed to delete expired session", "session_id", sessionID, "err", err)
			}
			s = nil
			return domain.ErrSessionExpired
		}

		s.LastActivity = now
		return m.store.Save(ctx, s)
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Save persists the whole session, overwriting the stored copy.
func (m *Manager) Save(ctx context.Context, s *domain.Session) error {
	return m.guard(ctx, s.ID, func(ctx context.Context) error {
		return m.store.Save(ctx, s)
	})
}

// Delete removes the session. Deleting a missing session is not an error.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.guard(ctx, sessionID, func(ctx context.Context) error {
		err := m.store.Delete(ctx, sessionID)
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil
		}
		return err
	})
}

// Exists reports whether a live session is stored under sessionID.
// An expired entry reports false and is removed.
func (m *Manager) Exists(ctx context.Context, sessionID string) (bool, error) {
	exists := false
	err := m.guard(ctx, sessionID, func(ctx context.Context) error {
		s, err := m.store.Load(ctx, sessionID)
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if s.Expired(m.now(), m.timeout) {
			return m.store.Delete(ctx, sessionID)
		}
		exists = true
		return nil
	})
	return exists, err
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Sweep removes every expired session and returns how many were removed.
func (m *Manager) Sweep(ctx context.Context) (int, error) {
	ids, err := m.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list sessions: %w", err)
	}

	removed := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}
		err := m.WithLock(ctx, id, func(ctx context.Context) error {
			s, err := m.store.Load(ctx, id)
			if err != nil {
				return err
			}
			if !s.Expired(m.now(), m.timeout) {
				return nil
			}
			if err := m.store.Delete(ctx, id); err != nil {
				return err
			}
			removed++
			return nil
		})
		if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			m.logger.Warn("Sweep skipped session", "session_id", id, "err", err)
		}
	}
	return removed, nil
}

// RunSweeper calls Sweep every interval until ctx is cancelled.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("sweep interval must be positive, got %s", interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := m.Sweep(ctx)
			if err != nil {
				m.logger.Warn("Session sweep failed", "err", err)
				continue
			}
			if n > 0 {
				m.logger.Debug("Expired sessions removed", "count", n)
			}
		}
	}
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(sessionID) after unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// guard runs fn under the session lock unless ctx already holds it.
func (m *Manager) guard(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	if held, _ := ctx.Value(heldKey{sessionID}).(bool); held {
		return fn(ctx)
	}
	return m.WithLock(ctx, sessionID, fn)
}

// WithLock executes fn while holding the lock for the session.
// Get, Save, Delete and Exists called with the ctx passed to fn reuse the
// lock instead of deadlocking, so a whole load-mutate-save cycle can run as
// one critical section.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(context.WithValue(ctx, heldKey{sessionID}, true))
}
