package ports

import (
	"context"

	"github.com/aretw0/ussdgw/pkg/domain"
)

// SessionStore defines the interface for persisting session contexts.
// Implementations store raw data only; expiry is enforced by session.Manager.
type SessionStore interface {
	// Save persists the session, overwriting any previous value.
	Save(ctx context.Context, s *domain.Session) error

	// Load retrieves the session for a given id.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.Session, error)

	// Delete removes the session. Deleting a missing session is not an error.
	Delete(ctx context.Context, sessionID string) error

	// List returns the ids of all stored sessions.
	List(ctx context.Context) ([]string, error)
}
