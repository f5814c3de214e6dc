package ports

import (
	"context"
	"time"

	"github.com/aretw0/ussdgw/pkg/domain"
)

// UserRepository stores registered senders.
type UserRepository interface {
	// CreateUser stores a new user. Returns domain.ErrUserExists for a known phone.
	CreateUser(ctx context.Context, u *domain.User) error

	// FindUserByPhone returns domain.ErrUserNotFound when nobody registered the phone.
	FindUserByPhone(ctx context.Context, phone string) (*domain.User, error)
}

// ShipmentRepository stores shipments and hands out tracking sequences.
type ShipmentRepository interface {
	// NextTrackingSequence returns the next per-day sequence number, starting at 1.
	NextTrackingSequence(ctx context.Context, day time.Time) (int64, error)

	// CreateShipment stores s and assigns s.ID.
	CreateShipment(ctx context.Context, s *domain.Shipment) error

	// FindShipmentByTrackingID returns domain.ErrShipmentNotFound for unknown ids.
	FindShipmentByTrackingID(ctx context.Context, trackingID string) (*domain.Shipment, error)

	// UpdateShipmentStatus moves a shipment forward.
	// Returns domain.ErrInvalidStatusTransition when the move is not allowed.
	UpdateShipmentStatus(ctx context.Context, trackingID string, status domain.ShipmentStatus) error

	// ListShipmentsBySender returns the shipments of a sender, newest first.
	ListShipmentsBySender(ctx context.Context, phone string) ([]*domain.Shipment, error)
}
