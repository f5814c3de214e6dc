package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/ussdgw/pkg/domain"
)

// Repository implements ports.UserRepository and ports.ShipmentRepository in
// memory. It backs the simulator and tests.
type Repository struct {
	mu        sync.RWMutex
	users     map[string]domain.User // by phone
	shipments map[string]*domain.Shipment
	sequences map[string]int64 // by day
	nextID    int64
}

// NewRepository creates an empty repository.
func NewRepository() *Repository {
	return &Repository{
		users:     make(map[string]domain.User),
		shipments: make(map[string]*domain.Shipment),
		sequences: make(map[string]int64),
	}
}

func (r *Repository) CreateUser(ctx context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[u.Phone]; ok {
		return domain.ErrUserExists
	}
	r.users[u.Phone] = *u
	return nil
}

func (r *Repository) FindUserByPhone(ctx context.Context, phone string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[phone]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (r *Repository) NextTrackingSequence(ctx context.Context, day time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := day.Format("20060102")
	r.sequences[key]++
	return r.sequences[key], nil
}

func (r *Repository) CreateShipment(ctx context.Context, s *domain.Shipment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	s.ID = r.nextID
	c := *s
	r.shipments[s.TrackingID] = &c
	return nil
}

func (r *Repository) FindShipmentByTrackingID(ctx context.Context, trackingID string) (*domain.Shipment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.shipments[trackingID]
	if !ok {
		return nil, domain.ErrShipmentNotFound
	}
	c := *s
	return &c, nil
}

func (r *Repository) UpdateShipmentStatus(ctx context.Context, trackingID string, status domain.ShipmentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.shipments[trackingID]
	if !ok {
		return domain.ErrShipmentNotFound
	}
	if !s.Status.CanTransitionTo(status) {
		return domain.ErrInvalidStatusTransition
	}
	s.Status = status
	return nil
}

func (r *Repository) ListShipmentsBySender(ctx context.Context, phone string) ([]*domain.Shipment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Shipment
	for _, s := range r.shipments {
		if s.SenderPhone == phone {
			c := *s
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}
