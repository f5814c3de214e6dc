package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/ussdgw/pkg/domain"
	"github.com/jackc/pgx/v5"
)

const (
	retryAttempts = 3
	retryDelay    = 10 * time.Millisecond
)

// CreateUser inserts u. A duplicate phone maps to domain.ErrUserExists.
func (db *DB) CreateUser(ctx context.Context, u *domain.User) error {
	_, err := db.pool.Exec(ctx, `
		INSERT INTO users (id, name, phone, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Name, u.Phone, u.Email, u.PasswordHash, u.CreatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("postgres: create user: %w", err)
	}
	return nil
}

// FindUserByPhone returns domain.ErrUserNotFound for unknown phones.
func (db *DB) FindUserByPhone(ctx context.Context, phone string) (*domain.User, error) {
	var u domain.User
	err := db.pool.QueryRow(ctx, `
		SELECT id, name, phone, email, password_hash, created_at
		FROM users WHERE phone = $1`, phone,
	).Scan(&u.ID, &u.Name, &u.Phone, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: find user: %w", err)
	}
	return &u, nil
}

// NextTrackingSequence increments the counter of day atomically.
func (db *DB) NextTrackingSequence(ctx context.Context, day time.Time) (int64, error) {
	var seq int64
	err := WithRetry(ctx, retryAttempts, retryDelay, func() error {
		return db.pool.QueryRow(ctx, `
			INSERT INTO tracking_sequences (day, last) VALUES ($1::date, 1)
			ON CONFLICT (day) DO UPDATE SET last = tracking_sequences.last + 1
			RETURNING last`, day.Format(time.DateOnly),
		).Scan(&seq)
	})
	if err != nil {
		return 0, fmt.Errorf("postgres: next tracking sequence: %w", err)
	}
	return seq, nil
}

// CreateShipment inserts s and sets s.ID.
func (db *DB) CreateShipment(ctx context.Context, s *domain.Shipment) error {
	err := db.pool.QueryRow(ctx, `
		INSERT INTO shipments (
			tracking_id, sender_phone, sender_id, recipient_name, recipient_phone,
			recipient_city, delivery_address, description, weight_kg, transport_mode,
			delivery_type, payment_method, price_cents, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::numeric, $10, $11, $12, $13, $14, $15)
		RETURNING id`,
		s.TrackingID, s.SenderPhone, s.SenderID, s.RecipientName, s.RecipientPhone,
		s.RecipientCity, s.DeliveryAddress, s.Description, s.WeightKg, s.TransportMode,
		s.DeliveryType, s.PaymentMethod, s.PriceCents, string(s.Status), s.CreatedAt,
	).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("postgres: create shipment: %w", err)
	}
	return nil
}

const shipmentColumns = `
	id, tracking_id, sender_phone, sender_id, recipient_name, recipient_phone,
	recipient_city, delivery_address, description, weight_kg::text, transport_mode,
	delivery_type, payment_method, price_cents, status, created_at`

func scanShipment(row pgx.Row) (*domain.Shipment, error) {
	var s domain.Shipment
	var status string
	err := row.Scan(
		&s.ID, &s.TrackingID, &s.SenderPhone, &s.SenderID, &s.RecipientName, &s.RecipientPhone,
		&s.RecipientCity, &s.DeliveryAddress, &s.Description, &s.WeightKg, &s.TransportMode,
		&s.DeliveryType, &s.PaymentMethod, &s.PriceCents, &status, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Status = domain.ShipmentStatus(status)
	return &s, nil
}

// FindShipmentByTrackingID returns domain.ErrShipmentNotFound for unknown ids.
func (db *DB) FindShipmentByTrackingID(ctx context.Context, trackingID string) (*domain.Shipment, error) {
	s, err := scanShipment(db.pool.QueryRow(ctx,
		`SELECT `+shipmentColumns+` FROM shipments WHERE tracking_id = $1`, trackingID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrShipmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: find shipment: %w", err)
	}
	return s, nil
}

// UpdateShipmentStatus checks and applies a status move in one transaction.
func (db *DB) UpdateShipmentStatus(ctx context.Context, trackingID string, status domain.ShipmentStatus) error {
	return WithRetry(ctx, retryAttempts, retryDelay, func() error {
		tx, err := db.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
		if err != nil {
			return fmt.Errorf("postgres: begin: %w", err)
		}
		defer func() { _ = tx.Rollback(ctx) }()

		var current string
		err = tx.QueryRow(ctx,
			`SELECT status FROM shipments WHERE tracking_id = $1 FOR UPDATE`, trackingID,
		).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrShipmentNotFound
		}
		if err != nil {
			return err
		}
		if !domain.ShipmentStatus(current).CanTransitionTo(status) {
			return fmt.Errorf("%w: %s to %s", domain.ErrInvalidStatusTransition, current, status)
		}

		if _, err := tx.Exec(ctx,
			`UPDATE shipments SET status = $2, updated_at = now() WHERE tracking_id = $1`,
			trackingID, string(status),
		); err != nil {
			return err
		}
		return tx.Commit(ctx)
	})
}

// ListShipmentsBySender returns the shipments of phone, newest first.
func (db *DB) ListShipmentsBySender(ctx context.Context, phone string) ([]*domain.Shipment, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+shipmentColumns+` FROM shipments WHERE sender_phone = $1 ORDER BY id DESC`, phone)
	if err != nil {
		return nil, fmt.Errorf("postgres: list shipments: %w", err)
	}
	defer rows.Close()

	var out []*domain.Shipment
	for rows.Next() {
		s, err := scanShipment(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan shipment: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
