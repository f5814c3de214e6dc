// Package sqlite stores users and shipments in an embedded SQLite database,
// for single-node deployments and the simulator.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/ussdgw/pkg/domain"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed schema.sql
var schema string

// DB implements the user and shipment repositories on SQLite.
type DB struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) the database at dsn and applies the schema.
// Use ":memory:" for a throwaway database.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// SQLite serialises writers; one connection also keeps :memory: databases whole.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000; PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: pragmas: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}

	logger.Debug("sqlite database ready", "dsn", dsn)
	return &DB{db: db, logger: logger}, nil
}

// Close releases the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks the database handle.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

// CreateUser inserts u. A duplicate phone maps to domain.ErrUserExists.
func (d *DB) CreateUser(ctx context.Context, u *domain.User) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO users (id, name, phone, email, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Phone, u.Email, u.PasswordHash, formatTime(u.CreatedAt),
	)
	if isUniqueViolation(err) {
		return domain.ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("sqlite: create user: %w", err)
	}
	return nil
}

// FindUserByPhone returns domain.ErrUserNotFound for unknown phones.
func (d *DB) FindUserByPhone(ctx context.Context, phone string) (*domain.User, error) {
	var u domain.User
	var created string
	err := d.db.QueryRowContext(ctx, `
		SELECT id, name, phone, email, password_hash, created_at
		FROM users WHERE phone = ?`, phone,
	).Scan(&u.ID, &u.Name, &u.Phone, &u.Email, &u.PasswordHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: find user: %w", err)
	}
	u.CreatedAt = parseTime(created)
	return &u, nil
}

// NextTrackingSequence increments the counter of day.
func (d *DB) NextTrackingSequence(ctx context.Context, day time.Time) (int64, error) {
	var seq int64
	err := d.db.QueryRowContext(ctx, `
		INSERT INTO tracking_sequences (day, last) VALUES (?, 1)
		ON CONFLICT (day) DO UPDATE SET last = last + 1
		RETURNING last`, day.Format(time.DateOnly),
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("sqlite: next tracking sequence: %w", err)
	}
	return seq, nil
}

// CreateShipment inserts s and sets s.ID.
func (d *DB) CreateShipment(ctx context.Context, s *domain.Shipment) error {
	res, err := d.db.ExecContext(ctx, `
		INSERT INTO shipments (
			tracking_id, sender_phone, sender_id, recipient_name, recipient_phone,
			recipient_city, delivery_address, description, weight_kg, transport_mode,
			delivery_type, payment_method, price_cents, status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.TrackingID, s.SenderPhone, s.SenderID, s.RecipientName, s.RecipientPhone,
		s.RecipientCity, s.DeliveryAddress, s.Description, s.WeightKg, s.TransportMode,
		s.DeliveryType, s.PaymentMethod, s.PriceCents, string(s.Status), formatTime(s.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: create shipment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: shipment id: %w", err)
	}
	s.ID = id
	return nil
}

const shipmentColumns = `
	id, tracking_id, sender_phone, sender_id, recipient_name, recipient_phone,
	recipient_city, delivery_address, description, weight_kg, transport_mode,
	delivery_type, payment_method, price_cents, status, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanShipment(row scanner) (*domain.Shipment, error) {
	var s domain.Shipment
	var status, created string
	err := row.Scan(
		&s.ID, &s.TrackingID, &s.SenderPhone, &s.SenderID, &s.RecipientName, &s.RecipientPhone,
		&s.RecipientCity, &s.DeliveryAddress, &s.Description, &s.WeightKg, &s.TransportMode,
		&s.DeliveryType, &s.PaymentMethod, &s.PriceCents, &status, &created,
	)
	if err != nil {
		return nil, err
	}
	s.Status = domain.ShipmentStatus(status)
	s.CreatedAt = parseTime(created)
	return &s, nil
}

// FindShipmentByTrackingID returns domain.ErrShipmentNotFound for unknown ids.
func (d *DB) FindShipmentByTrackingID(ctx context.Context, trackingID string) (*domain.Shipment, error) {
	s, err := scanShipment(d.db.QueryRowContext(ctx,
		`SELECT `+shipmentColumns+` FROM shipments WHERE tracking_id = ?`, trackingID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrShipmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: find shipment: %w", err)
	}
	return s, nil
}

// UpdateShipmentStatus checks and applies a status move in one transaction.
func (d *DB) UpdateShipmentStatus(ctx context.Context, trackingID string, status domain.ShipmentStatus) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current string
	err = tx.QueryRowContext(ctx, `SELECT status FROM shipments WHERE tracking_id = ?`, trackingID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrShipmentNotFound
	}
	if err != nil {
		return fmt.Errorf("sqlite: load status: %w", err)
	}
	if !domain.ShipmentStatus(current).CanTransitionTo(status) {
		return fmt.Errorf("%w: %s to %s", domain.ErrInvalidStatusTransition, current, status)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE shipments SET status = ? WHERE tracking_id = ?`, string(status), trackingID,
	); err != nil {
		return fmt.Errorf("sqlite: update status: %w", err)
	}
	return tx.Commit()
}

// ListShipmentsBySender returns the shipments of phone, newest first.
func (d *DB) ListShipmentsBySender(ctx context.Context, phone string) ([]*domain.Shipment, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT `+shipmentColumns+` FROM shipments WHERE sender_phone = ? ORDER BY id DESC`, phone)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list shipments: %w", err)
	}
	defer rows.Close()

	var out []*domain.Shipment
	for rows.Next() {
		s, err := scanShipment(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan shipment: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
