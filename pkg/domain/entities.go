package domain

import (
	"fmt"
	"strings"
	"time"
)

// User is a registered sender.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// ShipmentStatus is the delivery lifecycle of a shipment.
type ShipmentStatus string

const (
	ShipmentPending   ShipmentStatus = "PENDING"
	ShipmentConfirmed ShipmentStatus = "CONFIRMED"
	ShipmentInTransit ShipmentStatus = "IN_TRANSIT"
	ShipmentDelivered ShipmentStatus = "DELIVERED"
	ShipmentCancelled ShipmentStatus = "CANCELLED"
)

var statusOrder = map[ShipmentStatus]int{
	ShipmentPending:   0,
	ShipmentConfirmed: 1,
	ShipmentInTransit: 2,
	ShipmentDelivered: 3,
}

// DisplayName is the text shown to users.
func (s ShipmentStatus) DisplayName() string {
	switch s {
	case ShipmentPending:
		return "Pending"
	case ShipmentConfirmed:
		return "Confirmed"
	case ShipmentInTransit:
		return "In transit"
	case ShipmentDelivered:
		return "Delivered"
	case ShipmentCancelled:
		return "Cancelled"
	}
	return string(s)
}

// CanTransitionTo reports whether next is a legal move from s.
// Statuses only move forward; cancellation is allowed until delivery.
func (s ShipmentStatus) CanTransitionTo(next ShipmentStatus) bool {
	if s == ShipmentCancelled || s == ShipmentDelivered {
		return false
	}
	if next == ShipmentCancelled {
		return true
	}
	cur, ok1 := statusOrder[s]
	nxt, ok2 := statusOrder[next]
	return ok1 && ok2 && nxt > cur
}

// Shipment is a package handed over for delivery.
type Shipment struct {
	ID              int64          `json:"id"`
	TrackingID      string         `json:"tracking_id"`
	SenderPhone     string         `json:"sender_phone"`
	SenderID        string         `json:"sender_id,omitempty"`
	RecipientName   string         `json:"recipient_name"`
	RecipientPhone  string         `json:"recipient_phone"`
	RecipientCity   string         `json:"recipient_city"`
	DeliveryAddress string         `json:"delivery_address"`
	Description     string         `json:"description"`
	WeightKg        string         `json:"weight_kg"`
	TransportMode   string         `json:"transport_mode"`
	DeliveryType    string         `json:"delivery_type"`
	PaymentMethod   string         `json:"payment_method"`
	PriceCents      int64          `json:"price_cents"`
	Status          ShipmentStatus `json:"status"`
	CreatedAt       time.Time      `json:"created_at"`
}

// TrackingID formats a tracking identifier for a day and a sequence number.
func TrackingID(day time.Time, seq int64) string {
	return fmt.Sprintf("PKND-%s-%05d", day.Format("20060102"), seq%100000)
}

// Destination returns the best available delivery destination text.
func (s *Shipment) Destination() string {
	parts := make([]string, 0, 2)
	if s.DeliveryAddress != "" {
		parts = append(parts, s.DeliveryAddress)
	}
	if s.RecipientCity != "" {
		parts = append(parts, s.RecipientCity)
	}
	return strings.Join(parts, ", ")
}
