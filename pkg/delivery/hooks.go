package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/ussdgw/internal/logging"
	"github.com/aretw0/ussdgw/pkg/domain"
	"github.com/aretw0/ussdgw/pkg/ports"
	"github.com/aretw0/ussdgw/pkg/registry"
)

// Hook names referenced by the automaton's businessServiceMethod.
const (
	HookShipmentSummary = "generateShipmentSummary"
	HookCreateShipment  = "createShipment"
	HookTrackingInfo    = "getPackageTrackingInfo"
	HookRegisterUser    = "registerUser"
)

// Answer keys read and written by the hooks.
const (
	KeyRecipientName        = "recipientName"
	KeyRecipientPhone       = "recipientPhone"
	KeyRecipientCity        = "recipientCity"
	KeyDeliveryAddress      = "deliveryAddress"
	KeyPackageDescription   = "packageDescription"
	KeyPackageWeight        = "packageWeight"
	KeyTransportMode        = "transportMode"
	KeyDeliveryType         = "deliveryType"
	KeyPaymentMethod        = "paymentMethod"
	KeySpecialHandling      = "specialHandling"
	KeyDeclaredValue        = "declaredValue"
	KeyShipmentSummary      = "shipmentSummary"
	KeyPrice                = "price"
	KeyTrackingID           = "trackingId"
	KeyShipmentConfirmation = "shipmentConfirmation"
	KeyTrackingInfo         = "trackingInfo"
	KeyRegistrationName     = "registrationName"
	KeyRegistrationEmail    = "registrationEmail"
	KeyRegistrationPassword = "registrationPassword"
	KeyRegistrationStatus   = "registrationStatus"
)

// Service holds the collaborators of the delivery hooks.
type Service struct {
	users     ports.UserRepository
	shipments ports.ShipmentRepository
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithLogger configures a logger for the Service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates the delivery hooks.
func NewService(users ports.UserRepository, shipments ports.ShipmentRepository, opts ...Option) *Service {
	s := &Service{
		users:     users,
		shipments: shipments,
		now:       time.Now,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds every hook to reg.
func (s *Service) Register(reg *registry.Registry) {
	reg.Register(HookShipmentSummary, s.GenerateShipmentSummary)
	reg.Register(HookCreateShipment, s.CreateShipment)
	reg.Register(HookTrackingInfo, s.GetPackageTrackingInfo)
	reg.Register(HookRegisterUser, s.RegisterUser)
}

// QuoteFromAnswers builds a Quote from the collected answers.
func QuoteFromAnswers(answers map[string]string) (Quote, error) {
	var q Quote
	var err error

	if q.WeightHundredths, err = ParseHundredths(answers[KeyPackageWeight]); err != nil {
		return q, fmt.Errorf("weight: %w", err)
	}
	if q.Transport, err = ParseTransportMode(answers[KeyTransportMode]); err != nil {
		return q, err
	}
	if q.Delivery, err = ParseDeliveryType(answers[KeyDeliveryType]); err != nil {
		return q, err
	}
	q.SpecialHandling = isYes(answers[KeySpecialHandling])
	if v := answers[KeyDeclaredValue]; v != "" {
		declared, err := ParseHundredths(v)
		if err != nil {
			return q, fmt.Errorf("declared value: %w", err)
		}
		q.DeclaredValue = Money(declared)
	}
	return q, nil
}

// GenerateShipmentSummary prices the shipment and renders the confirmation screen.
func (s *Service) GenerateShipmentSummary(ctx context.Context, answers map[string]string) (map[string]string, error) {
	q, err := QuoteFromAnswers(answers)
	if err != nil {
		return nil, err
	}
	payment, err := ParsePaymentMethod(answers[KeyPaymentMethod])
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	sb.WriteString("SUMMARY:\n\n")
	fmt.Fprintf(&sb, "Recipient: %s\n", answers[KeyRecipientName])
	fmt.Fprintf(&sb, "Phone: %s\n", answers[KeyRecipientPhone])
	fmt.Fprintf(&sb, "City: %s\n", answers[KeyRecipientCity])
	fmt.Fprintf(&sb, "Package: %s\n", answers[KeyPackageDescription])
	fmt.Fprintf(&sb, "Weight: %s kg\n", strings.TrimSpace(answers[KeyPackageWeight]))
	fmt.Fprintf(&sb, "Transport: %s\n", q.Transport.DisplayName())
	fmt.Fprintf(&sb, "Delivery: %s\n", q.Delivery.DisplayName())
	fmt.Fprintf(&sb, "Payment: %s\n", payment.DisplayName())
	fmt.Fprintf(&sb, "Price: %s XAF", q.Total())
	if q.ExceedsCapacity() {
		fmt.Fprintf(&sb, "\nWarning: %s carries at most %d kg", q.Transport.DisplayName(), q.Transport.CapacityKg())
	}

	return map[string]string{
		KeyShipmentSummary: sb.String(),
		KeyPrice:           q.Total().String(),
	}, nil
}

// CreateShipment persists a PENDING shipment and assigns its tracking id.
func (s *Service) CreateShipment(ctx context.Context, answers map[string]string) (map[string]string, error) {
	q, err := QuoteFromAnswers(answers)
	if err != nil {
		return nil, err
	}
	payment, err := ParsePaymentMethod(answers[KeyPaymentMethod])
	if err != nil {
		return nil, err
	}
	if q.ExceedsCapacity() {
		return map[string]string{
			KeyShipmentConfirmation: fmt.Sprintf("Shipment refused: %s carries at most %d kg. Please dial again and choose a larger vehicle.",
				q.Transport.DisplayName(), q.Transport.CapacityKg()),
		}, nil
	}

	now := s.now()
	seq, err := s.shipments.NextTrackingSequence(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("allocate tracking id: %w", err)
	}

	sh := &domain.Shipment{
		TrackingID:      domain.TrackingID(now, seq),
		SenderPhone:     answers[domain.KeyPhone],
		SenderID:        answers[domain.KeyUserID],
		RecipientName:   answers[KeyRecipientName],
		RecipientPhone:  answers[KeyRecipientPhone],
		RecipientCity:   answers[KeyRecipientCity],
		DeliveryAddress: answers[KeyDeliveryAddress],
		Description:     answers[KeyPackageDescription],
		WeightKg:        Money(q.WeightHundredths).String(),
		TransportMode:   string(q.Transport),
		DeliveryType:    string(q.Delivery),
		PaymentMethod:   string(payment),
		PriceCents:      int64(q.Total()),
		Status:          domain.ShipmentPending,
		CreatedAt:       now,
	}
	if err := s.shipments.CreateShipment(ctx, sh); err != nil {
		return nil, fmt.Errorf("store shipment: %w", err)
	}

	s.logger.Info("Shipment created", "tracking_id", sh.TrackingID, "price", q.Total().String())

	return map[string]string{
		KeyTrackingID: sh.TrackingID,
		KeyPrice:      q.Total().String(),
		KeyShipmentConfirmation: fmt.Sprintf("Shipment created!\nTracking ID: %s\nPrice: %s XAF\nEstimated delivery: %d day(s)",
			sh.TrackingID, q.Total(), q.Delivery.EstimatedDays()),
	}, nil
}

// GetPackageTrackingInfo looks up a shipment by tracking id.
func (s *Service) GetPackageTrackingInfo(ctx context.Context, answers map[string]string) (map[string]string, error) {
	id := strings.ToUpper(strings.TrimSpace(answers[KeyTrackingID]))

	sh, err := s.shipments.FindShipmentByTrackingID(ctx, id)
	if errors.Is(err, domain.ErrShipmentNotFound) {
		return map[string]string{KeyTrackingInfo: fmt.Sprintf("No shipment found for %s", id)}, nil
	}
	if err != nil {
		return nil, err
	}

	return map[string]string{
		KeyTrackingInfo: fmt.Sprintf("Tracking: %s\nStatus: %s\nDestination: %s",
			sh.TrackingID, sh.Status.DisplayName(), sh.Destination()),
	}, nil
}

func isYes(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "yes", "y", "true":
		return true
	}
	return false
}
