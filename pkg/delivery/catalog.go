package delivery

import (
	"fmt"
	"strings"
)

// TransportMode is the vehicle carrying a shipment.
type TransportMode string

const (
	Bicycle    TransportMode = "BICYCLE"
	Motorcycle TransportMode = "MOTORCYCLE"
	Tricycle   TransportMode = "TRICYCLE"
	Car        TransportMode = "CAR"
	Truck      TransportMode = "TRUCK"
)

type transportSpec struct {
	display    string
	permille   int64 // price multiplier x1000
	capacityKg int64
}

var transports = map[TransportMode]transportSpec{
	Bicycle:    {"Bicycle", 800, 20},
	Motorcycle: {"Motorcycle", 1000, 50},
	Tricycle:   {"Tricycle", 1200, 100},
	Car:        {"Car", 1500, 150},
	Truck:      {"Truck", 2000, 500},
}

// ParseTransportMode accepts the enum name in any case.
func ParseTransportMode(s string) (TransportMode, error) {
	m := TransportMode(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := transports[m]; !ok {
		return "", fmt.Errorf("unknown transport mode %q", s)
	}
	return m, nil
}

func (m TransportMode) DisplayName() string { return transports[m].display }

// CapacityHundredths is the maximum load in hundredths of a kilogram.
func (m TransportMode) CapacityHundredths() int64 { return transports[m].capacityKg * 100 }

// CapacityKg is the maximum load in kilograms.
func (m TransportMode) CapacityKg() int64 { return transports[m].capacityKg }

// DeliveryType is the delivery speed.
type DeliveryType string

const (
	Standard   DeliveryType = "STANDARD"
	Express48h DeliveryType = "EXPRESS_48H"
	Express24h DeliveryType = "EXPRESS_24H"
)

type deliverySpec struct {
	display  string
	days     int
	permille int64
}

var deliveries = map[DeliveryType]deliverySpec{
	Standard:   {"Standard", 3, 1000},
	Express48h: {"Express 48h", 2, 1500},
	Express24h: {"Express 24h", 1, 2000},
}

// ParseDeliveryType accepts the enum name in any case.
func ParseDeliveryType(s string) (DeliveryType, error) {
	d := DeliveryType(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := deliveries[d]; !ok {
		return "", fmt.Errorf("unknown delivery type %q", s)
	}
	return d, nil
}

func (d DeliveryType) DisplayName() string { return deliveries[d].display }

// EstimatedDays is the promised delivery time.
func (d DeliveryType) EstimatedDays() int { return deliveries[d].days }

// PaymentMethod is how the sender pays.
type PaymentMethod string

const (
	Cash            PaymentMethod = "CASH"
	MobileMoney     PaymentMethod = "MOBILE_MONEY"
	OrangeMoney     PaymentMethod = "ORANGE_MONEY"
	PaidByRecipient PaymentMethod = "PAID_BY_RECIPIENT"
)

var payments = map[PaymentMethod]string{
	Cash:            "Cash",
	MobileMoney:     "Mobile Money",
	OrangeMoney:     "Orange Money",
	PaidByRecipient: "Paid by recipient",
}

// ParsePaymentMethod accepts the enum name in any case.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	p := PaymentMethod(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := payments[p]; !ok {
		return "", fmt.Errorf("unknown payment method %q", s)
	}
	return p, nil
}

func (p PaymentMethod) DisplayName() string { return payments[p] }

// RequiresCashHandling reports whether the courier collects money.
func (p PaymentMethod) RequiresCashHandling() bool {
	return p == Cash || p == PaidByRecipient
}
