package delivery

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	ratePerKgCents       = 500 * 100
	baseFeeCents         = 1000 * 100
	specialHandlingCents = 1000 * 100
	minInsuranceCents    = 500 * 100
	insurancePercent     = 2
)

var amountPattern = regexp.MustCompile(`^([0-9]+)(?:\.([0-9]{1,2}))?$`)

// MaxAmount bounds parsed amounts so prices and insurance stay far from
// int64 overflow.
const MaxAmount = 1_000_000_000_000

// ErrAmountTooLarge is returned by ParseHundredths above MaxAmount.
var ErrAmountTooLarge = fmt.Errorf("amount exceeds %d", MaxAmount)

// Money is an amount of XAF in cents.
type Money int64

// String renders the amount with two decimals, e.g. "3375.00".
func (m Money) String() string {
	sign := ""
	if m < 0 {
		sign, m = "-", -m
	}
	return fmt.Sprintf("%s%d.%02d", sign, int64(m)/100, int64(m)%100)
}

// ParseHundredths parses a non-negative decimal with up to two places into
// hundredths ("2.5" -> 250).
func ParseHundredths(s string) (int64, error) {
	m := amountPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	whole, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || whole > MaxAmount {
		return 0, fmt.Errorf("invalid amount %q: %w", s, ErrAmountTooLarge)
	}
	frac := m[2]
	for len(frac) < 2 {
		frac += "0"
	}
	f, _ := strconv.ParseInt(frac, 10, 64)
	return whole*100 + f, nil
}

// Quote is a priced shipment request.
type Quote struct {
	WeightHundredths int64
	Transport        TransportMode
	Delivery         DeliveryType
	SpecialHandling  bool
	DeclaredValue    Money // zero means uninsured
}

// Price is the transport price:
// (weight x 500 + 1000) x transport multiplier x delivery multiplier,
// plus 1000 for special handling, rounded half-up to the cent.
func (q Quote) Price() Money {
	base := q.WeightHundredths*ratePerKgCents/100 + baseFeeCents
	scaled := base * transports[q.Transport].permille * deliveries[q.Delivery].permille
	price := divRoundHalfUp(scaled, 1_000_000)
	if q.SpecialHandling {
		price += specialHandlingCents
	}
	return Money(price)
}

// Insurance is 2% of the declared value, at least 500, or zero when uninsured.
func (q Quote) Insurance() Money {
	if q.DeclaredValue <= 0 {
		return 0
	}
	fee := divRoundHalfUp(int64(q.DeclaredValue)*insurancePercent, 100)
	if fee < minInsuranceCents {
		fee = minInsuranceCents
	}
	return Money(fee)
}

// Total is Price plus Insurance.
func (q Quote) Total() Money {
	return q.Price() + q.Insurance()
}

// ExceedsCapacity reports whether the weight is too heavy for the transport.
func (q Quote) ExceedsCapacity() bool {
	return q.WeightHundredths > q.Transport.CapacityHundredths()
}

func divRoundHalfUp(n, d int64) int64 {
	return (n + d/2) / d
}
