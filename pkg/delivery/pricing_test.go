package delivery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHundredths(t *testing.T) {
	cases := map[string]int64{"2": 200, "2.5": 250, "2.25": 225, "0.5": 50, " 500 ": 50000}
	for in, want := range cases {
		got, err := ParseHundredths(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "-1", "1.234", "abc", "1."} {
		_, err := ParseHundredths(bad)
		assert.Error(t, err, bad)
	}

	got, err := ParseHundredths("1000000000000.99")
	require.NoError(t, err)
	assert.Equal(t, int64(100000000000099), got)
	for _, huge := range []string{"1000000000001", "999999999999999999", "99999999999999999999999"} {
		_, err := ParseHundredths(huge)
		assert.ErrorIs(t, err, ErrAmountTooLarge, huge)
	}
}

func TestQuoteFromAnswers_RejectsOverflowingDeclaredValue(t *testing.T) {
	_, err := QuoteFromAnswers(map[string]string{
		KeyPackageWeight: "2",
		KeyTransportMode: "CAR",
		KeyDeliveryType:  "STANDARD",
		KeyDeclaredValue: "999999999999999999",
	})
	assert.ErrorIs(t, err, ErrAmountTooLarge)
}

func TestQuote_Price(t *testing.T) {
	tests := []struct {
		name string
		q    Quote
		want string
	}{
		{"car standard", Quote{WeightHundredths: 250, Transport: Car, Delivery: Standard}, "3375.00"},
		{"bicycle standard", Quote{WeightHundredths: 100, Transport: Bicycle, Delivery: Standard}, "1200.00"},
		{"truck express 24h", Quote{WeightHundredths: 50000, Transport: Truck, Delivery: Express24h}, "1004000.00"},
		{"motorcycle express 48h", Quote{WeightHundredths: 133, Transport: Motorcycle, Delivery: Express48h}, "2497.50"},
		{"special handling", Quote{WeightHundredths: 200, Transport: Motorcycle, Delivery: Standard, SpecialHandling: true}, "3000.00"},
		{"tricycle express 48h", Quote{WeightHundredths: 101, Transport: Tricycle, Delivery: Express48h}, "2709.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.q.Price().String())
		})
	}
}

func TestQuote_Insurance(t *testing.T) {
	assert.Equal(t, Money(0), Quote{}.Insurance())
	// 2% of 10 000 is 200, below the 500 minimum.
	assert.Equal(t, "500.00", Quote{DeclaredValue: 1_000_000}.Insurance().String())
	assert.Equal(t, "1000.00", Quote{DeclaredValue: 5_000_000}.Insurance().String())

	q := Quote{WeightHundredths: 250, Transport: Car, Delivery: Standard, DeclaredValue: 5_000_000}
	assert.Equal(t, "4375.00", q.Total().String())
}

func TestQuote_Capacity(t *testing.T) {
	assert.True(t, Quote{WeightHundredths: 2001, Transport: Bicycle}.ExceedsCapacity())
	assert.False(t, Quote{WeightHundredths: 2000, Transport: Bicycle}.ExceedsCapacity())
	assert.False(t, Quote{WeightHundredths: 50000, Transport: Truck}.ExceedsCapacity())
}

func TestCatalogParsing(t *testing.T) {
	m, err := ParseTransportMode("car")
	require.NoError(t, err)
	assert.Equal(t, "Car", m.DisplayName())

	_, err = ParseTransportMode("rocket")
	assert.Error(t, err)

	d, err := ParseDeliveryType("express_24h")
	require.NoError(t, err)
	assert.Equal(t, 1, d.EstimatedDays())

	p, err := ParsePaymentMethod("PAID_BY_RECIPIENT")
	require.NoError(t, err)
	assert.True(t, p.RequiresCashHandling())
	assert.False(t, MobileMoney.RequiresCashHandling())
}
