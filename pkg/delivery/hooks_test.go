package delivery_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/ussdgw/pkg/adapters/memory"
	"github.com/aretw0/ussdgw/pkg/delivery"
	"github.com/aretw0/ussdgw/pkg/domain"
	"github.com/aretw0/ussdgw/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 9, 14, 30, 0, 0, time.UTC)

func newService(t *testing.T) (*delivery.Service, *memory.Repository) {
	t.Helper()
	repo := memory.NewRepository()
	svc := delivery.NewService(repo, repo, delivery.WithClock(func() time.Time { return fixedNow }))
	return svc, repo
}

func shipmentAnswers() map[string]string {
	return map[string]string{
		domain.KeyPhone:                "+237600000000",
		delivery.KeyRecipientName:      "John Doe",
		delivery.KeyRecipientPhone:     "+237611111111",
		delivery.KeyRecipientCity:      "Douala",
		delivery.KeyDeliveryAddress:    "12 Rue de la Joie",
		delivery.KeyPackageDescription: "Shoes",
		delivery.KeyPackageWeight:      "2.5",
		delivery.KeyTransportMode:      "CAR",
		delivery.KeyDeliveryType:       "STANDARD",
		delivery.KeyPaymentMethod:      "MOBILE_MONEY",
	}
}

func TestGenerateShipmentSummary(t *testing.T) {
	svc, _ := newService(t)

	out, err := svc.GenerateShipmentSummary(context.Background(), shipmentAnswers())
	require.NoError(t, err)

	want := "SUMMARY:\n\nRecipient: John Doe\nPhone: +237611111111\nCity: Douala\nPackage: Shoes\n" +
		"Weight: 2.5 kg\nTransport: Car\nDelivery: Standard\nPayment: Mobile Money\nPrice: 3375.00 XAF"
	assert.Equal(t, want, out[delivery.KeyShipmentSummary])
	assert.Equal(t, "3375.00", out[delivery.KeyPrice])
}

func TestGenerateShipmentSummary_MissingAnswers(t *testing.T) {
	svc, _ := newService(t)
	answers := shipmentAnswers()
	delete(answers, delivery.KeyTransportMode)

	_, err := svc.GenerateShipmentSummary(context.Background(), answers)
	assert.Error(t, err)
}

func TestCreateShipment(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()

	out, err := svc.CreateShipment(ctx, shipmentAnswers())
	require.NoError(t, err)
	assert.Equal(t, "PKND-20260309-00001", out[delivery.KeyTrackingID])
	assert.Contains(t, out[delivery.KeyShipmentConfirmation], "Tracking ID: PKND-20260309-00001")
	assert.Contains(t, out[delivery.KeyShipmentConfirmation], "Estimated delivery: 3 day(s)")

	sh, err := repo.FindShipmentByTrackingID(ctx, "PKND-20260309-00001")
	require.NoError(t, err)
	assert.Equal(t, domain.ShipmentPending, sh.Status)
	assert.Equal(t, "+237600000000", sh.SenderPhone)
	assert.Equal(t, int64(337500), sh.PriceCents)
	assert.Equal(t, "2.50", sh.WeightKg)

	out, err = svc.CreateShipment(ctx, shipmentAnswers())
	require.NoError(t, err)
	assert.Equal(t, "PKND-20260309-00002", out[delivery.KeyTrackingID])
}

func TestCreateShipment_OverCapacity(t *testing.T) {
	svc, repo := newService(t)
	answers := shipmentAnswers()
	answers[delivery.KeyTransportMode] = "BICYCLE"
	answers[delivery.KeyPackageWeight] = "25"

	out, err := svc.CreateShipment(context.Background(), answers)
	require.NoError(t, err)
	assert.Contains(t, out[delivery.KeyShipmentConfirmation], "Shipment refused")
	assert.Empty(t, out[delivery.KeyTrackingID])

	list, err := repo.ListShipmentsBySender(context.Background(), "+237600000000")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestGetPackageTrackingInfo(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.CreateShipment(ctx, shipmentAnswers())
	require.NoError(t, err)

	out, err := svc.GetPackageTrackingInfo(ctx, map[string]string{delivery.KeyTrackingID: "pknd-20260309-00001"})
	require.NoError(t, err)
	assert.Equal(t, "Tracking: PKND-20260309-00001\nStatus: Pending\nDestination: 12 Rue de la Joie, Douala", out[delivery.KeyTrackingInfo])

	out, err = svc.GetPackageTrackingInfo(ctx, map[string]string{delivery.KeyTrackingID: "PKND-20260309-09999"})
	require.NoError(t, err)
	assert.Equal(t, "No shipment found for PKND-20260309-09999", out[delivery.KeyTrackingInfo])
}

func TestRegisterUser(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()
	answers := map[string]string{
		domain.KeyPhone:                  "+237 600 000 000",
		delivery.KeyRegistrationName:     "Ada Lovelace",
		delivery.KeyRegistrationEmail:    "0",
		delivery.KeyRegistrationPassword: "Secr3t!pass",
	}

	out, err := svc.RegisterUser(ctx, answers)
	require.NoError(t, err)
	assert.Equal(t, "Registration successful. Welcome, Ada Lovelace!", out[delivery.KeyRegistrationStatus])
	assert.Equal(t, "", out[delivery.KeyRegistrationPassword], "plain password is cleared")

	u, err := repo.FindUserByPhone(ctx, "+237600000000")
	require.NoError(t, err)
	assert.Empty(t, u.Email)
	assert.NotContains(t, u.PasswordHash, "Secr3t!pass")

	out, err = svc.RegisterUser(ctx, answers)
	require.NoError(t, err)
	assert.Equal(t, "Phone number already registered", out[delivery.KeyRegistrationStatus])

	got, err := svc.Authenticate(ctx, "+237600000000")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", got.Name)

	nobody, err := svc.Authenticate(ctx, "+237699999999")
	require.NoError(t, err)
	assert.Nil(t, nobody)
}

func TestRegisterUser_WeakPassword(t *testing.T) {
	svc, _ := newService(t)
	out, err := svc.RegisterUser(context.Background(), map[string]string{
		domain.KeyPhone:                  "+237600000000",
		delivery.KeyRegistrationName:     "Ada",
		delivery.KeyRegistrationPassword: "weak",
	})
	require.NoError(t, err)
	assert.Contains(t, out[delivery.KeyRegistrationStatus], "at least 8 characters")
}

type failingShipments struct{ *memory.Repository }

func (failingShipments) NextTrackingSequence(context.Context, time.Time) (int64, error) {
	return 0, errors.New("db down")
}

func TestRegister_HooksThroughRegistry(t *testing.T) {
	repo := memory.NewRepository()
	svc := delivery.NewService(repo, failingShipments{repo})
	reg := registry.NewRegistry()
	svc.Register(reg)

	assert.ElementsMatch(t, []string{
		"createShipment", "generateShipmentSummary", "getPackageTrackingInfo", "registerUser",
	}, reg.Names())
	for _, name := range reg.Names() {
		assert.True(t, reg.Has(name), name)
	}

	_, err := reg.Execute(context.Background(), delivery.HookCreateShipment, shipmentAnswers())
	assert.ErrorIs(t, err, domain.ErrBusinessHook)
}
