package ports

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/ussdgw/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore
// implementation adheres to the defined interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405.000000000")
	now := time.Now().UTC().Truncate(time.Millisecond)

	t.Run("Save and Load", func(t *testing.T) {
		s := domain.NewSession(sessionID, "+237600000000", now)
		s.CurrentStateID = "MAIN_MENU"
		s.Answers["recipientName"] = "John Doe"
		s.Metadata["userName"] = "Ada"
		s.Retries = 2

		require.NoError(t, store.Save(ctx, s), "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, "MAIN_MENU", loaded.CurrentStateID)
		assert.Equal(t, "+237600000000", loaded.Phone)
		assert.Equal(t, "John Doe", loaded.Answers["recipientName"])
		assert.Equal(t, "Ada", loaded.Metadata["userName"])
		assert.Equal(t, 2, loaded.Retries)
		assert.True(t, now.Equal(loaded.LastActivity), "timestamps survive a round trip")
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		s := domain.NewSession(sessionID, "+237600000000", now)
		s.Answers["a"] = "1"
		require.NoError(t, store.Save(ctx, s))

		s2 := domain.NewSession(sessionID, "+237600000000", now)
		s2.Answers["b"] = "2"
		require.NoError(t, store.Save(ctx, s2))

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.NotContains(t, loaded.Answers, "a", "save is a full upsert, not a merge")
		assert.Equal(t, "2", loaded.Answers["b"])
	})

	t.Run("Loaded Copy Is Isolated", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, domain.NewSession(sessionID, "", now)))
		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		loaded.Answers["mutated"] = "yes"

		again, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.NotContains(t, again.Answers, "mutated")
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, domain.NewSession(sessionID, "", now)))

		require.NoError(t, store.Delete(ctx, sessionID), "Delete should not return error")

		_, err := store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")

		assert.NoError(t, store.Delete(ctx, sessionID), "Delete is idempotent")
		assert.NoError(t, store.Delete(ctx, "never-created-"+sessionID))
	})

	t.Run("Ids That Look Like Internal Keys", func(t *testing.T) {
		ids := []string{"index", "lock:" + sessionID, "s:" + sessionID, sessionID + "-after"}
		defer func() {
			for _, id := range ids {
				_ = store.Delete(ctx, id)
			}
		}()
		for _, id := range ids {
			require.NoError(t, store.Save(ctx, domain.NewSession(id, "", now)), "save %q", id)
		}

		listed, err := store.List(ctx)
		require.NoError(t, err)
		for _, id := range ids {
			assert.Contains(t, listed, id)
			loaded, err := store.Load(ctx, id)
			require.NoError(t, err, "load %q", id)
			assert.Equal(t, id, loaded.ID)
		}
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, domain.NewSession(id1, "", now))
		_ = store.Save(ctx, domain.NewSession(id2, "", now))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}

// RunUserRepositoryContract verifies a UserRepository implementation.
func RunUserRepositoryContract(t *testing.T, repo UserRepository) {
	ctx := context.Background()
	phone := fmt.Sprintf("+2376%08d", time.Now().UnixNano()%100000000)

	t.Run("Create and Find", func(t *testing.T) {
		u := &domain.User{ID: "u-" + phone, Name: "Ada Lovelace", Phone: phone, Email: "ada@example.com", PasswordHash: "salt$hash", CreatedAt: time.Now().UTC()}
		require.NoError(t, repo.CreateUser(ctx, u))

		got, err := repo.FindUserByPhone(ctx, phone)
		require.NoError(t, err)
		assert.Equal(t, "Ada Lovelace", got.Name)
		assert.Equal(t, "ada@example.com", got.Email)
		assert.Equal(t, "salt$hash", got.PasswordHash)
	})

	t.Run("Duplicate Phone", func(t *testing.T) {
		err := repo.CreateUser(ctx, &domain.User{ID: "dup-" + phone, Name: "Other", Phone: phone, CreatedAt: time.Now().UTC()})
		assert.ErrorIs(t, err, domain.ErrUserExists)
	})

	t.Run("Unknown Phone", func(t *testing.T) {
		_, err := repo.FindUserByPhone(ctx, "+000")
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})
}

// RunShipmentRepositoryContract verifies a ShipmentRepository implementation.
func RunShipmentRepositoryContract(t *testing.T, repo ShipmentRepository) {
	ctx := context.Background()
	day := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	sender := fmt.Sprintf("+2376%08d", time.Now().UnixNano()%100000000)

	t.Run("Sequence Increases Per Day", func(t *testing.T) {
		first, err := repo.NextTrackingSequence(ctx, day)
		require.NoError(t, err)
		second, err := repo.NextTrackingSequence(ctx, day)
		require.NoError(t, err)
		assert.Greater(t, first, int64(0))
		assert.Equal(t, first+1, second)
	})

	var trackingID string
	t.Run("Create and Find", func(t *testing.T) {
		seq, err := repo.NextTrackingSequence(ctx, day)
		require.NoError(t, err)
		trackingID = domain.TrackingID(day, seq)

		s := &domain.Shipment{
			TrackingID:     trackingID,
			SenderPhone:    sender,
			RecipientName:  "John Doe",
			RecipientPhone: "+237611111111",
			RecipientCity:  "Douala",
			WeightKg:       "2.50",
			TransportMode:  "CAR",
			DeliveryType:   "STANDARD",
			PaymentMethod:  "CASH",
			PriceCents:     337500,
			Status:         domain.ShipmentPending,
			CreatedAt:      day,
		}
		require.NoError(t, repo.CreateShipment(ctx, s))
		assert.NotZero(t, s.ID)

		got, err := repo.FindShipmentByTrackingID(ctx, trackingID)
		require.NoError(t, err)
		assert.Equal(t, "John Doe", got.RecipientName)
		assert.Equal(t, int64(337500), got.PriceCents)
		assert.Equal(t, domain.ShipmentPending, got.Status)
	})

	t.Run("Status Moves Forward Only", func(t *testing.T) {
		require.NoError(t, repo.UpdateShipmentStatus(ctx, trackingID, domain.ShipmentInTransit))
		err := repo.UpdateShipmentStatus(ctx, trackingID, domain.ShipmentConfirmed)
		assert.ErrorIs(t, err, domain.ErrInvalidStatusTransition)

		got, err := repo.FindShipmentByTrackingID(ctx, trackingID)
		require.NoError(t, err)
		assert.Equal(t, domain.ShipmentInTransit, got.Status)
	})

	t.Run("List By Sender", func(t *testing.T) {
		list, err := repo.ListShipmentsBySender(ctx, sender)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, trackingID, list[0].TrackingID)
	})

	t.Run("Unknown Tracking ID", func(t *testing.T) {
		_, err := repo.FindShipmentByTrackingID(ctx, "PKND-00000000-00000")
		assert.ErrorIs(t, err, domain.ErrShipmentNotFound)
		err = repo.UpdateShipmentStatus(ctx, "PKND-00000000-00000", domain.ShipmentConfirmed)
		assert.ErrorIs(t, err, domain.ErrShipmentNotFound)
	})
}
