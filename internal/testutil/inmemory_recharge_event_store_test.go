package testutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flexprice/recharge-sync/internal/domain/rechargeevent"
	ierr "github.com/flexprice/recharge-sync/internal/errors"
	"github.com/flexprice/recharge-sync/internal/types"
)

func chargeEvent(chargeID, subscriptionID, status string, updatedAt time.Time) *rechargeevent.RechargeEvent {
	return &rechargeevent.RechargeEvent{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_RECHARGE_EVENT),
		ChargeID:       lo.ToPtr(chargeID),
		SubscriptionID: subscriptionID,
		CustomerID:     "9",
		EventType:      types.RechargeEventTypeChargeUpdate,
		Status:         status,
		CreatedAt:      updatedAt.Add(-time.Hour),
		UpdatedAt:      updatedAt,
	}
}

func TestInMemoryRechargeEventStore_Upsert(t *testing.T) {
	ctx := context.Background()
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("same key twice keeps one row with later values", func(t *testing.T) {
		store := NewInMemoryRechargeEventStore()

		_, err := store.Upsert(ctx, []*rechargeevent.RechargeEvent{chargeEvent("1", "55", "QUEUED", t1)})
		require.NoError(t, err)
		_, err = store.Upsert(ctx, []*rechargeevent.RechargeEvent{chargeEvent("1", "55", "SUCCESS", t1.Add(time.Hour))})
		require.NoError(t, err)

		events := store.ListBySubscription(ctx, "55")
		require.Len(t, events, 1)
		assert.Equal(t, "SUCCESS", events[0].Status)
	})

	t.Run("later element in a batch wins", func(t *testing.T) {
		store := NewInMemoryRechargeEventStore()

		count, err := store.Upsert(ctx, []*rechargeevent.RechargeEvent{
			chargeEvent("1", "55", "QUEUED", t1),
			chargeEvent("1", "55", "SKIPPED", t1),
		})
		require.NoError(t, err)
		assert.Equal(t, 2, count)
		assert.Equal(t, 1, store.Count())

		latest, err := store.GetLatestBySubscription(ctx, "55")
		require.NoError(t, err)
		assert.Equal(t, "SKIPPED", latest.Status)
	})

	t.Run("nil charge id is its own key", func(t *testing.T) {
		store := NewInMemoryRechargeEventStore()
		change := chargeEvent("", "55", "ACTIVE", t1)
		change.ChargeID = nil
		change.EventType = types.RechargeEventTypeSubscriptionProductChange

		_, err := store.Upsert(ctx, []*rechargeevent.RechargeEvent{chargeEvent("1", "55", "QUEUED", t1), change})
		require.NoError(t, err)
		assert.Equal(t, 2, store.Count())
	})

	t.Run("invalid event rejects the whole batch", func(t *testing.T) {
		store := NewInMemoryRechargeEventStore()

		_, err := store.Upsert(ctx, []*rechargeevent.RechargeEvent{
			chargeEvent("1", "55", "QUEUED", t1),
			chargeEvent("2", "", "QUEUED", t1),
		})
		assert.True(t, ierr.IsValidation(err))
		assert.Equal(t, 0, store.Count())
	})

	t.Run("injected failure is a database error", func(t *testing.T) {
		store := NewInMemoryRechargeEventStore()
		store.FailUpserts(errors.New("disk full"))

		_, err := store.Upsert(ctx, []*rechargeevent.RechargeEvent{chargeEvent("1", "55", "QUEUED", t1)})
		assert.True(t, ierr.IsDatabase(err))
		assert.Equal(t, 1, store.UpsertCalls())
	})

	t.Run("empty batch does not reach the store", func(t *testing.T) {
		store := NewInMemoryRechargeEventStore()

		count, err := store.Upsert(ctx, nil)
		require.NoError(t, err)
		assert.Zero(t, count)
		assert.Zero(t, store.UpsertCalls())
	})
}

func TestInMemoryRechargeEventStore_GetLatestBySubscription(t *testing.T) {
	ctx := context.Background()
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewInMemoryRechargeEventStore()

	latest, err := store.GetLatestBySubscription(ctx, "55")
	require.NoError(t, err)
	assert.Nil(t, latest)

	_, err = store.Upsert(ctx, []*rechargeevent.RechargeEvent{
		chargeEvent("1", "55", "SUCCESS", t1),
		chargeEvent("2", "55", "QUEUED", t1.Add(48*time.Hour)),
		chargeEvent("3", "56", "QUEUED", t1.Add(72*time.Hour)),
	})
	require.NoError(t, err)

	latest, err = store.GetLatestBySubscription(ctx, "55")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "2", lo.FromPtr(latest.ChargeID))

	// returned values are copies
	latest.Status = "MUTATED"
	again, err := store.GetLatestBySubscription(ctx, "55")
	require.NoError(t, err)
	assert.Equal(t, "QUEUED", again.Status)

	store.FailLookups(errors.New("timeout"))
	_, err = store.GetLatestBySubscription(ctx, "55")
	assert.True(t, ierr.IsDatabase(err))
}

func TestMockPostgresClient(t *testing.T) {
	ctx := context.Background()
	client := NewMockPostgresClient()

	err := client.WithTx(ctx, func(ctx context.Context) error {
		return client.LockKey(ctx, types.LockRequest{Key: "a"})
	})
	require.NoError(t, err)
	assert.Equal(t, 1, client.TxCount())
	assert.Equal(t, []string{"a"}, client.LockKeys())

	client.Hold("b")
	err = client.LockKey(ctx, types.LockRequest{Key: "b"})
	assert.True(t, ierr.IsAlreadyExists(err))

	ok, err := client.TryLockKey(ctx, "b")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInMemoryRechargeEventStore_ChargeEventCannotTakeProductChangeKey(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryRechargeEventStore()
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	change := &rechargeevent.RechargeEvent{
		ID:                types.GenerateUUIDWithPrefix(types.UUID_PREFIX_RECHARGE_EVENT),
		SubscriptionID:    "77",
		CustomerID:        "9",
		EventType:         types.RechargeEventTypeSubscriptionProductChange,
		Status:            "ACTIVE",
		PreviousVariantID: lo.ToPtr("200"),
		CurrentVariantID:  lo.ToPtr("300"),
		CreatedAt:         at,
		UpdatedAt:         at,
	}
	_, err := store.Upsert(ctx, []*rechargeevent.RechargeEvent{change})
	require.NoError(t, err)

	orphan := chargeEvent("", "77", "QUEUED", at.Add(time.Hour))
	orphan.ChargeID = nil

	count, err := store.Upsert(ctx, []*rechargeevent.RechargeEvent{orphan})
	assert.True(t, ierr.IsValidation(err))
	assert.Zero(t, count)

	stored := store.ListBySubscription(ctx, "77")
	require.Len(t, stored, 1)
	assert.Equal(t, types.RechargeEventTypeSubscriptionProductChange, stored[0].EventType)
	assert.Equal(t, "200", lo.FromPtr(stored[0].PreviousVariantID))
}
