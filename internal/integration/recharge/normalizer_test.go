package recharge

import (
	"encoding/json"
	"slices"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flexprice/recharge-sync/internal/types"
)

func decodeCharge(t *testing.T, raw string) *Charge {
	t.Helper()
	var charge Charge
	require.NoError(t, json.Unmarshal([]byte(raw), &charge))
	return &charge
}

func TestChargeEvents_SkippedCharge(t *testing.T) {
	charge := decodeCharge(t, `{
		"id": 1,
		"customer_id": 9,
		"status": "SKIPPED",
		"scheduled_at": "2024-02-01",
		"created_at": "2024-01-01",
		"updated_at": "2024-01-02",
		"line_items": [{"subscription_id": 55}]
	}`)

	events := slices.Collect(ChargeEvents(charge))
	require.Len(t, events, 1)

	event := events[0]
	assert.Equal(t, types.RechargeEventTypeSkip, event.EventType)
	assert.Equal(t, "1", lo.FromPtr(event.ChargeID))
	assert.Equal(t, "55", event.SubscriptionID)
	assert.Equal(t, "9", event.CustomerID)
	assert.Equal(t, "SKIPPED", event.Status)
	require.NotNil(t, event.OriginalScheduledAt)
	assert.Equal(t, event.OriginalScheduledAt, event.CurrentScheduledAt)
	assert.Equal(t, "2024-02-01", event.CurrentScheduledAt.Format("2006-01-02"))
	assert.Equal(t, "2024-01-01", event.CreatedAt.Format("2006-01-02"))
	assert.Equal(t, "2024-01-02", event.UpdatedAt.Format("2006-01-02"))
	assert.Nil(t, event.PreviousVariantID)
	assert.Nil(t, event.PreviousProductID)
	assert.Nil(t, event.PreviousQuantity)
	assert.NoError(t, event.Validate())
}

func TestChargeEvents_UnmodifiedChargeYieldsNothing(t *testing.T) {
	charge := decodeCharge(t, `{
		"id": 2,
		"customer_id": 9,
		"status": "QUEUED",
		"created_at": "2024-01-01T10:00:00",
		"updated_at": "2024-01-01T10:00:00",
		"line_items": [{"subscription_id": 55}, {"subscription_id": 56}]
	}`)

	assert.Empty(t, slices.Collect(ChargeEvents(charge)))
	assert.Empty(t, slices.Collect(ChargeEvents(nil)))
}

func TestChargeEvents_LineItems(t *testing.T) {
	charge := decodeCharge(t, `{
		"id": "3",
		"customer_id": "9",
		"status": "QUEUED",
		"created_at": "2024-01-01T10:00:00",
		"updated_at": "2024-01-03T10:00:00",
		"line_items": [
			{"subscription_id": 55, "shopify_variant_id": 200, "shopify_product_id": 20, "quantity": 2},
			{"subscription_id": null},
			{},
			{"subscription_id": "56"}
		]
	}`)

	events := slices.Collect(ChargeEvents(charge))
	require.Len(t, events, 2)

	assert.Equal(t, "55", events[0].SubscriptionID)
	assert.Equal(t, types.RechargeEventTypeChargeUpdate, events[0].EventType)
	assert.Equal(t, "200", lo.FromPtr(events[0].CurrentVariantID))
	assert.Equal(t, "20", lo.FromPtr(events[0].CurrentProductID))
	assert.Equal(t, 2, lo.FromPtr(events[0].CurrentQuantity))
	assert.Equal(t, events[0].UpdatedAt, lo.FromPtr(events[0].EffectiveDate))

	assert.Equal(t, "56", events[1].SubscriptionID)
	assert.Nil(t, events[1].CurrentVariantID)
	assert.Nil(t, events[1].CurrentProductID)
	assert.Nil(t, events[1].CurrentQuantity)
	assert.Nil(t, events[1].OriginalScheduledAt)

	assert.NotEqual(t, events[0].ID, events[1].ID)
}

func TestChargeEvents_MissingFields(t *testing.T) {
	charge := decodeCharge(t, `{
		"id": 4,
		"created_at": "2024-01-01",
		"updated_at": "2024-01-02",
		"line_items": [{"subscription_id": 55}]
	}`)

	events := slices.Collect(ChargeEvents(charge))
	require.Len(t, events, 1)
	assert.Equal(t, types.RechargeChargeStatusUnknown, events[0].Status)
	assert.Equal(t, types.RechargeEventTypeChargeUpdate, events[0].EventType)
	assert.Equal(t, "", events[0].CustomerID)
}

func TestChargeEvents_StopsWhenConsumerStops(t *testing.T) {
	charge := decodeCharge(t, `{
		"id": 5,
		"created_at": "2024-01-01",
		"updated_at": "2024-01-02",
		"line_items": [{"subscription_id": 1}, {"subscription_id": 2}, {"subscription_id": 3}]
	}`)

	var seen []string
	for event := range ChargeEvents(charge) {
		seen = append(seen, event.SubscriptionID)
		if len(seen) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"1", "2"}, seen)
}

func TestChargeEventType(t *testing.T) {
	assert.Equal(t, types.RechargeEventTypeSkip, ChargeEventType("SKIPPED"))
	assert.Equal(t, types.RechargeEventTypeChargeUpdate, ChargeEventType("QUEUED"))
	assert.Equal(t, types.RechargeEventTypeChargeUpdate, ChargeEventType("SUCCESS"))
	assert.Equal(t, types.RechargeEventTypeChargeUpdate, ChargeEventType(""))
}

func TestCollectChargeEvents(t *testing.T) {
	charges := []*Charge{
		decodeCharge(t, `{"id":1,"created_at":"2024-01-01","updated_at":"2024-01-02","line_items":[{"subscription_id":55}]}`),
		decodeCharge(t, `{"id":2,"created_at":"2024-01-01","updated_at":"2024-01-01","line_items":[{"subscription_id":56}]}`),
		decodeCharge(t, `{"id":3,"created_at":"2024-01-01","updated_at":"2024-01-05","line_items":[{"subscription_id":57},{"subscription_id":58}]}`),
	}

	events := CollectChargeEvents(charges)
	require.Len(t, events, 3)
	assert.Equal(t, []string{"55", "57", "58"}, []string{
		events[0].SubscriptionID, events[1].SubscriptionID, events[2].SubscriptionID,
	})
	assert.Empty(t, CollectChargeEvents(nil))
}

func TestChargeEvents_ChargeWithoutID(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{
			name: "absent id",
			raw:  `{"customer_id":9,"status":"QUEUED","created_at":"2024-01-01","updated_at":"2024-01-02","line_items":[{"subscription_id":77}]}`,
		},
		{
			name: "null id",
			raw:  `{"id":null,"customer_id":9,"status":"QUEUED","created_at":"2024-01-01","updated_at":"2024-01-02","line_items":[{"subscription_id":77}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			charge := decodeCharge(t, tt.raw)
			assert.Empty(t, slices.Collect(ChargeEvents(charge)))
			assert.Empty(t, CollectChargeEvents([]*Charge{charge}))
		})
	}
}
