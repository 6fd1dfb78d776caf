package recharge

import (
	"iter"
	"slices"

	"github.com/samber/lo"

	"github.com/flexprice/recharge-sync/internal/domain/rechargeevent"
	"github.com/flexprice/recharge-sync/internal/types"
)

// ChargeEventType classifies a charge by its upstream status. Every status
// other than SKIPPED is reported as charge_update.
func ChargeEventType(status string) types.RechargeEventType {
	if status == types.RechargeChargeStatusSkipped {
		return types.RechargeEventTypeSkip
	}
	return types.RechargeEventTypeChargeUpdate
}

// ChargeEvents yields one event per line item of the charge that references a
// subscription. A charge whose created_at equals its updated_at has never been
// modified and yields nothing. A charge without an id yields nothing either:
// the null charge key belongs to subscription product changes.
func ChargeEvents(charge *Charge) iter.Seq[*rechargeevent.RechargeEvent] {
	return func(yield func(*rechargeevent.RechargeEvent) bool) {
		if charge == nil || charge.ID == "" || charge.CreatedAt.Equal(charge.UpdatedAt.Time) {
			return
		}

		eventType := ChargeEventType(charge.Status)
		for _, item := range charge.LineItems {
			if item.SubscriptionID == "" {
				continue
			}
			if !yield(newChargeEvent(charge, item, eventType)) {
				return
			}
		}
	}
}

// CollectChargeEvents flattens the events of a batch of charges, preserving
// upstream order.
func CollectChargeEvents(charges []*Charge) []*rechargeevent.RechargeEvent {
	var events []*rechargeevent.RechargeEvent
	for _, charge := range charges {
		events = slices.AppendSeq(events, ChargeEvents(charge))
	}
	return events
}

func newChargeEvent(charge *Charge, item LineItem, eventType types.RechargeEventType) *rechargeevent.RechargeEvent {
	status := charge.Status
	if status == "" {
		status = types.RechargeChargeStatusUnknown
	}

	createdAt := charge.CreatedAt.Time
	if createdAt.IsZero() {
		createdAt = charge.UpdatedAt.Time
	}

	return &rechargeevent.RechargeEvent{
		ID:                  types.GenerateUUIDWithPrefix(types.UUID_PREFIX_RECHARGE_EVENT),
		ChargeID:            charge.ID.Ptr(),
		SubscriptionID:      item.SubscriptionID.String(),
		CustomerID:          charge.CustomerID.String(),
		EventType:           eventType,
		Status:              status,
		OriginalScheduledAt: charge.ScheduledAt.Ptr(),
		CurrentScheduledAt:  charge.ScheduledAt.Ptr(),
		CurrentProductID:    item.ShopifyProductID.Ptr(),
		CurrentVariantID:    item.ShopifyVariantID.Ptr(),
		CurrentQuantity:     quantityPtr(item.Quantity),
		EffectiveDate:       charge.UpdatedAt.Ptr(),
		CreatedAt:           createdAt.UTC(),
		UpdatedAt:           lo.FromPtr(charge.UpdatedAt.Ptr()),
	}
}
