package recharge

import (
	"time"

	"github.com/samber/lo"

	"github.com/flexprice/recharge-sync/internal/domain/rechargeevent"
	"github.com/flexprice/recharge-sync/internal/types"
)

// DetectProductChange diffs a subscription payload against the latest stored
// event for that subscription and returns a subscription_product_change
// event, or nil when there is nothing to record.
//
// No event is produced when the payload has no variant, when no previous
// variant is known (first observation is a baseline, not a change) or when
// the variant is unchanged.
func DetectProductChange(sub *Subscription, previous *rechargeevent.RechargeEvent, now time.Time) *rechargeevent.RechargeEvent {
	if sub == nil || sub.ShopifyVariantID == "" {
		return nil
	}

	var previousVariantID, previousProductID *string
	if previous != nil {
		previousVariantID = lo.EmptyableToPtr(lo.FromPtr(previous.CurrentVariantID))
		previousProductID = lo.EmptyableToPtr(lo.FromPtr(previous.CurrentProductID))
	}

	currentVariantID := sub.ShopifyVariantID.String()
	if previousVariantID == nil || *previousVariantID == currentVariantID {
		return nil
	}

	return &rechargeevent.RechargeEvent{
		ID:                  types.GenerateUUIDWithPrefix(types.UUID_PREFIX_RECHARGE_EVENT),
		ChargeID:            nil,
		SubscriptionID:      sub.ID.String(),
		CustomerID:          sub.CustomerID.String(),
		EventType:           types.RechargeEventTypeSubscriptionProductChange,
		Status:              sub.Status,
		OriginalScheduledAt: sub.NextChargeScheduledAt.Ptr(),
		CurrentScheduledAt:  sub.NextChargeScheduledAt.Ptr(),
		PreviousProductID:   previousProductID,
		CurrentProductID:    sub.ShopifyProductID.Ptr(),
		PreviousVariantID:   previousVariantID,
		CurrentVariantID:    lo.ToPtr(currentVariantID),
		PreviousQuantity:    nil,
		CurrentQuantity:     quantityPtr(sub.Quantity),
		EffectiveDate:       sub.UpdatedAt.Ptr(),
		CreatedAt:           now.UTC(),
		UpdatedAt:           lo.FromPtr(sub.UpdatedAt.Ptr()),
	}
}
