package rechargeevent

import (
	"time"

	"github.com/samber/lo"

	ierr "github.com/flexprice/recharge-sync/internal/errors"
	"github.com/flexprice/recharge-sync/internal/types"
)

// RechargeEvent is the canonical, storage ready record of a charge or
// subscription change observed upstream. Rows are keyed by
// (ChargeID, SubscriptionID) and fully replaced on conflict.
type RechargeEvent struct {
	ID             string                  `json:"id"`
	ChargeID       *string                 `json:"charge_id"`
	SubscriptionID string                  `json:"subscription_id"`
	CustomerID     string                  `json:"customer_id"`
	EventType      types.RechargeEventType `json:"event_type"`
	Status         string                  `json:"status"`

	OriginalScheduledAt *time.Time `json:"original_scheduled_at"`
	CurrentScheduledAt  *time.Time `json:"current_scheduled_at"`

	PreviousProductID *string `json:"previous_product_id"`
	CurrentProductID  *string `json:"current_product_id"`
	PreviousVariantID *string `json:"previous_variant_id"`
	CurrentVariantID  *string `json:"current_variant_id"`
	PreviousQuantity  *int    `json:"previous_quantity"`
	CurrentQuantity   *int    `json:"current_quantity"`

	EffectiveDate *time.Time `json:"effective_date"`
	CreatedAt     time.Time  `json:"created_at"`
	// UpdatedAt is upstream's last-modified timestamp, not wall clock
	UpdatedAt time.Time `json:"updated_at"`
}

// ConflictKey identifies the row an event replaces
type ConflictKey struct {
	ChargeID       string
	HasChargeID    bool
	SubscriptionID string
}

// ConflictKey returns the (charge_id, subscription_id) key. A nil charge id
// is a distinct key value of its own, not a wildcard.
func (e *RechargeEvent) ConflictKey() ConflictKey {
	return ConflictKey{
		ChargeID:       lo.FromPtr(e.ChargeID),
		HasChargeID:    e.ChargeID != nil,
		SubscriptionID: e.SubscriptionID,
	}
}

// Validate checks the invariants every stored event must hold
func (e *RechargeEvent) Validate() error {
	if e.SubscriptionID == "" {
		return ierr.NewError("subscription_id is required").
			WithHint("Recharge event must reference a subscription").
			Mark(ierr.ErrValidation)
	}

	if err := e.EventType.Validate(); err != nil {
		return err
	}

	if e.EventType != types.RechargeEventTypeSubscriptionProductChange && lo.FromPtr(e.ChargeID) == "" {
		return ierr.NewError("charge event requires a charge_id").
			WithHint("Charge events must reference a charge").
			WithReportableDetails(map[string]interface{}{
				"subscription_id": e.SubscriptionID,
				"event_type":      e.EventType,
			}).
			Mark(ierr.ErrValidation)
	}

	if e.EventType == types.RechargeEventTypeSubscriptionProductChange && e.ChargeID != nil {
		return ierr.NewError("subscription product change cannot carry a charge_id").
			WithHint("Subscription product change events are not tied to a charge").
			WithReportableDetails(map[string]interface{}{
				"subscription_id": e.SubscriptionID,
				"charge_id":       *e.ChargeID,
			}).
			Mark(ierr.ErrValidation)
	}

	return nil
}

// Copy returns a deep copy of the event
func (e *RechargeEvent) Copy() *RechargeEvent {
	if e == nil {
		return nil
	}

	c := *e
	c.ChargeID = copyPtr(e.ChargeID)
	c.OriginalScheduledAt = copyPtr(e.OriginalScheduledAt)
	c.CurrentScheduledAt = copyPtr(e.CurrentScheduledAt)
	c.PreviousProductID = copyPtr(e.PreviousProductID)
	c.CurrentProductID = copyPtr(e.CurrentProductID)
	c.PreviousVariantID = copyPtr(e.PreviousVariantID)
	c.CurrentVariantID = copyPtr(e.CurrentVariantID)
	c.PreviousQuantity = copyPtr(e.PreviousQuantity)
	c.CurrentQuantity = copyPtr(e.CurrentQuantity)
	c.EffectiveDate = copyPtr(e.EffectiveDate)
	return &c
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
