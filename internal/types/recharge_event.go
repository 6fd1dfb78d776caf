package types

import (
	"github.com/samber/lo"

	ierr "github.com/flexprice/recharge-sync/internal/errors"
)

// RechargeEventType classifies the cause of a reconciled event
type RechargeEventType string

const (
	RechargeEventTypeCharge                    RechargeEventType = "charge"
	RechargeEventTypeSkip                      RechargeEventType = "skip"
	RechargeEventTypeChargeUpdate              RechargeEventType = "charge_update"
	RechargeEventTypeSubscriptionProductChange RechargeEventType = "subscription_product_change"
)

func (t RechargeEventType) String() string {
	return string(t)
}

func (t RechargeEventType) Validate() error {
	allowed := []RechargeEventType{
		RechargeEventTypeCharge,
		RechargeEventTypeSkip,
		RechargeEventTypeChargeUpdate,
		RechargeEventTypeSubscriptionProductChange,
	}
	if !lo.Contains(allowed, t) {
		return ierr.NewError("invalid recharge event type").
			WithHint("Event type must be one of charge, skip, charge_update or subscription_product_change").
			WithReportableDetails(map[string]interface{}{
				"event_type": t,
				"allowed":    allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// Recharge charge statuses the reconciler cares about
const (
	RechargeChargeStatusSkipped = "SKIPPED"
	RechargeChargeStatusQueued  = "QUEUED"
	RechargeChargeStatusSuccess = "SUCCESS"
	RechargeChargeStatusUnknown = "UNKNOWN"
)
