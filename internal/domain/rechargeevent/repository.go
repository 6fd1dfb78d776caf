package rechargeevent

import "context"

// Repository defines the interface for recharge event persistence
type Repository interface {
	// Upsert writes events with replace-on-conflict semantics on
	// (charge_id, subscription_id). The batch is applied atomically; when the
	// same key appears more than once the later element wins. Returns the
	// number of events written.
	Upsert(ctx context.Context, events []*RechargeEvent) (int, error)

	// GetLatestBySubscription returns the most recent event for the
	// subscription ordered by updated_at, or nil when none exists.
	GetLatestBySubscription(ctx context.Context, subscriptionID string) (*RechargeEvent, error)
}
