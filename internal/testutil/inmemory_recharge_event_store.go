package testutil

import (
	"context"
	"sync"

	"github.com/flexprice/recharge-sync/internal/domain/rechargeevent"
	ierr "github.com/flexprice/recharge-sync/internal/errors"
)

// InMemoryRechargeEventStore implements rechargeevent.Repository
type InMemoryRechargeEventStore struct {
	*InMemoryStore[rechargeevent.ConflictKey, *rechargeevent.RechargeEvent]

	mu          sync.Mutex
	upsertErr   error
	getErr      error
	upsertCalls int
}

// NewInMemoryRechargeEventStore creates a new in-memory recharge event store
func NewInMemoryRechargeEventStore() *InMemoryRechargeEventStore {
	return &InMemoryRechargeEventStore{
		InMemoryStore: NewInMemoryStore[rechargeevent.ConflictKey, *rechargeevent.RechargeEvent](),
	}
}

// FailUpserts makes every following Upsert return err. Pass nil to reset.
func (s *InMemoryRechargeEventStore) FailUpserts(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertErr = err
}

// FailLookups makes every following GetLatestBySubscription return err. Pass nil to reset.
func (s *InMemoryRechargeEventStore) FailLookups(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getErr = err
}

// UpsertCalls returns how many times Upsert reached the store with a non-empty batch
func (s *InMemoryRechargeEventStore) UpsertCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertCalls
}

func (s *InMemoryRechargeEventStore) Upsert(ctx context.Context, events []*rechargeevent.RechargeEvent) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	s.upsertCalls++
	upsertErr := s.upsertErr
	s.mu.Unlock()

	if upsertErr != nil {
		return 0, ierr.WithError(upsertErr).
			WithHint("Failed to upsert recharge event").
			Mark(ierr.ErrDatabase)
	}

	copies := make([]*rechargeevent.RechargeEvent, 0, len(events))
	for _, event := range events {
		if err := event.Validate(); err != nil {
			return 0, err
		}
		copies = append(copies, event.Copy())
	}

	s.InMemoryStore.PutAll(ctx, keyOf, copies)
	return len(events), nil
}

func (s *InMemoryRechargeEventStore) GetLatestBySubscription(ctx context.Context, subscriptionID string) (*rechargeevent.RechargeEvent, error) {
	if subscriptionID == "" {
		return nil, ierr.NewError("subscription_id is required").
			WithHint("Subscription ID is required").
			Mark(ierr.ErrValidation)
	}

	s.mu.Lock()
	getErr := s.getErr
	s.mu.Unlock()

	if getErr != nil {
		return nil, ierr.WithError(getErr).
			WithHint("Failed to get latest recharge event").
			Mark(ierr.ErrDatabase)
	}

	events := s.InMemoryStore.List(ctx, func(e *rechargeevent.RechargeEvent) bool {
		return e.SubscriptionID == subscriptionID
	})

	var latest *rechargeevent.RechargeEvent
	for _, e := range events {
		if latest == nil || isLater(e, latest) {
			latest = e
		}
	}
	return latest.Copy(), nil
}

// ListBySubscription returns copies of every stored event for a subscription
func (s *InMemoryRechargeEventStore) ListBySubscription(ctx context.Context, subscriptionID string) []*rechargeevent.RechargeEvent {
	events := s.InMemoryStore.List(ctx, func(e *rechargeevent.RechargeEvent) bool {
		return e.SubscriptionID == subscriptionID
	})

	result := make([]*rechargeevent.RechargeEvent, 0, len(events))
	for _, e := range events {
		result = append(result, e.Copy())
	}
	return result
}

func keyOf(e *rechargeevent.RechargeEvent) rechargeevent.ConflictKey {
	return e.ConflictKey()
}

// isLater orders like the Postgres lookup: updated_at desc, then created_at desc
func isLater(a, b *rechargeevent.RechargeEvent) bool {
	if !a.UpdatedAt.Equal(b.UpdatedAt) {
		return a.UpdatedAt.After(b.UpdatedAt)
	}
	return a.CreatedAt.After(b.CreatedAt)
}
