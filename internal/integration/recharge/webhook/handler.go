package webhook

import (
	"context"
	"time"

	"github.com/flexprice/recharge-sync/internal/config"
	"github.com/flexprice/recharge-sync/internal/domain/rechargeevent"
	ierr "github.com/flexprice/recharge-sync/internal/errors"
	"github.com/flexprice/recharge-sync/internal/integration/recharge"
	"github.com/flexprice/recharge-sync/internal/logger"
	"github.com/flexprice/recharge-sync/internal/postgres"
	"github.com/flexprice/recharge-sync/internal/types"
)

// Handler handles Recharge webhook events
type Handler struct {
	repo   rechargeevent.Repository
	db     postgres.IClient
	config config.WebhookConfig
	logger *logger.Logger
	now    func() time.Time
}

// NewHandler creates a new Recharge webhook handler
func NewHandler(
	repo rechargeevent.Repository,
	db postgres.IClient,
	cfg *config.Configuration,
	logger *logger.Logger,
) *Handler {
	return &Handler{
		repo:   repo,
		db:     db,
		config: cfg.Webhook,
		logger: logger,
		now:    time.Now,
	}
}

// HandleWebhookEvent processes a verified Recharge webhook event.
// Topics other than subscription/updated are ignored without error.
func (h *Handler) HandleWebhookEvent(ctx context.Context, event *RechargeWebhookEvent) (*Result, error) {
	log := h.logger.WithContext(ctx)

	if event == nil || event.Topic != TopicSubscriptionUpdated {
		topic := RechargeWebhookTopic("")
		if event != nil {
			topic = event.Topic
		}
		log.Infow("ignoring recharge webhook", "topic", topic)
		return &Result{Ignored: true}, nil
	}

	sub := event.Subscription
	if sub == nil || sub.ID == "" {
		return nil, ierr.NewError("subscription missing from webhook payload").
			WithHint("Webhook payload must include a subscription").
			WithReportableDetails(map[string]interface{}{
				"topic": event.Topic,
			}).
			Mark(ierr.ErrValidation)
	}

	log.Infow("processing recharge subscription update",
		"subscription_id", sub.ID,
		"variant_id", sub.ShopifyVariantID,
		"status", sub.Status)

	if !h.config.SerializePerSubscription {
		return h.recordProductChange(ctx, sub)
	}

	var result *Result
	err := h.db.WithTx(ctx, func(ctx context.Context) error {
		lockKey := types.GenerateLockKey(types.LockScopeSubscription, map[string]interface{}{
			"subscription_id": sub.ID.String(),
		})
		if err := h.db.LockKey(ctx, types.LockRequest{Key: lockKey}); err != nil {
			return err
		}

		var err error
		result, err = h.recordProductChange(ctx, sub)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// recordProductChange reads the latest stored event for the subscription,
// diffs it against the payload and stores the change event if there is one
func (h *Handler) recordProductChange(ctx context.Context, sub *recharge.Subscription) (*Result, error) {
	log := h.logger.WithContext(ctx)

	previous, err := h.repo.GetLatestBySubscription(ctx, sub.ID.String())
	if err != nil {
		log.Errorw("failed to look up latest recharge event",
			"subscription_id", sub.ID,
			"error", err)
		return nil, err
	}

	change := recharge.DetectProductChange(sub, previous, h.now())
	if change == nil {
		log.Infow("no product change detected",
			"subscription_id", sub.ID,
			"has_previous", previous != nil)
		return &Result{}, nil
	}

	recorded, err := h.repo.Upsert(ctx, []*rechargeevent.RechargeEvent{change})
	if err != nil {
		log.Errorw("failed to record product change",
			"subscription_id", sub.ID,
			"error", err)
		return nil, err
	}

	log.Infow("recorded product change",
		"subscription_id", sub.ID,
		"previous_variant_id", change.PreviousVariantID,
		"current_variant_id", change.CurrentVariantID)

	return &Result{EventsRecorded: recorded}, nil
}
