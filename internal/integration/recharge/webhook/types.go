package webhook

import (
	"encoding/json"
	"fmt"

	"github.com/flexprice/recharge-sync/internal/integration/recharge"
)

// RechargeWebhookTopic represents a Recharge webhook topic
type RechargeWebhookTopic string

const (
	TopicSubscriptionUpdated   RechargeWebhookTopic = "subscription/updated"
	TopicSubscriptionCreated   RechargeWebhookTopic = "subscription/created"
	TopicSubscriptionCancelled RechargeWebhookTopic = "subscription/cancelled"
	TopicChargeUpdated         RechargeWebhookTopic = "charge/updated"
)

// RechargeWebhookEvent is the body of a Recharge webhook delivery. Only the
// subscription topics carry an inline subscription object.
type RechargeWebhookEvent struct {
	Topic        RechargeWebhookTopic    `json:"topic"`
	Subscription *recharge.Subscription `json:"subscription"`
}

type webhookEnvelope struct {
	Topic        RechargeWebhookTopic `json:"topic"`
	Subscription json.RawMessage      `json:"subscription"`
}

// DecodeWebhookEvent reads the topic first and decodes the subscription only
// for topics that are processed, so unrelated deliveries never fail on fields
// this service does not use.
func DecodeWebhookEvent(body []byte) (*RechargeWebhookEvent, error) {
	var envelope webhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}

	event := &RechargeWebhookEvent{Topic: envelope.Topic}
	if envelope.Topic != TopicSubscriptionUpdated || len(envelope.Subscription) == 0 {
		return event, nil
	}

	if err := json.Unmarshal(envelope.Subscription, &event.Subscription); err != nil {
		return nil, fmt.Errorf("decode subscription: %w", err)
	}
	return event, nil
}

// Result is the outcome of processing one delivery
type Result struct {
	// Ignored is set when the topic is not handled
	Ignored        bool
	EventsRecorded int
}
