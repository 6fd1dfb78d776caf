package dto

// SyncChargesResponse is the result of one charge poll
type SyncChargesResponse struct {
	ChargesFetched int `json:"charges_fetched"`
	EventsRecorded int `json:"events_recorded"`
}

// RechargeWebhookResponse is returned for processed webhook deliveries
type RechargeWebhookResponse struct {
	Success        bool `json:"success"`
	EventsRecorded int  `json:"eventsRecorded"`
}

// RechargeWebhookIgnoredResponse is returned for unhandled webhook topics
type RechargeWebhookIgnoredResponse struct {
	Message        string `json:"message"`
	EventsRecorded int    `json:"eventsRecorded"`
}

// WebhookErrorResponse is the flat error body webhook senders receive
type WebhookErrorResponse struct {
	Error string `json:"error"`
}
