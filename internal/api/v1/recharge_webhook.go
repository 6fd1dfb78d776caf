package v1

import (
	"io"
	"net/http"

	"github.com/flexprice/recharge-sync/internal/api/dto"
	ierr "github.com/flexprice/recharge-sync/internal/errors"
	"github.com/flexprice/recharge-sync/internal/integration/recharge"
	"github.com/flexprice/recharge-sync/internal/integration/recharge/webhook"
	"github.com/flexprice/recharge-sync/internal/logger"
	"github.com/flexprice/recharge-sync/internal/types"
	"github.com/gin-gonic/gin"
)

// maxWebhookBodyBytes bounds the size of a webhook delivery
const maxWebhookBodyBytes = 1 << 20

// RechargeWebhookHandler receives Recharge webhook deliveries. Responses use
// the flat bodies Recharge expects instead of the API error envelope.
type RechargeWebhookHandler struct {
	client  recharge.RechargeClient
	handler *webhook.Handler
	logger  *logger.Logger
}

// NewRechargeWebhookHandler creates a new Recharge webhook handler
func NewRechargeWebhookHandler(
	client recharge.RechargeClient,
	handler *webhook.Handler,
	logger *logger.Logger,
) *RechargeWebhookHandler {
	return &RechargeWebhookHandler{
		client:  client,
		handler: handler,
		logger:  logger,
	}
}

// HandleWebhook verifies, decodes and processes one delivery
func (h *RechargeWebhookHandler) HandleWebhook(c *gin.Context) {
	ctx := c.Request.Context()
	log := h.logger.WithContext(ctx)

	signature := c.GetHeader(types.HeaderRechargeHmacSHA256)
	if err := h.client.VerifyWebhookSignature(ctx, signature); err != nil {
		c.JSON(http.StatusUnauthorized, dto.WebhookErrorResponse{Error: "Unauthorized"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		log.Errorw("failed to read webhook body", "error", err)
		c.JSON(http.StatusBadRequest, dto.WebhookErrorResponse{Error: "Invalid request body"})
		return
	}

	event, err := webhook.DecodeWebhookEvent(body)
	if err != nil {
		log.Warnw("failed to parse webhook payload",
			"error", err,
			"topic_header", c.GetHeader(types.HeaderRechargeTopic))
		c.JSON(http.StatusBadRequest, dto.WebhookErrorResponse{Error: "Invalid JSON"})
		return
	}

	result, err := h.handler.HandleWebhookEvent(ctx, event)
	if err != nil {
		if ierr.IsValidation(err) {
			c.JSON(http.StatusBadRequest, dto.WebhookErrorResponse{Error: "Missing subscription"})
			return
		}
		log.Errorw("failed to process recharge webhook",
			"topic", event.Topic,
			"error", err)
		c.JSON(http.StatusInternalServerError, dto.WebhookErrorResponse{Error: "Database error"})
		return
	}

	if result.Ignored {
		c.JSON(http.StatusOK, dto.RechargeWebhookIgnoredResponse{
			Message:        "Webhook ignored",
			EventsRecorded: 0,
		})
		return
	}

	c.JSON(http.StatusOK, dto.RechargeWebhookResponse{
		Success:        true,
		EventsRecorded: result.EventsRecorded,
	})
}
