package cron

import (
	"net/http"
	"time"

	"github.com/flexprice/recharge-sync/internal/logger"
	"github.com/flexprice/recharge-sync/internal/service"
	"github.com/gin-gonic/gin"
)

// ChargeSyncCronHandler handles the scheduled Recharge charge poll
type ChargeSyncCronHandler struct {
	chargeSyncService service.ChargeSyncService
	logger            *logger.Logger
}

// NewChargeSyncCronHandler creates a new charge sync cron handler
func NewChargeSyncCronHandler(
	chargeSyncService service.ChargeSyncService,
	logger *logger.Logger,
) *ChargeSyncCronHandler {
	return &ChargeSyncCronHandler{
		chargeSyncService: chargeSyncService,
		logger:            logger,
	}
}

// SyncCharges pulls recent charges from Recharge into the event store
func (h *ChargeSyncCronHandler) SyncCharges(c *gin.Context) {
	h.logger.Infow("starting recharge charge sync cron job", "time", time.Now().UTC().Format(time.RFC3339))

	resp, err := h.chargeSyncService.SyncCharges(c.Request.Context())
	if err != nil {
		h.logger.Errorw("failed to sync recharge charges", "error", err)
		c.Error(err)
		return
	}

	h.logger.Infow("completed recharge charge sync cron job",
		"charges_fetched", resp.ChargesFetched,
		"events_recorded", resp.EventsRecorded)
	c.JSON(http.StatusOK, resp)
}
