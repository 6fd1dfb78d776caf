package api

import (
	"net/http"

	"github.com/flexprice/recharge-sync/internal/api/cron"
	"github.com/flexprice/recharge-sync/internal/api/dto"
	v1 "github.com/flexprice/recharge-sync/internal/api/v1"
	"github.com/flexprice/recharge-sync/internal/config"
	"github.com/flexprice/recharge-sync/internal/logger"
	"github.com/flexprice/recharge-sync/internal/rest/middleware"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	RechargeWebhook *v1.RechargeWebhookHandler

	// Cron jobs
	CronChargeSync *cron.ChargeSyncCronHandler
}

func NewRouter(handlers Handlers, cfg *config.Configuration, logger *logger.Logger) *gin.Engine {
	gin.DefaultWriter = logger.GetGinLogger()

	router := gin.New()
	router.HandleMethodNotAllowed = true

	router.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware,
		middleware.SentryMiddleware(cfg),
		middleware.SentryRequestContextMiddleware,
		middleware.LoggingMiddleware(logger),
		middleware.ErrorHandler(),
	)

	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, dto.WebhookErrorResponse{Error: "Method not allowed"})
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	webhooks := router.Group("/webhooks")
	{
		webhooks.POST("/recharge", handlers.RechargeWebhook.HandleWebhook)
	}

	cronGroup := router.Group("/cron")
	{
		rechargeGroup := cronGroup.Group("/recharge")
		rechargeGroup.POST("/sync", handlers.CronChargeSync.SyncCharges)
	}

	return router
}
