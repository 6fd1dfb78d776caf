package middleware

import (
	"time"

	"github.com/flexprice/recharge-sync/internal/config"
	"github.com/flexprice/recharge-sync/internal/types"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
)

// SentryMiddleware returns a middleware that captures errors and performance data
func SentryMiddleware(cfg *config.Configuration) gin.HandlerFunc {
	if !cfg.Sentry.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return sentrygin.New(sentrygin.Options{
		Repanic:         true,
		WaitForDelivery: false,
		Timeout:         2 * time.Second,
	})
}

// SentryRequestContextMiddleware tags the Sentry scope with the request id and,
// for webhook deliveries, the Recharge topic
func SentryRequestContextMiddleware(c *gin.Context) {
	hub := sentrygin.GetHubFromContext(c)
	if hub == nil {
		c.Next()
		return
	}
	if requestID := types.GetRequestID(c.Request.Context()); requestID != "" {
		hub.Scope().SetTag("request_id", requestID)
	}
	if topic := c.GetHeader(types.HeaderRechargeTopic); topic != "" {
		hub.Scope().SetTag("recharge_topic", topic)
	}
	c.Next()
}
