package service

import (
	"github.com/flexprice/recharge-sync/internal/config"
	"github.com/flexprice/recharge-sync/internal/domain/rechargeevent"
	"github.com/flexprice/recharge-sync/internal/integration/recharge"
	"github.com/flexprice/recharge-sync/internal/logger"
	"github.com/flexprice/recharge-sync/internal/postgres"
	"go.uber.org/fx"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	fx.In

	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient

	// Repositories
	RechargeEventRepo rechargeevent.Repository

	// Clients
	RechargeClient recharge.RechargeClient
}
