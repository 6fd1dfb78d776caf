package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/flexprice/recharge-sync/internal/api"
	"github.com/flexprice/recharge-sync/internal/api/cron"
	v1 "github.com/flexprice/recharge-sync/internal/api/v1"
	"github.com/flexprice/recharge-sync/internal/config"
	"github.com/flexprice/recharge-sync/internal/integration/recharge"
	"github.com/flexprice/recharge-sync/internal/integration/recharge/webhook"
	"github.com/flexprice/recharge-sync/internal/logger"
	"github.com/flexprice/recharge-sync/internal/postgres"
	pgrepo "github.com/flexprice/recharge-sync/internal/repository/postgres"
	"github.com/flexprice/recharge-sync/internal/service"
	"github.com/flexprice/recharge-sync/internal/types"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	opts := []fx.Option{
		fx.Supply(cfg),
		fx.Provide(
			logger.NewLogger,
			provideDB,
			postgres.NewClient,
			pgrepo.NewRechargeEventRepository,
			recharge.NewClient,
			service.NewChargeSyncService,
		),
		fx.WithLogger(func(log *logger.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Desugar()}
		}),
		fx.Invoke(logger.RegisterSync),
		fx.Invoke(initSentry),
	}

	switch cfg.Deployment.Mode {
	case types.ModeSync:
		opts = append(opts, fx.Invoke(runSync))
	default:
		if cfg.Logging.Level != types.LogLevelDebug {
			gin.SetMode(gin.ReleaseMode)
		}
		opts = append(opts,
			fx.Provide(
				webhook.NewHandler,
				v1.NewRechargeWebhookHandler,
				cron.NewChargeSyncCronHandler,
				provideHandlers,
				api.NewRouter,
			),
			fx.Invoke(startServer),
		)
	}

	fx.New(opts...).Run()
}

func provideDB(lc fx.Lifecycle, cfg *config.Configuration, log *logger.Logger) (*sql.DB, error) {
	db, err := postgres.NewDB(cfg, log)
	if err != nil {
		return nil, err
	}

	if cfg.Postgres.AutoMigrate {
		if err := postgres.Migrate(context.Background(), db, log); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Infow("closing postgres pool")
			return db.Close()
		},
	})
	return db, nil
}

func provideHandlers(
	rechargeWebhook *v1.RechargeWebhookHandler,
	cronChargeSync *cron.ChargeSyncCronHandler,
) api.Handlers {
	return api.Handlers{
		RechargeWebhook: rechargeWebhook,
		CronChargeSync:  cronChargeSync,
	}
}

func initSentry(lc fx.Lifecycle, cfg *config.Configuration, log *logger.Logger) error {
	if !cfg.Sentry.Enabled {
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.Sentry.DSN,
		Environment:      cfg.Sentry.Environment,
		EnableTracing:    true,
		TracesSampleRate: cfg.Sentry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialise sentry: %w", err)
	}
	log.Infow("sentry initialised", "environment", cfg.Sentry.Environment)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			sentry.Flush(2 * time.Second)
			return nil
		},
	})
	return nil
}

func startServer(lc fx.Lifecycle, cfg *config.Configuration, router *gin.Engine, log *logger.Logger) {
	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: router,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting API server", "address", cfg.Server.Address)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatalf("API server failed: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("shutting down API server")
			if cfg.Server.ShutdownTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
				defer cancel()
			}
			return srv.Shutdown(ctx)
		},
	})
}

// runSync performs one charge poll and stops the app. A store failure exits
// with status 1, an unavailable upstream does not.
func runSync(lc fx.Lifecycle, shutdowner fx.Shutdowner, svc service.ChargeSyncService, log *logger.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				exitCode := 0
				resp, err := svc.SyncCharges(context.Background())
				if err != nil {
					log.Errorw("charge sync failed", "error", err)
					sentry.CaptureException(err)
					exitCode = 1
				} else {
					log.Infow("charge sync finished",
						"charges_fetched", resp.ChargesFetched,
						"events_recorded", resp.EventsRecorded)
				}

				if err := shutdowner.Shutdown(fx.ExitCode(exitCode)); err != nil {
					log.Errorw("failed to stop after charge sync", "error", err)
				}
			}()
			return nil
		},
	})
}
