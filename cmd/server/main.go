package main

import (
	"context"
	"time"

	"github.com/billsync/billsync/internal/api"
	v1 "github.com/billsync/billsync/internal/api/v1"
	"github.com/billsync/billsync/internal/config"
	"github.com/billsync/billsync/internal/integration/stripe"
	stripewebhook "github.com/billsync/billsync/internal/integration/stripe/webhook"
	"github.com/billsync/billsync/internal/logger"
	"github.com/billsync/billsync/internal/postgres"
	pubsubRouter "github.com/billsync/billsync/internal/pubsub/router"
	"github.com/billsync/billsync/internal/repository"
	"github.com/billsync/billsync/internal/service"
	"github.com/billsync/billsync/internal/types"
	"github.com/billsync/billsync/internal/validator"
	"github.com/billsync/billsync/internal/webhook"
	"github.com/billsync/billsync/internal/webhook/publisher"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	validator.NewValidator()

	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		fx.Provide(
			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// Postgres
			postgres.NewDB,
			provideDBClient,

			// Repositories
			repository.NewWebhookEventRepository,
			repository.NewCursorRepository,
			repository.NewSubscriptionRepository,

			// Provider integration
			stripe.NewClient,
			provideProviderClient,

			// Message router
			pubsubRouter.NewRouter,
		),
	)

	// Webhook pipeline module
	opts = append(opts, webhook.Module)

	// Service layer
	opts = append(opts,
		fx.Provide(
			service.NewServiceParams,
			service.NewWebhookOrchestrator,
			service.NewSubscriptionSyncService,
			provideEventProcessor,
		),
	)

	// API
	opts = append(opts,
		fx.Provide(
			provideHandlers,
			provideRouter,
		),
		fx.Invoke(
			startServer,
		),
	)

	app := fx.New(opts...)
	app.Run()
}

func provideDBClient(db *postgres.DB) postgres.IClient {
	return db
}

func provideProviderClient(client *stripe.Client) service.ProviderClient {
	return client
}

func provideEventProcessor(
	providerClient service.ProviderClient,
	syncService service.SubscriptionSyncService,
	logger *logger.Logger,
) service.EventProcessor {
	return stripewebhook.NewHandler(providerClient, syncService, logger)
}

func provideHandlers(
	cfg *config.Configuration,
	logger *logger.Logger,
	client *stripe.Client,
	orchestrator service.WebhookOrchestrator,
	jobPublisher publisher.JobPublisher,
) api.Handlers {
	return api.Handlers{
		Health:  v1.NewHealthHandler(),
		Webhook: v1.NewWebhookHandler(cfg, client, orchestrator, jobPublisher, logger),
	}
}

func provideRouter(handlers api.Handlers) *gin.Engine {
	return api.NewRouter(handlers)
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	webhookService *webhook.WebhookService,
	router *pubsubRouter.Router,
	log *logger.Logger,
) {
	mode := cfg.Deployment.Mode
	if mode == "" {
		mode = types.ModeLocal
	}

	switch mode {
	case types.ModeLocal:
		startAPIServer(lc, r, cfg, log)
		startMessageRouter(lc, router, webhookService, log)
	case types.ModeAPI:
		startAPIServer(lc, r, cfg, log)
	case types.ModeWorker:
		startMessageRouter(lc, router, webhookService, log)
	default:
		log.Fatalf("Unknown deployment mode: %s", mode)
	}
}

func startAPIServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting API server...")
			go func() {
				if err := r.Run(cfg.Server.Address); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return nil
		},
	})
}

func startMessageRouter(
	lc fx.Lifecycle,
	router *pubsubRouter.Router,
	webhookService *webhook.WebhookService,
	log *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// Register handlers before starting the router
			if err := webhookService.Start(ctx); err != nil {
				return err
			}
			log.Info("starting message router")
			go func() {
				if err := router.Run(context.Background()); err != nil {
					log.Errorw("message router failed", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("stopping message router")
			if err := webhookService.Stop(); err != nil {
				log.Errorw("failed to stop webhook service", "error", err)
			}
			return router.Close()
		},
	})
}
