package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/billsync/billsync/internal/config"
	"github.com/billsync/billsync/internal/integration/stripe"
	stripewebhook "github.com/billsync/billsync/internal/integration/stripe/webhook"
	"github.com/billsync/billsync/internal/logger"
	"github.com/billsync/billsync/internal/postgres"
	"github.com/billsync/billsync/internal/repository"
	"github.com/billsync/billsync/internal/service"
	"github.com/billsync/billsync/internal/validator"
)

func init() {
	time.Local = time.UTC
}

// Operator tool: re-runs failed webhook events through the processing branch.
func main() {
	limit := flag.Int("limit", 100, "maximum number of failed events to replay")
	flag.Parse()

	validator.NewValidator()

	log, err := logger.NewLogger()
	if err != nil {
		os.Exit(1)
	}

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := postgres.NewDB(cfg, log)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer db.Close()

	client := stripe.NewClient(cfg, log)

	params := service.NewServiceParams(
		log,
		cfg,
		db,
		repository.NewWebhookEventRepository(db, log),
		repository.NewCursorRepository(db, log),
		repository.NewSubscriptionRepository(db, log),
		client,
	)

	syncService := service.NewSubscriptionSyncService(params)
	processor := stripewebhook.NewHandler(client, syncService, log)
	replayService := service.NewReplayService(params, processor)

	result, err := replayService.ReplayFailed(context.Background(), *limit)
	if err != nil {
		log.Errorw("replay run failed", "error", err)
		os.Exit(1)
	}

	log.Infow("replay finished",
		"scanned", result.Scanned,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
	)
}
