package service

import (
	"context"

	"github.com/billsync/billsync/internal/config"
	"github.com/billsync/billsync/internal/domain/billing"
	"github.com/billsync/billsync/internal/domain/cursor"
	"github.com/billsync/billsync/internal/domain/webhookevent"
	"github.com/billsync/billsync/internal/logger"
	"github.com/billsync/billsync/internal/postgres"
	"github.com/billsync/billsync/internal/types"
)

// ProviderClient is the subset of the provider API the processing step needs:
// fetching the current full subscription snapshot by external id.
type ProviderClient interface {
	GetSubscription(ctx context.Context, subscriptionID string) (*types.ProviderSubscriptionSnapshot, error)
}

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient

	// Repositories
	WebhookEventRepo webhookevent.Repository
	CursorRepo       cursor.Repository
	SubscriptionRepo billing.Repository

	// Provider API client
	ProviderClient ProviderClient
}

// NewServiceParams assembles the common service dependencies
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	db postgres.IClient,
	webhookEventRepo webhookevent.Repository,
	cursorRepo cursor.Repository,
	subscriptionRepo billing.Repository,
	providerClient ProviderClient,
) ServiceParams {
	return ServiceParams{
		Logger:           logger,
		Config:           config,
		DB:               db,
		WebhookEventRepo: webhookEventRepo,
		CursorRepo:       cursorRepo,
		SubscriptionRepo: subscriptionRepo,
		ProviderClient:   providerClient,
	}
}
