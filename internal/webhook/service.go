package webhook

import (
	"context"

	"github.com/billsync/billsync/internal/config"
	"github.com/billsync/billsync/internal/logger"
	pubsubRouter "github.com/billsync/billsync/internal/pubsub/router"
	"github.com/billsync/billsync/internal/webhook/handler"
	"github.com/billsync/billsync/internal/webhook/publisher"
)

// WebhookService owns the lifecycle of the webhook processing pipeline
type WebhookService struct {
	config    *config.Configuration
	publisher publisher.JobPublisher
	handler   handler.Handler
	router    *pubsubRouter.Router
	logger    *logger.Logger
}

// NewWebhookService creates a new webhook service
func NewWebhookService(
	cfg *config.Configuration,
	jobPublisher publisher.JobPublisher,
	h handler.Handler,
	router *pubsubRouter.Router,
	l *logger.Logger,
) *WebhookService {
	return &WebhookService{
		config:    cfg,
		publisher: jobPublisher,
		handler:   h,
		router:    router,
		logger:    l,
	}
}

// Start registers the consumer on the router. The router itself is run by the
// worker entrypoint so multiple consumers can share it.
func (s *WebhookService) Start(ctx context.Context) error {
	if !s.config.Webhook.Enabled {
		s.logger.Info("webhook processing disabled")
		return nil
	}

	s.handler.RegisterHandler(s.router)
	s.logger.Info("webhook processing handler registered")
	return nil
}

// Stop stops the webhook service
func (s *WebhookService) Stop() error {
	s.logger.Debug("stopping webhook service")

	if err := s.publisher.Close(); err != nil {
		s.logger.Errorw("failed to close webhook publisher", "error", err)
		return err
	}

	s.logger.Info("webhook service stopped")
	return nil
}
