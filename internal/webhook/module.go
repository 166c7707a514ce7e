package webhook

import (
	"github.com/billsync/billsync/internal/config"
	ierr "github.com/billsync/billsync/internal/errors"
	"github.com/billsync/billsync/internal/logger"
	"github.com/billsync/billsync/internal/pubsub"
	"github.com/billsync/billsync/internal/pubsub/kafka"
	"github.com/billsync/billsync/internal/pubsub/memory"
	"github.com/billsync/billsync/internal/types"
	"github.com/billsync/billsync/internal/webhook/handler"
	"github.com/billsync/billsync/internal/webhook/publisher"
	"go.uber.org/fx"
)

// Module provides all webhook pipeline dependencies
var Module = fx.Options(
	fx.Provide(
		// PubSub carrying processing jobs and dead letters
		providePubSub,
	),

	fx.Provide(
		// Publisher for processing jobs and dead letters
		publisher.NewPublisher,

		// Consumer driving admitted events through processing
		handler.NewHandler,

		// Main webhook service
		NewWebhookService,
	),
)

func providePubSub(
	cfg *config.Configuration,
	logger *logger.Logger,
) (pubsub.PubSub, error) {
	switch cfg.Webhook.PubSub {
	case types.MemoryPubSub:
		return memory.NewPubSub(cfg, logger), nil
	case types.KafkaPubSub:
		return kafka.NewPubSub(cfg, logger)
	default:
		return nil, ierr.NewErrorf("unsupported pubsub type: %s", cfg.Webhook.PubSub).
			WithHint("webhook.pubsub must be one of: memory, kafka").
			Mark(ierr.ErrValidation)
	}
}
