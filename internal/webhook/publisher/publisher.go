package publisher

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/billsync/billsync/internal/config"
	"github.com/billsync/billsync/internal/logger"
	"github.com/billsync/billsync/internal/pubsub"
	"github.com/billsync/billsync/internal/types"
)

// JobPublisher produces processing jobs and dead letters onto the queue
type JobPublisher interface {
	PublishProcessingJob(ctx context.Context, eventID string) error
	PublishDeadLetter(ctx context.Context, eventID string, reason string) error
	Close() error
}

type jobPublisher struct {
	pubSub pubsub.PubSub
	config *config.Webhook
	logger *logger.Logger
}

// NewPublisher creates a queue publisher for the webhook pipeline
func NewPublisher(
	pubSub pubsub.PubSub,
	cfg *config.Configuration,
	logger *logger.Logger,
) (JobPublisher, error) {
	return &jobPublisher{
		pubSub: pubSub,
		config: &cfg.Webhook,
		logger: logger,
	}, nil
}

func (p *jobPublisher) PublishProcessingJob(ctx context.Context, eventID string) error {
	job := types.ProcessingJob{EventID: eventID}
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("event_id", eventID)

	p.logger.Debugw("publishing processing job",
		"event_id", eventID,
		"topic", p.config.Topic,
	)

	if err := p.pubSub.Publish(ctx, p.config.Topic, msg); err != nil {
		p.logger.Errorw("failed to publish processing job",
			"error", err,
			"event_id", eventID,
			"topic", p.config.Topic,
		)
		return err
	}

	return nil
}

func (p *jobPublisher) PublishDeadLetter(ctx context.Context, eventID string, reason string) error {
	letter := types.DeadLetter{EventID: eventID, Reason: reason}
	payload, err := json.Marshal(letter)
	if err != nil {
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("event_id", eventID)

	if err := p.pubSub.Publish(ctx, p.config.DeadLetterTopic, msg); err != nil {
		p.logger.Errorw("failed to publish dead letter",
			"error", err,
			"event_id", eventID,
			"topic", p.config.DeadLetterTopic,
		)
		return err
	}

	p.logger.Warnw("event dead lettered",
		"event_id", eventID,
		"reason", reason,
		"topic", p.config.DeadLetterTopic,
	)

	return nil
}

// Close closes the publisher
func (p *jobPublisher) Close() error {
	return p.pubSub.Close()
}
