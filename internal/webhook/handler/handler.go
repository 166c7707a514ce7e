package handler

import (
	"encoding/json"
	"strconv"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/billsync/billsync/internal/config"
	"github.com/billsync/billsync/internal/domain/webhookevent"
	"github.com/billsync/billsync/internal/logger"
	"github.com/billsync/billsync/internal/pubsub"
	pubsubRouter "github.com/billsync/billsync/internal/pubsub/router"
	"github.com/billsync/billsync/internal/service"
	"github.com/billsync/billsync/internal/types"
	"github.com/billsync/billsync/internal/webhook/publisher"
)

// Handler consumes processing jobs from the queue and drives admitted events
// through the processing branch.
type Handler interface {
	RegisterHandler(router *pubsubRouter.Router)
}

type handler struct {
	pubSub       pubsub.PubSub
	config       *config.Webhook
	eventRepo    webhookevent.Repository
	orchestrator service.WebhookOrchestrator
	processor    service.EventProcessor
	publisher    publisher.JobPublisher
	logger       *logger.Logger
}

// NewHandler creates the queue consumer for processing jobs
func NewHandler(
	pubSub pubsub.PubSub,
	cfg *config.Configuration,
	eventRepo webhookevent.Repository,
	orchestrator service.WebhookOrchestrator,
	processor service.EventProcessor,
	jobPublisher publisher.JobPublisher,
	logger *logger.Logger,
) (Handler, error) {
	return &handler{
		pubSub:       pubSub,
		config:       &cfg.Webhook,
		eventRepo:    eventRepo,
		orchestrator: orchestrator,
		processor:    processor,
		publisher:    jobPublisher,
		logger:       logger,
	}, nil
}

func (h *handler) RegisterHandler(router *pubsubRouter.Router) {
	router.AddNoPublishHandler(
		"webhook_processing_handler",
		h.config.Topic,
		h.pubSub,
		h.processMessage,
	)
}

// processMessage processes a single queued job. The job carries only the event
// id; the payload is re-read from the event log so a replayed or redelivered
// job always sees the stored envelope.
func (h *handler) processMessage(msg *message.Message) error {
	ctx := msg.Context()

	var job types.ProcessingJob
	if err := json.Unmarshal(msg.Payload, &job); err != nil {
		h.logger.Errorw("failed to unmarshal processing job",
			"error", err,
			"message_uuid", msg.UUID,
		)
		return nil // malformed jobs are not retryable
	}

	event, err := h.eventRepo.GetByEventID(ctx, job.EventID)
	if err != nil {
		return h.handleLoadFailure(msg, job.EventID, err)
	}

	if event.Status.IsTerminal() {
		h.logger.Infow("skipping already settled event",
			"event_id", event.EventID,
			"status", event.Status,
		)
		return nil
	}

	event, err = h.eventRepo.MarkProcessing(ctx, job.EventID)
	if err != nil {
		return h.handleLoadFailure(msg, job.EventID, err)
	}

	if processErr := h.processor.ProcessEvent(ctx, event.ToEnvelope()); processErr != nil {
		return h.handleFailure(msg, event, processErr)
	}

	if err := h.orchestrator.Complete(ctx, event.ToEnvelope()); err != nil {
		return h.handleFailure(msg, event, err)
	}

	h.logger.Infow("webhook event processed",
		"event_id", event.EventID,
		"event_type", event.EventType,
		"delivery_attempts", event.DeliveryAttempts,
	)
	return nil
}

// loadAttemptsMetadataKey counts deliveries of a job whose event row could not
// be loaded. Those failures happen before the event log's delivery counter is
// in hand, so the count rides on the message itself.
const loadAttemptsMetadataKey = "load_attempts"

// handleLoadFailure bounds retries for jobs that fail before the event row is
// available. Without it a job pointing at a missing row would cycle between
// the retry middleware and the queue forever instead of draining to the dead
// letter topic.
func (h *handler) handleLoadFailure(msg *message.Message, eventID string, loadErr error) error {
	attempts := 1
	if raw := msg.Metadata.Get(loadAttemptsMetadataKey); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			attempts = parsed + 1
		}
	}
	msg.Metadata.Set(loadAttemptsMetadataKey, strconv.Itoa(attempts))

	if attempts >= h.config.MaxAttempts {
		if err := h.publisher.PublishDeadLetter(msg.Context(), eventID, loadErr.Error()); err != nil {
			return err
		}
		return nil
	}

	h.logger.Errorw("failed to load event for processing job, will retry",
		"error", loadErr,
		"event_id", eventID,
		"load_attempts", attempts,
		"max_attempts", h.config.MaxAttempts,
	)
	return loadErr
}

// handleFailure marks the event failed and either hands it back to the retry
// middleware or dead-letters it once the attempt ceiling is reached.
func (h *handler) handleFailure(msg *message.Message, event *webhookevent.WebhookEvent, processErr error) error {
	ctx := msg.Context()

	if err := h.orchestrator.Fail(ctx, event.EventID, processErr.Error()); err != nil {
		h.logger.Errorw("failed to mark event failed",
			"error", err,
			"event_id", event.EventID,
		)
	}

	if event.DeliveryAttempts >= h.config.MaxAttempts {
		if err := h.publisher.PublishDeadLetter(ctx, event.EventID, processErr.Error()); err != nil {
			// Returning the error keeps the job on the queue so the dead
			// letter publish gets another chance
			return err
		}
		return nil
	}

	h.logger.Warnw("webhook event processing failed, will retry",
		"error", processErr,
		"event_id", event.EventID,
		"delivery_attempts", event.DeliveryAttempts,
		"max_attempts", h.config.MaxAttempts,
	)
	return processErr
}
