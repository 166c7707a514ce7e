package v1

import (
	"io"
	"net/http"

	"github.com/billsync/billsync/internal/config"
	ierr "github.com/billsync/billsync/internal/errors"
	"github.com/billsync/billsync/internal/integration/stripe"
	"github.com/billsync/billsync/internal/logger"
	"github.com/billsync/billsync/internal/service"
	"github.com/billsync/billsync/internal/types"
	"github.com/billsync/billsync/internal/webhook/publisher"
	"github.com/gin-gonic/gin"
)

// WebhookHandler handles provider webhook ingress
type WebhookHandler struct {
	config       *config.Configuration
	client       *stripe.Client
	orchestrator service.WebhookOrchestrator
	publisher    publisher.JobPublisher
	logger       *logger.Logger
}

// NewWebhookHandler creates a new webhook ingress handler
func NewWebhookHandler(
	cfg *config.Configuration,
	client *stripe.Client,
	orchestrator service.WebhookOrchestrator,
	jobPublisher publisher.JobPublisher,
	logger *logger.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		config:       cfg,
		client:       client,
		orchestrator: orchestrator,
		publisher:    jobPublisher,
		logger:       logger,
	}
}

// HandleStripeWebhook verifies, registers and enqueues one incoming Stripe
// event. The provider retries on non-2xx, so every admission outcome that must
// not be redelivered (duplicate, stale) is acknowledged with 200.
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	ctx := c.Request.Context()

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.Errorw("failed to read request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Failed to read request body",
		})
		return
	}

	signature := c.GetHeader("Stripe-Signature")
	if signature == "" {
		h.logger.Errorw("missing Stripe-Signature header")
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Missing Stripe-Signature header",
		})
		return
	}

	event, err := h.client.ParseWebhookEvent(body, signature)
	if err != nil {
		h.logger.Errorw("failed to verify stripe webhook event", "error", err)
		c.JSON(ierr.HTTPStatusFromErr(err), gin.H{
			"error": "Failed to verify webhook signature or parse event",
		})
		return
	}

	envelope := stripe.NewEnvelope(event)

	result, err := h.orchestrator.Begin(ctx, envelope)
	if err != nil {
		h.logger.Errorw("failed to register webhook event",
			"error", err,
			"event_id", envelope.EventID,
		)
		c.JSON(ierr.HTTPStatusFromErr(err), gin.H{
			"error": "Failed to register webhook event",
		})
		return
	}

	switch result {
	case service.BeginResultDuplicate:
		c.JSON(http.StatusOK, gin.H{
			"message": "Duplicate event acknowledged",
		})
		return
	case service.BeginResultIgnored:
		c.JSON(http.StatusOK, gin.H{
			"message": "Stale event ignored",
		})
		return
	}

	if err := h.publisher.PublishProcessingJob(ctx, envelope.EventID); err != nil {
		h.logger.Errorw("failed to enqueue processing job",
			"error", err,
			"event_id", envelope.EventID,
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to enqueue event for processing",
		})
		return
	}

	h.logger.Infow("webhook event accepted",
		"event_id", envelope.EventID,
		"event_type", envelope.EventType,
		"request_id", types.GetRequestID(ctx),
	)
	c.JSON(http.StatusOK, gin.H{
		"message": "Webhook accepted",
	})
}
