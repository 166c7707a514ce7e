package webhook

import (
	"context"
	"encoding/json"

	ierr "github.com/billsync/billsync/internal/errors"
	istripe "github.com/billsync/billsync/internal/integration/stripe"
	"github.com/billsync/billsync/internal/logger"
	"github.com/billsync/billsync/internal/service"
	"github.com/billsync/billsync/internal/types"
	stripeapi "github.com/stripe/stripe-go/v82"
)

// Handler runs the per-event-type processing branch for Stripe webhook events.
// It implements service.EventProcessor.
type Handler struct {
	client  service.ProviderClient
	syncSvc service.SubscriptionSyncService
	logger  *logger.Logger
}

var _ service.EventProcessor = (*Handler)(nil)

// NewHandler creates a new Stripe webhook processing handler
func NewHandler(
	client service.ProviderClient,
	syncSvc service.SubscriptionSyncService,
	logger *logger.Logger,
) *Handler {
	return &Handler{
		client:  client,
		syncSvc: syncSvc,
		logger:  logger,
	}
}

// ProcessEvent dispatches one admitted event to its type branch. Unrecognized
// and invoice event types are acknowledged without any state mutation.
func (h *Handler) ProcessEvent(ctx context.Context, envelope *types.WebhookEnvelope) error {
	h.logger.Infow("processing webhook event",
		"event_id", envelope.EventID,
		"event_type", envelope.EventType,
		"organization_id", envelope.OrganizationID,
		"subscription_id", envelope.SubscriptionID,
	)

	switch envelope.EventType {
	case types.EventTypeCheckoutCompleted:
		return h.handleCheckoutCompleted(ctx, envelope)
	case types.EventTypeSubscriptionCreated, types.EventTypeSubscriptionUpdated:
		return h.handleSubscriptionChanged(ctx, envelope)
	case types.EventTypeSubscriptionDeleted:
		return h.syncSvc.MarkCanceled(ctx, envelope.SubscriptionID)
	case types.EventTypeInvoicePaymentSucceeded, types.EventTypeInvoicePaymentFailed:
		// Reserved for future use; acknowledged without state mutation
		h.logger.Debugw("acknowledging invoice event without processing",
			"event_id", envelope.EventID,
			"event_type", envelope.EventType,
		)
		return nil
	default:
		h.logger.Infow("unhandled webhook event type", "type", envelope.EventType)
		return nil
	}
}

// handleCheckoutCompleted bootstraps the subscription aggregate for the
// organization and, when the session carries a subscription reference, fetches
// the full snapshot from the provider and syncs it.
func (h *Handler) handleCheckoutCompleted(ctx context.Context, envelope *types.WebhookEnvelope) error {
	var session stripeapi.CheckoutSession
	if err := json.Unmarshal(envelope.Payload, &session); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid checkout session data in webhook").
			Mark(ierr.ErrValidation)
	}

	customerID := ""
	if session.Customer != nil {
		customerID = session.Customer.ID
	}

	if envelope.OrganizationID != "" && customerID != "" {
		if err := h.syncSvc.EnsureAggregate(ctx, envelope.OrganizationID, customerID); err != nil {
			return err
		}
	}

	if session.Subscription == nil {
		h.logger.Debugw("checkout session has no subscription reference",
			"event_id", envelope.EventID,
			"session_id", session.ID,
		)
		return nil
	}

	// The session embeds only a subscription reference; fetch the current
	// full snapshot from the provider before syncing
	snapshot, err := h.client.GetSubscription(ctx, session.Subscription.ID)
	if err != nil {
		return err
	}

	return h.syncSvc.SyncFromProviderSubscription(ctx, service.SyncRequest{
		OrganizationID:     envelope.OrganizationID,
		Snapshot:           snapshot,
		ProviderCustomerID: customerID,
	})
}

// handleSubscriptionChanged syncs directly from the snapshot embedded in the
// event payload
func (h *Handler) handleSubscriptionChanged(ctx context.Context, envelope *types.WebhookEnvelope) error {
	var sub stripeapi.Subscription
	if err := json.Unmarshal(envelope.Payload, &sub); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid subscription data in webhook").
			Mark(ierr.ErrValidation)
	}

	snapshot := istripe.SnapshotFromSubscription(&sub)

	return h.syncSvc.SyncFromProviderSubscription(ctx, service.SyncRequest{
		OrganizationID:     envelope.OrganizationID,
		Snapshot:           snapshot,
		ProviderCustomerID: snapshot.CustomerID,
	})
}
