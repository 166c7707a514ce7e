package stripe

import (
	"context"

	"github.com/billsync/billsync/internal/config"
	ierr "github.com/billsync/billsync/internal/errors"
	"github.com/billsync/billsync/internal/logger"
	"github.com/billsync/billsync/internal/types"
	stripeapi "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// Client handles Stripe API access and webhook verification
type Client struct {
	sc     *stripeapi.Client
	config *config.StripeConfig
	logger *logger.Logger
}

// NewClient creates a new Stripe client from static configuration
func NewClient(cfg *config.Configuration, logger *logger.Logger) *Client {
	return &Client{
		sc:     stripeapi.NewClient(cfg.Stripe.SecretKey, nil),
		config: &cfg.Stripe,
		logger: logger,
	}
}

// ParseWebhookEvent verifies the signature of a raw webhook body and returns
// the typed event
func (c *Client) ParseWebhookEvent(payload []byte, signature string) (*stripeapi.Event, error) {
	options := webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, c.config.WebhookSecret, options)
	if err != nil {
		c.logger.Errorw("stripe webhook verification failed", "error", err)
		return nil, ierr.NewError("failed to verify webhook signature").
			WithHint("Invalid webhook signature or payload").
			Mark(ierr.ErrValidation)
	}
	return &event, nil
}

// GetSubscription fetches the current full subscription snapshot from the
// provider. Used for the checkout completion follow-up fetch, where the
// webhook payload carries only a subscription reference.
func (c *Client) GetSubscription(ctx context.Context, subscriptionID string) (*types.ProviderSubscriptionSnapshot, error) {
	params := &stripeapi.SubscriptionRetrieveParams{}
	params.AddExpand("customer")

	sub, err := c.sc.V1Subscriptions.Retrieve(ctx, subscriptionID, params)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Failed to fetch subscription %s from Stripe", subscriptionID).
			Mark(ierr.ErrProviderAPI)
	}

	return SnapshotFromSubscription(sub), nil
}
