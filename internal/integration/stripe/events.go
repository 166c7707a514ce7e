package stripe

import (
	"encoding/json"
	"time"

	"github.com/billsync/billsync/internal/types"
	stripeapi "github.com/stripe/stripe-go/v82"
)

// organizationIDMetadataKey is stamped into checkout session and subscription
// metadata when the checkout is created, and travels back on every webhook.
const organizationIDMetadataKey = "organization_id"

// EventCreatedAt returns the provider's event creation time on a canonical clock
func EventCreatedAt(event *stripeapi.Event) time.Time {
	return time.Unix(event.Created, 0).UTC()
}

// ExtractSubscriptionID returns the external subscription id for event types
// that carry one: the checkout completion via its embedded subscription
// reference and the three subscription lifecycle types. Returns "" for others.
func ExtractSubscriptionID(event *stripeapi.Event) string {
	switch types.ProviderEventType(event.Type) {
	case types.EventTypeCheckoutCompleted:
		var session stripeapi.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return ""
		}
		if session.Subscription != nil {
			return session.Subscription.ID
		}
		return ""
	case types.EventTypeSubscriptionCreated,
		types.EventTypeSubscriptionUpdated,
		types.EventTypeSubscriptionDeleted:
		var sub stripeapi.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return ""
		}
		return sub.ID
	default:
		return ""
	}
}

// ExtractOrganizationID reads the correlation id embedded in the event payload
// metadata at creation time. Returns "" if absent.
func ExtractOrganizationID(event *stripeapi.Event) string {
	switch types.ProviderEventType(event.Type) {
	case types.EventTypeCheckoutCompleted:
		var session stripeapi.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return ""
		}
		return session.Metadata[organizationIDMetadataKey]
	case types.EventTypeSubscriptionCreated,
		types.EventTypeSubscriptionUpdated,
		types.EventTypeSubscriptionDeleted:
		var sub stripeapi.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return ""
		}
		return sub.Metadata[organizationIDMetadataKey]
	default:
		return ""
	}
}

// NewEnvelope normalizes a verified provider event into the pipeline's envelope
func NewEnvelope(event *stripeapi.Event) *types.WebhookEnvelope {
	return &types.WebhookEnvelope{
		EventID:        event.ID,
		EventType:      types.ProviderEventType(event.Type),
		CreatedAt:      EventCreatedAt(event),
		OrganizationID: ExtractOrganizationID(event),
		SubscriptionID: ExtractSubscriptionID(event),
		Payload:        json.RawMessage(event.Data.Raw),
	}
}

// SnapshotFromSubscription flattens a provider subscription object into the
// neutral snapshot the sync service consumes. The provider keeps the current
// period end on the subscription item.
func SnapshotFromSubscription(sub *stripeapi.Subscription) *types.ProviderSubscriptionSnapshot {
	snapshot := &types.ProviderSubscriptionSnapshot{
		ID:     sub.ID,
		Status: string(sub.Status),
	}

	if sub.Customer != nil {
		snapshot.CustomerID = sub.Customer.ID
	}

	if sub.Items != nil && len(sub.Items.Data) > 0 {
		firstItem := sub.Items.Data[0]
		if firstItem.Price != nil {
			snapshot.PriceID = firstItem.Price.ID
		}
		snapshot.CurrentPeriodEnd = firstItem.CurrentPeriodEnd
	}

	return snapshot
}
