package billing

import (
	"time"

	"github.com/billsync/billsync/internal/types"
)

// Subscription is the internal billing aggregate this pipeline writes to,
// keyed by organization id. It is created on first checkout completion or
// first subscription event for an org, updated on every accepted sync, and
// never deleted - cancellation is a status transition.
type Subscription struct {
	OrganizationID         string                   `db:"organization_id" json:"organization_id"`
	Plan                   types.PlanType           `db:"plan" json:"plan"`
	Status                 types.SubscriptionStatus `db:"status" json:"status"`
	ProviderCustomerID     string                   `db:"provider_customer_id" json:"provider_customer_id,omitempty"`
	ProviderSubscriptionID string                   `db:"provider_subscription_id" json:"provider_subscription_id,omitempty"`
	CurrentPeriodEnd       *time.Time               `db:"current_period_end" json:"current_period_end,omitempty"`
	CreatedAt              time.Time                `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time                `db:"updated_at" json:"updated_at"`
}

// NewFreeSubscription returns the bootstrap aggregate written when an
// organization is first seen, before any plan is resolved
func NewFreeSubscription(organizationID, providerCustomerID string) *Subscription {
	now := time.Now().UTC()
	return &Subscription{
		OrganizationID:     organizationID,
		Plan:               types.PlanFree,
		Status:             types.SubscriptionStatusInactive,
		ProviderCustomerID: providerCustomerID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}
