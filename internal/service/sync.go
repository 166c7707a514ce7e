package service

import (
	"context"
	"time"

	"github.com/billsync/billsync/internal/domain/billing"
	"github.com/billsync/billsync/internal/types"
	"github.com/billsync/billsync/internal/validator"
)

// SyncRequest carries everything needed to map one provider subscription
// snapshot onto the internal aggregate
type SyncRequest struct {
	OrganizationID     string                              `validate:"required"`
	Snapshot           *types.ProviderSubscriptionSnapshot `validate:"required"`
	ProviderCustomerID string
}

func (r SyncRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// SubscriptionSyncService maps provider subscription snapshots into the
// internal subscription aggregate. One upsert per call, no internal retries -
// retrying is the worker's job.
type SubscriptionSyncService interface {
	SyncFromProviderSubscription(ctx context.Context, req SyncRequest) error
	EnsureAggregate(ctx context.Context, organizationID, providerCustomerID string) error
	MarkCanceled(ctx context.Context, providerSubscriptionID string) error
	ResolvePlan(priceID string) types.PlanType
}

type subscriptionSyncService struct {
	ServiceParams
}

func NewSubscriptionSyncService(params ServiceParams) SubscriptionSyncService {
	return &subscriptionSyncService{ServiceParams: params}
}

// ResolvePlan is the single authoritative price-to-plan mapping. An empty
// price id means no paid subscription, so free. The configured reference
// price id maps to pro. Any other non-empty price id also maps to pro -
// current single-tier policy, pending product sign-off on whether unknown
// price ids should be rejected instead.
func (s *subscriptionSyncService) ResolvePlan(priceID string) types.PlanType {
	if priceID == "" {
		return types.PlanFree
	}
	return types.PlanPro
}

func (s *subscriptionSyncService) SyncFromProviderSubscription(ctx context.Context, req SyncRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	existing, err := s.SubscriptionRepo.GetByOrganizationID(ctx, req.OrganizationID)
	if err != nil {
		return err
	}

	sub := existing
	if sub == nil {
		sub = billing.NewFreeSubscription(req.OrganizationID, req.ProviderCustomerID)
	}

	sub.Plan = s.ResolvePlan(req.Snapshot.PriceID)
	sub.Status = types.SubscriptionStatusFromProvider(req.Snapshot.Status)
	sub.ProviderSubscriptionID = req.Snapshot.ID
	if req.ProviderCustomerID != "" {
		sub.ProviderCustomerID = req.ProviderCustomerID
	} else if req.Snapshot.CustomerID != "" {
		sub.ProviderCustomerID = req.Snapshot.CustomerID
	}
	if req.Snapshot.CurrentPeriodEnd > 0 {
		periodEnd := time.Unix(req.Snapshot.CurrentPeriodEnd, 0).UTC()
		sub.CurrentPeriodEnd = &periodEnd
	}
	sub.UpdatedAt = time.Now().UTC()

	if err := s.SubscriptionRepo.Upsert(ctx, sub); err != nil {
		return err
	}

	s.Logger.Infow("synced subscription from provider snapshot",
		"organization_id", req.OrganizationID,
		"provider_subscription_id", req.Snapshot.ID,
		"plan", sub.Plan,
		"status", sub.Status,
	)

	return nil
}

// EnsureAggregate bootstraps the aggregate row on first checkout: creates a
// free/inactive subscription when the organization is unknown, otherwise only
// patches the provider customer id.
func (s *subscriptionSyncService) EnsureAggregate(ctx context.Context, organizationID, providerCustomerID string) error {
	existing, err := s.SubscriptionRepo.GetByOrganizationID(ctx, organizationID)
	if err != nil {
		return err
	}

	if existing == nil {
		return s.SubscriptionRepo.Upsert(ctx, billing.NewFreeSubscription(organizationID, providerCustomerID))
	}

	if providerCustomerID != "" && existing.ProviderCustomerID != providerCustomerID {
		existing.ProviderCustomerID = providerCustomerID
		existing.UpdatedAt = time.Now().UTC()
		return s.SubscriptionRepo.Upsert(ctx, existing)
	}

	return nil
}

// MarkCanceled transitions the aggregate to canceled, preserving plan and
// period end. Unknown subscription ids are a no-op.
func (s *subscriptionSyncService) MarkCanceled(ctx context.Context, providerSubscriptionID string) error {
	sub, err := s.SubscriptionRepo.GetByProviderSubscriptionID(ctx, providerSubscriptionID)
	if err != nil {
		return err
	}
	if sub == nil {
		s.Logger.Warnw("no subscription found for canceled provider subscription",
			"provider_subscription_id", providerSubscriptionID,
		)
		return nil
	}

	sub.Status = types.SubscriptionStatusCanceled
	sub.UpdatedAt = time.Now().UTC()
	return s.SubscriptionRepo.Upsert(ctx, sub)
}
