package service_test

import (
	"testing"
	"time"

	"github.com/billsync/billsync/internal/domain/billing"
	ierr "github.com/billsync/billsync/internal/errors"
	"github.com/billsync/billsync/internal/service"
	"github.com/billsync/billsync/internal/testutil"
	"github.com/billsync/billsync/internal/types"
	"github.com/stretchr/testify/suite"
)

type SubscriptionSyncSuite struct {
	testutil.BaseServiceTestSuite
	service service.SubscriptionSyncService
}

func TestSubscriptionSync(t *testing.T) {
	suite.Run(t, new(SubscriptionSyncSuite))
}

func (s *SubscriptionSyncSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = service.NewSubscriptionSyncService(s.GetServiceParams())
}

func (s *SubscriptionSyncSuite) TestResolvePlan() {
	s.Equal(types.PlanFree, s.service.ResolvePlan(""))
	s.Equal(types.PlanPro, s.service.ResolvePlan("price_pro_test"))
	s.Equal(types.PlanPro, s.service.ResolvePlan("price_unknown"))
}

func (s *SubscriptionSyncSuite) TestSyncCreatesAggregate() {
	periodEnd := s.GetNow().Add(30 * 24 * time.Hour).Unix()

	err := s.service.SyncFromProviderSubscription(s.GetContext(), service.SyncRequest{
		OrganizationID: "org_test",
		Snapshot: &types.ProviderSubscriptionSnapshot{
			ID:               "sub_123",
			CustomerID:       "cus_123",
			PriceID:          "price_pro_test",
			Status:           "active",
			CurrentPeriodEnd: periodEnd,
		},
	})
	s.NoError(err)

	sub, err := s.GetStores().SubscriptionRepo.GetByOrganizationID(s.GetContext(), "org_test")
	s.NoError(err)
	s.NotNil(sub)
	s.Equal(types.PlanPro, sub.Plan)
	s.Equal(types.SubscriptionStatusActive, sub.Status)
	s.Equal("sub_123", sub.ProviderSubscriptionID)
	s.Equal("cus_123", sub.ProviderCustomerID)
	s.NotNil(sub.CurrentPeriodEnd)
	s.Equal(periodEnd, sub.CurrentPeriodEnd.Unix())
}

func (s *SubscriptionSyncSuite) TestSyncUpdatesExistingAggregate() {
	s.NoError(s.GetStores().SubscriptionRepo.Upsert(s.GetContext(),
		billing.NewFreeSubscription("org_test", "cus_123")))

	err := s.service.SyncFromProviderSubscription(s.GetContext(), service.SyncRequest{
		OrganizationID: "org_test",
		Snapshot: &types.ProviderSubscriptionSnapshot{
			ID:      "sub_123",
			PriceID: "price_pro_test",
			Status:  "past_due",
		},
	})
	s.NoError(err)

	sub, err := s.GetStores().SubscriptionRepo.GetByOrganizationID(s.GetContext(), "org_test")
	s.NoError(err)
	s.Equal(types.PlanPro, sub.Plan)
	s.Equal(types.SubscriptionStatusPastDue, sub.Status)
	// Customer id set at bootstrap survives a snapshot without one
	s.Equal("cus_123", sub.ProviderCustomerID)
}

func (s *SubscriptionSyncSuite) TestSyncMapsUnknownProviderStatusToInactive() {
	err := s.service.SyncFromProviderSubscription(s.GetContext(), service.SyncRequest{
		OrganizationID: "org_test",
		Snapshot: &types.ProviderSubscriptionSnapshot{
			ID:      "sub_123",
			PriceID: "price_pro_test",
			Status:  "incomplete_expired",
		},
	})
	s.NoError(err)

	sub, err := s.GetStores().SubscriptionRepo.GetByOrganizationID(s.GetContext(), "org_test")
	s.NoError(err)
	s.Equal(types.SubscriptionStatusInactive, sub.Status)
}

func (s *SubscriptionSyncSuite) TestSyncRequiresOrganizationID() {
	err := s.service.SyncFromProviderSubscription(s.GetContext(), service.SyncRequest{
		Snapshot: &types.ProviderSubscriptionSnapshot{ID: "sub_123"},
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *SubscriptionSyncSuite) TestSyncRequiresSnapshot() {
	err := s.service.SyncFromProviderSubscription(s.GetContext(), service.SyncRequest{
		OrganizationID: "org_test",
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *SubscriptionSyncSuite) TestEnsureAggregateBootstrapsFreeSubscription() {
	s.NoError(s.service.EnsureAggregate(s.GetContext(), "org_test", "cus_123"))

	sub, err := s.GetStores().SubscriptionRepo.GetByOrganizationID(s.GetContext(), "org_test")
	s.NoError(err)
	s.NotNil(sub)
	s.Equal(types.PlanFree, sub.Plan)
	s.Equal(types.SubscriptionStatusInactive, sub.Status)
	s.Equal("cus_123", sub.ProviderCustomerID)
}

func (s *SubscriptionSyncSuite) TestEnsureAggregateDoesNotDowngradeExisting() {
	err := s.service.SyncFromProviderSubscription(s.GetContext(), service.SyncRequest{
		OrganizationID: "org_test",
		Snapshot: &types.ProviderSubscriptionSnapshot{
			ID:      "sub_123",
			PriceID: "price_pro_test",
			Status:  "active",
		},
	})
	s.NoError(err)

	s.NoError(s.service.EnsureAggregate(s.GetContext(), "org_test", "cus_456"))

	sub, err := s.GetStores().SubscriptionRepo.GetByOrganizationID(s.GetContext(), "org_test")
	s.NoError(err)
	s.Equal(types.PlanPro, sub.Plan)
	s.Equal(types.SubscriptionStatusActive, sub.Status)
	s.Equal("cus_456", sub.ProviderCustomerID)
}

func (s *SubscriptionSyncSuite) TestMarkCanceledPreservesPlanAndPeriod() {
	periodEnd := s.GetNow().Add(7 * 24 * time.Hour).Unix()
	err := s.service.SyncFromProviderSubscription(s.GetContext(), service.SyncRequest{
		OrganizationID: "org_test",
		Snapshot: &types.ProviderSubscriptionSnapshot{
			ID:               "sub_123",
			PriceID:          "price_pro_test",
			Status:           "active",
			CurrentPeriodEnd: periodEnd,
		},
	})
	s.NoError(err)

	s.NoError(s.service.MarkCanceled(s.GetContext(), "sub_123"))

	sub, err := s.GetStores().SubscriptionRepo.GetByOrganizationID(s.GetContext(), "org_test")
	s.NoError(err)
	s.Equal(types.SubscriptionStatusCanceled, sub.Status)
	s.Equal(types.PlanPro, sub.Plan)
	s.NotNil(sub.CurrentPeriodEnd)
	s.Equal(periodEnd, sub.CurrentPeriodEnd.Unix())
}

func (s *SubscriptionSyncSuite) TestMarkCanceledUnknownSubscriptionIsNoop() {
	s.NoError(s.service.MarkCanceled(s.GetContext(), "sub_missing"))
}
