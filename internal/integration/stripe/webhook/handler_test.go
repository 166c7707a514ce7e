package webhook

import (
	"encoding/json"
	"testing"

	"github.com/billsync/billsync/internal/service"
	"github.com/billsync/billsync/internal/testutil"
	"github.com/billsync/billsync/internal/types"
	"github.com/stretchr/testify/suite"
)

type StripeWebhookHandlerSuite struct {
	testutil.BaseServiceTestSuite
	handler *Handler
	syncSvc service.SubscriptionSyncService
}

func TestStripeWebhookHandler(t *testing.T) {
	suite.Run(t, new(StripeWebhookHandlerSuite))
}

func (s *StripeWebhookHandlerSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.syncSvc = service.NewSubscriptionSyncService(s.GetServiceParams())
	s.handler = NewHandler(s.GetProviderClient(), s.syncSvc, s.GetLogger())
}

func (s *StripeWebhookHandlerSuite) TestCheckoutCompletedFetchesAndSyncsSubscription() {
	s.GetProviderClient().SetSubscription(&types.ProviderSubscriptionSnapshot{
		ID:               "sub_123",
		CustomerID:       "cus_123",
		PriceID:          "price_pro_test",
		Status:           "active",
		CurrentPeriodEnd: s.GetNow().Unix(),
	})

	envelope := &types.WebhookEnvelope{
		EventID:        "evt_checkout",
		EventType:      types.EventTypeCheckoutCompleted,
		CreatedAt:      s.GetNow(),
		OrganizationID: "org_test",
		SubscriptionID: "sub_123",
		Payload:        json.RawMessage(`{"id":"cs_1","customer":{"id":"cus_123"},"subscription":{"id":"sub_123"}}`),
	}

	s.NoError(s.handler.ProcessEvent(s.GetContext(), envelope))

	sub, err := s.GetStores().SubscriptionRepo.GetByOrganizationID(s.GetContext(), "org_test")
	s.NoError(err)
	s.NotNil(sub)
	s.Equal(types.PlanPro, sub.Plan)
	s.Equal(types.SubscriptionStatusActive, sub.Status)
	s.Equal("sub_123", sub.ProviderSubscriptionID)
	s.Equal("cus_123", sub.ProviderCustomerID)
}

func (s *StripeWebhookHandlerSuite) TestCheckoutWithoutSubscriptionOnlyBootstraps() {
	envelope := &types.WebhookEnvelope{
		EventID:        "evt_checkout",
		EventType:      types.EventTypeCheckoutCompleted,
		CreatedAt:      s.GetNow(),
		OrganizationID: "org_test",
		Payload:        json.RawMessage(`{"id":"cs_1","customer":{"id":"cus_123"}}`),
	}

	s.NoError(s.handler.ProcessEvent(s.GetContext(), envelope))

	sub, err := s.GetStores().SubscriptionRepo.GetByOrganizationID(s.GetContext(), "org_test")
	s.NoError(err)
	s.NotNil(sub)
	s.Equal(types.PlanFree, sub.Plan)
	s.Equal(types.SubscriptionStatusInactive, sub.Status)
	s.Equal("cus_123", sub.ProviderCustomerID)
}

func (s *StripeWebhookHandlerSuite) TestCheckoutFailsWhenProviderFetchFails() {
	// No snapshot registered with the mock provider
	envelope := &types.WebhookEnvelope{
		EventID:        "evt_checkout",
		EventType:      types.EventTypeCheckoutCompleted,
		CreatedAt:      s.GetNow(),
		OrganizationID: "org_test",
		SubscriptionID: "sub_missing",
		Payload:        json.RawMessage(`{"id":"cs_1","customer":{"id":"cus_123"},"subscription":{"id":"sub_missing"}}`),
	}

	s.Error(s.handler.ProcessEvent(s.GetContext(), envelope))
}

func (s *StripeWebhookHandlerSuite) TestSubscriptionUpdatedSyncsFromPayload() {
	payload := `{
		"id": "sub_123",
		"status": "past_due",
		"customer": {"id": "cus_123"},
		"metadata": {"organization_id": "org_test"},
		"items": {"data": [{"price": {"id": "price_pro_test"}, "current_period_end": 1751370000}]}
	}`

	envelope := &types.WebhookEnvelope{
		EventID:        "evt_update",
		EventType:      types.EventTypeSubscriptionUpdated,
		CreatedAt:      s.GetNow(),
		OrganizationID: "org_test",
		SubscriptionID: "sub_123",
		Payload:        json.RawMessage(payload),
	}

	s.NoError(s.handler.ProcessEvent(s.GetContext(), envelope))

	sub, err := s.GetStores().SubscriptionRepo.GetByOrganizationID(s.GetContext(), "org_test")
	s.NoError(err)
	s.NotNil(sub)
	s.Equal(types.SubscriptionStatusPastDue, sub.Status)
	s.Equal(types.PlanPro, sub.Plan)
	s.NotNil(sub.CurrentPeriodEnd)
	s.Equal(int64(1751370000), sub.CurrentPeriodEnd.Unix())
}

func (s *StripeWebhookHandlerSuite) TestSubscriptionDeletedMarksCanceled() {
	s.NoError(s.syncSvc.SyncFromProviderSubscription(s.GetContext(), service.SyncRequest{
		OrganizationID: "org_test",
		Snapshot: &types.ProviderSubscriptionSnapshot{
			ID:      "sub_123",
			PriceID: "price_pro_test",
			Status:  "active",
		},
	}))

	envelope := &types.WebhookEnvelope{
		EventID:        "evt_delete",
		EventType:      types.EventTypeSubscriptionDeleted,
		CreatedAt:      s.GetNow(),
		SubscriptionID: "sub_123",
		Payload:        json.RawMessage(`{"id":"sub_123","status":"canceled"}`),
	}

	s.NoError(s.handler.ProcessEvent(s.GetContext(), envelope))

	sub, err := s.GetStores().SubscriptionRepo.GetByOrganizationID(s.GetContext(), "org_test")
	s.NoError(err)
	s.Equal(types.SubscriptionStatusCanceled, sub.Status)
	s.Equal(types.PlanPro, sub.Plan)
}

func (s *StripeWebhookHandlerSuite) TestInvoiceEventsAreAcknowledgedWithoutMutation() {
	envelope := &types.WebhookEnvelope{
		EventID:   "evt_invoice",
		EventType: types.EventTypeInvoicePaymentSucceeded,
		CreatedAt: s.GetNow(),
		Payload:   json.RawMessage(`{"id":"in_1"}`),
	}

	s.NoError(s.handler.ProcessEvent(s.GetContext(), envelope))

	sub, err := s.GetStores().SubscriptionRepo.GetByOrganizationID(s.GetContext(), "org_test")
	s.NoError(err)
	s.Nil(sub)
}

func (s *StripeWebhookHandlerSuite) TestUnknownEventTypeIsAcknowledged() {
	envelope := &types.WebhookEnvelope{
		EventID:   "evt_unknown",
		EventType: types.ProviderEventType("customer.updated"),
		CreatedAt: s.GetNow(),
		Payload:   json.RawMessage(`{"id":"cus_1"}`),
	}

	s.NoError(s.handler.ProcessEvent(s.GetContext(), envelope))
}

func (s *StripeWebhookHandlerSuite) TestMalformedPayloadFailsValidation() {
	envelope := &types.WebhookEnvelope{
		EventID:        "evt_bad",
		EventType:      types.EventTypeSubscriptionUpdated,
		CreatedAt:      s.GetNow(),
		SubscriptionID: "sub_123",
		Payload:        json.RawMessage(`{not json`),
	}

	s.Error(s.handler.ProcessEvent(s.GetContext(), envelope))
}
