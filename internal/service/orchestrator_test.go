package service_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/billsync/billsync/internal/domain/cursor"
	"github.com/billsync/billsync/internal/service"
	"github.com/billsync/billsync/internal/testutil"
	"github.com/billsync/billsync/internal/types"
	"github.com/stretchr/testify/suite"
)

type WebhookOrchestratorSuite struct {
	testutil.BaseServiceTestSuite
	orchestrator service.WebhookOrchestrator
}

func TestWebhookOrchestrator(t *testing.T) {
	suite.Run(t, new(WebhookOrchestratorSuite))
}

func (s *WebhookOrchestratorSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.orchestrator = service.NewWebhookOrchestrator(s.GetServiceParams())
}

func (s *WebhookOrchestratorSuite) newEnvelope(eventID string, eventType types.ProviderEventType, createdAt time.Time) *types.WebhookEnvelope {
	return &types.WebhookEnvelope{
		EventID:        eventID,
		EventType:      eventType,
		CreatedAt:      createdAt,
		OrganizationID: "org_test",
		SubscriptionID: "sub_123",
		Payload:        json.RawMessage(`{}`),
	}
}

func (s *WebhookOrchestratorSuite) TestBeginAdmitsFreshEvent() {
	envelope := s.newEnvelope("evt_1", types.EventTypeSubscriptionCreated, s.GetNow())

	result, err := s.orchestrator.Begin(s.GetContext(), envelope)
	s.NoError(err)
	s.Equal(service.BeginResultProcess, result)

	stored, err := s.GetStores().WebhookEventRepo.GetByEventID(s.GetContext(), "evt_1")
	s.NoError(err)
	s.Equal(types.WebhookEventStatusReceived, stored.Status)
}

func (s *WebhookOrchestratorSuite) TestBeginRejectsDuplicateEventID() {
	envelope := s.newEnvelope("evt_1", types.EventTypeSubscriptionCreated, s.GetNow())

	result, err := s.orchestrator.Begin(s.GetContext(), envelope)
	s.NoError(err)
	s.Equal(service.BeginResultProcess, result)

	// Same id delivered again, even with a different payload
	redelivered := s.newEnvelope("evt_1", types.EventTypeSubscriptionUpdated, s.GetNow().Add(time.Hour))
	result, err = s.orchestrator.Begin(s.GetContext(), redelivered)
	s.NoError(err)
	s.Equal(service.BeginResultDuplicate, result)

	// The stored row keeps the first delivery's content
	stored, err := s.GetStores().WebhookEventRepo.GetByEventID(s.GetContext(), "evt_1")
	s.NoError(err)
	s.Equal(types.EventTypeSubscriptionCreated, stored.EventType)
}

func (s *WebhookOrchestratorSuite) TestBeginIgnoresStaleEvent() {
	now := s.GetNow()

	// Advance the cursor past the incoming event
	s.NoError(s.GetStores().CursorRepo.Upsert(s.GetContext(), &cursor.Cursor{
		SubscriptionID:     "sub_123",
		LastEventID:        "evt_newer",
		LastEventType:      types.EventTypeSubscriptionUpdated,
		LastEventCreatedAt: now,
	}))

	stale := s.newEnvelope("evt_old", types.EventTypeSubscriptionUpdated, now.Add(-time.Minute))
	result, err := s.orchestrator.Begin(s.GetContext(), stale)
	s.NoError(err)
	s.Equal(service.BeginResultIgnored, result)

	stored, err := s.GetStores().WebhookEventRepo.GetByEventID(s.GetContext(), "evt_old")
	s.NoError(err)
	s.Equal(types.WebhookEventStatusIgnored, stored.Status)
	s.NotNil(stored.ProcessedAt)

	// The cursor must not move for ignored events
	c, err := s.GetStores().CursorRepo.Get(s.GetContext(), "sub_123")
	s.NoError(err)
	s.Equal("evt_newer", c.LastEventID)
}

func (s *WebhookOrchestratorSuite) TestBeginBypassesGateWithoutSubscriptionID() {
	now := s.GetNow()
	s.NoError(s.GetStores().CursorRepo.Upsert(s.GetContext(), &cursor.Cursor{
		SubscriptionID:     "sub_123",
		LastEventID:        "evt_newer",
		LastEventType:      types.EventTypeSubscriptionUpdated,
		LastEventCreatedAt: now,
	}))

	envelope := &types.WebhookEnvelope{
		EventID:   "evt_no_sub",
		EventType: types.EventTypeCheckoutCompleted,
		CreatedAt: now.Add(-time.Hour),
		Payload:   json.RawMessage(`{}`),
	}

	result, err := s.orchestrator.Begin(s.GetContext(), envelope)
	s.NoError(err)
	s.Equal(service.BeginResultProcess, result)
}

func (s *WebhookOrchestratorSuite) TestCompleteAdvancesCursorAndMarksProcessed() {
	envelope := s.newEnvelope("evt_1", types.EventTypeSubscriptionCreated, s.GetNow())

	_, err := s.orchestrator.Begin(s.GetContext(), envelope)
	s.NoError(err)

	s.NoError(s.orchestrator.Complete(s.GetContext(), envelope))

	stored, err := s.GetStores().WebhookEventRepo.GetByEventID(s.GetContext(), "evt_1")
	s.NoError(err)
	s.Equal(types.WebhookEventStatusProcessed, stored.Status)
	s.NotNil(stored.ProcessedAt)

	c, err := s.GetStores().CursorRepo.Get(s.GetContext(), "sub_123")
	s.NoError(err)
	s.Equal("evt_1", c.LastEventID)
	s.Equal(types.EventTypeSubscriptionCreated, c.LastEventType)
	s.True(c.LastEventCreatedAt.Equal(envelope.CreatedAt))
}

func (s *WebhookOrchestratorSuite) TestCompleteWithoutSubscriptionIDSkipsCursor() {
	envelope := &types.WebhookEnvelope{
		EventID:   "evt_no_sub",
		EventType: types.EventTypeCheckoutCompleted,
		CreatedAt: s.GetNow(),
		Payload:   json.RawMessage(`{}`),
	}

	_, err := s.orchestrator.Begin(s.GetContext(), envelope)
	s.NoError(err)
	s.NoError(s.orchestrator.Complete(s.GetContext(), envelope))

	c, err := s.GetStores().CursorRepo.Get(s.GetContext(), "")
	s.NoError(err)
	s.Nil(c)
}

func (s *WebhookOrchestratorSuite) TestFailDoesNotAdvanceCursor() {
	envelope := s.newEnvelope("evt_1", types.EventTypeSubscriptionCreated, s.GetNow())

	_, err := s.orchestrator.Begin(s.GetContext(), envelope)
	s.NoError(err)

	s.NoError(s.orchestrator.Fail(s.GetContext(), "evt_1", "provider api unavailable"))

	stored, err := s.GetStores().WebhookEventRepo.GetByEventID(s.GetContext(), "evt_1")
	s.NoError(err)
	s.Equal(types.WebhookEventStatusFailed, stored.Status)
	s.Equal("provider api unavailable", stored.ErrorMessage)
	s.Nil(stored.ProcessedAt)

	c, err := s.GetStores().CursorRepo.Get(s.GetContext(), "sub_123")
	s.NoError(err)
	s.Nil(c)

	// A later event for the same subscription is still accepted
	next := s.newEnvelope("evt_2", types.EventTypeSubscriptionUpdated, s.GetNow().Add(time.Second))
	result, err := s.orchestrator.Begin(s.GetContext(), next)
	s.NoError(err)
	s.Equal(service.BeginResultProcess, result)
}

// Full lifecycle: a checkout completion and a subscription update are admitted
// and completed in order, then an older delivery for the same subscription
// arrives late and is rejected by the cursor those completions earned.
func (s *WebhookOrchestratorSuite) TestLateDeliveryRejectedByEarnedCursor() {
	now := s.GetNow()

	checkout := s.newEnvelope("evt_checkout", types.EventTypeCheckoutCompleted, now)
	result, err := s.orchestrator.Begin(s.GetContext(), checkout)
	s.NoError(err)
	s.Equal(service.BeginResultProcess, result)
	s.NoError(s.orchestrator.Complete(s.GetContext(), checkout))

	update := s.newEnvelope("evt_update", types.EventTypeSubscriptionUpdated, now.Add(time.Minute))
	result, err = s.orchestrator.Begin(s.GetContext(), update)
	s.NoError(err)
	s.Equal(service.BeginResultProcess, result)
	s.NoError(s.orchestrator.Complete(s.GetContext(), update))

	c, err := s.GetStores().CursorRepo.Get(s.GetContext(), "sub_123")
	s.NoError(err)
	s.Equal("evt_update", c.LastEventID)

	// Created between the two applied events, delivered after both
	late := s.newEnvelope("evt_late", types.EventTypeSubscriptionUpdated, now.Add(30*time.Second))
	result, err = s.orchestrator.Begin(s.GetContext(), late)
	s.NoError(err)
	s.Equal(service.BeginResultIgnored, result)

	stored, err := s.GetStores().WebhookEventRepo.GetByEventID(s.GetContext(), "evt_late")
	s.NoError(err)
	s.Equal(types.WebhookEventStatusIgnored, stored.Status)
	s.NotNil(stored.ProcessedAt)

	// The cursor still points at the newest applied event
	c, err = s.GetStores().CursorRepo.Get(s.GetContext(), "sub_123")
	s.NoError(err)
	s.Equal("evt_update", c.LastEventID)
	s.True(c.LastEventCreatedAt.Equal(update.CreatedAt))
}
