package handler

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/billsync/billsync/internal/domain/webhookevent"
	ierr "github.com/billsync/billsync/internal/errors"
	"github.com/billsync/billsync/internal/service"
	"github.com/billsync/billsync/internal/testutil"
	"github.com/billsync/billsync/internal/types"
	"github.com/billsync/billsync/internal/webhook/publisher"
	"github.com/stretchr/testify/suite"
)

// flakyProcessor fails a fixed number of times before succeeding
type flakyProcessor struct {
	failuresLeft int
	calls        int
}

func (p *flakyProcessor) ProcessEvent(ctx context.Context, envelope *types.WebhookEnvelope) error {
	p.calls++
	if p.failuresLeft > 0 {
		p.failuresLeft--
		return ierr.NewError("simulated downstream failure").Mark(ierr.ErrProviderAPI)
	}
	return nil
}

type WorkerHandlerSuite struct {
	testutil.BaseServiceTestSuite
	pubSub       *testutil.InMemoryPubSub
	jobPublisher publisher.JobPublisher
	processor    *flakyProcessor
	handler      *handler
}

func TestWorkerHandler(t *testing.T) {
	suite.Run(t, new(WorkerHandlerSuite))
}

func (s *WorkerHandlerSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()

	s.pubSub = testutil.NewInMemoryPubSub()

	var err error
	s.jobPublisher, err = publisher.NewPublisher(s.pubSub, s.GetConfig(), s.GetLogger())
	s.NoError(err)

	s.processor = &flakyProcessor{}
	params := s.GetServiceParams()
	s.handler = &handler{
		pubSub:       s.pubSub,
		config:       &s.GetConfig().Webhook,
		eventRepo:    params.WebhookEventRepo,
		orchestrator: service.NewWebhookOrchestrator(params),
		processor:    s.processor,
		publisher:    s.jobPublisher,
		logger:       s.GetLogger(),
	}
}

func (s *WorkerHandlerSuite) seedReceivedEvent(eventID string) {
	event := &webhookevent.WebhookEvent{
		EventID:        eventID,
		EventType:      types.EventTypeSubscriptionUpdated,
		EventCreatedAt: s.GetNow(),
		OrganizationID: "org_test",
		SubscriptionID: "sub_123",
		Status:         types.WebhookEventStatusReceived,
		Payload:        json.RawMessage(`{}`),
	}
	result, err := s.GetStores().WebhookEventRepo.CreateReceived(s.GetContext(), event)
	s.NoError(err)
	s.Equal(webhookevent.CreateResultCreated, result)
}

func (s *WorkerHandlerSuite) newJobMessage(eventID string) *message.Message {
	payload, err := json.Marshal(types.ProcessingJob{EventID: eventID})
	s.NoError(err)
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(s.GetContext())
	return msg
}

func (s *WorkerHandlerSuite) TestSuccessfulProcessingMarksProcessedAndAdvancesCursor() {
	s.seedReceivedEvent("evt_1")

	s.NoError(s.handler.processMessage(s.newJobMessage("evt_1")))

	stored, err := s.GetStores().WebhookEventRepo.GetByEventID(s.GetContext(), "evt_1")
	s.NoError(err)
	s.Equal(types.WebhookEventStatusProcessed, stored.Status)
	s.Equal(1, stored.DeliveryAttempts)

	c, err := s.GetStores().CursorRepo.Get(s.GetContext(), "sub_123")
	s.NoError(err)
	s.NotNil(c)
	s.Equal("evt_1", c.LastEventID)
}

func (s *WorkerHandlerSuite) TestFailureMarksFailedAndReturnsErrorForRetry() {
	s.seedReceivedEvent("evt_1")
	s.processor.failuresLeft = 1

	err := s.handler.processMessage(s.newJobMessage("evt_1"))
	s.Error(err)

	stored, err2 := s.GetStores().WebhookEventRepo.GetByEventID(s.GetContext(), "evt_1")
	s.NoError(err2)
	s.Equal(types.WebhookEventStatusFailed, stored.Status)
	s.Equal(1, stored.DeliveryAttempts)

	// Cursor untouched on failure
	c, err2 := s.GetStores().CursorRepo.Get(s.GetContext(), "sub_123")
	s.NoError(err2)
	s.Nil(c)

	// Redelivery succeeds and settles the event
	s.NoError(s.handler.processMessage(s.newJobMessage("evt_1")))
	stored, err2 = s.GetStores().WebhookEventRepo.GetByEventID(s.GetContext(), "evt_1")
	s.NoError(err2)
	s.Equal(types.WebhookEventStatusProcessed, stored.Status)
	s.Equal(2, stored.DeliveryAttempts)
}

func (s *WorkerHandlerSuite) TestExhaustedRetriesDeadLetterTheEvent() {
	s.seedReceivedEvent("evt_1")
	maxAttempts := s.GetConfig().Webhook.MaxAttempts
	s.processor.failuresLeft = maxAttempts + 1

	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		lastErr = s.handler.processMessage(s.newJobMessage("evt_1"))
	}
	// The final attempt dead-letters instead of asking for another retry
	s.NoError(lastErr)

	stored, err := s.GetStores().WebhookEventRepo.GetByEventID(s.GetContext(), "evt_1")
	s.NoError(err)
	s.Equal(types.WebhookEventStatusFailed, stored.Status)
	s.Equal(maxAttempts, stored.DeliveryAttempts)

	letters := s.pubSub.GetMessages(s.GetConfig().Webhook.DeadLetterTopic)
	s.Len(letters, 1)

	var letter types.DeadLetter
	s.NoError(json.Unmarshal(letters[0].Payload, &letter))
	s.Equal("evt_1", letter.EventID)
	s.NotEmpty(letter.Reason)
}

func (s *WorkerHandlerSuite) TestTerminalEventIsAcknowledgedWithoutReprocessing() {
	s.seedReceivedEvent("evt_1")
	s.NoError(s.handler.processMessage(s.newJobMessage("evt_1")))
	s.Equal(1, s.processor.calls)

	// Redelivered job for an already processed event is a no-op
	s.NoError(s.handler.processMessage(s.newJobMessage("evt_1")))
	s.Equal(1, s.processor.calls)

	stored, err := s.GetStores().WebhookEventRepo.GetByEventID(s.GetContext(), "evt_1")
	s.NoError(err)
	s.Equal(1, stored.DeliveryAttempts)
}

func (s *WorkerHandlerSuite) TestMalformedJobIsNotRetried() {
	msg := message.NewMessage(watermill.NewUUID(), []byte(`{not json`))
	msg.SetContext(s.GetContext())
	s.NoError(s.handler.processMessage(msg))
}

func (s *WorkerHandlerSuite) TestUnknownEventIDRetriesThenDeadLetters() {
	maxAttempts := s.GetConfig().Webhook.MaxAttempts
	msg := s.newJobMessage("evt_missing")

	for i := 1; i < maxAttempts; i++ {
		err := s.handler.processMessage(msg)
		s.Error(err)
		s.True(ierr.IsNotFound(err))
		s.Empty(s.pubSub.GetMessages(s.GetConfig().Webhook.DeadLetterTopic))
	}

	// Final delivery drains the job to the dead letter topic and acks
	s.NoError(s.handler.processMessage(msg))

	deadLetters := s.pubSub.GetMessages(s.GetConfig().Webhook.DeadLetterTopic)
	s.Require().Len(deadLetters, 1)

	var deadLetter types.DeadLetter
	s.NoError(json.Unmarshal(deadLetters[0].Payload, &deadLetter))
	s.Equal("evt_missing", deadLetter.EventID)
	s.NotEmpty(deadLetter.Reason)
}
