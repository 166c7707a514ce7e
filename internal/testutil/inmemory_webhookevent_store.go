package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/billsync/billsync/internal/domain/webhookevent"
	ierr "github.com/billsync/billsync/internal/errors"
	"github.com/billsync/billsync/internal/types"
)

// InMemoryWebhookEventStore implements webhookevent.Repository
type InMemoryWebhookEventStore struct {
	mu     sync.RWMutex
	events map[string]*webhookevent.WebhookEvent
}

// NewInMemoryWebhookEventStore creates a new in-memory webhook event store
func NewInMemoryWebhookEventStore() *InMemoryWebhookEventStore {
	return &InMemoryWebhookEventStore{
		events: make(map[string]*webhookevent.WebhookEvent),
	}
}

func (s *InMemoryWebhookEventStore) CreateReceived(ctx context.Context, event *webhookevent.WebhookEvent) (webhookevent.CreateResult, error) {
	if event == nil {
		return "", ierr.NewError("event cannot be nil").
			WithHint("Please provide a valid webhook event").
			Mark(ierr.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.events[event.EventID]; exists {
		// Existing row stays untouched, mirroring the unique-insert semantics
		return webhookevent.CreateResultDuplicate, nil
	}

	copied := *event
	s.events[event.EventID] = &copied
	return webhookevent.CreateResultCreated, nil
}

func (s *InMemoryWebhookEventStore) MarkStatus(ctx context.Context, eventID string, status types.WebhookEventStatus, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, exists := s.events[eventID]
	if !exists {
		return ierr.NewErrorf("webhook event %s not found", eventID).
			Mark(ierr.ErrNotFound)
	}

	now := time.Now().UTC()
	event.Status = status
	event.ErrorMessage = errMsg
	event.UpdatedAt = now
	if status.IsTerminal() {
		event.ProcessedAt = &now
	}
	return nil
}

func (s *InMemoryWebhookEventStore) MarkProcessing(ctx context.Context, eventID string) (*webhookevent.WebhookEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, exists := s.events[eventID]
	if !exists {
		return nil, ierr.NewErrorf("webhook event %s not found", eventID).
			Mark(ierr.ErrNotFound)
	}

	event.Status = types.WebhookEventStatusProcessing
	event.DeliveryAttempts++
	event.UpdatedAt = time.Now().UTC()

	copied := *event
	return &copied, nil
}

func (s *InMemoryWebhookEventStore) GetByEventID(ctx context.Context, eventID string) (*webhookevent.WebhookEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	event, exists := s.events[eventID]
	if !exists {
		return nil, ierr.NewErrorf("webhook event %s not found", eventID).
			Mark(ierr.ErrNotFound)
	}

	copied := *event
	return &copied, nil
}

func (s *InMemoryWebhookEventStore) ListReplayableFailed(ctx context.Context, limit int) ([]*webhookevent.WebhookEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*webhookevent.WebhookEvent
	for _, event := range s.events {
		if event.Status != types.WebhookEventStatusFailed {
			continue
		}
		copied := *event
		result = append(result, &copied)
		if len(result) >= limit {
			break
		}
	}
	return result, nil
}

// Clear removes all events from the store
func (s *InMemoryWebhookEventStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[string]*webhookevent.WebhookEvent)
}
