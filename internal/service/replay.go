package service

import (
	"context"

	"github.com/billsync/billsync/internal/domain/webhookevent"
	"github.com/billsync/billsync/internal/types"
	"github.com/samber/lo"
)

// ReplayResult summarizes one replay run
type ReplayResult struct {
	Scanned   int `json:"scanned"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// ReplayService re-runs events stuck in failed status through the processing
// branch. Replay bypasses the ordering gate on purpose: an operator asking for
// a replay wants the stored payload applied, and the sync step itself is
// tolerant of re-application.
type ReplayService interface {
	ReplayFailed(ctx context.Context, limit int) (*ReplayResult, error)
}

type replayService struct {
	ServiceParams
	processor EventProcessor
}

func NewReplayService(params ServiceParams, processor EventProcessor) ReplayService {
	return &replayService{
		ServiceParams: params,
		processor:     processor,
	}
}

func (s *replayService) ReplayFailed(ctx context.Context, limit int) (*ReplayResult, error) {
	events, err := s.WebhookEventRepo.ListReplayableFailed(ctx, limit)
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("replaying failed events",
		"count", len(events),
		"event_ids", lo.Map(events, func(e *webhookevent.WebhookEvent, _ int) string {
			return e.EventID
		}),
	)

	result := &ReplayResult{Scanned: len(events)}
	for _, event := range events {
		if err := s.replayOne(ctx, event.EventID); err != nil {
			// Keep going: one poisoned payload must not block the batch
			s.Logger.Errorw("replay failed for event",
				"event_id", event.EventID,
				"event_type", event.EventType,
				"error", err,
			)
			result.Failed++
			continue
		}
		result.Succeeded++
	}

	s.Logger.Infow("replay run completed",
		"scanned", result.Scanned,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
	)
	return result, nil
}

func (s *replayService) replayOne(ctx context.Context, eventID string) error {
	// Re-read the stored row rather than trusting the listing snapshot; a
	// concurrent worker may have moved the event on since
	event, err := s.WebhookEventRepo.GetByEventID(ctx, eventID)
	if err != nil {
		return err
	}
	if event.Status != types.WebhookEventStatusFailed {
		s.Logger.Infow("skipping replay, event no longer failed",
			"event_id", event.EventID,
			"status", event.Status,
		)
		return nil
	}

	if err := s.processor.ProcessEvent(ctx, event.ToEnvelope()); err != nil {
		return err
	}

	return s.WebhookEventRepo.MarkStatus(ctx, event.EventID, types.WebhookEventStatusProcessed, "replayed manually")
}
