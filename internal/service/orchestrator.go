package service

import (
	"context"

	"github.com/billsync/billsync/internal/domain/cursor"
	"github.com/billsync/billsync/internal/domain/webhookevent"
	"github.com/billsync/billsync/internal/types"
)

// BeginResult is the admission decision for an incoming event
type BeginResult string

const (
	// BeginResultProcess admits the event for processing
	BeginResultProcess BeginResult = "process"
	// BeginResultDuplicate reports an already-registered event id. Duplicates
	// must still be acknowledged with a 2xx, or the provider keeps retrying.
	BeginResultDuplicate BeginResult = "duplicate"
	// BeginResultIgnored reports a stale out-of-order event
	BeginResultIgnored BeginResult = "ignored"
)

// WebhookOrchestrator drives the event log state machine:
// received -> processing -> processed | failed | ignored_out_of_order.
// Callers (HTTP ingress or the async worker) drive Begin/Complete/Fail.
type WebhookOrchestrator interface {
	Begin(ctx context.Context, envelope *types.WebhookEnvelope) (BeginResult, error)
	Complete(ctx context.Context, envelope *types.WebhookEnvelope) error
	Fail(ctx context.Context, eventID string, reason string) error
}

type webhookOrchestrator struct {
	ServiceParams
}

func NewWebhookOrchestrator(params ServiceParams) WebhookOrchestrator {
	return &webhookOrchestrator{ServiceParams: params}
}

// Begin registers the event and runs the ordering gate. The atomic unique
// insert in CreateReceived is the concurrency-safety boundary: two deliveries
// racing on the same event id cannot both get past admission.
func (o *webhookOrchestrator) Begin(ctx context.Context, envelope *types.WebhookEnvelope) (BeginResult, error) {
	result, err := o.WebhookEventRepo.CreateReceived(ctx, webhookevent.FromEnvelope(envelope))
	if err != nil {
		return "", err
	}

	if result == webhookevent.CreateResultDuplicate {
		o.Logger.Infow("duplicate webhook event",
			"event_id", envelope.EventID,
			"event_type", envelope.EventType,
		)
		return BeginResultDuplicate, nil
	}

	// Events without a subscription id are not subject to ordering
	if envelope.SubscriptionID == "" {
		return BeginResultProcess, nil
	}

	c, err := o.CursorRepo.Get(ctx, envelope.SubscriptionID)
	if err != nil {
		return "", err
	}

	if ShouldIgnoreOutOfOrder(c, envelope) {
		o.Logger.Infow("ignoring out-of-order webhook event",
			"event_id", envelope.EventID,
			"event_type", envelope.EventType,
			"subscription_id", envelope.SubscriptionID,
			"event_created_at", envelope.CreatedAt,
			"cursor_event_id", c.LastEventID,
			"cursor_created_at", c.LastEventCreatedAt,
		)
		if err := o.WebhookEventRepo.MarkStatus(ctx, envelope.EventID, types.WebhookEventStatusIgnored, ""); err != nil {
			return "", err
		}
		return BeginResultIgnored, nil
	}

	return BeginResultProcess, nil
}

// Complete advances the subscription cursor and marks the event processed as
// one transactional unit, so a crash between the two writes cannot leave the
// cursor ahead of the log or vice versa.
func (o *webhookOrchestrator) Complete(ctx context.Context, envelope *types.WebhookEnvelope) error {
	return o.DB.WithTx(ctx, func(txCtx context.Context) error {
		if envelope.SubscriptionID != "" {
			if err := o.CursorRepo.Upsert(txCtx, cursor.FromEnvelope(envelope)); err != nil {
				return err
			}
		}
		return o.WebhookEventRepo.MarkStatus(txCtx, envelope.EventID, types.WebhookEventStatusProcessed, "")
	})
}

// Fail records the failure reason. The cursor is never touched here: a failed
// event advancing it would wrongly reject subsequent correct-order events.
func (o *webhookOrchestrator) Fail(ctx context.Context, eventID string, reason string) error {
	return o.WebhookEventRepo.MarkStatus(ctx, eventID, types.WebhookEventStatusFailed, reason)
}
