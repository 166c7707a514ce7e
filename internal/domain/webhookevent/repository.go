package webhookevent

import (
	"context"

	"github.com/billsync/billsync/internal/types"
)

// CreateResult reports the outcome of registering an event in the log
type CreateResult string

const (
	CreateResultCreated   CreateResult = "created"
	CreateResultDuplicate CreateResult = "duplicate"
)

type Repository interface {
	// CreateReceived inserts a new event log row. A uniqueness violation on the
	// event id reports CreateResultDuplicate with a nil error and must not
	// mutate the existing row. This is the exactly-once admission control.
	CreateReceived(ctx context.Context, event *WebhookEvent) (CreateResult, error)

	// MarkStatus transitions the event status. Idempotent; moving to a terminal
	// status stamps the processed-at time. errMsg is stored for failed events.
	MarkStatus(ctx context.Context, eventID string, status types.WebhookEventStatus, errMsg string) error

	// MarkProcessing claims the event for a worker: sets status processing and
	// increments the delivery attempt counter. Returns the updated row so the
	// caller can apply the attempt ceiling.
	MarkProcessing(ctx context.Context, eventID string) (*WebhookEvent, error)

	// GetByEventID returns the stored event including its raw payload.
	// Returns ErrNotFound when no such event exists.
	GetByEventID(ctx context.Context, eventID string) (*WebhookEvent, error)

	// ListReplayableFailed returns up to limit events in failed status.
	// No ordering guarantee beyond the status filter.
	ListReplayableFailed(ctx context.Context, limit int) ([]*WebhookEvent, error)
}
