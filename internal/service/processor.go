package service

import (
	"context"

	"github.com/billsync/billsync/internal/types"
)

// EventProcessor runs the event-type branch for one admitted event. The
// production implementation lives in the provider integration layer; the
// worker and the replay tool both drive it.
type EventProcessor interface {
	ProcessEvent(ctx context.Context, envelope *types.WebhookEnvelope) error
}
