package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/billsync/billsync/internal/domain/webhookevent"
	ierr "github.com/billsync/billsync/internal/errors"
	"github.com/billsync/billsync/internal/logger"
	"github.com/billsync/billsync/internal/postgres"
	"github.com/billsync/billsync/internal/types"
	"github.com/lib/pq"
)

// pqUniqueViolation is the postgres error code for a unique constraint violation
const pqUniqueViolation = "23505"

type webhookEventRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewWebhookEventRepository(db *postgres.DB, logger *logger.Logger) webhookevent.Repository {
	return &webhookEventRepository{db: db, logger: logger}
}

func (r *webhookEventRepository) CreateReceived(ctx context.Context, event *webhookevent.WebhookEvent) (webhookevent.CreateResult, error) {
	query := `
		INSERT INTO webhook_events (
			event_id,
			event_type,
			event_created_at,
			organization_id,
			subscription_id,
			status,
			payload,
			delivery_attempts,
			created_at,
			updated_at
		) VALUES (
			:event_id,
			:event_type,
			:event_created_at,
			:organization_id,
			:subscription_id,
			:status,
			:payload,
			:delivery_attempts,
			:created_at,
			:updated_at
		)
	`

	_, err := r.db.NamedExecContext(ctx, query, event)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == pqUniqueViolation {
			r.logger.Debugw("duplicate webhook event delivery",
				"event_id", event.EventID,
				"event_type", event.EventType,
			)
			return webhookevent.CreateResultDuplicate, nil
		}
		return "", ierr.WithError(err).
			WithHint("Failed to register webhook event").
			Mark(ierr.ErrDatabase)
	}

	return webhookevent.CreateResultCreated, nil
}

func (r *webhookEventRepository) MarkStatus(ctx context.Context, eventID string, status types.WebhookEventStatus, errMsg string) error {
	query := `
		UPDATE webhook_events SET
			status = :status,
			error_message = :error_message,
			processed_at = :processed_at,
			updated_at = :updated_at
		WHERE event_id = :event_id
	`

	var processedAt *time.Time
	if status.IsTerminal() {
		now := time.Now().UTC()
		processedAt = &now
	}

	_, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"event_id":      eventID,
		"status":        status,
		"error_message": errMsg,
		"processed_at":  processedAt,
		"updated_at":    time.Now().UTC(),
	})
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update webhook event status").
			Mark(ierr.ErrDatabase)
	}

	return nil
}

func (r *webhookEventRepository) MarkProcessing(ctx context.Context, eventID string) (*webhookevent.WebhookEvent, error) {
	query := `
		UPDATE webhook_events SET
			status = :status,
			delivery_attempts = delivery_attempts + 1,
			updated_at = :updated_at
		WHERE event_id = :event_id
		RETURNING *
	`

	rows, err := r.db.NamedQueryContext(ctx, query, map[string]interface{}{
		"event_id":   eventID,
		"status":     types.WebhookEventStatusProcessing,
		"updated_at": time.Now().UTC(),
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to claim webhook event").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.NewErrorf("webhook event %s not found", eventID).
			Mark(ierr.ErrNotFound)
	}

	var event webhookevent.WebhookEvent
	if err := rows.StructScan(&event); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to scan webhook event").
			Mark(ierr.ErrDatabase)
	}

	return &event, nil
}

func (r *webhookEventRepository) GetByEventID(ctx context.Context, eventID string) (*webhookevent.WebhookEvent, error) {
	query := `SELECT * FROM webhook_events WHERE event_id = $1`

	var event webhookevent.WebhookEvent
	err := r.db.GetContext(ctx, &event, query, eventID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewErrorf("webhook event %s not found", eventID).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get webhook event").
			Mark(ierr.ErrDatabase)
	}

	return &event, nil
}

func (r *webhookEventRepository) ListReplayableFailed(ctx context.Context, limit int) ([]*webhookevent.WebhookEvent, error) {
	query := `SELECT * FROM webhook_events WHERE status = $1 LIMIT $2`

	events := make([]*webhookevent.WebhookEvent, 0, limit)
	err := r.db.SelectContext(ctx, &events, query, types.WebhookEventStatusFailed, limit)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list failed webhook events").
			Mark(ierr.ErrDatabase)
	}

	return events, nil
}
