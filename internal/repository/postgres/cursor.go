package postgres

import (
	"context"
	"database/sql"

	"github.com/billsync/billsync/internal/domain/cursor"
	ierr "github.com/billsync/billsync/internal/errors"
	"github.com/billsync/billsync/internal/logger"
	"github.com/billsync/billsync/internal/postgres"
)

type cursorRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewCursorRepository(db *postgres.DB, logger *logger.Logger) cursor.Repository {
	return &cursorRepository{db: db, logger: logger}
}

func (r *cursorRepository) Get(ctx context.Context, subscriptionID string) (*cursor.Cursor, error) {
	query := `SELECT * FROM subscription_cursors WHERE subscription_id = $1`

	var c cursor.Cursor
	err := r.db.GetContext(ctx, &c, query, subscriptionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get subscription cursor").
			Mark(ierr.ErrDatabase)
	}

	return &c, nil
}

func (r *cursorRepository) Upsert(ctx context.Context, c *cursor.Cursor) error {
	query := `
		INSERT INTO subscription_cursors (
			subscription_id,
			last_event_id,
			last_event_type,
			last_event_created_at,
			updated_at
		) VALUES (
			:subscription_id,
			:last_event_id,
			:last_event_type,
			:last_event_created_at,
			:updated_at
		)
		ON CONFLICT (subscription_id) DO UPDATE SET
			last_event_id = EXCLUDED.last_event_id,
			last_event_type = EXCLUDED.last_event_type,
			last_event_created_at = EXCLUDED.last_event_created_at,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.NamedExecContext(ctx, query, c)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to upsert subscription cursor").
			Mark(ierr.ErrDatabase)
	}

	return nil
}
