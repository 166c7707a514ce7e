package postgres

import (
	"context"
	"database/sql"

	"github.com/billsync/billsync/internal/domain/billing"
	ierr "github.com/billsync/billsync/internal/errors"
	"github.com/billsync/billsync/internal/logger"
	"github.com/billsync/billsync/internal/postgres"
)

type subscriptionRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewSubscriptionRepository(db *postgres.DB, logger *logger.Logger) billing.Repository {
	return &subscriptionRepository{db: db, logger: logger}
}

func (r *subscriptionRepository) GetByOrganizationID(ctx context.Context, organizationID string) (*billing.Subscription, error) {
	query := `SELECT * FROM subscriptions WHERE organization_id = $1`
	return r.getOne(ctx, query, organizationID)
}

func (r *subscriptionRepository) GetByProviderSubscriptionID(ctx context.Context, providerSubscriptionID string) (*billing.Subscription, error) {
	query := `SELECT * FROM subscriptions WHERE provider_subscription_id = $1`
	return r.getOne(ctx, query, providerSubscriptionID)
}

func (r *subscriptionRepository) getOne(ctx context.Context, query string, arg interface{}) (*billing.Subscription, error) {
	var sub billing.Subscription
	err := r.db.GetContext(ctx, &sub, query, arg)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get subscription").
			Mark(ierr.ErrDatabase)
	}
	return &sub, nil
}

func (r *subscriptionRepository) Upsert(ctx context.Context, sub *billing.Subscription) error {
	query := `
		INSERT INTO subscriptions (
			organization_id,
			plan,
			status,
			provider_customer_id,
			provider_subscription_id,
			current_period_end,
			created_at,
			updated_at
		) VALUES (
			:organization_id,
			:plan,
			:status,
			:provider_customer_id,
			:provider_subscription_id,
			:current_period_end,
			:created_at,
			:updated_at
		)
		ON CONFLICT (organization_id) DO UPDATE SET
			plan = EXCLUDED.plan,
			status = EXCLUDED.status,
			provider_customer_id = EXCLUDED.provider_customer_id,
			provider_subscription_id = EXCLUDED.provider_subscription_id,
			current_period_end = EXCLUDED.current_period_end,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.NamedExecContext(ctx, query, sub)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to upsert subscription").
			Mark(ierr.ErrDatabase)
	}

	return nil
}
