package repository

import (
	"github.com/billsync/billsync/internal/domain/billing"
	"github.com/billsync/billsync/internal/domain/cursor"
	"github.com/billsync/billsync/internal/domain/webhookevent"
	"github.com/billsync/billsync/internal/logger"
	"github.com/billsync/billsync/internal/postgres"
	postgresRepo "github.com/billsync/billsync/internal/repository/postgres"
)

func NewWebhookEventRepository(db *postgres.DB, logger *logger.Logger) webhookevent.Repository {
	return postgresRepo.NewWebhookEventRepository(db, logger)
}

func NewCursorRepository(db *postgres.DB, logger *logger.Logger) cursor.Repository {
	return postgresRepo.NewCursorRepository(db, logger)
}

func NewSubscriptionRepository(db *postgres.DB, logger *logger.Logger) billing.Repository {
	return postgresRepo.NewSubscriptionRepository(db, logger)
}
