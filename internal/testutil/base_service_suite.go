package testutil

import (
	"context"
	"time"

	"github.com/billsync/billsync/internal/config"
	"github.com/billsync/billsync/internal/domain/billing"
	"github.com/billsync/billsync/internal/domain/cursor"
	"github.com/billsync/billsync/internal/domain/webhookevent"
	"github.com/billsync/billsync/internal/logger"
	"github.com/billsync/billsync/internal/postgres"
	"github.com/billsync/billsync/internal/service"
	"github.com/billsync/billsync/internal/types"
	"github.com/billsync/billsync/internal/validator"
	"github.com/stretchr/testify/suite"
)

// Stores holds all the repository interfaces for testing
type Stores struct {
	WebhookEventRepo webhookevent.Repository
	CursorRepo       cursor.Repository
	SubscriptionRepo billing.Repository
}

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx            context.Context
	stores         Stores
	providerClient *MockProviderClient
	db             postgres.IClient
	logger         *logger.Logger
	config         *config.Configuration
	now            time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	validator.NewValidator()

	cfg := config.GetDefaultConfig()
	cfg.Stripe = config.StripeConfig{
		SecretKey:     "sk_test_dummy",
		WebhookSecret: "whsec_test_dummy",
		ProPriceID:    "price_pro_test",
	}
	s.config = cfg

	var err error
	s.logger, err = logger.NewLogger()
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = SetupContext()
	s.setupStores()
	s.now = time.Now().UTC()
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.clearStores()
}

func (s *BaseServiceTestSuite) setupStores() {
	s.stores = Stores{
		WebhookEventRepo: NewInMemoryWebhookEventStore(),
		CursorRepo:       NewInMemoryCursorStore(),
		SubscriptionRepo: NewInMemorySubscriptionStore(),
	}
	s.providerClient = NewMockProviderClient()
	s.db = NewMockPostgresClient(s.logger)
}

func (s *BaseServiceTestSuite) clearStores() {
	s.stores.WebhookEventRepo.(*InMemoryWebhookEventStore).Clear()
	s.stores.CursorRepo.(*InMemoryCursorStore).Clear()
	s.stores.SubscriptionRepo.(*InMemorySubscriptionStore).Clear()
	s.providerClient.Clear()
}

// GetServiceParams wires the in-memory stores into service dependencies
func (s *BaseServiceTestSuite) GetServiceParams() service.ServiceParams {
	return service.ServiceParams{
		Logger:           s.logger,
		Config:           s.config,
		DB:               s.db,
		WebhookEventRepo: s.stores.WebhookEventRepo,
		CursorRepo:       s.stores.CursorRepo,
		SubscriptionRepo: s.stores.SubscriptionRepo,
		ProviderClient:   s.providerClient,
	}
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetStores returns the test stores
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetProviderClient returns the mock provider client
func (s *BaseServiceTestSuite) GetProviderClient() *MockProviderClient {
	return s.providerClient
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetConfig returns the test configuration
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetNow returns the timestamp captured at test setup
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now
}

// GetUUID returns a fresh unique id
func (s *BaseServiceTestSuite) GetUUID() string {
	return types.GenerateUUID()
}
