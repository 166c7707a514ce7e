package config

import (
	"time"

	"github.com/billsync/billsync/internal/types"
)

// Webhook represents the configuration for the webhook processing pipeline
type Webhook struct {
	Enabled         bool             `mapstructure:"enabled" default:"true"`
	Topic           string           `mapstructure:"topic" default:"webhook_events"`
	DeadLetterTopic string           `mapstructure:"dead_letter_topic" default:"webhook_events_dlq"`
	PubSub          types.PubSubType `mapstructure:"pubsub" default:"memory"`

	// MaxAttempts is the delivery attempt ceiling after which an event is
	// dead-lettered instead of retried.
	MaxAttempts     int           `mapstructure:"max_attempts" default:"7"`
	InitialInterval time.Duration `mapstructure:"initial_interval" default:"1s"`
	MaxInterval     time.Duration `mapstructure:"max_interval" default:"1m"`
	Multiplier      float64       `mapstructure:"multiplier" default:"2"`
	MaxElapsedTime  time.Duration `mapstructure:"max_elapsed_time" default:"10m"`
}

// DefaultWebhookConfig returns the webhook pipeline defaults used when no
// config file overrides them.
func DefaultWebhookConfig() Webhook {
	return Webhook{
		Enabled:         true,
		Topic:           "webhook_events",
		DeadLetterTopic: "webhook_events_dlq",
		PubSub:          types.MemoryPubSub,
		MaxAttempts:     7,
		InitialInterval: time.Second,
		MaxInterval:     time.Minute,
		Multiplier:      2,
		MaxElapsedTime:  10 * time.Minute,
	}
}
