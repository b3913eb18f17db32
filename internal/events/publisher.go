package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/substring/auth-backend/pkg/retry"
	"github.com/twmb/franz-go/pkg/kgo"
)

const (
	// TopicUserRegistered carries account creation events
	TopicUserRegistered = "auth.user.registered"
	// TopicUserLogin carries successful login events
	TopicUserLogin = "auth.user.login"
	// TopicTokenReuse carries refresh token reuse detections. Consumers
	// treat these as security incidents.
	TopicTokenReuse = "auth.token.reuse_detected"
)

// Event is an audit/security event emitted by the auth flows
type Event struct {
	EventType string    `json:"event_type"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email,omitempty"`
	JTI       string    `json:"jti,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher publishes audit events. Implementations must be safe for
// concurrent use; publishing failures never fail the auth flow that
// produced the event.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *Event) error
	Close()
}

// KafkaPublisherConfig holds configuration for KafkaPublisher
type KafkaPublisherConfig struct {
	Brokers  []string
	ClientID string
	Retry    *retry.Config
}

// KafkaPublisher publishes events to Kafka via franz-go
type KafkaPublisher struct {
	client  *kgo.Client
	retrier *retry.Retrier
}

// NewKafkaPublisher creates a KafkaPublisher and verifies broker
// connectivity.
func NewKafkaPublisher(ctx context.Context, cfg *KafkaPublisherConfig) (*KafkaPublisher, error) {
	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.AllowAutoTopicCreation(),
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka client: %w", err)
	}

	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Kafka: %w", err)
	}

	return &KafkaPublisher{
		client:  client,
		retrier: retry.New(cfg.Retry),
	}, nil
}

// Publish sends the event, keyed by user id, retrying transient
// produce failures with backoff.
func (p *KafkaPublisher) Publish(ctx context.Context, topic string, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	record := &kgo.Record{
		Topic: topic,
		Key:   []byte(event.UserID),
		Value: payload,
	}

	result := p.retrier.Do(ctx, func(ctx context.Context) error {
		return p.client.ProduceSync(ctx, record).FirstErr()
	})
	if result.Err != nil {
		return fmt.Errorf("produce %s after %d attempts: %w", topic, result.Attempts, result.LastError)
	}
	return nil
}

// Close flushes and closes the underlying client
func (p *KafkaPublisher) Close() {
	p.client.Close()
}

// NopPublisher drops all events. Used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, topic string, event *Event) error { return nil }
func (NopPublisher) Close()                                                        {}
