package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/prohmpiriya/auth-service/internal/domain"
	"github.com/prohmpiriya/auth-service/pkg/kafka"
	"github.com/prohmpiriya/auth-service/pkg/retry"
)

// Publisher defines the interface for publishing auth lifecycle events
type Publisher interface {
	// PublishUserRegistered publishes a user registered event
	PublishUserRegistered(ctx context.Context, user *domain.User) error

	// PublishUserLoggedIn publishes a user logged in event
	PublishUserLoggedIn(ctx context.Context, user *domain.User) error

	// PublishLoginLocked publishes an account lockout event
	PublishLoginLocked(ctx context.Context, subjectID string, until time.Time) error

	// PublishTokenRevoked publishes a token revocation event
	PublishTokenRevoked(ctx context.Context, subjectID, tokenID string) error

	// PublishSessionsInvalidated publishes a bulk session invalidation event
	PublishSessionsInvalidated(ctx context.Context, subjectID string, at time.Time) error

	// Close closes the event publisher
	Close() error
}

// KafkaPublisher implements Publisher using Kafka
type KafkaPublisher struct {
	producer    *kafka.Producer
	retrier     *retry.Retrier
	dlq         retry.DLQPublisher
	topic       string
	serviceName string
}

// KafkaPublisherConfig contains configuration for the event publisher
type KafkaPublisherConfig struct {
	Brokers     []string
	Topic       string
	ServiceName string
	ClientID    string
}

// NewKafkaPublisher creates a new Kafka event publisher
func NewKafkaPublisher(ctx context.Context, cfg *KafkaPublisherConfig) (*KafkaPublisher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("event publisher config is required")
	}

	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}

	topic := cfg.Topic
	if topic == "" {
		topic = "auth-events"
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "auth-service"
	}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "auth-service-producer"
	}

	producer, err := kafka.NewProducer(ctx, &kafka.ProducerConfig{
		Brokers:       cfg.Brokers,
		ClientID:      clientID,
		MaxRetries:    3,
		RetryInterval: 2 * time.Second,
		BatchSize:     100,
		LingerMs:      10,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	// Publishing is best-effort on the caller's path; keep the retry
	// window short.
	retrier := retry.New(&retry.Config{
		MaxRetries:      3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     time.Second,
		Multiplier:      2.0,
		JitterFactor:    0.1,
	})

	dlq := retry.NewKafkaDLQPublisher(
		&retry.KafkaProducerAdapter{Producer: producer},
		&retry.DLQConfig{TopicSuffix: ".dlq", Source: serviceName},
	)

	return &KafkaPublisher{
		producer:    producer,
		retrier:     retrier,
		dlq:         dlq,
		topic:       topic,
		serviceName: serviceName,
	}, nil
}

// PublishUserRegistered publishes a user registered event
func (p *KafkaPublisher) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	return p.publishEvent(ctx, domain.AuthEventUserRegistered, user.ID, map[string]string{
		"email": user.Email,
		"role":  string(user.Role),
	})
}

// PublishUserLoggedIn publishes a user logged in event
func (p *KafkaPublisher) PublishUserLoggedIn(ctx context.Context, user *domain.User) error {
	return p.publishEvent(ctx, domain.AuthEventUserLoggedIn, user.ID, map[string]string{
		"email": user.Email,
	})
}

// PublishLoginLocked publishes an account lockout event
func (p *KafkaPublisher) PublishLoginLocked(ctx context.Context, subjectID string, until time.Time) error {
	return p.publishEvent(ctx, domain.AuthEventUserLoginLocked, subjectID, map[string]string{
		"locked_until": until.UTC().Format(time.RFC3339),
	})
}

// PublishTokenRevoked publishes a token revocation event
func (p *KafkaPublisher) PublishTokenRevoked(ctx context.Context, subjectID, tokenID string) error {
	return p.publishEvent(ctx, domain.AuthEventTokenRevoked, subjectID, map[string]string{
		"token_id": tokenID,
	})
}

// PublishSessionsInvalidated publishes a bulk session invalidation event
func (p *KafkaPublisher) PublishSessionsInvalidated(ctx context.Context, subjectID string, at time.Time) error {
	return p.publishEvent(ctx, domain.AuthEventSessionsInvalidated, subjectID, map[string]string{
		"invalidated_at": strconv.FormatInt(at.Unix(), 10),
	})
}

// Close closes the event publisher
func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		p.producer.Close()
	}
	return nil
}

// publishEvent publishes an auth event to Kafka, keyed by subject so
// per-user ordering holds
func (p *KafkaPublisher) publishEvent(ctx context.Context, eventType domain.AuthEventType, subjectID string, payload map[string]string) error {
	eventID := uuid.New().String()
	event := domain.NewAuthEvent(eventType, subjectID, eventID, payload)

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	headers := map[string]string{
		"event_type":   string(eventType),
		"event_id":     eventID,
		"source":       p.serviceName,
		"content_type": "application/json",
	}

	msg := &kafka.Message{
		Topic:     p.topic,
		Key:       []byte(event.Key()),
		Value:     value,
		Headers:   headers,
		Timestamp: time.Now(),
	}

	result := p.retrier.Do(ctx, func(ctx context.Context) error {
		if err := p.producer.Produce(ctx, msg); err != nil {
			return retry.Retryable(err)
		}
		return nil
	})
	if result.Err != nil {
		p.deadLetter(ctx, msg, result)
		return fmt.Errorf("failed to publish %s event: %w", eventType, result.Err)
	}

	return nil
}

// deadLetter parks an event that outlived its produce retries. A park
// failure is swallowed: callers already treat publishing as best-effort.
func (p *KafkaPublisher) deadLetter(ctx context.Context, msg *kafka.Message, result *retry.Result) {
	_ = p.dlq.PublishToDLQ(ctx, &retry.DLQMessage{
		ID:            uuid.New().String(),
		OriginalTopic: msg.Topic,
		OriginalKey:   string(msg.Key),
		Payload:       msg.Value,
		Headers:       msg.Headers,
		Error:         result.Err.Error(),
		Attempts:      result.Attempts,
		LastAttemptAt: time.Now(),
	})
}

// NoOpPublisher is a no-op implementation of Publisher for tests and
// brokerless deployments
type NoOpPublisher struct{}

// NewNoOpPublisher creates a new no-op event publisher
func NewNoOpPublisher() *NoOpPublisher {
	return &NoOpPublisher{}
}

// PublishUserRegistered is a no-op
func (p *NoOpPublisher) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	return nil
}

// PublishUserLoggedIn is a no-op
func (p *NoOpPublisher) PublishUserLoggedIn(ctx context.Context, user *domain.User) error {
	return nil
}

// PublishLoginLocked is a no-op
func (p *NoOpPublisher) PublishLoginLocked(ctx context.Context, subjectID string, until time.Time) error {
	return nil
}

// PublishTokenRevoked is a no-op
func (p *NoOpPublisher) PublishTokenRevoked(ctx context.Context, subjectID, tokenID string) error {
	return nil
}

// PublishSessionsInvalidated is a no-op
func (p *NoOpPublisher) PublishSessionsInvalidated(ctx context.Context, subjectID string, at time.Time) error {
	return nil
}

// Close is a no-op
func (p *NoOpPublisher) Close() error {
	return nil
}
