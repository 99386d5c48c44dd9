package events

import (
	"context"
	"testing"
	"time"

	"github.com/prohmpiriya/auth-service/internal/domain"
)

func TestNewKafkaPublisher_ConfigErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("nil config", func(t *testing.T) {
		if _, err := NewKafkaPublisher(ctx, nil); err == nil {
			t.Error("NewKafkaPublisher(nil) expected error, got nil")
		}
	})

	t.Run("missing brokers", func(t *testing.T) {
		if _, err := NewKafkaPublisher(ctx, &KafkaPublisherConfig{}); err == nil {
			t.Error("NewKafkaPublisher() with no brokers expected error, got nil")
		}
	})
}

func TestNoOpPublisher(t *testing.T) {
	p := NewNoOpPublisher()
	ctx := context.Background()
	user := &domain.User{ID: "u1", Email: "u1@example.com", Role: domain.RoleUser}

	if err := p.PublishUserRegistered(ctx, user); err != nil {
		t.Errorf("PublishUserRegistered() error = %v", err)
	}
	if err := p.PublishUserLoggedIn(ctx, user); err != nil {
		t.Errorf("PublishUserLoggedIn() error = %v", err)
	}
	if err := p.PublishLoginLocked(ctx, "u1", time.Now()); err != nil {
		t.Errorf("PublishLoginLocked() error = %v", err)
	}
	if err := p.PublishTokenRevoked(ctx, "u1", "jti-1"); err != nil {
		t.Errorf("PublishTokenRevoked() error = %v", err)
	}
	if err := p.PublishSessionsInvalidated(ctx, "u1", time.Now()); err != nil {
		t.Errorf("PublishSessionsInvalidated() error = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
