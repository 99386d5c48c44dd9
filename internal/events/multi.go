package events

import (
	"context"
	"time"

	"github.com/prohmpiriya/auth-service/internal/domain"
)

// MultiPublisher fans each event out to every wrapped publisher. All
// publishers run even when one fails; the first error wins.
type MultiPublisher struct {
	publishers []Publisher
}

// NewMultiPublisher creates a publisher that broadcasts to all given publishers
func NewMultiPublisher(publishers ...Publisher) *MultiPublisher {
	return &MultiPublisher{publishers: publishers}
}

// PublishUserRegistered publishes to all wrapped publishers
func (m *MultiPublisher) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	var firstErr error
	for _, p := range m.publishers {
		if err := p.PublishUserRegistered(ctx, user); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// PublishUserLoggedIn publishes to all wrapped publishers
func (m *MultiPublisher) PublishUserLoggedIn(ctx context.Context, user *domain.User) error {
	var firstErr error
	for _, p := range m.publishers {
		if err := p.PublishUserLoggedIn(ctx, user); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// PublishLoginLocked publishes to all wrapped publishers
func (m *MultiPublisher) PublishLoginLocked(ctx context.Context, subjectID string, until time.Time) error {
	var firstErr error
	for _, p := range m.publishers {
		if err := p.PublishLoginLocked(ctx, subjectID, until); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// PublishTokenRevoked publishes to all wrapped publishers
func (m *MultiPublisher) PublishTokenRevoked(ctx context.Context, subjectID, tokenID string) error {
	var firstErr error
	for _, p := range m.publishers {
		if err := p.PublishTokenRevoked(ctx, subjectID, tokenID); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// PublishSessionsInvalidated publishes to all wrapped publishers
func (m *MultiPublisher) PublishSessionsInvalidated(ctx context.Context, subjectID string, at time.Time) error {
	var firstErr error
	for _, p := range m.publishers {
		if err := p.PublishSessionsInvalidated(ctx, subjectID, at); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close closes all wrapped publishers
func (m *MultiPublisher) Close() error {
	var firstErr error
	for _, p := range m.publishers {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
