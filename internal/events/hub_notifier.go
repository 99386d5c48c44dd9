package events

import (
	"context"
	"time"

	"github.com/prohmpiriya/auth-service/internal/domain"
	"github.com/prohmpiriya/auth-service/internal/ws"
)

// HubNotifier mirrors session lifecycle events onto live WebSocket
// connections, so a subject's other devices learn about revocations and
// resets without polling. Account-level events have no connected audience
// and are ignored.
type HubNotifier struct {
	hub *ws.Hub
}

// NewHubNotifier creates a publisher that forwards events to a hub
func NewHubNotifier(hub *ws.Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

// PublishUserRegistered is a no-op for the hub
func (n *HubNotifier) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	return nil
}

// PublishUserLoggedIn is a no-op for the hub
func (n *HubNotifier) PublishUserLoggedIn(ctx context.Context, user *domain.User) error {
	return nil
}

// PublishLoginLocked is a no-op for the hub
func (n *HubNotifier) PublishLoginLocked(ctx context.Context, subjectID string, until time.Time) error {
	return nil
}

// PublishTokenRevoked notifies the subject's live connections
func (n *HubNotifier) PublishTokenRevoked(ctx context.Context, subjectID, tokenID string) error {
	data, err := ws.NewEnvelope(ws.MsgTypeTokenRevoked, map[string]string{
		"subject_id": subjectID,
		"token_id":   tokenID,
	})
	if err != nil {
		return err
	}

	n.hub.NotifyUser(subjectID, data)
	return nil
}

// PublishSessionsInvalidated notifies the subject's live connections
func (n *HubNotifier) PublishSessionsInvalidated(ctx context.Context, subjectID string, at time.Time) error {
	data, err := ws.NewEnvelope(ws.MsgTypeSessionsInvalidated, map[string]string{
		"subject_id":     subjectID,
		"invalidated_at": at.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	n.hub.NotifyUser(subjectID, data)
	return nil
}

// Close is a no-op; the hub lifecycle is owned by the caller
func (n *HubNotifier) Close() error {
	return nil
}
