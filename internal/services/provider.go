package services

import (
	"context"

	"github.com/CyberwizD/Distributed-Notification-System/services/catalog_notifier/internal/models"
)

// Dispatcher delivers composed messages through a push provider.
type Dispatcher interface {
	SendToTokens(ctx context.Context, tokens []string, msg models.NotificationMessage, opts models.SendOptions) (models.DispatchResult, error)
	SendToTopic(ctx context.Context, topic string, msg models.NotificationMessage) (models.DispatchResult, error)
	// Probe sends a silent payload to one token; a nil error means the token is deliverable.
	Probe(ctx context.Context, token string) error
}

// TokenRegistry is the collection of registered recipient tokens.
type TokenRegistry interface {
	ListTokens(ctx context.Context) ([]models.RecipientToken, error)
	DeleteTokens(ctx context.Context, ids []string) error
}

// HistoryStore persists notification history records.
type HistoryStore interface {
	Append(ctx context.Context, rec models.HistoryRecord) error
}

// EventClaimer reports whether an event ID is being handled for the first time.
type EventClaimer interface {
	ClaimEvent(ctx context.Context, eventID string) (bool, error)
}
