package services

import (
	"context"
	"io"
	"log/slog"

	"github.com/stretchr/testify/mock"

	"github.com/CyberwizD/Distributed-Notification-System/services/catalog_notifier/internal/models"
)

type mockRegistry struct {
	mock.Mock
}

func (m *mockRegistry) ListTokens(ctx context.Context) ([]models.RecipientToken, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RecipientToken), args.Error(1)
}

func (m *mockRegistry) DeleteTokens(ctx context.Context, ids []string) error {
	return m.Called(ctx, ids).Error(0)
}

type mockDispatcher struct {
	mock.Mock
}

func (m *mockDispatcher) SendToTokens(ctx context.Context, tokens []string, msg models.NotificationMessage, opts models.SendOptions) (models.DispatchResult, error) {
	args := m.Called(ctx, tokens, msg, opts)
	return args.Get(0).(models.DispatchResult), args.Error(1)
}

func (m *mockDispatcher) SendToTopic(ctx context.Context, topic string, msg models.NotificationMessage) (models.DispatchResult, error) {
	args := m.Called(ctx, topic, msg)
	return args.Get(0).(models.DispatchResult), args.Error(1)
}

func (m *mockDispatcher) Probe(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

type mockHistory struct {
	mock.Mock
}

func (m *mockHistory) Append(ctx context.Context, rec models.HistoryRecord) error {
	return m.Called(ctx, rec).Error(0)
}

type mockClaimer struct {
	mock.Mock
}

func (m *mockClaimer) ClaimEvent(ctx context.Context, eventID string) (bool, error) {
	args := m.Called(ctx, eventID)
	return args.Bool(0), args.Error(1)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func registered(tokens ...string) []models.RecipientToken {
	out := make([]models.RecipientToken, 0, len(tokens))
	for i, t := range tokens {
		out = append(out, models.RecipientToken{ID: "doc-" + string(rune('a'+i)), Token: t})
	}
	return out
}
