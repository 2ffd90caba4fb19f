package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/CyberwizD/Distributed-Notification-System/services/catalog_notifier/internal/models"
)

// AuditLogger appends one history record per successful dispatch.
type AuditLogger struct {
	store  HistoryStore
	logger *slog.Logger
}

func NewAuditLogger(store HistoryStore, logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		store:  store,
		logger: logger,
	}
}

func (a *AuditLogger) Record(ctx context.Context, msg models.NotificationMessage, res models.DispatchResult) error {
	if err := a.store.Append(ctx, models.NewHistoryRecord(msg, res)); err != nil {
		return fmt.Errorf("record history: %w", err)
	}
	a.logger.Debug("history recorded",
		slog.String("type", msg.Data["type"]),
		slog.Int("success_count", res.SuccessCount),
		slog.Int("failure_count", res.FailureCount),
	)
	return nil
}
