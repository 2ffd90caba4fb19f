package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/CyberwizD/Distributed-Notification-System/services/catalog_notifier/internal/models"
)

// HistoryRow is the relational shape of a notification history record.
type HistoryRow struct {
	ID           string `gorm:"primaryKey;type:uuid"`
	Title        string
	Body         string
	Data         string `gorm:"type:jsonb"`
	SuccessCount int
	FailureCount int
	CreatedAt    time.Time `gorm:"default:now();index"`
}

// SQLHistoryStore writes history to Postgres instead of Firestore.
type SQLHistoryStore struct {
	db        *gorm.DB
	tableName string
}

func NewSQLHistoryStore(db *gorm.DB, tableName string) (*SQLHistoryStore, error) {
	if tableName == "" {
		tableName = "notifications_history"
	}
	if err := db.Table(tableName).AutoMigrate(&HistoryRow{}); err != nil {
		return nil, fmt.Errorf("migrate %s: %w", tableName, err)
	}
	return &SQLHistoryStore{
		db:        db,
		tableName: tableName,
	}, nil
}

func (s *SQLHistoryStore) Append(ctx context.Context, rec models.HistoryRecord) error {
	row, err := newHistoryRow(rec)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Table(s.tableName).Create(&row).Error
}

func newHistoryRow(rec models.HistoryRecord) (HistoryRow, error) {
	data := rec.Data
	if data == nil {
		data = map[string]string{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return HistoryRow{}, fmt.Errorf("encode history data: %w", err)
	}
	// CreatedAt stays zero so the column default applies.
	return HistoryRow{
		ID:           uuid.NewString(),
		Title:        rec.Title,
		Body:         rec.Body,
		Data:         string(raw),
		SuccessCount: rec.SuccessCount,
		FailureCount: rec.FailureCount,
	}, nil
}
