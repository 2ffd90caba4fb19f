package repository

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"

	"github.com/CyberwizD/Distributed-Notification-System/services/catalog_notifier/internal/models"
)

// FirestoreHistoryStore appends notification history documents. createdAt is
// set by the server.
type FirestoreHistoryStore struct {
	client     *firestore.Client
	collection string
}

func NewFirestoreHistoryStore(client *firestore.Client, collection string) *FirestoreHistoryStore {
	if collection == "" {
		collection = "notifications_history"
	}
	return &FirestoreHistoryStore{
		client:     client,
		collection: collection,
	}
}

func (s *FirestoreHistoryStore) Append(ctx context.Context, rec models.HistoryRecord) error {
	if rec.Data == nil {
		rec.Data = map[string]string{}
	}
	if _, _, err := s.client.Collection(s.collection).Add(ctx, rec); err != nil {
		return fmt.Errorf("append %s: %w", s.collection, err)
	}
	return nil
}
