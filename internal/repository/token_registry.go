package repository

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"

	"github.com/CyberwizD/Distributed-Notification-System/services/catalog_notifier/internal/models"
)

// FirestoreTokenRegistry reads and prunes the registered device tokens.
type FirestoreTokenRegistry struct {
	client     *firestore.Client
	collection string
}

func NewFirestoreTokenRegistry(client *firestore.Client, collection string) *FirestoreTokenRegistry {
	if collection == "" {
		collection = "user_tokens"
	}
	return &FirestoreTokenRegistry{
		client:     client,
		collection: collection,
	}
}

// ListTokens reads the whole collection in one pass. Documents whose token
// field cannot be decoded are returned with an empty Token so callers can
// skip or prune them.
func (r *FirestoreTokenRegistry) ListTokens(ctx context.Context) ([]models.RecipientToken, error) {
	docs, err := r.client.Collection(r.collection).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", r.collection, err)
	}

	tokens := make([]models.RecipientToken, 0, len(docs))
	for _, doc := range docs {
		var t models.RecipientToken
		if err := doc.DataTo(&t); err != nil {
			t = models.RecipientToken{}
		}
		t.ID = doc.Ref.ID
		tokens = append(tokens, t)
	}
	return tokens, nil
}

// DeleteTokens removes the given documents in a single transaction; either
// all of them are deleted or none.
func (r *FirestoreTokenRegistry) DeleteTokens(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	coll := r.client.Collection(r.collection)
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		for _, id := range ids {
			if err := tx.Delete(coll.Doc(id)); err != nil {
				return fmt.Errorf("delete token %s: %w", id, err)
			}
		}
		return nil
	})
}
