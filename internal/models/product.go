package models

import "time"

// Product mirrors a document in the products collection.
type Product struct {
	Name  string `firestore:"name" json:"name"`
	Stock int    `firestore:"stock" json:"stock"`
}

// ProductEvent kinds as published on the catalog exchange.
const (
	ProductCreated = "product.created"
	ProductUpdated = "product.updated"
)

// ProductEvent is a document change notification for a single product.
// Before is nil for creations.
type ProductEvent struct {
	EventID    string    `json:"event_id"`
	Kind       string    `json:"kind"`
	ProductID  string    `json:"product_id"`
	Before     *Product  `json:"before,omitempty"`
	After      *Product  `json:"after"`
	OccurredAt time.Time `json:"occurred_at"`
}
