package models

import "time"

// Notification types carried in the data payload.
const (
	TypeProductCreated = "product_created"
	TypeLowStock       = "low_stock"
)

// NotificationMessage is the rendered push payload.
type NotificationMessage struct {
	Title string
	Body  string
	Data  map[string]string
}

// Priority is a delivery hint passed to the transport.
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// SendOptions are optional delivery hints. A zero TimeToLive means no expiry hint.
type SendOptions struct {
	Priority   Priority
	TimeToLive time.Duration
}

// DispatchResult aggregates per-recipient outcomes of one dispatch.
type DispatchResult struct {
	SuccessCount int `json:"successCount"`
	FailureCount int `json:"failureCount"`
}

// HistoryRecord is one append-only entry in the notification history.
// CreatedAt is assigned by the store.
type HistoryRecord struct {
	Title        string            `firestore:"title"`
	Body         string            `firestore:"body"`
	Data         map[string]string `firestore:"data"`
	SuccessCount int               `firestore:"successCount"`
	FailureCount int               `firestore:"failureCount"`
	CreatedAt    time.Time         `firestore:"createdAt,serverTimestamp"`
}

// NewHistoryRecord builds a record from a dispatched message and its result.
func NewHistoryRecord(msg NotificationMessage, res DispatchResult) HistoryRecord {
	return HistoryRecord{
		Title:        msg.Title,
		Body:         msg.Body,
		Data:         msg.Data,
		SuccessCount: res.SuccessCount,
		FailureCount: res.FailureCount,
	}
}
