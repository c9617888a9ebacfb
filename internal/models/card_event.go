package models

import "time"

// Card lifecycle event types
const (
	EventCardCreated       = "CARD_CREATED"
	EventCardStatusChanged = "CARD_STATUS_CHANGED"
	EventCardDeleted       = "CARD_DELETED"
)

// CardEvent is an append-only audit record for a card lifecycle change.
// Events are never updated or deleted after insertion.
type CardEvent struct {
	ID          int64     `json:"id"`
	AggregateID int64     `json:"aggregate_id"` // Card ID
	EventType   string    `json:"event_type"`
	EventData   string    `json:"event_data"` // JSON payload
	UserID      int64     `json:"user_id"`
	Timestamp   time.Time `json:"timestamp"`
}
