package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	AggregateTypeUser = "user"
	// EventNotificationCreated is the outbox event type for a new notification.
	EventNotificationCreated = "notification.created"
)

// OutboxEntry is a pending integration event. It is written in the same
// transaction as the notification and published by the relay.
type OutboxEntry struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
	PublishedAt   *time.Time
}

// NotificationEvent is the JSON payload published for a notification.
type NotificationEvent struct {
	NotificationID string    `json:"notification_id"`
	UserID         string    `json:"user_id"`
	FromUserID     string    `json:"from_user_id,omitempty"`
	Type           Type      `json:"type"`
	ReferenceID    string    `json:"reference_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewNotificationOutboxEntry builds the outbox entry for n, keyed by its recipient.
func NewNotificationOutboxEntry(n *Notification) (*OutboxEntry, error) {
	event := NotificationEvent{
		NotificationID: n.ID.String(),
		UserID:         n.UserID.String(),
		Type:           n.Type,
		CreatedAt:      n.CreatedAt,
	}
	if n.FromUserID != nil {
		event.FromUserID = n.FromUserID.String()
	}
	if n.ReferenceID != uuid.Nil {
		event.ReferenceID = n.ReferenceID.String()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal notification event: %w", err)
	}
	return &OutboxEntry{
		ID:            uuid.New(),
		AggregateType: AggregateTypeUser,
		AggregateID:   n.UserID.String(),
		EventType:     EventNotificationCreated,
		Payload:       payload,
		CreatedAt:     n.CreatedAt,
	}, nil
}
