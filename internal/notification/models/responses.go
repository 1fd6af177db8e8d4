package models

import (
	"time"

	"github.com/google/uuid"

	authmodels "spendwise/internal/auth/models"
	id "spendwise/pkg/domain"
)

type NotificationResponse struct {
	ID          string                 `json:"id"`
	Type        Type                   `json:"type"`
	FromUser    *authmodels.PublicUser `json:"from_user,omitempty"`
	ReferenceID string                 `json:"reference_id,omitempty"`
	IsRead      bool                   `json:"is_read"`
	CreatedAt   time.Time              `json:"created_at"`
}

// NewNotificationResponse populates the sender from users when present.
func NewNotificationResponse(n *Notification, users map[id.UserID]authmodels.PublicUser) *NotificationResponse {
	resp := &NotificationResponse{
		ID:        n.ID.String(),
		Type:      n.Type,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
	if n.ReferenceID != uuid.Nil {
		resp.ReferenceID = n.ReferenceID.String()
	}
	if n.FromUserID != nil {
		if u, ok := users[*n.FromUserID]; ok {
			resp.FromUser = &u
		}
	}
	return resp
}

type ListResponse struct {
	Notifications []*NotificationResponse `json:"notifications"`
	UnreadCount   int                     `json:"unread_count"`
}

type UnreadCountResponse struct {
	UnreadCount int `json:"unread_count"`
}

type MarkAllReadResponse struct {
	Updated int `json:"updated"`
}
