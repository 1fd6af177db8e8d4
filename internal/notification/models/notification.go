package models

import (
	"time"

	"github.com/google/uuid"

	id "spendwise/pkg/domain"
	dErrors "spendwise/pkg/domain-errors"
)

// Type tells the client what a notification is about.
type Type string

const (
	TypeFriendRequest             Type = "friend_request"
	TypeFriendRequestAccepted     Type = "friend_request_accepted"
	TypeGroupInvite               Type = "group_invite"
	TypeGroupInviteAccepted       Type = "group_invite_accepted"
	TypeGroupOwnershipTransferred Type = "group_ownership_transferred"
	TypeGroupMemberRemoved        Type = "group_member_removed"
	TypeAddedToExpense            Type = "added_to_expense"
)

func (t Type) IsValid() bool {
	switch t {
	case TypeFriendRequest, TypeFriendRequestAccepted, TypeGroupInvite, TypeGroupInviteAccepted,
		TypeGroupOwnershipTransferred, TypeGroupMemberRemoved, TypeAddedToExpense:
		return true
	}
	return false
}

// Notification is addressed to UserID. FromUserID is nil for system notices and
// ReferenceID points at the group or friendship it concerns.
type Notification struct {
	ID          id.NotificationID
	UserID      id.UserID
	FromUserID  *id.UserID
	Type        Type
	ReferenceID uuid.UUID
	IsRead      bool
	CreatedAt   time.Time
}

// Draft is what other contexts hand to the notifier.
type Draft struct {
	UserID      id.UserID
	FromUserID  id.UserID
	Type        Type
	ReferenceID uuid.UUID
}

func NewNotification(notificationID id.NotificationID, d Draft, now time.Time) (*Notification, error) {
	if d.UserID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "notification recipient is required")
	}
	if !d.Type.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "unknown notification type")
	}
	n := &Notification{
		ID:          notificationID,
		UserID:      d.UserID,
		Type:        d.Type,
		ReferenceID: d.ReferenceID,
		CreatedAt:   now,
	}
	if !d.FromUserID.IsNil() {
		from := d.FromUserID
		n.FromUserID = &from
	}
	return n, nil
}

func (n *Notification) IsAddressedTo(userID id.UserID) bool {
	return n.UserID == userID
}

func (n *Notification) MarkRead() {
	n.IsRead = true
}
