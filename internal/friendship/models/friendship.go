package models

import (
	"time"

	id "spendwise/pkg/domain"
	dErrors "spendwise/pkg/domain-errors"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusDeclined Status = "declined"
	StatusCanceled Status = "canceled"
	StatusRemoved  Status = "removed"
)

// IsResolved reports whether the record may be reopened by a new request.
func (s Status) IsResolved() bool {
	return s == StatusDeclined || s == StatusCanceled || s == StatusRemoved
}

// Friendship links two users. There is at most one record per unordered pair;
// a new request after a decline, cancel or removal reopens it.
//
// Transitions:
//
//	(resolved) --invite--> pending
//	pending --accept(recipient)--> accepted
//	pending --decline(recipient)--> declined
//	pending --cancel(requester)--> canceled
//	accepted --remove(either)--> removed
type Friendship struct {
	ID          id.FriendshipID
	RequesterID id.UserID
	RecipientID id.UserID
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func NewFriendship(friendshipID id.FriendshipID, requester, recipient id.UserID, now time.Time) (*Friendship, error) {
	if requester == recipient {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "cannot befriend yourself")
	}
	return &Friendship{
		ID:          friendshipID,
		RequesterID: requester,
		RecipientID: recipient,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (f *Friendship) Involves(userID id.UserID) bool {
	return f.RequesterID == userID || f.RecipientID == userID
}

// OtherParty returns the participant that is not userID.
func (f *Friendship) OtherParty(userID id.UserID) id.UserID {
	if f.RequesterID == userID {
		return f.RecipientID
	}
	return f.RequesterID
}

// CanReopen checks that requester may send a new request on this record.
func (f *Friendship) CanReopen(requester id.UserID) error {
	switch {
	case f.Status == StatusAccepted:
		return dErrors.New(dErrors.CodeInvariantViolation, "you are already friends")
	case f.Status == StatusPending && f.RequesterID == requester:
		return dErrors.New(dErrors.CodeInvariantViolation, "friend request already sent")
	case f.Status == StatusPending:
		return dErrors.New(dErrors.CodeInvariantViolation, "this user has already sent you a friend request")
	}
	return nil
}

// ApplyReopen turns a resolved record into a fresh pending request from requester.
func (f *Friendship) ApplyReopen(requester id.UserID, now time.Time) {
	recipient := f.OtherParty(requester)
	f.RequesterID = requester
	f.RecipientID = recipient
	f.Status = StatusPending
	f.UpdatedAt = now
}

func (f *Friendship) CanAccept(actor id.UserID) error {
	return f.checkRecipientTransition(actor, "accept")
}

func (f *Friendship) ApplyAccept(now time.Time) {
	f.Status = StatusAccepted
	f.UpdatedAt = now
}

func (f *Friendship) CanDecline(actor id.UserID) error {
	return f.checkRecipientTransition(actor, "decline")
}

func (f *Friendship) ApplyDecline(now time.Time) {
	f.Status = StatusDeclined
	f.UpdatedAt = now
}

func (f *Friendship) CanCancel(actor id.UserID) error {
	if !f.Involves(actor) {
		return errNotParticipant
	}
	if f.RequesterID != actor {
		return dErrors.New(dErrors.CodeForbidden, "only the requester can cancel a friend request")
	}
	if f.Status != StatusPending {
		return transitionErr("cancel", f.Status)
	}
	return nil
}

func (f *Friendship) ApplyCancel(now time.Time) {
	f.Status = StatusCanceled
	f.UpdatedAt = now
}

func (f *Friendship) CanRemove(actor id.UserID) error {
	if !f.Involves(actor) {
		return errNotParticipant
	}
	if f.Status != StatusAccepted {
		return transitionErr("remove", f.Status)
	}
	return nil
}

func (f *Friendship) ApplyRemove(now time.Time) {
	f.Status = StatusRemoved
	f.UpdatedAt = now
}

func (f *Friendship) checkRecipientTransition(actor id.UserID, action string) error {
	if !f.Involves(actor) {
		return errNotParticipant
	}
	if f.RecipientID != actor {
		return dErrors.New(dErrors.CodeForbidden, "only the recipient can "+action+" a friend request")
	}
	if f.Status != StatusPending {
		return transitionErr(action, f.Status)
	}
	return nil
}

var errNotParticipant = dErrors.New(dErrors.CodeForbidden, "you are not part of this friendship")

func transitionErr(action string, from Status) error {
	return dErrors.New(dErrors.CodeInvariantViolation, "cannot "+action+" a "+string(from)+" friendship")
}
