package models

import (
	"time"

	id "spendwise/pkg/domain"
	dErrors "spendwise/pkg/domain-errors"
)

type Role string

const (
	RoleOwner  Role = "owner"
	RoleMember Role = "member"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusDeclined Status = "declined"
	StatusCanceled Status = "canceled"
	StatusRemoved  Status = "removed"
	StatusLeft     Status = "left"
)

// IsActive reports whether the membership still shows up for the user and the group.
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusAccepted
}

type Event string

const (
	EventInvite  Event = "invite"
	EventAccept  Event = "accept"
	EventDecline Event = "decline"
	EventCancel  Event = "cancel"
	EventKick    Event = "kick"
	EventLeave   Event = "leave"
)

var transitions = map[Status]map[Event]Status{
	StatusPending: {
		EventAccept:  StatusAccepted,
		EventDecline: StatusDeclined,
		EventCancel:  StatusCanceled,
	},
	StatusAccepted: {
		EventKick:  StatusRemoved,
		EventLeave: StatusLeft,
	},
	StatusDeclined: {EventInvite: StatusPending},
	StatusCanceled: {EventInvite: StatusPending},
	StatusRemoved:  {EventInvite: StatusPending},
	StatusLeft:     {EventInvite: StatusPending},
}

// Next returns the status reached from s on event e.
func (s Status) Next(e Event) (Status, error) {
	if to, ok := transitions[s][e]; ok {
		return to, nil
	}
	return "", dErrors.New(dErrors.CodeInvariantViolation, "cannot "+string(e)+" a "+string(s)+" membership")
}

// Membership links a user to a group. The (GroupID, UserID) pair is unique; a new
// invitation after the membership was resolved reuses the record.
type Membership struct {
	ID         id.MembershipID
	GroupID    id.GroupID
	UserID     id.UserID
	InvitedBy  *id.UserID
	Role       Role
	Status     Status
	AcceptedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewOwnerMembership is the accepted owner record written alongside a new group.
func NewOwnerMembership(membershipID id.MembershipID, groupID id.GroupID, owner id.UserID, now time.Time) *Membership {
	return &Membership{
		ID:         membershipID,
		GroupID:    groupID,
		UserID:     owner,
		Role:       RoleOwner,
		Status:     StatusAccepted,
		AcceptedAt: &now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func NewInvitation(membershipID id.MembershipID, groupID id.GroupID, invitee, inviter id.UserID, now time.Time) (*Membership, error) {
	if invitee == inviter {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "you cannot invite yourself")
	}
	return &Membership{
		ID:        membershipID,
		GroupID:   groupID,
		UserID:    invitee,
		InvitedBy: &inviter,
		Role:      RoleMember,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (m *Membership) IsOwner() bool {
	return m.Role == RoleOwner && m.Status == StatusAccepted
}

func (m *Membership) IsAcceptedMember() bool {
	return m.Status == StatusAccepted
}

func (m *Membership) WasInvitedBy(userID id.UserID) bool {
	return m.InvitedBy != nil && *m.InvitedBy == userID
}

// CanReinvite checks that the record may move back to pending.
func (m *Membership) CanReinvite() error {
	switch m.Status {
	case StatusPending:
		return dErrors.New(dErrors.CodeInvariantViolation, "this user already has a pending invitation")
	case StatusAccepted:
		return dErrors.New(dErrors.CodeInvariantViolation, "this user is already a member")
	}
	_, err := m.Status.Next(EventInvite)
	return err
}

func (m *Membership) ApplyReinvite(inviter id.UserID, now time.Time) {
	m.Status = StatusPending
	m.Role = RoleMember
	m.InvitedBy = &inviter
	m.AcceptedAt = nil
	m.UpdatedAt = now
}

func (m *Membership) CanAccept(actor id.UserID) error {
	return m.checkInvitee(actor, EventAccept)
}

func (m *Membership) ApplyAccept(now time.Time) {
	m.Status = StatusAccepted
	m.AcceptedAt = &now
	m.UpdatedAt = now
}

func (m *Membership) CanDecline(actor id.UserID) error {
	return m.checkInvitee(actor, EventDecline)
}

func (m *Membership) ApplyDecline(now time.Time) {
	m.Status = StatusDeclined
	m.UpdatedAt = now
}

// CanCancel allows the inviter or the group owner to withdraw a pending invitation.
func (m *Membership) CanCancel(actor id.UserID, group *Group) error {
	if !m.WasInvitedBy(actor) && !group.IsOwnedBy(actor) {
		return dErrors.New(dErrors.CodeForbidden, "only the inviter or the group owner can cancel an invitation")
	}
	_, err := m.Status.Next(EventCancel)
	return err
}

func (m *Membership) ApplyCancel(now time.Time) {
	m.Status = StatusCanceled
	m.UpdatedAt = now
}

// CanKick allows the owner to remove another accepted member.
func (m *Membership) CanKick(actor id.UserID, group *Group) error {
	if err := group.CanManage(actor); err != nil {
		return err
	}
	if m.UserID == actor {
		return dErrors.New(dErrors.CodeInvariantViolation, "the owner cannot remove themselves")
	}
	_, err := m.Status.Next(EventKick)
	return err
}

func (m *Membership) ApplyKick(now time.Time) {
	m.Status = StatusRemoved
	m.UpdatedAt = now
}

// CanLeave allows a member other than the owner to leave.
func (m *Membership) CanLeave(actor id.UserID) error {
	if m.UserID != actor {
		return dErrors.New(dErrors.CodeForbidden, "you can only leave on your own behalf")
	}
	if m.Role == RoleOwner {
		return dErrors.New(dErrors.CodeInvariantViolation, "transfer ownership before leaving the group")
	}
	_, err := m.Status.Next(EventLeave)
	return err
}

func (m *Membership) ApplyLeave(now time.Time) {
	m.Status = StatusLeft
	m.UpdatedAt = now
}

func (m *Membership) ApplyRole(role Role, now time.Time) {
	m.Role = role
	m.UpdatedAt = now
}

func (m *Membership) checkInvitee(actor id.UserID, e Event) error {
	if m.UserID != actor {
		return dErrors.New(dErrors.CodeForbidden, "only the invited user can "+string(e)+" an invitation")
	}
	_, err := m.Status.Next(e)
	return err
}

// CanTransferOwnership checks a transfer from m to target. actor must be the current
// owner and own m; target must be another accepted member of the same group.
func (m *Membership) CanTransferOwnership(actor id.UserID, target *Membership, group *Group) error {
	if m.GroupID != target.GroupID || m.GroupID != group.ID {
		return dErrors.New(dErrors.CodeBadRequest, "memberships belong to different groups")
	}
	if m.ID == target.ID {
		return dErrors.New(dErrors.CodeBadRequest, "cannot transfer ownership to the same membership")
	}
	if !group.IsOwnedBy(actor) || m.UserID != actor || !m.IsOwner() {
		return dErrors.New(dErrors.CodeForbidden, "only the current owner can transfer ownership")
	}
	if !target.IsAcceptedMember() {
		return dErrors.New(dErrors.CodeInvariantViolation, "ownership can only be transferred to an accepted member")
	}
	return nil
}
