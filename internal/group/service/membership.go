package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"spendwise/internal/group/models"
	notificationmodels "spendwise/internal/notification/models"
	id "spendwise/pkg/domain"
	dErrors "spendwise/pkg/domain-errors"
	"spendwise/pkg/platform/audit"
	"spendwise/pkg/platform/sentinel"
	"spendwise/pkg/platform/tracing"
	"spendwise/pkg/requestcontext"
)

// Invite asks the user registered under req.Email to join the group. Any accepted
// member may invite. A resolved membership for the same user is reused; the record
// and the invitee's notification commit together.
func (s *Service) Invite(ctx context.Context, actor id.UserID, groupID id.GroupID, req *models.InviteMemberRequest) (_ *models.Membership, err error) {
	ctx, span := tracer.Start(ctx, "group.Invite")
	defer func() { tracing.Finish(span, err) }()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	invitee, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if invitee.ID == actor {
		return nil, dErrors.New(dErrors.CodeBadRequest, "you cannot invite yourself")
	}

	now := requestcontext.Now(ctx)
	var membership *models.Membership
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if _, _, err := s.requireMember(txCtx, actor, groupID); err != nil {
			return err
		}
		existing, err := s.memberships.FindByGroupAndUser(txCtx, groupID, invitee.ID)
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			m, err := models.NewInvitation(id.MembershipID(uuid.New()), groupID, invitee.ID, actor, now)
			if err != nil {
				return err
			}
			if err := s.memberships.Create(txCtx, m); err != nil {
				return err
			}
			membership = m
		case err != nil:
			return err
		default:
			m, err := s.memberships.Execute(txCtx, existing.ID,
				func(m *models.Membership) error { return m.CanReinvite() },
				func(m *models.Membership) { m.ApplyReinvite(actor, now) },
			)
			if err != nil {
				return err
			}
			membership = m
		}

		_, err = s.notifier.Notify(txCtx, notificationmodels.Draft{
			UserID:      invitee.ID,
			FromUserID:  actor,
			Type:        notificationmodels.TypeGroupInvite,
			ReferenceID: uuid.UUID(groupID),
		})
		return err
	})
	if err != nil {
		return nil, wrapMembershipErr(err, "invite member")
	}

	s.audit.Log(ctx, audit.EventMemberInvited,
		"user_id", actor.String(),
		"group_id", groupID.String(),
		"invitee_id", invitee.ID.String(),
		"membership_id", membership.ID.String(),
	)
	if s.metrics != nil {
		s.metrics.IncrementInvitesSent()
	}
	return membership, nil
}

// Accept lets the invitee join the group and notifies the inviter.
func (s *Service) Accept(ctx context.Context, actor id.UserID, membershipID id.MembershipID) (*models.Membership, error) {
	return s.transition(ctx, "group.Accept", actor, membershipID,
		func(m *models.Membership, _ *models.Group) error { return m.CanAccept(actor) },
		(*models.Membership).ApplyAccept,
		func(m *models.Membership) *notificationmodels.Draft {
			if m.InvitedBy == nil {
				return nil
			}
			return &notificationmodels.Draft{
				UserID:      *m.InvitedBy,
				FromUserID:  actor,
				Type:        notificationmodels.TypeGroupInviteAccepted,
				ReferenceID: uuid.UUID(m.GroupID),
			}
		},
	)
}

// Decline lets the invitee turn the invitation down.
func (s *Service) Decline(ctx context.Context, actor id.UserID, membershipID id.MembershipID) (*models.Membership, error) {
	return s.transition(ctx, "group.Decline", actor, membershipID,
		func(m *models.Membership, _ *models.Group) error { return m.CanDecline(actor) },
		(*models.Membership).ApplyDecline,
		nil,
	)
}

// Cancel withdraws a pending invitation. The inviter or the group owner may do it.
func (s *Service) Cancel(ctx context.Context, actor id.UserID, membershipID id.MembershipID) (*models.Membership, error) {
	return s.transition(ctx, "group.Cancel", actor, membershipID,
		func(m *models.Membership, g *models.Group) error { return m.CanCancel(actor, g) },
		(*models.Membership).ApplyCancel,
		nil,
	)
}

// Kick removes an accepted member. Only the owner may do it, and not to themselves.
func (s *Service) Kick(ctx context.Context, actor id.UserID, membershipID id.MembershipID) (*models.Membership, error) {
	return s.transition(ctx, "group.Kick", actor, membershipID,
		func(m *models.Membership, g *models.Group) error { return m.CanKick(actor, g) },
		(*models.Membership).ApplyKick,
		func(m *models.Membership) *notificationmodels.Draft {
			return &notificationmodels.Draft{
				UserID:      m.UserID,
				FromUserID:  actor,
				Type:        notificationmodels.TypeGroupMemberRemoved,
				ReferenceID: uuid.UUID(m.GroupID),
			}
		},
	)
}

// Leave ends the actor's own membership. The owner has to transfer ownership first.
func (s *Service) Leave(ctx context.Context, actor id.UserID, membershipID id.MembershipID) (*models.Membership, error) {
	return s.transition(ctx, "group.Leave", actor, membershipID,
		func(m *models.Membership, _ *models.Group) error { return m.CanLeave(actor) },
		(*models.Membership).ApplyLeave,
		nil,
	)
}

func (s *Service) transition(
	ctx context.Context,
	spanName string,
	actor id.UserID,
	membershipID id.MembershipID,
	validate func(*models.Membership, *models.Group) error,
	apply func(*models.Membership, time.Time),
	notification func(*models.Membership) *notificationmodels.Draft,
) (_ *models.Membership, err error) {
	ctx, span := tracer.Start(ctx, spanName)
	defer func() { tracing.Finish(span, err) }()

	now := requestcontext.Now(ctx)
	var membership *models.Membership
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		current, err := s.memberships.FindByID(txCtx, membershipID)
		if err != nil {
			return wrapMembershipErr(err, "load membership")
		}
		g, err := s.groups.FindByID(txCtx, current.GroupID)
		if err != nil {
			return wrapGroupErr(err, "load group")
		}
		m, err := s.memberships.Execute(txCtx, membershipID,
			func(m *models.Membership) error { return validate(m, g) },
			func(m *models.Membership) { apply(m, now) },
		)
		if err != nil {
			return err
		}
		membership = m
		if notification == nil {
			return nil
		}
		if d := notification(m); d != nil {
			_, err = s.notifier.Notify(txCtx, *d)
		}
		return err
	})
	if err != nil {
		return nil, wrapMembershipErr(err, "update membership")
	}

	s.audit.Log(ctx, audit.EventMembershipTransitioned,
		"user_id", actor.String(),
		"group_id", membership.GroupID.String(),
		"membership_id", membership.ID.String(),
		"status", string(membership.Status),
	)
	s.incrementTransition(membership.Status)
	return membership, nil
}
