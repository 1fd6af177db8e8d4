package service

import (
	"context"

	"github.com/google/uuid"

	"spendwise/internal/group/models"
	notificationmodels "spendwise/internal/notification/models"
	id "spendwise/pkg/domain"
	"spendwise/pkg/platform/audit"
	"spendwise/pkg/platform/tracing"
	"spendwise/pkg/requestcontext"
)

// TransferOwnership hands the group from the owner's membership to another accepted
// member. The group owner and both roles change in one transaction, or none do.
func (s *Service) TransferOwnership(ctx context.Context, actor id.UserID, fromID, toID id.MembershipID) (_ *models.TransferOwnershipResponse, err error) {
	ctx, span := tracer.Start(ctx, "group.TransferOwnership")
	defer func() { tracing.Finish(span, err) }()

	now := requestcontext.Now(ctx)
	var (
		group    *models.Group
		from, to *models.Membership
	)
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		if from, err = s.memberships.FindByID(txCtx, fromID); err != nil {
			return wrapMembershipErr(err, "load membership")
		}
		if to, err = s.memberships.FindByID(txCtx, toID); err != nil {
			return wrapMembershipErr(err, "load membership")
		}
		target := to
		group, err = s.groups.Execute(txCtx, from.GroupID,
			func(g *models.Group) error { return from.CanTransferOwnership(actor, target, g) },
			func(g *models.Group) error {
				g.ApplyOwner(target.UserID, now)
				return nil
			},
		)
		if err != nil {
			return wrapGroupErr(err, "transfer ownership")
		}
		if from, err = s.memberships.Execute(txCtx, fromID, noCheck,
			func(m *models.Membership) { m.ApplyRole(models.RoleMember, now) }); err != nil {
			return err
		}
		if to, err = s.memberships.Execute(txCtx, toID, noCheck,
			func(m *models.Membership) { m.ApplyRole(models.RoleOwner, now) }); err != nil {
			return err
		}
		_, err = s.notifier.Notify(txCtx, notificationmodels.Draft{
			UserID:      to.UserID,
			FromUserID:  actor,
			Type:        notificationmodels.TypeGroupOwnershipTransferred,
			ReferenceID: uuid.UUID(group.ID),
		})
		return err
	})
	if err != nil {
		return nil, wrapMembershipErr(err, "transfer ownership")
	}

	s.audit.Log(ctx, audit.EventOwnershipTransferred,
		"user_id", actor.String(),
		"group_id", group.ID.String(),
		"new_owner_id", to.UserID.String(),
	)
	if s.metrics != nil {
		s.metrics.IncrementOwnershipTransfers()
	}

	users, err := s.users.FindByIDs(ctx, []id.UserID{from.UserID, to.UserID})
	if err != nil {
		return nil, err
	}
	counts, err := s.memberships.CountAccepted(ctx, []id.GroupID{group.ID})
	if err != nil {
		return nil, wrapGroupErr(err, "count members")
	}
	return &models.TransferOwnershipResponse{
		Group: models.NewGroupResponse(group, counts[group.ID], users),
		From:  models.NewMembershipResponse(from, users),
		To:    models.NewMembershipResponse(to, users),
	}, nil
}

func noCheck(*models.Membership) error { return nil }
