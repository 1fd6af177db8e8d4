package service

import (
	"context"

	"github.com/google/uuid"

	"spendwise/internal/group/models"
	id "spendwise/pkg/domain"
	"spendwise/pkg/platform/audit"
	"spendwise/pkg/platform/tracing"
	"spendwise/pkg/requestcontext"
)

// CreateGroup creates the group together with the owner's accepted membership.
func (s *Service) CreateGroup(ctx context.Context, owner id.UserID, req *models.CreateGroupRequest) (_ *models.GroupResponse, err error) {
	ctx, span := tracer.Start(ctx, "group.CreateGroup")
	defer func() { tracing.Finish(span, err) }()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	g, err := models.NewGroup(id.GroupID(uuid.New()), req.Name, req.Image, owner, now)
	if err != nil {
		return nil, wrapGroupErr(err, "create group")
	}
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.groups.Create(txCtx, g); err != nil {
			return err
		}
		return s.memberships.Create(txCtx, models.NewOwnerMembership(id.MembershipID(uuid.New()), g.ID, owner, now))
	})
	if err != nil {
		return nil, wrapGroupErr(err, "create group")
	}

	s.audit.Log(ctx, audit.EventGroupCreated, "user_id", owner.String(), "group_id", g.ID.String())
	if s.metrics != nil {
		s.metrics.IncrementGroupsCreated()
	}
	return s.groupResponse(ctx, g, 1)
}

// GetGroup returns an active group to one of its accepted members.
func (s *Service) GetGroup(ctx context.Context, actor id.UserID, groupID id.GroupID) (*models.GroupResponse, error) {
	g, _, err := s.requireMember(ctx, actor, groupID)
	if err != nil {
		return nil, err
	}
	counts, err := s.memberships.CountAccepted(ctx, []id.GroupID{g.ID})
	if err != nil {
		return nil, wrapGroupErr(err, "count members")
	}
	return s.groupResponse(ctx, g, counts[g.ID])
}

// ListGroups returns the active groups the user has joined, newest first, each
// with its accepted member count.
func (s *Service) ListGroups(ctx context.Context, userID id.UserID) (*models.ListGroupsResponse, error) {
	memberships, err := s.memberships.ListByUser(ctx, userID, models.StatusAccepted)
	if err != nil {
		return nil, wrapGroupErr(err, "list memberships")
	}
	groupIDs := make([]id.GroupID, 0, len(memberships))
	for _, m := range memberships {
		groupIDs = append(groupIDs, m.GroupID)
	}
	groups, err := s.groups.ListByIDs(ctx, groupIDs)
	if err != nil {
		return nil, wrapGroupErr(err, "list groups")
	}
	counts, err := s.memberships.CountAccepted(ctx, groupIDs)
	if err != nil {
		return nil, wrapGroupErr(err, "count members")
	}
	owners := make([]id.UserID, 0, len(groups))
	for _, g := range groups {
		owners = append(owners, g.OwnerID)
	}
	users, err := s.users.FindByIDs(ctx, owners)
	if err != nil {
		return nil, err
	}

	resp := &models.ListGroupsResponse{Groups: make([]*models.GroupResponse, 0, len(groups))}
	for _, g := range groups {
		resp.Groups = append(resp.Groups, models.NewGroupResponse(g, counts[g.ID], users))
	}
	return resp, nil
}

// UpdateGroup changes the name or image. Only the owner may do it.
func (s *Service) UpdateGroup(ctx context.Context, actor id.UserID, groupID id.GroupID, req *models.UpdateGroupRequest) (_ *models.GroupResponse, err error) {
	ctx, span := tracer.Start(ctx, "group.UpdateGroup")
	defer func() { tracing.Finish(span, err) }()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	g, err := s.groups.Execute(ctx, groupID,
		func(g *models.Group) error { return g.CanManage(actor) },
		func(g *models.Group) error { return g.ApplyUpdate(req.Name, req.Image, now) },
	)
	if err != nil {
		return nil, wrapGroupErr(err, "update group")
	}
	s.audit.Log(ctx, audit.EventGroupUpdated, "user_id", actor.String(), "group_id", g.ID.String())

	counts, err := s.memberships.CountAccepted(ctx, []id.GroupID{g.ID})
	if err != nil {
		return nil, wrapGroupErr(err, "count members")
	}
	return s.groupResponse(ctx, g, counts[g.ID])
}

// DeleteGroup soft-deletes the group. Memberships are kept but the group no longer
// shows up anywhere.
func (s *Service) DeleteGroup(ctx context.Context, actor id.UserID, groupID id.GroupID) (err error) {
	ctx, span := tracer.Start(ctx, "group.DeleteGroup")
	defer func() { tracing.Finish(span, err) }()

	now := requestcontext.Now(ctx)
	_, err = s.groups.Execute(ctx, groupID,
		func(g *models.Group) error { return g.CanManage(actor) },
		func(g *models.Group) error {
			g.ApplyDelete(now)
			return nil
		},
	)
	if err != nil {
		return wrapGroupErr(err, "delete group")
	}
	s.audit.Log(ctx, audit.EventGroupDeleted, "user_id", actor.String(), "group_id", groupID.String())
	if s.metrics != nil {
		s.metrics.IncrementGroupsDeleted()
	}
	return nil
}

func (s *Service) groupResponse(ctx context.Context, g *models.Group, memberCount int) (*models.GroupResponse, error) {
	users, err := s.users.FindByIDs(ctx, []id.UserID{g.OwnerID})
	if err != nil {
		return nil, err
	}
	return models.NewGroupResponse(g, memberCount, users), nil
}
