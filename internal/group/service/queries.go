package service

import (
	"context"

	"spendwise/internal/group/models"
	id "spendwise/pkg/domain"
)

// ListMembers returns the group's accepted and pending memberships with user profiles.
func (s *Service) ListMembers(ctx context.Context, actor id.UserID, groupID id.GroupID) (*models.ListMembersResponse, error) {
	if _, _, err := s.requireMember(ctx, actor, groupID); err != nil {
		return nil, err
	}
	memberships, err := s.memberships.ListByGroup(ctx, groupID, models.StatusAccepted, models.StatusPending)
	if err != nil {
		return nil, wrapMembershipErr(err, "list members")
	}
	ids := make([]id.UserID, 0, 2*len(memberships))
	for _, m := range memberships {
		ids = append(ids, m.UserID)
		if m.InvitedBy != nil {
			ids = append(ids, *m.InvitedBy)
		}
	}
	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	resp := &models.ListMembersResponse{Members: make([]*models.MembershipResponse, 0, len(memberships))}
	for _, m := range memberships {
		resp.Members = append(resp.Members, models.NewMembershipResponse(m, users))
	}
	return resp, nil
}

// ListInvites returns the user's pending invitations to groups that still exist.
func (s *Service) ListInvites(ctx context.Context, userID id.UserID) (*models.ListInvitesResponse, error) {
	memberships, err := s.memberships.ListByUser(ctx, userID, models.StatusPending)
	if err != nil {
		return nil, wrapMembershipErr(err, "list invitations")
	}
	groupIDs := make([]id.GroupID, 0, len(memberships))
	inviters := make([]id.UserID, 0, len(memberships))
	for _, m := range memberships {
		groupIDs = append(groupIDs, m.GroupID)
		if m.InvitedBy != nil {
			inviters = append(inviters, *m.InvitedBy)
		}
	}
	groups, err := s.groups.ListByIDs(ctx, groupIDs)
	if err != nil {
		return nil, wrapGroupErr(err, "list groups")
	}
	byID := make(map[id.GroupID]*models.Group, len(groups))
	for _, g := range groups {
		byID[g.ID] = g
	}
	users, err := s.users.FindByIDs(ctx, inviters)
	if err != nil {
		return nil, err
	}

	resp := &models.ListInvitesResponse{Invites: make([]*models.InviteResponse, 0, len(memberships))}
	for _, m := range memberships {
		g, ok := byID[m.GroupID]
		if !ok {
			continue
		}
		invite := &models.InviteResponse{
			ID:        m.ID.String(),
			Group:     models.GroupSummary{ID: g.ID.String(), Name: g.Name, Image: g.Image},
			CreatedAt: m.UpdatedAt,
		}
		if m.InvitedBy != nil {
			if u, ok := users[*m.InvitedBy]; ok {
				invite.InvitedBy = &u
			}
		}
		resp.Invites = append(resp.Invites, invite)
	}
	return resp, nil
}
