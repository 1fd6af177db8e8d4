package models

import (
	"strings"
	"time"

	authmodels "spendwise/internal/auth/models"
	id "spendwise/pkg/domain"
	dErrors "spendwise/pkg/domain-errors"
	"spendwise/pkg/email"
)

type CreateGroupRequest struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

func (r *CreateGroupRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Image = strings.TrimSpace(r.Image)
}

func (r *CreateGroupRequest) Validate() error {
	if r.Name == "" {
		return dErrors.NewField("name", "name is required")
	}
	if len([]rune(r.Name)) > MaxNameLength {
		return dErrors.NewField("name", "name must be 64 characters or less")
	}
	if len([]rune(r.Image)) > MaxImageLength {
		return dErrors.NewField("image", "image must be 2048 characters or less")
	}
	return nil
}

type UpdateGroupRequest struct {
	Name  *string `json:"name"`
	Image *string `json:"image"`
}

func (r *UpdateGroupRequest) Normalize() {
	if r.Name != nil {
		name := strings.TrimSpace(*r.Name)
		r.Name = &name
	}
	if r.Image != nil {
		image := strings.TrimSpace(*r.Image)
		r.Image = &image
	}
}

func (r *UpdateGroupRequest) Validate() error {
	if r.Name == nil && r.Image == nil {
		return dErrors.New(dErrors.CodeValidation, "nothing to update")
	}
	if r.Name != nil {
		if *r.Name == "" {
			return dErrors.NewField("name", "name cannot be empty")
		}
		if len([]rune(*r.Name)) > MaxNameLength {
			return dErrors.NewField("name", "name must be 64 characters or less")
		}
	}
	if r.Image != nil && len([]rune(*r.Image)) > MaxImageLength {
		return dErrors.NewField("image", "image must be 2048 characters or less")
	}
	return nil
}

type InviteMemberRequest struct {
	Email string `json:"email"`
}

func (r *InviteMemberRequest) Normalize() {
	r.Email = email.Normalize(r.Email)
}

func (r *InviteMemberRequest) Validate() error {
	if r.Email == "" {
		return dErrors.NewField("email", "email is required")
	}
	if !email.IsValid(r.Email) {
		return dErrors.NewField("email", "email must be valid")
	}
	return nil
}

type TransferOwnershipRequest struct {
	FromMembershipID string `json:"from_membership_id"`
	ToMembershipID   string `json:"to_membership_id"`
}

// Parse validates both membership IDs.
func (r *TransferOwnershipRequest) Parse() (id.MembershipID, id.MembershipID, error) {
	from, err := id.ParseMembershipID(r.FromMembershipID)
	if err != nil {
		return id.MembershipID{}, id.MembershipID{}, dErrors.NewField("from_membership_id", "from_membership_id must be a valid id")
	}
	to, err := id.ParseMembershipID(r.ToMembershipID)
	if err != nil {
		return id.MembershipID{}, id.MembershipID{}, dErrors.NewField("to_membership_id", "to_membership_id must be a valid id")
	}
	return from, to, nil
}

type GroupResponse struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Image       string                 `json:"image,omitempty"`
	Owner       *authmodels.PublicUser `json:"owner,omitempty"`
	OwnerID     string                 `json:"owner_id"`
	Status      GroupStatus            `json:"status"`
	MemberCount int                    `json:"member_count"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

func NewGroupResponse(g *Group, memberCount int, users map[id.UserID]authmodels.PublicUser) *GroupResponse {
	resp := &GroupResponse{
		ID:          g.ID.String(),
		Name:        g.Name,
		Image:       g.Image,
		OwnerID:     g.OwnerID.String(),
		Status:      g.Status,
		MemberCount: memberCount,
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
	}
	if u, ok := users[g.OwnerID]; ok {
		resp.Owner = &u
	}
	return resp
}

type ListGroupsResponse struct {
	Groups []*GroupResponse `json:"groups"`
}

type MembershipResponse struct {
	ID         string                 `json:"id"`
	GroupID    string                 `json:"group_id"`
	User       *authmodels.PublicUser `json:"user,omitempty"`
	InvitedBy  *authmodels.PublicUser `json:"invited_by,omitempty"`
	Role       Role                   `json:"role"`
	Status     Status                 `json:"status"`
	AcceptedAt *time.Time             `json:"accepted_at,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at"`
}

func NewMembershipResponse(m *Membership, users map[id.UserID]authmodels.PublicUser) *MembershipResponse {
	resp := &MembershipResponse{
		ID:         m.ID.String(),
		GroupID:    m.GroupID.String(),
		Role:       m.Role,
		Status:     m.Status,
		AcceptedAt: m.AcceptedAt,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
	if u, ok := users[m.UserID]; ok {
		resp.User = &u
	}
	if m.InvitedBy != nil {
		if u, ok := users[*m.InvitedBy]; ok {
			resp.InvitedBy = &u
		}
	}
	return resp
}

type ListMembersResponse struct {
	Members []*MembershipResponse `json:"members"`
}

// GroupSummary is the group shown to a user who is not a member yet.
type GroupSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

type InviteResponse struct {
	ID        string                 `json:"id"`
	Group     GroupSummary           `json:"group"`
	InvitedBy *authmodels.PublicUser `json:"invited_by,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

type ListInvitesResponse struct {
	Invites []*InviteResponse `json:"invites"`
}

type TransferOwnershipResponse struct {
	Group *GroupResponse      `json:"group"`
	From  *MembershipResponse `json:"from"`
	To    *MembershipResponse `json:"to"`
}
