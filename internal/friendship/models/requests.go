package models

import (
	"time"

	authmodels "spendwise/internal/auth/models"
	id "spendwise/pkg/domain"
	dErrors "spendwise/pkg/domain-errors"
	"spendwise/pkg/email"
)

type InviteRequest struct {
	Email string `json:"email"`
}

func (r *InviteRequest) Normalize() {
	r.Email = email.Normalize(r.Email)
}

func (r *InviteRequest) Validate() error {
	if r.Email == "" {
		return dErrors.NewField("email", "email is required")
	}
	if !email.IsValid(r.Email) {
		return dErrors.NewField("email", "email must be valid")
	}
	return nil
}

type FriendshipResponse struct {
	ID        string                 `json:"id"`
	Status    Status                 `json:"status"`
	Requester *authmodels.PublicUser `json:"requester,omitempty"`
	Recipient *authmodels.PublicUser `json:"recipient,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

func NewFriendshipResponse(f *Friendship, users map[id.UserID]authmodels.PublicUser) *FriendshipResponse {
	resp := &FriendshipResponse{
		ID:        f.ID.String(),
		Status:    f.Status,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
	if u, ok := users[f.RequesterID]; ok {
		resp.Requester = &u
	}
	if u, ok := users[f.RecipientID]; ok {
		resp.Recipient = &u
	}
	return resp
}

// Friend is an accepted friendship seen from one side.
type Friend struct {
	FriendshipID string                `json:"friendship_id"`
	User         authmodels.PublicUser `json:"user"`
	Since        time.Time             `json:"since"`
}

type ListFriendsResponse struct {
	Friends []Friend `json:"friends"`
}

type ListPendingResponse struct {
	Incoming []*FriendshipResponse `json:"incoming"`
	Outgoing []*FriendshipResponse `json:"outgoing"`
}
