package service

import (
	"context"

	"spendwise/internal/friendship/models"
	id "spendwise/pkg/domain"
	dErrors "spendwise/pkg/domain-errors"
)

// Get returns a friendship the caller takes part in.
func (s *Service) Get(ctx context.Context, userID id.UserID, friendshipID id.FriendshipID) (*models.FriendshipResponse, error) {
	f, err := s.loadFriendship(ctx, friendshipID)
	if err != nil {
		return nil, err
	}
	if !f.Involves(userID) {
		return nil, dErrors.New(dErrors.CodeForbidden, "you are not part of this friendship")
	}
	users, err := s.users.FindByIDs(ctx, []id.UserID{f.RequesterID, f.RecipientID})
	if err != nil {
		return nil, err
	}
	return models.NewFriendshipResponse(f, users), nil
}

// ListFriends returns the user's accepted friendships populated with the other user.
func (s *Service) ListFriends(ctx context.Context, userID id.UserID) (*models.ListFriendsResponse, error) {
	friendships, err := s.store.ListByUser(ctx, userID, models.StatusAccepted)
	if err != nil {
		return nil, wrapFriendshipErr(err, "list friends")
	}
	others := make([]id.UserID, 0, len(friendships))
	for _, f := range friendships {
		others = append(others, f.OtherParty(userID))
	}
	users, err := s.users.FindByIDs(ctx, others)
	if err != nil {
		return nil, err
	}

	resp := &models.ListFriendsResponse{Friends: make([]models.Friend, 0, len(friendships))}
	for _, f := range friendships {
		u, ok := users[f.OtherParty(userID)]
		if !ok {
			continue
		}
		resp.Friends = append(resp.Friends, models.Friend{
			FriendshipID: f.ID.String(),
			User:         u,
			Since:        f.UpdatedAt,
		})
	}
	return resp, nil
}

// ListPending splits the user's pending requests into incoming and outgoing.
func (s *Service) ListPending(ctx context.Context, userID id.UserID) (*models.ListPendingResponse, error) {
	friendships, err := s.store.ListByUser(ctx, userID, models.StatusPending)
	if err != nil {
		return nil, wrapFriendshipErr(err, "list friend requests")
	}
	ids := make([]id.UserID, 0, 2*len(friendships))
	for _, f := range friendships {
		ids = append(ids, f.RequesterID, f.RecipientID)
	}
	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	resp := &models.ListPendingResponse{
		Incoming: []*models.FriendshipResponse{},
		Outgoing: []*models.FriendshipResponse{},
	}
	for _, f := range friendships {
		if f.RecipientID == userID {
			resp.Incoming = append(resp.Incoming, models.NewFriendshipResponse(f, users))
		} else {
			resp.Outgoing = append(resp.Outgoing, models.NewFriendshipResponse(f, users))
		}
	}
	return resp, nil
}
