package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"spendwise/internal/friendship/models"
	notificationmodels "spendwise/internal/notification/models"
	id "spendwise/pkg/domain"
	dErrors "spendwise/pkg/domain-errors"
	"spendwise/pkg/platform/audit"
	"spendwise/pkg/platform/sentinel"
	"spendwise/pkg/platform/tracing"
	"spendwise/pkg/requestcontext"
)

// Invite sends a friend request to the user registered under req.Email. A previously
// declined, canceled or removed friendship is reopened instead of duplicated. The
// record and the recipient's notification are written in one transaction.
func (s *Service) Invite(ctx context.Context, requester id.UserID, req *models.InviteRequest) (_ *models.Friendship, err error) {
	ctx, span := tracer.Start(ctx, "friendship.Invite")
	defer func() { tracing.Finish(span, err) }()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	recipient, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if recipient.ID == requester {
		return nil, dErrors.New(dErrors.CodeBadRequest, "you cannot send a friend request to yourself")
	}

	now := requestcontext.Now(ctx)
	var friendship *models.Friendship
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		existing, err := s.store.FindBetween(txCtx, requester, recipient.ID)
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			f, err := models.NewFriendship(id.FriendshipID(uuid.New()), requester, recipient.ID, now)
			if err != nil {
				return err
			}
			if err := s.store.Create(txCtx, f); err != nil {
				return err
			}
			friendship = f
		case err != nil:
			return err
		default:
			f, err := s.store.Execute(txCtx, existing.ID,
				func(f *models.Friendship) error { return f.CanReopen(requester) },
				func(f *models.Friendship) { f.ApplyReopen(requester, now) },
			)
			if err != nil {
				return err
			}
			friendship = f
		}

		_, err = s.notifier.Notify(txCtx, notificationmodels.Draft{
			UserID:      recipient.ID,
			FromUserID:  requester,
			Type:        notificationmodels.TypeFriendRequest,
			ReferenceID: uuid.UUID(friendship.ID),
		})
		return err
	})
	if err != nil {
		return nil, wrapFriendshipErr(err, "send friend request")
	}

	s.audit.Log(ctx, audit.EventFriendRequestSent,
		"user_id", requester.String(),
		"recipient_id", recipient.ID.String(),
		"friendship_id", friendship.ID.String(),
	)
	if s.metrics != nil {
		s.metrics.IncrementRequestsSent()
	}
	return friendship, nil
}
