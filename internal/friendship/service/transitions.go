package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"spendwise/internal/friendship/models"
	notificationmodels "spendwise/internal/notification/models"
	id "spendwise/pkg/domain"
	"spendwise/pkg/platform/audit"
	"spendwise/pkg/platform/tracing"
	"spendwise/pkg/requestcontext"
)

// Accept lets the recipient accept a pending request and notifies the requester.
func (s *Service) Accept(ctx context.Context, actor id.UserID, friendshipID id.FriendshipID) (_ *models.Friendship, err error) {
	ctx, span := tracer.Start(ctx, "friendship.Accept")
	defer func() { tracing.Finish(span, err) }()

	now := requestcontext.Now(ctx)
	var friendship *models.Friendship
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		f, err := s.store.Execute(txCtx, friendshipID,
			func(f *models.Friendship) error { return f.CanAccept(actor) },
			func(f *models.Friendship) { f.ApplyAccept(now) },
		)
		if err != nil {
			return err
		}
		friendship = f
		_, err = s.notifier.Notify(txCtx, notificationmodels.Draft{
			UserID:      f.RequesterID,
			FromUserID:  actor,
			Type:        notificationmodels.TypeFriendRequestAccepted,
			ReferenceID: uuid.UUID(f.ID),
		})
		return err
	})
	if err != nil {
		return nil, wrapFriendshipErr(err, "accept friend request")
	}
	s.logTransition(ctx, actor, friendship)
	return friendship, nil
}

// Decline lets the recipient turn down a pending request.
func (s *Service) Decline(ctx context.Context, actor id.UserID, friendshipID id.FriendshipID) (*models.Friendship, error) {
	return s.transition(ctx, "friendship.Decline", actor, friendshipID,
		func(f *models.Friendship) error { return f.CanDecline(actor) },
		(*models.Friendship).ApplyDecline,
	)
}

// Cancel lets the requester withdraw a pending request.
func (s *Service) Cancel(ctx context.Context, actor id.UserID, friendshipID id.FriendshipID) (*models.Friendship, error) {
	return s.transition(ctx, "friendship.Cancel", actor, friendshipID,
		func(f *models.Friendship) error { return f.CanCancel(actor) },
		(*models.Friendship).ApplyCancel,
	)
}

// Remove ends an accepted friendship. Either side may remove it.
func (s *Service) Remove(ctx context.Context, actor id.UserID, friendshipID id.FriendshipID) (*models.Friendship, error) {
	return s.transition(ctx, "friendship.Remove", actor, friendshipID,
		func(f *models.Friendship) error { return f.CanRemove(actor) },
		(*models.Friendship).ApplyRemove,
	)
}

func (s *Service) transition(ctx context.Context, spanName string, actor id.UserID, friendshipID id.FriendshipID,
	validate func(*models.Friendship) error, apply func(*models.Friendship, time.Time)) (_ *models.Friendship, err error) {
	ctx, span := tracer.Start(ctx, spanName)
	defer func() { tracing.Finish(span, err) }()

	now := requestcontext.Now(ctx)
	f, err := s.store.Execute(ctx, friendshipID, validate, func(f *models.Friendship) { apply(f, now) })
	if err != nil {
		return nil, wrapFriendshipErr(err, "update friendship")
	}
	s.logTransition(ctx, actor, f)
	return f, nil
}

func (s *Service) logTransition(ctx context.Context, actor id.UserID, f *models.Friendship) {
	s.audit.Log(ctx, audit.EventFriendshipTransitioned,
		"user_id", actor.String(),
		"friendship_id", f.ID.String(),
		"status", string(f.Status),
	)
	s.incrementTransition(f.Status)
}
