package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/HammerMeetNail/widgetshare/internal/backend"
	"github.com/HammerMeetNail/widgetshare/internal/models"
	"github.com/HammerMeetNail/widgetshare/internal/state"
)

type FriendService struct {
	docs  backend.Documents
	store state.Dispatcher
}

func NewFriendService(docs backend.Documents, store state.Dispatcher) *FriendService {
	return &FriendService{docs: docs, store: store}
}

func friendPath(id string) string {
	return models.DocPath(models.CollectionFriends, id)
}

// SendRequest creates a pending record for the pair. A pair whose earlier
// records all ended in a rejection or removal may be requested again; the new
// request gets its own record and the terminal ones are kept.
func (s *FriendService) SendRequest(ctx context.Context, uid, toUID string) (models.Friendship, error) {
	if uid == "" {
		return models.Friendship{}, ErrNotSignedIn
	}
	if uid == toUID || toUID == "" {
		return models.Friendship{}, ErrSelfFriend
	}

	return Run(ctx, s.store, state.OpSendRequest, func(ctx context.Context) (models.Friendship, error) {
		if _, err := backend.Get[models.Profile](ctx, s.docs, models.DocPath(models.CollectionUsers, toUID)); err != nil {
			return models.Friendship{}, fmt.Errorf("finding user %s: %w", toUID, err)
		}

		history, err := s.pairRecords(ctx, uid, toUID)
		if err != nil {
			return models.Friendship{}, err
		}
		for _, f := range history {
			if !f.Status.Terminal() {
				return models.Friendship{}, ErrFriendshipExists
			}
		}

		ts := now()
		id := models.FriendshipID(uid, toUID)
		if len(history) > 0 {
			id = fmt.Sprintf("%s_%d", id, ts.UnixMilli())
		}
		f := models.Friendship{
			ID:          id,
			Users:       []string{uid, toUID},
			Status:      models.FriendshipStatusPending,
			RequestedBy: uid,
			CreatedAt:   ts,
			UpdatedAt:   ts,
		}
		if _, err := s.docs.Create(ctx, models.CollectionFriends, id, f); err != nil {
			if errors.Is(err, backend.ErrAlreadyExists) {
				return models.Friendship{}, ErrFriendshipExists
			}
			return models.Friendship{}, fmt.Errorf("sending friend request: %w", err)
		}
		return f, nil
	}, func(f models.Friendship) []state.Action {
		return actions(state.AddFriend{Friendship: f})
	})
}

// pairRecords returns every friendship record between uid and other.
func (s *FriendService) pairRecords(ctx context.Context, uid, other string) ([]models.Friendship, error) {
	all, err := backend.QueryAll[models.Friendship](ctx, s.docs, backend.Query{
		Collection: models.CollectionFriends,
	}.Where("users", backend.OpArrayContains, uid))
	if err != nil {
		return nil, fmt.Errorf("checking existing requests: %w", err)
	}
	var out []models.Friendship
	for _, f := range all {
		if f.Counterparty(uid) == other {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *FriendService) Accept(ctx context.Context, uid, id string) (models.Friendship, error) {
	return s.transition(ctx, state.OpAcceptRequest, uid, id, models.FriendshipStatusAccepted)
}

func (s *FriendService) Reject(ctx context.Context, uid, id string) (models.Friendship, error) {
	return s.transition(ctx, state.OpRejectRequest, uid, id, models.FriendshipStatusRejected)
}

// Remove ends a friendship, or withdraws a pending request.
func (s *FriendService) Remove(ctx context.Context, uid, id string) (models.Friendship, error) {
	return s.transition(ctx, state.OpRemoveFriend, uid, id, models.FriendshipStatusRemoved)
}

func (s *FriendService) transition(ctx context.Context, op state.Op, uid, id string, to models.FriendshipStatus) (models.Friendship, error) {
	if uid == "" {
		return models.Friendship{}, ErrNotSignedIn
	}
	return Run(ctx, s.store, op, func(ctx context.Context) (models.Friendship, error) {
		f, err := backend.Get[models.Friendship](ctx, s.docs, friendPath(id))
		if err != nil {
			return models.Friendship{}, err
		}
		if !f.Involves(uid) {
			return models.Friendship{}, backend.ErrPermissionDenied
		}
		if !f.Status.CanTransition(to) {
			return models.Friendship{}, ErrInvalidTransition
		}
		// Only the recipient answers a request.
		if f.Status == models.FriendshipStatusPending && to != models.FriendshipStatusRemoved && f.RequestedBy == uid {
			return models.Friendship{}, ErrInvalidTransition
		}

		f.Status = to
		f.UpdatedAt = now()
		fields := []backend.Field{
			{Path: "status", Value: string(to)},
			{Path: "updatedAt", Value: f.UpdatedAt},
		}
		if to == models.FriendshipStatusAccepted {
			f.AcceptedBy = uid
			fields = append(fields, backend.Field{Path: "acceptedBy", Value: uid})
		}
		if err := s.docs.Update(ctx, friendPath(id), fields); err != nil {
			return models.Friendship{}, fmt.Errorf("updating friend request: %w", err)
		}
		return f, nil
	}, func(f models.Friendship) []state.Action {
		if f.Status == models.FriendshipStatusRemoved {
			return actions(state.RemoveFriend{ID: f.ID})
		}
		return actions(state.UpdateFriend{ID: f.ID, Patch: models.FriendshipPatch{
			Status:     &f.Status,
			AcceptedBy: &f.AcceptedBy,
			UpdatedAt:  &f.UpdatedAt,
		}})
	})
}

type FriendLists struct {
	Friends  []models.Friendship
	Requests []models.Friendship
}

func (s *FriendService) Load(ctx context.Context, uid string) (FriendLists, error) {
	if uid == "" {
		return FriendLists{}, ErrNotSignedIn
	}
	return Run(ctx, s.store, state.OpLoadFriends, func(ctx context.Context) (FriendLists, error) {
		all, err := backend.QueryAll[models.Friendship](ctx, s.docs, backend.Query{
			Collection: models.CollectionFriends,
			OrderBy:    "createdAt",
			Desc:       true,
		}.Where("users", backend.OpArrayContains, uid))
		if err != nil {
			return FriendLists{}, fmt.Errorf("loading friends: %w", err)
		}
		var lists FriendLists
		for _, f := range all {
			switch f.Status {
			case models.FriendshipStatusAccepted:
				lists.Friends = append(lists.Friends, f)
			case models.FriendshipStatusPending:
				lists.Requests = append(lists.Requests, f)
			}
		}
		return lists, nil
	}, func(l FriendLists) []state.Action {
		return actions(state.SetFriends{Friends: l.Friends}, state.SetFriendRequests{Requests: l.Requests})
	})
}
