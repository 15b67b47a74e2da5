package services

import (
	"context"
	"errors"
	"testing"

	"github.com/HammerMeetNail/widgetshare/internal/backend"
	"github.com/HammerMeetNail/widgetshare/internal/backend/memory"
	"github.com/HammerMeetNail/widgetshare/internal/models"
)

func newFriendService(t *testing.T, uids ...string) (*FriendService, *recorder, *memory.Documents) {
	t.Helper()
	rec := newRecorder()
	docs := memory.NewDocuments()
	for _, uid := range uids {
		seedProfile(t, docs, uid)
	}
	return NewFriendService(docs, rec), rec, docs
}

func TestFriendService_SendRequest(t *testing.T) {
	svc, rec, _ := newFriendService(t, "alice", "bob")

	f, err := svc.SendRequest(context.Background(), "bob", "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.ID != "alice_bob" || f.Status != models.FriendshipStatusPending || f.RequestedBy != "bob" {
		t.Fatalf("unexpected friendship %+v", f)
	}
	if len(rec.State().Friends.Requests) != 1 {
		t.Fatalf("expected pending request in state, got %+v", rec.State().Friends)
	}

	if _, err := svc.SendRequest(context.Background(), "alice", "bob"); !errors.Is(err, ErrFriendshipExists) {
		t.Fatalf("expected exists from either side, got %v", err)
	}
	if _, err := svc.SendRequest(context.Background(), "bob", "bob"); !errors.Is(err, ErrSelfFriend) {
		t.Fatalf("expected self friend, got %v", err)
	}
	if _, err := svc.SendRequest(context.Background(), "bob", "ghost"); !errors.Is(err, backend.ErrNotFound) {
		t.Fatalf("expected unknown user, got %v", err)
	}
}

func TestFriendService_AcceptOnlyByRecipient(t *testing.T) {
	svc, rec, docs := newFriendService(t, "alice", "bob")
	f, _ := svc.SendRequest(context.Background(), "alice", "bob")

	if _, err := svc.Accept(context.Background(), "alice", f.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected requester blocked, got %v", err)
	}
	if _, err := svc.Accept(context.Background(), "carol", f.ID); !errors.Is(err, backend.ErrPermissionDenied) {
		t.Fatalf("expected outsider blocked, got %v", err)
	}

	got, err := svc.Accept(context.Background(), "bob", f.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != models.FriendshipStatusAccepted || got.AcceptedBy != "bob" {
		t.Fatalf("unexpected friendship %+v", got)
	}
	stored, _ := backend.Get[models.Friendship](context.Background(), docs, "friends/"+f.ID)
	if stored.Status != models.FriendshipStatusAccepted || stored.AcceptedBy != "bob" {
		t.Fatalf("unexpected stored friendship %+v", stored)
	}
	s := rec.State().Friends
	if len(s.Items) != 1 || len(s.Requests) != 0 {
		t.Fatalf("expected friendship moved to items, got %+v", s)
	}

	if _, err := svc.Reject(context.Background(), "bob", f.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected accepted to stay accepted, got %v", err)
	}
}

func TestFriendService_RemoveThenRequestAgain(t *testing.T) {
	svc, rec, docs := newFriendService(t, "alice", "bob")
	f, _ := svc.SendRequest(context.Background(), "alice", "bob")
	if _, err := svc.Accept(context.Background(), "bob", f.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	if _, err := svc.Remove(context.Background(), "alice", f.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(rec.State().Friends.Items) != 0 {
		t.Fatal("expected friend removed from state")
	}

	again, err := svc.SendRequest(context.Background(), "bob", "alice")
	if err != nil {
		t.Fatalf("expected re-request after removal, got %v", err)
	}
	if again.Status != models.FriendshipStatusPending || again.RequestedBy != "bob" {
		t.Fatalf("unexpected friendship %+v", again)
	}
	if again.ID == f.ID {
		t.Fatalf("expected a fresh record, got reused id %s", again.ID)
	}
	old, err := backend.Get[models.Friendship](context.Background(), docs, "friends/"+f.ID)
	if err != nil {
		t.Fatalf("expected the removed record kept: %v", err)
	}
	if old.Status != models.FriendshipStatusRemoved {
		t.Fatalf("expected removed record untouched, got %s", old.Status)
	}

	if _, err := svc.SendRequest(context.Background(), "alice", "bob"); !errors.Is(err, ErrFriendshipExists) {
		t.Fatalf("expected pending re-request to block another, got %v", err)
	}
}

func TestFriendService_LoadSplitsByStatus(t *testing.T) {
	svc, rec, _ := newFriendService(t, "alice", "bob", "carol", "dave")
	a, _ := svc.SendRequest(context.Background(), "alice", "bob")
	if _, err := svc.Accept(context.Background(), "bob", a.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := svc.SendRequest(context.Background(), "carol", "alice"); err != nil {
		t.Fatalf("request: %v", err)
	}
	d, _ := svc.SendRequest(context.Background(), "dave", "alice")
	if _, err := svc.Reject(context.Background(), "alice", d.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}

	lists, err := svc.Load(context.Background(), "alice")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(lists.Friends) != 1 || len(lists.Requests) != 1 {
		t.Fatalf("unexpected lists %+v", lists)
	}
	s := rec.State().Friends
	if len(s.Items) != 1 || len(s.Requests) != 1 || s.Loading {
		t.Fatalf("unexpected state %+v", s)
	}
}
