package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/HammerMeetNail/widgetshare/internal/backend"
	"github.com/HammerMeetNail/widgetshare/internal/models"
	"github.com/HammerMeetNail/widgetshare/internal/state"
	"github.com/HammerMeetNail/widgetshare/internal/validate"
)

func TestRun_FulfilledAfterSuccessActions(t *testing.T) {
	rec := newRecorder()
	got, err := Run(context.Background(), rec, state.OpUploadPhoto, func(ctx context.Context) (models.Photo, error) {
		return models.Photo{ID: "p1"}, nil
	}, func(p models.Photo) []state.Action {
		return actions(state.AddPhoto{Photo: p})
	})
	if err != nil || got.ID != "p1" {
		t.Fatalf("unexpected result %+v %v", got, err)
	}
	if !equalTypes(rec.seen(), "OPERATION_PENDING", "ADD_PHOTO", "OPERATION_FULFILLED") {
		t.Fatalf("unexpected transitions %v", rec.seen())
	}
	if rec.State().Photos.Loading {
		t.Fatal("expected loading cleared")
	}
}

func TestRun_SingleRejectionWithReadableReason(t *testing.T) {
	rec := newRecorder()
	_, err := Run(context.Background(), rec, state.OpUploadPhoto, func(ctx context.Context) (models.Photo, error) {
		return models.Photo{}, fmt.Errorf("saving photo: %w", backend.ErrPermissionDenied)
	}, func(p models.Photo) []state.Action {
		t.Fatal("onSuccess must not run on failure")
		return nil
	})
	if !errors.Is(err, backend.ErrPermissionDenied) {
		t.Fatalf("expected error surfaced, got %v", err)
	}
	if !equalTypes(rec.seen(), "OPERATION_PENDING", "OPERATION_REJECTED") {
		t.Fatalf("unexpected transitions %v", rec.seen())
	}
	if got := rec.State().Photos.Error; got != "You don't have permission to do that." {
		t.Fatalf("unexpected reason %q", got)
	}
}

func TestRun_PanicBecomesRejection(t *testing.T) {
	rec := newRecorder()
	_, err := Run(context.Background(), rec, state.OpLoadWidgets, func(ctx context.Context) (int, error) {
		panic("boom")
	}, nil)
	if err == nil {
		t.Fatal("expected error from panic")
	}
	if !equalTypes(rec.seen(), "OPERATION_PENDING", "OPERATION_REJECTED") {
		t.Fatalf("unexpected transitions %v", rec.seen())
	}
}

func TestDescribe(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{validate.ErrWeakPassword, "Password must be at least 6 characters and contain a letter and a number."},
		{fmt.Errorf("x: %w", validate.ErrUnsupportedImage), "File must be a JPEG, PNG, WebP, GIF or HEIC image."},
		{errors.Join(ErrInvalidCredentials, errors.New("INVALID_PASSWORD")), "Incorrect email or password."},
		{fmt.Errorf("get: %w", backend.ErrNotFound), "That item no longer exists."},
		{context.DeadlineExceeded, "Network error. Check your connection and try again."},
		{errors.New("weird"), "Something went wrong. Please try again."},
	}
	for _, tc := range cases {
		if got := Describe(tc.err); got != tc.want {
			t.Fatalf("Describe(%v) = %q want %q", tc.err, got, tc.want)
		}
	}
}
