package client

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"

	"github.com/HammerMeetNail/widgetshare/internal/backend/memory"
	"github.com/HammerMeetNail/widgetshare/internal/models"
	"github.com/HammerMeetNail/widgetshare/internal/services"
	"github.com/HammerMeetNail/widgetshare/internal/state"
)

type fakeAuth struct {
	SignInFunc func(ctx context.Context, email, password string) (services.Credentials, error)
}

func (f *fakeAuth) SignUp(ctx context.Context, email, password, displayName string) (services.Credentials, error) {
	return services.Credentials{User: models.User{UID: "u1", Email: email, DisplayName: displayName}}, nil
}

func (f *fakeAuth) SignIn(ctx context.Context, email, password string) (services.Credentials, error) {
	if f.SignInFunc != nil {
		return f.SignInFunc(ctx, email, password)
	}
	return services.Credentials{User: models.User{UID: "u1", Email: email, DisplayName: "Ann"}}, nil
}

func (f *fakeAuth) SignOut(ctx context.Context) error { return nil }

func newSession(t *testing.T, auth services.Authenticator) *Session {
	t.Helper()
	s := New(Deps{Auth: auth, Docs: memory.NewDocuments(), Objects: memory.NewObjects("https://cdn.test")})
	t.Cleanup(s.Close)
	return s
}

func notificationTypes(s state.State) []models.NotificationType {
	out := make([]models.NotificationType, 0, len(s.UI.Notifications))
	for _, n := range s.UI.Notifications {
		out = append(out, n.Type)
	}
	return out
}

func TestSession_SignUpLoadsAndGreets(t *testing.T) {
	s := newSession(t, &fakeAuth{})

	if err := s.SignUp(context.Background(), "ann@example.com", "abc123", "Ann"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	st := s.Store.State()
	if s.UID() != "u1" || !st.Auth.IsAuthenticated {
		t.Fatalf("expected signed in, got %+v", st.Auth)
	}
	if len(st.UI.Pending) != 0 || st.Photos.Loading || st.Widgets.Loading || st.Friends.Loading {
		t.Fatalf("expected all loads settled, got %+v", st.UI.Pending)
	}
	if types := notificationTypes(st); len(types) != 1 || types[0] != models.NotificationSuccess {
		t.Fatalf("expected one success notification, got %v", types)
	}
}

func TestSession_SignInFailureShowsError(t *testing.T) {
	s := newSession(t, &fakeAuth{
		SignInFunc: func(ctx context.Context, email, password string) (services.Credentials, error) {
			return services.Credentials{}, services.ErrInvalidCredentials
		},
	})

	err := s.SignIn(context.Background(), "ann@example.com", "wrong1")
	if !errors.Is(err, services.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	n := s.Store.State().UI.Notifications
	if len(n) != 1 || n[0].Type != models.NotificationError || n[0].Message != "Incorrect email or password." {
		t.Fatalf("unexpected notifications %+v", n)
	}
}

func TestSession_SignOutClearsEverything(t *testing.T) {
	s := newSession(t, &fakeAuth{})
	if err := s.SignIn(context.Background(), "ann@example.com", "abc123"); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if _, err := s.CreateWidget(context.Background(), models.WidgetTypeClock, nil); err != nil {
		t.Fatalf("create widget: %v", err)
	}
	s.SetTheme(models.ThemeDark)

	if err := s.SignOut(context.Background()); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	st := s.Store.State()
	if st.Auth.IsAuthenticated || len(st.Widgets.UserWidgets) != 0 || len(st.UI.Notifications) != 0 {
		t.Fatalf("expected cleared state, got %+v", st)
	}
	if st.UI.Theme != models.ThemeDark {
		t.Fatalf("expected theme kept, got %q", st.UI.Theme)
	}
	if s.Notify.Pending() != 0 {
		t.Fatalf("expected no live timers, got %d", s.Notify.Pending())
	}
}

func TestSession_UploadPhotoHidesProgress(t *testing.T) {
	s := newSession(t, &fakeAuth{})
	if err := s.SignIn(context.Background(), "ann@example.com", "abc123"); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	s.Notify.Clear()

	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	photo, err := s.UploadPhoto(context.Background(), services.UploadInput{FileName: "a.png", Data: buf.Bytes()})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	st := s.Store.State()
	if len(st.Photos.Items) != 1 || st.Photos.Items[0].ID != photo.ID {
		t.Fatalf("expected photo in state, got %+v", st.Photos.Items)
	}
	n := st.UI.Notifications
	if len(n) != 1 || n[0].Title != "Photo shared" || n[0].Progress != nil {
		t.Fatalf("expected only the success notification, got %+v", n)
	}
}

func TestSession_IntentsRequireSignIn(t *testing.T) {
	s := newSession(t, &fakeAuth{})
	if err := s.Refresh(context.Background()); !errors.Is(err, services.ErrNotSignedIn) {
		t.Fatalf("expected not signed in, got %v", err)
	}
	if err := s.LikePhoto(context.Background(), "p1"); !errors.Is(err, services.ErrNotSignedIn) {
		t.Fatalf("expected not signed in, got %v", err)
	}
	n := s.Store.State().UI.Notifications
	if len(n) != 1 || n[0].Message != "Please sign in to continue." {
		t.Fatalf("unexpected notifications %+v", n)
	}
}

func TestSession_OfflineWarnsOnce(t *testing.T) {
	s := newSession(t, &fakeAuth{})
	s.SetOnline(false)
	s.SetOnline(false)
	s.SetOnline(true)

	st := s.Store.State()
	if !st.UI.IsOnline {
		t.Fatal("expected online")
	}
	if types := notificationTypes(st); len(types) != 1 || types[0] != models.NotificationWarning {
		t.Fatalf("expected one warning, got %v", types)
	}
}
