// Package client wires the state store, the notification queue and the
// async services into one signed-in session.
package client

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/HammerMeetNail/widgetshare/internal/backend"
	"github.com/HammerMeetNail/widgetshare/internal/logging"
	"github.com/HammerMeetNail/widgetshare/internal/models"
	"github.com/HammerMeetNail/widgetshare/internal/notify"
	"github.com/HammerMeetNail/widgetshare/internal/services"
	"github.com/HammerMeetNail/widgetshare/internal/state"
)

type Deps struct {
	Auth    services.Authenticator
	Docs    backend.Documents
	Objects backend.Objects
	Logger  *logging.Logger
}

type Session struct {
	Store   *state.Store
	Notify  *notify.Manager
	Auth    *services.AuthService
	Profile *services.ProfileService
	Photos  *services.PhotoService
	Widgets *services.WidgetService
	Friends *services.FriendService
	Chat    *services.ChatService

	logger *logging.Logger
}

func New(deps Deps) *Session {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default
	}
	store := state.NewStore(state.Initial())
	profiles := services.NewProfileService(deps.Docs, deps.Objects, store)
	return &Session{
		Store:   store,
		Notify:  notify.NewManager(store),
		Auth:    services.NewAuthService(deps.Auth, profiles, store),
		Profile: profiles,
		Photos:  services.NewPhotoService(deps.Docs, deps.Objects, store, logger),
		Widgets: services.NewWidgetService(deps.Docs, store),
		Friends: services.NewFriendService(deps.Docs, store),
		Chat:    services.NewChatService(deps.Docs, store),
		logger:  logger,
	}
}

// UID returns the signed-in user's id, or "".
func (s *Session) UID() string {
	if u := s.Store.State().Auth.User; u != nil {
		return u.UID
	}
	return ""
}

// report shows the outcome of an intent. An empty success title shows
// nothing on success.
func (s *Session) report(err error, failTitle, okTitle, okMessage string) error {
	if err != nil {
		s.Notify.Error(failTitle, services.Describe(err))
		return err
	}
	if okTitle != "" {
		s.Notify.Success(okTitle, okMessage)
	}
	return nil
}

func (s *Session) SignUp(ctx context.Context, email, password, displayName string) error {
	_, err := s.Auth.SignUp(ctx, email, password, displayName)
	if err := s.report(err, "Sign up failed", "Welcome!", "Your account is ready."); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

func (s *Session) SignIn(ctx context.Context, email, password string) error {
	creds, err := s.Auth.SignIn(ctx, email, password)
	if err := s.report(err, "Sign in failed", "", ""); err != nil {
		return err
	}
	s.Notify.Success("Welcome back", creds.User.DisplayName)
	return s.Refresh(ctx)
}

// SignOut drops every notification along with the user's state.
func (s *Session) SignOut(ctx context.Context) error {
	err := s.Auth.SignOut(ctx)
	s.Notify.Clear()
	if err != nil {
		s.Notify.Error("Sign out failed", services.Describe(err))
	}
	return err
}

// Refresh reloads photos, friends and widgets concurrently. Each load
// reports its own failure; the first one is returned.
func (s *Session) Refresh(ctx context.Context) error {
	uid := s.UID()
	if uid == "" {
		return services.ErrNotSignedIn
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.Photos.Load(gctx, uid)
		return err
	})
	g.Go(func() error {
		_, err := s.Friends.Load(gctx, uid)
		return err
	})
	g.Go(func() error {
		_, err := s.Widgets.Load(gctx, uid)
		return err
	})
	err := g.Wait()
	if err != nil {
		s.logger.Warn("Session refresh failed", map[string]interface{}{"uid": uid, "error": err.Error()})
		s.Notify.Error("Couldn't load your feed", services.Describe(err))
	}
	return err
}

// UploadPhoto keeps a sticky progress notification up while the upload runs.
func (s *Session) UploadPhoto(ctx context.Context, in services.UploadInput) (models.Photo, error) {
	zero := 0.0
	progressID := s.Notify.Show(notify.Options{
		Type:     models.NotificationInfo,
		Title:    "Uploading photo",
		Progress: &zero,
		Duration: notify.Sticky(),
	})
	photo, err := s.Photos.Upload(ctx, s.UID(), in)
	if err == nil {
		s.Notify.Progress(progressID, 1)
	}
	s.Notify.Hide(progressID)
	return photo, s.report(err, "Upload failed", "Photo shared", "")
}

func (s *Session) LikePhoto(ctx context.Context, photoID string) error {
	_, err := s.Photos.Like(ctx, s.UID(), photoID)
	return s.report(err, "Couldn't like photo", "", "")
}

func (s *Session) CommentOnPhoto(ctx context.Context, photoID, text string) error {
	_, err := s.Photos.Comment(ctx, s.UID(), photoID, text)
	return s.report(err, "Couldn't post comment", "", "")
}

func (s *Session) DeletePhoto(ctx context.Context, photoID string) error {
	return s.report(s.Photos.Delete(ctx, s.UID(), photoID), "Couldn't delete photo", "Photo deleted", "")
}

func (s *Session) CreateWidget(ctx context.Context, typ models.WidgetType, config map[string]any) (models.Widget, error) {
	w, err := s.Widgets.Create(ctx, s.UID(), typ, config)
	return w, s.report(err, "Couldn't add widget", "Widget added", typ.Label())
}

func (s *Session) UpdateWidget(ctx context.Context, id string, patch models.WidgetPatch) error {
	_, err := s.Widgets.Update(ctx, s.UID(), id, patch)
	return s.report(err, "Couldn't update widget", "", "")
}

func (s *Session) ShareWidget(ctx context.Context, id string, recipients []string) error {
	_, err := s.Widgets.Share(ctx, s.UID(), id, recipients)
	msg := fmt.Sprintf("Shared with %d friend(s).", len(recipients))
	return s.report(err, "Couldn't share widget", "Widget shared", msg)
}

func (s *Session) DeleteWidget(ctx context.Context, id string) error {
	return s.report(s.Widgets.Delete(ctx, s.UID(), id), "Couldn't remove widget", "Widget removed", "")
}

func (s *Session) ToggleWidget(id string) {
	s.Widgets.ToggleActive(id)
}

func (s *Session) SendFriendRequest(ctx context.Context, toUID string) error {
	_, err := s.Friends.SendRequest(ctx, s.UID(), toUID)
	return s.report(err, "Couldn't send request", "Friend request sent", "")
}

func (s *Session) AcceptFriendRequest(ctx context.Context, id string) error {
	_, err := s.Friends.Accept(ctx, s.UID(), id)
	return s.report(err, "Couldn't accept request", "Friend added", "")
}

func (s *Session) RejectFriendRequest(ctx context.Context, id string) error {
	_, err := s.Friends.Reject(ctx, s.UID(), id)
	return s.report(err, "Couldn't decline request", "", "")
}

func (s *Session) RemoveFriend(ctx context.Context, id string) error {
	_, err := s.Friends.Remove(ctx, s.UID(), id)
	return s.report(err, "Couldn't remove friend", "Friend removed", "")
}

// SendMessage opens the chat with toUID when needed and posts the message.
func (s *Session) SendMessage(ctx context.Context, toUID string, in services.MessageInput) (models.ChatMessage, error) {
	chat, err := s.Chat.Open(ctx, s.UID(), toUID)
	if err != nil {
		return models.ChatMessage{}, s.report(err, "Couldn't send message", "", "")
	}
	msg, err := s.Chat.SendMessage(ctx, s.UID(), chat.ID, in)
	return msg, s.report(err, "Couldn't send message", "", "")
}

func (s *Session) SetTheme(theme string) {
	s.Store.Dispatch(state.SetTheme{Theme: theme})
}

// SetOnline records connectivity and warns once when it drops.
func (s *Session) SetOnline(online bool) {
	was := s.Store.State().UI.IsOnline
	s.Store.Dispatch(state.SetOnline{Online: online})
	if was && !online {
		s.Notify.Warning("You're offline", "Changes will fail until you reconnect.")
	}
}

// Close stops notification timers.
func (s *Session) Close() {
	s.Notify.Close()
}
