// Package state holds the client's single state tree. All mutation goes
// through Store.Dispatch, which runs the pure Reduce function.
package state

import (
	"strings"

	"github.com/HammerMeetNail/widgetshare/internal/models"
)

type State struct {
	Auth    AuthState
	Photos  PhotosState
	Friends FriendsState
	Widgets WidgetsState
	UI      UIState
}

// AuthState keeps IsAuthenticated true exactly when User is set.
type AuthState struct {
	User            *models.User
	IsAuthenticated bool
	Profile         *models.Profile
}

type PhotosState struct {
	Items   []models.Photo
	Loading bool
	Error   string
}

type FriendsState struct {
	Items    []models.Friendship
	Requests []models.Friendship
	Loading  bool
	Error    string
}

// WidgetsState keeps ActiveWidgets equal to UserWidgets filtered by IsActive.
type WidgetsState struct {
	UserWidgets   []models.Widget
	ActiveWidgets []models.Widget
	SharedWidgets []models.Widget
	Loading       bool
	Error         string
}

type UIState struct {
	Notifications []models.Notification
	Theme         string
	IsOnline      bool
	Pending       map[Op]int
	Errors        map[Op]string
}

// Op names an async operation. The part before the slash is the state slice
// whose loading flag it drives.
type Op string

const (
	OpSignUp             Op = "auth/signUp"
	OpSignIn             Op = "auth/signIn"
	OpSignOut            Op = "auth/signOut"
	OpLoadProfile        Op = "auth/loadProfile"
	OpUpdatePreferences  Op = "auth/updatePreferences"
	OpUploadProfilePhoto Op = "auth/uploadProfilePhoto"
	OpRegisterDevice     Op = "auth/registerDevice"

	OpLoadPhotos   Op = "photos/load"
	OpUploadPhoto  Op = "photos/upload"
	OpLikePhoto    Op = "photos/like"
	OpCommentPhoto Op = "photos/comment"
	OpDeletePhoto  Op = "photos/delete"

	OpLoadWidgets  Op = "widgets/load"
	OpCreateWidget Op = "widgets/create"
	OpUpdateWidget Op = "widgets/update"
	OpShareWidget  Op = "widgets/share"
	OpDeleteWidget Op = "widgets/delete"

	OpLoadFriends   Op = "friends/load"
	OpSendRequest   Op = "friends/sendRequest"
	OpAcceptRequest Op = "friends/accept"
	OpRejectRequest Op = "friends/reject"
	OpRemoveFriend  Op = "friends/remove"

	OpSendMessage Op = "chat/send"
)

func (o Op) Slice() string {
	s, _, _ := strings.Cut(string(o), "/")
	return s
}

// Initial is the signed-out state.
func Initial() State {
	return State{
		UI: UIState{
			Theme:    models.ThemeSystem,
			IsOnline: true,
		},
	}
}
