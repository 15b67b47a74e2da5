package state

import "github.com/HammerMeetNail/widgetshare/internal/models"

// Action is a named state transition. Reduce ignores types it does not know.
type Action interface {
	Type() string
}

type (
	SetUser    struct{ User models.User }
	ClearUser  struct{}
	SetProfile struct{ Profile models.Profile }

	SetPhotos   struct{ Photos []models.Photo }
	AddPhoto    struct{ Photo models.Photo }
	UpdatePhoto struct {
		ID    string
		Patch models.PhotoPatch
	}
	DeletePhoto struct{ ID string }
	LikePhoto   struct{ PhotoID, UserID string }
	AddComment  struct {
		PhotoID string
		Comment models.Comment
	}

	SetFriends        struct{ Friends []models.Friendship }
	SetFriendRequests struct{ Requests []models.Friendship }
	AddFriend         struct{ Friendship models.Friendship }
	UpdateFriend      struct {
		ID    string
		Patch models.FriendshipPatch
	}
	RemoveFriend struct{ ID string }

	SetWidgets       struct{ Widgets []models.Widget }
	SetSharedWidgets struct{ Widgets []models.Widget }
	AddWidget        struct{ Widget models.Widget }
	UpdateWidget     struct {
		ID    string
		Patch models.WidgetPatch
	}
	DeleteWidget       struct{ ID string }
	ToggleWidgetActive struct{ ID string }

	SetTheme                   struct{ Theme string }
	SetOnline                  struct{ Online bool }
	ShowNotification           struct{ Notification models.Notification }
	HideNotification           struct{ ID string }
	UpdateNotificationProgress struct {
		ID       string
		Progress float64
	}

	OperationPending   struct{ Op Op }
	OperationFulfilled struct{ Op Op }
	OperationRejected  struct {
		Op     Op
		Reason string
	}
)

func (SetUser) Type() string    { return "SET_USER" }
func (ClearUser) Type() string  { return "CLEAR_USER" }
func (SetProfile) Type() string { return "SET_PROFILE" }

func (SetPhotos) Type() string   { return "SET_PHOTOS" }
func (AddPhoto) Type() string    { return "ADD_PHOTO" }
func (UpdatePhoto) Type() string { return "UPDATE_PHOTO" }
func (DeletePhoto) Type() string { return "DELETE_PHOTO" }
func (LikePhoto) Type() string   { return "LIKE_PHOTO" }
func (AddComment) Type() string  { return "ADD_COMMENT" }

func (SetFriends) Type() string        { return "SET_FRIENDS" }
func (SetFriendRequests) Type() string { return "SET_FRIEND_REQUESTS" }
func (AddFriend) Type() string         { return "ADD_FRIEND" }
func (UpdateFriend) Type() string      { return "UPDATE_FRIEND" }
func (RemoveFriend) Type() string      { return "REMOVE_FRIEND" }

func (SetWidgets) Type() string         { return "SET_WIDGETS" }
func (SetSharedWidgets) Type() string   { return "SET_SHARED_WIDGETS" }
func (AddWidget) Type() string          { return "ADD_WIDGET" }
func (UpdateWidget) Type() string       { return "UPDATE_WIDGET" }
func (DeleteWidget) Type() string       { return "DELETE_WIDGET" }
func (ToggleWidgetActive) Type() string { return "TOGGLE_WIDGET_ACTIVE" }

func (SetTheme) Type() string                   { return "SET_THEME" }
func (SetOnline) Type() string                  { return "SET_ONLINE" }
func (ShowNotification) Type() string           { return "SHOW_NOTIFICATION" }
func (HideNotification) Type() string           { return "HIDE_NOTIFICATION" }
func (UpdateNotificationProgress) Type() string { return "UPDATE_NOTIFICATION_PROGRESS" }

func (OperationPending) Type() string   { return "OPERATION_PENDING" }
func (OperationFulfilled) Type() string { return "OPERATION_FULFILLED" }
func (OperationRejected) Type() string  { return "OPERATION_REJECTED" }
