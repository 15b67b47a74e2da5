package state

import (
	"maps"
	"slices"

	"github.com/HammerMeetNail/widgetshare/internal/models"
)

// Reduce returns the state after a. It never mutates s and returns s
// unchanged for unknown actions or payloads missing their identifier.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case SetUser:
		if a.User.UID == "" {
			return s
		}
		if s.Auth.User != nil && s.Auth.User.UID != a.User.UID {
			s = clearUserData(s)
		}
		user := a.User
		s.Auth.User = &user
		s.Auth.IsAuthenticated = true
		if s.Auth.Profile != nil && s.Auth.Profile.UID != user.UID {
			s.Auth.Profile = nil
		}
		return s

	case ClearUser:
		return clearUserData(s)

	case SetProfile:
		if s.Auth.User == nil || a.Profile.UID != s.Auth.User.UID {
			return s
		}
		profile := a.Profile
		s.Auth.Profile = &profile
		if profile.Preferences.Theme != "" {
			s.UI.Theme = profile.Preferences.Theme
		}
		return s

	case SetPhotos:
		s.Photos.Items = slices.Clone(a.Photos)
		return s

	case AddPhoto:
		if a.Photo.ID == "" {
			return s
		}
		s.Photos.Items = upsertFront(s.Photos.Items, a.Photo, photoID)
		return s

	case UpdatePhoto:
		s.Photos.Items = updateByID(s.Photos.Items, a.ID, photoID, a.Patch.Apply)
		return s

	case DeletePhoto:
		s.Photos.Items = removeByID(s.Photos.Items, a.ID, photoID)
		return s

	case LikePhoto:
		if a.UserID == "" {
			return s
		}
		s.Photos.Items = updateByID(s.Photos.Items, a.PhotoID, photoID, func(p models.Photo) models.Photo {
			p.Likes = models.AddUnique(p.Likes, a.UserID)
			return p
		})
		return s

	case AddComment:
		if a.Comment.ID == "" {
			return s
		}
		s.Photos.Items = updateByID(s.Photos.Items, a.PhotoID, photoID, func(p models.Photo) models.Photo {
			if slices.ContainsFunc(p.Comments, func(c models.Comment) bool { return c.ID == a.Comment.ID }) {
				return p
			}
			p.Comments = append(slices.Clone(p.Comments), a.Comment)
			return p
		})
		return s

	case SetFriends:
		s.Friends.Items = slices.Clone(a.Friends)
		return s

	case SetFriendRequests:
		s.Friends.Requests = slices.Clone(a.Requests)
		return s

	case AddFriend:
		if a.Friendship.ID == "" {
			return s
		}
		return placeFriendship(s, a.Friendship)

	case UpdateFriend:
		current, ok := findFriendship(s.Friends, a.ID)
		if !ok {
			return s
		}
		return placeFriendship(s, a.Patch.Apply(current))

	case RemoveFriend:
		s.Friends.Items = removeByID(s.Friends.Items, a.ID, friendshipID)
		s.Friends.Requests = removeByID(s.Friends.Requests, a.ID, friendshipID)
		return s

	case SetWidgets:
		s.Widgets = withUserWidgets(s.Widgets, slices.Clone(a.Widgets))
		return s

	case SetSharedWidgets:
		s.Widgets.SharedWidgets = slices.Clone(a.Widgets)
		return s

	case AddWidget:
		if a.Widget.ID == "" {
			return s
		}
		s.Widgets = withUserWidgets(s.Widgets, upsertFront(s.Widgets.UserWidgets, a.Widget, widgetID))
		return s

	case UpdateWidget:
		s.Widgets = withUserWidgets(s.Widgets, updateByID(s.Widgets.UserWidgets, a.ID, widgetID, a.Patch.Apply))
		return s

	case DeleteWidget:
		s.Widgets = withUserWidgets(s.Widgets, removeByID(s.Widgets.UserWidgets, a.ID, widgetID))
		s.Widgets.SharedWidgets = removeByID(s.Widgets.SharedWidgets, a.ID, widgetID)
		return s

	case ToggleWidgetActive:
		s.Widgets = withUserWidgets(s.Widgets, updateByID(s.Widgets.UserWidgets, a.ID, widgetID, func(w models.Widget) models.Widget {
			w.IsActive = !w.IsActive
			return w
		}))
		return s

	case SetTheme:
		switch a.Theme {
		case models.ThemeLight, models.ThemeDark, models.ThemeSystem:
			s.UI.Theme = a.Theme
		}
		return s

	case SetOnline:
		s.UI.IsOnline = a.Online
		return s

	case ShowNotification:
		n := a.Notification
		if n.ID == "" || slices.ContainsFunc(s.UI.Notifications, func(x models.Notification) bool { return x.ID == n.ID }) {
			return s
		}
		s.UI.Notifications = append(slices.Clone(s.UI.Notifications), n)
		return s

	case HideNotification:
		s.UI.Notifications = removeByID(s.UI.Notifications, a.ID, notificationID)
		return s

	case UpdateNotificationProgress:
		progress := min(max(a.Progress, 0), 1)
		s.UI.Notifications = updateByID(s.UI.Notifications, a.ID, notificationID, func(n models.Notification) models.Notification {
			n.Progress = &progress
			return n
		})
		return s

	case OperationPending:
		s.UI.Pending = maps.Clone(s.UI.Pending)
		if s.UI.Pending == nil {
			s.UI.Pending = make(map[Op]int)
		}
		s.UI.Pending[a.Op]++
		if s.UI.Errors[a.Op] != "" {
			s.UI.Errors = maps.Clone(s.UI.Errors)
			delete(s.UI.Errors, a.Op)
		}
		return setSliceStatus(s, a.Op.Slice(), true, "", false)

	case OperationFulfilled:
		s = settle(s, a.Op)
		return setSliceStatus(s, a.Op.Slice(), sliceBusy(s.UI.Pending, a.Op.Slice()), "", false)

	case OperationRejected:
		s = settle(s, a.Op)
		s.UI.Errors = maps.Clone(s.UI.Errors)
		if s.UI.Errors == nil {
			s.UI.Errors = make(map[Op]string)
		}
		s.UI.Errors[a.Op] = a.Reason
		return setSliceStatus(s, a.Op.Slice(), sliceBusy(s.UI.Pending, a.Op.Slice()), a.Reason, true)

	default:
		return s
	}
}

// clearUserData drops identity and every per-user collection. UI
// preferences such as theme survive.
func clearUserData(s State) State {
	s.Auth = AuthState{}
	s.Photos = PhotosState{}
	s.Friends = FriendsState{}
	s.Widgets = WidgetsState{}
	return s
}

func withUserWidgets(ws WidgetsState, user []models.Widget) WidgetsState {
	ws.UserWidgets = user
	ws.ActiveWidgets = nil
	for _, w := range user {
		if w.IsActive {
			ws.ActiveWidgets = append(ws.ActiveWidgets, w)
		}
	}
	return ws
}

func findFriendship(fs FriendsState, id string) (models.Friendship, bool) {
	for _, list := range [][]models.Friendship{fs.Requests, fs.Items} {
		if i := slices.IndexFunc(list, func(f models.Friendship) bool { return f.ID == id }); i >= 0 {
			return list[i], true
		}
	}
	return models.Friendship{}, false
}

// placeFriendship files f under requests while pending and under friends once
// accepted; terminal states drop it from both.
func placeFriendship(s State, f models.Friendship) State {
	s.Friends.Items = removeByID(s.Friends.Items, f.ID, friendshipID)
	s.Friends.Requests = removeByID(s.Friends.Requests, f.ID, friendshipID)
	switch f.Status {
	case models.FriendshipStatusPending:
		s.Friends.Requests = append(s.Friends.Requests, f)
	case models.FriendshipStatusAccepted:
		s.Friends.Items = append(s.Friends.Items, f)
	}
	return s
}

func settle(s State, op Op) State {
	if s.UI.Pending[op] == 0 {
		return s
	}
	s.UI.Pending = maps.Clone(s.UI.Pending)
	if s.UI.Pending[op]--; s.UI.Pending[op] == 0 {
		delete(s.UI.Pending, op)
	}
	return s
}

func sliceBusy(pending map[Op]int, slice string) bool {
	for op, n := range pending {
		if n > 0 && op.Slice() == slice {
			return true
		}
	}
	return false
}

func setSliceStatus(s State, slice string, loading bool, reason string, setError bool) State {
	switch slice {
	case "photos":
		s.Photos.Loading = loading
		if setError || loading {
			s.Photos.Error = reason
		}
	case "friends":
		s.Friends.Loading = loading
		if setError || loading {
			s.Friends.Error = reason
		}
	case "widgets":
		s.Widgets.Loading = loading
		if setError || loading {
			s.Widgets.Error = reason
		}
	}
	return s
}

func photoID(p models.Photo) string               { return p.ID }
func widgetID(w models.Widget) string             { return w.ID }
func friendshipID(f models.Friendship) string     { return f.ID }
func notificationID(n models.Notification) string { return n.ID }

// upsertFront replaces the item with the same id in place, or prepends it.
func upsertFront[T any](items []T, item T, id func(T) string) []T {
	key := id(item)
	if i := slices.IndexFunc(items, func(x T) bool { return id(x) == key }); i >= 0 {
		out := slices.Clone(items)
		out[i] = item
		return out
	}
	return append([]T{item}, items...)
}

func updateByID[T any](items []T, key string, id func(T) string, fn func(T) T) []T {
	if key == "" {
		return items
	}
	i := slices.IndexFunc(items, func(x T) bool { return id(x) == key })
	if i < 0 {
		return items
	}
	out := slices.Clone(items)
	out[i] = fn(out[i])
	return out
}

func removeByID[T any](items []T, key string, id func(T) string) []T {
	if key == "" || !slices.ContainsFunc(items, func(x T) bool { return id(x) == key }) {
		return items
	}
	return slices.DeleteFunc(slices.Clone(items), func(x T) bool { return id(x) == key })
}
