package models

import "time"

// User is the authenticated identity held by the client session.
type User struct {
	UID         string `firestore:"uid" json:"uid"`
	Email       string `firestore:"email" json:"email"`
	DisplayName string `firestore:"displayName" json:"displayName"`
	PhotoURL    string `firestore:"photoURL,omitempty" json:"photoURL,omitempty"`
}

// Profile is the users/{uid} document.
type Profile struct {
	UID         string      `firestore:"uid" json:"uid"`
	Email       string      `firestore:"email" json:"email"`
	DisplayName string      `firestore:"displayName" json:"displayName"`
	PhotoURL    string      `firestore:"photoURL,omitempty" json:"photoURL,omitempty"`
	FCMToken    string      `firestore:"fcmToken,omitempty" json:"fcmToken,omitempty"`
	IsOnline    bool        `firestore:"isOnline" json:"isOnline"`
	Preferences Preferences `firestore:"preferences" json:"preferences"`
	Stats       UserStats   `firestore:"stats" json:"stats"`
	CreatedAt   time.Time   `firestore:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time   `firestore:"updatedAt" json:"updatedAt"`
}

type Preferences struct {
	Notifications NotificationPreferences `firestore:"notifications" json:"notifications"`
	Privacy       PrivacyPreferences      `firestore:"privacy" json:"privacy"`
	Theme         string                  `firestore:"theme" json:"theme"`
}

type NotificationPreferences struct {
	WidgetShares   bool `firestore:"widgetShares" json:"widgetShares"`
	FriendRequests bool `firestore:"friendRequests" json:"friendRequests"`
	ChatMessages   bool `firestore:"chatMessages" json:"chatMessages"`
	PhotoShares    bool `firestore:"photoShares" json:"photoShares"`
	Email          bool `firestore:"email" json:"email"`
}

type PrivacyPreferences struct {
	Searchable bool `firestore:"searchable" json:"searchable"`
	ShowOnline bool `firestore:"showOnline" json:"showOnline"`
}

type UserStats struct {
	PhotosUploaded int64 `firestore:"photosUploaded" json:"photosUploaded"`
}

const (
	ThemeLight  = "light"
	ThemeDark   = "dark"
	ThemeSystem = "system"
)

// DefaultPreferences is applied to profiles created on sign-up.
func DefaultPreferences() Preferences {
	return Preferences{
		Notifications: NotificationPreferences{
			WidgetShares:   true,
			FriendRequests: true,
			ChatMessages:   true,
			PhotoShares:    true,
		},
		Privacy: PrivacyPreferences{
			Searchable: true,
			ShowOnline: true,
		},
		Theme: ThemeSystem,
	}
}

func (p Profile) User() User {
	return User{
		UID:         p.UID,
		Email:       p.Email,
		DisplayName: p.DisplayName,
		PhotoURL:    p.PhotoURL,
	}
}

// Name returns a display label for push copy.
func (p Profile) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	if p.Email != "" {
		return p.Email
	}
	return "Someone"
}
