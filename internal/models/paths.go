package models

import (
	"path"
	"strings"
)

// Collection names in the document store.
const (
	CollectionUsers    = "users"
	CollectionPhotos   = "photos"
	CollectionWidgets  = "widgets"
	CollectionFriends  = "friends"
	CollectionChats    = "chats"
	CollectionMessages = "messages"
	CollectionUploads  = "uploads"
)

const (
	SharedPhotosPrefix = "shared-photos"
	ProfilesPrefix     = "profiles"
	ThumbnailPrefix    = "thumb_"
)

func DocPath(collection, id string) string {
	return collection + "/" + id
}

func MessagesCollection(chatID string) string {
	return CollectionChats + "/" + chatID + "/" + CollectionMessages
}

// SharedPhotoPath is shared-photos/{uid}/{fileName}.
func SharedPhotoPath(uid, fileName string) string {
	return path.Join(SharedPhotosPrefix, uid, fileName)
}

// ProfilePhotoPath is profiles/{uid}/profile.jpg.
func ProfilePhotoPath(uid string) string {
	return path.Join(ProfilesPrefix, uid, "profile.jpg")
}

// ThumbnailPath places the thumb_ companion in the same directory.
func ThumbnailPath(objectPath string) string {
	dir, file := path.Split(objectPath)
	return dir + ThumbnailPrefix + file
}

// IsThumbnailPath reports whether the object is itself a derived thumbnail.
func IsThumbnailPath(objectPath string) bool {
	return strings.HasPrefix(path.Base(objectPath), ThumbnailPrefix)
}

// ParseSharedPhotoPath extracts the owner and file name from a shared photo
// path. ok is false for any other layout.
func ParseSharedPhotoPath(objectPath string) (uid, fileName string, ok bool) {
	parts := strings.Split(strings.TrimPrefix(objectPath, "/"), "/")
	if len(parts) != 3 || parts[0] != SharedPhotosPrefix || parts[1] == "" || parts[2] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}
