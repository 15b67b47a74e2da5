package models

import (
	"slices"
	"time"
)

type Photo struct {
	ID           string    `firestore:"id" json:"id"`
	UserID       string    `firestore:"userId" json:"userId"`
	URL          string    `firestore:"url" json:"url"`
	ThumbnailURL string    `firestore:"thumbnailUrl,omitempty" json:"thumbnailUrl,omitempty"`
	StoragePath  string    `firestore:"storagePath" json:"storagePath"`
	Caption      string    `firestore:"caption" json:"caption"`
	SharedWith   []string  `firestore:"sharedWith" json:"sharedWith"`
	Likes        []string  `firestore:"likes" json:"likes"`
	Comments     []Comment `firestore:"comments" json:"comments"`
	CreatedAt    time.Time `firestore:"createdAt" json:"createdAt"`
}

type Comment struct {
	ID        string    `firestore:"id" json:"id"`
	UserID    string    `firestore:"userId" json:"userId"`
	Text      string    `firestore:"text" json:"text"`
	CreatedAt time.Time `firestore:"createdAt" json:"createdAt"`
}

// VisibleTo reports whether uid may see the photo.
func (p Photo) VisibleTo(uid string) bool {
	if uid == "" {
		return false
	}
	return p.UserID == uid || slices.Contains(p.SharedWith, uid)
}

// LikedBy reports whether uid is in the likes set.
func (p Photo) LikedBy(uid string) bool {
	return slices.Contains(p.Likes, uid)
}

// ThumbnailPath returns the companion thumbnail object path, or "" when the
// photo has no storage path.
func (p Photo) ThumbnailPath() string {
	if p.StoragePath == "" {
		return ""
	}
	return ThumbnailPath(p.StoragePath)
}

// AddUnique appends id when not already present, returning a new slice.
func AddUnique(ids []string, add ...string) []string {
	out := slices.Clone(ids)
	for _, id := range add {
		if id == "" || slices.Contains(out, id) {
			continue
		}
		out = append(out, id)
	}
	return out
}

// Upload is the uploads/{id} record written once per finalized shared photo.
type Upload struct {
	ID          string    `firestore:"id" json:"id"`
	UserID      string    `firestore:"userId" json:"userId"`
	Path        string    `firestore:"path" json:"path"`
	ContentType string    `firestore:"contentType" json:"contentType"`
	Size        int64     `firestore:"size" json:"size"`
	CreatedAt   time.Time `firestore:"createdAt" json:"createdAt"`
}

// PhotoPatch carries the fields an update may change. Nil fields are left
// untouched.
type PhotoPatch struct {
	Caption      *string   `json:"caption,omitempty"`
	ThumbnailURL *string   `json:"thumbnailUrl,omitempty"`
	SharedWith   []string  `json:"sharedWith,omitempty"`
	Likes        []string  `json:"likes,omitempty"`
	Comments     []Comment `json:"comments,omitempty"`
}

func (p PhotoPatch) Apply(photo Photo) Photo {
	if p.Caption != nil {
		photo.Caption = *p.Caption
	}
	if p.ThumbnailURL != nil {
		photo.ThumbnailURL = *p.ThumbnailURL
	}
	if p.SharedWith != nil {
		photo.SharedWith = slices.Clone(p.SharedWith)
	}
	if p.Likes != nil {
		photo.Likes = AddUnique(nil, p.Likes...)
	}
	if p.Comments != nil {
		photo.Comments = slices.Clone(p.Comments)
	}
	return photo
}
