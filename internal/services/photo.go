package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/widgetshare/internal/backend"
	"github.com/HammerMeetNail/widgetshare/internal/logging"
	"github.com/HammerMeetNail/widgetshare/internal/models"
	"github.com/HammerMeetNail/widgetshare/internal/state"
	"github.com/HammerMeetNail/widgetshare/internal/validate"
)

type PhotoService struct {
	docs    backend.Documents
	objects backend.Objects
	store   state.Dispatcher
	logger  *logging.Logger
}

func NewPhotoService(docs backend.Documents, objects backend.Objects, store state.Dispatcher, logger *logging.Logger) *PhotoService {
	if logger == nil {
		logger = logging.Default
	}
	return &PhotoService{docs: docs, objects: objects, store: store, logger: logger}
}

type UploadInput struct {
	FileName   string
	Data       []byte
	Caption    string
	SharedWith []string
}

// Upload writes the binary, resolves its URL and then the metadata record.
// It only succeeds once all three steps have.
func (s *PhotoService) Upload(ctx context.Context, uid string, in UploadInput) (models.Photo, error) {
	if uid == "" {
		return models.Photo{}, ErrNotSignedIn
	}
	contentType, err := validate.ImageFile(in.Data)
	if err != nil {
		return models.Photo{}, err
	}
	if err := validate.Caption(in.Caption); err != nil {
		return models.Photo{}, err
	}

	return Run(ctx, s.store, state.OpUploadPhoto, func(ctx context.Context) (models.Photo, error) {
		ts := now()
		id := uuid.NewString()
		objectPath := models.SharedPhotoPath(uid, fmt.Sprintf("%d_%s", ts.UnixMilli(), cleanFileName(in.FileName, id)))

		if err := s.objects.Put(ctx, objectPath, bytes.NewReader(in.Data), contentType); err != nil {
			return models.Photo{}, fmt.Errorf("uploading photo: %w", err)
		}
		url, err := s.objects.URL(ctx, objectPath)
		if err != nil {
			return models.Photo{}, s.orphaned(ctx, objectPath, fmt.Errorf("resolving photo url: %w", err))
		}

		photo := models.Photo{
			ID:          id,
			UserID:      uid,
			URL:         url,
			StoragePath: objectPath,
			Caption:     in.Caption,
			SharedWith:  models.AddUnique([]string{}, withoutID(in.SharedWith, uid)...),
			Likes:       []string{},
			Comments:    []models.Comment{},
			CreatedAt:   ts,
		}
		if _, err := s.docs.Create(ctx, models.CollectionPhotos, id, photo); err != nil {
			return models.Photo{}, s.orphaned(ctx, objectPath, fmt.Errorf("saving photo: %w", err))
		}
		return photo, nil
	}, func(p models.Photo) []state.Action {
		return actions(state.AddPhoto{Photo: p})
	})
}

// orphaned removes an uploaded binary whose metadata could not be written and
// returns the original failure.
func (s *PhotoService) orphaned(ctx context.Context, objectPath string, cause error) error {
	if err := s.objects.Delete(ctx, objectPath); err != nil && !errors.Is(err, backend.ErrNotFound) {
		s.logger.Error("Orphaned photo object", map[string]interface{}{
			"path":  objectPath,
			"cause": cause.Error(),
			"error": err.Error(),
		})
	}
	return cause
}

func cleanFileName(name, fallback string) string {
	name = strings.TrimSpace(path.Base(strings.ReplaceAll(name, "\\", "/")))
	if name == "" || name == "." || name == "/" {
		return fallback
	}
	return name
}

func withoutID(ids []string, drop string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != drop {
			out = append(out, id)
		}
	}
	return out
}

// Load returns the photos owned by or shared with uid, newest first.
func (s *PhotoService) Load(ctx context.Context, uid string) ([]models.Photo, error) {
	if uid == "" {
		return nil, ErrNotSignedIn
	}
	return Run(ctx, s.store, state.OpLoadPhotos, func(ctx context.Context) ([]models.Photo, error) {
		base := backend.Query{Collection: models.CollectionPhotos, OrderBy: "createdAt", Desc: true}
		owned, err := backend.QueryAll[models.Photo](ctx, s.docs, base.Where("userId", backend.OpEqual, uid))
		if err != nil {
			return nil, fmt.Errorf("loading own photos: %w", err)
		}
		shared, err := backend.QueryAll[models.Photo](ctx, s.docs, base.Where("sharedWith", backend.OpArrayContains, uid))
		if err != nil {
			return nil, fmt.Errorf("loading shared photos: %w", err)
		}
		return mergePhotos(owned, shared), nil
	}, func(photos []models.Photo) []state.Action {
		return actions(state.SetPhotos{Photos: photos})
	})
}

func mergePhotos(lists ...[]models.Photo) []models.Photo {
	seen := make(map[string]bool)
	var out []models.Photo
	for _, list := range lists {
		for _, p := range list {
			if seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *PhotoService) visiblePhoto(ctx context.Context, uid, photoID string) (models.Photo, error) {
	photo, err := backend.Get[models.Photo](ctx, s.docs, models.DocPath(models.CollectionPhotos, photoID))
	if err != nil {
		return models.Photo{}, err
	}
	if !photo.VisibleTo(uid) {
		return models.Photo{}, backend.ErrPermissionDenied
	}
	return photo, nil
}

// Like adds uid to the stored likes. Liking twice writes nothing the second
// time.
func (s *PhotoService) Like(ctx context.Context, uid, photoID string) (models.Photo, error) {
	if uid == "" {
		return models.Photo{}, ErrNotSignedIn
	}
	return Run(ctx, s.store, state.OpLikePhoto, func(ctx context.Context) (models.Photo, error) {
		photo, err := s.visiblePhoto(ctx, uid, photoID)
		if err != nil {
			return models.Photo{}, err
		}
		if photo.LikedBy(uid) {
			return photo, nil
		}
		photo.Likes = models.AddUnique(photo.Likes, uid)
		err = s.docs.Update(ctx, models.DocPath(models.CollectionPhotos, photoID), []backend.Field{
			{Path: "likes", Value: photo.Likes},
		})
		if err != nil {
			return models.Photo{}, fmt.Errorf("liking photo: %w", err)
		}
		return photo, nil
	}, func(p models.Photo) []state.Action {
		return actions(state.LikePhoto{PhotoID: p.ID, UserID: uid})
	})
}

// Comment appends to the comments read from the stored photo.
func (s *PhotoService) Comment(ctx context.Context, uid, photoID, text string) (models.Comment, error) {
	if uid == "" {
		return models.Comment{}, ErrNotSignedIn
	}
	text = strings.TrimSpace(text)
	if err := validate.CommentText(text); err != nil {
		return models.Comment{}, err
	}

	return Run(ctx, s.store, state.OpCommentPhoto, func(ctx context.Context) (models.Comment, error) {
		photo, err := s.visiblePhoto(ctx, uid, photoID)
		if err != nil {
			return models.Comment{}, err
		}
		comment := models.Comment{ID: uuid.NewString(), UserID: uid, Text: text, CreatedAt: now()}
		comments := append(append([]models.Comment{}, photo.Comments...), comment)
		err = s.docs.Update(ctx, models.DocPath(models.CollectionPhotos, photoID), []backend.Field{
			{Path: "comments", Value: comments},
		})
		if err != nil {
			return models.Comment{}, fmt.Errorf("adding comment: %w", err)
		}
		return comment, nil
	}, func(c models.Comment) []state.Action {
		return actions(state.AddComment{PhotoID: photoID, Comment: c})
	})
}

// Delete removes the record and then its objects. Objects that are already
// gone are fine; other object failures are logged since the record is gone.
func (s *PhotoService) Delete(ctx context.Context, uid, photoID string) error {
	if uid == "" {
		return ErrNotSignedIn
	}
	_, err := Run(ctx, s.store, state.OpDeletePhoto, func(ctx context.Context) (struct{}, error) {
		photo, err := backend.Get[models.Photo](ctx, s.docs, models.DocPath(models.CollectionPhotos, photoID))
		if err != nil {
			return struct{}{}, err
		}
		if photo.UserID != uid {
			return struct{}{}, ErrNotOwner
		}
		if err := s.docs.Delete(ctx, models.DocPath(models.CollectionPhotos, photoID)); err != nil {
			return struct{}{}, fmt.Errorf("deleting photo: %w", err)
		}
		if photo.StoragePath == "" {
			return struct{}{}, nil
		}
		for _, p := range []string{photo.StoragePath, photo.ThumbnailPath()} {
			if err := s.objects.Delete(ctx, p); err != nil && !errors.Is(err, backend.ErrNotFound) {
				s.logger.Warn("Photo object delete failed", map[string]interface{}{
					"photo_id": photoID,
					"path":     p,
					"error":    err.Error(),
				})
			}
		}
		return struct{}{}, nil
	}, func(struct{}) []state.Action {
		return actions(state.DeletePhoto{ID: photoID})
	})
	return err
}
