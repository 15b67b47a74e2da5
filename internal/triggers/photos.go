package triggers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/widgetshare/internal/backend"
	"github.com/HammerMeetNail/widgetshare/internal/images"
	"github.com/HammerMeetNail/widgetshare/internal/models"
)

// Object describes a finalized object in the bucket.
type Object struct {
	Bucket      string `json:"bucket"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// UploadID is stable per object so redelivered events map to the same record.
func UploadID(obj Object) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(obj.Bucket+"/"+obj.Name)).String()
}

// GenerateThumbnail writes the thumb_ companion of an image and returns its
// path, or "" when nothing was written. Thumbnails never get thumbnails.
func (t *Triggers) GenerateThumbnail(ctx context.Context, obj Object) string {
	const name = "storage.thumbnail"
	defer t.guard(name, obj.Name)

	if models.IsThumbnailPath(obj.Name) || !images.IsImage(obj.ContentType) {
		return ""
	}

	rc, err := t.objects.Get(ctx, obj.Name)
	if err != nil {
		t.fail(name, obj.Name, fmt.Errorf("reading original: %w", err))
		return ""
	}
	defer rc.Close()

	data, err := images.Thumbnail(rc, t.thumbMax)
	if err != nil {
		t.fail(name, obj.Name, err)
		return ""
	}

	thumb := models.ThumbnailPath(obj.Name)
	if err := t.objects.Put(ctx, thumb, bytes.NewReader(data), "image/jpeg"); err != nil {
		t.fail(name, obj.Name, fmt.Errorf("writing thumbnail: %w", err))
		return ""
	}
	t.logger.Info("Thumbnail generated", map[string]interface{}{"path": obj.Name, "thumbnail": thumb})
	return thumb
}

// RecordPhotoUpload writes the uploads record for a shared photo and bumps
// the owner's upload count. The count moves only when the record is new.
func (t *Triggers) RecordPhotoUpload(ctx context.Context, obj Object) bool {
	const name = "storage.record"
	defer t.guard(name, obj.Name)

	if models.IsThumbnailPath(obj.Name) || !images.IsImage(obj.ContentType) {
		return false
	}
	uid, _, ok := models.ParseSharedPhotoPath(obj.Name)
	if !ok {
		return false
	}

	id := UploadID(obj)
	_, err := t.docs.Create(ctx, models.CollectionUploads, id, models.Upload{
		ID:          id,
		UserID:      uid,
		Path:        obj.Name,
		ContentType: obj.ContentType,
		Size:        obj.Size,
		CreatedAt:   time.Now().UTC(),
	})
	if errors.Is(err, backend.ErrAlreadyExists) {
		t.logger.Debug("Upload already recorded", map[string]interface{}{"path": obj.Name, "id": id})
		return false
	}
	if err != nil {
		t.fail(name, obj.Name, fmt.Errorf("recording upload: %w", err))
		return false
	}

	if err := t.docs.Increment(ctx, models.DocPath(models.CollectionUsers, uid), "stats.photosUploaded", 1); err != nil {
		t.fail(name, obj.Name, fmt.Errorf("incrementing stats for %s: %w", uid, err))
	}
	return true
}

// PhotoDeleted removes the original and thumbnail objects behind a deleted
// photo record. It returns the paths that were actually removed.
func (t *Triggers) PhotoDeleted(ctx context.Context, photo models.Photo) []string {
	const name = "photos.deleted"
	defer t.guard(name, photo.ID)

	if photo.StoragePath == "" {
		return nil
	}

	var removed []string
	for _, path := range []string{photo.StoragePath, photo.ThumbnailPath()} {
		err := t.objects.Delete(ctx, path)
		switch {
		case err == nil:
			removed = append(removed, path)
		case errors.Is(err, backend.ErrNotFound):
			t.logger.Debug("Photo object already gone", map[string]interface{}{"photoId": photo.ID, "path": path})
		default:
			t.fail(name, photo.ID, fmt.Errorf("deleting %s: %w", path, err))
		}
	}
	return removed
}
