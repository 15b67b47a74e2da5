package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"

	"github.com/HammerMeetNail/widgetshare/internal/backend"
)

// GCS stores objects in the Firebase Cloud Storage bucket.
type GCS struct {
	bucket  *storage.BucketHandle
	name    string
	baseURL string
}

var _ backend.Objects = (*GCS)(nil)

// NewGCS wraps bucket. When publicBaseURL is empty, URL returns signed links.
func NewGCS(client *storage.Client, bucket, publicBaseURL string) *GCS {
	return &GCS{
		bucket:  client.Bucket(bucket),
		name:    bucket,
		baseURL: strings.TrimSuffix(publicBaseURL, "/"),
	}
}

func (g *GCS) Put(ctx context.Context, path string, r io.Reader, contentType string) error {
	key := strings.TrimLeft(path, "/")
	if key == "" {
		return fmt.Errorf("gcs storage: empty key")
	}

	w := g.bucket.Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("gcs storage write %s: %w", key, mapGCSError(err))
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs storage close %s: %w", key, mapGCSError(err))
	}
	return nil
}

func (g *GCS) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	key := strings.TrimLeft(path, "/")
	rc, err := g.bucket.Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs storage read %s: %w", key, mapGCSError(err))
	}
	return rc, nil
}

func (g *GCS) Delete(ctx context.Context, path string) error {
	key := strings.TrimLeft(path, "/")
	if err := g.bucket.Object(key).Delete(ctx); err != nil {
		return fmt.Errorf("gcs storage delete %s: %w", key, mapGCSError(err))
	}
	return nil
}

func (g *GCS) URL(ctx context.Context, path string) (string, error) {
	key := strings.TrimLeft(path, "/")
	if g.baseURL != "" {
		return fmt.Sprintf("%s/%s", g.baseURL, key), nil
	}
	url, err := g.bucket.SignedURL(key, &storage.SignedURLOptions{
		Method:  "GET",
		Expires: time.Now().Add(PresignTTL),
		Scheme:  storage.SigningSchemeV4,
	})
	if err != nil {
		return "", fmt.Errorf("gcs storage sign %s: %w", key, err)
	}
	return url, nil
}

func mapGCSError(err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return errors.Join(backend.ErrNotFound, err)
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusForbidden, http.StatusUnauthorized:
			return errors.Join(backend.ErrPermissionDenied, err)
		case http.StatusNotFound:
			return errors.Join(backend.ErrNotFound, err)
		case http.StatusTooManyRequests, http.StatusServiceUnavailable:
			return errors.Join(backend.ErrUnavailable, err)
		}
	}
	return err
}
