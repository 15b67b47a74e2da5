// Package firestore adapts Cloud Firestore to the backend document contract.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/HammerMeetNail/widgetshare/internal/backend"
)

type Store struct {
	client *firestore.Client
}

func NewStore(client *firestore.Client) *Store {
	return &Store{client: client}
}

var _ backend.Documents = (*Store)(nil)

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Get(ctx context.Context, path string) (backend.Document, error) {
	if _, _, err := backend.SplitPath(path); err != nil {
		return backend.Document{}, err
	}
	snap, err := s.client.Doc(path).Get(ctx)
	if err != nil {
		return backend.Document{}, fmt.Errorf("get %s: %w", path, mapError(err))
	}
	return snapshot(snap), nil
}

func (s *Store) Create(ctx context.Context, collection, id string, data any) (string, error) {
	col := s.client.Collection(collection)
	if col == nil {
		return "", fmt.Errorf("%w: %q", backend.ErrInvalidPath, collection)
	}
	ref := col.NewDoc()
	if id != "" {
		ref = col.Doc(id)
	}
	if _, err := ref.Create(ctx, data); err != nil {
		return "", fmt.Errorf("create %s: %w", ref.Path, mapError(err))
	}
	return ref.ID, nil
}

func (s *Store) Set(ctx context.Context, path string, data any) error {
	ref := s.client.Doc(path)
	if ref == nil {
		return fmt.Errorf("%w: %q", backend.ErrInvalidPath, path)
	}
	if _, err := ref.Set(ctx, data); err != nil {
		return fmt.Errorf("set %s: %w", path, mapError(err))
	}
	return nil
}

func (s *Store) Update(ctx context.Context, path string, fields []backend.Field) error {
	ref := s.client.Doc(path)
	if ref == nil {
		return fmt.Errorf("%w: %q", backend.ErrInvalidPath, path)
	}
	updates := make([]firestore.Update, len(fields))
	for i, f := range fields {
		updates[i] = firestore.Update{Path: f.Path, Value: f.Value}
	}
	if _, err := ref.Update(ctx, updates); err != nil {
		return fmt.Errorf("update %s: %w", path, mapError(err))
	}
	return nil
}

func (s *Store) Increment(ctx context.Context, path, field string, delta int64) error {
	ref := s.client.Doc(path)
	if ref == nil {
		return fmt.Errorf("%w: %q", backend.ErrInvalidPath, path)
	}
	_, err := ref.Update(ctx, []firestore.Update{{Path: field, Value: firestore.Increment(delta)}})
	if err != nil {
		return fmt.Errorf("increment %s.%s: %w", path, field, mapError(err))
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, path string) error {
	ref := s.client.Doc(path)
	if ref == nil {
		return fmt.Errorf("%w: %q", backend.ErrInvalidPath, path)
	}
	if _, err := ref.Delete(ctx); err != nil {
		return fmt.Errorf("delete %s: %w", path, mapError(err))
	}
	return nil
}

func (s *Store) Query(ctx context.Context, q backend.Query) ([]backend.Document, error) {
	col := s.client.Collection(q.Collection)
	if col == nil {
		return nil, fmt.Errorf("%w: %q", backend.ErrInvalidPath, q.Collection)
	}

	query := col.Query
	for _, f := range q.Filters {
		query = query.Where(f.Field, string(f.Op), f.Value)
	}
	if q.OrderBy != "" {
		dir := firestore.Asc
		if q.Desc {
			dir = firestore.Desc
		}
		query = query.OrderBy(q.OrderBy, dir)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var out []backend.Document
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", q.Collection, mapError(err))
		}
		out = append(out, snapshot(snap))
	}
	return out, nil
}

func snapshot(snap *firestore.DocumentSnapshot) backend.Document {
	return backend.NewDocument(relativePath(snap.Ref), snap.DataTo)
}

// relativePath strips the "projects/.../documents/" prefix from a ref path.
func relativePath(ref *firestore.DocumentRef) string {
	parts := []string{ref.ID}
	for col := ref.Parent; col != nil; {
		parts = append([]string{col.ID}, parts...)
		if col.Parent == nil {
			break
		}
		parts = append([]string{col.Parent.ID}, parts...)
		col = col.Parent.Parent
	}
	return strings.Join(parts, "/")
}

// mapError translates gRPC status codes to backend sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.NotFound:
		return errors.Join(backend.ErrNotFound, err)
	case codes.AlreadyExists:
		return errors.Join(backend.ErrAlreadyExists, err)
	case codes.PermissionDenied, codes.Unauthenticated:
		return errors.Join(backend.ErrPermissionDenied, err)
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		return errors.Join(backend.ErrUnavailable, err)
	}
	return err
}
