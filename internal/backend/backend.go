// Package backend defines the document and object store contracts the client
// adapters and the triggers rely on.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrPermissionDenied = errors.New("permission denied")
	ErrUnavailable      = errors.New("backend unavailable")
	ErrInvalidPath      = errors.New("invalid document path")
)

type Op string

const (
	OpEqual         Op = "=="
	OpArrayContains Op = "array-contains"
)

type Filter struct {
	Field string
	Op    Op
	Value any
}

// Query is a filtered read of one collection. OrderBy names a timestamp field.
type Query struct {
	Collection string
	Filters    []Filter
	OrderBy    string
	Desc       bool
	Limit      int
}

func (q Query) Where(field string, op Op, value any) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Field: field, Op: op, Value: value})
	return q
}

// Field is one partial update. Path may be dotted to reach nested maps.
type Field struct {
	Path  string
	Value any
}

// Document is a snapshot of a stored document.
type Document struct {
	ID   string
	Path string

	decode func(v any) error
}

func NewDocument(path string, decode func(v any) error) Document {
	return Document{ID: lastSegment(path), Path: path, decode: decode}
}

// NewJSONDocument builds a Document whose payload is JSON.
func NewJSONDocument(path string, raw []byte) Document {
	return NewDocument(path, func(v any) error {
		return json.Unmarshal(raw, v)
	})
}

// DataTo decodes the document into v.
func (d Document) DataTo(v any) error {
	if d.decode == nil {
		return fmt.Errorf("document %s has no data", d.Path)
	}
	return d.decode(v)
}

// Documents is the document store contract. Writes touch a single document;
// there are no multi-document transactions.
type Documents interface {
	Get(ctx context.Context, path string) (Document, error)
	Create(ctx context.Context, collection, id string, data any) (string, error)
	Set(ctx context.Context, path string, data any) error
	Update(ctx context.Context, path string, fields []Field) error
	Increment(ctx context.Context, path, field string, delta int64) error
	Delete(ctx context.Context, path string) error
	Query(ctx context.Context, q Query) ([]Document, error)
}

// Objects is the binary object store contract.
type Objects interface {
	Put(ctx context.Context, path string, r io.Reader, contentType string) error
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error
	URL(ctx context.Context, path string) (string, error)
}

// SplitPath splits "a/b/c/d" into collection "a/b/c" and id "d".
func SplitPath(path string) (collection, id string, err error) {
	path = strings.Trim(path, "/")
	idx := strings.LastIndex(path, "/")
	if idx <= 0 || idx == len(path)-1 {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	segments := strings.Count(path, "/") + 1
	if segments%2 != 0 {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return path[:idx], path[idx+1:], nil
}

// Get decodes the document at path into a fresh T.
func Get[T any](ctx context.Context, docs Documents, path string) (T, error) {
	var out T
	doc, err := docs.Get(ctx, path)
	if err != nil {
		return out, err
	}
	if err := doc.DataTo(&out); err != nil {
		return out, fmt.Errorf("decode %s: %w", path, err)
	}
	return out, nil
}

// QueryAll decodes every document matched by q.
func QueryAll[T any](ctx context.Context, docs Documents, q Query) ([]T, error) {
	found, err := docs.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(found))
	for _, doc := range found {
		var v T
		if err := doc.DataTo(&v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", doc.Path, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// LookupPath walks a dotted path through nested maps.
func LookupPath(doc map[string]any, path string) any {
	var current any = doc
	for _, key := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = m[key]
	}
	return current
}

// SetPath writes value at a dotted path, creating intermediate maps.
func SetPath(doc map[string]any, path string, value any) {
	keys := strings.Split(path, ".")
	current := doc
	for _, key := range keys[:len(keys)-1] {
		next, ok := current[key].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[key] = next
		}
		current = next
	}
	current[keys[len(keys)-1]] = value
}

func lastSegment(path string) string {
	path = strings.Trim(path, "/")
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
