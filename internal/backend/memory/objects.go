package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/HammerMeetNail/widgetshare/internal/backend"
)

type object struct {
	data        []byte
	contentType string
}

// Objects is an in-memory object store. URLs are BaseURL + "/" + path.
type Objects struct {
	BaseURL string

	mu      sync.RWMutex
	objects map[string]object
}

func NewObjects(baseURL string) *Objects {
	return &Objects{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		objects: make(map[string]object),
	}
}

var _ backend.Objects = (*Objects)(nil)

func (o *Objects) Put(ctx context.Context, path string, r io.Reader, contentType string) error {
	path = strings.TrimLeft(path, "/")
	if path == "" {
		return fmt.Errorf("memory objects: empty path")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("memory objects: read %s: %w", path, err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.objects[path] = object{data: data, contentType: contentType}
	return nil
}

func (o *Objects) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	obj, ok := o.objects[strings.TrimLeft(path, "/")]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, backend.ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (o *Objects) Delete(ctx context.Context, path string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	key := strings.TrimLeft(path, "/")
	if _, ok := o.objects[key]; !ok {
		return fmt.Errorf("%s: %w", path, backend.ErrNotFound)
	}
	delete(o.objects, key)
	return nil
}

func (o *Objects) URL(ctx context.Context, path string) (string, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	key := strings.TrimLeft(path, "/")
	if _, ok := o.objects[key]; !ok {
		return "", fmt.Errorf("%s: %w", path, backend.ErrNotFound)
	}
	if o.BaseURL == "" {
		return key, nil
	}
	return o.BaseURL + "/" + key, nil
}

// ContentType returns the stored content type of path.
func (o *Objects) ContentType(path string) (string, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	obj, ok := o.objects[strings.TrimLeft(path, "/")]
	return obj.contentType, ok
}

// Paths lists stored object paths in lexical order.
func (o *Objects) Paths() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]string, 0, len(o.objects))
	for p := range o.objects {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
