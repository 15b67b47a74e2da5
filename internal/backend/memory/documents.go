// Package memory provides in-process document and object stores used for
// local development and tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/widgetshare/internal/backend"
)

// Documents keeps JSON-normalized documents keyed by collection and id.
type Documents struct {
	mu   sync.RWMutex
	data map[string]map[string]map[string]any
	// order preserves insertion order so unordered queries are stable.
	order map[string][]string
}

func NewDocuments() *Documents {
	return &Documents{
		data:  make(map[string]map[string]map[string]any),
		order: make(map[string][]string),
	}
}

var _ backend.Documents = (*Documents)(nil)

func (d *Documents) Get(ctx context.Context, path string) (backend.Document, error) {
	collection, id, err := backend.SplitPath(path)
	if err != nil {
		return backend.Document{}, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	doc, ok := d.data[collection][id]
	if !ok {
		return backend.Document{}, fmt.Errorf("%s: %w", path, backend.ErrNotFound)
	}
	return snapshot(collection+"/"+id, doc)
}

func (d *Documents) Create(ctx context.Context, collection, id string, data any) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}
	fields, err := normalizeObject(data)
	if err != nil {
		return "", err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.data[collection][id]; exists {
		return "", fmt.Errorf("%s/%s: %w", collection, id, backend.ErrAlreadyExists)
	}
	d.put(collection, id, fields)
	return id, nil
}

func (d *Documents) Set(ctx context.Context, path string, data any) error {
	collection, id, err := backend.SplitPath(path)
	if err != nil {
		return err
	}
	fields, err := normalizeObject(data)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.put(collection, id, fields)
	return nil
}

func (d *Documents) Update(ctx context.Context, path string, updates []backend.Field) error {
	collection, id, err := backend.SplitPath(path)
	if err != nil {
		return err
	}

	normalized := make([]any, len(updates))
	for i, u := range updates {
		v, err := normalize(u.Value)
		if err != nil {
			return fmt.Errorf("update %s: %w", u.Path, err)
		}
		normalized[i] = v
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	doc, ok := d.data[collection][id]
	if !ok {
		return fmt.Errorf("%s: %w", path, backend.ErrNotFound)
	}
	for i, u := range updates {
		backend.SetPath(doc, u.Path, normalized[i])
	}
	return nil
}

func (d *Documents) Increment(ctx context.Context, path, field string, delta int64) error {
	collection, id, err := backend.SplitPath(path)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	doc, ok := d.data[collection][id]
	if !ok {
		return fmt.Errorf("%s: %w", path, backend.ErrNotFound)
	}
	current, _ := backend.LookupPath(doc, field).(float64)
	backend.SetPath(doc, field, current+float64(delta))
	return nil
}

func (d *Documents) Delete(ctx context.Context, path string) error {
	collection, id, err := backend.SplitPath(path)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.data[collection][id]; !ok {
		return nil
	}
	delete(d.data[collection], id)
	ids := d.order[collection]
	for i, existing := range ids {
		if existing == id {
			d.order[collection] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

func (d *Documents) Query(ctx context.Context, q backend.Query) ([]backend.Document, error) {
	filters := make([]backend.Filter, len(q.Filters))
	for i, f := range q.Filters {
		v, err := normalize(f.Value)
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", f.Field, err)
		}
		filters[i] = backend.Filter{Field: f.Field, Op: f.Op, Value: v}
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	type hit struct {
		id  string
		doc map[string]any
	}
	var hits []hit
	for _, id := range d.order[q.Collection] {
		doc := d.data[q.Collection][id]
		if matches(doc, filters) {
			hits = append(hits, hit{id: id, doc: doc})
		}
	}

	if q.OrderBy != "" {
		sort.SliceStable(hits, func(i, j int) bool {
			a := timeField(hits[i].doc, q.OrderBy)
			b := timeField(hits[j].doc, q.OrderBy)
			if q.Desc {
				return a.After(b)
			}
			return a.Before(b)
		})
	}
	if q.Limit > 0 && len(hits) > q.Limit {
		hits = hits[:q.Limit]
	}

	out := make([]backend.Document, 0, len(hits))
	for _, h := range hits {
		doc, err := snapshot(q.Collection+"/"+h.id, h.doc)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

func (d *Documents) put(collection, id string, fields map[string]any) {
	if d.data[collection] == nil {
		d.data[collection] = make(map[string]map[string]any)
	}
	if _, exists := d.data[collection][id]; !exists {
		d.order[collection] = append(d.order[collection], id)
	}
	d.data[collection][id] = fields
}

func snapshot(path string, doc map[string]any) (backend.Document, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return backend.Document{}, fmt.Errorf("encode %s: %w", path, err)
	}
	return backend.NewJSONDocument(path, raw), nil
}

func matches(doc map[string]any, filters []backend.Filter) bool {
	for _, f := range filters {
		value := backend.LookupPath(doc, f.Field)
		switch f.Op {
		case backend.OpEqual:
			if !reflect.DeepEqual(value, f.Value) {
				return false
			}
		case backend.OpArrayContains:
			items, ok := value.([]any)
			if !ok {
				return false
			}
			found := false
			for _, item := range items {
				if reflect.DeepEqual(item, f.Value) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func timeField(doc map[string]any, field string) time.Time {
	s, _ := backend.LookupPath(doc, field).(string)
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func normalizeObject(data any) (map[string]any, error) {
	v, err := normalize(data)
	if err != nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("document data must be an object, got %T", data)
	}
	return m, nil
}

// normalize round-trips v through JSON so stored values have the same shape
// regardless of the Go type that produced them.
func normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	return out, nil
}
