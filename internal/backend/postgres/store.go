// Package postgres stores documents as JSONB rows in a single documents table.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/widgetshare/internal/backend"
	"github.com/HammerMeetNail/widgetshare/internal/database"
)

type Store struct {
	db database.DB
}

func NewStore(db database.DB) *Store {
	return &Store{db: db}
}

var _ backend.Documents = (*Store)(nil)

func (s *Store) Get(ctx context.Context, path string) (backend.Document, error) {
	collection, id, err := backend.SplitPath(path)
	if err != nil {
		return backend.Document{}, err
	}

	var raw []byte
	err = s.db.QueryRow(ctx,
		`SELECT data FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	).Scan(&raw)
	if database.IsNoRows(err) {
		return backend.Document{}, fmt.Errorf("%s: %w", path, backend.ErrNotFound)
	}
	if err != nil {
		return backend.Document{}, fmt.Errorf("get %s: %w", path, err)
	}
	return backend.NewJSONDocument(collection+"/"+id, raw), nil
}

func (s *Store) Create(ctx context.Context, collection, id string, data any) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}
	raw, err := encodeObject(data)
	if err != nil {
		return "", err
	}

	tag, err := s.db.Exec(ctx,
		`INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3::jsonb)
		 ON CONFLICT (collection, id) DO NOTHING`,
		collection, id, raw,
	)
	if err != nil {
		return "", fmt.Errorf("create %s/%s: %w", collection, id, err)
	}
	if tag.RowsAffected() == 0 {
		return "", fmt.Errorf("%s/%s: %w", collection, id, backend.ErrAlreadyExists)
	}
	return id, nil
}

func (s *Store) Set(ctx context.Context, path string, data any) error {
	collection, id, err := backend.SplitPath(path)
	if err != nil {
		return err
	}
	raw, err := encodeObject(data)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3::jsonb)
		 ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`,
		collection, id, raw,
	)
	if err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	return nil
}

// Update applies dotted-path field writes under a row lock so concurrent
// partial updates to the same document do not overwrite each other.
func (s *Store) Update(ctx context.Context, path string, fields []backend.Field) error {
	collection, id, err := backend.SplitPath(path)
	if err != nil {
		return err
	}

	return database.WithTx(ctx, s.db, func(tx database.Tx) error {
		var raw []byte
		err := tx.QueryRow(ctx,
			`SELECT data FROM documents WHERE collection = $1 AND id = $2 FOR UPDATE`,
			collection, id,
		).Scan(&raw)
		if database.IsNoRows(err) {
			return fmt.Errorf("%s: %w", path, backend.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("lock %s: %w", path, err)
		}

		doc := map[string]any{}
		if err := json.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
		for _, f := range fields {
			v, err := normalize(f.Value)
			if err != nil {
				return fmt.Errorf("update %s: %w", f.Path, err)
			}
			backend.SetPath(doc, f.Path, v)
		}
		updated, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("encode %s: %w", path, err)
		}

		_, err = tx.Exec(ctx,
			`UPDATE documents SET data = $3::jsonb, updated_at = NOW() WHERE collection = $1 AND id = $2`,
			collection, id, updated,
		)
		if err != nil {
			return fmt.Errorf("update %s: %w", path, err)
		}
		return nil
	})
}

// Increment adds delta to a numeric field in one statement. Intermediate
// objects on the field path must already exist.
func (s *Store) Increment(ctx context.Context, path, field string, delta int64) error {
	collection, id, err := backend.SplitPath(path)
	if err != nil {
		return err
	}

	tag, err := s.db.Exec(ctx,
		`UPDATE documents
		 SET data = jsonb_set(data, $3::text[], to_jsonb(COALESCE((data #>> $3::text[])::numeric, 0) + $4), true),
		     updated_at = NOW()
		 WHERE collection = $1 AND id = $2`,
		collection, id, strings.Split(field, "."), delta,
	)
	if err != nil {
		return fmt.Errorf("increment %s.%s: %w", path, field, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", path, backend.ErrNotFound)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, path string) error {
	collection, id, err := backend.SplitPath(path)
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	); err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

func (s *Store) Query(ctx context.Context, q backend.Query) ([]backend.Document, error) {
	sql, args, err := buildQuery(q)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, err)
	}
	defer rows.Close()

	var out []backend.Document
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan %s: %w", q.Collection, err)
		}
		out = append(out, backend.NewJSONDocument(q.Collection+"/"+id, raw))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", q.Collection, err)
	}
	return out, nil
}

// buildQuery translates filters into JSONB containment predicates.
func buildQuery(q backend.Query) (string, []any, error) {
	var sb strings.Builder
	args := []any{q.Collection}
	sb.WriteString(`SELECT id, data FROM documents WHERE collection = $1`)

	for _, f := range q.Filters {
		value, err := normalize(f.Value)
		if err != nil {
			return "", nil, fmt.Errorf("filter %s: %w", f.Field, err)
		}
		switch f.Op {
		case backend.OpEqual:
		case backend.OpArrayContains:
			value = []any{value}
		default:
			return "", nil, fmt.Errorf("unsupported filter op %q", f.Op)
		}
		probe := map[string]any{}
		backend.SetPath(probe, f.Field, value)
		raw, err := json.Marshal(probe)
		if err != nil {
			return "", nil, fmt.Errorf("filter %s: %w", f.Field, err)
		}
		args = append(args, raw)
		fmt.Fprintf(&sb, ` AND data @> $%d::jsonb`, len(args))
	}

	if q.OrderBy != "" {
		args = append(args, strings.Split(q.OrderBy, "."))
		dir := "ASC"
		if q.Desc {
			dir = "DESC"
		}
		fmt.Fprintf(&sb, ` ORDER BY (data #>> $%d::text[])::timestamptz %s, created_at %s`, len(args), dir, dir)
	} else {
		sb.WriteString(` ORDER BY created_at ASC`)
	}

	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&sb, ` LIMIT $%d`, len(args))
	}
	return sb.String(), args, nil
}

func encodeObject(data any) ([]byte, error) {
	v, err := normalize(data)
	if err != nil {
		return nil, err
	}
	if _, ok := v.(map[string]any); !ok {
		return nil, fmt.Errorf("document data must be an object, got %T", data)
	}
	return json.Marshal(v)
}

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
