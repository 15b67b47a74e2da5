package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type fakePgxRow struct {
	ScanFunc func(dest ...any) error
}

func (f fakePgxRow) Scan(dest ...any) error {
	if f.ScanFunc != nil {
		return f.ScanFunc(dest...)
	}
	return errors.New("ScanFunc not set")
}

type fakePgxRows struct {
	rows [][]any
	idx  int
	err  error
}

func (f *fakePgxRows) Close()                        {}
func (f *fakePgxRows) Err() error                    { return f.err }
func (f *fakePgxRows) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }
func (f *fakePgxRows) FieldDescriptions() []pgconn.FieldDescription {
	return nil
}
func (f *fakePgxRows) Next() bool {
	if f.idx >= len(f.rows) {
		return false
	}
	f.idx++
	return true
}
func (f *fakePgxRows) Scan(dest ...any) error {
	if f.idx == 0 || f.idx > len(f.rows) {
		return errors.New("scan called without active row")
	}
	return assignRow(dest, f.rows[f.idx-1])
}
func (f *fakePgxRows) Values() ([]any, error) { return nil, errors.New("not implemented") }
func (f *fakePgxRows) RawValues() [][]byte    { return nil }
func (f *fakePgxRows) Conn() *pgx.Conn        { return nil }

type fakePgxTx struct {
	BeginFunc    func(ctx context.Context) (pgx.Tx, error)
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error
	ExecFunc     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryFunc    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRowFunc func(ctx context.Context, sql string, args ...any) pgx.Row
}

func (f *fakePgxTx) Begin(ctx context.Context) (pgx.Tx, error) {
	if f.BeginFunc != nil {
		return f.BeginFunc(ctx)
	}
	return f, nil
}
func (f *fakePgxTx) Commit(ctx context.Context) error {
	if f.CommitFunc != nil {
		return f.CommitFunc(ctx)
	}
	return nil
}
func (f *fakePgxTx) Rollback(ctx context.Context) error {
	if f.RollbackFunc != nil {
		return f.RollbackFunc(ctx)
	}
	return nil
}
func (f *fakePgxTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, errors.New("not implemented")
}
func (f *fakePgxTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	return nil
}
func (f *fakePgxTx) LargeObjects() pgx.LargeObjects { return pgx.LargeObjects{} }
func (f *fakePgxTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, errors.New("not implemented")
}
func (f *fakePgxTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if f.ExecFunc != nil {
		return f.ExecFunc(ctx, sql, args...)
	}
	return pgconn.NewCommandTag("UPDATE 0"), nil
}
func (f *fakePgxTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if f.QueryFunc != nil {
		return f.QueryFunc(ctx, sql, args...)
	}
	return &fakePgxRows{}, nil
}
func (f *fakePgxTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if f.QueryRowFunc != nil {
		return f.QueryRowFunc(ctx, sql, args...)
	}
	return fakePgxRow{}
}
func (f *fakePgxTx) Conn() *pgx.Conn { return nil }

type fakePgxPool struct {
	ExecFunc     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryFunc    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRowFunc func(ctx context.Context, sql string, args ...any) pgx.Row
	BeginFunc    func(ctx context.Context) (pgx.Tx, error)
}

func (f *fakePgxPool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return f.ExecFunc(ctx, sql, args...)
}
func (f *fakePgxPool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return f.QueryFunc(ctx, sql, args...)
}
func (f *fakePgxPool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return f.QueryRowFunc(ctx, sql, args...)
}
func (f *fakePgxPool) Begin(ctx context.Context) (pgx.Tx, error) {
	return f.BeginFunc(ctx)
}

func TestPoolAdapter_PassesPgxResultsThrough(t *testing.T) {
	ctx := context.Background()
	pool := &fakePgxPool{
		ExecFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			return pgconn.NewCommandTag("DELETE 3"), nil
		},
		QueryFunc: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			return &fakePgxRows{rows: [][]any{{"photos"}, {"widgets"}}}, nil
		},
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return fakePgxRow{ScanFunc: func(dest ...any) error {
				return assignRow(dest, []any{[]byte(`{"caption":"hi"}`)})
			}}
		},
	}
	adapter := &PoolAdapter{pool: pool}

	tag, err := adapter.Exec(ctx, "DELETE FROM documents WHERE collection = $1", "photos")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tag.RowsAffected() != 3 {
		t.Fatalf("expected 3 deleted, got %d", tag.RowsAffected())
	}

	rows, err := adapter.Query(ctx, "SELECT DISTINCT collection FROM documents")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var collections []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			t.Fatalf("scan: %v", err)
		}
		collections = append(collections, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil || len(collections) != 2 {
		t.Fatalf("expected two collections, got %v (%v)", collections, err)
	}

	var raw []byte
	if err := adapter.QueryRow(ctx, "SELECT data FROM documents").Scan(&raw); err != nil {
		t.Fatalf("scan row: %v", err)
	}
	if string(raw) != `{"caption":"hi"}` {
		t.Fatalf("unexpected data %s", raw)
	}
}

func TestPoolAdapter_QueryError(t *testing.T) {
	queryErr := errors.New("relation does not exist")
	adapter := &PoolAdapter{pool: &fakePgxPool{
		QueryFunc: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) { return nil, queryErr },
	}}
	rows, err := adapter.Query(context.Background(), "SELECT 1")
	if !errors.Is(err, queryErr) || rows != nil {
		t.Fatalf("expected bare error and nil rows, got %v %v", rows, err)
	}
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	var committed, rolledBack bool
	var locked string
	pgTx := &fakePgxTx{
		QueryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			locked = sql
			return fakePgxRow{ScanFunc: func(dest ...any) error { return assignRow(dest, []any{[]byte("{}")}) }}
		},
		ExecFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			return pgconn.NewCommandTag("UPDATE 1"), nil
		},
		CommitFunc:   func(ctx context.Context) error { committed = true; return nil },
		RollbackFunc: func(ctx context.Context) error { rolledBack = true; return nil },
	}
	db := &PoolAdapter{pool: &fakePgxPool{BeginFunc: func(ctx context.Context) (pgx.Tx, error) { return pgTx, nil }}}

	err := WithTx(context.Background(), db, func(tx Tx) error {
		var raw []byte
		if err := tx.QueryRow(context.Background(), "SELECT data FROM documents FOR UPDATE").Scan(&raw); err != nil {
			return err
		}
		tag, err := tx.Exec(context.Background(), "UPDATE documents SET data = $1", raw)
		if err != nil {
			return err
		}
		if tag.RowsAffected() != 1 {
			t.Fatalf("expected one row updated, got %d", tag.RowsAffected())
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if locked == "" || !committed || rolledBack {
		t.Fatalf("expected locked commit without rollback, committed=%v rolledBack=%v", committed, rolledBack)
	}
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	var committed, rolledBack bool
	pgTx := &fakePgxTx{
		CommitFunc:   func(ctx context.Context) error { committed = true; return nil },
		RollbackFunc: func(ctx context.Context) error { rolledBack = true; return nil },
	}
	db := &PoolAdapter{pool: &fakePgxPool{BeginFunc: func(ctx context.Context) (pgx.Tx, error) { return pgTx, nil }}}

	fnErr := errors.New("decode failed")
	err := WithTx(context.Background(), db, func(tx Tx) error { return fnErr })
	if err != fnErr {
		t.Fatalf("expected fn error unwrapped, got %v", err)
	}
	if committed || !rolledBack {
		t.Fatalf("expected rollback only, committed=%v rolledBack=%v", committed, rolledBack)
	}
}

func TestWithTx_BeginAndCommitErrors(t *testing.T) {
	beginErr := errors.New("pool closed")
	db := &PoolAdapter{pool: &fakePgxPool{BeginFunc: func(ctx context.Context) (pgx.Tx, error) { return nil, beginErr }}}
	called := false
	err := WithTx(context.Background(), db, func(tx Tx) error { called = true; return nil })
	if !errors.Is(err, beginErr) || called {
		t.Fatalf("expected begin error before fn, got %v called=%v", err, called)
	}

	commitErr := errors.New("serialization failure")
	rolledBack := false
	pgTx := &fakePgxTx{
		CommitFunc:   func(ctx context.Context) error { return commitErr },
		RollbackFunc: func(ctx context.Context) error { rolledBack = true; return nil },
	}
	db = &PoolAdapter{pool: &fakePgxPool{BeginFunc: func(ctx context.Context) (pgx.Tx, error) { return pgTx, nil }}}
	err = WithTx(context.Background(), db, func(tx Tx) error { return nil })
	if !errors.Is(err, commitErr) || !strings.Contains(err.Error(), "commit transaction") {
		t.Fatalf("expected wrapped commit error, got %v", err)
	}
	if !rolledBack {
		t.Fatal("expected rollback after failed commit")
	}
}

func TestIsNoRows(t *testing.T) {
	if !IsNoRows(fmt.Errorf("get photos/p1: %w", pgx.ErrNoRows)) {
		t.Fatal("expected wrapped ErrNoRows to match")
	}
	if IsNoRows(errors.New("timeout")) || IsNoRows(nil) {
		t.Fatal("expected other errors not to match")
	}
}
