package repository

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type execCall struct {
	sql  string
	args []any
}

// fakePool answers every Query with its canned rows and records Exec and
// batch statements.
type fakePool struct {
	rows     [][]any
	row      []any
	queryErr error
	execErr  error
	execs    []execCall
	queries  []execCall
	batched  int
}

func (p *fakePool) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	p.execs = append(p.execs, execCall{sql, args})
	return pgconn.CommandTag{}, p.execErr
}

func (p *fakePool) SendBatch(_ context.Context, b *pgx.Batch) pgx.BatchResults {
	p.batched += b.Len()
	return &fakeBatch{n: b.Len(), err: p.execErr}
}

func (p *fakePool) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	p.queries = append(p.queries, execCall{sql, args})
	if p.queryErr != nil {
		return nil, p.queryErr
	}
	return &fakeRows{data: p.rows, i: -1}, nil
}

func (p *fakePool) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	p.queries = append(p.queries, execCall{sql, args})
	return fakeRow{values: p.row}
}

func (p *fakePool) Begin(context.Context) (pgx.Tx, error) {
	return nil, errors.New("transactions not supported by fakePool")
}

type fakeBatch struct {
	n, done int
	err     error
}

func (b *fakeBatch) Exec() (pgconn.CommandTag, error) {
	b.done++
	return pgconn.CommandTag{}, b.err
}
func (b *fakeBatch) Query() (pgx.Rows, error) { return nil, errors.New("not supported") }
func (b *fakeBatch) QueryRow() pgx.Row        { return fakeRow{} }
func (b *fakeBatch) Close() error             { return nil }

type fakeRow struct{ values []any }

func (r fakeRow) Scan(dest ...any) error {
	if r.values == nil {
		return pgx.ErrNoRows
	}
	return assign(r.values, dest)
}

type fakeRows struct {
	data [][]any
	i    int
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Next() bool {
	r.i++
	return r.i < len(r.data)
}
func (r *fakeRows) Scan(dest ...any) error { return assign(r.data[r.i], dest) }
func (r *fakeRows) Values() ([]any, error) { return r.data[r.i], nil }
func (r *fakeRows) RawValues() [][]byte    { return nil }
func (r *fakeRows) Conn() *pgx.Conn        { return nil }

// assign copies values into scan destinations. A nil value leaves the
// destination at its zero value.
func assign(values []any, dest []any) error {
	if len(values) != len(dest) {
		return fmt.Errorf("scan: %d values into %d destinations", len(values), len(dest))
	}
	for i, v := range values {
		if v == nil {
			continue
		}
		target := reflect.ValueOf(dest[i]).Elem()
		val := reflect.ValueOf(v)
		if target.Kind() == reflect.Pointer && val.Kind() != reflect.Pointer {
			ptr := reflect.New(target.Type().Elem())
			ptr.Elem().Set(val.Convert(target.Type().Elem()))
			target.Set(ptr)
			continue
		}
		target.Set(val.Convert(target.Type()))
	}
	return nil
}
