// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqlnamed

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"

	"github.com/canonical/sqlnamed/internal/typeinfo"
)

var ErrNoRows = sql.ErrNoRows

// Querier runs SQL with positional arguments. It is implemented by
// [*sql.DB], [*sql.Tx], [*sql.Conn], [*DB] and [*TX].
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Row is a result row decoded by column name.
type Row map[string]any

// query holds the parts shared by every query shape. A query is run on the
// database when one of its Run, Exec, Iter, One or All methods is called.
type query struct {
	ctx     context.Context
	q       Querier
	sql     string
	args    []any
	checked bool
}

func newQuery(ctx context.Context, q Querier, sql string, args []any, checked bool) query {
	if ctx == nil {
		ctx = context.Background()
	}
	return query{ctx: ctx, q: q, sql: sql, args: args, checked: checked}
}

// SQL returns the query text sent to the database.
func (q *query) SQL() string {
	return q.sql
}

// Args returns the query arguments, in placeholder order.
func (q *query) Args() []any {
	return q.args
}

// Run is used to run a query on a database and disregard any results.
func (q *query) Run() error {
	_, err := q.Exec()
	return err
}

// Exec runs the query on the database and returns information about its
// execution.
func (q *query) Exec() (sql.Result, error) {
	return q.q.ExecContext(q.ctx, q.sql, q.args...)
}

// decodeFunc scans the current row of rows into a T.
type decodeFunc[T any] func(rows *sql.Rows) (T, error)

// decoderFunc builds the decodeFunc of a result set from its column names.
// When checked is true the columns must match the decoded type exactly.
type decoderFunc[T any] func(cols []string, checked bool) (decodeFunc[T], error)

// iter runs the query and returns an iterator decoding its rows with the
// decoder built by newDecoder.
func iter[T any](q *query, newDecoder decoderFunc[T]) *Iterator[T] {
	rows, err := q.q.QueryContext(q.ctx, q.sql, q.args...)
	if err != nil {
		return &Iterator[T]{err: err}
	}
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return &Iterator[T]{err: err}
	}
	decode, err := newDecoder(cols, q.checked)
	if err != nil {
		rows.Close()
		return &Iterator[T]{err: err}
	}
	return &Iterator[T]{rows: rows, decode: decode}
}

// one returns the first row of the iterator, or [ErrNoRows].
func one[T any](iter *Iterator[T]) (T, error) {
	var zero T
	if !iter.Next() {
		err := iter.Close()
		if err == nil {
			err = ErrNoRows
		}
		return zero, err
	}
	v, err := iter.Get()
	if cerr := iter.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return zero, err
	}
	return v, nil
}

// all returns every row of the iterator. An empty result is not an error.
func all[T any](iter *Iterator[T]) ([]T, error) {
	var vs []T
	for iter.Next() {
		v, err := iter.Get()
		if err != nil {
			iter.Close()
			return nil, err
		}
		vs = append(vs, v)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return vs, nil
}

// Iterator is used to iterate over the results of the query.
type Iterator[T any] struct {
	rows    *sql.Rows
	decode  decodeFunc[T]
	err     error
	started bool
}

// Next prepares the next row for [Iterator.Get]. If an error occurs during
// iteration it will be returned with [Iterator.Close].
func (iter *Iterator[T]) Next() bool {
	iter.started = true
	if iter.err != nil || iter.rows == nil {
		return false
	}
	return iter.rows.Next()
}

// Get decodes the row prepared by the previous [Iterator.Next] call.
func (iter *Iterator[T]) Get() (v T, err error) {
	if iter.err != nil {
		return v, iter.err
	}
	defer func() {
		if err != nil {
			err = fmt.Errorf("cannot get result: %s", err)
		}
	}()

	if !iter.started {
		return v, fmt.Errorf("cannot call Get before Next")
	}
	if iter.rows == nil {
		return v, fmt.Errorf("iteration ended")
	}
	return iter.decode(iter.rows)
}

// Close finishes the iteration and returns any errors encountered. Close can
// be called multiple times on the [Iterator] and the same error will be
// returned.
func (iter *Iterator[T]) Close() error {
	iter.started = true
	if iter.rows == nil {
		return iter.err
	}
	err := iter.rows.Close()
	if err == nil {
		err = iter.rows.Err()
	}
	iter.rows = nil
	iter.err = err
	return err
}

// RowQuery is a query whose rows are decoded into [Row] maps.
type RowQuery struct {
	query
}

// Query builds a query returning rows keyed by column name. The column names
// of the results must be unique.
func Query(ctx context.Context, q Querier, sql string, args ...any) *RowQuery {
	return &RowQuery{query: newQuery(ctx, q, sql, args, true)}
}

// QueryUnchecked is the same as [Query] except that when a column name is
// repeated the last column wins.
func QueryUnchecked(ctx context.Context, q Querier, sql string, args ...any) *RowQuery {
	return &RowQuery{query: newQuery(ctx, q, sql, args, false)}
}

// Iter runs the query and returns an [Iterator] over its rows.
// [Iterator.Close] must be run once iteration is finished.
func (q *RowQuery) Iter() *Iterator[Row] {
	return iter[Row](&q.query, rowDecoder)
}

// One returns the first row of the results, or [ErrNoRows].
func (q *RowQuery) One() (Row, error) {
	return one(q.Iter())
}

// All returns every row of the results.
func (q *RowQuery) All() ([]Row, error) {
	return all(q.Iter())
}

func rowDecoder(cols []string, checked bool) (decodeFunc[Row], error) {
	if checked {
		seen := make(map[string]bool, len(cols))
		for _, col := range cols {
			if seen[col] {
				return nil, fmt.Errorf("column %q appears more than once in results", col)
			}
			seen[col] = true
		}
	}
	return func(rows *sql.Rows) (Row, error) {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(Row, len(cols))
		for i, col := range cols {
			row[col] = values[i]
		}
		return row, nil
	}, nil
}

// ScalarQuery is a query whose rows hold a single value of type T.
type ScalarQuery[T any] struct {
	query
}

// QueryScalar builds a query returning a single column decoded into T.
func QueryScalar[T any](ctx context.Context, q Querier, sql string, args ...any) *ScalarQuery[T] {
	return &ScalarQuery[T]{query: newQuery(ctx, q, sql, args, true)}
}

// QueryScalarUnchecked is the same as [QueryScalar] except that any column
// after the first one is ignored.
func QueryScalarUnchecked[T any](ctx context.Context, q Querier, sql string, args ...any) *ScalarQuery[T] {
	return &ScalarQuery[T]{query: newQuery(ctx, q, sql, args, false)}
}

// Iter runs the query and returns an [Iterator] over its values.
// [Iterator.Close] must be run once iteration is finished.
func (q *ScalarQuery[T]) Iter() *Iterator[T] {
	return iter[T](&q.query, scalarDecoder[T])
}

// One returns the value of the first row of the results, or [ErrNoRows].
func (q *ScalarQuery[T]) One() (T, error) {
	return one(q.Iter())
}

// All returns the values of every row of the results.
func (q *ScalarQuery[T]) All() ([]T, error) {
	return all(q.Iter())
}

func scalarDecoder[T any](cols []string, checked bool) (decodeFunc[T], error) {
	if checked && len(cols) != 1 {
		return nil, fmt.Errorf("expected 1 column in results, got %d", len(cols))
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("expected a column in results, got none")
	}
	return func(rows *sql.Rows) (T, error) {
		var v T
		target, proxy := typeinfo.ScanTarget(reflect.ValueOf(&v).Elem())
		targets := []any{target}
		for range cols[1:] {
			targets = append(targets, new(any))
		}
		if err := rows.Scan(targets...); err != nil {
			return v, err
		}
		if proxy != nil {
			proxy.OnSuccess()
		}
		return v, nil
	}, nil
}

// RecordQuery is a query whose rows are decoded into the struct type T, by
// matching column names with the "db" tags of its fields.
type RecordQuery[T any] struct {
	query
}

// QueryAs builds a query returning rows decoded into T. Every column of the
// results must match the "db" tag of a field of T, and appear once.
func QueryAs[T any](ctx context.Context, q Querier, sql string, args ...any) *RecordQuery[T] {
	return &RecordQuery[T]{query: newQuery(ctx, q, sql, args, true)}
}

// QueryAsUnchecked is the same as [QueryAs] except that columns without a
// matching field are ignored.
func QueryAsUnchecked[T any](ctx context.Context, q Querier, sql string, args ...any) *RecordQuery[T] {
	return &RecordQuery[T]{query: newQuery(ctx, q, sql, args, false)}
}

// Iter runs the query and returns an [Iterator] over its records.
// [Iterator.Close] must be run once iteration is finished.
func (q *RecordQuery[T]) Iter() *Iterator[T] {
	return iter[T](&q.query, recordDecoder[T])
}

// One returns the record of the first row of the results, or [ErrNoRows].
func (q *RecordQuery[T]) One() (T, error) {
	return one(q.Iter())
}

// All returns the records of every row of the results.
func (q *RecordQuery[T]) All() ([]T, error) {
	return all(q.Iter())
}

func recordDecoder[T any](cols []string, checked bool) (decodeFunc[T], error) {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("need struct type, got %s", typ.Kind())
	}
	info, err := typeinfo.TypeInfo(typ)
	if err != nil {
		return nil, err
	}
	// Match the columns once so that mismatches are reported even without
	// rows.
	if _, _, err := info.ScanTargets(reflect.New(typ).Elem(), cols, checked); err != nil {
		return nil, err
	}
	return func(rows *sql.Rows) (T, error) {
		var v T
		targets, proxies, err := info.ScanTargets(reflect.ValueOf(&v).Elem(), cols, checked)
		if err != nil {
			return v, err
		}
		if err := rows.Scan(targets...); err != nil {
			return v, err
		}
		for _, proxy := range proxies {
			proxy.OnSuccess()
		}
		return v, nil
	}, nil
}
