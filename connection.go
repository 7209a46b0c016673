// Copyright (c) 2025, the sqlitex contributors.
// SPDX-License-Identifier: MIT

package sqlitex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wyre-dev/sqlitex/internal/driver"
	"github.com/wyre-dev/sqlitex/internal/worker"
)

// Connection is the public façade over one connection worker: Fetch,
// Execute and Begin all funnel through the worker's serialized
// command queue, so concurrent callers sharing one Connection never
// race on the underlying engine handle — they queue.
type Connection struct {
	w    *worker.Worker
	opts ConnectOptions
}

// Connect opens a dedicated connection to path (a filesystem path,
// "file:" URI, or ":memory:") and starts its worker goroutine.
func Connect(ctx context.Context, path string, options ...ConnectOption) (*Connection, error) {
	opts := DefaultConnectOptions()
	for _, opt := range options {
		opt(&opts)
	}
	handle, err := driver.Open(ctx, opts.dsn(path), opts.pragmas())
	if err != nil {
		return nil, translateErr(err)
	}
	w, err := worker.Start(handle, opts.CacheCapacity)
	if err != nil {
		handle.Close()
		return nil, translateErr(err)
	}
	return &Connection{w: w, opts: opts}, nil
}

// Execute runs a non-row-returning statement (or chain of statements
// separated by ';') and reports the last insert rowid and rows
// affected by the final statement executed.
func (c *Connection) Execute(ctx context.Context, sql string, args *Arguments) (ExecResult, error) {
	res, err := c.w.Execute(ctx, sql, toDriverArgs(args))
	if err != nil {
		return ExecResult{}, translateErr(err)
	}
	return ExecResult{LastInsertRowID: res.LastInsertRowID, RowsAffected: res.RowsAffected}, nil
}

// ExecResult is the outcome of Execute.
type ExecResult struct {
	LastInsertRowID int64
	RowsAffected    int64
}

// Fetch runs a row-returning query and streams the results back
// through a bounded channel; callers must call Next until it returns
// false and then check Err.
func (c *Connection) Fetch(ctx context.Context, sql string, args *Arguments) (*RowIterator, error) {
	rs, err := c.w.Query(ctx, sql, toDriverArgs(args))
	if err != nil {
		return nil, translateErr(err)
	}
	return &RowIterator{rs: rs}, nil
}

// FetchOne runs a query expecting exactly one row, returning
// ErrRowNotFound if the query produced none.
func (c *Connection) FetchOne(ctx context.Context, sql string, args *Arguments) (Row, error) {
	it, err := c.Fetch(ctx, sql, args)
	if err != nil {
		return Row{}, err
	}
	if !it.Next() {
		if err := it.Err(); err != nil {
			return Row{}, err
		}
		return Row{}, ErrRowNotFound
	}
	return it.Row(), nil
}

// FetchOptional runs a query expecting zero or one rows.
func (c *Connection) FetchOptional(ctx context.Context, sql string, args *Arguments) (Option[Row], error) {
	row, err := c.FetchOne(ctx, sql, args)
	if errors.Is(err, ErrRowNotFound) {
		return Option[Row]{}, nil
	}
	if err != nil {
		return Option[Row]{}, err
	}
	return Some(row), nil
}

// FetchAll drains a query into a slice.
func (c *Connection) FetchAll(ctx context.Context, sql string, args *Arguments) ([]Row, error) {
	it, err := c.Fetch(ctx, sql, args)
	if err != nil {
		return nil, err
	}
	var rows []Row
	for it.Next() {
		rows = append(rows, it.Row())
	}
	return rows, it.Err()
}

// Begin opens a new nesting level of the transaction stack: a BEGIN at
// depth zero, a SAVEPOINT otherwise.
func (c *Connection) Begin(ctx context.Context) (*Transaction, error) {
	depth, err := c.w.Begin(ctx)
	if err != nil {
		return nil, translateErr(err)
	}
	return &Transaction{conn: c, depth: depth, open: true}, nil
}

// ClearStatementCache evicts every cached prepared statement.
func (c *Connection) ClearStatementCache(ctx context.Context) error {
	return translateErr(c.w.ClearCache(ctx))
}

// CacheStats reports cumulative statement-cache hit/miss counters.
func (c *Connection) CacheStats() (hits, misses uint64) {
	return c.w.CacheStats()
}

// Ping verifies the connection is responsive.
func (c *Connection) Ping(ctx context.Context) error {
	return translateErr(c.w.Ping(ctx))
}

// Close rolls back any abandoned transaction and releases the
// underlying connection. Close is idempotent.
func (c *Connection) Close(ctx context.Context) error {
	return translateErr(c.w.Close(ctx))
}

// RowIterator streams Fetch's results.
type RowIterator struct {
	rs      *worker.RowStream
	current Row
	cols    *rowColumns
	err     error
}

// Next advances to the next row, returning false once the stream is
// exhausted or failed. A column declared with a type string this
// package doesn't recognize fails the iterator with TypeNotFound on
// the first row rather than silently guessing an affinity.
func (it *RowIterator) Next() bool {
	if it.err != nil {
		return false
	}
	raw, ok := it.rs.Next()
	if !ok {
		return false
	}
	if it.cols == nil {
		cols, err := columnsFromDriver(raw.Columns)
		if err != nil {
			it.err = err
			return false
		}
		it.cols = newRowColumns(cols)
	}
	values := make([]Value, len(raw.Values))
	for i, v := range raw.Values {
		values[i] = rawToValue(v, it.cols.cols[i].DeclType, it.cols.cols[i].DeclaredType)
	}
	it.current = newRow(it.cols, values)
	return true
}

// Row returns the row most recently produced by Next.
func (it *RowIterator) Row() Row { return it.current }

// Err returns the terminal error, if the stream ended abnormally.
func (it *RowIterator) Err() error {
	if it.err != nil {
		return translateErr(it.err)
	}
	return translateErr(it.rs.Err())
}

func columnsFromDriver(meta []driver.ColumnMeta) ([]Column, error) {
	cols := make([]Column, len(meta))
	for i, m := range meta {
		declared := TypeNull
		if m.DeclType != "" {
			t, err := ParseDeclaredType(m.DeclType)
			if err != nil {
				return nil, err
			}
			declared = t
		}
		cols[i] = Column{
			Name:         m.Name,
			Ordinal:      i,
			DeclType:     m.DeclType,
			DeclaredType: declared,
		}
	}
	return cols, nil
}

// toDriverArgs converts a positional Arguments list into the native Go
// values database/sql expects, the seam between this package's typed
// ArgumentValue and internal/worker's engine-agnostic representation.
func toDriverArgs(args *Arguments) []any {
	if args == nil {
		return nil
	}
	out := make([]any, args.Len())
	for i := 0; i < args.Len(); i++ {
		v, _ := args.At(i + 1)
		out[i] = argToDriver(v)
	}
	return out
}

func argToDriver(v ArgumentValue) any {
	switch v.Type() {
	case StorageNull:
		return nil
	case StorageInteger:
		return v.i
	case StorageReal:
		return v.f
	case StorageText:
		return v.text
	case StorageBlob:
		return v.blob
	default:
		return nil
	}
}

// rawToValue converts a database/sql native value back into this
// package's Value, attaching the column's declared type (when the
// schema named one) so decode compatibility checks see the column's
// affinity rather than just the value's storage class.
func rawToValue(v any, declType string, declared DeclaredType) Value {
	var val Value
	switch x := v.(type) {
	case nil:
		val = NullValue
	case int64:
		val = IntegerValue(x)
	case float64:
		val = RealValue(x)
	case string:
		val = TextValue(x)
	case []byte:
		val = BlobValue(x)
	case bool:
		if x {
			val = IntegerValue(1)
		} else {
			val = IntegerValue(0)
		}
	case time.Time:
		val = TextValue(x.UTC().Format(time.RFC3339Nano))
	default:
		val = TextValue(fmt.Sprintf("%v", x))
	}
	if declType != "" {
		val = val.WithDeclaredType(declared)
	}
	return val
}

// translateErr maps internal/worker and internal/driver sentinel
// errors onto this package's closed Error enum, and classifies engine
// errors surfaced verbatim from modernc.org/sqlite.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	var sqlitexErr *Error
	if errors.As(err, &sqlitexErr) {
		return err
	}
	switch {
	case errors.Is(err, worker.ErrCrashed):
		return ErrWorkerCrashed
	case errors.Is(err, worker.ErrUnlockRetry):
		return ErrUnlockNotify
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return newIOError(err)
	}
	if primary, extended, message, ok := driver.ClassifyError(err); ok {
		return newSqliteError(PrimaryErrCode(primary), ExtendedErrCode(extended), message)
	}
	return newIOError(err)
}
