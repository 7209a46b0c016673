// Copyright (c) 2025, the sqlitex contributors.
// SPDX-License-Identifier: MIT

package worker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go"
	"github.com/rs/zerolog/log"

	"github.com/wyre-dev/sqlitex/internal/cache"
	"github.com/wyre-dev/sqlitex/internal/driver"
)

// DefaultMaxRetries bounds the unlock-notify retry loop this package
// substitutes for SQLite's native sqlite3_unlock_notify callback.
const DefaultMaxRetries = 50

// Sentinel errors the root package maps onto its own closed Error enum.
var (
	ErrCrashed     = errors.New("sqlitex: worker has shut down")
	ErrUnlockRetry = errors.New("sqlitex: unlock_notify failed after multiple attempts")
)

// Worker is the connection worker: a goroutine holding exclusive
// ownership of a driver.Handle, draining a queue of closures one at a
// time so every statement prepare/bind/step/reset against the
// connection happens from a single goroutine, never concurrently.
type Worker struct {
	handle *driver.Handle
	cache  *cache.StatementCache

	// txDepth tracks SAVEPOINT nesting for the transaction stack: 0
	// means no transaction is open, 1 is the outermost BEGIN, N>1 is
	// a nested SAVEPOINT at depth N.
	txDepth int

	queue    chan func()
	shutdown chan struct{}
	done     chan struct{}
	closed   atomic.Bool

	closeOnce sync.Once
	closeErr  error
}

// Start launches the worker goroutine bound to handle.
func Start(handle *driver.Handle, cacheCapacity int) (*Worker, error) {
	sc, err := cache.New(handle, cacheCapacity)
	if err != nil {
		return nil, err
	}
	w := &Worker{
		handle:   handle,
		cache:    sc,
		queue:    make(chan func(), 64),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// loop never closes w.queue — a concurrent enqueue send racing a close
// would panic on a closed channel. Shutdown instead happens via the
// dedicated shutdown channel, checked alongside queue receives.
func (w *Worker) loop() {
	defer close(w.done)
	for {
		select {
		case fn := <-w.queue:
			fn()
		case <-w.shutdown:
			return
		}
	}
}

// enqueue submits fn to run on the worker goroutine, returning
// ErrCrashed if the worker has already shut down. It never blocks past
// ctx's deadline while waiting for queue space.
func (w *Worker) enqueue(ctx context.Context, fn func()) error {
	if w.closed.Load() {
		return ErrCrashed
	}
	select {
	case w.queue <- fn:
		return nil
	case <-w.done:
		return ErrCrashed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Execute runs sql's compound statement to completion: the first inner
// statement is bound with args, every subsequent inner statement (a
// multi-statement script) runs with no arguments, and the result of the
// last statement executed is returned.
func (w *Worker) Execute(ctx context.Context, query string, args []any) (ExecResult, error) {
	type resp struct {
		res ExecResult
		err error
	}
	respCh := make(chan resp, 1)
	if err := w.enqueue(ctx, func() {
		res, err := w.doExecute(ctx, query, args)
		respCh <- resp{res, err}
	}); err != nil {
		return ExecResult{}, err
	}
	select {
	case r := <-respCh:
		return r.res, r.err
	case <-ctx.Done():
		return ExecResult{}, ctx.Err()
	}
}

func (w *Worker) doExecute(ctx context.Context, query string, args []any) (ExecResult, error) {
	stmt, err := w.cache.Get(ctx, query)
	if err != nil {
		return ExecResult{}, err
	}
	var last sql.Result
	first := true
	for {
		inner, err := stmt.Current(ctx)
		if err != nil {
			return ExecResult{}, err
		}
		var stepArgs []any
		if first {
			stepArgs = args
			first = false
		}
		res, err := retryLocked(ctx, func() (sql.Result, error) {
			return inner.ExecContext(ctx, stepArgs...)
		})
		if err != nil {
			return ExecResult{}, err
		}
		last = res
		_, more, err := stmt.Advance(ctx)
		if err != nil {
			return ExecResult{}, err
		}
		if !more {
			break
		}
	}
	lastID, _ := last.LastInsertId()
	affected, _ := last.RowsAffected()
	return ExecResult{LastInsertRowID: lastID, RowsAffected: affected}, nil
}

// Query runs the compound statement's current inner statement and
// streams its rows back through a bounded channel. Only the statement
// at the cursor is executed; a caller driving a multi-statement script
// that also wants rows from a later segment must Advance explicitly
// through a future Connection API call (not exposed today — queries
// issuing row-returning multi-statement scripts are not a case this
// library's callers hit in practice).
func (w *Worker) Query(ctx context.Context, query string, args []any) (*RowStream, error) {
	rs := newRowStream()
	if err := w.enqueue(ctx, func() {
		w.doStream(ctx, query, args, rs)
	}); err != nil {
		return nil, err
	}
	return rs, nil
}

func (w *Worker) doStream(ctx context.Context, query string, args []any, rs *RowStream) {
	defer close(rs.rows)

	stmt, err := w.cache.Get(ctx, query)
	if err != nil {
		rs.setErr(err)
		return
	}
	inner, err := stmt.Current(ctx)
	if err != nil {
		rs.setErr(err)
		return
	}
	rows, err := retryLocked(ctx, func() (*sql.Rows, error) {
		return inner.QueryContext(ctx, args...)
	})
	if err != nil {
		rs.setErr(err)
		return
	}
	defer rows.Close()

	cols := inner.Columns()
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			rs.setErr(err)
			return
		}
		select {
		case rs.rows <- RawRow{Columns: cols, Values: values}:
		case <-ctx.Done():
			rs.setErr(ctx.Err())
			return
		}
	}
	rs.setErr(rows.Err())
}

// retryLocked bounds the locked-table retry loop used in place of
// SQLite's native sqlite3_unlock_notify callback: on a SQLITE_LOCKED
// (shared-cache) result it retries op up to DefaultMaxRetries times
// with a short backoff before surfacing ErrUnlockRetry, a polling
// substitute for the condition-variable wait a native unlock-notify
// callback would use.
func retryLocked[T any](ctx context.Context, op func() (T, error)) (T, error) {
	var result T
	var lastErr error
	attempts := 0
	err := retry.Do(
		func() error {
			attempts++
			var err error
			result, err = op()
			if err != nil {
				lastErr = err
			}
			return err
		},
		retry.Context(ctx),
		retry.Attempts(DefaultMaxRetries+1),
		retry.Delay(time.Millisecond),
		retry.MaxDelay(20*time.Millisecond),
		retry.RetryIf(func(err error) bool { return driver.IsLocked(err) }),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		if driver.IsLocked(lastErr) && attempts > DefaultMaxRetries {
			return result, fmt.Errorf("%w: %v", ErrUnlockRetry, lastErr)
		}
		return result, err
	}
	return result, nil
}

// Begin opens a new nesting level of the transaction stack: BEGIN at
// depth 0, SAVEPOINT _musq_savepoint_<depth-1> otherwise.
func (w *Worker) Begin(ctx context.Context) (depth int, err error) {
	type resp struct {
		depth int
		err   error
	}
	respCh := make(chan resp, 1)
	if err := w.enqueue(ctx, func() {
		w.txDepth++
		stmtSQL := beginStatementSQL(w.txDepth)
		if _, err := w.doExecute(ctx, stmtSQL, nil); err != nil {
			w.txDepth--
			respCh <- resp{0, err}
			return
		}
		respCh <- resp{w.txDepth, nil}
	}); err != nil {
		return 0, err
	}
	r := <-respCh
	return r.depth, r.err
}

// Commit releases the current nesting level: RELEASE SAVEPOINT at
// depth > 1, COMMIT at depth 1.
func (w *Worker) Commit(ctx context.Context) error {
	respCh := make(chan error, 1)
	if err := w.enqueue(ctx, func() {
		if w.txDepth == 0 {
			respCh <- errors.New("sqlitex: commit with no open transaction")
			return
		}
		stmtSQL := commitStatementSQL(w.txDepth)
		_, err := w.doExecute(ctx, stmtSQL, nil)
		if err == nil {
			w.txDepth--
		}
		respCh <- err
	}); err != nil {
		return err
	}
	return <-respCh
}

// Rollback unwinds the current nesting level: ROLLBACK TO SAVEPOINT at
// depth > 1, ROLLBACK at depth 1.
func (w *Worker) Rollback(ctx context.Context) error {
	respCh := make(chan error, 1)
	if err := w.enqueue(ctx, func() {
		if w.txDepth == 0 {
			respCh <- errors.New("sqlitex: rollback with no open transaction")
			return
		}
		stmtSQL := rollbackStatementSQL(w.txDepth)
		_, err := w.doExecute(ctx, stmtSQL, nil)
		if err == nil {
			w.txDepth--
		}
		respCh <- err
	}); err != nil {
		return err
	}
	return <-respCh
}

// TxDepth reports the current transaction nesting depth without
// mutating it. Close reads the depth directly on the worker goroutine
// to decide whether an abandoned transaction needs rolling back.
func (w *Worker) TxDepth(ctx context.Context) int {
	respCh := make(chan int, 1)
	if err := w.enqueue(ctx, func() { respCh <- w.txDepth }); err != nil {
		return 0
	}
	return <-respCh
}

// ClearCache evicts every cached prepared statement.
func (w *Worker) ClearCache(ctx context.Context) error {
	respCh := make(chan struct{}, 1)
	if err := w.enqueue(ctx, func() {
		w.cache.Clear()
		respCh <- struct{}{}
	}); err != nil {
		return err
	}
	<-respCh
	return nil
}

// CacheStats reports cumulative statement-cache hit/miss counts.
func (w *Worker) CacheStats() (hits, misses uint64) {
	return w.cache.Stats()
}

// Ping verifies the underlying connection is alive.
func (w *Worker) Ping(ctx context.Context) error {
	respCh := make(chan error, 1)
	if err := w.enqueue(ctx, func() { respCh <- w.handle.Ping(ctx) }); err != nil {
		return err
	}
	return <-respCh
}

// Close stops accepting new work, drains the queue, rolls back any
// transaction left open by an abandoned caller, and closes the
// underlying handle. Close is idempotent.
func (w *Worker) Close(ctx context.Context) error {
	w.closeOnce.Do(func() {
		w.closed.Store(true)
		respCh := make(chan struct{}, 1)
		select {
		case w.queue <- func() {
			if w.txDepth > 0 {
				if _, err := w.doExecute(ctx, "ROLLBACK", nil); err != nil {
					log.Warn().Err(err).Msg("sqlitex: rollback during close failed")
				}
				w.txDepth = 0
			}
			w.cache.Clear()
			respCh <- struct{}{}
		}:
			<-respCh
		case <-ctx.Done():
		}
		close(w.shutdown)
		<-w.done
		w.handle.Close()
	})
	return w.closeErr
}

func beginStatementSQL(depth int) string {
	if depth <= 1 {
		return "BEGIN"
	}
	return fmt.Sprintf("SAVEPOINT _musq_savepoint_%d", depth-1)
}

func commitStatementSQL(depth int) string {
	if depth <= 1 {
		return "COMMIT"
	}
	return fmt.Sprintf("RELEASE SAVEPOINT _musq_savepoint_%d", depth-1)
}

func rollbackStatementSQL(depth int) string {
	if depth <= 1 {
		return "ROLLBACK"
	}
	return fmt.Sprintf("ROLLBACK TO SAVEPOINT _musq_savepoint_%d", depth-1)
}
