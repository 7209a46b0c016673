// Copyright (c) 2025, the sqlitex contributors.
// SPDX-License-Identifier: MIT

package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyre-dev/sqlitex/internal/driver"
)

func startTestWorker(t *testing.T) *Worker {
	t.Helper()
	h, err := driver.Open(context.Background(), "file::memory:", []string{"PRAGMA busy_timeout = 2000"})
	require.NoError(t, err)
	w, err := Start(h, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close(context.Background()) })
	return w
}

func TestWorkerExecuteAndQuery(t *testing.T) {
	w := startTestWorker(t)
	ctx := context.Background()

	_, err := w.Execute(ctx, "CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT)", nil)
	require.NoError(t, err)

	res, err := w.Execute(ctx, "INSERT INTO t (name) VALUES (?)", []any{"ada"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.LastInsertRowID)
	assert.Equal(t, int64(1), res.RowsAffected)

	rs, err := w.Query(ctx, "SELECT id, name FROM t", nil)
	require.NoError(t, err)
	row, ok := rs.Next()
	require.True(t, ok)
	assert.Equal(t, "ada", row.Values[1])
	_, ok = rs.Next()
	assert.False(t, ok)
	assert.NoError(t, rs.Err())
}

func TestWorkerTransactionNesting(t *testing.T) {
	w := startTestWorker(t)
	ctx := context.Background()

	_, err := w.Execute(ctx, "CREATE TABLE t (id INTEGER)", nil)
	require.NoError(t, err)

	depth, err := w.Begin(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, depth)

	depth2, err := w.Begin(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, depth2)

	require.NoError(t, w.Rollback(ctx))
	assert.Equal(t, 1, w.TxDepth(ctx))

	require.NoError(t, w.Commit(ctx))
	assert.Equal(t, 0, w.TxDepth(ctx))
}

func TestWorkerCommitWithNoTransactionErrors(t *testing.T) {
	w := startTestWorker(t)
	err := w.Commit(context.Background())
	require.Error(t, err)
}

func TestWorkerCloseRollsBackAbandonedTransaction(t *testing.T) {
	h, err := driver.Open(context.Background(), "file::memory:", nil)
	require.NoError(t, err)
	w, err := Start(h, 0)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = w.Execute(ctx, "CREATE TABLE t (id INTEGER)", nil)
	require.NoError(t, err)
	_, err = w.Begin(ctx)
	require.NoError(t, err)

	require.NoError(t, w.Close(ctx))
}

func TestWorkerMultiStatementExecuteScript(t *testing.T) {
	w := startTestWorker(t)
	ctx := context.Background()

	res, err := w.Execute(ctx, "CREATE TABLE t (id INTEGER); INSERT INTO t VALUES (1); INSERT INTO t VALUES (2);", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.RowsAffected)

	rs, err := w.Query(ctx, "SELECT COUNT(*) FROM t", nil)
	require.NoError(t, err)
	row, ok := rs.Next()
	require.True(t, ok)
	assert.Equal(t, int64(2), row.Values[0])
}

func TestWorkerClosedRejectsNewWork(t *testing.T) {
	w := startTestWorker(t)
	require.NoError(t, w.Close(context.Background()))
	_, err := w.Execute(context.Background(), "SELECT 1", nil)
	require.ErrorIs(t, err, ErrCrashed)
}
