// Copyright (c) 2025, the sqlitex contributors.
// SPDX-License-Identifier: MIT

package sqlitex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionCommitPersistsChanges(t *testing.T) {
	conn := openTestConnection(t)
	ctx := context.Background()
	_, err := conn.Execute(ctx, "CREATE TABLE t (id INTEGER)", nil)
	require.NoError(t, err)

	tx, err := conn.Begin(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, tx.Depth())

	_, err = tx.Execute(ctx, "INSERT INTO t VALUES (1)", nil)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	rows, err := conn.FetchAll(ctx, "SELECT id FROM t", nil)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestTransactionRollbackDiscardsChanges(t *testing.T) {
	conn := openTestConnection(t)
	ctx := context.Background()
	_, err := conn.Execute(ctx, "CREATE TABLE t (id INTEGER)", nil)
	require.NoError(t, err)

	tx, err := conn.Begin(ctx)
	require.NoError(t, err)
	_, err = tx.Execute(ctx, "INSERT INTO t VALUES (1)", nil)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback(ctx))

	rows, err := conn.FetchAll(ctx, "SELECT id FROM t", nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestTransactionNestedSavepoints(t *testing.T) {
	conn := openTestConnection(t)
	ctx := context.Background()
	_, err := conn.Execute(ctx, "CREATE TABLE t (id INTEGER)", nil)
	require.NoError(t, err)

	outer, err := conn.Begin(ctx)
	require.NoError(t, err)
	_, err = outer.Execute(ctx, "INSERT INTO t VALUES (1)", nil)
	require.NoError(t, err)

	inner, err := outer.Begin(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.Depth())
	_, err = inner.Execute(ctx, "INSERT INTO t VALUES (2)", nil)
	require.NoError(t, err)
	require.NoError(t, inner.Rollback(ctx))

	rows, err := outer.FetchAll(ctx, "SELECT id FROM t", nil)
	require.NoError(t, err)
	assert.Len(t, rows, 1, "inner savepoint rollback should discard only its own insert")

	require.NoError(t, outer.Commit(ctx))
}

func TestTransactionDropRollsBackAbandonedTransaction(t *testing.T) {
	conn := openTestConnection(t)
	ctx := context.Background()
	_, err := conn.Execute(ctx, "CREATE TABLE t (id INTEGER)", nil)
	require.NoError(t, err)

	func() {
		tx, err := conn.Begin(ctx)
		require.NoError(t, err)
		defer tx.Drop(ctx)
		_, err = tx.Execute(ctx, "INSERT INTO t VALUES (1)", nil)
		require.NoError(t, err)
	}()

	rows, err := conn.FetchAll(ctx, "SELECT id FROM t", nil)
	require.NoError(t, err)
	assert.Empty(t, rows, "abandoned transaction without Commit should roll back via Drop")
}

func TestTransactionCommitAfterCommitIsNoOp(t *testing.T) {
	conn := openTestConnection(t)
	ctx := context.Background()
	tx, err := conn.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))
	require.NoError(t, tx.Commit(ctx))
}
