// Copyright (c) 2025, the sqlitex contributors.
// SPDX-License-Identifier: MIT

package driver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompoundStatementAdvancesThroughScript(t *testing.T) {
	h := openMemoryHandle(t)
	ctx := context.Background()

	cs, err := NewCompoundStatement(h, "CREATE TABLE t (id INTEGER); INSERT INTO t VALUES (1);")
	require.NoError(t, err)
	require.Equal(t, 2, cs.Len())

	first, err := cs.Current(ctx)
	require.NoError(t, err)
	_, err = first.ExecContext(ctx)
	require.NoError(t, err)

	require.True(t, cs.HasNext())
	second, more, err := cs.Advance(ctx)
	require.NoError(t, err)
	require.True(t, more)
	_, err = second.ExecContext(ctx)
	require.NoError(t, err)

	require.False(t, cs.HasNext())
	require.NoError(t, cs.Close())
}

func TestCompoundStatementResetRewindsCursor(t *testing.T) {
	h := openMemoryHandle(t)
	ctx := context.Background()

	cs, err := NewCompoundStatement(h, "SELECT 1; SELECT 2;")
	require.NoError(t, err)
	_, _, err = cs.Advance(ctx)
	require.NoError(t, err)
	require.False(t, cs.HasNext())

	require.NoError(t, cs.Reset(ctx))
	require.True(t, cs.HasNext())
}

func TestCompoundStatementRejectsEmptySource(t *testing.T) {
	h := openMemoryHandle(t)
	_, err := NewCompoundStatement(h, "   ")
	require.Error(t, err)
}
