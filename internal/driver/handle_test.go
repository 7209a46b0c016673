// Copyright (c) 2025, the sqlitex contributors.
// SPDX-License-Identifier: MIT

package driver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func openMemoryHandle(t *testing.T) *Handle {
	t.Helper()
	h, err := Open(context.Background(), "file::memory:", []string{"PRAGMA busy_timeout = 2000"})
	require.NoError(t, err)
	t.Cleanup(h.Close)
	return h
}

func TestHandleOpenAndExec(t *testing.T) {
	h := openMemoryHandle(t)
	_, err := h.ExecContext(context.Background(), "CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT)")
	require.NoError(t, err)
	_, err = h.ExecContext(context.Background(), "INSERT INTO t (name) VALUES (?)", "ada")
	require.NoError(t, err)
}

func TestHandlePing(t *testing.T) {
	h := openMemoryHandle(t)
	require.NoError(t, h.Ping(context.Background()))
}

func TestHandlePrepareContext(t *testing.T) {
	h := openMemoryHandle(t)
	_, err := h.ExecContext(context.Background(), "CREATE TABLE t (id INTEGER)")
	require.NoError(t, err)
	stmt, err := h.PrepareContext(context.Background(), "INSERT INTO t (id) VALUES (?)")
	require.NoError(t, err)
	defer stmt.Close()
	_, err = stmt.ExecContext(context.Background(), 1)
	require.NoError(t, err)
}
