// Copyright (c) 2025, the sqlitex contributors.
// SPDX-License-Identifier: MIT

package sqlitex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRow(t *testing.T) Row {
	t.Helper()
	cols := newRowColumns([]Column{
		{Name: "id", Ordinal: 0, DeclaredType: TypeInt64, DeclType: "INTEGER"},
		{Name: "name", Ordinal: 1, DeclaredType: TypeText, DeclType: "TEXT"},
	})
	return newRow(cols, []Value{IntegerValue(1), TextValue("ada")})
}

func TestRowScan(t *testing.T) {
	row := newTestRow(t)
	var id int64
	var name string
	require.NoError(t, row.Scan(&id, &name))
	assert.Equal(t, int64(1), id)
	assert.Equal(t, "ada", name)
}

func TestRowGetNamed(t *testing.T) {
	row := newTestRow(t)
	var name string
	require.NoError(t, row.GetNamed("name", &name))
	assert.Equal(t, "ada", name)

	err := row.GetNamed("missing", &name)
	require.Error(t, err)
	assert.ErrorIs(t, err, newColumnNotFoundError("missing"))
}

func TestRowColumnIndexOutOfBounds(t *testing.T) {
	row := newTestRow(t)
	_, err := row.ValueAt(5)
	require.Error(t, err)
}
