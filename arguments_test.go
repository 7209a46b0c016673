// Copyright (c) 2025, the sqlitex contributors.
// SPDX-License-Identifier: MIT

package sqlitex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgumentsPositionalRoundTrip(t *testing.T) {
	args := NewArguments()
	args.AddValue(IntegerArgument(1))
	args.AddValue(TextArgument("two"))
	args.AddValue(BlobArgument([]byte{3}))

	require.Equal(t, 3, args.Len())

	v, ok := args.At(1)
	require.True(t, ok)
	assert.Equal(t, StorageInteger, v.Type())

	v, ok = args.At(2)
	require.True(t, ok)
	assert.Equal(t, StorageText, v.Type())

	_, ok = args.At(4)
	assert.False(t, ok, "out-of-range bind index should be reported as absent, not error")
}

func TestArgumentsOutOfRangeIsSilentlyAbsent(t *testing.T) {
	args := NewArguments()
	args.AddValue(NullArgument())
	_, ok := args.At(0)
	assert.False(t, ok, "bind indexes are 1-based")
	_, ok = args.At(100)
	assert.False(t, ok)
}

func TestBindNameGrammar(t *testing.T) {
	idx, next, named, err := bindName("?", 1)
	require.NoError(t, err)
	assert.False(t, named)
	assert.Equal(t, 1, idx)
	assert.Equal(t, 2, next)

	idx, _, named, err = bindName("?3", 1)
	require.NoError(t, err)
	assert.False(t, named)
	assert.Equal(t, 3, idx)

	idx, _, named, err = bindName("$2", 1)
	require.NoError(t, err)
	assert.False(t, named)
	assert.Equal(t, 2, idx)

	_, _, named, err = bindName("$name", 1)
	require.NoError(t, err)
	assert.True(t, named)
}
