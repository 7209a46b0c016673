// Copyright (c) 2025, the sqlitex contributors.
// SPDX-License-Identifier: MIT

package sqlitex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionDecodesNullToInvalid(t *testing.T) {
	var opt Option[int64]
	require.NoError(t, opt.Decode(NullValue))
	assert.False(t, opt.Valid)
	assert.Zero(t, opt.Value)
}

func TestOptionDecodesPresentValue(t *testing.T) {
	var opt Option[int64]
	require.NoError(t, opt.Decode(IntegerValue(7)))
	assert.True(t, opt.Valid)
	assert.Equal(t, int64(7), opt.Value)
}

func TestOptionEncodesInvalidAsNull(t *testing.T) {
	var opt Option[int64]
	arg, err := opt.Encode()
	require.NoError(t, err)
	assert.Equal(t, StorageNull, arg.Type())
}

func TestOptionEncodesValidValue(t *testing.T) {
	opt := Some(int64(9))
	arg, err := opt.Encode()
	require.NoError(t, err)
	assert.Equal(t, StorageInteger, arg.Type())
}

type person struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
}

func TestJSONRoundTrip(t *testing.T) {
	j := Json[person]{Value: person{Name: "ada", Age: 30}}
	arg, err := j.Encode()
	require.NoError(t, err)
	require.Equal(t, StorageText, arg.Type())

	var decoded Json[person]
	require.NoError(t, decoded.Decode(TextValue(argText(arg))))
	assert.Equal(t, person{Name: "ada", Age: 30}, decoded.Value)
}

// argText extracts the text payload of a TEXT ArgumentValue for the
// round-trip test above, since ArgumentValue's fields are unexported.
func argText(a ArgumentValue) string {
	return a.text
}

func TestDecodeInt64AcceptsNumericDeclaredType(t *testing.T) {
	var i int64
	v := IntegerValue(7).WithDeclaredType(TypeNumeric)
	require.NoError(t, decodeInt64(&i, v))
	assert.Equal(t, int64(7), i)
}

func TestDecodeInt64RejectsFloatDeclaredType(t *testing.T) {
	var i int64
	v := RealValue(1.5).WithDeclaredType(TypeFloat)
	err := decodeInt64(&i, v)
	require.Error(t, err)
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, TypeFloat, de.Type)
}

func TestDecodeBoolAcceptsIntegerStorage(t *testing.T) {
	var b bool
	v := IntegerValue(1).WithDeclaredType(TypeBool)
	require.NoError(t, decodeBool(&b, v))
	assert.True(t, b)
}

func TestDecodeFloat64RejectsIntegerDeclaredType(t *testing.T) {
	var f float64
	v := IntegerValue(1).WithDeclaredType(TypeInt)
	err := decodeFloat64(&f, v)
	require.Error(t, err)
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, TypeInt, de.Type)
}

func TestDecodeInt64OnNullIsUnexpectedNull(t *testing.T) {
	var i int64
	err := decodeInt64(&i, NullValue)
	require.Error(t, err)
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "unexpected NULL", de.Conversion)
}

func TestRowGetOnNullSurfacesUnexpectedNullViaColumnDecode(t *testing.T) {
	cols := newRowColumns([]Column{{Name: "n", Ordinal: 0, DeclaredType: TypeInt64, DeclType: "INTEGER"}})
	row := newRow(cols, []Value{NullValue})
	var i int64
	err := row.Get(0, &i)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected NULL")
	var sqlErr *Error
	require.ErrorAs(t, err, &sqlErr)
	assert.ErrorIs(t, sqlErr, &Error{kind: errKindColumnDecode})
}
