// Copyright (c) 2025, the sqlitex contributors.
// SPDX-License-Identifier: MIT

package sqlitex

import (
	"time"

	gojson "github.com/goccy/go-json"
)

// Decodable is implemented by a pointer to any type Row.Scan can fill
// in from a single column Value. Decode receives the column's declared
// affinity alongside its Value so NULL decode targets can fall back to
// the schema's affinity instead of SQLite's dynamic NULL typing.
type Decodable interface {
	Decode(v Value) error
}

// Plain Go scalars need no wrapper type: decodeInto accepts bare
// *int64, *int, *float64, *string, *bool, *[]byte and *time.Time
// destinations, and encodeAny accepts the matching values, so Row.Scan
// and the generic wrappers (Option[T]) handle the common cases without
// a hand-written Decodable/Encodable implementation.

// Option is a nullable decode/encode target: NULL decodes to a zero
// Option (Valid == false) instead of an error, for "column may be NULL"
// decode targets.
type Option[T any] struct {
	Value T
	Valid bool
}

func Some[T any](v T) Option[T] { return Option[T]{Value: v, Valid: true} }

// Decode implements Decodable by delegating to decodeInto once NULL has
// been ruled out. T must be one of the built-in scalars decodeInto
// handles or a type whose pointer implements Decodable; anything else
// fails at run time with a protocol error, since Go cannot express that
// constraint on T directly.
func (o *Option[T]) Decode(v Value) error {
	if v.IsNull() {
		*o = Option[T]{}
		return nil
	}
	if err := decodeInto(&o.Value, v); err != nil {
		return err
	}
	o.Valid = true
	return nil
}

// Encode implements Encodable: an invalid Option encodes to NULL,
// otherwise the inner value is encoded by encodeAny (its own Encodable
// implementation, or the built-in scalar encoding).
func (o Option[T]) Encode() (ArgumentValue, error) {
	if !o.Valid {
		return NullArgument(), nil
	}
	return encodeAny(o.Value)
}

// Json wraps an arbitrary value for JSON-encoded TEXT storage, using
// goccy/go-json for both directions.
type Json[T any] struct {
	Value T
}

func (j *Json[T]) Decode(v Value) error {
	if v.IsNull() {
		var zero T
		j.Value = zero
		return nil
	}
	if v.Type() != StorageText && v.Type() != StorageBlob {
		return IncompatibleDataType(v.DeclaredType())
	}
	var src []byte
	if v.Type() == StorageText {
		src = []byte(v.Text())
	} else {
		src = v.Blob()
	}
	if err := gojson.Unmarshal(src, &j.Value); err != nil {
		return ConversionError("invalid json: %s", err)
	}
	return nil
}

func (j Json[T]) Encode() (ArgumentValue, error) {
	b, err := gojson.Marshal(j.Value)
	if err != nil {
		return ArgumentValue{}, NewEncodeError("marshaling json: %s", err)
	}
	return TextArgumentFromBytes(b), nil
}

// TextArgumentFromBytes builds a TEXT argument from already-encoded
// bytes without an extra string copy round-trip.
func TextArgumentFromBytes(b []byte) ArgumentValue {
	return TextArgument(string(b))
}

// decodeInto dispatches to the built-in scalar decoders or to a
// Decodable implementation, used by Option[T] and by Row.Scan.
func decodeInto(dst any, v Value) error {
	switch d := dst.(type) {
	case Decodable:
		return d.Decode(v)
	case *int64:
		return decodeInt64(d, v)
	case *int:
		var i64 int64
		if err := decodeInt64(&i64, v); err != nil {
			return err
		}
		*d = int(i64)
		return nil
	case *float64:
		return decodeFloat64(d, v)
	case *string:
		return decodeString(d, v)
	case *bool:
		return decodeBool(d, v)
	case *[]byte:
		return decodeBlob(d, v)
	case *time.Time:
		return decodeTime(d, v)
	default:
		return newProtocolError("unsupported scan destination %T", dst)
	}
}

// compatible reports whether v's declared type (the column's own
// declared type, or its storage class's natural type when the column
// declared none) is one of want.
func compatible(v Value, want ...DeclaredType) bool {
	dt := v.DeclaredType()
	for _, w := range want {
		if dt == w {
			return true
		}
	}
	return false
}

func decodeInt64(dst *int64, v Value) error {
	if v.IsNull() {
		return unexpectedNull()
	}
	if !compatible(v, TypeInt, TypeInt64, TypeNumeric) {
		return IncompatibleDataType(v.DeclaredType())
	}
	switch v.Type() {
	case StorageInteger:
		*dst = v.Int64()
	case StorageReal:
		*dst = int64(v.Double())
	default:
		return IncompatibleDataType(v.DeclaredType())
	}
	return nil
}

// decodeBool checks compatibility separately from decodeInt64: a
// BOOLEAN-declared column is not itself an integer or numeric
// declaration, but still stores under SQLite's INTEGER storage class.
func decodeBool(dst *bool, v Value) error {
	if v.IsNull() {
		return unexpectedNull()
	}
	if !compatible(v, TypeBool, TypeInt, TypeInt64, TypeNumeric) {
		return IncompatibleDataType(v.DeclaredType())
	}
	switch v.Type() {
	case StorageInteger:
		*dst = v.Int64() != 0
	case StorageReal:
		*dst = v.Double() != 0
	default:
		return IncompatibleDataType(v.DeclaredType())
	}
	return nil
}

func decodeFloat64(dst *float64, v Value) error {
	if v.IsNull() {
		return unexpectedNull()
	}
	if !compatible(v, TypeFloat, TypeNumeric) {
		return IncompatibleDataType(v.DeclaredType())
	}
	switch v.Type() {
	case StorageReal:
		*dst = v.Double()
	case StorageInteger:
		*dst = float64(v.Int64())
	default:
		return IncompatibleDataType(v.DeclaredType())
	}
	return nil
}

func decodeString(dst *string, v Value) error {
	if v.IsNull() {
		return unexpectedNull()
	}
	if !compatible(v, TypeText) {
		return IncompatibleDataType(v.DeclaredType())
	}
	*dst = v.Text()
	return nil
}

func decodeBlob(dst *[]byte, v Value) error {
	if v.IsNull() {
		return unexpectedNull()
	}
	if !compatible(v, TypeBlob, TypeText) {
		return IncompatibleDataType(v.DeclaredType())
	}
	switch v.Type() {
	case StorageBlob:
		*dst = v.Blob()
	case StorageText:
		*dst = []byte(v.Text())
	default:
		return IncompatibleDataType(v.DeclaredType())
	}
	return nil
}

// decodeTime parses RFC3339 text, matching the STRFTIME('%Y-%m-%dT%H:%M:%fZ','now')
// format NowUTC in sqlbuilder.go produces.
func decodeTime(dst *time.Time, v Value) error {
	if v.IsNull() {
		return unexpectedNull()
	}
	if v.Type() != StorageText {
		return IncompatibleDataType(v.DeclaredType())
	}
	t, err := time.Parse(time.RFC3339Nano, v.Text())
	if err != nil {
		return ConversionError("invalid timestamp %q: %s", v.Text(), err)
	}
	*dst = t
	return nil
}

// encodeAny is the Encodable dispatch used by generic wrappers
// (Option[T]) whose element type isn't statically known to implement
// Encodable.
func encodeAny(v any) (ArgumentValue, error) {
	switch x := v.(type) {
	case Encodable:
		return x.Encode()
	case int64:
		return IntegerArgument(x), nil
	case int:
		return IntegerArgument(int64(x)), nil
	case float64:
		return RealArgument(x), nil
	case string:
		return TextArgument(x), nil
	case bool:
		if x {
			return IntegerArgument(1), nil
		}
		return IntegerArgument(0), nil
	case []byte:
		return BlobArgument(x), nil
	case time.Time:
		return TextArgument(x.UTC().Format(time.RFC3339Nano)), nil
	case nil:
		return NullArgument(), nil
	default:
		return ArgumentValue{}, NewEncodeError("no Encodable implementation for %T", v)
	}
}
