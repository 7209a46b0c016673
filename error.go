// Copyright (c) 2025, the sqlitex contributors.
// SPDX-License-Identifier: MIT

package sqlitex

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// DecodeError is returned when a Value cannot be converted into the
// type a Decode implementation asked for.
type DecodeError struct {
	// Type is set when the source Value's declared type is not one of
	// the types a Decode implementation accepts.
	Type DeclaredType
	// Conversion is set for any other decode failure (malformed bytes,
	// out-of-range narrowing, etc). Empty when Type is the cause.
	Conversion string
}

func (e *DecodeError) Error() string {
	if e.Conversion != "" {
		return fmt.Sprintf("decoding conversion error: %s", e.Conversion)
	}
	return fmt.Sprintf("incompatible source data type: %s", e.Type)
}

// IncompatibleDataType builds a DecodeError for a Value whose declared
// type isn't one Decode accepts.
func IncompatibleDataType(t DeclaredType) *DecodeError {
	return &DecodeError{Type: t}
}

// ConversionError builds a DecodeError from a formatted message.
func ConversionError(format string, args ...any) *DecodeError {
	return &DecodeError{Conversion: fmt.Sprintf(format, args...)}
}

// unexpectedNull builds the DecodeError a non-Option decode target gets
// for a NULL column, distinct from an ordinary type mismatch: the
// column's type was fine, it simply had no value to decode.
func unexpectedNull() *DecodeError {
	return &DecodeError{Conversion: "unexpected NULL"}
}

// EncodeError is returned when an application value cannot be turned
// into a Value.
type EncodeError struct {
	Conversion string
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encoding conversion error: %s", e.Conversion)
}

func NewEncodeError(format string, args ...any) *EncodeError {
	return &EncodeError{Conversion: fmt.Sprintf(format, args...)}
}

// PrimaryErrCode is the primary SQLite result code (the low byte of an
// extended result code).
type PrimaryErrCode int

// ExtendedErrCode is the full extended SQLite result code.
type ExtendedErrCode int

// SqliteError is a typed wrapper around an error surfaced by the engine.
type SqliteError struct {
	Primary   PrimaryErrCode
	Extended  ExtendedErrCode
	Message   string
}

func (e *SqliteError) Error() string {
	return fmt.Sprintf("error returned from database (primary: %d, extended: %d): %s", e.Primary, e.Extended, sanitizeMessage(e.Message))
}

// sanitizeMessage replaces a non-UTF-8 engine message with a safe
// placeholder instead of ever panicking on invalid bytes.
func sanitizeMessage(msg string) string {
	if msg == "" {
		return "(no message)"
	}
	if !utf8.ValidString(msg) {
		return "(error message contained invalid bytes)"
	}
	for i := 0; i < len(msg); i++ {
		if msg[i] == 0 {
			return "(error message contained invalid bytes)"
		}
	}
	return msg
}

// Error is the closed set of errors this library returns to callers.
// Callers should match on it with errors.As.
type Error struct {
	kind errorKind
	// Sqlite is populated when kind == errKindSqlite.
	Sqlite *SqliteError
	// Message carries additional context for kinds that don't have a
	// dedicated payload field.
	Message string
	// Index/Len back ColumnIndexOutOfBounds.
	Index, Len int
	// ColumnName/ColumnOrdinal/Value/Source back ColumnDecode.
	ColumnName    string
	ColumnOrdinal int
	Value         Value
	Source        error
	wrapped       error
}

type errorKind int

const (
	errKindSqlite errorKind = iota
	errKindIO
	errKindProtocol
	errKindRowNotFound
	errKindTypeNotFound
	errKindColumnIndexOutOfBounds
	errKindColumnNotFound
	errKindColumnDecode
	errKindDecode
	errKindEncode
	errKindPoolTimedOut
	errKindPoolClosed
	errKindWorkerCrashed
	errKindUnlockNotify
)

func (e *Error) Error() string {
	switch e.kind {
	case errKindSqlite:
		return e.Sqlite.Error()
	case errKindIO:
		return fmt.Sprintf("error communicating with database: %s", e.Message)
	case errKindProtocol:
		return fmt.Sprintf("encountered unexpected or invalid data: %s", e.Message)
	case errKindRowNotFound:
		return "no rows returned by a query that expected to return at least one row"
	case errKindTypeNotFound:
		return fmt.Sprintf("type named %s not found", e.Message)
	case errKindColumnIndexOutOfBounds:
		return fmt.Sprintf("column index out of bounds: the len is %d, but the index is %d", e.Len, e.Index)
	case errKindColumnNotFound:
		return fmt.Sprintf("no column found for name: %s", e.Message)
	case errKindColumnDecode:
		return fmt.Sprintf("error occurred while decoding column %s at index %d (value: %v): %s", e.ColumnName, e.ColumnOrdinal, e.Value, e.Source)
	case errKindDecode:
		return fmt.Sprintf("error occurred while decoding: %s", e.Source)
	case errKindEncode:
		return fmt.Sprintf("error occurred while encoding: %s", e.Source)
	case errKindPoolTimedOut:
		return "pool timed out while waiting for an open connection"
	case errKindPoolClosed:
		return "attempted to acquire a connection on a closed pool"
	case errKindWorkerCrashed:
		return "attempted to communicate with a crashed background worker"
	case errKindUnlockNotify:
		return "unlock_notify failed after multiple attempts"
	default:
		return "sqlitex: unknown error"
	}
}

func (e *Error) Unwrap() error {
	if e.Source != nil {
		return e.Source
	}
	return e.wrapped
}

// Sentinel-style errors for errors.Is comparisons against the fixed set
// of kinds that carry no payload.
var (
	ErrRowNotFound   = &Error{kind: errKindRowNotFound}
	ErrPoolTimedOut  = &Error{kind: errKindPoolTimedOut}
	ErrPoolClosed    = &Error{kind: errKindPoolClosed}
	ErrWorkerCrashed = &Error{kind: errKindWorkerCrashed}
	ErrUnlockNotify  = &Error{kind: errKindUnlockNotify}
)

func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.kind == te.kind
}

func newSqliteError(primary PrimaryErrCode, extended ExtendedErrCode, message string) *Error {
	return &Error{kind: errKindSqlite, Sqlite: &SqliteError{Primary: primary, Extended: extended, Message: sanitizeMessage(message)}}
}

func newIOError(err error) *Error {
	return &Error{kind: errKindIO, Message: err.Error(), wrapped: err}
}

func newProtocolError(format string, args ...any) *Error {
	return &Error{kind: errKindProtocol, Message: fmt.Sprintf(format, args...)}
}

func newTypeNotFoundError(typeName string) *Error {
	return &Error{kind: errKindTypeNotFound, Message: typeName}
}

func newColumnIndexOutOfBoundsError(index, length int) *Error {
	return &Error{kind: errKindColumnIndexOutOfBounds, Index: index, Len: length}
}

func newColumnNotFoundError(name string) *Error {
	return &Error{kind: errKindColumnNotFound, Message: name}
}

func newColumnDecodeError(ordinal int, columnName string, value Value, source error) *Error {
	return &Error{kind: errKindColumnDecode, ColumnOrdinal: ordinal, ColumnName: columnName, Value: value, Source: source}
}

func newDecodeError(source error) *Error {
	return &Error{kind: errKindDecode, Source: source}
}

func newEncodeError(source error) *Error {
	return &Error{kind: errKindEncode, Source: source}
}

// AsSqliteError extracts the *SqliteError payload, if err wraps one.
func AsSqliteError(err error) (*SqliteError, bool) {
	var e *Error
	if errors.As(err, &e) && e.kind == errKindSqlite {
		return e.Sqlite, true
	}
	return nil, false
}
