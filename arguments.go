// Copyright (c) 2025, the sqlitex contributors.
// SPDX-License-Identifier: MIT

package sqlitex

import "strconv"

// ArgumentValue is a single bound parameter, already converted to one
// of SQLite's fundamental storage classes. Encode implementations
// produce these; the connection worker binds them positionally against
// a prepared statement handle.
type ArgumentValue struct {
	typ  StorageClass
	i    int64
	f    float64
	text string
	blob []byte
}

func NullArgument() ArgumentValue           { return ArgumentValue{typ: StorageNull} }
func IntegerArgument(v int64) ArgumentValue { return ArgumentValue{typ: StorageInteger, i: v} }
func RealArgument(v float64) ArgumentValue  { return ArgumentValue{typ: StorageReal, f: v} }
func TextArgument(v string) ArgumentValue   { return ArgumentValue{typ: StorageText, text: v} }
func BlobArgument(v []byte) ArgumentValue {
	cp := make([]byte, len(v))
	copy(cp, v)
	return ArgumentValue{typ: StorageBlob, blob: cp}
}

func (a ArgumentValue) Type() StorageClass { return a.typ }

// Arguments is the ordered set of parameters bound to one execution of
// a compound statement's current inner statement. Binding is
// positional: SQLite's own binding points (`?`, `?NNN`, `:NAME`,
// `@NAME`, `$NAME`) all resolve to a 1-based parameter index, and
// Arguments only ever deals in that resolved index space.
type Arguments struct {
	values []ArgumentValue
}

// NewArguments builds an empty argument list, grown lazily by Add.
func NewArguments() *Arguments {
	return &Arguments{}
}

// Add encodes v and appends it.
func (a *Arguments) Add(v Encodable) error {
	val, err := v.Encode()
	if err != nil {
		return newEncodeError(err)
	}
	a.values = append(a.values, val)
	return nil
}

// AddValue appends an already-encoded argument.
func (a *Arguments) AddValue(v ArgumentValue) {
	a.values = append(a.values, v)
}

func (a *Arguments) Len() int { return len(a.values) }

// At returns the 1-indexed argument, matching SQLite's own bind-index
// convention. Out-of-range indexes are silently left unbound (SQLite
// then reports that position as a NULL default) rather than erroring.
func (a *Arguments) At(oneIndexed int) (ArgumentValue, bool) {
	i := oneIndexed - 1
	if i < 0 || i >= len(a.values) {
		return ArgumentValue{}, false
	}
	return a.values[i], true
}

// Encodable is implemented by anything Arguments.Add can bind. Encode
// consumes the receiver by value — per the resolved Open Question, an
// Encode implementation owns and consumes v rather than borrowing a
// pointer to it, so callers can freely pass literals and computed
// expressions without an extra addressability step.
type Encodable interface {
	Encode() (ArgumentValue, error)
}

// bindName resolves one SQL parameter name to a 1-based bind index, per
// the placeholder grammar `?`, `?NNN`, `$NAME`, `$NNN`:
//
//   - bare "?"   -> the caller's running auto-increment counter
//   - "?NNN"     -> explicit index NNN
//   - "$NNN"     -> explicit index NNN (treated identically to "?NNN")
//   - "$NAME"    -> not an integer; resolved by the caller via a name
//     table built ahead of time (named parameters are out of scope for
//     positional Arguments and are resolved at the SQL-composition
//     layer before reaching here)
//
// auto is the next auto-increment index to hand out for a bare "?";
// it is returned incremented by one when consumed.
func bindName(raw string, auto int) (index int, nextAuto int, named bool, err error) {
	if raw == "?" {
		return auto, auto + 1, false, nil
	}
	body := raw[1:]
	if body == "" {
		return 0, auto, false, newProtocolError("malformed bind parameter %q", raw)
	}
	n, convErr := strconv.Atoi(body)
	if convErr != nil {
		// $NAME or :NAME forms: not a positional index.
		return 0, auto, true, nil
	}
	return n, auto, false, nil
}
