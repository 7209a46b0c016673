// Copyright (c) 2025, the sqlitex contributors.
// SPDX-License-Identifier: MIT

package sqlitex

import "strings"

// QuoteIdentifier wraps name in double quotes, doubling any embedded
// quote character, the standard SQL identifier-quoting rule SQLite
// honors for table and column names.
func QuoteIdentifier(name string) string {
	var b strings.Builder
	b.Grow(len(name) + 2)
	b.WriteByte('"')
	for _, r := range name {
		if r == '"' {
			b.WriteByte('"')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}

// Expr is a composable SQL fragment carrying its own bound arguments
// and a taint flag. Tainted fragments are ones built from raw,
// caller-supplied SQL text rather than from this package's own
// builders; composing a tainted fragment into a larger query marks the
// whole query tainted so callers auditing generated SQL can tell which
// statements still contain hand-written text.
type Expr struct {
	SQL     string
	Args    []ArgumentValue
	Tainted bool
}

// Raw wraps caller-supplied SQL verbatim. The resulting Expr is
// tainted: nothing about hand-written SQL text has been validated
// against this package's placeholder or quoting rules.
func Raw(sql string, args ...ArgumentValue) Expr {
	return Expr{SQL: sql, Args: args, Tainted: true}
}

// NowUTC is an Expr for the current UTC timestamp in the RFC3339-ish
// format decodeTime expects back.
func NowUTC() Expr {
	return Expr{SQL: "STRFTIME('%Y-%m-%dT%H:%M:%fZ','now')"}
}

// JSONB wraps a JSON text literal in SQLite's jsonb() constructor,
// binding it as a parameter rather than splicing it into the SQL text.
func JSONB(json string) Expr {
	return Expr{SQL: "jsonb(?)", Args: []ArgumentValue{TextArgument(json)}}
}

// ValueOrExpr is either a concrete bound value or a composable SQL
// fragment (for column assignments like `updated_at = <NowUTC()>`
// instead of a literal). Builders accept either through this type.
type ValueOrExpr struct {
	expr    Expr
	isExpr  bool
	literal ArgumentValue
}

func Lit(v ArgumentValue) ValueOrExpr { return ValueOrExpr{literal: v} }
func Frag(e Expr) ValueOrExpr         { return ValueOrExpr{expr: e, isExpr: true} }

func (v ValueOrExpr) placeholder() Expr {
	if v.isExpr {
		return v.expr
	}
	return Expr{SQL: "?", Args: []ArgumentValue{v.literal}}
}

// Assignment is one `column = value` pair for UPDATE/UPSERT/INSERT
// fragment builders. Assignments are ordered: callers pass a slice
// rather than a map so generated SQL is deterministic.
type Assignment struct {
	Column string
	Value  ValueOrExpr
}

// InsertValues builds `INSERT INTO "table" (c1, c2) VALUES (?, ?)` from
// an ordered assignment list, the fragment-builder counterpart to the
// fluent InsertInto below. An insert with no columns is a protocol
// error, not an empty statement.
func InsertValues(table string, assignments []Assignment) (Expr, error) {
	if len(assignments) == 0 {
		return Expr{}, newProtocolError("insert has no values")
	}
	var cols, placeholders strings.Builder
	var args []ArgumentValue
	tainted := false
	for i, a := range assignments {
		if i > 0 {
			cols.WriteString(", ")
			placeholders.WriteString(", ")
		}
		cols.WriteString(QuoteIdentifier(a.Column))
		frag := a.Value.placeholder()
		placeholders.WriteString(frag.SQL)
		args = append(args, frag.Args...)
		tainted = tainted || frag.Tainted
	}
	sql := "INSERT INTO " + QuoteIdentifier(table) + " (" + cols.String() + ") VALUES (" + placeholders.String() + ")"
	return Expr{SQL: sql, Args: args, Tainted: tainted}, nil
}

// UpdateSet builds `UPDATE "table" SET c1 = ?, c2 = ? <where>` from an
// ordered assignment list and an optional WHERE fragment (pass a zero
// Expr for none).
func UpdateSet(table string, assignments []Assignment, where Expr) (Expr, error) {
	if len(assignments) == 0 {
		return Expr{}, newProtocolError("update has no assignments")
	}
	var set strings.Builder
	var args []ArgumentValue
	tainted := false
	for i, a := range assignments {
		if i > 0 {
			set.WriteString(", ")
		}
		frag := a.Value.placeholder()
		set.WriteString(QuoteIdentifier(a.Column))
		set.WriteString(" = ")
		set.WriteString(frag.SQL)
		args = append(args, frag.Args...)
		tainted = tainted || frag.Tainted
	}
	sql := "UPDATE " + QuoteIdentifier(table) + " SET " + set.String()
	if where.SQL != "" {
		sql += " WHERE " + where.SQL
		args = append(args, where.Args...)
		tainted = tainted || where.Tainted
	}
	return Expr{SQL: sql, Args: args, Tainted: tainted}, nil
}

// WhereAnd joins conditions with AND, parenthesizing nothing since
// individual conditions are expected to already be self-contained
// comparisons (`col = ?`, `col > ?`).
func WhereAnd(conditions ...Expr) Expr {
	if len(conditions) == 0 {
		return Expr{}
	}
	var sql strings.Builder
	var args []ArgumentValue
	tainted := false
	for i, c := range conditions {
		if i > 0 {
			sql.WriteString(" AND ")
		}
		sql.WriteString(c.SQL)
		args = append(args, c.Args...)
		tainted = tainted || c.Tainted
	}
	return Expr{SQL: sql.String(), Args: args, Tainted: tainted}
}

// UpsertSet builds an `INSERT INTO ... ON CONFLICT (conflictCols) DO
// UPDATE SET ...` statement: insert values from assignments, and on a
// uniqueness conflict apply updates instead.
func UpsertSet(table string, assignments []Assignment, conflictCols []string, updates []Assignment) (Expr, error) {
	ins, err := InsertValues(table, assignments)
	if err != nil {
		return Expr{}, err
	}
	if len(conflictCols) == 0 {
		return Expr{}, newProtocolError("upsert requires at least one conflict column")
	}
	quoted := make([]string, len(conflictCols))
	for i, c := range conflictCols {
		quoted[i] = QuoteIdentifier(c)
	}
	sql := ins.SQL + " ON CONFLICT (" + strings.Join(quoted, ", ") + ")"
	args := ins.Args
	tainted := ins.Tainted
	if len(updates) == 0 {
		sql += " DO NOTHING"
	} else {
		var set strings.Builder
		for i, a := range updates {
			if i > 0 {
				set.WriteString(", ")
			}
			frag := a.Value.placeholder()
			set.WriteString(QuoteIdentifier(a.Column))
			set.WriteString(" = ")
			set.WriteString(frag.SQL)
			args = append(args, frag.Args...)
			tainted = tainted || frag.Tainted
		}
		sql += " DO UPDATE SET " + set.String()
	}
	return Expr{SQL: sql, Args: args, Tainted: tainted}, nil
}

// Join concatenates fragments with sep, renumbering nothing since every
// builder in this file emits bare "?" placeholders consumed in
// left-to-right order; SQLite resolves bare "?" positionally as it
// encounters them, so simple concatenation of SQL text and argument
// lists already produces correct binding order.
func Join(sep string, fragments ...Expr) Expr {
	var sql []string
	var args []ArgumentValue
	tainted := false
	for _, f := range fragments {
		if f.SQL == "" {
			continue
		}
		sql = append(sql, f.SQL)
		args = append(args, f.Args...)
		tainted = tainted || f.Tainted
	}
	return Expr{SQL: strings.Join(sql, sep), Args: args, Tainted: tainted}
}

// NamedArg is one `:NAME -> value` pair passed to JoinNamed, which
// reads only its Name.
type NamedArg struct {
	Name  string
	Value ArgumentValue
}

// JoinNamed merges named-argument fragments, suffixing a later
// duplicate name (:NAME, :NAME_1, :NAME_2, ...) and rewriting its
// occurrences in sql so that two fragments binding the same name to
// different values don't silently collapse onto one SQLite bind point.
// join(sql!("SELECT {a}", a=1), sql!("UNION SELECT {a}", a=2)) renders
// `SELECT :a UNION SELECT :a_1`. Only the SQL text is rewritten: the
// returned Args hold each part's own Args in order, and the values in
// names are not added to them.
func JoinNamed(sep string, parts []Expr, names [][]NamedArg) Expr {
	seen := make(map[string]int)
	var sql []string
	var args []ArgumentValue
	tainted := false
	for i, p := range parts {
		text := p.SQL
		for _, na := range names[i] {
			n := seen[na.Name]
			seen[na.Name]++
			if n > 0 {
				final := na.Name + "_" + itoaSmall(n)
				text = strings.ReplaceAll(text, ":"+na.Name, ":"+final)
			}
		}
		sql = append(sql, text)
		args = append(args, p.Args...)
		tainted = tainted || p.Tainted
	}
	return Expr{SQL: strings.Join(sql, sep), Args: args, Tainted: tainted}
}

func itoaSmall(n int) string {
	if n < 10 {
		return string(rune('0' + n))
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

// InsertInto starts a fluent insert builder. It compiles to the same
// SQL shape as InsertValues; use whichever reads better at the call
// site.
type InsertInto struct {
	table       string
	assignments []Assignment
}

func NewInsertInto(table string) *InsertInto {
	return &InsertInto{table: table}
}

func (ib *InsertInto) Value(column string, v ValueOrExpr) *InsertInto {
	ib.assignments = append(ib.assignments, Assignment{Column: column, Value: v})
	return ib
}

func (ib *InsertInto) Query() (Expr, error) {
	return InsertValues(ib.table, ib.assignments)
}
