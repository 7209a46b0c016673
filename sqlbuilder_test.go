// Copyright (c) 2025, the sqlitex contributors.
// SPDX-License-Identifier: MIT

package sqlitex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteIdentifierRoundTrip(t *testing.T) {
	assert.Equal(t, `"users"`, QuoteIdentifier("users"))
	assert.Equal(t, `"weird""name"`, QuoteIdentifier(`weird"name`))
}

func TestInsertValuesBuildsPlaceholders(t *testing.T) {
	expr, err := InsertValues("users", []Assignment{
		{Column: "name", Value: Lit(TextArgument("ada"))},
		{Column: "age", Value: Lit(IntegerArgument(30))},
	})
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "users" ("name", "age") VALUES (?, ?)`, expr.SQL)
	require.Len(t, expr.Args, 2)
	assert.False(t, expr.Tainted)
}

func TestInsertValuesRejectsEmpty(t *testing.T) {
	_, err := InsertValues("users", nil)
	require.Error(t, err)
}

func TestInsertIntoFluentBuilder(t *testing.T) {
	expr, err := NewInsertInto("users").
		Value("name", Lit(TextArgument("grace"))).
		Value("active", Lit(IntegerArgument(1))).
		Query()
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "users" ("name", "active") VALUES (?, ?)`, expr.SQL)
}

func TestUpdateSetWithWhere(t *testing.T) {
	where := Expr{SQL: `"id" = ?`, Args: []ArgumentValue{IntegerArgument(1)}}
	expr, err := UpdateSet("users", []Assignment{
		{Column: "name", Value: Lit(TextArgument("new"))},
	}, where)
	require.NoError(t, err)
	assert.Equal(t, `UPDATE "users" SET "name" = ? WHERE "id" = ?`, expr.SQL)
	require.Len(t, expr.Args, 2)
}

func TestWhereAndJoinsConditions(t *testing.T) {
	cond := WhereAnd(
		Expr{SQL: `"a" = ?`, Args: []ArgumentValue{IntegerArgument(1)}},
		Expr{SQL: `"b" = ?`, Args: []ArgumentValue{IntegerArgument(2)}},
	)
	assert.Equal(t, `"a" = ? AND "b" = ?`, cond.SQL)
	require.Len(t, cond.Args, 2)
}

func TestUpsertSetBuildsOnConflict(t *testing.T) {
	expr, err := UpsertSet("users",
		[]Assignment{{Column: "id", Value: Lit(IntegerArgument(1))}, {Column: "name", Value: Lit(TextArgument("a"))}},
		[]string{"id"},
		[]Assignment{{Column: "name", Value: Lit(TextArgument("a"))}},
	)
	require.NoError(t, err)
	assert.Contains(t, expr.SQL, `ON CONFLICT ("id") DO UPDATE SET "name" = ?`)
}

func TestRawTaintsExpression(t *testing.T) {
	e := Raw("SELECT 1")
	assert.True(t, e.Tainted)
	frag, err := InsertValues("t", []Assignment{{Column: "c", Value: Frag(e)}})
	require.NoError(t, err)
	assert.True(t, frag.Tainted)
}

func TestJoinNamedSuffixesCollidingNames(t *testing.T) {
	parts := []Expr{
		{SQL: "SELECT :a"},
		{SQL: "UNION SELECT :a"},
	}
	names := [][]NamedArg{
		{{Name: "a", Value: IntegerArgument(1)}},
		{{Name: "a", Value: IntegerArgument(2)}},
	}
	joined := JoinNamed(" ", parts, names)
	assert.Equal(t, "SELECT :a UNION SELECT :a_1", joined.SQL)
}
