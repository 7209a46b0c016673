// Copyright (c) 2025, the sqlitex contributors.
// SPDX-License-Identifier: MIT

package driver

import (
	"context"
	"database/sql"
)

// ColumnMeta is the column metadata a Statement learns the first time
// it is stepped (database/sql only exposes DatabaseTypeName once a
// *sql.Rows exists, unlike raw sqlite3_column_decltype which is
// available straight after prepare).
type ColumnMeta struct {
	Name     string
	DeclType string
}

// Statement is one inner prepared statement of a CompoundStatement,
// wrapping the *sql.Stmt the dedicated Handle produced plus the exact
// SQL text it was prepared from (kept for diagnostics and for
// statement-cache fingerprinting).
type Statement struct {
	Text    string
	Stmt    *sql.Stmt
	columns []ColumnMeta
	learned bool
}

// ExecContext runs the statement for its side effects and returns the
// engine's result (last insert rowid, rows affected).
func (s *Statement) ExecContext(ctx context.Context, args ...any) (sql.Result, error) {
	return s.Stmt.ExecContext(ctx, args...)
}

// QueryContext runs the statement and learns column metadata from the
// resulting *sql.Rows the first time it is called.
func (s *Statement) QueryContext(ctx context.Context, args ...any) (*sql.Rows, error) {
	rows, err := s.Stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, err
	}
	if !s.learned {
		if err := s.learnColumns(rows); err != nil {
			rows.Close()
			return nil, err
		}
	}
	return rows, nil
}

func (s *Statement) learnColumns(rows *sql.Rows) error {
	types, err := rows.ColumnTypes()
	if err != nil {
		return err
	}
	cols := make([]ColumnMeta, len(types))
	for i, t := range types {
		cols[i] = ColumnMeta{Name: t.Name(), DeclType: t.DatabaseTypeName()}
	}
	s.columns = cols
	s.learned = true
	return nil
}

// Columns returns the statement's known column metadata. Empty until
// QueryContext has run once.
func (s *Statement) Columns() []ColumnMeta { return s.columns }

// Close finalizes the underlying prepared statement.
func (s *Statement) Close() error {
	return s.Stmt.Close()
}
