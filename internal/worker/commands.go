// Copyright (c) 2025, the sqlitex contributors.
// SPDX-License-Identifier: MIT

// Package worker implements the connection worker: a goroutine that
// owns one driver.Handle exclusively and serializes every operation
// against it through a command queue, so no two goroutines ever touch
// the underlying engine connection concurrently.
//
// This package deliberately knows nothing about the root sqlitex
// package's Value/Row/Arguments types — it speaks in database/sql's
// native Go values (int64, float64, string, []byte, nil) so the root
// package can sit on top of it without an import cycle. The root
// package's connection.go is the seam that translates between the two.
package worker

import "github.com/wyre-dev/sqlitex/internal/driver"

// ExecResult is the outcome of a non-row-returning statement.
type ExecResult struct {
	LastInsertRowID int64
	RowsAffected    int64
}

// RawRow is one result row in database/sql's native value space,
// alongside the column metadata the statement learned while stepping.
type RawRow struct {
	Columns []driver.ColumnMeta
	Values  []any
}
