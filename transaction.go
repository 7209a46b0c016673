// Copyright (c) 2025, the sqlitex contributors.
// SPDX-License-Identifier: MIT

package sqlitex

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Transaction is one nesting level of the transaction stack: the
// outermost Begin issues BEGIN, each nested Begin issues a SAVEPOINT,
// and Commit/Rollback unwind exactly one level.
//
// A Transaction left open when it goes out of scope without an
// explicit Commit is a caller bug this package can still make safe:
// Drop rolls it back. Go has no destructors, so callers are expected to
// `defer tx.Drop(ctx)` immediately after a successful Begin.
type Transaction struct {
	conn  *Connection
	depth int
	open  bool
}

// Execute runs a statement within this transaction's nesting level.
func (tx *Transaction) Execute(ctx context.Context, sql string, args *Arguments) (ExecResult, error) {
	return tx.conn.Execute(ctx, sql, args)
}

// Fetch runs a query within this transaction's nesting level.
func (tx *Transaction) Fetch(ctx context.Context, sql string, args *Arguments) (*RowIterator, error) {
	return tx.conn.Fetch(ctx, sql, args)
}

func (tx *Transaction) FetchOne(ctx context.Context, sql string, args *Arguments) (Row, error) {
	return tx.conn.FetchOne(ctx, sql, args)
}

func (tx *Transaction) FetchAll(ctx context.Context, sql string, args *Arguments) ([]Row, error) {
	return tx.conn.FetchAll(ctx, sql, args)
}

// Begin opens a further nested SAVEPOINT.
func (tx *Transaction) Begin(ctx context.Context) (*Transaction, error) {
	return tx.conn.Begin(ctx)
}

// Depth reports this transaction's nesting depth (1 for the outermost
// BEGIN, N for a SAVEPOINT nested N-1 deep inside it).
func (tx *Transaction) Depth() int { return tx.depth }

// Commit releases this nesting level. After Commit, the Transaction is
// no longer open and Drop becomes a no-op.
func (tx *Transaction) Commit(ctx context.Context) error {
	if !tx.open {
		return nil
	}
	err := tx.conn.w.Commit(ctx)
	if err == nil {
		tx.open = false
	}
	return translateErr(err)
}

// Rollback unwinds this nesting level explicitly.
func (tx *Transaction) Rollback(ctx context.Context) error {
	if !tx.open {
		return nil
	}
	err := tx.conn.w.Rollback(ctx)
	tx.open = false
	return translateErr(err)
}

// Drop rolls back the transaction if it is still open, the explicit
// stand-in for Rust's Drop-triggered rollback. Call it via defer
// immediately after Begin succeeds:
//
//	tx, err := conn.Begin(ctx)
//	if err != nil { return err }
//	defer tx.Drop(ctx)
//	...
//	return tx.Commit(ctx)
func (tx *Transaction) Drop(ctx context.Context) {
	if !tx.open {
		return
	}
	if err := tx.Rollback(ctx); err != nil {
		log.Warn().Err(err).Int("depth", tx.depth).Msg("sqlitex: rollback of abandoned transaction failed")
	}
}
