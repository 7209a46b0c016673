// Copyright (c) 2025, the sqlitex contributors.
// SPDX-License-Identifier: MIT

package driver

import (
	"context"
	"errors"
)

// CompoundStatement is the prepared form of one SQL text containing one
// or more ';'-separated statements: a cursor over a chain of inner
// prepared statements, advanced one at a time as the caller steps
// through a multi-statement script.
type CompoundStatement struct {
	handle   *Handle
	source   string
	segments []string
	stmts    []*Statement
	index    int
}

// NewCompoundStatement splits source into its top-level statements
// without preparing any of them; preparation is lazy, one segment at a
// time, via Current and Advance.
func NewCompoundStatement(handle *Handle, source string) (*CompoundStatement, error) {
	segments := SplitStatements(source)
	if len(segments) == 0 {
		return nil, errors.New("sqlitex: empty SQL text has no statements to prepare")
	}
	return &CompoundStatement{
		handle:   handle,
		source:   source,
		segments: segments,
		stmts:    make([]*Statement, len(segments)),
	}, nil
}

// Len reports the number of inner statements.
func (c *CompoundStatement) Len() int { return len(c.segments) }

// Current returns the statement at the cursor without advancing it,
// preparing it on first access.
func (c *CompoundStatement) Current(ctx context.Context) (*Statement, error) {
	return c.prepareAt(ctx, c.index)
}

// HasNext reports whether another inner statement follows the cursor.
func (c *CompoundStatement) HasNext() bool {
	return c.index < len(c.segments)-1
}

// Advance moves the cursor to the next inner statement and prepares it,
// returning io.EOF-shaped false when the chain is exhausted.
func (c *CompoundStatement) Advance(ctx context.Context) (*Statement, bool, error) {
	if !c.HasNext() {
		return nil, false, nil
	}
	c.index++
	stmt, err := c.prepareAt(ctx, c.index)
	if err != nil {
		return nil, false, err
	}
	return stmt, true, nil
}

func (c *CompoundStatement) prepareAt(ctx context.Context, i int) (*Statement, error) {
	if c.stmts[i] != nil {
		return c.stmts[i], nil
	}
	raw, err := c.handle.PrepareContext(ctx, c.segments[i])
	if err != nil {
		return nil, err
	}
	s := &Statement{Text: c.segments[i], Stmt: raw}
	c.stmts[i] = s
	return s, nil
}

// Reset rewinds the cursor to the first inner statement. database/sql
// statements are already safe to reuse with fresh arguments, so unlike
// the raw sqlite3_reset/sqlite3_clear_bindings pair this wraps, the
// only stateful effect left to apply here is the cursor itself.
func (c *CompoundStatement) Reset(_ context.Context) error {
	c.index = 0
	return nil
}

// Close finalizes every inner statement that has been prepared so far,
// attempting all of them and returning the first error encountered
// rather than stopping at the first failure.
func (c *CompoundStatement) Close() error {
	var firstErr error
	for _, s := range c.stmts {
		if s == nil {
			continue
		}
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
