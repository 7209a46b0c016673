// Copyright (c) 2025, the sqlitex contributors.
// SPDX-License-Identifier: MIT

package driver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	msqlite "modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"
)

// Handle is the foreign handle wrapper: a single dedicated *sql.Conn
// pulled from a MaxOpenConns(1) *sql.DB, giving exclusive ownership of
// one physical SQLite connection to whichever goroutine calls Handle's
// methods. It never opens a second connection and never returns the
// underlying sql.Conn to a pool other callers can draw from.
type Handle struct {
	path string
	db   *sql.DB
	conn *sql.Conn
}

// Open dials a dedicated single-connection *sql.DB against path (a
// file path or a "file:" URI, including ":memory:" / "file::memory:"),
// pulls its one permitted connection, and applies pragmas.
func Open(ctx context.Context, path string, pragmas []string) (*Handle, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite connection: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("acquiring dedicated connection: %w", err)
	}
	h := &Handle{path: path, db: db, conn: conn}
	for _, p := range pragmas {
		if _, err := conn.ExecContext(ctx, p); err != nil {
			h.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", p, err)
		}
	}
	log.Debug().Str("path", path).Msg("sqlitex: connection opened")
	return h, nil
}

// ExecContext runs a non-row-returning statement.
func (h *Handle) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return h.conn.ExecContext(ctx, query, args...)
}

// PrepareContext prepares query against the dedicated connection.
func (h *Handle) PrepareContext(ctx context.Context, query string) (*sql.Stmt, error) {
	return h.conn.PrepareContext(ctx, query)
}

// Ping verifies the connection is still usable.
func (h *Handle) Ping(ctx context.Context) error {
	return h.conn.PingContext(ctx)
}

// Close releases the dedicated connection and the underlying *sql.DB.
// A failure here indicates the engine refused to close a handle with
// outstanding unfinalized statements or an open transaction — a
// programming bug in this package, not a condition callers can
// meaningfully recover from, so Close panics rather than returning an
// error it expects nobody to check.
func (h *Handle) Close() {
	connErr := h.conn.Close()
	dbErr := h.db.Close()
	if err := errors.Join(connErr, dbErr); err != nil {
		panic(fmt.Sprintf("sqlitex: failed to close connection handle: %v", err))
	}
	log.Debug().Str("path", h.path).Msg("sqlitex: connection closed")
}

// ClassifyError extracts the SQLite primary/extended result codes from
// an error returned by modernc.org/sqlite, when it carries one.
func ClassifyError(err error) (primary, extended int, message string, ok bool) {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code & 0xff, code, sqliteErr.Error(), true
	}
	return 0, 0, "", false
}

// IsLocked reports whether err is a SQLITE_LOCKED / SQLITE_LOCKED_SHAREDCACHE
// result, the condition the unlock-notify retry loop in
// internal/worker watches for.
func IsLocked(err error) bool {
	primary, _, _, ok := ClassifyError(err)
	if !ok {
		return false
	}
	return primary == sqlitelib.SQLITE_LOCKED
}

// IsBusy reports a SQLITE_BUSY result, retried with the engine's own
// busy_timeout rather than the unlock-notify path.
func IsBusy(err error) bool {
	primary, _, _, ok := ClassifyError(err)
	if !ok {
		return false
	}
	return primary == sqlitelib.SQLITE_BUSY
}
