// Copyright (c) 2025, the sqlitex contributors.
// SPDX-License-Identifier: MIT

package sqlitex

import "fmt"

// OpenFlag configures how Connect opens the underlying database file,
// mirroring SQLite's own SQLITE_OPEN_* flag groups.
type OpenFlag int

const (
	OpenReadWrite OpenFlag = iota
	OpenReadOnly
	OpenReadWriteCreate
)

// ConnectOptions configures a single physical connection. Built with
// functional options, the same pattern the pool's own Options (see
// pool/options.go) uses.
type ConnectOptions struct {
	OpenFlag     OpenFlag
	BusyTimeoutMS int
	ForeignKeys  bool
	JournalMode  string
	SynchronousMode string
	CacheCapacity int
	ExtraPragmas []string
}

// DefaultConnectOptions returns recommended defaults: WAL journaling,
// foreign keys enforced, a generous busy timeout so SQLITE_BUSY is rare
// in single-writer workloads, and a NORMAL sync mode (safe under WAL).
func DefaultConnectOptions() ConnectOptions {
	return ConnectOptions{
		OpenFlag:        OpenReadWriteCreate,
		BusyTimeoutMS:   5000,
		ForeignKeys:     true,
		JournalMode:     "WAL",
		SynchronousMode: "NORMAL",
		CacheCapacity:   0,
	}
}

type ConnectOption func(*ConnectOptions)

func WithReadOnly() ConnectOption {
	return func(o *ConnectOptions) { o.OpenFlag = OpenReadOnly }
}

func WithBusyTimeout(ms int) ConnectOption {
	return func(o *ConnectOptions) { o.BusyTimeoutMS = ms }
}

func WithForeignKeys(enabled bool) ConnectOption {
	return func(o *ConnectOptions) { o.ForeignKeys = enabled }
}

func WithJournalMode(mode string) ConnectOption {
	return func(o *ConnectOptions) { o.JournalMode = mode }
}

func WithSynchronous(mode string) ConnectOption {
	return func(o *ConnectOptions) { o.SynchronousMode = mode }
}

func WithStatementCacheCapacity(n int) ConnectOption {
	return func(o *ConnectOptions) { o.CacheCapacity = n }
}

// WithPragma appends a raw PRAGMA statement applied at connect time,
// after the structured options above.
func WithPragma(pragma string) ConnectOption {
	return func(o *ConnectOptions) { o.ExtraPragmas = append(o.ExtraPragmas, pragma) }
}

// pragmas renders the configured options into the PRAGMA statements
// applied once, immediately after opening the dedicated connection.
func (o ConnectOptions) pragmas() []string {
	stmts := []string{fmt.Sprintf("PRAGMA busy_timeout = %d", o.BusyTimeoutMS)}
	if o.JournalMode != "" {
		stmts = append(stmts, fmt.Sprintf("PRAGMA journal_mode = %s", o.JournalMode))
	}
	if o.SynchronousMode != "" {
		stmts = append(stmts, fmt.Sprintf("PRAGMA synchronous = %s", o.SynchronousMode))
	}
	if o.ForeignKeys {
		stmts = append(stmts, "PRAGMA foreign_keys = ON")
	}
	stmts = append(stmts, o.ExtraPragmas...)
	return stmts
}

// dsn renders path plus open-flag query parameters into the DSN
// modernc.org/sqlite's database/sql driver accepts.
func (o ConnectOptions) dsn(path string) string {
	switch o.OpenFlag {
	case OpenReadOnly:
		return fmt.Sprintf("file:%s?mode=ro", path)
	default:
		return path
	}
}
