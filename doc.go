// Copyright (c) 2025, the sqlitex contributors.
// SPDX-License-Identifier: MIT

// Package sqlitex is an async-friendly SQLite access layer built on a
// dedicated connection worker goroutine per connection, a bounded
// prepared-statement cache, and a typed row/value codec.
//
// A Connection owns exactly one physical SQLite connection and
// serializes every operation issued against it through its worker
// goroutine. Connect opens one directly; Pool (in the pool
// subpackage) manages a bounded set of them for concurrent callers.
package sqlitex
