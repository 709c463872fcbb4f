// Package store is the SQLite-backed Executor.
//
// Each user table holds one row per record: an INTEGER PRIMARY KEY and the
// document as canonical JSON text. Tables are created on first use, so a
// lookup on a table nobody wrote to returns no rows. Field declarations from
// DEFINE statements live in the docrow_fields catalog.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON
//
// Two drivers are supported: "sqlite3" (mattn/go-sqlite3, cgo, the default)
// and "sqlite" (modernc.org/sqlite, pure Go).
//
// Only numeric record ids are addressable; string and UUID ids are rejected
// with sqlgen.ErrUnsupportedID.
package store
