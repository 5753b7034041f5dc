// Package storage is the firing journal: an append-only record of interval
// events that survives restarts.
//
// Drivers:
//   - "file": JSON Lines file, no external dependencies
//   - "sqlite": SQLite database (modernc.org/sqlite, pure Go)
package storage
