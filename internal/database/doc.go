// Package database keeps the catalog scan history in SQLite.
//
// Every scan the scheduler runs, successful or not, is appended with its
// trigger, duration, resulting generation and counts. The history backs the
// /api/scans endpoint and survives restarts; the catalog itself is never
// persisted and is always rebuilt from disk.
//
// The database uses WAL mode so the HTTP handlers can read history while
// the scheduler writes.
package database
