// Package database provides the SQLite store that backs the catalog cache
// artifact written next to each staged ETS archive.
//
// This package manages:
//   - Opening the cache file with busy timeout and optional WAL mode
//   - Schema migrations embedded in the binary
//   - Transaction helpers used when the cache is rewritten
//
// Each staged archive gets its own database file, so the pool is pinned to
// a single connection and the file is restricted to its owner (0600).
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cachePath, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql with an
// optional matching .down.sql, and are applied oldest first.
package database
