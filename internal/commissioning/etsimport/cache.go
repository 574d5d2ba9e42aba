package etsimport

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang/snappy"

	"github.com/nerrad567/gray-logic-etsdecode/internal/infrastructure/database"
	_ "github.com/nerrad567/gray-logic-etsdecode/migrations" // cache schema
)

// Catalog snapshot encoding. Bump snapshotVersion whenever the JSON shape
// of Catalog changes; older rows are then ignored and rebuilt.
const (
	snapshotVersion  = 1
	snapshotEncoding = "snappy+json"
)

// CatalogCache stores one Catalog snapshot in a SQLite file inside the
// staging directory. A stored snapshot is valid for as long as the file
// exists; there is no staleness check.
type CatalogCache struct {
	db *database.DB
}

// OpenCatalogCache opens or creates the cache file and applies the schema.
//
// Parameters:
//   - ctx: Context for the migration
//   - cfg: Database configuration; cfg.Path is the cache file
//
// Returns:
//   - *CatalogCache: Open cache, to be closed by the caller
//   - error: If the file cannot be opened or migrated
func OpenCatalogCache(ctx context.Context, cfg database.Config) (*CatalogCache, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening catalog cache: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("migrating catalog cache: %w", err)
	}
	return &CatalogCache{db: db}, nil
}

// Close closes the cache file.
func (c *CatalogCache) Close() error {
	return c.db.Close()
}

// Load returns the stored Catalog.
//
// Returns:
//   - *Catalog: The cached catalog, nil on a miss
//   - bool: true on a hit
//   - error: If the row exists but cannot be read or decoded
func (c *CatalogCache) Load(ctx context.Context) (*Catalog, bool, error) {
	var (
		version  int
		encoding string
		payload  []byte
	)
	err := c.db.QueryRowContext(ctx,
		`SELECT format_version, encoding, payload FROM catalog_snapshots WHERE id = 1`,
	).Scan(&version, &encoding, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading catalog snapshot: %w", err)
	}

	if version != snapshotVersion || encoding != snapshotEncoding {
		return nil, false, nil
	}

	raw, err := snappy.Decode(nil, payload)
	if err != nil {
		return nil, false, fmt.Errorf("decompressing catalog snapshot: %w", err)
	}

	cat := newCatalog()
	if err := json.Unmarshal(raw, cat); err != nil {
		return nil, false, fmt.Errorf("decoding catalog snapshot: %w", err)
	}
	return cat, true, nil
}

// Store replaces the stored snapshot with cat.
func (c *CatalogCache) Store(ctx context.Context, cat *Catalog) error {
	raw, err := json.Marshal(cat)
	if err != nil {
		return fmt.Errorf("encoding catalog snapshot: %w", err)
	}

	_, err = c.db.ExecContext(ctx,
		`INSERT INTO catalog_snapshots (id, format_version, encoding, payload, created_at)
		 VALUES (1, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		     format_version = excluded.format_version,
		     encoding       = excluded.encoding,
		     payload        = excluded.payload,
		     created_at     = excluded.created_at`,
		snapshotVersion, snapshotEncoding, snappy.Encode(nil, raw),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("writing catalog snapshot: %w", err)
	}
	return nil
}
