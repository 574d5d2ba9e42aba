package etsimport

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-etsdecode/internal/commissioning/archive"
	"github.com/nerrad567/gray-logic-etsdecode/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-etsdecode/internal/infrastructure/logging"
)

// DefaultCacheFile is the catalog cache file name inside a staging directory.
const DefaultCacheFile = "knx_master.db"

// Logger is the logging surface the decoder needs.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Options configures a Decoder.
type Options struct {
	// StagingRoot is the directory archives are staged under.
	StagingRoot string

	// CacheFile is the catalog cache file name. Empty means DefaultCacheFile.
	CacheFile string

	// WALMode and BusyTimeout (seconds) configure the cache database.
	WALMode     bool
	BusyTimeout int

	// Parallelism bounds concurrent application-program parsing.
	// 0 means one worker per CPU.
	Parallelism int

	// ProjectID and Installation select what to decode; see ProjectOptions.
	ProjectID    string
	Installation *int
}

// Result is the outcome of one successful decode.
type Result struct {
	// DecodeID correlates log lines and published records of this run.
	DecodeID string

	StagingDir string
	Project    *Project
	Catalog    *Catalog

	// CacheHit is true when the Catalog came from the cache file.
	CacheHit bool
	Duration time.Duration
	Warnings []Warning
}

// Decoder runs the full pipeline: stage, build or load the catalog, then
// decode the project.
//
// A Decoder holds no per-archive state. Concurrent decodes of different
// archives are fine; concurrent decodes of the same archive path share a
// staging directory and must be avoided by the caller.
type Decoder struct {
	opts   Options
	logger Logger
}

// NewDecoder creates a Decoder.
func NewDecoder(opts Options, logger Logger) *Decoder {
	if opts.CacheFile == "" {
		opts.CacheFile = DefaultCacheFile
	}
	return &Decoder{
		opts:   opts,
		logger: logger,
	}
}

// Decode decodes the archive at archivePath.
//
// Any failure aborts the decode; there is no partial result. The
// passphrase is used for decryption only and is never logged or stored.
//
// Parameters:
//   - ctx: Checked between staging steps and program files
//   - archivePath: Path to the .knxproj file
//   - password: Project passphrase; empty for unprotected projects
//
// Returns:
//   - *Result: Project, Catalog and run metadata
//   - error: Wraps one of the package's sentinel errors
func (d *Decoder) Decode(ctx context.Context, archivePath, password string) (*Result, error) {
	start := time.Now()
	res := &Result{DecodeID: uuid.NewString()}
	log := withDecodeID(d.logger, res.DecodeID)

	log.Info("decode started", "archive", filepath.Base(archivePath))

	dir, err := archive.NewStager(d.opts.StagingRoot, log).Stage(ctx, archivePath, password)
	if err != nil {
		return nil, fmt.Errorf("staging archive: %w", err)
	}
	res.StagingDir = dir

	cat, hit, err := d.loadCatalog(ctx, dir, log)
	if err != nil {
		return nil, err
	}
	res.Catalog = cat
	res.CacheHit = hit

	proj, warnings, err := BuildProject(dir, cat, ProjectOptions{
		ProjectID:    d.opts.ProjectID,
		Installation: d.opts.Installation,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("decoding project: %w", err)
	}
	res.Project = proj
	res.Warnings = warnings
	res.Duration = time.Since(start)

	log.Info("decode finished",
		"project_id", proj.ID,
		"cache_hit", hit,
		"duration", res.Duration,
	)
	return res, nil
}

// LoadCatalog returns the Catalog of a staged directory, from the cache
// file when it holds a snapshot, otherwise by building and storing one.
//
// Returns:
//   - *Catalog: The catalog
//   - bool: true if it came from the cache
//   - error: If the cache cannot be opened or the build fails
func (d *Decoder) LoadCatalog(ctx context.Context, stagedDir string) (*Catalog, bool, error) {
	return d.loadCatalog(ctx, stagedDir, d.logger)
}

func (d *Decoder) loadCatalog(ctx context.Context, stagedDir string, log Logger) (*Catalog, bool, error) {
	cache, err := OpenCatalogCache(ctx, database.Config{
		Path:        filepath.Join(stagedDir, d.opts.CacheFile),
		WALMode:     d.opts.WALMode,
		BusyTimeout: d.opts.BusyTimeout,
	})
	if err != nil {
		return nil, false, err
	}
	defer cache.Close() //nolint:errcheck // Read-mostly handle

	cat, hit, err := cache.Load(ctx)
	if err != nil {
		// The snapshot is derived data; rebuild rather than fail.
		log.Warn("catalog cache unreadable, rebuilding", "error", err)
	}
	if hit {
		log.Debug("catalog cache hit", "dir", stagedDir)
		return cat, true, nil
	}

	log.Debug("catalog cache miss", "dir", stagedDir)
	cat, err = NewCatalogBuilder(d.opts.Parallelism, log).Build(ctx, stagedDir)
	if err != nil {
		return nil, false, fmt.Errorf("building catalog: %w", err)
	}
	if err := cache.Store(ctx, cat); err != nil {
		return nil, false, err
	}

	stats := cat.Stats()
	log.Info("catalog built",
		"datapoints", stats.Datapoints,
		"products", stats.Products,
		"hardware2programs", stats.Hardware2Programs,
		"com_objects", stats.ComObjects,
	)
	return cat, false, nil
}

// withDecodeID attaches the decode ID to every record for the loggers
// that support attributes.
func withDecodeID(l Logger, id string) Logger {
	switch v := l.(type) {
	case *logging.Logger:
		return v.With("decode_id", id)
	case *slog.Logger:
		return v.With("decode_id", id)
	default:
		return l
	}
}
