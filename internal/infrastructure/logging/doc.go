// Package logging provides structured logging for the ETS decoder.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the decode pipeline.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for development (human-readable)
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//   - Thread-safe for concurrent use
//
// # Configuration
//
// Logging is configured via the LoggingConfig in the YAML config:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stderr"   # stdout, stderr
//
// Output defaults to stderr so that decoded projects printed on stdout
// stay machine-readable.
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("archive staged", "dir", dir)
//	logger.Error("decode failed", "error", err)
//
// # Security
//
// Never log the archive passphrase, broker passwords, or API tokens.
package logging
