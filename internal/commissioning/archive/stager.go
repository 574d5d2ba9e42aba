package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Logger is the logging surface the stager needs.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
}

// Members removed during staging.
var (
	prunedExtensions = map[string]bool{
		".signature":   true,
		".certificate": true,
	}
	prunedNames = map[string]bool{
		".DS_Store":    true,
		"Catalog.xml":  true,
		"Baggages.xml": true,
	}
)

const (
	baggagesDir = "Baggages"

	// scratchPrefix names the temporary directories nested containers are
	// extracted into. Leftovers from an interrupted run are removed.
	scratchPrefix = ".staging-"
)

// Stager extracts archives under a root directory.
//
// A single Stager may be shared, but two Stage calls for the same archive
// path must not run concurrently: both would write the same directory.
type Stager struct {
	root   string
	logger Logger
}

// NewStager returns a Stager that stages archives under root.
func NewStager(root string, logger Logger) *Stager {
	return &Stager{root: root, logger: logger}
}

// Destination returns the staging directory for archivePath:
// root/<archive base name without extension>.
func (s *Stager) Destination(archivePath string) string {
	base := filepath.Base(archivePath)
	return filepath.Join(s.root, strings.TrimSuffix(base, filepath.Ext(base)))
}

// Stage extracts archivePath (if not already staged), prunes it and
// expands every nested container with password.
//
// Parameters:
//   - ctx: Checked between members; cancellation aborts staging
//   - archivePath: Path to the .knxproj file
//   - password: Project passphrase, or "" for unprotected projects
//
// Returns:
//   - string: The staging directory
//   - error: ErrArchiveNotFound, ErrDecryptionFailed or ErrMalformedArchive
//     (wrapped), or an I/O error
func (s *Stager) Stage(ctx context.Context, archivePath, password string) (string, error) {
	dest := s.Destination(archivePath)

	if _, err := os.Stat(dest); errors.Is(err, os.ErrNotExist) {
		if _, err := os.Stat(archivePath); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return "", fmt.Errorf("%w: %s", ErrArchiveNotFound, archivePath)
			}
			return "", fmt.Errorf("checking archive: %w", err)
		}

		if err := s.extractOuter(archivePath, dest); err != nil {
			return "", fmt.Errorf("extracting archive: %w", err)
		}
		s.logger.Info("archive extracted", "archive", archivePath, "dir", dest)
	} else if err != nil {
		return "", fmt.Errorf("checking staging directory: %w", err)
	} else {
		s.logger.Debug("archive already staged", "dir", dest)
	}

	if err := s.walk(ctx, dest, password); err != nil {
		return "", err
	}
	return dest, nil
}

// extractOuter expands the outer container through a scratch directory, so
// dest only ever appears complete. An interrupted run therefore never
// leaves a half-extracted dest that a retry would mistake for staged.
func (s *Stager) extractOuter(archivePath, dest string) error {
	if err := os.MkdirAll(s.root, dirPermissions); err != nil {
		return fmt.Errorf("creating staging root: %w", err)
	}
	scratch, err := os.MkdirTemp(s.root, scratchPrefix)
	if err != nil {
		return fmt.Errorf("creating scratch directory: %w", err)
	}

	if err := extractZip(archivePath, scratch, ""); err != nil {
		_ = os.RemoveAll(scratch) //nolint:errcheck // Best effort cleanup
		return err
	}
	if err := os.Rename(scratch, dest); err != nil {
		_ = os.RemoveAll(scratch) //nolint:errcheck // Best effort cleanup
		return fmt.Errorf("moving into %s: %w", dest, err)
	}
	return nil
}

// walk prunes dir and expands nested containers, depth first.
// Later steps read what earlier ones extracted, so this stays sequential.
func (s *Stager) walk(ctx context.Context, dir, password string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", dir, err)
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("staging cancelled: %w", err)
		}

		name := entry.Name()
		path := filepath.Join(dir, name)

		if entry.IsDir() {
			if name == baggagesDir || strings.HasPrefix(name, scratchPrefix) {
				if err := os.RemoveAll(path); err != nil {
					return fmt.Errorf("pruning %s: %w", path, err)
				}
				continue
			}
			if err := s.walk(ctx, path, password); err != nil {
				return err
			}
			continue
		}

		switch {
		case prunedNames[name], prunedExtensions[filepath.Ext(name)]:
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("pruning %s: %w", path, err)
			}
		case strings.EqualFold(filepath.Ext(name), ".zip"):
			target, err := s.expandNested(path, password)
			if err != nil {
				return err
			}
			if err := s.walk(ctx, target, password); err != nil {
				return err
			}
		}
	}
	return nil
}

// expandNested extracts a nested container into a sibling directory named
// after it and removes the container. Members are first written to a
// scratch directory so a failed attempt leaves nothing behind.
func (s *Stager) expandNested(path, password string) (string, error) {
	target := strings.TrimSuffix(path, filepath.Ext(path))

	var lastErr error
	for i, candidate := range passwordCandidates(password) {
		scratch, err := os.MkdirTemp(filepath.Dir(path), scratchPrefix)
		if err != nil {
			return "", fmt.Errorf("creating scratch directory: %w", err)
		}

		err = extractZip(path, scratch, candidate)
		if err == nil {
			err = mergeDir(scratch, target)
		}
		_ = os.RemoveAll(scratch) //nolint:errcheck // Scratch is empty after a merge

		if err == nil {
			if err := os.Remove(path); err != nil {
				return "", fmt.Errorf("removing %s: %w", path, err)
			}
			s.logger.Info("nested container extracted",
				"container", filepath.Base(path),
				"derived_passphrase", i > 0,
			)
			return target, nil
		}

		// Only a wrong key is worth another candidate.
		lastErr = err
		if !errors.Is(err, ErrDecryptionFailed) {
			break
		}
		s.logger.Debug("passphrase candidate rejected", "container", filepath.Base(path), "candidate", i)
	}

	return "", fmt.Errorf("extracting %s: %w", filepath.Base(path), lastErr)
}

// mergeDir moves the contents of src into dst, descending into directories
// present in both. Files in src replace files in dst.
func mergeDir(src, dst string) error {
	if _, err := os.Stat(dst); errors.Is(err, os.ErrNotExist) {
		return os.Rename(src, dst)
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("reading %s: %w", src, err)
	}
	for _, entry := range entries {
		from := filepath.Join(src, entry.Name())
		to := filepath.Join(dst, entry.Name())

		info, err := os.Stat(to)
		switch {
		case errors.Is(err, os.ErrNotExist):
			err = os.Rename(from, to)
		case err != nil:
		case entry.IsDir() && info.IsDir():
			err = mergeDir(from, to)
		default:
			if err = os.RemoveAll(to); err == nil {
				err = os.Rename(from, to)
			}
		}
		if err != nil {
			return fmt.Errorf("moving %s: %w", entry.Name(), err)
		}
	}
	return nil
}
