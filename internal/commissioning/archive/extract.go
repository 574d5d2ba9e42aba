package archive

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/yeka/zip"
)

const (
	// MaxMemberSize caps a single extracted member. Application program
	// files of large manufacturers run to a few hundred MB.
	MaxMemberSize = 512 << 20

	dirPermissions  = 0750
	filePermissions = 0640
)

// extractZip expands the container at src into dest. Encrypted members
// are opened with password.
func extractZip(src, dest, password string) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("%w: opening %s: %w", ErrMalformedArchive, filepath.Base(src), err)
	}
	defer r.Close()

	if err := os.MkdirAll(dest, dirPermissions); err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}

	for _, f := range r.File {
		if err := extractMember(f, dest, password); err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(src), err)
		}
	}
	return nil
}

func extractMember(f *zip.File, dest, password string) error {
	target, err := memberPath(dest, f.Name)
	if err != nil {
		return err
	}

	if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
		return os.MkdirAll(target, dirPermissions)
	}
	if f.UncompressedSize64 > MaxMemberSize {
		return fmt.Errorf("%w: %s is %d bytes, limit %d", ErrMalformedArchive, f.Name, f.UncompressedSize64, MaxMemberSize)
	}
	if err := os.MkdirAll(filepath.Dir(target), dirPermissions); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(target), err)
	}

	encrypted := f.IsEncrypted()
	if encrypted {
		if password == "" {
			return fmt.Errorf("%w: %s is encrypted and no passphrase was given", ErrDecryptionFailed, f.Name)
		}
		f.SetPassword(password)
	}

	rc, err := f.Open()
	if err != nil {
		return memberError(f.Name, encrypted, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, filePermissions)
	if err != nil {
		return fmt.Errorf("creating %s: %w", target, err)
	}

	// One byte over the limit tells a lying header from an exact fit.
	n, copyErr := io.Copy(out, io.LimitReader(rc, MaxMemberSize+1))
	closeErr := out.Close()
	if copyErr != nil {
		return memberError(f.Name, encrypted, copyErr)
	}
	if n > MaxMemberSize {
		return fmt.Errorf("%w: %s exceeds %d bytes", ErrMalformedArchive, f.Name, MaxMemberSize)
	}
	if closeErr != nil {
		return fmt.Errorf("writing %s: %w", target, closeErr)
	}
	return nil
}

// memberError classifies a read failure. For encrypted members a wrong key
// surfaces either as a password check failure on Open or as an
// authentication/checksum failure while reading, so both count as
// decryption failures.
func memberError(name string, encrypted bool, err error) error {
	if encrypted {
		return fmt.Errorf("%w: %s: %w", ErrDecryptionFailed, name, err)
	}
	if errors.Is(err, zip.ErrChecksum) || errors.Is(err, zip.ErrFormat) || errors.Is(err, zip.ErrAlgorithm) {
		return fmt.Errorf("%w: %s: %w", ErrMalformedArchive, name, err)
	}
	return fmt.Errorf("reading %s: %w", name, err)
}

// memberPath joins name onto dest, rejecting names that would escape it.
func memberPath(dest, name string) (string, error) {
	clean := filepath.FromSlash(name)
	if filepath.IsAbs(clean) || strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("%w: absolute entry name %q", ErrMalformedArchive, name)
	}

	target := filepath.Join(dest, clean)
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: entry %q escapes the staging directory", ErrMalformedArchive, name)
	}
	return target, nil
}
