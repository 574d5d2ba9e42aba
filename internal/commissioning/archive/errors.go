package archive

import "errors"

// Sentinel errors for staging.
var (
	// ErrArchiveNotFound indicates the archive path does not exist.
	ErrArchiveNotFound = errors.New("archive not found")

	// ErrDecryptionFailed indicates a nested container could not be
	// decrypted with any passphrase candidate.
	ErrDecryptionFailed = errors.New("archive decryption failed")

	// ErrMalformedArchive indicates a container is unreadable, holds an
	// entry escaping the staging directory, or exceeds the size limits.
	ErrMalformedArchive = errors.New("malformed archive")
)
