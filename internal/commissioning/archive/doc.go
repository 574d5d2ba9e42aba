// Package archive stages ETS project archives (.knxproj) on disk.
//
// An ETS archive is a ZIP container holding the KNX master data, one
// directory per manufacturer, and one nested ZIP per project which is
// usually password protected (AES or ZipCrypto). Staging extracts the outer
// container into a directory named after the archive, then walks the tree:
//
//   - *.signature and *.certificate files are removed
//   - .DS_Store, Catalog.xml and Baggages.xml are removed
//   - any Baggages directory is removed
//   - every nested *.zip is extracted next to itself and then removed
//
// Staging is idempotent. When the destination directory already exists the
// outer container is not extracted again, and nested containers that were
// already expanded are gone, so a second run finds nothing to do.
//
// # Passphrases
//
// ETS5 archives are encrypted with the passphrase as typed. ETS6 archives
// use a derived key: base64(PBKDF2-HMAC-SHA256(UTF-16LE(passphrase),
// "21.project.ets.knx.org", 65536 rounds, 32 bytes)). The stager tries the
// raw passphrase first and falls back to the derived one.
//
// # Usage
//
//	stager := archive.NewStager("/var/lib/graylogic/ets", logger)
//	dir, err := stager.Stage(ctx, "Office.knxproj", password)
//	if errors.Is(err, archive.ErrDecryptionFailed) {
//	    // ask for the passphrase again
//	}
package archive
