package archive

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"unicode/utf16"

	"golang.org/x/crypto/pbkdf2"
)

const (
	ets6Salt       = "21.project.ets.knx.org"
	ets6Iterations = 65536
	ets6KeyLength  = 32
)

// DerivePassword returns the key ETS6 uses to encrypt project containers
// for the passphrase the user typed.
func DerivePassword(password string) string {
	units := utf16.Encode([]rune(password))
	raw := make([]byte, 2*len(units))
	for i, u := range units {
		binary.LittleEndian.PutUint16(raw[2*i:], u)
	}

	key := pbkdf2.Key(raw, []byte(ets6Salt), ets6Iterations, ets6KeyLength, sha256.New)
	return base64.StdEncoding.EncodeToString(key)
}

// passwordCandidates lists the passphrases to try, in order.
func passwordCandidates(password string) []string {
	if password == "" {
		return []string{""}
	}
	return []string{password, DerivePassword(password)}
}
