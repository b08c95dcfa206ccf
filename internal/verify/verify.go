// Package verify defines the full password-confirmation contract shared
// by the bruteforce and dictionary sessions: once a
// candidate's key triple passes the cheap header-magic filter, a Verifier
// decrypts the entry's compressed payload and inflates it, checking the
// result's CRC32 -- the only way to rule out the rare magic-byte
// collision a 1-in-256 check lets through.
package verify

import "zipcrack/internal/cipher"

// Verifier confirms a full password candidate.
type Verifier interface {
	Verify(keys cipher.Keys) bool
}
