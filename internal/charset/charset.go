// Package charset builds and sanitizes the byte alphabets bruteforce
// sessions enumerate over. Candidates are raw bytes, not runes: ZipCrypto
// operates on byte streams and the legacy format has no notion of Unicode
// normalization, so treating the alphabet as []byte keeps the charset in
// the same domain as the cipher it feeds.
//
// Grounded on the teacher's internal/charset package (same named presets),
// generalized from []rune to []byte, and on
// original_source/lib/zc_crk_bforce.c's sanitize_set for Sanitize.
package charset

import (
	"errors"
	"sort"
)

// ErrEmptySet is returned by Sanitize when the resulting charset is empty.
var ErrEmptySet = errors.New("charset: sanitized set is empty")

// Lowercase returns ASCII letters a-z.
func Lowercase() []byte {
	out := make([]byte, 0, 26)
	for c := byte('a'); c <= 'z'; c++ {
		out = append(out, c)
	}
	return out
}

// Uppercase returns ASCII letters A-Z.
func Uppercase() []byte {
	out := make([]byte, 0, 26)
	for c := byte('A'); c <= 'Z'; c++ {
		out = append(out, c)
	}
	return out
}

// Digits returns ASCII digits 0-9.
func Digits() []byte {
	out := make([]byte, 0, 10)
	for c := byte('0'); c <= '9'; c++ {
		out = append(out, c)
	}
	return out
}

// SpecialCommon returns a small, common set of special characters.
func SpecialCommon() []byte {
	return []byte("!@#$%^&*_-")
}

// SpecialAll returns the full range of printable ASCII punctuation.
func SpecialAll() []byte {
	out := make([]byte, 0, 32)
	for c := byte(33); c <= 126; c++ {
		if isAlnum(c) || c == ' ' {
			continue
		}
		out = append(out, c)
	}
	return out
}

func isAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// Combine merges multiple byte sets into one, preserving first-seen order.
func Combine(sets ...[]byte) []byte {
	seen := make(map[byte]bool, 256)
	out := make([]byte, 0, 256)
	for _, s := range sets {
		for _, c := range s {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}

// Sanitize sorts and deduplicates a charset, rejecting it if it ends up
// empty. Mirrors sanitize_set, which a bruteforce session runs on any
// charset before using it (whether user-supplied or built from the
// presets above).
func Sanitize(set []byte) ([]byte, error) {
	cp := append([]byte(nil), set...)
	sort.Slice(cp, func(i, j int) bool { return cp[i] < cp[j] })

	j := 0
	for i := 1; i < len(cp); i++ {
		if cp[i] != cp[j] {
			j++
			cp[j] = cp[i]
		}
	}
	if len(cp) > 0 {
		cp = cp[:j+1]
	}
	if len(cp) == 0 {
		return nil, ErrEmptySet
	}
	return cp, nil
}
