// Package dict implements the dictionary attack: read candidate passwords
// line by line from a wordlist, filter each with the cheap header-magic
// check, and confirm survivors with a full decrypt + inflate verification.
//
// Grounded on original_source/lib/dict.c's zc_crk_dict_start/test_password
// (read-filter-confirm loop, trailing-newline stripping). The original
// reads straight off a FILE* with no deduplication; wordlists in practice
// carry repeats (case variants, multiple sources concatenated), so this
// port adds an adaptive-radix-tree set -- in the same role
// original_source/lib/ka.c's sorted array serves key2reduce's candidate
// sets -- to skip repeats before they reach the (much costlier) cipher
// test.
package dict

import (
	"bufio"
	"context"
	"errors"
	"io"
	"sync/atomic"

	art "github.com/plar/go-adaptive-radix-tree/v2"

	"zipcrack/internal/cipher"
	"zipcrack/internal/verify"
)

// ErrNotFound is returned when the wordlist is exhausted without a match.
var ErrNotFound = errors.New("dict: no password in the wordlist matched")

// Run reads candidate passwords from r, one per line, testing each
// against vdata and -- on a magic match -- verifier. It returns the first
// verified password, or ErrNotFound if r is exhausted first. progress,
// when non-nil, is incremented once per non-duplicate line tested.
func Run(ctx context.Context, r io.Reader, vdata []cipher.ValidationData, verifier verify.Verifier, progress *atomic.Uint64) ([]byte, error) {
	seen := art.New()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		line := stripNewline(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if _, dup := seen.Search(art.Key(line)); dup {
			continue
		}
		seen.Insert(art.Key(line), struct{}{})
		if progress != nil {
			progress.Add(1)
		}

		if !cipher.TestPassword(line, vdata) {
			continue
		}
		if verifier.Verify(cipher.FromPassword(line)) {
			return append([]byte(nil), line...), nil
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return nil, ErrNotFound
}

// stripNewline trims a trailing \r left behind on CRLF wordlists; bufio's
// line scanning already strips the \n itself.
func stripNewline(line []byte) []byte {
	if n := len(line); n > 0 && line[n-1] == '\r' {
		return line[:n-1]
	}
	return line
}
