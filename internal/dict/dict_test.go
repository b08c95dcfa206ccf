package dict

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"zipcrack/internal/cipher"
)

type fakeVerifier struct {
	want []byte
}

func (f fakeVerifier) Verify(k cipher.Keys) bool {
	return k == cipher.FromPassword(f.want)
}

func vdataFor(pw []byte) []cipher.ValidationData {
	k := cipher.FromPassword(pw)
	const magic = 0x7a
	var hdr [cipher.HeaderLen]byte
	enc := k
	for i := 0; i < cipher.HeaderLen; i++ {
		p := byte(i + 1)
		if i == cipher.HeaderLen-1 {
			p = magic
		}
		c := p ^ cipher.DecryptByte(enc.K2)
		hdr[i] = c
		enc = enc.Update(p)
	}
	return []cipher.ValidationData{{Header: hdr, Magic: magic}}
}

func TestRunFindsMatchingLine(t *testing.T) {
	pw := []byte("letmein")
	vdata := vdataFor(pw)
	wordlist := "wrong1\nwrong2\nletmein\nwrong3\n"

	got, err := Run(context.Background(), strings.NewReader(wordlist), vdata, fakeVerifier{want: pw}, nil)
	require.NoError(t, err)
	require.Equal(t, pw, got)
}

func TestRunHandlesCRLFLines(t *testing.T) {
	pw := []byte("hunter2")
	vdata := vdataFor(pw)
	wordlist := "a\r\nhunter2\r\nb\r\n"

	got, err := Run(context.Background(), strings.NewReader(wordlist), vdata, fakeVerifier{want: pw}, nil)
	require.NoError(t, err)
	require.Equal(t, pw, got)
}

func TestRunSkipsEmptyLines(t *testing.T) {
	pw := []byte("x")
	vdata := vdataFor(pw)
	wordlist := "\n\n\nx\n\n"

	got, err := Run(context.Background(), strings.NewReader(wordlist), vdata, fakeVerifier{want: pw}, nil)
	require.NoError(t, err)
	require.Equal(t, pw, got)
}

func TestRunNotFoundWhenExhausted(t *testing.T) {
	pw := []byte("secret")
	vdata := vdataFor(pw)
	wordlist := "a\nb\nc\n"

	_, err := Run(context.Background(), strings.NewReader(wordlist), vdata, fakeVerifier{want: pw}, nil)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRunDedupsRepeatedLinesInProgressCount(t *testing.T) {
	pw := []byte("zzz-not-present")
	vdata := vdataFor(pw)
	wordlist := "dup\ndup\ndup\nother\n"

	var progress atomic.Uint64
	_, err := Run(context.Background(), strings.NewReader(wordlist), vdata, fakeVerifier{want: pw}, &progress)
	require.ErrorIs(t, err, ErrNotFound)
	require.EqualValues(t, 2, progress.Load(), "duplicate lines should only be counted once")
}

func TestRunRespectsCancelledContext(t *testing.T) {
	pw := []byte("secret")
	vdata := vdataFor(pw)
	wordlist := "a\nb\nsecret\n"

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, strings.NewReader(wordlist), vdata, fakeVerifier{want: pw}, nil)
	require.ErrorIs(t, err, context.Canceled)
}
