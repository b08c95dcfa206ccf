package ptext_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"zipcrack/internal/cipher"
	"zipcrack/internal/ptext"
)

func TestRecoverPasswordEmpty(t *testing.T) {
	pw, err := ptext.RecoverPassword(cipher.Default())
	require.NoError(t, err)
	require.Empty(t, pw)
}

func TestRecoverPasswordShortLengths(t *testing.T) {
	for _, want := range [][]byte{
		[]byte("a"),
		[]byte("ab"),
		[]byte("abc"),
		[]byte("abcd"),
	} {
		rep := cipher.FromPassword(want)
		got, err := ptext.RecoverPassword(rep)
		require.NoError(t, err, "length %d", len(want))
		require.Equal(t, want, got, "length %d", len(want))
	}
}

func TestRecoverPasswordFiveAndSixBytes(t *testing.T) {
	for _, want := range [][]byte{
		[]byte("abcde"),
		[]byte("abcdef"),
	} {
		rep := cipher.FromPassword(want)
		got, err := ptext.RecoverPassword(rep)
		require.NoError(t, err, "length %d", len(want))
		require.Equal(t, want, got, "length %d", len(want))
	}
}

func TestRecoverPasswordUnsupportedLength(t *testing.T) {
	rep := cipher.FromPassword([]byte("toolongforrecovery"))
	_, err := ptext.RecoverPassword(rep)
	require.ErrorIs(t, err, ptext.ErrUnsupportedLength)
}
