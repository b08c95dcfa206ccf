package zipscan

import (
	"bytes"
	"compress/flate"
	"hash/crc32"
	"testing"

	"github.com/stretchr/testify/require"

	"zipcrack/internal/cipher"
)

// encryptWithHeader produces a ciphertext DecryptStream(keys) would turn
// back into 12 zero header bytes followed by body: state must advance on
// the plaintext byte at each step, not on the output DecryptStream itself
// would compute if fed plaintext as its "ciphertext" input.
func encryptWithHeader(t *testing.T, keys cipher.Keys, body []byte) []byte {
	t.Helper()
	var hdr [cipher.HeaderLen]byte
	plain := append(append([]byte{}, hdr[:]...), body...)
	enc := make([]byte, len(plain))
	k := keys
	for i, p := range plain {
		enc[i] = p ^ cipher.DecryptByte(k.K2)
		k = k.Update(p)
	}
	return enc
}

func TestEntryVerifierStoredMethod(t *testing.T) {
	body := []byte("the quick brown fox jumps over the lazy dog")
	keys := cipher.FromPassword([]byte("s3cret"))
	ciphertext := encryptWithHeader(t, keys, body)

	entry := &Entry{
		CompressionMethod: compressionStored,
		CRC32:             crc32.ChecksumIEEE(body),
		Ciphertext:        ciphertext,
	}
	v := NewEntryVerifier(entry)

	require.True(t, v.Verify(keys))
	require.False(t, v.Verify(cipher.FromPassword([]byte("wrong"))))
}

func TestEntryVerifierDeflateMethod(t *testing.T) {
	raw := []byte("some reasonably compressible content content content content")
	var compressed bytes.Buffer
	w, err := flate.NewWriter(&compressed, flate.DefaultCompression)
	require.NoError(t, err)
	_, err = w.Write(raw)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	keys := cipher.FromPassword([]byte("p@ssw0rd"))
	ciphertext := encryptWithHeader(t, keys, compressed.Bytes())

	entry := &Entry{
		CompressionMethod: compressionDeflate,
		CRC32:             crc32.ChecksumIEEE(raw),
		Ciphertext:        ciphertext,
	}
	v := NewEntryVerifier(entry)

	require.True(t, v.Verify(keys))
}

func TestEntryVerifierUnknownMethodRejected(t *testing.T) {
	keys := cipher.FromPassword([]byte("x"))
	ciphertext := encryptWithHeader(t, keys, []byte("body"))
	entry := &Entry{CompressionMethod: 99, CRC32: 0, Ciphertext: ciphertext}
	v := NewEntryVerifier(entry)
	require.False(t, v.Verify(keys))
}
