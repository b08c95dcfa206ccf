package zipscan

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"zipcrack/internal/cipher"
)

type fakeEntry struct {
	name    string
	gpFlag  uint16
	method  uint16
	modTime uint16
	crc     uint32
	data    []byte
}

// buildArchive assembles a minimal, well-formed ZIP file byte-for-byte from
// local headers, a central directory and an EOCD record, the same layout
// zipscan.parse expects to walk.
func buildArchive(t *testing.T, entries []fakeEntry) []byte {
	t.Helper()

	var buf []byte
	type cdRecord struct {
		off  uint32
		name string
		e    fakeEntry
	}
	var localOffsets []cdRecord

	for _, e := range entries {
		localOff := uint32(len(buf))
		hdr := make([]byte, localHeaderLen)
		binary.LittleEndian.PutUint32(hdr[0:], sigLocalFile)
		binary.LittleEndian.PutUint16(hdr[4:], 20)
		binary.LittleEndian.PutUint16(hdr[6:], e.gpFlag)
		binary.LittleEndian.PutUint16(hdr[8:], e.method)
		binary.LittleEndian.PutUint16(hdr[10:], e.modTime)
		binary.LittleEndian.PutUint16(hdr[12:], 0)
		binary.LittleEndian.PutUint32(hdr[14:], e.crc)
		binary.LittleEndian.PutUint32(hdr[18:], uint32(len(e.data)))
		binary.LittleEndian.PutUint32(hdr[22:], uint32(len(e.data)))
		binary.LittleEndian.PutUint16(hdr[26:], uint16(len(e.name)))
		binary.LittleEndian.PutUint16(hdr[28:], 0)

		buf = append(buf, hdr...)
		buf = append(buf, []byte(e.name)...)
		buf = append(buf, e.data...)

		localOffsets = append(localOffsets, cdRecord{off: localOff, name: e.name, e: e})
	}

	cdStart := uint32(len(buf))
	for _, rec := range localOffsets {
		hdr := make([]byte, centralHeaderLen)
		binary.LittleEndian.PutUint32(hdr[0:], sigCentralDir)
		binary.LittleEndian.PutUint16(hdr[4:], 20)
		binary.LittleEndian.PutUint16(hdr[6:], 20)
		binary.LittleEndian.PutUint16(hdr[8:], rec.e.gpFlag)
		binary.LittleEndian.PutUint16(hdr[10:], rec.e.method)
		binary.LittleEndian.PutUint16(hdr[12:], rec.e.modTime)
		binary.LittleEndian.PutUint16(hdr[14:], 0)
		binary.LittleEndian.PutUint32(hdr[16:], rec.e.crc)
		binary.LittleEndian.PutUint32(hdr[20:], uint32(len(rec.e.data)))
		binary.LittleEndian.PutUint32(hdr[24:], uint32(len(rec.e.data)))
		binary.LittleEndian.PutUint16(hdr[28:], uint16(len(rec.name)))
		binary.LittleEndian.PutUint16(hdr[30:], 0)
		binary.LittleEndian.PutUint16(hdr[32:], 0)
		binary.LittleEndian.PutUint16(hdr[34:], 0)
		binary.LittleEndian.PutUint16(hdr[36:], 0)
		binary.LittleEndian.PutUint32(hdr[38:], 0)
		binary.LittleEndian.PutUint32(hdr[42:], rec.off)

		buf = append(buf, hdr...)
		buf = append(buf, []byte(rec.name)...)
	}
	cdSize := uint32(len(buf)) - cdStart

	eocd := make([]byte, eocdLen)
	binary.LittleEndian.PutUint32(eocd[0:], sigEOCD)
	binary.LittleEndian.PutUint16(eocd[8:], uint16(len(entries)))
	binary.LittleEndian.PutUint16(eocd[10:], uint16(len(entries)))
	binary.LittleEndian.PutUint32(eocd[12:], cdSize)
	binary.LittleEndian.PutUint32(eocd[16:], cdStart)
	buf = append(buf, eocd...)

	return buf
}

func writeTempArchive(t *testing.T, data []byte) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.zip")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestOpenParsesEncryptedEntry(t *testing.T) {
	var hdr [cipher.HeaderLen]byte
	for i := range hdr {
		hdr[i] = byte(i + 1)
	}
	data := append(append([]byte{}, hdr[:]...), []byte("encrypted-body")...)

	archive := buildArchive(t, []fakeEntry{
		{name: "secret.txt", gpFlag: gpBitEncrypted, method: 0, modTime: 0x1234, crc: 0xdeadbeef, data: data},
	})
	path := writeTempArchive(t, archive)

	a, err := Open(path)
	require.NoError(t, err)
	defer a.Close()

	require.Len(t, a.Entries, 1)
	e := a.Entries[0]
	require.Equal(t, "secret.txt", e.Name)
	require.True(t, e.IsEncrypted())
	require.Equal(t, uint32(0xdeadbeef), e.CRC32)
	require.Equal(t, byte(0xde), e.CheckByte())
	require.Equal(t, hdr[:], e.Ciphertext[:cipher.HeaderLen])
}

func TestOpenSkipsUnencryptedEntries(t *testing.T) {
	archive := buildArchive(t, []fakeEntry{
		{name: "plain.txt", gpFlag: 0, method: 0, data: []byte("hello world")},
	})
	path := writeTempArchive(t, archive)

	a, err := Open(path)
	require.NoError(t, err)
	defer a.Close()
	require.Empty(t, a.Entries)
}

func TestCheckByteUsesModTimeWhenDataDescriptorSet(t *testing.T) {
	var hdr [cipher.HeaderLen]byte
	data := append(append([]byte{}, hdr[:]...), []byte("body")...)

	archive := buildArchive(t, []fakeEntry{
		{name: "s.bin", gpFlag: gpBitEncrypted | gpBitDataDescPost, modTime: 0xab34, crc: 0x11223344, data: data},
	})
	path := writeTempArchive(t, archive)

	a, err := Open(path)
	require.NoError(t, err)
	defer a.Close()

	require.Equal(t, byte(0xab), a.Entries[0].CheckByte())
}

func TestOpenRejectsTooSmallFile(t *testing.T) {
	path := writeTempArchive(t, []byte("short"))
	_, err := Open(path)
	require.ErrorIs(t, err, ErrTooSmall)
}

func TestOpenRejectsMissingEOCD(t *testing.T) {
	junk := make([]byte, 64)
	path := writeTempArchive(t, junk)
	_, err := Open(path)
	require.ErrorIs(t, err, ErrNoEOCD)
}

func TestValidationDataCapsAtMax(t *testing.T) {
	var entries []fakeEntry
	for i := 0; i < MaxValidationEntries+3; i++ {
		var hdr [cipher.HeaderLen]byte
		hdr[0] = byte(i)
		data := append(append([]byte{}, hdr[:]...), []byte("x")...)
		entries = append(entries, fakeEntry{name: "e", gpFlag: gpBitEncrypted, crc: 1, data: data})
	}
	archive := buildArchive(t, entries)
	path := writeTempArchive(t, archive)

	a, err := Open(path)
	require.NoError(t, err)
	defer a.Close()

	require.Len(t, a.ValidationData(), MaxValidationEntries)
}

func TestSmallestEncryptedPicksLeastCompressedSize(t *testing.T) {
	mk := func(n string, size int) fakeEntry {
		var hdr [cipher.HeaderLen]byte
		body := make([]byte, size)
		data := append(append([]byte{}, hdr[:]...), body...)
		return fakeEntry{name: n, gpFlag: gpBitEncrypted, crc: 1, data: data}
	}
	archive := buildArchive(t, []fakeEntry{mk("big", 100), mk("small", 5), mk("mid", 40)})
	path := writeTempArchive(t, archive)

	a, err := Open(path)
	require.NoError(t, err)
	defer a.Close()

	best, ok := a.SmallestEncrypted()
	require.True(t, ok)
	require.Equal(t, "small", best.Name)
}

func TestOpenRejectsMultiDiskArchive(t *testing.T) {
	archive := buildArchive(t, []fakeEntry{{name: "a.txt", gpFlag: 0, data: []byte("hi")}})

	cdStart := binary.LittleEndian.Uint32(archive[len(archive)-eocdLen+16:])
	binary.LittleEndian.PutUint16(archive[cdStart+34:], 1)

	path := writeTempArchive(t, archive)
	_, err := Open(path)
	require.ErrorIs(t, err, ErrMultiDisk)
}

func TestOpenRejectsOversizedFilename(t *testing.T) {
	longName := make([]byte, maxNameLen+1)
	for i := range longName {
		longName[i] = 'a'
	}
	archive := buildArchive(t, []fakeEntry{{name: string(longName), gpFlag: 0, data: []byte("hi")}})
	path := writeTempArchive(t, archive)

	_, err := Open(path)
	require.ErrorIs(t, err, ErrNameTooLong)
}

func TestOpenRejectsUndersizedEncryptedEntry(t *testing.T) {
	archive := buildArchive(t, []fakeEntry{
		{name: "tiny.bin", gpFlag: gpBitEncrypted, crc: 1, data: []byte{1, 2, 3}},
	})
	path := writeTempArchive(t, archive)

	_, err := Open(path)
	require.ErrorIs(t, err, ErrShortCipher)
}

func TestSmallestEncryptedNoneFound(t *testing.T) {
	archive := buildArchive(t, []fakeEntry{{name: "plain", gpFlag: 0, data: []byte("x")}})
	path := writeTempArchive(t, archive)

	a, err := Open(path)
	require.NoError(t, err)
	defer a.Close()

	_, ok := a.SmallestEncrypted()
	require.False(t, ok)
}
