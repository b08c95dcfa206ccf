// Package cipher implements the PKZIP stream cipher ("ZipCrypto") used by
// legacy encrypted ZIP entries: key update, byte decryption, header
// decryption and the password-check magic filter.
//
// Grounded on original_source/lib/libzc_private.h (constants, update_keys)
// and original_source/lib/zc_crk.c (decrypt_byte, decrypt_header).
package cipher

import "hash/crc32"

// MULT and MULTINV are the multiplier used to advance key1 and its modular
// inverse mod 2^32.
const (
	MULT    uint32 = 0x08088405
	MULTINV uint32 = 0xD94FA8CD
)

// Default initial cipher state, as specified by APPNOTE.TXT.
const (
	Key0Default uint32 = 0x12345678
	Key1Default uint32 = 0x23456789
	Key2Default uint32 = 0x34567890
)

// HeaderLen is the size in bytes of the encrypted header prefixed to every
// ZipCrypto-protected entry.
const HeaderLen = 12

// crcTab is the standard CRC-32 (poly 0xEDB88320) forward table. Reused
// directly from hash/crc32's IEEE table rather than regenerated by hand:
// it is the same well-known constant table, not cracker-specific logic.
var crcTab = crc32.IEEETable

// crcInvTab inverts the "shift + xor" CRC32 step: crcInvTab[crcTab[i]>>24]
// is built so that crc32inv(crc32(s, b), b) == s for any state s and byte b.
var crcInvTab [256]uint32

func init() {
	for i := 0; i < 256; i++ {
		t := crcTab[i]
		crcInvTab[t>>24] = (t << 8) ^ uint32(i)
	}
}

// crcStep advances crc by one byte, forward.
func crcStep(crc uint32, b byte) uint32 {
	return (crc >> 8) ^ crcTab[byte(crc)^b]
}

// crcInv reverses crcStep: given the crc value *after* absorbing b, recovers
// the value *before*.
func crcInv(crc uint32, b byte) uint32 {
	return (crc << 8) ^ crcInvTab[crc>>24] ^ uint32(b)
}

// Keys is the 96-bit PKZIP cipher state.
type Keys struct {
	K0, K1, K2 uint32
}

// Default returns the cipher state before any password byte has been
// absorbed.
func Default() Keys {
	return Keys{K0: Key0Default, K1: Key1Default, K2: Key2Default}
}

// Update advances the cipher state by one input byte (§3).
func (k Keys) Update(c byte) Keys {
	k.K0 = crcStep(k.K0, c)
	k.K1 = (k.K1+(k.K0&0xff))*MULT + 1
	k.K2 = crcStep(k.K2, byte(k.K1>>24))
	return k
}

// UpdateInv reverses Update: given the state *after* absorbing c, and c
// itself, returns the state *before*.
func (k Keys) UpdateInv(c byte) Keys {
	k.K2 = crcInv(k.K2, byte(k.K1>>24))
	k.K1 = (k.K1-1)*MULTINV - (k.K0 & 0xff)
	k.K0 = crcInv(k.K0, c)
	return k
}

// FromPassword resets to the default state and absorbs every byte of pw.
func FromPassword(pw []byte) Keys {
	k := Default()
	for _, c := range pw {
		k = k.Update(c)
	}
	return k
}

// DecryptByte returns the stream cipher's output byte for the given k2,
// computed with at least 16-bit precision per the §9 open question (the
// 16-bit-cast form is the one APPNOTE specifies and original_source/lib/zc_crk.c
// confirms; a bare 32-bit `k2|2` multiply is a known-buggy variant seen
// elsewhere and is not reproduced here).
func DecryptByte(k2 uint32) byte {
	t := uint16(k2) | 2
	return byte((uint32(t) * uint32(t^1)) >> 8)
}

// DecryptHeader sequentially decrypts all 12 header bytes using state k
// (which is not mutated in place), returning the resulting state and the
// final plaintext byte.
func DecryptHeader(k Keys, hdr [HeaderLen]byte) (Keys, byte) {
	var p byte
	for _, c := range hdr {
		p = c ^ DecryptByte(k.K2)
		k = k.Update(p)
	}
	return k, p
}

// TestMagic reports whether decrypting hdr from state k yields magic as the
// final plaintext byte.
func TestMagic(k Keys, magic byte, hdr [HeaderLen]byte) bool {
	_, p := DecryptHeader(k, hdr)
	return p == magic
}

// ValidationData pairs an entry's encrypted header with its expected magic
// byte, used to cheaply filter password candidates before a full decrypt.
type ValidationData struct {
	Header [HeaderLen]byte
	Magic  byte
}

// TestPassword keys the cipher from pw and checks it against every
// validation record.
func TestPassword(pw []byte, vdata []ValidationData) bool {
	k := FromPassword(pw)
	for _, vd := range vdata {
		if !TestMagic(k, vd.Magic, vd.Header) {
			return false
		}
	}
	return true
}

// DecryptStream decrypts src in place into dst using state k, returning the
// state after absorbing every byte. len(dst) must equal len(src).
func DecryptStream(dst, src []byte, k Keys) Keys {
	for i, c := range src {
		p := c ^ DecryptByte(k.K2)
		dst[i] = p
		k = k.Update(p)
	}
	return k
}

// CRC32Step exposes the forward CRC32 byte step for use by the key2
// reduction and plaintext-attack packages, which need it directly rather
// than through Update.
func CRC32Step(crc uint32, b byte) uint32 { return crcStep(crc, b) }

// CRC32Inv exposes the inverse CRC32 byte step.
func CRC32Inv(crc uint32, b byte) uint32 { return crcInv(crc, b) }

// CRCInvByte returns the raw inverse-table entry for the given top byte,
// for callers (key2 reduction) that index the table directly rather than
// through the byte-step formula.
func CRCInvByte(top byte) uint32 { return crcInvTab[top] }

// MSB returns the most significant byte of a 32-bit word.
func MSB(v uint32) byte { return byte(v >> 24) }

// LSB returns the least significant byte of a 32-bit word.
func LSB(v uint32) byte { return byte(v) }

// MaskMSB clears everything but the top byte.
func MaskMSB(v uint32) uint32 { return v & 0xff000000 }

// MaskLSB clears everything but the bottom byte.
func MaskLSB(v uint32) uint32 { return v & 0xff }
