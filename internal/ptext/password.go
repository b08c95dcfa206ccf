package ptext

import (
	"errors"

	"zipcrack/internal/cipher"
)

// PreKey1 seeds guessKey1's recursion with the key1 value one step before
// the zero-length cipher's default state, named for its role in
// original_source/lib/find_password.c's try_key_56 (PREKEY1).
const PreKey1 uint32 = 0x057d2770

// MaxRecoverableLength is the longest password length the recovery
// routines below can reconstruct from an internal representation. Lengths
// 7-13 are unreachable: original_source/lib/find_password.c's
// recurse_key_7_13 references an out-of-scope variable in its call to
// recover_prev_key, and try_key_7_13 unconditionally returns failure — a
// genuine defect in the reference implementation, not a missing feature
// worth silently reinventing.
const MaxRecoverableLength = 6

// ErrUnsupportedLength is returned by RecoverPassword when the internal
// representation does not match any length from 0 to MaxRecoverableLength.
var ErrUnsupportedLength = errors.New("ptext: password recovery is only implemented for lengths 0-6")

// lsbk0Lookup maps a "diff" byte to the small set of key0 LSB candidates
// consistent with it, used by both recurseKey1 and guessKey1. Built once
// at package init from the MULTINV walk in original_source/lib/ptext.c's
// generate_key0_lsb.
var lsbk0Lookup [256][]byte

func init() {
	p := uint32(0)
	for i := 0; i < 256; i++ {
		m := cipher.MSB(p)
		lsbk0Lookup[m] = append(lsbk0Lookup[m], byte(i))
		next := byte((int(m) + 1) % 256)
		lsbk0Lookup[next] = append(lsbk0Lookup[next], byte(i))
		p += cipher.MULTINV
	}
}

func recoverInputByte(km1, k uint32) byte {
	return byte(uint32(cipher.LSB(km1)) ^ cipher.CRCInvByte(cipher.MSB(k)))
}

// RecoverPassword reconstructs the password from the internal
// representation derived by Attack, trying the zero-length shortcut, then
// lengths 1-4, then lengths 5-6. It returns ErrUnsupportedLength for any
// internal representation that doesn't resolve at one of those lengths.
func RecoverPassword(internalRep cipher.Keys) ([]byte, error) {
	if internalRep == cipher.Default() {
		return nil, nil
	}
	if pw, ok := tryKey14(internalRep); ok {
		return pw, nil
	}
	if pw, ok := tryKey56(internalRep); ok {
		return pw, nil
	}
	return nil, ErrUnsupportedLength
}

// tryKey14 covers lengths 1 through 4: key0 alone determines the password
// at this length, recovered by walking key0 backward one crc32inv(·, 0)
// step at a time. Mirrors try_key_14.
func tryKey14(internalRep cipher.Keys) ([]byte, bool) {
	k0 := [5]uint32{internalRep.K0}
	for i, length := 0, 1; i < 4; i, length = i+1, length+1 {
		k0[i+1] = cipher.CRC32Inv(k0[i], 0)

		prev := cipher.Key0Default
		pw := make([]byte, length)
		for j := 0; j < length; j++ {
			pw[j] = recoverInputByte(prev, k0[i-j])
			prev = cipher.CRC32Step(prev, pw[j])
		}
		if cipher.FromPassword(pw) == internalRep {
			return pw, true
		}
	}
	return nil, false
}

// key56Step1 derives k[1] and k[2]'s key2 values and k[1]'s full key1 from
// k[0] (the internal representation), Biham & Kocher's "equation 2".
func key56Step1(k []cipher.Keys) {
	k[1].K2 = cipher.CRC32Inv(k[0].K2, cipher.MSB(k[0].K1))
	k[1].K1 = (k[0].K1-1)*cipher.MULTINV - uint32(cipher.LSB(k[0].K0))
	k[2].K2 = cipher.CRC32Inv(k[1].K2, cipher.MSB(k[1].K1))
}

// key56Step2 recovers key2[3..5] by three bare crc32inv(·,0) steps, then
// walks forward from `start` down to 2 recovering each key1 MSB.
func key56Step2(k []cipher.Keys, start int) {
	k[3].K2 = cipher.CRC32Inv(k[2].K2, 0)
	k[4].K2 = cipher.CRC32Inv(k[3].K2, 0)
	k[5].K2 = cipher.CRC32Inv(k[4].K2, 0)

	prev := cipher.Key2Default
	for i := start; i >= 2; i-- {
		k[i].K1 = uint32(recoverInputByte(prev, k[i].K2)) << 24
		prev = cipher.CRC32Step(prev, cipher.MSB(k[i].K1))
		if i > 2 {
			k[i].K2 = prev
		}
	}
}

// guessKey1 recursively recovers key1's low 24 bits at each of `level`
// positions starting at k[base], trying both candidate "diff" buckets per
// original_source/lib/find_password.c's guess_key1.
func guessKey1(k []cipher.Keys, base, level int) bool {
	if level == 0 {
		return k[base].K1 == cipher.Key1Default
	}
	key1 := k[base].K1
	rhsStep1 := (key1 - 1) * cipher.MULTINV
	rhsStep2 := (rhsStep1 - 1) * cipher.MULTINV
	diff := cipher.MSB(rhsStep2 - (k[base+2].K1 & 0xff000000))

	for c := 2; c != 0; c-- {
		for _, lsb := range lsbk0Lookup[diff] {
			lsbkey0i := uint32(lsb)
			cand := rhsStep1 - lsbkey0i
			if cand&0xff000000 != k[base+1].K1&0xff000000 {
				continue
			}
			k[base+1].K1 = cand
			k[base].K0 = (k[base].K0 &^ 0xff) | lsbkey0i
			if guessKey1(k, base+1, level-1) {
				return true
			}
		}
		diff--
	}
	return false
}

// tryKey56 covers lengths 5 and 6, following Biham & Kocher's two-equation
// reduction (key56Step1/key56Step2) and then guessKey1's key1 recursion to
// pin down key0, recovering password bytes last-to-first. Mirrors
// try_key_56.
func tryKey56(internalRep cipher.Keys) ([]byte, bool) {
	k := make([]cipher.Keys, 9)
	k[0] = internalRep
	key56Step1(k)

	for i := 4; i <= 5; i++ {
		key56Step2(k, i)
		if cipher.CRC32Step(k[3].K2, cipher.MSB(k[2].K1)) != k[2].K2 {
			continue
		}
		k[i+1] = cipher.Default()
		k[i+2].K1 = PreKey1

		if !guessKey1(k[1:], 0, i) {
			continue
		}

		pw := make([]byte, i+1)
		for j := 0; j <= i; j++ {
			pw[i-j] = recoverInputByte(k[j+1].K0, k[j].K0)
			k[j+1].K0 = cipher.CRC32Inv(k[j].K0, pw[i-j])
		}
		return pw, true
	}
	return nil, false
}
