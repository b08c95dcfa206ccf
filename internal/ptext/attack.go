// Package ptext implements the Biham–Kocher known-plaintext attack: given
// at least 13 bytes of known plaintext and the matching ciphertext, it
// recovers the cipher's internal representation (the key triple in effect
// partway through the stream) and, from there, the original password.
//
// Grounded on original_source/lib/ptext_attack.c (recurse_key2/compute_key1/
// recurse_key1/compute_key0/verify_key0/compute_intermediate_internal_rep)
// and original_source/lib/ptext_private.h (attack_private's scratch layout).
package ptext

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"zipcrack/internal/cipher"
	"zipcrack/internal/key2reduce"
	"zipcrack/internal/keyarray"
	"zipcrack/internal/threadpool"
)

// MinKnownPlaintext is the minimum number of known plaintext/ciphertext
// byte pairs the attack needs (positions 0..12 inclusive).
const MinKnownPlaintext = 13

// ErrInsufficientPlaintext is returned when fewer than MinKnownPlaintext
// bytes of known plaintext are supplied.
var ErrInsufficientPlaintext = errors.New("ptext: need at least 13 bytes of known plaintext")

// ErrNotFound is returned when no key2[13] candidate yields a consistent
// internal representation.
var ErrNotFound = errors.New("ptext: no internal representation satisfies the known plaintext")

// attacker holds one goroutine's scratch state while walking a single
// key2[13] candidate down to an internal representation. It is not safe
// for concurrent use; Attack gives each worker its own instance.
type attacker struct {
	key2Final [13]uint32
	key1Final [13]uint32
	key0Final [13]uint32

	plaintext  []byte
	ciphertext []byte
	bits       *key2reduce.Bits152Cache

	found    bool
	interRep cipher.Keys
}

// ComputeOneIntermediate reverses one cipher step given only the resulting
// ciphertext byte, recovering the state before the step and the plaintext
// byte absorbed. This is the single backward move used both by the attack
// core and by FindInternalRep.
func ComputeOneIntermediate(cipherByte byte, k cipher.Keys) (prev cipher.Keys, plain byte) {
	k.K2 = cipher.CRC32Inv(k.K2, cipher.MSB(k.K1))
	k.K1 = (k.K1-1)*cipher.MULTINV - uint32(cipher.LSB(k.K0))
	plain = cipherByte ^ cipher.DecryptByte(k.K2)
	k.K0 = cipher.CRC32Inv(k.K0, plain)
	return k, plain
}

// FindInternalRep walks the ciphertext backward from its last byte to its
// first, starting from the internal representation at the stream's end,
// recovering the internal representation in effect before any of it was
// absorbed. Mirrors zc_crk_ptext_find_internal_rep.
func FindInternalRep(end cipher.Keys, ciphertext []byte) cipher.Keys {
	k := end
	for i := len(ciphertext) - 1; i >= 0; i-- {
		k, _ = ComputeOneIntermediate(ciphertext[i], k)
	}
	return k
}

func (a *attacker) computeKey1MSB(idx int) uint32 {
	key2i := a.key2Final[idx]
	key2im1 := a.key2Final[idx-1]
	v := (key2i << 8) ^ cipher.CRCInvByte(byte(key2i>>24)) ^ key2im1
	return v << 24
}

// recurseKey2 walks positions 12 down to 1, at each step narrowing the
// key2[idx-1] candidate set with the single-step reduction kernel and
// recording the matching key1[idx] MSB, until position 1 hands off to
// computeKey1.
func (a *attacker) recurseKey2(idx int) {
	if idx == 1 {
		a.computeKey1()
		return
	}
	key3im1 := key2reduce.Key3(a.plaintext[idx-1], a.ciphertext[idx-1])
	key3im2 := key2reduce.Key3(a.plaintext[idx-2], a.ciphertext[idx-2])

	cand := keyarray.New(64)
	reduceSingle(a.key2Final[idx], a.bits.For(key3im1), a.bits.For(key3im2), cand)
	cand.Uniq()

	for i := 0; i < cand.Len(); i++ {
		a.key2Final[idx-1] = cand.At(i)
		a.key1Final[idx] = a.computeKey1MSB(idx)
		a.recurseKey2(idx - 1)
		if a.found {
			return
		}
	}
}

// computeKey1 brute-forces key1[12]'s low 24 bits against the known MSB,
// verifying each candidate against key1[11]'s known MSB before recursing
// into recurseKey1.
func (a *attacker) computeKey1() {
	msb12 := a.key1Final[12] & 0xff000000
	msb11 := a.key1Final[11] & 0xff000000
	for lo := uint32(0); lo < 1<<24; lo++ {
		cand := msb12 | lo
		rhs := (cand - 1) * cipher.MULTINV
		if rhs&0xff000000 != msb11 {
			continue
		}
		a.key1Final[12] = cand
		a.recurseKey1(12)
		if a.found {
			return
		}
	}
}

// recurseKey1 walks positions 12 down to 4, recovering each step's key0
// LSB from the lsbk0 lookup table and the matching key1 MSB, until
// position 3 hands off to computeKey0.
func (a *attacker) recurseKey1(idx int) {
	if idx == 3 {
		a.computeKey0()
		return
	}
	key1i := a.key1Final[idx]
	rhsStep1 := (key1i - 1) * cipher.MULTINV
	rhsStep2 := (rhsStep1 - 1) * cipher.MULTINV
	diff := cipher.MSB(rhsStep2 - (a.key1Final[idx-2] & 0xff000000))

	for _, lsb := range lsbk0Lookup[diff] {
		lsbkey0i := uint32(lsb)
		cand := rhsStep1 - lsbkey0i
		if cand&0xff000000 != a.key1Final[idx-1]&0xff000000 {
			continue
		}
		a.key1Final[idx-1] = cand
		a.key0Final[idx] = lsbkey0i
		a.recurseKey1(idx - 1)
		if a.found {
			return
		}
	}
}

// computeKey0 reconstructs key0[4] from the four key0 LSBs recovered by
// recurseKey1 and the corresponding known plaintext bytes, then verifies
// and, on success, derives the internal representation.
func (a *attacker) computeKey0() {
	k0 := (a.key0Final[7] ^ cipher.CRC32Step(0, byte(a.key0Final[6])^a.plaintext[6])) << 8
	k0 = (k0 | a.key0Final[6]) & 0x0000ffff

	k0 = (k0 ^ cipher.CRC32Step(0, byte(a.key0Final[5])^a.plaintext[5])) << 8
	k0 = (k0 | a.key0Final[5]) & 0x00ffffff

	k0 = (k0 ^ cipher.CRC32Step(0, byte(a.key0Final[4])^a.plaintext[4])) << 8
	k0 = k0 | a.key0Final[4]

	if !a.verifyKey0(k0, 4, 12) {
		return
	}
	start := cipher.Keys{K0: k0, K1: a.key1Final[4], K2: a.key2Final[4]}
	if rep, ok := a.computeIntermediateInternalRep(start); ok {
		a.found = true
		a.interRep = rep
	}
}

func (a *attacker) verifyKey0(key0 uint32, start, stop int) bool {
	for i := start; i < stop; i++ {
		key0 = cipher.CRC32Step(key0, a.plaintext[i])
		if cipher.MaskLSB(key0) != a.key0Final[i+1] {
			return false
		}
	}
	return true
}

// computeIntermediateInternalRep walks backward from position 4 to
// position 0, confirming every recovered plaintext byte matches, and
// returns the state before position 0 of the supplied plaintext was
// absorbed -- the intermediate representation FindInternalRep then walks
// past the entry's encrypted header to reach the true internal
// representation.
func (a *attacker) computeIntermediateInternalRep(k cipher.Keys) (cipher.Keys, bool) {
	i := 4
	for {
		next, p := ComputeOneIntermediate(a.ciphertext[i-1], k)
		if p != a.plaintext[i-1] {
			return cipher.Keys{}, false
		}
		k = next
		i--
		if i == 0 {
			break
		}
	}
	return k, true
}

// reduceSingle is the same single-step kernel key2reduce.Step uses, called
// directly here (rather than through the Array-to-Array batch form) since
// recurseKey2 narrows one key2[idx] value at a time.
func reduceSingle(key2ip1 uint32, bitsI, bitsIm1 []uint16, out *keyarray.Array) {
	bits31_8 := (key2ip1 << 8) ^ cipher.CRCInvByte(byte(key2ip1>>24))
	rhs := bits31_8 & key2reduce.Mask8Bits
	for _, v := range bitsI {
		if uint32(v)&key2reduce.Mask8Bits != rhs {
			continue
		}
		frag := (bits31_8 & 0xfffffc00) | uint32(v)
		im1Bits31_8 := (frag << 8) ^ cipher.CRCInvByte(byte(frag>>24))
		rhs2 := im1Bits31_8 & key2reduce.Mask6Bits
		for _, w := range bitsIm1 {
			if uint32(w)&key2reduce.Mask6Bits != rhs2 {
				continue
			}
			key2im1 := (im1Bits31_8 & 0xfffffc00) | uint32(w)
			tmp := key2im1 ^ cipher.CRCInvByte(byte(frag>>24))
			out.Append(frag | ((tmp >> 8) & 0x3))
		}
	}
}

// Attack tries every key2[13] candidate in reduced, returning the first
// internal representation consistent with plaintext/ciphertext. Candidates
// are distributed across a threadpool.Pool; the first worker to find a
// match cancels its siblings. progress, when non-nil, is incremented once
// per key2[13] candidate dispatched, for callers reporting throughput.
func Attack(ctx context.Context, reduced *keyarray.Array, plaintext, ciphertext []byte, bits *key2reduce.Bits152Cache, workers int, progress *atomic.Uint64) (cipher.Keys, error) {
	if len(plaintext) < MinKnownPlaintext || len(ciphertext) < MinKnownPlaintext {
		return cipher.Keys{}, ErrInsufficientPlaintext
	}

	pool := threadpool.New(workers)
	for i := 0; i < reduced.Len(); i++ {
		pool.Submit(reduced.At(i))
	}

	var mu sync.Mutex
	var result cipher.Keys
	var resultSet bool

	pool.Run(ctx, func(ctx context.Context, unit any, workerID int) threadpool.Outcome {
		if progress != nil {
			progress.Add(1)
		}
		a := &attacker{plaintext: plaintext, ciphertext: ciphertext, bits: bits}
		a.key2Final[12] = unit.(uint32)
		a.recurseKey2(12)
		if a.found {
			mu.Lock()
			if !resultSet {
				result = a.interRep
				resultSet = true
			}
			mu.Unlock()
			return threadpool.CancelSiblings
		}
		return threadpool.More
	})

	if !resultSet {
		return cipher.Keys{}, ErrNotFound
	}
	return result, nil
}
