// Package key2reduce implements the Biham–Kocher key2 backward reduction:
// given a set of candidate key2 values at generation i+1 and the plaintext
// constraints at positions i and i-1, it produces the set of key2 values
// consistent with those constraints at generation i.
//
// Grounded on original_source/lib/key2_reduce.c (single-step kernel, mask
// policy) and original_source/lib/ptext_reduce.c (the threaded driver, whose
// per-worker-scratch-then-mutex-merge shape this package's Reduce follows).
package key2reduce

import (
	"context"
	"runtime"
	"sync"

	"zipcrack/internal/cipher"
	"zipcrack/internal/keyarray"
)

// Common-bits mask policy (§4.4): the very first backward step uses the
// 6-bit mask; every subsequent step uses the 8-bit mask.
const (
	Mask6Bits uint32 = 0xfc00
	Mask8Bits uint32 = 0xff00
)

const pow2_16 = 1 << 16

// Bits152Cache is indexed by key3 and lists the (at most 64) 16-bit values v
// satisfying ((v|2)*((v|2)^1))>>8 == key3, precomputed once per session.
type Bits152Cache struct {
	table [256][]uint16
}

// NewBits152Cache builds the full 256-bucket cache.
func NewBits152Cache() *Bits152Cache {
	c := &Bits152Cache{}
	for key3 := 0; key3 < 256; key3++ {
		c.table[key3] = bits152FromKey3(byte(key3))
	}
	return c
}

func bits152FromKey3(key3 byte) []uint16 {
	vals := make([]uint16, 0, 64)
	for i := uint32(0); i < pow2_16; i += 4 {
		if cipher.DecryptByte(i) == key3 {
			vals = append(vals, uint16(i))
		}
	}
	return vals
}

// For returns the candidate bucket for the given key3 byte.
func (c *Bits152Cache) For(key3 byte) []uint16 {
	return c.table[key3]
}

// Key3 computes the plaintext-xor-ciphertext byte at a position, the
// glossary's `key3 = plaintext ^ ciphertext`.
func Key3(plain, cipherByte byte) byte {
	return plain ^ cipherByte
}

// computeSingle is the backward reduction kernel (§4.4 "Single-step
// kernel"). Given one key2_{i+1} candidate and the bits_15_2 buckets for
// key3_i and key3_{i-1}, it emits every compatible key2_i into out.
func computeSingle(key2ip1 uint32, bitsI, bitsIm1 []uint16, commonMask uint32, out *keyarray.Array) {
	// Step 1: upper 22 bits (31..10) of key2_i.
	bits31_8 := (key2ip1 << 8) ^ cipher.CRCInvByte(byte(key2ip1>>24))
	rhs := bits31_8 & commonMask

	for _, v := range bitsI {
		lhs := uint32(v) & commonMask
		if lhs != rhs {
			continue
		}
		// Step 3: fragment with bits [31..2] fixed, bits [1..0] unknown.
		frag := (bits31_8 & 0xfffffc00) | uint32(v)
		appendWithLowBits(out, frag, bitsIm1)
	}
}

// appendWithLowBits implements steps 4-5: it derives key2_{i-1}'s upper 22
// bits from the candidate fragment key2_i, cross-checks the shared 6 bits
// against bits_15_2[key3_{i-1}], and on a match resolves key2_i's own low
// two bits from the pair, emitting the completed key2_i.
func appendWithLowBits(out *keyarray.Array, key2i uint32, bitsIm1 []uint16) {
	im1Bits31_8 := (key2i << 8) ^ cipher.CRCInvByte(byte(key2i>>24))
	rhs := im1Bits31_8 & Mask6Bits

	for _, w := range bitsIm1 {
		if (uint32(w) & Mask6Bits) != rhs {
			continue
		}
		key2im1 := (im1Bits31_8 & 0xfffffc00) | uint32(w)
		out.Append(key2i | lowTwoBits(key2im1, key2i))
	}
}

// lowTwoBits recovers bits [1:0] of key2_i from a compatible key2_{i-1}
// candidate.
func lowTwoBits(key2im1, key2i uint32) uint32 {
	tmp := key2im1 ^ cipher.CRCInvByte(byte(key2i>>24))
	return (tmp >> 8) & 0x3
}

// FirstGeneration builds the initial 2^22 = 64*2^16 candidate key2_{n-1}
// values from bits_15_2[key3_{n-1}], the seed for the backward walk.
func FirstGeneration(bits []uint16) *keyarray.Array {
	out := keyarray.New(1 << 22)
	for hi16 := uint32(0); hi16 < pow2_16; hi16++ {
		for _, lo := range bits {
			out.Append((hi16 << 16) | uint32(lo))
		}
	}
	return out
}

// Step runs one backward reduction step over every candidate in cur,
// producing the key2_i set in a fresh Array. work is partitioned across
// runtime.NumCPU goroutines, each writing into a thread-local Array merged
// into the result under a mutex between steps — mirroring
// ptext_reduce.c's do_work_reduc / key2r_compute_next_array shape.
func Step(ctx context.Context, cur *keyarray.Array, bitsI, bitsIm1 []uint16, mask uint32) *keyarray.Array {
	n := cur.Len()
	if n == 0 {
		return keyarray.New(0)
	}
	workers := runtime.NumCPU()
	if workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}

	result := keyarray.New(n)
	var mu sync.Mutex
	var wg sync.WaitGroup

	chunk := (n + workers - 1) / workers
	for w := 0; w < workers; w++ {
		start := w * chunk
		if start >= n {
			break
		}
		end := start + chunk
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			local := keyarray.New((end - start) * 2)
			for i := start; i < end; i++ {
				if i%4096 == 0 && ctx.Err() != nil {
					return
				}
				computeSingle(cur.At(i), bitsI, bitsIm1, mask, local)
			}
			mu.Lock()
			result.AppendAll(local.Slice())
			mu.Unlock()
		}(start, end)
	}
	wg.Wait()
	result.Uniq()
	return result
}

// Reduce walks key3 positions from n-2 down to 12 (inclusive), producing the
// key2[12] candidate set fed to the plaintext attack. key3At(i) must be
// valid for i in [11, n-1].
func Reduce(ctx context.Context, cache *Bits152Cache, key3At func(i int) byte, n int) *keyarray.Array {
	cur := FirstGeneration(cache.For(key3At(n - 1)))
	mask := Mask6Bits
	for i := n - 2; i >= 12; i-- {
		bitsI := cache.For(key3At(i))
		bitsIm1 := cache.For(key3At(i - 1))
		cur = Step(ctx, cur, bitsI, bitsIm1, mask)
		mask = Mask8Bits
		if ctx.Err() != nil {
			return cur
		}
	}
	return cur
}
