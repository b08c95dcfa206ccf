// Package keyarray implements a growable uint32 buffer with sort-based
// uniquification, the single collapsed replacement for the three
// near-duplicate C arrays (`ka`, `kvector`, `key_table`) the key2 reduction
// and plaintext attack stages used in the original.
//
// Grounded on original_source/lib/ka.c and libzc_private.h's `struct ka`.
package keyarray

import "slices"

// Array is a growable collection of uint32 values.
type Array struct {
	v []uint32
}

// New returns an Array with the given initial capacity pre-allocated, the
// Go analogue of ka_alloc.
func New(capacity int) *Array {
	return &Array{v: make([]uint32, 0, capacity)}
}

// Append adds a value, growing the backing slice as needed.
func (a *Array) Append(val uint32) {
	a.v = append(a.v, val)
}

// AppendAll appends every value in vals.
func (a *Array) AppendAll(vals []uint32) {
	a.v = append(a.v, vals...)
}

// Len returns the current number of elements.
func (a *Array) Len() int { return len(a.v) }

// At returns the value at index i.
func (a *Array) At(i int) uint32 { return a.v[i] }

// Slice exposes the underlying values read-only.
func (a *Array) Slice() []uint32 { return a.v }

// Swap exchanges the elements at indices i and j.
func (a *Array) Swap(i, j int) { a.v[i], a.v[j] = a.v[j], a.v[i] }

// Uniq sorts the array in place and removes adjacent duplicates, turning the
// logical multiset into a mathematical set.
func (a *Array) Uniq() {
	slices.Sort(a.v)
	a.v = slices.Compact(a.v)
}

// Squeeze shrinks the backing array's capacity to its current length.
func (a *Array) Squeeze() {
	if cap(a.v) == len(a.v) {
		return
	}
	shrunk := make([]uint32, len(a.v))
	copy(shrunk, a.v)
	a.v = shrunk
}

// Empty resets the length to zero while preserving capacity, so the next
// round of Append reuses the same backing storage.
func (a *Array) Empty() {
	a.v = a.v[:0]
}
