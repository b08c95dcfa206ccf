// Package pwstream partitions a fixed-length password space (pool_len
// characters, pw_len positions) into a requested number of streams, each
// describing a contiguous range of values to enumerate at every position,
// so that brute-force workers can walk disjoint slices of the same
// Cartesian product without synchronizing between them.
//
// Grounded on original_source/lib/pwstream.c.
package pwstream

import (
	"math"
	"sort"
)

// Entry is an inclusive [First, Last] range of charset indices for one
// position of one stream.
type Entry struct {
	First, Last int
}

// Stream is a pwlen x cols grid of Entry, one row per password position,
// one column per assigned stream.
type Stream struct {
	entry    [][]Entry // entry[row][col]
	rows     int       // == pwLen
	cols     int       // streams actually materialized (< requested when pool is too small to fill them)
	plen     int       // pool length (charset size)
	realCols int        // streams requested by the caller
}

func get(rows [][]Entry, row, col int) *Entry { return &rows[row][col] }

func splitLess(plen, streams int, out []Entry) {
	for i := 0; i < streams; i++ {
		out[i].First = (i * plen) / streams
		out[i].Last = ((i+1)*plen)/streams - 1
	}
}

func splitMore(plen, streams int, out []Entry) {
	for i := 0; i < streams; i++ {
		out[i].First = i % plen
		out[i].Last = i % plen
	}
	sort.Slice(out, func(a, b int) bool { return out[a].First < out[b].First })
}

func splitEqual(plen int, out []Entry) {
	for i := 0; i < plen; i++ {
		out[i].First = i
		out[i].Last = i
	}
}

func distribute(plen, streams int, out []Entry) {
	switch {
	case streams == 1:
		out[0] = Entry{First: 0, Last: plen - 1}
	case streams == plen:
		splitEqual(plen, out)
	case streams > plen:
		splitMore(plen, streams, out)
	default:
		splitLess(plen, streams, out)
	}
}

func uniqFromEntry(e []Entry) int {
	count := 1
	for i := 1; i < len(e); i++ {
		if e[i] == e[0] {
			count++
		}
	}
	return count
}

func uniqInRow(row []Entry, e Entry) int {
	count := 0
	for _, n := range row {
		if n == e {
			count++
		}
	}
	return count
}

// recurse fills rows[depth:] for the count columns starting at col, given
// that those columns share an identical prefix up to depth.
func (s *Stream) recurse(depth, count, col int) {
	if count == 1 {
		return
	}
	distribute(s.plen, count, s.entry[depth][col:col+count])

	for i := 0; i < count; {
		u := uniqFromEntry(s.entry[depth][col+i : col+count])
		if depth+1 < s.rows {
			s.recurse(depth+1, u, col+i)
		}
		i += u
	}
}

func (s *Stream) generate() {
	distribute(s.plen, s.cols, s.entry[0])

	for i := 0; i < s.cols; {
		u := uniqInRow(s.entry[0], s.entry[0][i])
		if u > 1 && s.rows > 1 {
			s.recurse(1, u, i)
		}
		i += u
	}
}

// ceilStreams caps the requested stream count at pool_len^pw_len when the
// password space is too small to fill every stream.
func ceilStreams(poolLen, pwLen, streams int) int {
	permut := math.Pow(float64(poolLen), float64(pwLen))
	if math.IsInf(permut, 1) {
		return streams
	}
	if permut < float64(streams) {
		return int(permut)
	}
	return streams
}

// Generate builds a Stream partitioning the poolLen-character, pwLen-long
// password space across up to `streams` workers.
func Generate(poolLen, pwLen, streams int) *Stream {
	cols := ceilStreams(poolLen, pwLen, streams)
	if cols < 1 {
		cols = 1
	}

	entry := make([][]Entry, pwLen)
	for r := range entry {
		row := make([]Entry, cols)
		for c := range row {
			row[c] = Entry{First: 0, Last: poolLen - 1}
		}
		entry[r] = row
	}

	s := &Stream{entry: entry, rows: pwLen, cols: cols, plen: poolLen, realCols: streams}
	s.generate()
	return s
}

// PwLen reports the password length this stream was generated for.
func (s *Stream) PwLen() int { return s.rows }

// StreamCount reports the stream count originally requested (which may
// exceed the number of materialized columns when the pool was too small).
func (s *Stream) StreamCount() int { return s.realCols }

// StartIdx returns the first charset index assigned to position pos of the
// given stream, or -1 if stream is out of range.
func (s *Stream) StartIdx(stream, pos int) int {
	if stream < 0 || stream >= s.cols {
		return -1
	}
	return get(s.entry, pos, stream).First
}

// StopIdx returns the last charset index assigned to position pos of the
// given stream, or -1 if stream is out of range.
func (s *Stream) StopIdx(stream, pos int) int {
	if stream < 0 || stream >= s.cols {
		return -1
	}
	return get(s.entry, pos, stream).Last
}

// IsEmpty reports whether the given stream was assigned no work (possible
// when streams exceeds the total password space).
func (s *Stream) IsEmpty(stream int) bool {
	return s.StartIdx(stream, 0) == -1
}
