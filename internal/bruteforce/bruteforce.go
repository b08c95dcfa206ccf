// Package bruteforce implements the pure brute-force session: enumerate
// every candidate password up to a configured length over a configured
// character set, filter candidates with the cheap header-magic check, and
// confirm survivors by fully decrypting and inflating the entry.
//
// Grounded on original_source/lib/zc_crk_bforce.c. The recursive
// enumeration (do_work_recurse) is kept for short passwords; the
// length->=6 fast path batches LEN candidates at a time and updates all
// three key words as flat arrays before testing any of them
// (do_work_recurse2/first_pass/try_decrypt2) to amortize the cipher
// update's branch and memory-access overhead across many candidates at
// once.
package bruteforce

import (
	"context"
	"errors"
	"sync/atomic"

	"zipcrack/internal/charset"
	"zipcrack/internal/cipher"
	"zipcrack/internal/pwstream"
	"zipcrack/internal/threadpool"
	"zipcrack/internal/verify"
)

// MaxPasswordLen and MaxCharsetLen bound the password/character-set sizes,
// matching ZC_PW_MAXLEN / ZC_CHARSET_MAXLEN.
const (
	MaxPasswordLen = 16
	MaxCharsetLen  = 96
	// batchLen is the vectorized fast path's batch size (LEN in the original).
	batchLen = 8192
)

var (
	ErrEmptyCharset    = errors.New("bruteforce: empty character set")
	ErrCharsetTooLarge = errors.New("bruteforce: character set too large")
	ErrInvalidMaxLen   = errors.New("bruteforce: max length must be 1..16")
	ErrInitialNotInSet = errors.New("bruteforce: initial password contains characters outside the set")
	ErrInitialTooLong  = errors.New("bruteforce: initial password longer than max length")
)

// Config describes one bruteforce session.
type Config struct {
	VData    []cipher.ValidationData
	Verifier verify.Verifier
	Charset  []byte
	Initial  []byte
	MaxLen   int

	// Progress, when non-nil, is incremented once per candidate password
	// tested against the header-magic filter, for callers reporting
	// throughput (e.g. engine.Session's Stats).
	Progress *atomic.Uint64
}

func pwInSet(pw, set []byte) bool {
	for _, c := range pw {
		found := false
		for _, s := range set {
			if s == c {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// validated holds a Config after sanitize_set/set_pwcfg-equivalent checks.
type validated struct {
	set     []byte
	initial []byte
	maxLen  int
}

func validate(cfg Config) (*validated, error) {
	set, err := charset.Sanitize(cfg.Charset)
	if err != nil {
		return nil, ErrEmptyCharset
	}
	if len(set) > MaxCharsetLen {
		return nil, ErrCharsetTooLarge
	}
	if cfg.MaxLen <= 0 || cfg.MaxLen > MaxPasswordLen {
		return nil, ErrInvalidMaxLen
	}

	initial := cfg.Initial
	if len(initial) == 0 {
		initial = set[:1]
	} else {
		if len(initial) > cfg.MaxLen {
			return nil, ErrInitialTooLong
		}
		if !pwInSet(initial, set) {
			return nil, ErrInitialNotInSet
		}
	}
	return &validated{set: set, initial: initial, maxLen: cfg.MaxLen}, nil
}

// testHeader runs the cheap magic-byte filter against every validation
// record for the given key state.
func testHeader(vdata []cipher.ValidationData, k cipher.Keys) bool {
	for _, vd := range vdata {
		if !cipher.TestMagic(k, vd.Magic, vd.Header) {
			return false
		}
	}
	return true
}

// session carries per-Run state shared by every worker goroutine.
type session struct {
	cfg      *validated
	vdata    []cipher.ValidationData
	verify   verify.Verifier
	progress *atomic.Uint64
}

// Run enumerates every candidate password from length len(Initial) (or 1)
// up to cfg.MaxLen, distributing work across pwstream-partitioned streams
// run by a threadpool.Pool. It returns the first verified password found.
func Run(ctx context.Context, cfg Config, workers int) ([]byte, bool, error) {
	v, err := validate(cfg)
	if err != nil {
		return nil, false, err
	}
	s := &session{cfg: v, vdata: cfg.VData, verify: cfg.Verifier, progress: cfg.Progress}

	ipwLen := len(v.initial)
	toAlloc := v.maxLen - ipwLen + 1

	var found []byte
	var foundOK bool

	for li := 0; li < toAlloc && !foundOK; li++ {
		length := ipwLen + li

		pws := pwstream.Generate(len(v.set), length, workers)

		pool := threadpool.New(workers)
		for stream := 0; stream < workers; stream++ {
			pool.Submit(stream)
		}

		var fnd []byte
		var ok bool
		pool.Run(ctx, func(ctx context.Context, unit any, workerID int) threadpool.Outcome {
			stream := unit.(int)
			if pws.IsEmpty(stream) {
				return threadpool.More
			}
			pw, ok2 := s.runStream(ctx, pws, stream, length)
			if ok2 {
				fnd = pw
				ok = true
				return threadpool.CancelSiblings
			}
			if ctx.Err() != nil {
				return threadpool.Exit
			}
			return threadpool.More
		})
		if ok {
			found, foundOK = fnd, true
		}
	}

	if !foundOK {
		return nil, false, nil
	}
	return found, true, nil
}

// runStream enumerates one pwstream column for the given password length,
// dispatching to the recursive walker for short passwords and the
// vectorized batch walker from length 6 up.
func (s *session) runStream(ctx context.Context, pws *pwstream.Stream, stream, length int) ([]byte, bool) {
	limit := make([]pwstream.Entry, length)
	for i, j := 0, length-1; i < length; i, j = i+1, j-1 {
		limit[i] = pwstream.Entry{First: pws.StartIdx(stream, j), Last: pws.StopIdx(stream, j)}
	}

	cache := make([]cipher.Keys, length+1)
	cache[0] = cipher.Default()
	pw := make([]byte, length)

	if length < 6 {
		return s.recurse(ctx, length, length, pw, cache, limit)
	}
	return s.recurseBatch(ctx, length, length, pw, cache, limit)
}

// recurse mirrors do_work_recurse: builds the cipher state incrementally,
// one charset index at a time, checking the header magic filter and full
// verifier only at the final position.
func (s *session) recurse(ctx context.Context, level, levelCount int, pw []byte, cache []cipher.Keys, limit []pwstream.Entry) ([]byte, bool) {
	first := limit[0].First
	last := limit[0].Last + 1

	if level == 1 {
		for p := first; p < last; p++ {
			if ctx.Err() != nil {
				return nil, false
			}
			c := s.cfg.set[p]
			cache[levelCount] = cache[levelCount-1].Update(c)
			if s.progress != nil {
				s.progress.Add(1)
			}
			if testHeader(s.vdata, cache[levelCount]) && s.verify.Verify(cache[levelCount]) {
				pw[levelCount-1] = c
				out := append([]byte(nil), pw...)
				return out, true
			}
		}
		return nil, false
	}

	i := levelCount - level
	for p := first; p < last; p++ {
		if ctx.Err() != nil {
			return nil, false
		}
		c := s.cfg.set[p]
		pw[i] = c
		cache[i+1] = cache[i].Update(c)
		if out, ok := s.recurse(ctx, level-1, levelCount, pw, cache, limit[1:]); ok {
			return out, true
		}
	}
	return nil, false
}

// batch is the per-candidate scratch the vectorized fast path advances in
// lockstep, the Go analogue of struct hash.
type batch struct {
	pw     [][6]int
	check  []bool
	initK0 []uint32
	initK1 []uint32
	initK2 []uint32
	k0     []uint32
	k1     []uint32
	k2     []uint32
}

func newBatch() *batch {
	return &batch{
		pw:     make([][6]int, batchLen),
		check:  make([]bool, batchLen),
		initK0: make([]uint32, batchLen),
		initK1: make([]uint32, batchLen),
		initK2: make([]uint32, batchLen),
		k0:     make([]uint32, batchLen),
		k1:     make([]uint32, batchLen),
		k2:     make([]uint32, batchLen),
	}
}

// firstPass runs the LEN candidates through the first 11 header bytes
// (decrypt-byte + key update), flagging any that produce a mismatching
// byte so try_decrypt2 can skip them, mirroring first_pass.
func firstPass(vdata cipher.ValidationData, h *batch, n int) {
	for i := 0; i < 11; i++ {
		header := vdata.Header[i]
		for j := 0; j < n; j++ {
			p := header ^ cipher.DecryptByte(h.k2[j])
			h.k0[j] = cipher.CRC32Step(h.k0[j], p)
		}
		for j := 0; j < n; j++ {
			h.k1[j] = (h.k1[j]+(h.k0[j]&0xff))*cipher.MULT + 1
		}
		for j := 0; j < n; j++ {
			h.k2[j] = cipher.CRC32Step(h.k2[j], byte(h.k1[j]>>24))
		}
	}
	header := vdata.Header[11]
	magic := vdata.Magic
	for j := 0; j < n; j++ {
		p := header ^ cipher.DecryptByte(h.k2[j]) ^ magic
		h.check[j] = p != 0
	}
}

// tryDecrypt2 tests every candidate not already ruled out by firstPass
// against the remaining validation records and, on a full magic match,
// the real verifier -- mirroring try_decrypt2.
func (s *session) tryDecrypt2(h *batch, n int) int {
	for i := 0; i < n; i++ {
		if h.check[i] {
			continue
		}
		key := cipher.Keys{K0: h.initK0[i], K1: h.initK1[i], K2: h.initK2[i]}
		ok := true
		for j := 1; j < len(s.vdata); j++ {
			if !cipher.TestMagic(key, s.vdata[j].Magic, s.vdata[j].Header) {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		key = cipher.Keys{K0: h.initK0[i], K1: h.initK1[i], K2: h.initK2[i]}
		if s.verify.Verify(key) {
			return i
		}
	}
	return -1
}

// recurseBatch mirrors do_work_recurse2: it unrolls the innermost six
// password positions into nested loops, filling a batch of up to
// batchLen candidates before running firstPass/tryDecrypt2 over the whole
// batch at once.
func (s *session) recurseBatch(ctx context.Context, level, levelCount int, pw []byte, cache []cipher.Keys, limit []pwstream.Entry) ([]byte, bool) {
	if levelCount > 5 && level == 6 {
		return s.recurseBatchInner(ctx, levelCount, pw, cache, limit)
	}

	first := limit[0].First
	last := limit[0].Last + 1
	i := levelCount - level
	for p := first; p < last; p++ {
		if ctx.Err() != nil {
			return nil, false
		}
		c := s.cfg.set[p]
		pw[i] = c
		cache[i+1] = cache[i].Update(c)
		if out, ok := s.recurseBatch(ctx, level-1, levelCount, pw, cache, limit[1:]); ok {
			return out, true
		}
	}
	return nil, false
}

func (s *session) recurseBatchInner(ctx context.Context, levelCount int, pw []byte, cache []cipher.Keys, limit []pwstream.Entry) ([]byte, bool) {
	base := levelCount - 6
	h := newBatch()
	pwi := 0

	var first, last [6]int
	for i := 0; i < 6; i++ {
		first[i] = limit[i].First
		last[i] = limit[i].Last + 1
	}

	flush := func() ([]byte, bool) {
		if pwi == 0 {
			return nil, false
		}
		if s.progress != nil {
			s.progress.Add(uint64(pwi))
		}
		firstPass(s.vdata[0], h, pwi)
		idx := s.tryDecrypt2(h, pwi)
		if idx >= 0 {
			out := append([]byte(nil), pw[:base]...)
			for k := 0; k < 6; k++ {
				out = append(out, s.cfg.set[h.pw[idx][k]])
			}
			return out, true
		}
		pwi = 0
		return nil, false
	}

	var p [6]int
	for p[0] = first[0]; p[0] < last[0]; p[0]++ {
		cache[base+1] = cache[base].Update(s.cfg.set[p[0]])
		for p[1] = first[1]; p[1] < last[1]; p[1]++ {
			cache[base+2] = cache[base+1].Update(s.cfg.set[p[1]])
			for p[2] = first[2]; p[2] < last[2]; p[2]++ {
				cache[base+3] = cache[base+2].Update(s.cfg.set[p[2]])
				for p[3] = first[3]; p[3] < last[3]; p[3]++ {
					cache[base+4] = cache[base+3].Update(s.cfg.set[p[3]])
					for p[4] = first[4]; p[4] < last[4]; p[4]++ {
						cache[base+5] = cache[base+4].Update(s.cfg.set[p[4]])
						for p[5] = first[5]; p[5] < last[5]; p[5]++ {
							if ctx.Err() != nil {
								return nil, false
							}
							cache[base+6] = cache[base+5].Update(s.cfg.set[p[5]])

							h.pw[pwi] = p
							h.initK0[pwi] = cache[base+6].K0
							h.initK1[pwi] = cache[base+6].K1
							h.initK2[pwi] = cache[base+6].K2
							h.k0[pwi], h.k1[pwi], h.k2[pwi] = h.initK0[pwi], h.initK1[pwi], h.initK2[pwi]
							pwi++

							if pwi == batchLen {
								if out, ok := flush(); ok {
									return out, true
								}
							}
						}
					}
				}
			}
		}
	}
	if out, ok := flush(); ok {
		return out, true
	}
	return nil, false
}
