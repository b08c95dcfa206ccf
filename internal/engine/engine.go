// Package engine is the facade the CLI drives: it wraps one of the three
// cryptanalytic backends (bruteforce, dict, ptext) behind a single
// Stats/Result publishing shape, generalizing the teacher's
// internal/cracker.Runner across all three.
package engine

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"zipcrack/internal/bruteforce"
	"zipcrack/internal/cipher"
	"zipcrack/internal/dict"
	"zipcrack/internal/key2reduce"
	"zipcrack/internal/ptext"
	"zipcrack/internal/verify"
)

// Stats is a point-in-time progress snapshot, generalizing cracker.Stats
// across every engine kind: every engine shares one cumulative progress
// counter, so PerThread always holds a single entry equal to Total.
type Stats struct {
	PerThread []uint64
	Total     uint64
	Timestamp time.Time
}

// Result is the terminal outcome of a session, generalizing cracker.Result.
// InternalRep is only populated by the plaintext engine.
type Result struct {
	Found       bool
	Password    []byte
	InternalRep cipher.Keys
}

// BruteforceConfig configures a brute-force session.
type BruteforceConfig struct {
	VData    []cipher.ValidationData
	Verifier verify.Verifier
	Charset  []byte
	Initial  []byte
	MaxLen   int
}

// DictConfig configures a dictionary session.
type DictConfig struct {
	VData    []cipher.ValidationData
	Verifier verify.Verifier
	Wordlist io.Reader
}

// PlaintextConfig configures a known-plaintext session. Plaintext and
// Ciphertext are the known span (13+ bytes) the attack itself operates on
// -- typically the start of the entry's decompressed body, not the
// encrypted header. Header, when non-empty, is the entry's own 12-byte
// encrypted header, used only after the attack succeeds to walk its
// result back past the header to the true internal representation; leave
// it empty when the known span isn't anchored to a real encrypted
// header, and the attack's own output is reported as-is.
type PlaintextConfig struct {
	Plaintext  []byte
	Ciphertext []byte
	Header     []byte
}

// Session coordinates one engine run and publishes Stats/Result exactly
// once, mirroring cracker.Runner's onceResult/statsCh/resultCh shape.
type Session struct {
	statsCh  chan Stats
	resultCh chan Result

	onceResult sync.Once
	result     Result

	progress    atomic.Uint64
	reportEvery time.Duration

	cancel func()
}

func newSession() *Session {
	return &Session{
		statsCh:     make(chan Stats, 8),
		resultCh:    make(chan Result, 1),
		reportEvery: 2 * time.Second,
	}
}

func (s *Session) StatsCh() <-chan Stats   { return s.statsCh }
func (s *Session) ResultCh() <-chan Result { return s.resultCh }
func (s *Session) GetResult() Result       { return s.result }

func (s *Session) publish(res Result) {
	s.onceResult.Do(func() {
		s.result = res
		select {
		case s.resultCh <- res:
		default:
		}
	})
}

// runStatsPublisher ticks reportEvery until ctx is done, emitting a Stats
// snapshot of the shared progress counter each time.
func (s *Session) runStatsPublisher(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	t := time.NewTicker(s.reportEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			total := s.progress.Load()
			snap := Stats{PerThread: []uint64{total}, Total: total, Timestamp: now}
			select {
			case s.statsCh <- snap:
			default:
			}
		}
	}
}

func (s *Session) finish(ctx context.Context, wg *sync.WaitGroup) {
	wg.Wait()
	close(s.statsCh)
	if !s.result.Found {
		s.publish(Result{Found: false})
	}
	close(s.resultCh)
}

// RunBruteforce starts a brute-force session in the background and returns
// immediately; progress and the result arrive on StatsCh/ResultCh.
func RunBruteforce(parent context.Context, cfg BruteforceConfig, workers int) *Session {
	s := newSession()
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel

	var wg sync.WaitGroup
	wg.Add(2)
	go s.runStatsPublisher(ctx, &wg)
	go func() {
		defer wg.Done()
		pw, ok, err := bruteforce.Run(ctx, bruteforce.Config{
			VData:    cfg.VData,
			Verifier: cfg.Verifier,
			Charset:  cfg.Charset,
			Initial:  cfg.Initial,
			MaxLen:   cfg.MaxLen,
			Progress: &s.progress,
		}, workers)
		if err != nil || !ok {
			cancel()
			return
		}
		s.publish(Result{Found: true, Password: pw})
		cancel()
	}()
	go s.finish(ctx, &wg)
	return s
}

// RunDict starts a dictionary session in the background.
func RunDict(parent context.Context, cfg DictConfig) *Session {
	s := newSession()
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel

	var wg sync.WaitGroup
	wg.Add(2)
	go s.runStatsPublisher(ctx, &wg)
	go func() {
		defer wg.Done()
		pw, err := dict.Run(ctx, cfg.Wordlist, cfg.VData, cfg.Verifier, &s.progress)
		if err != nil {
			cancel()
			return
		}
		s.publish(Result{Found: true, Password: pw})
		cancel()
	}()
	go s.finish(ctx, &wg)
	return s
}

// RunPlaintext starts a known-plaintext session: it reduces the candidate
// key2[13] set from the full ciphertext, runs the attack, walks its result
// back past cfg.Header (when one is given) to the internal representation,
// and recovers the password from it.
func RunPlaintext(parent context.Context, cfg PlaintextConfig, workers int) *Session {
	s := newSession()
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel

	var wg sync.WaitGroup
	wg.Add(2)
	go s.runStatsPublisher(ctx, &wg)
	go func() {
		defer wg.Done()

		n := len(cfg.Plaintext)
		bits := key2reduce.NewBits152Cache()
		key3At := func(i int) byte {
			return key2reduce.Key3(cfg.Plaintext[i], cfg.Ciphertext[i])
		}
		reduced := key2reduce.Reduce(ctx, bits, key3At, n)

		interRep, err := ptext.Attack(ctx, reduced, cfg.Plaintext, cfg.Ciphertext, bits, workers, &s.progress)
		if err != nil {
			cancel()
			return
		}

		start := ptext.FindInternalRep(interRep, cfg.Header)
		pw, perr := ptext.RecoverPassword(start)
		if perr != nil {
			s.publish(Result{Found: true, InternalRep: start})
			cancel()
			return
		}
		s.publish(Result{Found: true, Password: pw, InternalRep: start})
		cancel()
	}()
	go s.finish(ctx, &wg)
	return s
}
