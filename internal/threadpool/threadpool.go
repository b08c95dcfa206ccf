// Package threadpool implements the worker-pool contract shared by the
// bruteforce and plaintext-attack sessions: work units
// distributed round-robin to a fixed number of workers, FIFO within a
// worker, and a cancel-siblings signal the first successful worker raises.
//
// Grounded on original_source/lib/pool.h's contract (submit_work/wait/
// wait_idle, the MORE/EXIT/CANCELSIBLINGS return codes) and the barrier +
// mutex-protected active/cleanup bookkeeping in
// original_source/zc_crk_bforce.c's alloc_workers/start_workers/wait_workers.
// The startup barrier is kept as a sync.WaitGroup start gate in Run;
// pthread_cancel is replaced per §9 by a context.Context checked at safe
// points plus an explicit CancelSiblings return value — there is no Go
// equivalent to asynchronous thread
// cancellation, so "async mode" becomes "checked every batch" rather than
// "checked at arbitrary instructions".
package threadpool

import (
	"context"
	"runtime"
	"sync"
)

// Outcome is a work function's return code (do_work's MORE/EXIT/CANCELSIBLINGS).
type Outcome int

const (
	// More means: continue with the next unit on this worker's queue.
	More Outcome = iota
	// Exit means: stop processing this worker's queue cleanly.
	Exit
	// CancelSiblings means: stop, and ask the pool to cancel every other worker.
	CancelSiblings
)

// WorkFunc processes one work unit for the given worker id. ctx is
// cancelled once any worker returns CancelSiblings.
type WorkFunc func(ctx context.Context, unit any, workerID int) Outcome

// Pool is a fixed-size set of workers draining independent FIFO queues.
type Pool struct {
	n       int
	queues  [][]any
	next    int // round-robin cursor for Submit
}

// New returns a pool sized n; n <= 0 means "auto: online CPU count", per
// §4.11's `new(n)` contract.
func New(n int) *Pool {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	return &Pool{n: n, queues: make([][]any, n)}
}

// NumWorkers reports the pool's worker count.
func (p *Pool) NumWorkers() int { return p.n }

// Submit enqueues a work unit onto the next worker's queue in round-robin
// order.
func (p *Pool) Submit(unit any) {
	p.queues[p.next%p.n] = append(p.queues[p.next%p.n], unit)
	p.next++
}

// Run starts every worker, each draining its queue FIFO via fn, and blocks
// until all workers finish (equivalent to submit_start+wait). The first
// worker to return CancelSiblings cancels the context every other worker
// observes; Run reports whether any worker did so.
func (p *Pool) Run(ctx context.Context, fn WorkFunc) bool {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	var foundMu sync.Mutex
	found := false

	// Start gate: mirrors the original's pthread_barrier synchronizing the
	// moment every worker begins, so no worker races ahead before its
	// siblings are ready to observe cancellation.
	var gate sync.WaitGroup
	gate.Add(p.n)

	for id := 0; id < p.n; id++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			gate.Done()
			gate.Wait()

			for _, unit := range p.queues[id] {
				if ctx.Err() != nil {
					return
				}
				switch fn(ctx, unit, id) {
				case More:
					continue
				case Exit:
					return
				case CancelSiblings:
					foundMu.Lock()
					found = true
					foundMu.Unlock()
					cancel()
					return
				}
			}
		}(id)
	}
	wg.Wait()
	return found
}
