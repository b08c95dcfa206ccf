package threadpool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewAutoSizesFromCPUCount(t *testing.T) {
	p := New(0)
	require.Greater(t, p.NumWorkers(), 0)
}

func TestNewHonorsExplicitSize(t *testing.T) {
	p := New(4)
	require.Equal(t, 4, p.NumWorkers())
}

func TestSubmitRoundRobins(t *testing.T) {
	p := New(3)
	for i := 0; i < 9; i++ {
		p.Submit(i)
	}
	for id := 0; id < 3; id++ {
		require.Len(t, p.queues[id], 3)
	}
	require.Equal(t, 0, p.queues[0][0])
	require.Equal(t, 3, p.queues[0][1])
}

func TestRunProcessesEveryUnit(t *testing.T) {
	p := New(4)
	const total = 40
	for i := 0; i < total; i++ {
		p.Submit(i)
	}

	var processed atomic.Int64
	found := p.Run(context.Background(), func(ctx context.Context, unit any, workerID int) Outcome {
		processed.Add(1)
		return More
	})

	require.False(t, found)
	require.EqualValues(t, total, processed.Load())
}

func TestRunCancelSiblingsStopsOtherWorkers(t *testing.T) {
	p := New(4)
	for w := 0; w < 4; w++ {
		for i := 0; i < 100; i++ {
			p.Submit(w)
		}
	}

	var mu sync.Mutex
	counts := make(map[int]int)

	found := p.Run(context.Background(), func(ctx context.Context, unit any, workerID int) Outcome {
		mu.Lock()
		counts[workerID]++
		n := counts[workerID]
		mu.Unlock()

		if workerID == 0 && n == 2 {
			return CancelSiblings
		}
		return More
	})

	require.True(t, found)
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 2, counts[0], "the cancelling worker should stop right after raising CancelSiblings")
	for w := 1; w < 4; w++ {
		require.Less(t, counts[w], 100, "sibling worker %d should have been cancelled before draining its full queue", w)
	}
}

func TestRunExitStopsOnlyThatWorker(t *testing.T) {
	p := New(2)
	for i := 0; i < 5; i++ {
		p.Submit(0)
		p.Submit(1)
	}

	var mu sync.Mutex
	counts := make(map[int]int)

	found := p.Run(context.Background(), func(ctx context.Context, unit any, workerID int) Outcome {
		mu.Lock()
		counts[workerID]++
		n := counts[workerID]
		mu.Unlock()
		if workerID == 0 && n == 2 {
			return Exit
		}
		return More
	})

	require.False(t, found)
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 2, counts[0])
	require.Equal(t, 5, counts[1])
}

func TestRunRespectsAlreadyCancelledContext(t *testing.T) {
	p := New(2)
	for i := 0; i < 10; i++ {
		p.Submit(i)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var processed atomic.Int64
	p.Run(ctx, func(ctx context.Context, unit any, workerID int) Outcome {
		processed.Add(1)
		return More
	})
	require.EqualValues(t, 0, processed.Load())
}
