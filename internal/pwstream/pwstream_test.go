package pwstream

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateSingleStreamCoversWholePool(t *testing.T) {
	s := Generate(26, 3, 1)
	require.Equal(t, 0, s.StartIdx(0, 0))
	require.Equal(t, 25, s.StopIdx(0, 0))
	require.False(t, s.IsEmpty(0))
}

func TestGenerateStreamsEqualsPoolSplitsPositionZero(t *testing.T) {
	const plen = 10
	s := Generate(plen, 2, plen)
	seen := make(map[int]bool)
	for i := 0; i < plen; i++ {
		start := s.StartIdx(i, 0)
		stop := s.StopIdx(i, 0)
		require.Equal(t, start, stop, "stream %d should own exactly one index at position 0", i)
		seen[start] = true
	}
	require.Len(t, seen, plen)
}

func TestGenerateFewerStreamsThanPoolPartitionsPositionZero(t *testing.T) {
	const plen = 26
	const streams = 4
	s := Generate(plen, 5, streams)

	var covered int
	for i := 0; i < streams; i++ {
		start := s.StartIdx(i, 0)
		stop := s.StopIdx(i, 0)
		require.LessOrEqual(t, start, stop)
		covered += stop - start + 1
	}
	require.Equal(t, plen, covered, "position-0 ranges across all streams should partition the full pool")
}

func TestGenerateMoreStreamsThanPoolAssignsOnePerCharacter(t *testing.T) {
	const plen = 5
	s := Generate(plen, 2, 12)
	for i := 0; i < plen; i++ {
		require.False(t, s.IsEmpty(i), "stream %d should have been assigned work", i)
	}
}

func TestGenerateCapsStreamsWhenSpaceTooSmall(t *testing.T) {
	// poolLen^pwLen == 2^2 == 4, far fewer than the 100 streams requested.
	s := Generate(2, 2, 100)
	require.Equal(t, 100, s.StreamCount())
	require.True(t, s.IsEmpty(50), "streams beyond the tiny password space should be empty")
}

func TestPwLenReported(t *testing.T) {
	s := Generate(10, 7, 3)
	require.Equal(t, 7, s.PwLen())
}

func TestStartStopIdxOutOfRange(t *testing.T) {
	s := Generate(10, 3, 2)
	require.Equal(t, -1, s.StartIdx(-1, 0))
	require.Equal(t, -1, s.StartIdx(99, 0))
	require.Equal(t, -1, s.StopIdx(99, 0))
}
