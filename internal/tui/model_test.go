package tui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFormatPasswordPrintableBytes(t *testing.T) {
	require.Equal(t, "hunter2", FormatPassword([]byte("hunter2")))
}

func TestFormatPasswordEscapesNonPrintable(t *testing.T) {
	got := FormatPassword([]byte{'a', 0x00, 0x7f, 'b'})
	require.Equal(t, "a0x00"+"0x7f"+"b", got)
}

func TestComputeTotalCombinations(t *testing.T) {
	// alphabet of 2, lengths 1..3: 2 + 4 + 8 = 14
	got := computeTotalCombinations(2, 1, 3)
	require.Equal(t, int64(14), got.Int64())
}

func TestPercentOfClampsRange(t *testing.T) {
	total := computeTotalCombinations(2, 1, 3)
	require.Equal(t, 0.0, percentOf(computeTotalCombinations(0, 0, 0), total))
	// 2 + 4 + 8 + 16 = 30 done out of 14 clamps to 1.
	require.Equal(t, 1.0, percentOf(computeTotalCombinations(2, 1, 4), total))
}

func TestProgressBarFullAndEmpty(t *testing.T) {
	require.Equal(t, "[░░░░]", progressBar(0, 4))
	require.Equal(t, "[████]", progressBar(1, 4))
}

func TestHumanizeDurationUnderSecond(t *testing.T) {
	require.Equal(t, (500 * time.Millisecond).String(), humanizeDuration(500*time.Millisecond))
}

func TestHumanizeDurationMinutesSeconds(t *testing.T) {
	require.Equal(t, "2m 5s", humanizeDuration(2*time.Minute+5*time.Second))
}

func TestNewModelSizesPerThreadSlices(t *testing.T) {
	m := NewModel(Config{Workers: 3})
	require.Len(t, m.perSec, 3)
	require.Len(t, m.lastCounts, 3)
}
