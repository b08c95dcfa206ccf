package key2reduce

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"zipcrack/internal/cipher"
	"zipcrack/internal/keyarray"
)

func TestKey3IsXor(t *testing.T) {
	require.Equal(t, byte(0), Key3(0x42, 0x42))
	require.Equal(t, byte(0x12^0x34), Key3(0x12, 0x34))
}

func TestBits152CacheMembersMatchDecryptByte(t *testing.T) {
	c := NewBits152Cache()
	for key3 := 0; key3 < 256; key3 += 17 {
		for _, v := range c.For(byte(key3)) {
			require.Equal(t, byte(key3), cipher.DecryptByte(uint32(v)),
				"cached candidate %#x should decrypt to key3 %#x", v, key3)
		}
	}
}

func TestBits152CacheCoversEveryKey3(t *testing.T) {
	c := NewBits152Cache()
	// bits152FromKey3 scans pow2_16 values in steps of 4, so the buckets
	// partition exactly pow2_16/4 candidates across all 256 key3 values.
	var total int
	for key3 := 0; key3 < 256; key3++ {
		total += len(c.For(byte(key3)))
	}
	require.Equal(t, pow2_16/4, total)
}

func TestFirstGenerationSize(t *testing.T) {
	bits := []uint16{0x0102, 0x0304, 0x0506}
	gen := FirstGeneration(bits)
	require.Equal(t, pow2_16*len(bits), gen.Len())
}

func TestFirstGenerationComposesHiAndLo(t *testing.T) {
	bits := []uint16{0xabcd}
	gen := FirstGeneration(bits)
	require.Equal(t, pow2_16, gen.Len())
	require.Equal(t, uint32(0xabcd), gen.At(0))
	require.Equal(t, uint32(1)<<16|0xabcd, gen.At(1))
}

func TestStepEmptyInputReturnsEmpty(t *testing.T) {
	cur := keyarray.New(0)
	out := Step(context.Background(), cur, []uint16{1, 2}, []uint16{3, 4}, Mask6Bits)
	require.Equal(t, 0, out.Len())
}

func TestStepContextCancellationStopsEarly(t *testing.T) {
	bits := NewBits152Cache()
	cur := FirstGeneration(bits.For(0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := Step(ctx, cur, bits.For(1), bits.For(2), Mask6Bits)
	require.NotNil(t, out)
}

func TestStepResultIsDeduplicated(t *testing.T) {
	bits := NewBits152Cache()
	cur := keyarray.New(0)
	cur.AppendAll([]uint32{0x12345678, 0x12345678, 0x87654321})
	out := Step(context.Background(), cur, bits.For(0x11), bits.For(0x22), Mask8Bits)

	seen := make(map[uint32]bool)
	for _, v := range out.Slice() {
		require.False(t, seen[v], "Step output must be deduplicated, found repeat %#x", v)
		seen[v] = true
	}
}
