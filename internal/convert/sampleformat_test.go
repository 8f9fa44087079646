package convert

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// Table-driven reference conversions, transcribed directly from spec.md
// §4.1's exact-semantics table.
func TestReferenceConversions(t *testing.T) {
	t.Run("u8 to s16", func(t *testing.T) {
		dst := make([]byte, 2)
		U8ToS16(dst, []byte{200}, 1)
		require.Equal(t, int16((200-128)<<8), int16(binary.LittleEndian.Uint16(dst)))
	})

	t.Run("s16 to s32", func(t *testing.T) {
		dst := make([]byte, 4)
		src := make([]byte, 2)
		binary.LittleEndian.PutUint16(src, uint16(int16(12345)))
		S16ToS32(dst, src, 1)
		require.Equal(t, int32(12345)<<16, int32(binary.LittleEndian.Uint32(dst)))
	})

	t.Run("s32 to f32 positive full scale", func(t *testing.T) {
		dst := make([]byte, 4)
		src := make([]byte, 4)
		binary.LittleEndian.PutUint32(src, uint32(int32(2147483647)))
		S32ToF32(dst, src, 1)
		got := math.Float32frombits(binary.LittleEndian.Uint32(dst))
		require.InDelta(t, 1.0, got, 1e-6)
	})

	t.Run("s32 to f32 negative full scale", func(t *testing.T) {
		dst := make([]byte, 4)
		src := make([]byte, 4)
		binary.LittleEndian.PutUint32(src, uint32(int32(-2147483648)))
		S32ToF32(dst, src, 1)
		got := math.Float32frombits(binary.LittleEndian.Uint32(dst))
		require.InDelta(t, -1.0, got, 1e-6)
	})

	t.Run("f32 to s16 clips out of range", func(t *testing.T) {
		dst := make([]byte, 2)
		src := make([]byte, 4)
		binary.LittleEndian.PutUint32(src, math.Float32bits(2.5))
		F32ToS16(dst, src, 1)
		require.Equal(t, int16(32767), int16(binary.LittleEndian.Uint16(dst)))
	})

	t.Run("same format is memcpy", func(t *testing.T) {
		src := []byte{1, 2, 3, 4}
		dst := make([]byte, 4)
		Convert(dst, S32, src, S32, 1)
		require.Equal(t, src, dst)
	})

	t.Run("zero sample count is a no-op", func(t *testing.T) {
		dst := []byte{9, 9, 9, 9}
		src := []byte{1, 2, 3, 4}
		Convert(dst, F32, src, S32, 0)
		require.Equal(t, []byte{9, 9, 9, 9}, dst)
	})
}

// fullScale mirrors the asymmetric scale table from spec.md §4.1, used to
// bound the round-trip error property below.
func fullScale(f Format) float64 {
	switch f {
	case U8:
		return 127
	case S16:
		return 32767
	case S24:
		return 8388607
	case S32:
		return 2147483647
	}
	return 1
}

// TestRoundTripErrorBound is the ∀ property from spec.md §8: for every
// sample x in [-1, +1] and integer format F, f32 -> F -> f32 must round
// trip within 2/fullScale(F).
func TestRoundTripErrorBound(t *testing.T) {
	formats := []Format{U8, S16, S24, S32}
	for _, f := range formats {
		f := f
		t.Run(f.testName(), func(t *testing.T) {
			rapid.Check(t, func(rt *rapid.T) {
				x := float32(rapid.Float64Range(-1, 1).Draw(rt, "x"))

				encoded := make([]byte, f.BytesPerSample())
				fsrc := make([]byte, 4)
				binary.LittleEndian.PutUint32(fsrc, math.Float32bits(x))
				Convert(encoded, f, fsrc, F32, 1)

				decoded := make([]byte, 4)
				Convert(decoded, F32, encoded, f, 1)
				roundTripped := math.Float32frombits(binary.LittleEndian.Uint32(decoded))

				bound := 2 / fullScale(f)
				assert.LessOrEqualf(t, math.Abs(float64(roundTripped)-float64(x)), bound,
					"round trip of %v through %v: got %v, want within %v", x, f, roundTripped, bound)
			})
		})
	}
}

// testName gives each format a stable subtest name without leaking a
// String() method this package doesn't otherwise need.
func (f Format) testName() string {
	switch f {
	case U8:
		return "u8"
	case S16:
		return "s16"
	case S24:
		return "s24"
	case S32:
		return "s32"
	default:
		return "f32"
	}
}
