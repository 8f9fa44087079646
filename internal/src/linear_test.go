package src

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/rowanvale/audiodevice/internal/convert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// sliceUpstream serves fixed f32 frames, one Read call worth at a time,
// then reports exhaustion.
type sliceUpstream struct {
	frames   [][]float32 // each entry is one frame, channels wide
	channels int
	pos      int
}

func (u *sliceUpstream) Read(frameCount int, out []byte) int {
	n := 0
	for n < frameCount && u.pos < len(u.frames) {
		f := u.frames[u.pos]
		for c := 0; c < u.channels; c++ {
			binary.LittleEndian.PutUint32(out[(n*u.channels+c)*4:], math.Float32bits(f[c]))
		}
		u.pos++
		n++
	}
	return n
}

func constFrames(value float32, channels, count int) [][]float32 {
	out := make([][]float32, count)
	for i := range out {
		f := make([]float32, channels)
		for c := range f {
			f[c] = value
		}
		out[i] = f
	}
	return out
}

func readAllF32(t *testing.T, s *SRC, chunk, channels int) []float32 {
	t.Helper()
	var all []float32
	for {
		buf := make([]byte, chunk*channels*4)
		got := s.Read(chunk, buf)
		for i := 0; i < got*channels; i++ {
			all = append(all, math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:])))
		}
		if got < chunk {
			break
		}
	}
	return all
}

// TestConstantSignalPreserved is the ∀ property from spec.md §8: a
// constant-valued stream through the linear SRC produces the same
// constant at the output, to within 1 ULP of f32.
func TestConstantSignalPreserved(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		rateIn := rapid.IntRange(4000, 96000).Draw(rt, "rateIn")
		rateOut := rapid.IntRange(4000, 96000).Draw(rt, "rateOut")
		value := float32(rapid.Float64Range(-1, 1).Draw(rt, "value"))

		up := &sliceUpstream{frames: constFrames(value, 1, 200), channels: 1}
		conv, err := New(Config{
			RateIn: rateIn, RateOut: rateOut,
			FormatIn: convert.F32, FormatOut: convert.F32,
			Channels: 1, CacheCapacityFrames: 64, CacheRefillFrames: 64,
			Algorithm: AlgorithmLinear,
		}, up)
		require.NoError(rt, err)

		var out []float32
		for {
			buf := make([]byte, 32*4)
			got := conv.Read(32, buf)
			for i := 0; i < got; i++ {
				out = append(out, math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:])))
			}
			if got < 32 {
				break
			}
		}
		for _, v := range out {
			require.InDeltaf(rt, float64(value), float64(v), 1e-5, "got %v want %v", v, value)
		}
	})
}

// TestSameRateDegradesToPassthrough is the ∀ property from spec.md §8:
// when rate_in == rate_out the SRC degrades to a format-converting
// passthrough.
func TestSameRateDegradesToPassthrough(t *testing.T) {
	up := &sliceUpstream{frames: [][]float32{{1}, {2}, {3}, {4}}, channels: 1}
	conv, err := New(Config{
		RateIn: 48000, RateOut: 48000,
		FormatIn: convert.F32, FormatOut: convert.F32,
		Channels: 1, CacheCapacityFrames: 64, CacheRefillFrames: 64,
		Algorithm: AlgorithmLinear, // requested, but rates match so this is ignored
	}, up)
	require.NoError(t, err)
	require.True(t, conv.IsPassthrough())

	out := readAllF32(t, conv, 4, 1)
	require.Equal(t, []float32{1, 2, 3, 4}, out)
}

// TestLinearUpsampleOneToTwo is scenario 6 from spec.md §8.
func TestLinearUpsampleOneToTwo(t *testing.T) {
	up := &sliceUpstream{frames: [][]float32{{0}, {1}, {2}, {3}}, channels: 1}
	conv, err := New(Config{
		RateIn: 1, RateOut: 2,
		FormatIn: convert.F32, FormatOut: convert.F32,
		Channels: 1, CacheCapacityFrames: 64, CacheRefillFrames: 64,
		Algorithm: AlgorithmLinear,
	}, up)
	require.NoError(t, err)

	out := readAllF32(t, conv, 8, 1)
	want := []float32{0, 0.5, 1, 1.5, 2, 2.5, 3}
	require.Len(t, out, len(want))
	for i, w := range want {
		require.InDeltaf(t, w, out[i], 1e-5, "index %d", i)
	}
}
