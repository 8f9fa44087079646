package dsp

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/rowanvale/audiodevice/internal/convert"
	"github.com/rowanvale/audiodevice/internal/mix"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// byteUpstream serves bytes from a fixed buffer, frameBytes at a time.
type byteUpstream struct {
	data       []byte
	frameBytes int
	pos        int
}

func (u *byteUpstream) Read(frameCount int, out []byte) int {
	avail := (len(u.data) - u.pos) / u.frameBytes
	n := frameCount
	if n > avail {
		n = avail
	}
	copy(out[:n*u.frameBytes], u.data[u.pos:u.pos+n*u.frameBytes])
	u.pos += n * u.frameBytes
	return n
}

// TestPassthroughIsByteIdentical is the ∀ property from spec.md §8: when
// format/channels/rate/map all match, is_passthrough holds and reading N
// frames is byte-identical to reading N frames from upstream directly.
func TestPassthroughIsByteIdentical(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		channels := rapid.IntRange(1, 8).Draw(rt, "channels")
		frameCount := rapid.IntRange(1, 64).Draw(rt, "frameCount")
		rate := rapid.IntRange(4000, 96000).Draw(rt, "rate")

		frameBytes := channels * convert.S16.BytesPerSample()
		data := make([]byte, frameCount*frameBytes)
		for i := range data {
			data[i] = byte(rapid.IntRange(0, 255).Draw(rt, "byte"))
		}

		up := &byteUpstream{data: append([]byte(nil), data...), frameBytes: frameBytes}
		p := Build(Config{
			ChannelsIn: channels, ChannelsOut: channels,
			RateIn: rate, RateOut: rate,
			FormatIn: convert.S16, FormatOut: convert.S16,
		}, up)
		require.True(rt, p.IsPassthrough())

		out := make([]byte, len(data))
		got := p.Read(frameCount, out)
		require.Equal(rt, frameCount, got)
		require.Equal(rt, data, out)
	})
}

// TestFormatRoundTripSine is scenario 4 from spec.md §8: a sine wave
// through f32 -> s16 -> f32 should have peak error <= 1/32768.
func TestFormatRoundTripSine(t *testing.T) {
	const n = 256
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(math.Sin(2 * math.Pi * float64(i) / 32))
	}
	raw := make([]byte, n*4)
	for i, v := range samples {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
	}

	up := &byteUpstream{data: raw, frameBytes: 4}
	toS16 := Build(Config{
		ChannelsIn: 1, ChannelsOut: 1,
		RateIn: 48000, RateOut: 48000,
		FormatIn: convert.F32, FormatOut: convert.S16,
	}, up)
	s16Buf := make([]byte, n*2)
	got := toS16.Read(n, s16Buf)
	require.Equal(t, n, got)

	s16Up := &byteUpstream{data: s16Buf, frameBytes: 2}
	backToF32 := Build(Config{
		ChannelsIn: 1, ChannelsOut: 1,
		RateIn: 48000, RateOut: 48000,
		FormatIn: convert.S16, FormatOut: convert.F32,
	}, s16Up)
	outBuf := make([]byte, n*4)
	got = backToF32.Read(n, outBuf)
	require.Equal(t, n, got)

	var peak float64
	for i := 0; i < n; i++ {
		v := math.Float32frombits(binary.LittleEndian.Uint32(outBuf[i*4:]))
		diff := math.Abs(float64(v) - float64(samples[i]))
		if diff > peak {
			peak = diff
		}
	}
	require.LessOrEqual(t, peak, 1.0/32768)
}

// TestChannelRemapScenario5 is scenario 5 from spec.md §8, exercised
// through the full pipeline build+read instead of calling internal/mix
// directly.
func TestChannelRemapScenario5(t *testing.T) {
	mapIn := []mix.Position{1, 2, 3, 4, 5, 6}
	mapOut := []mix.Position{1, 2, 5, 6, 3, 4}

	frame := []float32{1, 2, 3, 4, 5, 6}
	raw := make([]byte, 4*6)
	for i, v := range frame {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
	}
	up := &byteUpstream{data: raw, frameBytes: 24}

	p := Build(Config{
		ChannelsIn: 6, ChannelsOut: 6,
		RateIn: 48000, RateOut: 48000,
		FormatIn: convert.F32, FormatOut: convert.F32,
		MapIn: mapIn, MapOut: mapOut,
	}, up)
	require.True(t, p.IsChannelMappingRequired())
	require.False(t, p.IsPassthrough())

	out := make([]byte, 4*6)
	got := p.Read(1, out)
	require.Equal(t, 1, got)

	want := []float32{1, 2, 5, 6, 3, 4}
	for i, w := range want {
		v := math.Float32frombits(binary.LittleEndian.Uint32(out[i*4:]))
		require.InDelta(t, w, v, 1e-6)
	}
}

// TestMismatchedRateDisablesPassthrough ensures rate differences force
// is_src_required and disable is_passthrough.
func TestMismatchedRateDisablesPassthrough(t *testing.T) {
	up := &byteUpstream{data: make([]byte, 1024), frameBytes: 2}
	p := Build(Config{
		ChannelsIn: 1, ChannelsOut: 1,
		RateIn: 22050, RateOut: 44100,
		FormatIn: convert.S16, FormatOut: convert.S16,
	}, up)
	require.True(t, p.IsSRCRequired())
	require.False(t, p.IsPassthrough())
}
