// Package dsp composes internal/convert, internal/mix and internal/src
// into the single pull-based reader of spec.md §4.4: one Read call that
// bridges a client-side format/channel-count/layout/rate onto an
// endpoint-side one, detecting passthrough so the common case costs
// nothing extra.
package dsp

import (
	"encoding/binary"
	"math"

	"github.com/rowanvale/audiodevice/internal/convert"
	"github.com/rowanvale/audiodevice/internal/mix"
	"github.com/rowanvale/audiodevice/internal/src"
)

// scratchBudgetBytes bounds the internal per-chunk scratch, per spec.md
// §4.4's "chunk · max(channels_in, channels_out) · 8 bytes ≤ 4 KiB typical".
const scratchBudgetBytes = 4096

// Config describes one DSP pipeline instance: the client side (In) and
// the endpoint side (Out) of the bridge it builds.
type Config struct {
	ChannelsIn, ChannelsOut int
	RateIn, RateOut         int
	FormatIn, FormatOut     convert.Format
	MapIn, MapOut           []mix.Position // may be nil/empty: no mapping
}

// Upstream is read by the pipeline to pull client-side frames. It mirrors
// internal/src.Upstream so either can be plugged in directly.
type Upstream = src.Upstream

// Pipeline is the built, ready-to-read DSP bridge of spec.md §4.4.
type Pipeline struct {
	cfg Config

	conv *src.SRC // nil when RateIn == RateOut
	up   Upstream // used directly when conv is nil

	postMix      []mix.Position
	shuffleTable []int

	isSRCRequired            bool
	isChannelMappingRequired bool
	isPassthrough            bool
	chunkFrames              int
}

// Build performs spec.md §4.4's build phase over upstream, which yields
// frames in cfg.FormatIn, cfg.ChannelsIn-wide, at cfg.RateIn.
func Build(cfg Config, upstream Upstream) *Pipeline {
	p := &Pipeline{cfg: cfg, up: upstream}

	if cfg.RateIn != cfg.RateOut {
		conv, err := src.New(src.Config{
			RateIn: cfg.RateIn, RateOut: cfg.RateOut,
			FormatIn: cfg.FormatIn, FormatOut: convert.F32,
			Channels:            cfg.ChannelsIn,
			CacheCapacityFrames: src.MaxCacheFrames,
			CacheRefillFrames:   src.MaxCacheFrames,
			Algorithm:           src.AlgorithmLinear,
		}, upstream)
		if err == nil && !conv.IsPassthrough() {
			p.conv = conv
			p.isSRCRequired = true
		}
	}

	if len(cfg.MapIn) > 0 && len(cfg.MapOut) > 0 {
		p.postMix = mix.PostMixMap(cfg.MapIn, cfg.MapOut)
		p.shuffleTable = mix.Shuffle(p.postMix, cfg.MapOut)
		p.isChannelMappingRequired = mix.RequiresMapping(p.postMix, cfg.MapOut)
	}

	p.isPassthrough = !p.isSRCRequired &&
		cfg.ChannelsIn == cfg.ChannelsOut &&
		cfg.FormatIn == cfg.FormatOut &&
		cfg.RateIn == cfg.RateOut &&
		!p.isChannelMappingRequired

	maxCh := cfg.ChannelsIn
	if cfg.ChannelsOut > maxCh {
		maxCh = cfg.ChannelsOut
	}
	if maxCh < 1 {
		maxCh = 1
	}
	p.chunkFrames = scratchBudgetBytes / (maxCh * 8)
	if p.chunkFrames < 1 {
		p.chunkFrames = 1
	}

	return p
}

// IsPassthrough reports spec.md §4.4's is_passthrough flag.
func (p *Pipeline) IsPassthrough() bool { return p.isPassthrough }

// IsSRCRequired reports spec.md §4.4's is_src_required flag.
func (p *Pipeline) IsSRCRequired() bool { return p.isSRCRequired }

// IsChannelMappingRequired reports spec.md §4.4's is_channel_mapping_required flag.
func (p *Pipeline) IsChannelMappingRequired() bool { return p.isChannelMappingRequired }

// Read produces up to n output frames of cfg.FormatOut, cfg.ChannelsOut
// wide, into out. Returns the number of frames actually produced; fewer
// than n means upstream is exhausted.
func (p *Pipeline) Read(n int, out []byte) int {
	if p.isPassthrough {
		return p.up.Read(n, out)
	}

	outFrameBytes := p.cfg.ChannelsOut * p.cfg.FormatOut.BytesPerSample()
	produced := 0
	for produced < n {
		want := n - produced
		if want > p.chunkFrames {
			want = p.chunkFrames
		}
		got := p.readChunk(want, out[produced*outFrameBytes:])
		produced += got
		if got < want {
			break
		}
	}
	return produced
}

// readChunk implements one pass of spec.md §4.4's read-phase steps a-d
// for up to n frames.
func (p *Pipeline) readChunk(n int, out []byte) int {
	chIn, chOut := p.cfg.ChannelsIn, p.cfg.ChannelsOut

	// Step a: pull a chunk, either f32 from the SRC or raw FormatIn bytes
	// from upstream directly.
	var chunkFmt convert.Format
	var raw []byte
	var got int
	if p.conv != nil {
		chunkFmt = convert.F32
		raw = make([]byte, n*chIn*4)
		got = p.conv.Read(n, raw)
	} else {
		chunkFmt = p.cfg.FormatIn
		raw = make([]byte, n*chIn*p.cfg.FormatIn.BytesPerSample())
		got = p.up.Read(n, raw)
	}
	if got == 0 {
		return 0
	}

	needsFloatStage := chIn != chOut || p.isChannelMappingRequired

	if !needsFloatStage {
		// Step d only: straight conversion to FormatOut.
		convert.Convert(out, p.cfg.FormatOut, raw[:got*chIn*chunkFmt.BytesPerSample()], chunkFmt, got*chIn)
		return got
	}

	// Step b: ensure f32, then remix across channel counts.
	f32In := make([]float32, got*chIn)
	if chunkFmt == convert.F32 {
		decodeF32(f32In, raw)
	} else {
		f32Bytes := make([]byte, got*chIn*4)
		convert.Convert(f32Bytes, convert.F32, raw[:got*chIn*chunkFmt.BytesPerSample()], chunkFmt, got*chIn)
		decodeF32(f32In, f32Bytes)
	}

	f32Out := make([]float32, got*chOut)
	mix.Remix(f32Out, f32In, got, chIn, chOut, mix.ModeBlend)

	// Step c: apply the shuffle table per frame, if required.
	if p.isChannelMappingRequired {
		remapped := make([]float32, got*chOut)
		mix.ApplyFrames(remapped, f32Out, got, p.shuffleTable)
		f32Out = remapped
	}

	// Step d: convert f32 -> FormatOut into the caller's buffer.
	f32OutBytes := make([]byte, got*chOut*4)
	encodeF32(f32OutBytes, f32Out)
	convert.Convert(out, p.cfg.FormatOut, f32OutBytes, convert.F32, got*chOut)
	return got
}

func decodeF32(out []float32, raw []byte) {
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
}

func encodeF32(dst []byte, samples []float32) {
	for i, v := range samples {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(v))
	}
}
