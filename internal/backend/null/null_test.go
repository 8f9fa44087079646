package null

import (
	"testing"

	"github.com/rowanvale/audiodevice/internal/backend"
	"github.com/rowanvale/audiodevice/internal/convert"
)

// countingSource is a backend.Source test double that records every
// frame count it's asked for and can return fewer than requested.
type countingSource struct {
	totalRequested int
	fn             func(n int, out []byte) int
}

func (s *countingSource) Read(n int, out []byte) int {
	s.totalRequested += n
	if s.fn != nil {
		return s.fn(n, out)
	}
	return n
}

// TestInitAndTearDownNullBackend is scenario 1 from spec.md §8.
func TestInitAndTearDownNullBackend(t *testing.T) {
	b := New()
	if err := b.CtxInit(); err != nil {
		t.Fatalf("CtxInit: %v", err)
	}

	cfg := &backend.Config{
		Type:       backend.Playback,
		Format:     convert.S16,
		Channels:   2,
		SampleRate: 48000,
	}
	src := &countingSource{}
	dev, err := b.DevInit(cfg, src, nil)
	if err != nil {
		t.Fatalf("DevInit: %v", err)
	}
	if got, want := cfg.BufferSizeInFrames, 48*25; got != want {
		t.Fatalf("buffer_size_in_frames = %d, want %d", got, want)
	}
	if got, want := cfg.PeriodCount, 2; got != want {
		t.Fatalf("periods = %d, want %d", got, want)
	}
	if err := dev.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := b.CtxUninit(); err != nil {
		t.Fatalf("CtxUninit: %v", err)
	}
}

// TestPlaybackPreRoll is scenario 2 from spec.md §8.
func TestPlaybackPreRoll(t *testing.T) {
	cfg := &backend.Config{
		Type:               backend.Playback,
		Format:             convert.F32,
		Channels:            1,
		SampleRate:          44100,
		BufferSizeInFrames:  4410,
		PeriodCount:         2,
	}
	src := &countingSource{}
	b := New()
	dev, err := b.DevInit(cfg, src, nil)
	if err != nil {
		t.Fatalf("DevInit: %v", err)
	}

	if err := dev.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if src.totalRequested < 4410 {
		t.Fatalf("cumulative frame_count = %d, want >= 4410", src.totalRequested)
	}
}

// TestUnderflowZeroFill is scenario 3 from spec.md §8.
func TestUnderflowZeroFill(t *testing.T) {
	cfg := &backend.Config{
		Type:               backend.Playback,
		Format:             convert.F32,
		Channels:            1,
		SampleRate:          44100,
		BufferSizeInFrames:  4410,
		PeriodCount:         2,
	}
	src := &countingSource{fn: func(n int, out []byte) int {
		half := n / 2
		for i := 0; i < half; i++ {
			out[i*4] = 0xAA // non-zero marker so we can tell written vs zero-filled
		}
		return half
	}}
	b := New()
	dev, err := b.DevInit(cfg, src, nil)
	if err != nil {
		t.Fatalf("DevInit: %v", err)
	}
	if err := dev.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	nd := dev.(*device)
	half := cfg.BufferSizeInFrames / 2
	for i := half * nd.frameBytes; i < len(nd.buf); i++ {
		if nd.buf[i] != 0 {
			t.Fatalf("byte %d not zero-filled: %x", i, nd.buf[i])
		}
	}
}
