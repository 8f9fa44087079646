package src

import (
	"errors"

	"github.com/rowanvale/audiodevice/internal/convert"
)

// Algorithm selects the SRC's interpolation strategy. Only None (a
// format-converting passthrough) and Linear are implemented — spec.md §1
// explicitly excludes arbitrary-quality resampling.
type Algorithm int

const (
	AlgorithmNone Algorithm = iota
	AlgorithmLinear
)

// Config describes one SRC instance, per spec.md §3.
type Config struct {
	RateIn, RateOut     int
	FormatIn, FormatOut convert.Format
	Channels            int
	CacheCapacityFrames int // <= MaxCacheFrames
	CacheRefillFrames   int
	Algorithm           Algorithm
}

// ErrInvalidRate is returned by New when RateIn or RateOut is <= 0, per
// spec.md §4.5's "rate 0 => reject at init" edge case.
var ErrInvalidRate = errors.New("src: sample rate must be > 0")

// SRC is the pull-based linear sample-rate converter of spec.md §4.5.
// Reads are stateful across calls: the prev/next bin and phase persist
// between Read invocations, the same way a hardware resampler's filter
// state would.
type SRC struct {
	cfg   Config
	cache *Cache
	ratio float64 // r = rate_in / rate_out

	loaded      bool // initial prev/next fetch has happened
	done        bool // no further frames can ever be produced
	pendingDone bool // upstream ran dry mid-shift; one more frame is owed

	alpha float64
	prev  []float32 // len == channels
	next  []float32
}

// New builds an SRC over upstream. If cfg.RateIn == cfg.RateOut, the
// algorithm is silently downgraded to AlgorithmNone regardless of
// cfg.Algorithm, per spec.md §4.5's identical-rate edge case.
func New(cfg Config, upstream Upstream) (*SRC, error) {
	if cfg.RateIn <= 0 || cfg.RateOut <= 0 {
		return nil, ErrInvalidRate
	}
	if cfg.RateIn == cfg.RateOut {
		cfg.Algorithm = AlgorithmNone
	}
	return &SRC{
		cfg:   cfg,
		cache: NewCache(upstream, cfg.FormatIn, cfg.Channels, cfg.CacheCapacityFrames, cfg.CacheRefillFrames),
		ratio: float64(cfg.RateIn) / float64(cfg.RateOut),
		prev:  make([]float32, cfg.Channels),
		next:  make([]float32, cfg.Channels),
	}, nil
}

// IsPassthrough reports whether this SRC performs no rate conversion
// (only, at most, a format conversion).
func (s *SRC) IsPassthrough() bool {
	return s.cfg.Algorithm == AlgorithmNone
}

// Read produces up to n output frames of cfg.FormatOut into out (which
// must hold n*channels*cfg.FormatOut.BytesPerSample() bytes), returning
// the number of frames actually produced. Fewer than n means upstream is
// exhausted.
func (s *SRC) Read(n int, out []byte) int {
	if s.cfg.Algorithm == AlgorithmNone {
		return s.readPassthrough(n, out)
	}
	return s.readLinear(n, out)
}

func (s *SRC) readPassthrough(n int, out []byte) int {
	f32buf := make([]float32, n*s.cfg.Channels)
	got := s.cache.ReadFrames(n, f32buf)
	f32bytes := make([]byte, got*s.cfg.Channels*4)
	encodeF32(f32bytes, f32buf[:got*s.cfg.Channels])
	convert.Convert(out, s.cfg.FormatOut, f32bytes, convert.F32, got*s.cfg.Channels)
	return got
}

func (s *SRC) readLinear(n int, out []byte) int {
	ch := s.cfg.Channels
	produced := 0
	frame := make([]float32, ch)
	frameBytes := make([]byte, 4*ch)

	for produced < n {
		if s.done {
			break
		}
		if !s.loaded {
			if !s.loadInitial() {
				break
			}
		}
		// A fetch failure mid-shift on a prior iteration owes exactly one
		// more frame (the shifted prev, now at alpha 0) before stopping —
		// this iteration is it.
		if s.pendingDone {
			s.done = true
		}

		for c := 0; c < ch; c++ {
			frame[c] = s.prev[c]*float32(1-s.alpha) + s.next[c]*float32(s.alpha)
		}
		encodeF32(frameBytes, frame)
		convert.Convert(out[produced*ch*s.cfg.FormatOut.BytesPerSample():], s.cfg.FormatOut, frameBytes, convert.F32, ch)
		produced++

		if s.done {
			break
		}

		s.alpha += s.ratio
		for s.alpha >= 1 {
			s.alpha -= 1
			copy(s.prev, s.next)
			if s.cache.ReadFrames(1, s.next) == 0 {
				// Cache exhausted mid-shift: zero the unknown next channels.
				// The frame just emitted used the last fully-known pair;
				// one further iteration is owed (the shifted prev, at the
				// reset alpha) before readLinear stops for good.
				for c := range s.next {
					s.next[c] = 0
				}
				s.alpha = 0
				s.pendingDone = true
				break
			}
		}
	}
	return produced
}

// loadInitial performs spec.md §4.5's "Initial load": fetch 2 frames; if
// upstream yields only 1, that single frame is emitted as-is (phase 0)
// and no bonus frame follows; if upstream yields 0, there is nothing to
// produce at all.
func (s *SRC) loadInitial() bool {
	s.loaded = true
	s.alpha = 0
	if s.cache.ReadFrames(1, s.prev) == 0 {
		s.done = true
		return false
	}
	if s.cache.ReadFrames(1, s.next) == 0 {
		copy(s.next, s.prev)
		// Exactly one frame ever available: emit it this iteration (alpha
		// stays 0, so the blend reduces to prev) and stop immediately
		// after — no owed bonus frame, unlike the mid-shift case.
		s.done = true
	}
	return true
}

func encodeF32(dst []byte, src []float32) {
	for i, v := range src {
		putF32(dst[i*4:], v)
	}
}
