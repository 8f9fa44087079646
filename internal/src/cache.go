// Package src implements the pull-based linear sample-rate converter of
// spec.md §4.5: a bounded Cache of upstream frames converted to f32, and
// a Linear converter that walks it with a phase accumulator.
package src

import (
	"encoding/binary"
	"math"

	"github.com/rowanvale/audiodevice/internal/convert"
)

// MaxCacheFrames is the hard cap on Cache capacity from spec.md §3.
const MaxCacheFrames = 512

// Upstream is read by a Cache to refill itself. It returns the number of
// frames actually written into out (0 on exhaustion), where out holds
// frameCount*channels samples in the Cache's configured input format.
type Upstream interface {
	Read(frameCount int, out []byte) int
}

// Cache is a fixed-capacity, interleaved f32 frame buffer refilled on
// demand from an Upstream, per spec.md §3/§4.5.
type Cache struct {
	upstream   Upstream
	formatIn   convert.Format
	channels   int
	capacity   int // frames
	refillSize int // frames requested per refill, <= capacity

	buf    []float32 // capacity*channels, f32, channel-interleaved
	raw    []byte    // scratch for the upstream's native format
	fill   int       // valid frames currently in buf
	cursor int       // next unread frame
}

// NewCache builds a Cache. capacityFrames is clamped to [1, MaxCacheFrames];
// refillFrames (spec.md's cache_size_in_frames) is clamped to capacityFrames.
func NewCache(upstream Upstream, formatIn convert.Format, channels, capacityFrames, refillFrames int) *Cache {
	if capacityFrames > MaxCacheFrames {
		capacityFrames = MaxCacheFrames
	}
	if capacityFrames < 1 {
		capacityFrames = 1
	}
	if refillFrames > capacityFrames || refillFrames < 1 {
		refillFrames = capacityFrames
	}
	return &Cache{
		upstream:   upstream,
		formatIn:   formatIn,
		channels:   channels,
		capacity:   capacityFrames,
		refillSize: refillFrames,
		buf:        make([]float32, capacityFrames*channels),
		raw:        make([]byte, capacityFrames*channels*formatIn.BytesPerSample()),
	}
}

// ReadFrames implements spec.md §4.5's Cache.read_frames algorithm: drain
// unread frames, refill from upstream on exhaustion, and stop when either
// n frames have been produced or upstream yields 0. Returns the number
// of frames actually written to out (out must hold n*channels samples).
func (c *Cache) ReadFrames(n int, out []float32) int {
	written := 0
	for n > 0 {
		if c.cursor < c.fill {
			avail := c.fill - c.cursor
			take := n
			if take > avail {
				take = avail
			}
			srcBase := c.cursor * c.channels
			dstBase := written * c.channels
			copy(out[dstBase:dstBase+take*c.channels], c.buf[srcBase:srcBase+take*c.channels])
			c.cursor += take
			written += take
			n -= take
			continue
		}

		if c.refill() == 0 {
			break
		}
	}
	return written
}

// refill asks upstream for up to refillSize frames and converts them to
// f32 in buf. Returns the number of frames obtained.
func (c *Cache) refill() int {
	want := c.refillSize
	got := c.upstream.Read(want, c.raw[:want*c.channels*c.formatIn.BytesPerSample()])
	if got <= 0 {
		c.fill = 0
		c.cursor = 0
		return 0
	}

	sampleCount := got * c.channels
	dstBytes := make([]byte, sampleCount*4)
	convert.Convert(dstBytes, convert.F32, c.raw, c.formatIn, sampleCount)
	decodeF32(c.buf[:sampleCount], dstBytes)

	c.fill = got
	c.cursor = 0
	return got
}

// decodeF32 unpacks little-endian f32 bytes into out.
func decodeF32(out []float32, raw []byte) {
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
}

// putF32 packs a single f32 sample as little-endian bytes, the inverse of
// decodeF32.
func putF32(dst []byte, v float32) {
	binary.LittleEndian.PutUint32(dst, math.Float32bits(v))
}
