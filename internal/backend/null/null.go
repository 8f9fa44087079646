// Package null implements the silence backend of spec.md §4.2: no OS
// calls at all, the endpoint buffer is just a byte slice, and
// wait_for_frames paces itself off a wall-clock period deadline instead
// of real hardware notifications. It is the only backend exercised
// end-to-end by this module's tests (spec.md §8 scenarios 1-3).
package null

import (
	"time"

	"github.com/rowanvale/audiodevice/internal/backend"
	"github.com/rowanvale/audiodevice/internal/primitives"
	"github.com/rowanvale/audiodevice/internal/ring"
)

// defaultBufferMs mirrors spec.md §3's "buffer_size_in_frames = 0 =>
// sample_rate/1000 * 25ms" default.
const defaultBufferMs = 25
const defaultPeriodCount = 2

// Backend is the null backend singleton; it holds no process-global
// state so CtxInit/CtxUninit are no-ops.
type Backend struct{}

// New returns a ready-to-use null Backend.
func New() *Backend { return &Backend{} }

func (b *Backend) Name() string { return "null" }

func (b *Backend) CtxInit() error   { return nil }
func (b *Backend) CtxUninit() error { return nil }

func (b *Backend) Enumerate(t backend.DeviceType, out []backend.Info) ([]backend.Info, error) {
	if len(out) == 0 {
		return out[:0], nil
	}
	out[0] = backend.Info{ID: "null", Name: "Null Audio Device", Default: true}
	return out[:1], nil
}

func (b *Backend) DevInit(cfg *backend.Config, src backend.Source, sink backend.Sink) (backend.Device, error) {
	if cfg.BufferSizeInFrames == 0 {
		cfg.BufferSizeInFrames = cfg.SampleRate / 1000 * defaultBufferMs
		cfg.DefaultedBufferSize = true
	}
	if cfg.PeriodCount == 0 {
		cfg.PeriodCount = defaultPeriodCount
		cfg.DefaultedPeriodCount = true
	}
	cfg.Internal.Format = cfg.Format
	cfg.Internal.Channels = cfg.Channels
	cfg.Internal.SampleRate = cfg.SampleRate
	cfg.Internal.ChannelMap = cfg.ChannelMap

	frameBytes := cfg.Internal.Channels * cfg.Internal.Format.BytesPerSample()
	d := &device{
		cfg:         cfg,
		src:         src,
		sink:        sink,
		frameBytes:  frameBytes,
		buf:         make([]byte, cfg.BufferSizeInFrames*frameBytes),
		cur:         ring.NewCursor(cfg.BufferSizeInFrames),
		periodFrames: cfg.BufferSizeInFrames / cfg.PeriodCount,
		breakEvent:  primitives.NewEvent(),
	}
	return d, nil
}

// device is the null backend's Device: a plain byte buffer standing in
// for the OS endpoint.
type device struct {
	cfg *backend.Config
	src backend.Source
	sink backend.Sink

	frameBytes   int
	buf          []byte
	cur          *ring.Cursor
	periodFrames int

	breakEvent *primitives.Event
}

func (d *device) BufferSizeInFrames() int { return d.cfg.BufferSizeInFrames }
func (d *device) PeriodCount() int        { return d.cfg.PeriodCount }

// Start pre-rolls the endpoint buffer (spec.md §4.2/§4.3: playback MUST
// fill the entire buffer with a single pull before the endpoint is
// considered started, so the first period has valid data).
func (d *device) Start() error {
	d.cur.Reset()
	if d.cfg.Type == backend.Playback {
		d.fillRegion(0, d.cfg.BufferSizeInFrames)
		d.cur.AdvanceLast(d.cfg.BufferSizeInFrames)
	}
	return nil
}

func (d *device) Stop() error {
	d.cur.Reset()
	return nil
}

func (d *device) Break() {
	d.breakEvent.Signal()
}

// MainLoop implements spec.md §4.3's I/O loop skeleton over the plain
// byte buffer in place of an OS endpoint.
func (d *device) MainLoop() {
	for {
		n := d.waitForFrames()
		if n == 0 {
			return
		}
		if d.cfg.Type == backend.Playback {
			d.fillRegion(d.cur.Last(), n)
		} else {
			d.drainRegion(d.cur.Last(), n)
		}
		d.cur.AdvanceLast(n)
	}
}

// waitForFrames blocks for one period's worth of wall-clock time, or
// returns 0 immediately once Break has been signaled.
func (d *device) waitForFrames() int {
	deadline := primitives.PeriodDeadline(d.cfg.BufferSizeInFrames, d.cfg.Internal.SampleRate, d.cfg.PeriodCount)
	select {
	case <-d.breakEvent.Done():
		return 0
	case <-time.After(deadline):
		return d.periodFrames
	}
}

// fillRegion pulls n frames from the DSP pipeline into the ring buffer
// starting at start (handling the wrap), zero-filling any shortfall —
// spec.md §8 scenario 3.
func (d *device) fillRegion(start, n int) {
	for _, r := range ring.Split(d.cfg.BufferSizeInFrames, start, n) {
		chunk := d.buf[r.Offset*d.frameBytes : (r.Offset+r.Count)*d.frameBytes]
		got := d.src.Read(r.Count, chunk)
		if got < r.Count {
			for i := got * d.frameBytes; i < len(chunk); i++ {
				chunk[i] = 0
			}
		}
	}
}

// drainRegion hands n frames of captured data to the DSP pipeline's sink.
func (d *device) drainRegion(start, n int) {
	for _, r := range ring.Split(d.cfg.BufferSizeInFrames, start, n) {
		chunk := d.buf[r.Offset*d.frameBytes : (r.Offset+r.Count)*d.frameBytes]
		d.sink.Write(chunk, r.Count)
	}
}

var _ backend.Backend = (*Backend)(nil)
var _ backend.Device = (*device)(nil)
