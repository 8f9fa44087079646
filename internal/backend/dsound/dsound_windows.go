//go:build windows

// Package dsound implements the backend.Backend contract over
// DirectSound8, the first Windows backend in the default order (spec.md
// §3 orders dsound ahead of wasapi since it is the lowest common
// denominator across Windows versions). Its locked
// double-buffer model is the polling analog of WASAPI's event-driven
// one in internal/backend/wasapi.
package dsound

import (
	"errors"
	"time"
	"unsafe"

	"github.com/rowanvale/audiodevice/internal/backend"
	"github.com/rowanvale/audiodevice/internal/convert"
	"github.com/rowanvale/audiodevice/internal/primitives"
)

// maxPeriods caps DirectSound's period count: its circular buffer gets
// awkward to reason about in Lock/Unlock halves beyond four segments.
const maxPeriods = 4

type Backend struct{}

func New() *Backend { return &Backend{} }

func (b *Backend) Name() string { return "dsound" }

func (b *Backend) CtxInit() error   { return nil }
func (b *Backend) CtxUninit() error { return nil }

func (b *Backend) Enumerate(t backend.DeviceType, out []backend.Info) ([]backend.Info, error) {
	if len(out) == 0 {
		return out[:0], nil
	}
	name := "Default DirectSound Playback"
	if t == backend.Capture {
		name = "Default DirectSound Capture"
	}
	out[0] = backend.Info{ID: "default", Name: name, Default: true}
	return out[:1], nil
}

func (b *Backend) DevInit(cfg *backend.Config, src backend.Source, sink backend.Sink) (backend.Device, error) {
	if cfg.Channels > 2 {
		return nil, errors.New("dsound: only mono or stereo is supported")
	}
	if cfg.BufferSizeInFrames == 0 {
		cfg.BufferSizeInFrames = cfg.SampleRate / 1000 * 25
		cfg.DefaultedBufferSize = true
	}
	if cfg.PeriodCount == 0 {
		cfg.PeriodCount = 2
		cfg.DefaultedPeriodCount = true
	}
	if cfg.PeriodCount > maxPeriods {
		cfg.PeriodCount = maxPeriods
	}

	cfg.Internal.Format = convert.F32
	cfg.Internal.Channels = cfg.Channels
	cfg.Internal.SampleRate = cfg.SampleRate
	cfg.Internal.ChannelMap = cfg.ChannelMap

	frameBytes := cfg.Channels * 4
	periodFrames := cfg.BufferSizeInFrames / cfg.PeriodCount
	bufBytes := uint32(cfg.BufferSizeInFrames * frameBytes)
	fmtPCM := newFloatFormat(cfg.Channels, cfg.SampleRate)

	d := &device{
		cfg:          cfg,
		src:          src,
		sink:         sink,
		frameBytes:   frameBytes,
		periodFrames: periodFrames,
		bufferBytes:  bufBytes,
		breakEvent:   primitives.NewEvent(),
	}

	var err error
	if cfg.Type == backend.Playback {
		var ds unsafe.Pointer
		ds, err = directSoundCreate8(0)
		if err != nil {
			return nil, err
		}
		d.ds = ds
		d.playBuf, err = createSoundBuffer(ds, bufBytes, fmtPCM)
	} else {
		var dsc unsafe.Pointer
		dsc, err = directSoundCaptureCreate8()
		if err != nil {
			return nil, err
		}
		d.dsc = dsc
		d.captureBuf, err = createCaptureBuffer(dsc, bufBytes, fmtPCM)
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

type device struct {
	cfg  *backend.Config
	src  backend.Source
	sink backend.Sink

	frameBytes   int
	periodFrames int
	bufferBytes  uint32

	ds      unsafe.Pointer
	playBuf unsafe.Pointer

	dsc        unsafe.Pointer
	captureBuf unsafe.Pointer

	writeCursor   uint32
	breakEvent    *primitives.Event
}

func (d *device) BufferSizeInFrames() int { return d.cfg.BufferSizeInFrames }
func (d *device) PeriodCount() int        { return d.cfg.PeriodCount }

func (d *device) Start() error {
	d.writeCursor = 0
	if d.cfg.Type == backend.Playback {
		d.fillPeriod(0, d.cfg.BufferSizeInFrames)
		d.writeCursor = d.bufferBytes
		return bufferPlay(d.playBuf)
	}
	return captureBufferStart(d.captureBuf)
}

func (d *device) Stop() error {
	d.writeCursor = 0
	if d.cfg.Type == backend.Playback {
		return bufferStop(d.playBuf)
	}
	return captureBufferStop(d.captureBuf)
}

func (d *device) Break() { d.breakEvent.Signal() }

// MainLoop polls the hardware play/capture cursor since DirectSound8
// has no event-driven notification path wired here (IDirectSoundNotify
// exists but isn't needed at this buffer-size/period scale); the period
// deadline paces the poll the same way internal/backend/null does.
func (d *device) MainLoop() {
	periodDur := time.Duration(d.periodFrames) * time.Second / time.Duration(d.cfg.SampleRate)
	ticker := time.NewTicker(periodDur)
	defer ticker.Stop()

	for {
		select {
		case <-d.breakEvent.Done():
			return
		case <-ticker.C:
		}
		if d.cfg.Type == backend.Playback {
			d.stepPlayback()
		} else {
			d.stepCapture()
		}
	}
}

func (d *device) stepPlayback() {
	playCursor, _, err := bufferGetCurrentPosition(d.playBuf)
	if err != nil {
		return
	}
	available := (playCursor + d.bufferBytes - d.writeCursor) % d.bufferBytes
	frames := int(available) / d.frameBytes
	if frames == 0 {
		return
	}
	d.fillPeriod(int(d.writeCursor)/d.frameBytes, frames)
	d.writeCursor = (d.writeCursor + uint32(frames*d.frameBytes)) % d.bufferBytes
}

func (d *device) fillPeriod(startFrame, frames int) {
	p1, n1, p2, n2, err := bufferLock(d.playBuf, uint32(startFrame*d.frameBytes), uint32(frames*d.frameBytes))
	if err != nil {
		return
	}
	d.fillHalf(p1, n1)
	if n2 > 0 {
		d.fillHalf(p2, n2)
	}
	bufferUnlock(d.playBuf, p1, n1, p2, n2)
}

func (d *device) fillHalf(p unsafe.Pointer, n uint32) {
	if n == 0 {
		return
	}
	buf := unsafe.Slice((*byte)(p), int(n))
	frames := int(n) / d.frameBytes
	got := d.src.Read(frames, buf)
	if got < frames {
		for i := got * d.frameBytes; i < len(buf); i++ {
			buf[i] = 0
		}
	}
}

func (d *device) stepCapture() {
	captureCursor, _, err := captureBufferGetCurrentPosition(d.captureBuf)
	if err != nil {
		return
	}
	available := (captureCursor + d.bufferBytes - d.writeCursor) % d.bufferBytes
	frames := int(available) / d.frameBytes
	if frames == 0 {
		return
	}
	p1, n1, p2, n2, err := captureBufferLock(d.captureBuf, d.writeCursor, uint32(frames*d.frameBytes))
	if err != nil {
		return
	}
	if n1 > 0 {
		d.sink.Write(unsafe.Slice((*byte)(p1), int(n1)), int(n1)/d.frameBytes)
	}
	if n2 > 0 {
		d.sink.Write(unsafe.Slice((*byte)(p2), int(n2)), int(n2)/d.frameBytes)
	}
	captureBufferUnlock(d.captureBuf, p1, n1, p2, n2)
	d.writeCursor = (d.writeCursor + uint32(frames*d.frameBytes)) % d.bufferBytes
}

var _ backend.Backend = (*Backend)(nil)
var _ backend.Device = (*device)(nil)
