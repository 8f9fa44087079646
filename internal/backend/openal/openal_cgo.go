//go:build cgo

// Package openal implements the backend.Backend contract over
// github.com/timshannon/go-openal/openal — grounded on gumbleopenal's
// Stream (other_examples): CaptureOpenDevice/CaptureStart/CaptureSamples
// for capture, and a queued-buffer Source with BuffersProcessed/
// UnqueueBuffers reclaim for playback.
package openal

import (
	"errors"
	"time"

	"github.com/timshannon/go-openal/openal"

	"github.com/rowanvale/audiodevice/internal/backend"
	"github.com/rowanvale/audiodevice/internal/convert"
	"github.com/rowanvale/audiodevice/internal/primitives"
)

// maxPeriods caps the playback buffer queue depth; OpenAL implementations
// commonly choke on deep queues so four periods is the practical ceiling.
const maxPeriods = 4

type Backend struct{}

func New() *Backend { return &Backend{} }

func (b *Backend) Name() string { return "openal" }

func (b *Backend) CtxInit() error   { return nil }
func (b *Backend) CtxUninit() error { return nil }

func (b *Backend) Enumerate(t backend.DeviceType, out []backend.Info) ([]backend.Info, error) {
	if len(out) == 0 {
		return out[:0], nil
	}
	// go-openal doesn't expose ALC_ENUMERATE_ALL_EXT directly; the
	// default device is reported as the sole candidate.
	out[0] = backend.Info{ID: "", Name: "Default OpenAL Device", Default: true}
	return out[:1], nil
}

func alFormat(channels int) (openal.Format, error) {
	switch channels {
	case 1:
		return openal.FormatMono16, nil
	case 2:
		return openal.FormatStereo16, nil
	default:
		return 0, errors.New("openal: only mono or stereo is supported")
	}
}

func (b *Backend) DevInit(cfg *backend.Config, src backend.Source, sink backend.Sink) (backend.Device, error) {
	if cfg.Channels > 2 {
		return nil, errors.New("openal: only mono or stereo is supported")
	}
	fmtAL, err := alFormat(cfg.Channels)
	if err != nil {
		return nil, err
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
	periodFrames := cfg.BufferSizeInFrames / cfg.PeriodCount

	cfg.Internal.Format = convert.S16
	cfg.Internal.Channels = cfg.Channels
	cfg.Internal.SampleRate = cfg.SampleRate
	cfg.Internal.ChannelMap = cfg.ChannelMap

	d := &device{
		cfg:          cfg,
		src:          src,
		sink:         sink,
		alFormat:     fmtAL,
		frameBytes:   cfg.Channels * 2,
		periodFrames: periodFrames,
		breakEvent:   primitives.NewEvent(),
	}

	if cfg.Type == backend.Playback {
		d.alDevice = openal.OpenDevice("")
		if d.alDevice == nil {
			return nil, errors.New("openal: OpenDevice failed")
		}
		d.alContext = d.alDevice.CreateContext()
		d.alContext.Activate()
		d.alSource = openal.NewSource()
		d.freeBufs = openal.NewBuffers(cfg.PeriodCount)
	} else {
		d.capture = openal.CaptureOpenDevice("", cfg.SampleRate, fmtAL, uint32(periodFrames))
		if d.capture == nil {
			return nil, errors.New("openal: CaptureOpenDevice failed")
		}
	}
	return d, nil
}

type device struct {
	cfg  *backend.Config
	src  backend.Source
	sink backend.Sink

	alFormat     openal.Format
	frameBytes   int
	periodFrames int
	breakEvent   *primitives.Event

	// playback
	alDevice  *openal.Device
	alContext *openal.Context
	alSource  openal.Source
	freeBufs  openal.Buffers

	// capture
	capture *openal.CaptureDevice
}

func (d *device) BufferSizeInFrames() int { return d.cfg.BufferSizeInFrames }
func (d *device) PeriodCount() int        { return d.cfg.PeriodCount }

// Start pre-rolls the full endpoint buffer for playback (spec.md
// §4.2/§4.3 requires every frame of it filled before the endpoint
// starts playing): every free buffer in the queue is filled and
// queued before Play is called, matching opensl's Start.
func (d *device) Start() error {
	if d.cfg.Type == backend.Capture {
		d.capture.CaptureStart()
		return nil
	}
	for d.queueNextBuffer() {
	}
	d.alSource.Play()
	return nil
}

func (d *device) Stop() error {
	if d.cfg.Type == backend.Capture {
		d.capture.CaptureStop()
	} else {
		d.alSource.Stop()
	}
	return nil
}

func (d *device) Break() { d.breakEvent.Signal() }

func (d *device) MainLoop() {
	period := time.Duration(d.periodFrames) * time.Second / time.Duration(d.cfg.Internal.SampleRate)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-d.breakEvent.Done():
			return
		case <-ticker.C:
		}
		if d.cfg.Type == backend.Playback {
			d.pumpPlayback()
		} else {
			d.pumpCapture()
		}
	}
}

// pumpPlayback reclaims processed buffers, pulls fresh frames, and queues
// a new buffer — the reclaim/queue cycle from gumbleopenal's
// OnAudioStream goroutine.
func (d *device) pumpPlayback() {
	if n := d.alSource.BuffersProcessed(); n > 0 {
		reclaimed := make(openal.Buffers, n)
		d.alSource.UnqueueBuffers(reclaimed)
		d.freeBufs = append(d.freeBufs, reclaimed...)
	}
	d.queueNextBuffer()
	if d.alSource.State() != openal.Playing {
		d.alSource.Play()
	}
}

// queueNextBuffer pulls one period of frames and queues them on the next
// free AL buffer, reporting whether a buffer was available to fill.
func (d *device) queueNextBuffer() bool {
	if len(d.freeBufs) == 0 {
		return false
	}
	buf := make([]byte, d.periodFrames*d.frameBytes)
	got := d.src.Read(d.periodFrames, buf)
	if got < d.periodFrames {
		for i := got * d.frameBytes; i < len(buf); i++ {
			buf[i] = 0
		}
	}
	last := len(d.freeBufs) - 1
	alBuf := d.freeBufs[last]
	d.freeBufs = d.freeBufs[:last]
	alBuf.SetData(d.alFormat, buf, d.cfg.Internal.SampleRate)
	d.alSource.QueueBuffer(alBuf)
	return true
}

func (d *device) pumpCapture() {
	buf := d.capture.CaptureSamples(uint32(d.periodFrames))
	if len(buf) == 0 {
		return
	}
	d.sink.Write(buf, len(buf)/d.frameBytes)
}

var _ backend.Backend = (*Backend)(nil)
var _ backend.Device = (*device)(nil)
