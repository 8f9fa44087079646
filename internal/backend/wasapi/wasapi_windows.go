//go:build windows

// Package wasapi implements the backend.Backend contract over Windows'
// WASAPI shared-mode event-driven stream — grounded on oto's
// driver_wasapi_windows.go: a dedicated CoInitializeEx'd goroutine owns
// the IAudioClient, an auto-reset event drives the render/capture loop,
// and GetCurrentPadding/GetBuffer/ReleaseBuffer moves frames each wake.
package wasapi

import (
	"errors"
	"runtime"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/rowanvale/audiodevice/internal/backend"
	"github.com/rowanvale/audiodevice/internal/convert"
	"github.com/rowanvale/audiodevice/internal/primitives"
)

type Backend struct {
	enumerator unsafe.Pointer // *IMMDeviceEnumerator, held for the Context's lifetime
	comThread  *comThread
}

func New() *Backend { return &Backend{} }

func (b *Backend) Name() string { return "wasapi" }

// comThread pins a goroutine to one OS thread and runs every COM call on
// it, matching oto's comThread: COM apartments are thread-affine.
type comThread struct {
	funcCh chan func()
}

func newCOMThread() (*comThread, error) {
	funcCh := make(chan func())
	errCh := make(chan error, 1)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		if err := comInit(); err != nil {
			errCh <- err
			return
		}
		defer comUninit()
		close(errCh)
		for f := range funcCh {
			f()
		}
	}()
	if err := <-errCh; err != nil {
		return nil, err
	}
	return &comThread{funcCh: funcCh}, nil
}

func (t *comThread) Run(f func()) {
	done := make(chan struct{})
	t.funcCh <- func() { f(); close(done) }
	<-done
}

func (b *Backend) CtxInit() error {
	t, err := newCOMThread()
	if err != nil {
		return err
	}
	var enumErr error
	var enumerator unsafe.Pointer
	t.Run(func() {
		enumerator, enumErr = coCreateInstance(&clsidMMDeviceEnumerator, &iidIMMDeviceEnumerator)
	})
	if enumErr != nil {
		return enumErr
	}
	b.comThread = t
	b.enumerator = enumerator
	return nil
}

func (b *Backend) CtxUninit() error {
	b.comThread.Run(func() { release(b.enumerator) })
	b.enumerator = nil
	b.comThread = nil
	return nil
}

func (b *Backend) Enumerate(t backend.DeviceType, out []backend.Info) ([]backend.Info, error) {
	if len(out) == 0 {
		return out[:0], nil
	}
	// The shared-mode default endpoint is the only device this backend
	// resolves; full enumeration would walk IMMDeviceCollection, which
	// no component here needs beyond the default.
	name := "Default Render Device"
	if t == backend.Capture {
		name = "Default Capture Device"
	}
	out[0] = backend.Info{ID: "default", Name: name, Default: true}
	return out[:1], nil
}

func (b *Backend) DevInit(cfg *backend.Config, src backend.Source, sink backend.Sink) (backend.Device, error) {
	if cfg.Channels > 2 {
		return nil, errors.New("wasapi: only mono or stereo is supported")
	}

	d := &device{
		backend:    b,
		cfg:        cfg,
		src:        src,
		sink:       sink,
		breakEvent: primitives.NewEvent(),
	}

	var initErr error
	b.comThread.Run(func() { initErr = d.initOnCOMThread() })
	if initErr != nil {
		return nil, initErr
	}
	return d, nil
}

type device struct {
	backend *Backend
	cfg     *backend.Config
	src     backend.Source
	sink    backend.Sink

	client       unsafe.Pointer
	renderClient unsafe.Pointer
	captureClient unsafe.Pointer
	bufferFrames uint32
	sampleEvent  windows.Handle

	breakEvent *primitives.Event
}

func (d *device) initOnCOMThread() error {
	dataFlow := uint32(eRender)
	if d.cfg.Type == backend.Capture {
		dataFlow = eCapture
	}
	endpoint, err := getDefaultAudioEndpoint(d.backend.enumerator, dataFlow)
	if err != nil {
		return err
	}
	defer release(endpoint)

	client, err := activate(endpoint, &iidIAudioClient)
	if err != nil {
		return err
	}
	d.client = client

	fmtPCM := newFloatFormat(d.cfg.Channels, d.cfg.SampleRate)
	if err := clientInitialize(d.client, audclntShareModeShared, audclntStreamflagsEventcallback, 0, 0, fmtPCM); err != nil {
		release(d.client)
		return err
	}

	frames, err := clientGetBufferSize(d.client)
	if err != nil {
		release(d.client)
		return err
	}
	d.bufferFrames = frames

	if d.cfg.BufferSizeInFrames == 0 {
		d.cfg.BufferSizeInFrames = int(frames)
		d.cfg.DefaultedBufferSize = true
	}
	if d.cfg.PeriodCount == 0 {
		d.cfg.PeriodCount = 2
		d.cfg.DefaultedPeriodCount = true
	}

	d.cfg.Internal.Format = convert.F32
	d.cfg.Internal.Channels = d.cfg.Channels
	d.cfg.Internal.SampleRate = d.cfg.SampleRate
	d.cfg.Internal.ChannelMap = d.cfg.ChannelMap

	if d.cfg.Type == backend.Playback {
		rc, err := clientGetService(d.client, &iidIAudioRenderClient)
		if err != nil {
			release(d.client)
			return err
		}
		d.renderClient = rc
	} else {
		cc, err := clientGetService(d.client, &iidIAudioCaptureClient)
		if err != nil {
			release(d.client)
			return err
		}
		d.captureClient = cc
	}

	ev, err := windows.CreateEventEx(nil, nil, 0, windows.EVENT_ALL_ACCESS)
	if err != nil {
		release(d.client)
		return err
	}
	d.sampleEvent = ev
	return clientSetEventHandle(d.client, ev)
}

func (d *device) BufferSizeInFrames() int { return int(d.bufferFrames) }
func (d *device) PeriodCount() int        { return d.cfg.PeriodCount }

// Start pre-rolls the full endpoint buffer for playback (spec.md
// §4.2/§4.3 requires the entire buffer be filled before the endpoint
// starts) before calling IAudioClient::Start. Padding is always zero
// at this point, so renderStep fills exactly bufferFrames.
func (d *device) Start() error {
	var err error
	d.backend.comThread.Run(func() {
		if d.cfg.Type == backend.Playback {
			if err = d.renderStep(); err != nil {
				return
			}
		}
		err = clientStart(d.client)
	})
	return err
}

func (d *device) Stop() error {
	var err error
	d.backend.comThread.Run(func() { err = clientStop(d.client) })
	return err
}

func (d *device) Break() { d.breakEvent.Signal() }

// MainLoop mirrors oto's loopOnRenderThread: block on the sample-ready
// event, then move exactly the frames the endpoint has room (or data)
// for. COM calls are marshalled onto the comThread since IAudioClient
// and its child interfaces are apartment-affine.
func (d *device) MainLoop() {
	for {
		evt, err := windows.WaitForSingleObject(d.sampleEvent, 200)
		if err != nil {
			return
		}
		select {
		case <-d.breakEvent.Done():
			return
		default:
		}
		if evt != uint32(windows.WAIT_OBJECT_0) {
			continue
		}
		var stepErr error
		d.backend.comThread.Run(func() {
			if d.cfg.Type == backend.Playback {
				stepErr = d.renderStep()
			} else {
				stepErr = d.captureStep()
			}
		})
		if stepErr != nil {
			return
		}
	}
}

func (d *device) renderStep() error {
	padding, err := clientGetCurrentPadding(d.client)
	if err != nil {
		return err
	}
	frames := d.bufferFrames - padding
	if frames == 0 {
		return nil
	}
	dst, err := renderGetBuffer(d.renderClient, frames)
	if err != nil {
		return err
	}
	frameBytes := d.cfg.Channels * 4
	buf := unsafe.Slice((*byte)(dst), int(frames)*frameBytes)
	got := d.src.Read(int(frames), buf)
	if got < int(frames) {
		for i := got * frameBytes; i < len(buf); i++ {
			buf[i] = 0
		}
	}
	return renderReleaseBuffer(d.renderClient, frames, 0)
}

func (d *device) captureStep() error {
	n, err := captureGetNextPacketSize(d.captureClient)
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	src, frames, flags, err := captureGetBuffer(d.captureClient)
	if err != nil {
		return err
	}
	frameBytes := d.cfg.Channels * 4
	buf := unsafe.Slice((*byte)(src), int(frames)*frameBytes)
	if flags&audclntBufferflagsSilent != 0 {
		for i := range buf {
			buf[i] = 0
		}
	}
	d.sink.Write(buf, int(frames))
	return captureReleaseBuffer(d.captureClient, frames)
}

var _ backend.Backend = (*Backend)(nil)
var _ backend.Device = (*device)(nil)
