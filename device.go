package audiodevice

import (
	"sync"
	"sync/atomic"

	"github.com/rowanvale/audiodevice/internal/backend"
	"github.com/rowanvale/audiodevice/internal/convert"
	"github.com/rowanvale/audiodevice/internal/devlog"
	"github.com/rowanvale/audiodevice/internal/dsp"
	"github.com/rowanvale/audiodevice/internal/mix"
	"github.com/rowanvale/audiodevice/internal/primitives"
	"github.com/rowanvale/audiodevice/internal/worker"
)

// state is the device lifecycle of spec.md §5: Uninitialized -> Stopped
// -> Starting -> Started -> Stopping -> Stopped, tracked atomically so
// State() is lock-free while Start/Stop/Uninit themselves still
// serialize through mu.
type state int32

const (
	stateUninitialized state = iota
	stateStopped
	stateStarting
	stateStarted
	stateStopping
)

func (s state) String() string {
	switch s {
	case stateUninitialized:
		return "uninitialized"
	case stateStopped:
		return "stopped"
	case stateStarting:
		return "starting"
	case stateStarted:
		return "started"
	case stateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Device is one initialized endpoint: the backend handle that owns the
// OS resource, the DSP pipeline bridging client <-> endpoint formats,
// and the worker goroutine running the backend's I/O loop, per spec.md
// §5. Start and Stop synchronize with the worker through a pair of
// auto-reset events rather than a third "wakeup" event: Stop already
// fully joins the worker before Uninit can run, so nothing is ever left
// parked waiting to be woken.
type Device struct {
	ctx *Context
	cfg DeviceConfig

	state state32
	mu    sync.Mutex // serializes Start/Stop/Uninit, per spec.md §5

	backendDevice backend.Device
	pipeline      *dsp.Pipeline // playback: client -> endpoint
	captureBridge *captureBridge
	capturePipe   *dsp.Pipeline // capture: endpoint -> client

	worker worker.Worker

	startEvent *primitives.Event
	stopEvent  *primitives.Event
	startErr   error

	clock primitives.Clock
	log   devlog.Sink
}

// state32 wraps atomic.Int32 so Device.State() stays lock-free.
type state32 struct{ v atomic.Int32 }

func (s *state32) Load() state   { return state(s.v.Load()) }
func (s *state32) Store(v state) { s.v.Store(int32(v)) }

// InitDevice acquires an endpoint from ctx per cfg and builds the DSP
// bridge connecting it to the application callbacks, per spec.md §3's
// dev_init. The device starts in the Stopped state; callers must call
// Start explicitly.
func (ctx *Context) InitDevice(cfg DeviceConfig) (*Device, *Result) {
	if r := cfg.validate(); r != nil {
		return nil, r
	}

	clientMap := make([]int, len(cfg.ChannelMap))
	for i, p := range cfg.ChannelMap {
		clientMap[i] = int(p)
	}
	if len(clientMap) == 0 {
		for _, p := range DefaultChannelMap(cfg.Channels) {
			clientMap = append(clientMap, int(p))
		}
	}

	bcfg := &backend.Config{
		Type:               backend.DeviceType(cfg.Type),
		Format:             convert.Format(cfg.Format),
		Channels:           cfg.Channels,
		SampleRate:         cfg.SampleRate,
		ChannelMap:         clientMap,
		BufferSizeInFrames: cfg.BufferSizeInFrames,
		PeriodCount:        cfg.PeriodCount,
	}

	d := &Device{
		ctx:        ctx,
		cfg:        cfg,
		startEvent: primitives.NewEvent(),
		stopEvent:  primitives.NewEvent(),
		clock:      primitives.NewClock(),
		log:        devlog.Default(string(ctx.backendID), "device"),
	}
	d.state.Store(stateUninitialized)

	var src backend.Source
	var sink backend.Sink
	if cfg.Type == Playback {
		src = &pullAdapter{d: d}
	} else {
		sink = &pushAdapter{d: d}
	}

	backendDevice, err := ctx.backend.DevInit(bcfg, src, sink)
	if err != nil {
		return nil, newResult(CodeFailedToInitBackend, string(ctx.backendID), err)
	}
	d.backendDevice = backendDevice

	mapOut := make([]mix.Position, len(bcfg.Internal.ChannelMap))
	for i, p := range bcfg.Internal.ChannelMap {
		mapOut[i] = mix.Position(p)
	}
	mapIn := make([]mix.Position, len(clientMap))
	for i, p := range clientMap {
		mapIn[i] = mix.Position(p)
	}

	if cfg.Type == Playback {
		d.pipeline = dsp.Build(dsp.Config{
			ChannelsIn:  cfg.Channels,
			ChannelsOut: bcfg.Internal.Channels,
			RateIn:      cfg.SampleRate,
			RateOut:     bcfg.Internal.SampleRate,
			FormatIn:    convert.Format(cfg.Format),
			FormatOut:   bcfg.Internal.Format,
			MapIn:       mapIn,
			MapOut:      mapOut,
		}, &callbackUpstream{d: d})
	} else {
		d.captureBridge = &captureBridge{
			frameBytes:   bcfg.Internal.Channels * bcfg.Internal.Format.BytesPerSample(),
			internalRate: bcfg.Internal.SampleRate,
		}
		d.capturePipe = dsp.Build(dsp.Config{
			ChannelsIn:  bcfg.Internal.Channels,
			ChannelsOut: cfg.Channels,
			RateIn:      bcfg.Internal.SampleRate,
			RateOut:     cfg.SampleRate,
			FormatIn:    bcfg.Internal.Format,
			FormatOut:   convert.Format(cfg.Format),
			MapIn:       mapOut,
			MapOut:      mapIn,
		}, d.captureBridge)
	}

	d.state.Store(stateStopped)
	ctx.devices++
	return d, nil
}

// State reports the device's current lifecycle state (spec.md §5).
func (d *Device) State() string { return d.state.Load().String() }

// Start transitions Stopped -> Starting -> Started, pre-rolling playback
// and launching the worker goroutine, per spec.md §5. The worker itself
// calls the backend's dev_start/dev_stop and signals startEvent/
// stopEvent around them so state observation is linearizable: Start
// only returns once the worker has actually entered MainLoop (or failed
// dev_start), and Stop only returns once the worker has actually
// observed Break, returned, and called dev_stop.
func (d *Device) Start() *Result {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch d.state.Load() {
	case stateStarted:
		return newResult(CodeDeviceAlreadyStarted, "", nil)
	case stateStarting:
		return newResult(CodeDeviceAlreadyStarting, "", nil)
	case stateUninitialized:
		return newResult(CodeDeviceNotInitialized, "", nil)
	}

	d.state.Store(stateStarting)
	d.startErr = nil
	d.worker.Start(d.run)
	d.startEvent.Wait()

	if d.startErr != nil {
		d.state.Store(stateStopped)
		d.worker.Join()
		d.logf("ERROR", "dev_start failed: "+d.startErr.Error())
		return newResult(CodeFailedToStartBackendDevice, string(d.ctx.backendID), d.startErr)
	}
	d.logf("INFO", "started")
	return nil
}

// run is the worker goroutine body: dev_start, publish Started, run the
// backend's main loop until Break, dev_stop, publish Stopped.
func (d *Device) run() {
	if err := d.backendDevice.Start(); err != nil {
		d.startErr = err
		d.startEvent.Signal()
		return
	}
	d.state.Store(stateStarted)
	d.startEvent.Signal()

	d.backendDevice.MainLoop()

	d.backendDevice.Stop()
	d.state.Store(stateStopped)
	d.stopEvent.Signal()
	if d.cfg.OnStopped != nil {
		d.cfg.OnStopped(d)
	}
}

// Stop transitions Started -> Stopping -> Stopped, breaking the worker
// loop and waiting for it to publish Stopped before returning, per
// spec.md §5. Calling Stop while already Stopped/Stopping is an error,
// not a no-op.
func (d *Device) Stop() *Result {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch d.state.Load() {
	case stateStopped:
		return newResult(CodeDeviceAlreadyStopped, "", nil)
	case stateStopping:
		return newResult(CodeDeviceAlreadyStopping, "", nil)
	case stateUninitialized:
		return newResult(CodeDeviceNotInitialized, "", nil)
	}

	d.state.Store(stateStopping)
	d.backendDevice.Break()
	d.stopEvent.Wait()
	d.worker.Join()
	d.logf("INFO", "stopped after "+d.clock.Elapsed().String()+" since init")
	return nil
}

// Uninit moves the device to Uninitialized and removes it from its
// Context's live-device count. The backend device has no release
// operation, so its backend resources are not freed here. The device must
// be Stopped first; spec.md §5 forbids uninitializing a running device.
func (d *Device) Uninit() *Result {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch d.state.Load() {
	case stateUninitialized:
		return newResult(CodeDeviceNotInitialized, "", nil)
	case stateStarted, stateStarting, stateStopping:
		return newResult(CodeDeviceBusy, "", nil)
	}

	d.state.Store(stateUninitialized)
	d.ctx.devices--
	return nil
}

// logf routes a diagnostic line through the application's OnLog
// callback, tagged with an informal severity prefix since LogCallback
// carries no level of its own, falling back to devlog when no
// callback is set (spec.md §6/§7).
func (d *Device) logf(level, msg string) {
	if d.cfg.OnLog != nil {
		d.cfg.OnLog(d, "["+level+"] "+msg)
		return
	}
	switch level {
	case "WARN":
		d.log.Warn(msg)
	case "ERROR":
		d.log.Error(msg)
	default:
		d.log.Info(msg)
	}
}

// pullAdapter satisfies backend.Source for a playback device by
// delegating straight to the DSP pipeline built in InitDevice.
type pullAdapter struct{ d *Device }

func (a *pullAdapter) Read(n int, out []byte) int { return a.d.pipeline.Read(n, out) }

// callbackUpstream satisfies dsp.Upstream by invoking the application's
// OnDataNeeded callback, per spec.md §6. Shortfalls are returned as-is;
// zero-filling happens downstream in the pipeline/backend, never here.
type callbackUpstream struct{ d *Device }

func (a *callbackUpstream) Read(n int, out []byte) int {
	if a.d.cfg.OnDataNeeded == nil {
		return 0
	}
	return a.d.cfg.OnDataNeeded(a.d, n, out)
}

// pushAdapter satisfies backend.Sink for a capture device: it stages the
// just-captured endpoint-format frames into captureBridge, drains the
// capture pipeline through them, and forwards the client-format result
// to OnDataAvailable.
type pushAdapter struct{ d *Device }

func (a *pushAdapter) Write(frames []byte, frameCount int) {
	d := a.d
	d.captureBridge.stage(frames, frameCount)

	ratio := float64(d.cfg.SampleRate) / float64(d.captureBridge.internalRate)
	want := int(float64(frameCount) * ratio)
	if want < 1 {
		want = 1
	}
	frameBytes := d.cfg.Channels * d.cfg.Format.BytesPerSample()
	// Deliver in chunks of at most 4KiB of sample data per callback.
	chunk := 4096 / frameBytes
	if chunk < 1 {
		chunk = 1
	}
	out := make([]byte, chunk*frameBytes)
	for want > 0 {
		n := want
		if n > chunk {
			n = chunk
		}
		got := d.capturePipe.Read(n, out)
		if got > 0 && d.cfg.OnDataAvailable != nil {
			d.cfg.OnDataAvailable(d, got, out[:got*frameBytes])
		}
		if got < n {
			break
		}
		want -= got
	}
}

// captureBridge is a one-shot-per-period dsp.Upstream: each Write call
// stages exactly the frames the backend just captured, and Read drains
// them (and only them) before reporting exhaustion.
type captureBridge struct {
	buf          []byte
	offset       int
	total        int
	frameBytes   int
	internalRate int
}

func (c *captureBridge) stage(frames []byte, frameCount int) {
	c.buf = frames
	c.offset = 0
	c.total = frameCount
}

func (c *captureBridge) Read(n int, out []byte) int {
	avail := c.total - c.offset
	if avail <= 0 {
		return 0
	}
	if n > avail {
		n = avail
	}
	copy(out, c.buf[c.offset*c.frameBytes:(c.offset+n)*c.frameBytes])
	c.offset += n
	return n
}
