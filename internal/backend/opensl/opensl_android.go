//go:build android

// Package opensl implements the backend.Backend contract over Android's
// OpenSL ES C API via cgo — grounded on goshadertoy's headless/egl_linux.go
// style: small static C helper wrappers around callback-shaped APIs,
// called from Go through an import "C" block.
package opensl

/*
#cgo LDFLAGS: -lOpenSLES
#include <stdlib.h>
#include <string.h>
#include <SLES/OpenSLES.h>
#include <SLES/OpenSLES_Android.h>

static SLresult engine_create(SLObjectItf *engineObject) {
	return slCreateEngine(engineObject, 0, NULL, 0, NULL, NULL);
}

static SLresult output_mix_create(SLEngineItf engine, SLObjectItf *outputMixObject) {
	return (*engine)->CreateOutputMix(engine, outputMixObject, 0, NULL, NULL);
}

// goBufferQueueCallback is invoked on OpenSL ES's internal audio thread
// each time a previously enqueued buffer finishes playing or recording.
extern void goBufferQueueCallback(SLAndroidSimpleBufferQueueItf caller, void *context);

static SLresult register_buffer_callback(SLAndroidSimpleBufferQueueItf bq, void *context) {
	return (*bq)->RegisterCallback(bq, (slAndroidSimpleBufferQueueCallback)goBufferQueueCallback, context);
}

static SLresult enqueue_buffer(SLAndroidSimpleBufferQueueItf bq, void *buf, SLuint32 size) {
	return (*bq)->Enqueue(bq, buf, size);
}

static SLresult recorder_create(SLEngineItf engine, SLObjectItf *recorderObject,
	SLDataSource *source, SLDataSink *sink) {
	const SLInterfaceID ids[1] = {SL_IID_ANDROIDSIMPLEBUFFERQUEUE};
	const SLboolean req[1] = {SL_BOOLEAN_TRUE};
	return (*engine)->CreateAudioRecorder(engine, recorderObject, source, sink, 1, ids, req);
}
*/
import "C"

import (
	"errors"
	"sync"
	"time"
	"unsafe"

	"github.com/rowanvale/audiodevice/internal/backend"
	"github.com/rowanvale/audiodevice/internal/convert"
	"github.com/rowanvale/audiodevice/internal/primitives"
	"github.com/rowanvale/audiodevice/internal/registry"
)

// engineRegistry holds the process-wide OpenSL ES engine: every Context
// that opens the opensl backend acquires the same engine/output-mix pair
// rather than creating its own, per spec.md §9, since slCreateEngine is
// meant to be called once per process.
var engineRegistry = registry.New()

const engineKey = "opensl-engine"

// engineHandle is the resource stored in engineRegistry.
type engineHandle struct {
	engineObject C.SLObjectItf
	engine       C.SLEngineItf
	outputMix    C.SLObjectItf
}

// callbackRegistry maps an opaque context pointer to the device it
// belongs to, since cgo can't pass a Go pointer through the C callback.
var (
	callbackMu  sync.Mutex
	callbackReg = map[uintptr]*device{}
	nextToken   uintptr
)

//export goBufferQueueCallback
func goBufferQueueCallback(caller C.SLAndroidSimpleBufferQueueItf, ctx unsafe.Pointer) {
	callbackMu.Lock()
	d := callbackReg[uintptr(ctx)]
	callbackMu.Unlock()
	if d != nil {
		d.onBufferDrained()
	}
}

type Backend struct {
	handle *engineHandle
}

func New() *Backend { return &Backend{} }

func (b *Backend) Name() string { return "opensl" }

func buildEngine() (any, error) {
	var engineObject C.SLObjectItf
	if res := C.engine_create(&engineObject); res != C.SL_RESULT_SUCCESS {
		return nil, errors.New("opensl: slCreateEngine failed")
	}
	if res := (*engineObject).Realize(engineObject, C.SL_BOOLEAN_FALSE); res != C.SL_RESULT_SUCCESS {
		(*engineObject).Destroy(engineObject)
		return nil, errors.New("opensl: engine Realize failed")
	}
	var engine C.SLEngineItf
	if res := (*engineObject).GetInterface(engineObject, C.SL_IID_ENGINE, unsafe.Pointer(&engine)); res != C.SL_RESULT_SUCCESS {
		(*engineObject).Destroy(engineObject)
		return nil, errors.New("opensl: GetInterface(SL_IID_ENGINE) failed")
	}
	var outputMix C.SLObjectItf
	if res := C.output_mix_create(engine, &outputMix); res != C.SL_RESULT_SUCCESS {
		(*engineObject).Destroy(engineObject)
		return nil, errors.New("opensl: CreateOutputMix failed")
	}
	if res := (*outputMix).Realize(outputMix, C.SL_BOOLEAN_FALSE); res != C.SL_RESULT_SUCCESS {
		(*outputMix).Destroy(outputMix)
		(*engineObject).Destroy(engineObject)
		return nil, errors.New("opensl: output mix Realize failed")
	}
	return &engineHandle{engineObject: engineObject, engine: engine, outputMix: outputMix}, nil
}

func teardownEngine(res any) {
	h := res.(*engineHandle)
	if h.outputMix != nil {
		(*h.outputMix).Destroy(h.outputMix)
	}
	if h.engineObject != nil {
		(*h.engineObject).Destroy(h.engineObject)
	}
}

// CtxInit acquires the process-wide engine singleton, building it on the
// first Context to open this backend and reusing it on every subsequent
// one.
func (b *Backend) CtxInit() error {
	res, err := engineRegistry.Acquire(engineKey, buildEngine, teardownEngine)
	if err != nil {
		return err
	}
	b.handle = res.(*engineHandle)
	return nil
}

// CtxUninit releases this Context's reference; the engine itself is torn
// down only once every Context sharing it has released.
func (b *Backend) CtxUninit() error {
	if b.handle != nil {
		engineRegistry.Release(engineKey)
		b.handle = nil
	}
	return nil
}

// Enumerate always reports the single default endpoint: OpenSL ES has no
// device enumeration API, routing being the platform's responsibility.
func (b *Backend) Enumerate(t backend.DeviceType, out []backend.Info) ([]backend.Info, error) {
	if len(out) == 0 {
		return out[:0], nil
	}
	out[0] = backend.Info{ID: "default", Name: "Default OpenSL ES Device", Default: true}
	return out[:1], nil
}

func (b *Backend) DevInit(cfg *backend.Config, src backend.Source, sink backend.Sink) (backend.Device, error) {
	if cfg.Channels > 2 {
		return nil, errors.New("opensl: only mono or stereo is supported")
	}
	if cfg.BufferSizeInFrames == 0 {
		cfg.BufferSizeInFrames = cfg.SampleRate / 1000 * 25
		cfg.DefaultedBufferSize = true
	}
	if cfg.PeriodCount == 0 {
		cfg.PeriodCount = 2
		cfg.DefaultedPeriodCount = true
	}
	periodFrames := cfg.BufferSizeInFrames / cfg.PeriodCount

	cfg.Internal.Format = convert.S16
	cfg.Internal.Channels = cfg.Channels
	cfg.Internal.SampleRate = cfg.SampleRate
	cfg.Internal.ChannelMap = cfg.ChannelMap

	d := &device{
		backend:      b,
		cfg:          cfg,
		src:          src,
		sink:         sink,
		frameBytes:   cfg.Channels * 2,
		periodFrames: periodFrames,
		drained:      make(chan struct{}, cfg.PeriodCount+1),
		breakEvent:   primitives.NewEvent(),
	}

	var err error
	if cfg.Type == backend.Playback {
		err = d.initPlayer()
	} else {
		err = d.initRecorder()
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

type device struct {
	backend *Backend
	cfg     *backend.Config
	src     backend.Source
	sink    backend.Sink

	frameBytes   int
	periodFrames int
	breakEvent   *primitives.Event

	token   uintptr
	drained chan struct{}

	playerObject C.SLObjectItf
	play         C.SLPlayItf
	playerQueue  C.SLAndroidSimpleBufferQueueItf

	recorderObject C.SLObjectItf
	recorderQueue  C.SLAndroidSimpleBufferQueueItf
	record         C.SLRecordItf

	scratch [][]byte // one buffer per period, rotated round-robin
	next    int
}

func (d *device) register() {
	callbackMu.Lock()
	nextToken++
	d.token = nextToken
	callbackReg[d.token] = d
	callbackMu.Unlock()
}

func (d *device) unregister() {
	callbackMu.Lock()
	delete(callbackReg, d.token)
	callbackMu.Unlock()
}

func (d *device) onBufferDrained() {
	select {
	case d.drained <- struct{}{}:
	default:
	}
}

func pcmFormat(channels, rate int) C.SLDataFormat_PCM {
	chanMask := C.SLuint32(C.SL_SPEAKER_FRONT_CENTER)
	if channels == 2 {
		chanMask = C.SL_SPEAKER_FRONT_LEFT | C.SL_SPEAKER_FRONT_RIGHT
	}
	return C.SLDataFormat_PCM{
		formatType:    C.SL_DATAFORMAT_PCM,
		numChannels:   C.SLuint32(channels),
		samplesPerSec: C.SLuint32(rate * 1000), // OpenSL ES rates are in milli-Hz
		bitsPerSample: C.SL_PCMSAMPLEFORMAT_FIXED_16,
		containerSize: C.SL_PCMSAMPLEFORMAT_FIXED_16,
		channelMask:   chanMask,
		endianness:    C.SL_BYTEORDER_LITTLEENDIAN,
	}
}

func (d *device) initPlayer() error {
	engine := d.backend.handle.engine
	locatorQueue := C.SLDataLocator_AndroidSimpleBufferQueue{
		locatorType: C.SL_DATALOCATOR_ANDROIDSIMPLEBUFFERQUEUE,
		numBuffers:  C.SLuint32(d.cfg.PeriodCount),
	}
	fmtPCM := pcmFormat(d.cfg.Internal.Channels, d.cfg.Internal.SampleRate)
	audioSrc := C.SLDataSource{
		pLocator: unsafe.Pointer(&locatorQueue),
		pFormat:  unsafe.Pointer(&fmtPCM),
	}
	locatorMix := C.SLDataLocator_OutputMix{
		locatorType: C.SL_DATALOCATOR_OUTPUTMIX,
		outputMix:   d.backend.handle.outputMix,
	}
	audioSink := C.SLDataSink{pLocator: unsafe.Pointer(&locatorMix), pFormat: nil}

	ids := [1]C.SLInterfaceID{C.SL_IID_ANDROIDSIMPLEBUFFERQUEUE}
	req := [1]C.SLboolean{C.SL_BOOLEAN_TRUE}
	var playerObject C.SLObjectItf
	if res := (*engine).CreateAudioPlayer(engine, &playerObject, &audioSrc, &audioSink, 1, &ids[0], &req[0]); res != C.SL_RESULT_SUCCESS {
		return errors.New("opensl: CreateAudioPlayer failed")
	}
	if res := (*playerObject).Realize(playerObject, C.SL_BOOLEAN_FALSE); res != C.SL_RESULT_SUCCESS {
		return errors.New("opensl: player Realize failed")
	}
	var play C.SLPlayItf
	(*playerObject).GetInterface(playerObject, C.SL_IID_PLAY, unsafe.Pointer(&play))
	var queue C.SLAndroidSimpleBufferQueueItf
	(*playerObject).GetInterface(playerObject, C.SL_IID_ANDROIDSIMPLEBUFFERQUEUE, unsafe.Pointer(&queue))

	d.register()
	C.register_buffer_callback(queue, unsafe.Pointer(d.token))

	d.playerObject = playerObject
	d.play = play
	d.playerQueue = queue
	d.scratch = make([][]byte, d.cfg.PeriodCount)
	for i := range d.scratch {
		d.scratch[i] = make([]byte, d.periodFrames*d.frameBytes)
	}
	return nil
}

func (d *device) initRecorder() error {
	engine := d.backend.handle.engine
	locatorMic := C.SLDataLocator_IODevice{
		locatorType:  C.SL_DATALOCATOR_IODEVICE,
		deviceType:   C.SL_IODEVICE_AUDIOINPUT,
		deviceID:     C.SL_DEFAULTDEVICEID_AUDIOINPUT,
		device:       nil,
	}
	audioSrc := C.SLDataSource{pLocator: unsafe.Pointer(&locatorMic), pFormat: nil}
	locatorQueue := C.SLDataLocator_AndroidSimpleBufferQueue{
		locatorType: C.SL_DATALOCATOR_ANDROIDSIMPLEBUFFERQUEUE,
		numBuffers:  C.SLuint32(d.cfg.PeriodCount),
	}
	fmtPCM := pcmFormat(d.cfg.Internal.Channels, d.cfg.Internal.SampleRate)
	audioSink := C.SLDataSink{
		pLocator: unsafe.Pointer(&locatorQueue),
		pFormat:  unsafe.Pointer(&fmtPCM),
	}

	var recorderObject C.SLObjectItf
	if res := C.recorder_create(engine, &recorderObject, &audioSrc, &audioSink); res != C.SL_RESULT_SUCCESS {
		return errors.New("opensl: CreateAudioRecorder failed")
	}
	if res := (*recorderObject).Realize(recorderObject, C.SL_BOOLEAN_FALSE); res != C.SL_RESULT_SUCCESS {
		return errors.New("opensl: recorder Realize failed")
	}
	var record C.SLRecordItf
	(*recorderObject).GetInterface(recorderObject, C.SL_IID_RECORD, unsafe.Pointer(&record))
	var queue C.SLAndroidSimpleBufferQueueItf
	(*recorderObject).GetInterface(recorderObject, C.SL_IID_ANDROIDSIMPLEBUFFERQUEUE, unsafe.Pointer(&queue))

	d.register()
	C.register_buffer_callback(queue, unsafe.Pointer(d.token))

	d.recorderObject = recorderObject
	d.record = record
	d.recorderQueue = queue
	d.scratch = make([][]byte, d.cfg.PeriodCount)
	for i := range d.scratch {
		d.scratch[i] = make([]byte, d.periodFrames*d.frameBytes)
	}
	return nil
}

func (d *device) BufferSizeInFrames() int { return d.cfg.BufferSizeInFrames }
func (d *device) PeriodCount() int        { return d.cfg.PeriodCount }

func (d *device) Start() error {
	if d.cfg.Type == backend.Playback {
		for i := range d.scratch {
			got := d.src.Read(d.periodFrames, d.scratch[i])
			if got < d.periodFrames {
				for b := got * d.frameBytes; b < len(d.scratch[i]); b++ {
					d.scratch[i][b] = 0
				}
			}
			C.enqueue_buffer(d.playerQueue, unsafe.Pointer(&d.scratch[i][0]), C.SLuint32(len(d.scratch[i])))
		}
		(*d.play).SetPlayState(d.play, C.SL_PLAYSTATE_PLAYING)
	} else {
		for i := range d.scratch {
			C.enqueue_buffer(d.recorderQueue, unsafe.Pointer(&d.scratch[i][0]), C.SLuint32(len(d.scratch[i])))
		}
		(*d.record).SetRecordState(d.record, C.SL_RECORDSTATE_RECORDING)
	}
	return nil
}

func (d *device) Stop() error {
	if d.cfg.Type == backend.Playback {
		(*d.play).SetPlayState(d.play, C.SL_PLAYSTATE_STOPPED)
	} else {
		(*d.record).SetRecordState(d.record, C.SL_RECORDSTATE_STOPPED)
	}
	return nil
}

func (d *device) Break() {
	d.breakEvent.Signal()
	d.unregister()
}

// MainLoop waits on the drained channel that the OpenSL ES callback
// feeds (goBufferQueueCallback -> onBufferDrained), re-filling or
// draining whichever period buffer just completed.
func (d *device) MainLoop() {
	for {
		select {
		case <-d.breakEvent.Done():
			return
		case <-d.drained:
			d.pump()
		case <-time.After(time.Second):
			// Watchdog: a missed or lost callback shouldn't wedge Break
			// forever — loop back around to re-check breakEvent.
		}
	}
}

func (d *device) pump() {
	buf := d.scratch[d.next]
	d.next = (d.next + 1) % len(d.scratch)

	if d.cfg.Type == backend.Playback {
		got := d.src.Read(d.periodFrames, buf)
		if got < d.periodFrames {
			for b := got * d.frameBytes; b < len(buf); b++ {
				buf[b] = 0
			}
		}
		C.enqueue_buffer(d.playerQueue, unsafe.Pointer(&buf[0]), C.SLuint32(len(buf)))
	} else {
		d.sink.Write(buf, d.periodFrames)
		C.enqueue_buffer(d.recorderQueue, unsafe.Pointer(&buf[0]), C.SLuint32(len(buf)))
	}
}

var _ backend.Backend = (*Backend)(nil)
var _ backend.Device = (*device)(nil)
