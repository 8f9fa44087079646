// Package backend defines the contract every native audio backend
// implements (spec.md §4.2), and provides the null (software-only)
// backend plus platform-gated real backends.
package backend

import (
	"github.com/rowanvale/audiodevice/internal/convert"
	"github.com/rowanvale/audiodevice/internal/dsp"
)

// DeviceType selects playback or capture, per spec.md §3.
type DeviceType int

const (
	Playback DeviceType = iota
	Capture
)

// Info is one enumerate() result: an opaque backend-specific id plus a
// UTF-8 display name (spec.md §4.2, §6).
type Info struct {
	ID      any
	Name    string
	Default bool
}

// Config is the negotiated configuration a backend's dev_init both
// consumes (the application's request) and mutates (the internal
// triple it actually settled on), per spec.md §3.
type Config struct {
	Type DeviceType

	// Requested (client-facing) format. dev_init may leave these
	// unchanged if the endpoint can accept them directly.
	Format       convert.Format
	Channels     int
	SampleRate   int
	ChannelMap   []int // position ids, length == Channels

	BufferSizeInFrames int // 0 on entry means "use the default"
	PeriodCount        int // 0 on entry means "use the default"

	// DefaultedBufferSize/DefaultedPeriodCount record whether dev_init
	// had to fill in a default, per spec.md §3's flags field.
	DefaultedBufferSize  bool
	DefaultedPeriodCount bool

	// Internal is the triple the backend actually negotiated with the
	// endpoint; may differ from the requested Format/Channels/SampleRate/
	// ChannelMap above. The DSP pipeline bridges the two.
	Internal struct {
		Format     convert.Format
		Channels   int
		SampleRate int
		ChannelMap []int
	}
}

// Source is read by a playback backend's main loop to pull frames from
// the DSP pipeline; it's satisfied directly by *dsp.Pipeline.
type Source interface {
	Read(n int, out []byte) int
}

var _ Source = (*dsp.Pipeline)(nil)

// Sink receives frames a capture backend's main loop has pulled from the
// endpoint, for delivery to the application's data-available callback.
type Sink interface {
	Write(frames []byte, frameCount int)
}

// Device is the opaque, backend-owned per-device handle threaded through
// every operation below.
type Device interface {
	// Start begins the I/O loop: pre-roll for playback (pull one full
	// buffer before the endpoint starts), then start the endpoint.
	Start() error
	// Stop halts the endpoint and resets its cursor.
	Stop() error
	// Break causes a blocking MainLoop to return promptly.
	Break()
	// MainLoop runs the I/O loop of spec.md §4.3 until Break is observed.
	MainLoop()
	// BufferSizeInFrames reports the negotiated buffer size.
	BufferSizeInFrames() int
	// PeriodCount reports the negotiated period count.
	PeriodCount() int
}

// Backend is the operation set every native audio backend implements.
// Together with Device it covers spec.md §4.2's operations except
// dev_uninit: neither interface has an operation that releases a
// device's backend resources.
type Backend interface {
	// Name identifies the backend for logging and Result.Backend.
	Name() string

	// CtxInit acquires backend-level resources. Returning an error lets
	// the Context fall through to the next backend in its preference
	// list.
	CtxInit() error
	// CtxUninit releases backend-level resources; only called once all
	// the backend's devices are uninitialized.
	CtxUninit() error

	// Enumerate fills up to len(out) device descriptors of the given
	// type and returns the slice actually filled (a read-only query).
	Enumerate(t DeviceType, out []Info) ([]Info, error)

	// DevInit acquires the endpoint for cfg.Type, negotiates format,
	// writing the settled triple into cfg.Internal, and allocates any
	// intermediary buffers. Must not start the endpoint.
	DevInit(cfg *Config, src Source, sink Sink) (Device, error)
}
