package audiodevice

import (
	"github.com/rowanvale/audiodevice/internal/backend"
	"github.com/rowanvale/audiodevice/internal/backend/alsa"
	"github.com/rowanvale/audiodevice/internal/backend/dsound"
	"github.com/rowanvale/audiodevice/internal/backend/null"
	"github.com/rowanvale/audiodevice/internal/backend/openal"
	"github.com/rowanvale/audiodevice/internal/backend/opensl"
	"github.com/rowanvale/audiodevice/internal/backend/wasapi"
)

// BackendID names one of the backends a Context may select, per
// spec.md §3's preference list.
type BackendID string

const (
	BackendDSound BackendID = "dsound"
	BackendWASAPI BackendID = "wasapi"
	BackendALSA   BackendID = "alsa"
	BackendOpenSL BackendID = "opensl"
	BackendOpenAL BackendID = "openal"
	BackendNull   BackendID = "null"
)

// DefaultBackendOrder is spec.md §3's default preference list: the
// first backend that initializes successfully wins.
var DefaultBackendOrder = []BackendID{
	BackendDSound, BackendWASAPI, BackendALSA, BackendOpenSL, BackendOpenAL, BackendNull,
}

func newBackend(id BackendID) backend.Backend {
	switch id {
	case BackendDSound:
		return dsound.New()
	case BackendWASAPI:
		return wasapi.New()
	case BackendALSA:
		return alsa.New()
	case BackendOpenSL:
		return opensl.New()
	case BackendOpenAL:
		return openal.New()
	case BackendNull:
		return null.New()
	default:
		return nil
	}
}

// Context is the process-wide state of spec.md §3: the backend selected
// at Init, shared by every Device created from it. A Context outlives
// none of its devices — Uninit after any live device is a caller error.
type Context struct {
	backend   backend.Backend
	backendID BackendID
	// devices is the live device count. Concurrent InitDevice/Uninit
	// calls against the same Context are the caller's responsibility to
	// serialize, per spec.md §9's carve-out leaving that case undefined.
	devices int
}

// InitContext tries each backend in order (DefaultBackendOrder if order
// is empty), returning the first that initializes successfully.
func InitContext(order []BackendID) (*Context, *Result) {
	if len(order) == 0 {
		order = DefaultBackendOrder
	}
	for _, id := range order {
		b := newBackend(id)
		if b == nil {
			continue
		}
		if err := b.CtxInit(); err != nil {
			continue
		}
		return &Context{backend: b, backendID: id}, nil
	}
	return nil, newResult(CodeNoBackend, "", nil)
}

// BackendID reports which backend this Context selected.
func (c *Context) BackendID() BackendID { return c.backendID }

// Uninit releases the backend's resources. Per spec.md §3, this MUST
// only be called after every Device built from this Context has been
// uninitialized.
func (c *Context) Uninit() *Result {
	if c.devices != 0 {
		return newResult(CodeDeviceBusy, string(c.backendID), nil)
	}
	if err := c.backend.CtxUninit(); err != nil {
		return newResult(CodeFailedToInitBackend, string(c.backendID), err)
	}
	return nil
}
