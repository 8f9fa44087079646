package audiodevice

import "github.com/rowanvale/audiodevice/internal/backend"

// DeviceID is the closed union of backend-specific device identifiers
// (§9's "tagged backend variant" guidance): it wraps whatever id the
// backend's Enumerate reported. Every backend in this module reports a
// string: "default" for DirectSound, WASAPI and OpenSL, the device title
// for ALSA, "null" for the null backend and "" for OpenAL; none reports
// a GUID or numeric id.
type DeviceID interface {
	deviceID()
}

type opaqueDeviceID struct{ v any }

func (opaqueDeviceID) deviceID() {}

// DeviceInfo describes one enumerable endpoint, per §12's supplemented
// enumeration shape.
type DeviceInfo struct {
	ID        DeviceID
	Name      string
	IsDefault bool
}

// maxEnumeratedDevices bounds the scratch buffer passed to a backend's
// Enumerate; discovery mechanics beyond this are a non-goal (§13), so a
// handful of slots is enough for every backend actually implemented
// here (ALSA lists each PCM device it finds; the others report at most
// one default endpoint per direction).
const maxEnumeratedDevices = 32

// EnumerateDevices lists the endpoints ctx's backend can see for the
// given direction. Enumeration is a read-only query: it never starts or
// claims a device.
func EnumerateDevices(ctx *Context, t DeviceType) ([]DeviceInfo, *Result) {
	buf := make([]backend.Info, maxEnumeratedDevices)
	found, err := ctx.backend.Enumerate(backend.DeviceType(t), buf)
	if err != nil {
		return nil, newResult(CodeNoDevice, string(ctx.backendID), err)
	}

	out := make([]DeviceInfo, len(found))
	for i, info := range found {
		out[i] = DeviceInfo{
			ID:        opaqueDeviceID{v: info.ID},
			Name:      info.Name,
			IsDefault: info.Default,
		}
	}
	return out, nil
}
