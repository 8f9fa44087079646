//go:build windows

package wasapi

// The raw COM plumbing WASAPI needs (IMMDeviceEnumerator/IMMDevice/
// IAudioClient/IAudioRenderClient/IAudioCaptureClient), called through
// their vtables with syscall.SyscallN — grounded on oto's driver_wasapi
// style (oto names these types _IAudioClient2 etc. and drives them from
// a dedicated CoInitializeEx'd goroutine; the same shape is used here,
// trimmed to the interfaces this backend actually touches).

import (
	"fmt"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	ole32                  = windows.NewLazySystemDLL("ole32.dll")
	procCoInitializeEx     = ole32.NewProc("CoInitializeEx")
	procCoUninitialize     = ole32.NewProc("CoUninitialize")
	procCoCreateInstance   = ole32.NewProc("CoCreateInstance")
)

const (
	cocoinitMultithreaded = 0x0
	clsctxAll             = 23 // INPROC_SERVER|INPROC_HANDLER|LOCAL_SERVER|REMOTE_SERVER

	audclntShareModeShared = 0
	audclntStreamflagsEventcallback = 0x00040000

	eRender  = 0
	eCapture = 1
	eConsole = 0

	waveFormatExtensible = 0xFFFE

	speakerFrontLeft   = 0x1
	speakerFrontRight  = 0x2
	speakerFrontCenter = 0x4
)

type guid struct {
	Data1 uint32
	Data2 uint16
	Data3 uint16
	Data4 [8]byte
}

func mustGUID(s string) guid {
	g, err := windows.GUIDFromString(s)
	if err != nil {
		panic(err)
	}
	return guid{g.Data1, g.Data2, g.Data3, g.Data4}
}

var (
	clsidMMDeviceEnumerator = mustGUID("{BCDE0395-E52F-467C-8E3D-C4579291692E}")
	iidIMMDeviceEnumerator  = mustGUID("{A95664D2-9614-4F35-A746-DE8DB63617E6}")
	iidIAudioClient         = mustGUID("{1CB9AD4C-DBFA-4c32-B178-C2F568A703B2}")
	iidIAudioRenderClient   = mustGUID("{F294ACFC-3146-4483-A7B-94F4DBFB6667}")
	iidIAudioCaptureClient  = mustGUID("{C8ADBD64-E71E-48a0-A4DE-185C395CD317}")

	subtypeIEEEFloat = mustGUID("{00000003-0000-0010-8000-00AA00389B71}")
)

func comInit() error {
	r, _, _ := procCoInitializeEx.Call(0, cocoinitMultithreaded)
	if int32(r) < 0 {
		return fmt.Errorf("wasapi: CoInitializeEx failed: 0x%x", r)
	}
	return nil
}

func comUninit() { procCoUninitialize.Call() }

// unknown is the common prologue of every COM interface: a vtable
// pointer as the first field, from which method N is fetched as
// vtable[N] and invoked via syscall.SyscallN.
type unknown struct {
	vtbl *uintptr
}

func vtblCall(obj unsafe.Pointer, index int, args ...uintptr) (uintptr, error) {
	u := (*unknown)(obj)
	base := unsafe.Pointer(u.vtbl)
	fn := *(*uintptr)(unsafe.Pointer(uintptr(base) + uintptr(index)*unsafe.Sizeof(uintptr(0))))
	all := append([]uintptr{uintptr(obj)}, args...)
	r, _, _ := syscall.SyscallN(fn, all...)
	if int32(r) < 0 {
		return r, fmt.Errorf("wasapi: COM call (vtbl %d) failed: 0x%x", index, uint32(r))
	}
	return r, nil
}

func release(obj unsafe.Pointer) {
	if obj != nil {
		vtblCall(obj, 2) // IUnknown::Release
	}
}

func coCreateInstance(clsid, iid *guid) (unsafe.Pointer, error) {
	var out unsafe.Pointer
	r, _, _ := procCoCreateInstance.Call(
		uintptr(unsafe.Pointer(clsid)), 0, clsctxAll,
		uintptr(unsafe.Pointer(iid)), uintptr(unsafe.Pointer(&out)))
	if int32(r) < 0 {
		return nil, fmt.Errorf("wasapi: CoCreateInstance failed: 0x%x", r)
	}
	return out, nil
}

// IMMDeviceEnumerator::GetDefaultAudioEndpoint, vtbl index 4.
func getDefaultAudioEndpoint(enumerator unsafe.Pointer, dataFlow uint32) (unsafe.Pointer, error) {
	var dev unsafe.Pointer
	_, err := vtblCall(enumerator, 4, uintptr(dataFlow), eConsole, uintptr(unsafe.Pointer(&dev)))
	return dev, err
}

// IMMDevice::Activate, vtbl index 3.
func activate(device unsafe.Pointer, iid *guid) (unsafe.Pointer, error) {
	var out unsafe.Pointer
	_, err := vtblCall(device, 3, uintptr(unsafe.Pointer(iid)), clsctxAll, 0, uintptr(unsafe.Pointer(&out)))
	return out, err
}

// waveFormatExtensibleT mirrors WAVEFORMATEXTENSIBLE, used to request a
// float32 interleaved mix format from the shared-mode endpoint.
type waveFormatExtensibleT struct {
	wFormatTag      uint16
	nChannels       uint16
	nSamplesPerSec  uint32
	nAvgBytesPerSec uint32
	nBlockAlign     uint16
	wBitsPerSample  uint16
	cbSize          uint16
	wValidBitsPerSample uint16
	dwChannelMask   uint32
	subFormat       guid
}

func newFloatFormat(channels, rate int) *waveFormatExtensibleT {
	const bits = 32
	blockAlign := channels * bits / 8
	var mask uint32
	switch channels {
	case 1:
		mask = speakerFrontCenter
	case 2:
		mask = speakerFrontLeft | speakerFrontRight
	default:
		mask = speakerFrontLeft | speakerFrontRight
	}
	return &waveFormatExtensibleT{
		wFormatTag:          waveFormatExtensible,
		nChannels:           uint16(channels),
		nSamplesPerSec:      uint32(rate),
		nAvgBytesPerSec:     uint32(rate * blockAlign),
		nBlockAlign:         uint16(blockAlign),
		wBitsPerSample:      bits,
		cbSize:              22,
		wValidBitsPerSample: bits,
		dwChannelMask:       mask,
		subFormat:           subtypeIEEEFloat,
	}
}

// IAudioClient::Initialize, vtbl index 3.
func clientInitialize(client unsafe.Pointer, shareMode, streamFlags uint32, bufferDuration, periodicity int64, fmt *waveFormatExtensibleT) error {
	_, err := vtblCall(client, 3,
		uintptr(shareMode), uintptr(streamFlags),
		uintptr(bufferDuration), uintptr(periodicity),
		uintptr(unsafe.Pointer(fmt)), 0)
	return err
}

// IAudioClient::GetBufferSize, vtbl index 7.
func clientGetBufferSize(client unsafe.Pointer) (uint32, error) {
	var frames uint32
	_, err := vtblCall(client, 7, uintptr(unsafe.Pointer(&frames)))
	return frames, err
}

// IAudioClient::GetCurrentPadding, vtbl index 10.
func clientGetCurrentPadding(client unsafe.Pointer) (uint32, error) {
	var padding uint32
	_, err := vtblCall(client, 10, uintptr(unsafe.Pointer(&padding)))
	return padding, err
}

// IAudioClient::GetService, vtbl index 14.
func clientGetService(client unsafe.Pointer, iid *guid) (unsafe.Pointer, error) {
	var out unsafe.Pointer
	_, err := vtblCall(client, 14, uintptr(unsafe.Pointer(iid)), uintptr(unsafe.Pointer(&out)))
	return out, err
}

// IAudioClient::SetEventHandle, vtbl index 11.
func clientSetEventHandle(client unsafe.Pointer, h windows.Handle) error {
	_, err := vtblCall(client, 11, uintptr(h))
	return err
}

// IAudioClient::Start/Stop, vtbl indices 12/13.
func clientStart(client unsafe.Pointer) error { _, err := vtblCall(client, 12); return err }
func clientStop(client unsafe.Pointer) error  { _, err := vtblCall(client, 13); return err }

// IAudioRenderClient::GetBuffer/ReleaseBuffer, vtbl indices 3/4.
func renderGetBuffer(rc unsafe.Pointer, frames uint32) (unsafe.Pointer, error) {
	var p unsafe.Pointer
	_, err := vtblCall(rc, 3, uintptr(frames), uintptr(unsafe.Pointer(&p)))
	return p, err
}
func renderReleaseBuffer(rc unsafe.Pointer, frames uint32, flags uint32) error {
	_, err := vtblCall(rc, 4, uintptr(frames), uintptr(flags))
	return err
}

// audclntBufferflagsSilent marks a captured packet as silence (e.g. the
// endpoint glitched or has nothing connected); the data pointer may not
// even be valid zeroed memory, so callers must zero it themselves.
const audclntBufferflagsSilent = 0x2

// IAudioCaptureClient::GetBuffer/ReleaseBuffer/GetNextPacketSize, vtbl
// indices 3/5/10.
func captureGetBuffer(cc unsafe.Pointer) (unsafe.Pointer, uint32, uint32, error) {
	var p unsafe.Pointer
	var frames, flags uint32
	_, err := vtblCall(cc, 3,
		uintptr(unsafe.Pointer(&p)), uintptr(unsafe.Pointer(&frames)),
		uintptr(unsafe.Pointer(&flags)), 0, 0)
	return p, frames, flags, err
}
func captureReleaseBuffer(cc unsafe.Pointer, frames uint32) error {
	_, err := vtblCall(cc, 5, uintptr(frames))
	return err
}
func captureGetNextPacketSize(cc unsafe.Pointer) (uint32, error) {
	var n uint32
	_, err := vtblCall(cc, 10, uintptr(unsafe.Pointer(&n)))
	return n, err
}
