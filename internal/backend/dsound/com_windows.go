//go:build windows

package dsound

// DirectSound's minimal COM surface: DirectSoundCreate8, IDirectSound8
// (SetCooperativeLevel/CreateSoundBuffer), IDirectSoundBuffer (Lock/
// Unlock/GetCurrentPosition/Play/Stop), and DirectSoundCaptureCreate8's
// mirror image for capture. Called through vtables the same way as
// internal/backend/wasapi's com_windows.go.

import (
	"fmt"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	dsoundDLL                  = windows.NewLazySystemDLL("dsound.dll")
	procDirectSoundCreate8     = dsoundDLL.NewProc("DirectSoundCreate8")
	procDirectSoundCaptureCreate8 = dsoundDLL.NewProc("DirectSoundCaptureCreate8")
)

const (
	dsSCLPriority = 2

	dsbcapsCtrlpositionnotify = 0x00000100
	dsbcapsGlobalfocus        = 0x00008000
	dsbcapsGetcurrentposition2 = 0x00010000

	dsbplayLooping = 0x00000001
)

type unknown struct{ vtbl *uintptr }

func vtblCall(obj unsafe.Pointer, index int, args ...uintptr) (uintptr, error) {
	u := (*unknown)(obj)
	fn := *(*uintptr)(unsafe.Pointer(uintptr(unsafe.Pointer(u.vtbl)) + uintptr(index)*unsafe.Sizeof(uintptr(0))))
	all := append([]uintptr{uintptr(obj)}, args...)
	r, _, _ := syscall.SyscallN(fn, all...)
	if int32(r) < 0 {
		return r, fmt.Errorf("dsound: COM call (vtbl %d) failed: 0x%x", index, uint32(r))
	}
	return r, nil
}

func release(obj unsafe.Pointer) {
	if obj != nil {
		vtblCall(obj, 2)
	}
}

type waveFormatPCM struct {
	wFormatTag      uint16
	nChannels       uint16
	nSamplesPerSec  uint32
	nAvgBytesPerSec uint32
	nBlockAlign     uint16
	wBitsPerSample  uint16
	cbSize          uint16
}

const waveFormatIEEEFloat = 3

func newFloatFormat(channels, rate int) *waveFormatPCM {
	const bits = 32
	blockAlign := channels * bits / 8
	return &waveFormatPCM{
		wFormatTag:      waveFormatIEEEFloat,
		nChannels:       uint16(channels),
		nSamplesPerSec:  uint32(rate),
		nAvgBytesPerSec: uint32(rate * blockAlign),
		nBlockAlign:     uint16(blockAlign),
		wBitsPerSample:  bits,
	}
}

type dsbufferdesc struct {
	dwSize          uint32
	dwFlags         uint32
	dwBufferBytes   uint32
	dwReserved      uint32
	lpwfxFormat     *waveFormatPCM
	guid3DAlgorithm guid
}

type dscbufferdesc struct {
	dwSize        uint32
	dwFlags       uint32
	dwBufferBytes uint32
	dwReserved    uint32
	lpwfxFormat   *waveFormatPCM
}

type guid struct {
	Data1 uint32
	Data2 uint16
	Data3 uint16
	Data4 [8]byte
}

func directSoundCreate8(hwnd windows.Handle) (unsafe.Pointer, error) {
	var out unsafe.Pointer
	r, _, _ := procDirectSoundCreate8.Call(0, uintptr(unsafe.Pointer(&out)), 0)
	if int32(r) < 0 {
		return nil, fmt.Errorf("dsound: DirectSoundCreate8 failed: 0x%x", r)
	}
	_, err := vtblCall(out, 5 /*SetCooperativeLevel*/, uintptr(hwnd), dsSCLPriority)
	return out, err
}

func directSoundCaptureCreate8() (unsafe.Pointer, error) {
	var out unsafe.Pointer
	r, _, _ := procDirectSoundCaptureCreate8.Call(0, uintptr(unsafe.Pointer(&out)), 0)
	if int32(r) < 0 {
		return nil, fmt.Errorf("dsound: DirectSoundCaptureCreate8 failed: 0x%x", r)
	}
	return out, nil
}

// IDirectSound8::CreateSoundBuffer, vtbl index 3.
func createSoundBuffer(ds unsafe.Pointer, bytes uint32, fmtPCM *waveFormatPCM) (unsafe.Pointer, error) {
	desc := dsbufferdesc{
		dwSize:        uint32(unsafe.Sizeof(dsbufferdesc{})),
		dwFlags:       dsbcapsGlobalfocus | dsbcapsGetcurrentposition2,
		dwBufferBytes: bytes,
		lpwfxFormat:   fmtPCM,
	}
	var out unsafe.Pointer
	_, err := vtblCall(ds, 3, uintptr(unsafe.Pointer(&desc)), uintptr(unsafe.Pointer(&out)), 0)
	return out, err
}

// IDirectSoundCapture8::CreateCaptureBuffer, vtbl index 3.
func createCaptureBuffer(dsc unsafe.Pointer, bytes uint32, fmtPCM *waveFormatPCM) (unsafe.Pointer, error) {
	desc := dscbufferdesc{
		dwSize:        uint32(unsafe.Sizeof(dscbufferdesc{})),
		dwBufferBytes: bytes,
		lpwfxFormat:   fmtPCM,
	}
	var out unsafe.Pointer
	_, err := vtblCall(dsc, 3, uintptr(unsafe.Pointer(&desc)), uintptr(unsafe.Pointer(&out)), 0)
	return out, err
}

// IDirectSoundBuffer::Play, vtbl index 12.
func bufferPlay(buf unsafe.Pointer) error {
	_, err := vtblCall(buf, 12, 0, 0, dsbplayLooping)
	return err
}

// IDirectSoundBuffer::Stop, vtbl index 13.
func bufferStop(buf unsafe.Pointer) error { _, err := vtblCall(buf, 13); return err }

// IDirectSoundBuffer::GetCurrentPosition, vtbl index 7.
func bufferGetCurrentPosition(buf unsafe.Pointer) (play, write uint32, err error) {
	_, err = vtblCall(buf, 7, uintptr(unsafe.Pointer(&play)), uintptr(unsafe.Pointer(&write)))
	return
}

// IDirectSoundBuffer::Lock, vtbl index 11.
func bufferLock(buf unsafe.Pointer, offset, bytes uint32) (p1 unsafe.Pointer, n1 uint32, p2 unsafe.Pointer, n2 uint32, err error) {
	_, err = vtblCall(buf, 11,
		uintptr(offset), uintptr(bytes),
		uintptr(unsafe.Pointer(&p1)), uintptr(unsafe.Pointer(&n1)),
		uintptr(unsafe.Pointer(&p2)), uintptr(unsafe.Pointer(&n2)), 0)
	return
}

// IDirectSoundBuffer::Unlock, vtbl index 19.
func bufferUnlock(buf unsafe.Pointer, p1 unsafe.Pointer, n1 uint32, p2 unsafe.Pointer, n2 uint32) error {
	_, err := vtblCall(buf, 19, uintptr(unsafe.Pointer(p1)), uintptr(n1), uintptr(unsafe.Pointer(p2)), uintptr(n2))
	return err
}

// IDirectSoundCaptureBuffer::Start, vtbl index 12.
func captureBufferStart(buf unsafe.Pointer) error { _, err := vtblCall(buf, 12, dsbplayLooping); return err }

// IDirectSoundCaptureBuffer::Stop, vtbl index 13.
func captureBufferStop(buf unsafe.Pointer) error { _, err := vtblCall(buf, 13); return err }

// IDirectSoundCaptureBuffer::GetCurrentPosition, vtbl index 7.
func captureBufferGetCurrentPosition(buf unsafe.Pointer) (capture, read uint32, err error) {
	_, err = vtblCall(buf, 7, uintptr(unsafe.Pointer(&capture)), uintptr(unsafe.Pointer(&read)))
	return
}

// IDirectSoundCaptureBuffer::Lock, vtbl index 11.
func captureBufferLock(buf unsafe.Pointer, offset, bytes uint32) (p1 unsafe.Pointer, n1 uint32, p2 unsafe.Pointer, n2 uint32, err error) {
	_, err = vtblCall(buf, 11,
		uintptr(offset), uintptr(bytes),
		uintptr(unsafe.Pointer(&p1)), uintptr(unsafe.Pointer(&n1)),
		uintptr(unsafe.Pointer(&p2)), uintptr(unsafe.Pointer(&n2)), 0)
	return
}

// IDirectSoundCaptureBuffer::Unlock, vtbl index 13.
func captureBufferUnlock(buf unsafe.Pointer, p1 unsafe.Pointer, n1 uint32, p2 unsafe.Pointer, n2 uint32) error {
	_, err := vtblCall(buf, 13, uintptr(unsafe.Pointer(p1)), uintptr(n1), uintptr(unsafe.Pointer(p2)), uintptr(n2))
	return err
}
