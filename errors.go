package audiodevice

import "fmt"

// Code is a discriminated result kind. Every fallible operation in this
// package returns one, wrapped in a *Result, instead of an opaque error
// string, so callers can switch on it per the contract in spec.md §7.
type Code int

const (
	// CodeSuccess is the distinguished success value. A nil *Result
	// always means success; CodeSuccess only appears inside a filled Result
	// when code is compared directly.
	CodeSuccess Code = iota

	// Argument/state.
	CodeInvalidArgs
	CodeInvalidDeviceConfig
	CodeDeviceNotInitialized
	CodeDeviceBusy
	CodeDeviceAlreadyStarted
	CodeDeviceAlreadyStarting
	CodeDeviceAlreadyStopped
	CodeDeviceAlreadyStopping

	// Resource.
	CodeOutOfMemory
	CodeFailedToCreateMutex
	CodeFailedToCreateEvent
	CodeFailedToCreateThread

	// Capability.
	CodeFormatNotSupported
	CodeNoBackend
	CodeNoDevice
	CodeAPINotFound

	// Backend I/O.
	CodeFailedToInitBackend
	CodeFailedToMapDeviceBuffer
	CodeFailedToReadDataFromClient
	CodeFailedToStartBackendDevice
	CodeFailedToStopBackendDevice
)

func (c Code) String() string {
	switch c {
	case CodeSuccess:
		return "success"
	case CodeInvalidArgs:
		return "invalid args"
	case CodeInvalidDeviceConfig:
		return "invalid device config"
	case CodeDeviceNotInitialized:
		return "device not initialized"
	case CodeDeviceBusy:
		return "device busy"
	case CodeDeviceAlreadyStarted:
		return "device already started"
	case CodeDeviceAlreadyStarting:
		return "device already starting"
	case CodeDeviceAlreadyStopped:
		return "device already stopped"
	case CodeDeviceAlreadyStopping:
		return "device already stopping"
	case CodeOutOfMemory:
		return "out of memory"
	case CodeFailedToCreateMutex:
		return "failed to create mutex"
	case CodeFailedToCreateEvent:
		return "failed to create event"
	case CodeFailedToCreateThread:
		return "failed to create thread"
	case CodeFormatNotSupported:
		return "format not supported"
	case CodeNoBackend:
		return "no backend"
	case CodeNoDevice:
		return "no device"
	case CodeAPINotFound:
		return "api not found"
	case CodeFailedToInitBackend:
		return "failed to init backend"
	case CodeFailedToMapDeviceBuffer:
		return "failed to map device buffer"
	case CodeFailedToReadDataFromClient:
		return "failed to read data from client"
	case CodeFailedToStartBackendDevice:
		return "failed to start backend device"
	case CodeFailedToStopBackendDevice:
		return "failed to stop backend device"
	default:
		return "unknown"
	}
}

// Result is the error type returned by every fallible operation. Backend
// is the originating backend id ("" for codes raised above the backend
// layer), used to build the "[BACKEND] message" log prefix from spec.md §7.
type Result struct {
	Code    Code
	Backend string
	Err     error
}

func (r *Result) Error() string {
	if r == nil {
		return "success"
	}
	if r.Backend != "" {
		if r.Err != nil {
			return fmt.Sprintf("[%s] %s: %v", r.Backend, r.Code, r.Err)
		}
		return fmt.Sprintf("[%s] %s", r.Backend, r.Code)
	}
	if r.Err != nil {
		return fmt.Sprintf("%s: %v", r.Code, r.Err)
	}
	return r.Code.String()
}

// Unwrap exposes the wrapped cause, if any, to errors.Is/errors.As.
func (r *Result) Unwrap() error {
	if r == nil {
		return nil
	}
	return r.Err
}

// newResult builds a *Result, wrapping cause with %w semantics via Err.
func newResult(code Code, backend string, cause error) *Result {
	return &Result{Code: code, Backend: backend, Err: cause}
}

// IsCode reports whether err is a *Result carrying exactly code.
func IsCode(err error, code Code) bool {
	var r *Result
	if err == nil {
		return false
	}
	if asResult, ok := err.(*Result); ok {
		r = asResult
	} else {
		return false
	}
	return r.Code == code
}
