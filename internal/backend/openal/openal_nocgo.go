//go:build !cgo

package openal

import (
	"errors"

	"github.com/rowanvale/audiodevice/internal/backend"
)

// Backend is a stub for cgo-disabled builds: go-openal needs cgo to bind
// OpenAL's C ABI, so CtxInit always fails here.
type Backend struct{}

func New() *Backend { return &Backend{} }

func (b *Backend) Name() string { return "openal" }

func (b *Backend) CtxInit() error { return errors.New("openal: requires cgo") }

func (b *Backend) CtxUninit() error { return nil }

func (b *Backend) Enumerate(t backend.DeviceType, out []backend.Info) ([]backend.Info, error) {
	return out[:0], nil
}

func (b *Backend) DevInit(cfg *backend.Config, src backend.Source, sink backend.Sink) (backend.Device, error) {
	return nil, errors.New("openal: requires cgo")
}

var _ backend.Backend = (*Backend)(nil)
