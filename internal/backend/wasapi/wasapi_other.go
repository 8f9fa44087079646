//go:build !windows

package wasapi

import (
	"errors"

	"github.com/rowanvale/audiodevice/internal/backend"
)

// Backend is a stub off Windows.
type Backend struct{}

func New() *Backend { return &Backend{} }

func (b *Backend) Name() string { return "wasapi" }

func (b *Backend) CtxInit() error { return errors.New("wasapi: only available on windows") }

func (b *Backend) CtxUninit() error { return nil }

func (b *Backend) Enumerate(t backend.DeviceType, out []backend.Info) ([]backend.Info, error) {
	return out[:0], nil
}

func (b *Backend) DevInit(cfg *backend.Config, src backend.Source, sink backend.Sink) (backend.Device, error) {
	return nil, errors.New("wasapi: only available on windows")
}

var _ backend.Backend = (*Backend)(nil)
