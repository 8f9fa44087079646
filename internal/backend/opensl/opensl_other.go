//go:build !android

package opensl

import (
	"errors"

	"github.com/rowanvale/audiodevice/internal/backend"
)

// Backend is a stub off Android: OpenSL ES is an NDK-only API.
type Backend struct{}

func New() *Backend { return &Backend{} }

func (b *Backend) Name() string { return "opensl" }

func (b *Backend) CtxInit() error { return errors.New("opensl: only available on android") }

func (b *Backend) CtxUninit() error { return nil }

func (b *Backend) Enumerate(t backend.DeviceType, out []backend.Info) ([]backend.Info, error) {
	return out[:0], nil
}

func (b *Backend) DevInit(cfg *backend.Config, src backend.Source, sink backend.Sink) (backend.Device, error) {
	return nil, errors.New("opensl: only available on android")
}

var _ backend.Backend = (*Backend)(nil)
