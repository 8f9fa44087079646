//go:build !windows

package dsound

import (
	"errors"

	"github.com/rowanvale/audiodevice/internal/backend"
)

// Backend is a stub off Windows.
type Backend struct{}

func New() *Backend { return &Backend{} }

func (b *Backend) Name() string { return "dsound" }

func (b *Backend) CtxInit() error { return errors.New("dsound: only available on windows") }

func (b *Backend) CtxUninit() error { return nil }

func (b *Backend) Enumerate(t backend.DeviceType, out []backend.Info) ([]backend.Info, error) {
	return out[:0], nil
}

func (b *Backend) DevInit(cfg *backend.Config, src backend.Source, sink backend.Sink) (backend.Device, error) {
	return nil, errors.New("dsound: only available on windows")
}

var _ backend.Backend = (*Backend)(nil)
