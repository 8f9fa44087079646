//go:build !linux

package alsa

import (
	"errors"

	"github.com/rowanvale/audiodevice/internal/backend"
)

// Backend is a stub on non-Linux platforms: CtxInit always fails, which
// lets Context.InitContext fall through to the next backend in order.
type Backend struct{}

func New() *Backend { return &Backend{} }

func (b *Backend) Name() string { return "alsa" }

func (b *Backend) CtxInit() error { return errors.New("alsa: not available on this platform") }

func (b *Backend) CtxUninit() error { return nil }

func (b *Backend) Enumerate(t backend.DeviceType, out []backend.Info) ([]backend.Info, error) {
	return out[:0], nil
}

func (b *Backend) DevInit(cfg *backend.Config, src backend.Source, sink backend.Sink) (backend.Device, error) {
	return nil, errors.New("alsa: not available on this platform")
}

var _ backend.Backend = (*Backend)(nil)
