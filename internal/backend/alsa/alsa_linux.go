//go:build linux

// Package alsa implements the backend.Backend contract over
// github.com/yobert/alsa, a pure-Go ALSA binding — grounded on
// ausocean/av's device/alsa/alsa.go card/device negotiation sequence
// (NegotiateChannels/NegotiateRate/NegotiateFormat/NegotiatePeriodSize/
// NegotiateBufferSize, then Prepare).
package alsa

import (
	"fmt"
	"time"

	yalsa "github.com/yobert/alsa"

	"github.com/rowanvale/audiodevice/internal/backend"
	"github.com/rowanvale/audiodevice/internal/convert"
	"github.com/rowanvale/audiodevice/internal/primitives"
	"github.com/rowanvale/audiodevice/internal/ring"
)

// maxPeriods is ALSA's own practical cap used throughout this file for
// buffer sizing (four periods fit comfortably in any card's ring).
const maxPeriods = 4

// Backend wraps a handful of open ALSA cards discovered at CtxInit.
type Backend struct {
	cards []*yalsa.Card
}

func New() *Backend { return &Backend{} }

func (b *Backend) Name() string { return "alsa" }

func (b *Backend) CtxInit() error {
	cards, err := yalsa.OpenCards()
	if err != nil {
		return fmt.Errorf("alsa: open cards: %w", err)
	}
	b.cards = cards
	return nil
}

func (b *Backend) CtxUninit() error {
	yalsa.CloseCards(b.cards)
	b.cards = nil
	return nil
}

func (b *Backend) Enumerate(t backend.DeviceType, out []backend.Info) ([]backend.Info, error) {
	n := 0
	for _, card := range b.cards {
		devs, err := card.Devices()
		if err != nil {
			continue
		}
		for _, d := range devs {
			if n >= len(out) {
				return out[:n], nil
			}
			if d.Type != yalsa.PCM {
				continue
			}
			if t == backend.Capture && !d.Record {
				continue
			}
			if t == backend.Playback && !d.Play {
				continue
			}
			out[n] = backend.Info{ID: d.Title, Name: d.Title, Default: n == 0}
			n++
		}
	}
	return out[:n], nil
}

func (b *Backend) findDevice(t backend.DeviceType, id any) (*yalsa.Device, error) {
	wantTitle, _ := id.(string)
	for _, card := range b.cards {
		devs, err := card.Devices()
		if err != nil {
			continue
		}
		for _, d := range devs {
			if d.Type != yalsa.PCM {
				continue
			}
			if t == backend.Capture && !d.Record {
				continue
			}
			if t == backend.Playback && !d.Play {
				continue
			}
			if wantTitle == "" || d.Title == wantTitle {
				return d, nil
			}
		}
	}
	return nil, fmt.Errorf("alsa: no matching device")
}

func (b *Backend) DevInit(cfg *backend.Config, src backend.Source, sink backend.Sink) (backend.Device, error) {
	yd, err := b.findDevice(cfg.Type, nil)
	if err != nil {
		return nil, err
	}
	if err := yd.Open(); err != nil {
		return nil, fmt.Errorf("alsa: open: %w", err)
	}

	channels, err := yd.NegotiateChannels(cfg.Channels)
	if err != nil {
		yd.Close()
		return nil, fmt.Errorf("alsa: negotiate channels: %w", err)
	}

	rate, err := yd.NegotiateRate(cfg.SampleRate)
	if err != nil {
		yd.Close()
		return nil, fmt.Errorf("alsa: negotiate rate: %w", err)
	}

	alsaFmt, goFmt := negotiateFormat(cfg.Format)
	gotFmt, err := yd.NegotiateFormat(alsaFmt)
	if err != nil {
		yd.Close()
		return nil, fmt.Errorf("alsa: negotiate format: %w", err)
	}
	if gotFmt != alsaFmt {
		goFmt = fromALSAFormat(gotFmt)
	}

	if cfg.BufferSizeInFrames == 0 {
		cfg.BufferSizeInFrames = rate / 1000 * 25
		cfg.DefaultedBufferSize = true
	}
	if cfg.PeriodCount == 0 {
		cfg.PeriodCount = 2
		cfg.DefaultedPeriodCount = true
	}
	if cfg.PeriodCount > maxPeriods {
		cfg.PeriodCount = maxPeriods
	}
	periodSize := cfg.BufferSizeInFrames / cfg.PeriodCount

	periodSize, err = yd.NegotiatePeriodSize(periodSize)
	if err != nil {
		yd.Close()
		return nil, fmt.Errorf("alsa: negotiate period size: %w", err)
	}
	bufSize, err := yd.NegotiateBufferSize(periodSize * cfg.PeriodCount)
	if err != nil {
		yd.Close()
		return nil, fmt.Errorf("alsa: negotiate buffer size: %w", err)
	}
	cfg.BufferSizeInFrames = bufSize

	if err := yd.Prepare(); err != nil {
		yd.Close()
		return nil, fmt.Errorf("alsa: prepare: %w", err)
	}

	cfg.Internal.Format = goFmt
	cfg.Internal.Channels = channels
	cfg.Internal.SampleRate = rate
	cfg.Internal.ChannelMap = cfg.ChannelMap

	d := &device{
		yd:           yd,
		cfg:          cfg,
		src:          src,
		sink:         sink,
		frameBytes:   channels * goFmt.BytesPerSample(),
		periodFrames: periodSize,
		cur:          ring.NewCursor(cfg.BufferSizeInFrames),
		breakEvent:   primitives.NewEvent(),
	}
	return d, nil
}

func negotiateFormat(f convert.Format) (yalsa.FormatType, convert.Format) {
	switch f {
	case convert.S32:
		return yalsa.S32_LE, convert.S32
	default:
		return yalsa.S16_LE, convert.S16
	}
}

func fromALSAFormat(f yalsa.FormatType) convert.Format {
	if f == yalsa.S32_LE {
		return convert.S32
	}
	return convert.S16
}

type device struct {
	yd   *yalsa.Device
	cfg  *backend.Config
	src  backend.Source
	sink backend.Sink

	frameBytes   int
	periodFrames int
	cur          *ring.Cursor
	breakEvent   *primitives.Event
}

func (d *device) BufferSizeInFrames() int { return d.cfg.BufferSizeInFrames }
func (d *device) PeriodCount() int        { return d.cfg.PeriodCount }

func (d *device) Start() error {
	d.cur.Reset()
	if d.cfg.Type == backend.Playback {
		buf := make([]byte, d.cfg.BufferSizeInFrames*d.frameBytes)
		got := d.src.Read(d.cfg.BufferSizeInFrames, buf)
		if got < d.cfg.BufferSizeInFrames {
			for i := got * d.frameBytes; i < len(buf); i++ {
				buf[i] = 0
			}
		}
		if _, err := d.yd.Write(buf); err != nil {
			return fmt.Errorf("alsa: pre-roll write: %w", err)
		}
		d.cur.AdvanceLast(d.cfg.BufferSizeInFrames)
	}
	return nil
}

func (d *device) Stop() error {
	d.cur.Reset()
	return nil
}

func (d *device) Break() { d.breakEvent.Signal() }

// MainLoop follows spec.md §4.3's skeleton: wait for a period, transfer
// it, advance. ALSA's blocking Read/Write already gate on device
// readiness, so wait_for_frames here is just the break check plus the
// blocking I/O call itself; a recoverable EPIPE (under/overrun) is
// retried once via Prepare before the transfer is attempted again.
func (d *device) MainLoop() {
	for {
		select {
		case <-d.breakEvent.Done():
			return
		default:
		}

		buf := make([]byte, d.periodFrames*d.frameBytes)
		if d.cfg.Type == backend.Playback {
			got := d.src.Read(d.periodFrames, buf)
			if got < d.periodFrames {
				for i := got * d.frameBytes; i < len(buf); i++ {
					buf[i] = 0
				}
			}
			if _, err := d.yd.Write(buf); err != nil {
				if !d.recover() {
					return
				}
				if _, err := d.yd.Write(buf); err != nil {
					return
				}
			}
		} else {
			n, err := d.yd.Read(buf)
			if err != nil {
				if !d.recover() {
					return
				}
				if n, err = d.yd.Read(buf); err != nil {
					return
				}
			}
			d.sink.Write(buf, n/d.frameBytes)
		}
		d.cur.AdvanceLast(d.periodFrames)
	}
}

// recover attempts one ALSA Prepare() to clear an EPIPE under/overrun,
// per spec.md §4.3/§7's "attempt one recovery then retry" policy.
func (d *device) recover() bool {
	if err := d.yd.Prepare(); err != nil {
		return false
	}
	time.Sleep(time.Millisecond) // let the card settle before retrying
	return true
}

var _ backend.Backend = (*Backend)(nil)
var _ backend.Device = (*device)(nil)
