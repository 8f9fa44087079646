package audiodevice

// DeviceType selects whether a Device plays audio out or captures audio
// in, per spec.md §3.
type DeviceType int

const (
	Playback DeviceType = iota
	Capture
)

// DataCallback is invoked on the worker thread to move frames between
// the endpoint and the application, per spec.md §6.
//
//   - Playback: writes up to len(out)/frameBytes frames into out,
//     returns the number of frames actually written; shortfalls are
//     zero-filled by the library, never by the callback.
//   - Capture: receives up to 4KiB of samples already converted to the
//     application's format/channel layout.
type DataCallback func(device *Device, frameCount int, buf []byte) int

// StoppedCallback is invoked exactly once per Started→Stopped
// transition that wasn't part of initial setup, per spec.md §5.
type StoppedCallback func(device *Device)

// LogCallback receives one UTF-8 line per diagnostic message. If nil,
// the device logs through internal/devlog's fallback sink instead.
type LogCallback func(device *Device, message string)

// DeviceConfig is the immutable request a Device is built from
// (spec.md §3). Zero values for BufferSizeInFrames/PeriodCount mean
// "use the backend's default"; DefaultChannelMap fills ChannelMap for
// the common channel counts.
type DeviceConfig struct {
	Type       DeviceType
	Format     Format
	Channels   int
	SampleRate int
	ChannelMap []ChannelPosition // len == Channels, no duplicates

	BufferSizeInFrames int // 0 => sample_rate/1000 * 25ms
	PeriodCount        int // 0 => 2

	OnDataNeeded    DataCallback    // playback
	OnDataAvailable DataCallback    // capture
	OnStopped       StoppedCallback
	OnLog           LogCallback
}

// DefaultDeviceConfig returns a DeviceConfig with the given type and
// otherwise-zero fields. Callers still must fill
// Format/Channels/SampleRate before passing it to Init.
func DefaultDeviceConfig(t DeviceType) DeviceConfig {
	return DeviceConfig{Type: t}
}

// validate checks the invariants spec.md §3 requires of a DeviceConfig
// before it reaches a backend's dev_init.
func (c *DeviceConfig) validate() *Result {
	if c.Channels < 1 || c.Channels > MaxChannels {
		return newResult(CodeInvalidDeviceConfig, "", nil)
	}
	if c.SampleRate <= 0 {
		return newResult(CodeInvalidDeviceConfig, "", nil)
	}
	if c.BufferSizeInFrames < 0 || c.PeriodCount < 0 {
		return newResult(CodeInvalidDeviceConfig, "", nil)
	}
	if len(c.ChannelMap) != 0 {
		if len(c.ChannelMap) != c.Channels {
			return newResult(CodeInvalidDeviceConfig, "", nil)
		}
		seen := make(map[ChannelPosition]bool, len(c.ChannelMap))
		for _, p := range c.ChannelMap {
			if p != PositionNone && seen[p] {
				return newResult(CodeInvalidDeviceConfig, "", nil)
			}
			seen[p] = true
		}
	}
	return nil
}
