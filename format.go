package audiodevice

// Format is a stable numeric sample-format id, usable directly as a
// lookup-table index (spec.md §6).
type Format int

const (
	FormatU8 Format = iota
	FormatS16
	FormatS24 // little-endian, 3 bytes tightly packed.
	FormatS32
	FormatF32
)

func (f Format) String() string {
	switch f {
	case FormatU8:
		return "u8"
	case FormatS16:
		return "s16"
	case FormatS24:
		return "s24"
	case FormatS32:
		return "s32"
	case FormatF32:
		return "f32"
	default:
		return "unknown"
	}
}

// BytesPerSample returns the on-the-wire size of one sample in this format.
func (f Format) BytesPerSample() int {
	switch f {
	case FormatU8:
		return 1
	case FormatS16:
		return 2
	case FormatS24:
		return 3
	case FormatS32:
		return 4
	case FormatF32:
		return 4
	default:
		return 0
	}
}

// MaxChannels is the hard channel-count ceiling carried over from the
// source (spec.md §9 Open Questions). internal/mix cannot import this
// package and keeps its own MaxChannels of the same value for its stack
// scratch; the two constants are separate and must be changed together.
const MaxChannels = 18

// MaxSampleSizeBytes bounds the widest sample representation this package
// deals in (spec.md §6).
const MaxSampleSizeBytes = 8

// ChannelPosition is a stable numeric channel-position id (spec.md §6).
type ChannelPosition int

const (
	PositionNone ChannelPosition = iota
	PositionFL
	PositionFR
	PositionFC
	PositionLFE
	PositionBL
	PositionBR
	PositionFLC
	PositionFRC
	PositionBC
	PositionSL
	PositionSR
	PositionTC
	PositionTFL
	PositionTFC
	PositionTFR
	PositionTBL
	PositionTBC
	PositionTBR
)

// DefaultChannelMap returns the default channel-position layout for a
// given channel count, per spec.md §6. Counts with no documented default
// return a slice of PositionNone of the right length ("same as device").
func DefaultChannelMap(channels int) []ChannelPosition {
	switch channels {
	case 1:
		return []ChannelPosition{PositionFC}
	case 2:
		return []ChannelPosition{PositionFL, PositionFR}
	case 3:
		return []ChannelPosition{PositionFL, PositionFR, PositionLFE}
	case 4:
		return []ChannelPosition{PositionFL, PositionFR, PositionBL, PositionBR}
	case 5:
		return []ChannelPosition{PositionFL, PositionFR, PositionBL, PositionBR, PositionLFE}
	case 6:
		return []ChannelPosition{PositionFL, PositionFR, PositionFC, PositionLFE, PositionBL, PositionBR}
	case 8:
		return []ChannelPosition{PositionFL, PositionFR, PositionFC, PositionLFE, PositionBL, PositionBR, PositionSL, PositionSR}
	default:
		out := make([]ChannelPosition, channels)
		for i := range out {
			out[i] = PositionNone
		}
		return out
	}
}
