package primitives

import "time"

// Clock is a thin monotonic-time source built on time.Now()/time.After.
// Go's time.Time already carries a monotonic reading, so no external
// library is needed.
type Clock struct {
	start time.Time
}

// NewClock returns a Clock whose Elapsed() is measured from now.
func NewClock() Clock {
	return Clock{start: time.Now()}
}

// Elapsed reports the time since the Clock was created.
func (c Clock) Elapsed() time.Duration {
	return time.Since(c.start)
}

// PeriodDeadline computes the backend wait_for_frames deadline of
// spec.md §5: buffer_size_in_frames / (sample_rate/1000) / periods
// milliseconds, lower-bounded at 1ms.
func PeriodDeadline(bufferSizeInFrames, sampleRate, periods int) time.Duration {
	if periods < 1 {
		periods = 1
	}
	msPerFrame := 1000.0 / float64(sampleRate)
	ms := float64(bufferSizeInFrames) * msPerFrame / float64(periods)
	d := time.Duration(ms * float64(time.Millisecond))
	if d < time.Millisecond {
		d = time.Millisecond
	}
	return d
}
