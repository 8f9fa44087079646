package ring

import "testing"

func TestPlaybackAvailableFullWhenEmpty(t *testing.T) {
	c := NewCursor(100)
	if got := c.PlaybackAvailable(); got != 100 {
		t.Fatalf("got %d, want 100", got)
	}
}

func TestPlaybackAvailableShrinksAsCommitted(t *testing.T) {
	c := NewCursor(100)
	c.AdvanceLast(30)
	if got := c.PlaybackAvailable(); got != 70 {
		t.Fatalf("got %d, want 70", got)
	}
	c.AdvanceCur(10)
	if got := c.PlaybackAvailable(); got != 80 {
		t.Fatalf("got %d, want 80", got)
	}
}

func TestCaptureAvailableGrowsAsOSAdvances(t *testing.T) {
	c := NewCursor(100)
	if got := c.CaptureAvailable(); got != 0 {
		t.Fatalf("got %d, want 0", got)
	}
	c.AdvanceCur(40)
	if got := c.CaptureAvailable(); got != 40 {
		t.Fatalf("got %d, want 40", got)
	}
	c.AdvanceLast(15)
	if got := c.CaptureAvailable(); got != 25 {
		t.Fatalf("got %d, want 25", got)
	}
}

func TestSplitNoWrap(t *testing.T) {
	regions := Split(100, 10, 20)
	if len(regions) != 1 || regions[0] != (Region{Offset: 10, Count: 20}) {
		t.Fatalf("got %+v", regions)
	}
}

func TestSplitWithWrap(t *testing.T) {
	regions := Split(100, 90, 20)
	want := []Region{{Offset: 90, Count: 10}, {Offset: 0, Count: 10}}
	if len(regions) != 2 || regions[0] != want[0] || regions[1] != want[1] {
		t.Fatalf("got %+v, want %+v", regions, want)
	}
}

func TestResetZerosBothCursors(t *testing.T) {
	c := NewCursor(100)
	c.AdvanceLast(50)
	c.AdvanceCur(20)
	c.Reset()
	if c.Last() != 0 || c.Cur() != 0 {
		t.Fatalf("cursors not reset: last=%d cur=%d", c.Last(), c.Cur())
	}
}
