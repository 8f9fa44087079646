package audiodevice

import (
	"testing"
	"time"
)

func newTestContext(t *testing.T) *Context {
	t.Helper()
	ctx, res := InitContext([]BackendID{BackendNull})
	if res != nil {
		t.Fatalf("InitContext: %v", res)
	}
	return ctx
}

func testPlaybackConfig() DeviceConfig {
	cfg := DefaultDeviceConfig(Playback)
	cfg.Format = FormatS16
	cfg.Channels = 2
	cfg.SampleRate = 48000
	return cfg
}

func TestDeviceLifecycleHappyPath(t *testing.T) {
	ctx := newTestContext(t)
	dev, res := ctx.InitDevice(testPlaybackConfig())
	if res != nil {
		t.Fatalf("InitDevice: %v", res)
	}
	if got, want := dev.State(), "stopped"; got != want {
		t.Fatalf("State() = %q, want %q", got, want)
	}

	if res := dev.Start(); res != nil {
		t.Fatalf("Start: %v", res)
	}
	if got, want := dev.State(), "started"; got != want {
		t.Fatalf("State() = %q, want %q", got, want)
	}

	if res := dev.Stop(); res != nil {
		t.Fatalf("Stop: %v", res)
	}
	if got, want := dev.State(), "stopped"; got != want {
		t.Fatalf("State() = %q, want %q", got, want)
	}

	if res := dev.Uninit(); res != nil {
		t.Fatalf("Uninit: %v", res)
	}
	if got, want := dev.State(), "uninitialized"; got != want {
		t.Fatalf("State() = %q, want %q", got, want)
	}
	if res := ctx.Uninit(); res != nil {
		t.Fatalf("ctx.Uninit: %v", res)
	}
}

func TestStartTwiceIsAnError(t *testing.T) {
	ctx := newTestContext(t)
	dev, _ := ctx.InitDevice(testPlaybackConfig())
	if res := dev.Start(); res != nil {
		t.Fatalf("Start: %v", res)
	}
	defer dev.Stop()

	res := dev.Start()
	if res == nil || !IsCode(res, CodeDeviceAlreadyStarted) {
		t.Fatalf("Start while started = %v, want CodeDeviceAlreadyStarted", res)
	}
}

func TestStopWhileStoppedIsAnError(t *testing.T) {
	ctx := newTestContext(t)
	dev, _ := ctx.InitDevice(testPlaybackConfig())

	res := dev.Stop()
	if res == nil || !IsCode(res, CodeDeviceAlreadyStopped) {
		t.Fatalf("Stop while stopped = %v, want CodeDeviceAlreadyStopped", res)
	}
}

func TestOperationsOnUninitializedDevice(t *testing.T) {
	ctx := newTestContext(t)
	dev, _ := ctx.InitDevice(testPlaybackConfig())
	if res := dev.Uninit(); res != nil {
		t.Fatalf("Uninit: %v", res)
	}

	if res := dev.Start(); res == nil || !IsCode(res, CodeDeviceNotInitialized) {
		t.Fatalf("Start on uninitialized = %v, want CodeDeviceNotInitialized", res)
	}
	if res := dev.Stop(); res == nil || !IsCode(res, CodeDeviceNotInitialized) {
		t.Fatalf("Stop on uninitialized = %v, want CodeDeviceNotInitialized", res)
	}
	if res := dev.Uninit(); res == nil || !IsCode(res, CodeDeviceNotInitialized) {
		t.Fatalf("Uninit twice = %v, want CodeDeviceNotInitialized", res)
	}
}

func TestUninitWhileStartedIsBusy(t *testing.T) {
	ctx := newTestContext(t)
	dev, _ := ctx.InitDevice(testPlaybackConfig())
	if res := dev.Start(); res != nil {
		t.Fatalf("Start: %v", res)
	}
	defer dev.Stop()

	res := dev.Uninit()
	if res == nil || !IsCode(res, CodeDeviceBusy) {
		t.Fatalf("Uninit while started = %v, want CodeDeviceBusy", res)
	}
}

// TestStopLatency exercises spec.md §8's cancellation-latency scenario:
// from Stop's entry to the stopped callback firing must stay within a
// period duration plus the implementation's own event-service time.
func TestStopLatency(t *testing.T) {
	ctx := newTestContext(t)
	cfg := testPlaybackConfig()
	cfg.BufferSizeInFrames = 480 // 10ms @ 48kHz
	cfg.PeriodCount = 2

	stopped := make(chan struct{}, 1)
	cfg.OnStopped = func(*Device) {
		select {
		case stopped <- struct{}{}:
		default:
		}
	}

	dev, _ := ctx.InitDevice(cfg)
	if res := dev.Start(); res != nil {
		t.Fatalf("Start: %v", res)
	}

	start := time.Now()
	if res := dev.Stop(); res != nil {
		t.Fatalf("Stop: %v", res)
	}
	elapsed := time.Since(start)

	select {
	case <-stopped:
	default:
		t.Fatal("OnStopped was not invoked by the time Stop returned")
	}

	periodDur := time.Duration(cfg.BufferSizeInFrames/cfg.PeriodCount) * time.Second / time.Duration(cfg.SampleRate)
	if budget := periodDur * 10; elapsed > budget {
		t.Fatalf("Stop took %v, want <= %v", elapsed, budget)
	}
}

func TestCaptureRoundTrip(t *testing.T) {
	ctx := newTestContext(t)
	cfg := DefaultDeviceConfig(Capture)
	cfg.Format = FormatS16
	cfg.Channels = 1
	cfg.SampleRate = 44100

	gotFrames := make(chan int, 8)
	cfg.OnDataAvailable = func(_ *Device, frameCount int, buf []byte) int {
		select {
		case gotFrames <- frameCount:
		default:
		}
		return frameCount
	}

	dev, res := ctx.InitDevice(cfg)
	if res != nil {
		t.Fatalf("InitDevice: %v", res)
	}
	if res := dev.Start(); res != nil {
		t.Fatalf("Start: %v", res)
	}

	select {
	case n := <-gotFrames:
		if n <= 0 {
			t.Fatalf("OnDataAvailable frameCount = %d, want > 0", n)
		}
	case <-time.After(time.Second):
		t.Fatal("OnDataAvailable was never invoked")
	}

	if res := dev.Stop(); res != nil {
		t.Fatalf("Stop: %v", res)
	}
}
