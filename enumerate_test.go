package audiodevice

import "testing"

func TestEnumerateDevicesReportsDefault(t *testing.T) {
	ctx := newTestContext(t)
	infos, res := EnumerateDevices(ctx, Playback)
	if res != nil {
		t.Fatalf("EnumerateDevices: %v", res)
	}
	if len(infos) != 1 {
		t.Fatalf("len(infos) = %d, want 1", len(infos))
	}
	if !infos[0].IsDefault {
		t.Fatalf("infos[0].IsDefault = false, want true")
	}
	if infos[0].Name == "" {
		t.Fatal("infos[0].Name is empty")
	}
}
