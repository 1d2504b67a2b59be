package audio

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestIsBluetooth(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"AirPods Pro", true},
		{"Jabra Evolve 65", true},
		{"Built-in Microphone", false},
		{"USB Audio Device", false},
		{"Headset (BT)", true},
	}
	for _, tt := range tests {
		if got := IsBluetooth(tt.name); got != tt.want {
			t.Errorf("IsBluetooth(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestFindDevice(t *testing.T) {
	ctx := NewFakeContext(nil, false)

	d, err := FindDevice(ctx, "")
	if err != nil || d != nil {
		t.Fatalf("empty name = %v, %v; want system default", d, err)
	}
	d, err = FindDevice(ctx, "fake")
	if err != nil || d == nil || d.ID != "fake" {
		t.Fatalf("FindDevice(fake) = %v, %v", d, err)
	}
	if _, err := FindDevice(ctx, "missing"); err == nil {
		t.Fatal("expected error for unknown device")
	}
}

func TestFakeCaptureDeliversAllPCM(t *testing.T) {
	pcm := make([]byte, fakeFrameSize*bytesPerFrame*2+10)
	for i := range pcm {
		pcm[i] = byte(i)
	}
	c := NewFakeCapture(pcm, false)

	var mu sync.Mutex
	var got []byte
	var frames uint32
	c.SetCallback(func(data []byte, n uint32) {
		mu.Lock()
		got = append(got, data...)
		frames += n
		mu.Unlock()
	})
	if err := c.Start(); err != nil {
		t.Fatal(err)
	}
	select {
	case <-c.Drained():
	case <-time.After(2 * time.Second):
		t.Fatal("capture never drained")
	}
	c.Stop()

	mu.Lock()
	defer mu.Unlock()
	if len(got) != len(pcm) {
		t.Fatalf("got %d bytes, want %d", len(got), len(pcm))
	}
	if frames != uint32(len(pcm)/bytesPerFrame) {
		t.Errorf("frames = %d", frames)
	}
}

func TestFakeCaptureStopIsIdempotent(t *testing.T) {
	c := NewFakeCapture(make([]byte, 1<<20), true)
	c.SetCallback(func([]byte, uint32) {})
	if err := c.Start(); err != nil {
		t.Fatal(err)
	}
	c.Stop()
	c.Stop()
	c.Close()
}

func TestLoadFakeContextSkipsWAVHeader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.wav")
	header := make([]byte, wavHeaderSize)
	copy(header, "RIFF")
	body := []byte{1, 2, 3, 4}
	if err := os.WriteFile(path, append(header, body...), 0o644); err != nil {
		t.Fatal(err)
	}
	ctx, err := LoadFakeContext(path, false)
	if err != nil {
		t.Fatal(err)
	}
	if string(ctx.pcm) != string(body) {
		t.Errorf("pcm = %v, want %v", ctx.pcm, body)
	}
}

func TestPickerKey(t *testing.T) {
	tests := []struct {
		key       string
		cursor    int
		want      int
		done      bool
		cancelled bool
	}{
		{"\x1b[B", 0, 1, false, false},
		{"j", 2, 2, false, false},
		{"\x1b[A", 0, 0, false, false},
		{"k", 2, 1, false, false},
		{"\r", 1, 1, true, false},
		{"\x03", 1, 1, false, true},
		{"x", 1, 1, false, false},
	}
	for _, tt := range tests {
		got, done, cancelled := pickerKey([]byte(tt.key), tt.cursor, 3)
		if got != tt.want || done != tt.done || cancelled != tt.cancelled {
			t.Errorf("pickerKey(%q, %d) = %d, %v, %v", tt.key, tt.cursor, got, done, cancelled)
		}
	}
}
