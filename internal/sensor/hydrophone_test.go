package sensor

import (
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestRecorderWritesTimestampedWav(t *testing.T) {
	dir := t.TempDir()

	// Fake device with plenty of PCM data.
	device := filepath.Join(dir, "pcm-device")
	if err := os.WriteFile(device, make([]byte, 1<<20), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewRecorder(device, dir)
	r.sampleRate = 8000
	r.channels = 2
	captureTime := time.Date(2024, 5, 17, 10, 30, 0, 0, time.UTC)
	r.now = func() time.Time { return captureTime }

	path, err := r.Record(context.Background(), 10*time.Millisecond)
	if err != nil {
		t.Fatalf("Record() = %v", err)
	}

	wantName := "2024-05-17T10:30:00Z.wav"
	if filepath.Base(path) != wantName {
		t.Errorf("recording name = %s, want %s", filepath.Base(path), wantName)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	wantPCM := 8000 * 2 * bytesPerSample / 100 // 10 ms
	if len(data) != 44+wantPCM {
		t.Fatalf("file size = %d, want %d", len(data), 44+wantPCM)
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Error("missing RIFF/WAVE magic")
	}
	if rate := binary.LittleEndian.Uint32(data[24:28]); rate != 8000 {
		t.Errorf("sample rate in header = %d, want 8000", rate)
	}
	if size := binary.LittleEndian.Uint32(data[40:44]); int(size) != wantPCM {
		t.Errorf("data chunk size = %d, want %d", size, wantPCM)
	}
}

func TestRecorderRemovesPartialFileOnCancel(t *testing.T) {
	deviceDir := t.TempDir()
	device := filepath.Join(deviceDir, "pcm-device")
	if err := os.WriteFile(device, make([]byte, 1<<20), 0o644); err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	r := NewRecorder(device, dir)
	r.sampleRate = 8000
	r.channels = 2

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Record(ctx, time.Second); !errors.Is(err, context.Canceled) {
		t.Fatalf("Record() = %v, want context.Canceled", err)
	}

	// A truncated clip would carry a header claiming the full length, so
	// nothing may be left behind.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("recording directory not empty after cancel: %v", entries)
	}
}

func TestRecorderRemovesPartialFileOnShortRead(t *testing.T) {
	deviceDir := t.TempDir()
	device := filepath.Join(deviceDir, "pcm-device")

	// Far less data than a one-second clip needs.
	if err := os.WriteFile(device, make([]byte, 256), 0o644); err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	r := NewRecorder(device, dir)
	r.sampleRate = 8000
	r.channels = 2

	if _, err := r.Record(context.Background(), time.Second); err == nil {
		t.Fatal("Record() succeeded on a device with too little data")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("recording directory not empty after failed capture: %v", entries)
	}
}

func TestRecorderMissingDevice(t *testing.T) {
	r := NewRecorder(filepath.Join(t.TempDir(), "absent"), t.TempDir())
	if _, err := r.Record(context.Background(), time.Second); err == nil {
		t.Fatal("Record() succeeded with no device")
	}
}
