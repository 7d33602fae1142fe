// SPDX-License-Identifier: MIT
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "specviz.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}
	return path
}

func TestLoadDefaultsWhenNoFile(t *testing.T) {
	snap, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err == nil {
		t.Fatal("expected error for missing explicit path")
	}
	_ = snap

	// Empty path with no specviz.yaml in cwd yields pure defaults.
	snap, err = Load("")
	if err != nil {
		t.Fatalf("Load(\"\") failed: %v", err)
	}
	if snap.SampleRate != DefaultSampleRate {
		t.Errorf("SampleRate = %d, want default %d", snap.SampleRate, DefaultSampleRate)
	}
	if snap.WindowSize != DefaultWindowSize {
		t.Errorf("WindowSize = %d, want default %d", snap.WindowSize, DefaultWindowSize)
	}
	if snap.BucketCount != DefaultBucketCount {
		t.Errorf("BucketCount = %d, want default %d", snap.BucketCount, DefaultBucketCount)
	}
}

func TestLoadMissingDecayRateUsesDefault(t *testing.T) {
	// decay_rate absent from the file must not fail startup.
	path := writeTempConfig(t, `
audio:
  sample_rate: 48000
  window_size: 1024
display:
  bucket_count: 16
`)
	snap, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if snap.DecayRate != DefaultDecayRate {
		t.Errorf("DecayRate = %g, want default %g", snap.DecayRate, DefaultDecayRate)
	}
	if snap.SampleRate != 48000 || snap.WindowSize != 1024 || snap.BucketCount != 16 {
		t.Errorf("explicit fields not honored: %+v", snap)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"window size not power of two", "audio:\n  window_size: 1000\n"},
		{"window size too small", "audio:\n  window_size: 16\n"},
		{"zero bucket count", "display:\n  bucket_count: 0\n"},
		{"negative decay", "display:\n  decay_rate: -1\n"},
		{"overlap of one", "audio:\n  overlap: 1.0\n"},
		{"floor above ceiling", "display:\n  floor_db: 10\n  ceiling_db: -10\n"},
		{"sample rate too low", "audio:\n  sample_rate: 100\n"},
		{"gate above one", "audio:\n  gate_threshold: 1.5\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTempConfig(t, tt.yaml)
			if _, err := Load(path); err == nil {
				t.Errorf("Load accepted invalid config:\n%s", tt.yaml)
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SPECVIZ_DEVICE", "monitor-of-builtin")
	t.Setenv("SPECVIZ_UDP_TARGET_ADDRESS", "10.0.0.1:7000")
	t.Setenv("SPECVIZ_UDP_SEND_INTERVAL", "50ms")

	snap, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if snap.Device != "monitor-of-builtin" {
		t.Errorf("Device = %q, want env override", snap.Device)
	}
	if !snap.UDPEnabled || snap.UDPTargetAddress != "10.0.0.1:7000" {
		t.Errorf("UDP target override not applied: %+v", snap)
	}
	if snap.UDPSendInterval != 50*time.Millisecond {
		t.Errorf("UDPSendInterval = %s, want 50ms", snap.UDPSendInterval)
	}
}

func TestSnapshotStride(t *testing.T) {
	tests := []struct {
		windowSize int
		overlap    float64
		expected   int
	}{
		{2048, 0.5, 1024},
		{2048, 0.0, 2048},
		{1024, 0.75, 256},
		{512, 0.999, 1}, // Stride never drops to zero
	}

	for _, tt := range tests {
		s := &Snapshot{WindowSize: tt.windowSize, Overlap: tt.overlap}
		if got := s.Stride(); got != tt.expected {
			t.Errorf("Stride(N=%d, overlap=%g) = %d, want %d",
				tt.windowSize, tt.overlap, got, tt.expected)
		}
	}
}

func TestStoreSwapIsAtomic(t *testing.T) {
	first := &Snapshot{BucketCount: 32}
	store := NewStore(first)

	if store.Load() != first {
		t.Fatal("Load did not return the seeded snapshot")
	}

	// A component holding the old pointer keeps a consistent view after Swap.
	held := store.Load()
	second := &Snapshot{BucketCount: 64}
	store.Swap(second)

	if held.BucketCount != 32 {
		t.Error("held snapshot mutated by Swap")
	}
	if store.Load().BucketCount != 64 {
		t.Error("Swap did not publish the new snapshot")
	}
}

func TestWindowDuration(t *testing.T) {
	s := &Snapshot{WindowSize: 44100, SampleRate: 44100}
	if got := s.WindowDuration(); got != time.Second {
		t.Errorf("WindowDuration = %s, want 1s", got)
	}
}
