// SPDX-License-Identifier: MIT
package config

import (
	"sync/atomic"
	"time"
)

// Snapshot is the immutable settings bundle every pipeline component reads.
// A snapshot is never mutated after construction; reload builds a new one
// and swaps it into the Store, so a component that loaded a snapshot at the
// start of a cycle keeps a consistent view for the whole cycle.
type Snapshot struct {
	// Audio input.
	Device        string  // Source name, "" for the system default
	SampleRate    int     // Hz
	WindowSize    int     // FFT window size N, power of two
	Overlap       float64 // Window overlap fraction in [0,1)
	WindowFunc    string  // Window function name (hann, hamming, ...)
	GateThreshold float64 // Peak amplitude below which a block is dropped, 0 disables

	// Display mapping.
	BucketCount    int     // Log-spaced display buckets B
	DecayRate      float64 // Level fall rate, dB per second
	ReferenceLevel float64 // Magnitude mapped to 0 dB
	FloorDB        float64 // Lowest displayed level
	CeilingDB      float64 // Highest displayed level

	// Capture resilience.
	MaxRetries     int  // Reconnect attempts before giving up, 0 = forever
	SilentFallback bool // Keep running on a silent stream after retries exhaust

	// Recording.
	RecordingEnabled bool
	RecordingDir     string

	// Frame transports.
	WebSocketEnabled bool
	WebSocketAddr    string
	UDPEnabled       bool
	UDPTargetAddress string
	UDPSendInterval  time.Duration

	LogLevel string
}

// Stride returns the sample advance between consecutive analysis windows,
// derived from WindowSize and Overlap. Always at least 1.
func (s *Snapshot) Stride() int {
	stride := int(float64(s.WindowSize) * (1.0 - s.Overlap))
	if stride < 1 {
		stride = 1
	}
	return stride
}

// WindowDuration returns the wall time one analysis window spans. The
// analysis loop uses it as its starvation timeout.
func (s *Snapshot) WindowDuration() time.Duration {
	return time.Duration(float64(s.WindowSize) / float64(s.SampleRate) * float64(time.Second))
}

// Nyquist returns half the sample rate in Hz.
func (s *Snapshot) Nyquist() float64 {
	return float64(s.SampleRate) / 2.0
}

// Store holds the current Snapshot behind an atomic pointer.
// Multi-reader/single-writer: components Load once per cycle, reload Swaps
// a complete replacement. No reader ever observes a torn snapshot.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// NewStore creates a Store seeded with the given snapshot.
func NewStore(s *Snapshot) *Store {
	store := &Store{}
	store.current.Store(s)
	return store
}

// Load returns the current snapshot.
func (st *Store) Load() *Snapshot {
	return st.current.Load()
}

// Swap atomically replaces the current snapshot.
func (st *Store) Swap(s *Snapshot) {
	st.current.Store(s)
}
