// SPDX-License-Identifier: MIT
package config

// Defaults and limits for the capture/analysis pipeline. Values absent from
// the settings file fall back to these.
const (
	DefaultDevice         = ""     // "" selects the system default input
	DefaultSampleRate     = 44100  // CD-quality audio
	DefaultWindowSize     = 2048   // FFT window, power of two
	DefaultOverlap        = 0.5    // 50% window overlap
	DefaultWindowFunc     = "hann" // Window function name
	DefaultBucketCount    = 32     // Display buckets
	DefaultDecayRate      = 48.0   // dB per second fall rate
	DefaultReferenceLevel = 1.0    // 0 dB reference magnitude
	DefaultFloorDB        = -60.0  // Display floor
	DefaultCeilingDB      = 0.0    // Display ceiling
	DefaultGateThreshold  = 0.0    // Noise gate off
	DefaultLogLevel       = "info"

	// Hardware and processing limits.
	MinSampleRate = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate = 192000 // Maximum supported sample rate (Hz)
	MinWindowSize = 32     // Smallest useful FFT window
	MaxWindowSize = 32768  // Largest supported FFT window
)
