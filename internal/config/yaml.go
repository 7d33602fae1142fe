// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"specviz/pkg/bitint"
)

// fileConfig mirrors the YAML settings file. Fields the file omits keep the
// defaults seeded before unmarshalling.
type fileConfig struct {
	LogLevel  string          `yaml:"log_level"`
	Audio     audioConfig     `yaml:"audio"`
	Display   displayConfig   `yaml:"display"`
	Capture   captureConfig   `yaml:"capture"`
	Recording recordingConfig `yaml:"recording"`
	Transport transportConfig `yaml:"transport"`
}

type audioConfig struct {
	Device        string  `yaml:"device"`         // Source name, "" for system default
	SampleRate    int     `yaml:"sample_rate"`    // Hz
	WindowSize    int     `yaml:"window_size"`    // FFT size, power of two
	Overlap       float64 `yaml:"overlap"`        // Fraction in [0,1)
	Window        string  `yaml:"window"`         // Window function name
	GateThreshold float64 `yaml:"gate_threshold"` // 0.0-1.0, 0 disables the gate
}

type displayConfig struct {
	BucketCount    int     `yaml:"bucket_count"`    // Log-spaced buckets
	DecayRate      float64 `yaml:"decay_rate"`      // dB per second
	ReferenceLevel float64 `yaml:"reference_level"` // Magnitude at 0 dB
	FloorDB        float64 `yaml:"floor_db"`
	CeilingDB      float64 `yaml:"ceiling_db"`
}

type captureConfig struct {
	MaxRetries     int  `yaml:"max_retries"`     // 0 = retry forever
	SilentFallback bool `yaml:"silent_fallback"` // Degrade to silence instead of failing
}

type recordingConfig struct {
	Enabled   bool   `yaml:"enabled"`
	OutputDir string `yaml:"output_dir"`
}

type transportConfig struct {
	WebSocketEnabled bool          `yaml:"websocket_enabled"`
	WebSocketAddr    string        `yaml:"websocket_addr"`
	UDPEnabled       bool          `yaml:"udp_enabled"`
	UDPTargetAddress string        `yaml:"udp_target_address"`
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`
}

func defaults() fileConfig {
	return fileConfig{
		LogLevel: DefaultLogLevel,
		Audio: audioConfig{
			Device:        DefaultDevice,
			SampleRate:    DefaultSampleRate,
			WindowSize:    DefaultWindowSize,
			Overlap:       DefaultOverlap,
			Window:        DefaultWindowFunc,
			GateThreshold: DefaultGateThreshold,
		},
		Display: displayConfig{
			BucketCount:    DefaultBucketCount,
			DecayRate:      DefaultDecayRate,
			ReferenceLevel: DefaultReferenceLevel,
			FloorDB:        DefaultFloorDB,
			CeilingDB:      DefaultCeilingDB,
		},
		Capture: captureConfig{
			MaxRetries:     0,
			SilentFallback: true,
		},
		Recording: recordingConfig{
			Enabled:   false,
			OutputDir: "./recordings",
		},
		Transport: transportConfig{
			WebSocketEnabled: false,
			WebSocketAddr:    ":8080",
			UDPEnabled:       false,
			UDPTargetAddress: "127.0.0.1:9090",
			UDPSendInterval:  33 * time.Millisecond, // ~30Hz
		},
	}
}

// Load reads the settings file at path, substitutes defaults for missing
// fields, applies environment overrides, validates, and returns the initial
// immutable Snapshot. An empty path tries "specviz.yaml" in the working
// directory and falls back to pure defaults when no file exists.
func Load(path string) (*Snapshot, error) {
	cfg := defaults()

	if path == "" {
		if _, err := os.Stat("specviz.yaml"); err == nil {
			path = "specviz.yaml"
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	snap := cfg.snapshot()
	if err := Validate(snap); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return snap, nil
}

// Validate checks the startup-fatal invariants. The pipeline validates a
// snapshot once here, never per window.
func Validate(s *Snapshot) error {
	if !bitint.IsPowerOfTwo(s.WindowSize) || s.WindowSize < MinWindowSize || s.WindowSize > MaxWindowSize {
		return fmt.Errorf("audio.window_size must be a power of two in [%d,%d], got %d",
			MinWindowSize, MaxWindowSize, s.WindowSize)
	}
	if s.SampleRate < MinSampleRate || s.SampleRate > MaxSampleRate {
		return fmt.Errorf("audio.sample_rate must be in [%d,%d], got %d",
			MinSampleRate, MaxSampleRate, s.SampleRate)
	}
	if s.Overlap < 0 || s.Overlap >= 1 {
		return fmt.Errorf("audio.overlap must be in [0,1), got %g", s.Overlap)
	}
	if s.BucketCount < 1 {
		return fmt.Errorf("display.bucket_count must be >= 1, got %d", s.BucketCount)
	}
	if s.DecayRate <= 0 {
		return fmt.Errorf("display.decay_rate must be positive, got %g", s.DecayRate)
	}
	if s.ReferenceLevel <= 0 {
		return fmt.Errorf("display.reference_level must be positive, got %g", s.ReferenceLevel)
	}
	if s.FloorDB >= s.CeilingDB {
		return fmt.Errorf("display.floor_db (%g) must be below display.ceiling_db (%g)",
			s.FloorDB, s.CeilingDB)
	}
	if s.GateThreshold < 0 || s.GateThreshold > 1 {
		return fmt.Errorf("audio.gate_threshold must be in [0,1], got %g", s.GateThreshold)
	}
	return nil
}

// snapshot flattens the file layout into the immutable Snapshot.
func (cfg *fileConfig) snapshot() *Snapshot {
	return &Snapshot{
		Device:           cfg.Audio.Device,
		SampleRate:       cfg.Audio.SampleRate,
		WindowSize:       cfg.Audio.WindowSize,
		Overlap:          cfg.Audio.Overlap,
		WindowFunc:       cfg.Audio.Window,
		GateThreshold:    cfg.Audio.GateThreshold,
		BucketCount:      cfg.Display.BucketCount,
		DecayRate:        cfg.Display.DecayRate,
		ReferenceLevel:   cfg.Display.ReferenceLevel,
		FloorDB:          cfg.Display.FloorDB,
		CeilingDB:        cfg.Display.CeilingDB,
		MaxRetries:       cfg.Capture.MaxRetries,
		SilentFallback:   cfg.Capture.SilentFallback,
		RecordingEnabled: cfg.Recording.Enabled,
		RecordingDir:     cfg.Recording.OutputDir,
		WebSocketEnabled: cfg.Transport.WebSocketEnabled,
		WebSocketAddr:    cfg.Transport.WebSocketAddr,
		UDPEnabled:       cfg.Transport.UDPEnabled,
		UDPTargetAddress: cfg.Transport.UDPTargetAddress,
		UDPSendInterval:  cfg.Transport.UDPSendInterval,
		LogLevel:         cfg.LogLevel,
	}
}

// applyEnvOverrides lets deployment environments adjust a few fields without
// editing the settings file. Overrides run after file parsing.
func (cfg *fileConfig) applyEnvOverrides() {
	if val, ok := os.LookupEnv("SPECVIZ_LOG_LEVEL"); ok {
		cfg.LogLevel = val
	}
	if val, ok := os.LookupEnv("SPECVIZ_DEVICE"); ok {
		cfg.Audio.Device = val
	}
	if val, ok := os.LookupEnv("SPECVIZ_WS_ADDR"); ok {
		cfg.Transport.WebSocketAddr = val
		cfg.Transport.WebSocketEnabled = true
	}
	if val, ok := os.LookupEnv("SPECVIZ_UDP_TARGET_ADDRESS"); ok {
		cfg.Transport.UDPTargetAddress = val
		cfg.Transport.UDPEnabled = true
	}
	if val, ok := os.LookupEnv("SPECVIZ_UDP_SEND_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			cfg.Transport.UDPSendInterval = dur
		}
	}
}
