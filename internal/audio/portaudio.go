// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"strings"

	"github.com/gordonklaus/portaudio"

	"specviz/internal/config"
)

// captureBlockFrames is the frames-per-buffer requested from PortAudio.
// Small enough to keep capture latency under the analysis stride at every
// supported window size.
const captureBlockFrames = 512

// Initialize sets up the PortAudio subsystem. Must be called once before
// any capture or device enumeration and paired with Terminate.
func Initialize() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return nil
}

// Terminate shuts the PortAudio subsystem down. Defer it right after
// Initialize.
func Terminate() error {
	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return nil
}

// paSource adapts a mono PortAudio input stream to the Source interface.
type paSource struct {
	stream  *portaudio.Stream
	onBlock func([]float32)
	errs    chan error
}

// OpenPortAudio opens the input device named in the snapshot as a mono
// float32 stream at the configured sample rate. It satisfies OpenFunc.
func OpenPortAudio(snap *config.Snapshot) (Source, error) {
	dev, err := InputDeviceByName(snap.Device)
	if err != nil {
		return nil, err
	}

	s := &paSource{errs: make(chan error, 1)}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: 1,
			Device:   dev,
			Latency:  dev.DefaultLowInputLatency,
		},
		FramesPerBuffer: captureBlockFrames,
		SampleRate:      float64(snap.SampleRate),
	}

	stream, err := portaudio.OpenStream(params, s.callback)
	if err != nil {
		return nil, fmt.Errorf("failed to open input stream on %q: %w", dev.Name, err)
	}
	s.stream = stream
	return s, nil
}

func (s *paSource) Start(onBlock func([]float32)) error {
	s.onBlock = onBlock
	if err := s.stream.Start(); err != nil {
		return fmt.Errorf("failed to start input stream: %w", err)
	}
	return nil
}

func (s *paSource) Stop() error {
	if s.stream == nil {
		return nil
	}
	err := s.stream.Close()
	s.stream = nil
	return err
}

func (s *paSource) Errors() <-chan error {
	return s.errs
}

// callback runs on the PortAudio stream thread.
func (s *paSource) callback(in []float32) {
	s.onBlock(in)
}

// InputDeviceByName resolves an input device by case-insensitive substring
// match on its name. An empty name selects the system default input.
func InputDeviceByName(name string) (*portaudio.DeviceInfo, error) {
	if name == "" {
		dev, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("no default input device: %w", err)
		}
		return dev, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(name)
	for _, dev := range devices {
		if dev.MaxInputChannels < 1 {
			continue
		}
		if strings.Contains(strings.ToLower(dev.Name), needle) {
			return dev, nil
		}
	}
	return nil, fmt.Errorf("no input device matching %q", name)
}
