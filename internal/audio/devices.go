// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// Device describes one audio device independent of the PortAudio types, so
// the CLI and device picker do not import the binding directly.
type Device struct {
	ID                int
	Name              string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
}

// Input reports whether the device can capture audio.
func (d Device) Input() bool {
	return d.MaxInputChannels > 0
}

// GetDevices enumerates all audio devices. It manages its own PortAudio
// lifetime, so callers need not have called Initialize.
func GetDevices() ([]Device, error) {
	if err := Initialize(); err != nil {
		return nil, err
	}
	defer Terminate()

	infos, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}

	devices := make([]Device, len(infos))
	for i, info := range infos {
		devices[i] = Device{
			ID:                i,
			Name:              info.Name,
			MaxInputChannels:  info.MaxInputChannels,
			MaxOutputChannels: info.MaxOutputChannels,
			DefaultSampleRate: info.DefaultSampleRate,
		}
	}
	return devices, nil
}

// ListDevices prints all audio devices with their capabilities.
func ListDevices() error {
	devices, err := GetDevices()
	if err != nil {
		return err
	}

	fmt.Printf("\nAvailable Audio Devices\n\n")
	for _, dev := range devices {
		deviceType := ""
		switch {
		case dev.MaxInputChannels > 0 && dev.MaxOutputChannels > 0:
			deviceType = "Input/Output"
		case dev.MaxInputChannels > 0:
			deviceType = "Input"
		case dev.MaxOutputChannels > 0:
			deviceType = "Output"
		}

		fmt.Printf("[%d] %s (%s)\n", dev.ID, dev.Name, deviceType)
		fmt.Printf("    Input channels: %d, Output channels: %d\n", dev.MaxInputChannels, dev.MaxOutputChannels)
		fmt.Printf("    Default sample rate: %.0f Hz\n", dev.DefaultSampleRate)
		fmt.Println()
	}
	return nil
}
