// SPDX-License-Identifier: MIT
/*
Package tui provides the interactive device picker. It browses the audio
devices PortAudio reports and lets the user choose the capture input; the
chosen device name is what the audio.device config key expects.
*/
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"specviz/internal/audio"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))
)

// DevicePickerModel is the Bubble Tea model for choosing a capture device.
// Output devices are shown dimmed and cannot be selected.
type DevicePickerModel struct {
	devices       []audio.Device
	selectedIndex int
	viewport      viewport.Model
	ready         bool
	err           error

	inputsOnly bool

	// Chosen is the name of the confirmed capture device, empty when the
	// picker was quit without a choice.
	Chosen string
}

// NewDevicePickerModel returns a picker showing all devices.
func NewDevicePickerModel() DevicePickerModel {
	return DevicePickerModel{}
}

func (m DevicePickerModel) Init() tea.Cmd {
	return fetchDevices
}

func fetchDevices() tea.Msg {
	devices, err := audio.GetDevices()
	if err != nil {
		return errMsg{err}
	}
	return devicesMsg{devices}
}

type devicesMsg struct {
	devices []audio.Device
}

type errMsg struct {
	err error
}

// visible returns the devices under the current filter.
func (m DevicePickerModel) visible() []audio.Device {
	if !m.inputsOnly {
		return m.devices
	}
	var inputs []audio.Device
	for _, dev := range m.devices {
		if dev.Input() {
			inputs = append(inputs, dev)
		}
	}
	return inputs
}

func (m DevicePickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.ready = true
			if len(m.devices) > 0 {
				m.viewport.SetContent(m.renderDevices())
			}
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}

	case devicesMsg:
		m.devices = msg.devices
		if m.ready {
			m.viewport.SetContent(m.renderDevices())
		}

	case errMsg:
		m.err = msg.err

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, key.NewBinding(key.WithKeys("q", "ctrl+c"))):
			return m, tea.Quit

		case key.Matches(msg, key.NewBinding(key.WithKeys("up", "k"))):
			if m.selectedIndex > 0 {
				m.selectedIndex--
				m.viewport.SetContent(m.renderDevices())
			}

		case key.Matches(msg, key.NewBinding(key.WithKeys("down", "j"))):
			if m.selectedIndex < len(m.visible())-1 {
				m.selectedIndex++
				m.viewport.SetContent(m.renderDevices())
			}

		case key.Matches(msg, key.NewBinding(key.WithKeys("i"))):
			m.inputsOnly = !m.inputsOnly
			m.selectedIndex = 0
			m.viewport.SetContent(m.renderDevices())

		case key.Matches(msg, key.NewBinding(key.WithKeys("enter"))):
			visible := m.visible()
			if m.selectedIndex < len(visible) && visible[m.selectedIndex].Input() {
				m.Chosen = visible[m.selectedIndex].Name
				return m, tea.Quit
			}
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m DevicePickerModel) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress q to exit.", m.err)
	}

	title := titleStyle.Render("Select Capture Device")
	help := infoStyle.Render("↑/↓: Navigate • Enter: Select • i: Inputs only • q: Quit")
	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.viewport.View(), help)
}

func (m DevicePickerModel) renderDevices() string {
	visible := m.visible()
	if len(visible) == 0 {
		return "No audio devices found."
	}

	var sb strings.Builder
	for i, dev := range visible {
		deviceType := ""
		switch {
		case dev.MaxInputChannels > 0 && dev.MaxOutputChannels > 0:
			deviceType = "Input/Output"
		case dev.MaxInputChannels > 0:
			deviceType = "Input"
		case dev.MaxOutputChannels > 0:
			deviceType = "Output"
		}

		info := fmt.Sprintf("[%d] %s (%s)\n", dev.ID, dev.Name, deviceType)
		info += fmt.Sprintf("    Input channels: %d, default rate: %.0f Hz\n",
			dev.MaxInputChannels, dev.DefaultSampleRate)

		switch {
		case i == m.selectedIndex:
			info = highlightStyle.Render(info)
		case !dev.Input():
			info = dimStyle.Render(info)
		}

		sb.WriteString(info)
		sb.WriteString("\n")
	}
	return sb.String()
}

// RunDevicePicker launches the picker and returns the chosen device name,
// or an empty string when the user quit without selecting.
func RunDevicePicker() (string, error) {
	p := tea.NewProgram(NewDevicePickerModel(), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return "", err
	}
	if m, ok := final.(DevicePickerModel); ok {
		return m.Chosen, nil
	}
	return "", nil
}
