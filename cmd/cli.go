// SPDX-License-Identifier: MIT
// Package cmd parses the command line into the run mode and the settings
// overrides that take precedence over the config file.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"specviz/internal/config"
	"specviz/pkg/build"
)

// Run modes selected by the command line.
const (
	CommandRun     = "run"     // capture and analyze (default)
	CommandList    = "list"    // print devices and exit
	CommandDevices = "devices" // interactive device picker
)

// Options is the parsed command line. Flag values only override the
// config file when the flag was given explicitly; Apply handles that.
type Options struct {
	Command    string
	ConfigPath string

	flags *pflag.FlagSet

	device     string
	sampleRate int
	windowSize int
	overlap    float64
	buckets    int
	record     bool
	wsAddr     string
	udpTarget  string
	logLevel   string
}

// ParseArgs runs the cobra command tree over os.Args and returns the
// resulting options. Help and version output terminate parsing with a nil
// Command.
func ParseArgs() (*Options, error) {
	buildInfo := build.GetBuildFlags()
	opts := &Options{}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         "Real-time audio spectrum analyzer",
		Version:       buildInfo.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Command = CommandRun
			return nil
		},
	}
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Run: func(cmd *cobra.Command, args []string) {
			opts.Command = CommandList
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "devices",
		Short: "Pick the capture device interactively",
		Run: func(cmd *cobra.Command, args []string) {
			opts.Command = CommandDevices
		},
	})

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.ConfigPath, "config", "c", "",
		"Path to the YAML settings file")
	flags.StringVarP(&opts.device, "device", "d", config.DefaultDevice,
		"Input device name, empty for the system default. Use 'list' to see devices.")
	flags.IntVarP(&opts.sampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate in Hz")
	flags.IntVarP(&opts.windowSize, "window-size", "w", config.DefaultWindowSize,
		"Analysis window size in samples (power of two)")
	flags.Float64Var(&opts.overlap, "overlap", config.DefaultOverlap,
		"Window overlap fraction in [0,1)")
	flags.IntVarP(&opts.buckets, "buckets", "b", config.DefaultBucketCount,
		"Number of display buckets")
	flags.BoolVarP(&opts.record, "record", "r", false,
		"Record captured audio to WAV")
	flags.StringVar(&opts.wsAddr, "ws-addr", "",
		"Serve frames over websocket on this address")
	flags.StringVar(&opts.udpTarget, "udp-target", "",
		"Stream binary frames to this UDP address")
	flags.StringVar(&opts.logLevel, "log-level", config.DefaultLogLevel,
		"Log level: debug, info, warn, error")
	opts.flags = flags

	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	return opts, nil
}

// Apply writes explicitly given flags over the snapshot loaded from file.
// Callers re-validate the snapshot afterwards.
func (o *Options) Apply(s *config.Snapshot) {
	if o.flags == nil {
		return
	}
	if o.flags.Changed("device") {
		s.Device = o.device
	}
	if o.flags.Changed("sample-rate") {
		s.SampleRate = o.sampleRate
	}
	if o.flags.Changed("window-size") {
		s.WindowSize = o.windowSize
	}
	if o.flags.Changed("overlap") {
		s.Overlap = o.overlap
	}
	if o.flags.Changed("buckets") {
		s.BucketCount = o.buckets
	}
	if o.flags.Changed("record") {
		s.RecordingEnabled = o.record
	}
	if o.flags.Changed("ws-addr") {
		s.WebSocketAddr = o.wsAddr
		s.WebSocketEnabled = true
	}
	if o.flags.Changed("udp-target") {
		s.UDPTargetAddress = o.udpTarget
		s.UDPEnabled = true
	}
	if o.flags.Changed("log-level") {
		s.LogLevel = o.logLevel
	}
}
