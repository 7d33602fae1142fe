// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"specviz/cmd"
	"specviz/internal/analysis"
	"specviz/internal/audio"
	"specviz/internal/config"
	"specviz/internal/log"
	"specviz/internal/ring"
	"specviz/internal/spectro"
	"specviz/internal/transport"
	"specviz/internal/transport/udp"
	"specviz/internal/tui"
	"specviz/pkg/build"
)

func main() {
	if err := build.Initialize(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// One thread for the capture callback, one for analysis and I/O.
	runtime.GOMAXPROCS(2)

	opts, err := cmd.ParseArgs()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	switch opts.Command {
	case cmd.CommandList:
		if err := audio.ListDevices(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	case cmd.CommandDevices:
		chosen, err := tui.RunDevicePicker()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		if chosen != "" {
			fmt.Printf("Selected device: %s\n", chosen)
			fmt.Printf("Set audio.device: %q in the config file, or pass --device %q.\n", chosen, chosen)
		}
	case cmd.CommandRun:
		if err := run(opts); err != nil {
			log.Fatalf("%v", err)
		}
	}
}

// loadSnapshot builds a validated snapshot from the config file plus the
// command line overrides. Used for startup and for SIGHUP reloads.
func loadSnapshot(opts *cmd.Options) (*config.Snapshot, error) {
	snap, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	opts.Apply(snap)
	if err := config.Validate(snap); err != nil {
		return nil, err
	}
	return snap, nil
}

func run(opts *cmd.Options) error {
	snap, err := loadSnapshot(opts)
	if err != nil {
		return err
	}
	if level, ok := log.ParseLevel(snap.LogLevel); ok {
		log.SetLevel(level)
	}
	log.Infof("%s starting", build.GetBuildFlags())

	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	store := config.NewStore(snap)
	// Sized for the largest permitted window (512KB of float32) so a config
	// reload can raise window_size without outgrowing the buffer mid-run.
	rb := ring.New(4 * config.MaxWindowSize)
	frames := spectro.NewChannel()

	var rec *audio.Recorder
	if snap.RecordingEnabled {
		rec = audio.NewRecorder()
		if err := rec.Start(snap.RecordingDir, snap.SampleRate); err != nil {
			return err
		}
		defer rec.Stop()
	}

	capture := audio.NewCapture(store, rb, audio.OpenPortAudio, rec)
	analyzer, err := analysis.New(store, rb, frames)
	if err != nil {
		return err
	}

	var ws *transport.WebSocketServer
	if snap.WebSocketEnabled {
		ws, err = transport.NewWebSocketServer(snap.WebSocketAddr)
		if err != nil {
			return err
		}
		defer ws.Close()
	}

	if snap.UDPEnabled {
		sender, err := udp.NewSender(snap.UDPTargetAddress)
		if err != nil {
			return err
		}
		defer sender.Close()

		publisher := udp.NewPublisher(snap.UDPSendInterval, sender, frames)
		publisher.Start()
		defer publisher.Stop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := capture.Run(ctx); err != nil {
			log.Errorf("%v", err)
			cancel()
		}
	}()
	go func() {
		defer wg.Done()
		analyzer.Run(ctx)
	}()
	if ws != nil {
		go broadcastFrames(ctx, frames, ws)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	for {
		select {
		case sig := <-sigs:
			if sig == syscall.SIGHUP {
				reload(opts, store)
				continue
			}
			log.Infof("received %s, shutting down", sig)
			cancel()
			wg.Wait()
			return nil
		case <-ctx.Done():
			wg.Wait()
			return nil
		}
	}
}

// reload re-reads the config file and swaps the new snapshot in. Analysis
// parameters apply at the next cycle; device, recording, and transport
// changes need a restart.
func reload(opts *cmd.Options, store *config.Store) {
	snap, err := loadSnapshot(opts)
	if err != nil {
		log.Errorf("config reload rejected: %v", err)
		return
	}
	if level, ok := log.ParseLevel(snap.LogLevel); ok {
		log.SetLevel(level)
	}
	store.Swap(snap)
	log.Infof("config reloaded")
}

// broadcastFrames forwards new frames from the channel to the websocket
// server at roughly display refresh rate.
func broadcastFrames(ctx context.Context, frames *spectro.Channel, ws *transport.WebSocketServer) {
	ticker := time.NewTicker(16 * time.Millisecond)
	defer ticker.Stop()

	var lastSeq uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			frame, ok := frames.Latest()
			if !ok || frame.Seq == lastSeq {
				continue
			}
			lastSeq = frame.Seq
			ws.Send(frame)
		}
	}
}
