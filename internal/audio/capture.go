// SPDX-License-Identifier: MIT
/*
Package audio owns the capture side of the pipeline: it opens an input
device through PortAudio, pushes mono float32 blocks into the ring buffer,
and optionally tees them into a WAV recorder.

The capture loop survives device loss. When a source fails or cannot be
opened it retries with exponential backoff; the rest of the pipeline keeps
running on whatever samples are already buffered, so the display decays to
the floor instead of the process dying with the device.
*/
package audio

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"specviz/internal/config"
	"specviz/internal/log"
	"specviz/internal/ring"
)

const (
	initialBackoff = 250 * time.Millisecond
	maxBackoff     = 8 * time.Second
)

// Source is a live audio input stream. Start begins delivering sample
// blocks to onBlock from the stream's own thread; Errors reports an
// asynchronous stream failure, after which the source is dead and must be
// reopened.
type Source interface {
	Start(onBlock func(block []float32)) error
	Stop() error
	Errors() <-chan error
}

// OpenFunc opens a Source for the given configuration. The production
// implementation is OpenPortAudio; tests substitute fakes.
type OpenFunc func(snap *config.Snapshot) (Source, error)

// Capture feeds the ring buffer from an audio source, reopening the source
// with backoff whenever it fails.
type Capture struct {
	store *config.Store
	ring  *ring.Buffer
	open  OpenFunc
	rec   *Recorder // optional tee, may be nil

	// Retry pacing, overridable in tests.
	initialBackoff time.Duration
	maxBackoff     time.Duration

	blocksPushed atomic.Uint64
	blocksGated  atomic.Uint64
}

// NewCapture wires a capture loop to the given ring buffer. rec may be nil
// when recording is disabled.
func NewCapture(store *config.Store, rb *ring.Buffer, open OpenFunc, rec *Recorder) *Capture {
	return &Capture{
		store:          store,
		ring:           rb,
		open:           open,
		rec:            rec,
		initialBackoff: initialBackoff,
		maxBackoff:     maxBackoff,
	}
}

// BlocksPushed reports how many blocks reached the ring buffer.
func (c *Capture) BlocksPushed() uint64 { return c.blocksPushed.Load() }

// BlocksGated reports how many blocks the noise gate dropped.
func (c *Capture) BlocksGated() uint64 { return c.blocksGated.Load() }

// Run opens the source and keeps it open until ctx is cancelled. Open and
// stream failures trigger a reopen with exponential backoff starting at
// 250ms and capped at 8s; a successful open resets the backoff.
//
// When the snapshot limits retries and they are exhausted, Run either
// returns the last error or, with the silent fallback enabled, parks until
// cancellation so the pipeline keeps serving decayed frames.
func (c *Capture) Run(ctx context.Context) error {
	backoff := c.initialBackoff
	retries := 0

	for {
		snap := c.store.Load()

		src, err := c.open(snap)
		if err == nil {
			err = src.Start(c.handleBlock)
			if err != nil {
				src.Stop()
			}
		}
		if err != nil {
			retries++
			if snap.MaxRetries > 0 && retries > snap.MaxRetries {
				if snap.SilentFallback {
					log.Warnf("audio: giving up on input after %d attempts, running silent: %v", retries-1, err)
					<-ctx.Done()
					return nil
				}
				return fmt.Errorf("audio input failed after %d attempts: %w", retries-1, err)
			}

			log.Warnf("audio: input unavailable, retrying in %s: %v", backoff, err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, c.maxBackoff)
			continue
		}

		log.Infof("audio: capture running (device %q, %d Hz)", snap.Device, snap.SampleRate)
		backoff = c.initialBackoff
		retries = 0

		select {
		case <-ctx.Done():
			src.Stop()
			log.Infof("audio: capture stopped")
			return nil
		case err := <-src.Errors():
			src.Stop()
			log.Warnf("audio: stream lost: %v", err)
		}
	}
}

// handleBlock runs on the source's stream thread. It applies the noise
// gate, pushes the block into the ring, and tees it to the recorder.
// Must not block and must not allocate.
func (c *Capture) handleBlock(block []float32) {
	snap := c.store.Load()

	if gate := snap.GateThreshold; gate > 0 {
		var peak float32
		for _, s := range block {
			if s < 0 {
				s = -s
			}
			if s > peak {
				peak = s
			}
		}
		if peak < float32(gate) {
			c.blocksGated.Add(1)
			return
		}
	}

	c.ring.Push(block)
	c.blocksPushed.Add(1)

	if c.rec != nil {
		c.rec.Write(block)
	}
}
