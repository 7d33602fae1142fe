// SPDX-License-Identifier: MIT
/*
Package analysis runs the spectral pipeline: pop a window from the ring,
transform it, map it onto display buckets, publish the frame. One goroutine
owns the whole cycle, so the transform and mapper need no locking.
*/
package analysis

import (
	"context"
	"sync/atomic"
	"time"

	"specviz/internal/config"
	"specviz/internal/dsp"
	"specviz/internal/log"
	"specviz/internal/ring"
	"specviz/internal/spectro"
)

// Analyzer drives the window-transform-map cycle. Construct with New, run
// with Run; all other methods are safe to call concurrently.
type Analyzer struct {
	store  *config.Store
	ring   *ring.Buffer
	frames *spectro.Channel

	// Owned by the Run goroutine.
	snap    *config.Snapshot
	badSnap *config.Snapshot // last snapshot that failed to rebuild
	tr      *dsp.Transform
	mapper  *spectro.Mapper
	window  []float32
	lastSeq uint64

	published atomic.Uint64
	starved   atomic.Uint64
}

// New builds the analyzer for the store's current snapshot. The snapshot
// must already be validated; an unbuildable transform is an error here.
func New(store *config.Store, rb *ring.Buffer, frames *spectro.Channel) (*Analyzer, error) {
	a := &Analyzer{
		store:  store,
		ring:   rb,
		frames: frames,
	}
	if err := a.rebuild(store.Load()); err != nil {
		return nil, err
	}
	return a, nil
}

// Published reports how many frames have been handed to the channel.
func (a *Analyzer) Published() uint64 { return a.published.Load() }

// Starved reports how often a full window duration passed without enough
// samples to analyze.
func (a *Analyzer) Starved() uint64 { return a.starved.Load() }

// rebuild replaces the transform and mapper for a new snapshot. Sequence
// numbering continues where the previous mapper left off.
func (a *Analyzer) rebuild(snap *config.Snapshot) error {
	tr, err := dsp.New(snap.WindowSize, snap.WindowFunc)
	if err != nil {
		return err
	}
	mapper, err := spectro.NewMapper(snap, tr.Bins())
	if err != nil {
		return err
	}
	mapper.ResumeFrom(a.lastSeq)

	a.snap = snap
	a.tr = tr
	a.mapper = mapper
	a.window = make([]float32, snap.WindowSize)
	return nil
}

// Run executes analysis cycles until ctx is cancelled, then drains the
// remaining buffered windows and returns. A swapped config snapshot is
// picked up at the next cycle boundary.
//
// When the ring cannot fill a window the loop waits; after a full window
// duration without progress it counts a starvation and keeps waiting. No
// frame is published for starved intervals, so the display holds the last
// frame and its decayed levels.
func (a *Analyzer) Run(ctx context.Context) error {
	var idle time.Duration

	for {
		select {
		case <-ctx.Done():
			a.drain()
			log.Infof("analysis: stopped after %d frames", a.published.Load())
			return nil
		default:
		}

		snap := a.store.Load()
		if snap != a.snap && snap != a.badSnap {
			if err := a.rebuild(snap); err != nil {
				// Validation runs before a snapshot is swapped in, so
				// this is unreachable with a correct config layer.
				log.Errorf("analysis: keeping previous parameters, rebuild failed: %v", err)
				a.badSnap = snap
			} else {
				log.Infof("analysis: parameters updated (window %d, %d buckets)", snap.WindowSize, snap.BucketCount)
			}
		}

		if err := a.ring.PopWindow(a.window, a.snap.Stride()); err != nil {
			wait := a.pollInterval()
			select {
			case <-ctx.Done():
				a.drain()
				return nil
			case <-time.After(wait):
			}
			idle += wait
			if idle >= a.snap.WindowDuration() {
				a.starved.Add(1)
				log.Debugf("analysis: no samples for %s", idle)
				idle = 0
			}
			continue
		}
		idle = 0

		frame := a.mapper.Map(a.tr.Magnitudes(a.window), time.Now())
		a.frames.Publish(frame)
		a.lastSeq = frame.Seq
		a.published.Add(1)
	}
}

// drain analyzes whatever complete windows are still buffered so shutdown
// does not discard captured audio.
func (a *Analyzer) drain() {
	for a.ring.PopWindow(a.window, a.snap.Stride()) == nil {
		frame := a.mapper.Map(a.tr.Magnitudes(a.window), time.Now())
		a.frames.Publish(frame)
		a.lastSeq = frame.Seq
		a.published.Add(1)
	}
}

// pollInterval is how long to sleep when the ring is short: half a stride,
// clamped to keep the loop responsive without spinning.
func (a *Analyzer) pollInterval() time.Duration {
	d := time.Duration(float64(a.snap.Stride()) / float64(a.snap.SampleRate) * float64(time.Second) / 2)
	if d < time.Millisecond {
		d = time.Millisecond
	}
	if d > 50*time.Millisecond {
		d = 50 * time.Millisecond
	}
	return d
}
