// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"specviz/internal/log"
)

const recordingBitDepth = 16

// Recorder tees captured blocks into a mono 16-bit WAV file. Write is safe
// to call from the capture thread while Start and Stop run elsewhere; when
// no recording is active Write is a single atomic load.
type Recorder struct {
	active atomic.Bool

	dropped atomic.Uint64

	mu      sync.Mutex
	file    *os.File
	encoder *wav.Encoder
	buf     *gaudio.IntBuffer
}

// NewRecorder returns an idle Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Active reports whether a recording is in progress.
func (r *Recorder) Active() bool {
	return r.active.Load()
}

// Start opens a timestamped WAV file under dir and begins accepting
// blocks. Starting while already recording is an error.
func (r *Recorder) Start(dir string, sampleRate int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active.Load() {
		return fmt.Errorf("already recording")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create recording dir: %w", err)
	}

	name := filepath.Join(dir, time.Now().Format("capture-20060102-150405.wav"))
	file, err := os.Create(name)
	if err != nil {
		return err
	}

	r.file = file
	r.encoder = wav.NewEncoder(file, sampleRate, recordingBitDepth, 1, 1)
	r.buf = &gaudio.IntBuffer{
		Format: &gaudio.Format{
			NumChannels: 1,
			SampleRate:  sampleRate,
		},
		Data: make([]int, 0, 4096),
	}
	r.dropped.Store(0)
	r.active.Store(true)

	log.Infof("audio: recording to %s", name)
	return nil
}

// Stop finalizes the WAV file. Stopping an idle recorder is a no-op.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.active.Load() {
		return nil
	}
	r.active.Store(false)

	if n := r.dropped.Load(); n > 0 {
		log.Warnf("audio: recording dropped %d blocks under contention", n)
	}

	if err := r.encoder.Close(); err != nil {
		r.file.Close()
		return fmt.Errorf("failed to finalize WAV file: %w", err)
	}
	err := r.file.Close()
	r.file = nil
	r.encoder = nil
	r.buf = nil
	return err
}

// Write converts one float32 block to 16-bit PCM and appends it to the
// open file. Called from the capture thread; if Start or Stop holds the
// lock the block is dropped rather than stalling capture.
func (r *Recorder) Write(block []float32) {
	if !r.active.Load() {
		return
	}
	if !r.mu.TryLock() {
		r.dropped.Add(1)
		return
	}
	defer r.mu.Unlock()

	if !r.active.Load() {
		return
	}

	r.buf.Data = r.buf.Data[:0]
	for _, s := range block {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		r.buf.Data = append(r.buf.Data, int(s*32767))
	}

	if err := r.encoder.Write(r.buf); err != nil {
		log.Errorf("audio: WAV write failed: %v", err)
	}
}
