// SPDX-License-Identifier: MIT
package spectro

import (
	"sync/atomic"
	"time"
)

// Frame is one complete set of display bucket levels. Frames are immutable
// once published: the mapper hands ownership to the Channel and the renderer
// borrows them read-only.
type Frame struct {
	Seq       uint64    `json:"seq"`       // strictly increasing per mapper
	Timestamp time.Time `json:"timestamp"` // completion time of the analysis cycle
	Levels    []float64 `json:"levels"`    // one dB level per display bucket
}

// Channel is the single-slot frame hand-off between the analysis loop and
// the renderer. Publish replaces any unconsumed frame (newest wins, no
// queueing); Latest never blocks and keeps returning the same frame until a
// newer one arrives. Safe for concurrent Publish and Latest.
type Channel struct {
	latest atomic.Pointer[Frame]
}

// NewChannel returns an empty Channel; Latest reports no frame until the
// first Publish.
func NewChannel() *Channel {
	return &Channel{}
}

// Publish atomically replaces the pending frame.
func (c *Channel) Publish(f *Frame) {
	c.latest.Store(f)
}

// Latest returns the most recently published frame, or false before any
// frame exists. The renderer may redraw a stale frame at a higher refresh
// rate than analysis produces them.
func (c *Channel) Latest() (*Frame, bool) {
	f := c.latest.Load()
	return f, f != nil
}
