// SPDX-License-Identifier: MIT
/*
Package spectro maps linear FFT magnitudes onto the logarithmic display axis
and hands completed frames to the renderer.

Lower buckets span few narrow bins, upper buckets aggregate many; within a
bucket the maximum magnitude wins so short transients stay visible. Levels
are decibel-scaled and fall at a bounded rate instead of tracking the raw
spectrum, which kills flicker without delaying attacks.
*/
package spectro

import (
	"fmt"
	"math"
	"time"

	"specviz/internal/config"
)

// minDisplayHz is the lower edge of the display axis. Content below it is
// inaudible and would waste the bottom buckets.
const minDisplayHz = 20.0

// span is a half-open range of FFT bin indices aggregated into one bucket.
type span struct {
	start, end int
}

// Mapper converts magnitude spectra into SpectrumFrames. Owned by the
// analysis loop; not safe for concurrent use.
type Mapper struct {
	spans    []span
	smoothed []float64 // decayed level per bucket, starts at the floor

	reference float64
	floorDB   float64
	ceilingDB float64
	decayRate float64 // dB per second

	seq      uint64
	lastTime time.Time
}

// NewMapper builds the bucket geometry for the given snapshot and the bin
// count of the transform output (N/2+1).
func NewMapper(snap *config.Snapshot, bins int) (*Mapper, error) {
	if snap.BucketCount < 1 {
		return nil, fmt.Errorf("bucket count must be >= 1, got %d", snap.BucketCount)
	}
	if bins < 2 {
		return nil, fmt.Errorf("need at least 2 spectrum bins, got %d", bins)
	}

	spans := logSpans(snap.BucketCount, bins, float64(snap.SampleRate), float64(snap.WindowSize))

	smoothed := make([]float64, snap.BucketCount)
	for i := range smoothed {
		smoothed[i] = snap.FloorDB
	}

	return &Mapper{
		spans:     spans,
		smoothed:  smoothed,
		reference: snap.ReferenceLevel,
		floorDB:   snap.FloorDB,
		ceilingDB: snap.CeilingDB,
		decayRate: snap.DecayRate,
	}, nil
}

// logSpans distributes bins over logarithmically spaced frequency
// boundaries. Every bucket gets at least one bin; spans are contiguous and
// cover (minDisplayHz, Nyquist].
func logSpans(buckets, bins int, sampleRate, windowSize float64) []span {
	binWidth := sampleRate / windowSize
	fMin := math.Max(minDisplayHz, binWidth)
	fMax := sampleRate / 2

	// Ratio between successive bucket boundaries: the buckets-th root of the
	// covered frequency range.
	ratio := math.Pow(fMax/fMin, 1.0/float64(buckets))

	spans := make([]span, buckets)
	prevEnd := int(fMin / binWidth)
	if prevEnd < 1 {
		prevEnd = 1 // skip the DC bin
	}
	for k := 0; k < buckets; k++ {
		hi := fMin * math.Pow(ratio, float64(k+1))
		end := int(math.Round(hi / binWidth))
		if end < prevEnd+1 {
			end = prevEnd + 1 // at least one bin per bucket
		}
		if end > bins {
			end = bins
		}
		start := prevEnd
		if start >= bins {
			// More buckets than bins at the top end: pin to the last bin.
			start, end = bins-1, bins
		}
		spans[k] = span{start: start, end: end}
		prevEnd = end
	}
	// The last bucket always reaches Nyquist.
	if spans[buckets-1].end < bins {
		spans[buckets-1].end = bins
	}
	return spans
}

// BucketRange returns the bin index range [start, end) aggregated by bucket
// k, mainly for tests and debug output.
func (m *Mapper) BucketRange(k int) (int, int) {
	if k < 0 || k >= len(m.spans) {
		return 0, 0
	}
	return m.spans[k].start, m.spans[k].end
}

// Buckets returns the number of display buckets B.
func (m *Mapper) Buckets() int {
	return len(m.spans)
}

// ResumeFrom continues sequence numbering after seq. Used when a config
// reload replaces the mapper mid-run: frame ordering stays strictly
// increasing across the swap.
func (m *Mapper) ResumeFrom(seq uint64) {
	m.seq = seq
}

// Map aggregates one magnitude spectrum into a SpectrumFrame stamped at
// now. Buckets rise immediately on new energy and fall at most
// decayRate*dt; with sustained silence every level converges to the floor.
// The returned frame owns its Levels slice and is immutable.
func (m *Mapper) Map(magnitudes []float64, now time.Time) *Frame {
	dt := 0.0
	if !m.lastTime.IsZero() {
		dt = now.Sub(m.lastTime).Seconds()
		if dt < 0 {
			dt = 0
		}
	}
	m.lastTime = now

	maxFall := m.decayRate * dt
	for k, sp := range m.spans {
		peak := magnitudes[sp.start]
		for i := sp.start + 1; i < sp.end && i < len(magnitudes); i++ {
			if magnitudes[i] > peak {
				peak = magnitudes[i]
			}
		}

		level := 20 * math.Log10(peak/m.reference)
		if level < m.floorDB {
			level = m.floorDB
		} else if level > m.ceilingDB {
			level = m.ceilingDB
		}

		decayed := m.smoothed[k] - maxFall
		if decayed < m.floorDB {
			decayed = m.floorDB
		}
		if level > decayed {
			m.smoothed[k] = level
		} else {
			m.smoothed[k] = decayed
		}
	}

	m.seq++
	levels := make([]float64, len(m.smoothed))
	copy(levels, m.smoothed)
	return &Frame{Seq: m.seq, Timestamp: now, Levels: levels}
}
