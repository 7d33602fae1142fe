// SPDX-License-Identifier: MIT
//
// Package testsig generates deterministic audio test signals for the
// analysis pipeline tests and benchmarks.
package testsig

import "math"

// Sine returns size float32 samples of a pure tone at the given frequency
// and sample rate, scaled to 90% of full amplitude.
func Sine(size int, sampleRate, frequency float64) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = float32(math.Sin(2*math.Pi*frequency*t) * 0.9)
	}
	return buffer
}

// Composite returns a 440Hz fundamental with two harmonics, useful for
// benchmarks that want a non-trivial spectrum.
func Composite(size int, sampleRate float64) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		signal := math.Sin(2*math.Pi*440*t)*0.5 +
			math.Sin(2*math.Pi*880*t)*0.3 +
			math.Sin(2*math.Pi*1320*t)*0.2
		buffer[i] = float32(signal * 0.9)
	}
	return buffer
}

// Silence returns size zero-valued samples.
func Silence(size int) []float32 {
	return make([]float32, size)
}

// PeakIndex returns the index of the largest value in levels, or 0 for an
// empty slice.
func PeakIndex(levels []float64) int {
	if len(levels) == 0 {
		return 0
	}

	peak := 0
	for i := 1; i < len(levels); i++ {
		if levels[i] > levels[peak] {
			peak = i
		}
	}
	return peak
}
