// SPDX-License-Identifier: MIT
/*
Package dsp wraps the FFT behind the narrow interface the pipeline needs:
N float32 samples in, N/2+1 linear magnitudes out. The concrete transform
(gonum fourier) stays swappable without touching the rest of the pipeline.

Thread safety: a Transform is owned by the analysis loop and is not safe for
concurrent use. All buffers are pre-allocated; Magnitudes does not allocate.
*/
package dsp

import (
	"fmt"
	"math/cmplx"
	"strings"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"

	"specviz/pkg/bitint"
)

// magnitudeFloor clamps spectral magnitudes to a small positive value so a
// later logarithmic conversion of silent input stays finite.
const magnitudeFloor = 1e-9

// Transform applies a window function and computes the magnitude spectrum of
// fixed-size sample windows.
type Transform struct {
	size int
	fft  *fourier.FFT

	// Pre-allocated workspace.
	input      []float64    // windowed input samples
	coeffs     []complex128 // FFT complex output
	magnitudes []float64    // magnitude output, N/2+1 values
	win        []float64    // window coefficients
}

// New creates a Transform for windows of exactly size samples. A size that
// is not a power of two is a configuration error caught here, at startup,
// never at steady state.
func New(size int, windowName string) (*Transform, error) {
	if !bitint.IsPowerOfTwo(size) {
		return nil, fmt.Errorf("transform size must be a power of 2, got %d", size)
	}

	win := make([]float64, size)
	if err := applyWindow(win, windowName); err != nil {
		return nil, err
	}

	outputSize := size/2 + 1
	return &Transform{
		size:       size,
		fft:        fourier.NewFFT(size),
		input:      make([]float64, size),
		coeffs:     make([]complex128, outputSize),
		magnitudes: make([]float64, outputSize),
		win:        win,
	}, nil
}

// Size returns the window length N.
func (t *Transform) Size() int {
	return t.size
}

// Bins returns the number of output magnitudes, N/2+1.
func (t *Transform) Bins() int {
	return len(t.magnitudes)
}

// Magnitudes windows the samples, runs the FFT, and returns the linear
// magnitude per bin up to Nyquist. The returned slice is the internal
// workspace, valid until the next call. len(samples) must equal Size;
// shorter input is zero-padded (should not happen with a correct ring).
func (t *Transform) Magnitudes(samples []float32) []float64 {
	for i := 0; i < t.size; i++ {
		if i < len(samples) {
			t.input[i] = float64(samples[i]) * t.win[i]
		} else {
			t.input[i] = 0
		}
	}

	t.fft.Coefficients(t.coeffs, t.input)
	for i, c := range t.coeffs {
		m := cmplx.Abs(c)
		if m < magnitudeFloor {
			m = magnitudeFloor
		}
		t.magnitudes[i] = m
	}
	return t.magnitudes
}

// BinFrequency returns the center frequency in Hz of the given bin at the
// given sample rate.
func (t *Transform) BinFrequency(bin int, sampleRate float64) float64 {
	if bin < 0 || bin >= len(t.magnitudes) {
		return 0
	}
	return float64(bin) * sampleRate / float64(t.size)
}

// applyWindow fills coeffs with the named window function. Unknown names
// are an error; the config layer owns defaulting.
func applyWindow(coeffs []float64, name string) error {
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	switch strings.ToLower(name) {
	case "", "hann", "hanning":
		window.Hann(coeffs)
	case "hamming":
		window.Hamming(coeffs)
	case "blackman":
		window.Blackman(coeffs)
	case "blackmannuttall":
		window.BlackmanNuttall(coeffs)
	case "nuttall":
		window.Nuttall(coeffs)
	case "bartletthann":
		window.BartlettHann(coeffs)
	case "lanczos":
		window.Lanczos(coeffs)
	case "rectangular", "none":
		// Coefficients stay at 1.0.
	default:
		return fmt.Errorf("unknown window function: %q", name)
	}
	return nil
}

// SupportedWindows lists the accepted window function names.
func SupportedWindows() []string {
	return []string{"hann", "hamming", "blackman", "blackmannuttall", "nuttall", "bartletthann", "lanczos", "rectangular"}
}
