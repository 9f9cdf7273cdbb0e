// SPDX-License-Identifier: MIT
package spectrum

import (
	"fmt"
	"math/cmplx"

	"ringvis/internal/config"
	"ringvis/pkg/bitint"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Analyzer turns the most recent 2N PCM samples of a source into an N-bin
// magnitude snapshot. Every buffer is allocated up front so Analyze can run once
// per source per frame without allocating.
type Analyzer struct {
	bins    int
	fftSize int
	fft     *fourier.FFT

	input  []float64    // Windowed samples.
	coeffs []complex128 // FFT output, fftSize/2 + 1 values.

	window     WindowFunc
	windowBuf  []float64
	windowNorm float64 // 1 / sum(window), so a unit sine peaks near 0.5.
}

// NewAnalyzer creates an analyzer producing bins magnitudes per snapshot.
func NewAnalyzer(bins int) (*Analyzer, error) {
	if err := ValidateLength(bins); err != nil {
		return nil, err
	}
	fftSize := bins * 2
	a := &Analyzer{
		bins:      bins,
		fftSize:   fftSize,
		fft:       fourier.NewFFT(fftSize),
		input:     make([]float64, fftSize),
		coeffs:    make([]complex128, fftSize/2+1),
		windowBuf: make([]float64, fftSize),
		window:    -1,
	}
	logger.Debugf("analyzer: %d bins, FFT order %d", bins, bitint.Log2(fftSize))
	return a, nil
}

// Bins returns the snapshot length.
func (a *Analyzer) Bins() int { return a.bins }

// FFTSize returns the number of PCM samples consumed per snapshot.
func (a *Analyzer) FFTSize() int { return a.fftSize }

// Analyze windows samples, runs the FFT and writes the first len(dst) magnitudes
// into dst. samples holds the newest audio last; if it is shorter than FFTSize the
// missing history is treated as silence. gain scales every sample.
func (a *Analyzer) Analyze(dst, samples []float64, w WindowFunc, gain float64) {
	a.useWindow(w)

	offset := a.fftSize - len(samples)
	for i := range a.fftSize {
		j := i - offset
		if j < 0 {
			a.input[i] = 0
			continue
		}
		a.input[i] = samples[j] * gain * a.windowBuf[i]
	}

	a.fft.Coefficients(a.coeffs, a.input)

	n := min(len(dst), a.bins)
	for i := range n {
		dst[i] = cmplx.Abs(a.coeffs[i]) * a.windowNorm
	}
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
}

func (a *Analyzer) useWindow(w WindowFunc) {
	if w == a.window {
		return
	}
	fillWindow(a.windowBuf, w)
	var sum float64
	for _, c := range a.windowBuf {
		sum += c
	}
	a.windowNorm = 0
	if sum > 0 {
		a.windowNorm = 1 / sum
	}
	a.window = w
}

// ValidateLength checks a spectrum length against the supported bounds.
func ValidateLength(n int) error {
	if n < config.MinSampleLength || n > config.MaxSampleLength || !bitint.IsPowerOfTwo(n) {
		return fmt.Errorf("spectrum length must be a power of 2 in [%d, %d], got %d",
			config.MinSampleLength, config.MaxSampleLength, n)
	}
	return nil
}

// BinFrequency returns the centre frequency in Hz of bin i.
func BinFrequency(i, bins int, sampleRate float64) float64 {
	return float64(i) * sampleRate / float64(2*bins)
}
