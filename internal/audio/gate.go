// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"sync/atomic"
)

// Gate decides whether a capture buffer carries signal. It is configured from
// the UI goroutine and read from the audio callback, so its state is atomic.
type Gate struct {
	enabled   atomic.Bool
	threshold atomic.Int32 // Absolute amplitude threshold (0-2147483647)
}

// NewGate returns an enabled gate with threshold in [0, 1].
func NewGate(threshold float64) *Gate {
	g := &Gate{}
	g.enabled.Store(true)
	g.SetThreshold(threshold)
	return g
}

func (g *Gate) Enable()       { g.enabled.Store(true) }
func (g *Gate) Disable()      { g.enabled.Store(false) }
func (g *Gate) Enabled() bool { return g.enabled.Load() }

// SetThreshold adjusts the noise gate threshold.
// The value is in the range of 0.0-1.0 where 0=always open, 1=always closed.
func (g *Gate) SetThreshold(threshold float64) {
	threshold = max(0, min(1, threshold))
	g.threshold.Store(int32(threshold * float64(math.MaxInt32)))
}

// Threshold returns the current noise gate threshold in the range 0.0-1.0.
func (g *Gate) Threshold() float64 {
	return float64(g.threshold.Load()) / float64(math.MaxInt32)
}

// Open reports whether buffer passes the gate. A disabled gate is always open.
func (g *Gate) Open(buffer []int32) bool {
	if !g.enabled.Load() {
		return true
	}
	return PeakAmplitude(buffer) > g.threshold.Load()
}

// PeakAmplitude returns the largest absolute sample without branching in the
// loop. math.MinInt32 saturates to math.MaxInt32.
func PeakAmplitude(buffer []int32) int32 {
	var peak int32
	for _, sample := range buffer {
		mask := sample >> 31
		amplitude := (sample ^ mask) - mask
		overflow := amplitude >> 31 // Only MinInt32 is still negative.
		amplitude = (amplitude &^ overflow) | (math.MaxInt32 & overflow)
		diff := amplitude - peak
		peak += diff &^ (diff >> 31)
	}
	return peak
}
