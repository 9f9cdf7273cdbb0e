// SPDX-License-Identifier: MIT
/*
Package spectrum produces the shared per-frame spectrum that drives the
visualizer.

Every frame the Aggregator asks each playing Source for an N-bin magnitude
snapshot, averages the snapshots, applies a base gain and a dynamic gain that
grows with the number of active sources, and clamps the result to [0, 1].
The aggregated buffer has exactly one writer (the Aggregator, on the frame loop)
and any number of readers, which must run later in the same tick.
*/
package spectrum

import applog "ringvis/internal/log"

var logger = applog.For("spectrum")

// Source is a sound-emitting entity sampled once per frame.
type Source interface {
	// Playing reports whether the source currently produces audio.
	Playing() bool
	// Spectrum writes a len(dst)-bin magnitude snapshot of the given channel,
	// using window function w.
	Spectrum(dst []float64, channel int, w WindowFunc)
}

// Reader exposes the aggregated spectrum to consumers. The returned slice is
// owned by the writer and must not be modified or retained across ticks.
type Reader interface {
	Samples() []float64
	Len() int
}
