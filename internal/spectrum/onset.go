// SPDX-License-Identifier: MIT
package spectrum

import "math"

// OnsetDetector flags ticks where the aggregated spectrum energy jumps, e.g. a
// chord struck on top of silence.
type OnsetDetector struct {
	threshold float64 // Minimum RMS energy for an onset.
	minRatio  float64 // Required rise over the previous tick.
	cooldown  float64 // Seconds before another onset may fire.

	lastEnergy float64
	sinceLast  float64
}

// NewOnsetDetector returns a detector; cooldown is in seconds.
func NewOnsetDetector(threshold, minRatio, cooldown float64) *OnsetDetector {
	logger.Debugf("onset detector threshold %.3f, min ratio %.2f", threshold, minRatio)
	return &OnsetDetector{
		threshold: threshold,
		minRatio:  minRatio,
		cooldown:  cooldown,
		sinceLast: cooldown,
	}
}

// Process compares the energy of samples with the previous call and reports an
// onset. dt is the time since the previous call.
func (d *OnsetDetector) Process(samples []float64, dt float64) bool {
	energy := RMS(samples)
	d.sinceLast += dt

	onset := energy > d.threshold &&
		(d.lastEnergy == 0 || energy/d.lastEnergy > d.minRatio) &&
		d.sinceLast >= d.cooldown
	if onset {
		d.sinceLast = 0
	}
	d.lastEnergy = energy
	return onset
}

// RMS is the root mean square of samples.
func RMS(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(samples)))
}
