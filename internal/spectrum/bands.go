// SPDX-License-Identifier: MIT
package spectrum

import "math"

// Band is one named frequency range of the band summary.
type Band struct {
	Name   string  `json:"name"`
	LowHz  float64 `json:"-"`
	HighHz float64 `json:"-"`
	Level  float64 `json:"level"` // 0-1 for the last Compute call.
}

// BandSummary reduces the aggregated spectrum to a handful of named bands for
// clients that do not want every bin.
type BandSummary struct {
	bands      []Band
	bins       int
	sampleRate float64
	scale      float64

	energy  []float64
	counted []int
}

// NewBandSummary creates the standard six-band split for a spectrum of bins
// length sampled at sampleRate.
func NewBandSummary(bins int, sampleRate float64) *BandSummary {
	bands := []Band{
		{Name: "sub", LowHz: 20, HighHz: 60},
		{Name: "bass", LowHz: 60, HighHz: 250},
		{Name: "lowMid", LowHz: 250, HighHz: 500},
		{Name: "mid", LowHz: 500, HighHz: 2000},
		{Name: "highMid", LowHz: 2000, HighHz: 4000},
		{Name: "treble", LowHz: 4000, HighHz: sampleRate / 2},
	}
	return &BandSummary{
		bands:      bands,
		bins:       bins,
		sampleRate: sampleRate,
		scale:      4,
		energy:     make([]float64, len(bands)),
		counted:    make([]int, len(bands)),
	}
}

// Compute updates every band level from samples and returns the bands. The
// returned slice is reused by the next call.
func (b *BandSummary) Compute(samples []float64) []Band {
	clear(b.energy)
	clear(b.counted)

	for i, mag := range samples {
		freq := BinFrequency(i, b.bins, b.sampleRate)
		for j := range b.bands {
			if freq >= b.bands[j].LowHz && freq < b.bands[j].HighHz {
				b.energy[j] += mag * mag
				b.counted[j]++
				break
			}
		}
	}

	for j := range b.bands {
		level := 0.0
		if b.counted[j] > 0 {
			level = math.Sqrt(b.energy[j]/float64(b.counted[j])) * b.scale
		}
		b.bands[j].Level = math.Min(1, level)
	}
	return b.bands
}
