// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"testing"

	"ringvis/internal/spectrum"
	"ringvis/pkg/utils"
)

func sineInt32(n int, bin, bins int, channels int) []int32 {
	wave := utils.GenerateSineWave(n, 48000, spectrum.BinFrequency(bin, bins, 48000), 0.5)
	buf := make([]int32, n*channels)
	for i, s := range wave {
		for c := range channels {
			v := s
			if c > 0 {
				v = 0 // Only the first channel carries the tone.
			}
			buf[i*channels+c] = int32(v * math.MaxInt32)
		}
	}
	return buf
}

func TestInputPlayingFollowsGate(t *testing.T) {
	in := NewInput(1, 1024, NewGate(0.1))
	in.Write(quietBuffer)
	if in.Playing() {
		t.Error("quiet buffer opened the gate")
	}
	in.Write(loudBuffer)
	if !in.Playing() {
		t.Error("loud buffer did not open the gate")
	}
	in.Write(quietBuffer)
	if in.Playing() {
		t.Error("input kept playing after the signal dropped")
	}

	always := NewInput(1, 16, nil)
	always.Write(make([]int32, 4))
	if !always.Playing() {
		t.Error("input without a gate should always play")
	}
}

func TestInputSpectrumUsesNewestSamples(t *testing.T) {
	const bins = 128
	in := NewInput(2, 4*bins, nil)

	// Fill with a tone at bin 10, then overwrite with a tone at bin 30.
	in.Write(sineInt32(4*bins, 10, bins, 2))
	in.Write(sineInt32(2*bins, 30, bins, 2))

	dst := make([]float64, bins)
	in.Spectrum(dst, 0, spectrum.BlackmanHarris)
	if peak := utils.FindPeakBin(dst, 0, bins-1); peak != 30 {
		t.Errorf("peak bin = %d, want 30 from the newest buffer", peak)
	}

	in.Spectrum(dst, 1, spectrum.BlackmanHarris)
	for i, m := range dst {
		if m > 1e-9 {
			t.Fatalf("silent channel has magnitude %v at bin %d", m, i)
		}
	}
}

func TestInputSpectrumPadsShortHistory(t *testing.T) {
	const bins = 64
	in := NewInput(1, 4096, nil)
	in.Write(sineInt32(bins, 5, bins, 1)) // Half of the 2N window.

	dst := make([]float64, bins)
	in.Spectrum(dst, 0, spectrum.Hann)
	if dst[5] < 0.01 {
		t.Errorf("bin 5 = %v, want the tone from a partially filled ring", dst[5])
	}
}

func TestInputWriteZeroAllocs(t *testing.T) {
	in := NewInput(2, 8192, NewGate(0.01))
	allocs := testing.AllocsPerRun(100, func() { in.Write(testBuffer) })
	if allocs > 0 {
		t.Errorf("Expected zero allocations in capture write, got %.1f", allocs)
	}
}
