// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"sync"
	"sync/atomic"

	"ringvis/internal/spectrum"
)

// Input is live capture exposed as a spectrum source. The capture callback
// writes into per-channel ring buffers; the frame loop analyzes the newest
// samples. It counts as playing while the gate is open.
type Input struct {
	gate     *Gate
	channels int

	mu     sync.Mutex
	rings  [][]float64
	write  int // Next ring index to write.
	filled int

	open atomic.Bool

	analyzer *spectrum.Analyzer
	history  []float64
}

var _ spectrum.Source = (*Input)(nil)

// NewInput creates an input with channels rings of capacity samples each. A nil
// gate counts every buffer as signal.
func NewInput(channels, capacity int, gate *Gate) *Input {
	channels = max(1, channels)
	rings := make([][]float64, channels)
	for i := range rings {
		rings[i] = make([]float64, capacity)
	}
	if gate == nil {
		gate = NewGate(0)
		gate.Disable()
	}
	return &Input{gate: gate, channels: channels, rings: rings}
}

// Gate returns the input's noise gate.
func (in *Input) Gate() *Gate { return in.gate }

// Write stores one interleaved capture buffer. It is called from the audio
// callback and does not allocate.
func (in *Input) Write(buffer []int32) {
	in.open.Store(in.gate.Open(buffer))

	const scale = 1.0 / math.MaxInt32
	in.mu.Lock()
	capacity := len(in.rings[0])
	frames := len(buffer) / in.channels
	for i := range frames {
		for c := range in.channels {
			in.rings[c][in.write] = float64(buffer[i*in.channels+c]) * scale
		}
		in.write++
		if in.write == capacity {
			in.write = 0
		}
	}
	in.filled = min(capacity, in.filled+frames)
	in.mu.Unlock()
}

// Playing reports whether the last buffer passed the gate.
func (in *Input) Playing() bool { return in.open.Load() }

// Spectrum analyzes the newest 2*len(dst) samples of channel.
func (in *Input) Spectrum(dst []float64, channel int, w spectrum.WindowFunc) {
	if in.analyzer == nil || in.analyzer.Bins() != len(dst) {
		a, err := spectrum.NewAnalyzer(len(dst))
		if err != nil {
			logger.Errorf("input spectrum: %v", err)
			clear(dst)
			return
		}
		in.analyzer = a
		in.history = make([]float64, a.FFTSize())
	}

	in.mu.Lock()
	ring := in.rings[min(max(channel, 0), in.channels-1)]
	in.copyNewest(ring)
	in.mu.Unlock()

	in.analyzer.Analyze(dst, in.history, w, 1)
}

// copyNewest fills history with the newest samples, oldest first, padding with
// silence when fewer were captured.
func (in *Input) copyNewest(ring []float64) {
	n := len(in.history)
	capacity := len(ring)
	for i := range n {
		age := n - i // 1 is the newest sample.
		if age > in.filled || age > capacity {
			in.history[i] = 0
			continue
		}
		in.history[i] = ring[(in.write-age+capacity)%capacity]
	}
}
