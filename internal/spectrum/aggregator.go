// SPDX-License-Identifier: MIT
package spectrum

import (
	"fmt"
)

// AggregatorConfig configures an Aggregator.
type AggregatorConfig struct {
	Length           int        // Bins per snapshot, power of two in [64, 8192].
	Window           WindowFunc // Window every source analyzes with.
	Channel          int        // Channel every source analyzes.
	BaseGain         float64
	MinDynamicGain   float64
	MaxDynamicGain   float64
	ReferenceSources int  // Active count at which the dynamic gain reaches MaxDynamicGain.
	ClampDynamicGain bool // When false, counts above ReferenceSources extrapolate past MaxDynamicGain.
}

// Aggregator averages the snapshots of all playing sources into one buffer.
type Aggregator struct {
	cfg AggregatorConfig

	samples []float64 // The shared spectrum buffer, length fixed at construction.
	scratch []float64 // Per-source snapshot.
	sources []Source
	active  int

	warnedExtrapolation bool
}

var _ Reader = (*Aggregator)(nil)

// NewAggregator validates cfg and allocates the spectrum buffer.
func NewAggregator(cfg AggregatorConfig) (*Aggregator, error) {
	if err := ValidateLength(cfg.Length); err != nil {
		return nil, err
	}
	if cfg.ReferenceSources <= 0 {
		return nil, fmt.Errorf("reference source count must be positive, got %d", cfg.ReferenceSources)
	}
	return &Aggregator{
		cfg:     cfg,
		samples: make([]float64, cfg.Length),
		scratch: make([]float64, cfg.Length),
	}, nil
}

// Name identifies the aggregator as a frame stage.
func (a *Aggregator) Name() string { return "spectrum" }

// SetSources replaces the source list. The aggregator does not own the sources.
func (a *Aggregator) SetSources(sources []Source) {
	a.sources = append(a.sources[:0:0], sources...)
}

// Sources returns the number of known sources, playing or not.
func (a *Aggregator) Sources() int { return len(a.sources) }

// Samples returns the aggregated spectrum of the last tick.
func (a *Aggregator) Samples() []float64 { return a.samples }

// Len returns the spectrum length.
func (a *Aggregator) Len() int { return len(a.samples) }

// Active returns how many sources were playing during the last tick.
func (a *Aggregator) Active() int { return a.active }

// Tick recomputes the spectrum. dt is unused; sources are sampled once per tick.
func (a *Aggregator) Tick(float64) {
	clear(a.samples)
	a.active = 0

	for _, src := range a.sources {
		if src == nil || !src.Playing() {
			continue
		}
		src.Spectrum(a.scratch, a.cfg.Channel, a.cfg.Window)
		for i, v := range a.scratch {
			a.samples[i] += v
		}
		a.active++
	}

	if a.active == 0 {
		return
	}

	if !a.cfg.ClampDynamicGain && a.active > a.cfg.ReferenceSources && !a.warnedExtrapolation {
		logger.Warnf("%d active sources exceed the reference count %d, dynamic gain extrapolates past %.2f",
			a.active, a.cfg.ReferenceSources, a.cfg.MaxDynamicGain)
		a.warnedExtrapolation = true
	}

	gain := a.cfg.BaseGain * DynamicGain(a.cfg.MinDynamicGain, a.cfg.MaxDynamicGain,
		a.active, a.cfg.ReferenceSources, a.cfg.ClampDynamicGain)
	n := float64(a.active)
	for i, v := range a.samples {
		a.samples[i] = clamp01(v / n * gain)
	}
}

// DynamicGain interpolates between minGain and maxGain by active/reference.
// With clamp set the interpolation parameter is limited to [0, 1].
func DynamicGain(minGain, maxGain float64, active, reference int, clamp bool) float64 {
	t := float64(active) / float64(reference)
	if clamp {
		t = clamp01(t)
	}
	return minGain + (maxGain-minGain)*t
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
