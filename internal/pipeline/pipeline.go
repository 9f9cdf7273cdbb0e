// SPDX-License-Identifier: MIT
/*
Package pipeline wires the visualizer together: the piano keyboard, the
spectrum aggregator, the bar driver and the colour cycle run as frame stages
in that order, followed by a publish stage that snapshots the tick's output
for renderers and transports.
*/
package pipeline

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"ringvis/internal/config"
	"ringvis/internal/frame"
	"ringvis/internal/keys"
	applog "ringvis/internal/log"
	"ringvis/internal/spectrum"
	"ringvis/internal/visual"
)

var logger = applog.For("pipeline")

// Sink receives a copy of every published frame. Send must not block.
type Sink interface {
	Send(data any) error
}

// Pipeline owns every stage and the frame loop that drives them.
type Pipeline struct {
	cfg *config.Config

	loop       *frame.Loop
	keyboard   *keys.Keyboard
	aggregator *spectrum.Aggregator
	bars       []*visual.Bar
	barDriver  *visual.BarDriver
	material   *visual.Material
	cycle      *visual.ColorCycle
	bands      *spectrum.BandSummary
	onsets     *spectrum.OnsetDetector

	extra []spectrum.Source // Sources besides the keyboard, e.g. live input.
	sinks []Sink
	now   func() time.Time

	events []keys.Event
	lit    []int

	mu     sync.RWMutex
	latest Frame
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithClock replaces time.Now for frame timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithSources adds sources that are resolved alongside the keyboard voices.
func WithSources(sources ...spectrum.Source) Option {
	return func(p *Pipeline) { p.extra = append(p.extra, sources...) }
}

// WithSinks registers frame consumers.
func WithSinks(sinks ...Sink) Option {
	return func(p *Pipeline) { p.sinks = append(p.sinks, sinks...) }
}

// New builds every stage from cfg. clips maps MIDI notes to samples and may be
// empty. The keyboard advances its own voices unless audio output is enabled.
func New(cfg *config.Config, clips map[int]*keys.Clip, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}

	loop, err := frame.NewLoop(cfg.TickInterval())
	if err != nil {
		return nil, err
	}
	p.loop = loop

	p.keyboard = keys.NewKeyboard(keys.KeyboardConfig{
		BaseVolume:  cfg.Keys.BaseVolume,
		FadeOut:     cfg.Keys.FadeOut,
		TapHold:     cfg.Keys.TapHold,
		SelfClocked: !cfg.Audio.OutputEnabled,
	}, clips)

	window, err := spectrum.ParseWindowFunc(cfg.Spectrum.Window)
	if err != nil {
		logger.Warnf("%v, using %s", err, window)
	}
	p.aggregator, err = spectrum.NewAggregator(spectrum.AggregatorConfig{
		Length:           cfg.Spectrum.SampleLength,
		Window:           window,
		Channel:          cfg.Spectrum.Channel,
		BaseGain:         cfg.Spectrum.BaseGain,
		MinDynamicGain:   cfg.Spectrum.MinDynamicGain,
		MaxDynamicGain:   cfg.Spectrum.MaxDynamicGain,
		ReferenceSources: cfg.Spectrum.ReferenceSources,
		ClampDynamicGain: cfg.Spectrum.ClampDynamicGain,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create spectrum aggregator: %w", err)
	}

	p.bars = visual.NewBars(cfg.BarCount())
	p.barDriver, err = visual.NewBarDriver(p.aggregator, visual.Elements(p.bars), cfg.Bars.SmoothingSpeed)
	if err != nil {
		return nil, fmt.Errorf("failed to create bar driver: %w", err)
	}

	p.material = visual.NewMaterial("ring")
	p.cycle, err = visual.NewColorCycle(p.material, visual.CycleConfig{
		Interval:   cfg.Color.ChangeInterval,
		Transition: cfg.Color.TransitionDuration,
		Property:   cfg.Color.Property,
	}, newRand(cfg.Color.Seed))
	if err != nil {
		return nil, fmt.Errorf("failed to create colour cycle: %w", err)
	}
	if cfg.Color.Enabled {
		p.cycle.Enable()
	}

	p.bands = spectrum.NewBandSummary(cfg.Spectrum.SampleLength, cfg.Audio.SampleRate)
	p.onsets = spectrum.NewOnsetDetector(cfg.Spectrum.OnsetThreshold, cfg.Spectrum.OnsetRatio, cfg.Spectrum.OnsetCooldown.Seconds())
	p.latest.Heights = make([]float32, len(p.bars))

	if err := p.loop.Register(
		p.keyboard,
		p.aggregator,
		p.barDriver,
		p.cycle,
		frame.Func("publish", p.publish),
	); err != nil {
		return nil, err
	}
	return p, nil
}

func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func (p *Pipeline) Loop() *frame.Loop                { return p.loop }
func (p *Pipeline) Keyboard() *keys.Keyboard         { return p.keyboard }
func (p *Pipeline) Aggregator() *spectrum.Aggregator { return p.aggregator }
func (p *Pipeline) Cycle() *visual.ColorCycle        { return p.cycle }
func (p *Pipeline) Material() *visual.Material       { return p.material }
func (p *Pipeline) Bars() []*visual.Bar              { return p.bars }

// Sources returns every source known to the pipeline: keyboard voices first,
// then extra sources.
func (p *Pipeline) Sources() []spectrum.Source {
	return append(p.keyboard.Sources(), p.extra...)
}

// Discover resolves the sources once, after ready closes or the configured
// settle delay, and hands them to the aggregator on the loop goroutine.
func (p *Pipeline) Discover(ctx context.Context, ready <-chan struct{}) error {
	sources, err := spectrum.Discover(ctx, ready, p.cfg.Spectrum.DiscoveryDelay, p.Sources)
	if err != nil {
		return err
	}
	p.loop.Post(func() { p.aggregator.SetSources(sources) })
	return nil
}

// Run discovers sources and ticks the loop until ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context, ready <-chan struct{}) error {
	go func() {
		if err := p.Discover(ctx, ready); err != nil && ctx.Err() == nil {
			logger.Errorf("source discovery failed: %v", err)
		}
	}()
	return p.loop.Run(ctx)
}

// Post forwards to the loop. It is how other goroutines press keys or toggle
// the colour cycle.
func (p *Pipeline) Post(fn func()) { p.loop.Post(fn) }

// Snapshot returns a deep copy of the latest frame.
func (p *Pipeline) Snapshot() Frame {
	var f Frame
	p.FrameInto(&f)
	return f
}

// FrameInto copies the latest frame into dst, reusing its slices.
func (p *Pipeline) FrameInto(dst *Frame) {
	p.mu.RLock()
	p.latest.copyInto(dst)
	p.mu.RUnlock()
}

func (p *Pipeline) publish(dt float64) {
	p.events = p.keyboard.DrainEvents(p.events[:0])
	p.lit = p.keyboard.Lit(p.lit[:0])
	bands := p.bands.Compute(p.aggregator.Samples())
	beat := p.onsets.Process(p.aggregator.Samples(), dt)
	col := p.cycle.Current()

	p.mu.Lock()
	f := &p.latest
	f.Seq++
	f.Time = p.now()
	f.Active = p.aggregator.Active()
	f.Beat = beat
	for i, b := range p.bars {
		f.Heights[i] = float32(b.Height())
	}
	if col != f.Color || f.Hex == "" {
		f.Hex = col.Hex()
	}
	f.Color = col
	f.Bands = append(f.Bands[:0], bands...)
	f.Lit = append(f.Lit[:0], p.lit...)
	f.Events = append(f.Events[:0], p.events...)
	p.mu.Unlock()

	if len(p.sinks) == 0 {
		return
	}
	snap := p.Snapshot()
	for _, s := range p.sinks {
		if err := s.Send(snap); err != nil {
			logger.Debugf("frame %d not delivered: %v", snap.Seq, err)
		}
	}
}
