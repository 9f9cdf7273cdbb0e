// SPDX-License-Identifier: MIT
/*
Package frame runs the visualizer's cooperative tick loop.

Stages execute in registration order on a single goroutine, once per tick,
with a fixed dt. That order is the contract between stages: the spectrum
aggregator must be registered before anything that reads the spectrum.
Other goroutines never touch stage state directly; they Post a task, which
runs on the loop goroutine before the next tick's stages.
*/
package frame

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	applog "ringvis/internal/log"
)

var logger = applog.For("frame")

// Stage is one per-tick step of the loop.
type Stage interface {
	Name() string
	Tick(dt float64)
}

type stageFunc struct {
	name string
	fn   func(dt float64)
}

func (s stageFunc) Name() string    { return s.name }
func (s stageFunc) Tick(dt float64) { s.fn(dt) }

// Func adapts a function to a Stage.
func Func(name string, fn func(dt float64)) Stage {
	return stageFunc{name: name, fn: fn}
}

// Loop is a fixed-rate tick loop.
type Loop struct {
	interval time.Duration
	stages   []Stage

	mu      sync.Mutex
	pending []func()
	running []func() // Swapped with pending each tick.

	ticks   atomic.Uint64
	started atomic.Bool
}

// NewLoop creates a loop ticking every interval.
func NewLoop(interval time.Duration) (*Loop, error) {
	if interval <= 0 {
		return nil, errors.New("tick interval must be positive")
	}
	return &Loop{interval: interval}, nil
}

// Interval returns the tick period.
func (l *Loop) Interval() time.Duration { return l.interval }

// Register appends stages. Registration is not allowed once Run has started.
func (l *Loop) Register(stages ...Stage) error {
	if l.started.Load() {
		return errors.New("cannot register stages on a running loop")
	}
	for _, s := range stages {
		if s == nil {
			return errors.New("nil stage")
		}
		l.stages = append(l.stages, s)
		logger.Debugf("stage %d: %s", len(l.stages), s.Name())
	}
	return nil
}

// Stages returns stage names in execution order.
func (l *Loop) Stages() []string {
	names := make([]string, len(l.stages))
	for i, s := range l.stages {
		names[i] = s.Name()
	}
	return names
}

// Post queues fn to run on the loop goroutine at the start of the next tick.
// It never blocks and is safe from any goroutine.
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.pending = append(l.pending, fn)
	l.mu.Unlock()
}

// Ticks returns the number of completed ticks.
func (l *Loop) Ticks() uint64 { return l.ticks.Load() }

// Step runs posted tasks and then every stage once with the given dt. Run calls
// it on each tick; tests and offline rendering call it directly.
func (l *Loop) Step(dt float64) {
	l.mu.Lock()
	l.pending, l.running = l.running[:0], l.pending
	l.mu.Unlock()

	for i, fn := range l.running {
		fn()
		l.running[i] = nil
	}
	for _, s := range l.stages {
		s.Tick(dt)
	}
	l.ticks.Add(1)
}

// Run ticks until ctx is cancelled. dt is always the configured interval, so a
// late tick does not make the simulation jump.
func (l *Loop) Run(ctx context.Context) error {
	if !l.started.CompareAndSwap(false, true) {
		return errors.New("loop already running")
	}
	defer l.started.Store(false)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	dt := l.interval.Seconds()
	logger.Infof("running %d stages every %s", len(l.stages), l.interval)
	for {
		select {
		case <-ctx.Done():
			logger.Debugf("stopped after %d ticks", l.Ticks())
			return nil
		case <-ticker.C:
			start := time.Now()
			l.Step(dt)
			if took := time.Since(start); took > l.interval {
				logger.Warnf("tick %d took %s, budget %s", l.Ticks(), took, l.interval)
			}
		}
	}
}
