// SPDX-License-Identifier: MIT
package visual

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// CycleState is the colour cycle's top-level state.
type CycleState int

const (
	Idle CycleState = iota
	Cycling
)

func (s CycleState) String() string {
	if s == Cycling {
		return "cycling"
	}
	return "idle"
}

type cyclePhase int

const (
	phaseTransition cyclePhase = iota
	phaseHold
)

// completion tolerance for accumulated tick durations
const cycleEpsilon = 1e-9

// CycleConfig configures a ColorCycle.
type CycleConfig struct {
	Interval   time.Duration // Full period: transition plus hold.
	Transition time.Duration
	Property   string // Colour attribute written on the surface.
}

// ColorCycle repeatedly picks a bright HDR colour and fades the surface's
// colour attribute to it, then holds until the period ends. It is driven by
// Tick, so Disable takes effect between any two ticks and leaves the surface at
// the last colour written.
type ColorCycle struct {
	cfg     CycleConfig
	surface Surface
	rng     *rand.Rand

	state   CycleState
	phase   cyclePhase
	current Color
	start   Color
	target  Color
	elapsed float64 // Seconds into the transition.
	hold    float64 // Seconds of hold remaining.
}

// NewColorCycle creates an idle cycle. The hold time Interval-Transition must not
// be negative.
func NewColorCycle(surface Surface, cfg CycleConfig, rng *rand.Rand) (*ColorCycle, error) {
	if cfg.Transition <= 0 {
		return nil, fmt.Errorf("transition duration must be positive, got %s", cfg.Transition)
	}
	if cfg.Interval < cfg.Transition {
		return nil, fmt.Errorf("change interval %s shorter than transition %s", cfg.Interval, cfg.Transition)
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15))
	}
	return &ColorCycle{cfg: cfg, surface: surface, rng: rng}, nil
}

// Name identifies the cycle as a frame stage.
func (c *ColorCycle) Name() string { return "color" }

func (c *ColorCycle) State() CycleState { return c.state }
func (c *ColorCycle) Current() Color    { return c.current }
func (c *ColorCycle) Target() Color     { return c.target }

// Enable starts cycling from the surface's present colour. No-op while cycling.
func (c *ColorCycle) Enable() {
	if c.state == Cycling {
		return
	}
	if c.surface == nil {
		colorLog.Errorf("no target surface assigned, colour updates are skipped")
	}
	c.capture()
	c.state = Cycling
	c.beginTransition()
}

// Disable stops cycling. The surface keeps whatever colour it last reached.
func (c *ColorCycle) Disable() {
	c.state = Idle
}

// SetSurface switches the controlled surface and re-reads the current colour from
// it. A running cycle keeps its target and timing.
func (c *ColorCycle) SetSurface(s Surface) {
	c.surface = s
	if s != nil {
		c.capture()
	}
}

// Tick advances the cycle by dt seconds.
func (c *ColorCycle) Tick(dt float64) {
	if c.state != Cycling {
		return
	}

	switch c.phase {
	case phaseTransition:
		c.stepTransition(dt)
	case phaseHold:
		c.hold -= dt
		if c.hold <= cycleEpsilon {
			c.beginTransition()
			c.stepTransition(dt)
		}
	}
}

func (c *ColorCycle) stepTransition(dt float64) {
	dur := c.cfg.Transition.Seconds()
	c.elapsed += dt
	if c.elapsed >= dur-cycleEpsilon {
		c.current = c.target
		c.phase = phaseHold
		c.hold = (c.cfg.Interval - c.cfg.Transition).Seconds()
	} else {
		c.current = Lerp(c.start, c.target, c.elapsed/dur)
	}
	c.apply()
}

func (c *ColorCycle) beginTransition() {
	c.target = BrightHDR(c.rng)
	c.start = c.current
	c.elapsed = 0
	c.phase = phaseTransition
}

func (c *ColorCycle) capture() {
	if c.surface == nil {
		return
	}
	col, ok := c.surface.Color(c.cfg.Property)
	if !ok {
		colorLog.Warnf("surface has no %q attribute, starting from black", c.cfg.Property)
	}
	c.current = col
}

func (c *ColorCycle) apply() {
	if c.surface == nil {
		return
	}
	c.surface.SetColor(c.cfg.Property, c.current)
}
