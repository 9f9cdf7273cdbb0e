// SPDX-License-Identifier: MIT
package visual

import (
	"errors"
	"fmt"
	"math"

	"ringvis/internal/config"
	"ringvis/internal/spectrum"
)

// MaxBarHeight caps every bar target.
const MaxBarHeight = 50.0

// BarDriver maps spectrum bin i to element i.
type BarDriver struct {
	spectrum spectrum.Reader
	elements []Element
	tracked  int
	speed    float64
}

// NewBarDriver binds elements to the spectrum. If their counts differ only the
// first min(len(elements), spectrum length) bins are driven and a warning is
// logged. A nil spectrum is logged as an error and leaves the driver inert.
func NewBarDriver(reader spectrum.Reader, elements []Element, speed float64) (*BarDriver, error) {
	if speed < config.MinSmoothingSpeed || speed > config.MaxSmoothingSpeed {
		return nil, fmt.Errorf("smoothing speed %.2f outside [%.0f, %.0f]",
			speed, config.MinSmoothingSpeed, config.MaxSmoothingSpeed)
	}
	if len(elements) == 0 {
		return nil, errors.New("bar driver needs at least one element")
	}

	d := &BarDriver{
		spectrum: reader,
		elements: elements,
		speed:    speed,
	}
	if reader == nil {
		barsLog.Errorf("no spectrum source assigned, bars stay idle")
		return d, nil
	}

	d.tracked = reader.Len()
	if len(elements) != d.tracked {
		barsLog.Warnf("element count mismatch: %d elements, spectrum length %d", len(elements), d.tracked)
		d.tracked = min(d.tracked, len(elements))
	}
	return d, nil
}

// Name identifies the driver as a frame stage.
func (d *BarDriver) Name() string { return "bars" }

// Tracked returns how many bins drive elements.
func (d *BarDriver) Tracked() int { return d.tracked }

// Tick moves every tracked element's height toward its target.
func (d *BarDriver) Tick(dt float64) {
	if d.spectrum == nil {
		return
	}
	samples := d.spectrum.Samples()
	t := SmoothingFactor(d.speed, dt)
	for i := 0; i < d.tracked && i < len(samples); i++ {
		el := d.elements[i]
		scale := el.Scale()
		scale.Y += (TargetHeight(i, samples[i]) - scale.Y) * t
		el.SetScale(scale)
	}
}

// TargetHeight amplifies bin i quadratically with its index, since higher bins
// carry smaller raw magnitudes, and clamps the result to [0, MaxBarHeight].
func TargetHeight(i int, s float64) float64 {
	fi := float64(i)
	return math.Max(0, math.Min(MaxBarHeight, s*(50+fi*fi*0.5)))
}

// SmoothingFactor is the fraction of the remaining distance covered in dt
// seconds. It is frame-rate independent and stays in [0, 1), so bars never
// overshoot their target.
func SmoothingFactor(speed, dt float64) float64 {
	if dt <= 0 {
		return 0
	}
	return 1 - math.Exp(-speed*dt)
}

// Smooth advances current toward target by one step of dt seconds.
func Smooth(current, target, speed, dt float64) float64 {
	return current + (target-current)*SmoothingFactor(speed, dt)
}
