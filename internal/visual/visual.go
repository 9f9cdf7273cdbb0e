// SPDX-License-Identifier: MIT
/*
Package visual drives the visible side of the ring: bar heights that follow
the aggregated spectrum, and an HDR colour that cycles on a fixed period.

Both drivers are frame stages. They only touch their own state and the
collaborators handed to their constructors, and must run on the frame loop
after the spectrum aggregator.
*/
package visual

import applog "ringvis/internal/log"

// Vec3 is a 3D scale vector.
type Vec3 struct {
	X, Y, Z float64
}

// Element is one scalable object of the ring.
type Element interface {
	Scale() Vec3
	SetScale(Vec3)
}

// Bar is the in-memory Element used by the ring.
type Bar struct {
	scale Vec3
}

// NewBars returns count bars with unit scale.
func NewBars(count int) []*Bar {
	bars := make([]*Bar, count)
	for i := range bars {
		bars[i] = &Bar{scale: Vec3{X: 1, Y: 0, Z: 1}}
	}
	return bars
}

// Elements adapts a bar slice to the Element interface.
func Elements(bars []*Bar) []Element {
	out := make([]Element, len(bars))
	for i, b := range bars {
		out[i] = b
	}
	return out
}

func (b *Bar) Scale() Vec3     { return b.scale }
func (b *Bar) SetScale(v Vec3) { b.scale = v }

// Height returns the vertical scale.
func (b *Bar) Height() float64 { return b.scale.Y }

var (
	barsLog  = applog.For("bars")
	colorLog = applog.For("color")
)
