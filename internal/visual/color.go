// SPDX-License-Identifier: MIT
package visual

import (
	"math/rand/v2"
	"sync"

	"github.com/lucasb-eyer/go-colorful"
)

// Color is an HDR colour: normalized RGB plus an intensity multiplier in A that
// may exceed 1 for glow and bloom.
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
	A float64 `json:"a"` // Intensity.
}

// Lerp interpolates every channel, t clamped to [0, 1].
func Lerp(a, b Color, t float64) Color {
	t = max(0, min(1, t))
	return Color{
		R: a.R + (b.R-a.R)*t,
		G: a.G + (b.G-a.G)*t,
		B: a.B + (b.B-a.B)*t,
		A: a.A + (b.A-a.A)*t,
	}
}

// Hex renders the RGB part, ignoring intensity, for terminal and web clients.
func (c Color) Hex() string {
	return colorful.Color{R: c.R, G: c.G, B: c.B}.Clamped().Hex()
}

// BrightHDR draws a saturated, full-brightness colour with an intensity in [2, 3].
func BrightHDR(rng *rand.Rand) Color {
	hue := rng.Float64() * 360
	sat := 0.5 + 0.5*rng.Float64()
	c := colorful.Hsv(hue, sat, 1)
	return Color{R: c.R, G: c.G, B: c.B, A: 2 + rng.Float64()}
}

// Surface holds named colour attributes, e.g. a material's emission colour.
type Surface interface {
	Color(name string) (Color, bool)
	SetColor(name string, c Color)
}

// Material is a Surface safe for concurrent use: the frame loop writes it and
// renderers read it from their own goroutines.
type Material struct {
	mu     sync.RWMutex
	name   string
	colors map[string]Color
}

// NewMaterial creates an empty material.
func NewMaterial(name string) *Material {
	return &Material{name: name, colors: make(map[string]Color)}
}

func (m *Material) Name() string { return m.name }

func (m *Material) Color(name string) (Color, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.colors[name]
	return c, ok
}

func (m *Material) SetColor(name string, c Color) {
	m.mu.Lock()
	m.colors[name] = c
	m.mu.Unlock()
}
