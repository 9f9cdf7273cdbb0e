// SPDX-License-Identifier: MIT
package pipeline

import (
	"fmt"
	"time"

	"ringvis/internal/keys"
	"ringvis/internal/spectrum"
	"ringvis/internal/visual"
)

// Frame is the published result of one tick.
type Frame struct {
	Seq     uint64          `json:"seq"`
	Time    time.Time       `json:"time"`
	Active  int             `json:"active"` // Sources playing during the tick.
	Beat    bool            `json:"beat"`   // Spectrum energy jumped this tick.
	Heights []float32       `json:"heights"`
	Color   visual.Color    `json:"color"`
	Hex     string          `json:"hex"`
	Bands   []spectrum.Band `json:"bands"`
	Lit     []int           `json:"lit"`              // Held MIDI notes.
	Events  []keys.Event    `json:"events,omitempty"` // Key events raised during the tick.
}

// copyInto deep-copies f into dst, reusing dst's slices.
func (f *Frame) copyInto(dst *Frame) {
	dst.Seq = f.Seq
	dst.Time = f.Time
	dst.Active = f.Active
	dst.Beat = f.Beat
	dst.Heights = append(dst.Heights[:0], f.Heights...)
	dst.Color = f.Color
	dst.Hex = f.Hex
	dst.Bands = append(dst.Bands[:0], f.Bands...)
	dst.Lit = append(dst.Lit[:0], f.Lit...)
	dst.Events = append(dst.Events[:0], f.Events...)
}

// Summary describes the frame in one log line.
func (f Frame) Summary() string {
	var peak float32
	for _, h := range f.Heights {
		peak = max(peak, h)
	}
	beat := ""
	if f.Beat {
		beat = ", beat"
	}
	return fmt.Sprintf("frame %d: %d active, peak %.2f, colour %s, %d lit, %d events%s",
		f.Seq, f.Active, peak, f.Hex, len(f.Lit), len(f.Events), beat)
}
