// SPDX-License-Identifier: MIT
package keys

import (
	"fmt"
	"math"
	"time"

	"ringvis/internal/spectrum"
)

const (
	// LowestNote is A0.
	LowestNote = 21
	// HighestNote is C8.
	HighestNote = 108
	// NumKeys on a full keyboard.
	NumKeys = HighestNote - LowestNote + 1
)

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// IsWhite reports whether a MIDI note is a white key.
func IsWhite(note int) bool {
	switch note % 12 {
	case 1, 3, 6, 8, 10:
		return false
	default:
		return true
	}
}

// NoteName returns scientific pitch notation, e.g. 60 -> "C4".
func NoteName(note int) string {
	return fmt.Sprintf("%s%d", noteNames[note%12], note/12-1)
}

// Notes returns every MIDI note of the keyboard in ascending order.
func Notes() []int {
	notes := make([]int, NumKeys)
	for i := range notes {
		notes[i] = LowestNote + i
	}
	return notes
}

// KeyboardConfig configures a Keyboard.
type KeyboardConfig struct {
	BaseVolume float64
	FadeOut    time.Duration
	TapHold    time.Duration
	// SelfClocked advances playing voices on every tick. Set it when no audio
	// device pulls samples, so clips still progress and end.
	SelfClocked bool
}

// Keyboard is the full 88-key instrument and a frame stage.
type Keyboard struct {
	cfg    KeyboardConfig
	keys   []*Key
	voices []*Voice
	events []Event
}

// NewKeyboard builds all keys. clips maps MIDI notes to samples; notes without a
// clip stay silent but still light up.
func NewKeyboard(cfg KeyboardConfig, clips map[int]*Clip) *Keyboard {
	kb := &Keyboard{
		cfg:    cfg,
		keys:   make([]*Key, NumKeys),
		voices: make([]*Voice, NumKeys),
		events: make([]Event, 0, 16),
	}
	for i := range kb.keys {
		note := LowestNote + i
		v := NewVoice(clips[note], cfg.BaseVolume)
		kb.voices[i] = v
		kb.keys[i] = &Key{
			Note:       note,
			Index:      i,
			voice:      v,
			baseVolume: cfg.BaseVolume,
			fadeOut:    cfg.FadeOut.Seconds(),
			emit:       kb.record,
		}
	}
	return kb
}

// Name identifies the keyboard as a frame stage.
func (kb *Keyboard) Name() string { return "keys" }

func (kb *Keyboard) Keys() []*Key { return kb.keys }

// Key looks up a key by MIDI note.
func (kb *Keyboard) Key(note int) (*Key, error) {
	if note < LowestNote || note > HighestNote {
		return nil, fmt.Errorf("note %d outside keyboard range [%d, %d]", note, LowestNote, HighestNote)
	}
	return kb.keys[note-LowestNote], nil
}

func (kb *Keyboard) Press(note int) error {
	k, err := kb.Key(note)
	if err != nil {
		return err
	}
	k.Press()
	return nil
}

func (kb *Keyboard) Release(note int) error {
	k, err := kb.Key(note)
	if err != nil {
		return err
	}
	k.Release()
	return nil
}

// Tap presses note and releases it after the configured hold time.
func (kb *Keyboard) Tap(note int) error {
	k, err := kb.Key(note)
	if err != nil {
		return err
	}
	k.Tap(kb.cfg.TapHold.Seconds())
	return nil
}

// Tick advances every key. Self-clocked keyboards also advance their voices.
func (kb *Keyboard) Tick(dt float64) {
	for i, k := range kb.keys {
		if kb.cfg.SelfClocked {
			v := kb.voices[i]
			if clip := v.Clip(); clip != nil {
				v.Advance(int(math.Round(dt * float64(clip.SampleRate))))
			}
		}
		k.Tick(dt)
	}
}

// Sources exposes every voice as a spectrum source.
func (kb *Keyboard) Sources() []spectrum.Source {
	out := make([]spectrum.Source, len(kb.voices))
	for i, v := range kb.voices {
		out[i] = v
	}
	return out
}

// Mix overwrites the interleaved buffer out with the sum of all playing voices.
// It is safe to call from the audio callback.
func (kb *Keyboard) Mix(out []float32, channels int) {
	clear(out)
	for _, v := range kb.voices {
		v.Read(out, channels)
	}
}

// Lit appends the notes currently held down to dst.
func (kb *Keyboard) Lit(dst []int) []int {
	for _, k := range kb.keys {
		if k.Lit() {
			dst = append(dst, k.Note)
		}
	}
	return dst
}

// DrainEvents appends the events since the last drain to dst and forgets them.
func (kb *Keyboard) DrainEvents(dst []Event) []Event {
	dst = append(dst, kb.events...)
	kb.events = kb.events[:0]
	return dst
}

func (kb *Keyboard) record(e Event) {
	logger.Debugf("%s %s", NoteName(e.Note), e.Kind)
	kb.events = append(kb.events, e)
}
