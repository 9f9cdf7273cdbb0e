// SPDX-License-Identifier: MIT
package keys

// State is a key's position in its press/release cycle.
type State int

const (
	Idle State = iota
	Pressed
	FadingOut
)

func (s State) String() string {
	switch s {
	case Pressed:
		return "pressed"
	case FadingOut:
		return "fading"
	default:
		return "idle"
	}
}

// EventKind classifies key events.
type EventKind int

const (
	// EventPressed: the key lights up and emits particles.
	EventPressed EventKind = iota
	// EventReleased: the key returns to its default look.
	EventReleased
	// EventSilenced: the voice finished fading out.
	EventSilenced
)

func (k EventKind) String() string {
	switch k {
	case EventPressed:
		return "pressed"
	case EventReleased:
		return "released"
	case EventSilenced:
		return "silenced"
	default:
		return "unknown"
	}
}

func (k EventKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Event reports a key state change to the visual side.
type Event struct {
	Note  int       `json:"note"`
	Index int       `json:"index"`
	Kind  EventKind `json:"kind"`
}

// Key is one piano key: a voice plus the state machine deciding when it plays,
// fades and stops. Keys are driven from the frame loop only.
type Key struct {
	Note  int
	Index int // Position on the keyboard, 0 for the lowest key.

	voice      *Voice
	state      State
	baseVolume float64
	fadeOut    float64 // Seconds.
	fadeTimer  float64
	tapTimer   float64
	tapping    bool

	emit func(Event)
}

func (k *Key) State() State    { return k.state }
func (k *Key) Voice() *Voice   { return k.voice }
func (k *Key) Lit() bool       { return k.state == Pressed }
func (k *Key) IsWhite() bool   { return IsWhite(k.Note) }
func (k *Key) HasClip() bool   { return k.voice.Clip().Frames() > 0 }
func (k *Key) Name() string    { return NoteName(k.Note) }
func (k *Key) Fading() bool    { return k.state == FadingOut }
func (k *Key) Tapping() bool   { return k.tapping }
func (k *Key) Volume() float64 { return k.voice.Volume() }

// Press starts the key from Idle or FadingOut: the clip restarts at base volume
// and any fade is cancelled. Pressing a held key does nothing.
func (k *Key) Press() {
	if k.state == Pressed {
		return
	}
	k.tapping = false
	k.voice.SetVolume(k.baseVolume)
	k.voice.Play()
	k.state = Pressed
	k.fire(EventPressed)
}

// Release lets go of a held key. A voice still sounding fades out, otherwise the
// key returns to Idle immediately.
func (k *Key) Release() {
	if k.state != Pressed {
		return
	}
	k.tapping = false
	k.fire(EventReleased)
	if k.voice.Playing() {
		k.state = FadingOut
		k.fadeTimer = k.fadeOut
		return
	}
	k.state = Idle
}

// Tap presses the key and releases it after hold seconds of ticks. Tapping a
// held key does nothing.
func (k *Key) Tap(hold float64) {
	if k.state == Pressed {
		return
	}
	k.Press()
	k.tapping = true
	k.tapTimer = hold
}

// Tick advances the tap timer and the fade-out by dt seconds.
func (k *Key) Tick(dt float64) {
	if k.tapping && k.state == Pressed {
		k.tapTimer -= dt
		if k.tapTimer <= 0 {
			k.Release()
		}
		return
	}

	if k.state != FadingOut {
		return
	}
	k.fadeTimer -= dt
	if k.fadeTimer > 0 && k.fadeOut > 0 {
		k.voice.SetVolume(FadeVolume(k.baseVolume, k.fadeTimer, k.fadeOut))
		return
	}
	k.voice.Stop()
	k.voice.SetVolume(k.baseVolume)
	k.state = Idle
	k.fire(EventSilenced)
}

func (k *Key) fire(kind EventKind) {
	if k.emit != nil {
		k.emit(Event{Note: k.Note, Index: k.Index, Kind: kind})
	}
}

// FadeVolume is the linear fade from base to silence as timer runs down from
// fadeOut to zero.
func FadeVolume(base, timer, fadeOut float64) float64 {
	if fadeOut <= 0 {
		return 0
	}
	return base * max(0, min(1, timer/fadeOut))
}
