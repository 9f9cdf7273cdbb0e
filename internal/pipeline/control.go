// SPDX-License-Identifier: MIT
package pipeline

import (
	"errors"
	"fmt"
)

// Actions accepted by Control.
const (
	ActionPress    = "press"
	ActionRelease  = "release"
	ActionTap      = "tap"
	ActionColorOn  = "color_on"
	ActionColorOff = "color_off"
)

// ErrUnknownAction is returned by Control for actions it does not recognise.
var ErrUnknownAction = errors.New("unknown action")

// Control validates a request from outside the loop and queues it for the next
// tick. Note is only read by the key actions.
func (p *Pipeline) Control(action string, note int) error {
	switch action {
	case ActionPress, ActionRelease, ActionTap:
		if _, err := p.keyboard.Key(note); err != nil {
			return err
		}
	case ActionColorOn, ActionColorOff:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	p.loop.Post(func() {
		switch action {
		case ActionPress:
			p.keyboard.Press(note)
		case ActionRelease:
			p.keyboard.Release(note)
		case ActionTap:
			p.keyboard.Tap(note)
		case ActionColorOn:
			p.cycle.Enable()
		case ActionColorOff:
			p.cycle.Disable()
		}
	})
	return nil
}
