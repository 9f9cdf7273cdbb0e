// SPDX-License-Identifier: MIT
/*
Package keys implements the piano: 88 keys, each with a voice playing a WAV
clip and a small state machine (Idle, Pressed, FadingOut) that handles presses,
timed taps and the release fade. Every voice is a spectrum source, so played
notes feed the visualizer.
*/
package keys

import applog "ringvis/internal/log"

var logger = applog.For("keys")
