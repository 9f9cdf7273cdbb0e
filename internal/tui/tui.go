// SPDX-License-Identifier: MIT
/*
Package tui holds the terminal front ends: a live view of the bar ring with a
playable octave, and an interactive audio device picker.
*/
package tui

import applog "ringvis/internal/log"

var logger = applog.For("tui")
