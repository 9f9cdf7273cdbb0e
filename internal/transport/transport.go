// SPDX-License-Identifier: MIT
/*
Package transport delivers published frames to clients outside the process.
*/
package transport

import applog "ringvis/internal/log"

var logger = applog.For("transport")

// Transport defines a generic interface for sending frames or events.
// Implementations must be safe for concurrent use and must not block the
// caller, which is the frame loop.
type Transport interface {
	Send(data any) error
	Close() error
}

// Command is a client request received over a transport.
type Command struct {
	Action string `json:"action"` // "press", "release", "tap", "color_on", "color_off".
	Note   int    `json:"note,omitempty"`
}

// CommandHandler is called for every command a client sends. It runs on the
// transport's goroutine.
type CommandHandler func(Command)
