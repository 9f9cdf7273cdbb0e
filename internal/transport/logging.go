// SPDX-License-Identifier: MIT
package transport

import (
	"sync/atomic"
)

// Summarizer is implemented by payloads that can describe themselves in one
// log line.
type Summarizer interface {
	Summary() string
}

// LoggingTransport implements the Transport interface by logging every n-th
// payload at debug level. It is the fallback when no network transport is
// enabled.
type LoggingTransport struct {
	every uint64
	count atomic.Uint64
}

// NewLoggingTransport logs one payload out of every n; n <= 0 logs all.
func NewLoggingTransport(n int) *LoggingTransport {
	if n <= 0 {
		n = 1
	}
	logger.Infof("using logging transport, 1 in %d frames", n)
	return &LoggingTransport{every: uint64(n)}
}

// Send logs data if it is due. It never fails.
func (lt *LoggingTransport) Send(data any) error {
	c := lt.count.Add(1)
	if (c-1)%lt.every != 0 {
		return nil
	}
	if s, ok := data.(Summarizer); ok {
		logger.Debugf("%s", s.Summary())
		return nil
	}
	logger.Debugf("payload %T", data)
	return nil
}

// Sent returns how many payloads were offered.
func (lt *LoggingTransport) Sent() uint64 { return lt.count.Load() }

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	logger.Debugf("logging transport closed after %d payloads", lt.Sent())
	return nil
}

// Ensure LoggingTransport satisfies the interface at compile time.
var _ Transport = (*LoggingTransport)(nil)
