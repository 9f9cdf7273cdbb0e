// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"errors"
	"sync"
	"time"

	applog "ringvis/internal/log"
	"ringvis/internal/pipeline"
)

var logger = applog.For("udp")

// FrameSource provides the latest published frame.
type FrameSource interface {
	FrameInto(dst *pipeline.Frame)
}

// PacketSender writes one datagram.
type PacketSender interface {
	Send(data []byte) error
}

// UDPPublisher periodically fetches the latest frame, packs bar heights and the
// ring colour into a binary packet, and sends it. It runs in a separate goroutine
// managed by Start and Stop. Frames that did not change since the last packet
// are not resent.
type UDPPublisher struct {
	sender   PacketSender
	frames   FrameSource
	interval time.Duration

	ticker   *time.Ticker   // Ticker that triggers packet sending.
	doneChan chan struct{}  // Channel used to signal the publisher goroutine to stop.
	stopOnce sync.Once      // Ensures the stop logic runs only once per Start/Stop cycle.
	wg       sync.WaitGroup // Waits for the publisher goroutine to finish during Stop.
	mu       sync.Mutex     // Protects access to ticker and doneChan during Start/Stop.

	sequenceNum uint32 // Monotonically increasing sequence number for packets.
	lastFrame   uint64 // Seq of the frame last sent.

	// Pre-allocated buffers reused by every packet.
	frame        pipeline.Frame
	packet       Packet
	packetBuffer *bytes.Buffer
}

// NewUDPPublisher creates a publisher. If the interval is invalid (<= 0) it
// defaults to 16ms (~60Hz).
func NewUDPPublisher(interval time.Duration, sender PacketSender, frames FrameSource) (*UDPPublisher, error) {
	if sender == nil {
		return nil, errors.New("UDP sender cannot be nil")
	}
	if frames == nil {
		return nil, errors.New("frame source cannot be nil")
	}
	if interval <= 0 {
		interval = 16 * time.Millisecond
		logger.Warnf("invalid interval provided, defaulting to %s", interval)
	}
	logger.Infof("publisher interval %s", interval)

	return &UDPPublisher{
		sender:       sender,
		frames:       frames,
		interval:     interval,
		packetBuffer: new(bytes.Buffer),
	}, nil
}

// Start begins the periodic publishing process. Calling Start on a running
// publisher is a no-op.
func (p *UDPPublisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		logger.Warnf("Start called but already running")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	// Capture for the goroutine to avoid racing on p.ticker/p.doneChan.
	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case <-ticker.C:
				p.publishOnce()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the publisher goroutine to terminate and waits for it to exit.
// It is safe to call Stop multiple times.
func (p *UDPPublisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}
	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	logger.Debugf("publisher stopped after %d packets", p.sequenceNum)
	return nil
}

// publishOnce sends the latest frame if it is new. It reports whether a packet
// went out.
func (p *UDPPublisher) publishOnce() bool {
	p.frames.FrameInto(&p.frame)
	if p.frame.Seq == 0 || p.frame.Seq == p.lastFrame {
		return false
	}
	p.lastFrame = p.frame.Seq

	p.sequenceNum++
	p.packet.Seq = p.sequenceNum
	p.packet.Timestamp = p.frame.Time.UnixNano()
	p.packet.Heights = p.frame.Heights
	c := p.frame.Color
	p.packet.Color = [4]float32{float32(c.R), float32(c.G), float32(c.B), float32(c.A)}

	p.packetBuffer.Reset()
	if err := p.packet.Encode(p.packetBuffer); err != nil {
		logger.Errorf("error packing frame %d: %v", p.frame.Seq, err)
		return false
	}

	if err := p.sender.Send(p.packetBuffer.Bytes()); err != nil {
		// The sender already logged the error.
		return false
	}
	logger.Debugf("sent packet %d (%d bytes)", p.sequenceNum, p.packetBuffer.Len())
	return true
}

// Close implements io.Closer by stopping the publisher.
func (p *UDPPublisher) Close() error {
	return p.Stop()
}

var _ interface{ Close() error } = (*UDPPublisher)(nil)
