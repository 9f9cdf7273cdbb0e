// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

/*
UDP Packet Structure (BigEndian)

+-----------------------------------------------------------------------------+
| Field             | Data Type      | Size (Bytes) | Description             |
|-------------------|----------------|--------------|-------------------------|
| Sequence Number   | uint32         | 4            | Monotonically increasing|
| Timestamp         | int64          | 8            | Nanoseconds since epoch |
| Height Count      | uint16         | 2            | Number of bars (N)      |
| Heights           | []float32      | N * 4        | Bar heights             |
| Color             | [4]float32     | 16           | R, G, B, HDR intensity  |
+-----------------------------------------------------------------------------+
*/

const (
	headerSize = 4 + 8 + 2
	colorSize  = 4 * 4
	// MaxHeights is the largest bar count a packet can carry.
	MaxHeights = math.MaxUint16
)

// Packet is the decoded form of one datagram.
type Packet struct {
	Seq       uint32
	Timestamp int64
	Heights   []float32
	Color     [4]float32
}

// PacketSize returns the encoded size for n heights.
func PacketSize(n int) int { return headerSize + n*4 + colorSize }

// Encode appends the packet to buf.
func (p *Packet) Encode(buf *bytes.Buffer) error {
	if len(p.Heights) > MaxHeights {
		return fmt.Errorf("%d heights exceed the packet limit %d", len(p.Heights), MaxHeights)
	}
	buf.Grow(PacketSize(len(p.Heights)))

	var scratch [8]byte
	binary.BigEndian.PutUint32(scratch[:4], p.Seq)
	buf.Write(scratch[:4])
	binary.BigEndian.PutUint64(scratch[:], uint64(p.Timestamp))
	buf.Write(scratch[:])
	binary.BigEndian.PutUint16(scratch[:2], uint16(len(p.Heights)))
	buf.Write(scratch[:2])
	for _, h := range p.Heights {
		binary.BigEndian.PutUint32(scratch[:4], math.Float32bits(h))
		buf.Write(scratch[:4])
	}
	for _, c := range p.Color {
		binary.BigEndian.PutUint32(scratch[:4], math.Float32bits(c))
		buf.Write(scratch[:4])
	}
	return nil
}

// Decode parses a datagram produced by Encode. Heights reuses p.Heights.
func (p *Packet) Decode(data []byte) error {
	if len(data) < headerSize {
		return errors.New("packet shorter than header")
	}
	p.Seq = binary.BigEndian.Uint32(data[0:4])
	p.Timestamp = int64(binary.BigEndian.Uint64(data[4:12]))
	n := int(binary.BigEndian.Uint16(data[12:14]))
	if len(data) != PacketSize(n) {
		return fmt.Errorf("packet is %d bytes, want %d for %d heights", len(data), PacketSize(n), n)
	}

	p.Heights = p.Heights[:0]
	off := headerSize
	for range n {
		p.Heights = append(p.Heights, math.Float32frombits(binary.BigEndian.Uint32(data[off:])))
		off += 4
	}
	for i := range p.Color {
		p.Color[i] = math.Float32frombits(binary.BigEndian.Uint32(data[off:]))
		off += 4
	}
	return nil
}
