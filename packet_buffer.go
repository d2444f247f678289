package astidvb

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/asticode/go-astikit"
)

var (
	errNoData               = errors.New("astidvb: no data")
	errPacketSizeUndetected = errors.New("astidvb: packet size can't be detected")
)

// packetError is returned when bytes are not a valid packet, the next packet can still be fetched
type packetError struct {
	err error
}

func (e packetError) Error() string { return e.err.Error() }

func (e packetError) Unwrap() error { return e.err }

// packetBuffer splits a reader into packets
// Bytes that have been read are never lost: reads interrupted by a deadline resume where they stopped
type packetBuffer struct {
	b          []byte // Unconsumed bytes
	buf        []byte
	packetSize int
	r          io.Reader
	used       int // Size of the packet returned by the previous call to next
}

// newPacketBuffer creates a new packet buffer
// A 0 packet size is detected out of the first bytes
func newPacketBuffer(r io.Reader, packetSize int) *packetBuffer {
	pb := &packetBuffer{
		buf:        make([]byte, 2*packetSizeMax),
		packetSize: packetSize,
		r:          r,
	}
	pb.b = pb.buf[:0]
	return pb
}

// fill reads until at least n bytes are available
func (pb *packetBuffer) fill(n int) (err error) {
	for len(pb.b) < n {
		var c int
		c, err = pb.r.Read(pb.buf[len(pb.b):n])
		pb.b = pb.buf[:len(pb.b)+c]
		if err != nil {
			if len(pb.b) >= n {
				err = nil
			}
			return
		}
		if c == 0 {
			return errNoData
		}
	}
	return
}

// consume drops the first n bytes
func (pb *packetBuffer) consume(n int) {
	if n > len(pb.b) {
		n = len(pb.b)
	}
	pb.b = pb.buf[:copy(pb.buf, pb.b[n:])]
}

// autoDetectPacketSize updates the packet size based on the position of the second sync byte
// The first packet is kept
func (pb *packetBuffer) autoDetectPacketSize() (err error) {
	// Read first bytes
	const l = packetSizeMax + packetTimecodePrefixSize + 1
	if err = pb.fill(l); err != nil && !(errors.Is(err, io.EOF) && len(pb.b) >= MpegTsPacketSize) {
		return
	}
	err = nil

	// Look for sync bytes
	has := func(idx int) bool { return idx < len(pb.b) && pb.b[idx] == syncByte }
	switch {
	case has(0) && has(MpegTsPacketSize):
		pb.packetSize = MpegTsPacketSize
	case has(packetTimecodePrefixSize) && has(packetTimecodePrefixSize+m2tsPacketSize):
		pb.packetSize = m2tsPacketSize
	case has(0) && has(packetSizeWithParity):
		pb.packetSize = packetSizeWithParity
	case has(0) && len(pb.b) < l:
		// A single packet
		pb.packetSize = MpegTsPacketSize
	case has(0):
		err = fmt.Errorf("astidvb: only one sync byte detected in first %d bytes: %w", l, errPacketSizeUndetected)
	default:
		err = ErrPacketMustStartWithASyncByte
	}
	return
}

// next fetches the next packet
// Its payload is only valid until the next call
func (pb *packetBuffer) next() (p *Packet, err error) {
	// Previous packet is not needed anymore
	pb.consume(pb.used)
	pb.used = 0

	// Packet size is not known yet
	if pb.packetSize == 0 {
		if err = pb.autoDetectPacketSize(); err != nil {
			if errors.Is(err, ErrPacketMustStartWithASyncByte) || errors.Is(err, errPacketSizeUndetected) {
				// Detection starts over at the next sync byte
				pb.resync(0)
				err = packetError{err: fmt.Errorf("astidvb: auto detecting packet size failed: %w", err)}
			}
			return
		}
	}

	// Read
	if err = pb.fill(pb.packetSize); err != nil {
		if errors.Is(err, io.EOF) && len(pb.b) > 0 {
			// Truncated last packet
			pb.consume(len(pb.b))
		}
		return
	}

	// M2TS packets start with a timecode
	start := 0
	if pb.packetSize == m2tsPacketSize {
		start = packetTimecodePrefixSize
	}

	// Parse packet
	bs := pb.b[start : start+MpegTsPacketSize]
	if p, err = parsePacket(astikit.NewBytesIterator(bs)); err != nil {
		if errors.Is(err, ErrPacketMustStartWithASyncByte) {
			pb.resync(start)
		} else {
			pb.consume(pb.packetSize)
		}
		err = packetError{err: fmt.Errorf("astidvb: parsing packet failed: %w", err)}
		return
	}

	pb.used = pb.packetSize
	return
}

// resync drops bytes until the next sync byte
func (pb *packetBuffer) resync(start int) {
	idx := bytes.IndexByte(pb.b[start+1:], syncByte)
	if idx < 0 {
		pb.consume(len(pb.b))
		return
	}
	pb.consume(idx + 1)
}
