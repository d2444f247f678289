package astidvb

// sectionAccumulator rebuilds the sections carried by the packets of a single PID
type sectionAccumulator struct {
	buf     []byte // Partial section
	cc      uint8
	hasCC   bool
	started bool // buf starts at the beginning of a section
}

// add adds a packet and appends the sections it completes to out
func (a *sectionAccumulator) add(p *Packet, out []byte) []byte {
	// Duplicate packets are sent to increase resilience
	if isSameAsPrevious(a, p) {
		return out
	}

	// Partial section can't be completed after a discontinuity
	if hasDiscontinuity(a, p) {
		a.reset()
	}
	a.cc = p.Header.ContinuityCounter
	a.hasCC = true

	// A section starts in this packet
	payload := p.Payload
	if p.Header.PayloadUnitStartIndicator {
		// Pointer field
		if len(payload) == 0 || int(payload[0]) >= len(payload) {
			a.reset()
			return out
		}
		pointer := int(payload[0])
		payload = payload[1:]

		// Bytes before the new section end the current one
		if a.started {
			a.buf = append(a.buf, payload[:pointer]...)
			out = a.flush(out)
		}
		a.reset()
		a.started = true
		payload = payload[pointer:]
	} else if !a.started {
		// Waiting for the start of a section
		return out
	}

	// Append
	a.buf = append(a.buf, payload...)
	return a.flush(out)
}

// flush appends the complete sections to out
func (a *sectionAccumulator) flush(out []byte) []byte {
	for len(a.buf) >= sectionHeaderSize {
		// Stuffing ends the sections of this packet
		if a.buf[0] == uint8(PSITableIDNull) {
			a.reset()
			return out
		}

		// Section is not complete yet
		l := sectionLength(a.buf)
		if len(a.buf) < l {
			break
		}

		// Move section
		out = append(out, a.buf[:l]...)
		a.buf = a.buf[:copy(a.buf, a.buf[l:])]
	}
	return out
}

func (a *sectionAccumulator) reset() {
	a.buf = a.buf[:0]
	a.started = false
}

// packetPool holds a section accumulator for each PID carrying sections
type packetPool struct {
	// We use map[uint32] instead map[uint16] as go runtime provide optimized hash functions for (u)int32/64 keys
	b    map[uint32]*sectionAccumulator // Indexed by PID
	pids map[uint32]bool
}

// newPacketPool creates a new packet pool accepting a set of PIDs
func newPacketPool(pids []uint16) *packetPool {
	p := &packetPool{
		b:    make(map[uint32]*sectionAccumulator),
		pids: make(map[uint32]bool),
	}
	for _, pid := range pids {
		p.pids[uint32(pid)] = true
	}
	return p
}

// add adds a packet to the pool and appends the sections it completes to out
func (b *packetPool) add(p *Packet, out []byte) []byte {
	// Throw away packet if error indicator
	if p.Header.TransportErrorIndicator {
		return out
	}

	// Throw away packets that don't carry sections
	if !p.Header.HasPayload || !b.pids[uint32(p.Header.PID)] {
		return out
	}

	// Make sure accumulator exists
	acc, ok := b.b[uint32(p.Header.PID)]
	if !ok {
		acc = &sectionAccumulator{}
		b.b[uint32(p.Header.PID)] = acc
	}

	// Add to the accumulator
	return acc.add(p, out)
}

// hasDiscontinuity checks whether a packet is discontinuous with the previous packet of its PID
func hasDiscontinuity(a *sectionAccumulator, p *Packet) bool {
	return (p.Header.HasAdaptationField && p.AdaptationField.DiscontinuityIndicator) ||
		(a.hasCC && p.Header.ContinuityCounter != (a.cc+1)%16)
}

// isSameAsPrevious checks whether a packet is the same as the previous packet of its PID
func isSameAsPrevious(a *sectionAccumulator, p *Packet) bool {
	return a.hasCC && p.Header.ContinuityCounter == a.cc
}
