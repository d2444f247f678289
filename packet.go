package astidvb

import (
	"errors"
	"fmt"

	"github.com/asticode/go-astikit"
)

// Packet sizes
const (
	MpegTsPacketSize         = 188
	m2tsPacketSize           = 192 // 4 bytes timecode prefix
	packetSizeWithParity     = 204 // 16 bytes Reed-Solomon suffix
	packetSizeMax            = packetSizeWithParity
	packetTimecodePrefixSize = m2tsPacketSize - MpegTsPacketSize
	syncByte                 = 0x47
)

// Scrambling Controls
const (
	ScramblingControlNotScrambled         = 0
	ScramblingControlReservedForFutureUse = 1
	ScramblingControlScrambledWithEvenKey = 2
	ScramblingControlScrambledWithOddKey  = 3
)

// Errors
var (
	ErrPacketMustStartWithASyncByte = errors.New("astidvb: packet must start with a sync byte")
)

// Packet represents a transport stream packet
// https://en.wikipedia.org/wiki/MPEG_transport_stream
type Packet struct {
	AdaptationField *PacketAdaptationField
	Header          *PacketHeader
	Payload         []byte // This is only the payload content
}

// PacketHeader represents a packet header
type PacketHeader struct {
	ContinuityCounter          uint8 // Incremented for each packet of a PID carrying a payload, modulo 16
	HasAdaptationField         bool
	HasPayload                 bool
	PayloadUnitStartIndicator  bool // A section starts in this packet, the payload then begins with a pointer field
	PID                        uint16
	TransportErrorIndicator    bool // The packet is corrupt
	TransportPriority          bool
	TransportScramblingControl uint8
}

// PacketAdaptationField represents the part of an adaptation field sections care about
type PacketAdaptationField struct {
	DiscontinuityIndicator bool // Continuity counters restart at this packet
	Length                 int
	RandomAccessIndicator  bool
}

// parsePacket parses a 188 bytes packet
func parsePacket(i *astikit.BytesIterator) (p *Packet, err error) {
	// Get next byte
	var b byte
	if b, err = i.NextByte(); err != nil {
		err = fmt.Errorf("astidvb: fetching next byte failed: %w", err)
		return
	}

	// Packet must start with a sync byte
	if b != syncByte {
		err = ErrPacketMustStartWithASyncByte
		return
	}

	// Parse header
	p = &Packet{}
	offsetStart := i.Offset()
	if p.Header, err = parsePacketHeader(i); err != nil {
		err = fmt.Errorf("astidvb: parsing packet header failed: %w", err)
		return
	}

	// Parse adaptation field
	if p.Header.HasAdaptationField {
		if p.AdaptationField, err = parsePacketAdaptationField(i); err != nil {
			err = fmt.Errorf("astidvb: parsing packet adaptation field failed: %w", err)
			return
		}
	}

	// Build payload
	if p.Header.HasPayload {
		offset := payloadOffset(offsetStart, p.Header, p.AdaptationField)
		if offset > i.Len() {
			err = fmt.Errorf("astidvb: adaptation field length %d is invalid", p.AdaptationField.Length)
			return
		}
		i.Seek(offset)
		p.Payload = i.Dump()
	}
	return
}

// payloadOffset returns the payload offset
func payloadOffset(offsetStart int, h *PacketHeader, a *PacketAdaptationField) (offset int) {
	offset = offsetStart + 3
	if h.HasAdaptationField {
		offset += 1 + a.Length
	}
	return
}

// parsePacketHeader parses the packet header
func parsePacketHeader(i *astikit.BytesIterator) (h *PacketHeader, err error) {
	// Get next bytes
	var bs []byte
	if bs, err = i.NextBytes(3); err != nil {
		err = fmt.Errorf("astidvb: fetching next bytes failed: %w", err)
		return
	}

	// Create header
	h = &PacketHeader{
		ContinuityCounter:          bs[2] & 0xf,
		HasAdaptationField:         bs[2]&0x20 > 0,
		HasPayload:                 bs[2]&0x10 > 0,
		PayloadUnitStartIndicator:  bs[0]&0x40 > 0,
		PID:                        uint16(bs[0]&0x1f)<<8 | uint16(bs[1]),
		TransportErrorIndicator:    bs[0]&0x80 > 0,
		TransportPriority:          bs[0]&0x20 > 0,
		TransportScramblingControl: bs[2] >> 6 & 0x3,
	}
	return
}

// parsePacketAdaptationField parses the packet adaptation field
func parsePacketAdaptationField(i *astikit.BytesIterator) (a *PacketAdaptationField, err error) {
	// Get next byte
	var b byte
	if b, err = i.NextByte(); err != nil {
		err = fmt.Errorf("astidvb: fetching next byte failed: %w", err)
		return
	}

	// Length
	a = &PacketAdaptationField{Length: int(b)}

	// Flags
	if a.Length > 0 {
		if b, err = i.NextByte(); err != nil {
			err = fmt.Errorf("astidvb: fetching next byte failed: %w", err)
			return
		}
		a.DiscontinuityIndicator = b&0x80 > 0
		a.RandomAccessIndicator = b&0x40 > 0
	}
	return
}
