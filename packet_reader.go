package astidvb

import (
	"errors"
	"io"
	"os"
	"time"

	"github.com/asticode/go-astikit"
)

// DefaultPIDs are the PIDs carrying the tables decoded by the decoder
var DefaultPIDs = []uint16{PIDPAT, PIDNIT, PIDSDTBAT, PIDEIT, PIDTDTTOT}

// PacketReader extracts the sections of a transport stream
// It turns a captured transport stream into the stream of sections a Demuxer expects
// It is not safe for concurrent use
type PacketReader struct {
	b  []byte // Sections waiting to be read
	l  astikit.CompleteLogger
	pb *packetBuffer
	pp *packetPool
	r  io.Reader

	optPIDs       []uint16
	optPacketSize int
}

// NewPacketReader creates a new packet reader
func NewPacketReader(r io.Reader, opts ...func(*PacketReader)) (pr *PacketReader) {
	// Init
	pr = &PacketReader{
		l:       logger,
		optPIDs: DefaultPIDs,
		r:       r,
	}

	// Apply options
	for _, opt := range opts {
		opt(pr)
	}

	// Create buffer and pool
	pr.pb = newPacketBuffer(r, pr.optPacketSize)
	pr.pp = newPacketPool(pr.optPIDs)
	return
}

// PacketReaderOptLogger returns the option to set the logger
func PacketReaderOptLogger(l astikit.StdLogger) func(*PacketReader) {
	return func(pr *PacketReader) {
		pr.l = astikit.AdaptStdLogger(l)
	}
}

// PacketReaderOptPIDs returns the option to set the PIDs whose sections are extracted
func PacketReaderOptPIDs(pids ...uint16) func(*PacketReader) {
	return func(pr *PacketReader) {
		pr.optPIDs = pids
	}
}

// PacketReaderOptPacketSize returns the option to set the packet size
// 0 means the packet size is detected out of the first bytes
func PacketReaderOptPacketSize(packetSize int) func(*PacketReader) {
	return func(pr *PacketReader) {
		pr.optPacketSize = packetSize
	}
}

// Read implements the io.Reader interface
// Sections are not aligned on reads
func (pr *PacketReader) Read(p []byte) (n int, err error) {
	for len(pr.b) == 0 {
		// Next packet
		var pkt *Packet
		if pkt, err = pr.pb.next(); err != nil {
			var errPacket packetError
			if errors.Is(err, errNoData) {
				return 0, nil
			} else if errors.As(err, &errPacket) {
				pr.l.Warnf("astidvb: skipping invalid packet: %s", err)
				continue
			}
			return
		}

		// Add packet
		pr.b = pr.pp.add(pkt, pr.b[:0])
	}

	// Copy
	n = copy(p, pr.b)
	pr.b = pr.b[:copy(pr.b, pr.b[n:])]
	return
}

// SetReadDeadline forwards the deadline to the underlying reader
func (pr *PacketReader) SetReadDeadline(t time.Time) error {
	if r, ok := pr.r.(deadlineReader); ok {
		return r.SetReadDeadline(t)
	}
	return os.ErrNoDeadline
}
