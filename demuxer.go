package astidvb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
	"time"

	"github.com/asticode/go-astikit"
)

// Reader buffer
const (
	demuxerBufferSize         = 8192
	demuxerCompactionOffset   = 1024
	demuxerMaxEmptyReadsCount = 100
)

// Errors
var (
	ErrNoMoreTables = errors.New("astidvb: no more tables")
)

// Demuxer reassembles tables out of a stream of sections such as the output of a demux device section filter,
// a captured section dump or a PacketReader
// It is not safe for concurrent use
// https://www.etsi.org/deliver/etsi_en/300400_300499/300468/01.15.01_60/en_300468v011501p.pdf
type Demuxer struct {
	assembler *tableAssembler
	buf       []byte
	ctx       context.Context
	end       int
	l         astikit.CompleteLogger
	r         io.Reader
	start     int

	optTimeout time.Duration
}

// deadlineReader represents a source whose reads can be bounded in time
type deadlineReader interface {
	SetReadDeadline(t time.Time) error
}

// NewDemuxer creates a new demuxer based on a reader
func NewDemuxer(ctx context.Context, r io.Reader, opts ...func(*Demuxer)) (d *Demuxer) {
	// Init
	d = &Demuxer{
		buf: make([]byte, demuxerBufferSize),
		ctx: ctx,
		l:   logger,
		r:   r,
	}

	// Apply options
	for _, opt := range opts {
		opt(d)
	}

	// Create assembler
	d.assembler = newTableAssembler(d.l)
	return
}

// DemuxerOptLogger returns the option to set the logger
func DemuxerOptLogger(l astikit.StdLogger) func(*Demuxer) {
	return func(d *Demuxer) {
		d.l = astikit.AdaptStdLogger(l)
	}
}

// DemuxerOptTimeout returns the option to set the maximum duration a single read can wait for data
// 0 means no timeout
func DemuxerOptTimeout(timeout time.Duration) func(*Demuxer) {
	return func(d *Demuxer) {
		d.optTimeout = timeout
	}
}

// NextTable retrieves the next complete table
// A zero until means no deadline. ErrNoMoreTables is returned once the deadline or the timeout is reached or
// once the source is exhausted.
// The table is only valid until the next call since its memory is reused once its key is superseded
func (dmx *Demuxer) NextTable(until time.Time) (t *Table, err error) {
	for {
		// Check ctx error
		if err = dmx.ctx.Err(); err != nil {
			return
		}

		// Compact buffer
		if dmx.start >= demuxerCompactionOffset {
			copy(dmx.buf, dmx.buf[dmx.start:dmx.end])
			dmx.end -= dmx.start
			dmx.start = 0
		}

		// We need the section header first
		available := dmx.end - dmx.start
		if available < sectionHeaderSize {
			if err = dmx.read(sectionHeaderSize-available, until); err != nil {
				return
			}
			continue
		}

		// PES start code prefix means the source is misaligned
		if dmx.buf[dmx.start] == 0x00 && dmx.buf[dmx.start+1] == 0x00 && dmx.buf[dmx.start+2] == 0x01 {
			dmx.l.Warnf("astidvb: PES start code prefix detected, dropping %d buffered bytes", available)
			dmx.start, dmx.end = 0, 0
			continue
		}

		// We need the whole section
		length := sectionLength(dmx.buf[dmx.start:])
		if available < length {
			if err = dmx.read(length-available, until); err != nil {
				return
			}
			continue
		}

		// Invalid CRC32 means we're not aligned on a section: move forward one byte at a time
		bs := dmx.buf[dmx.start : dmx.start+length]
		if !validCRC32(bs) {
			dmx.start++
			continue
		}
		dmx.start += length

		// Add section
		var errAdd error
		if t, errAdd = dmx.assembler.add(bs); errAdd != nil {
			dmx.l.Warnf("astidvb: adding section of table 0x%02x failed: %s", bs[0], errAdd)
			continue
		}

		// Table is complete
		if t != nil {
			return
		}
	}
}

// read reads at most n more bytes into the buffer
func (dmx *Demuxer) read(n int, until time.Time) (err error) {
	for emptyReads := 0; ; {
		// Get wait duration
		wait := dmx.optTimeout
		if !until.IsZero() {
			left := time.Until(until)
			if left <= 0 {
				return ErrNoMoreTables
			}
			if wait <= 0 || left < wait {
				wait = left
			}
		}

		// Bound the read in time
		if r, ok := dmx.r.(deadlineReader); ok {
			var deadline time.Time
			if wait > 0 {
				deadline = time.Now().Add(wait)
			}
			if err = r.SetReadDeadline(deadline); err != nil && !errors.Is(err, os.ErrNoDeadline) {
				return fmt.Errorf("astidvb: setting read deadline failed: %w", err)
			}
		}

		// Read
		var c int
		c, err = dmx.r.Read(dmx.buf[dmx.end : dmx.end+n])
		dmx.end += c
		if err != nil {
			if isTimeoutOrEOF(err) {
				if c > 0 {
					return nil
				}
				return ErrNoMoreTables
			} else if errors.Is(err, syscall.EINTR) || errors.Is(err, syscall.EAGAIN) {
				continue
			}
			return fmt.Errorf("astidvb: reading %d bytes failed: %w", n, err)
		}

		// Some readers return nothing without error
		if c > 0 {
			return nil
		}
		if emptyReads++; emptyReads >= demuxerMaxEmptyReadsCount {
			return fmt.Errorf("astidvb: %d empty reads in a row: %w", emptyReads, io.ErrNoProgress)
		}
	}
}

func isTimeoutOrEOF(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
