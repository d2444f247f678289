package astidvb

import (
	"fmt"
	"time"

	"github.com/asticode/go-astikit"
)

// PIDs carrying SI tables
// Page: 20 | Chapter: 5.1.3 | Link: https://www.etsi.org/deliver/etsi_en/300400_300499/300468/01.15.01_60/en_300468v011501p.pdf
const (
	PIDPAT    = 0x0
	PIDNIT    = 0x10
	PIDSDTBAT = 0x11
	PIDEIT    = 0x12
	PIDTDTTOT = 0x14
	PIDNull   = 0x1fff
)

// Default event date window
const (
	defaultEventMaxAge    = 24 * time.Hour
	defaultEventMaxFuture = 14 * 24 * time.Hour
)

// Handler is notified of decoded entities
// Entities are owned by the registry and may be updated by later tables
type Handler interface {
	OnEvent(e *Event)
	OnNetwork(n *Network)
	OnService(s *Service)
}

// HandlerFuncs adapts functions to a Handler, nil functions are ignored
type HandlerFuncs struct {
	OnEventFunc   func(e *Event)
	OnNetworkFunc func(n *Network)
	OnServiceFunc func(s *Service)
}

// OnEvent implements the Handler interface
func (h HandlerFuncs) OnEvent(e *Event) {
	if h.OnEventFunc != nil {
		h.OnEventFunc(e)
	}
}

// OnNetwork implements the Handler interface
func (h HandlerFuncs) OnNetwork(n *Network) {
	if h.OnNetworkFunc != nil {
		h.OnNetworkFunc(n)
	}
}

// OnService implements the Handler interface
func (h HandlerFuncs) OnService(s *Service) {
	if h.OnServiceFunc != nil {
		h.OnServiceFunc(s)
	}
}

// Decoder decodes complete tables into the registry
// It is not safe for concurrent use
type Decoder struct {
	h  Handler
	l  astikit.CompleteLogger
	r  *Registry
	td *TextDecoder

	optAcceptBadDates bool
	optEventMaxAge    time.Duration
	optEventMaxFuture time.Duration
	optIgnoreUpdates  bool
	optNow            func() time.Time
	optTimeOffset     int
}

// NewDecoder creates a new decoder
func NewDecoder(r *Registry, opts ...func(*Decoder)) (d *Decoder) {
	// Init
	d = &Decoder{
		h:                 HandlerFuncs{},
		l:                 logger,
		optEventMaxAge:    defaultEventMaxAge,
		optEventMaxFuture: defaultEventMaxFuture,
		optNow:            time.Now,
		r:                 r,
	}

	// Apply options
	for _, opt := range opts {
		opt(d)
	}

	// Default text decoder
	if d.td == nil {
		// ISO6937 is built in and can't fail
		d.td, _ = NewTextDecoder(CharsetISO6937)
		d.td.l = d.l
	}
	return
}

// DecoderOptHandler returns the option to set the handler
func DecoderOptHandler(h Handler) func(*Decoder) {
	return func(d *Decoder) {
		d.h = h
	}
}

// DecoderOptLogger returns the option to set the logger
func DecoderOptLogger(l astikit.StdLogger) func(*Decoder) {
	return func(d *Decoder) {
		d.l = astikit.AdaptStdLogger(l)
	}
}

// DecoderOptTextDecoder returns the option to set the text decoder
func DecoderOptTextDecoder(td *TextDecoder) func(*Decoder) {
	return func(d *Decoder) {
		d.td = td
	}
}

// DecoderOptTimeOffset returns the option to shift event start times by a number of hours
// The offset is clamped to [-12, 12]
func DecoderOptTimeOffset(hours int) func(*Decoder) {
	return func(d *Decoder) {
		switch {
		case hours < -12:
			hours = -12
		case hours > 12:
			hours = 12
		}
		d.optTimeOffset = hours
	}
}

// DecoderOptAcceptBadDates returns the option to keep events stopping outside of the date window
func DecoderOptAcceptBadDates(accept bool) func(*Decoder) {
	return func(d *Decoder) {
		d.optAcceptBadDates = accept
	}
}

// DecoderOptDateWindow returns the option to set how far in the past and in the future events may stop
// Defaults are 24 hours and 14 days
func DecoderOptDateWindow(maxAge, maxFuture time.Duration) func(*Decoder) {
	return func(d *Decoder) {
		d.optEventMaxAge = maxAge
		d.optEventMaxFuture = maxFuture
	}
}

// DecoderOptIgnoreUpdates returns the option to ignore new versions of events that have already been decoded
func DecoderOptIgnoreUpdates(ignore bool) func(*Decoder) {
	return func(d *Decoder) {
		d.optIgnoreUpdates = ignore
	}
}

// DecoderOptNow returns the option to set the clock used to validate event dates
func DecoderOptNow(now func() time.Time) func(*Decoder) {
	return func(d *Decoder) {
		d.optNow = now
	}
}

// Decode decodes a complete table
// An error only aborts the decoding of this table, entities decoded before the error are kept
func (d *Decoder) Decode(t *Table) (err error) {
	switch id := t.TableID(); {
	case id == PSITableIDPAT:
		err = d.decodePAT(t)
	case id == PSITableIDNITActual, id == PSITableIDNITOther:
		err = d.decodeNIT(t)
	case id.isSDT():
		err = d.decodeSDT(t)
	case id.isEIT():
		err = d.decodeEIT(t)
	case id == PSITableIDTOT:
		err = d.decodeTOT(t)
	case id == PSITableIDBAT:
		d.l.Debugf("astidvb: %s is not handled", t.Key)
	default:
		d.l.Warnf("astidvb: unknown %s", t.Key)
	}
	if err != nil {
		err = fmt.Errorf("astidvb: decoding %s failed: %w", t.Key, err)
	}
	return
}

// decodeText decodes a text field and logs failures since a field that can't be decoded is treated as absent
func (d *Decoder) decodeText(name string, bs []byte) (s string, ok bool) {
	var err error
	if s, err = d.td.Decode(bs); err != nil {
		d.l.Warnf("astidvb: decoding %s failed: %s", name, err)
		return "", false
	}
	return s, true
}

// logDescriptor logs descriptors that are not used in this context
func (d *Decoder) logDescriptor(context string, ds *Descriptor) {
	if ds.Tag.isUserDefined() {
		d.l.Warnf("astidvb: %s: user defined descriptor 0x%02x with length %d", context, uint8(ds.Tag), ds.Length)
	} else {
		d.l.Warnf("astidvb: %s: unknown descriptor 0x%02x with length %d", context, uint8(ds.Tag), ds.Length)
	}
}
