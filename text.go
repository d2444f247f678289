package astidvb

import (
	"errors"
	"fmt"
	"strings"

	"github.com/asticode/go-astikit"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/unicode/norm"
)

// Charsets
const (
	CharsetISO6937 = "ISO6937"
	charsetUCS2    = "ISO-10646/UCS2"
)

// Errors
var (
	ErrReservedCharacterTable    = errors.New("astidvb: reserved character table")
	ErrUnsupportedCharacterTable = errors.New("astidvb: unsupported character table")
)

// iso8859Charmaps indexes ISO/IEC 8859 parts by their number
// Part 11 is served by its Windows superset and part 12 doesn't exist
var iso8859Charmaps = map[int]*charmap.Charmap{
	1:  charmap.ISO8859_1,
	2:  charmap.ISO8859_2,
	3:  charmap.ISO8859_3,
	4:  charmap.ISO8859_4,
	5:  charmap.ISO8859_5,
	6:  charmap.ISO8859_6,
	7:  charmap.ISO8859_7,
	8:  charmap.ISO8859_8,
	9:  charmap.ISO8859_9,
	10: charmap.ISO8859_10,
	11: charmap.Windows874,
	13: charmap.ISO8859_13,
	14: charmap.ISO8859_14,
	15: charmap.ISO8859_15,
	16: charmap.ISO8859_16,
}

func iso8859Charset(part int) string {
	return fmt.Sprintf("ISO-8859-%d", part)
}

// TextDecoder decodes DVB text fields whose first byte selects the character table
// It keeps the last character table decoder around and is therefore not safe for concurrent use
// Page: 114 | Annex A | Link: https://www.etsi.org/deliver/etsi_en/300400_300499/300468/01.15.01_60/en_300468v011501p.pdf
type TextDecoder struct {
	charset        string
	d              *encoding.Decoder
	defaultCharset string
	l              astikit.CompleteLogger
}

// NewTextDecoder creates a new text decoder
// The default charset is used by fields starting with a byte >= 0x20. It is ISO6937 when empty, however lots of
// broadcasters actually use ISO-8859-1 or ISO-8859-15.
func NewTextDecoder(defaultCharset string, opts ...func(*TextDecoder)) (td *TextDecoder, err error) {
	// Init
	if defaultCharset == "" {
		defaultCharset = CharsetISO6937
	}
	td = &TextDecoder{
		defaultCharset: defaultCharset,
		l:              logger,
	}

	// Apply options
	for _, opt := range opts {
		opt(td)
	}

	// Make sure the default charset is valid
	if err = td.use(defaultCharset); err != nil {
		err = fmt.Errorf("astidvb: using default charset %s failed: %w", defaultCharset, err)
		return
	}
	return
}

// TextDecoderOptLogger returns the option to set the logger
func TextDecoderOptLogger(l astikit.StdLogger) func(*TextDecoder) {
	return func(td *TextDecoder) {
		td.l = astikit.AdaptStdLogger(l)
	}
}

// use switches the active decoder if needed
func (td *TextDecoder) use(charset string) (err error) {
	if td.d != nil && td.charset == charset {
		return
	}
	var d *encoding.Decoder
	if d, err = charsetDecoder(charset); err != nil {
		return
	}
	td.charset = charset
	td.d = d
	return
}

func charsetDecoder(charset string) (*encoding.Decoder, error) {
	// Built-in
	switch {
	case strings.EqualFold(charset, CharsetISO6937), strings.EqualFold(charset, "ISO-6937"):
		return &encoding.Decoder{Transformer: iso6937Decoder{}}, nil
	case charset == charsetUCS2:
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder(), nil
	}

	// ISO/IEC 8859
	for part, c := range iso8859Charmaps {
		if iso8859Charset(part) == charset {
			return c.NewDecoder(), nil
		}
	}

	// IANA
	e, err := ianaindex.IANA.Encoding(charset)
	if err != nil {
		return nil, fmt.Errorf("astidvb: looking up charset %s failed: %w", charset, err)
	} else if e == nil {
		return nil, fmt.Errorf("astidvb: charset %s: %w", charset, ErrUnsupportedCharacterTable)
	}
	return e.NewDecoder(), nil
}

// selectCharset returns the charset selected by the first bytes of a text field as well as the text itself
func (td *TextDecoder) selectCharset(bs []byte) (charset string, text []byte, err error) {
	switch b := bs[0]; {
	case b >= 0x20:
		return td.defaultCharset, bs, nil
	case b >= 0x01 && b <= 0x05:
		return iso8859Charset(int(b) + 4), bs[1:], nil
	case b == 0x10:
		if len(bs) < 3 {
			err = fmt.Errorf("astidvb: ISO-8859 selector is truncated: %w", ErrUnsupportedCharacterTable)
			return
		}
		part := int(bs[1])<<8 | int(bs[2])
		if _, ok := iso8859Charmaps[part]; !ok {
			err = fmt.Errorf("astidvb: ISO-8859 part %d: %w", part, ErrUnsupportedCharacterTable)
			return
		}
		return iso8859Charset(part), bs[3:], nil
	case b == 0x11:
		return charsetUCS2, bs[1:], nil
	default:
		err = fmt.Errorf("astidvb: selector 0x%02x: %w", b, ErrReservedCharacterTable)
		return
	}
}

// Decode decodes a text field
// Fields with a reserved selector return an error and must be treated as absent
func (td *TextDecoder) Decode(bs []byte) (s string, err error) {
	// Empty
	if len(bs) == 0 || bs[0] == 0x00 {
		return
	}

	// Select charset
	var charset string
	var text []byte
	if charset, text, err = td.selectCharset(bs); err != nil {
		return
	}

	// Switch decoder
	if err = td.use(charset); err != nil {
		err = fmt.Errorf("astidvb: using charset %s failed: %w", charset, err)
		return
	}

	// Decode
	var b []byte
	if b, err = td.d.Bytes(text); err != nil {
		err = fmt.Errorf("astidvb: decoding %s text failed: %w", charset, err)
		return
	}
	s = normalizeControlCodes(norm.NFC.String(string(b)))
	return
}

// normalizeControlCodes handles DVB control codes: 0x8a is a line break, 0x86 and 0x87 toggle emphasis and the
// rest is reserved
// Two byte tables use 0xe080 to 0xe09f for the same purpose
func normalizeControlCodes(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == 0x8a, r == 0xe08a:
			return '\n'
		case r >= 0x80 && r <= 0x9f, r >= 0xe080 && r <= 0xe09f:
			return -1
		}
		return r
	}, s)
}

// EscapeXML escapes a decoded text so that it can be embedded in XML
// Printable ASCII is kept as is and every other character becomes a numeric character reference
func (td *TextDecoder) EscapeXML(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '&':
			b.WriteString("&amp;")
		case r == '<':
			b.WriteString("&lt;")
		case r == '>':
			b.WriteString("&gt;")
		case r == '"':
			b.WriteString("&quot;")
		case r == '\'':
			b.WriteString("&apos;")
		case r == '\t', r == '\n', r >= 0x20 && r <= 0x7e:
			b.WriteRune(r)
		default:
			if r < 0x20 {
				td.l.Warnf("astidvb: illegal control character 0x%02x in %q", r, s)
			}
			fmt.Fprintf(&b, "&#x%X;", r)
		}
	}
	return b.String()
}
