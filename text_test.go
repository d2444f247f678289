package astidvb

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextDecoderDecode(t *testing.T) {
	td, err := NewTextDecoder("")
	require.NoError(t, err)

	for _, v := range []struct {
		name string
		i    []byte
		o    string
	}{
		{name: "empty", i: []byte{}, o: ""},
		{name: "null selector", i: []byte{0x00, 'a', 'b'}, o: ""},
		{name: "default charset", i: []byte("Hello world"), o: "Hello world"},
		{name: "iso6937 diacritic", i: []byte{'C', 'a', 'f', 0xc2, 'e'}, o: "Café"},
		{name: "iso6937 high", i: []byte{'1', 0xbd, ' ', 0xe9}, o: "1½ Ø"},
		{name: "iso-8859-5", i: []byte{0x01, 0xb0, 0xd0}, o: "Аа"},
		{name: "iso-8859-7", i: []byte{0x03, 0xc1}, o: "Α"},
		{name: "iso-8859-n", i: []byte{0x10, 0x00, 0x02, 0xa1}, o: "Ą"},
		{name: "ucs-2", i: []byte{0x11, 0x00, 0x41, 0x04, 0x10}, o: "AА"},
		{name: "control codes", i: []byte{'a', 0x8a, 'b', 0x86, 'c', 0x87}, o: "a\nbc"},
		{name: "ucs-2 control codes", i: []byte{0x11, 0x00, 0x61, 0xe0, 0x8a, 0x00, 0x62}, o: "a\nb"},
	} {
		t.Run(v.name, func(t *testing.T) {
			s, err := td.Decode(v.i)
			require.NoError(t, err)
			assert.Equal(t, v.o, s)
		})
	}
}

func TestTextDecoderDecodeErrors(t *testing.T) {
	td, err := NewTextDecoder(CharsetISO6937)
	require.NoError(t, err)

	// Reserved selectors
	for _, b := range []byte{0x06, 0x0f, 0x12, 0x15, 0x1f} {
		_, err = td.Decode([]byte{b, 'a'})
		assert.True(t, errors.Is(err, ErrReservedCharacterTable), "selector 0x%02x", b)
	}

	// Unsupported ISO-8859 parts
	_, err = td.Decode([]byte{0x10, 0x00, 0x0c, 'a'})
	assert.True(t, errors.Is(err, ErrUnsupportedCharacterTable))
	_, err = td.Decode([]byte{0x10, 0x00})
	assert.True(t, errors.Is(err, ErrUnsupportedCharacterTable))

	// A failure doesn't prevent next fields from being decoded
	s, err := td.Decode([]byte("ok"))
	require.NoError(t, err)
	assert.Equal(t, "ok", s)
}

func TestTextDecoderDefaultCharset(t *testing.T) {
	td, err := NewTextDecoder("ISO-8859-1")
	require.NoError(t, err)
	s, err := td.Decode([]byte{'c', 'a', 'f', 0xe9})
	require.NoError(t, err)
	assert.Equal(t, "café", s)

	td, err = NewTextDecoder("iso-8859-15")
	require.NoError(t, err)
	s, err = td.Decode([]byte{'5', 0xa4})
	require.NoError(t, err)
	assert.Equal(t, "5€", s)

	_, err = NewTextDecoder("not-a-charset")
	assert.Error(t, err)
}

func TestTextDecoderCache(t *testing.T) {
	td, err := NewTextDecoder("")
	require.NoError(t, err)

	_, err = td.Decode([]byte{0x01, 0xb0})
	require.NoError(t, err)
	assert.Equal(t, "ISO-8859-5", td.charset)
	p := fmt.Sprintf("%p", td.d)

	_, err = td.Decode([]byte{0x01, 0xd0})
	require.NoError(t, err)
	assert.Equal(t, p, fmt.Sprintf("%p", td.d))

	_, err = td.Decode([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, CharsetISO6937, td.charset)
	assert.NotEqual(t, p, fmt.Sprintf("%p", td.d))
}

func TestTextDecoderEscapeXML(t *testing.T) {
	td, err := NewTextDecoder("")
	require.NoError(t, err)
	assert.Equal(t, "a&amp;b&lt;c&gt;d&quot;e&apos;f", td.EscapeXML(`a&b<c>d"e'f`))
	assert.Equal(t, "tab\tnew\nline", td.EscapeXML("tab\tnew\nline"))
	assert.Equal(t, "caf&#xE9; &#x20AC;", td.EscapeXML("café €"))
	assert.Equal(t, "&#x1;&#xD;", td.EscapeXML("\x01\r"))
	assert.Equal(t, "&#x1F600;", td.EscapeXML("😀"))
}
