package astidvb

import (
	"bytes"
	"testing"
	"time"

	"github.com/asticode/go-astikit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func totPayload(utc, change time.Time) []byte {
	buf := &bytes.Buffer{}
	w := astikit.NewBitsWriter(astikit.BitsWriterOptions{Writer: buf})
	w.Write([]byte("GBR"))        // Country code
	w.Write("000000")             // Country region id
	w.Write("1")                  // Reserved
	w.Write("0")                  // Polarity
	w.Write([]byte{0x00, 0x00})   // Local time offset
	w.Write(dvbTimeBytes(change)) // Time of change
	w.Write([]byte{0x01, 0x00})   // Next time offset
	w.Write([]byte("FRA"))        // Country code
	w.Write("000001")             // Country region id
	w.Write("1")                  // Reserved
	w.Write("1")                  // Polarity
	w.Write([]byte{0x01, 0x00})   // Local time offset
	w.Write(dvbTimeBytes(change)) // Time of change
	w.Write([]byte{0x02, 0x00})   // Next time offset
	lto := descriptorBytes(DescriptorTagLocalTimeOffset, buf.Bytes())
	return append(dvbTimeBytes(utc), loopBytes(lto)...)
}

func TestParseTOTSection(t *testing.T) {
	utc := time.Date(2024, 3, 31, 0, 30, 15, 0, time.UTC)
	change := time.Date(2024, 3, 31, 1, 0, 0, 0, time.UTC)
	d, err := parseTOTSection(astikit.NewBytesIterator(totPayload(utc, change)))
	require.NoError(t, err)
	assert.Equal(t, utc, d.UTCTime)
	require.Len(t, d.Descriptors, 1)
	require.NotNil(t, d.Descriptors[0].LocalTimeOffset)
	assert.Equal(t, []*DescriptorLocalTimeOffsetItem{
		{CountryCode: "GBR", LocalTimeOffset: 0, NextTimeOffset: time.Hour, TimeOfChange: change},
		{CountryCode: "FRA", CountryRegionID: 1, LocalTimeOffset: -time.Hour, NextTimeOffset: -2 * time.Hour, TimeOfChange: change},
	}, d.Descriptors[0].LocalTimeOffset.Items)

	// Truncated
	_, err = parseTOTSection(astikit.NewBytesIterator([]byte{0xc0, 0x79, 0x12}))
	assert.Error(t, err)
}

func TestDecodeTOT(t *testing.T) {
	r := NewRegistry()
	d := NewDecoder(r)
	assert.Nil(t, r.Time())

	// Decode
	utc := time.Date(2024, 3, 31, 0, 30, 15, 0, time.UTC)
	change := time.Date(2024, 3, 31, 1, 0, 0, 0, time.UTC)
	decodeTestSections(t, d, nonVersionedSectionBytes(PSITableIDTOT, totPayload(utc, change)))
	nt := r.Time()
	require.NotNil(t, nt)
	assert.Equal(t, utc, nt.UTCTime)
	assert.Len(t, nt.LocalTimeOffsets, 2)

	// Local time offsets
	o, ok := nt.LocalTimeOffset("GBR", 0, utc)
	assert.True(t, ok)
	assert.Equal(t, time.Duration(0), o)
	o, ok = nt.LocalTimeOffset("GBR", 0, change)
	assert.True(t, ok)
	assert.Equal(t, time.Hour, o)
	o, ok = nt.LocalTimeOffset("FRA", 1, utc)
	assert.True(t, ok)
	assert.Equal(t, -time.Hour, o)
	_, ok = nt.LocalTimeOffset("FRA", 0, utc)
	assert.False(t, ok)

	// Next TOT replaces the time
	decodeTestSections(t, d, nonVersionedSectionBytes(PSITableIDTOT, totPayload(change, change)))
	assert.Equal(t, change, r.Time().UTCTime)
}
