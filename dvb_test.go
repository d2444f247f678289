package astidvb

import (
	"testing"
	"time"

	"github.com/asticode/go-astikit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dvbTimeBytes encodes a time as MJD + BCD
func dvbTimeBytes(t time.Time) []byte {
	year := t.Year() - 1900
	month := int(t.Month())
	l := 0
	if month <= 2 {
		l = 1
	}
	mjd := 14956 + t.Day() + int(float64(year-l)*365.25) + int(float64(month+1+l*12)*30.6001)
	return []byte{byte(mjd >> 8), byte(mjd), bcd(t.Hour()), bcd(t.Minute()), bcd(t.Second())}
}

func bcd(n int) byte {
	return byte(n/10)<<4 | byte(n%10)
}

func TestParseMJD(t *testing.T) {
	for _, v := range []struct {
		mjd uint16
		y   int
		m   time.Month
		d   int
	}{
		{mjd: 40587, y: 1970, m: time.January, d: 1},
		{mjd: 0xc079, y: 1993, m: time.October, d: 13},
		{mjd: 51603, y: 2000, m: time.February, d: 29},
		{mjd: 60310, y: 2024, m: time.January, d: 1},
	} {
		y, m, d := parseMJD(v.mjd)
		assert.Equal(t, v.y, y, "mjd %d", v.mjd)
		assert.Equal(t, v.m, m, "mjd %d", v.mjd)
		assert.Equal(t, v.d, d, "mjd %d", v.mjd)
	}

	// Round trip
	for _, d := range []time.Time{
		time.Date(1999, time.March, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC),
		time.Date(2031, time.July, 14, 0, 0, 0, 0, time.UTC),
	} {
		bs := dvbTimeBytes(d)
		y, m, day := parseMJD(uint16(bs[0])<<8 | uint16(bs[1]))
		assert.Equal(t, d, time.Date(y, m, day, 0, 0, 0, 0, time.UTC))
	}
}

func TestBCDToInt(t *testing.T) {
	assert.Equal(t, 23, bcdToInt(0x23))
	assert.Equal(t, 0, bcdToInt(0x00))
	assert.Equal(t, 59, bcdToInt(0x59))
}

func TestParseDVBTime(t *testing.T) {
	dt, err := parseDVBTime(astikit.NewBytesIterator([]byte{0xc0, 0x79, 0x12, 0x45, 0x00}))
	require.NoError(t, err)
	assert.False(t, dt.undefined())
	assert.Equal(t, time.Date(1993, time.October, 13, 12, 45, 0, 0, time.UTC), dt.time(0))
	assert.Equal(t, time.Date(1993, time.October, 13, 14, 45, 0, 0, time.UTC), dt.time(2))
	assert.Equal(t, time.Date(1993, time.October, 12, 23, 45, 0, 0, time.UTC), dt.time(-13))

	dt, err = parseDVBTime(astikit.NewBytesIterator([]byte{0xff, 0xff, 0xff, 0xff, 0xff}))
	require.NoError(t, err)
	assert.True(t, dt.undefined())

	_, err = parseDVBTime(astikit.NewBytesIterator([]byte{0xc0, 0x79}))
	assert.Error(t, err)
}

func TestParseDVBDuration(t *testing.T) {
	d, err := parseDVBDurationSeconds(astikit.NewBytesIterator([]byte{0x01, 0x45, 0x30}))
	require.NoError(t, err)
	assert.Equal(t, time.Hour+45*time.Minute+30*time.Second, d.duration())

	m, err := parseDVBDurationMinutes(astikit.NewBytesIterator([]byte{0x01, 0x30}))
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, m)
}

func TestIdentifiers(t *testing.T) {
	assert.Equal(t, "dvb:nid:3005", networkURI(0x3005))
	assert.Equal(t, "dvb://233a", platformURI(0x233a))
	assert.Equal(t, "dvb://233a.1004", multiplexURI(0x233a, 0x1004))
	assert.Equal(t, "dvb://233a.1004.10bf", serviceURI(0x233a, 0x1004, 0x10bf))
	assert.Equal(t, "233a.1004.10bf;00ab", EventKey(0x233a, 0x1004, 0x10bf, 0xab))
	assert.Equal(t, "dvb://233a.1004.10bf;00ab@1993-10-13T12:45:00Z--PT01H45M30S", eventTransportURI(0x233a, 0x1004, 0x10bf, 0xab,
		time.Date(1993, time.October, 13, 12, 45, 0, 0, time.UTC), dvbDuration{h: 0x01, m: 0x45, s: 0x30}))
}
