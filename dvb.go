package astidvb

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/asticode/go-astikit"
)

// parseMJD parses a Modified Julian Date
// Page: 160 | Annex C | Link: https://www.etsi.org/deliver/etsi_en/300400_300499/300468/01.15.01_60/en_300468v011501p.pdf
func parseMJD(mjd uint16) (year int, month time.Month, day int) {
	f := float64(mjd)
	yt := math.Floor((f - 15078.2) / 365.25)
	mt := math.Floor((f - 14956.1 - math.Floor(yt*365.25)) / 30.6001)
	day = int(f - 14956 - math.Floor(yt*365.25) - math.Floor(mt*30.6001))
	var k int
	if mt == 14 || mt == 15 {
		k = 1
	}
	year = 1900 + int(yt) + k
	month = time.Month(int(mt) - 1 - k*12)
	return
}

// bcdToInt decodes a 2 digits Binary Coded Decimal byte
func bcdToInt(b byte) int {
	return int(b>>4)*10 + int(b&0xf)
}

// dvbTime represents the raw content of a DVB time field
// It is kept raw since the hours offset must be applied before normalization
type dvbTime struct {
	mjd     uint16
	h, m, s byte // BCD
}

// parseDVBTime parses a DVB time
// This field is coded as 16 bits giving the 16 LSBs of MJD followed by 24 bits coded as 6 digits in 4 - bit Binary
// Coded Decimal (BCD). If the start time is undefined (e.g. for an event in a NVOD reference service) all bits of the
// field are set to "1".
func parseDVBTime(i *astikit.BytesIterator) (t dvbTime, err error) {
	var bs []byte
	if bs, err = i.NextBytes(5); err != nil {
		err = fmt.Errorf("astidvb: fetching next bytes failed: %w", err)
		return
	}
	t = dvbTime{
		mjd: binary.BigEndian.Uint16(bs),
		h:   bs[2],
		m:   bs[3],
		s:   bs[4],
	}
	return
}

func (t dvbTime) undefined() bool {
	return t.mjd == 0xffff && t.h == 0xff && t.m == 0xff && t.s == 0xff
}

// time returns the UTC time shifted by an hours offset
func (t dvbTime) time(offsetHours int) time.Time {
	y, m, d := parseMJD(t.mjd)
	return time.Date(y, m, d, bcdToInt(t.h)+offsetHours, bcdToInt(t.m), bcdToInt(t.s), 0, time.UTC)
}

// dvbDuration represents the raw content of a BCD hh:mm:ss duration field
type dvbDuration struct {
	h, m, s byte // BCD
}

// parseDVBDurationSeconds parses a seconds duration
// 24 bit field containing the duration of the event in hours, minutes, seconds. format: 6 digits, 4 - bit BCD = 24 bit
func parseDVBDurationSeconds(i *astikit.BytesIterator) (d dvbDuration, err error) {
	var bs []byte
	if bs, err = i.NextBytes(3); err != nil {
		err = fmt.Errorf("astidvb: fetching next bytes failed: %w", err)
		return
	}
	d = dvbDuration{h: bs[0], m: bs[1], s: bs[2]}
	return
}

func (d dvbDuration) duration() time.Duration {
	return time.Duration(bcdToInt(d.h))*time.Hour + time.Duration(bcdToInt(d.m))*time.Minute + time.Duration(bcdToInt(d.s))*time.Second
}

// parseDVBDurationMinutes parses a minutes duration
// 16 bit field containing the duration in hours, minutes. format: 4 digits, 4 - bit BCD
func parseDVBDurationMinutes(i *astikit.BytesIterator) (d time.Duration, err error) {
	var bs []byte
	if bs, err = i.NextBytes(2); err != nil {
		err = fmt.Errorf("astidvb: fetching next bytes failed: %w", err)
		return
	}
	d = time.Duration(bcdToInt(bs[0]))*time.Hour + time.Duration(bcdToInt(bs[1]))*time.Minute
	return
}

// Identifiers
// Numbers are always 4 digits lowercase hexadecimal

func networkURI(networkID uint16) string {
	return fmt.Sprintf("dvb:nid:%04x", networkID)
}

func platformURI(originalNetworkID uint16) string {
	return fmt.Sprintf("dvb://%04x", originalNetworkID)
}

func multiplexURI(originalNetworkID, transportStreamID uint16) string {
	return fmt.Sprintf("dvb://%04x.%04x", originalNetworkID, transportStreamID)
}

func serviceURI(originalNetworkID, transportStreamID, serviceID uint16) string {
	return fmt.Sprintf("dvb://%04x.%04x.%04x", originalNetworkID, transportStreamID, serviceID)
}

// EventKey returns the registry key of an event
func EventKey(originalNetworkID, transportStreamID, serviceID, eventID uint16) string {
	return fmt.Sprintf("%04x.%04x.%04x;%04x", originalNetworkID, transportStreamID, serviceID, eventID)
}

func eventTransportURI(originalNetworkID, transportStreamID, serviceID, eventID uint16, start time.Time, d dvbDuration) string {
	return fmt.Sprintf("dvb://%04x.%04x.%04x;%04x@%s--PT%02dH%02dM%02dS", originalNetworkID, transportStreamID, serviceID,
		eventID, start.UTC().Format("2006-01-02T15:04:05Z"), bcdToInt(d.h), bcdToInt(d.m), bcdToInt(d.s))
}
