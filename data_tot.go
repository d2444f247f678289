package astidvb

import (
	"fmt"
	"time"

	"github.com/asticode/go-astikit"
)

// TOTData represents a TOT data
// Page: 39 | Chapter: 5.2.6 | Link: https://www.etsi.org/deliver/etsi_en/300400_300499/300468/01.15.01_60/en_300468v011501p.pdf
type TOTData struct {
	Descriptors []*Descriptor
	UTCTime     time.Time
}

// NetworkTime represents the time broadcast by the network
type NetworkTime struct {
	LocalTimeOffsets []*DescriptorLocalTimeOffsetItem
	UTCTime          time.Time
}

// LocalTimeOffset returns the local time offset of a country and region at a specific time
func (t *NetworkTime) LocalTimeOffset(countryCode string, regionID uint8, at time.Time) (d time.Duration, ok bool) {
	for _, o := range t.LocalTimeOffsets {
		if o.CountryCode != countryCode || o.CountryRegionID != regionID {
			continue
		}
		if at.Before(o.TimeOfChange) {
			return o.LocalTimeOffset, true
		}
		return o.NextTimeOffset, true
	}
	return
}

// parseTOTSection parses a TOT section
func parseTOTSection(i *astikit.BytesIterator) (d *TOTData, err error) {
	// UTC time
	var t dvbTime
	if t, err = parseDVBTime(i); err != nil {
		err = fmt.Errorf("astidvb: parsing UTC time failed: %w", err)
		return
	}
	d = &TOTData{UTCTime: t.time(0)}

	// Descriptors
	if d.Descriptors, err = parseDescriptorLoop(i); err != nil {
		err = fmt.Errorf("astidvb: parsing descriptors failed: %w", err)
		return
	}
	return
}

func (d *Decoder) decodeTOT(t *Table) (err error) {
	// Parse section
	var td *TOTData
	if td, err = parseTOTSection(astikit.NewBytesIterator(t.Sections[0].Payload())); err != nil {
		err = fmt.Errorf("astidvb: parsing TOT section failed: %w", err)
		return
	}

	// Update time
	nt := &NetworkTime{UTCTime: td.UTCTime}
	for _, ds := range td.Descriptors {
		if ds.LocalTimeOffset != nil {
			nt.LocalTimeOffsets = append(nt.LocalTimeOffsets, ds.LocalTimeOffset.Items...)
		}
	}
	d.r.time = nt
	return
}
