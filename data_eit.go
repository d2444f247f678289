package astidvb

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/asticode/go-astikit"
	"golang.org/x/exp/slices"
)

// EITData represents an EIT data
// Page: 36 | Chapter: 5.2.4 | Link: https://www.etsi.org/deliver/etsi_en/300400_300499/300468/01.15.01_60/en_300468v011501p.pdf
type EITData struct {
	Events                   []*EITDataEvent
	LastTableID              uint8
	OriginalNetworkID        uint16
	SegmentLastSectionNumber uint8
	ServiceID                uint16
	TransportStreamID        uint16
}

// EITDataEvent represents an EIT data event
type EITDataEvent struct {
	Descriptors    []*Descriptor
	EventID        uint16
	HasFreeCSAMode bool // When true indicates that access to one or more streams may be controlled by a CA system.
	RunningStatus  uint8

	duration  dvbDuration
	startTime dvbTime
}

// Duration returns the duration of the event
func (e *EITDataEvent) Duration() time.Duration {
	return e.duration.duration()
}

// StartTime returns the UTC start time of the event
func (e *EITDataEvent) StartTime() time.Time {
	return e.startTime.time(0)
}

// parseEITSection parses an EIT section
func parseEITSection(i *astikit.BytesIterator, tableIDExtension uint16) (d *EITData, err error) {
	// Create data
	d = &EITData{ServiceID: tableIDExtension}

	// Get next bytes
	var bs []byte
	if bs, err = i.NextBytes(6); err != nil {
		err = fmt.Errorf("astidvb: fetching next bytes failed: %w", err)
		return
	}
	d.LastTableID = bs[5]
	d.OriginalNetworkID = binary.BigEndian.Uint16(bs[2:])
	d.SegmentLastSectionNumber = bs[4]
	d.TransportStreamID = binary.BigEndian.Uint16(bs)

	// Loop until end of section data is reached
	for i.HasBytesLeft() {
		// Event id
		if bs, err = i.NextBytes(2); err != nil {
			err = fmt.Errorf("astidvb: fetching next bytes failed: %w", err)
			return
		}
		e := &EITDataEvent{EventID: binary.BigEndian.Uint16(bs)}

		// Start time
		if e.startTime, err = parseDVBTime(i); err != nil {
			err = fmt.Errorf("astidvb: parsing start time of event 0x%04x failed: %w", e.EventID, err)
			return
		}

		// Duration
		if e.duration, err = parseDVBDurationSeconds(i); err != nil {
			err = fmt.Errorf("astidvb: parsing duration of event 0x%04x failed: %w", e.EventID, err)
			return
		}

		// Running status, free CA mode and descriptors loop length share the same bytes
		if bs, err = i.NextBytes(2); err != nil {
			err = fmt.Errorf("astidvb: fetching next bytes failed: %w", err)
			return
		}
		e.HasFreeCSAMode = bs[0]&0x10 > 0
		e.RunningStatus = bs[0] >> 5

		// Descriptors
		if bs, err = i.NextBytes(int(binary.BigEndian.Uint16(bs) & 0xfff)); err != nil {
			err = fmt.Errorf("astidvb: fetching descriptors of event 0x%04x failed: %w", e.EventID, err)
			return
		}
		if e.Descriptors, err = parseDescriptors(bs); err != nil {
			err = fmt.Errorf("astidvb: parsing descriptors of event 0x%04x failed: %w", e.EventID, err)
			return
		}
		d.Events = append(d.Events, e)
	}
	return
}

func (d *Decoder) decodeEIT(t *Table) (err error) {
	// Loop through sections
	for _, s := range t.Sections {
		// Parse section
		var ed *EITData
		if ed, err = parseEITSection(astikit.NewBytesIterator(s.Payload()), s.Syntax.TableIDExtension); err != nil {
			err = fmt.Errorf("astidvb: parsing EIT section %d failed: %w", s.Syntax.SectionNumber, err)
			return
		}

		// Loop through events
		for _, ee := range ed.Events {
			d.decodeEITEvent(ed, ee, int(t.Version))
		}
	}
	return
}

func (d *Decoder) decodeEITEvent(ed *EITData, ee *EITDataEvent, version int) {
	// No information
	if len(ee.Descriptors) == 0 {
		return
	}

	// Build key
	key := EventKey(ed.OriginalNetworkID, ed.TransportStreamID, ed.ServiceID, ee.EventID)

	// Near video on demand reference events have no start time
	if ee.startTime.undefined() {
		d.l.Debugf("astidvb: event %s: undefined start time, skipping", key)
		return
	}

	// Check date window
	start := ee.startTime.time(d.optTimeOffset)
	stop := start.Add(ee.Duration())
	if now := d.optNow(); !d.optAcceptBadDates && (stop.Before(now.Add(-d.optEventMaxAge)) || stop.After(now.Add(d.optEventMaxFuture))) {
		d.l.Debugf("astidvb: event %s: bad date %s, skipping", key, start)
		return
	}

	// Event must have a title
	titles := d.decodeEITTitles(ee.Descriptors)
	if len(titles) == 0 {
		d.l.Debugf("astidvb: event %s: no title, skipping", key)
		return
	}

	// Same or older version
	if e := d.r.LocateEvent(key); e != nil && (d.optIgnoreUpdates || e.Version >= version) {
		return
	}

	// Create event
	e := d.r.LocateOrAddEvent(key)
	e.Reset()
	e.Duration = ee.Duration()
	e.EventID = ee.EventID
	e.Service = d.r.LocateOrAddService(ed.OriginalNetworkID, ed.TransportStreamID, ed.ServiceID)
	e.Start = start
	e.TransportURI = eventTransportURI(ed.OriginalNetworkID, ed.TransportStreamID, ed.ServiceID, ee.EventID, start, ee.duration)
	e.Titles = titles
	e.Version = version

	// Fields are filled in this order and some of them only keep their first value
	for p := eitPassTitle; p <= eitPassSubtitles; p++ {
		d.decodeEITPass(e, ee.Descriptors, p)
	}

	// Notify
	d.h.OnEvent(e)
}

// decodeEITTitles returns the titles of the short event descriptors that decode to a non empty text
func (d *Decoder) decodeEITTitles(ds []*Descriptor) (ts []*LocalizedText) {
	for _, v := range ds {
		if v.ShortEvent == nil || len(v.ShortEvent.EventName) == 0 {
			continue
		}
		if title, ok := d.decodeText("event title", v.ShortEvent.EventName); ok && title != "" {
			ts = setLocalizedText(ts, v.ShortEvent.Language, title)
		}
	}
	return
}

type eitPass int

// EIT passes
const (
	eitPassTitle eitPass = iota
	eitPassSubTitle
	eitPassDescription
	eitPassCategory
	eitPassLanguage
	eitPassVideo
	eitPassAudio
	eitPassSubtitles
)

func (d *Decoder) decodeEITPass(e *Event, ds []*Descriptor, p eitPass) {
	var contents []uint8

	// The private data specifier only applies to the descriptors following it
	var pds uint32
	for _, v := range ds {
		// Already reported while parsing
		if v.malformed {
			continue
		}

		switch v.Tag {
		case DescriptorTagShortEvent:
			// Titles are decoded beforehand
			if p != eitPassSubTitle || len(v.ShortEvent.Text) == 0 {
				break
			}
			if sub, ok := d.decodeText("event sub title", v.ShortEvent.Text); ok && sub != "" {
				e.SubTitles = setLocalizedText(e.SubTitles, v.ShortEvent.Language, sub)
			}
		case DescriptorTagExtendedEvent:
			if p == eitPassDescription {
				d.decodeEITDescription(e, v.ExtendedEvent)
			}
		case DescriptorTagContent:
			if p == eitPassCategory {
				for _, item := range v.Content.Items {
					if c := item.Content(); !slices.Contains(contents, c) {
						contents = append(contents, c)
						if name, ok := ContentCategoryName(c); ok {
							e.Categories = append(e.Categories, name)
						}
					}
				}
			}
		case DescriptorTagComponent:
			d.decodeEITComponent(e, v.Component, p)
		case DescriptorTagParentalRating:
			if p == eitPassSubtitles {
				for _, item := range v.ParentalRating.Items {
					if age := item.MinimumAge(); age > 0 {
						e.Ratings = append(e.Ratings, &EventRating{CountryCode: item.CountryCode, MinimumAge: age})
					}
				}
			}
		case DescriptorTagContentIdentifier:
			if p == eitPassVideo {
				d.decodeEITContentIdentifier(e, v.ContentIdentifier)
			}
		case DescriptorTagPrivateDataSpecifier:
			pds = v.PrivateDataSpecifier.Specifier
		case 0x81, 0x82:
			// VPS
			if pds == PrivateDataSpecifierARDZDFORF && p == eitPassTitle {
				d.l.Debugf("astidvb: event %s: skipping VPS descriptor 0x%02x", e.Key, uint8(v.Tag))
			}
		case 0x00,
			DescriptorTagCAIdentifier,
			0x4f, // Time shifted event
			0x52, // Stream identifier
			0x5e, // Multilingual component
			0x64, // Data broadcast
			0x69, // Programme identification label
			DescriptorTagLogicalChannel,
			0x84, // Preferred name list
			0x85, // Preferred name identifier
			0x86: // Eacem stream identifier
		default:
			if p == eitPassTitle {
				d.logDescriptor("event "+e.Key, v)
			}
		}
	}
}

// decodeEITDescription appends the items and the text of an extended event descriptor to the description in its
// language
func (d *Decoder) decodeEITDescription(e *Event, v *DescriptorExtendedEvent) {
	var b strings.Builder
	for _, item := range v.Items {
		description, ok := d.decodeText("event item description", item.Description)
		if !ok {
			continue
		}
		content, ok := d.decodeText("event item content", item.Content)
		if !ok {
			continue
		}
		b.WriteString(description + ": " + content + "; ")
	}
	if text, ok := d.decodeText("event description", v.Text); ok {
		b.WriteString(text)
	}
	if b.Len() == 0 {
		return
	}
	e.Descriptions = appendLocalizedText(e.Descriptions, v.Language, b.String())
}

func (d *Decoder) decodeEITComponent(e *Event, v *DescriptorComponent, p eitPass) {
	switch v.StreamContent {
	case StreamContentVideo:
		if p == eitPassVideo && e.Aspect == AspectInvalid {
			e.Aspect = aspectFromComponentType(v.ComponentType)
		}
	case StreamContentAudio:
		switch p {
		case eitPassLanguage:
			if e.Language == "" {
				e.Language = v.Language
			}
		case eitPassAudio:
			if e.Audio == AudioInvalid {
				e.Audio = Audio(v.ComponentType)
			}
		}
	case StreamContentTeletext:
		if p == eitPassSubtitles {
			e.SubtitleLanguages = append(e.SubtitleLanguages, v.Language)
		}
	}
}

func (d *Decoder) decodeEITContentIdentifier(e *Event, v *DescriptorContentIdentifier) {
	for _, item := range v.Items {
		switch item.CRIDLocation {
		case CRIDLocationDescriptor:
			switch {
			case isPrimaryCRIDType(item.CRIDType):
				e.PrimaryCRID = string(item.CRID)
			case isSecondaryCRIDType(item.CRIDType):
				e.SecondaryCRID = string(item.CRID)
			}
		case CRIDLocationCIT:
			d.l.Debugf("astidvb: event %s: %s CRID is a reference 0x%04x to the content identifier table", e.Key, CRIDTypeName(item.CRIDType), item.CRIDReference)
		}
	}
}
