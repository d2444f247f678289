package astidvb

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/asticode/go-astikit"
)

// DescriptorTag represents a descriptor tag
type DescriptorTag uint8

// Descriptor tags
// Chapter: 6.1 | Link: https://www.etsi.org/deliver/etsi_en/300400_300499/300468/01.15.01_60/en_300468v011501p.pdf
const (
	DescriptorTagNetworkName             DescriptorTag = 0x40
	DescriptorTagServiceList             DescriptorTag = 0x41
	DescriptorTagStuffing                DescriptorTag = 0x42
	DescriptorTagSatelliteDeliverySystem DescriptorTag = 0x43
	DescriptorTagCableDeliverySystem     DescriptorTag = 0x44
	DescriptorTagService                 DescriptorTag = 0x48
	DescriptorTagLinkage                 DescriptorTag = 0x4a
	DescriptorTagNVODReference           DescriptorTag = 0x4b
	DescriptorTagShortEvent              DescriptorTag = 0x4d
	DescriptorTagExtendedEvent           DescriptorTag = 0x4e
	DescriptorTagComponent               DescriptorTag = 0x50
	DescriptorTagCAIdentifier            DescriptorTag = 0x53
	DescriptorTagContent                 DescriptorTag = 0x54
	DescriptorTagParentalRating          DescriptorTag = 0x55
	DescriptorTagLocalTimeOffset         DescriptorTag = 0x58
	DescriptorTagTerrestrialDelivery     DescriptorTag = 0x5a
	DescriptorTagMultilingualNetworkName DescriptorTag = 0x5b
	DescriptorTagPrivateDataSpecifier    DescriptorTag = 0x5f
	DescriptorTagFrequencyList           DescriptorTag = 0x62
	DescriptorTagCellList                DescriptorTag = 0x6c
	DescriptorTagCellFrequencyLink       DescriptorTag = 0x6d
	DescriptorTagDefaultAuthority        DescriptorTag = 0x73
	DescriptorTagContentIdentifier       DescriptorTag = 0x76
	DescriptorTagTimeSliceFECIdentifier  DescriptorTag = 0x77
	DescriptorTagS2SatelliteDelivery     DescriptorTag = 0x79
	DescriptorTagXAITLocation            DescriptorTag = 0x7d
	DescriptorTagFTAContentManagement    DescriptorTag = 0x7e
	DescriptorTagExtension               DescriptorTag = 0x7f

	// User defined, their meaning depends on the private data specifier
	DescriptorTagLogicalChannel DescriptorTag = 0x83
)

// Private data specifiers
const (
	PrivateDataSpecifierARDZDFORF = 0x5 // German and Austrian public broadcasters, tags 0x81 and 0x82 carry VPS data
)

// isUserDefined checks whether the tag is in the user defined range
func (t DescriptorTag) isUserDefined() bool {
	return t >= 0x80 && t <= 0xfe
}

// descriptorParser parses the payload of a descriptor
type descriptorParser func(i *astikit.BytesIterator, d *Descriptor) error

// descriptorParserLUT indexes parsers by tag. User defined tags are not parsed here since their meaning depends on
// the context
var descriptorParserLUT = [256]descriptorParser{
	DescriptorTagComponent:            parseDescriptorComponent,
	DescriptorTagContent:              parseDescriptorContent,
	DescriptorTagContentIdentifier:    parseDescriptorContentIdentifier,
	DescriptorTagDefaultAuthority:     parseDescriptorDefaultAuthority,
	DescriptorTagExtendedEvent:        parseDescriptorExtendedEvent,
	DescriptorTagLinkage:              parseDescriptorLinkage,
	DescriptorTagLocalTimeOffset:      parseDescriptorLocalTimeOffset,
	DescriptorTagNetworkName:          parseDescriptorNetworkName,
	DescriptorTagParentalRating:       parseDescriptorParentalRating,
	DescriptorTagPrivateDataSpecifier: parseDescriptorPrivateDataSpecifier,
	DescriptorTagService:              parseDescriptorService,
	DescriptorTagShortEvent:           parseDescriptorShortEvent,
}

// Descriptor represents a descriptor
// Payload is bounded by the descriptor length and typed fields are only set for known tags
type Descriptor struct {
	Component            *DescriptorComponent
	Content              *DescriptorContent
	ContentIdentifier    *DescriptorContentIdentifier
	DefaultAuthority     *DescriptorDefaultAuthority
	ExtendedEvent        *DescriptorExtendedEvent
	Length               uint8
	Linkage              *DescriptorLinkage
	LocalTimeOffset      *DescriptorLocalTimeOffset
	NetworkName          *DescriptorNetworkName
	ParentalRating       *DescriptorParentalRating
	Payload              []byte
	PrivateDataSpecifier *DescriptorPrivateDataSpecifier
	Service              *DescriptorService
	ShortEvent           *DescriptorShortEvent
	Tag                  DescriptorTag

	// The payload couldn't be parsed, typed fields are not set
	malformed bool
}

// parseDescriptorLoop parses a 12 bits length prefixed descriptor loop
func parseDescriptorLoop(i *astikit.BytesIterator) (ds []*Descriptor, err error) {
	// Get next bytes
	var bs []byte
	if bs, err = i.NextBytes(2); err != nil {
		err = fmt.Errorf("astidvb: fetching next bytes failed: %w", err)
		return
	}

	// Get loop
	if bs, err = i.NextBytes(int(binary.BigEndian.Uint16(bs) & 0xfff)); err != nil {
		err = fmt.Errorf("astidvb: fetching descriptor loop failed: %w", err)
		return
	}

	// Parse descriptors
	if ds, err = parseDescriptors(bs); err != nil {
		err = fmt.Errorf("astidvb: parsing descriptors failed: %w", err)
		return
	}
	return
}

// parseDescriptors parses a descriptor loop
// Only descriptors overrunning the loop are an error
func parseDescriptors(bs []byte) (ds []*Descriptor, err error) {
	i := astikit.NewBytesIterator(bs)
	for i.HasBytesLeft() {
		// Get header
		var h []byte
		if h, err = i.NextBytes(2); err != nil {
			err = fmt.Errorf("astidvb: fetching next bytes failed: %w", err)
			return
		}

		// Create descriptor
		d := &Descriptor{
			Length: h[1],
			Tag:    DescriptorTag(h[0]),
		}

		// Payload must fit in the loop
		if d.Payload, err = i.NextBytes(int(d.Length)); err != nil {
			err = fmt.Errorf("astidvb: fetching payload of descriptor 0x%02x with length %d failed: %w", h[0], d.Length, err)
			return
		}

		// Parse payload
		// A malformed descriptor only loses its typed fields, the rest of the loop is still valid
		if p := descriptorParserLUT[d.Tag]; p != nil {
			if errParse := p(astikit.NewBytesIterator(d.Payload), d); errParse != nil {
				logger.Warnf("astidvb: parsing descriptor 0x%02x with length %d failed: %s", h[0], d.Length, errParse)
				*d = Descriptor{Length: d.Length, Payload: d.Payload, Tag: d.Tag, malformed: true}
			}
		}
		ds = append(ds, d)
	}
	return
}

// nextLengthPrefixedBytes returns bytes prefixed by an 8 bits length
func nextLengthPrefixedBytes(i *astikit.BytesIterator) (bs []byte, err error) {
	var b byte
	if b, err = i.NextByte(); err != nil {
		err = fmt.Errorf("astidvb: fetching next byte failed: %w", err)
		return
	}
	if bs, err = i.NextBytes(int(b)); err != nil {
		err = fmt.Errorf("astidvb: fetching next %d bytes failed: %w", b, err)
		return
	}
	return
}

func nextLanguage(i *astikit.BytesIterator) (l string, err error) {
	var bs []byte
	if bs, err = i.NextBytes(3); err != nil {
		err = fmt.Errorf("astidvb: fetching next bytes failed: %w", err)
		return
	}
	l = string(bs)
	return
}

// DescriptorNetworkName represents a network name descriptor
// Chapter: 6.2.27 | Link: https://www.etsi.org/deliver/etsi_en/300400_300499/300468/01.15.01_60/en_300468v011501p.pdf
type DescriptorNetworkName struct {
	Name []byte
}

func parseDescriptorNetworkName(i *astikit.BytesIterator, d *Descriptor) (err error) {
	d.NetworkName = &DescriptorNetworkName{Name: i.Dump()}
	return
}

// DescriptorLinkage represents a linkage descriptor
// Private data following the linkage type is not parsed
// Chapter: 6.2.19 | Link: https://www.etsi.org/deliver/etsi_en/300400_300499/300468/01.15.01_60/en_300468v011501p.pdf
type DescriptorLinkage struct {
	LinkageType       uint8
	OriginalNetworkID uint16
	ServiceID         uint16
	TransportStreamID uint16
}

func parseDescriptorLinkage(i *astikit.BytesIterator, d *Descriptor) (err error) {
	var bs []byte
	if bs, err = i.NextBytes(7); err != nil {
		err = fmt.Errorf("astidvb: fetching next bytes failed: %w", err)
		return
	}
	d.Linkage = &DescriptorLinkage{
		LinkageType:       bs[6],
		OriginalNetworkID: binary.BigEndian.Uint16(bs[2:]),
		ServiceID:         binary.BigEndian.Uint16(bs[4:]),
		TransportStreamID: binary.BigEndian.Uint16(bs),
	}
	return
}

// DescriptorService represents a service descriptor
// Chapter: 6.2.33 | Link: https://www.etsi.org/deliver/etsi_en/300400_300499/300468/01.15.01_60/en_300468v011501p.pdf
type DescriptorService struct {
	Name     []byte
	Provider []byte
	Type     uint8
}

func parseDescriptorService(i *astikit.BytesIterator, d *Descriptor) (err error) {
	// Get next byte
	var b byte
	if b, err = i.NextByte(); err != nil {
		err = fmt.Errorf("astidvb: fetching next byte failed: %w", err)
		return
	}
	s := &DescriptorService{Type: b}

	// Provider
	if s.Provider, err = nextLengthPrefixedBytes(i); err != nil {
		err = fmt.Errorf("astidvb: fetching provider failed: %w", err)
		return
	}

	// Name
	if s.Name, err = nextLengthPrefixedBytes(i); err != nil {
		err = fmt.Errorf("astidvb: fetching name failed: %w", err)
		return
	}
	d.Service = s
	return
}

// DescriptorShortEvent represents a short event descriptor
// Chapter: 6.2.37 | Link: https://www.etsi.org/deliver/etsi_en/300400_300499/300468/01.15.01_60/en_300468v011501p.pdf
type DescriptorShortEvent struct {
	EventName []byte
	Language  string
	Text      []byte
}

func parseDescriptorShortEvent(i *astikit.BytesIterator, d *Descriptor) (err error) {
	// Language
	s := &DescriptorShortEvent{}
	if s.Language, err = nextLanguage(i); err != nil {
		return
	}

	// Event name
	if s.EventName, err = nextLengthPrefixedBytes(i); err != nil {
		err = fmt.Errorf("astidvb: fetching event name failed: %w", err)
		return
	}

	// Text
	if s.Text, err = nextLengthPrefixedBytes(i); err != nil {
		err = fmt.Errorf("astidvb: fetching text failed: %w", err)
		return
	}
	d.ShortEvent = s
	return
}

// DescriptorExtendedEvent represents an extended event descriptor
// Chapter: 6.2.15 | Link: https://www.etsi.org/deliver/etsi_en/300400_300499/300468/01.15.01_60/en_300468v011501p.pdf
type DescriptorExtendedEvent struct {
	Items                []*DescriptorExtendedEventItem
	Language             string
	LastDescriptorNumber uint8
	Number               uint8
	Text                 []byte
}

// DescriptorExtendedEventItem represents an extended event item descriptor
type DescriptorExtendedEventItem struct {
	Content     []byte
	Description []byte
}

func parseDescriptorExtendedEvent(i *astikit.BytesIterator, d *Descriptor) (err error) {
	// Get next byte
	var b byte
	if b, err = i.NextByte(); err != nil {
		err = fmt.Errorf("astidvb: fetching next byte failed: %w", err)
		return
	}

	// Create descriptor
	e := &DescriptorExtendedEvent{
		LastDescriptorNumber: b & 0xf,
		Number:               b >> 4,
	}

	// Language
	if e.Language, err = nextLanguage(i); err != nil {
		return
	}

	// Items
	var bs []byte
	if bs, err = nextLengthPrefixedBytes(i); err != nil {
		err = fmt.Errorf("astidvb: fetching items failed: %w", err)
		return
	}
	for j := astikit.NewBytesIterator(bs); j.HasBytesLeft(); {
		item := &DescriptorExtendedEventItem{}
		if item.Description, err = nextLengthPrefixedBytes(j); err != nil {
			err = fmt.Errorf("astidvb: fetching item description failed: %w", err)
			return
		}
		if item.Content, err = nextLengthPrefixedBytes(j); err != nil {
			err = fmt.Errorf("astidvb: fetching item content failed: %w", err)
			return
		}
		e.Items = append(e.Items, item)
	}

	// Text
	if e.Text, err = nextLengthPrefixedBytes(i); err != nil {
		err = fmt.Errorf("astidvb: fetching text failed: %w", err)
		return
	}
	d.ExtendedEvent = e
	return
}

// Component stream contents
const (
	StreamContentVideo    = 0x1
	StreamContentAudio    = 0x2
	StreamContentTeletext = 0x3
)

// DescriptorComponent represents a component descriptor
// Chapter: 6.2.8 | Link: https://www.etsi.org/deliver/etsi_en/300400_300499/300468/01.15.01_60/en_300468v011501p.pdf
type DescriptorComponent struct {
	ComponentTag     uint8
	ComponentType    uint8
	Language         string
	StreamContent    uint8
	StreamContentExt uint8
	Text             []byte
}

func parseDescriptorComponent(i *astikit.BytesIterator, d *Descriptor) (err error) {
	// Get next bytes
	var bs []byte
	if bs, err = i.NextBytes(3); err != nil {
		err = fmt.Errorf("astidvb: fetching next bytes failed: %w", err)
		return
	}

	// Create descriptor
	c := &DescriptorComponent{
		ComponentTag:     bs[2],
		ComponentType:    bs[1],
		StreamContent:    bs[0] & 0xf,
		StreamContentExt: bs[0] >> 4,
	}

	// Language
	if c.Language, err = nextLanguage(i); err != nil {
		return
	}

	// Text
	c.Text = i.Dump()
	d.Component = c
	return
}

// DescriptorContent represents a content descriptor
// Chapter: 6.2.9 | Link: https://www.etsi.org/deliver/etsi_en/300400_300499/300468/01.15.01_60/en_300468v011501p.pdf
type DescriptorContent struct {
	Items []*DescriptorContentItem
}

// DescriptorContentItem represents a content item descriptor
type DescriptorContentItem struct {
	ContentNibbleLevel1 uint8
	ContentNibbleLevel2 uint8
	UserByte            uint8
}

// Content returns both nibbles as a single byte
func (i DescriptorContentItem) Content() uint8 {
	return i.ContentNibbleLevel1<<4 | i.ContentNibbleLevel2
}

func parseDescriptorContent(i *astikit.BytesIterator, d *Descriptor) (err error) {
	c := &DescriptorContent{}
	for i.HasBytesLeft() {
		var bs []byte
		if bs, err = i.NextBytes(2); err != nil {
			err = fmt.Errorf("astidvb: fetching next bytes failed: %w", err)
			return
		}
		c.Items = append(c.Items, &DescriptorContentItem{
			ContentNibbleLevel1: bs[0] >> 4,
			ContentNibbleLevel2: bs[0] & 0xf,
			UserByte:            bs[1],
		})
	}
	d.Content = c
	return
}

// DescriptorParentalRating represents a parental rating descriptor
// Chapter: 6.2.28 | Link: https://www.etsi.org/deliver/etsi_en/300400_300499/300468/01.15.01_60/en_300468v011501p.pdf
type DescriptorParentalRating struct {
	Items []*DescriptorParentalRatingItem
}

// DescriptorParentalRatingItem represents a parental rating item descriptor
type DescriptorParentalRatingItem struct {
	CountryCode string
	Rating      uint8
}

// MinimumAge returns the minimum age for the parental rating
// 0 means undefined or broadcaster defined
func (i DescriptorParentalRatingItem) MinimumAge() int {
	if i.Rating > 0 && i.Rating <= 0xf {
		return int(i.Rating) + 3
	}
	return 0
}

func parseDescriptorParentalRating(i *astikit.BytesIterator, d *Descriptor) (err error) {
	r := &DescriptorParentalRating{}
	for i.HasBytesLeft() {
		var bs []byte
		if bs, err = i.NextBytes(4); err != nil {
			err = fmt.Errorf("astidvb: fetching next bytes failed: %w", err)
			return
		}
		r.Items = append(r.Items, &DescriptorParentalRatingItem{
			CountryCode: string(bs[:3]),
			Rating:      bs[3],
		})
	}
	d.ParentalRating = r
	return
}

// DescriptorLocalTimeOffset represents a local time offset descriptor
// Chapter: 6.2.20 | Link: https://www.etsi.org/deliver/etsi_en/300400_300499/300468/01.15.01_60/en_300468v011501p.pdf
type DescriptorLocalTimeOffset struct {
	Items []*DescriptorLocalTimeOffsetItem
}

// DescriptorLocalTimeOffsetItem represents a local time offset item descriptor
type DescriptorLocalTimeOffsetItem struct {
	CountryCode     string
	CountryRegionID uint8
	LocalTimeOffset time.Duration // Signed
	NextTimeOffset  time.Duration // Signed
	TimeOfChange    time.Time
}

func parseDescriptorLocalTimeOffset(i *astikit.BytesIterator, d *Descriptor) (err error) {
	o := &DescriptorLocalTimeOffset{}
	for i.HasBytesLeft() {
		// Country code
		item := &DescriptorLocalTimeOffsetItem{}
		if item.CountryCode, err = nextLanguage(i); err != nil {
			return
		}

		// Get next byte
		var b byte
		if b, err = i.NextByte(); err != nil {
			err = fmt.Errorf("astidvb: fetching next byte failed: %w", err)
			return
		}
		item.CountryRegionID = b >> 2
		negative := b&0x1 > 0

		// Local time offset
		if item.LocalTimeOffset, err = parseDVBDurationMinutes(i); err != nil {
			err = fmt.Errorf("astidvb: parsing local time offset failed: %w", err)
			return
		}

		// Time of change
		var t dvbTime
		if t, err = parseDVBTime(i); err != nil {
			err = fmt.Errorf("astidvb: parsing time of change failed: %w", err)
			return
		}
		item.TimeOfChange = t.time(0)

		// Next time offset
		if item.NextTimeOffset, err = parseDVBDurationMinutes(i); err != nil {
			err = fmt.Errorf("astidvb: parsing next time offset failed: %w", err)
			return
		}

		// Polarity applies to both offsets
		if negative {
			item.LocalTimeOffset = -item.LocalTimeOffset
			item.NextTimeOffset = -item.NextTimeOffset
		}
		o.Items = append(o.Items, item)
	}
	d.LocalTimeOffset = o
	return
}

// DescriptorPrivateDataSpecifier represents a private data specifier descriptor
// Chapter: 6.2.31 | Link: https://www.etsi.org/deliver/etsi_en/300400_300499/300468/01.15.01_60/en_300468v011501p.pdf
type DescriptorPrivateDataSpecifier struct {
	Specifier uint32
}

func parseDescriptorPrivateDataSpecifier(i *astikit.BytesIterator, d *Descriptor) (err error) {
	var bs []byte
	if bs, err = i.NextBytes(4); err != nil {
		err = fmt.Errorf("astidvb: fetching next bytes failed: %w", err)
		return
	}
	d.PrivateDataSpecifier = &DescriptorPrivateDataSpecifier{Specifier: binary.BigEndian.Uint32(bs)}
	return
}

// DescriptorDefaultAuthority represents a default authority descriptor
// Link: https://www.etsi.org/deliver/etsi_ts/102300_102399/102323/01.05.01_60/ts_102323v010501p.pdf
type DescriptorDefaultAuthority struct {
	Authority []byte
}

func parseDescriptorDefaultAuthority(i *astikit.BytesIterator, d *Descriptor) (err error) {
	d.DefaultAuthority = &DescriptorDefaultAuthority{Authority: i.Dump()}
	return
}

// CRID locations
const (
	CRIDLocationDescriptor = 0x0
	CRIDLocationCIT        = 0x1
)

// DescriptorContentIdentifier represents a content identifier descriptor
// Chapter: 12.1 | Link: https://www.etsi.org/deliver/etsi_ts/102300_102399/102323/01.05.01_60/ts_102323v010501p.pdf
type DescriptorContentIdentifier struct {
	Items []*DescriptorContentIdentifierItem
}

// DescriptorContentIdentifierItem represents a content identifier item descriptor
type DescriptorContentIdentifierItem struct {
	CRID          []byte // Only set when carried in the descriptor
	CRIDLocation  uint8
	CRIDReference uint16 // Only set when carried in the content identifier table
	CRIDType      uint8
}

func parseDescriptorContentIdentifier(i *astikit.BytesIterator, d *Descriptor) (err error) {
	c := &DescriptorContentIdentifier{}
	for i.HasBytesLeft() {
		// Get next byte
		var b byte
		if b, err = i.NextByte(); err != nil {
			err = fmt.Errorf("astidvb: fetching next byte failed: %w", err)
			return
		}
		item := &DescriptorContentIdentifierItem{
			CRIDLocation: b & 0x3,
			CRIDType:     b >> 2,
		}

		// Switch on location
		switch item.CRIDLocation {
		case CRIDLocationDescriptor:
			if item.CRID, err = nextLengthPrefixedBytes(i); err != nil {
				err = fmt.Errorf("astidvb: fetching crid failed: %w", err)
				return
			}
		case CRIDLocationCIT:
			var bs []byte
			if bs, err = i.NextBytes(2); err != nil {
				err = fmt.Errorf("astidvb: fetching next bytes failed: %w", err)
				return
			}
			item.CRIDReference = binary.BigEndian.Uint16(bs)
		default:
			// Reserved locations have no known length
			d.ContentIdentifier = c
			return
		}
		c.Items = append(c.Items, item)
	}
	d.ContentIdentifier = c
	return
}

// DescriptorLogicalChannel represents a logical channel descriptor as defined by the EACEM/NorDig/DTG specifications
// It is user defined and therefore parsed on demand
type DescriptorLogicalChannel struct {
	Items []*DescriptorLogicalChannelItem
}

// DescriptorLogicalChannelItem represents a logical channel item descriptor
type DescriptorLogicalChannelItem struct {
	LogicalChannelNumber uint16
	ServiceID            uint16
	Visible              bool
}

func newDescriptorLogicalChannel(payload []byte) (l *DescriptorLogicalChannel, err error) {
	l = &DescriptorLogicalChannel{}
	for i := astikit.NewBytesIterator(payload); i.HasBytesLeft(); {
		var bs []byte
		if bs, err = i.NextBytes(4); err != nil {
			err = fmt.Errorf("astidvb: fetching next bytes failed: %w", err)
			return
		}
		l.Items = append(l.Items, &DescriptorLogicalChannelItem{
			LogicalChannelNumber: uint16(bs[2]&0x3)<<8 | uint16(bs[3]),
			ServiceID:            binary.BigEndian.Uint16(bs),
			Visible:              bs[2]&0x80 > 0,
		})
	}
	return
}
