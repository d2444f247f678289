package astidvb

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/asticode/go-astikit"
)

// Sizes
const (
	crc32Size         = 4
	sectionHeaderSize = 3 // table id + flags + section length
	sectionSyntaxSize = 5 // table id extension + version + section number + last section number
)

// PSI table types
const (
	PSITableTypeBAT     = "BAT"
	PSITableTypeCAT     = "CAT"
	PSITableTypeDIT     = "DIT"
	PSITableTypeEIT     = "EIT"
	PSITableTypeNIT     = "NIT"
	PSITableTypeNull    = "Null"
	PSITableTypePAT     = "PAT"
	PSITableTypePMT     = "PMT"
	PSITableTypeRST     = "RST"
	PSITableTypeSDT     = "SDT"
	PSITableTypeSIT     = "SIT"
	PSITableTypeST      = "ST"
	PSITableTypeTDT     = "TDT"
	PSITableTypeTOT     = "TOT"
	PSITableTypeTSDT    = "TSDT"
	PSITableTypeUnknown = "Unknown"
)

// PSITableID represents a table id
type PSITableID uint8

// PSI table ids
// Page: 28 | Chapter: 5.1.3 | Link: https://www.etsi.org/deliver/etsi_en/300400_300499/300468/01.15.01_60/en_300468v011501p.pdf
const (
	PSITableIDPAT       PSITableID = 0x00
	PSITableIDCAT       PSITableID = 0x01
	PSITableIDPMT       PSITableID = 0x02
	PSITableIDTSDT      PSITableID = 0x03
	PSITableIDNITActual PSITableID = 0x40
	PSITableIDNITOther  PSITableID = 0x41
	PSITableIDSDTActual PSITableID = 0x42
	PSITableIDSDTOther  PSITableID = 0x46
	PSITableIDBAT       PSITableID = 0x4a
	PSITableIDEITStart  PSITableID = 0x4e
	PSITableIDEITEnd    PSITableID = 0x6f
	PSITableIDTDT       PSITableID = 0x70
	PSITableIDRST       PSITableID = 0x71
	PSITableIDST        PSITableID = 0x72
	PSITableIDTOT       PSITableID = 0x73
	PSITableIDDIT       PSITableID = 0x7e
	PSITableIDSIT       PSITableID = 0x7f
	PSITableIDNull      PSITableID = 0xff
)

// Errors
var (
	ErrSectionTooShort = errors.New("astidvb: section is too short")
)

// String returns the table type
func (t PSITableID) String() string {
	switch {
	case t == PSITableIDPAT:
		return PSITableTypePAT
	case t == PSITableIDCAT:
		return PSITableTypeCAT
	case t == PSITableIDPMT:
		return PSITableTypePMT
	case t == PSITableIDTSDT:
		return PSITableTypeTSDT
	case t == PSITableIDNITActual, t == PSITableIDNITOther:
		return PSITableTypeNIT
	case t == PSITableIDSDTActual, t == PSITableIDSDTOther:
		return PSITableTypeSDT
	case t == PSITableIDBAT:
		return PSITableTypeBAT
	case t.isEIT():
		return PSITableTypeEIT
	case t == PSITableIDTDT:
		return PSITableTypeTDT
	case t == PSITableIDRST:
		return PSITableTypeRST
	case t == PSITableIDST:
		return PSITableTypeST
	case t == PSITableIDTOT:
		return PSITableTypeTOT
	case t == PSITableIDDIT:
		return PSITableTypeDIT
	case t == PSITableIDSIT:
		return PSITableTypeSIT
	case t == PSITableIDNull:
		return PSITableTypeNull
	default:
		return PSITableTypeUnknown
	}
}

func (t PSITableID) isEIT() bool {
	return t >= PSITableIDEITStart && t <= PSITableIDEITEnd
}

func (t PSITableID) isSDT() bool {
	return t == PSITableIDSDTActual || t == PSITableIDSDTOther
}

// isVersioned checks whether the table carries the version/section/current-next framing
func (t PSITableID) isVersioned() bool {
	switch t {
	case PSITableIDPAT,
		PSITableIDCAT,
		PSITableIDPMT,
		PSITableIDTSDT,
		PSITableIDNITActual, PSITableIDNITOther,
		PSITableIDSDTActual, PSITableIDSDTOther,
		PSITableIDBAT:
		return true
	}
	return t.isEIT()
}

// SectionHeader represents a section header
type SectionHeader struct {
	PrivateBit             bool
	SectionLength          uint16 // Number of bytes following the section length field, CRC32 included
	SectionSyntaxIndicator bool
	TableID                PSITableID
}

// SectionSyntax represents the framing shared by versioned tables
type SectionSyntax struct {
	CurrentNextIndicator bool
	LastSectionNumber    uint8
	SectionNumber        uint8
	TableIDExtension     uint16 // Network id for NIT, transport stream id for PAT and SDT, service id for EIT, program number for PMT
	VersionNumber        uint8
}

// Section represents a section validated by its CRC32
type Section struct {
	Data   []byte // Whole section, CRC32 included
	Header *SectionHeader
	Syntax *SectionSyntax // Only set for versioned tables

	item *bytesPoolItem
}

// sectionLength returns the total section length based on its first bytes
func sectionLength(bs []byte) int {
	return sectionHeaderSize + int(binary.BigEndian.Uint16(bs[1:])&0xfff)
}

// parseSection parses a section
// bs must contain the whole section
func parseSection(bs []byte) (s *Section, err error) {
	// Create iterator
	i := astikit.NewBytesIterator(bs)

	// Parse header
	s = &Section{Data: bs}
	if s.Header, err = parseSectionHeader(i); err != nil {
		err = fmt.Errorf("astidvb: parsing section header failed: %w", err)
		return
	}

	// Section must fit the buffer
	if sectionHeaderSize+int(s.Header.SectionLength) > len(bs) {
		err = fmt.Errorf("astidvb: section length %d exceeds buffer length %d: %w", s.Header.SectionLength, len(bs), ErrSectionTooShort)
		return
	}

	// Non versioned tables have no syntax
	if !s.Header.TableID.isVersioned() {
		return
	}

	// Section must be big enough
	if int(s.Header.SectionLength) < sectionSyntaxSize+crc32Size {
		err = fmt.Errorf("astidvb: %s section length %d: %w", s.Header.TableID, s.Header.SectionLength, ErrSectionTooShort)
		return
	}

	// Parse syntax
	if s.Syntax, err = parseSectionSyntax(i); err != nil {
		err = fmt.Errorf("astidvb: parsing section syntax failed: %w", err)
		return
	}
	return
}

// parseSectionHeader parses a section header
func parseSectionHeader(i *astikit.BytesIterator) (h *SectionHeader, err error) {
	// Get next bytes
	var bs []byte
	if bs, err = i.NextBytes(sectionHeaderSize); err != nil {
		err = fmt.Errorf("astidvb: fetching next bytes failed: %w", err)
		return
	}

	// Create header
	h = &SectionHeader{
		PrivateBit:             bs[1]&0x40 > 0,
		SectionLength:          uint16(bs[1]&0xf)<<8 | uint16(bs[2]),
		SectionSyntaxIndicator: bs[1]&0x80 > 0,
		TableID:                PSITableID(bs[0]),
	}
	return
}

// parseSectionSyntax parses a section syntax
func parseSectionSyntax(i *astikit.BytesIterator) (s *SectionSyntax, err error) {
	// Get next bytes
	var bs []byte
	if bs, err = i.NextBytes(sectionSyntaxSize); err != nil {
		err = fmt.Errorf("astidvb: fetching next bytes failed: %w", err)
		return
	}

	// Create syntax
	s = &SectionSyntax{
		CurrentNextIndicator: bs[2]&0x1 > 0,
		LastSectionNumber:    bs[4],
		SectionNumber:        bs[3],
		TableIDExtension:     binary.BigEndian.Uint16(bs),
		VersionNumber:        bs[2] >> 1 & 0x1f,
	}

	// Section number must be in range
	if s.SectionNumber > s.LastSectionNumber {
		err = fmt.Errorf("astidvb: section number %d is greater than last section number %d", s.SectionNumber, s.LastSectionNumber)
		return
	}
	return
}

// Payload returns the bytes between the section headers and the CRC32
func (s *Section) Payload() []byte {
	offsetStart := sectionHeaderSize
	if s.Syntax != nil {
		offsetStart += sectionSyntaxSize
	}
	offsetEnd := sectionHeaderSize + int(s.Header.SectionLength) - crc32Size
	if offsetEnd < offsetStart {
		return nil
	}
	return s.Data[offsetStart:offsetEnd]
}

// tableKey returns the key of the table the section belongs to
func (s *Section) tableKey() (k TableKey, err error) {
	// Non versioned tables are only identified by their table id
	k.TableID = s.Header.TableID
	if s.Syntax == nil {
		return
	}
	k.CurrentNext = s.Syntax.CurrentNextIndicator

	// Switch on table id
	p := s.Payload()
	switch {
	case k.TableID.isSDT():
		// Original network id is the first payload field
		if len(p) < 2 {
			err = fmt.Errorf("astidvb: SDT payload length %d: %w", len(p), ErrSectionTooShort)
			return
		}
		k.Extension = uint64(binary.BigEndian.Uint16(p))<<16 | uint64(s.Syntax.TableIDExtension)
	case k.TableID.isEIT():
		// Transport stream id and original network id are the first payload fields
		if len(p) < 4 {
			err = fmt.Errorf("astidvb: EIT payload length %d: %w", len(p), ErrSectionTooShort)
			return
		}
		k.Extension = uint64(binary.BigEndian.Uint16(p[2:]))<<32 | uint64(binary.BigEndian.Uint16(p))<<16 | uint64(s.Syntax.TableIDExtension)
	default:
		k.Extension = uint64(s.Syntax.TableIDExtension)
	}
	return
}
