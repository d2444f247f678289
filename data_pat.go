package astidvb

import (
	"encoding/binary"
	"fmt"

	"github.com/asticode/go-astikit"
)

// PATData represents a PAT data
// https://en.wikipedia.org/wiki/Program-specific_information
type PATData struct {
	Programs          []*PATProgram
	TransportStreamID uint16
}

// PATProgram represents a PAT program
type PATProgram struct {
	ProgramMapID  uint16 // The packet identifier that contains the associated PMT
	ProgramNumber uint16 // Relates to the Table ID extension in the associated PMT. A value of 0 is reserved for a NIT packet identifier.
}

// parsePATSection parses a PAT section
func parsePATSection(i *astikit.BytesIterator, tableIDExtension uint16) (d *PATData, err error) {
	// Create data
	d = &PATData{TransportStreamID: tableIDExtension}

	// Loop until end of section data is reached
	for i.HasBytesLeft() {
		// Get next bytes
		var bs []byte
		if bs, err = i.NextBytes(4); err != nil {
			err = fmt.Errorf("astidvb: fetching next bytes failed: %w", err)
			return
		}

		// Append program
		d.Programs = append(d.Programs, &PATProgram{
			ProgramMapID:  binary.BigEndian.Uint16(bs[2:]) & 0x1fff,
			ProgramNumber: binary.BigEndian.Uint16(bs),
		})
	}
	return
}

// decodePAT only logs programs, the registry is not impacted
func (d *Decoder) decodePAT(t *Table) (err error) {
	for _, s := range t.Sections {
		// Parse section
		var pd *PATData
		if pd, err = parsePATSection(astikit.NewBytesIterator(s.Payload()), s.Syntax.TableIDExtension); err != nil {
			err = fmt.Errorf("astidvb: parsing PAT section %d failed: %w", s.Syntax.SectionNumber, err)
			return
		}

		// Log
		for _, p := range pd.Programs {
			if p.ProgramNumber == 0 {
				d.l.Debugf("astidvb: transport stream 0x%04x: network PID 0x%04x", pd.TransportStreamID, p.ProgramMapID)
			} else {
				d.l.Debugf("astidvb: transport stream 0x%04x: program 0x%04x on PID 0x%04x", pd.TransportStreamID, p.ProgramNumber, p.ProgramMapID)
			}
		}
	}
	return
}
