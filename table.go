package astidvb

import (
	"fmt"

	"github.com/asticode/go-astikit"
)

// TableKey identifies a table
// Extension holds the network id for NIT, original network id << 16 | transport stream id for SDT,
// original network id << 32 | transport stream id << 16 | service id for EIT, program number for PMT and
// transport stream id for PAT. It's always 0 for non versioned tables.
type TableKey struct {
	CurrentNext bool
	Extension   uint64
	TableID     PSITableID
}

func (k TableKey) String() string {
	return fmt.Sprintf("%s (id 0x%02x, ext 0x%x, current %v)", k.TableID, uint8(k.TableID), k.Extension, k.CurrentNext)
}

// Table represents a set of sections sharing the same key and version
// Sections are ordered by section number
type Table struct {
	Key      TableKey
	Sections []*Section
	Version  uint8

	complete bool
}

func newTable(k TableKey, s *Section) (t *Table) {
	t = &Table{Key: k}
	t.reset(s)
	return
}

// TableID returns the table id
func (t *Table) TableID() PSITableID {
	return t.Key.TableID
}

func (t *Table) reset(s *Section) {
	t.complete = false
	t.Sections = make([]*Section, int(s.Syntax.LastSectionNumber)+1)
	t.Version = s.Syntax.VersionNumber
}

func (t *Table) isComplete() bool {
	for _, s := range t.Sections {
		if s == nil {
			return false
		}
	}
	return true
}

func (t *Table) release() {
	for idx, s := range t.Sections {
		bytesPool.release(s)
		t.Sections[idx] = nil
	}
}

// tableAssembler gathers sections into tables
type tableAssembler struct {
	l      astikit.CompleteLogger
	tables map[TableKey]*Table
}

func newTableAssembler(l astikit.CompleteLogger) *tableAssembler {
	return &tableAssembler{
		l:      l,
		tables: make(map[TableKey]*Table),
	}
}

// add adds a section to its table and returns the table once it is complete
// bs is copied, it can be reused once add returns
func (a *tableAssembler) add(bs []byte) (t *Table, err error) {
	// Parse section
	var s *Section
	if s, err = parseSection(bs); err != nil {
		err = fmt.Errorf("astidvb: parsing section failed: %w", err)
		return
	}

	// Get key
	var k TableKey
	if k, err = s.tableKey(); err != nil {
		err = fmt.Errorf("astidvb: building table key failed: %w", err)
		return
	}

	// Non versioned tables are complete with a single section and replace the previous one
	if s.Syntax == nil {
		if p, ok := a.tables[k]; ok {
			p.release()
		}
		a.store(s, bs)
		t = &Table{Key: k, Sections: []*Section{s}, complete: true}
		a.tables[k] = t
		return
	}

	// Get table
	p, ok := a.tables[k]
	switch {
	case !ok:
		p = newTable(k, s)
		a.tables[k] = p
	case s.Syntax.VersionNumber > p.Version:
		a.l.Debugf("astidvb: %s superseded: version %d > %d", k, s.Syntax.VersionNumber, p.Version)
		p.release()
		p.reset(s)
	case s.Syntax.VersionNumber < p.Version:
		// Stale
		return
	case p.complete:
		// Already reported
		return
	case int(s.Syntax.LastSectionNumber)+1 != len(p.Sections):
		a.l.Warnf("astidvb: %s version %d: last section number %d doesn't match %d, discarding section", k, p.Version, s.Syntax.LastSectionNumber, len(p.Sections)-1)
		return
	case p.Sections[s.Syntax.SectionNumber] != nil:
		// Duplicate
		return
	}

	// Store section
	a.store(s, bs)
	p.Sections[s.Syntax.SectionNumber] = s

	// Table is not complete yet
	if !p.isComplete() {
		return
	}
	p.complete = true
	t = p
	return
}

func (a *tableAssembler) store(s *Section, bs []byte) {
	s.item = bytesPool.copy(bs[:sectionHeaderSize+int(s.Header.SectionLength)])
	s.Data = s.item.s
}
