package astidvb

import (
	"errors"
	"fmt"
	"time"
)

// Scan decodes tables until done returns true, until is reached or the source is exhausted
// A nil done scans until the deadline or the end of the source. Decoding errors are logged and don't stop the scan.
func Scan(dmx *Demuxer, dec *Decoder, until time.Time, done func() bool) (err error) {
	for done == nil || !done() {
		// Next table
		var t *Table
		if t, err = dmx.NextTable(until); err != nil {
			if errors.Is(err, ErrNoMoreTables) {
				err = nil
				return
			}
			err = fmt.Errorf("astidvb: fetching next table failed: %w", err)
			return
		}

		// Decode
		if errDecode := dec.Decode(t); errDecode != nil {
			dec.l.Warnf("astidvb: %s", errDecode)
		}
	}
	return
}
