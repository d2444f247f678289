package astidvb

const (
	crc32Polynomial = uint32(0x04c11db7)
	crc32Init       = uint32(0xffffffff)
)

// tableCRC32 is the MSB-first lookup table of the MPEG-2 CRC32
var tableCRC32 = newTableCRC32()

func newTableCRC32() (t [256]uint32) {
	for i := range t {
		c := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if c&0x80000000 > 0 {
				c = (c << 1) ^ crc32Polynomial
			} else {
				c <<= 1
			}
		}
		t[i] = c
	}
	return
}

// this solution based on vlc implementation + static crc table
// https://github.com/videolan/vlc/blob/master/modules/mux/mpeg/ps.c

func computeCRC32(bs []byte) uint32 {
	return updateCRC32(crc32Init, bs)
}

func updateCRC32(iCrc uint32, bs []byte) uint32 {
	for _, b := range bs {
		iCrc = (iCrc << 8) ^ tableCRC32[((iCrc>>24)^uint32(b))&0xff]
	}
	return iCrc
}

// validCRC32 checks whether a section closes to a zero residue once its own CRC32 trailer is included
// There's no final XOR so a valid span always sums to 0
func validCRC32(bs []byte) bool {
	return len(bs) >= crc32Size && computeCRC32(bs) == 0
}
