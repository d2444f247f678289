package astidvb

import (
	"unicode/utf8"

	"golang.org/x/text/transform"
)

// ISO/IEC 6937 is the default character set of DVB text fields
// Bytes 0xc1 to 0xcf are non spacing diacritical marks applying to the next byte
// Page: 114 | Annex A | Link: https://www.etsi.org/deliver/etsi_en/300400_300499/300468/01.15.01_60/en_300468v011501p.pdf

// iso6937High maps bytes 0xa0 to 0xff, 0 means undefined
var iso6937High = [96]rune{
	0x00a0, 0x00a1, 0x00a2, 0x00a3, 0x0024, 0x00a5, 0x0023, 0x00a7, 0x00a4, 0x2018, 0x201c, 0x00ab, 0x2190, 0x2191, 0x2192, 0x2193,
	0x00b0, 0x00b1, 0x00b2, 0x00b3, 0x00d7, 0x00b5, 0x00b6, 0x00b7, 0x00f7, 0x2019, 0x201d, 0x00bb, 0x00bc, 0x00bd, 0x00be, 0x00bf,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0x2015, 0x00b9, 0x00ae, 0x00a9, 0x2122, 0x266a, 0x00ac, 0x00a6, 0, 0, 0, 0, 0x215b, 0x215c, 0x215d, 0x215e,
	0x2126, 0x00c6, 0x0110, 0x00aa, 0x0126, 0, 0x0132, 0x013f, 0x0141, 0x00d8, 0x0152, 0x00ba, 0x00de, 0x0166, 0x014a, 0x0149,
	0x0138, 0x00e6, 0x0111, 0x00f0, 0x0127, 0x0131, 0x0133, 0x0140, 0x0142, 0x00f8, 0x0153, 0x00df, 0x00fe, 0x0167, 0x014b, 0x00ad,
}

// iso6937Diacritics maps bytes 0xc0 to 0xcf to combining characters
var iso6937Diacritics = [16]rune{
	0, 0x0300, 0x0301, 0x0302, 0x0303, 0x0304, 0x0306, 0x0307,
	0x0308, 0x0308, 0x030a, 0x0327, 0x0332, 0x030b, 0x0328, 0x030c,
}

func iso6937Rune(b byte) rune {
	if b < 0xa0 {
		return rune(b)
	}
	if r := iso6937High[b-0xa0]; r > 0 {
		return r
	}
	return utf8.RuneError
}

func isISO6937Diacritic(b byte) bool {
	return b >= 0xc1 && b <= 0xcf
}

// iso6937Decoder outputs base characters followed by their combining mark, composition is left to the caller
type iso6937Decoder struct{ transform.NopResetter }

func (iso6937Decoder) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		// Get runes
		b := src[nSrc]
		r, combining, n := iso6937Rune(b), rune(0), 1
		if isISO6937Diacritic(b) {
			if nSrc+1 < len(src) {
				r, combining, n = iso6937Rune(src[nSrc+1]), iso6937Diacritics[b-0xc0], 2
			} else if !atEOF {
				err = transform.ErrShortSrc
				return
			} else {
				// Dangling mark
				r = iso6937Diacritics[b-0xc0]
			}
		}

		// Make sure there's enough room
		size := utf8.RuneLen(r)
		if combining > 0 {
			size += utf8.RuneLen(combining)
		}
		if nDst+size > len(dst) {
			err = transform.ErrShortDst
			return
		}

		// Write
		nDst += utf8.EncodeRune(dst[nDst:], r)
		if combining > 0 {
			nDst += utf8.EncodeRune(dst[nDst:], combining)
		}
		nSrc += n
	}
	return
}
