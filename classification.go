package astidvb

import "fmt"

// contentCategories maps content bytes (level 1 nibble << 4 | level 2 nibble) to category names
// Chapter: 6.2.9 | Link: https://www.etsi.org/deliver/etsi_en/300400_300499/300468/01.15.01_60/en_300468v011501p.pdf
var contentCategories = map[uint8]string{
	0x10: "Movie / Drama",
	0x11: "Movie - detective/thriller",
	0x12: "Movie - adventure/western/war",
	0x13: "Movie - science fiction/fantasy/horror",
	0x14: "Movie - comedy",
	0x15: "Movie - soap/melodrama/folkloric",
	0x16: "Movie - romance",
	0x17: "Movie - serious/classical/religious/historical movie/drama",
	0x18: "Movie - adult movie/drama",

	0x20: "News / Current Affairs",
	0x21: "news/weather report",
	0x22: "news magazine",
	0x23: "documentary",
	0x24: "discussion/interview/debate",

	0x30: "Show / Game Show",
	0x31: "game show/quiz/contest",
	0x32: "variety show",
	0x33: "talk show",

	0x40: "Sports",
	0x41: "special events (Olympic Games, World Cup etc.)",
	0x42: "sports magazines",
	0x43: "football/soccer",
	0x44: "tennis/squash",
	0x45: "team sports (excluding football)",
	0x46: "athletics",
	0x47: "motor sport",
	0x48: "water sport",
	0x49: "winter sports",
	0x4a: "equestrian",
	0x4b: "martial sports",

	0x50: "Childrens / Youth",
	0x51: "pre-school children's programmes",
	0x52: "entertainment programmes for 6 to14",
	0x53: "entertainment programmes for 10 to 16",
	0x54: "informational/educational/school programmes",
	0x55: "cartoons/puppets",

	0x60: "Music / Ballet / Dance",
	0x61: "rock/pop",
	0x62: "serious music/classical music",
	0x63: "folk/traditional music",
	0x64: "jazz",
	0x65: "musical/opera",
	0x66: "ballet",

	0x70: "Arts / Culture",
	0x71: "performing arts",
	0x72: "fine arts",
	0x73: "religion",
	0x74: "popular culture/traditional arts",
	0x75: "literature",
	0x76: "film/cinema",
	0x77: "experimental film/video",
	0x78: "broadcasting/press",
	0x79: "new media",
	0x7a: "arts/culture magazines",
	0x7b: "fashion",

	0x80: "Social / Policical / Economics",
	0x81: "magazines/reports/documentary",
	0x82: "economics/social advisory",
	0x83: "remarkable people",

	0x90: "Education / Science / Factual",
	0x91: "nature/animals/environment",
	0x92: "technology/natural sciences",
	0x93: "medicine/physiology/psychology",
	0x94: "foreign countries/expeditions",
	0x95: "social/spiritual sciences",
	0x96: "further education",
	0x97: "languages",

	0xa0: "Leisure / Hobbies",
	0xa1: "tourism/travel",
	0xa2: "handicraft",
	0xa3: "motoring",
	0xa4: "fitness & health",
	0xa5: "cooking",
	0xa6: "advertizement/shopping",
	0xa7: "gardening",

	0xb0: "Original Language",
	0xb1: "black & white",
	0xb2: "unpublished",
	0xb3: "live broadcast",

	// UK Freeview
	0xf0: "Drama",
}

// ContentCategoryName returns the name of a content byte
func ContentCategoryName(content uint8) (name string, ok bool) {
	name, ok = contentCategories[content]
	return
}

// Aspect represents a video aspect ratio
type Aspect uint8

// Aspects
const (
	Aspect4_3       Aspect = 0x0
	Aspect16_9      Aspect = 0x1 // With pan vectors
	Aspect16_9NoPan Aspect = 0x2
	Aspect2_21_1    Aspect = 0x3
	AspectInvalid   Aspect = 0xff
)

// aspectFromComponentType converts a video component type into an aspect
// Component types 0x01 to 0x10 cycle through the 4 aspects for every resolution and frame rate
func aspectFromComponentType(componentType uint8) Aspect {
	return Aspect((componentType - 1) & 0x3)
}

func (a Aspect) String() string {
	switch a {
	case Aspect4_3:
		return "4:3"
	case Aspect16_9, Aspect16_9NoPan:
		return "16:9"
	case Aspect2_21_1:
		return "2.21:1"
	}
	return ""
}

// Audio represents an audio configuration
type Audio uint8

// Audios
const (
	AudioInvalid         Audio = 0x0
	AudioMono            Audio = 0x1
	AudioDualMono        Audio = 0x2
	AudioStereo          Audio = 0x3
	AudioMultichannel    Audio = 0x4
	AudioSurround        Audio = 0x5
	AudioVisuallyImpared Audio = 0x40
	AudioHardOfHearing   Audio = 0x41
)

func (a Audio) String() string {
	switch a {
	case AudioMono, AudioDualMono:
		return "mono"
	case AudioStereo:
		return "stereo"
	case AudioMultichannel:
		return "x-multilingual"
	case AudioSurround:
		return "surround"
	case AudioVisuallyImpared:
		return "x-visuallyimpared"
	case AudioHardOfHearing:
		return "x-hardofhearing"
	}
	return ""
}

// CRID types
// Chapter: 12.1 | Link: https://www.etsi.org/deliver/etsi_ts/102300_102399/102323/01.05.01_60/ts_102323v010501p.pdf
const (
	CRIDTypeProgramme        = 0x01
	CRIDTypeSeries           = 0x02
	CRIDTypeRecommendation   = 0x03
	CRIDTypeProgrammeUK      = 0x31
	CRIDTypeSeriesUK         = 0x32
	CRIDTypeRecommendationUK = 0x33
)

// CRIDTypeName returns the name of a CRID type
func CRIDTypeName(t uint8) string {
	switch t {
	case CRIDTypeProgramme, CRIDTypeProgrammeUK:
		return "programme"
	case CRIDTypeSeries, CRIDTypeSeriesUK:
		return "series"
	case CRIDTypeRecommendation, CRIDTypeRecommendationUK:
		return "recommendation"
	}
	return fmt.Sprintf("0x%02x", t)
}

func isPrimaryCRIDType(t uint8) bool {
	return t == CRIDTypeProgramme || t == CRIDTypeProgrammeUK
}

func isSecondaryCRIDType(t uint8) bool {
	return t == CRIDTypeSeries || t == CRIDTypeSeriesUK
}
