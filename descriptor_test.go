package astidvb

import (
	"bytes"
	"testing"
	"time"

	"github.com/asticode/go-astikit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func descriptorBytes(tag DescriptorTag, payload []byte) []byte {
	return append([]byte{uint8(tag), uint8(len(payload))}, payload...)
}

func descriptorLoopBytes(ds ...[]byte) []byte {
	buf := &bytes.Buffer{}
	for _, d := range ds {
		buf.Write(d)
	}
	return buf.Bytes()
}

func TestParseDescriptors(t *testing.T) {
	buf := &bytes.Buffer{}
	w := astikit.NewBitsWriter(astikit.BitsWriterOptions{Writer: buf})
	// Network name
	w.Write(uint8(DescriptorTagNetworkName)) // Tag
	w.Write(uint8(4))                        // Length
	w.Write([]byte("name"))                  // Name
	// Service
	w.Write(uint8(DescriptorTagService)) // Tag
	w.Write(uint8(18))                   // Length
	w.Write(uint8(1))                    // Type
	w.Write(uint8(8))                    // Provider name length
	w.Write([]byte("provider"))          // Provider name
	w.Write(uint8(7))                    // Service name length
	w.Write([]byte("service"))           // Service name
	// Linkage
	w.Write(uint8(DescriptorTagLinkage)) // Tag
	w.Write(uint8(8))                    // Length
	w.Write(uint16(1))                   // Transport stream id
	w.Write(uint16(2))                   // Original network id
	w.Write(uint16(3))                   // Service id
	w.Write(uint8(4))                    // Linkage type
	w.Write(uint8(0xff))                 // Private data
	// Short event
	w.Write(uint8(DescriptorTagShortEvent)) // Tag
	w.Write(uint8(14))                      // Length
	w.Write([]byte("eng"))                  // Language code
	w.Write(uint8(5))                       // Event name length
	w.Write([]byte("event"))                // Event name
	w.Write(uint8(4))                       // Text length
	w.Write([]byte("text"))                 // Text
	// Extended event
	w.Write(uint8(DescriptorTagExtendedEvent)) // Tag
	w.Write(uint8(22))                         // Length
	w.Write("0001")                            // Number
	w.Write("0010")                            // Last descriptor number
	w.Write([]byte("fra"))                     // Language code
	w.Write(uint8(12))                         // Length of items
	w.Write(uint8(8))                          // Item #1 description length
	w.Write([]byte("director"))                // Item #1 description
	w.Write(uint8(2))                          // Item #1 content length
	w.Write([]byte("me"))                      // Item #1 content
	w.Write(uint8(4))                          // Text length
	w.Write([]byte("text"))                    // Text
	// Component
	w.Write(uint8(DescriptorTagComponent)) // Tag
	w.Write(uint8(10))                     // Length
	w.Write("0000")                        // Stream content ext
	w.Write("0010")                        // Stream content
	w.Write(uint8(3))                      // Component type
	w.Write(uint8(4))                      // Component tag
	w.Write([]byte("deu"))                 // Language code
	w.Write([]byte("text"))                // Text
	// Content
	w.Write(uint8(DescriptorTagContent)) // Tag
	w.Write(uint8(4))                    // Length
	w.Write("0001")                      // Item #1 content nibble level 1
	w.Write("0010")                      // Item #1 content nibble level 2
	w.Write(uint8(3))                    // Item #1 user byte
	w.Write("0100")                      // Item #2 content nibble level 1
	w.Write("0011")                      // Item #2 content nibble level 2
	w.Write(uint8(0))                    // Item #2 user byte
	// Parental rating
	w.Write(uint8(DescriptorTagParentalRating)) // Tag
	w.Write(uint8(4))                           // Length
	w.Write([]byte("gbr"))                      // Country code
	w.Write(uint8(9))                           // Rating
	// Local time offset
	w.Write(uint8(DescriptorTagLocalTimeOffset)) // Tag
	w.Write(uint8(13))                           // Length
	w.Write([]byte("fra"))                       // Country code
	w.Write("000001")                            // Country region id
	w.Write("0")                                 // Reserved
	w.Write("1")                                 // Polarity
	w.Write([]byte{0x01, 0x00})                  // Local time offset
	w.Write(dvbTimeBytes(time.Date(2024, 3, 31, 1, 0, 0, 0, time.UTC))) // Time of change
	w.Write([]byte{0x02, 0x00})                                         // Next time offset
	// Private data specifier
	w.Write(uint8(DescriptorTagPrivateDataSpecifier)) // Tag
	w.Write(uint8(4))                                 // Length
	w.Write(uint32(PrivateDataSpecifierARDZDFORF))    // Specifier
	// Default authority
	w.Write(uint8(DescriptorTagDefaultAuthority)) // Tag
	w.Write(uint8(11))                            // Length
	w.Write([]byte("bbc.co.uk/x"))                // Authority
	// Content identifier
	w.Write(uint8(DescriptorTagContentIdentifier)) // Tag
	w.Write(uint8(9))                              // Length
	w.Write("000001")                              // Item #1 type
	w.Write("00")                                  // Item #1 location
	w.Write(uint8(4))                              // Item #1 length
	w.Write([]byte("/abc"))                        // Item #1 crid
	w.Write("000010")                              // Item #2 type
	w.Write("01")                                  // Item #2 location
	w.Write(uint16(0x1234))                        // Item #2 reference
	// User defined
	w.Write(uint8(DescriptorTagLogicalChannel)) // Tag
	w.Write(uint8(4))                           // Length
	w.Write(uint16(0x10))                       // Service id
	w.Write("1")                                // Visible
	w.Write("11111")                            // Reserved
	w.Write("0000000111")                       // Logical channel number
	// Unknown
	w.Write(uint8(0x20)) // Tag
	w.Write(uint8(1))    // Length
	w.Write(uint8(7))    // Payload

	ds, err := parseDescriptors(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, ds, 14)

	assert.Equal(t, &DescriptorNetworkName{Name: []byte("name")}, ds[0].NetworkName)
	assert.Equal(t, &DescriptorService{Name: []byte("service"), Provider: []byte("provider"), Type: 1}, ds[1].Service)
	assert.Equal(t, &DescriptorLinkage{LinkageType: 4, OriginalNetworkID: 2, ServiceID: 3, TransportStreamID: 1}, ds[2].Linkage)
	assert.Equal(t, &DescriptorShortEvent{EventName: []byte("event"), Language: "eng", Text: []byte("text")}, ds[3].ShortEvent)
	assert.Equal(t, &DescriptorExtendedEvent{
		Items:                []*DescriptorExtendedEventItem{{Content: []byte("me"), Description: []byte("director")}},
		Language:             "fra",
		LastDescriptorNumber: 2,
		Number:               1,
		Text:                 []byte("text"),
	}, ds[4].ExtendedEvent)
	assert.Equal(t, &DescriptorComponent{ComponentTag: 4, ComponentType: 3, Language: "deu", StreamContent: StreamContentAudio, Text: []byte("text")}, ds[5].Component)
	assert.Equal(t, &DescriptorContent{Items: []*DescriptorContentItem{
		{ContentNibbleLevel1: 1, ContentNibbleLevel2: 2, UserByte: 3},
		{ContentNibbleLevel1: 4, ContentNibbleLevel2: 3},
	}}, ds[6].Content)
	assert.Equal(t, uint8(0x43), ds[6].Content.Items[1].Content())
	assert.Equal(t, &DescriptorParentalRating{Items: []*DescriptorParentalRatingItem{{CountryCode: "gbr", Rating: 9}}}, ds[7].ParentalRating)
	assert.Equal(t, 12, ds[7].ParentalRating.Items[0].MinimumAge())
	assert.Equal(t, &DescriptorLocalTimeOffset{Items: []*DescriptorLocalTimeOffsetItem{{
		CountryCode:     "fra",
		CountryRegionID: 1,
		LocalTimeOffset: -time.Hour,
		NextTimeOffset:  -2 * time.Hour,
		TimeOfChange:    time.Date(2024, 3, 31, 1, 0, 0, 0, time.UTC),
	}}}, ds[8].LocalTimeOffset)
	assert.Equal(t, &DescriptorPrivateDataSpecifier{Specifier: PrivateDataSpecifierARDZDFORF}, ds[9].PrivateDataSpecifier)
	assert.Equal(t, &DescriptorDefaultAuthority{Authority: []byte("bbc.co.uk/x")}, ds[10].DefaultAuthority)
	assert.Equal(t, &DescriptorContentIdentifier{Items: []*DescriptorContentIdentifierItem{
		{CRID: []byte("/abc"), CRIDLocation: CRIDLocationDescriptor, CRIDType: 1},
		{CRIDLocation: CRIDLocationCIT, CRIDReference: 0x1234, CRIDType: 2},
	}}, ds[11].ContentIdentifier)

	// User defined tags are parsed on demand
	assert.True(t, ds[12].Tag.isUserDefined())
	l, err := newDescriptorLogicalChannel(ds[12].Payload)
	require.NoError(t, err)
	assert.Equal(t, &DescriptorLogicalChannel{Items: []*DescriptorLogicalChannelItem{{LogicalChannelNumber: 7, ServiceID: 0x10, Visible: true}}}, l)

	// Unknown tags keep their payload
	assert.Equal(t, DescriptorTag(0x20), ds[13].Tag)
	assert.Equal(t, []byte{7}, ds[13].Payload)
	assert.False(t, ds[13].Tag.isUserDefined())
}

func TestParseDescriptorsBounds(t *testing.T) {
	// Length overruns the loop
	_, err := parseDescriptors([]byte{uint8(DescriptorTagNetworkName), 5, 'a', 'b'})
	assert.Error(t, err)

	// Truncated header
	_, err = parseDescriptors([]byte{uint8(DescriptorTagNetworkName)})
	assert.Error(t, err)

	// Empty loop
	ds, err := parseDescriptors(nil)
	assert.NoError(t, err)
	assert.Empty(t, ds)
}

func TestParseDescriptorsMalformed(t *testing.T) {
	// Malformed descriptors keep their payload and don't stop the loop
	ds, err := parseDescriptors(descriptorLoopBytes(
		descriptorBytes(DescriptorTagShortEvent, []byte{'e', 'n', 'g', 10, 'a'}),
		descriptorBytes(DescriptorTagContent, []byte{0x12, 0x03, 0x43}),
		descriptorBytes(DescriptorTagLinkage, []byte{0x10, 0x01, 0x23}),
		descriptorBytes(DescriptorTagNetworkName, []byte("name")),
	))
	require.NoError(t, err)
	require.Len(t, ds, 4)
	assert.Equal(t, &Descriptor{Length: 5, Payload: []byte{'e', 'n', 'g', 10, 'a'}, Tag: DescriptorTagShortEvent, malformed: true}, ds[0])
	assert.Equal(t, &Descriptor{Length: 3, Payload: []byte{0x12, 0x03, 0x43}, Tag: DescriptorTagContent, malformed: true}, ds[1])
	assert.Equal(t, &Descriptor{Length: 3, Payload: []byte{0x10, 0x01, 0x23}, Tag: DescriptorTagLinkage, malformed: true}, ds[2])
	assert.Equal(t, []byte("name"), ds[3].NetworkName.Name)
}

func TestParseDescriptorLoop(t *testing.T) {
	bs := append([]byte{0xf0, 0x06}, descriptorBytes(DescriptorTagNetworkName, []byte("name"))...)
	bs = append(bs, 0xaa)
	i := astikit.NewBytesIterator(bs)
	ds, err := parseDescriptorLoop(i)
	require.NoError(t, err)
	require.Len(t, ds, 1)
	assert.Equal(t, []byte("name"), ds[0].NetworkName.Name)
	assert.Equal(t, 8, i.Offset())

	// Loop length overruns the buffer
	_, err = parseDescriptorLoop(astikit.NewBytesIterator([]byte{0x00, 0x10, 0x40}))
	assert.Error(t, err)
}

func TestDescriptorParentalRatingMinimumAge(t *testing.T) {
	assert.Equal(t, 0, DescriptorParentalRatingItem{}.MinimumAge())
	assert.Equal(t, 4, DescriptorParentalRatingItem{Rating: 1}.MinimumAge())
	assert.Equal(t, 18, DescriptorParentalRatingItem{Rating: 0xf}.MinimumAge())
	assert.Equal(t, 0, DescriptorParentalRatingItem{Rating: 0x10}.MinimumAge())
}
