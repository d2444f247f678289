package astidvb

import (
	"bytes"
	"errors"
	"testing"

	"github.com/asticode/go-astikit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPacket struct {
	adaptationField []byte // Without its length
	cc              uint8
	noPayload       bool
	pid             uint16
	pusi            bool
	payload         []byte
	transportError  bool
}

// bytes builds a 188 bytes packet whose payload is padded with stuffing
func (p testPacket) bytes() []byte {
	// Header
	b1 := uint8(p.pid>>8) & 0x1f
	if p.transportError {
		b1 |= 0x80
	}
	if p.pusi {
		b1 |= 0x40
	}
	b3 := p.cc & 0xf
	if p.adaptationField != nil {
		b3 |= 0x20
	}
	if !p.noPayload {
		b3 |= 0x10
	}

	buf := &bytes.Buffer{}
	w := astikit.NewBitsWriter(astikit.BitsWriterOptions{Writer: buf})
	w.Write(uint8(syncByte))              // Sync byte
	w.Write([]byte{b1, uint8(p.pid), b3}) // Header
	if p.adaptationField != nil {
		w.Write(uint8(len(p.adaptationField))) // Adaptation field length
		w.Write(p.adaptationField)             // Adaptation field
	}
	w.Write(p.payload) // Payload
	w.Write(bytes.Repeat([]byte{0xff}, MpegTsPacketSize-buf.Len()))
	return buf.Bytes()
}

// sectionPackets splits sections into the packets of a PID
func sectionPackets(pid uint16, cc uint8, sections ...[]byte) (bss [][]byte) {
	// Pointer field
	data := append([]byte{0x0}, bytes.Join(sections, nil)...)
	for idx := 0; len(data) > 0; idx++ {
		l := MpegTsPacketSize - 4
		if l > len(data) {
			l = len(data)
		}
		bss = append(bss, testPacket{cc: cc + uint8(idx), pid: pid, pusi: idx == 0, payload: data[:l]}.bytes())
		data = data[l:]
	}
	return
}

func TestParsePacket(t *testing.T) {
	// Packet not starting with a sync byte
	_, err := parsePacket(astikit.NewBytesIterator([]byte{0x0, 0x1}))
	assert.True(t, errors.Is(err, ErrPacketMustStartWithASyncByte))

	// Valid
	p, err := parsePacket(astikit.NewBytesIterator(testPacket{
		adaptationField: []byte{0xc0, 0x1},
		cc:              7,
		pid:             0x1234,
		pusi:            true,
		payload:         []byte("payload"),
	}.bytes()))
	require.NoError(t, err)
	assert.Equal(t, &PacketHeader{
		ContinuityCounter:         7,
		HasAdaptationField:        true,
		HasPayload:                true,
		PayloadUnitStartIndicator: true,
		PID:                       0x1234,
	}, p.Header)
	assert.Equal(t, &PacketAdaptationField{
		DiscontinuityIndicator: true,
		Length:                 2,
		RandomAccessIndicator:  true,
	}, p.AdaptationField)
	assert.Len(t, p.Payload, MpegTsPacketSize-7)
	assert.Equal(t, []byte("payload"), p.Payload[:7])

	// No payload
	p, err = parsePacket(astikit.NewBytesIterator(testPacket{adaptationField: []byte{0x0}, noPayload: true, pid: 0x10}.bytes()))
	require.NoError(t, err)
	assert.Nil(t, p.Payload)

	// Adaptation field overflows
	bs := testPacket{pid: 0x10}.bytes()
	bs[3] |= 0x20
	bs[4] = 0xff
	_, err = parsePacket(astikit.NewBytesIterator(bs))
	assert.Error(t, err)
}

func TestPayloadOffset(t *testing.T) {
	assert.Equal(t, 3, payloadOffset(0, &PacketHeader{}, nil))
	assert.Equal(t, 7, payloadOffset(1, &PacketHeader{HasAdaptationField: true}, &PacketAdaptationField{Length: 2}))
}
