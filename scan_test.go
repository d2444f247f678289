package astidvb

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScan(t *testing.T) {
	// Invalid tables don't stop the scan
	invalid := testSection{currentNext: true, ext: 0x3002, payload: []byte{0xf0, 0x05}, tableID: PSITableIDNITActual}.bytes()
	valid := testSection{currentNext: true, ext: 0x3001, payload: nitPayload("name"), tableID: PSITableIDNITActual}.bytes()
	r := NewRegistry()
	h := &testHandler{}
	require.NoError(t, Scan(NewDemuxer(context.Background(), bytes.NewReader(testStream(invalid, valid))), NewDecoder(r, DecoderOptHandler(h)), time.Time{}, nil))
	require.Len(t, h.networks, 1)
	assert.Equal(t, "name", h.networks[0].Name)

	// Done stops the scan
	r = NewRegistry()
	h = &testHandler{}
	other := testSection{currentNext: true, ext: 0x3003, payload: nitPayload("other"), tableID: PSITableIDNITActual}.bytes()
	require.NoError(t, Scan(
		NewDemuxer(context.Background(), bytes.NewReader(testStream(valid, other))),
		NewDecoder(r, DecoderOptHandler(h)),
		time.Time{},
		func() bool { return len(h.networks) > 0 },
	))
	assert.Len(t, h.networks, 1)
	assert.Nil(t, r.LocateNetwork(0x3003))

	// Read errors are returned
	errFatal := errors.New("fatal")
	err := Scan(NewDemuxer(context.Background(), failingReader{err: errFatal}), NewDecoder(r), time.Time{}, nil)
	assert.True(t, errors.Is(err, errFatal))
}
