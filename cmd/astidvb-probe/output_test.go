package main

import (
	"testing"
	"time"

	"github.com/asticode/go-astidvb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChannels(t *testing.T) {
	r := astidvb.NewRegistry()
	tv := r.LocateOrAddService(1, 2, 3)
	tv.Name = "TV"
	tv.Type = astidvb.ServiceTypeDigitalTelevision
	radio := r.LocateOrAddService(1, 2, 4)
	radio.Name = "Radio"
	radio.Type = astidvb.ServiceTypeDigitalRadioSound
	r.LocateOrAddService(1, 2, 5).Name = "Data"
	n := r.LocateOrAddNetwork(1)
	n.Name = "Network"
	n.SetService(radio, false, 800, -1)
	n.SetService(tv, true, 1, -1)

	cs := newChannels(r)
	require.Len(t, cs, 3)
	assert.Equal(t, &Channel{Kind: "tv", LCN: 1, Name: "TV", Network: "Network", OriginalNetworkID: 1, ServiceID: 3, TransportStreamID: 2, Visible: true}, cs[0])
	assert.Equal(t, &Channel{Kind: "radio", LCN: 800, Name: "Radio", Network: "Network", OriginalNetworkID: 1, ServiceID: 4, TransportStreamID: 2}, cs[1])
	assert.Equal(t, &Channel{Kind: "other", Name: "Data", OriginalNetworkID: 1, ServiceID: 5, TransportStreamID: 2, Visible: true}, cs[2])
	assert.Equal(t, "3 channel(s):\n* [1] TV (tv) - IDs: 1.2.3\n* [800] Radio (radio) - IDs: 1.2.4 - Hidden\n* [0] Data (other) - IDs: 1.2.5", cs.String())
}

func TestNewProgrammes(t *testing.T) {
	r := astidvb.NewRegistry()
	s := r.LocateOrAddService(1, 2, 3)
	s.Name = "TV"
	start := time.Date(2024, 1, 10, 20, 0, 0, 0, time.UTC)
	for _, v := range []struct {
		key   string
		start time.Time
		title string
	}{
		{key: "b", start: start.Add(time.Hour), title: "Second"},
		{key: "a", start: start, title: "First"},
	} {
		e := r.LocateOrAddEvent(v.key)
		e.Duration = time.Hour
		e.Service = s
		e.Start = v.start
		e.Titles = []*astidvb.LocalizedText{{Language: "eng", Text: v.title}, {Language: "fra", Text: "Titre"}}
	}

	ps := newProgrammes(r, "eng")
	require.Len(t, ps, 2)
	assert.Equal(t, "First", ps[0].Title)
	assert.Equal(t, "Second", ps[1].Title)
	assert.Equal(t, "2 programme(s):\n* TV | 2024-01-10 20:00 | 1h0m0s | First\n* TV | 2024-01-10 21:00 | 1h0m0s | Second", ps.String())
	assert.Equal(t, "Titre", newProgrammes(r, "fra")[0].Title)
}
