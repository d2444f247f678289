package astidvb

import (
	"encoding/binary"
	"fmt"

	"github.com/asticode/go-astikit"
)

// NITData represents a NIT data
// Page: 29 | Chapter: 5.2.1 | Link: https://www.etsi.org/deliver/etsi_en/300400_300499/300468/01.15.01_60/en_300468v011501p.pdf
type NITData struct {
	NetworkDescriptors []*Descriptor
	NetworkID          uint16
	TransportStreams   []*NITDataTransportStream
}

// NITDataTransportStream represents a NIT data transport stream
type NITDataTransportStream struct {
	OriginalNetworkID    uint16
	TransportDescriptors []*Descriptor
	TransportStreamID    uint16
}

// parseNITSection parses a NIT section
func parseNITSection(i *astikit.BytesIterator, tableIDExtension uint16) (d *NITData, err error) {
	// Create data
	d = &NITData{NetworkID: tableIDExtension}

	// Network descriptors
	if d.NetworkDescriptors, err = parseDescriptorLoop(i); err != nil {
		err = fmt.Errorf("astidvb: parsing network descriptors failed: %w", err)
		return
	}

	// Get next bytes
	var bs []byte
	if bs, err = i.NextBytes(2); err != nil {
		err = fmt.Errorf("astidvb: fetching next bytes failed: %w", err)
		return
	}

	// Transport stream loop
	if bs, err = i.NextBytes(int(binary.BigEndian.Uint16(bs) & 0xfff)); err != nil {
		err = fmt.Errorf("astidvb: fetching transport stream loop failed: %w", err)
		return
	}
	for j := astikit.NewBytesIterator(bs); j.HasBytesLeft(); {
		// Get next bytes
		if bs, err = j.NextBytes(4); err != nil {
			err = fmt.Errorf("astidvb: fetching next bytes failed: %w", err)
			return
		}

		// Create transport stream
		ts := &NITDataTransportStream{
			OriginalNetworkID: binary.BigEndian.Uint16(bs[2:]),
			TransportStreamID: binary.BigEndian.Uint16(bs),
		}

		// Transport descriptors
		if ts.TransportDescriptors, err = parseDescriptorLoop(j); err != nil {
			err = fmt.Errorf("astidvb: parsing transport descriptors of transport stream 0x%04x failed: %w", ts.TransportStreamID, err)
			return
		}
		d.TransportStreams = append(d.TransportStreams, ts)
	}
	return
}

// isNITTransportDescriptorTag checks whether the tag is a known transport stream descriptor that is not decoded
func isNITTransportDescriptorTag(t DescriptorTag) bool {
	switch t {
	case DescriptorTagServiceList,
		DescriptorTagStuffing,
		DescriptorTagSatelliteDeliverySystem,
		DescriptorTagCableDeliverySystem,
		DescriptorTagTerrestrialDelivery,
		DescriptorTagMultilingualNetworkName,
		DescriptorTagPrivateDataSpecifier,
		DescriptorTagFrequencyList,
		DescriptorTagCellList,
		DescriptorTagCellFrequencyLink,
		DescriptorTagDefaultAuthority,
		DescriptorTagTimeSliceFECIdentifier,
		DescriptorTagS2SatelliteDelivery,
		DescriptorTagXAITLocation,
		DescriptorTagFTAContentManagement,
		DescriptorTagExtension:
		return true
	}
	return false
}

func (d *Decoder) decodeNIT(t *Table) (err error) {
	// Next tables describe a topology that is not active yet
	if !t.Key.CurrentNext {
		return
	}

	// Same or older version
	n := d.r.LocateOrAddNetwork(uint16(t.Key.Extension))
	if n.Version >= int(t.Version) {
		return
	}

	// The network is only updated once every section has been parsed
	nds := make([]*NITData, 0, len(t.Sections))
	for _, s := range t.Sections {
		var nd *NITData
		if nd, err = parseNITSection(astikit.NewBytesIterator(s.Payload()), s.Syntax.TableIDExtension); err != nil {
			err = fmt.Errorf("astidvb: parsing NIT section %d failed: %w", s.Syntax.SectionNumber, err)
			return
		}
		nds = append(nds, nd)
	}
	n.Reset()
	n.Version = int(t.Version)

	// Loop through sections
	for _, nd := range nds {
		// Network descriptors
		for _, ds := range nd.NetworkDescriptors {
			switch {
			case ds.malformed:
			case ds.NetworkName != nil:
				if name, ok := d.decodeText("network name", ds.NetworkName.Name); ok {
					n.Name = name
				}
			case ds.Linkage != nil:
				d.l.Debugf("astidvb: %s: linkage type 0x%02x to %s", n.URI, ds.Linkage.LinkageType,
					serviceURI(ds.Linkage.OriginalNetworkID, ds.Linkage.TransportStreamID, ds.Linkage.ServiceID))
			case isNITTransportDescriptorTag(ds.Tag):
				d.l.Debugf("astidvb: %s: skipping network descriptor 0x%02x", n.URI, uint8(ds.Tag))
			default:
				d.logDescriptor(n.URI, ds)
			}
		}

		// Transport streams
		for _, ts := range nd.TransportStreams {
			// Associate
			p := d.r.LocateOrAddPlatform(ts.OriginalNetworkID)
			m := d.r.LocateOrAddMultiplex(ts.OriginalNetworkID, ts.TransportStreamID)
			m.Platform = p
			n.AddMultiplex(m)

			// Transport descriptors
			for _, ds := range ts.TransportDescriptors {
				switch {
				case ds.Tag == DescriptorTagLogicalChannel:
					d.decodeLogicalChannels(n, m, ds)
				case isNITTransportDescriptorTag(ds.Tag):
					d.l.Debugf("astidvb: %s: skipping transport descriptor 0x%02x", m.URI, uint8(ds.Tag))
				default:
					d.logDescriptor(m.URI, ds)
				}
			}
		}
	}

	// Notify
	d.h.OnNetwork(n)
	return
}

func (d *Decoder) decodeLogicalChannels(n *Network, m *Multiplex, ds *Descriptor) {
	// Parse
	l, err := newDescriptorLogicalChannel(ds.Payload)
	if err != nil {
		d.l.Warnf("astidvb: %s: parsing logical channel descriptor failed: %s", n.URI, err)
		return
	}

	// Loop through items
	for _, item := range l.Items {
		s := d.r.LocateOrAddService(m.OriginalNetworkID, m.TransportStreamID, item.ServiceID)
		s.Multiplex = m
		n.SetService(s, item.Visible, int(item.LogicalChannelNumber), -1)
	}
}
