package astidvb

import (
	"encoding/binary"
	"fmt"

	"github.com/asticode/go-astikit"
)

// Running statuses
const (
	RunningStatusNotRunning          = 1
	RunningStatusPausing             = 3
	RunningStatusRunning             = 4
	RunningStatusServiceOffAir       = 5
	RunningStatusStartsInAFewSeconds = 2
	RunningStatusUndefined           = 0
)

// SDTData represents an SDT data
// Page: 33 | Chapter: 5.2.3 | Link: https://www.etsi.org/deliver/etsi_en/300400_300499/300468/01.15.01_60/en_300468v011501p.pdf
type SDTData struct {
	OriginalNetworkID uint16
	Services          []*SDTDataService
	TransportStreamID uint16
}

// SDTDataService represents an SDT data service
type SDTDataService struct {
	Descriptors            []*Descriptor
	HasEITPresentFollowing bool // When true indicates that EIT present/following information for the service is present in the current TS
	HasEITSchedule         bool // When true indicates that EIT schedule information for the service is present in the current TS
	HasFreeCSAMode         bool // When true indicates that access to one or more streams may be controlled by a CA system.
	RunningStatus          uint8
	ServiceID              uint16
}

// parseSDTSection parses an SDT section
func parseSDTSection(i *astikit.BytesIterator, tableIDExtension uint16) (d *SDTData, err error) {
	// Create data
	d = &SDTData{TransportStreamID: tableIDExtension}

	// Get next bytes
	var bs []byte
	if bs, err = i.NextBytes(3); err != nil {
		err = fmt.Errorf("astidvb: fetching next bytes failed: %w", err)
		return
	}
	d.OriginalNetworkID = binary.BigEndian.Uint16(bs)

	// Loop until end of section data is reached
	for i.HasBytesLeft() {
		// Get next bytes
		if bs, err = i.NextBytes(3); err != nil {
			err = fmt.Errorf("astidvb: fetching next bytes failed: %w", err)
			return
		}

		// Create service
		s := &SDTDataService{
			HasEITPresentFollowing: bs[2]&0x1 > 0,
			HasEITSchedule:         bs[2]&0x2 > 0,
			ServiceID:              binary.BigEndian.Uint16(bs),
		}

		// Running status, free CA mode and descriptors loop length share the same bytes
		if bs, err = i.NextBytes(2); err != nil {
			err = fmt.Errorf("astidvb: fetching next bytes failed: %w", err)
			return
		}
		s.HasFreeCSAMode = bs[0]&0x10 > 0
		s.RunningStatus = bs[0] >> 5

		// Descriptors
		if bs, err = i.NextBytes(int(binary.BigEndian.Uint16(bs) & 0xfff)); err != nil {
			err = fmt.Errorf("astidvb: fetching descriptors of service 0x%04x failed: %w", s.ServiceID, err)
			return
		}
		if s.Descriptors, err = parseDescriptors(bs); err != nil {
			err = fmt.Errorf("astidvb: parsing descriptors of service 0x%04x failed: %w", s.ServiceID, err)
			return
		}
		d.Services = append(d.Services, s)
	}
	return
}

func (d *Decoder) decodeSDT(t *Table) (err error) {
	// Next tables describe services that are not active yet
	if !t.Key.CurrentNext {
		return
	}

	// Loop through sections
	for _, s := range t.Sections {
		// Parse section
		var sd *SDTData
		if sd, err = parseSDTSection(astikit.NewBytesIterator(s.Payload()), s.Syntax.TableIDExtension); err != nil {
			err = fmt.Errorf("astidvb: parsing SDT section %d failed: %w", s.Syntax.SectionNumber, err)
			return
		}

		// Loop through services
		m := d.r.LocateOrAddMultiplex(sd.OriginalNetworkID, sd.TransportStreamID)
		for _, ss := range sd.Services {
			// Get service
			svc := d.r.LocateOrAddService(sd.OriginalNetworkID, sd.TransportStreamID, ss.ServiceID)
			if svc.Version != int(t.Version) {
				svc.Reset()
				svc.Version = int(t.Version)
			}
			svc.Multiplex = m

			// Loop through descriptors
			for _, ds := range ss.Descriptors {
				switch {
				case ds.malformed:
				case ds.Service != nil:
					svc.Type = ServiceType(ds.Service.Type)
					if provider, ok := d.decodeText("service provider", ds.Service.Provider); ok {
						svc.Provider = provider
					}
					if name, ok := d.decodeText("service name", ds.Service.Name); ok {
						svc.Name = name
					}
				case ds.DefaultAuthority != nil:
					svc.Authority = string(ds.DefaultAuthority.Authority)
				case ds.Tag == DescriptorTagNVODReference,
					ds.Tag == DescriptorTagCAIdentifier,
					ds.Tag == DescriptorTagPrivateDataSpecifier,
					ds.Tag == DescriptorTagFTAContentManagement:
					d.l.Warnf("astidvb: %s: skipping descriptor 0x%02x", svc.URI, uint8(ds.Tag))
				default:
					d.logDescriptor(svc.URI, ds)
				}
			}

			// Notify
			d.h.OnService(svc)
		}
	}
	return
}
