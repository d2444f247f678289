package astidvb

// ServiceType represents a service type
type ServiceType uint8

// Service types
// Chapter: 6.2.33 | Link: https://www.etsi.org/deliver/etsi_en/300400_300499/300468/01.15.01_60/en_300468v011501p.pdf
const (
	ServiceTypeDigitalTelevision         ServiceType = 0x01
	ServiceTypeDigitalRadioSound         ServiceType = 0x02
	ServiceTypeTeletext                  ServiceType = 0x03
	ServiceTypeNVODReference             ServiceType = 0x04
	ServiceTypeNVODTimeShifted           ServiceType = 0x05
	ServiceTypeMosaic                    ServiceType = 0x06
	ServiceTypeFMRadio                   ServiceType = 0x07
	ServiceTypeAdvancedCodecDigitalRadio ServiceType = 0x0a
	ServiceTypeDataBroadcast             ServiceType = 0x0c
	ServiceTypeAdvancedCodecSDTelevision ServiceType = 0x16
	ServiceTypeAdvancedCodecHDTelevision ServiceType = 0x19
	ServiceTypeHEVCDigitalTelevision     ServiceType = 0x1f
	ServiceTypeReserved                  ServiceType = 0xff
)

// IsTelevision checks whether the service carries video
func (t ServiceType) IsTelevision() bool {
	switch t {
	case ServiceTypeDigitalTelevision,
		ServiceTypeNVODTimeShifted,
		ServiceTypeAdvancedCodecSDTelevision,
		ServiceTypeAdvancedCodecHDTelevision,
		ServiceTypeHEVCDigitalTelevision:
		return true
	}
	return false
}

// IsRadio checks whether the service only carries sound
func (t ServiceType) IsRadio() bool {
	return t == ServiceTypeDigitalRadioSound || t == ServiceTypeFMRadio || t == ServiceTypeAdvancedCodecDigitalRadio
}

// Service represents a service described by a SDT
type Service struct {
	Authority         string      // Default CRID authority
	Data              interface{} // Kept across resets
	Multiplex         *Multiplex
	Name              string
	OriginalNetworkID uint16
	Provider          string
	ServiceID         uint16
	TransportStreamID uint16
	Type              ServiceType
	URI               string
	Version           int // -1 when unknown
}

// Reset clears everything except the identity and the data
func (s *Service) Reset() {
	s.Authority = ""
	s.Multiplex = nil
	s.Name = ""
	s.Provider = ""
	s.Type = ServiceTypeReserved
	s.Version = -1
}
