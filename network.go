package astidvb

// Network represents a delivery network described by a NIT
type Network struct {
	Data        interface{} // Kept across resets
	ID          uint16
	Multiplexes []*Multiplex
	Name        string
	Services    []*NetworkService
	URI         string
	Version     int // -1 when unknown
}

// NetworkService associates a service with a logical channel
type NetworkService struct {
	LogicalChannelNumber    int
	Service                 *Service
	SubLogicalChannelNumber int // -1 when unused
	Visible                 bool
}

func newNetwork(id uint16, uri string) (n *Network) {
	n = &Network{
		ID:  id,
		URI: uri,
	}
	n.Reset()
	return
}

// Reset clears everything except the identity and the data
func (n *Network) Reset() {
	n.Multiplexes = nil
	n.Name = ""
	n.Services = nil
	n.Version = -1
}

// AddMultiplex adds a multiplex unless it's already there
func (n *Network) AddMultiplex(m *Multiplex) {
	for _, v := range n.Multiplexes {
		if v == m {
			return
		}
	}
	n.Multiplexes = append(n.Multiplexes, m)
}

// SetService sets the service of a logical channel
// A nil service removes the logical channel
func (n *Network) SetService(s *Service, visible bool, lcn, sublcn int) *NetworkService {
	// Logical channel already exists
	for idx, v := range n.Services {
		if v.LogicalChannelNumber != lcn || v.SubLogicalChannelNumber != sublcn {
			continue
		}
		if s == nil {
			n.Services = append(n.Services[:idx], n.Services[idx+1:]...)
			return nil
		}
		v.Service = s
		v.Visible = visible
		return v
	}

	// Nothing to remove
	if s == nil {
		return nil
	}

	// Add logical channel
	v := &NetworkService{
		LogicalChannelNumber:    lcn,
		Service:                 s,
		SubLogicalChannelNumber: sublcn,
		Visible:                 visible,
	}
	n.Services = append(n.Services, v)
	return v
}

// Service returns the service of a logical channel or nil if it doesn't exist
func (n *Network) Service(lcn, sublcn int) *NetworkService {
	for _, v := range n.Services {
		if v.LogicalChannelNumber == lcn && v.SubLogicalChannelNumber == sublcn {
			return v
		}
	}
	return nil
}
