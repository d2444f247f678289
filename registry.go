package astidvb

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Registry gathers the entities decoded out of tables
// Entities are never removed, they are reset and updated in place when superseded which means pointers to them
// remain valid for the lifetime of the registry
// It is not safe for concurrent use
type Registry struct {
	events      map[string]*Event
	multiplexes map[string]*Multiplex
	networks    map[string]*Network
	platforms   map[string]*Platform
	services    map[string]*Service
	time        *NetworkTime
}

// NewRegistry creates a new registry
func NewRegistry() *Registry {
	return &Registry{
		events:      make(map[string]*Event),
		multiplexes: make(map[string]*Multiplex),
		networks:    make(map[string]*Network),
		platforms:   make(map[string]*Platform),
		services:    make(map[string]*Service),
	}
}

// sortedValues returns map values ordered by key
func sortedValues[T any](m map[string]T) (vs []T) {
	ks := maps.Keys(m)
	slices.Sort(ks)
	vs = make([]T, 0, len(ks))
	for _, k := range ks {
		vs = append(vs, m[k])
	}
	return
}

// LocateNetwork returns the network or nil if it doesn't exist
func (r *Registry) LocateNetwork(networkID uint16) *Network {
	return r.networks[networkURI(networkID)]
}

// LocateOrAddNetwork returns the network and creates it if it doesn't exist
func (r *Registry) LocateOrAddNetwork(networkID uint16) (n *Network) {
	uri := networkURI(networkID)
	if n = r.networks[uri]; n == nil {
		n = newNetwork(networkID, uri)
		r.networks[uri] = n
	}
	return
}

// Networks returns the networks ordered by URI
func (r *Registry) Networks() []*Network {
	return sortedValues(r.networks)
}

// LocateMultiplex returns the multiplex or nil if it doesn't exist
func (r *Registry) LocateMultiplex(originalNetworkID, transportStreamID uint16) *Multiplex {
	return r.multiplexes[multiplexURI(originalNetworkID, transportStreamID)]
}

// LocateOrAddMultiplex returns the multiplex and creates it if it doesn't exist
func (r *Registry) LocateOrAddMultiplex(originalNetworkID, transportStreamID uint16) (m *Multiplex) {
	uri := multiplexURI(originalNetworkID, transportStreamID)
	if m = r.multiplexes[uri]; m == nil {
		m = &Multiplex{
			OriginalNetworkID: originalNetworkID,
			TransportStreamID: transportStreamID,
			URI:               uri,
		}
		r.multiplexes[uri] = m
	}
	return
}

// Multiplexes returns the multiplexes ordered by URI
func (r *Registry) Multiplexes() []*Multiplex {
	return sortedValues(r.multiplexes)
}

// LocatePlatform returns the platform or nil if it doesn't exist
func (r *Registry) LocatePlatform(originalNetworkID uint16) *Platform {
	return r.platforms[platformURI(originalNetworkID)]
}

// LocateOrAddPlatform returns the platform and creates it if it doesn't exist
func (r *Registry) LocateOrAddPlatform(originalNetworkID uint16) (p *Platform) {
	uri := platformURI(originalNetworkID)
	if p = r.platforms[uri]; p == nil {
		p = &Platform{
			OriginalNetworkID: originalNetworkID,
			URI:               uri,
		}
		r.platforms[uri] = p
	}
	return
}

// Platforms returns the platforms ordered by URI
func (r *Registry) Platforms() []*Platform {
	return sortedValues(r.platforms)
}

// LocateService returns the service or nil if it doesn't exist
func (r *Registry) LocateService(originalNetworkID, transportStreamID, serviceID uint16) *Service {
	return r.services[serviceURI(originalNetworkID, transportStreamID, serviceID)]
}

// LocateOrAddService returns the service and creates it if it doesn't exist
func (r *Registry) LocateOrAddService(originalNetworkID, transportStreamID, serviceID uint16) (s *Service) {
	uri := serviceURI(originalNetworkID, transportStreamID, serviceID)
	if s = r.services[uri]; s == nil {
		s = &Service{
			OriginalNetworkID: originalNetworkID,
			ServiceID:         serviceID,
			TransportStreamID: transportStreamID,
			URI:               uri,
		}
		s.Reset()
		r.services[uri] = s
	}
	return
}

// Services returns the services ordered by URI
func (r *Registry) Services() []*Service {
	return sortedValues(r.services)
}

// LocateEvent returns the event or nil if it doesn't exist
func (r *Registry) LocateEvent(key string) *Event {
	return r.events[key]
}

// LocateOrAddEvent returns the event and creates it if it doesn't exist
func (r *Registry) LocateOrAddEvent(key string) (e *Event) {
	if e = r.events[key]; e == nil {
		e = &Event{Key: key}
		e.Reset()
		r.events[key] = e
	}
	return
}

// Events returns the events ordered by key
func (r *Registry) Events() []*Event {
	return sortedValues(r.events)
}

// Time returns the last network time or nil if no time table has been decoded yet
func (r *Registry) Time() *NetworkTime {
	return r.time
}
