package astidvb

// Multiplex represents a transport stream
type Multiplex struct {
	Data              interface{} // Scanners use it to mark the multiplex as done
	OriginalNetworkID uint16
	Platform          *Platform
	TransportStreamID uint16
	URI               string
}
