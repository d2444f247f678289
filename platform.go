package astidvb

// Platform groups the multiplexes sharing an original network id
type Platform struct {
	Data              interface{}
	OriginalNetworkID uint16
	URI               string
}
