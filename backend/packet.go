// packet.go defines the compressed input packet handed to the decoder.

package backend

import (
	"github.com/xaionaro-go/primepipe/types"
)

// SideData is one side-data element attached to a compressed packet, carried
// as an opaque (type, payload) pair for the backend to interpret.
type SideData struct {
	Type int
	Data []byte
}

// Packet is one compressed input packet. Timestamps are in the caller-facing
// time base (see types.TimeBase); the backend rescales them for the decoder.
type Packet struct {
	Data     []byte
	PTS      types.Timestamp
	DTS      types.Timestamp
	SideData []SideData
}
