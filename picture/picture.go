// picture.go defines the caller-facing decoded picture.

// Package picture defines the decoded picture handed to the player loop and
// the derivation of its metadata from frame attributes.
package picture

import (
	"fmt"

	"github.com/xaionaro-go/primepipe/backend"
	"github.com/xaionaro-go/primepipe/pool"
	"github.com/xaionaro-go/primepipe/types"
)

type Flags uint32

const (
	FlagInterlaced = Flags(1 << iota)
	FlagTopFieldFirst
	FlagDropped
)

func (f Flags) String() string {
	return fmt.Sprintf("0x%X", uint32(f))
}

// Picture is one decoded picture: metadata plus the reference-counted buffer
// holding the frame. The caller owns one reference on Buffer and must
// Release it.
type Picture struct {
	Width  int
	Height int

	DisplayWidth  int
	DisplayHeight int

	ColorRange     backend.ColorRange
	ColorSpace     backend.ColorSpace
	ColorPrimaries backend.ColorPrimaries
	ColorTransfer  backend.ColorTransfer

	Flags Flags

	// PTS is in the caller-facing time base; DTS is always unknown, this
	// pipeline does not track it.
	PTS types.Timestamp
	DTS types.Timestamp

	Buffer *pool.Handle
}
