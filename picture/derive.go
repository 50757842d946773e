// derive.go computes picture metadata from frame attributes.

package picture

import (
	"math"

	"github.com/xaionaro-go/primepipe/backend"
	"github.com/xaionaro-go/primepipe/types"
)

// Derive computes the picture metadata for one decoded frame. It is a pure
// function: the same frame attributes always produce the same result.
//
// Display dimensions come from the coded dimensions and the pixel aspect
// ratio (1:1 when unknown); the display width never exceeds the coded width
// and both derived dimensions are masked to a multiple of 4. The presentation
// timestamp prefers the frame's explicit PTS and falls back to the decoder's
// best-effort estimate.
func Derive(props backend.FrameProps) Picture {
	pic := Picture{
		Width:  props.Width,
		Height: props.Height,

		ColorRange:     props.ColorRange,
		ColorSpace:     props.ColorSpace,
		ColorPrimaries: props.ColorPrimaries,
		ColorTransfer:  props.ColorTransfer,

		DTS: types.NoPTS,
	}

	aspect := props.SampleAspectRatio.Float64()
	if aspect <= 0 {
		aspect = 1
	}

	pic.DisplayWidth = int(math.Round(float64(props.Width)*aspect)) &^ 3
	pic.DisplayHeight = props.Height
	if pic.DisplayWidth > props.Width {
		pic.DisplayWidth = props.Width
		pic.DisplayHeight = int(math.Round(float64(props.Width)/aspect)) &^ 3
	}

	if props.Interlaced {
		pic.Flags |= FlagInterlaced
	}
	if props.TopFieldFirst {
		pic.Flags |= FlagTopFieldFirst
	}
	if !props.HasData {
		pic.Flags |= FlagDropped
	}

	pts := props.PTS
	if pts == int64(types.NoPTS) {
		pts = props.BestEffortPTS
	}
	pic.PTS = types.RescaleTimestamp(pts, props.TimeBase)

	return pic
}
