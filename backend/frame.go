// frame.go defines the hardware frame surface the session and mapper work on.

package backend

import (
	"github.com/xaionaro-go/primepipe/drm"
	"github.com/xaionaro-go/primepipe/types"
)

// PixelFormat names a frame's pixel format, e.g. "vaapi", "drm_prime", "nv12".
type PixelFormat string

const (
	PixelFormatNone PixelFormat = ""

	// PixelFormatDRMPrime is the export format: frames in this format carry a
	// DRM PRIME descriptor and can be imported by the display surface without
	// copying sample data.
	PixelFormatDRMPrime PixelFormat = "drm_prime"
)

// Color tags are carried through from the decoder unchanged; the values are
// the ones of the corresponding libav enums.
type (
	ColorRange     int
	ColorSpace     int
	ColorPrimaries int
	ColorTransfer  int
)

// FrameProps are the displayable attributes of one decoded frame.
type FrameProps struct {
	Width             int
	Height            int
	SampleAspectRatio types.Rational
	PixelFormat       PixelFormat

	ColorRange     ColorRange
	ColorSpace     ColorSpace
	ColorPrimaries ColorPrimaries
	ColorTransfer  ColorTransfer

	Interlaced    bool
	TopFieldFirst bool

	// HasData is false when the decoder produced a frame with no sample data
	// in its first plane (a dropped frame).
	HasData bool

	// PTS and BestEffortPTS are in TimeBase units; types.NoPTS when unknown.
	PTS           int64
	BestEffortPTS int64
	TimeBase      types.Rational
}

// Frame is one decoded hardware-resident frame. It stays valid until Unref.
type Frame interface {
	Props() FrameProps

	// ExportDescriptor returns the DRM PRIME descriptor of the frame.
	// It fails unless the frame's pixel format is PixelFormatDRMPrime.
	ExportDescriptor() (*drm.FrameDescriptor, error)

	// Unref gives the frame back to its producer. It must be called exactly
	// once and makes the frame (and any descriptor derived from it) invalid.
	Unref()
}
