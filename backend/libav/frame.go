// frame.go wraps a decoded libav frame into the backend frame capability.

package libav

import (
	"fmt"

	"github.com/asticode/go-astiav"

	"github.com/xaionaro-go/primepipe/backend"
	"github.com/xaionaro-go/primepipe/drm"
	"github.com/xaionaro-go/primepipe/types"
)

// Frame owns one *astiav.Frame received from a decoder.
type Frame struct {
	raw *astiav.Frame
}

var _ backend.Frame = (*Frame)(nil)

func (f *Frame) Props() backend.FrameProps {
	timeBase := rationalFromLibav(f.raw.TimeBase())
	if timeBase.IsZero() {
		timeBase = callerTimeBase
	}
	return backend.FrameProps{
		Width:             f.raw.Width(),
		Height:            f.raw.Height(),
		SampleAspectRatio: rationalFromLibav(f.raw.SampleAspectRatio()),
		PixelFormat:       backend.PixelFormat(f.raw.PixelFormat().String()),
		ColorRange:        backend.ColorRange(f.raw.ColorRange()),
		ColorSpace:        backend.ColorSpace(f.raw.ColorSpace()),
		HasData:           f.hasData(),
		PTS:               f.raw.Pts(),
		BestEffortPTS:     f.raw.Pts(),
		TimeBase:          timeBase,
	}
}

// ExportDescriptor reads the kernel sharing descriptor the decoder attached
// to the frame. It is valid only while the frame is referenced.
func (f *Frame) ExportDescriptor() (*drm.FrameDescriptor, error) {
	if pf := backend.PixelFormat(f.raw.PixelFormat().String()); pf != backend.PixelFormatDRMPrime {
		return nil, fmt.Errorf("the frame is in pixel format '%s', which carries no kernel sharing descriptor", pf)
	}
	return f.readDescriptor()
}

func (f *Frame) Unref() {
	if f.raw == nil {
		return
	}
	f.raw.Free()
	f.raw = nil
}

func rationalFromLibav(r astiav.Rational) types.Rational {
	return types.NewRational(r.Num(), r.Den())
}
