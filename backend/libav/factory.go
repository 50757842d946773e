// factory.go opens libav decoders that output hardware-resident frames.

// Package libav implements the backend capabilities on top of libav (through
// the go-astiav bindings): decoder lookup and setup, hardware device
// contexts, and DRM PRIME frame export.
package libav

import (
	"context"
	"fmt"

	"github.com/asticode/go-astiav"
	"github.com/asticode/go-astikit"

	"github.com/xaionaro-go/primepipe/backend"
	"github.com/xaionaro-go/primepipe/logger"
)

// Factory opens libav decoders.
type Factory struct{}

var _ backend.Factory = Factory{}

// OpenDecoder finds and opens a decoder for the given stream. When a primary
// device context is set, the decoder must advertise a hardware config for
// that device type; its hardware pixel format becomes the negotiated output
// format, chosen through the pixel-format callback.
func (Factory) OpenDecoder(ctx context.Context, params backend.OpenParams) (_ret backend.Decoder, _err error) {
	logger.Debugf(ctx, "OpenDecoder(%s)", params.CodecID)
	defer func() { logger.Debugf(ctx, "/OpenDecoder(%s): %v %v", params.CodecID, _ret, _err) }()

	codec := astiav.FindDecoder(astiav.CodecID(params.CodecID))
	if codec == nil {
		return nil, fmt.Errorf("%w: codec %s", backend.ErrDecoderNotFound, params.CodecID)
	}

	var hwPixelFormat astiav.PixelFormat
	var primaryCtx *DeviceContext
	if params.PrimaryDeviceContext != nil {
		var ok bool
		primaryCtx, ok = params.PrimaryDeviceContext.(*DeviceContext)
		if !ok {
			return nil, fmt.Errorf("the primary device context is not a libav device context: %T", params.PrimaryDeviceContext)
		}

		hwPixelFormat = astiav.PixelFormatNone
		for _, hwCfg := range codec.HardwareConfigs() {
			if hwCfg.HardwareDeviceType() != primaryCtx.deviceType {
				continue
			}
			if !hwCfg.MethodFlags().Has(astiav.CodecHardwareConfigMethodFlagHwDeviceCtx) {
				continue
			}
			hwPixelFormat = hwCfg.PixelFormat()
			break
		}
		if hwPixelFormat == astiav.PixelFormatNone {
			return nil, fmt.Errorf("%w: codec %s has no hardware config for device type %v", backend.ErrDecoderNotFound, params.CodecID, primaryCtx.deviceType)
		}
	}

	d := &Decoder{
		codec:         codec,
		hwPixelFormat: astiav.PixelFormatNone,
		closer:        astikit.NewCloser(),
	}
	defer func() {
		if _err != nil {
			_ = d.Close(ctx)
		}
	}()

	d.codecContext = astiav.AllocCodecContext(codec)
	if d.codecContext == nil {
		return nil, fmt.Errorf("unable to allocate a codec context")
	}
	d.closer.Add(d.codecContext.Free)

	// codec_tag has no direct codec-context setter, so it travels through
	// codec parameters; the direct setters below run after the transfer
	codecParams := astiav.AllocCodecParameters()
	defer codecParams.Free()
	codecParams.SetMediaType(astiav.MediaTypeVideo)
	codecParams.SetCodecID(astiav.CodecID(params.CodecID))
	codecParams.SetCodecTag(astiav.CodecTag(params.CodecTag))
	if err := codecParams.ToCodecContext(d.codecContext); err != nil {
		return nil, fmt.Errorf("unable to apply the stream parameters: %w", err)
	}

	d.codecContext.SetWidth(params.CodedWidth)
	d.codecContext.SetHeight(params.CodedHeight)
	d.codecContext.SetTimeBase(astiav.NewRational(callerTimeBase.Num, callerTimeBase.Den))
	if len(params.ExtraData) > 0 {
		d.codecContext.SetExtraData(params.ExtraData)
	}
	if params.LowDelay {
		d.codecContext.SetFlags(d.codecContext.Flags() | astiav.CodecContextFlags(astiav.CodecContextFlagLowDelay))
	}

	if primaryCtx != nil {
		d.codecContext.SetHardwareDeviceContext(primaryCtx.raw)
		d.hwPixelFormat = hwPixelFormat

		// the format choice is a per-decoder closure, not process-global
		// state, so concurrent sessions negotiate independently
		picker := params.PixelFormatPicker
		d.codecContext.SetPixelFormatCallback(func(pfs []astiav.PixelFormat) astiav.PixelFormat {
			if picker != nil {
				offered := make([]backend.PixelFormat, 0, len(pfs))
				for _, pf := range pfs {
					offered = append(offered, backend.PixelFormat(pf.String()))
				}
				chosen := picker(offered)
				for _, pf := range pfs {
					if backend.PixelFormat(pf.String()) == chosen {
						return pf
					}
				}
				logger.Errorf(ctx, "the picked pixel format '%s' was not offered", chosen)
				return astiav.PixelFormatNone
			}
			for _, pf := range pfs {
				if pf == hwPixelFormat {
					return pf
				}
			}
			logger.Errorf(ctx, "unable to find an appropriate pixel format")
			return astiav.PixelFormatNone
		})
	}

	if err := d.codecContext.Open(codec, nil); err != nil {
		return nil, fmt.Errorf("unable to open the codec context: %w", err)
	}

	return d, nil
}
