// decoder.go wraps one opened libav decoder.

package libav

import (
	"context"
	"errors"
	"fmt"

	"github.com/asticode/go-astiav"
	"github.com/asticode/go-astikit"

	"github.com/xaionaro-go/primepipe/backend"
	"github.com/xaionaro-go/primepipe/logger"
	"github.com/xaionaro-go/primepipe/types"
	"github.com/xaionaro-go/xsync"
)

// callerTimeBase is the time base the codec context is configured with, so
// packet and frame timestamps pass through in caller-facing units.
var callerTimeBase = types.TimeBase

// Decoder is one opened libav decoder.
type Decoder struct {
	locker        xsync.Mutex
	codec         *astiav.Codec
	codecContext  *astiav.CodecContext
	hwPixelFormat astiav.PixelFormat
	closer        *astikit.Closer
}

var _ backend.Decoder = (*Decoder)(nil)

func (d *Decoder) String() string {
	return fmt.Sprintf("Decoder(%s)", d.codec.Name())
}

// Name follows the "ff-" + codec name convention.
func (d *Decoder) Name() string {
	if name := d.codec.Name(); name != "" {
		return "ff-" + name
	}
	return "ffmpeg"
}

func (d *Decoder) PixelFormat() backend.PixelFormat {
	return xsync.DoR1(context.TODO(), &d.locker, func() backend.PixelFormat {
		if d.hwPixelFormat != astiav.PixelFormatNone {
			return backend.PixelFormat(d.hwPixelFormat.String())
		}
		if d.codecContext == nil {
			return backend.PixelFormatNone
		}
		return backend.PixelFormat(d.codecContext.PixelFormat().String())
	})
}

func (d *Decoder) SendPacket(ctx context.Context, pkt *backend.Packet) error {
	return xsync.DoR1(ctx, &d.locker, func() error {
		return d.sendPacket(ctx, pkt)
	})
}

func (d *Decoder) sendPacket(ctx context.Context, pkt *backend.Packet) error {
	if d.codecContext == nil {
		return fmt.Errorf("the decoder is closed")
	}
	if pkt == nil {
		// an empty packet signals end-of-stream
		return convertError(d.codecContext.SendPacket(nil))
	}

	avPkt := astiav.AllocPacket()
	defer avPkt.Free()
	if err := avPkt.FromData(pkt.Data); err != nil {
		return fmt.Errorf("unable to wrap the packet data: %w", err)
	}
	avPkt.SetPts(timestampToLibav(pkt.PTS))
	avPkt.SetDts(timestampToLibav(pkt.DTS))
	if len(pkt.SideData) > 0 {
		// the bindings expose no packet side-data setter, so the elements
		// cannot reach the decoder
		logger.Tracef(ctx, "dropping %d side-data elements", len(pkt.SideData))
	}

	return convertError(d.codecContext.SendPacket(avPkt))
}

func (d *Decoder) ReceiveFrame(ctx context.Context) (backend.Frame, error) {
	return xsync.DoR2(ctx, &d.locker, func() (backend.Frame, error) {
		return d.receiveFrame(ctx)
	})
}

func (d *Decoder) receiveFrame(ctx context.Context) (backend.Frame, error) {
	if d.codecContext == nil {
		return nil, fmt.Errorf("the decoder is closed")
	}
	f := astiav.AllocFrame()
	if err := d.codecContext.ReceiveFrame(f); err != nil {
		f.Free()
		return nil, convertError(err)
	}
	return &Frame{raw: f}, nil
}

func (d *Decoder) FlushBuffers(ctx context.Context) {
	d.locker.Do(ctx, func() {
		if d.codecContext != nil {
			d.codecContext.FlushBuffers()
		}
	})
}

func (d *Decoder) Close(ctx context.Context) error {
	return xsync.DoR1(ctx, &d.locker, func() error {
		defer func() {
			d.codecContext = nil
			d.closer = nil
		}()
		if d.closer == nil {
			return nil
		}
		return d.closer.Close()
	})
}

func convertError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, astiav.ErrEagain):
		return backend.ErrAgain
	case errors.Is(err, astiav.ErrEof):
		return backend.ErrEOF
	default:
		return err
	}
}

func timestampToLibav(ts types.Timestamp) int64 {
	if !ts.IsValid() {
		return astiav.NoPtsValue
	}
	return int64(ts)
}
