// device.go defines the hardware device / export capability.

package backend

import (
	"context"

	"github.com/xaionaro-go/primepipe/types"
)

// DeviceProvider creates hardware device contexts. It is the second opaque
// capability next to the decoder itself: the session creates one context on
// the primary (decode) device and one on the export (DRM) device.
type DeviceProvider interface {
	CreateDeviceContext(
		ctx context.Context,
		deviceType types.HardwareDeviceType,
		deviceName types.HardwareDeviceName,
	) (Context, error)
}

// FrameContextConfig fixes the geometry and formats of a frame context to the
// stream dimensions.
type FrameContextConfig struct {
	Width         int
	Height        int
	PixelFormat   PixelFormat
	SWPixelFormat PixelFormat
}

// Context is one hardware device context.
type Context interface {
	// CreateFrameContext creates and initializes a frame-context descriptor
	// on this device.
	CreateFrameContext(ctx context.Context, cfg FrameContextConfig) (FrameContext, error)

	Close(ctx context.Context) error
}

// FrameContext is one initialized frame-context descriptor.
type FrameContext interface {
	Config() FrameContextConfig

	// Map produces a view of src importable by this frame context's device
	// without copying sample data. The returned frame must be Unref'ed
	// independently of src.
	Map(ctx context.Context, src Frame) (Frame, error)

	Close(ctx context.Context) error
}
