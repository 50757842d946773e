// device.go implements the hardware device capability over libav.

package libav

import (
	"context"
	"fmt"

	"github.com/asticode/go-astiav"

	"github.com/xaionaro-go/primepipe/backend"
	"github.com/xaionaro-go/primepipe/logger"
	"github.com/xaionaro-go/primepipe/types"
)

// ErrNotImplemented reports a capability this binding does not provide.
type ErrNotImplemented struct {
	Err error
}

func (e ErrNotImplemented) Error() string {
	return fmt.Sprintf("not implemented: %v", e.Err)
}

func (e ErrNotImplemented) Unwrap() error {
	return e.Err
}

// DeviceProvider creates libav hardware device contexts.
type DeviceProvider struct{}

var _ backend.DeviceProvider = DeviceProvider{}

func (DeviceProvider) CreateDeviceContext(
	ctx context.Context,
	deviceType types.HardwareDeviceType,
	deviceName types.HardwareDeviceName,
) (_ret backend.Context, _err error) {
	logger.Debugf(ctx, "CreateDeviceContext(%s, '%s')", deviceType, deviceName)
	defer func() { logger.Debugf(ctx, "/CreateDeviceContext(%s, '%s'): %v", deviceType, deviceName, _err) }()

	raw, err := astiav.CreateHardwareDeviceContext(
		astiav.HardwareDeviceType(deviceType),
		string(deviceName),
		nil,
		0,
	)
	if err != nil {
		return nil, fmt.Errorf("unable to create a %s device context on '%s': %w", deviceType, deviceName, err)
	}
	return &DeviceContext{
		raw:        raw,
		deviceType: astiav.HardwareDeviceType(deviceType),
	}, nil
}

// DeviceContext is one libav hardware device context.
type DeviceContext struct {
	raw        *astiav.HardwareDeviceContext
	deviceType astiav.HardwareDeviceType
}

var _ backend.Context = (*DeviceContext)(nil)

func (c *DeviceContext) CreateFrameContext(
	ctx context.Context,
	cfg backend.FrameContextConfig,
) (backend.FrameContext, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("invalid frame context dimensions: %dx%d", cfg.Width, cfg.Height)
	}
	return &FrameContext{device: c, cfg: cfg}, nil
}

func (c *DeviceContext) Close(ctx context.Context) error {
	if c.raw != nil {
		c.raw.Free()
		c.raw = nil
	}
	return nil
}

// FrameContext is a frame-context descriptor on one device.
type FrameContext struct {
	device *DeviceContext
	cfg    backend.FrameContextConfig
}

var _ backend.FrameContext = (*FrameContext)(nil)

func (fc *FrameContext) Config() backend.FrameContextConfig {
	return fc.cfg
}

// Map is the cross-device descriptor transform. The binding exposes no
// zero-copy map call, so hardware decoding relies on decoders that negotiate
// direct DRM PRIME output; frames in any other format cannot be exported
// through this frame context.
func (fc *FrameContext) Map(ctx context.Context, src backend.Frame) (backend.Frame, error) {
	return nil, ErrNotImplemented{Err: fmt.Errorf("zero-copy mapping of '%s' frames into '%s'", src.Props().PixelFormat, fc.cfg.PixelFormat)}
}

func (fc *FrameContext) Close(ctx context.Context) error {
	return nil
}
