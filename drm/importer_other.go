//go:build !linux
// +build !linux

package drm

import (
	"context"
	"fmt"
)

type Device struct{}

func OpenDevice(ctx context.Context, path string) (*Device, error) {
	return nil, fmt.Errorf("DRM devices are supported only on linux")
}

func (d *Device) Import(ctx context.Context, obj ObjectDescriptor) (BufferObject, error) {
	return nil, fmt.Errorf("DRM devices are supported only on linux")
}

func (d *Device) Close() error {
	return nil
}
