//go:build linux
// +build linux

// importer_linux.go implements the buffer-object importer on top of the DRM
// PRIME and GEM ioctls.

package drm

import (
	"context"
	"fmt"
	"unsafe"

	"go.uber.org/atomic"
	"golang.org/x/sys/unix"

	"github.com/xaionaro-go/primepipe/logger"
)

// the ioctl codes are computed the same way the _IOW/_IOWR macros of the
// kernel headers do, with 'd' (0x64) as the DRM ioctl type:
const (
	iocWrite = 1
	iocRead  = 2

	drmIoctlBase = 0x64

	// DRM_IOCTL_GEM_CLOSE: _IOW('d', 0x09, struct drm_gem_close)
	drmIoctlGemClose = (iocWrite << 30) | (8 << 16) | (drmIoctlBase << 8) | 0x09

	// DRM_IOCTL_PRIME_FD_TO_HANDLE: _IOWR('d', 0x2e, struct drm_prime_handle)
	drmIoctlPrimeFDToHandle = ((iocRead | iocWrite) << 30) | (12 << 16) | (drmIoctlBase << 8) | 0x2e
)

type drmPrimeHandle struct {
	handle uint32
	flags  uint32
	fd     int32
}

type drmGemClose struct {
	handle uint32
	pad    uint32
}

// Device is a DRM device node usable as a BufferImporter.
type Device struct {
	fd   int
	path string
}

var _ BufferImporter = (*Device)(nil)

// OpenDevice opens the DRM device node at the given path,
// e.g. "/dev/dri/card0" or "/dev/dri/renderD128".
func OpenDevice(ctx context.Context, path string) (_ret *Device, _err error) {
	logger.Tracef(ctx, "OpenDevice('%s')", path)
	defer func() { logger.Tracef(ctx, "/OpenDevice('%s'): %v %v", path, _ret, _err) }()
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("unable to open DRM device '%s': %w", path, err)
	}
	return &Device{fd: fd, path: path}, nil
}

func (d *Device) String() string {
	return fmt.Sprintf("DRMDevice(%s)", d.path)
}

func (d *Device) ioctl(req uintptr, arg unsafe.Pointer) error {
	for {
		_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), req, uintptr(arg))
		switch errno {
		case 0:
			return nil
		case unix.EINTR, unix.EAGAIN:
			continue
		default:
			return errno
		}
	}
}

// Import turns a dma-buf fd into a GEM handle owned by the returned object.
func (d *Device) Import(ctx context.Context, obj ObjectDescriptor) (BufferObject, error) {
	arg := drmPrimeHandle{fd: int32(obj.FD)}
	if err := d.ioctl(drmIoctlPrimeFDToHandle, unsafe.Pointer(&arg)); err != nil {
		return nil, fmt.Errorf("unable to import dma-buf fd %d: %w", obj.FD, err)
	}
	bo := &gemObject{device: d}
	bo.handle.Store(arg.handle)
	return bo, nil
}

func (d *Device) Close() error {
	fd := d.fd
	d.fd = -1
	if fd < 0 {
		return nil
	}
	return unix.Close(fd)
}

// gemObject owns one GEM handle. Close is safe to call multiple times and
// from multiple goroutines: the handle is released at most once.
type gemObject struct {
	device *Device
	handle atomic.Uint32
}

var _ BufferObject = (*gemObject)(nil)

func (o *gemObject) Handle() uint32 {
	return o.handle.Load()
}

func (o *gemObject) Close() error {
	handle := o.handle.Swap(0)
	if handle == 0 {
		return nil
	}
	arg := drmGemClose{handle: handle}
	if err := o.device.ioctl(drmIoctlGemClose, unsafe.Pointer(&arg)); err != nil {
		return fmt.Errorf("unable to close GEM handle %d: %w", handle, err)
	}
	return nil
}
