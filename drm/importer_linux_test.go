//go:build linux
// +build linux

// importer_linux_test.go tests the ioctl plumbing of the importer.

package drm

import (
	"context"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestIoctlCodes(t *testing.T) {
	// the well-known request values from the kernel's drm.h
	require.Equal(t, uintptr(0x40086409), uintptr(drmIoctlGemClose))
	require.Equal(t, uintptr(0xc00c642e), uintptr(drmIoctlPrimeFDToHandle))

	require.Equal(t, uintptr(8), unsafe.Sizeof(drmGemClose{}))
	require.Equal(t, uintptr(12), unsafe.Sizeof(drmPrimeHandle{}))
}

func TestOpenDeviceMissingNode(t *testing.T) {
	ctx := context.Background()
	_, err := OpenDevice(ctx, "/nonexistent/dri/card0")
	require.Error(t, err)
}

func TestGemObjectCloseOnce(t *testing.T) {
	// an fd that is not a DRM node: the first close reaches the kernel and
	// fails, but must still consume the handle
	fds := make([]int, 2)
	require.NoError(t, unix.Pipe(fds))
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	d := &Device{fd: fds[0], path: "pipe"}
	o := &gemObject{device: d}
	o.handle.Store(42)
	require.Equal(t, uint32(42), o.Handle())

	require.Error(t, o.Close())
	require.Equal(t, uint32(0), o.Handle())
	require.NoError(t, o.Close(), "a second close must be a no-op")
}

func TestDeviceCloseIdempotent(t *testing.T) {
	fds := make([]int, 2)
	require.NoError(t, unix.Pipe(fds))
	defer unix.Close(fds[1])

	d := &Device{fd: fds[0], path: "pipe"}
	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
}
