//go:build unix && (amd64 || arm64)

// frame_unsafe_test.go pins the mirrored descriptor layout to the C layout
// of a 64-bit libavutil build.

package libav

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestDescriptorMirrorLayout(t *testing.T) {
	require.Equal(t, uintptr(24), unsafe.Sizeof(avDRMObjectDescriptor{}))
	require.Equal(t, uintptr(24), unsafe.Sizeof(avDRMPlaneDescriptor{}))
	require.Equal(t, uintptr(104), unsafe.Sizeof(avDRMLayerDescriptor{}))
	require.Equal(t, uintptr(528), unsafe.Sizeof(avDRMFrameDescriptor{}))

	require.Equal(t, uintptr(8), unsafe.Offsetof(avDRMObjectDescriptor{}.Size))
	require.Equal(t, uintptr(16), unsafe.Offsetof(avDRMObjectDescriptor{}.FormatModifier))
	require.Equal(t, uintptr(8), unsafe.Offsetof(avDRMPlaneDescriptor{}.Offset))
	require.Equal(t, uintptr(8), unsafe.Offsetof(avDRMLayerDescriptor{}.Planes))
	require.Equal(t, uintptr(8), unsafe.Offsetof(avDRMFrameDescriptor{}.Objects))
	require.Equal(t, uintptr(104), unsafe.Offsetof(avDRMFrameDescriptor{}.NbLayers))
	require.Equal(t, uintptr(112), unsafe.Offsetof(avDRMFrameDescriptor{}.Layers))
}
