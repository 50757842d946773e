// descriptor.go defines the DRM PRIME frame descriptor types.

// Package drm models the kernel-level buffer-object surface: DRM PRIME frame
// descriptors and the importer that turns dma-buf file descriptors into GEM
// handles which must be closed exactly once.
package drm

import (
	"fmt"
)

const (
	// MaxPlanes mirrors AV_DRM_MAX_PLANES.
	MaxPlanes = 4
)

// ObjectDescriptor describes one exported buffer object (one dma-buf fd).
type ObjectDescriptor struct {
	// FD is the dma-buf file descriptor. It stays owned by the frame the
	// descriptor was derived from.
	FD int

	// Size is the total size of the object in bytes.
	Size uint64

	// FormatModifier is the DRM format modifier (tiling/compression layout).
	FormatModifier uint64
}

// PlaneDescriptor describes one memory plane within a layer.
type PlaneDescriptor struct {
	// ObjectIndex is the index into FrameDescriptor.Objects of the object
	// containing this plane.
	ObjectIndex int

	Offset int64
	Pitch  int64
}

// LayerDescriptor describes one frame layer (one DRM fourcc format).
type LayerDescriptor struct {
	// Format is the DRM fourcc of the layer.
	Format uint32

	Planes []PlaneDescriptor
}

// FrameDescriptor is the export-device view of one hardware frame: the same
// memory as the source frame, described as DRM PRIME objects and layers.
type FrameDescriptor struct {
	Objects []ObjectDescriptor
	Layers  []LayerDescriptor
}

// Validate checks the descriptor against the export surface constraints.
func (d *FrameDescriptor) Validate() error {
	if d == nil {
		return fmt.Errorf("nil descriptor")
	}
	if len(d.Objects) == 0 || len(d.Objects) > MaxPlanes {
		return fmt.Errorf("unsupported object count: %d", len(d.Objects))
	}
	if len(d.Layers) == 0 || len(d.Layers) > MaxPlanes {
		return fmt.Errorf("unsupported layer count: %d", len(d.Layers))
	}
	for layerIdx, layer := range d.Layers {
		if len(layer.Planes) == 0 || len(layer.Planes) > MaxPlanes {
			return fmt.Errorf("layer %d: unsupported plane count: %d", layerIdx, len(layer.Planes))
		}
		for planeIdx, plane := range layer.Planes {
			if plane.ObjectIndex < 0 || plane.ObjectIndex >= len(d.Objects) {
				return fmt.Errorf("layer %d: plane %d references object %d of %d", layerIdx, planeIdx, plane.ObjectIndex, len(d.Objects))
			}
		}
	}
	return nil
}
