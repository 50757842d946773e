// mapped_frame.go defines the result of the mapping step.

package mapper

import (
	"fmt"

	"github.com/xaionaro-go/primepipe/backend"
	"github.com/xaionaro-go/primepipe/drm"
)

// MappedFrame is the export view of one decoded frame. It must not outlive
// the buffer slot that takes ownership of it: the descriptor references
// dma-buf fds owned by the underlying frames.
type MappedFrame struct {
	// Source is the frame as produced on the primary device.
	Source backend.Frame

	// Mapped is the frame produced by the cross-device map; nil when Source
	// was already in the export format (or when decoding in software).
	Mapped backend.Frame

	// Desc is the export descriptor; nil for software frames.
	Desc *drm.FrameDescriptor

	Props backend.FrameProps
}

func (f *MappedFrame) String() string {
	return fmt.Sprintf("MappedFrame(%dx%d, %s)", f.Props.Width, f.Props.Height, f.Props.PixelFormat)
}

// Release unrefs the underlying frames. It is called by the buffer slot when
// the slot's refcount drops to zero (or on pool teardown).
func (f *MappedFrame) Release() {
	if f.Mapped != nil {
		f.Mapped.Unref()
		f.Mapped = nil
	}
	if f.Source != nil {
		f.Source.Unref()
		f.Source = nil
	}
	f.Desc = nil
}
