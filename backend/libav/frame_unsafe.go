//go:build unix && (amd64 || arm64)

// frame_unsafe.go reads the AVDRMFrameDescriptor a decoder attached to a
// frame payload. The binding does not expose the descriptor, so we reach the
// raw AVFrame the same way codec parameters are reached elsewhere and mirror
// the descriptor layout of a 64-bit libavutil build.

package libav

import (
	"fmt"
	"reflect"
	"unsafe"

	"github.com/xaionaro-go/unsafetools"

	"github.com/xaionaro-go/primepipe/drm"
)

type avDRMObjectDescriptor struct {
	FD             int32
	_              [4]byte
	Size           uint64
	FormatModifier uint64
}

type avDRMPlaneDescriptor struct {
	ObjectIndex int32
	_           [4]byte
	Offset      int64
	Pitch       int64
}

type avDRMLayerDescriptor struct {
	Format   uint32
	NbPlanes int32
	Planes   [drm.MaxPlanes]avDRMPlaneDescriptor
}

type avDRMFrameDescriptor struct {
	NbObjects int32
	_         [4]byte
	Objects   [drm.MaxPlanes]avDRMObjectDescriptor
	NbLayers  int32
	_         [4]byte
	Layers    [drm.MaxPlanes]avDRMLayerDescriptor
}

// avFramePrefix mirrors the head of AVFrame: the data pointer table is the
// first field of the struct across libavutil major versions.
type avFramePrefix struct {
	Data [8]uintptr
}

func (f *Frame) rawPointer() uintptr {
	return unsafetools.FieldByNameInValue(reflect.ValueOf(f.raw), "c").Elem().Pointer()
}

func (f *Frame) dataPointer() uintptr {
	rawFrame := f.rawPointer()
	if rawFrame == 0 {
		return 0
	}
	return (*avFramePrefix)(unsafe.Pointer(rawFrame)).Data[0]
}

func (f *Frame) hasData() bool {
	return f.dataPointer() != 0
}

func (f *Frame) readDescriptor() (*drm.FrameDescriptor, error) {
	dataPtr := f.dataPointer()
	if dataPtr == 0 {
		return nil, fmt.Errorf("the frame carries no payload")
	}
	raw := (*avDRMFrameDescriptor)(unsafe.Pointer(dataPtr))

	if raw.NbObjects < 1 || raw.NbObjects > drm.MaxPlanes {
		return nil, fmt.Errorf("the descriptor reports %d kernel objects, expected 1..%d", raw.NbObjects, drm.MaxPlanes)
	}
	if raw.NbLayers < 1 || raw.NbLayers > drm.MaxPlanes {
		return nil, fmt.Errorf("the descriptor reports %d layers, expected 1..%d", raw.NbLayers, drm.MaxPlanes)
	}

	desc := &drm.FrameDescriptor{}
	for idx := int32(0); idx < raw.NbObjects; idx++ {
		obj := raw.Objects[idx]
		desc.Objects = append(desc.Objects, drm.ObjectDescriptor{
			FD:             int(obj.FD),
			Size:           obj.Size,
			FormatModifier: obj.FormatModifier,
		})
	}
	for idx := int32(0); idx < raw.NbLayers; idx++ {
		rawLayer := raw.Layers[idx]
		if rawLayer.NbPlanes < 1 || rawLayer.NbPlanes > drm.MaxPlanes {
			return nil, fmt.Errorf("layer %d reports %d planes, expected 1..%d", idx, rawLayer.NbPlanes, drm.MaxPlanes)
		}
		layer := drm.LayerDescriptor{Format: rawLayer.Format}
		for planeIdx := int32(0); planeIdx < rawLayer.NbPlanes; planeIdx++ {
			rawPlane := rawLayer.Planes[planeIdx]
			layer.Planes = append(layer.Planes, drm.PlaneDescriptor{
				ObjectIndex: int(rawPlane.ObjectIndex),
				Offset:      rawPlane.Offset,
				Pitch:       rawPlane.Pitch,
			})
		}
		desc.Layers = append(desc.Layers, layer)
	}

	if err := desc.Validate(); err != nil {
		return nil, fmt.Errorf("the decoder produced an invalid descriptor: %w", err)
	}
	return desc, nil
}
