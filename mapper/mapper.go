// mapper.go implements the cross-device zero-copy frame mapping step.

// Package mapper turns a frame produced on the primary hardware device into
// the export device's view of the same memory. No pixel data is copied: the
// transform is purely about descriptors and metadata.
package mapper

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/primepipe/backend"
	"github.com/xaionaro-go/primepipe/logger"
)

// MapError is a per-frame hard error: the frame cannot be exported, but the
// session stays usable for subsequent frames.
type MapError struct {
	Err error
}

func (e MapError) Error() string {
	return fmt.Sprintf("unable to map the frame for export: %v", e.Err)
}

func (e MapError) Unwrap() error {
	return e.Err
}

// Mapper maps frames into the export frame context.
type Mapper struct {
	exportFrames backend.FrameContext
}

// New returns a Mapper that maps into the given export frame context.
// exportFrames may be nil, in which case only frames the decoder already
// produced in the export format can pass through.
func New(exportFrames backend.FrameContext) *Mapper {
	return &Mapper{
		exportFrames: exportFrames,
	}
}

// Map derives the export view of src. On success the returned MappedFrame
// owns src (and the mapped frame, when one was created): releasing the
// MappedFrame unrefs them. On failure src stays owned by the caller.
func (m *Mapper) Map(ctx context.Context, src backend.Frame) (_ret *MappedFrame, _err error) {
	logger.Tracef(ctx, "Map")
	defer func() { logger.Tracef(ctx, "/Map: %v %v", _ret, _err) }()

	props := src.Props()
	if props.PixelFormat == backend.PixelFormatDRMPrime {
		// the decoder negotiated direct export output, nothing to map
		desc, err := src.ExportDescriptor()
		if err != nil {
			return nil, MapError{Err: fmt.Errorf("unable to read the export descriptor: %w", err)}
		}
		if err := desc.Validate(); err != nil {
			return nil, MapError{Err: fmt.Errorf("incompatible memory layout: %w", err)}
		}
		return &MappedFrame{Source: src, Desc: desc, Props: props}, nil
	}

	if m.exportFrames == nil {
		return nil, MapError{Err: fmt.Errorf("no export frame context and the frame is not in the export format (%s)", props.PixelFormat)}
	}

	mapped, err := m.exportFrames.Map(ctx, src)
	if err != nil {
		return nil, MapError{Err: err}
	}
	desc, err := mapped.ExportDescriptor()
	if err != nil {
		mapped.Unref()
		return nil, MapError{Err: fmt.Errorf("unable to read the export descriptor: %w", err)}
	}
	if err := desc.Validate(); err != nil {
		mapped.Unref()
		return nil, MapError{Err: fmt.Errorf("incompatible memory layout: %w", err)}
	}

	return &MappedFrame{
		Source: src,
		Mapped: mapped,
		Desc:   desc,
		Props:  props,
	}, nil
}
