// backend.go defines the decoder capability consumed by the decode session.

// Package backend defines the interfaces of the decoder backend: the opaque
// capability that turns compressed packets into hardware-resident frames.
// The real implementation lives in backend/libav; tests substitute fakes.
package backend

import (
	"context"
	"errors"

	"github.com/xaionaro-go/primepipe/types"
)

var (
	// ErrAgain reports that the decoder cannot take (or produce) more data
	// right now; the caller has to drain (or feed) the other side first.
	ErrAgain = errors.New("resource temporarily unavailable")

	// ErrEOF reports that end-of-stream was already signaled and the decoder
	// has no more output for the current stream segment.
	ErrEOF = errors.New("end of stream")

	// ErrDecoderNotFound reports that no decoder capable of producing
	// hardware-resident frames in the requested format exists.
	ErrDecoderNotFound = errors.New("no suitable decoder found")
)

// OpenParams describes the stream a decoder is opened for.
type OpenParams struct {
	CodecID            types.CodecID
	CodecTag           uint32
	CodedWidth         int
	CodedHeight        int
	BitsPerCodedSample int
	ExtraData          []byte

	// LowDelay requests decoding without frame reordering delay.
	LowDelay bool

	// PrimaryDeviceContext, when non-nil, requests hardware decoding on that
	// device and makes the decoder negotiate a hardware output pixel format.
	PrimaryDeviceContext Context

	// PixelFormatPicker chooses the output pixel format among the ones the
	// decoder offers. It is a per-session strategy, never process-global
	// state. When nil, the backend picks its negotiated hardware format.
	PixelFormatPicker func(offered []PixelFormat) PixelFormat
}

// Factory opens decoders.
type Factory interface {
	// OpenDecoder selects and opens a decoder for the given stream.
	// It returns ErrDecoderNotFound (possibly wrapped) when no decoder
	// can produce frames in a format the session can export.
	OpenDecoder(ctx context.Context, params OpenParams) (Decoder, error)
}

// Decoder is one opened decoder instance. It is driven synchronously:
// SendPacket/ReceiveFrame block only as long as the underlying decode call
// takes and never suspend waiting on I/O.
type Decoder interface {
	// SendPacket feeds one compressed packet. A nil packet signals
	// end-of-stream (drain). Returns ErrAgain when the input queue is full
	// and ErrEOF when end-of-stream was already signaled.
	SendPacket(ctx context.Context, pkt *Packet) error

	// ReceiveFrame returns the next decoded frame. Returns ErrAgain when no
	// frame is ready yet and ErrEOF at end-of-stream. The returned frame is
	// owned by the caller until Unref.
	ReceiveFrame(ctx context.Context) (Frame, error)

	// FlushBuffers discards everything buffered inside the decoder.
	FlushBuffers(ctx context.Context)

	// Name is the decoder's self-description, e.g. "ff-h264".
	Name() string

	// PixelFormat is the negotiated output pixel format.
	PixelFormat() PixelFormat

	Close(ctx context.Context) error
}
