// session.go implements the decode session state machine.

// Package session drives the decoder backend through its open/feed/drain/reset
// state machine and produces reference-counted pictures. A session is driven
// synchronously by a single caller goroutine; the buffer pool it owns is safe
// for concurrent releases from consumer goroutines.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/asticode/go-astikit"
	"github.com/facebookincubator/go-belt"

	"github.com/xaionaro-go/primepipe/backend"
	"github.com/xaionaro-go/primepipe/drm"
	"github.com/xaionaro-go/primepipe/logger"
	"github.com/xaionaro-go/primepipe/mapper"
	"github.com/xaionaro-go/primepipe/picture"
	"github.com/xaionaro-go/primepipe/pool"
	"github.com/xaionaro-go/primepipe/types"
	"github.com/xaionaro-go/xsync"
)

// StreamHints describe the stream a session is opened for.
type StreamHints struct {
	CodecID            types.CodecID
	CodecTag           uint32
	Width              int
	Height             int
	BitsPerCodedSample int
	ExtraData          []byte

	// SampleAspectRatio is the container-level aspect hint, used only when
	// a decoded frame carries no aspect ratio of its own.
	SampleAspectRatio types.Rational

	// LowDelay requests decoding without frame reordering delay.
	LowDelay bool
}

// Config wires a session to its capabilities.
type Config struct {
	Backend backend.Factory

	// Devices is the device context provider; nil disables hardware
	// acceleration (the session then decodes to ordinary frames and binds
	// them without kernel handles).
	Devices backend.DeviceProvider

	// PrimaryDeviceType is the decode device, e.g. VAAPI. The export device
	// is always DRM.
	PrimaryDeviceType types.HardwareDeviceType
	DeviceName        types.HardwareDeviceName

	// SWPixelFormat is the software format of the frame contexts created on
	// both devices, e.g. "nv12".
	SWPixelFormat backend.PixelFormat

	// Importer derives kernel buffer-object handles when frames are bound
	// into pool slots; nil means no kernel handles are held.
	Importer drm.BufferImporter

	// MaxPoolSlots bounds the buffer pool; 0 means unbounded growth.
	MaxPoolSlots int
}

func (cfg Config) hwAccel() bool {
	return cfg.Devices != nil && cfg.PrimaryDeviceType != types.HardwareDeviceTypeNone
}

// Session is one decode session.
type Session struct {
	locker xsync.Mutex
	cfg    Config

	state        State
	controlFlags CodecControl
	aspectHint   types.Rational

	decoder       backend.Decoder
	primaryCtx    backend.Context
	exportCtx     backend.Context
	primaryFrames backend.FrameContext
	exportFrames  backend.FrameContext
	frameMapper   *mapper.Mapper

	bufferPool *pool.Pool
	closer     *astikit.Closer
}

func New(cfg Config) *Session {
	return &Session{
		cfg: cfg,
		bufferPool: pool.New(pool.Config{
			MaxSlots: cfg.MaxPoolSlots,
			Importer: cfg.Importer,
		}),
	}
}

func (s *Session) String() string {
	return fmt.Sprintf("Session(%s)", s.state)
}

// State reports the session's current state.
func (s *Session) State() State {
	return xsync.DoR1(context.TODO(), &s.locker, func() State {
		return s.state
	})
}

// Pool is the session's buffer slot pool.
func (s *Session) Pool() *pool.Pool {
	return s.bufferPool
}

// DecoderName is the opened decoder's self-description; empty while closed.
func (s *Session) DecoderName() string {
	return xsync.DoR1(context.TODO(), &s.locker, func() string {
		if s.decoder == nil {
			return ""
		}
		return s.decoder.Name()
	})
}

// PixelFormat is the negotiated output pixel format; empty while closed.
func (s *Session) PixelFormat() backend.PixelFormat {
	return xsync.DoR1(context.TODO(), &s.locker, func() backend.PixelFormat {
		if s.decoder == nil {
			return backend.PixelFormatNone
		}
		return s.decoder.PixelFormat()
	})
}

// Open selects a decoder capable of producing hardware-resident frames,
// creates the device and frame contexts when hardware acceleration is
// requested, and transitions the session to Ready. On failure the session
// stays Closed and holds no resources.
func (s *Session) Open(ctx context.Context, hints StreamHints) (_err error) {
	logger.Debugf(ctx, "Open(%dx%d, %s)", hints.Width, hints.Height, hints.CodecID)
	defer func() { logger.Debugf(ctx, "/Open(%dx%d, %s): %v", hints.Width, hints.Height, hints.CodecID, _err) }()
	ctx = belt.WithField(ctx, "codec_id", hints.CodecID)
	return xsync.DoR1(ctx, &s.locker, func() error {
		return s.open(ctx, hints)
	})
}

func (s *Session) open(ctx context.Context, hints StreamHints) (_err error) {
	if s.state != StateClosed {
		return fmt.Errorf("session is already open (state: %s)", s.state)
	}

	s.state = StateOpening
	s.closer = astikit.NewCloser()
	defer func() {
		if _err != nil {
			s.teardown(ctx)
		}
	}()

	params := backend.OpenParams{
		CodecID:            hints.CodecID,
		CodecTag:           hints.CodecTag,
		CodedWidth:         hints.Width,
		CodedHeight:        hints.Height,
		BitsPerCodedSample: hints.BitsPerCodedSample,
		ExtraData:          hints.ExtraData,
		LowDelay:           hints.LowDelay,
	}
	s.aspectHint = hints.SampleAspectRatio

	if s.cfg.hwAccel() {
		primaryCtx, err := s.cfg.Devices.CreateDeviceContext(ctx, s.cfg.PrimaryDeviceType, s.cfg.DeviceName)
		if err != nil {
			return fmt.Errorf("unable to create the %s device context: %w", s.cfg.PrimaryDeviceType, err)
		}
		s.primaryCtx = primaryCtx
		s.closer.Add(func() { _ = primaryCtx.Close(ctx) })

		exportCtx, err := s.cfg.Devices.CreateDeviceContext(ctx, types.HardwareDeviceTypeDRM, s.cfg.DeviceName)
		if err != nil {
			return fmt.Errorf("unable to create the DRM device context: %w", err)
		}
		s.exportCtx = exportCtx
		s.closer.Add(func() { _ = exportCtx.Close(ctx) })

		params.PrimaryDeviceContext = primaryCtx
	}

	decoder, err := s.cfg.Backend.OpenDecoder(ctx, params)
	if err != nil {
		return fmt.Errorf("unable to open a decoder: %w", err)
	}
	s.decoder = decoder
	s.closer.Add(func() { _ = decoder.Close(ctx) })
	logger.Infof(ctx, "using decoder %s (output format: %s)", decoder.Name(), decoder.PixelFormat())

	if s.cfg.hwAccel() {
		primaryFrames, err := s.primaryCtx.CreateFrameContext(ctx, backend.FrameContextConfig{
			Width:         hints.Width,
			Height:        hints.Height,
			PixelFormat:   decoder.PixelFormat(),
			SWPixelFormat: s.cfg.SWPixelFormat,
		})
		if err != nil {
			return fmt.Errorf("unable to init the %s frame context: %w", s.cfg.PrimaryDeviceType, err)
		}
		s.primaryFrames = primaryFrames
		s.closer.Add(func() { _ = primaryFrames.Close(ctx) })

		exportFrames, err := s.exportCtx.CreateFrameContext(ctx, backend.FrameContextConfig{
			Width:         hints.Width,
			Height:        hints.Height,
			PixelFormat:   backend.PixelFormatDRMPrime,
			SWPixelFormat: s.cfg.SWPixelFormat,
		})
		if err != nil {
			return fmt.Errorf("unable to init the DRM frame context: %w", err)
		}
		s.exportFrames = exportFrames
		s.closer.Add(func() { _ = exportFrames.Close(ctx) })

		s.frameMapper = mapper.New(exportFrames)
	}

	s.controlFlags = 0
	s.state = StateReady
	return nil
}

// teardown closes everything open() created and returns the session to the
// Closed state.
func (s *Session) teardown(ctx context.Context) {
	if s.closer != nil {
		if err := s.closer.Close(); err != nil {
			logger.Errorf(ctx, "unable to close the session resources: %v", err)
		}
	}
	s.closer = nil
	s.decoder = nil
	s.primaryCtx = nil
	s.exportCtx = nil
	s.primaryFrames = nil
	s.exportFrames = nil
	s.frameMapper = nil
	s.controlFlags = 0
	s.aspectHint = types.Rational{}
	s.state = StateClosed
}

// AddData forwards one compressed packet to the decoder. It returns true when
// the packet was accepted (or end-of-stream was already signaled, or the
// session never opened a decoder: both are benign no-ops) and false when the
// decoder's input queue is full and the caller must retry after draining
// output. A malformed packet is logged and dropped; the session stays Ready.
func (s *Session) AddData(ctx context.Context, pkt *backend.Packet) bool {
	return xsync.DoR1(ctx, &s.locker, func() bool {
		return s.addData(ctx, pkt)
	})
}

func (s *Session) addData(ctx context.Context, pkt *backend.Packet) bool {
	if s.decoder == nil {
		return true
	}

	err := s.decoder.SendPacket(ctx, pkt)
	switch {
	case err == nil:
		return true
	case errors.Is(err, backend.ErrAgain):
		return false
	case errors.Is(err, backend.ErrEOF):
		return true
	default:
		logger.Errorf(ctx, "send packet failed: %v", err)
		return true
	}
}

// SetCodecControl replaces the pending control flags.
func (s *Session) SetCodecControl(flags CodecControl) {
	s.locker.Do(context.TODO(), func() {
		s.controlFlags = flags
	})
}

// Drain signals end-of-stream to the decoder. It is re-entrant: callers
// invoke it (directly or through ControlDrain) alongside GetPicture until
// GetPicture reports end-of-stream.
func (s *Session) Drain(ctx context.Context) {
	s.locker.Do(ctx, func() {
		s.drain(ctx)
	})
}

func (s *Session) drain(ctx context.Context) {
	if s.decoder == nil {
		return
	}
	s.state = StateDraining
	if err := s.decoder.SendPacket(ctx, nil); err != nil &&
		!errors.Is(err, backend.ErrEOF) && !errors.Is(err, backend.ErrAgain) {
		logger.Errorf(ctx, "unable to signal end-of-stream to the decoder: %v", err)
	}
}

// GetPicture asks the decoder for the next output frame. On VerdictGotPicture
// the picture metadata is filled in and pic.Buffer holds one reference the
// caller must Release; any buffer already referenced by pic is released
// first. No pool slot is acquired unless a frame was actually produced.
func (s *Session) GetPicture(ctx context.Context, pic *picture.Picture) Verdict {
	return xsync.DoR1(ctx, &s.locker, func() Verdict {
		return s.getPicture(ctx, pic)
	})
}

func (s *Session) getPicture(ctx context.Context, pic *picture.Picture) Verdict {
	if s.decoder == nil {
		logger.Errorf(ctx, "GetPicture on a closed session")
		return VerdictFailed
	}

	if s.controlFlags&ControlDrain != 0 {
		s.drain(ctx)
	}

	frame, err := s.decoder.ReceiveFrame(ctx)
	switch {
	case err == nil:
	case errors.Is(err, backend.ErrAgain):
		return VerdictNeedMoreData
	case errors.Is(err, backend.ErrEOF):
		return VerdictEndOfStream
	default:
		logger.Errorf(ctx, "receive frame failed: %v", err)
		return VerdictFailed
	}

	var mapped *mapper.MappedFrame
	if s.frameMapper != nil {
		mapped, err = s.frameMapper.Map(ctx, frame)
		if err != nil {
			logger.Errorf(ctx, "%v", err)
			frame.Unref()
			return VerdictFailed
		}
	} else {
		mapped = &mapper.MappedFrame{Source: frame, Props: frame.Props()}
	}

	if pic.Buffer != nil {
		pic.Buffer.Release(ctx)
		pic.Buffer = nil
	}

	handle, err := s.bufferPool.Acquire(ctx)
	if err != nil {
		logger.Errorf(ctx, "unable to acquire a buffer slot: %v", err)
		mapped.Release()
		return VerdictFailed
	}
	if err := handle.Bind(ctx, mapped); err != nil {
		logger.Errorf(ctx, "unable to bind the frame: %v", err)
		handle.Release(ctx)
		return VerdictFailed
	}

	if mapped.Props.SampleAspectRatio.Float64() <= 0 && !s.aspectHint.IsZero() {
		mapped.Props.SampleAspectRatio = s.aspectHint
	}
	*pic = picture.Derive(mapped.Props)
	pic.Buffer = handle
	return VerdictGotPicture
}

// Reset flushes the decoder's internal buffers and clears the pending control
// flags, returning to Ready with no frames in flight. The device and frame
// contexts stay as they are: the opened decoder still references them, and
// dropping them here would break decoding after the reset (a full Close and
// Open is the way to rebuild them). Reset must not be called concurrently with
// AddData or GetPicture on the same session.
func (s *Session) Reset(ctx context.Context) {
	logger.Debugf(ctx, "Reset")
	defer logger.Debugf(ctx, "/Reset")
	s.locker.Do(ctx, func() {
		if s.decoder == nil {
			return
		}
		s.decoder.FlushBuffers(ctx)
		s.controlFlags = 0
		s.state = StateReady
	})
}

// Close disposes of the session: the decoder, both device contexts and the
// buffer pool (force-releasing kernel handles still in use).
func (s *Session) Close(ctx context.Context) error {
	logger.Debugf(ctx, "Close")
	defer logger.Debugf(ctx, "/Close")
	return xsync.DoR1(ctx, &s.locker, func() error {
		s.teardown(ctx)
		return s.bufferPool.Close(ctx)
	})
}
