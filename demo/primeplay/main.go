// Command primeplay decodes one video stream through a hardware decode
// session and walks every produced picture through the zero-copy mapping and
// buffer pool machinery, releasing the pictures from a separate goroutine the
// way a presentation layer would.
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"strings"
	"time"

	"github.com/asticode/go-astiav"
	"github.com/davecgh/go-spew/spew"
	"github.com/dustin/go-humanize"
	"github.com/facebookincubator/go-belt"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/observability"
	"go.uber.org/atomic"

	"github.com/xaionaro-go/primepipe/backend"
	"github.com/xaionaro-go/primepipe/backend/libav"
	"github.com/xaionaro-go/primepipe/drm"
	"github.com/xaionaro-go/primepipe/internal"
	"github.com/xaionaro-go/primepipe/logger"
	"github.com/xaionaro-go/primepipe/picture"
	"github.com/xaionaro-go/primepipe/pool"
	"github.com/xaionaro-go/primepipe/session"
	"github.com/xaionaro-go/primepipe/types"
)

func main() {

	// parse the input

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "syntax: %s <URL-from>\n", os.Args[0])
		pflag.PrintDefaults()
	}

	loggerLevel := logger.LevelWarning
	pflag.Var(&loggerLevel, "log-level", "Log level")
	netPprofAddr := pflag.String("net-pprof-listen-addr", "", "an address to listen for incoming net/pprof connections")
	hwDeviceTypeFlag := pflag.String("hwdevice-type", "vaapi", "the hardware device type to decode on")
	hwDeviceName := pflag.String("hwdevice", "", "the hardware device to decode on, e.g. /dev/dri/renderD128")
	drmDevicePath := pflag.String("drm-device", "/dev/dri/card0", "the DRM device to derive buffer-object handles on")
	inputOptions := pflag.StringSlice("input-option", nil, "a custom key=value option for the input, can be repeated")
	maxPoolSlots := pflag.Int("max-pool-slots", 0, "bound the buffer slot pool (0: unbounded)")
	softwareOnly := pflag.Bool("sw", false, "decode in software, without hardware device contexts")

	pflag.Parse()
	if len(pflag.Args()) != 1 {
		pflag.Usage()
		os.Exit(1)
	}
	fromURL := pflag.Arg(0)

	// init the context

	ctx := withLogger(context.Background(), loggerLevel)
	ctx, cancelFn := context.WithCancel(ctx)
	defer cancelFn()
	defer belt.Flush(ctx)

	if *netPprofAddr != "" {
		observability.Go(ctx, func(ctx context.Context) {
			logger.Errorf(ctx, "%v", http.ListenAndServe(*netPprofAddr, nil))
		})
	}

	// the input

	logger.Debugf(ctx, "opening '%s' as the input...", fromURL)
	var dictionary *astiav.Dictionary
	if len(*inputOptions) > 0 {
		dictionary = astiav.NewDictionary()
		internal.SetFinalizerFree(ctx, dictionary)
		for _, opt := range *inputOptions {
			key, value, found := strings.Cut(opt, "=")
			assert(ctx, found, "an input option must look like key=value", opt)
			logger.Debugf(ctx, "input option '%s' = '%s'", key, value)
			dictionary.Set(key, value, 0)
		}
	}
	formatContext := astiav.AllocFormatContext()
	assert(ctx, formatContext != nil)
	err := formatContext.OpenInput(fromURL, nil, dictionary)
	assert(ctx, err == nil, err)
	defer func() {
		formatContext.CloseInput()
		formatContext.Free()
	}()
	err = formatContext.FindStreamInfo(nil)
	assert(ctx, err == nil, err)

	var videoStream *astiav.Stream
	for _, stream := range formatContext.Streams() {
		if stream.CodecParameters().MediaType() == astiav.MediaTypeVideo {
			videoStream = stream
			break
		}
	}
	assert(ctx, videoStream != nil, "no video stream in the input")
	codecParams := videoStream.CodecParameters()
	streamTimeBase := types.NewRational(videoStream.TimeBase().Num(), videoStream.TimeBase().Den())

	// the session

	cfg := session.Config{
		Backend:      libav.Factory{},
		MaxPoolSlots: *maxPoolSlots,
	}
	if !*softwareOnly {
		hwDeviceType := types.HardwareDeviceTypeFromString(*hwDeviceTypeFlag)
		assert(ctx, hwDeviceType > types.HardwareDeviceTypeNone, "unknown hardware device type", *hwDeviceTypeFlag)
		cfg.Devices = libav.DeviceProvider{}
		cfg.PrimaryDeviceType = hwDeviceType
		cfg.DeviceName = types.HardwareDeviceName(*hwDeviceName)
		cfg.SWPixelFormat = backend.PixelFormat(astiav.PixelFormatNv12.String())

		drmDevice, err := drm.OpenDevice(ctx, *drmDevicePath)
		if err != nil {
			logger.Warnf(ctx, "unable to open '%s', decoded frames will carry no buffer-object handles: %v", *drmDevicePath, err)
		} else {
			defer drmDevice.Close()
			cfg.Importer = drmDevice
		}
	}

	sess := session.New(cfg)
	defer sess.Close(ctx)

	err = sess.Open(ctx, session.StreamHints{
		CodecID:   types.CodecID(codecParams.CodecID()),
		Width:     codecParams.Width(),
		Height:    codecParams.Height(),
		ExtraData: codecParams.ExtraData(),
		SampleAspectRatio: types.Rational{
			Num: codecParams.SampleAspectRatio().Num(),
			Den: codecParams.SampleAspectRatio().Den(),
		},
	})
	assert(ctx, err == nil, err)
	logger.Infof(ctx, "decoding with %s into '%s'", sess.DecoderName(), sess.PixelFormat())

	// the presentation side: pictures are released from here, concurrently
	// with the decode loop acquiring slots

	pictureChan := make(chan *pool.Handle, 2)
	presentedCount := atomic.NewUint64(0)
	presenterDone := make(chan struct{})
	observability.Go(ctx, func(ctx context.Context) {
		defer close(presenterDone)
		for h := range pictureChan {
			presentedCount.Add(1)
			h.Release(ctx)
		}
	})

	t := time.NewTicker(time.Second)
	defer t.Stop()
	var bytesFed uint64
	var pic picture.Picture
	dumpedFirst := false

	deliver := func() {
		if !dumpedFirst {
			dumpedFirst = true
			logger.Debugf(ctx, "first picture: %dx%d (display: %dx%d), pts:%d",
				pic.Width, pic.Height, pic.DisplayWidth, pic.DisplayHeight, pic.PTS)
			logger.Tracef(ctx, "first descriptor: %s", spew.Sdump(pic.Buffer.Frame().Desc))
		}
		pictureChan <- pic.Buffer
		pic.Buffer = nil
	}

	// the decode loop

	avPkt := astiav.AllocPacket()
	defer avPkt.Free()
reading:
	for {
		select {
		case <-ctx.Done():
			break reading
		case <-t.C:
			free, used := sess.Pool().Counts(ctx)
			logger.Infof(ctx, "fed %s, presented %d pictures, pool: %d free / %d used",
				humanize.Bytes(bytesFed), presentedCount.Load(), free, used)
		default:
		}

		err := formatContext.ReadFrame(avPkt)
		if err != nil {
			if !errors.Is(err, astiav.ErrEof) {
				logger.Errorf(ctx, "unable to read the input: %v", err)
			}
			break reading
		}
		if avPkt.StreamIndex() != videoStream.Index() {
			avPkt.Unref()
			continue
		}

		pkt := &backend.Packet{
			Data: bytes.Clone(avPkt.Data()),
			PTS:  types.RescaleTimestamp(avPkt.Pts(), streamTimeBase),
			DTS:  types.RescaleTimestamp(avPkt.Dts(), streamTimeBase),
		}
		avPkt.Unref()
		bytesFed += uint64(len(pkt.Data))

		for !sess.AddData(ctx, pkt) {
			switch verdict := sess.GetPicture(ctx, &pic); verdict {
			case session.VerdictGotPicture:
				deliver()
			case session.VerdictNeedMoreData:
			case session.VerdictEndOfStream:
				break reading
			default:
				assert(ctx, false, "unexpected verdict", verdict)
			}
		}
		for {
			verdict := sess.GetPicture(ctx, &pic)
			if verdict != session.VerdictGotPicture {
				assert(ctx, verdict == session.VerdictNeedMoreData, "unexpected verdict", verdict)
				break
			}
			deliver()
		}
	}

	// drain

	sess.SetCodecControl(session.ControlDrain)
draining:
	for {
		switch verdict := sess.GetPicture(ctx, &pic); verdict {
		case session.VerdictGotPicture:
			deliver()
		case session.VerdictNeedMoreData:
		case session.VerdictEndOfStream:
			break draining
		default:
			assert(ctx, false, "unexpected verdict", verdict)
		}
	}

	close(pictureChan)
	<-presenterDone

	free, used := sess.Pool().Counts(ctx)
	stats := sess.Pool().Stats()
	fmt.Printf("presented %d pictures (%s fed); pool: %d free / %d used; acquires:%d binds:%d imports:%d releases:%d\n",
		presentedCount.Load(), humanize.Bytes(bytesFed), free, used,
		stats.Acquires, stats.Binds, stats.KernelImports, stats.KernelReleases)
}
