// derive_test.go tests the picture metadata derivation.

package picture

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xaionaro-go/primepipe/backend"
	"github.com/xaionaro-go/primepipe/types"
)

func baseProps() backend.FrameProps {
	return backend.FrameProps{
		Width:             1920,
		Height:            1080,
		SampleAspectRatio: types.NewRational(1, 1),
		PixelFormat:       backend.PixelFormatDRMPrime,
		HasData:           true,
		PTS:               int64(types.NoPTS),
		BestEffortPTS:     int64(types.NoPTS),
		TimeBase:          types.NewRational(1, 90000),
	}
}

func TestDeriveDisplayDimensions(t *testing.T) {
	t.Parallel()

	t.Run("SquarePixels", func(t *testing.T) {
		pic := Derive(baseProps())
		require.Equal(t, 1920, pic.DisplayWidth)
		require.Equal(t, 1080, pic.DisplayHeight)
	})

	t.Run("UnknownAspectActsAsSquare", func(t *testing.T) {
		props := baseProps()
		props.SampleAspectRatio = types.NewRational(0, 1)
		pic := Derive(props)
		require.Equal(t, 1920, pic.DisplayWidth)
		require.Equal(t, 1080, pic.DisplayHeight)
	})

	t.Run("AnamorphicClampsToCodedWidth", func(t *testing.T) {
		props := baseProps()
		props.Width = 1440
		props.Height = 1080
		props.SampleAspectRatio = types.NewRational(4, 3)
		pic := Derive(props)
		require.Equal(t, 1440, pic.DisplayWidth)
		require.Equal(t, 1080, pic.DisplayHeight)
	})

	t.Run("WidePixelsHalveTheHeight", func(t *testing.T) {
		props := baseProps()
		props.SampleAspectRatio = types.NewRational(2, 1)
		pic := Derive(props)
		require.Equal(t, 1920, pic.DisplayWidth)
		require.Equal(t, 960, pic.DisplayHeight)
	})

	t.Run("DerivedHeightMaskedToMultipleOfFour", func(t *testing.T) {
		props := baseProps()
		props.Width = 720
		props.Height = 576
		props.SampleAspectRatio = types.NewRational(16, 15)
		pic := Derive(props)
		require.Equal(t, 720, pic.DisplayWidth)
		require.Equal(t, 672, pic.DisplayHeight)
	})

	t.Run("NarrowPixels", func(t *testing.T) {
		props := baseProps()
		props.SampleAspectRatio = types.NewRational(3, 4)
		pic := Derive(props)
		require.Equal(t, 1440, pic.DisplayWidth)
		require.Equal(t, 1080, pic.DisplayHeight)
	})
}

func TestDeriveFlags(t *testing.T) {
	t.Parallel()

	t.Run("Progressive", func(t *testing.T) {
		pic := Derive(baseProps())
		require.Equal(t, Flags(0), pic.Flags)
	})

	t.Run("Interlaced", func(t *testing.T) {
		props := baseProps()
		props.Interlaced = true
		props.TopFieldFirst = true
		pic := Derive(props)
		require.Equal(t, FlagInterlaced|FlagTopFieldFirst, pic.Flags)
	})

	t.Run("NoPayloadMeansDropped", func(t *testing.T) {
		props := baseProps()
		props.HasData = false
		pic := Derive(props)
		require.Equal(t, FlagDropped, pic.Flags)
	})
}

func TestDeriveTimestamps(t *testing.T) {
	t.Parallel()

	t.Run("PTSRescaledToMicroseconds", func(t *testing.T) {
		props := baseProps()
		props.PTS = 90000
		pic := Derive(props)
		require.Equal(t, types.Timestamp(1000000), pic.PTS)
		require.Equal(t, types.NoPTS, pic.DTS)
	})

	t.Run("BestEffortFallback", func(t *testing.T) {
		props := baseProps()
		props.BestEffortPTS = 45000
		pic := Derive(props)
		require.Equal(t, types.Timestamp(500000), pic.PTS)
	})

	t.Run("UnknownStaysUnknown", func(t *testing.T) {
		pic := Derive(baseProps())
		require.Equal(t, types.NoPTS, pic.PTS)
	})
}

func TestDeriveIsDeterministic(t *testing.T) {
	t.Parallel()

	props := baseProps()
	props.PTS = 1234
	props.Interlaced = true
	require.Equal(t, Derive(props), Derive(props))
}
