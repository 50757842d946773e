// timestamp_test.go tests the timestamp rescaling rules.

package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRescaleTimestamp(t *testing.T) {
	t.Parallel()

	t.Run("MPEGClock", func(t *testing.T) {
		require.Equal(t, Timestamp(1000000), RescaleTimestamp(90000, NewRational(1, 90000)))
		require.Equal(t, Timestamp(11), RescaleTimestamp(1, NewRational(1, 90000)))
	})

	t.Run("Milliseconds", func(t *testing.T) {
		require.Equal(t, Timestamp(42000), RescaleTimestamp(42, NewRational(1, 1000)))
	})

	t.Run("Identity", func(t *testing.T) {
		require.Equal(t, Timestamp(1234), RescaleTimestamp(1234, TimeBase))
	})

	t.Run("Negative", func(t *testing.T) {
		require.Equal(t, Timestamp(-1000000), RescaleTimestamp(-90000, NewRational(1, 90000)))
	})

	t.Run("UnknownStaysUnknown", func(t *testing.T) {
		require.Equal(t, NoPTS, RescaleTimestamp(int64(NoPTS), NewRational(1, 90000)))
		require.False(t, NoPTS.IsValid())
	})

	t.Run("ZeroTimeBase", func(t *testing.T) {
		require.Equal(t, NoPTS, RescaleTimestamp(100, Rational{}))
	})
}

func TestRational(t *testing.T) {
	t.Parallel()

	require.InDelta(t, 1.3333, NewRational(4, 3).Float64(), 0.001)
	require.True(t, Rational{}.IsZero())
	require.False(t, TimeBase.IsZero())
	require.Equal(t, NewRational(3, 4), NewRational(4, 3).Reverse())
}
