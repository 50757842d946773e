// timestamp.go defines the caller-facing timestamp representation.

package types

import (
	"math"
)

// Timestamp is a presentation or decode timestamp expressed in the
// caller-facing time base (microseconds).
type Timestamp int64

// NoPTS marks an unknown timestamp, the same way libav's AV_NOPTS_VALUE does.
const NoPTS = Timestamp(math.MinInt64)

// TimeBase is the caller-facing time base: timestamps are microseconds.
var TimeBase = Rational{Num: 1, Den: 1000000}

func (t Timestamp) IsValid() bool {
	return t != NoPTS
}

// RescaleTimestamp converts ts from the given time base into the caller-facing
// time base. An unknown input stays unknown.
func RescaleTimestamp(ts int64, timeBase Rational) Timestamp {
	if ts == int64(NoPTS) || timeBase.IsZero() {
		return NoPTS
	}
	seconds := float64(ts) * timeBase.Float64()
	return Timestamp(math.Round(seconds * float64(TimeBase.Den)))
}
