// verdict.go defines the session states and the GetPicture verdicts.

package session

import (
	"fmt"
)

// State of the decode session.
type State int

const (
	StateClosed = State(iota)
	StateOpening
	StateReady
	StateDraining
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpening:
		return "opening"
	case StateReady:
		return "ready"
	case StateDraining:
		return "draining"
	}
	return fmt.Sprintf("unknown_%d", int(s))
}

// Verdict is the result of one GetPicture call.
type Verdict int

const (
	// VerdictNeedMoreData: no frame is ready yet, feed more input first.
	VerdictNeedMoreData = Verdict(iota)

	// VerdictGotPicture: a picture was produced; the caller owns one
	// reference on its buffer.
	VerdictGotPicture

	// VerdictEndOfStream is terminal for the current stream segment.
	VerdictEndOfStream

	// VerdictFailed: a hard per-frame error; the session stays usable.
	VerdictFailed
)

func (v Verdict) String() string {
	switch v {
	case VerdictNeedMoreData:
		return "need_more_data"
	case VerdictGotPicture:
		return "got_picture"
	case VerdictEndOfStream:
		return "end_of_stream"
	case VerdictFailed:
		return "failed"
	}
	return fmt.Sprintf("unknown_%d", int(v))
}

// CodecControl are the pending control flags of a session.
type CodecControl uint32

const (
	// ControlDrain requests a drain: GetPicture signals end-of-stream to the
	// decoder before asking for output.
	ControlDrain = CodecControl(1 << iota)
)
