// slot.go defines one reusable buffer slot.

package pool

import (
	"github.com/xaionaro-go/primepipe/drm"
	"github.com/xaionaro-go/primepipe/mapper"
)

// Slot is one reusable unit of pool storage. It is either free (no payload,
// refcount zero, no kernel handles) or in use (payload present, refcount at
// least one). The slot object itself lives as long as the pool; only its
// payload and kernel handles cycle.
type Slot struct {
	// index is stable for the slot's lifetime.
	index int

	refCount int
	frame    *mapper.MappedFrame
	objects  []drm.BufferObject
}

func (s *Slot) Index() int {
	return s.index
}
