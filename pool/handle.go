// handle.go implements the caller-facing reference-counted buffer handle.

package pool

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/primepipe/drm"
	"github.com/xaionaro-go/primepipe/logger"
	"github.com/xaionaro-go/primepipe/mapper"
	"github.com/xaionaro-go/xsync"
)

// Handle is a reference-counted view of one pool slot. Multiple consumers
// (e.g. a render path and a cache) may share one decoded frame through
// Retain/Release; the kernel handles are released only when the last
// reference is gone.
type Handle struct {
	pool *Pool
	slot *Slot
}

func (h *Handle) String() string {
	return fmt.Sprintf("Handle(slot %d)", h.slot.index)
}

// Index is the stable index of the underlying slot.
func (h *Handle) Index() int {
	return h.slot.index
}

// Frame is the mapped frame bound into the slot; nil while unbound.
func (h *Handle) Frame() *mapper.MappedFrame {
	return xsync.DoR1(context.TODO(), &h.pool.locker, func() *mapper.MappedFrame {
		return h.slot.frame
	})
}

// PlaneObjects are the kernel buffer objects derived from the bound frame,
// one per memory plane object.
func (h *Handle) PlaneObjects() []drm.BufferObject {
	return xsync.DoR1(context.TODO(), &h.pool.locker, func() []drm.BufferObject {
		return h.slot.objects
	})
}

// RefCount reports the slot's current reference count.
func (h *Handle) RefCount() int {
	return xsync.DoR1(context.TODO(), &h.pool.locker, func() int {
		return h.slot.refCount
	})
}

// Bind replaces the slot's payload with the given mapped frame and derives
// the kernel buffer-object handles from its export descriptor. Bind takes
// ownership of the frame in every case: on failure the frame is released and
// the slot is left unbound (the caller still has to Release the handle).
func (h *Handle) Bind(ctx context.Context, frame *mapper.MappedFrame) error {
	return xsync.DoR1(ctx, &h.pool.locker, func() error {
		return h.bind(ctx, frame)
	})
}

func (h *Handle) bind(ctx context.Context, frame *mapper.MappedFrame) error {
	p, slot := h.pool, h.slot

	// a rebind releases the previous payload's kernel handles before new
	// ones are derived
	p.reclaim(ctx, slot)

	if frame.Desc != nil && p.cfg.Importer != nil {
		for _, obj := range frame.Desc.Objects {
			bo, err := p.cfg.Importer.Import(ctx, obj)
			if err != nil {
				p.reclaim(ctx, slot)
				frame.Release()
				return fmt.Errorf("unable to import a buffer object into slot %d: %w", slot.index, err)
			}
			slot.objects = append(slot.objects, bo)
			p.statKernelImports.Inc()
		}
	}

	slot.frame = frame
	p.statBinds.Inc()
	logger.Tracef(ctx, "bound %v into slot %d (%d kernel handles)", frame, slot.index, len(slot.objects))
	return nil
}

// Retain adds a reference to the slot.
func (h *Handle) Retain() {
	h.pool.locker.Do(context.TODO(), func() {
		h.pool.retain(h.slot)
	})
}

// Release drops one reference. When the last reference is dropped the kernel
// handles are released, the payload is cleared and the slot goes back to the
// free queue.
func (h *Handle) Release(ctx context.Context) {
	h.pool.locker.Do(ctx, func() {
		h.pool.release(ctx, h.slot)
	})
}
