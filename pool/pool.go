// pool.go implements the reusable buffer slot pool.

// Package pool manages a growing set of reusable buffer slots. A slot binds
// one mapped hardware frame and the kernel buffer-object handles derived from
// it; handles are released exactly once, when the slot's refcount drops to
// zero or on pool teardown. The pool is safe for concurrent use by the decode
// goroutine and any number of consumer goroutines.
package pool

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/atomic"

	"github.com/xaionaro-go/primepipe/drm"
	"github.com/xaionaro-go/primepipe/internal"
	"github.com/xaionaro-go/primepipe/logger"
	"github.com/xaionaro-go/xsync"
)

// ErrExhausted is returned by Acquire when the pool is bounded and every
// slot is in use.
var ErrExhausted = errors.New("buffer slot pool exhausted")

// Config configures a Pool.
type Config struct {
	// MaxSlots bounds the pool growth; 0 means the pool grows without bound
	// and Acquire never fails with ErrExhausted.
	MaxSlots int

	// Importer derives kernel buffer-object handles when a frame is bound
	// into a slot. May be nil (software decoding): slots then hold no kernel
	// handles.
	Importer drm.BufferImporter
}

// Stats are monotonic pool counters, readable without taking the pool lock.
type Stats struct {
	Acquires       uint64
	Binds          uint64
	KernelImports  uint64
	KernelReleases uint64
}

// Pool is the buffer slot pool. The zero value is not usable; use New.
type Pool struct {
	locker xsync.Mutex
	cfg    Config
	closed bool

	// every slot index is in exactly one of free and used;
	// len(all) == len(free)+len(used)
	all  []*Slot
	free []int
	used []int

	statAcquires       atomic.Uint64
	statBinds          atomic.Uint64
	statKernelImports  atomic.Uint64
	statKernelReleases atomic.Uint64
}

func New(cfg Config) *Pool {
	return &Pool{
		cfg: cfg,
	}
}

func (p *Pool) String() string {
	return fmt.Sprintf("Pool(%d slots)", len(p.all))
}

// Acquire returns a handle to a slot ready to receive a frame payload, with
// the refcount set to one. The longest-idle free slot is reused first; a new
// slot is appended only when no free slot exists.
func (p *Pool) Acquire(ctx context.Context) (*Handle, error) {
	return xsync.DoR2(ctx, &p.locker, func() (*Handle, error) {
		return p.acquire(ctx)
	})
}

func (p *Pool) acquire(ctx context.Context) (*Handle, error) {
	if p.closed {
		return nil, fmt.Errorf("the pool is closed")
	}

	var slot *Slot
	if len(p.free) > 0 {
		idx := p.free[0]
		p.free = p.free[1:]
		p.used = append(p.used, idx)
		slot = p.all[idx]
	} else {
		if p.cfg.MaxSlots > 0 && len(p.all) >= p.cfg.MaxSlots {
			return nil, fmt.Errorf("%w: all %d slots are in use", ErrExhausted, len(p.all))
		}
		slot = &Slot{index: len(p.all)}
		p.all = append(p.all, slot)
		p.used = append(p.used, slot.index)
		logger.Tracef(ctx, "grew the pool to %d slots", len(p.all))
	}

	slot.refCount = 1
	p.statAcquires.Inc()
	internal.Assert(ctx, len(p.all) == len(p.free)+len(p.used), len(p.all), len(p.free), len(p.used))
	return &Handle{pool: p, slot: slot}, nil
}

func (p *Pool) retain(slot *Slot) {
	slot.refCount++
}

func (p *Pool) release(ctx context.Context, slot *Slot) {
	slot.refCount--
	if slot.refCount > 0 {
		return
	}
	if slot.refCount < 0 {
		logger.Errorf(ctx, "slot %d was released more times than acquired", slot.index)
		slot.refCount = 0
		return
	}
	p.reclaim(ctx, slot)

	for i, idx := range p.used {
		if idx == slot.index {
			p.used = append(p.used[:i], p.used[i+1:]...)
			break
		}
	}
	p.free = append(p.free, slot.index)
	internal.Assert(ctx, len(p.all) == len(p.free)+len(p.used), len(p.all), len(p.free), len(p.used))
}

// reclaim releases the slot's kernel handles and frame payload. Kernel
// release failures are logged but the slot is still cleared: a leaked kernel
// resource must not stall the pool.
func (p *Pool) reclaim(ctx context.Context, slot *Slot) {
	for _, obj := range slot.objects {
		if err := obj.Close(); err != nil {
			logger.Warnf(ctx, "unable to release a kernel buffer handle of slot %d: %v", slot.index, err)
		}
		p.statKernelReleases.Inc()
	}
	slot.objects = slot.objects[:0]

	if slot.frame != nil {
		slot.frame.Release()
		slot.frame = nil
	}
}

// Counts reports the current free and in-use slot counts.
func (p *Pool) Counts(ctx context.Context) (free, used int) {
	p.locker.Do(ctx, func() {
		free, used = len(p.free), len(p.used)
	})
	return
}

func (p *Pool) Stats() Stats {
	return Stats{
		Acquires:       p.statAcquires.Load(),
		Binds:          p.statBinds.Load(),
		KernelImports:  p.statKernelImports.Load(),
		KernelReleases: p.statKernelReleases.Load(),
	}
}

// Close force-releases every slot, including slots still nominally in use:
// kernel resources must not outlive the pool even when a consumer misbehaves.
func (p *Pool) Close(ctx context.Context) error {
	return xsync.DoR1(ctx, &p.locker, func() error {
		if p.closed {
			return nil
		}
		p.closed = true
		for _, slot := range p.all {
			if slot.refCount > 0 {
				logger.Warnf(ctx, "slot %d still has %d references on pool teardown, force-releasing", slot.index, slot.refCount)
			}
			slot.refCount = 0
			p.reclaim(ctx, slot)
		}
		p.used = p.used[:0]
		p.free = p.free[:0]
		for _, slot := range p.all {
			p.free = append(p.free, slot.index)
		}
		return nil
	})
}
