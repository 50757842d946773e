// pool_test.go tests the buffer slot pool: queue discipline, reference
// counting and the exactly-once release of kernel handles.

package pool

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/xaionaro-go/primepipe/drm"
	"github.com/xaionaro-go/primepipe/mapper"
)

type fakeObject struct {
	importer *fakeImporter
	handle   uint32
	closed   atomic.Int32
}

func (o *fakeObject) Handle() uint32 {
	if o.closed.Load() > 0 {
		return 0
	}
	return o.handle
}

func (o *fakeObject) Close() error {
	if o.closed.Inc() == 1 {
		o.importer.closeCount.Inc()
	}
	return nil
}

type fakeImporter struct {
	importCount atomic.Int32
	closeCount  atomic.Int32
	failFrom    int32
}

func (i *fakeImporter) Import(ctx context.Context, obj drm.ObjectDescriptor) (drm.BufferObject, error) {
	n := i.importCount.Inc()
	if i.failFrom > 0 && n >= i.failFrom {
		return nil, fmt.Errorf("injected import failure")
	}
	return &fakeObject{importer: i, handle: uint32(n)}, nil
}

func testFrame(objects int) *mapper.MappedFrame {
	desc := &drm.FrameDescriptor{}
	for idx := 0; idx < objects; idx++ {
		desc.Objects = append(desc.Objects, drm.ObjectDescriptor{FD: 10 + idx, Size: 0x1000})
	}
	desc.Layers = []drm.LayerDescriptor{{
		Format: 0x3231564e,
		Planes: []drm.PlaneDescriptor{{ObjectIndex: 0, Pitch: 64}},
	}}
	return &mapper.MappedFrame{Desc: desc}
}

func TestPoolAcquireReuse(t *testing.T) {
	ctx := context.Background()
	p := New(Config{})

	h0, err := p.Acquire(ctx)
	require.NoError(t, err)
	h1, err := p.Acquire(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, h0.Index())
	require.Equal(t, 1, h1.Index())

	free, used := p.Counts(ctx)
	require.Equal(t, 0, free)
	require.Equal(t, 2, used)

	// the longest-idle slot is reused first
	h0.Release(ctx)
	h1.Release(ctx)
	h2, err := p.Acquire(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, h2.Index())
	h3, err := p.Acquire(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, h3.Index())

	// no growth happened while free slots existed
	free, used = p.Counts(ctx)
	require.Equal(t, 0, free)
	require.Equal(t, 2, used)
}

func TestPoolBounded(t *testing.T) {
	ctx := context.Background()
	p := New(Config{MaxSlots: 2})

	h0, err := p.Acquire(ctx)
	require.NoError(t, err)
	_, err = p.Acquire(ctx)
	require.NoError(t, err)

	_, err = p.Acquire(ctx)
	require.ErrorIs(t, err, ErrExhausted)

	h0.Release(ctx)
	h2, err := p.Acquire(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, h2.Index())
}

func TestPoolRefCounting(t *testing.T) {
	ctx := context.Background()
	imp := &fakeImporter{}
	p := New(Config{Importer: imp})

	h, err := p.Acquire(ctx)
	require.NoError(t, err)
	require.NoError(t, h.Bind(ctx, testFrame(2)))
	require.Equal(t, int32(2), imp.importCount.Load())
	require.Len(t, h.PlaneObjects(), 2)

	h.Retain()
	require.Equal(t, 2, h.RefCount())

	h.Release(ctx)
	require.Equal(t, 1, h.RefCount())
	require.Equal(t, int32(0), imp.closeCount.Load(), "handles must survive while references remain")
	require.NotNil(t, h.Frame())

	h.Release(ctx)
	require.Equal(t, int32(2), imp.closeCount.Load(), "the last release must close every handle")
	require.Nil(t, h.Frame())

	free, used := p.Counts(ctx)
	require.Equal(t, 1, free)
	require.Equal(t, 0, used)
}

func TestPoolRebindReleasesPreviousHandles(t *testing.T) {
	ctx := context.Background()
	imp := &fakeImporter{}
	p := New(Config{Importer: imp})

	h, err := p.Acquire(ctx)
	require.NoError(t, err)
	require.NoError(t, h.Bind(ctx, testFrame(1)))
	require.NoError(t, h.Bind(ctx, testFrame(1)))

	require.Equal(t, int32(2), imp.importCount.Load())
	require.Equal(t, int32(1), imp.closeCount.Load())

	h.Release(ctx)
	require.Equal(t, int32(2), imp.closeCount.Load())
}

func TestPoolBindFailure(t *testing.T) {
	ctx := context.Background()
	imp := &fakeImporter{failFrom: 2}
	p := New(Config{Importer: imp})

	h, err := p.Acquire(ctx)
	require.NoError(t, err)
	err = h.Bind(ctx, testFrame(2))
	require.Error(t, err)

	// the object imported before the failure must not leak
	require.Equal(t, int32(1), imp.closeCount.Load())
	require.Nil(t, h.Frame())
	require.Empty(t, h.PlaneObjects())

	h.Release(ctx)
	free, used := p.Counts(ctx)
	require.Equal(t, 1, free)
	require.Equal(t, 0, used)
}

func TestPoolOverRelease(t *testing.T) {
	ctx := context.Background()
	p := New(Config{})

	h, err := p.Acquire(ctx)
	require.NoError(t, err)
	h.Release(ctx)
	h.Release(ctx)

	free, used := p.Counts(ctx)
	require.Equal(t, 1, free)
	require.Equal(t, 0, used)
}

func TestPoolClose(t *testing.T) {
	ctx := context.Background()
	imp := &fakeImporter{}
	p := New(Config{Importer: imp})

	h, err := p.Acquire(ctx)
	require.NoError(t, err)
	require.NoError(t, h.Bind(ctx, testFrame(1)))

	require.NoError(t, p.Close(ctx))
	require.Equal(t, int32(1), imp.closeCount.Load(), "teardown must release handles still in use")

	_, err = p.Acquire(ctx)
	require.Error(t, err)

	require.NoError(t, p.Close(ctx))
}

func TestPoolConcurrency(t *testing.T) {
	ctx := context.Background()
	imp := &fakeImporter{}
	p := New(Config{Importer: imp})

	const goroutines = 8
	const iterations = 200

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				h, err := p.Acquire(ctx)
				require.NoError(t, err)
				require.NoError(t, h.Bind(ctx, testFrame(1)))
				h.Retain()
				h.Release(ctx)
				h.Release(ctx)
			}
		}()
	}
	wg.Wait()

	_, used := p.Counts(ctx)
	require.Equal(t, 0, used)
	require.Equal(t, imp.importCount.Load(), imp.closeCount.Load(), "every imported handle must be closed exactly once")

	stats := p.Stats()
	require.Equal(t, uint64(goroutines*iterations), stats.Acquires)
	require.Equal(t, uint64(goroutines*iterations), stats.Binds)
	require.Equal(t, stats.KernelImports, stats.KernelReleases)
}
