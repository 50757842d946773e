// importer.go defines the buffer-object import/release capability.

package drm

import (
	"context"
)

// BufferObject is one imported kernel buffer-object handle. Close releases
// the kernel resource; it is idempotent (closing an already-closed object is
// a no-op, not an error).
type BufferObject interface {
	// Handle is the GEM handle value; zero after Close.
	Handle() uint32

	Close() error
}

// BufferImporter turns an exported buffer object into a kernel handle owned
// by the caller. Implementations must be safe for concurrent use: the decode
// goroutine imports while consumer goroutines release.
type BufferImporter interface {
	Import(ctx context.Context, obj ObjectDescriptor) (BufferObject, error)
}
