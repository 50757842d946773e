//go:build !(unix && (amd64 || arm64))

package libav

import (
	"fmt"
	"runtime"

	"github.com/xaionaro-go/primepipe/drm"
)

// without the raw struct access the payload cannot be inspected; a frame
// the decoder produced normally has one
func (f *Frame) hasData() bool {
	return true
}

func (f *Frame) readDescriptor() (*drm.FrameDescriptor, error) {
	return nil, fmt.Errorf("reading kernel sharing descriptors is not supported on %s/%s", runtime.GOOS, runtime.GOARCH)
}
