//go:build !(unix && (amd64 || arm64))

package libav

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFallbackFrameAccess(t *testing.T) {
	f := &Frame{}

	// ordinary frames must not come out flagged as dropped
	require.True(t, f.hasData())

	desc, err := f.readDescriptor()
	require.Error(t, err)
	require.Nil(t, desc)
}
