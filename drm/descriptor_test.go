// descriptor_test.go tests the frame descriptor validation rules.

package drm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func validDescriptor() *FrameDescriptor {
	return &FrameDescriptor{
		Objects: []ObjectDescriptor{
			{FD: 10, Size: 0x200000, FormatModifier: 0},
		},
		Layers: []LayerDescriptor{
			{
				Format: 0x3231564e, // NV12
				Planes: []PlaneDescriptor{
					{ObjectIndex: 0, Offset: 0, Pitch: 1920},
					{ObjectIndex: 0, Offset: 1920 * 1080, Pitch: 1920},
				},
			},
		},
	}
}

func TestFrameDescriptorValidate(t *testing.T) {
	t.Parallel()

	t.Run("Valid", func(t *testing.T) {
		require.NoError(t, validDescriptor().Validate())
	})

	t.Run("Nil", func(t *testing.T) {
		var d *FrameDescriptor
		require.Error(t, d.Validate())
	})

	t.Run("NoObjects", func(t *testing.T) {
		d := validDescriptor()
		d.Objects = nil
		require.Error(t, d.Validate())
	})

	t.Run("TooManyObjects", func(t *testing.T) {
		d := validDescriptor()
		for len(d.Objects) <= MaxPlanes {
			d.Objects = append(d.Objects, ObjectDescriptor{FD: 11})
		}
		require.Error(t, d.Validate())
	})

	t.Run("NoLayers", func(t *testing.T) {
		d := validDescriptor()
		d.Layers = nil
		require.Error(t, d.Validate())
	})

	t.Run("NoPlanes", func(t *testing.T) {
		d := validDescriptor()
		d.Layers[0].Planes = nil
		require.Error(t, d.Validate())
	})

	t.Run("TooManyPlanes", func(t *testing.T) {
		d := validDescriptor()
		for len(d.Layers[0].Planes) <= MaxPlanes {
			d.Layers[0].Planes = append(d.Layers[0].Planes, PlaneDescriptor{})
		}
		require.Error(t, d.Validate())
	})

	t.Run("PlaneReferencesMissingObject", func(t *testing.T) {
		d := validDescriptor()
		d.Layers[0].Planes[1].ObjectIndex = 1
		require.Error(t, d.Validate())
	})

	t.Run("NegativeObjectIndex", func(t *testing.T) {
		d := validDescriptor()
		d.Layers[0].Planes[0].ObjectIndex = -1
		require.Error(t, d.Validate())
	})
}
