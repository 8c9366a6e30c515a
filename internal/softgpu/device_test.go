package softgpu

import (
	"image/color"
	"testing"

	"github.com/garethgeorge/atlaspack/internal/atlas"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	red  = color.RGBA{R: 255, A: 255}
	blue = color.RGBA{B: 255, A: 255}
)

func TestDevice_Lifecycle(t *testing.T) {
	d := New(128)
	a, err := d.CreateTarget(16, 8)
	require.NoError(t, err)
	assert.Equal(t, 16, a.Width())
	assert.Equal(t, 8, a.Height())
	assert.Equal(t, 1, d.Live())

	_, err = d.CreateTarget(129, 1)
	assert.ErrorIs(t, err, ErrSizeLimited)
	_, err = d.CreateTarget(0, 1)
	assert.ErrorIs(t, err, ErrBadRegion)

	require.NoError(t, d.DestroyTarget(a))
	assert.Equal(t, 0, d.Live())
	assert.Equal(t, 1, d.Created())
	assert.ErrorIs(t, d.DestroyTarget(a), ErrDestroyed)
}

func TestDevice_CopyRegion(t *testing.T) {
	d := New(0)
	src, err := d.NewTexture(4, 4)
	require.NoError(t, err)
	dst, err := d.NewTexture(8, 8)
	require.NoError(t, err)

	src.Fill(atlas.Region{W: 4, H: 4}, red)
	src.Set(1, 2, blue)
	require.NoError(t, d.CopyRegion(src, atlas.Region{W: 4, H: 4}, dst, atlas.Region{X: 3, Y: 2, W: 4, H: 4}))

	assert.Equal(t, red, dst.At(3, 2))
	assert.Equal(t, blue, dst.At(4, 4))
	assert.Equal(t, color.RGBA{}, dst.At(2, 2))
	assert.Equal(t, color.RGBA{}, dst.At(7, 6))
	assert.Equal(t, 1, d.Copies())

	t.Run("rejects mismatched or out of bounds regions", func(t *testing.T) {
		err := d.CopyRegion(src, atlas.Region{W: 4, H: 4}, dst, atlas.Region{W: 3, H: 4})
		assert.ErrorIs(t, err, ErrBadRegion)
		err = d.CopyRegion(src, atlas.Region{W: 4, H: 4}, dst, atlas.Region{X: 5, Y: 5, W: 4, H: 4})
		assert.ErrorIs(t, err, ErrBadRegion)
	})

	t.Run("rejects foreign targets", func(t *testing.T) {
		other, err := New(0).NewTexture(4, 4)
		require.NoError(t, err)
		err = d.CopyRegion(other, atlas.Region{W: 4, H: 4}, dst, atlas.Region{W: 4, H: 4})
		assert.ErrorIs(t, err, ErrForeign)
	})
}
