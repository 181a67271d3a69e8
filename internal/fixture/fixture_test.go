package fixture

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateWritesPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", DefaultFile)
	require.NoError(t, Generate(path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, Width, img.Bounds().Dx())
	assert.Equal(t, Height, img.Bounds().Dy())
}

func TestRenderDrawsText(t *testing.T) {
	img := Render(SampleLines)

	dark := 0
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			if r, _, _, _ := img.At(x, y).RGBA(); r < 0x8000 {
				dark++
			}
		}
	}
	assert.Greater(t, dark, 1000, "expected rendered glyph pixels")

	// Nothing is drawn left of the margin.
	for y := 0; y < Height; y++ {
		r, _, _, _ := img.At(marginLeft-1, y).RGBA()
		require.Equal(t, uint32(0xffff), r, "unexpected ink at x=%d y=%d", marginLeft-1, y)
	}
}

func TestEnsure(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)

	created, err := Ensure(path)
	require.NoError(t, err)
	assert.True(t, created)

	info, err := os.Stat(path)
	require.NoError(t, err)

	created, err = Ensure(path)
	require.NoError(t, err)
	assert.False(t, created, "existing file must be reused")

	again, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, info.ModTime(), again.ModTime())
}
