package viewer

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/hpungsan/grabtext/internal/errors"
)

// textImage draws s in black on a white w x h canvas.
func textImage(w, h int, s string) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(4, 16),
	}
	d.DrawString(s)
	return img
}

func writePNG(t *testing.T, img image.Image) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "screenshot_1.png")
	require.NoError(t, imaging.Save(img, path))
	return path
}

func TestOpen_ScalesWideImageToViewport(t *testing.T) {
	path := writePNG(t, textImage(1600, 400, "Hello grabtext"))

	d, err := Open(path, "Hello grabtext")
	require.NoError(t, err)

	assert.Equal(t, path, d.Path)
	assert.Equal(t, "Hello grabtext", d.Text)
	assert.Equal(t, image.Pt(1600, 400), d.Original)
	assert.Equal(t, 400, d.Image.Bounds().Dx())
	assert.Equal(t, 100, d.Image.Bounds().Dy())
}

func TestOpen_ScalesTallImage(t *testing.T) {
	path := writePNG(t, textImage(300, 1200, "tall"))

	d, err := Open(path, "")
	require.NoError(t, err)
	assert.Equal(t, 100, d.Image.Bounds().Dx())
	assert.Equal(t, 400, d.Image.Bounds().Dy())
}

func TestOpen_NeverUpscales(t *testing.T) {
	path := writePNG(t, textImage(120, 40, "hi"))

	d, err := Open(path, "hi")
	require.NoError(t, err)
	assert.Equal(t, image.Pt(120, 40), d.Image.Bounds().Size())
}

func TestOpen_FreshInstances(t *testing.T) {
	path := writePNG(t, textImage(50, 50, "x"))

	a, err := Open(path, "x")
	require.NoError(t, err)
	b, err := Open(path, "x")
	require.NoError(t, err)

	assert.NotSame(t, a, b)
	a.Text = "changed"
	assert.Equal(t, "x", b.Text)
}

func TestOpen_MissingArtifact(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "gone.png"), "text")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}
