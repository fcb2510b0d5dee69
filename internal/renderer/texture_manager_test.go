package renderer

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"Prism3D/internal/gpu"
	"Prism3D/internal/gpu/gputest"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{255, 0, 0, 255})
	}
	path := filepath.Join(t.TempDir(), "tex.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func TestTextureManagerCachesByPath(t *testing.T) {
	dev := gputest.New()
	tm := NewTextureManager(dev)
	path := writePNG(t, 4, 2)

	a, err := tm.LoadTexture(path)
	require.NoError(t, err)
	b, err := tm.LoadTexture(path)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, dev.Ops("CreateTexture"), 1)
	stats := tm.GetStats()
	assert.Equal(t, 1, stats.CacheHits)
	assert.Equal(t, 1, stats.CacheMisses)
	assert.Equal(t, 1, stats.ActiveTextures)

	desc, ok := dev.Texture(a)
	require.True(t, ok)
	assert.Equal(t, gpu.FormatRGBA8, desc.Format)
	assert.Equal(t, int32(4), desc.Width)
}

func TestTextureManagerReleaseByRefCount(t *testing.T) {
	dev := gputest.New()
	tm := NewTextureManager(dev)
	path := writePNG(t, 2, 2)

	tex, _ := tm.LoadTexture(path)
	tm.AddReference(tex)
	tm.ReleaseTexture(tex)
	assert.Equal(t, 1, dev.LiveTextures(), "one reference still held")
	tm.ReleaseTexture(tex)
	assert.Zero(t, dev.LiveTextures())

	// Unknown textures are ignored.
	tm.ReleaseTexture(tex)
	tm.ReleaseTexture(0)
	assert.Zero(t, tm.GetStats().ActiveTextures)
}

// redTopRow is a w x h image whose first row is opaque red.
func redTopRow(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.NRGBA{255, 0, 0, 255})
	}
	return img
}

func TestTextureManagerLoadsTGA(t *testing.T) {
	dev := gputest.New()
	tm := NewTextureManager(dev)
	path := filepath.Join(t.TempDir(), "tex.tga")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, tga.Encode(f, redTopRow(3, 2)))
	require.NoError(t, f.Close())

	tex, err := tm.LoadTexture(path)
	require.NoError(t, err)

	desc, ok := dev.Texture(tex)
	require.True(t, ok)
	assert.Equal(t, int32(3), desc.Width)
	assert.Equal(t, int32(2), desc.Height)
}

func TestDecodeImageFormats(t *testing.T) {
	encoders := map[string]func(io.Writer, image.Image) error{
		"png":  png.Encode,
		"tga":  tga.Encode,
		"webp": func(w io.Writer, m image.Image) error { return nativewebp.Encode(w, m, nil) },
		"jpeg": func(w io.Writer, m image.Image) error { return jpeg.Encode(w, m, nil) },
	}
	for name, encode := range encoders {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, encode(&buf, redTopRow(4, 3)))

			img, err := DecodeImage(buf.Bytes())
			require.NoError(t, err)

			assert.Equal(t, image.Rect(0, 0, 4, 3), img.Bounds())
			if name != "jpeg" {
				assert.Equal(t, color.NRGBA{255, 0, 0, 255}, color.NRGBAModel.Convert(img.At(0, 0)))
				assert.Equal(t, color.NRGBA{0, 0, 0, 0}, color.NRGBAModel.Convert(img.At(0, 1)))
			}
		})
	}
}

func TestTextureManagerMissingFile(t *testing.T) {
	tm := NewTextureManager(gputest.New())
	_, err := tm.LoadTexture(filepath.Join(t.TempDir(), "nope.png"))
	assert.Error(t, err)
}

func TestTextureManagerSolid(t *testing.T) {
	dev := gputest.New()
	tm := NewTextureManager(dev)

	a, err := tm.Solid(color.RGBA{128, 128, 255, 255})
	require.NoError(t, err)
	b, err := tm.Solid(color.RGBA{128, 128, 255, 255})
	require.NoError(t, err)
	c, err := tm.Solid(color.RGBA{255, 255, 255, 255})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, 2, dev.LiveTextures())

	tm.Clear()
	assert.Zero(t, dev.LiveTextures())
}

func TestFlipRGBAPutsBottomRowFirst(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 2))
	img.Set(0, 0, color.RGBA{255, 0, 0, 255})
	img.Set(0, 1, color.RGBA{0, 0, 255, 255})

	out := flipRGBA(img)

	assert.Equal(t, []uint8{0, 0, 255, 255, 255, 0, 0, 255}, out.Pix)
}
