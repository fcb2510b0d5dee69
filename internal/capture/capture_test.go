package capture

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"Prism3D/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/webp"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func testConfig(t *testing.T, format string) config.Capture {
	return config.Capture{Dir: filepath.Join(t.TempDir(), "shots"), Format: format, Scale: 1, Queue: 4}
}

var orange = color.NRGBA{R: 240, G: 120, B: 10, A: 255}

func TestScale(t *testing.T) {
	img := solid(64, 32, orange)

	assert.Same(t, img, Scale(img, 1))

	half := Scale(img, 0.5)
	assert.Equal(t, image.Rect(0, 0, 32, 16), half.Bounds())
	assert.Equal(t, orange, half.NRGBAAt(10, 10))

	tiny := Scale(solid(3, 3, orange), 0.1)
	assert.Equal(t, image.Rect(0, 0, 1, 1), tiny.Bounds())
}

func TestEncodePNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, solid(8, 4, orange), "PNG"))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 8, 4), img.Bounds())
	assert.Equal(t, orange, color.NRGBAModel.Convert(img.At(3, 2)))
}

func TestEncodeWebPIsLossless(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, solid(8, 4, orange), "webp"))

	img, err := webp.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 8, 4), img.Bounds())
	assert.Equal(t, orange, color.NRGBAModel.Convert(img.At(5, 1)))
}

func TestEncodeUnknownFormat(t *testing.T) {
	assert.Error(t, Encode(&bytes.Buffer{}, solid(1, 1, orange), "bmp"))
}

func TestNewSaverRejectsSettings(t *testing.T) {
	cfg := testConfig(t, "gif")
	_, err := NewSaver(cfg)
	assert.Error(t, err)

	cfg = testConfig(t, "png")
	cfg.Scale = 0
	_, err = NewSaver(cfg)
	assert.Error(t, err)
}

func TestSaverWritesQueuedFrames(t *testing.T) {
	cfg := testConfig(t, "png")
	cfg.Scale = 0.5
	s, err := NewSaver(cfg)
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC) }

	var mu sync.Mutex
	var saved []string
	s.OnSaved = func(path string, err error) {
		assert.NoError(t, err)
		mu.Lock()
		saved = append(saved, path)
		mu.Unlock()
	}

	first, err := s.Submit(solid(16, 16, orange))
	require.NoError(t, err)
	second, err := s.Submit(solid(16, 16, orange))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	assert.Equal(t, filepath.Join(cfg.Dir, "prism-20260301-123000-001.png"), first)
	assert.Equal(t, filepath.Join(cfg.Dir, "prism-20260301-123000-002.png"), second)
	assert.Equal(t, []string{first, second}, saved)

	f, err := os.Open(second)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())
}

func TestSaverDropsWhenQueueFull(t *testing.T) {
	cfg := testConfig(t, "png")
	cfg.Queue = 1
	s, err := NewSaver(cfg)
	require.NoError(t, err)

	busy := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	s.OnSaved = func(string, error) {
		once.Do(func() {
			close(busy)
			<-release
		})
	}

	_, err = s.Submit(solid(4, 4, orange))
	require.NoError(t, err)
	<-busy

	_, err = s.Submit(solid(4, 4, orange))
	require.NoError(t, err, "one frame fits in the queue")
	_, err = s.Submit(solid(4, 4, orange))
	assert.Error(t, err)

	close(release)
	require.NoError(t, s.Close())
}

func TestSaverClose(t *testing.T) {
	s, err := NewSaver(testConfig(t, "webp"))
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.Submit(solid(1, 1, orange))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSaverReportsWriteFailures(t *testing.T) {
	cfg := testConfig(t, "png")
	s, err := NewSaver(cfg)
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(cfg.Dir))

	_, err = s.Submit(solid(2, 2, orange))
	require.NoError(t, err)

	assert.Error(t, s.Close())
}
