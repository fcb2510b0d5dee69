package renderer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"os"
	"sync"

	"Prism3D/internal/gpu"
	"Prism3D/internal/logger"

	"github.com/ftrvxmtrx/tga"
	"go.uber.org/zap"
	"golang.org/x/image/webp"
)

// TextureStats provides debugging and profiling information
type TextureStats struct {
	TotalTextures  int
	CacheHits      int
	CacheMisses    int
	ActiveTextures int
}

// TextureManager caches material textures by path with reference counts.
type TextureManager struct {
	dev             gpu.Device
	textureCache    map[string]gpu.Texture
	textureRefCount map[gpu.Texture]int
	texturePaths    map[gpu.Texture]string
	mu              sync.RWMutex
	stats           TextureStats
}

func NewTextureManager(dev gpu.Device) *TextureManager {
	return &TextureManager{
		dev:             dev,
		textureCache:    make(map[string]gpu.Texture),
		textureRefCount: make(map[gpu.Texture]int),
		texturePaths:    make(map[gpu.Texture]string),
	}
}

// LoadTexture loads a PNG, JPEG, TGA or WebP file or returns the cached texture,
// incrementing its reference count either way.
func (tm *TextureManager) LoadTexture(filePath string) (gpu.Texture, error) {
	if tex, ok := tm.lookup(filePath); ok {
		return tex, nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return 0, err
	}
	img, err := DecodeImage(data)
	if err != nil {
		return 0, fmt.Errorf("decode %s: %w", filePath, err)
	}
	return tm.CreateTextureFromImage(img, filePath)
}

// DecodeImage decodes PNG, JPEG or WebP data, recognised by signature, and
// reads anything else as TGA, which has no signature. The TGA package
// registers an empty magic string, so image.Decode would hand it everything.
func DecodeImage(data []byte) (image.Image, error) {
	r := bytes.NewReader(data)
	switch {
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return png.Decode(r)
	case bytes.HasPrefix(data, []byte{0xff, 0xd8, 0xff}):
		return jpeg.Decode(r)
	case len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return webp.Decode(r)
	default:
		return tga.Decode(r)
	}
}

// Solid returns a cached 1x1 texture of the given colour.
func (tm *TextureManager) Solid(c color.RGBA) (gpu.Texture, error) {
	name := fmt.Sprintf("solid:%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
	if tex, ok := tm.lookup(name); ok {
		return tex, nil
	}
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.SetRGBA(0, 0, c)
	return tm.CreateTextureFromImage(img, name)
}

func (tm *TextureManager) lookup(name string) (gpu.Texture, bool) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	tex, exists := tm.textureCache[name]
	if !exists {
		return 0, false
	}
	tm.textureRefCount[tex]++
	tm.stats.CacheHits++
	logger.Log.Debug("Texture cache hit",
		zap.String("name", name),
		zap.Uint32("texture", uint32(tex)),
		zap.Int("refCount", tm.textureRefCount[tex]))
	return tex, true
}

// flipRGBA copies img into an RGBA image with the bottom row first, the
// order texture uploads expect.
func flipRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	src := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(src, src.Bounds(), img, b.Min, draw.Src)

	out := image.NewRGBA(src.Rect)
	h := src.Rect.Dy()
	for y := 0; y < h; y++ {
		copy(out.Pix[y*out.Stride:(y+1)*out.Stride], src.Pix[(h-1-y)*src.Stride:(h-y)*src.Stride])
	}
	return out
}

// CreateTextureFromImage uploads img under name. A second call with the
// same name returns the cached texture.
func (tm *TextureManager) CreateTextureFromImage(img image.Image, name string) (gpu.Texture, error) {
	if tex, ok := tm.lookup(name); ok {
		return tex, nil
	}

	rgba := flipRGBA(img)
	w, h := rgba.Rect.Dx(), rgba.Rect.Dy()
	if err := validateSize(w, h, tm.dev.MaxTextureSize()); err != nil {
		return 0, fmt.Errorf("texture %s: %w", name, err)
	}
	tex, err := tm.dev.CreateTexture(gpu.TextureDesc{
		Kind:   gpu.Texture2D,
		Width:  int32(w),
		Height: int32(h),
		Format: gpu.FormatRGBA8,
		Filter: gpu.FilterLinear,
		Wrap:   gpu.WrapRepeat,
	})
	if err != nil {
		return 0, fmt.Errorf("texture %s: %w", name, err)
	}
	tm.dev.UploadImageRGBA8(tex, w, h, rgba.Pix)

	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.stats.CacheMisses++
	tm.textureCache[name] = tex
	tm.textureRefCount[tex] = 1
	tm.texturePaths[tex] = name
	tm.stats.TotalTextures++
	tm.stats.ActiveTextures++

	logger.Log.Info("Texture loaded and cached",
		zap.String("name", name),
		zap.Uint32("texture", uint32(tex)),
		zap.Int("width", w),
		zap.Int("height", h))
	return tex, nil
}

// AddReference increments the reference count for a texture
func (tm *TextureManager) AddReference(tex gpu.Texture) {
	if tex == 0 {
		return
	}
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.textureRefCount[tex]++
}

// ReleaseTexture decrements the reference count and frees the texture when
// it reaches zero.
func (tm *TextureManager) ReleaseTexture(tex gpu.Texture) {
	if tex == 0 {
		return
	}

	tm.mu.Lock()
	defer tm.mu.Unlock()

	refCount, exists := tm.textureRefCount[tex]
	if !exists {
		logger.Log.Warn("Attempted to release unknown texture", zap.Uint32("texture", uint32(tex)))
		return
	}

	refCount--
	tm.textureRefCount[tex] = refCount
	if refCount > 0 {
		return
	}

	tm.dev.DeleteTexture(tex)
	path := tm.texturePaths[tex]
	delete(tm.textureCache, path)
	delete(tm.textureRefCount, tex)
	delete(tm.texturePaths, tex)
	tm.stats.ActiveTextures--

	logger.Log.Debug("Texture freed", zap.Uint32("texture", uint32(tex)), zap.String("name", path))
}

func (tm *TextureManager) GetStats() TextureStats {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	stats := tm.stats
	stats.ActiveTextures = len(tm.textureRefCount)
	return stats
}

// Clear frees every cached texture regardless of reference counts.
func (tm *TextureManager) Clear() {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	for tex := range tm.textureRefCount {
		tm.dev.DeleteTexture(tex)
	}
	tm.textureCache = make(map[string]gpu.Texture)
	tm.textureRefCount = make(map[gpu.Texture]int)
	tm.texturePaths = make(map[gpu.Texture]string)
	tm.stats.ActiveTextures = 0

	logger.Log.Info("Texture manager cleared")
}
