package renderer

import (
	"fmt"
	"strconv"

	"Prism3D/internal/gpu"
	"Prism3D/internal/logger"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

const DefaultBloomMips = 5

// BloomMip is one level of the bloom chain. Size halves continuously while
// Width and Height are floored and never drop below one.
type BloomMip struct {
	Size   mgl32.Vec2
	Width  int
	Height int
	Target *RenderTarget
	fb     *Framebuffer
}

// Bloom downsamples an HDR image into a chain of progressively smaller
// targets and blends it back up with a tent filter. Level 0 is the result.
type Bloom struct {
	dev       gpu.Device
	quad      *ScreenQuad
	mips      []BloomMip
	down      gpu.Program
	up        gpu.Program
	srcWidth  int
	srcHeight int
}

// bloomChainSizes returns the integer size of each level. Level 0 matches
// the source; the chain stops early once a level reaches 1x1.
func bloomChainSizes(width, height, mipCount int) [][2]int {
	sizes := make([][2]int, 0, mipCount)
	w, h := width, height
	for i := 0; i < mipCount; i++ {
		sizes = append(sizes, [2]int{w, h})
		if w == 1 && h == 1 {
			break
		}
		w, h = max(1, w/2), max(1, h/2)
	}
	return sizes
}

func NewBloom(dev gpu.Device, quad *ScreenQuad, width, height, mipCount int) (b *Bloom, err error) {
	if mipCount < 1 {
		return nil, fmt.Errorf("bloom: mip count must be at least 1, got %d", mipCount)
	}
	if err := validateSize(width, height, dev.MaxTextureSize()); err != nil {
		return nil, fmt.Errorf("bloom: %w", err)
	}

	b = &Bloom{dev: dev, quad: quad, srcWidth: width, srcHeight: height}
	var cleanup Unwind
	defer func() {
		if err != nil {
			cleanup.Unwind()
		}
	}()

	size := mgl32.Vec2{float32(width), float32(height)}
	for i, s := range bloomChainSizes(width, height, mipCount) {
		rt, err := NewRenderTarget(dev, RenderTargetDesc{
			Kind:   gpu.Texture2D,
			Width:  s[0],
			Height: s[1],
			Format: gpu.FormatR11G11B10F,
			Filter: gpu.FilterLinear,
			Wrap:   gpu.WrapClampToEdge,
		})
		if err != nil {
			return nil, fmt.Errorf("bloom mip %d: %w", i, err)
		}
		cleanup.Add(rt.Release)

		fb := NewFramebuffer(dev, "bloom-mip"+strconv.Itoa(i))
		cleanup.Add(fb.Release)
		if err := fb.Attach(gpu.Color0, rt); err != nil {
			return nil, err
		}
		fb.SetDrawBuffers(1)
		if err := fb.CheckComplete(); err != nil {
			return nil, fmt.Errorf("bloom mip %d: %w", i, err)
		}

		b.mips = append(b.mips, BloomMip{Size: size, Width: s[0], Height: s[1], Target: rt, fb: fb})
		size = size.Mul(0.5)
	}
	if len(b.mips) < mipCount {
		logger.Log.Warn("Bloom chain truncated at 1x1",
			zap.Int("requested", mipCount),
			zap.Int("levels", len(b.mips)))
	}

	if b.down, err = dev.CreateProgram(gpu.ShaderSource{Name: "bloom-downsample", Vertex: screenQuadVertex, Fragment: bloomDownsampleFragment()}); err != nil {
		return nil, err
	}
	cleanup.Add(b.down.Delete)
	if b.up, err = dev.CreateProgram(gpu.ShaderSource{Name: "bloom-upsample", Vertex: screenQuadVertex, Fragment: bloomUpsampleFragment()}); err != nil {
		return nil, err
	}
	cleanup.Add(b.up.Delete)

	b.down.Use()
	b.down.SetInt("srcTexture", 0)
	b.up.Use()
	b.up.SetInt("srcTexture", 0)

	logger.Log.Debug("Bloom chain created",
		zap.Int("levels", len(b.mips)),
		zap.Int("width", width),
		zap.Int("height", height))
	return b, nil
}

func (b *Bloom) Mips() []BloomMip { return b.mips }

// Texture is the bloom contribution, valid after Render.
func (b *Bloom) Texture() *RenderTarget { return b.mips[0].Target }

// Render fills the chain from source. The viewport is left at the full
// source resolution; blending is left disabled.
func (b *Bloom) Render(source *RenderTarget, filterRadius float32) {
	b.renderDownsamples(source)
	b.renderUpsamples(filterRadius)
	b.dev.Viewport(0, 0, b.srcWidth, b.srcHeight)
}

func (b *Bloom) renderDownsamples(source *RenderTarget) {
	b.down.Use()
	b.down.SetVec2("srcResolution", mgl32.Vec2{float32(source.Width()), float32(source.Height())})
	source.BindAsTexture(0)

	for i := range b.mips {
		mip := &b.mips[i]
		mip.fb.Bind()
		b.quad.Draw()

		// The next level reads this one.
		b.down.SetVec2("srcResolution", mip.Size)
		mip.Target.BindAsTexture(0)
	}
}

func (b *Bloom) renderUpsamples(filterRadius float32) {
	b.up.Use()
	b.up.SetFloat("filterRadius", filterRadius)

	b.dev.SetBlend(gpu.BlendAdditive)
	for i := len(b.mips) - 1; i > 0; i-- {
		b.mips[i].Target.BindAsTexture(0)
		b.mips[i-1].fb.Bind()
		b.quad.Draw()
	}
	b.dev.SetBlend(gpu.BlendNone)
}

func (b *Bloom) Release() {
	if b == nil {
		return
	}
	for _, m := range b.mips {
		m.fb.Release()
		m.Target.Release()
	}
	b.mips = nil
	if b.down != nil {
		b.down.Delete()
		b.down = nil
	}
	if b.up != nil {
		b.up.Delete()
		b.up = nil
	}
}
