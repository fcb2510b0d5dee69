package renderer

import (
	"errors"
	"fmt"
	"math"

	"Prism3D/internal/gpu"
)

var ErrInvalidDimensions = errors.New("render target: invalid dimensions")

// RenderTargetDesc describes an off-screen image. Width and Height are
// plain ints so they can be validated before narrowing.
type RenderTargetDesc struct {
	Kind   gpu.TextureKind
	Width  int
	Height int
	Format gpu.PixelFormat
	Filter gpu.Filter
	Wrap   gpu.Wrap
}

// RenderTarget is a texture usable both as a sampler and as a framebuffer
// attachment. It is owned by whoever created it and cannot be resized.
type RenderTarget struct {
	dev  gpu.Device
	desc RenderTargetDesc
	tex  gpu.Texture
}

func validateSize(width, height, limit int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	if width > math.MaxInt32 || height > math.MaxInt32 {
		return fmt.Errorf("%w: %dx%d overflows int32", ErrInvalidDimensions, width, height)
	}
	if limit > 0 && (width > limit || height > limit) {
		return fmt.Errorf("%w: %dx%d exceeds device limit %d", ErrInvalidDimensions, width, height, limit)
	}
	return nil
}

func NewRenderTarget(dev gpu.Device, desc RenderTargetDesc) (*RenderTarget, error) {
	if err := validateSize(desc.Width, desc.Height, dev.MaxTextureSize()); err != nil {
		return nil, err
	}
	if desc.Kind == gpu.TextureCube && desc.Width != desc.Height {
		return nil, fmt.Errorf("%w: cube map faces must be square, got %dx%d", ErrInvalidDimensions, desc.Width, desc.Height)
	}
	tex, err := dev.CreateTexture(gpu.TextureDesc{
		Kind:   desc.Kind,
		Width:  int32(desc.Width),
		Height: int32(desc.Height),
		Format: desc.Format,
		Filter: desc.Filter,
		Wrap:   desc.Wrap,
	})
	if err != nil {
		return nil, fmt.Errorf("render target %dx%d %v: %w", desc.Width, desc.Height, desc.Format, err)
	}
	return &RenderTarget{dev: dev, desc: desc, tex: tex}, nil
}

func (rt *RenderTarget) Width() int              { return rt.desc.Width }
func (rt *RenderTarget) Height() int             { return rt.desc.Height }
func (rt *RenderTarget) Kind() gpu.TextureKind   { return rt.desc.Kind }
func (rt *RenderTarget) Format() gpu.PixelFormat { return rt.desc.Format }
func (rt *RenderTarget) Texture() gpu.Texture    { return rt.tex }
func (rt *RenderTarget) Desc() RenderTargetDesc  { return rt.desc }

// AttachTo binds the target as a draw destination of fb.
func (rt *RenderTarget) AttachTo(fb gpu.Framebuffer, slot gpu.Attachment) {
	rt.dev.AttachTexture(fb, slot, rt.tex)
}

// BindAsTexture binds the target for sampling on the given texture unit.
func (rt *RenderTarget) BindAsTexture(unit int) {
	rt.dev.BindTexture(unit, rt.tex, rt.desc.Kind)
}

// Release frees the backing storage. It is safe to call more than once.
func (rt *RenderTarget) Release() {
	if rt == nil || rt.tex == 0 {
		return
	}
	rt.dev.DeleteTexture(rt.tex)
	rt.tex = 0
}
