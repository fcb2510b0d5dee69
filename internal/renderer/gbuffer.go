package renderer

import (
	"fmt"

	"Prism3D/internal/gpu"
)

// GBuffer holds per-pixel world position, normal and albedo+specular for
// the deferred lighting pass, plus a depth texture that the forward pass
// reuses.
type GBuffer struct {
	dev gpu.Device
	fb  *Framebuffer

	Position   *RenderTarget
	Normal     *RenderTarget
	AlbedoSpec *RenderTarget
	Depth      *RenderTarget

	program gpu.Program
}

func NewGBuffer(dev gpu.Device, width, height int) (g *GBuffer, err error) {
	g = &GBuffer{dev: dev}
	var cleanup Unwind
	defer func() {
		if err != nil {
			cleanup.Unwind()
		}
	}()

	g.fb = NewFramebuffer(dev, "gbuffer")
	cleanup.Add(g.fb.Release)

	layout := []struct {
		dst    **RenderTarget
		slot   gpu.Attachment
		format gpu.PixelFormat
	}{
		{&g.Position, gpu.Color0, gpu.FormatRGBA16F},
		{&g.Normal, gpu.Color1, gpu.FormatRGBA16F},
		{&g.AlbedoSpec, gpu.Color2, gpu.FormatRGBA8},
		{&g.Depth, gpu.Depth, gpu.FormatDepth24},
	}
	for _, a := range layout {
		rt, err := NewRenderTarget(dev, RenderTargetDesc{
			Kind:   gpu.Texture2D,
			Width:  width,
			Height: height,
			Format: a.format,
			Filter: gpu.FilterNearest,
			Wrap:   gpu.WrapClampToEdge,
		})
		if err != nil {
			return nil, fmt.Errorf("gbuffer %v: %w", a.slot, err)
		}
		cleanup.Add(rt.Release)
		if err := g.fb.Attach(a.slot, rt); err != nil {
			return nil, err
		}
		*a.dst = rt
	}
	g.fb.SetDrawBuffers(3)
	if err = g.fb.CheckComplete(); err != nil {
		return nil, err
	}

	if g.program, err = dev.CreateProgram(gpu.ShaderSource{Name: "gbuffer", Vertex: meshVertex, Fragment: gbufferFragment}); err != nil {
		return nil, err
	}
	cleanup.Add(g.program.Delete)
	g.program.Use()
	bindMaterialSamplers(g.program)
	return g, nil
}

func (g *GBuffer) Framebuffer() *Framebuffer { return g.fb }

// Render clears the buffer and rasterises every deferred object.
func (g *GBuffer) Render(cam CameraSource, scene *Scene, useNormalMaps bool) {
	g.fb.Bind()
	g.dev.ClearColor(0, 0, 0, 0)
	g.dev.Clear(gpu.ClearColorBit | gpu.ClearDepthBit)
	g.dev.SetDepthTest(true)

	g.program.Use()
	g.program.SetMat4("view", cam.ViewMatrix())
	g.program.SetMat4("projection", cam.ProjectionMatrix())
	g.program.SetBool("useNormalMaps", useNormalMaps)

	scene.eachObject(func(d Drawable) {
		if d.IsDeferred() {
			d.Draw(g.program)
		}
	})
}

func (g *GBuffer) Release() {
	if g == nil {
		return
	}
	g.fb.Release()
	g.Position.Release()
	g.Normal.Release()
	g.AlbedoSpec.Release()
	g.Depth.Release()
	if g.program != nil {
		g.program.Delete()
	}
}
