package renderer

import (
	"fmt"

	"Prism3D/internal/gpu"

	"github.com/go-gl/mathgl/mgl32"
)

type pointLightUniforms struct {
	position, linear, quadratic string
	ambient, diffuse, specular  string
	shadowIndex, farPlane       string
}

var pointShadowSamplerNames = [MaxShadowedPoints]string{
	"pointShadowMap0",
	"pointShadowMap1",
	"pointShadowMap2",
	"pointShadowMap3",
	"pointShadowMap4",
	"pointShadowMap5",
	"pointShadowMap6",
}

// PostProcess owns the HDR accumulation target, the bright-pass target and
// the full-screen passes that read and write them.
type PostProcess struct {
	dev    gpu.Device
	quad   *ScreenQuad
	width  int
	height int

	hdrFB    *Framebuffer
	HDR      *RenderTarget
	hdrDepth *RenderTarget
	brightFB *Framebuffer
	Bright   *RenderTarget

	lighting  gpu.Program
	forward   gpu.Program
	bright    gpu.Program
	composite gpu.Program
	debug     gpu.Program

	pointNames [MaxPointLights]pointLightUniforms
}

// lightingInputs is everything the deferred lighting pass samples.
type lightingInputs struct {
	gbuffer      *GBuffer
	occlusion    *RenderTarget
	scene        *Scene
	eye          mgl32.Vec3
	sky          mgl32.Vec3
	fallback2D   *RenderTarget
	fallbackCube *RenderTarget
}

func NewPostProcess(dev gpu.Device, quad *ScreenQuad, width, height int) (p *PostProcess, err error) {
	p = &PostProcess{dev: dev, quad: quad, width: width, height: height}
	var cleanup Unwind
	defer func() {
		if err != nil {
			cleanup.Unwind()
		}
	}()

	target := func(format gpu.PixelFormat, filter gpu.Filter) (*RenderTarget, error) {
		rt, err := NewRenderTarget(dev, RenderTargetDesc{
			Kind:   gpu.Texture2D,
			Width:  width,
			Height: height,
			Format: format,
			Filter: filter,
			Wrap:   gpu.WrapClampToEdge,
		})
		if err == nil {
			cleanup.Add(rt.Release)
		}
		return rt, err
	}

	if p.HDR, err = target(gpu.FormatRGBA16F, gpu.FilterLinear); err != nil {
		return nil, fmt.Errorf("hdr colour: %w", err)
	}
	if p.hdrDepth, err = target(gpu.FormatDepth24, gpu.FilterNearest); err != nil {
		return nil, fmt.Errorf("hdr depth: %w", err)
	}
	if p.Bright, err = target(gpu.FormatRGBA16F, gpu.FilterLinear); err != nil {
		return nil, fmt.Errorf("bright: %w", err)
	}

	p.hdrFB = NewFramebuffer(dev, "hdr")
	cleanup.Add(p.hdrFB.Release)
	if err = p.hdrFB.Attach(gpu.Color0, p.HDR); err != nil {
		return nil, err
	}
	if err = p.hdrFB.Attach(gpu.Depth, p.hdrDepth); err != nil {
		return nil, err
	}
	p.hdrFB.SetDrawBuffers(1)
	if err = p.hdrFB.CheckComplete(); err != nil {
		return nil, err
	}

	p.brightFB = NewFramebuffer(dev, "bright")
	cleanup.Add(p.brightFB.Release)
	if err = p.brightFB.Attach(gpu.Color0, p.Bright); err != nil {
		return nil, err
	}
	p.brightFB.SetDrawBuffers(1)
	if err = p.brightFB.CheckComplete(); err != nil {
		return nil, err
	}

	programs := []struct {
		dst *gpu.Program
		src gpu.ShaderSource
	}{
		{&p.lighting, gpu.ShaderSource{Name: "deferred-lighting", Vertex: screenQuadVertex, Fragment: lightingFragment}},
		{&p.forward, gpu.ShaderSource{Name: "forward", Vertex: meshVertex, Fragment: forwardFragment}},
		{&p.bright, gpu.ShaderSource{Name: "bright-pass", Vertex: screenQuadVertex, Fragment: brightFragment}},
		{&p.composite, gpu.ShaderSource{Name: "composite", Vertex: screenQuadVertex, Fragment: compositeFragment}},
		{&p.debug, gpu.ShaderSource{Name: "debug-view", Vertex: screenQuadVertex, Fragment: debugFragment}},
	}
	for _, prog := range programs {
		if *prog.dst, err = dev.CreateProgram(prog.src); err != nil {
			return nil, err
		}
		cleanup.Add((*prog.dst).Delete)
	}

	for i := range p.pointNames {
		base := fmt.Sprintf("pointLights[%d].", i)
		p.pointNames[i] = pointLightUniforms{
			position:    base + "position",
			linear:      base + "linear",
			quadratic:   base + "quadratic",
			ambient:     base + "ambient",
			diffuse:     base + "diffuse",
			specular:    base + "specular",
			shadowIndex: base + "shadowIndex",
			farPlane:    base + "farPlane",
		}
	}

	p.lighting.Use()
	p.lighting.SetInt("gAlbedoSpec", unitGAlbedoSpec)
	p.lighting.SetInt("gNormal", unitGNormal)
	p.lighting.SetInt("gPosition", unitGPosition)
	p.lighting.SetInt("ssao", unitSSAO)
	p.lighting.SetInt("dirShadowMap", unitDirShadow)
	for i, name := range pointShadowSamplerNames {
		p.lighting.SetInt(name, int32(unitPointShadow0+i))
	}
	p.lighting.SetFloat("shininess", 32)

	p.forward.Use()
	bindMaterialSamplers(p.forward)
	p.bright.Use()
	p.bright.SetInt("colorBuffer", 0)
	p.composite.Use()
	p.composite.SetInt("colorBuffer", 0)
	p.composite.SetInt("bloomBlur", 1)
	p.debug.Use()
	p.debug.SetInt("debugTexture", 0)
	return p, nil
}

// DrawDeferredLighting shades the G-buffer into the HDR target. Only depth
// is cleared; the full-screen quad overwrites every colour pixel.
func (p *PostProcess) DrawDeferredLighting(in lightingInputs) {
	p.hdrFB.Bind()
	p.dev.Clear(gpu.ClearDepthBit)
	p.dev.SetDepthTest(false)

	p.lighting.Use()
	in.gbuffer.AlbedoSpec.BindAsTexture(unitGAlbedoSpec)
	in.gbuffer.Normal.BindAsTexture(unitGNormal)
	in.gbuffer.Position.BindAsTexture(unitGPosition)
	in.occlusion.BindAsTexture(unitSSAO)

	p.lighting.SetVec3("viewPos", in.eye)
	p.lighting.SetVec3("skyColor", in.sky)

	p.setSunUniforms(in.scene.sun, in.fallback2D)

	n, shadowed := 0, 0
	for _, l := range in.scene.lights {
		if l == nil {
			continue
		}
		if n == MaxPointLights {
			break
		}
		names := &p.pointNames[n]
		linear, quadratic := l.Attenuation()
		p.lighting.SetVec3(names.position, l.Position)
		p.lighting.SetFloat(names.linear, linear)
		p.lighting.SetFloat(names.quadratic, quadratic)
		p.lighting.SetVec3(names.ambient, l.Color.Mul(l.Ambient))
		p.lighting.SetVec3(names.diffuse, l.Color.Mul(l.Diffuse))
		p.lighting.SetVec3(names.specular, l.Color.Mul(l.Specular))
		p.lighting.SetFloat(names.farPlane, l.Range)

		index := int32(-1)
		if l.CastsShadow() && l.ShadowMap() != nil && shadowed < MaxShadowedPoints {
			l.ShadowMap().BindAsTexture(unitPointShadow0 + shadowed)
			index = int32(shadowed)
			shadowed++
		}
		p.lighting.SetInt(names.shadowIndex, index)
		n++
	}
	for ; shadowed < MaxShadowedPoints; shadowed++ {
		in.fallbackCube.BindAsTexture(unitPointShadow0 + shadowed)
	}
	p.lighting.SetInt("numberPointLights", int32(n))

	p.quad.Draw()
}

func (p *PostProcess) setSunUniforms(sun *DirectionalLight, fallback *RenderTarget) {
	if sun == nil {
		p.lighting.SetVec3("dirLight.direction", mgl32.Vec3{0, -1, 0})
		p.lighting.SetVec3("dirLight.ambient", mgl32.Vec3{})
		p.lighting.SetVec3("dirLight.diffuse", mgl32.Vec3{})
		p.lighting.SetVec3("dirLight.specular", mgl32.Vec3{})
		p.lighting.SetBool("dirLight.castsShadow", false)
		fallback.BindAsTexture(unitDirShadow)
		return
	}
	p.lighting.SetVec3("dirLight.direction", sun.Direction)
	p.lighting.SetVec3("dirLight.ambient", sun.Color.Mul(sun.Ambient))
	p.lighting.SetVec3("dirLight.diffuse", sun.Color.Mul(sun.Diffuse))
	p.lighting.SetVec3("dirLight.specular", sun.Color.Mul(sun.Specular))

	if sun.CastsShadow() && sun.ShadowMap() != nil {
		p.lighting.SetBool("dirLight.castsShadow", true)
		p.lighting.SetMat4("dirLight.lightSpaceMatrix", sun.LightSpaceMatrix())
		sun.ShadowMap().BindAsTexture(unitDirShadow)
		return
	}
	p.lighting.SetBool("dirLight.castsShadow", false)
	fallback.BindAsTexture(unitDirShadow)
}

// DrawForward copies the G-buffer depth into the HDR target, then draws
// every forward object so it is occluded by deferred geometry.
func (p *PostProcess) DrawForward(gbuffer *GBuffer, cam CameraSource, scene *Scene) {
	p.dev.BlitDepth(gbuffer.Framebuffer().ID(), p.hdrFB.ID(), p.width, p.height)
	p.hdrFB.Bind()
	p.dev.SetDepthTest(true)

	p.forward.Use()
	p.forward.SetMat4("view", cam.ViewMatrix())
	p.forward.SetMat4("projection", cam.ProjectionMatrix())
	scene.eachObject(func(d Drawable) {
		if !d.IsDeferred() {
			d.Draw(p.forward)
		}
	})
	p.dev.SetDepthTest(false)
}

// BrightnessThreshold extracts pixels whose luminance exceeds threshold.
func (p *PostProcess) BrightnessThreshold(threshold float32) *RenderTarget {
	p.brightFB.Bind()
	p.dev.SetDepthTest(false)
	p.bright.Use()
	p.bright.SetFloat("threshold", threshold)
	p.HDR.BindAsTexture(0)
	p.quad.Draw()
	return p.Bright
}

// Composite tone-maps the HDR image plus bloom onto the display surface.
// The bloom chain sums one contribution per level, so it is scaled by
// 1/levels before BloomStrength is applied.
func (p *PostProcess) Composite(bloom *RenderTarget, levels int, fs FrameSettings, surfaceW, surfaceH int) {
	p.bindSurface(surfaceW, surfaceH)
	p.composite.Use()
	p.composite.SetFloat("exposure", fs.Exposure)
	p.composite.SetFloat("gamma", fs.Gamma)
	p.composite.SetFloat("bloomScale", fs.BloomStrength/float32(levels))
	p.HDR.BindAsTexture(0)
	bloom.BindAsTexture(1)
	p.quad.Draw()
}

// DrawDebug shows rt on the display surface unmodified.
func (p *PostProcess) DrawDebug(rt *RenderTarget, singleChannel bool, scale float32, surfaceW, surfaceH int) {
	p.bindSurface(surfaceW, surfaceH)
	p.debug.Use()
	p.debug.SetBool("singleChannel", singleChannel)
	p.debug.SetFloat("scale", scale)
	rt.BindAsTexture(0)
	p.quad.Draw()
}

func (p *PostProcess) bindSurface(w, h int) {
	p.dev.BindFramebuffer(gpu.DefaultFramebuffer)
	p.dev.Viewport(0, 0, w, h)
	p.dev.SetDepthTest(false)
	p.dev.Clear(gpu.ClearColorBit | gpu.ClearDepthBit)
}

func (p *PostProcess) Release() {
	if p == nil {
		return
	}
	p.hdrFB.Release()
	p.brightFB.Release()
	p.HDR.Release()
	p.hdrDepth.Release()
	p.Bright.Release()
	for _, prog := range []gpu.Program{p.lighting, p.forward, p.bright, p.composite, p.debug} {
		if prog != nil {
			prog.Delete()
		}
	}
}
