// Package renderer implements a deferred HDR pipeline with directional and
// point-light shadows, SSAO and mip-chain bloom on top of gpu.Device.
package renderer

import (
	"fmt"
	"image"
	"maps"
	"slices"
	"time"

	"Prism3D/internal/gpu"
	"Prism3D/internal/logger"

	"go.uber.org/zap"
)

// frameLogInterval is how many frames pass between frame-time debug lines.
const frameLogInterval = 600

// Window is the display surface the pipeline presents to.
type Window interface {
	ShouldClose() bool
	Present()
	PollEvents()
	SetInputHandler(h InputHandler)
}

// InputHandler receives window callbacks.
type InputHandler interface {
	OnResize(width, height int)
	OnCursorMove(x, y float64)
}

type cursorListener interface {
	OnCursorMove(x, y float64)
}

type aspectSetter interface {
	SetAspectRatio(aspect float32)
}

// Renderer owns every pipeline resource and the scene. DrawFrame runs the
// passes in a fixed order; only lights that cast shadows add work.
type Renderer struct {
	dev    gpu.Device
	window Window
	cfg    PipelineConfig

	scene    *Scene
	textures *TextureManager

	quad    *ScreenQuad
	gbuffer *GBuffer
	ssao    *SSAO
	bloom   *Bloom
	post    *PostProcess

	dirDepth   gpu.Program
	pointDepth gpu.Program

	// 1x1 depth targets bound to shadow samplers that have no map this frame.
	fallback2D   *RenderTarget
	fallbackCube *RenderTarget

	surfaceWidth  int
	surfaceHeight int

	capture func(*image.NRGBA)

	frame          uint64
	frameTime      time.Duration
	lastFrame      time.Time
	shadowCapNoted bool
}

// NewRenderer builds the whole pipeline at cfg's resolution. On any failure
// everything allocated so far is released and the error is returned; the
// caller must not enter the render loop.
func NewRenderer(dev gpu.Device, window Window, cfg PipelineConfig) (r *Renderer, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline config: %w", err)
	}
	if err := validateSize(cfg.Width, cfg.Height, dev.MaxTextureSize()); err != nil {
		return nil, err
	}

	r = &Renderer{
		dev:           dev,
		window:        window,
		cfg:           cfg,
		scene:         NewScene(),
		textures:      NewTextureManager(dev),
		surfaceWidth:  cfg.Width,
		surfaceHeight: cfg.Height,
	}

	var cleanup Unwind
	defer func() {
		if err != nil {
			cleanup.Unwind()
		}
	}()

	if cfg.ReportLimits {
		reportLimits(dev.Limits())
	}

	r.quad = NewScreenQuad(dev)
	cleanup.Add(r.quad.Release)

	if r.gbuffer, err = NewGBuffer(dev, cfg.Width, cfg.Height); err != nil {
		return nil, fmt.Errorf("gbuffer: %w", err)
	}
	cleanup.Add(r.gbuffer.Release)

	if r.ssao, err = NewSSAO(dev, r.quad, cfg.Width, cfg.Height, cfg.SSAO); err != nil {
		return nil, err
	}
	cleanup.Add(r.ssao.Release)

	if r.post, err = NewPostProcess(dev, r.quad, cfg.Width, cfg.Height); err != nil {
		return nil, fmt.Errorf("post-process: %w", err)
	}
	cleanup.Add(r.post.Release)

	if r.bloom, err = NewBloom(dev, r.quad, cfg.Width, cfg.Height, cfg.BloomMips); err != nil {
		return nil, err
	}
	cleanup.Add(r.bloom.Release)

	if r.dirDepth, err = dev.CreateProgram(gpu.ShaderSource{Name: "shadow-depth", Vertex: dirDepthVertex, Fragment: emptyFragment}); err != nil {
		return nil, err
	}
	cleanup.Add(r.dirDepth.Delete)
	if r.pointDepth, err = dev.CreateProgram(gpu.ShaderSource{
		Name:     "point-shadow-depth",
		Vertex:   pointDepthVertex,
		Geometry: pointDepthGeometry,
		Fragment: pointDepthFragment,
	}); err != nil {
		return nil, err
	}
	cleanup.Add(r.pointDepth.Delete)

	for _, fb := range []struct {
		dst  **RenderTarget
		kind gpu.TextureKind
	}{{&r.fallback2D, gpu.Texture2D}, {&r.fallbackCube, gpu.TextureCube}} {
		rt, err := NewRenderTarget(dev, RenderTargetDesc{
			Kind:   fb.kind,
			Width:  1,
			Height: 1,
			Format: gpu.FormatDepth24,
			Filter: gpu.FilterNearest,
			Wrap:   gpu.WrapClampToEdge,
		})
		if err != nil {
			return nil, fmt.Errorf("fallback shadow map: %w", err)
		}
		cleanup.Add(rt.Release)
		*fb.dst = rt
	}

	r.scene.Camera = NewDefaultCamera(cfg.Width, cfg.Height)
	if window != nil {
		window.SetInputHandler(r)
	}
	cleanup.Discard()

	logger.Log.Info("Render pipeline initialized",
		zap.Int("width", cfg.Width),
		zap.Int("height", cfg.Height),
		zap.Int("bloomLevels", len(r.bloom.Mips())),
		zap.Int("ssaoKernel", cfg.SSAO.KernelSize))
	return r, nil
}

func reportLimits(limits map[string]int) {
	fields := make([]zap.Field, 0, len(limits))
	for _, name := range slices.Sorted(maps.Keys(limits)) {
		fields = append(fields, zap.Int(name, limits[name]))
	}
	logger.Log.Info("GPU limits", fields...)
}

func (r *Renderer) Scene() *Scene             { return r.scene }
func (r *Renderer) Textures() *TextureManager { return r.textures }
func (r *Renderer) Device() gpu.Device        { return r.dev }
func (r *Renderer) Config() PipelineConfig    { return r.cfg }
func (r *Renderer) GBuffer() *GBuffer         { return r.gbuffer }
func (r *Renderer) SSAO() *SSAO               { return r.ssao }
func (r *Renderer) Bloom() *Bloom             { return r.bloom }
func (r *Renderer) PostProcess() *PostProcess { return r.post }
func (r *Renderer) FrameCount() uint64        { return r.frame }
func (r *Renderer) SurfaceSize() (width, height int) {
	return r.surfaceWidth, r.surfaceHeight
}

// RequestCapture arranges for fn to receive the next composited frame.
// fn runs on the render thread and should hand the image off quickly.
func (r *Renderer) RequestCapture(fn func(*image.NRGBA)) {
	r.capture = fn
}

// OnResize records the new surface size. The pipeline keeps rendering at
// its configured resolution; the composite is stretched to the surface.
func (r *Renderer) OnResize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	r.surfaceWidth, r.surfaceHeight = width, height
	if cam, ok := r.scene.Camera.(aspectSetter); ok {
		cam.SetAspectRatio(float32(width) / float32(height))
	}
	logger.Log.Info("Surface resized; pipeline resolution unchanged",
		zap.Int("width", width),
		zap.Int("height", height),
		zap.Int("pipelineWidth", r.cfg.Width),
		zap.Int("pipelineHeight", r.cfg.Height))
}

// OnCursorMove forwards to the scene camera when it handles mouse look.
func (r *Renderer) OnCursorMove(x, y float64) {
	if l, ok := r.scene.Camera.(cursorListener); ok {
		l.OnCursorMove(x, y)
	}
}

// DrawFrame renders and presents one frame:
// shadows, G-buffer, SSAO, deferred lighting, forward, bright pass, bloom,
// composite, present.
func (r *Renderer) DrawFrame(fs FrameSettings) {
	cam := r.scene.Camera

	r.renderShadows()

	r.gbuffer.Render(cam, r.scene, fs.UseNormalMaps)
	r.dev.SetDepthTest(false)

	r.ssao.Compute(r.gbuffer.Position, r.gbuffer.Normal, cam.ProjectionMatrix(), cam.ViewMatrix())

	r.post.DrawDeferredLighting(lightingInputs{
		gbuffer:      r.gbuffer,
		occlusion:    r.ssao.Texture(),
		scene:        r.scene,
		eye:          cam.EyePosition(),
		sky:          fs.SkyColor,
		fallback2D:   r.fallback2D,
		fallbackCube: r.fallbackCube,
	})

	if r.scene.hasForward() {
		r.post.DrawForward(r.gbuffer, cam, r.scene)
	}

	bright := r.post.BrightnessThreshold(fs.BloomThreshold)
	r.bloom.Render(bright, fs.BloomFilterRadius)

	if fs.DebugView == DebugNone {
		r.post.Composite(r.bloom.Texture(), len(r.bloom.Mips()), fs, r.surfaceWidth, r.surfaceHeight)
	} else {
		r.drawDebugView(fs.DebugView)
	}

	if r.capture != nil {
		fn := r.capture
		r.capture = nil
		fn(r.readSurface())
	}

	r.window.Present()
	r.window.PollEvents()
	r.tick()
}

func (r *Renderer) renderShadows() {
	if sun := r.scene.sun; sun != nil && sun.CastsShadow() {
		r.renderShadowCaster(sun, r.dirDepth, r.cfg.DirShadowSize)
	}

	shadowed := 0
	for _, l := range r.scene.lights {
		if l == nil || !l.CastsShadow() {
			continue
		}
		if shadowed == MaxShadowedPoints {
			if !r.shadowCapNoted {
				logger.Log.Warn("Point shadow limit reached; remaining lights render unshadowed",
					zap.Int("limit", MaxShadowedPoints))
				r.shadowCapNoted = true
			}
			break
		}
		if r.renderShadowCaster(l, r.pointDepth, r.cfg.PointShadowSize) {
			shadowed++
		}
	}
	r.dev.SetColorWrite(true)
}

// renderShadowCaster allocates the caster's map on first use, then draws
// every shadow-casting object into it.
func (r *Renderer) renderShadowCaster(c ShadowCaster, depth gpu.Program, size int) bool {
	if err := c.prepareShadowMap(r.dev, size); err != nil {
		logger.Log.Error("Shadow map allocation failed; disabling shadows for light", zap.Error(err))
		c.SetCastsShadow(false)
		return false
	}
	c.configureForDepthMap(r.dev, depth)
	r.scene.eachObject(func(d Drawable) {
		if d.CastsShadow() {
			d.Draw(depth)
		}
	})
	return true
}

func (r *Renderer) drawDebugView(v DebugView) {
	var (
		rt     *RenderTarget
		single bool
		scale  float32 = 1
	)
	switch v {
	case DebugPosition:
		rt, scale = r.gbuffer.Position, 0.1
	case DebugNormal:
		rt = r.gbuffer.Normal
	case DebugAlbedo:
		rt = r.gbuffer.AlbedoSpec
	case DebugSSAO:
		rt, single = r.ssao.Texture(), true
	case DebugBright:
		rt = r.post.Bright
	case DebugBloom:
		rt = r.bloom.Texture()
	default:
		rt = r.post.HDR
	}
	r.post.DrawDebug(rt, single, scale, r.surfaceWidth, r.surfaceHeight)
}

// readSurface reads the display surface into a top-row-first image.
func (r *Renderer) readSurface() *image.NRGBA {
	w, h := r.surfaceWidth, r.surfaceHeight
	pix := r.dev.ReadPixels(0, 0, w, h)
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	stride := w * 4
	for y := 0; y < h; y++ {
		copy(img.Pix[y*img.Stride:y*img.Stride+stride], pix[(h-1-y)*stride:(h-y)*stride])
	}
	return img
}

func (r *Renderer) tick() {
	now := time.Now()
	if !r.lastFrame.IsZero() {
		r.frameTime += now.Sub(r.lastFrame)
	}
	r.lastFrame = now
	r.frame++
	if r.frame%frameLogInterval == 0 {
		logger.Log.Debug("Frame timing",
			zap.Uint64("frame", r.frame),
			zap.Duration("avgFrame", r.frameTime/frameLogInterval))
		r.frameTime = 0
	}
}

// Release frees every GPU resource the renderer and its scene own.
func (r *Renderer) Release() {
	r.scene.release()
	r.textures.Clear()
	r.bloom.Release()
	r.post.Release()
	r.ssao.Release()
	r.gbuffer.Release()
	r.quad.Release()
	r.dirDepth.Delete()
	r.pointDepth.Delete()
	r.fallback2D.Release()
	r.fallbackCube.Release()
	logger.Log.Info("Render pipeline released")
}
