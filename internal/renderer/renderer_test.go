package renderer

import (
	"fmt"
	"image"
	"testing"

	"Prism3D/internal/gpu"
	"Prism3D/internal/gpu/gputest"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWindow struct {
	presents int
	polls    int
	handler  InputHandler
}

func (w *fakeWindow) ShouldClose() bool              { return false }
func (w *fakeWindow) Present()                       { w.presents++ }
func (w *fakeWindow) PollEvents()                    { w.polls++ }
func (w *fakeWindow) SetInputHandler(h InputHandler) { w.handler = h }

// triangle is a single indexed triangle, so its draws are easy to tell
// apart from the six-vertex screen quad.
var triangle = []float32{
	0, 0, 0, 0, 0, 1, 0, 0, 1, 0, 0,
	1, 0, 0, 0, 0, 1, 1, 0, 1, 0, 0,
	0, 1, 0, 0, 0, 1, 0, 1, 1, 0, 0,
}

func newTestRenderer(t *testing.T) (*Renderer, *gputest.Device, *fakeWindow) {
	t.Helper()
	dev := gputest.New()
	win := &fakeWindow{}
	cfg := DefaultPipelineConfig(64, 32)
	cfg.BloomMips = 3
	cfg.SSAO.KernelSize = 8
	cfg.DirShadowSize = 128
	cfg.PointShadowSize = 64
	r, err := NewRenderer(dev, win, cfg)
	require.NoError(t, err)
	return r, dev, win
}

func addTriangle(r *Renderer, dev gpu.Device) *MeshObject {
	obj := NewMeshObject(UploadMesh(dev, triangle, []uint32{0, 1, 2}, Material{}), mgl32.Vec3{})
	r.Scene().AddObject(obj)
	return obj
}

func programSequence(draws []gputest.Draw) []string {
	var out []string
	for _, d := range draws {
		if len(out) == 0 || out[len(out)-1] != d.Program {
			out = append(out, d.Program)
		}
	}
	return out
}

func TestNewRendererRegistersInputHandler(t *testing.T) {
	r, _, win := newTestRenderer(t)
	assert.Same(t, r, win.handler)
	assert.NotNil(t, r.Scene().Camera)
}

func TestDrawFramePassOrder(t *testing.T) {
	r, dev, win := newTestRenderer(t)
	addTriangle(r, dev)
	dev.Reset()

	r.DrawFrame(DefaultFrameSettings())

	assert.Equal(t, []string{
		"gbuffer",
		"ssao", "ssao-blur",
		"deferred-lighting",
		"bright-pass",
		"bloom-downsample", "bloom-upsample",
		"composite",
	}, programSequence(dev.Draws()))
	assert.Empty(t, dev.Ops("BlitDepth"), "forward pass must be skipped with no forward objects")
	assert.Equal(t, 1, win.presents)
	assert.Equal(t, 1, win.polls)
	assert.Equal(t, uint64(1), r.FrameCount())
}

func TestDrawFrameTargets(t *testing.T) {
	r, dev, _ := newTestRenderer(t)
	addTriangle(r, dev)
	dev.Reset()

	r.DrawFrame(DefaultFrameSettings())

	for _, d := range dev.Draws() {
		switch d.Program {
		case "gbuffer":
			assert.Equal(t, "gbuffer", d.Framebuffer)
			assert.Equal(t, 3, d.Count)
		case "deferred-lighting":
			assert.Equal(t, "hdr", d.Framebuffer)
		case "composite":
			assert.Equal(t, "surface", d.Framebuffer)
			assert.Equal(t, [4]int{0, 0, 64, 32}, d.Viewport)
			assert.Equal(t, gpu.BlendNone, d.Blend)
		}
	}
	composite := dev.Program("composite")
	assert.InDelta(t, DefaultFrameSettings().BloomStrength/3, composite.Uniforms["bloomScale"], 1e-6)
}

func TestDrawFrameForwardObjects(t *testing.T) {
	r, dev, _ := newTestRenderer(t)
	addTriangle(r, dev)
	marker := UploadMesh(dev, triangle, []uint32{0, 1, 2}, Material{})
	r.Scene().AddObject(NewEmissiveObject(marker, mgl32.Vec3{0, 3, 0}, mgl32.Vec3{1, 0.5, 0.2}, 8))
	dev.Reset()

	r.DrawFrame(DefaultFrameSettings())

	blits := dev.Ops("BlitDepth")
	require.Len(t, blits, 1)
	assert.Equal(t, []any{"gbuffer", "hdr", 64, 32}, blits[0].Args)

	seq := programSequence(dev.Draws())
	assert.Equal(t, []string{"deferred-lighting", "forward", "bright-pass"}, seq[3:6])
	assert.Equal(t, mgl32.Vec3{8, 4, 1.6}, dev.Program("forward").Uniforms["tint"])
}

func TestDrawFrameSunShadow(t *testing.T) {
	r, dev, _ := newTestRenderer(t)
	addTriangle(r, dev)
	sun := NewDirectionalLight(mgl32.Vec3{-0.2, -1, -0.3}, mgl32.Vec3{1, 1, 1})
	sun.SetCastsShadow(true)
	r.Scene().SetSun(sun)
	dev.Reset()

	r.DrawFrame(DefaultFrameSettings())

	draws := dev.Draws()
	require.NotEmpty(t, draws)
	first := draws[0]
	assert.Equal(t, "shadow-depth", first.Program)
	assert.Equal(t, "sun-shadow", first.Framebuffer)
	assert.False(t, first.ColorWrite)
	assert.Equal(t, [4]int{0, 0, 128, 128}, first.Viewport)

	for _, d := range draws[1:] {
		assert.True(t, d.ColorWrite, "colour writes must be restored after the shadow pass (%s)", d.Program)
	}
	lighting := dev.Program("deferred-lighting")
	assert.Equal(t, true, lighting.Uniforms["dirLight.castsShadow"])
	assert.Equal(t, sun.LightSpaceMatrix(), lighting.Uniforms["dirLight.lightSpaceMatrix"])
}

func TestShadowMapsAllocateLazilyAndPersist(t *testing.T) {
	r, dev, _ := newTestRenderer(t)
	addTriangle(r, dev)
	sun := NewDirectionalLight(mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 1, 1})
	r.Scene().SetSun(sun)
	fs := DefaultFrameSettings()

	r.DrawFrame(fs)
	assert.Nil(t, sun.ShadowMap(), "no map before shadows are enabled")

	sun.SetCastsShadow(true)
	r.DrawFrame(fs)
	r.DrawFrame(fs)
	sun.SetCastsShadow(false)
	dev.Reset()
	r.DrawFrame(fs)
	for _, d := range dev.Draws() {
		assert.NotEqual(t, "shadow-depth", d.Program)
	}
	sun.SetCastsShadow(true)
	r.DrawFrame(fs)

	assert.Equal(t, 1, sun.allocations)
	assert.NotNil(t, sun.ShadowMap())
}

func TestPointShadowLimit(t *testing.T) {
	r, dev, _ := newTestRenderer(t)
	addTriangle(r, dev)
	var lights []*PointLight
	for i := 0; i < MaxShadowedPoints+1; i++ {
		l := NewPointLight(mgl32.Vec3{float32(i), 2, 0}, mgl32.Vec3{1, 1, 1}, 10)
		l.SetCastsShadow(true)
		r.Scene().AddPointLight(l)
		lights = append(lights, l)
	}
	dev.Reset()

	r.DrawFrame(DefaultFrameSettings())

	n := 0
	for _, d := range dev.Draws() {
		if d.Program == "point-shadow-depth" {
			n++
			assert.Equal(t, "point-shadow", d.Framebuffer)
		}
	}
	assert.Equal(t, MaxShadowedPoints, n)
	assert.Nil(t, lights[MaxShadowedPoints].ShadowMap())

	lighting := dev.Program("deferred-lighting")
	assert.Equal(t, int32(MaxShadowedPoints+1), lighting.Uniforms["numberPointLights"])
	assert.Equal(t, int32(0), lighting.Uniforms["pointLights[0].shadowIndex"])
	assert.Equal(t, int32(MaxShadowedPoints-1), lighting.Uniforms[fmt.Sprintf("pointLights[%d].shadowIndex", MaxShadowedPoints-1)])
	assert.Equal(t, int32(-1), lighting.Uniforms[fmt.Sprintf("pointLights[%d].shadowIndex", MaxShadowedPoints)])
}

func TestShadowAllocationFailureDisablesShadow(t *testing.T) {
	r, dev, _ := newTestRenderer(t)
	addTriangle(r, dev)
	dev.Incomplete["point-shadow"] = true
	l := NewPointLight(mgl32.Vec3{0, 2, 0}, mgl32.Vec3{1, 1, 1}, 10)
	l.SetCastsShadow(true)
	r.Scene().AddPointLight(l)

	r.DrawFrame(DefaultFrameSettings())

	assert.False(t, l.CastsShadow())
	assert.Nil(t, l.ShadowMap())
}

func TestRemovedObjectsAndLightsAreSkipped(t *testing.T) {
	r, dev, _ := newTestRenderer(t)
	obj := NewMeshObject(UploadMesh(dev, triangle, []uint32{0, 1, 2}, Material{}), mgl32.Vec3{})
	h := r.Scene().AddObject(obj)
	keep := r.Scene().AddObject(NewMeshObject(UploadMesh(dev, triangle, []uint32{0, 1, 2}, Material{}), mgl32.Vec3{}))
	lh := r.Scene().AddPointLight(NewPointLight(mgl32.Vec3{}, mgl32.Vec3{1, 1, 1}, 5))

	require.True(t, r.Scene().RemoveObject(h))
	require.False(t, r.Scene().RemoveObject(h))
	require.True(t, r.Scene().RemovePointLight(lh))
	assert.Nil(t, r.Scene().Object(h))
	assert.NotNil(t, r.Scene().Object(keep))
	assert.Equal(t, 1, r.Scene().ObjectCount())
	assert.Zero(t, r.Scene().PointLightCount())
	dev.Reset()

	r.DrawFrame(DefaultFrameSettings())

	n := 0
	for _, d := range dev.Draws() {
		if d.Program == "gbuffer" {
			n++
		}
	}
	assert.Equal(t, 1, n)
	assert.Equal(t, int32(0), dev.Program("deferred-lighting").Uniforms["numberPointLights"])
}

func TestDebugViewReplacesComposite(t *testing.T) {
	r, dev, _ := newTestRenderer(t)
	fs := DefaultFrameSettings()
	fs.DebugView = DebugSSAO
	dev.Reset()

	r.DrawFrame(fs)

	draws := dev.Draws()
	last := draws[len(draws)-1]
	assert.Equal(t, "debug-view", last.Program)
	assert.Equal(t, "surface", last.Framebuffer)
	assert.Equal(t, true, dev.Program("debug-view").Uniforms["singleChannel"])
	for _, d := range draws {
		assert.NotEqual(t, "composite", d.Program)
	}
}

func TestResizeKeepsPipelineResolution(t *testing.T) {
	r, dev, _ := newTestRenderer(t)
	cam := r.Scene().Camera.(*Camera)

	r.OnResize(128, 64)
	r.OnResize(0, 10)
	dev.Reset()
	r.DrawFrame(DefaultFrameSettings())

	w, h := r.SurfaceSize()
	assert.Equal(t, 128, w)
	assert.Equal(t, 64, h)
	assert.InDelta(t, 2.0, cam.AspectRatio, 1e-6)
	for _, d := range dev.Draws() {
		switch d.Program {
		case "composite":
			assert.Equal(t, [4]int{0, 0, 128, 64}, d.Viewport)
		case "deferred-lighting":
			assert.Equal(t, [4]int{0, 0, 64, 32}, d.Viewport)
		}
	}
}

func TestOnCursorMoveTurnsCamera(t *testing.T) {
	r, _, win := newTestRenderer(t)
	cam := r.Scene().Camera.(*Camera)
	yaw := cam.Yaw

	win.handler.OnCursorMove(0, 0)
	win.handler.OnCursorMove(50, 0)

	assert.NotEqual(t, yaw, cam.Yaw)
}

func TestRequestCaptureDeliversOneFrame(t *testing.T) {
	r, dev, _ := newTestRenderer(t)
	var got []*image.NRGBA
	r.RequestCapture(func(img *image.NRGBA) { got = append(got, img) })

	r.DrawFrame(DefaultFrameSettings())
	r.DrawFrame(DefaultFrameSettings())

	require.Len(t, got, 1)
	assert.Equal(t, image.Rect(0, 0, 64, 32), got[0].Bounds())
	reads := dev.Ops("ReadPixels")
	require.Len(t, reads, 1)
	assert.Equal(t, "surface", reads[0].Framebuffer)
}

func TestNewRendererRejectsBadConfig(t *testing.T) {
	dev := gputest.New()
	dev.MaxSize = 1024

	_, err := NewRenderer(dev, &fakeWindow{}, DefaultPipelineConfig(0, 32))
	assert.ErrorIs(t, err, ErrInvalidDimensions)

	_, err = NewRenderer(dev, &fakeWindow{}, DefaultPipelineConfig(2048, 32))
	assert.ErrorIs(t, err, ErrInvalidDimensions)

	assert.Zero(t, dev.LiveTextures())
}

func TestNewRendererFailureReleasesEverything(t *testing.T) {
	for _, tc := range []struct {
		name     string
		breakDev func(*gputest.Device)
	}{
		{"incomplete hdr", func(d *gputest.Device) { d.Incomplete["hdr"] = true }},
		{"incomplete bloom", func(d *gputest.Device) { d.Incomplete["bloom-mip1"] = true }},
		{"composite compile", func(d *gputest.Device) { d.FailPrograms["composite"] = true }},
		{"point shadow compile", func(d *gputest.Device) { d.FailPrograms["point-shadow-depth"] = true }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			dev := gputest.New()
			tc.breakDev(dev)
			win := &fakeWindow{}

			r, err := NewRenderer(dev, win, DefaultPipelineConfig(64, 32))

			require.Error(t, err)
			assert.Nil(t, r)
			assert.Nil(t, win.handler)
			assert.Zero(t, dev.LiveTextures())
			assert.Zero(t, dev.LiveFramebuffers())
			assert.Zero(t, dev.LiveVertexArrays())
		})
	}
}

func TestRendererRelease(t *testing.T) {
	r, dev, _ := newTestRenderer(t)
	sun := NewDirectionalLight(mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 1, 1})
	sun.SetCastsShadow(true)
	r.Scene().SetSun(sun)
	l := NewPointLight(mgl32.Vec3{}, mgl32.Vec3{1, 1, 1}, 5)
	l.SetCastsShadow(true)
	r.Scene().AddPointLight(l)
	r.DrawFrame(DefaultFrameSettings())

	r.Release()

	assert.Zero(t, dev.LiveTextures())
	assert.Zero(t, dev.LiveFramebuffers())
}

func TestLightingPassReceivesSkyAndCapsLights(t *testing.T) {
	r, dev, _ := newTestRenderer(t)
	defer r.Release()
	addTriangle(r, dev)
	for i := 0; i < MaxPointLights+3; i++ {
		r.Scene().AddPointLight(NewPointLight(mgl32.Vec3{float32(i), 1, 0}, mgl32.Vec3{1, 1, 1}, 5))
	}
	fs := DefaultFrameSettings()
	fs.SkyColor = mgl32.Vec3{0.1, 0.2, 0.3}

	r.DrawFrame(fs)

	lighting := dev.Program("deferred-lighting")
	assert.Equal(t, fs.SkyColor, lighting.Uniforms["skyColor"])
	assert.Equal(t, int32(MaxPointLights), lighting.Uniforms["numberPointLights"])
}

func TestScreenQuadDrawsSixVertices(t *testing.T) {
	dev := gputest.New()
	q := NewScreenQuad(dev)

	q.Draw()
	q.Release()
	q.Release()

	draws := dev.Ops("DrawArrays")
	require.Len(t, draws, 1)
	assert.Equal(t, 6, draws[0].Args[1])
	assert.Len(t, dev.Ops("DeleteVertexArray"), 1)
	assert.Zero(t, dev.LiveVertexArrays())
}

func TestSetSunReleasesPreviousShadowMap(t *testing.T) {
	r, dev, _ := newTestRenderer(t)
	addTriangle(r, dev)
	old := NewDirectionalLight(mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 1, 1})
	old.SetCastsShadow(true)
	r.Scene().SetSun(old)
	r.DrawFrame(DefaultFrameSettings())
	require.NotNil(t, old.ShadowMap())

	next := NewDirectionalLight(mgl32.Vec3{-1, -1, 0}, mgl32.Vec3{1, 1, 1})
	next.SetCastsShadow(true)
	r.Scene().SetSun(next)
	assert.Nil(t, old.ShadowMap())
	assert.Same(t, next, r.Scene().Sun())
	r.DrawFrame(DefaultFrameSettings())

	r.Release()

	assert.Zero(t, dev.LiveTextures())
	assert.Zero(t, dev.LiveFramebuffers())
}

func TestPointShadowToggleAllocatesOnce(t *testing.T) {
	r, dev, _ := newTestRenderer(t)
	defer r.Release()
	addTriangle(r, dev)
	l := NewPointLight(mgl32.Vec3{0, 2, 0}, mgl32.Vec3{1, 1, 1}, 10)
	r.Scene().AddPointLight(l)
	fs := DefaultFrameSettings()

	countPointPasses := func() int {
		n := 0
		for _, d := range dev.Draws() {
			if d.Program == "point-shadow-depth" {
				n++
			}
		}
		return n
	}

	r.DrawFrame(fs)
	assert.Nil(t, l.ShadowMap())

	l.SetCastsShadow(true)
	dev.Reset()
	r.DrawFrame(fs)
	assert.NotZero(t, countPointPasses(), "shadow pass runs on the frame the flag turns on")
	require.NotNil(t, l.ShadowMap())
	first := l.ShadowMap()

	for i := 0; i < 3; i++ {
		r.DrawFrame(fs)
	}
	l.SetCastsShadow(false)
	dev.Reset()
	r.DrawFrame(fs)
	assert.Zero(t, countPointPasses())
	l.SetCastsShadow(true)
	r.DrawFrame(fs)

	assert.Equal(t, 1, l.allocations)
	assert.Same(t, first, l.ShadowMap())
}
