package main

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"Prism3D/internal/config"
	"Prism3D/internal/gpu/gputest"
	"Prism3D/internal/renderer"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nullWindow struct{}

func (nullWindow) ShouldClose() bool                     { return false }
func (nullWindow) Present()                              {}
func (nullWindow) PollEvents()                           {}
func (nullWindow) SetInputHandler(renderer.InputHandler) {}

func newTestRenderer(t *testing.T) (*renderer.Renderer, *gputest.Device) {
	t.Helper()
	dev := gputest.New()
	cfg := renderer.DefaultPipelineConfig(32, 16)
	cfg.BloomMips = 2
	cfg.SSAO.KernelSize = 4
	r, err := renderer.NewRenderer(dev, nullWindow{}, cfg)
	require.NoError(t, err)
	t.Cleanup(r.Release)
	return r, dev
}

func TestBuildSceneDefault(t *testing.T) {
	r, dev := newTestRenderer(t)
	before := dev.LiveVertexArrays()
	cfg := config.Default().Scene

	release, err := buildScene(r, cfg)
	require.NoError(t, err)

	scene := r.Scene()
	assert.Equal(t, 1+cfg.Cubes+cfg.PointLights, scene.ObjectCount())
	assert.Equal(t, cfg.PointLights, scene.PointLightCount())
	require.NotNil(t, scene.Sun())
	assert.True(t, scene.Sun().CastsShadow())
	assert.Equal(t, before+3, dev.LiveVertexArrays(), "ground, cube and marker sphere")

	release()
	assert.Equal(t, before, dev.LiveVertexArrays())
}

func TestBuildSceneShadowedLightLimit(t *testing.T) {
	r, _ := newTestRenderer(t)
	cfg := config.Default().Scene
	cfg.PointLights = renderer.MaxShadowedPoints + 2

	release, err := buildScene(r, cfg)
	require.NoError(t, err)
	defer release()

	shadowed := 0
	for _, h := range r.Scene().LightHandles() {
		if r.Scene().PointLight(h).CastsShadow() {
			shadowed++
		}
	}
	assert.Equal(t, renderer.MaxShadowedPoints, shadowed)
}

func TestBuildSceneMarkersSitOnLights(t *testing.T) {
	r, _ := newTestRenderer(t)
	cfg := config.Default().Scene
	cfg.Cubes = 0
	cfg.Terrain = false

	release, err := buildScene(r, cfg)
	require.NoError(t, err)
	defer release()

	scene := r.Scene()
	var markers []mgl32.Vec3
	for _, h := range scene.ObjectHandles() {
		if e, ok := scene.Object(h).(*renderer.EmissiveObject); ok {
			markers = append(markers, e.Transform.Position)
		}
	}
	require.Len(t, markers, cfg.PointLights)
	for i, h := range scene.LightHandles() {
		assert.Equal(t, scene.PointLight(h).Position, markers[i])
	}
}

func TestBuildSceneLoadsModel(t *testing.T) {
	dir := t.TempDir()
	obj := "mtllib crate.mtl\nv 0 0 0\nv 1 0 0\nv 1 1 0\nusemtl red\nf 1 2 3\n"
	mtl := "newmtl red\nKd 1 0 0\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "crate.obj"), []byte(obj), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "crate.mtl"), []byte(mtl), 0o644))

	r, _ := newTestRenderer(t)
	cfg := config.Default().Scene
	cfg.Cubes = 0
	cfg.PointLights = 0
	cfg.Model = filepath.Join(dir, "crate.obj")
	cfg.ModelScale = 2

	release, err := buildScene(r, cfg)
	require.NoError(t, err)
	defer release()

	scene := r.Scene()
	require.Equal(t, 2, scene.ObjectCount())
	model, ok := scene.Object(scene.ObjectHandles()[1]).(*renderer.MeshObject)
	require.True(t, ok)
	assert.Equal(t, mgl32.Vec3{2, 2, 2}, model.Transform.Scale)
	mesh, ok := model.Mesh.(*renderer.GPUMesh)
	require.True(t, ok)
	red, err := r.Textures().Solid(color.RGBA{255, 0, 0, 255})
	require.NoError(t, err)
	assert.Equal(t, red, mesh.Material.Diffuse)
}

func TestBuildSceneMissingModelReleasesMeshes(t *testing.T) {
	r, dev := newTestRenderer(t)
	before := dev.LiveVertexArrays()
	cfg := config.Default().Scene
	cfg.Model = filepath.Join(t.TempDir(), "missing.obj")

	_, err := buildScene(r, cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.obj")
	assert.Equal(t, before, dev.LiveVertexArrays())
}

func TestToByte(t *testing.T) {
	assert.Equal(t, uint8(0), toByte(-1))
	assert.Equal(t, uint8(128), toByte(0.5))
	assert.Equal(t, uint8(255), toByte(3))
}

func TestLoadConfigModelOverride(t *testing.T) {
	cfg, err := loadConfig("", "ship.gltf")
	require.NoError(t, err)
	assert.Equal(t, "ship.gltf", cfg.Scene.Model)
	assert.Equal(t, config.Default().Window, cfg.Window)

	_, err = loadConfig(filepath.Join(t.TempDir(), "nope.toml"), "")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
