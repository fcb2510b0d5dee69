package main

import (
	"fmt"
	"image/color"

	"Prism3D/internal/config"
	"Prism3D/internal/gpu"
	"Prism3D/internal/loader"
	"Prism3D/internal/logger"
	"Prism3D/internal/renderer"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

const (
	groundSize      = 40
	groundDivisions = 64
	lightRingRadius = 6
	lightHeight     = 2.5
	markerIntensity = 6
)

var lightPalette = []mgl32.Vec3{
	{1.0, 0.45, 0.2},
	{0.3, 0.6, 1.0},
	{0.4, 1.0, 0.5},
	{1.0, 0.3, 0.8},
	{1.0, 0.9, 0.5},
}

// sceneBuilder uploads the demo scene and remembers what to free.
type sceneBuilder struct {
	r      *renderer.Renderer
	dev    gpu.Device
	tm     *renderer.TextureManager
	meshes []*renderer.GPUMesh
}

func (b *sceneBuilder) release() {
	for _, m := range b.meshes {
		m.Release()
	}
	b.meshes = nil
}

func (b *sceneBuilder) upload(m *loader.MeshData, mat renderer.Material) *renderer.GPUMesh {
	gm := renderer.UploadMesh(b.dev, m.Vertices, m.Indices, mat)
	b.meshes = append(b.meshes, gm)
	return gm
}

// buildScene fills the renderer's scene: ground, cubes, an optional model,
// the sun and a ring of point lights with emissive markers. The returned
// function frees the uploaded meshes.
func buildScene(r *renderer.Renderer, cfg config.Scene) (func(), error) {
	b := &sceneBuilder{r: r, dev: r.Device(), tm: r.Textures()}
	scene := r.Scene()

	white, err := b.tm.Solid(color.RGBA{255, 255, 255, 255})
	if err != nil {
		return nil, err
	}

	if err := b.addGround(cfg, white); err != nil {
		b.release()
		return nil, err
	}
	if err := b.addCubes(cfg, white); err != nil {
		b.release()
		return nil, err
	}
	if cfg.Model != "" {
		if err := b.addModel(cfg.Model, cfg.ModelScale, white); err != nil {
			b.release()
			return nil, err
		}
	}

	sun := renderer.NewDirectionalLight(mgl32.Vec3{-0.4, -1, -0.3}.Normalize(), mgl32.Vec3{1, 0.95, 0.85})
	sun.SetCastsShadow(true)
	scene.SetSun(sun)

	sphere, err := loader.Sphere(1, 16, 8)
	if err != nil {
		b.release()
		return nil, err
	}
	marker := b.upload(sphere, renderer.Material{Diffuse: white, Specular: white})
	for i := 0; i < cfg.PointLights; i++ {
		angle := 2 * math32.Pi * float32(i) / float32(cfg.PointLights)
		pos := mgl32.Vec3{lightRingRadius * math32.Cos(angle), lightHeight, lightRingRadius * math32.Sin(angle)}
		c := lightPalette[i%len(lightPalette)]

		light := renderer.NewPointLight(pos, c, 15)
		light.SetCastsShadow(i < renderer.MaxShadowedPoints)
		scene.AddPointLight(light)
		scene.AddObject(renderer.NewEmissiveObject(marker, pos, c, markerIntensity))
	}

	if cam, ok := scene.Camera.(*renderer.Camera); ok {
		cam.Position = mgl32.Vec3{0, 6, 14}
		cam.LookAt(mgl32.Vec3{0, 0.5, 0})
	}

	logger.Log.Info("Scene built",
		zap.Int("objects", scene.ObjectCount()),
		zap.Int("pointLights", scene.PointLightCount()),
		zap.Int("meshes", len(b.meshes)))
	return b.release, nil
}

func (b *sceneBuilder) addGround(cfg config.Scene, specular gpu.Texture) error {
	var (
		ground *loader.MeshData
		err    error
	)
	if cfg.Terrain {
		ground, err = loader.Heightfield(groundSize, groundDivisions, 8, loader.PerlinHeight(cfg.Seed, 6, 0.8))
	} else {
		ground, err = loader.Plane(groundSize, 1, 8)
	}
	if err != nil {
		return fmt.Errorf("ground: %w", err)
	}
	albedo := loader.NoiseTexture(256, cfg.Seed, color.RGBA{70, 80, 60, 255}, color.RGBA{140, 150, 110, 255})
	diffuse, err := b.tm.CreateTextureFromImage(albedo, fmt.Sprintf("ground-%d", cfg.Seed))
	if err != nil {
		return err
	}

	obj := renderer.NewMeshObject(b.upload(ground, renderer.Material{Diffuse: diffuse, Specular: specular}), mgl32.Vec3{0, -0.5, 0})
	obj.Shadow = false
	b.r.Scene().AddObject(obj)
	return nil
}

func (b *sceneBuilder) addCubes(cfg config.Scene, specular gpu.Texture) error {
	if cfg.Cubes == 0 {
		return nil
	}
	albedo := loader.NoiseTexture(128, cfg.Seed+1, color.RGBA{150, 60, 40, 255}, color.RGBA{220, 170, 120, 255})
	diffuse, err := b.tm.CreateTextureFromImage(albedo, fmt.Sprintf("cube-%d", cfg.Seed))
	if err != nil {
		return err
	}
	mesh := b.upload(loader.Cube(1), renderer.Material{Diffuse: diffuse, Specular: specular})
	for i := 0; i < cfg.Cubes; i++ {
		angle := 2 * math32.Pi * float32(i) / float32(cfg.Cubes)
		obj := renderer.NewMeshObject(mesh, mgl32.Vec3{3 * math32.Cos(angle), 0.5 + float32(i%2), 3 * math32.Sin(angle)})
		obj.Transform.Rotation = mgl32.QuatRotate(angle, mgl32.Vec3{0, 1, 0})
		b.r.Scene().AddObject(obj)
	}
	return nil
}

func (b *sceneBuilder) addModel(path string, scale float32, fallback gpu.Texture) error {
	meshes, err := loader.Load(path)
	if err != nil {
		return fmt.Errorf("model: %w", err)
	}
	for _, m := range meshes {
		mat := renderer.Material{
			Diffuse:  b.diffuseTexture(m, fallback),
			Specular: b.optionalTexture(m.Material.SpecularMap, fallback),
			Normal:   b.optionalTexture(m.Material.NormalMap, 0),
		}
		obj := renderer.NewMeshObject(b.upload(m, mat), mgl32.Vec3{0, 0, 0})
		if scale > 0 {
			obj.Transform.Scale = mgl32.Vec3{scale, scale, scale}
		}
		b.r.Scene().AddObject(obj)
	}
	return nil
}

// diffuseTexture loads the mesh's diffuse map, falling back to its flat
// diffuse colour when the map is missing or unreadable.
func (b *sceneBuilder) diffuseTexture(m *loader.MeshData, fallback gpu.Texture) gpu.Texture {
	mat := m.Material
	if len(mat.EmbeddedImage) > 0 {
		tex, err := b.embeddedTexture(m)
		if err == nil {
			return tex
		}
		logger.Log.Warn("Embedded texture unusable", zap.String("mesh", m.Name), zap.Error(err))
	}
	if tex := b.optionalTexture(mat.DiffuseMap, 0); tex != 0 {
		return tex
	}
	if mat.DiffuseColor == (mgl32.Vec3{}) {
		return fallback
	}
	c := color.RGBA{toByte(mat.DiffuseColor.X()), toByte(mat.DiffuseColor.Y()), toByte(mat.DiffuseColor.Z()), 255}
	tex, err := b.tm.Solid(c)
	if err != nil {
		return fallback
	}
	return tex
}

func (b *sceneBuilder) embeddedTexture(m *loader.MeshData) (gpu.Texture, error) {
	img, err := renderer.DecodeImage(m.Material.EmbeddedImage)
	if err != nil {
		return 0, err
	}
	return b.tm.CreateTextureFromImage(img, m.Name+"#diffuse")
}

func (b *sceneBuilder) optionalTexture(path string, fallback gpu.Texture) gpu.Texture {
	if path == "" {
		return fallback
	}
	tex, err := b.tm.LoadTexture(path)
	if err != nil {
		logger.Log.Warn("Texture unavailable", zap.String("path", path), zap.Error(err))
		return fallback
	}
	return tex
}

func toByte(v float32) uint8 {
	return uint8(math32.Round(mgl32.Clamp(v, 0, 1) * 255))
}
