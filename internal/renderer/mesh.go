package renderer

import (
	"Prism3D/internal/gpu"
)

// MeshLayout is position, normal, uv, tangent.
var MeshLayout = gpu.VertexLayout{3, 3, 2, 3}

// Material texture units. The lighting pass rebinds units 0-2 for the
// G-buffer, so these are only valid inside geometry passes.
const (
	unitDiffuse  = 0
	unitSpecular = 1
	unitNormal   = 2
)

type Material struct {
	Diffuse  gpu.Texture
	Specular gpu.Texture
	// Normal is a tangent-space normal map; zero means none.
	Normal gpu.Texture
}

func bindMaterialSamplers(p gpu.Program) {
	p.SetInt("texture_diffuse1", unitDiffuse)
	p.SetInt("texture_specular1", unitSpecular)
	p.SetInt("texture_normal1", unitNormal)
}

// GPUMesh is interleaved vertex data uploaded once.
type GPUMesh struct {
	dev      gpu.Device
	vao      gpu.VertexArray
	count    int
	indexed  bool
	Material Material
}

// UploadMesh uploads vertices laid out as MeshLayout. Indices may be nil.
func UploadMesh(dev gpu.Device, vertices []float32, indices []uint32, mat Material) *GPUMesh {
	m := &GPUMesh{
		dev:      dev,
		vao:      dev.CreateVertexArray(MeshLayout, vertices, indices),
		Material: mat,
	}
	if len(indices) > 0 {
		m.count, m.indexed = len(indices), true
	} else {
		m.count = len(vertices) / MeshLayout.Stride()
	}
	return m
}

func (m *GPUMesh) Draw(p gpu.Program) {
	m.dev.BindTexture(unitDiffuse, m.Material.Diffuse, gpu.Texture2D)
	m.dev.BindTexture(unitSpecular, m.Material.Specular, gpu.Texture2D)
	p.SetBool("hasNormalMap", m.Material.Normal != 0)
	if m.Material.Normal != 0 {
		m.dev.BindTexture(unitNormal, m.Material.Normal, gpu.Texture2D)
	}
	if m.indexed {
		m.dev.DrawIndexed(m.vao, m.count)
		return
	}
	m.dev.DrawArrays(m.vao, m.count)
}

func (m *GPUMesh) Release() {
	if m.vao != 0 {
		m.dev.DeleteVertexArray(m.vao)
		m.vao = 0
	}
}
