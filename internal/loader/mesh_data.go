// Package loader turns OBJ and glTF files and procedural shapes into
// interleaved vertex data ready for upload.
package loader

import (
	"github.com/go-gl/mathgl/mgl32"
)

// VertexStride is the number of floats per vertex: position, normal, uv
// and tangent.
const VertexStride = 11

const (
	offsetPosition = 0
	offsetNormal   = 3
	offsetUV       = 6
	offsetTangent  = 8
)

// MeshData is interleaved vertex data plus an optional index buffer.
type MeshData struct {
	Name     string
	Vertices []float32
	Indices  []uint32
	Material MaterialInfo
}

// MaterialInfo names the textures a mesh wants. Map paths are already
// resolved against the model file's directory. EmbeddedImage holds an
// encoded diffuse image stored inside a binary glTF.
type MaterialInfo struct {
	Name          string
	DiffuseColor  mgl32.Vec3
	DiffuseMap    string
	SpecularMap   string
	NormalMap     string
	Shininess     float32
	EmbeddedImage []byte
}

func (m *MeshData) VertexCount() int { return len(m.Vertices) / VertexStride }

// TriangleCount counts indexed triangles, or vertex triples when the mesh
// has no index buffer.
func (m *MeshData) TriangleCount() int {
	if len(m.Indices) > 0 {
		return len(m.Indices) / 3
	}
	return m.VertexCount() / 3
}

func (m *MeshData) appendVertex(pos, normal mgl32.Vec3, uv mgl32.Vec2) uint32 {
	idx := uint32(m.VertexCount())
	m.Vertices = append(m.Vertices,
		pos[0], pos[1], pos[2],
		normal[0], normal[1], normal[2],
		uv[0], uv[1],
		0, 0, 0)
	return idx
}

func (m *MeshData) vec3At(i, offset int) mgl32.Vec3 {
	b := i*VertexStride + offset
	return mgl32.Vec3{m.Vertices[b], m.Vertices[b+1], m.Vertices[b+2]}
}

func (m *MeshData) setVec3At(i, offset int, v mgl32.Vec3) {
	b := i*VertexStride + offset
	m.Vertices[b], m.Vertices[b+1], m.Vertices[b+2] = v[0], v[1], v[2]
}

func (m *MeshData) Position(i int) mgl32.Vec3 { return m.vec3At(i, offsetPosition) }
func (m *MeshData) Normal(i int) mgl32.Vec3   { return m.vec3At(i, offsetNormal) }
func (m *MeshData) Tangent(i int) mgl32.Vec3  { return m.vec3At(i, offsetTangent) }

func (m *MeshData) UV(i int) mgl32.Vec2 {
	b := i*VertexStride + offsetUV
	return mgl32.Vec2{m.Vertices[b], m.Vertices[b+1]}
}

// Bounds returns the axis-aligned box enclosing every vertex.
func (m *MeshData) Bounds() (lo, hi mgl32.Vec3) {
	n := m.VertexCount()
	if n == 0 {
		return
	}
	lo, hi = m.Position(0), m.Position(0)
	for i := 1; i < n; i++ {
		p := m.Position(i)
		for k := 0; k < 3; k++ {
			lo[k] = min(lo[k], p[k])
			hi[k] = max(hi[k], p[k])
		}
	}
	return lo, hi
}

// triangles calls fn with the vertex indices of every triangle.
func (m *MeshData) triangles(fn func(a, b, c uint32)) {
	if len(m.Indices) > 0 {
		for i := 0; i+2 < len(m.Indices); i += 3 {
			fn(m.Indices[i], m.Indices[i+1], m.Indices[i+2])
		}
		return
	}
	for i := 0; i+2 < m.VertexCount(); i += 3 {
		fn(uint32(i), uint32(i+1), uint32(i+2))
	}
}
