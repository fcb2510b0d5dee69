package loader

import (
	"errors"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// cubeFaces lists each face's normal and the two axes spanning it, so the
// cube is built with outward-facing counter-clockwise triangles.
var cubeFaces = []struct{ normal, u, v mgl32.Vec3 }{
	{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}},
	{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 1, 0}},
	{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0}},
	{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}},
	{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}},
	{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}},
}

// Cube returns an axis-aligned cube of the given edge length centred on
// the origin, with per-face normals and UVs.
func Cube(size float32) *MeshData {
	h := size * 0.5
	m := &MeshData{Name: "cube"}
	for _, f := range cubeFaces {
		center := f.normal.Mul(h)
		corner := func(su, sv float32) mgl32.Vec3 {
			return center.Add(f.u.Mul(su * h)).Add(f.v.Mul(sv * h))
		}
		a := m.appendVertex(corner(-1, -1), f.normal, mgl32.Vec2{0, 0})
		b := m.appendVertex(corner(1, -1), f.normal, mgl32.Vec2{1, 0})
		c := m.appendVertex(corner(1, 1), f.normal, mgl32.Vec2{1, 1})
		d := m.appendVertex(corner(-1, 1), f.normal, mgl32.Vec2{0, 1})
		m.Indices = append(m.Indices, a, b, c, c, d, a)
	}
	ComputeTangents(m)
	return m
}

// Quad is a single upward-facing square in the XZ plane.
func Quad(size float32) *MeshData {
	m, _ := Plane(size, 1, 1)
	m.Name = "quad"
	return m
}

// Plane returns a flat grid of size x size units in the XZ plane facing +Y.
// uvRepeat tiles the texture that many times across the plane.
func Plane(size float32, divisions int, uvRepeat float32) (*MeshData, error) {
	return Heightfield(size, divisions, uvRepeat, nil)
}

// Heightfield is a grid like Plane whose vertex heights come from height.
// A nil height gives a flat plane. Normals follow the surface slope.
func Heightfield(size float32, divisions int, uvRepeat float32, height func(x, z float32) float32) (*MeshData, error) {
	if divisions < 1 {
		return nil, errors.New("plane divisions must be at least 1")
	}
	gridSize := divisions + 1
	step := size / float32(divisions)
	start := -size * 0.5

	m := &MeshData{Name: "plane"}
	if height != nil {
		m.Name = "heightfield"
	}
	sample := func(x, z float32) float32 {
		if height == nil {
			return 0
		}
		return height(x, z)
	}

	for x := 0; x < gridSize; x++ {
		for z := 0; z < gridSize; z++ {
			px := start + float32(x)*step
			pz := start + float32(z)*step
			pos := mgl32.Vec3{px, sample(px, pz), pz}

			normal := mgl32.Vec3{0, 1, 0}
			if height != nil {
				// Central differences across one grid step.
				dx := sample(px+step, pz) - sample(px-step, pz)
				dz := sample(px, pz+step) - sample(px, pz-step)
				normal = mgl32.Vec3{-dx, 2 * step, -dz}.Normalize()
			}
			uv := mgl32.Vec2{float32(x) / float32(divisions), 1 - float32(z)/float32(divisions)}.Mul(uvRepeat)
			m.appendVertex(pos, normal, uv)
		}
	}

	for x := 0; x < divisions; x++ {
		for z := 0; z < divisions; z++ {
			topLeft := uint32(x*gridSize + z)
			topRight := topLeft + 1
			bottomLeft := uint32((x+1)*gridSize + z)
			bottomRight := bottomLeft + 1
			m.Indices = append(m.Indices, topLeft, topRight, bottomRight, topLeft, bottomRight, bottomLeft)
		}
	}
	ComputeTangents(m)
	return m, nil
}

// Sphere returns a UV sphere. segments is the number of longitude slices;
// rings the number of latitude bands.
func Sphere(radius float32, segments, rings int) (*MeshData, error) {
	if segments < 3 || rings < 2 {
		return nil, errors.New("sphere needs at least 3 segments and 2 rings")
	}
	m := &MeshData{Name: "sphere"}
	for i := 0; i <= rings; i++ {
		lat := float32(i) * math32.Pi / float32(rings)
		for j := 0; j <= segments; j++ {
			lon := float32(j) * 2 * math32.Pi / float32(segments)
			normal := mgl32.Vec3{
				math32.Sin(lat) * math32.Cos(lon),
				math32.Cos(lat),
				-math32.Sin(lat) * math32.Sin(lon),
			}
			uv := mgl32.Vec2{float32(j) / float32(segments), 1 - float32(i)/float32(rings)}
			m.appendVertex(normal.Mul(radius), normal, uv)
		}
	}
	for i := 0; i < rings; i++ {
		for j := 0; j < segments; j++ {
			first := uint32(i*(segments+1) + j)
			second := first + uint32(segments+1)
			// The first and last bands each have one corner collapsed
			// onto a pole, so they need one triangle per slice.
			if i != 0 {
				m.Indices = append(m.Indices, first, second, first+1)
			}
			if i != rings-1 {
				m.Indices = append(m.Indices, second, second+1, first+1)
			}
		}
	}
	ComputeTangents(m)
	return m, nil
}
