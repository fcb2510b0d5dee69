package loader

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// ComputeTangents fills the tangent of every vertex from its triangles' UV
// gradients, then orthogonalises it against the normal. Vertices with
// degenerate UVs get an arbitrary tangent perpendicular to the normal.
func ComputeTangents(m *MeshData) {
	n := m.VertexCount()
	acc := make([]mgl32.Vec3, n)

	m.triangles(func(i0, i1, i2 uint32) {
		if int(max(i0, i1, i2)) >= n {
			return
		}
		p0, p1, p2 := m.Position(int(i0)), m.Position(int(i1)), m.Position(int(i2))
		uv0, uv1, uv2 := m.UV(int(i0)), m.UV(int(i1)), m.UV(int(i2))

		e1, e2 := p1.Sub(p0), p2.Sub(p0)
		d1, d2 := uv1.Sub(uv0), uv2.Sub(uv0)

		denom := d1.X()*d2.Y() - d2.X()*d1.Y()
		if math32.Abs(denom) < 1e-12 {
			return
		}
		r := 1 / denom
		t := e1.Mul(d2.Y() * r).Sub(e2.Mul(d1.Y() * r))

		acc[i0] = acc[i0].Add(t)
		acc[i1] = acc[i1].Add(t)
		acc[i2] = acc[i2].Add(t)
	})

	for i := 0; i < n; i++ {
		normal := m.Normal(i)
		t := acc[i].Sub(normal.Mul(normal.Dot(acc[i])))
		if t.LenSqr() < 1e-10 {
			t = perpendicular(normal)
		}
		m.setVec3At(i, offsetTangent, t.Normalize())
	}
}

func perpendicular(n mgl32.Vec3) mgl32.Vec3 {
	axis := mgl32.Vec3{1, 0, 0}
	if math32.Abs(n.X()) > 0.9 {
		axis = mgl32.Vec3{0, 1, 0}
	}
	return axis.Sub(n.Mul(n.Dot(axis)))
}
