package renderer

import "Prism3D/internal/gpu"

var quadVertices = []float32{
	// pos      uv
	-1, 1, 0, 1,
	-1, -1, 0, 0,
	1, -1, 1, 0,

	-1, 1, 0, 1,
	1, -1, 1, 0,
	1, 1, 1, 1,
}

// ScreenQuad is two triangles covering the viewport, shared by every
// full-screen pass.
type ScreenQuad struct {
	dev gpu.Device
	vao gpu.VertexArray
}

func NewScreenQuad(dev gpu.Device) *ScreenQuad {
	return &ScreenQuad{dev: dev, vao: dev.CreateVertexArray(gpu.VertexLayout{2, 2}, quadVertices, nil)}
}

func (q *ScreenQuad) Draw() { q.dev.DrawArrays(q.vao, 6) }

func (q *ScreenQuad) Release() {
	if q == nil || q.vao == 0 {
		return
	}
	q.dev.DeleteVertexArray(q.vao)
	q.vao = 0
}
