// Package opengl implements gpu.Device on OpenGL 4.1 core through go-gl.
package opengl

import (
	"fmt"

	"Prism3D/internal/gpu"
	"Prism3D/internal/logger"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"
)

type glFormat struct {
	internal int32
	format   uint32
	xtype    uint32
}

var formats = map[gpu.PixelFormat]glFormat{
	gpu.FormatRGBA8:      {gl.RGBA8, gl.RGBA, gl.UNSIGNED_BYTE},
	gpu.FormatRGBA16F:    {gl.RGBA16F, gl.RGBA, gl.FLOAT},
	gpu.FormatRGB16F:     {gl.RGB16F, gl.RGB, gl.FLOAT},
	gpu.FormatR16F:       {gl.R16F, gl.RED, gl.FLOAT},
	gpu.FormatR11G11B10F: {gl.R11F_G11F_B10F, gl.RGB, gl.FLOAT},
	gpu.FormatDepth24:    {gl.DEPTH_COMPONENT24, gl.DEPTH_COMPONENT, gl.FLOAT},
	gpu.FormatDepth32F:   {gl.DEPTH_COMPONENT32F, gl.DEPTH_COMPONENT, gl.FLOAT},
}

type vertexArray struct {
	vbo, ebo uint32
}

// Device issues commands on the current OpenGL context.
type Device struct {
	maxTextureSize int
	kinds          map[gpu.Texture]gpu.TextureKind
	buffers        map[gpu.VertexArray]vertexArray
	labels         map[gpu.Framebuffer]string
}

// NewDevice loads the GL entry points. A context must be current on the
// calling thread.
func NewDevice() (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("opengl init: %w", err)
	}
	var maxSize int32
	gl.GetIntegerv(gl.MAX_TEXTURE_SIZE, &maxSize)

	d := &Device{
		maxTextureSize: int(maxSize),
		kinds:          make(map[gpu.Texture]gpu.TextureKind),
		buffers:        make(map[gpu.VertexArray]vertexArray),
		labels:         make(map[gpu.Framebuffer]string),
	}
	logger.Log.Info("OpenGL device initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
		zap.Int("maxTextureSize", d.maxTextureSize))
	return d, nil
}

func (d *Device) MaxTextureSize() int { return d.maxTextureSize }

func target(kind gpu.TextureKind) uint32 {
	if kind == gpu.TextureCube {
		return gl.TEXTURE_CUBE_MAP
	}
	return gl.TEXTURE_2D
}

func (d *Device) CreateTexture(desc gpu.TextureDesc) (gpu.Texture, error) {
	f, ok := formats[desc.Format]
	if !ok {
		return 0, fmt.Errorf("opengl: unsupported format %v", desc.Format)
	}

	var id uint32
	gl.GenTextures(1, &id)
	tgt := target(desc.Kind)
	gl.BindTexture(tgt, id)

	if desc.Kind == gpu.TextureCube {
		for face := uint32(0); face < 6; face++ {
			gl.TexImage2D(gl.TEXTURE_CUBE_MAP_POSITIVE_X+face, 0, f.internal, desc.Width, desc.Height, 0, f.format, f.xtype, nil)
		}
	} else {
		gl.TexImage2D(gl.TEXTURE_2D, 0, f.internal, desc.Width, desc.Height, 0, f.format, f.xtype, nil)
	}

	filter := int32(gl.NEAREST)
	if desc.Filter == gpu.FilterLinear {
		filter = gl.LINEAR
	}
	gl.TexParameteri(tgt, gl.TEXTURE_MIN_FILTER, filter)
	gl.TexParameteri(tgt, gl.TEXTURE_MAG_FILTER, filter)

	wrap := int32(gl.CLAMP_TO_EDGE)
	switch desc.Wrap {
	case gpu.WrapRepeat:
		wrap = gl.REPEAT
	case gpu.WrapClampToBorder:
		wrap = gl.CLAMP_TO_BORDER
		border := [4]float32{1, 1, 1, 1}
		gl.TexParameterfv(tgt, gl.TEXTURE_BORDER_COLOR, &border[0])
	}
	gl.TexParameteri(tgt, gl.TEXTURE_WRAP_S, wrap)
	gl.TexParameteri(tgt, gl.TEXTURE_WRAP_T, wrap)
	if desc.Kind == gpu.TextureCube {
		gl.TexParameteri(tgt, gl.TEXTURE_WRAP_R, wrap)
	}

	if errCode := gl.GetError(); errCode != gl.NO_ERROR {
		gl.DeleteTextures(1, &id)
		return 0, fmt.Errorf("opengl: allocate %dx%d %v texture: error 0x%x", desc.Width, desc.Height, desc.Format, errCode)
	}

	tex := gpu.Texture(id)
	d.kinds[tex] = desc.Kind
	return tex, nil
}

func (d *Device) UploadTexture2D(tex gpu.Texture, width, height int, format gpu.PixelFormat, data []float32) {
	f := formats[format]
	gl.BindTexture(gl.TEXTURE_2D, uint32(tex))
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, int32(width), int32(height), f.format, gl.FLOAT, gl.Ptr(data))
}

func (d *Device) UploadImageRGBA8(tex gpu.Texture, width, height int, pix []uint8) {
	gl.BindTexture(gl.TEXTURE_2D, uint32(tex))
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pix))
}

func (d *Device) DeleteTexture(tex gpu.Texture) {
	id := uint32(tex)
	gl.DeleteTextures(1, &id)
	delete(d.kinds, tex)
}

func (d *Device) CreateFramebuffer(label string) gpu.Framebuffer {
	var id uint32
	gl.GenFramebuffers(1, &id)
	fb := gpu.Framebuffer(id)
	d.labels[fb] = label
	return fb
}

func (d *Device) DeleteFramebuffer(fb gpu.Framebuffer) {
	id := uint32(fb)
	gl.DeleteFramebuffers(1, &id)
	delete(d.labels, fb)
}

func attachmentPoint(slot gpu.Attachment) uint32 {
	if slot == gpu.Depth {
		return gl.DEPTH_ATTACHMENT
	}
	return gl.COLOR_ATTACHMENT0 + uint32(slot)
}

func (d *Device) AttachTexture(fb gpu.Framebuffer, slot gpu.Attachment, tex gpu.Texture) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(fb))
	if d.kinds[tex] == gpu.TextureCube {
		// Layered attachment; the geometry shader selects the face.
		gl.FramebufferTexture(gl.FRAMEBUFFER, attachmentPoint(slot), uint32(tex), 0)
		return
	}
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, attachmentPoint(slot), gl.TEXTURE_2D, uint32(tex), 0)
}

func (d *Device) DrawBuffers(fb gpu.Framebuffer, n int) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(fb))
	if n == 0 {
		gl.DrawBuffer(gl.NONE)
		gl.ReadBuffer(gl.NONE)
		return
	}
	bufs := make([]uint32, n)
	for i := range bufs {
		bufs[i] = gl.COLOR_ATTACHMENT0 + uint32(i)
	}
	gl.DrawBuffers(int32(n), &bufs[0])
}

func (d *Device) FramebufferStatus(fb gpu.Framebuffer) error {
	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(fb))
	if status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
		return fmt.Errorf("%w: %s status 0x%x", gpu.ErrIncompleteFramebuffer, d.labels[fb], status)
	}
	return nil
}

func (d *Device) CreateVertexArray(layout gpu.VertexLayout, vertices []float32, indices []uint32) gpu.VertexArray {
	var vao, vbo, ebo uint32
	gl.GenVertexArrays(1, &vao)
	gl.BindVertexArray(vao)

	gl.GenBuffers(1, &vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*4, gl.Ptr(vertices), gl.STATIC_DRAW)

	if len(indices) > 0 {
		gl.GenBuffers(1, &ebo)
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, ebo)
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(indices)*4, gl.Ptr(indices), gl.STATIC_DRAW)
	}

	stride := int32(layout.Stride() * 4)
	offset := 0
	for loc, n := range layout {
		gl.VertexAttribPointer(uint32(loc), int32(n), gl.FLOAT, false, stride, gl.PtrOffset(offset*4))
		gl.EnableVertexAttribArray(uint32(loc))
		offset += n
	}
	gl.BindVertexArray(0)

	d.buffers[gpu.VertexArray(vao)] = vertexArray{vbo: vbo, ebo: ebo}
	return gpu.VertexArray(vao)
}

func (d *Device) DeleteVertexArray(vao gpu.VertexArray) {
	if b, ok := d.buffers[vao]; ok {
		gl.DeleteBuffers(1, &b.vbo)
		if b.ebo != 0 {
			gl.DeleteBuffers(1, &b.ebo)
		}
		delete(d.buffers, vao)
	}
	id := uint32(vao)
	gl.DeleteVertexArrays(1, &id)
}

func (d *Device) CreateProgram(src gpu.ShaderSource) (gpu.Program, error) {
	return buildProgram(src.Name, src.Vertex, src.Geometry, src.Fragment)
}

func (d *Device) BindFramebuffer(fb gpu.Framebuffer) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(fb))
}

func (d *Device) Viewport(x, y, width, height int) {
	gl.Viewport(int32(x), int32(y), int32(width), int32(height))
}

func (d *Device) ClearColor(r, g, b, a float32) { gl.ClearColor(r, g, b, a) }

func (d *Device) Clear(mask gpu.ClearMask) {
	var bits uint32
	if mask&gpu.ClearColorBit != 0 {
		bits |= gl.COLOR_BUFFER_BIT
	}
	if mask&gpu.ClearDepthBit != 0 {
		bits |= gl.DEPTH_BUFFER_BIT
	}
	gl.Clear(bits)
}

func (d *Device) SetBlend(mode gpu.BlendMode) {
	if mode == gpu.BlendAdditive {
		gl.Enable(gl.BLEND)
		gl.BlendFunc(gl.ONE, gl.ONE)
		gl.BlendEquation(gl.FUNC_ADD)
		return
	}
	gl.Disable(gl.BLEND)
}

func (d *Device) SetDepthTest(enabled bool) {
	if enabled {
		gl.Enable(gl.DEPTH_TEST)
		gl.DepthMask(true)
		return
	}
	gl.Disable(gl.DEPTH_TEST)
}

func (d *Device) SetColorWrite(enabled bool) {
	gl.ColorMask(enabled, enabled, enabled, enabled)
}

func (d *Device) BindTexture(unit int, tex gpu.Texture, kind gpu.TextureKind) {
	gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
	gl.BindTexture(target(kind), uint32(tex))
}

func (d *Device) BlitDepth(src, dst gpu.Framebuffer, width, height int) {
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, uint32(src))
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, uint32(dst))
	w, h := int32(width), int32(height)
	gl.BlitFramebuffer(0, 0, w, h, 0, 0, w, h, gl.DEPTH_BUFFER_BIT, gl.NEAREST)
	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(dst))
}

func (d *Device) DrawArrays(vao gpu.VertexArray, count int) {
	gl.BindVertexArray(uint32(vao))
	gl.DrawArrays(gl.TRIANGLES, 0, int32(count))
	gl.BindVertexArray(0)
}

func (d *Device) DrawIndexed(vao gpu.VertexArray, count int) {
	gl.BindVertexArray(uint32(vao))
	gl.DrawElements(gl.TRIANGLES, int32(count), gl.UNSIGNED_INT, nil)
	gl.BindVertexArray(0)
}

func (d *Device) ReadPixels(x, y, width, height int) []uint8 {
	pix := make([]uint8, width*height*4)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(int32(x), int32(y), int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pix))
	return pix
}

var limitQueries = []struct {
	name  string
	pname uint32
}{
	{"max_texture_size", gl.MAX_TEXTURE_SIZE},
	{"max_cube_map_texture_size", gl.MAX_CUBE_MAP_TEXTURE_SIZE},
	{"max_renderbuffer_size", gl.MAX_RENDERBUFFER_SIZE},
	{"max_color_attachments", gl.MAX_COLOR_ATTACHMENTS},
	{"max_draw_buffers", gl.MAX_DRAW_BUFFERS},
	{"max_texture_image_units", gl.MAX_TEXTURE_IMAGE_UNITS},
	{"max_combined_texture_image_units", gl.MAX_COMBINED_TEXTURE_IMAGE_UNITS},
	{"max_vertex_attribs", gl.MAX_VERTEX_ATTRIBS},
	{"max_geometry_output_vertices", gl.MAX_GEOMETRY_OUTPUT_VERTICES},
	{"max_fragment_uniform_components", gl.MAX_FRAGMENT_UNIFORM_COMPONENTS},
}

func (d *Device) Limits() map[string]int {
	out := make(map[string]int, len(limitQueries)+1)
	for _, q := range limitQueries {
		var v int32
		gl.GetIntegerv(q.pname, &v)
		out[q.name] = int(v)
	}
	var dims [2]int32
	gl.GetIntegerv(gl.MAX_VIEWPORT_DIMS, &dims[0])
	out["max_viewport_width"] = int(dims[0])
	out["max_viewport_height"] = int(dims[1])
	return out
}
