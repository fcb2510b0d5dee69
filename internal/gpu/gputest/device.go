// Package gputest provides a gpu.Device that records commands instead of
// issuing them, so pass ordering and state changes can be asserted.
package gputest

import (
	"fmt"

	"Prism3D/internal/gpu"

	"github.com/go-gl/mathgl/mgl32"
)

// Call is one recorded command.
type Call struct {
	Op          string
	Framebuffer string // label of the bound framebuffer when the call was made
	Program     string // name of the program in use when the call was made
	Args        []any
}

// Draw is a recorded draw call with the state it was issued under.
type Draw struct {
	Program     string
	Framebuffer string
	Viewport    [4]int
	Blend       gpu.BlendMode
	ColorWrite  bool
	Count       int
}

// Device is a recording gpu.Device. The zero value is not usable; call New.
type Device struct {
	Calls []Call

	// MaxSize is returned by MaxTextureSize.
	MaxSize int
	// Incomplete lists framebuffer labels FramebufferStatus reports as incomplete.
	Incomplete map[string]bool
	// FailPrograms lists program names CreateProgram refuses to build.
	FailPrograms map[string]bool

	nextID       uint32
	fbLabels     map[gpu.Framebuffer]string
	textures     map[gpu.Texture]gpu.TextureDesc
	framebuffers map[gpu.Framebuffer]map[gpu.Attachment]gpu.Texture
	vaos         map[gpu.VertexArray]bool
	programs     map[string]*Program

	bound      gpu.Framebuffer
	current    *Program
	blend      gpu.BlendMode
	colorWrite bool
	viewport   [4]int
	units      map[int]gpu.Texture
}

func New() *Device {
	return &Device{
		MaxSize:      16384,
		Incomplete:   map[string]bool{},
		FailPrograms: map[string]bool{},
		fbLabels:     map[gpu.Framebuffer]string{gpu.DefaultFramebuffer: "surface"},
		textures:     map[gpu.Texture]gpu.TextureDesc{},
		framebuffers: map[gpu.Framebuffer]map[gpu.Attachment]gpu.Texture{},
		vaos:         map[gpu.VertexArray]bool{},
		programs:     map[string]*Program{},
		colorWrite:   true,
		units:        map[int]gpu.Texture{},
	}
}

func (d *Device) record(op string, args ...any) {
	prog := ""
	if d.current != nil {
		prog = d.current.Name
	}
	d.Calls = append(d.Calls, Call{Op: op, Framebuffer: d.fbLabels[d.bound], Program: prog, Args: args})
}

func (d *Device) id() uint32 {
	d.nextID++
	return d.nextID
}

func (d *Device) MaxTextureSize() int { return d.MaxSize }

func (d *Device) CreateTexture(desc gpu.TextureDesc) (gpu.Texture, error) {
	if desc.Width <= 0 || desc.Height <= 0 {
		return 0, fmt.Errorf("gputest: bad texture size %dx%d", desc.Width, desc.Height)
	}
	tex := gpu.Texture(d.id())
	d.textures[tex] = desc
	d.record("CreateTexture", tex, desc)
	return tex, nil
}

func (d *Device) UploadTexture2D(tex gpu.Texture, width, height int, format gpu.PixelFormat, data []float32) {
	d.record("UploadTexture2D", tex, width, height, format, len(data))
}

func (d *Device) UploadImageRGBA8(tex gpu.Texture, width, height int, pix []uint8) {
	d.record("UploadImageRGBA8", tex, width, height, len(pix))
}

func (d *Device) DeleteTexture(tex gpu.Texture) {
	delete(d.textures, tex)
	d.record("DeleteTexture", tex)
}

func (d *Device) CreateFramebuffer(label string) gpu.Framebuffer {
	fb := gpu.Framebuffer(d.id())
	d.fbLabels[fb] = label
	d.framebuffers[fb] = map[gpu.Attachment]gpu.Texture{}
	d.record("CreateFramebuffer", label)
	return fb
}

func (d *Device) DeleteFramebuffer(fb gpu.Framebuffer) {
	delete(d.framebuffers, fb)
	d.record("DeleteFramebuffer", d.fbLabels[fb])
}

func (d *Device) AttachTexture(fb gpu.Framebuffer, slot gpu.Attachment, tex gpu.Texture) {
	if att, ok := d.framebuffers[fb]; ok {
		att[slot] = tex
	}
	d.record("AttachTexture", d.fbLabels[fb], slot, tex)
}

func (d *Device) DrawBuffers(fb gpu.Framebuffer, n int) {
	d.record("DrawBuffers", d.fbLabels[fb], n)
}

func (d *Device) FramebufferStatus(fb gpu.Framebuffer) error {
	label := d.fbLabels[fb]
	d.record("FramebufferStatus", label)
	if d.Incomplete[label] {
		return fmt.Errorf("%w: %s", gpu.ErrIncompleteFramebuffer, label)
	}
	return nil
}

func (d *Device) CreateVertexArray(layout gpu.VertexLayout, vertices []float32, indices []uint32) gpu.VertexArray {
	vao := gpu.VertexArray(d.id())
	d.vaos[vao] = true
	d.record("CreateVertexArray", layout.Stride(), len(vertices), len(indices))
	return vao
}

func (d *Device) DeleteVertexArray(vao gpu.VertexArray) {
	delete(d.vaos, vao)
	d.record("DeleteVertexArray", vao)
}

func (d *Device) CreateProgram(src gpu.ShaderSource) (gpu.Program, error) {
	if d.FailPrograms[src.Name] {
		return nil, fmt.Errorf("gputest: compile %s: forced failure", src.Name)
	}
	p := &Program{Name: src.Name, Source: src, Uniforms: map[string]any{}, dev: d}
	d.programs[src.Name] = p
	d.record("CreateProgram", src.Name)
	return p, nil
}

func (d *Device) BindFramebuffer(fb gpu.Framebuffer) {
	d.bound = fb
	d.record("BindFramebuffer", d.fbLabels[fb])
}

func (d *Device) Viewport(x, y, width, height int) {
	d.viewport = [4]int{x, y, width, height}
	d.record("Viewport", x, y, width, height)
}

func (d *Device) ClearColor(r, g, b, a float32) { d.record("ClearColor", r, g, b, a) }

func (d *Device) Clear(mask gpu.ClearMask) { d.record("Clear", mask) }

func (d *Device) SetBlend(mode gpu.BlendMode) {
	d.blend = mode
	d.record("SetBlend", mode)
}

func (d *Device) SetDepthTest(enabled bool) { d.record("SetDepthTest", enabled) }

func (d *Device) SetColorWrite(enabled bool) {
	d.colorWrite = enabled
	d.record("SetColorWrite", enabled)
}

func (d *Device) BindTexture(unit int, tex gpu.Texture, kind gpu.TextureKind) {
	d.units[unit] = tex
	d.record("BindTexture", unit, tex, kind)
}

func (d *Device) BlitDepth(src, dst gpu.Framebuffer, width, height int) {
	d.record("BlitDepth", d.fbLabels[src], d.fbLabels[dst], width, height)
}

func (d *Device) DrawArrays(vao gpu.VertexArray, count int) { d.record("DrawArrays", vao, count) }

func (d *Device) DrawIndexed(vao gpu.VertexArray, count int) { d.record("DrawIndexed", vao, count) }

func (d *Device) ReadPixels(x, y, width, height int) []uint8 {
	d.record("ReadPixels", x, y, width, height)
	return make([]uint8, width*height*4)
}

func (d *Device) Limits() map[string]int {
	return map[string]int{"max_texture_size": d.MaxSize, "max_color_attachments": 8}
}

// Draws returns every draw call in issue order with the state it ran under.
func (d *Device) Draws() []Draw {
	var (
		out      []Draw
		viewport [4]int
		blend    gpu.BlendMode
		color    = true
	)
	for _, c := range d.Calls {
		switch c.Op {
		case "Viewport":
			viewport = [4]int{c.Args[0].(int), c.Args[1].(int), c.Args[2].(int), c.Args[3].(int)}
		case "SetBlend":
			blend = c.Args[0].(gpu.BlendMode)
		case "SetColorWrite":
			color = c.Args[0].(bool)
		case "DrawArrays", "DrawIndexed":
			out = append(out, Draw{
				Program:     c.Program,
				Framebuffer: c.Framebuffer,
				Viewport:    viewport,
				Blend:       blend,
				ColorWrite:  color,
				Count:       c.Args[1].(int),
			})
		}
	}
	return out
}

// Ops returns the recorded calls with the given op name.
func (d *Device) Ops(op string) []Call {
	var out []Call
	for _, c := range d.Calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Reset drops the recorded calls but keeps live resources.
func (d *Device) Reset() { d.Calls = d.Calls[:0] }

// Program returns the program created under name, or nil.
func (d *Device) Program(name string) *Program { return d.programs[name] }

// Texture returns the descriptor a live texture was created with.
func (d *Device) Texture(tex gpu.Texture) (gpu.TextureDesc, bool) {
	desc, ok := d.textures[tex]
	return desc, ok
}

// LiveTextures is the number of textures created and not deleted.
func (d *Device) LiveTextures() int { return len(d.textures) }

// LiveFramebuffers is the number of framebuffers created and not deleted.
func (d *Device) LiveFramebuffers() int { return len(d.framebuffers) }

// LiveVertexArrays is the number of vertex arrays created and not deleted.
func (d *Device) LiveVertexArrays() int { return len(d.vaos) }

// Blend is the blend mode currently in effect.
func (d *Device) Blend() gpu.BlendMode { return d.blend }

// Bound is the label of the currently bound framebuffer.
func (d *Device) Bound() string { return d.fbLabels[d.bound] }

// CurrentViewport is the last viewport set.
func (d *Device) CurrentViewport() [4]int { return d.viewport }

// Program records uniform writes.
type Program struct {
	Name     string
	Source   gpu.ShaderSource
	Uniforms map[string]any
	Uses     int
	Deleted  bool
	dev      *Device
}

func (p *Program) Use() {
	p.Uses++
	p.dev.current = p
	p.dev.record("UseProgram", p.Name)
}

func (p *Program) set(name string, v any) {
	p.Uniforms[name] = v
	p.dev.record("SetUniform", p.Name, name, v)
}

func (p *Program) SetBool(name string, v bool)       { p.set(name, v) }
func (p *Program) SetInt(name string, v int32)       { p.set(name, v) }
func (p *Program) SetFloat(name string, v float32)   { p.set(name, v) }
func (p *Program) SetVec2(name string, v mgl32.Vec2) { p.set(name, v) }
func (p *Program) SetVec3(name string, v mgl32.Vec3) { p.set(name, v) }
func (p *Program) SetMat4(name string, v mgl32.Mat4) { p.set(name, v) }

func (p *Program) Delete() {
	p.Deleted = true
	p.dev.record("DeleteProgram", p.Name)
}
