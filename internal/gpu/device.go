// Package gpu defines the narrow command surface the render pipeline needs
// from a graphics API. The OpenGL implementation lives in gpu/opengl and a
// recording implementation for tests lives in gpu/gputest.
package gpu

import (
	"errors"

	"github.com/go-gl/mathgl/mgl32"
)

// Handles are opaque API object names. Zero is never a valid texture,
// vertex array or program; framebuffer zero is the display surface.
type (
	Texture     uint32
	Framebuffer uint32
	VertexArray uint32
)

// DefaultFramebuffer is the displayable surface.
const DefaultFramebuffer Framebuffer = 0

var ErrIncompleteFramebuffer = errors.New("gpu: framebuffer incomplete")

// Device issues resource and state commands. All methods must be called
// from the thread that owns the graphics context.
type Device interface {
	MaxTextureSize() int

	CreateTexture(desc TextureDesc) (Texture, error)
	// UploadTexture2D replaces the full contents of a 2D texture.
	// data holds width*height*channels float32 values.
	UploadTexture2D(tex Texture, width, height int, format PixelFormat, data []float32)
	UploadImageRGBA8(tex Texture, width, height int, pix []uint8)
	DeleteTexture(tex Texture)

	CreateFramebuffer(label string) Framebuffer
	DeleteFramebuffer(fb Framebuffer)
	AttachTexture(fb Framebuffer, slot Attachment, tex Texture)
	// DrawBuffers enables colour attachments 0..n-1. n == 0 disables colour
	// output and reads entirely (depth-only framebuffers).
	DrawBuffers(fb Framebuffer, n int)
	FramebufferStatus(fb Framebuffer) error

	CreateVertexArray(layout VertexLayout, vertices []float32, indices []uint32) VertexArray
	DeleteVertexArray(vao VertexArray)

	CreateProgram(src ShaderSource) (Program, error)

	BindFramebuffer(fb Framebuffer)
	Viewport(x, y, width, height int)
	ClearColor(r, g, b, a float32)
	Clear(mask ClearMask)
	SetBlend(mode BlendMode)
	SetDepthTest(enabled bool)
	SetColorWrite(enabled bool)
	BindTexture(unit int, tex Texture, kind TextureKind)
	// BlitDepth copies the depth attachment of src into dst, both width x height.
	BlitDepth(src, dst Framebuffer, width, height int)

	DrawArrays(vao VertexArray, count int)
	DrawIndexed(vao VertexArray, count int)

	// ReadPixels reads RGBA8 pixels from the bound framebuffer, bottom row first.
	ReadPixels(x, y, width, height int) []uint8

	// Limits reports implementation limits for diagnostics.
	Limits() map[string]int
}

// Program is a linked shader program. Setting a uniform the program does
// not declare is a no-op.
type Program interface {
	Use()
	SetBool(name string, v bool)
	SetInt(name string, v int32)
	SetFloat(name string, v float32)
	SetVec2(name string, v mgl32.Vec2)
	SetVec3(name string, v mgl32.Vec3)
	SetMat4(name string, v mgl32.Mat4)
	Delete()
}

// ShaderSource carries GLSL stages. Geometry is optional.
type ShaderSource struct {
	Name     string
	Vertex   string
	Fragment string
	Geometry string
}
