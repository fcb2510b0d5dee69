package gpu

import "fmt"

type TextureKind int

const (
	Texture2D TextureKind = iota
	TextureCube
)

func (k TextureKind) String() string {
	switch k {
	case Texture2D:
		return "2d"
	case TextureCube:
		return "cube"
	}
	return fmt.Sprintf("TextureKind(%d)", int(k))
}

type PixelFormat int

const (
	FormatRGBA8 PixelFormat = iota
	FormatRGBA16F
	FormatRGB16F
	FormatR16F
	FormatR11G11B10F
	FormatDepth24
	FormatDepth32F
)

// IsDepth reports whether the format can only be attached as depth.
func (f PixelFormat) IsDepth() bool {
	return f == FormatDepth24 || f == FormatDepth32F
}

// Channels is the number of float components UploadTexture2D expects.
func (f PixelFormat) Channels() int {
	switch f {
	case FormatR16F, FormatDepth24, FormatDepth32F:
		return 1
	case FormatRGB16F, FormatR11G11B10F:
		return 3
	}
	return 4
}

func (f PixelFormat) String() string {
	switch f {
	case FormatRGBA8:
		return "rgba8"
	case FormatRGBA16F:
		return "rgba16f"
	case FormatRGB16F:
		return "rgb16f"
	case FormatR16F:
		return "r16f"
	case FormatR11G11B10F:
		return "r11g11b10f"
	case FormatDepth24:
		return "depth24"
	case FormatDepth32F:
		return "depth32f"
	}
	return fmt.Sprintf("PixelFormat(%d)", int(f))
}

type Filter int

const (
	FilterNearest Filter = iota
	FilterLinear
)

type Wrap int

const (
	WrapClampToEdge Wrap = iota
	WrapRepeat
	// WrapClampToBorder samples outside [0,1] as depth 1.0 (lit).
	WrapClampToBorder
)

// TextureDesc describes storage for CreateTexture. Width and Height have
// already been validated by the caller.
type TextureDesc struct {
	Kind   TextureKind
	Width  int32
	Height int32
	Format PixelFormat
	Filter Filter
	Wrap   Wrap
}

type Attachment int

const (
	Color0 Attachment = iota
	Color1
	Color2
	Depth
)

// MaxColorAttachments is the number of colour slots the pipeline uses.
const MaxColorAttachments = 3

func (a Attachment) String() string {
	if a == Depth {
		return "depth"
	}
	return fmt.Sprintf("color%d", int(a))
}

type ClearMask int

const (
	ClearColorBit ClearMask = 1 << iota
	ClearDepthBit
)

type BlendMode int

const (
	BlendNone BlendMode = iota
	// BlendAdditive is dst = src + dst.
	BlendAdditive
)

// VertexLayout lists float component counts per attribute location.
// {3, 3, 2, 3} is position, normal, uv, tangent.
type VertexLayout []int

// Stride returns the number of floats per vertex.
func (l VertexLayout) Stride() int {
	n := 0
	for _, c := range l {
		n += c
	}
	return n
}
