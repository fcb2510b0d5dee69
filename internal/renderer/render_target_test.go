package renderer

import (
	"errors"
	"math"
	"testing"

	"Prism3D/internal/gpu"
	"Prism3D/internal/gpu/gputest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func colorDesc(w, h int) RenderTargetDesc {
	return RenderTargetDesc{Kind: gpu.Texture2D, Width: w, Height: h, Format: gpu.FormatRGBA16F}
}

func TestNewRenderTargetRejectsBadSizes(t *testing.T) {
	dev := gputest.New()
	dev.MaxSize = 4096

	cases := map[string][2]int{
		"zero width":      {0, 10},
		"negative height": {10, -1},
		"over limit":      {4097, 16},
		"overflows int32": {math.MaxInt32 + 1, 1},
	}
	for name, size := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewRenderTarget(dev, colorDesc(size[0], size[1]))
			assert.ErrorIs(t, err, ErrInvalidDimensions)
		})
	}
	assert.Zero(t, dev.LiveTextures())
}

func TestNewRenderTargetCubeMustBeSquare(t *testing.T) {
	dev := gputest.New()

	_, err := NewRenderTarget(dev, RenderTargetDesc{Kind: gpu.TextureCube, Width: 64, Height: 32, Format: gpu.FormatDepth24})
	assert.ErrorIs(t, err, ErrInvalidDimensions)

	rt, err := NewRenderTarget(dev, RenderTargetDesc{Kind: gpu.TextureCube, Width: 64, Height: 64, Format: gpu.FormatDepth24})
	require.NoError(t, err)
	assert.Equal(t, gpu.TextureCube, rt.Kind())
}

func TestRenderTargetReleaseIsIdempotent(t *testing.T) {
	dev := gputest.New()
	rt, err := NewRenderTarget(dev, colorDesc(8, 8))
	require.NoError(t, err)
	require.Equal(t, 1, dev.LiveTextures())

	rt.Release()
	rt.Release()
	var nilTarget *RenderTarget
	nilTarget.Release()

	assert.Zero(t, dev.LiveTextures())
	assert.Len(t, dev.Ops("DeleteTexture"), 1)
}

func TestFramebufferAttachSizeMismatch(t *testing.T) {
	dev := gputest.New()
	fb := NewFramebuffer(dev, "test")
	a, _ := NewRenderTarget(dev, colorDesc(64, 64))
	b, _ := NewRenderTarget(dev, colorDesc(32, 32))

	require.NoError(t, fb.Attach(gpu.Color0, a))
	err := fb.Attach(gpu.Color1, b)

	assert.True(t, errors.Is(err, ErrAttachmentSize), "got %v", err)
	assert.Nil(t, fb.Attachment(gpu.Color1))
	assert.Equal(t, 64, fb.Width())
}

func TestFramebufferReplacingSoleAttachmentRetargets(t *testing.T) {
	dev := gputest.New()
	fb := NewFramebuffer(dev, "mip")
	a, _ := NewRenderTarget(dev, colorDesc(64, 64))
	b, _ := NewRenderTarget(dev, colorDesc(32, 16))

	require.NoError(t, fb.Attach(gpu.Color0, a))
	require.NoError(t, fb.Attach(gpu.Color0, b))

	assert.Equal(t, 32, fb.Width())
	assert.Equal(t, 16, fb.Height())

	fb.Bind()
	assert.Equal(t, [4]int{0, 0, 32, 16}, dev.CurrentViewport())
	assert.Equal(t, "mip", dev.Bound())
}

func TestFramebufferAttachRejectsWrongSlotKind(t *testing.T) {
	dev := gputest.New()
	fb := NewFramebuffer(dev, "test")
	depth, _ := NewRenderTarget(dev, RenderTargetDesc{Kind: gpu.Texture2D, Width: 4, Height: 4, Format: gpu.FormatDepth24})
	color, _ := NewRenderTarget(dev, colorDesc(4, 4))

	assert.Error(t, fb.Attach(gpu.Color0, depth))
	assert.Error(t, fb.Attach(gpu.Depth, color))
	assert.Error(t, fb.Attach(gpu.Attachment(gpu.MaxColorAttachments), color))
	assert.NoError(t, fb.Attach(gpu.Depth, depth))
}

func TestFramebufferCheckCompleteWrapsName(t *testing.T) {
	dev := gputest.New()
	dev.Incomplete["broken"] = true
	fb := NewFramebuffer(dev, "broken")

	err := fb.CheckComplete()

	require.ErrorIs(t, err, gpu.ErrIncompleteFramebuffer)
	assert.Contains(t, err.Error(), "broken")
}

func TestUnwindRunsInReverse(t *testing.T) {
	var order []int
	var u Unwind
	u.Add(func() { order = append(order, 1) })
	u.Add(func() { order = append(order, 2) })
	u.Add(func() { order = append(order, 3) })

	u.Unwind()
	u.Unwind()

	assert.Equal(t, []int{3, 2, 1}, order)
}

func TestUnwindDiscard(t *testing.T) {
	ran := false
	var u Unwind
	u.Add(func() { ran = true })
	u.Discard()
	u.Unwind()
	assert.False(t, ran)
}
