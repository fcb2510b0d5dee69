package renderer

import (
	"math/rand"
	"testing"

	"Prism3D/internal/gpu"
	"Prism3D/internal/gpu/gputest"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKernelScaleGrowsMonotonically(t *testing.T) {
	const n = 64
	assert.InDelta(t, 0.1, kernelScale(0, n), 1e-6)
	prev := kernelScale(0, n)
	for i := 1; i < n; i++ {
		s := kernelScale(i, n)
		assert.GreaterOrEqual(t, s, prev, "i=%d", i)
		assert.LessOrEqual(t, s, float32(1))
		prev = s
	}
}

func TestGenerateKernelStaysInHemisphere(t *testing.T) {
	const n = 64
	kernel := generateKernel(rand.New(rand.NewSource(7)), n)

	require.Len(t, kernel, n)
	for i, v := range kernel {
		assert.GreaterOrEqual(t, v.Z(), float32(0), "sample %d below the surface: %v", i, v)
		assert.LessOrEqual(t, v.Len(), kernelScale(i, n)+1e-5, "sample %d outside its envelope", i)
	}
}

func TestGenerateKernelIsDeterministic(t *testing.T) {
	a := generateKernel(rand.New(rand.NewSource(42)), 16)
	b := generateKernel(rand.New(rand.NewSource(42)), 16)
	c := generateKernel(rand.New(rand.NewSource(43)), 16)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestGenerateNoiseRotatesAroundZ(t *testing.T) {
	noise := generateNoise(rand.New(rand.NewSource(1)))

	require.Len(t, noise, ssaoNoiseSize*ssaoNoiseSize*3)
	for i := 0; i < len(noise); i += 3 {
		assert.Zero(t, noise[i+2])
		assert.InDelta(t, 0, noise[i], 1)
		assert.InDelta(t, 0, noise[i+1], 1)
	}
}

func TestNewSSAORejectsKernelSize(t *testing.T) {
	dev := gputest.New()
	quad := NewScreenQuad(dev)

	for _, n := range []int{0, MaxSSAOKernelSize + 1} {
		settings := DefaultSSAOSettings()
		settings.KernelSize = n
		_, err := NewSSAO(dev, quad, 64, 64, settings)
		assert.Error(t, err, "kernel size %d", n)
	}
	assert.Zero(t, dev.LiveTextures())
}

func TestSSAOComputeUploadsKernelAndBlurs(t *testing.T) {
	dev := gputest.New()
	quad := NewScreenQuad(dev)
	settings := DefaultSSAOSettings()
	settings.KernelSize = 8
	s, err := NewSSAO(dev, quad, 64, 48, settings)
	require.NoError(t, err)
	pos, _ := NewRenderTarget(dev, RenderTargetDesc{Kind: gpu.Texture2D, Width: 64, Height: 48, Format: gpu.FormatRGBA16F})
	nrm, _ := NewRenderTarget(dev, RenderTargetDesc{Kind: gpu.Texture2D, Width: 64, Height: 48, Format: gpu.FormatRGBA16F})
	dev.Reset()

	s.Compute(pos, nrm, mgl32.Ident4(), mgl32.Ident4())

	draws := dev.Draws()
	require.Len(t, draws, 2)
	assert.Equal(t, "ssao", draws[0].Framebuffer)
	assert.Equal(t, "ssao", draws[0].Program)
	assert.Equal(t, "ssao-blur", draws[1].Framebuffer)
	assert.Equal(t, "ssao-blur", draws[1].Program)

	prog := dev.Program("ssao")
	assert.Equal(t, int32(8), prog.Uniforms["kernelSize"])
	assert.Equal(t, s.Kernel()[7], prog.Uniforms["samples[7]"])
	assert.Equal(t, mgl32.Vec2{64, 48}, prog.Uniforms["screenRes"])
	assert.Equal(t, settings.Radius, prog.Uniforms["radius"])
}

func TestNewSSAOSameSeedSameKernel(t *testing.T) {
	dev := gputest.New()
	quad := NewScreenQuad(dev)

	a, err := NewSSAO(dev, quad, 8, 8, DefaultSSAOSettings())
	require.NoError(t, err)
	b, err := NewSSAO(dev, quad, 8, 8, DefaultSSAOSettings())
	require.NoError(t, err)

	assert.Equal(t, a.Kernel(), b.Kernel())
}
