package renderer

import (
	"fmt"
	"math/rand"

	"Prism3D/internal/gpu"
	"Prism3D/internal/logger"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

const (
	ssaoNoiseSize = 4
	// MaxSSAOKernelSize bounds the samples[] uniform array in the shader.
	MaxSSAOKernelSize = 64
)

type SSAOSettings struct {
	KernelSize int     `toml:"kernel_size"`
	Radius     float32 `toml:"radius"`
	Bias       float32 `toml:"bias"`
	Seed       int64   `toml:"seed"`
}

func DefaultSSAOSettings() SSAOSettings {
	return SSAOSettings{KernelSize: 64, Radius: 0.5, Bias: 0.025, Seed: 42}
}

// SSAO estimates ambient occlusion from the G-buffer. The raw occlusion is
// blurred over the noise tile to hide the rotation pattern.
type SSAO struct {
	dev      gpu.Device
	quad     *ScreenQuad
	settings SSAOSettings
	width    int
	height   int

	kernel      []mgl32.Vec3
	sampleNames []string

	noise   *RenderTarget
	raw     *RenderTarget
	blurred *RenderTarget
	rawFB   *Framebuffer
	blurFB  *Framebuffer

	occlusion gpu.Program
	blur      gpu.Program
}

func lerp(a, b, f float32) float32 { return a + f*(b-a) }

// kernelScale is the length envelope of sample i: samples cluster near the
// origin and spread out quadratically with their index.
func kernelScale(i, n int) float32 {
	s := float32(i) / float32(n)
	return lerp(0.1, 1.0, s*s)
}

// generateKernel returns n samples in the +Z unit hemisphere.
func generateKernel(rng *rand.Rand, n int) []mgl32.Vec3 {
	kernel := make([]mgl32.Vec3, 0, n)
	for i := 0; i < n; i++ {
		var v mgl32.Vec3
		for {
			v = mgl32.Vec3{rng.Float32()*2 - 1, rng.Float32()*2 - 1, rng.Float32()}
			if v.Len() > 1e-4 {
				break
			}
		}
		v = v.Normalize().Mul(rng.Float32() * kernelScale(i, n))
		kernel = append(kernel, v)
	}
	return kernel
}

// generateNoise returns a 4x4 tile of rotation vectors around +Z, packed RGB.
func generateNoise(rng *rand.Rand) []float32 {
	out := make([]float32, 0, ssaoNoiseSize*ssaoNoiseSize*3)
	for i := 0; i < ssaoNoiseSize*ssaoNoiseSize; i++ {
		out = append(out, rng.Float32()*2-1, rng.Float32()*2-1, 0)
	}
	return out
}

// NewSSAO builds the kernel and noise from a source seeded with
// settings.Seed.
func NewSSAO(dev gpu.Device, quad *ScreenQuad, width, height int, settings SSAOSettings) (*SSAO, error) {
	return NewSSAOWithRand(dev, quad, width, height, settings, rand.New(rand.NewSource(settings.Seed)))
}

func NewSSAOWithRand(dev gpu.Device, quad *ScreenQuad, width, height int, settings SSAOSettings, rng *rand.Rand) (s *SSAO, err error) {
	if settings.KernelSize < 1 || settings.KernelSize > MaxSSAOKernelSize {
		return nil, fmt.Errorf("ssao: kernel size %d out of range [1, %d]", settings.KernelSize, MaxSSAOKernelSize)
	}

	s = &SSAO{
		dev:      dev,
		quad:     quad,
		settings: settings,
		width:    width,
		height:   height,
		kernel:   generateKernel(rng, settings.KernelSize),
	}
	s.sampleNames = make([]string, len(s.kernel))
	for i := range s.kernel {
		s.sampleNames[i] = fmt.Sprintf("samples[%d]", i)
	}

	var cleanup Unwind
	defer func() {
		if err != nil {
			cleanup.Unwind()
		}
	}()

	s.noise, err = NewRenderTarget(dev, RenderTargetDesc{
		Kind:   gpu.Texture2D,
		Width:  ssaoNoiseSize,
		Height: ssaoNoiseSize,
		Format: gpu.FormatRGB16F,
		Filter: gpu.FilterNearest,
		Wrap:   gpu.WrapRepeat,
	})
	if err != nil {
		return nil, fmt.Errorf("ssao noise: %w", err)
	}
	cleanup.Add(s.noise.Release)
	dev.UploadTexture2D(s.noise.Texture(), ssaoNoiseSize, ssaoNoiseSize, gpu.FormatRGB16F, generateNoise(rng))

	occlusionDesc := RenderTargetDesc{
		Kind:   gpu.Texture2D,
		Width:  width,
		Height: height,
		Format: gpu.FormatR16F,
		Filter: gpu.FilterNearest,
		Wrap:   gpu.WrapClampToEdge,
	}
	if s.raw, err = NewRenderTarget(dev, occlusionDesc); err != nil {
		return nil, fmt.Errorf("ssao: %w", err)
	}
	cleanup.Add(s.raw.Release)
	if s.blurred, err = NewRenderTarget(dev, occlusionDesc); err != nil {
		return nil, fmt.Errorf("ssao blur: %w", err)
	}
	cleanup.Add(s.blurred.Release)

	s.rawFB = NewFramebuffer(dev, "ssao")
	cleanup.Add(s.rawFB.Release)
	s.blurFB = NewFramebuffer(dev, "ssao-blur")
	cleanup.Add(s.blurFB.Release)
	for _, p := range []struct {
		fb *Framebuffer
		rt *RenderTarget
	}{{s.rawFB, s.raw}, {s.blurFB, s.blurred}} {
		if err = p.fb.Attach(gpu.Color0, p.rt); err != nil {
			return nil, err
		}
		p.fb.SetDrawBuffers(1)
		if err = p.fb.CheckComplete(); err != nil {
			return nil, err
		}
	}

	if s.occlusion, err = dev.CreateProgram(gpu.ShaderSource{Name: "ssao", Vertex: screenQuadVertex, Fragment: ssaoFragment}); err != nil {
		return nil, err
	}
	cleanup.Add(s.occlusion.Delete)
	if s.blur, err = dev.CreateProgram(gpu.ShaderSource{Name: "ssao-blur", Vertex: screenQuadVertex, Fragment: ssaoBlurFragment}); err != nil {
		return nil, err
	}
	cleanup.Add(s.blur.Delete)

	s.occlusion.Use()
	s.occlusion.SetInt("gPosition", 0)
	s.occlusion.SetInt("gNormal", 1)
	s.occlusion.SetInt("texNoise", 2)
	s.blur.Use()
	s.blur.SetInt("ssaoInput", 0)

	logger.Log.Debug("SSAO initialized",
		zap.Int("kernelSize", len(s.kernel)),
		zap.Float32("meanSampleLength", s.meanKernelLength()),
		zap.Int64("seed", settings.Seed))
	return s, nil
}

// Kernel returns the hemisphere samples. The slice must not be modified.
func (s *SSAO) Kernel() []mgl32.Vec3 { return s.kernel }

// Texture is the blurred occlusion, valid after Compute.
func (s *SSAO) Texture() *RenderTarget { return s.blurred }

// Raw is the unblurred occlusion.
func (s *SSAO) Raw() *RenderTarget { return s.raw }

func (s *SSAO) Compute(gPosition, gNormal *RenderTarget, projection, view mgl32.Mat4) {
	s.rawFB.Bind()
	s.dev.Clear(gpu.ClearColorBit)
	s.occlusion.Use()
	for i, v := range s.kernel {
		s.occlusion.SetVec3(s.sampleNames[i], v)
	}
	s.occlusion.SetInt("kernelSize", int32(len(s.kernel)))
	s.occlusion.SetFloat("radius", s.settings.Radius)
	s.occlusion.SetFloat("bias", s.settings.Bias)
	s.occlusion.SetMat4("projection", projection)
	s.occlusion.SetMat4("view", view)
	s.occlusion.SetVec2("screenRes", mgl32.Vec2{float32(s.width), float32(s.height)})
	gPosition.BindAsTexture(0)
	gNormal.BindAsTexture(1)
	s.noise.BindAsTexture(2)
	s.quad.Draw()

	s.blurFB.Bind()
	s.dev.Clear(gpu.ClearColorBit)
	s.blur.Use()
	s.raw.BindAsTexture(0)
	s.quad.Draw()
}

func (s *SSAO) meanKernelLength() float32 {
	var sum float32
	for _, v := range s.kernel {
		sum += math32.Sqrt(v.Dot(v))
	}
	return sum / float32(len(s.kernel))
}

func (s *SSAO) Release() {
	if s == nil {
		return
	}
	s.rawFB.Release()
	s.blurFB.Release()
	s.raw.Release()
	s.blurred.Release()
	s.noise.Release()
	if s.occlusion != nil {
		s.occlusion.Delete()
	}
	if s.blur != nil {
		s.blur.Delete()
	}
}
