package loader

import (
	"image"
	"image/color"

	perlin "github.com/aquilax/go-perlin"
	"github.com/chewxy/math32"
)

const (
	noiseAlpha  = 2
	noiseBeta   = 2
	noiseOctave = 3
)

// PerlinHeight returns a height function for Heightfield: Perlin noise
// sampled every scale units, multiplied by amplitude.
func PerlinHeight(seed int64, scale, amplitude float32) func(x, z float32) float32 {
	p := perlin.NewPerlin(noiseAlpha, noiseBeta, noiseOctave, seed)
	return func(x, z float32) float32 {
		return float32(p.Noise2D(float64(x/scale), float64(z/scale))) * amplitude
	}
}

// NoiseTexture renders a size x size image blending from dark to light by
// Perlin noise, for use as a procedural albedo map.
func NoiseTexture(size int, seed int64, dark, light color.RGBA) *image.RGBA {
	p := perlin.NewPerlin(noiseAlpha, noiseBeta, noiseOctave, seed)
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	freq := 8 / float64(size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			// Noise2D is roughly in [-1, 1].
			t := float32(p.Noise2D(float64(x)*freq, float64(y)*freq))*0.5 + 0.5
			t = math32.Max(0, math32.Min(1, t))
			img.SetRGBA(x, y, mix(dark, light, t))
		}
	}
	return img
}

func mix(a, b color.RGBA, t float32) color.RGBA {
	ch := func(x, y uint8) uint8 {
		return uint8(math32.Round(float32(x) + (float32(y)-float32(x))*t))
	}
	return color.RGBA{ch(a.R, b.R), ch(a.G, b.G), ch(a.B, b.B), ch(a.A, b.A)}
}
