package renderer

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// PipelineConfig fixes the resolution and resource sizes of a pipeline.
// Changing any of it requires a new Renderer.
type PipelineConfig struct {
	Width           int          `toml:"width"`
	Height          int          `toml:"height"`
	BloomMips       int          `toml:"bloom_mips"`
	DirShadowSize   int          `toml:"dir_shadow_size"`
	PointShadowSize int          `toml:"point_shadow_size"`
	SSAO            SSAOSettings `toml:"ssao"`
	// ReportLimits logs the device limits at init.
	ReportLimits bool `toml:"report_limits"`
}

// DefaultPipelineConfig returns the settings used when no config file is given.
func DefaultPipelineConfig(width, height int) PipelineConfig {
	return PipelineConfig{
		Width:           width,
		Height:          height,
		BloomMips:       DefaultBloomMips,
		DirShadowSize:   DefaultDirectionalShadowSize,
		PointShadowSize: DefaultPointShadowSize,
		SSAO:            DefaultSSAOSettings(),
		ReportLimits:    true,
	}
}

// HighQualityPipelineConfig doubles shadow resolution and lengthens the
// bloom chain.
func HighQualityPipelineConfig(width, height int) PipelineConfig {
	cfg := DefaultPipelineConfig(width, height)
	cfg.BloomMips = 7
	cfg.DirShadowSize = 4096
	cfg.PointShadowSize = 2048
	cfg.SSAO.KernelSize = MaxSSAOKernelSize
	return cfg
}

// PerformancePipelineConfig trades shadow and occlusion quality for speed.
func PerformancePipelineConfig(width, height int) PipelineConfig {
	cfg := DefaultPipelineConfig(width, height)
	cfg.BloomMips = 4
	cfg.DirShadowSize = 1024
	cfg.PointShadowSize = 512
	cfg.SSAO.KernelSize = 16
	return cfg
}

// PipelinePreset returns the named preset: default, high or performance.
func PipelinePreset(name string, width, height int) (PipelineConfig, error) {
	switch strings.ToLower(name) {
	case "", "default":
		return DefaultPipelineConfig(width, height), nil
	case "high", "high-quality":
		return HighQualityPipelineConfig(width, height), nil
	case "performance", "fast":
		return PerformancePipelineConfig(width, height), nil
	}
	return PipelineConfig{}, fmt.Errorf("unknown pipeline preset %q", name)
}

func (c PipelineConfig) Validate() error {
	if err := validateSize(c.Width, c.Height, 0); err != nil {
		return err
	}
	if c.BloomMips < 1 {
		return fmt.Errorf("bloom_mips must be at least 1, got %d", c.BloomMips)
	}
	if err := validateSize(c.DirShadowSize, c.PointShadowSize, 0); err != nil {
		return fmt.Errorf("shadow size: %w", err)
	}
	if c.SSAO.KernelSize < 1 || c.SSAO.KernelSize > MaxSSAOKernelSize {
		return fmt.Errorf("ssao kernel_size must be in [1, %d], got %d", MaxSSAOKernelSize, c.SSAO.KernelSize)
	}
	return nil
}

// DebugView replaces the final composite with a raw intermediate target.
type DebugView int

const (
	DebugNone DebugView = iota
	DebugPosition
	DebugNormal
	DebugAlbedo
	DebugSSAO
	DebugBright
	DebugBloom
)

var debugViewNames = []string{"none", "gposition", "gnormal", "albedo", "ssao", "bright", "bloom"}

func (v DebugView) String() string {
	if v < 0 || int(v) >= len(debugViewNames) {
		return fmt.Sprintf("DebugView(%d)", int(v))
	}
	return debugViewNames[v]
}

// Next cycles to the following view, wrapping to DebugNone.
func (v DebugView) Next() DebugView {
	return DebugView((int(v) + 1) % len(debugViewNames))
}

func (v DebugView) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

func (v *DebugView) UnmarshalText(text []byte) error {
	s := strings.ToLower(string(text))
	for i, name := range debugViewNames {
		if name == s {
			*v = DebugView(i)
			return nil
		}
	}
	return fmt.Errorf("unknown debug view %q", s)
}

// FrameSettings are read once per DrawFrame and may change between frames.
type FrameSettings struct {
	Exposure          float32    `toml:"exposure"`
	Gamma             float32    `toml:"gamma"`
	BloomFilterRadius float32    `toml:"bloom_filter_radius"`
	BloomThreshold    float32    `toml:"bloom_threshold"`
	BloomStrength     float32    `toml:"bloom_strength"`
	UseNormalMaps     bool       `toml:"normal_maps"`
	SkyColor          mgl32.Vec3 `toml:"sky_color"`
	DebugView         DebugView  `toml:"debug_view"`
}

func DefaultFrameSettings() FrameSettings {
	return FrameSettings{
		Exposure:          1.0,
		Gamma:             2.2,
		BloomFilterRadius: 0.005,
		BloomThreshold:    1.0,
		BloomStrength:     0.04,
		UseNormalMaps:     true,
		SkyColor:          mgl32.Vec3{0.02, 0.03, 0.05},
	}
}

func (f FrameSettings) Validate() error {
	if f.Exposure <= 0 {
		return fmt.Errorf("exposure must be positive, got %v", f.Exposure)
	}
	if f.Gamma <= 0 {
		return fmt.Errorf("gamma must be positive, got %v", f.Gamma)
	}
	if f.BloomFilterRadius < 0 || f.BloomStrength < 0 || f.BloomThreshold < 0 {
		return fmt.Errorf("bloom settings must not be negative")
	}
	return nil
}
