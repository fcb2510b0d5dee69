package renderer

import (
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelinePresets(t *testing.T) {
	def, err := PipelinePreset("", 1280, 720)
	require.NoError(t, err)
	assert.Equal(t, DefaultPipelineConfig(1280, 720), def)

	high, err := PipelinePreset("High", 1280, 720)
	require.NoError(t, err)
	assert.Greater(t, high.DirShadowSize, def.DirShadowSize)
	assert.Greater(t, high.BloomMips, def.BloomMips)

	perf, err := PipelinePreset("performance", 1280, 720)
	require.NoError(t, err)
	assert.Less(t, perf.SSAO.KernelSize, def.SSAO.KernelSize)

	_, err = PipelinePreset("ultra", 1280, 720)
	assert.Error(t, err)

	for _, cfg := range []PipelineConfig{def, high, perf} {
		assert.NoError(t, cfg.Validate())
	}
}

func TestPipelineConfigValidate(t *testing.T) {
	cases := map[string]func(*PipelineConfig){
		"zero width":     func(c *PipelineConfig) { c.Width = 0 },
		"no bloom":       func(c *PipelineConfig) { c.BloomMips = 0 },
		"no shadow size": func(c *PipelineConfig) { c.PointShadowSize = 0 },
		"kernel too big": func(c *PipelineConfig) { c.SSAO.KernelSize = MaxSSAOKernelSize + 1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultPipelineConfig(800, 600)
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestFrameSettingsValidate(t *testing.T) {
	fs := DefaultFrameSettings()
	require.NoError(t, fs.Validate())

	fs.Gamma = 0
	assert.Error(t, fs.Validate())

	fs = DefaultFrameSettings()
	fs.BloomStrength = -1
	assert.Error(t, fs.Validate())
}

func TestDebugViewCycle(t *testing.T) {
	v := DebugNone
	seen := map[DebugView]bool{}
	for i := 0; i < len(debugViewNames); i++ {
		seen[v] = true
		v = v.Next()
	}
	assert.Equal(t, DebugNone, v)
	assert.Len(t, seen, len(debugViewNames))
	assert.Equal(t, "DebugView(42)", DebugView(42).String())
}

func TestFrameSettingsTOML(t *testing.T) {
	var fs FrameSettings
	err := toml.Unmarshal([]byte(`
exposure = 1.5
gamma = 2.2
bloom_strength = 0.1
normal_maps = false
sky_color = [0.1, 0.2, 0.3]
debug_view = "gnormal"
`), &fs)
	require.NoError(t, err)

	assert.Equal(t, float32(1.5), fs.Exposure)
	assert.False(t, fs.UseNormalMaps)
	assert.Equal(t, DebugNormal, fs.DebugView)
	assert.InDelta(t, 0.3, fs.SkyColor.Z(), 1e-6)

	err = toml.Unmarshal([]byte(`debug_view = "wireframe"`), &fs)
	assert.Error(t, err)
}
