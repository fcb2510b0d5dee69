package renderer

import (
	"strconv"
	"strings"
	"text/template"
)

// filterTap is one weighted sample of a bloom filter kernel. Offsets are
// in source texels for the downsample and in filter-radius units for the
// upsample.
type filterTap struct {
	X, Y   float32
	Weight float32
}

// downsampleTaps is the 13-tap box filter from Jimenez, "Next Generation
// Post Processing in Call of Duty: Advanced Warfare": four overlapping 2x2
// boxes around the centre weighted 0.5 and four corner boxes plus the
// centre box weighted 0.125 each.
var downsampleTaps = []filterTap{
	{0, 0, 0.125},

	{-2, 2, 0.03125}, {2, 2, 0.03125}, {-2, -2, 0.03125}, {2, -2, 0.03125},

	{0, 2, 0.0625}, {-2, 0, 0.0625}, {2, 0, 0.0625}, {0, -2, 0.0625},

	{-1, 1, 0.125}, {1, 1, 0.125}, {-1, -1, 0.125}, {1, -1, 0.125},
}

// upsampleTaps is a 3x3 tent filter.
var upsampleTaps = []filterTap{
	{-1, 1, 1.0 / 16}, {0, 1, 2.0 / 16}, {1, 1, 1.0 / 16},
	{-1, 0, 2.0 / 16}, {0, 0, 4.0 / 16}, {1, 0, 2.0 / 16},
	{-1, -1, 1.0 / 16}, {0, -1, 2.0 / 16}, {1, -1, 1.0 / 16},
}

func kernelWeight(taps []filterTap) float32 {
	var sum float32
	for _, t := range taps {
		sum += t.Weight
	}
	return sum
}

func glslFloat(v float32) string {
	s := strconv.FormatFloat(float64(v), 'f', -1, 32)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

var bloomFilterTemplate = template.Must(template.New("bloom").Funcs(template.FuncMap{"f": glslFloat}).Parse(`#version 410 core
in vec2 TexCoords;
layout (location = 0) out vec3 result;

uniform sampler2D srcTexture;
{{.Uniform}}

void main()
{
    vec2 texel = {{.Step}};
    result = vec3(0.0);
{{- range .Taps}}
    result += texture(srcTexture, TexCoords + vec2({{f .X}}, {{f .Y}}) * texel).rgb * {{f .Weight}};
{{- end}}
}
`))

func renderFilterShader(uniform, step string, taps []filterTap) string {
	var b strings.Builder
	err := bloomFilterTemplate.Execute(&b, struct {
		Uniform string
		Step    string
		Taps    []filterTap
	}{uniform, step, taps})
	if err != nil {
		panic(err)
	}
	return b.String()
}

// bloomDownsampleFragment samples the previous level; srcResolution is that
// level's size.
func bloomDownsampleFragment() string {
	return renderFilterShader("uniform vec2 srcResolution;", "1.0 / srcResolution", downsampleTaps)
}

func bloomUpsampleFragment() string {
	return renderFilterShader("uniform float filterRadius;", "vec2(filterRadius)", upsampleTaps)
}
