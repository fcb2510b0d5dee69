package opengl

import (
	"fmt"
	"strings"

	"Prism3D/internal/logger"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// Program is a linked GLSL program with cached uniform locations.
type Program struct {
	name     string
	id       uint32
	uniforms *UniformCache
}

func (p *Program) Use() { gl.UseProgram(p.id) }

func (p *Program) SetBool(name string, v bool)       { p.uniforms.SetBool(name, v) }
func (p *Program) SetInt(name string, v int32)       { p.uniforms.SetInt(name, v) }
func (p *Program) SetFloat(name string, v float32)   { p.uniforms.SetFloat(name, v) }
func (p *Program) SetVec2(name string, v mgl32.Vec2) { p.uniforms.SetVec2(name, v) }
func (p *Program) SetVec3(name string, v mgl32.Vec3) { p.uniforms.SetVec3(name, v) }
func (p *Program) SetMat4(name string, v mgl32.Mat4) { p.uniforms.SetMat4(name, v) }

func (p *Program) Delete() {
	gl.DeleteProgram(p.id)
	p.uniforms.Clear()
}

func stageName(shaderType uint32) string {
	switch shaderType {
	case gl.VERTEX_SHADER:
		return "vertex"
	case gl.GEOMETRY_SHADER:
		return "geometry"
	case gl.FRAGMENT_SHADER:
		return "fragment"
	}
	return fmt.Sprintf("stage 0x%x", shaderType)
}

// genShader compiles one stage. source must be NUL terminated.
func genShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	cSources, free := gl.Strs(source)
	gl.ShaderSource(shader, 1, cSources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("compile %s shader: %s", stageName(shaderType), strings.TrimRight(log, "\x00"))
	}
	return shader, nil
}

func genShaderProgram(shaders ...uint32) (uint32, error) {
	program := gl.CreateProgram()
	for _, s := range shaders {
		gl.AttachShader(program, s)
	}
	gl.LinkProgram(program)

	for _, s := range shaders {
		gl.DetachShader(program, s)
		gl.DeleteShader(s)
	}

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("link program: %s", strings.TrimRight(log, "\x00"))
	}
	return program, nil
}

func nulTerminated(s string) string {
	if strings.HasSuffix(s, "\x00") {
		return s
	}
	return s + "\x00"
}

func buildProgram(name, vertex, geometry, fragment string) (*Program, error) {
	stages := []struct {
		src string
		typ uint32
	}{
		{vertex, gl.VERTEX_SHADER},
		{geometry, gl.GEOMETRY_SHADER},
		{fragment, gl.FRAGMENT_SHADER},
	}

	var compiled []uint32
	for _, st := range stages {
		if st.src == "" {
			continue
		}
		s, err := genShader(nulTerminated(st.src), st.typ)
		if err != nil {
			for _, c := range compiled {
				gl.DeleteShader(c)
			}
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		compiled = append(compiled, s)
	}

	id, err := genShaderProgram(compiled...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	logger.Log.Debug("Shader program linked", zap.String("name", name), zap.Uint32("program", id))
	return &Program{name: name, id: id, uniforms: NewUniformCache(id)}, nil
}
