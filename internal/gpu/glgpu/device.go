// Package glgpu implements gpu.Device on top of OpenGL 4.1 core.
package glgpu

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/irfansharif/tessera/internal/gpu"
)

// Device issues OpenGL calls. gl.Init must have run on the current thread.
type Device struct{}

var _ gpu.Device = (*Device)(nil)

// NewDevice returns a device bound to the current OpenGL context. It enables
// alpha blending, which every program here relies on.
func NewDevice() *Device {
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	return &Device{}
}

func stageType(s gpu.ShaderStage) uint32 {
	switch s {
	case gpu.GeometryStage:
		return gl.GEOMETRY_SHADER
	case gpu.FragmentStage:
		return gl.FRAGMENT_SHADER
	default:
		return gl.VERTEX_SHADER
	}
}

func topologyMode(t gpu.Topology) uint32 {
	if t == gpu.Points {
		return gl.POINTS
	}
	return gl.TRIANGLES
}

func elementType(e gpu.ElementType) uint32 {
	if e == gpu.Int {
		return gl.INT
	}
	return gl.FLOAT
}

// LinkProgram compiles, attaches, binds attribute locations and links a
// program.
func (d *Device) LinkProgram(name string, stages []gpu.ShaderSource, attribs []gpu.AttribLayout) (uint32, error) {
	shaders := make([]uint32, 0, len(stages))
	defer func() {
		for _, sh := range shaders {
			gl.DeleteShader(sh)
		}
	}()

	for _, stage := range stages {
		sh, err := compileShader(stage.Source, stageType(stage.Stage))
		if err != nil {
			return 0, fmt.Errorf("program %q: %s stage: %w", name, stage.Stage, err)
		}
		shaders = append(shaders, sh)
	}

	program := gl.CreateProgram()
	for _, sh := range shaders {
		gl.AttachShader(program, sh)
	}
	for _, a := range attribs {
		gl.BindAttribLocation(program, a.Location, gl.Str(a.Name+"\x00"))
	}
	gl.LinkProgram(program)

	if ok, info := programStatus(program, gl.LINK_STATUS); !ok {
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("program %q: linking failed: %s", name, info)
	}

	for _, sh := range shaders {
		gl.DetachShader(program, sh)
	}
	return program, nil
}

// ValidateProgram runs glValidateProgram with a scratch vertex array bound,
// which core profiles require.
func (d *Device) ValidateProgram(program uint32) error {
	var vao uint32
	gl.GenVertexArrays(1, &vao)
	gl.BindVertexArray(vao)
	gl.ValidateProgram(program)
	ok, info := programStatus(program, gl.VALIDATE_STATUS)
	gl.BindVertexArray(0)
	gl.DeleteVertexArrays(1, &vao)
	if !ok {
		return fmt.Errorf("validation failed: %s", info)
	}
	return nil
}

// compileShader compiles a single shader from source.
func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csource, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csource, nil)
	free()
	gl.CompileShader(shader)

	// Check compilation status.
	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		logText := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(logText))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("compilation failed: %s", strings.TrimRight(logText, "\x00"))
	}
	return shader, nil
}

func programStatus(program uint32, pname uint32) (bool, string) {
	var status int32
	gl.GetProgramiv(program, pname, &status)
	if status != gl.FALSE {
		return true, ""
	}
	var logLength int32
	gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
	logText := strings.Repeat("\x00", int(logLength+1))
	gl.GetProgramInfoLog(program, logLength, nil, gl.Str(logText))
	return false, strings.TrimRight(logText, "\x00")
}

func (d *Device) UseProgram(program uint32) { gl.UseProgram(program) }

func (d *Device) DeleteProgram(program uint32) { gl.DeleteProgram(program) }

func (d *Device) UniformLocation(program uint32, name string) int32 {
	return gl.GetUniformLocation(program, gl.Str(name+"\x00"))
}

func (d *Device) Uniform1f(location int32, v float32) { gl.Uniform1f(location, v) }
func (d *Device) Uniform1i(location int32, v int32)   { gl.Uniform1i(location, v) }

func (d *Device) Uniform2f(location int32, v [2]float32) { gl.Uniform2f(location, v[0], v[1]) }

func (d *Device) Uniform4f(location int32, v [4]float32) {
	gl.Uniform4f(location, v[0], v[1], v[2], v[3])
}

func (d *Device) UniformMatrix4(location int32, m [16]float32) {
	gl.UniformMatrix4fv(location, 1, false, &m[0])
}

func (d *Device) NewVertexArray() uint32 {
	var vao uint32
	gl.GenVertexArrays(1, &vao)
	return vao
}

func (d *Device) BindVertexArray(vao uint32) { gl.BindVertexArray(vao) }

func (d *Device) DeleteVertexArray(vao uint32) { gl.DeleteVertexArrays(1, &vao) }

// NewAttributeBuffer allocates the full capacity up front; flushes only ever
// use sub-data uploads into it.
func (d *Device) NewAttributeBuffer(vao uint32, layout gpu.AttribLayout, capacity int) uint32 {
	var vbo uint32
	gl.GenBuffers(1, &vbo)

	gl.BindVertexArray(vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	gl.BufferData(gl.ARRAY_BUFFER, capacity*layout.Arity*4, nil, gl.DYNAMIC_DRAW)

	gl.EnableVertexAttribArray(layout.Location)
	stride := int32(layout.Arity * 4)
	if layout.Type == gpu.Int {
		gl.VertexAttribIPointer(layout.Location, int32(layout.Arity), elementType(layout.Type), stride, gl.PtrOffset(0))
	} else {
		gl.VertexAttribPointer(layout.Location, int32(layout.Arity), elementType(layout.Type), false, stride, gl.PtrOffset(0))
	}

	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)
	return vbo
}

func (d *Device) NewInstanceBuffer(floats int) (uint32, uint32) {
	var buf, tex uint32
	gl.GenBuffers(1, &buf)
	gl.BindBuffer(gl.TEXTURE_BUFFER, buf)
	gl.BufferData(gl.TEXTURE_BUFFER, floats*4, nil, gl.DYNAMIC_DRAW)

	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_BUFFER, tex)
	gl.TexBuffer(gl.TEXTURE_BUFFER, gl.RGBA32F, buf)

	gl.BindTexture(gl.TEXTURE_BUFFER, 0)
	gl.BindBuffer(gl.TEXTURE_BUFFER, 0)
	return buf, tex
}

func (d *Device) UploadFloats(buffer uint32, data []float32) {
	if len(data) == 0 {
		return
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, buffer)
	gl.BufferSubData(gl.ARRAY_BUFFER, 0, len(data)*4, gl.Ptr(data))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
}

func (d *Device) UploadInts(buffer uint32, data []int32) {
	if len(data) == 0 {
		return
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, buffer)
	gl.BufferSubData(gl.ARRAY_BUFFER, 0, len(data)*4, gl.Ptr(data))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
}

func (d *Device) DeleteBuffer(buffer uint32) { gl.DeleteBuffers(1, &buffer) }

func (d *Device) NewTexture(width, height int, rgba []uint8) gpu.TextureID {
	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(width), int32(height), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(rgba))
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return gpu.TextureID(tex)
}

func (d *Device) BindTexture(unit uint32, texture gpu.TextureID) {
	gl.ActiveTexture(gl.TEXTURE0 + unit)
	gl.BindTexture(gl.TEXTURE_2D, uint32(texture))
}

func (d *Device) BindInstanceTexture(unit uint32, texture uint32) {
	gl.ActiveTexture(gl.TEXTURE0 + unit)
	gl.BindTexture(gl.TEXTURE_BUFFER, texture)
}

func (d *Device) DeleteTexture(texture gpu.TextureID) {
	tex := uint32(texture)
	gl.DeleteTextures(1, &tex)
}

func (d *Device) DeleteInstanceTexture(texture uint32) { gl.DeleteTextures(1, &texture) }

func (d *Device) DrawArrays(topology gpu.Topology, first, count int) {
	gl.DrawArrays(topologyMode(topology), int32(first), int32(count))
}
