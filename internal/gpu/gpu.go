// Package gpu describes the narrow set of GPU operations the batching core
// needs. The OpenGL implementation lives in gpu/glgpu; gpu/gputest provides a
// recording device for tests.
//
// All calls are expected on the thread that owns the GPU context.
package gpu

import "fmt"

// Topology is the primitive type an array object draws.
type Topology int

const (
	// Points draws one vertex per drawable; a geometry stage expands each
	// point into a quad.
	Points Topology = iota
	// Triangles draws explicit triangle lists, three vertices per triangle.
	Triangles
)

func (t Topology) String() string {
	switch t {
	case Points:
		return "points"
	case Triangles:
		return "triangles"
	default:
		return "unknown"
	}
}

// ElementType is the scalar type of a vertex attribute.
type ElementType int

const (
	Float ElementType = iota
	Int
)

func (e ElementType) String() string {
	switch e {
	case Float:
		return "float"
	case Int:
		return "int"
	default:
		return "unknown"
	}
}

// ShaderStage identifies a programmable pipeline stage.
type ShaderStage int

const (
	VertexStage ShaderStage = iota
	GeometryStage
	FragmentStage
)

func (s ShaderStage) String() string {
	switch s {
	case VertexStage:
		return "vertex"
	case GeometryStage:
		return "geometry"
	case FragmentStage:
		return "fragment"
	default:
		return "unknown"
	}
}

// ShaderSource is raw source text for one stage. Loading it from disk is the
// caller's business.
type ShaderSource struct {
	Stage  ShaderStage
	Source string
}

// AttribLayout describes one vertex attribute as the shader declares it.
type AttribLayout struct {
	Location uint32
	Name     string
	Arity    int // components per vertex, 1..4
	Type     ElementType
}

func (a AttribLayout) String() string {
	return fmt.Sprintf("%s@%d(%s×%d)", a.Name, a.Location, a.Type, a.Arity)
}

// TextureID is a texture handle. The zero value means "no texture".
type TextureID uint32

// NoTexture groups untextured drawables.
const NoTexture TextureID = 0

// Device is the GPU seam. Handles are opaque uint32 names; zero is never a
// valid handle.
type Device interface {
	// LinkProgram compiles every stage, binds each attribute to its fixed
	// location and links. Any failure is returned with the driver's info log.
	LinkProgram(name string, stages []ShaderSource, attribs []AttribLayout) (uint32, error)
	// ValidateProgram checks the program against the current state; sampler
	// units must be assigned first.
	ValidateProgram(program uint32) error
	UseProgram(program uint32)
	DeleteProgram(program uint32)
	UniformLocation(program uint32, name string) int32

	Uniform1f(location int32, v float32)
	Uniform1i(location int32, v int32)
	Uniform2f(location int32, v [2]float32)
	Uniform4f(location int32, v [4]float32)
	UniformMatrix4(location int32, m [16]float32)

	NewVertexArray() uint32
	BindVertexArray(vao uint32)
	DeleteVertexArray(vao uint32)

	// NewAttributeBuffer allocates a buffer holding capacity elements of
	// the given layout and wires it to the layout's location in vao.
	NewAttributeBuffer(vao uint32, layout AttribLayout, capacity int) uint32
	// NewInstanceBuffer allocates a buffer of floats exposed to shaders as
	// an RGBA32F texture buffer. It returns the buffer and its texture.
	NewInstanceBuffer(floats int) (buffer uint32, texture uint32)
	UploadFloats(buffer uint32, data []float32)
	UploadInts(buffer uint32, data []int32)
	DeleteBuffer(buffer uint32)

	NewTexture(width, height int, rgba []uint8) TextureID
	BindTexture(unit uint32, texture TextureID)
	BindInstanceTexture(unit uint32, texture uint32)
	DeleteTexture(texture TextureID)
	DeleteInstanceTexture(texture uint32)

	DrawArrays(topology Topology, first, count int)
}
