package render

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/irfansharif/tessera/internal/gpu"
	"github.com/irfansharif/tessera/internal/memory"
)

var (
	// ErrUnknownUniform is returned when looking up a uniform the program
	// didn't declare.
	ErrUnknownUniform = errors.New("unknown uniform")
	// ErrUniformType is returned when a uniform is looked up with a Go type
	// other than the one it was declared with.
	ErrUniformType = errors.New("uniform type mismatch")
)

// UniformType is the declared type of a uniform.
type UniformType int

const (
	UniformFloat UniformType = iota
	UniformInt
	UniformBool
	UniformVec2
	UniformVec4
	UniformMat4
)

func (t UniformType) String() string {
	switch t {
	case UniformFloat:
		return "float"
	case UniformInt:
		return "int"
	case UniformBool:
		return "bool"
	case UniformVec2:
		return "vec2"
	case UniformVec4:
		return "vec4"
	case UniformMat4:
		return "mat4"
	default:
		return "unknown"
	}
}

// UniformSpec declares a uniform.
type UniformSpec struct {
	Name string
	Type UniformType
}

// Sampler assigns a sampler uniform to a texture unit.
type Sampler struct {
	Name string
	Unit int32
}

// ProgramSpec is everything needed to build a Program. Sources are raw text;
// loading them is the caller's concern.
type ProgramSpec struct {
	Name     string
	Vertex   string
	Geometry string // optional
	Fragment string

	// Attributes are bound to their fixed locations before linking and are
	// the layout of every array object created from the program.
	Attributes []memory.Attribute
	Uniforms   []UniformSpec
	Samplers   []Sampler
}

// Program is a linked shader program with its attribute layout and typed
// uniform slots.
type Program struct {
	name       string
	dev        gpu.Device
	handle     uint32
	attributes []memory.Attribute
	uniforms   map[string]uniformSlot
}

// NewProgram compiles, links and validates the program described by spec.
// Any failure leaves nothing allocated; callers treat it as fatal.
func NewProgram(dev gpu.Device, spec ProgramSpec) (_ *Program, err error) {
	if spec.Vertex == "" || spec.Fragment == "" {
		return nil, fmt.Errorf("program %q: vertex and fragment sources are required", spec.Name)
	}
	layouts := make([]gpu.AttribLayout, len(spec.Attributes))
	for i, attr := range spec.Attributes {
		if err := attr.Validate(); err != nil {
			return nil, fmt.Errorf("program %q: %w", spec.Name, err)
		}
		layouts[i] = attr.AttribLayout
	}

	stages := []gpu.ShaderSource{{Stage: gpu.VertexStage, Source: spec.Vertex}}
	if spec.Geometry != "" {
		stages = append(stages, gpu.ShaderSource{Stage: gpu.GeometryStage, Source: spec.Geometry})
	}
	stages = append(stages, gpu.ShaderSource{Stage: gpu.FragmentStage, Source: spec.Fragment})

	handle, err := dev.LinkProgram(spec.Name, stages, layouts)
	if err != nil {
		return nil, err
	}
	p := &Program{
		name:       spec.Name,
		dev:        dev,
		handle:     handle,
		attributes: append([]memory.Attribute(nil), spec.Attributes...),
		uniforms:   make(map[string]uniformSlot, len(spec.Uniforms)+len(spec.Samplers)),
	}
	defer func() {
		if err != nil {
			p.Close()
		}
	}()

	for _, u := range spec.Uniforms {
		if _, ok := p.uniforms[u.Name]; ok {
			return nil, fmt.Errorf("program %q: uniform %s declared twice", spec.Name, u.Name)
		}
		slot, err := p.newSlot(u)
		if err != nil {
			return nil, err
		}
		p.uniforms[u.Name] = slot
	}

	// Samplers have to point at distinct units before validation, otherwise
	// a sampler2D and a samplerBuffer both sit on unit 0.
	p.Bind()
	for _, s := range spec.Samplers {
		u := newUniform[int32](p, s.Name)
		u.Load(s.Unit)
		p.uniforms[s.Name] = u
	}
	if err := dev.ValidateProgram(handle); err != nil {
		return nil, fmt.Errorf("program %q: %w", spec.Name, err)
	}

	renderLogger.Printf("linked program %q: %d stages, %d attributes, %d uniforms",
		spec.Name, len(stages), len(p.attributes), len(p.uniforms))
	return p, nil
}

func (p *Program) newSlot(u UniformSpec) (uniformSlot, error) {
	switch u.Type {
	case UniformFloat:
		return newUniform[float32](p, u.Name), nil
	case UniformInt:
		return newUniform[int32](p, u.Name), nil
	case UniformBool:
		return newUniform[bool](p, u.Name), nil
	case UniformVec2:
		return newUniform[mgl32.Vec2](p, u.Name), nil
	case UniformVec4:
		return newUniform[mgl32.Vec4](p, u.Name), nil
	case UniformMat4:
		return newUniform[mgl32.Mat4](p, u.Name), nil
	default:
		return nil, fmt.Errorf("program %q: uniform %s has unknown type %d", p.name, u.Name, u.Type)
	}
}

// Name returns the program's name.
func (p *Program) Name() string { return p.name }

// Handle returns the linked program handle.
func (p *Program) Handle() uint32 { return p.handle }

// Attributes returns the program's attribute layout.
func (p *Program) Attributes() []memory.Attribute { return p.attributes }

// Bind makes the program current.
func (p *Program) Bind() { p.dev.UseProgram(p.handle) }

// CreateCompatibleArrayObject allocates an array object laid out exactly as
// the program's attributes, so the two can't drift apart.
func (p *Program) CreateCompatibleArrayObject(
	capacity int, instanced bool, topology gpu.Topology,
) (*memory.ArrayObject, error) {
	return memory.NewArrayObject(p.dev, p.name, topology, capacity, p.attributes, instanced)
}

// Close deletes the program. It's safe to call more than once.
func (p *Program) Close() {
	if p.handle == 0 {
		return
	}
	p.dev.DeleteProgram(p.handle)
	p.handle = 0
}

// UniformOf returns the typed slot for a declared uniform. T must match the
// declared type: float32, int32, bool, mgl32.Vec2, mgl32.Vec4 or mgl32.Mat4.
func UniformOf[T UniformValue](p *Program, name string) (*Uniform[T], error) {
	slot, ok := p.uniforms[name]
	if !ok {
		return nil, fmt.Errorf("program %q: %s: %w", p.name, name, ErrUnknownUniform)
	}
	u, ok := slot.(*Uniform[T])
	if !ok {
		var zero T
		return nil, fmt.Errorf("program %q: %s is %s, not %T: %w", p.name, name, slot.kind(), zero, ErrUniformType)
	}
	return u, nil
}

// UniformValue is the set of Go types a uniform can hold.
type UniformValue interface {
	float32 | int32 | bool | mgl32.Vec2 | mgl32.Vec4 | mgl32.Mat4
}

type uniformSlot interface {
	kind() string
}

// Uniform is a typed uniform slot that remembers the last value it uploaded.
type Uniform[T UniformValue] struct {
	dev      gpu.Device
	name     string
	location int32
	value    T
	loaded   bool
	uploads  int
}

func newUniform[T UniformValue](p *Program, name string) *Uniform[T] {
	loc := p.dev.UniformLocation(p.handle, name)
	if loc < 0 {
		// Unused uniforms get optimized out by the driver; loads become
		// no-ops.
		renderLogger.Printf("program %q: uniform %s has no location", p.name, name)
	}
	return &Uniform[T]{dev: p.dev, name: name, location: loc}
}

func (u *Uniform[T]) kind() string {
	var zero T
	return fmt.Sprintf("%T", zero)
}

// Name returns the uniform's name.
func (u *Uniform[T]) Name() string { return u.name }

// Value returns the last loaded value.
func (u *Uniform[T]) Value() T { return u.value }

// Uploads returns how many times the uniform was actually uploaded.
func (u *Uniform[T]) Uploads() int { return u.uploads }

// Load uploads v unless it equals the cached value. Its program must be
// bound. It reports whether an upload happened.
func (u *Uniform[T]) Load(v T) bool {
	if u.loaded && u.value == v {
		return false
	}
	u.value, u.loaded = v, true
	if u.location < 0 {
		return false
	}
	switch x := any(v).(type) {
	case float32:
		u.dev.Uniform1f(u.location, x)
	case int32:
		u.dev.Uniform1i(u.location, x)
	case bool:
		var i int32
		if x {
			i = 1
		}
		u.dev.Uniform1i(u.location, i)
	case mgl32.Vec2:
		u.dev.Uniform2f(u.location, x)
	case mgl32.Vec4:
		u.dev.Uniform4f(u.location, x)
	case mgl32.Mat4:
		u.dev.UniformMatrix4(u.location, x)
	}
	u.uploads++
	return true
}
