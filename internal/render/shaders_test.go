package render

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfansharif/tessera/internal/gpu"
	"github.com/irfansharif/tessera/internal/gpu/gputest"
)

func TestUniformLoadDedups(t *testing.T) {
	dev := gputest.New()
	r, err := NewSpriteRenderer(dev, 4, false)
	require.NoError(t, err)
	defer r.Close()

	view, err := UniformOf[mgl32.Mat4](r.Program(), "uView")
	require.NoError(t, err)

	vp := ViewProjection{View: mgl32.Translate3D(1, 2, 0), Projection: mgl32.Ident4()}
	for i := 0; i < 5; i++ {
		r.Render(vp)
	}
	assert.Equal(t, 1, view.Uploads(), "same value uploads once")

	vp.View = mgl32.Ident4()
	r.Render(vp)
	assert.Equal(t, 2, view.Uploads())
	assert.Equal(t, mgl32.Ident4(), view.Value())

	assert.False(t, view.Load(mgl32.Ident4()))
	assert.True(t, view.Load(mgl32.Scale3D(2, 2, 1)))
}

func TestUniformWithoutLocation(t *testing.T) {
	dev := gputest.New()
	spec := MeshProgramSpec()
	spec.Uniforms = append(spec.Uniforms, UniformSpec{Name: "missingScale", Type: UniformFloat})
	p, err := NewProgram(dev, spec)
	require.NoError(t, err)
	defer p.Close()

	u, err := UniformOf[float32](p, "missingScale")
	require.NoError(t, err)
	assert.False(t, u.Load(2))
	assert.Equal(t, float32(2), u.Value())
	assert.Equal(t, 0, u.Uploads())
}

func TestUniformOfErrors(t *testing.T) {
	dev := gputest.New()
	p, err := NewProgram(dev, SpriteProgramSpec())
	require.NoError(t, err)
	defer p.Close()

	_, err = UniformOf[float32](p, "uNope")
	assert.True(t, errors.Is(err, ErrUnknownUniform))

	_, err = UniformOf[float32](p, "uView")
	assert.True(t, errors.Is(err, ErrUniformType))

	sampler, err := UniformOf[int32](p, "uInstances")
	require.NoError(t, err)
	assert.Equal(t, int32(1), sampler.Value())
}

func TestNewProgramFailures(t *testing.T) {
	dev := gputest.New()
	dev.LinkErr = errors.New("0:12: syntax error")
	_, err := NewSpriteRenderer(dev, 4, false)
	assert.ErrorContains(t, err, "syntax error")
	assert.Equal(t, 0, dev.Live(""))

	dev = gputest.New()
	dev.ValidateErr = errors.New("samplers of different types on one unit")
	_, err = NewProgram(dev, SpriteProgramSpec())
	assert.Error(t, err)
	assert.Equal(t, 0, dev.Live("program"), "validation failure deletes the program")

	dev = gputest.New()
	spec := MeshProgramSpec()
	spec.Fragment = ""
	_, err = NewProgram(dev, spec)
	assert.Error(t, err)

	spec = MeshProgramSpec()
	spec.Uniforms = append(spec.Uniforms, UniformSpec{Name: "uTint", Type: UniformVec4})
	_, err = NewProgram(dev, spec)
	assert.Error(t, err, "duplicate uniform")
	assert.Equal(t, 0, dev.Live(""))
}

func TestRendererNeedsCameraUniforms(t *testing.T) {
	dev := gputest.New()
	spec := MeshProgramSpec()
	spec.Uniforms = spec.Uniforms[1:] // drop uView
	p, err := NewProgram(dev, spec)
	require.NoError(t, err)
	defer p.Close()

	_, err = NewRenderer(dev, p, Options{Capacity: 9, Topology: gpu.Triangles, Instanced: true})
	assert.True(t, errors.Is(err, ErrUnknownUniform))
	assert.Equal(t, 0, dev.Live("vertex-array"))
}

func TestCompatibleArrayObject(t *testing.T) {
	dev := gputest.New()
	p, err := NewProgram(dev, MeshProgramSpec())
	require.NoError(t, err)
	defer p.Close()

	ao, err := p.CreateCompatibleArrayObject(30, true, gpu.Triangles)
	require.NoError(t, err)
	defer ao.Close()

	require.Len(t, ao.Buffers(), len(p.Attributes()))
	for i, b := range ao.Buffers() {
		assert.Equal(t, p.Attributes()[i].AttribLayout, b.Attribute().AttribLayout)
	}
	assert.NotNil(t, ao.Instances())
	assert.Equal(t, 30, ao.Capacity())

	_, err = p.CreateCompatibleArrayObject(30, false, gpu.Triangles)
	assert.Error(t, err, "instance index attribute without an instance store")
}
