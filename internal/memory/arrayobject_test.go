package memory

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfansharif/tessera/internal/gpu"
	"github.com/irfansharif/tessera/internal/gpu/gputest"
)

func spriteAttributes() []Attribute {
	white := Floats(1, 1, 1, 1)
	return []Attribute{
		{AttribLayout: gpu.AttribLayout{Location: 0, Name: "aSize", Arity: 2, Type: gpu.Float}},
		{AttribLayout: gpu.AttribLayout{Location: 1, Name: "aColor", Arity: 4, Type: gpu.Float}, Default: &white},
	}
}

func meshAttributes() []Attribute {
	return []Attribute{
		{AttribLayout: gpu.AttribLayout{Location: 0, Name: "aPos", Arity: 2, Type: gpu.Float}},
		{AttribLayout: gpu.AttribLayout{Location: 1, Name: "aColor", Arity: 4, Type: gpu.Float}},
		{AttribLayout: gpu.AttribLayout{Location: 2, Name: "aInstance", Arity: 1, Type: gpu.Int}, Source: FromInstanceIndex},
	}
}

func sprite(w, h float32) *Element {
	return NewElement(gpu.Points).Set("aSize", Floats(w, h))
}

func triangle(color [4]float32) *Element {
	el := NewElement(gpu.Triangles)
	el.Vertices = 3
	return el.Set("aPos", Floats(0, 0, 1, 0, 0, 1)).Set("aColor", Color(color))
}

type snapshot struct {
	floats    [][]float32
	ints      [][]int32
	instances []float32
	count     int
}

func snap(ao *ArrayObject) snapshot {
	s := snapshot{count: ao.Count()}
	for _, b := range ao.Buffers() {
		s.floats = append(s.floats, b.Floats())
		s.ints = append(s.ints, b.Ints())
	}
	if ao.Instances() != nil {
		s.instances = ao.Instances().Data()
	}
	return s
}

func TestArrayObjectCapacity(t *testing.T) {
	dev := gputest.New()
	ao, err := NewArrayObject(dev, "sprites", gpu.Points, 3, spriteAttributes(), true)
	require.NoError(t, err)
	defer ao.Close()

	for i := 0; i < 3; i++ {
		ok, err := ao.TryBatch(sprite(float32(i), 1), nil)
		require.NoError(t, err)
		require.True(t, ok)
		assert.LessOrEqual(t, ao.Count(), ao.Capacity())
	}

	before := snap(ao)
	m := mgl32.Translate3D(1, 2, 0)
	ok, err := ao.TryBatch(sprite(9, 9), &m)
	require.NoError(t, err)
	assert.False(t, ok, "batch beyond capacity must fail")
	assert.Equal(t, before, snap(ao), "failed batch must not touch any buffer")
	assert.Equal(t, 3, ao.Count())
}

func TestArrayObjectFlushResets(t *testing.T) {
	dev := gputest.New()
	ao, err := NewArrayObject(dev, "sprites", gpu.Points, 2, spriteAttributes(), true)
	require.NoError(t, err)
	defer ao.Close()

	for i := 0; i < 2; i++ {
		ok, err := ao.TryBatch(sprite(1, 1), nil)
		require.NoError(t, err)
		require.True(t, ok)
	}
	ok, _ := ao.TryBatch(sprite(1, 1), nil)
	require.False(t, ok)

	assert.Equal(t, 2, ao.Flush())
	assert.Equal(t, 0, ao.Count())
	require.Len(t, dev.Draws, 1)
	assert.Equal(t, gpu.Points, dev.Draws[0].Topology)
	assert.Equal(t, 2, dev.Draws[0].Count)
	for _, b := range ao.Buffers() {
		assert.Equal(t, 0, b.Len())
	}

	ok, err = ao.TryBatch(sprite(1, 1), nil)
	require.NoError(t, err)
	assert.True(t, ok, "batch after flush must succeed")

	// Empty flushes don't draw.
	ao.Flush()
	assert.Equal(t, 0, ao.Flush())
	assert.Len(t, dev.Draws, 2)
}

func TestArrayObjectStagesPayloadsAndTransforms(t *testing.T) {
	dev := gputest.New()
	ao, err := NewArrayObject(dev, "sprites", gpu.Points, 4, spriteAttributes(), true)
	require.NoError(t, err)
	defer ao.Close()

	m := mgl32.Translate3D(5, 6, 0)
	ok, err := ao.TryBatch(sprite(2, 3).Set("aColor", Floats(1, 0, 0, 1)), &m)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = ao.TryBatch(sprite(4, 5), nil)
	require.NoError(t, err)
	require.True(t, ok)

	size, color := ao.Buffers()[0], ao.Buffers()[1]
	assert.Equal(t, []float32{2, 3, 4, 5}, size.Floats())
	assert.Equal(t, []float32{1, 0, 0, 1, 1, 1, 1, 1}, color.Floats(), "missing payload falls back to the default")

	ident := mgl32.Ident4()
	assert.Equal(t, append(m[:], ident[:]...), ao.Instances().Data())

	ao.Flush()
	assert.Equal(t, []float32{2, 3, 4, 5}, dev.Floats[size.vbo])
	assert.Len(t, dev.Floats[ao.Instances().buffer], 2*InstanceStride)
}

func TestArrayObjectTrianglesCountVertices(t *testing.T) {
	dev := gputest.New()
	ao, err := NewArrayObject(dev, "mesh", gpu.Triangles, 7, meshAttributes(), true)
	require.NoError(t, err)
	defer ao.Close()

	red := [4]float32{1, 0, 0, 1}
	for i := 0; i < 2; i++ {
		ok, err := ao.TryBatch(triangle(red), nil)
		require.NoError(t, err)
		require.True(t, ok)
	}
	assert.Equal(t, 6, ao.Count())

	ok, err := ao.TryBatch(triangle(red), nil)
	require.NoError(t, err)
	assert.False(t, ok, "capacity is tracked in vertices")

	pos, col, inst := ao.Buffers()[0], ao.Buffers()[1], ao.Buffers()[2]
	assert.Equal(t, 6, pos.Len())
	assert.Equal(t, 6, col.Len(), "shared color is repeated per vertex")
	assert.Equal(t, []int32{0, 0, 0, 1, 1, 1}, inst.Ints())
	assert.Equal(t, 2, ao.Instances().Len(), "one instance record per drawable")

	ao.Flush()
	require.Len(t, dev.Draws, 1)
	assert.Equal(t, gpu.Triangles, dev.Draws[0].Topology)
	assert.Equal(t, 6, dev.Draws[0].Count)
}

func TestArrayObjectRejectsBadPayloads(t *testing.T) {
	dev := gputest.New()
	ao, err := NewArrayObject(dev, "sprites", gpu.Points, 4, spriteAttributes(), true)
	require.NoError(t, err)
	defer ao.Close()

	_, err = ao.TryBatch(NewElement(gpu.Points).Set("aSize", Floats(1, 2, 3)), nil)
	assert.True(t, errors.Is(err, ErrPayloadMismatch))

	_, err = ao.TryBatch(NewElement(gpu.Points).Set("aSize", Ints(1, 2)), nil)
	assert.True(t, errors.Is(err, ErrPayloadMismatch))

	_, err = ao.TryBatch(NewElement(gpu.Points).Set("aColor", Floats(1, 1, 1, 1)), nil)
	assert.True(t, errors.Is(err, ErrPayloadMismatch), "aSize has no default")

	_, err = ao.TryBatch(triangle([4]float32{}), nil)
	assert.Error(t, err, "topology mismatch")

	assert.Equal(t, 0, ao.Count())
	assert.Equal(t, 0, ao.Instances().Len())
}

func TestNewArrayObjectValidation(t *testing.T) {
	dev := gputest.New()

	_, err := NewArrayObject(dev, "x", gpu.Points, 0, spriteAttributes(), false)
	assert.Error(t, err)

	dup := spriteAttributes()
	dup[1].Location = 0
	_, err = NewArrayObject(dev, "x", gpu.Points, 4, dup, false)
	assert.Error(t, err)

	_, err = NewArrayObject(dev, "x", gpu.Triangles, 6, meshAttributes(), false)
	assert.Error(t, err, "instance index attribute needs an instance store")

	assert.Equal(t, 0, dev.Live(""), "failed construction leaks nothing")
}

func TestArrayObjectCloseReleasesEverything(t *testing.T) {
	dev := gputest.New()
	ao, err := NewArrayObject(dev, "mesh", gpu.Triangles, 30, meshAttributes(), true)
	require.NoError(t, err)
	assert.Equal(t, 1, dev.Live("vertex-array"))
	assert.Equal(t, 4, dev.Live("buffer"))
	assert.Equal(t, 1, dev.Live("texture"))
	assert.Equal(t, int64(30*(2+4+1)*4+30*InstanceStride*4), ao.Stats().GPUBytes)

	ao.Close()
	ao.Close()
	assert.Equal(t, 0, dev.Live(""))
}

func TestArrayObjectStats(t *testing.T) {
	dev := gputest.New()
	ao, err := NewArrayObject(dev, "sprites", gpu.Points, 4, spriteAttributes(), false)
	require.NoError(t, err)
	defer ao.Close()

	for i := 0; i < 3; i++ {
		_, err := ao.TryBatch(sprite(1, 1), nil)
		require.NoError(t, err)
	}
	ao.Flush()
	_, err = ao.TryBatch(sprite(1, 1), nil)
	require.NoError(t, err)
	ao.Flush()

	s := ao.Stats()
	assert.Equal(t, int64(4), s.Batched)
	assert.Equal(t, int64(2), s.Flushes)
	assert.Equal(t, int64(4), s.RecordsDrawn)
	assert.InDelta(t, 0.75, s.PeakUtilization, 1e-9)
	assert.InDelta(t, 0.25, s.LastUtilization, 1e-9)
	ao.PrintStats()
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "999", formatNumber(999))
	assert.Equal(t, "1.5K", formatNumber(1500))
	assert.Equal(t, "2.0M", formatNumber(2000000))
	assert.Equal(t, "██░░", makeUtilizationBar(0.5, 4))
	assert.Equal(t, "████", makeUtilizationBar(3, 4))
}
