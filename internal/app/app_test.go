package app

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfansharif/tessera/internal/config"
	"github.com/irfansharif/tessera/internal/gen"
	"github.com/irfansharif/tessera/internal/geom"
	"github.com/irfansharif/tessera/internal/gpu/gputest"
	"github.com/irfansharif/tessera/internal/render"
)

func intp(v int) *int { return &v }

func newTestApp(t *testing.T) (*App, *gputest.Device) {
	t.Helper()
	dev := gputest.New()
	cfg := config.Default()
	cfg.Batching.SpriteCapacity = 16
	cfg.Batching.MeshCapacity = 64
	cfg.Culling = false
	a, err := NewApp(dev, cfg, NewView(800, 600), 1)
	require.NoError(t, err)
	t.Cleanup(func() {
		a.Close()
		assert.Equal(t, 0, dev.Live(""), "app leaks GPU handles")
	})
	return a, dev
}

func TestNewAppShaderFailure(t *testing.T) {
	dev := gputest.New()
	dev.LinkErr = errors.New("bad shader")
	_, err := NewApp(dev, config.Default(), NewView(10, 10), 1)
	assert.ErrorContains(t, err, "bad shader")
	assert.Equal(t, 0, dev.Live(""))

	dev = gputest.New()
	cfg := config.Default()
	cfg.Batching.SpriteCapacity = 0
	_, err = NewApp(dev, cfg, NewView(10, 10), 1)
	assert.Error(t, err)
}

func TestCreateClusterRegistersDrawables(t *testing.T) {
	a, dev := newTestApp(t)

	c, ok := a.CreateCluster(400, 300, intp(12))
	require.True(t, ok)
	comp := c.Composition
	wantDrawables := comp.Count(gen.Sprite) + comp.Count(gen.Tile)
	assert.Len(t, c.Drawables, wantDrawables)
	assert.Equal(t, wantDrawables, a.Pipeline.Len())
	assert.Equal(t, len(comp.Nodes), a.Graph.Len())

	a.Render()
	stats := a.Stats()
	assert.Equal(t, wantDrawables, stats.ObjectCount)
	assert.Equal(t, len(dev.Draws), stats.DrawCalls)
	assert.Greater(t, stats.DrawCalls, 1, "capacity 16 forces several sprite flushes")

	// The root sits at the requested canvas position.
	root := c.Root.WorldMatrix()
	assert.Equal(t, mgl32.Vec3{400, 300, 0}, root.Col(3).Vec3())
}

func TestDeleteClosest(t *testing.T) {
	a, _ := newTestApp(t)
	first, ok := a.CreateCluster(100, 100, intp(3))
	require.True(t, ok)
	second, ok := a.CreateCluster(700, 500, intp(3))
	require.True(t, ok)
	nodes := a.Graph.Len()

	require.True(t, a.DeleteClosest(650, 450))
	assert.Equal(t, 1, a.Clusters.Len())
	assert.False(t, second.Root != nil)
	assert.Equal(t, len(first.Drawables), a.Pipeline.Len())
	assert.Equal(t, nodes-len(second.Composition.Nodes), a.Graph.Len())

	require.True(t, a.DeleteClosest(0, 0))
	assert.False(t, a.DeleteClosest(0, 0))
	assert.Equal(t, 0, a.Pipeline.Len())
	assert.Equal(t, 0, a.Graph.Len())
}

func TestRegenerateClosest(t *testing.T) {
	a, _ := newTestApp(t)
	c, ok := a.CreateCluster(100, 100, intp(3))
	require.True(t, ok)
	before := len(c.Composition.Nodes)

	require.True(t, a.RegenerateClosest(0, 0, intp(30)))
	assert.Equal(t, 30, *c.Complexity)
	assert.Greater(t, len(c.Composition.Nodes), before)
	assert.Equal(t, len(c.Composition.Nodes), a.Graph.Len(), "old subtree is gone")
	assert.Len(t, c.Drawables, a.Pipeline.Len())
}

func TestUpdateOnlyRequests(t *testing.T) {
	a, _ := newTestApp(t)
	c, ok := a.CreateCluster(0, 0, intp(12))
	require.True(t, ok)
	require.NotEmpty(t, c.spinners)
	a.Render()

	s := c.spinners[0]
	before := s.entity.Transform().Rotation()
	a.Update(0.5)
	assert.Equal(t, before, s.entity.Transform().Rotation(), "nothing commits before the next frame")
	assert.True(t, s.entity.Transform().Dirty())

	a.Render()
	assert.False(t, s.entity.Transform().Dirty())
	assert.NotEqual(t, before, s.entity.Transform().Rotation())
}

func TestMemoryStats(t *testing.T) {
	a, _ := newTestApp(t)
	_, ok := a.CreateCluster(400, 300, intp(12))
	require.True(t, ok)
	a.Render()

	stats := a.MemoryStats()
	require.Contains(t, stats, render.KindSprite)
	require.Contains(t, stats, render.KindMesh)
	assert.Equal(t, 16, stats[render.KindSprite].Capacity)
	assert.Greater(t, stats[render.KindSprite].Flushes, int64(0))
	a.PrintMemoryStats()
}

func TestClusterManagerIteration(t *testing.T) {
	cm := NewClusterManager(0)
	assert.Nil(t, cm.Iter(true))
	a := cm.Add(&Cluster{CanvasPos: geom.MakePoint(0, 0)})
	b := cm.Add(&Cluster{CanvasPos: geom.MakePoint(10, 0)})
	c := cm.Add(&Cluster{CanvasPos: geom.MakePoint(10, 0)})

	assert.Equal(t, a, cm.Iter(true))
	assert.Equal(t, b, cm.Iter(true))
	assert.Equal(t, c, cm.Iter(true))
	assert.Equal(t, a, cm.Iter(true), "wraps")
	assert.Equal(t, c, cm.Iter(false))

	require.True(t, cm.Remove(c.ID))
	_, ok := cm.Current()
	assert.False(t, ok, "removing the selection clears it")
	assert.Equal(t, b, cm.Iter(false))
	assert.False(t, cm.Remove(c.ID))

	// Ties go to the newest cluster.
	d := cm.Add(&Cluster{CanvasPos: geom.MakePoint(10, 0)})
	assert.Equal(t, []*Cluster{d, b, a}, cm.FindClosest(geom.MakePoint(10, 1)))
	assert.Equal(t, int64(1), cm.IncrementSeed())
}
