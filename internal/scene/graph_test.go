package scene

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfansharif/tessera/internal/gpu"
	"github.com/irfansharif/tessera/internal/memory"
)

func matEqual(t *testing.T, want, got mgl32.Mat4) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], tol, "element %d", i)
	}
}

func TestGraphHierarchyComposition(t *testing.T) {
	g := NewGraph()
	root, err := g.NewNode(NoNode)
	require.NoError(t, err)
	child, err := g.NewNode(root)
	require.NoError(t, err)
	grandchild, err := g.NewNode(child)
	require.NoError(t, err)

	g.Transform(root).SetDisplacement(10, 0)
	g.Transform(root).SetRotation(math.Pi / 2)
	g.Transform(child).SetDisplacement(1, 0)
	g.Transform(child).SetScale(2, 2)
	g.Transform(grandchild).SetDisplacement(0, 3)

	mr := g.RelativeMatrix(root)
	mc := g.RelativeMatrix(child)
	mgc := g.RelativeMatrix(grandchild)

	matEqual(t, mr.Mul4(mc), g.AbsoluteMatrix(child))
	matEqual(t, mr.Mul4(mc).Mul4(mgc), g.AbsoluteMatrix(grandchild))

	// The grandchild's origin: (0,3) scaled by 2 -> (0,6), plus (1,0) -> (1,6),
	// rotated a quarter turn -> (-6,1), plus (10,0) -> (4,1).
	got := apply(g.AbsoluteMatrix(grandchild), 0, 0)
	assert.InDelta(t, 4, got.X(), tol)
	assert.InDelta(t, 1, got.Y(), tol)
}

func TestGraphCommitsAncestorsLazily(t *testing.T) {
	g := NewGraph()
	root, _ := g.NewNode(NoNode)
	child, _ := g.NewNode(root)

	g.Transform(root).Move(5, 0)
	// Nobody commits the root explicitly; resolving the child must.
	got := apply(g.AbsoluteMatrix(child), 0, 0)
	assert.InDelta(t, 5, got.X(), tol)
	assert.False(t, g.Transform(root).Dirty())
}

func TestGraphCommitsOncePerFrame(t *testing.T) {
	g := NewGraph()
	id, _ := g.NewNode(NoNode)

	g.Transform(id).Move(1, 0)
	g.Commit(id)
	g.Transform(id).Move(1, 0)
	g.Commit(id)
	assert.Equal(t, mgl32.Vec2{1, 0}, g.Transform(id).Displacement(), "second request waits for the next frame")
	assert.True(t, g.Transform(id).Dirty())

	g.BeginFrame()
	g.Commit(id)
	assert.Equal(t, mgl32.Vec2{2, 0}, g.Transform(id).Displacement())
}

func TestGraphMemoizesWithinFrame(t *testing.T) {
	g := NewGraph()
	root, _ := g.NewNode(NoNode)
	child, _ := g.NewNode(root)

	g.Transform(root).SetDisplacement(1, 0)
	first := g.AbsoluteMatrix(child)

	// A request issued mid-frame doesn't change what this frame sees.
	g.Transform(root).SetDisplacement(100, 0)
	assert.Equal(t, first, g.AbsoluteMatrix(child))

	g.BeginFrame()
	got := apply(g.AbsoluteMatrix(child), 0, 0)
	assert.InDelta(t, 100, got.X(), tol)
}

func TestGraphRemoveSubtree(t *testing.T) {
	g := NewGraph()
	root, _ := g.NewNode(NoNode)
	a, _ := g.NewNode(root)
	b, _ := g.NewNode(a)
	c, _ := g.NewNode(root)
	require.Equal(t, 4, g.Len())

	require.NoError(t, g.Remove(a))
	assert.Equal(t, 2, g.Len())
	assert.False(t, g.Contains(a))
	assert.False(t, g.Contains(b))
	assert.Equal(t, []NodeID{c}, g.Children(root))
	assert.Nil(t, g.Transform(b))
	assert.Equal(t, mgl32.Ident4(), g.AbsoluteMatrix(b))

	err := g.Remove(a)
	assert.True(t, errors.Is(err, ErrNoNode))

	// Freed ids are recycled with a fresh identity transform.
	d, err := g.NewNode(c)
	require.NoError(t, err)
	assert.True(t, d == a || d == b)
	assert.Equal(t, c, g.Parent(d))
	assert.Equal(t, mgl32.Ident4(), g.RelativeMatrix(d))
}

func TestGraphReparent(t *testing.T) {
	g := NewGraph()
	root, _ := g.NewNode(NoNode)
	a, _ := g.NewNode(root)
	b, _ := g.NewNode(a)
	other, _ := g.NewNode(NoNode)

	err := g.Reparent(a, b)
	assert.True(t, errors.Is(err, ErrCycle))
	err = g.Reparent(a, a)
	assert.True(t, errors.Is(err, ErrCycle))

	g.Transform(other).SetDisplacement(0, 7)
	require.NoError(t, g.Reparent(a, other))
	assert.Empty(t, g.Children(root))
	assert.Equal(t, []NodeID{a}, g.Children(other))

	g.BeginFrame()
	got := apply(g.AbsoluteMatrix(b), 0, 0)
	assert.InDelta(t, 7, got.Y(), tol)

	require.NoError(t, g.Reparent(a, NoNode))
	assert.Equal(t, NoNode, g.Parent(a))

	_, err = g.NewNode(NodeID(99))
	assert.True(t, errors.Is(err, ErrNoNode))
}

func TestEntity(t *testing.T) {
	g := NewGraph()
	parent, err := NewEntity(g, NoNode, "group", nil)
	require.NoError(t, err)
	el := memory.NewElement(gpu.Points).Set("aSize", memory.Floats(1, 1))
	e, err := NewEntity(g, parent.Node(), "sprite", el)
	require.NoError(t, err)

	assert.Equal(t, "sprite", e.RenderKind())
	assert.Same(t, el, e.Element())
	assert.Nil(t, parent.Element())

	parent.Transform().Move(3, 0)
	e.Transform().Move(0, 2)
	e.Commit()
	got := apply(e.WorldMatrix(), 0, 0)
	assert.InDelta(t, 3, got.X(), tol)
	assert.InDelta(t, 2, got.Y(), tol)

	require.NoError(t, g.Remove(parent.Node()))
	assert.False(t, e.Alive())
}

func TestEntityStaleAfterSlotReuse(t *testing.T) {
	g := NewGraph()
	old, err := NewEntity(g, NoNode, "sprite", nil)
	require.NoError(t, err)
	require.NoError(t, g.Remove(old.Node()))

	fresh, err := NewEntity(g, NoNode, "sprite", nil)
	require.NoError(t, err)
	require.Equal(t, old.Node(), fresh.Node(), "slot is recycled")

	assert.False(t, old.Alive())
	assert.True(t, fresh.Alive())
	assert.Nil(t, old.Transform())
	assert.Equal(t, mgl32.Ident4(), old.WorldMatrix())

	old.Commit()
	fresh.Transform().Move(4, 0)
	g.BeginFrame()
	got := apply(fresh.WorldMatrix(), 0, 0)
	assert.InDelta(t, 4, got.X(), tol)
	assert.Greater(t, g.Generation(fresh.Node()), uint32(0))
}
