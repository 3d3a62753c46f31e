package geom

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoxIntersects(t *testing.T) {
	a := MakeBox(0, 0, 10, 10)

	assert.True(t, a.Intersects(MakeBox(5, 5, 10, 10)))
	assert.True(t, a.Intersects(MakeBox(10, 10, 1, 1)), "touching corners count")
	assert.True(t, a.Intersects(MakeBox(2, 2, 1, 1)), "contained box")
	assert.False(t, a.Intersects(MakeBox(11, 0, 5, 5)))
	assert.False(t, a.Intersects(MakeBox(0, -6, 5, 5)))
}

func TestBoxUnionAndBounds(t *testing.T) {
	u := MakeBox(0, 0, 1, 1).Union(MakeBox(3, -2, 1, 1))
	assert.Equal(t, MakeBox(0, -2, 4, 3), u)

	b, ok := BoundsOf([]Point{{1, 2}, {-1, 5}, {4, 0}})
	require.True(t, ok)
	assert.Equal(t, MakeBox(-1, 0, 5, 5), b)

	_, ok = BoundsOf(nil)
	assert.False(t, ok)

	assert.True(t, MakeBox(0, 0, 0, 4).Empty())
	assert.Equal(t, MakePoint(2, 3), MakeBox(0, 0, 4, 6).Center())
}

func TestTransformBox(t *testing.T) {
	b := MakeBox(-1, -1, 2, 2)

	moved := TransformBox(mgl32.Translate3D(10, 20, 0), b)
	assert.InDelta(t, 9, moved.X, 1e-5)
	assert.InDelta(t, 19, moved.Y, 1e-5)
	assert.InDelta(t, 2, moved.W, 1e-5)

	// A 45° rotation grows the bounds to the diagonal.
	rotated := TransformBox(mgl32.HomogRotate3DZ(math.Pi/4), b)
	assert.InDelta(t, 2*math.Sqrt2, rotated.W, 1e-5)
	assert.InDelta(t, 2*math.Sqrt2, rotated.H, 1e-5)
}

func TestTriangulate(t *testing.T) {
	square := []Point{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
	tris, err := Triangulate(square)
	require.NoError(t, err)
	require.Len(t, tris, 6)

	area := 0.0
	for i := 0; i < len(tris); i += 3 {
		a, b, c := tris[i], tris[i+1], tris[i+2]
		area += math.Abs((b.X-a.X)*(c.Y-a.Y)-(c.X-a.X)*(b.Y-a.Y)) / 2
	}
	assert.InDelta(t, 1.0, area, 1e-9)

	_, err = Triangulate(square[:2])
	assert.Error(t, err)
}
