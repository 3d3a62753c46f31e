package gen

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfansharif/tessera/internal/geom"
)

func intp(v int) *int { return &v }

func TestGenerateIsDeterministic(t *testing.T) {
	for _, complexity := range []*int{nil, intp(1), intp(25)} {
		a := NewGenerator().Generate(11, complexity)
		b := NewGenerator().Generate(11, complexity)
		assert.Equal(t, a, b)
	}
}

func TestComplexityFeatures(t *testing.T) {
	g := NewGenerator()
	g.Generate(1, intp(3))
	assert.Equal(t, Features{
		Rings: 1, SpritesPerRing: 9, Orbiters: 0, Tiles: 1, MaxSides: 6, Stars: false, Shimmer: -1,
	}, g.Features)

	g.Generate(1, intp(45))
	assert.Equal(t, 5, g.Features.Rings)
	assert.Equal(t, 3, g.Features.Orbiters)
	assert.Equal(t, maxTiles, g.Features.Tiles)
	assert.True(t, g.Features.Stars)
	assert.Equal(t, 4, g.Features.Shimmer)
}

func TestCompositionStructure(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		g := NewGenerator()
		comp := g.Generate(seed, nil)
		require.True(t, comp.Valid())

		f := g.Features
		assert.Equal(t, f.Rings*f.SpritesPerRing*(1+f.Orbiters), comp.Count(Sprite))
		assert.Equal(t, f.Tiles, comp.Count(Tile))
		assert.Equal(t, 1+f.Rings, comp.Count(Group))

		assert.Equal(t, -1, comp.Nodes[0].Parent)
		for i, n := range comp.Nodes[1:] {
			assert.Less(t, n.Parent, i+1, "parents precede children")
			assert.GreaterOrEqual(t, n.Parent, 0)
		}
	}
}

func TestTilesTriangulate(t *testing.T) {
	comp := NewGenerator().Generate(5, intp(40))
	require.Greater(t, comp.Count(Tile), 0)
	for _, n := range comp.Nodes {
		if n.Kind != Tile {
			continue
		}
		tris, err := geom.Triangulate(n.Polygon)
		require.NoError(t, err)
		require.Zero(t, len(tris)%3)
		var area float64
		for i := 0; i < len(tris); i += 3 {
			a, b, c := tris[i], tris[i+1], tris[i+2]
			area += math.Abs((b.X-a.X)*(c.Y-a.Y)-(c.X-a.X)*(b.Y-a.Y)) / 2
		}
		assert.InDelta(t, shoelace(n.Polygon), area, 1e-6*area+1e-9)
		for _, p := range n.Polygon {
			assert.Less(t, math.Hypot(p.X, p.Y)+math.Hypot(n.Offset.X, n.Offset.Y), comp.Radius)
		}
	}
}

func shoelace(poly []geom.Point) float64 {
	var sum float64
	for i, p := range poly {
		q := poly[(i+1)%len(poly)]
		sum += p.X*q.Y - q.X*p.Y
	}
	return math.Abs(sum) / 2
}

func TestValid(t *testing.T) {
	assert.False(t, Composition{}.Valid())
	assert.False(t, Composition{Nodes: []Node{{Kind: Group, Parent: -1}}}.Valid())
	assert.False(t, Composition{Nodes: []Node{{Kind: Tile, Polygon: make([]geom.Point, 2)}}}.Valid())
	assert.True(t, Composition{Nodes: []Node{{Kind: Sprite}}}.Valid())
	assert.Equal(t, "tile", Tile.String())
}
