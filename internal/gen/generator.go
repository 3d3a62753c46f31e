// Package gen procedurally generates demo scenes for the renderer.
//
// A composition is a small transform hierarchy:
//   - A root group that slowly turns.
//   - Concentric rings of sprites, each ring its own group turning in
//     alternating directions.
//   - Optional orbiters: sprites parented to ring sprites, so they follow
//     their parent's rotation.
//   - Polygon tiles (regular or star shaped) filling the middle, drawn as
//     triangle meshes.
//
// Everything is laid out in world units around the origin; callers place the
// root wherever they like. Generation is deterministic for a given seed and
// complexity.
package gen

import (
	"math"
	"math/rand"

	"github.com/irfansharif/tessera/internal/geom"
)

const (
	ringSpacing  = 60.0
	innerRadius  = 80.0 // tiles stay inside this
	maxRings     = 6
	maxOrbiters  = 3
	maxTiles     = 12
	minTileSides = 3
)

// Features represents the configuration for the generator.
type Features struct {
	Rings          int
	SpritesPerRing int
	Orbiters       int // per ring sprite
	Tiles          int
	MaxSides       int
	Stars          bool
	Shimmer        int // -1 or >=2
}

// Kind is what a generated node turns into.
type Kind int

const (
	Group Kind = iota
	Sprite
	Tile
)

func (k Kind) String() string {
	switch k {
	case Group:
		return "group"
	case Sprite:
		return "sprite"
	case Tile:
		return "tile"
	default:
		return "unknown"
	}
}

// Node is one generated scene node. Parents always precede their children.
type Node struct {
	Kind     Kind
	Parent   int        // index into Composition.Nodes, -1 for the root
	Offset   geom.Point // relative to the parent
	Rotation float64    // radians
	Scale    float64
	Spin     float64 // radians per second

	Size    geom.Point   // sprites
	Polygon []geom.Point // tiles, counter-clockwise, local coordinates
	Color   int          // palette accent
}

// Composition carries the generated nodes.
type Composition struct {
	Nodes   []Node
	Radius  float64 // every node lies within this distance of the root
	Shimmer int
}

// Count returns the number of nodes of kind k.
func (c Composition) Count(k Kind) int {
	n := 0
	for _, node := range c.Nodes {
		if node.Kind == k {
			n++
		}
	}
	return n
}

// Valid reports whether the composition has something to draw and every
// tile is a proper polygon.
func (c Composition) Valid() bool {
	drawable := false
	for _, node := range c.Nodes {
		switch node.Kind {
		case Sprite:
			drawable = true
		case Tile:
			if len(node.Polygon) < minTileSides {
				return false
			}
			drawable = true
		}
	}
	return drawable
}

// Generator implements scene generation.
type Generator struct {
	Features Features
}

func NewGenerator() *Generator {
	return &Generator{}
}

// initFeatures picks random features.
func (g *Generator) initFeatures(rng *rand.Rand) {
	v := rng.Float64()
	if v < 0.7 {
		g.Features.Rings = 3
		g.Features.SpritesPerRing = 12
	} else if v < 0.9 {
		g.Features.Rings = 2
		g.Features.SpritesPerRing = 8
	} else {
		g.Features.Rings = 5
		g.Features.SpritesPerRing = 24
	}

	v = rng.Float64()
	if v < 0.6 {
		g.Features.Orbiters = 0
	} else if v < 0.9 {
		g.Features.Orbiters = 1
	} else {
		g.Features.Orbiters = 2
	}

	g.Features.Tiles = 1 + rng.Intn(6)
	g.Features.MaxSides = minTileSides + rng.Intn(6)
	g.Features.Stars = rng.Float64() < 0.4

	v = rng.Float64()
	if v < 0.75 {
		g.Features.Shimmer = -1
	} else {
		g.Features.Shimmer = int(rng.Float64()*3) + 2
	}
}

// SetFeaturesForComplexity sets features based on the given complexity level.
// If complexity is nil, uses default randomization.
func (g *Generator) SetFeaturesForComplexity(rng *rand.Rand, complexity *int) {
	if complexity == nil {
		g.initFeatures(rng)
		return
	}
	c := max(1, *complexity)

	g.Features.Rings = min(maxRings, 1+c/10)
	g.Features.SpritesPerRing = 6 + c

	if c <= 5 {
		g.Features.Orbiters = 0
	} else {
		g.Features.Orbiters = min(maxOrbiters, 1+c/20)
	}

	g.Features.Tiles = min(maxTiles, 1+c/4)
	g.Features.MaxSides = minTileSides + c%6
	g.Features.Stars = c > 20

	if c <= 10 {
		g.Features.Shimmer = -1
	} else {
		g.Features.Shimmer = min(4, 2+(c-10)/10)
	}
}

// Generate creates a new composition.
//
// The generation process:
//  1. Pick features, from the complexity if given or at random.
//  2. Lay out sprite rings around the root, with orbiters hanging off ring
//     sprites.
//  3. Scatter polygon tiles on a small lattice inside the innermost ring.
func (g *Generator) Generate(seed int64, complexity *int) Composition {
	rng := rand.New(rand.NewSource(seed))
	g.SetFeaturesForComplexity(rng, complexity)

	comp := Composition{Shimmer: g.Features.Shimmer}
	root := comp.add(Node{Kind: Group, Parent: -1, Scale: 1, Spin: (rng.Float64() - 0.5) * 0.2})

	g.addRings(&comp, root, rng)
	g.addTiles(&comp, root, rng)
	return comp
}

func (c *Composition) add(n Node) int {
	c.Nodes = append(c.Nodes, n)
	return len(c.Nodes) - 1
}

func polar(radius, theta float64) geom.Point {
	return geom.MakePoint(radius*math.Cos(theta), radius*math.Sin(theta))
}

func (g *Generator) addRings(comp *Composition, root int, rng *rand.Rand) {
	for r := 0; r < g.Features.Rings; r++ {
		spin := 0.2 + 0.3*rng.Float64()
		if r%2 == 1 {
			spin = -spin
		}
		ring := comp.add(Node{Kind: Group, Parent: root, Scale: 1, Spin: spin})

		radius := innerRadius + ringSpacing*float64(r+1)
		side := 8 + rng.Float64()*12
		for i := 0; i < g.Features.SpritesPerRing; i++ {
			theta := 2 * math.Pi * float64(i) / float64(g.Features.SpritesPerRing)
			sprite := comp.add(Node{
				Kind:     Sprite,
				Parent:   ring,
				Offset:   polar(radius, theta),
				Rotation: theta,
				Scale:    1,
				Size:     geom.MakePoint(side, side),
				Color:    r,
			})
			comp.Radius = math.Max(comp.Radius, radius+side)

			for o := 0; o < g.Features.Orbiters; o++ {
				dist := side * (1.2 + 0.6*float64(o))
				comp.add(Node{
					Kind:   Sprite,
					Parent: sprite,
					Offset: polar(dist, 2*math.Pi*float64(o)/float64(g.Features.Orbiters)),
					Scale:  0.5,
					Spin:   1 + rng.Float64()*2,
					Size:   geom.MakePoint(side, side),
					Color:  r + o + 1,
				})
				comp.Radius = math.Max(comp.Radius, radius+dist+side)
			}
		}
	}
}

// addTiles places tiles on a lattice of cells inside the inner radius.
func (g *Generator) addTiles(comp *Composition, root int, rng *rand.Rand) {
	n := g.Features.Tiles
	if n == 0 {
		return
	}
	cols := int(math.Ceil(math.Sqrt(float64(n))))
	cell := 2 * innerRadius / math.Sqrt2 / float64(cols)
	origin := -cell * float64(cols-1) / 2
	for i := 0; i < n; i++ {
		center := geom.MakePoint(origin+cell*float64(i%cols), origin+cell*float64(i/cols))
		sides := minTileSides + rng.Intn(g.Features.MaxSides-minTileSides+1)
		comp.add(Node{
			Kind:    Tile,
			Parent:  root,
			Offset:  center,
			Scale:   1,
			Spin:    (rng.Float64() - 0.5) * 1.5,
			Polygon: makePolygon(sides, 0.45*cell, g.Features.Stars, rng),
			Color:   i,
		})
	}
	comp.Radius = math.Max(comp.Radius, innerRadius)
}

// makePolygon returns a polygon around the origin with corners at strictly
// increasing angles, so it's always simple. Stars alternate between the full
// and a reduced radius.
func makePolygon(sides int, radius float64, star bool, rng *rand.Rand) []geom.Point {
	corners := sides
	if star {
		corners *= 2
	}
	phase := rng.Float64() * 2 * math.Pi
	points := make([]geom.Point, corners)
	for i := range points {
		r := radius * (0.85 + 0.15*rng.Float64())
		if star && i%2 == 1 {
			r *= 0.45
		}
		points[i] = polar(r, phase+2*math.Pi*float64(i)/float64(corners))
	}
	return points
}
