// Package geom provides the 2D primitives the renderer works with:
// - Points and axis-aligned boxes
// - Bounds of point sets, box intersection and union
// - Mapping boxes through 4x4 GPU matrices (for coarse culling)
// - Polygon triangulation
package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Point represents a 2D point or vector in Cartesian coordinates.
type Point struct {
	X float64
	Y float64
}

// Box represents an axis-aligned rectangle.
type Box struct {
	X float64
	Y float64
	W float64
	H float64
}

func MakePoint(x, y float64) Point   { return Point{X: x, Y: y} }
func MakeBox(x, y, w, h float64) Box { return Box{X: x, Y: y, W: w, H: h} }

func (p Point) Add(q Point) Point     { return Point{p.X + q.X, p.Y + q.Y} }
func (p Point) Sub(q Point) Point     { return Point{p.X - q.X, p.Y - q.Y} }
func (p Point) Scale(s float64) Point { return Point{p.X * s, p.Y * s} }

func Dot(p, q Point) float64 { return p.X*q.X + p.Y*q.Y }

func Dist(p, q Point) float64 {
	dx := p.X - q.X
	dy := p.Y - q.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Empty reports whether the box has no area. An empty box is never culled.
func (b Box) Empty() bool { return b.W <= 0 || b.H <= 0 }

func (b Box) MaxX() float64 { return b.X + b.W }
func (b Box) MaxY() float64 { return b.Y + b.H }

// Center returns the midpoint of the box.
func (b Box) Center() Point { return Point{b.X + 0.5*b.W, b.Y + 0.5*b.H} }

// Contains reports whether p lies inside the box (edges inclusive).
func (b Box) Contains(p Point) bool {
	return p.X >= b.X && p.X <= b.MaxX() && p.Y >= b.Y && p.Y <= b.MaxY()
}

// Intersects reports whether two boxes overlap. Touching edges count.
func (b Box) Intersects(o Box) bool {
	return b.X <= o.MaxX() && o.X <= b.MaxX() && b.Y <= o.MaxY() && o.Y <= b.MaxY()
}

// Union returns the smallest box containing both.
func (b Box) Union(o Box) Box {
	xmin := math.Min(b.X, o.X)
	ymin := math.Min(b.Y, o.Y)
	xmax := math.Max(b.MaxX(), o.MaxX())
	ymax := math.Max(b.MaxY(), o.MaxY())
	return MakeBox(xmin, ymin, xmax-xmin, ymax-ymin)
}

// BoundsOf returns the axis-aligned bounds of the points. ok is false if
// there are none.
func BoundsOf(points []Point) (b Box, ok bool) {
	if len(points) == 0 {
		return Box{}, false
	}
	xmin, xmax := math.MaxFloat64, -math.MaxFloat64
	ymin, ymax := math.MaxFloat64, -math.MaxFloat64
	for _, p := range points {
		xmin = math.Min(xmin, p.X)
		xmax = math.Max(xmax, p.X)
		ymin = math.Min(ymin, p.Y)
		ymax = math.Max(ymax, p.Y)
	}
	return MakeBox(xmin, ymin, xmax-xmin, ymax-ymin), true
}

// MulPoint applies a homogeneous 4x4 matrix to a point on the z=0 plane.
func MulPoint(m mgl32.Mat4, p Point) Point {
	v := m.Mul4x1(mgl32.Vec4{float32(p.X), float32(p.Y), 0, 1})
	w := v.W()
	if w == 0 {
		w = 1
	}
	return Point{X: float64(v.X() / w), Y: float64(v.Y() / w)}
}

// TransformBox maps the four corners of b through m and returns their
// bounds. Rotations grow the box; that's fine for coarse culling.
func TransformBox(m mgl32.Mat4, b Box) Box {
	corners := []Point{
		MulPoint(m, Point{b.X, b.Y}),
		MulPoint(m, Point{b.MaxX(), b.Y}),
		MulPoint(m, Point{b.X, b.MaxY()}),
		MulPoint(m, Point{b.MaxX(), b.MaxY()}),
	}
	out, _ := BoundsOf(corners)
	return out
}
