// Package scene holds the transform hierarchy.
//
// Transforms use a request-then-commit model: setters only record a request
// and raise a dirty flag, and Commit applies the request and rebuilds the
// matrix. Update logic can therefore issue requests at any point of a frame
// without disturbing the matrices the renderer is reading, which always
// reflect the last commit.
package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const twoPi = 2 * math.Pi

// state is a 2D affine placement.
type state struct {
	displacement mgl32.Vec2
	scale        mgl32.Vec2
	rotation     float32 // radians, in [0, 2π)
}

// Transform owns a 2D placement and its 4x4 matrix. The zero value is not
// usable; call NewTransform.
type Transform struct {
	current   state
	requested state
	dirty     bool
	relative  mgl32.Mat4
}

// NewTransform returns an identity transform: no displacement, unit scale,
// no rotation.
func NewTransform() Transform {
	s := state{scale: mgl32.Vec2{1, 1}}
	return Transform{current: s, requested: s, relative: mgl32.Ident4()}
}

// fullTurn is 2π as float32 sees it. It's slightly larger than the real 2π,
// so wrapping by it sends a float32 full turn to exactly 0.
var fullTurn = float64(float32(twoPi))

// wrapAngle maps an angle into [0, 2π).
func wrapAngle(a float32) float32 {
	w := math.Mod(float64(a), fullTurn)
	if w < 0 {
		w += fullTurn
	}
	r := float32(w)
	// Rounding to float32 can land exactly on 2π.
	if r >= float32(twoPi) || r < 0 {
		r = 0
	}
	return r
}

func (t *Transform) request() { t.dirty = true }

// SetDisplacement requests an absolute displacement.
func (t *Transform) SetDisplacement(x, y float32) {
	t.requested.displacement = mgl32.Vec2{x, y}
	t.request()
}

// SetScale requests an absolute scale. A zero component yields a degenerate
// matrix, which is allowed.
func (t *Transform) SetScale(x, y float32) {
	t.requested.scale = mgl32.Vec2{x, y}
	t.request()
}

// SetRotation requests an absolute rotation in radians.
func (t *Transform) SetRotation(theta float32) {
	t.requested.rotation = wrapAngle(theta)
	t.request()
}

// Move requests a displacement relative to the pending one.
func (t *Transform) Move(dx, dy float32) {
	t.requested.displacement = t.requested.displacement.Add(mgl32.Vec2{dx, dy})
	t.request()
}

// ScaleBy multiplies the pending scale component-wise.
func (t *Transform) ScaleBy(fx, fy float32) {
	t.requested.scale = mgl32.Vec2{t.requested.scale[0] * fx, t.requested.scale[1] * fy}
	t.request()
}

// RotateBy adds delta radians to the pending rotation.
func (t *Transform) RotateBy(delta float32) {
	t.requested.rotation = wrapAngle(t.requested.rotation + delta)
	t.request()
}

// Dirty reports whether a request is pending.
func (t *Transform) Dirty() bool { return t.dirty }

// Commit applies the pending request, if any, and rebuilds the relative
// matrix as T(displacement)·Rz(rotation)·S(scale). It reports whether
// anything changed; without a new request it's a no-op.
func (t *Transform) Commit() bool {
	if !t.dirty {
		return false
	}
	t.current = t.requested
	t.dirty = false
	d, s := t.current.displacement, t.current.scale
	t.relative = mgl32.Translate3D(d[0], d[1], 0).
		Mul4(mgl32.HomogRotate3DZ(t.current.rotation)).
		Mul4(mgl32.Scale3D(s[0], s[1], 1))
	return true
}

// Relative returns the committed matrix in the parent's space.
func (t *Transform) Relative() mgl32.Mat4 { return t.relative }

// Displacement returns the committed displacement.
func (t *Transform) Displacement() mgl32.Vec2 { return t.current.displacement }

// Scale returns the committed scale.
func (t *Transform) Scale() mgl32.Vec2 { return t.current.scale }

// Rotation returns the committed rotation in radians.
func (t *Transform) Rotation() float32 { return t.current.rotation }

// Requested returns the pending displacement, scale and rotation.
func (t *Transform) Requested() (displacement, scale mgl32.Vec2, rotation float32) {
	return t.requested.displacement, t.requested.scale, t.requested.rotation
}

// ToBuffer serializes the committed relative matrix as 16 column-major
// floats, reusing dst's storage when it's large enough.
func (t *Transform) ToBuffer(dst []float32) []float32 { return ToBuffer(t.relative, dst) }

// ToBuffer serializes m as 16 column-major floats, reusing dst's storage
// when it's large enough.
func ToBuffer(m mgl32.Mat4, dst []float32) []float32 {
	return append(dst[:0], m[:]...)
}
