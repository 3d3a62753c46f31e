package app

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/irfansharif/tessera/internal/geom"
	"github.com/irfansharif/tessera/internal/render"
)

const (
	minZoom = 0.1
	maxZoom = 8.0
)

// View manages the current view state including zoom, pan, and viewport.
// World units are pixels at zoom 1; y grows downwards as on screen.
type View struct {
	Zoom          float64
	PanX, PanY    float64
	Width, Height int
}

// NewView creates a new view state with default values.
func NewView(width, height int) *View {
	return &View{
		Zoom:   1.0,
		Width:  width,
		Height: height,
	}
}

// SetZoom sets the zoom level, clamping to valid range.
func (vs *View) SetZoom(zoom float64) {
	vs.Zoom = min(maxZoom, max(minZoom, zoom))
}

// ZoomAt changes the zoom by factor while keeping the world point under the
// screen position (x, y) fixed.
func (vs *View) ZoomAt(x, y, factor float64) {
	before := vs.ScreenToWorld(x, y)
	vs.SetZoom(vs.Zoom * factor)
	after := vs.WorldToScreen(before)
	vs.PanX += x - after.X
	vs.PanY += y - after.Y
}

// SetPan sets the pan position to the given coordinates.
func (vs *View) SetPan(x, y float64) {
	vs.PanX = x
	vs.PanY = y
}

// SetViewport updates the viewport dimensions.
func (vs *View) SetViewport(width, height int) {
	vs.Width = width
	vs.Height = height
}

// ResetTo resets zoom to 1.0 and pans to center the given point in the
// viewport.
func (vs *View) ResetTo(pos geom.Point) {
	vs.Zoom = 1.0
	vs.PanX = float64(vs.Width)/2.0 - pos.X
	vs.PanY = float64(vs.Height)/2.0 - pos.Y
}

func (vs *View) center() (float64, float64) {
	return float64(vs.Width) / 2.0, float64(vs.Height) / 2.0
}

// ViewMatrix maps world to screen coordinates: zoom about the viewport
// center, then pan.
func (vs *View) ViewMatrix() mgl32.Mat4 {
	cx, cy := vs.center()
	z := float32(vs.Zoom)
	return mgl32.Translate3D(float32(vs.PanX+cx), float32(vs.PanY+cy), 0).
		Mul4(mgl32.Scale3D(z, z, 1)).
		Mul4(mgl32.Translate3D(float32(-cx), float32(-cy), 0))
}

// Projection maps screen pixels to clip space, origin top-left.
func (vs *View) Projection() mgl32.Mat4 {
	return mgl32.Ortho2D(0, float32(vs.Width), float32(vs.Height), 0)
}

// ViewProjection returns both camera matrices for a frame.
func (vs *View) ViewProjection() render.ViewProjection {
	return render.ViewProjection{View: vs.ViewMatrix(), Projection: vs.Projection()}
}

// ScreenToWorld maps a screen position (e.g. the cursor) to world space.
func (vs *View) ScreenToWorld(x, y float64) geom.Point {
	cx, cy := vs.center()
	return geom.MakePoint((x-vs.PanX-cx)/vs.Zoom+cx, (y-vs.PanY-cy)/vs.Zoom+cy)
}

// WorldToScreen maps a world position to the screen.
func (vs *View) WorldToScreen(p geom.Point) geom.Point {
	cx, cy := vs.center()
	return geom.MakePoint((p.X-cx)*vs.Zoom+cx+vs.PanX, (p.Y-cy)*vs.Zoom+cy+vs.PanY)
}

// VisibleBounds returns the world-space box currently on screen.
func (vs *View) VisibleBounds() geom.Box {
	tl := vs.ScreenToWorld(0, 0)
	br := vs.ScreenToWorld(float64(vs.Width), float64(vs.Height))
	return geom.MakeBox(tl.X, tl.Y, br.X-tl.X, br.Y-tl.Y)
}
