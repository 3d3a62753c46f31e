package main

import (
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/irfansharif/tessera/internal/app"
	"github.com/irfansharif/tessera/internal/geom"
)

const repeatInterval = 125 * time.Millisecond // time between successive regenerations/pans when pressed down
const basePanDistance = 100.0

// EventHandlers manages all event handling for the application.
type EventHandlers struct {
	application *app.App
	window      *glfw.Window

	// Space, or shift+space triggers regenerating clusters (with the shift
	// allowing to go back). If held down, we do so continuously.
	spaceHeld, shiftHeld bool
	lastRegenTime        time.Time

	// J/K/H/L pan through keypresses, continuously if held.
	panKeyHeld                   bool
	panDirectionX, panDirectionY float64
	lastPanTime                  time.Time

	// Drag state, captured on mouse press.
	isDragging                       bool
	dragStartMouseX, dragStartMouseY float64
	dragStartPanX, dragStartPanY     float64

	// Current mouse position in canvas coordinates.
	mouse geom.Point

	// Accumulates digits and comma until an action key (Space, C, D) is
	// pressed.
	inputBuffer string
}

// NewEventHandlers creates a new event handlers manager.
func NewEventHandlers(application *app.App, window *glfw.Window) *EventHandlers {
	eh := &EventHandlers{
		application:   application,
		window:        window,
		lastRegenTime: time.Now(),
		lastPanTime:   time.Now(),
	}
	eh.SetupCallbacks()
	return eh
}

// SetupCallbacks configures all GLFW event callbacks.
func (eh *EventHandlers) SetupCallbacks() {
	eh.window.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, mods glfw.ModifierKey) {
		eh.handleKey(key, action, mods)
	})
	eh.window.SetMouseButtonCallback(func(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		eh.handleMouseButton(button, action) // for panning
	})
	eh.window.SetCursorPosCallback(func(_ *glfw.Window, xpos, ypos float64) {
		eh.handleCursorPos(xpos, ypos)
	})
	eh.window.SetScrollCallback(func(_ *glfw.Window, _, zoomDelta float64) {
		eh.performZoom(zoomDelta)
	})
	eh.window.SetFramebufferSizeCallback(func(_ *glfw.Window, newW, newH int) {
		eh.application.View.SetViewport(newW, newH)
		eh.refreshMouse()
	})
}

// framebufferCursor returns the cursor position in framebuffer pixels.
func (eh *EventHandlers) framebufferCursor() (float64, float64) {
	mx, my := eh.window.GetCursorPos()
	sx, sy := eh.window.GetContentScale()
	return mx * float64(sx), my * float64(sy)
}

// refreshMouse recalculates the mouse's canvas position after view changes.
func (eh *EventHandlers) refreshMouse() {
	eh.mouse = eh.application.View.ScreenToWorld(eh.framebufferCursor())
}

// handleKey handles keyboard input events.
func (eh *EventHandlers) handleKey(key glfw.Key, action glfw.Action, mods glfw.ModifierKey) {
	if action == glfw.Press {
		if key >= glfw.Key0 && key <= glfw.Key9 {
			eh.inputBuffer += string(rune('0' + int(key-glfw.Key0)))
			return
		}
		if key == glfw.KeyComma {
			eh.inputBuffer += ","
			return
		}
		if key == glfw.KeyEscape {
			eh.inputBuffer = ""
			return
		}
		if !(key == glfw.KeySpace || key == glfw.KeyC || key == glfw.KeyD) {
			eh.inputBuffer = ""
		}
	}

	switch key {
	case glfw.KeySpace:
		eh.handleRegenerationKeys(action, mods)
	case glfw.KeyR:
		if action == glfw.Press {
			eh.handleResetKey()
		}
	case glfw.KeyC:
		if action == glfw.Press {
			eh.handleCreateClusterKey()
		}
	case glfw.KeyD:
		if action == glfw.Press {
			eh.handleDeleteClusterKey()
		}
	case glfw.KeyTab:
		if action == glfw.Press {
			eh.handleClusterNavigation(mods&glfw.ModShift == 0)
		}
	case glfw.KeyJ:
		eh.handlePanKeys(action, 0, -1) // pan down
	case glfw.KeyK:
		eh.handlePanKeys(action, 0, 1) // pan up
	case glfw.KeyH:
		eh.handlePanKeys(action, 1, 0) // pan right
	case glfw.KeyL:
		eh.handlePanKeys(action, -1, 0) // pan left
	case glfw.KeyEqual:
		if action == glfw.Press && (mods&glfw.ModSuper) != 0 {
			eh.performZoom(1)
		}
	case glfw.KeyMinus:
		if action == glfw.Press && (mods&glfw.ModSuper) != 0 {
			eh.performZoom(-1)
		}
	}
}

// handleRegenerationKeys handles space and shift+space (regenerate cluster).
func (eh *EventHandlers) handleRegenerationKeys(action glfw.Action, mods glfw.ModifierKey) {
	shiftHeld := (mods & glfw.ModShift) != 0

	switch action {
	case glfw.Press:
		_, complexity := eh.parseInput("space")
		eh.spaceHeld, eh.shiftHeld = !shiftHeld, shiftHeld
		eh.handleSeedChange(!shiftHeld)
		eh.application.RegenerateClosest(eh.mouse.X, eh.mouse.Y, complexity)
		eh.lastRegenTime = time.Now()

	case glfw.Release:
		eh.spaceHeld, eh.shiftHeld = false, false

	case glfw.Repeat:
		// Continuous regeneration runs off our own timer.
	}
}

// handlePanKeys handles j/k/h/l presses and releases.
func (eh *EventHandlers) handlePanKeys(action glfw.Action, dx, dy float64) {
	switch action {
	case glfw.Press:
		eh.panKeyHeld = true
		eh.panDirectionX, eh.panDirectionY = dx, dy
		eh.performPan(dx, dy)
		eh.lastPanTime = time.Now()
	case glfw.Release:
		eh.panKeyHeld = false
	}
}

// performPan executes a single pan step. Pan is in screen pixels, so the
// step is constant on screen regardless of zoom.
func (eh *EventHandlers) performPan(dx, dy float64) {
	view := eh.application.View
	view.SetPan(view.PanX+dx*basePanDistance, view.PanY+dy*basePanDistance)
	eh.refreshMouse()
}

// handleResetKey centers the view on the closest cluster and selects it for
// subsequent tabs.
func (eh *EventHandlers) handleResetKey() {
	clusters := eh.application.Clusters.FindClosest(eh.mouse)
	if len(clusters) > 0 {
		eh.application.View.ResetTo(clusters[0].CanvasPos)
		eh.application.Clusters.SetCurrent(clusters[0])
	}
	eh.refreshMouse()
}

// handleSeedChange steps the seed of the closest cluster.
func (eh *EventHandlers) handleSeedChange(increment bool) {
	clusters := eh.application.Clusters.FindClosest(eh.mouse)
	if len(clusters) == 0 {
		return
	}
	if increment {
		clusters[0].Seed++
	} else {
		clusters[0].Seed--
	}
}

// handleContinuousRegeneration regenerates while space is held.
func (eh *EventHandlers) handleContinuousRegeneration() {
	if !(eh.spaceHeld || eh.shiftHeld) {
		return
	}
	now := time.Now()
	if now.Sub(eh.lastRegenTime) < repeatInterval {
		return
	}
	eh.handleSeedChange(eh.spaceHeld)
	eh.application.RegenerateClosest(eh.mouse.X, eh.mouse.Y, nil) // keep the existing complexity
	eh.lastRegenTime = now
}

// handleContinuousPanning pans while pan keys are held.
func (eh *EventHandlers) handleContinuousPanning() {
	if !eh.panKeyHeld {
		return
	}
	now := time.Now()
	if now.Sub(eh.lastPanTime) < repeatInterval {
		return
	}
	eh.performPan(eh.panDirectionX, eh.panDirectionY)
	eh.lastPanTime = now
}

func (eh *EventHandlers) handleMouseButton(button glfw.MouseButton, action glfw.Action) {
	if button != glfw.MouseButtonLeft {
		return
	}
	switch action {
	case glfw.Press:
		eh.isDragging = true
		eh.dragStartMouseX, eh.dragStartMouseY = eh.framebufferCursor()
		eh.dragStartPanX, eh.dragStartPanY = eh.application.View.PanX, eh.application.View.PanY
	case glfw.Release:
		eh.isDragging = false
	}
}

func (eh *EventHandlers) handleCursorPos(_, _ float64) {
	if eh.isDragging {
		x, y := eh.framebufferCursor()
		eh.application.View.SetPan(eh.dragStartPanX+x-eh.dragStartMouseX, eh.dragStartPanY+y-eh.dragStartMouseY)
	}
	eh.refreshMouse()
}

// performZoom zooms about the cursor.
func (eh *EventHandlers) performZoom(zoomDelta float64) {
	x, y := eh.framebufferCursor()
	eh.application.View.ZoomAt(x, y, 1.0+zoomDelta*0.15)
	eh.refreshMouse()
}

// handleCreateClusterKey creates one cluster at the cursor, or a grid of
// them given a count.
func (eh *EventHandlers) handleCreateClusterKey() {
	batchCount, complexity := eh.parseInput("c")
	start := eh.mouse

	gridUnitPixels := 25.0
	gridSpacing := gridUnitPixels * 20.0
	gridCols := int(math.Sqrt(float64(batchCount))) + 1

	for i := 0; i < batchCount; i++ {
		col, row := i%gridCols, i/gridCols
		offsetX := float64(col)*gridSpacing + rand.Float64()*gridUnitPixels
		offsetY := float64(row)*gridSpacing + rand.Float64()*gridUnitPixels
		eh.application.CreateCluster(start.X+offsetX, start.Y+offsetY, complexity)
	}
}

// handleDeleteClusterKey deletes the closest cluster, or the n closest.
func (eh *EventHandlers) handleDeleteClusterKey() {
	batchCount, _ := eh.parseInput("d")
	clusters := eh.application.Clusters.FindClosest(eh.mouse)
	for _, c := range clusters[:min(batchCount, len(clusters))] {
		eh.application.DeleteCluster(c)
	}
}

// handleClusterNavigation handles tab and shift+tab.
func (eh *EventHandlers) handleClusterNavigation(next bool) {
	cluster := eh.application.Clusters.Iter(next)
	if cluster == nil {
		return
	}
	eh.application.View.ResetTo(cluster.CanvasPos)

	// Park the mouse position on the selected cluster so subsequent
	// deletions and regenerations target it.
	eh.mouse = cluster.CanvasPos
}

func (eh *EventHandlers) parseInput(action string) (count int, complexity *int) {
	input := eh.inputBuffer
	eh.inputBuffer = ""
	if input == "" {
		return 1, nil
	}

	count = 1
	if countStr, complexityStr, ok := strings.Cut(input, ","); ok {
		// Format: "10,5" (count=10, complexity=5)
		if val, err := strconv.Atoi(strings.TrimSpace(countStr)); err == nil {
			count = val
		}
		if val, err := strconv.Atoi(strings.TrimSpace(complexityStr)); err == nil && val > 0 {
			complexity = &val
		}
	} else if val, err := strconv.Atoi(input); err == nil {
		// Format: "5" (complexity=5 for space/c, count=5 for d)
		if action == "d" {
			count = val
		} else if val > 0 {
			complexity = &val
		}
	}
	return max(count, 0), complexity
}
