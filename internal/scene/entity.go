package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/irfansharif/tessera/internal/memory"
)

// Entity is something placed in the graph that may be drawn. It satisfies
// the renderer's drawable contract: render data, a per-frame commit and a
// world matrix.
type Entity struct {
	graph   *Graph
	node    NodeID
	gen     uint32
	kind    string
	element *memory.Element
}

// NewEntity creates an entity with its own node under parent. kind selects
// the renderer it's registered with; element may be nil for pure grouping
// entities, which renderers refuse.
func NewEntity(g *Graph, parent NodeID, kind string, element *memory.Element) (*Entity, error) {
	id, err := g.NewNode(parent)
	if err != nil {
		return nil, err
	}
	return &Entity{graph: g, node: id, gen: g.Generation(id), kind: kind, element: element}, nil
}

// Node returns the entity's graph node.
func (e *Entity) Node() NodeID { return e.node }

// RenderKind returns the tag naming the renderer for this entity.
func (e *Entity) RenderKind() string { return e.kind }

// Element returns the entity's render data, or nil.
func (e *Entity) Element() *memory.Element { return e.element }

// SetElement replaces the entity's render data. Re-register the entity if
// its texture changed.
func (e *Entity) SetElement(el *memory.Element) { e.element = el }

// Transform returns the entity's transform for issuing requests, or nil
// once the entity's node is gone.
func (e *Entity) Transform() *Transform {
	if !e.Alive() {
		return nil
	}
	return e.graph.Transform(e.node)
}

// Commit applies the entity's pending request for this frame.
func (e *Entity) Commit() {
	if e.Alive() {
		e.graph.Commit(e.node)
	}
}

// WorldMatrix returns the entity's absolute matrix for this frame, identity
// once the entity's node is gone.
func (e *Entity) WorldMatrix() mgl32.Mat4 {
	if !e.Alive() {
		return mgl32.Ident4()
	}
	return e.graph.AbsoluteMatrix(e.node)
}

// Alive reports whether the entity's node still exists. Removing an
// ancestor removes the entity's node too, and a node recycled into the same
// slot doesn't bring it back.
func (e *Entity) Alive() bool { return e.graph.current(e.node, e.gen) }
