package scene

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

var (
	// ErrNoNode is returned for ids that don't name a live node.
	ErrNoNode = errors.New("no such node")
	// ErrCycle is returned when reparenting would make a node its own
	// ancestor.
	ErrCycle = errors.New("reparenting would create a cycle")
)

// NodeID indexes a node in a Graph. Ids of removed nodes are recycled.
type NodeID int32

// NoNode is the parent of root nodes.
const NoNode NodeID = -1

type node struct {
	live      bool
	parent    NodeID // non-owning back-reference
	children  []NodeID
	transform Transform

	gen       uint32 // bumped each time the slot is released

	committed uint64 // frame of the last commit attempt
	resolved  uint64 // frame absolute was computed in
	absolute  mgl32.Mat4
}

// Graph is an arena of transform nodes. A parent exclusively owns its
// children: removing a node removes its whole subtree. Children refer back
// to their parent by id only.
//
// Within one frame (see BeginFrame) every node commits at most once and its
// absolute matrix is computed at most once, so the geometry of a frame stays
// stable no matter how many requests arrive while it's being drawn.
type Graph struct {
	nodes []node
	free  []NodeID
	frame uint64
	live  int
}

// NewGraph returns an empty graph positioned at its first frame.
func NewGraph() *Graph {
	return &Graph{frame: 1}
}

// BeginFrame starts a new frame: pending requests may commit again and
// memoized absolute matrices are invalidated.
func (g *Graph) BeginFrame() { g.frame++ }

// Frame returns the current frame number.
func (g *Graph) Frame() uint64 { return g.frame }

// Len returns the number of live nodes.
func (g *Graph) Len() int { return g.live }

// NewNode creates a node with an identity transform under parent, or as a
// root if parent is NoNode.
func (g *Graph) NewNode(parent NodeID) (NodeID, error) {
	if parent != NoNode && !g.valid(parent) {
		return NoNode, fmt.Errorf("parent %d: %w", parent, ErrNoNode)
	}

	var id NodeID
	if n := len(g.free); n > 0 {
		id = g.free[n-1]
		g.free = g.free[:n-1]
	} else {
		id = NodeID(len(g.nodes))
		g.nodes = append(g.nodes, node{})
	}
	g.nodes[id] = node{
		live:      true,
		parent:    parent,
		gen:       g.nodes[id].gen,
		transform: NewTransform(),
	}
	if parent != NoNode {
		g.nodes[parent].children = append(g.nodes[parent].children, id)
	}
	g.live++
	return id, nil
}

func (g *Graph) valid(id NodeID) bool {
	return id >= 0 && int(id) < len(g.nodes) && g.nodes[id].live
}

// Contains reports whether id names a live node.
func (g *Graph) Contains(id NodeID) bool { return g.valid(id) }

// Generation returns the reuse count of id's slot. A handle that remembers
// the generation it was created under can tell its node apart from a later
// node recycled into the same slot.
func (g *Graph) Generation(id NodeID) uint32 {
	if id < 0 || int(id) >= len(g.nodes) {
		return 0
	}
	return g.nodes[id].gen
}

// current reports whether id is live and still in generation gen.
func (g *Graph) current(id NodeID, gen uint32) bool {
	return g.valid(id) && g.nodes[id].gen == gen
}

// Transform returns the node's transform for issuing requests. It returns
// nil for dead ids. The pointer is only good until the next NewNode; look it
// up again rather than holding on to it.
func (g *Graph) Transform(id NodeID) *Transform {
	if !g.valid(id) {
		return nil
	}
	return &g.nodes[id].transform
}

// Parent returns the node's parent, NoNode for roots and dead ids.
func (g *Graph) Parent(id NodeID) NodeID {
	if !g.valid(id) {
		return NoNode
	}
	return g.nodes[id].parent
}

// Children returns a copy of the node's children.
func (g *Graph) Children(id NodeID) []NodeID {
	if !g.valid(id) {
		return nil
	}
	return append([]NodeID(nil), g.nodes[id].children...)
}

// Remove deletes the node and its subtree.
func (g *Graph) Remove(id NodeID) error {
	if !g.valid(id) {
		return fmt.Errorf("node %d: %w", id, ErrNoNode)
	}
	g.detach(id)
	g.release(id)
	return nil
}

func (g *Graph) release(id NodeID) {
	for _, child := range g.nodes[id].children {
		g.release(child)
	}
	g.nodes[id] = node{parent: NoNode, gen: g.nodes[id].gen + 1}
	g.free = append(g.free, id)
	g.live--
}

// detach unlinks id from its parent's child list.
func (g *Graph) detach(id NodeID) {
	parent := g.nodes[id].parent
	if parent == NoNode {
		return
	}
	siblings := g.nodes[parent].children
	for i, c := range siblings {
		if c == id {
			g.nodes[parent].children = append(siblings[:i], siblings[i+1:]...)
			break
		}
	}
	g.nodes[id].parent = NoNode
}

// Reparent moves id (with its subtree) under parent, or makes it a root if
// parent is NoNode. The move is visible to absolute matrices from the next
// frame on.
func (g *Graph) Reparent(id, parent NodeID) error {
	if !g.valid(id) {
		return fmt.Errorf("node %d: %w", id, ErrNoNode)
	}
	if parent != NoNode {
		if !g.valid(parent) {
			return fmt.Errorf("parent %d: %w", parent, ErrNoNode)
		}
		for a := parent; a != NoNode; a = g.nodes[a].parent {
			if a == id {
				return fmt.Errorf("node %d under %d: %w", id, parent, ErrCycle)
			}
		}
	}
	g.detach(id)
	g.nodes[id].parent = parent
	if parent != NoNode {
		g.nodes[parent].children = append(g.nodes[parent].children, id)
	}
	return nil
}

// Commit commits the node's pending request, at most once per frame.
func (g *Graph) Commit(id NodeID) {
	if !g.valid(id) {
		return
	}
	g.commit(id)
}

func (g *Graph) commit(id NodeID) {
	n := &g.nodes[id]
	if n.committed == g.frame {
		return
	}
	n.committed = g.frame
	n.transform.Commit()
}

// AbsoluteMatrix returns the node's world matrix: ancestors' relative
// matrices multiplied root first, the node's own relative matrix last.
// Ancestors that haven't committed this frame are committed on demand and
// results are memoized until the next BeginFrame, so siblings share the work
// of resolving common ancestors. Dead ids yield identity.
func (g *Graph) AbsoluteMatrix(id NodeID) mgl32.Mat4 {
	if !g.valid(id) {
		return mgl32.Ident4()
	}
	if g.nodes[id].resolved == g.frame {
		return g.nodes[id].absolute
	}

	// Walk up until the root or an ancestor already resolved this frame.
	var stack []NodeID
	base := mgl32.Ident4()
	for cur := id; cur != NoNode; cur = g.nodes[cur].parent {
		if g.nodes[cur].resolved == g.frame {
			base = g.nodes[cur].absolute
			break
		}
		stack = append(stack, cur)
	}

	// Pop root first.
	for i := len(stack) - 1; i >= 0; i-- {
		n := stack[i]
		g.commit(n)
		base = base.Mul4(g.nodes[n].transform.Relative())
		g.nodes[n].absolute = base
		g.nodes[n].resolved = g.frame
	}
	return base
}

// RelativeMatrix commits the node for this frame and returns its matrix in
// its parent's space.
func (g *Graph) RelativeMatrix(id NodeID) mgl32.Mat4 {
	if !g.valid(id) {
		return mgl32.Ident4()
	}
	g.commit(id)
	return g.nodes[id].transform.Relative()
}
