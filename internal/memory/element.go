package memory

import (
	"errors"
	"fmt"

	"github.com/irfansharif/tessera/internal/geom"
	"github.com/irfansharif/tessera/internal/gpu"
)

// ErrPayloadMismatch is returned when a drawable's payload doesn't fit the
// attribute it's staged into (wrong element type or length).
var ErrPayloadMismatch = errors.New("payload does not match attribute")

// Payload is one attribute's worth of data for a drawable. Exactly one of
// Floats or Ints is used, matching the attribute's element type.
type Payload struct {
	Floats []float32
	Ints   []int32
}

// Floats builds a float payload.
func Floats(v ...float32) Payload { return Payload{Floats: v} }

// Ints builds an integer payload.
func Ints(v ...int32) Payload { return Payload{Ints: v} }

// Color builds a float payload from an RGBA color.
func Color(c [4]float32) Payload { return Payload{Floats: c[:]} }

// Len returns the number of scalar values carried.
func (p Payload) Len() int {
	if p.Ints != nil {
		return len(p.Ints)
	}
	return len(p.Floats)
}

func (p Payload) typ() gpu.ElementType {
	if p.Ints != nil {
		return gpu.Int
	}
	return gpu.Float
}

// Element is what the renderer needs to know about one drawable: which
// texture it samples (gpu.NoTexture for flat color), how it's assembled, and
// one payload per shader attribute.
//
// For gpu.Points an element is one record and each payload carries exactly
// arity values. For gpu.Triangles an element is Vertices records; a payload
// carries either arity values (shared by every vertex) or arity×Vertices.
type Element struct {
	Texture  gpu.TextureID
	Topology gpu.Topology
	Vertices int
	Payloads map[string]Payload
	// Bounds is the element's extent in its local space. An empty box opts
	// out of culling.
	Bounds geom.Box
}

// NewElement returns an element with an empty payload map.
func NewElement(topology gpu.Topology) *Element {
	el := &Element{Topology: topology, Payloads: make(map[string]Payload)}
	if topology == gpu.Points {
		el.Vertices = 1
	}
	return el
}

// Set stores the payload for the named attribute and returns the element.
func (e *Element) Set(attribute string, p Payload) *Element {
	if e.Payloads == nil {
		e.Payloads = make(map[string]Payload)
	}
	e.Payloads[attribute] = p
	return e
}

// Footprint is the number of records the element occupies in a batch:
// always one for points, one per vertex for triangle lists.
func (e *Element) Footprint() int {
	if e.Topology == gpu.Points {
		return 1
	}
	return e.Vertices
}

// AttributeSource says where an attribute's values come from.
type AttributeSource int

const (
	// FromPayload reads the element's payload, or Default if it has none.
	FromPayload AttributeSource = iota
	// FromInstanceIndex fills the attribute with the index of the drawable's
	// record in the instance-data store. It must be a 1-wide int attribute.
	FromInstanceIndex
)

// Attribute is a shader attribute plus how to fill it.
type Attribute struct {
	gpu.AttribLayout
	Source AttributeSource
	// Default is staged when an element has no payload for the attribute.
	// Without one the attribute is required and elements missing it are
	// rejected.
	Default *Payload
}

// Validate checks the attribute is well formed.
func (a Attribute) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("attribute at location %d has no name", a.Location)
	}
	if a.Arity < 1 || a.Arity > 4 {
		return fmt.Errorf("attribute %s: arity %d out of range [1, 4]", a.Name, a.Arity)
	}
	if a.Source == FromInstanceIndex && (a.Type != gpu.Int || a.Arity != 1) {
		return fmt.Errorf("attribute %s: instance index must be a single int", a.Name)
	}
	if a.Default != nil && (a.Default.typ() != a.Type || a.Default.Len() != a.Arity) {
		return fmt.Errorf("attribute %s: default %w", a.Name, ErrPayloadMismatch)
	}
	return nil
}

// resolve returns the payload to stage for el and how many times each
// scalar run repeats (1 when the payload already covers every vertex).
func (a Attribute) resolve(el *Element) (p Payload, perVertex bool, err error) {
	p, ok := el.Payloads[a.Name]
	if !ok {
		if a.Default != nil {
			return *a.Default, false, nil
		}
		return Payload{}, false, fmt.Errorf("attribute %s: missing payload and no default: %w", a.Name, ErrPayloadMismatch)
	}
	if p.typ() != a.Type {
		return Payload{}, false, fmt.Errorf("attribute %s: got %s values, want %s: %w",
			a.Name, p.typ(), a.Type, ErrPayloadMismatch)
	}
	switch n := p.Len(); {
	case n == a.Arity:
		return p, false, nil
	case el.Topology == gpu.Triangles && n == a.Arity*el.Vertices:
		return p, true, nil
	default:
		return Payload{}, false, fmt.Errorf("attribute %s: got %d values for %d vertices of arity %d: %w",
			a.Name, n, el.Footprint(), a.Arity, ErrPayloadMismatch)
	}
}
