// Package render turns registered drawables into batched draw calls.
//
// A Renderer owns one shader Program and one Array Object built from it. It
// groups drawables by texture, and each frame walks the groups: bind the
// texture, commit and batch every drawable, flush whenever the batch is full
// and once more at the end of the group.
package render

import (
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/irfansharif/tessera/internal/geom"
	"github.com/irfansharif/tessera/internal/gpu"
	"github.com/irfansharif/tessera/internal/memory"
)

var renderLogger *log.Logger = log.New(io.Discard, "", 0)

func init() {
	if os.Getenv("TESSERA_DEBUG_RENDER") == "1" {
		EnableDebugLogging()
	}
}

// EnableDebugLogging routes render diagnostics to stdout.
func EnableDebugLogging() {
	renderLogger = log.New(os.Stdout, "[render] ", log.Ltime|log.Lmsgprefix)
}

// TextureUnit is the unit drawables' textures are bound to.
const TextureUnit = 0

// Drawable is anything a renderer can draw. Implementations must be
// comparable, typically pointers.
type Drawable interface {
	// Element returns the render data, or nil if there's nothing to draw.
	Element() *memory.Element
	// Commit applies pending transform requests for this frame.
	Commit()
	// WorldMatrix returns the committed world transform.
	WorldMatrix() mgl32.Mat4
}

// ViewProjection carries the per-frame camera matrices.
type ViewProjection struct {
	View       mgl32.Mat4
	Projection mgl32.Mat4
}

// Stats are the renderer's per-frame counters, reset at the start of every
// Render.
type Stats struct {
	DrawCalls        int
	ObjectCount      int // drawables batched
	TexturesInUse    int
	Culled           int
	Dropped          int
	LastRenderTimeUs float64
}

// Options configure a Renderer.
type Options struct {
	// Capacity is the array object's capacity in records: drawables for
	// points, vertices for triangles.
	Capacity int
	Topology gpu.Topology
	// Instanced allocates an instance-data store for world transforms.
	Instanced bool
	// Cull skips drawables whose world bounds miss the viewport.
	Cull bool
	// BeforeGroup loads renderer-specific uniforms before a texture group
	// is drawn. The program is bound.
	BeforeGroup func(p *Program, texture gpu.TextureID)
}

type group struct {
	texture   gpu.TextureID
	drawables []Drawable
	index     map[Drawable]int
}

// Renderer batches drawables for one program.
type Renderer struct {
	name    string
	dev     gpu.Device
	program *Program
	ao      *memory.ArrayObject
	opts    Options

	uView, uProjection *Uniform[mgl32.Mat4]

	groups     map[gpu.TextureID]*group
	order      []gpu.TextureID // sorted, NoTexture first
	registered map[Drawable]gpu.TextureID

	stats Stats
}

// NewRenderer builds a renderer around program. The renderer owns the
// program once this returns without error. The program must declare mat4
// uniforms uView and uProjection.
func NewRenderer(dev gpu.Device, program *Program, opts Options) (_ *Renderer, err error) {
	r := &Renderer{
		name:       program.Name(),
		dev:        dev,
		program:    program,
		opts:       opts,
		groups:     make(map[gpu.TextureID]*group),
		registered: make(map[Drawable]gpu.TextureID),
	}
	if r.uView, err = UniformOf[mgl32.Mat4](program, "uView"); err != nil {
		return nil, fmt.Errorf("renderer %q: %w", r.name, err)
	}
	if r.uProjection, err = UniformOf[mgl32.Mat4](program, "uProjection"); err != nil {
		return nil, fmt.Errorf("renderer %q: %w", r.name, err)
	}
	if r.ao, err = program.CreateCompatibleArrayObject(opts.Capacity, opts.Instanced, opts.Topology); err != nil {
		return nil, fmt.Errorf("renderer %q: %w", r.name, err)
	}
	return r, nil
}

// Name returns the renderer's name, its program's name.
func (r *Renderer) Name() string { return r.name }

// Program returns the renderer's program.
func (r *Renderer) Program() *Program { return r.program }

// ArrayObject returns the renderer's batching unit.
func (r *Renderer) ArrayObject() *memory.ArrayObject { return r.ao }

// Register files d under its element's texture. A drawable with no render
// data, or data this renderer can't batch, is logged and ignored.
// Re-registering under a different texture moves it.
func (r *Renderer) Register(d Drawable) bool {
	el := d.Element()
	switch {
	case el == nil || el.Footprint() <= 0:
		log.Printf("WARNING: renderer %q: drawable %p has no render data, not registering", r.name, d)
		return false
	case el.Topology != r.ao.Topology():
		log.Printf("WARNING: renderer %q: drawable %p is %s, renderer draws %s, not registering",
			r.name, d, el.Topology, r.ao.Topology())
		return false
	case el.Footprint() > r.ao.Capacity():
		log.Printf("WARNING: renderer %q: drawable %p needs %d records, capacity is %d, not registering",
			r.name, d, el.Footprint(), r.ao.Capacity())
		return false
	}

	if old, ok := r.registered[d]; ok {
		if old == el.Texture {
			return true
		}
		r.remove(d, old)
	}

	g, ok := r.groups[el.Texture]
	if !ok {
		g = &group{texture: el.Texture, index: make(map[Drawable]int)}
		r.groups[el.Texture] = g
		i := sort.Search(len(r.order), func(i int) bool { return r.order[i] >= el.Texture })
		r.order = append(r.order, 0)
		copy(r.order[i+1:], r.order[i:])
		r.order[i] = el.Texture
	}
	g.index[d] = len(g.drawables)
	g.drawables = append(g.drawables, d)
	r.registered[d] = el.Texture
	return true
}

// Unregister removes d. Unregistering something that isn't registered is
// logged and otherwise ignored.
func (r *Renderer) Unregister(d Drawable) bool {
	tex, ok := r.registered[d]
	if !ok {
		log.Printf("WARNING: renderer %q: drawable %p is not registered", r.name, d)
		return false
	}
	r.remove(d, tex)
	return true
}

// remove drops d from its group, and the group itself once it's empty.
func (r *Renderer) remove(d Drawable, tex gpu.TextureID) {
	delete(r.registered, d)
	g := r.groups[tex]
	i := g.index[d]
	last := len(g.drawables) - 1
	if i != last {
		moved := g.drawables[last]
		g.drawables[i] = moved
		g.index[moved] = i
	}
	g.drawables[last] = nil
	g.drawables = g.drawables[:last]
	delete(g.index, d)

	if len(g.drawables) > 0 {
		return
	}
	delete(r.groups, tex)
	for j, t := range r.order {
		if t == tex {
			r.order = append(r.order[:j], r.order[j+1:]...)
			break
		}
	}
}

// Registered reports whether d is registered and under which texture.
func (r *Renderer) Registered(d Drawable) (gpu.TextureID, bool) {
	tex, ok := r.registered[d]
	return tex, ok
}

// Group returns the drawables registered under tex, in batching order.
func (r *Renderer) Group(tex gpu.TextureID) []Drawable {
	g, ok := r.groups[tex]
	if !ok {
		return nil
	}
	return append([]Drawable(nil), g.drawables...)
}

// Textures returns the texture keys in use, in drawing order.
func (r *Renderer) Textures() []gpu.TextureID {
	return append([]gpu.TextureID(nil), r.order...)
}

// Len returns the number of registered drawables.
func (r *Renderer) Len() int { return len(r.registered) }

// Render draws every registered drawable.
func (r *Renderer) Render(vp ViewProjection) {
	startTime := time.Now()
	r.stats = Stats{TexturesInUse: len(r.order)}

	r.program.Bind()
	r.uView.Load(vp.View)
	r.uProjection.Load(vp.Projection)

	viewport, cull := r.viewport(vp)
	for _, tex := range r.order {
		g := r.groups[tex]
		if tex != gpu.NoTexture {
			r.dev.BindTexture(TextureUnit, tex)
		}
		if r.opts.BeforeGroup != nil {
			r.opts.BeforeGroup(r.program, tex)
		}
		for _, d := range g.drawables {
			d.Commit()
			el := d.Element()
			if el == nil {
				log.Printf("WARNING: renderer %q: drawable %p lost its render data, skipping", r.name, d)
				r.stats.Dropped++
				continue
			}
			world := d.WorldMatrix()
			if cull && !el.Bounds.Empty() && !viewport.Intersects(geom.TransformBox(world, el.Bounds)) {
				r.stats.Culled++
				continue
			}
			r.batch(d, el, &world)
		}
		r.flush()
	}

	r.stats.LastRenderTimeUs = float64(time.Since(startTime).Microseconds())
	renderLogger.Printf("%s: %d objects, %d draw calls, %d textures, %d culled",
		r.name, r.stats.ObjectCount, r.stats.DrawCalls, r.stats.TexturesInUse, r.stats.Culled)
}

// batch adds one drawable, flushing and retrying once if the batch is full.
func (r *Renderer) batch(d Drawable, el *memory.Element, world *mgl32.Mat4) {
	ok, err := r.ao.TryBatch(el, world)
	if err == nil && !ok {
		r.flush()
		ok, err = r.ao.TryBatch(el, world)
	}
	if err != nil {
		log.Printf("WARNING: renderer %q: dropping drawable %p: %v", r.name, d, err)
		r.stats.Dropped++
		return
	}
	if !ok {
		// Registration guarantees a drawable fits an empty batch; its element
		// has grown since.
		log.Printf("WARNING: renderer %q: drawable %p no longer fits an empty batch, dropping", r.name, d)
		r.stats.Dropped++
		return
	}
	r.stats.ObjectCount++
}

func (r *Renderer) flush() {
	if r.ao.Flush() > 0 {
		r.stats.DrawCalls++
	}
}

// viewport returns the world-space box visible through vp, and whether
// culling applies this frame. A singular view-projection disables it.
func (r *Renderer) viewport(vp ViewProjection) (geom.Box, bool) {
	if !r.opts.Cull {
		return geom.Box{}, false
	}
	pv := vp.Projection.Mul4(vp.View)
	if pv.Det() == 0 {
		return geom.Box{}, false
	}
	return geom.TransformBox(pv.Inv(), geom.MakeBox(-1, -1, 2, 2)), true
}

// Stats returns the counters of the last Render.
func (r *Renderer) Stats() Stats { return r.stats }

// Close releases the array object and the program.
func (r *Renderer) Close() {
	r.ao.Close()
	r.program.Close()
}
