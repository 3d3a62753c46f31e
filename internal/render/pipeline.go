package render

import (
	"fmt"
	"log"
)

// Tagged is a drawable that names the renderer it belongs to.
type Tagged interface {
	Drawable
	RenderKind() string
}

// Pipeline maps kind tags to renderers. A drawable's renderer is looked up
// once, when it's registered, and renderers draw in the order they were
// added.
type Pipeline struct {
	renderers map[string]*Renderer
	kinds     []string
	assigned  map[Drawable]*Renderer
}

// NewPipeline returns an empty pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{
		renderers: make(map[string]*Renderer),
		assigned:  make(map[Drawable]*Renderer),
	}
}

// Add installs r for kind. The pipeline owns r afterwards.
func (p *Pipeline) Add(kind string, r *Renderer) error {
	if _, ok := p.renderers[kind]; ok {
		return fmt.Errorf("pipeline: renderer for %q already installed", kind)
	}
	p.renderers[kind] = r
	p.kinds = append(p.kinds, kind)
	return nil
}

// Renderer returns the renderer installed for kind.
func (p *Pipeline) Renderer(kind string) (*Renderer, bool) {
	r, ok := p.renderers[kind]
	return r, ok
}

// Kinds returns the installed kinds in drawing order.
func (p *Pipeline) Kinds() []string {
	return append([]string(nil), p.kinds...)
}

// Register hands d to the renderer for its kind, moving it off any renderer
// it was registered with before.
func (p *Pipeline) Register(d Tagged) bool {
	r, ok := p.renderers[d.RenderKind()]
	if !ok {
		log.Printf("WARNING: pipeline: no renderer for kind %q, not registering %p", d.RenderKind(), d)
		return false
	}
	if prev, ok := p.assigned[d]; ok && prev != r {
		prev.Unregister(d)
		delete(p.assigned, d)
	}
	if !r.Register(d) {
		return false
	}
	p.assigned[d] = r
	return true
}

// Unregister removes d from whichever renderer holds it.
func (p *Pipeline) Unregister(d Drawable) bool {
	r, ok := p.assigned[d]
	if !ok {
		log.Printf("WARNING: pipeline: drawable %p is not registered", d)
		return false
	}
	delete(p.assigned, d)
	return r.Unregister(d)
}

// Len returns the number of registered drawables.
func (p *Pipeline) Len() int { return len(p.assigned) }

// Render runs every renderer.
func (p *Pipeline) Render(vp ViewProjection) {
	for _, kind := range p.kinds {
		p.renderers[kind].Render(vp)
	}
}

// Stats sums the last frame's counters over every renderer.
func (p *Pipeline) Stats() Stats {
	var total Stats
	for _, kind := range p.kinds {
		s := p.renderers[kind].Stats()
		total.DrawCalls += s.DrawCalls
		total.ObjectCount += s.ObjectCount
		total.TexturesInUse += s.TexturesInUse
		total.Culled += s.Culled
		total.Dropped += s.Dropped
		total.LastRenderTimeUs += s.LastRenderTimeUs
	}
	return total
}

// Close closes every renderer.
func (p *Pipeline) Close() {
	for _, kind := range p.kinds {
		p.renderers[kind].Close()
	}
	p.renderers = make(map[string]*Renderer)
	p.kinds = nil
	p.assigned = make(map[Drawable]*Renderer)
}
