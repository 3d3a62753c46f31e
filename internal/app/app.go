// Package app ties the engine together: it owns the scene graph, the render
// pipeline and the view, and turns generated compositions into entities.
package app

import (
	"fmt"
	"log"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/irfansharif/tessera/internal/config"
	"github.com/irfansharif/tessera/internal/gen"
	"github.com/irfansharif/tessera/internal/geom"
	"github.com/irfansharif/tessera/internal/gpu"
	"github.com/irfansharif/tessera/internal/memory"
	"github.com/irfansharif/tessera/internal/palette"
	"github.com/irfansharif/tessera/internal/render"
	"github.com/irfansharif/tessera/internal/scene"
)

const maxGenerationAttempts = 10 // maximum number of attempts to generate a valid composition

// App is the engine context, built once at startup and handed to whatever
// needs it.
type App struct {
	Config    config.Config
	Device    gpu.Device
	Graph     *scene.Graph
	Pipeline  *render.Pipeline
	Generator *gen.Generator
	View      *View
	Clusters  *ClusterManager
}

// NewApp builds the renderers and an empty scene. Shader failures are
// returned; callers can't continue without them.
func NewApp(dev gpu.Device, cfg config.Config, view *View, seed int64) (_ *App, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Debug.Memory {
		memory.EnableDebugLogging()
	}
	if cfg.Debug.Render {
		render.EnableDebugLogging()
	}

	pipeline := render.NewPipeline()
	defer func() {
		if err != nil {
			pipeline.Close()
		}
	}()

	sprites, err := render.NewSpriteRenderer(dev, cfg.Batching.SpriteCapacity, cfg.Culling)
	if err != nil {
		return nil, err
	}
	if err := pipeline.Add(render.KindSprite, sprites); err != nil {
		sprites.Close()
		return nil, err
	}
	meshes, err := render.NewMeshRenderer(dev, cfg.Batching.MeshCapacity, cfg.Culling, mgl32.Vec4(cfg.Batching.MeshTint))
	if err != nil {
		return nil, err
	}
	if err := pipeline.Add(render.KindMesh, meshes); err != nil {
		meshes.Close()
		return nil, err
	}

	return &App{
		Config:    cfg,
		Device:    dev,
		Graph:     scene.NewGraph(),
		Pipeline:  pipeline,
		Generator: gen.NewGenerator(),
		View:      view,
		Clusters:  NewClusterManager(seed),
	}, nil
}

// Close releases every GPU resource the app owns.
func (app *App) Close() {
	app.Pipeline.Close()
}

// CreateCluster generates a new cluster at the specified canvas position.
func (app *App) CreateCluster(canvasX, canvasY float64, complexity *int) (*Cluster, bool) {
	seed := app.Clusters.IncrementSeed()
	comp, ok := app.GenerateComposition(seed, complexity)
	if !ok {
		log.Printf("Failed to generate valid composition after %d attempts", maxGenerationAttempts)
		return nil, false
	}

	c := &Cluster{
		CanvasPos:   geom.MakePoint(canvasX, canvasY),
		Composition: comp,
		Seed:        seed,
		Complexity:  complexity,
	}
	if err := app.populate(c); err != nil {
		log.Printf("WARNING: building cluster at (%.0f, %.0f): %v", canvasX, canvasY, err)
		return nil, false
	}
	return app.Clusters.Add(c), true
}

// RegenerateClosest rebuilds the cluster closest to the given canvas point
// from its seed, with a new complexity if one is given.
func (app *App) RegenerateClosest(canvasX, canvasY float64, complexity *int) bool {
	clusters := app.Clusters.FindClosest(geom.MakePoint(canvasX, canvasY))
	if len(clusters) == 0 {
		return false
	}
	c := clusters[0]
	if complexity == nil {
		complexity = c.Complexity
	}
	comp, ok := app.GenerateComposition(c.Seed, complexity)
	if !ok {
		return false // keep the old geometry
	}

	app.depopulate(c)
	c.Composition = comp
	c.Complexity = complexity
	if err := app.populate(c); err != nil {
		log.Printf("WARNING: rebuilding cluster %d: %v", c.ID, err)
		app.Clusters.Remove(c.ID)
		return false
	}
	return true
}

// DeleteClosest removes the cluster closest to the given canvas point.
func (app *App) DeleteClosest(canvasX, canvasY float64) bool {
	clusters := app.Clusters.FindClosest(geom.MakePoint(canvasX, canvasY))
	if len(clusters) == 0 {
		return false
	}
	app.DeleteCluster(clusters[0])
	return true
}

// DeleteCluster unregisters a cluster's drawables and drops its subtree.
func (app *App) DeleteCluster(c *Cluster) {
	app.depopulate(c)
	app.Clusters.Remove(c.ID)
}

// GenerateComposition generates a composition with the given base seed,
// retrying with successive seeds until a valid one comes out.
func (app *App) GenerateComposition(baseSeed int64, complexity *int) (gen.Composition, bool) {
	for attempt := 0; attempt < maxGenerationAttempts; attempt++ {
		comp := app.Generator.Generate(baseSeed+int64(attempt), complexity)
		if comp.Valid() {
			return comp, true
		}
		if attempt < maxGenerationAttempts-1 {
			log.Printf("WARNING: Composition generation failed, retrying (attempt %d/%d)", attempt+1, maxGenerationAttempts)
		}
	}
	log.Printf("WARNING: Failed to generate valid composition after %d attempts", maxGenerationAttempts)
	return gen.Composition{}, false
}

// populate turns c's composition into entities under a fresh root and
// registers the drawable ones.
func (app *App) populate(c *Cluster) error {
	rng := rand.New(rand.NewSource(c.Seed))
	pal := palette.Shimmered(palette.RandomPalette(rng), c.Composition.Shimmer, rng)

	entities := make([]*scene.Entity, len(c.Composition.Nodes))
	for i, n := range c.Composition.Nodes {
		parent := scene.NoNode
		if n.Parent >= 0 {
			parent = entities[n.Parent].Node()
		}
		kind, el, err := makeElement(n, pal)
		if err != nil {
			// Keep the node so descendants still have a parent; it just
			// isn't drawn.
			log.Printf("WARNING: cluster seed %d: node %d: %v", c.Seed, i, err)
		}
		e, err := scene.NewEntity(app.Graph, parent, kind, el)
		if err != nil {
			if c.Root != nil {
				app.depopulate(c)
			}
			return err
		}
		entities[i] = e

		tr := e.Transform()
		offset := n.Offset
		if n.Parent < 0 {
			offset = c.CanvasPos
		}
		tr.SetDisplacement(float32(offset.X), float32(offset.Y))
		tr.SetRotation(float32(n.Rotation))
		tr.SetScale(float32(n.Scale), float32(n.Scale))

		if i == 0 {
			c.Root = e
		}
		if n.Spin != 0 {
			c.spinners = append(c.spinners, spinner{entity: e, speed: n.Spin})
		}
		if el != nil && app.Pipeline.Register(e) {
			c.Drawables = append(c.Drawables, e)
		}
	}
	if c.Root == nil {
		return fmt.Errorf("composition has no nodes")
	}
	return nil
}

// depopulate unregisters c's drawables and removes its subtree.
func (app *App) depopulate(c *Cluster) {
	for _, e := range c.Drawables {
		app.Pipeline.Unregister(e)
	}
	if c.Root != nil && c.Root.Alive() {
		if err := app.Graph.Remove(c.Root.Node()); err != nil {
			log.Printf("WARNING: removing cluster %d: %v", c.ID, err)
		}
	}
	c.Root, c.Drawables, c.spinners = nil, nil, nil
}

// makeElement builds the render data for a generated node.
func makeElement(n gen.Node, pal palette.Palette) (string, *memory.Element, error) {
	switch n.Kind {
	case gen.Sprite:
		el := memory.NewElement(gpu.Points).
			Set("aSize", memory.Floats(float32(n.Size.X), float32(n.Size.Y))).
			Set("aColor", memory.Color(pal.Accent(n.Color, 1)))
		el.Bounds = geom.MakeBox(-n.Size.X/2, -n.Size.Y/2, n.Size.X, n.Size.Y)
		return render.KindSprite, el, nil

	case gen.Tile:
		tris, err := geom.Triangulate(n.Polygon)
		if err != nil {
			return "", nil, err
		}
		pos := make([]float32, 0, 2*len(tris))
		for _, p := range tris {
			pos = append(pos, float32(p.X), float32(p.Y))
		}
		el := memory.NewElement(gpu.Triangles).
			Set("aPos", memory.Floats(pos...)).
			Set("aColor", memory.Color(pal.Gradient(n.Color, n.Color+1, 0.5)))
		el.Vertices = len(tris)
		el.Bounds, _ = geom.BoundsOf(n.Polygon)
		return render.KindMesh, el, nil

	default:
		return "", nil, nil
	}
}

// Update advances animations by dt seconds. It only issues transform
// requests; they take effect when the next frame commits them.
func (app *App) Update(dt float64) {
	for _, c := range app.Clusters.clusters {
		for _, s := range c.spinners {
			s.entity.Transform().RotateBy(float32(s.speed * dt))
		}
	}
}

// Render draws one frame.
func (app *App) Render() {
	app.Graph.BeginFrame()
	app.Pipeline.Render(app.View.ViewProjection())
}

// Stats returns the last frame's render counters.
func (app *App) Stats() render.Stats { return app.Pipeline.Stats() }

// MemoryStats returns the batching stats of every renderer, by kind.
func (app *App) MemoryStats() map[string]memory.Stats {
	out := make(map[string]memory.Stats)
	for _, kind := range app.Pipeline.Kinds() {
		r, _ := app.Pipeline.Renderer(kind)
		out[kind] = r.ArrayObject().Stats()
	}
	return out
}

// PrintMemoryStats logs every renderer's batching stats.
func (app *App) PrintMemoryStats() {
	for _, kind := range app.Pipeline.Kinds() {
		r, _ := app.Pipeline.Renderer(kind)
		r.ArrayObject().PrintStats()
	}
}
