// Package config holds the engine's startup settings. Settings come from
// built-in defaults, optionally overlaid by a YAML file and then by
// environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DefaultSpriteCapacity is the number of sprites one flush can carry.
const DefaultSpriteCapacity = 8096

// Config is the full engine configuration.
type Config struct {
	Window    Window    `yaml:"window"`
	Batching  Batching  `yaml:"batching"`
	Culling   bool      `yaml:"culling"`
	Debug     Debug     `yaml:"debug"`
	Generator Generator `yaml:"generator"`
}

// Window sizes and titles the main window.
type Window struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Title  string `yaml:"title"`
	VSync  bool   `yaml:"vsync"`
}

// Batching sizes the renderers' array objects. Sprite capacity counts
// sprites, mesh capacity counts vertices.
type Batching struct {
	SpriteCapacity int        `yaml:"sprite_capacity"`
	MeshCapacity   int        `yaml:"mesh_capacity"`
	MeshTint       [4]float32 `yaml:"mesh_tint"`
}

// Debug switches the per-subsystem debug loggers on.
type Debug struct {
	Runtime bool `yaml:"runtime"`
	Render  bool `yaml:"render"`
	Memory  bool `yaml:"memory"`
}

// Generator seeds the composition generator.
type Generator struct {
	Seed       int64 `yaml:"seed"`       // 0 picks one from the clock
	Complexity *int  `yaml:"complexity"` // nil for randomized features
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Window: Window{
			Width:  1280,
			Height: 960,
			Title:  "Tessera",
			VSync:  true,
		},
		Batching: Batching{
			SpriteCapacity: DefaultSpriteCapacity,
			MeshCapacity:   3 * DefaultSpriteCapacity,
			MeshTint:       [4]float32{1, 1, 1, 1},
		},
		Culling: true,
	}
}

// Load reads the YAML file at path over the defaults. Keys missing from the
// file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// FromEnv applies environment overrides: TESSERA_SEED and the
// TESSERA_DEBUG_{RUNTIME,RENDER,MEMORY} switches.
func FromEnv(cfg Config) (Config, error) {
	if s := os.Getenv("TESSERA_SEED"); s != "" {
		seed, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("invalid TESSERA_SEED value '%s': %w", s, err)
		}
		cfg.Generator.Seed = seed
	}
	for _, sw := range []struct {
		env string
		dst *bool
	}{
		{"TESSERA_DEBUG_RUNTIME", &cfg.Debug.Runtime},
		{"TESSERA_DEBUG_RENDER", &cfg.Debug.Render},
		{"TESSERA_DEBUG_MEMORY", &cfg.Debug.Memory},
	} {
		if os.Getenv(sw.env) == "1" {
			*sw.dst = true
		}
	}
	return cfg, nil
}

// Validate checks the configuration is usable.
func (c Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height)
	}
	if c.Batching.SpriteCapacity <= 0 {
		return fmt.Errorf("sprite capacity must be positive, got %d", c.Batching.SpriteCapacity)
	}
	if c.Batching.MeshCapacity < 3 {
		return fmt.Errorf("mesh capacity %d can't hold a triangle", c.Batching.MeshCapacity)
	}
	for _, v := range c.Batching.MeshTint {
		if v < 0 || v > 1 {
			return fmt.Errorf("mesh tint %v out of [0, 1]", c.Batching.MeshTint)
		}
	}
	if c.Generator.Complexity != nil && *c.Generator.Complexity <= 0 {
		return fmt.Errorf("generator complexity must be positive, got %d", *c.Generator.Complexity)
	}
	return nil
}

// Marshal renders the configuration as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
