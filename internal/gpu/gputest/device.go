// Package gputest provides a gpu.Device that records calls instead of
// issuing them, for tests that exercise batching without a GL context.
package gputest

import (
	"fmt"

	"github.com/irfansharif/tessera/internal/gpu"
)

// Draw records one DrawArrays call together with the state bound at the time.
type Draw struct {
	Program     uint32
	VertexArray uint32
	Texture     gpu.TextureID // bound to unit 0
	Topology    gpu.Topology
	First       int
	Count       int
}

// Device is a recording gpu.Device. The zero value is not usable; call New.
type Device struct {
	// LinkErr, if set, is returned by LinkProgram.
	LinkErr error
	// ValidateErr, if set, is returned by ValidateProgram.
	ValidateErr error

	Draws []Draw
	// UniformUploads counts uploads per location.
	UniformUploads map[int32]int
	// UniformValues holds the last uploaded value per location.
	UniformValues map[int32]any
	// Floats and Ints hold the last upload per buffer.
	Floats map[uint32][]float32
	Ints   map[uint32][]int32
	// BufferSizes holds the allocated element count per buffer.
	BufferSizes map[uint32]int

	nextHandle  uint32
	program     uint32
	vertexArray uint32
	textures    map[uint32]gpu.TextureID
	live        map[uint32]string
	locations   map[string]int32
}

var _ gpu.Device = (*Device)(nil)

// New returns an empty recording device.
func New() *Device {
	return &Device{
		UniformUploads: make(map[int32]int),
		UniformValues:  make(map[int32]any),
		Floats:         make(map[uint32][]float32),
		Ints:           make(map[uint32][]int32),
		BufferSizes:    make(map[uint32]int),
		textures:       make(map[uint32]gpu.TextureID),
		live:           make(map[uint32]string),
		locations:      make(map[string]int32),
	}
}

func (d *Device) alloc(kind string) uint32 {
	d.nextHandle++
	d.live[d.nextHandle] = kind
	return d.nextHandle
}

func (d *Device) free(handle uint32, kind string) {
	if got, ok := d.live[handle]; !ok || got != kind {
		panic(fmt.Sprintf("gputest: deleting %s %d which is not a live %s", kind, handle, kind))
	}
	delete(d.live, handle)
}

// Live returns the number of live handles of the given kind ("program",
// "vertex-array", "buffer", "texture"), or of every kind if kind is empty.
func (d *Device) Live(kind string) int {
	n := 0
	for _, k := range d.live {
		if kind == "" || k == kind {
			n++
		}
	}
	return n
}

// Reset forgets recorded draws and uniform upload counts.
func (d *Device) Reset() {
	d.Draws = nil
	d.UniformUploads = make(map[int32]int)
}

// DrawCounts returns the record count of every recorded draw, in order.
func (d *Device) DrawCounts() []int {
	counts := make([]int, len(d.Draws))
	for i, dr := range d.Draws {
		counts[i] = dr.Count
	}
	return counts
}

func (d *Device) LinkProgram(name string, _ []gpu.ShaderSource, _ []gpu.AttribLayout) (uint32, error) {
	if d.LinkErr != nil {
		return 0, fmt.Errorf("program %q: linking failed: %w", name, d.LinkErr)
	}
	return d.alloc("program"), nil
}

func (d *Device) ValidateProgram(uint32) error { return d.ValidateErr }

func (d *Device) UseProgram(program uint32) { d.program = program }

func (d *Device) DeleteProgram(program uint32) { d.free(program, "program") }

// UniformLocation hands out one location per (program, name) pair. Names
// prefixed with "missing" resolve to -1, as an optimized-out uniform would.
func (d *Device) UniformLocation(program uint32, name string) int32 {
	if len(name) >= 7 && name[:7] == "missing" {
		return -1
	}
	key := fmt.Sprintf("%d/%s", program, name)
	if loc, ok := d.locations[key]; ok {
		return loc
	}
	loc := int32(len(d.locations))
	d.locations[key] = loc
	return loc
}

func (d *Device) uniform(location int32, v any) {
	d.UniformUploads[location]++
	d.UniformValues[location] = v
}

func (d *Device) Uniform1f(location int32, v float32)          { d.uniform(location, v) }
func (d *Device) Uniform1i(location int32, v int32)            { d.uniform(location, v) }
func (d *Device) Uniform2f(location int32, v [2]float32)       { d.uniform(location, v) }
func (d *Device) Uniform4f(location int32, v [4]float32)       { d.uniform(location, v) }
func (d *Device) UniformMatrix4(location int32, m [16]float32) { d.uniform(location, m) }

func (d *Device) NewVertexArray() uint32 { return d.alloc("vertex-array") }

func (d *Device) BindVertexArray(vao uint32) { d.vertexArray = vao }

func (d *Device) DeleteVertexArray(vao uint32) { d.free(vao, "vertex-array") }

func (d *Device) NewAttributeBuffer(_ uint32, layout gpu.AttribLayout, capacity int) uint32 {
	buf := d.alloc("buffer")
	d.BufferSizes[buf] = capacity * layout.Arity
	return buf
}

func (d *Device) NewInstanceBuffer(floats int) (uint32, uint32) {
	buf := d.alloc("buffer")
	d.BufferSizes[buf] = floats
	return buf, d.alloc("texture")
}

func (d *Device) UploadFloats(buffer uint32, data []float32) {
	if len(data) > d.BufferSizes[buffer] {
		panic(fmt.Sprintf("gputest: upload of %d floats overflows buffer %d (%d)", len(data), buffer, d.BufferSizes[buffer]))
	}
	d.Floats[buffer] = append([]float32(nil), data...)
}

func (d *Device) UploadInts(buffer uint32, data []int32) {
	if len(data) > d.BufferSizes[buffer] {
		panic(fmt.Sprintf("gputest: upload of %d ints overflows buffer %d (%d)", len(data), buffer, d.BufferSizes[buffer]))
	}
	d.Ints[buffer] = append([]int32(nil), data...)
}

func (d *Device) DeleteBuffer(buffer uint32) {
	d.free(buffer, "buffer")
	delete(d.BufferSizes, buffer)
}

func (d *Device) NewTexture(int, int, []uint8) gpu.TextureID {
	return gpu.TextureID(d.alloc("texture"))
}

func (d *Device) BindTexture(unit uint32, texture gpu.TextureID) { d.textures[unit] = texture }

func (d *Device) BindInstanceTexture(unit uint32, texture uint32) {
	d.textures[unit] = gpu.TextureID(texture)
}

func (d *Device) DeleteTexture(texture gpu.TextureID) { d.free(uint32(texture), "texture") }

func (d *Device) DeleteInstanceTexture(texture uint32) { d.free(texture, "texture") }

func (d *Device) DrawArrays(topology gpu.Topology, first, count int) {
	d.Draws = append(d.Draws, Draw{
		Program:     d.program,
		VertexArray: d.vertexArray,
		Texture:     d.textures[0],
		Topology:    topology,
		First:       first,
		Count:       count,
	})
}
