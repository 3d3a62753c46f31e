// Package memory manages the GPU-side staging buffers of the batching core.
//
// An ArrayObject bundles one fixed-capacity attribute buffer per shader
// attribute and an optional instance-data store. Drawables are appended
// with TryBatch until capacity runs out; Flush uploads everything with
// sub-data writes, issues a single draw call and resets for the next batch.
package memory

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/irfansharif/tessera/internal/gpu"
)

var memoryLogger *log.Logger = log.New(io.Discard, "", 0)

func init() {
	if os.Getenv("TESSERA_DEBUG_MEMORY") == "1" {
		EnableDebugLogging()
	}
}

// EnableDebugLogging routes memory diagnostics to stdout.
func EnableDebugLogging() {
	memoryLogger = log.New(os.Stdout, "[memory] ", log.Ltime|log.Lmsgprefix)
}

// InstanceTextureUnit is the texture unit the instance-data store is bound
// to during a flush. Unit 0 is left for the drawables' own textures.
const InstanceTextureUnit = 1

// ErrEmptyElement is returned for elements that occupy no records.
var ErrEmptyElement = errors.New("element has no vertices")

var identity = mgl32.Ident4()

// ArrayObject is the batching unit: a vertex array, its attribute buffers,
// an optional instance store and a running count of batched records.
//
// Capacity is counted in records. For gpu.Points a record is one drawable
// (expanded to a quad by a geometry stage); for gpu.Triangles a record is
// one vertex.
type ArrayObject struct {
	name      string
	dev       gpu.Device
	vao       uint32
	topology  gpu.Topology
	capacity  int
	count     int
	buffers   []*AttributeBuffer
	instances *InstanceStore
	stats     Stats
}

// NewArrayObject allocates an array object for the given attributes. If
// instanced is set, an instance-data store with room for one transform per
// record is allocated as well. On error nothing stays allocated.
func NewArrayObject(
	dev gpu.Device, name string, topology gpu.Topology, capacity int, attributes []Attribute, instanced bool,
) (_ *ArrayObject, err error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("array object %q: capacity must be positive, got %d", name, capacity)
	}
	if topology == gpu.Triangles && capacity < 3 {
		return nil, fmt.Errorf("array object %q: triangle capacity %d can't hold a triangle", name, capacity)
	}
	seen := make(map[uint32]string, len(attributes))
	for _, attr := range attributes {
		if err := attr.Validate(); err != nil {
			return nil, fmt.Errorf("array object %q: %w", name, err)
		}
		if other, ok := seen[attr.Location]; ok {
			return nil, fmt.Errorf("array object %q: attributes %s and %s share location %d", name, other, attr.Name, attr.Location)
		}
		seen[attr.Location] = attr.Name
		if attr.Source == FromInstanceIndex && !instanced {
			return nil, fmt.Errorf("array object %q: attribute %s needs an instance store", name, attr.Name)
		}
	}

	ao := &ArrayObject{
		name:     name,
		dev:      dev,
		topology: topology,
		capacity: capacity,
	}
	defer func() {
		if err != nil {
			ao.Close()
		}
	}()

	ao.vao = dev.NewVertexArray()
	for _, attr := range attributes {
		ao.createAttributeBuffer(attr)
	}
	if instanced {
		ao.instances = newInstanceStore(dev, capacity)
	}

	ao.stats.Capacity = capacity
	ao.stats.GPUBytes = ao.gpuBytes()
	memoryLogger.Printf("allocated array object %q: %s, %d records, %d attributes, instanced=%t, %s GPU",
		name, topology, capacity, len(attributes), instanced, formatNumber(ao.stats.GPUBytes))
	return ao, nil
}

// createAttributeBuffer allocates a typed buffer sized capacity × arity,
// bound at the attribute's shader location.
func (ao *ArrayObject) createAttributeBuffer(attr Attribute) *AttributeBuffer {
	b := newAttributeBuffer(ao.dev, ao.vao, attr, ao.capacity)
	ao.buffers = append(ao.buffers, b)
	return b
}

func (ao *ArrayObject) gpuBytes() int64 {
	var total int64
	for _, b := range ao.buffers {
		total += b.Bytes()
	}
	if ao.instances != nil {
		total += ao.instances.Bytes()
	}
	return total
}

// Name returns the array object's name.
func (ao *ArrayObject) Name() string { return ao.name }

// Topology returns the primitive type drawn on flush.
func (ao *ArrayObject) Topology() gpu.Topology { return ao.topology }

// Capacity returns the maximum number of records per batch.
func (ao *ArrayObject) Capacity() int { return ao.capacity }

// Count returns the number of records currently batched.
func (ao *ArrayObject) Count() int { return ao.count }

// Buffers returns the attribute buffers in declaration order.
func (ao *ArrayObject) Buffers() []*AttributeBuffer { return ao.buffers }

// Instances returns the instance-data store, or nil if there is none.
func (ao *ArrayObject) Instances() *InstanceStore { return ao.instances }

// TryBatch appends el to the current batch. It returns false, touching
// nothing, when the element doesn't fit in the remaining capacity; the
// caller is expected to Flush and retry. A nil transform stages identity.
//
// Errors are reserved for elements that can never be batched here (wrong
// topology, malformed payloads); they also leave the batch untouched.
func (ao *ArrayObject) TryBatch(el *Element, transform *mgl32.Mat4) (bool, error) {
	if el.Topology != ao.topology {
		return false, fmt.Errorf("array object %q: can't batch %s element into %s batch", ao.name, el.Topology, ao.topology)
	}
	footprint := el.Footprint()
	if footprint <= 0 {
		return false, ErrEmptyElement
	}
	if ao.count+footprint > ao.capacity {
		return false, nil
	}

	// Resolve everything before writing so a bad payload can't leave a
	// partially staged record behind.
	type staged struct {
		payload   Payload
		perVertex bool
	}
	resolved := make([]staged, len(ao.buffers))
	for i, b := range ao.buffers {
		if b.attr.Source == FromInstanceIndex {
			continue
		}
		p, perVertex, err := b.attr.resolve(el)
		if err != nil {
			return false, fmt.Errorf("array object %q: %w", ao.name, err)
		}
		resolved[i] = staged{p, perVertex}
	}

	var index int32
	if ao.instances != nil {
		m := identity
		if transform != nil {
			m = *transform
		}
		index = ao.instances.push(m)
	}
	for i, b := range ao.buffers {
		if b.attr.Source == FromInstanceIndex {
			b.stageIndex(index, footprint)
			continue
		}
		b.stage(resolved[i].payload, resolved[i].perVertex, footprint)
	}
	ao.count += footprint
	ao.stats.Batched++
	return true, nil
}

// Flush binds the vertex array, uploads every staged buffer, issues one draw
// call covering the batched records and resets the batch. It returns the
// number of records drawn; an empty batch issues no draw call.
func (ao *ArrayObject) Flush() int {
	drawn := ao.count
	if drawn == 0 {
		return 0
	}

	ao.dev.BindVertexArray(ao.vao)
	var uploaded int64
	for _, b := range ao.buffers {
		uploaded += b.upload(ao.dev)
	}
	if ao.instances != nil {
		uploaded += ao.instances.upload(ao.dev)
		ao.dev.BindInstanceTexture(InstanceTextureUnit, ao.instances.Texture())
	}
	ao.dev.DrawArrays(ao.topology, 0, drawn)
	ao.dev.BindVertexArray(0)

	util := float64(drawn) / float64(ao.capacity)
	if util > ao.stats.PeakUtilization {
		ao.stats.PeakUtilization = util
	}
	ao.stats.Flushes++
	ao.stats.RecordsDrawn += int64(drawn)
	ao.stats.UploadedBytes += uploaded
	ao.stats.LastUtilization = util

	ao.reset()
	return drawn
}

func (ao *ArrayObject) reset() {
	for _, b := range ao.buffers {
		b.reset()
	}
	if ao.instances != nil {
		ao.instances.reset()
	}
	ao.count = 0
}

// Close releases every GPU handle the array object owns. It's safe to call
// more than once.
func (ao *ArrayObject) Close() {
	for _, b := range ao.buffers {
		b.release(ao.dev)
	}
	ao.buffers = nil
	if ao.instances != nil {
		ao.instances.release(ao.dev)
		ao.instances = nil
	}
	if ao.vao != 0 {
		ao.dev.DeleteVertexArray(ao.vao)
		ao.vao = 0
	}
	ao.count = 0
}
