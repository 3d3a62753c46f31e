package memory

import (
	"github.com/irfansharif/tessera/internal/gpu"
)

// AttributeBuffer is a fixed-capacity CPU staging buffer mirroring one GPU
// vertex buffer. Exactly one of floats/ints is allocated, per the layout's
// element type.
type AttributeBuffer struct {
	attr     Attribute
	vbo      uint32
	capacity int // records

	floats []float32
	ints   []int32
}

// newAttributeBuffer allocates GPU and staging storage for capacity records
// of the attribute and binds it at the attribute's location in vao.
func newAttributeBuffer(dev gpu.Device, vao uint32, attr Attribute, capacity int) *AttributeBuffer {
	b := &AttributeBuffer{
		attr:     attr,
		vbo:      dev.NewAttributeBuffer(vao, attr.AttribLayout, capacity),
		capacity: capacity,
	}
	if attr.Type == gpu.Int {
		b.ints = make([]int32, 0, capacity*attr.Arity)
	} else {
		b.floats = make([]float32, 0, capacity*attr.Arity)
	}
	return b
}

// Attribute returns the attribute this buffer feeds.
func (b *AttributeBuffer) Attribute() Attribute { return b.attr }

// Len returns the number of staged records.
func (b *AttributeBuffer) Len() int {
	if b.attr.Type == gpu.Int {
		return len(b.ints) / b.attr.Arity
	}
	return len(b.floats) / b.attr.Arity
}

// Bytes returns the GPU-side size of the buffer.
func (b *AttributeBuffer) Bytes() int64 { return int64(b.capacity * b.attr.Arity * 4) }

// Floats returns a copy of the staged float values.
func (b *AttributeBuffer) Floats() []float32 { return append([]float32(nil), b.floats...) }

// Ints returns a copy of the staged int values.
func (b *AttributeBuffer) Ints() []int32 { return append([]int32(nil), b.ints...) }

// stage appends count records from p. Payloads that carry a single record
// are repeated for every vertex. Callers check capacity and payload shape
// first.
func (b *AttributeBuffer) stage(p Payload, perVertex bool, count int) {
	arity := b.attr.Arity
	for v := 0; v < count; v++ {
		off := 0
		if perVertex {
			off = v * arity
		}
		if b.attr.Type == gpu.Int {
			b.ints = append(b.ints, p.Ints[off:off+arity]...)
		} else {
			b.floats = append(b.floats, p.Floats[off:off+arity]...)
		}
	}
}

// stageIndex appends the same integer for count records.
func (b *AttributeBuffer) stageIndex(index int32, count int) {
	for v := 0; v < count; v++ {
		b.ints = append(b.ints, index)
	}
}

func (b *AttributeBuffer) upload(dev gpu.Device) int64 {
	if b.attr.Type == gpu.Int {
		dev.UploadInts(b.vbo, b.ints)
		return int64(len(b.ints) * 4)
	}
	dev.UploadFloats(b.vbo, b.floats)
	return int64(len(b.floats) * 4)
}

func (b *AttributeBuffer) reset() {
	b.floats = b.floats[:0]
	b.ints = b.ints[:0]
}

func (b *AttributeBuffer) release(dev gpu.Device) {
	if b.vbo != 0 {
		dev.DeleteBuffer(b.vbo)
		b.vbo = 0
	}
}

// InstanceStride is the number of floats per instance record: one
// column-major 4x4 matrix.
const InstanceStride = 16

// InstanceStore carries one world transform per batched drawable. Shaders
// read it by index through a texture buffer instead of having it duplicated
// per vertex.
type InstanceStore struct {
	buffer   uint32
	texture  uint32
	capacity int
	data     []float32
}

func newInstanceStore(dev gpu.Device, capacity int) *InstanceStore {
	buf, tex := dev.NewInstanceBuffer(capacity * InstanceStride)
	return &InstanceStore{
		buffer:   buf,
		texture:  tex,
		capacity: capacity,
		data:     make([]float32, 0, capacity*InstanceStride),
	}
}

// Len returns the number of staged instances.
func (s *InstanceStore) Len() int { return len(s.data) / InstanceStride }

// Texture returns the texture buffer exposing the store to shaders.
func (s *InstanceStore) Texture() uint32 { return s.texture }

// Bytes returns the GPU-side size of the store.
func (s *InstanceStore) Bytes() int64 { return int64(s.capacity * InstanceStride * 4) }

// Data returns a copy of the staged instance records.
func (s *InstanceStore) Data() []float32 { return append([]float32(nil), s.data...) }

// push appends a record and returns its index.
func (s *InstanceStore) push(m [InstanceStride]float32) int32 {
	idx := int32(s.Len())
	s.data = append(s.data, m[:]...)
	return idx
}

func (s *InstanceStore) upload(dev gpu.Device) int64 {
	dev.UploadFloats(s.buffer, s.data)
	return int64(len(s.data) * 4)
}

func (s *InstanceStore) reset() { s.data = s.data[:0] }

func (s *InstanceStore) release(dev gpu.Device) {
	if s.texture != 0 {
		dev.DeleteInstanceTexture(s.texture)
		s.texture = 0
	}
	if s.buffer != 0 {
		dev.DeleteBuffer(s.buffer)
		s.buffer = 0
	}
}
