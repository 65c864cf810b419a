package mesh

import (
	"unsafe"

	"github.com/google/uuid"
)

// Vertex is the interleaved vertex layout read by the vertex shader through a buffer device
// address. The uv coordinates are split across the padding slots of the two vec3 members so the
// struct packs into three vec4s.
type Vertex struct {
	Position [3]float32
	UVX      float32
	Normal   [3]float32
	UVY      float32
	Color    [4]float32
}

// VertexSize is the size in bytes of a single Vertex on the GPU
const VertexSize = int(unsafe.Sizeof(Vertex{}))

const indexSize = int(unsafe.Sizeof(uint32(0)))

// Mesh is CPU-side geometry. ID is unique per mesh and is the key used by Cache.
type Mesh struct {
	ID       string
	Name     string
	Vertices []Vertex
	Indices  []uint32
}

// New creates a mesh with a freshly generated identity
func New(name string, vertices []Vertex, indices []uint32) *Mesh {
	return &Mesh{
		ID:       uuid.NewString(),
		Name:     name,
		Vertices: vertices,
		Indices:  indices,
	}
}

// VertexBytes returns the size of the vertex array in bytes
func (m *Mesh) VertexBytes() int {
	return len(m.Vertices) * VertexSize
}

// IndexBytes returns the size of the index array in bytes
func (m *Mesh) IndexBytes() int {
	return len(m.Indices) * indexSize
}

func vertexData(vertices []Vertex) []byte {
	if len(vertices) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), len(vertices)*VertexSize)
}

func indexData(indices []uint32) []byte {
	if len(indices) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&indices[0])), len(indices)*indexSize)
}
