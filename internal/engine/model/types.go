// Package model loads 3D assets into GPU-ready meshes and draws them.
//
// Loading walks the imported scene graph, builds one Mesh per scene mesh,
// resolves every material texture through a per-model cache and uploads
// vertex and texture data through a Backend.
package model

import "github.com/Faultbox/hungryfish/pkg/scenegraph"

// Vertex is the interleaved GPU vertex layout (32 bytes).
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	TexCoord [2]float32
}

// Texture is one texture bound to a mesh. Textures with equal Identity
// share a Handle.
type Texture struct {
	Handle   uint32
	Type     scenegraph.TextureType
	Identity string
}

// MeshBuffers are the GPU objects backing an uploaded mesh.
type MeshBuffers struct {
	VAO        uint32
	VBO        uint32
	EBO        uint32
	IndexCount int32
}

// Valid reports whether the buffers can be drawn.
func (b MeshBuffers) Valid() bool {
	return b.VAO != 0 && b.IndexCount > 0
}

// Mesh holds one drawable surface of a model.
type Mesh struct {
	Name     string
	Vertices []Vertex
	Indices  []uint32
	Textures []Texture
	Bounds   Bounds
	Buffers  MeshBuffers
}

// Bounds holds an axis-aligned bounding box.
type Bounds struct {
	Min [3]float32
	Max [3]float32
}
