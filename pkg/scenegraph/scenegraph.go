// Package scenegraph defines the importer-neutral scene representation
// consumed by the model loader: a node tree referencing meshes, materials
// with type-tagged texture bindings, and embedded texture blobs.
package scenegraph

import "errors"

// EmbeddedMarker prefixes texture references that index Scene.Textures.
const EmbeddedMarker = '*'

// ErrIncompleteScene is returned by importers when a file parsed but did not
// yield a usable node hierarchy.
var ErrIncompleteScene = errors.New("incomplete scene")

// Scene is a normalized asset: the node tree plus the tables it indexes.
type Scene struct {
	Root      *Node
	Meshes    []*Mesh
	Materials []*Material
	Textures  []*EmbeddedTexture
}

// Node is one element of the scene hierarchy.
type Node struct {
	Name     string
	Meshes   []int // indices into Scene.Meshes
	Children []*Node
}

// Mesh holds per-vertex attribute arrays and faces of one drawable surface.
type Mesh struct {
	Name      string
	Positions [][3]float32
	// Normals is either empty or the same length as Positions.
	Normals [][3]float32
	// TexCoords holds UV channels; only channel 0 is consumed by the loader.
	TexCoords     [][][2]float32
	Faces         []Face
	MaterialIndex int // -1 when no material is assigned
}

// Face is one polygon; importers triangulate so len(Indices) is normally 3.
type Face struct {
	Indices []uint32
}

// HasNormals reports whether every vertex carries a normal.
func (m *Mesh) HasNormals() bool {
	return len(m.Normals) > 0 && len(m.Normals) == len(m.Positions)
}

// HasTexCoords reports whether the given UV channel covers every vertex.
func (m *Mesh) HasTexCoords(channel int) bool {
	if channel < 0 || channel >= len(m.TexCoords) {
		return false
	}
	return len(m.TexCoords[channel]) > 0 && len(m.TexCoords[channel]) == len(m.Positions)
}

// Material binds texture references under semantic slots.
type Material struct {
	Name     string
	Textures map[TextureType][]string
}

// NewMaterial creates an empty named material.
func NewMaterial(name string) *Material {
	return &Material{
		Name:     name,
		Textures: make(map[TextureType][]string),
	}
}

// AddTexture appends a reference to the given slot.
func (m *Material) AddTexture(t TextureType, ref string) {
	if m.Textures == nil {
		m.Textures = make(map[TextureType][]string)
	}
	m.Textures[t] = append(m.Textures[t], ref)
}

// TextureCount returns the number of references bound to a slot.
func (m *Material) TextureCount(t TextureType) int {
	return len(m.Textures[t])
}

// Texture returns the i-th reference bound to a slot.
func (m *Material) Texture(t TextureType, i int) string {
	refs := m.Textures[t]
	if i < 0 || i >= len(refs) {
		return ""
	}
	return refs[i]
}

// EmbeddedTexture is image data stored inside the asset file.
//
// When Height is zero, Data is a compressed image of Width bytes and
// FormatHint names its encoding ("png", "jpg", ...). Otherwise Data holds
// Width*Height raw RGBA8 pixels.
type EmbeddedTexture struct {
	Width      int
	Height     int
	FormatHint string
	Data       []byte
}

// Compressed reports whether Data needs decoding.
func (t *EmbeddedTexture) Compressed() bool {
	return t.Height == 0
}

// MeshCount returns the number of meshes reachable from the root, counting
// repeated references.
func (s *Scene) MeshCount() int {
	if s.Root == nil {
		return 0
	}
	count := 0
	stack := []*Node{s.Root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == nil {
			continue
		}
		count += len(n.Meshes)
		stack = append(stack, n.Children...)
	}
	return count
}
