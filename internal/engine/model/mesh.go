package model

import "github.com/Faultbox/hungryfish/pkg/scenegraph"

// MeshBuilder converts scene meshes into Mesh values, resolving material
// textures through a TextureResolver.
type MeshBuilder struct {
	scene    *scenegraph.Scene
	resolver *TextureResolver
}

// NewMeshBuilder creates a builder for meshes of scene.
func NewMeshBuilder(scene *scenegraph.Scene, resolver *TextureResolver) *MeshBuilder {
	return &MeshBuilder{scene: scene, resolver: resolver}
}

// Build extracts vertices, indices and textures of src.
//
// Missing normals or a missing first UV channel leave those attributes zero.
// Face index lists are appended as they are, whatever their length. Texture
// slots are visited from TextureNone to TextureUnknown and bindings within a
// slot in order.
func (b *MeshBuilder) Build(src *scenegraph.Mesh) *Mesh {
	m := &Mesh{
		Name:     src.Name,
		Vertices: make([]Vertex, len(src.Positions)),
	}

	hasNormals := src.HasNormals()
	hasUV := src.HasTexCoords(0)
	for i, p := range src.Positions {
		v := Vertex{Position: p}
		if hasNormals {
			v.Normal = src.Normals[i]
		}
		if hasUV {
			v.TexCoord = src.TexCoords[0][i]
		}
		m.Vertices[i] = v
	}

	for _, f := range src.Faces {
		m.Indices = append(m.Indices, f.Indices...)
	}

	m.Bounds = computeBounds(m.Vertices)
	m.Textures = b.textures(src.MaterialIndex)
	return m
}

func (b *MeshBuilder) textures(materialIndex int) []Texture {
	if materialIndex < 0 || materialIndex >= len(b.scene.Materials) {
		return nil
	}
	mat := b.scene.Materials[materialIndex]
	if mat == nil {
		return nil
	}

	var out []Texture
	for _, typ := range scenegraph.TextureTypes() {
		for i := 0; i < mat.TextureCount(typ); i++ {
			if tex, ok := b.resolver.Resolve(mat.Texture(typ, i), typ); ok {
				out = append(out, tex)
			}
		}
	}
	return out
}
