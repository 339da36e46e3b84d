package model

import (
	"strconv"

	"go.uber.org/zap"

	"github.com/Faultbox/hungryfish/internal/engine/texture"
	"github.com/Faultbox/hungryfish/internal/logger"
	"github.com/Faultbox/hungryfish/pkg/importer"
	"github.com/Faultbox/hungryfish/pkg/scenegraph"
)

// SceneImporter parses an asset file. *importer.Registry implements it.
type SceneImporter interface {
	Import(path string) (*scenegraph.Scene, error)
}

// Backend is the GPU surface the model needs.
type Backend interface {
	TextureUploader
	UploadMesh(vertices []Vertex, indices []uint32) (MeshBuffers, error)
	BindTexture(unit int, handle uint32)
	DrawMesh(buf MeshBuffers)
	// ResetTextureUnit makes unit 0 active again.
	ResetTextureUnit()
	DeleteMesh(buf MeshBuffers)
	DeleteTexture(handle uint32)
}

// Uniforms is the part of a shader program Draw touches.
type Uniforms interface {
	Use()
	SetInt(name string, v int32)
}

// Deps are the collaborators of a Model. Backend is required; the rest fall
// back to the built-in importers (UVs flipped, diagnostics on Log), the
// texture decoder and the "model" logger.
type Deps struct {
	Importer SceneImporter
	Decoder  ImageDecoder
	Backend  Backend
	Log      *zap.Logger
}

// Model is a loaded asset: its meshes in traversal order plus the textures
// they share.
type Model struct {
	path     string
	meshes   []*Mesh
	cache    *TextureCache
	importer SceneImporter
	decoder  ImageDecoder
	backend  Backend
	log      *zap.Logger
}

// New creates an empty model.
func New(d Deps) *Model {
	m := &Model{
		cache:    NewTextureCache(),
		importer: d.Importer,
		decoder:  d.Decoder,
		backend:  d.Backend,
		log:      d.Log,
	}
	if m.log == nil {
		m.log = logger.Named("model")
	}
	if m.importer == nil {
		m.importer = importer.Default(importer.Options{FlipUVs: true, Log: m.log})
	}
	if m.decoder == nil {
		m.decoder = texture.NewDecoder()
	}
	return m
}

// Load imports path and appends its meshes. It never fails: an unreadable
// asset leaves the model empty, a bad texture leaves its slot out and a
// mesh whose buffers fail to upload is kept but not drawn. Every failure is
// logged. Calling Load again appends the new asset's meshes.
func (m *Model) Load(path string) {
	m.path = path
	log := m.log.With(zap.String("path", path))

	scene, err := m.importer.Import(path)
	if err != nil {
		log.Error("model import failed", zap.Error(err))
		return
	}

	resolver := NewTextureResolver(m.cache, m.decoder, m.backend, log, scene, path)
	builder := NewMeshBuilder(scene, resolver)

	before := len(m.meshes)
	Walk(scene, func(src *scenegraph.Mesh, _ int) {
		mesh := builder.Build(src)
		m.upload(mesh, log)
		m.meshes = append(m.meshes, mesh)
	}, func(node *scenegraph.Node, idx int) {
		log.Warn("node references missing mesh", zap.String("node", node.Name), zap.Int("mesh", idx))
	})

	hits, misses := m.cache.Stats()
	log.Info("model loaded",
		zap.Int("meshes", len(m.meshes)-before),
		zap.Int("textures", m.cache.Len()),
		zap.Int("cache_hits", hits),
		zap.Int("cache_misses", misses))
}

func (m *Model) upload(mesh *Mesh, log *zap.Logger) {
	if len(mesh.Vertices) == 0 || len(mesh.Indices) == 0 {
		log.Warn("mesh has no geometry", zap.String("mesh", mesh.Name))
		return
	}
	buf, err := m.backend.UploadMesh(mesh.Vertices, mesh.Indices)
	if err != nil {
		log.Warn("mesh upload failed", zap.String("mesh", mesh.Name), zap.Error(err))
		return
	}
	mesh.Buffers = buf
}

// Draw renders every uploaded mesh with s. Textures are bound to
// consecutive units and exposed as <type uniform><n>, n counting from 1 per
// texture type within the mesh, e.g. texture_diffuse1, texture_diffuse2,
// texture_specular1.
func (m *Model) Draw(s Uniforms) {
	for _, mesh := range m.meshes {
		if !mesh.Buffers.Valid() {
			continue
		}
		s.Use()

		counters := make(map[scenegraph.TextureType]int, len(mesh.Textures))
		for unit, tex := range mesh.Textures {
			counters[tex.Type]++
			s.SetInt(tex.Type.Uniform()+strconv.Itoa(counters[tex.Type]), int32(unit))
			m.backend.BindTexture(unit, tex.Handle)
		}

		m.backend.DrawMesh(mesh.Buffers)
		m.backend.ResetTextureUnit()
	}
}

// Destroy releases all GPU objects. Shared texture handles are deleted once.
func (m *Model) Destroy() {
	for _, mesh := range m.meshes {
		if mesh.Buffers.VAO != 0 {
			m.backend.DeleteMesh(mesh.Buffers)
			mesh.Buffers = MeshBuffers{}
		}
	}
	for _, h := range m.cache.Handles() {
		m.backend.DeleteTexture(h)
	}
	m.cache.Clear()
	m.meshes = nil
}

// Meshes returns the loaded meshes in traversal order.
func (m *Model) Meshes() []*Mesh {
	return m.meshes
}

// MeshCount returns the number of loaded meshes.
func (m *Model) MeshCount() int {
	return len(m.meshes)
}

// TextureCount returns the number of distinct textures uploaded.
func (m *Model) TextureCount() int {
	return m.cache.Len()
}

// Path returns the most recently loaded asset path.
func (m *Model) Path() string {
	return m.path
}

// Cache exposes the model's texture cache.
func (m *Model) Cache() *TextureCache {
	return m.cache
}

// Bounds returns the box enclosing every mesh with geometry. A model with
// no vertices yields the zero box.
func (m *Model) Bounds() Bounds {
	var b Bounds
	found := false
	for _, mesh := range m.meshes {
		if len(mesh.Vertices) == 0 {
			continue
		}
		if !found {
			b, found = mesh.Bounds, true
			continue
		}
		b = b.Union(mesh.Bounds)
	}
	return b
}
