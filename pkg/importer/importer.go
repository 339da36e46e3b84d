// Package importer turns asset files into the normalized scene graph.
//
// Each backend handles one family of formats; Registry dispatches on the
// file extension so callers only ever see *scenegraph.Scene.
package importer

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/hungryfish/pkg/scenegraph"
)

// ErrUnsupportedFormat is returned for extensions no backend is registered for.
var ErrUnsupportedFormat = errors.New("unsupported asset format")

// Importer reads one asset file into a scene graph.
type Importer interface {
	Import(path string) (*scenegraph.Scene, error)
}

// Options are post-processing steps applied after a backend has parsed a file.
// Triangulation is always performed by the backends themselves.
type Options struct {
	// FlipUVs mirrors texture coordinates vertically (v = 1 - v).
	FlipUVs bool
	// GenerateNormals fills in smooth normals for meshes that have none.
	GenerateNormals bool
	// Log receives non-fatal import diagnostics such as a missing MTL
	// library. Nil means the "importer" logger.
	Log *zap.Logger
}

// Registry selects an importer by lower-cased file extension.
type Registry struct {
	opts  Options
	byExt map[string]Importer
}

// NewRegistry creates an empty registry applying opts to every import.
func NewRegistry(opts Options) *Registry {
	return &Registry{
		opts:  opts,
		byExt: make(map[string]Importer),
	}
}

// Default returns a registry with every built-in backend registered.
func Default(opts Options) *Registry {
	r := NewRegistry(opts)
	gl := &GLTF{}
	r.Register(".gltf", gl)
	r.Register(".glb", gl)
	r.Register(".obj", &OBJ{Log: opts.Log})
	return r
}

// Register binds an importer to an extension such as ".glb".
func (r *Registry) Register(ext string, imp Importer) {
	r.byExt[strings.ToLower(ext)] = imp
}

// Extensions returns the registered extensions, sorted.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

// Import parses path with the backend registered for its extension and
// applies post-processing.
func (r *Registry) Import(path string) (*scenegraph.Scene, error) {
	ext := strings.ToLower(filepath.Ext(path))
	imp, ok := r.byExt[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	scene, err := imp.Import(path)
	if err != nil {
		return nil, err
	}
	if scene == nil || scene.Root == nil {
		return nil, fmt.Errorf("%s: %w", path, scenegraph.ErrIncompleteScene)
	}

	PostProcess(scene, r.opts)
	return scene, nil
}

// PostProcess applies opts to every mesh of scene in place.
func PostProcess(scene *scenegraph.Scene, opts Options) {
	for _, m := range scene.Meshes {
		if opts.FlipUVs {
			for _, channel := range m.TexCoords {
				for i := range channel {
					channel[i][1] = 1 - channel[i][1]
				}
			}
		}
		if opts.GenerateNormals && !m.HasNormals() {
			m.Normals = smoothNormals(m)
		}
	}
}

// smoothNormals accumulates face normals per vertex and normalizes the sums.
func smoothNormals(m *scenegraph.Mesh) [][3]float32 {
	n := len(m.Positions)
	sums := make([]mgl32.Vec3, n)
	for _, f := range m.Faces {
		if len(f.Indices) < 3 {
			continue
		}
		a, b, c := f.Indices[0], f.Indices[1], f.Indices[2]
		if int(a) >= n || int(b) >= n || int(c) >= n {
			continue
		}
		p0 := mgl32.Vec3(m.Positions[a])
		e1 := mgl32.Vec3(m.Positions[b]).Sub(p0)
		e2 := mgl32.Vec3(m.Positions[c]).Sub(p0)
		face := e1.Cross(e2)
		for _, idx := range f.Indices {
			if int(idx) < n {
				sums[idx] = sums[idx].Add(face)
			}
		}
	}

	normals := make([][3]float32, n)
	for i, s := range sums {
		if s.Len() < 1e-8 {
			continue
		}
		normals[i] = s.Normalize()
	}
	return normals
}
