package importer

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/hungryfish/internal/logger"
	"github.com/Faultbox/hungryfish/pkg/scenegraph"
)

// OBJ imports Wavefront OBJ files and their MTL libraries.
//
// Each object or group becomes a child node of the root; within a node one
// mesh is emitted per material used. Polygons are fan-triangulated. Texture
// map statements keep their file name as an external reference, relative to
// the OBJ file. An unreadable mtllib is logged and the import continues
// without its materials.
type OBJ struct {
	// Log receives non-fatal diagnostics; nil means logger.Named("importer").
	Log *zap.Logger
}

// mtlTextureSlots maps MTL statements to texture slots.
var mtlTextureSlots = map[string]scenegraph.TextureType{
	"map_kd":   scenegraph.TextureDiffuse,
	"map_ks":   scenegraph.TextureSpecular,
	"map_ka":   scenegraph.TextureAmbient,
	"map_ke":   scenegraph.TextureEmissive,
	"map_bump": scenegraph.TextureHeight,
	"bump":     scenegraph.TextureHeight,
	"norm":     scenegraph.TextureNormals,
	"map_d":    scenegraph.TextureOpacity,
	"disp":     scenegraph.TextureDisplacement,
	"refl":     scenegraph.TextureReflection,
	"map_ns":   scenegraph.TextureShininess,
}

// Import reads path and any mtllib it references.
func (o *OBJ) Import(path string) (*scenegraph.Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open obj %s: %w", path, err)
	}
	defer f.Close()

	log := o.Log
	if log == nil {
		log = logger.Named("importer")
	}

	p := newOBJParser(filepath.Dir(path), log)
	if err := p.parse(f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p.finish(filepath.Base(path))
}

type objCorner struct {
	v, vt, vn int
}

// objMesh accumulates de-indexed vertices for one (group, material) pair.
type objMesh struct {
	mesh    *scenegraph.Mesh
	corners map[objCorner]uint32
	hasUV   bool
	hasNorm bool
}

type objGroup struct {
	node   *scenegraph.Node
	meshes map[string]*objMesh
	order  []string
}

type objParser struct {
	dir string
	log *zap.Logger

	positions [][3]float32
	texcoords [][2]float32
	normals   [][3]float32

	materials   []*scenegraph.Material
	materialIdx map[string]int

	groups  []*objGroup
	current *objGroup
	curMtl  string

	scene *scenegraph.Scene
}

func newOBJParser(dir string, log *zap.Logger) *objParser {
	return &objParser{
		dir:         dir,
		log:         log,
		materialIdx: make(map[string]int),
		scene:       &scenegraph.Scene{},
	}
}

func (p *objParser) parse(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		fields := strings.Fields(line)
		ident, args := fields[0], fields[1:]

		var err error
		switch ident {
		case "v":
			var v [3]float32
			v, err = parseVec3(args)
			p.positions = append(p.positions, v)
		case "vn":
			var v [3]float32
			v, err = parseVec3(args)
			p.normals = append(p.normals, v)
		case "vt":
			var v [2]float32
			v, err = parseVec2(args)
			p.texcoords = append(p.texcoords, v)
		case "o", "g":
			name := strings.Join(args, " ")
			if name == "" {
				name = "group_" + strconv.Itoa(len(p.groups))
			}
			p.startGroup(name)
		case "usemtl":
			p.curMtl = strings.Join(args, " ")
		case "mtllib":
			for _, lib := range args {
				libPath := filepath.Join(p.dir, lib)
				if err := p.loadMTL(libPath); err != nil {
					p.log.Warn("material library failed to load",
						zap.String("path", libPath),
						zap.Error(err))
				}
			}
		case "f":
			err = p.addFace(args)
		}
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	return scanner.Err()
}

func (p *objParser) startGroup(name string) {
	g := &objGroup{
		node:   &scenegraph.Node{Name: name},
		meshes: make(map[string]*objMesh),
	}
	p.groups = append(p.groups, g)
	p.current = g
}

func (p *objParser) addFace(args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("face with %d vertices", len(args))
	}
	if p.current == nil {
		p.startGroup("default")
	}

	om, ok := p.current.meshes[p.curMtl]
	if !ok {
		om = &objMesh{
			mesh: &scenegraph.Mesh{
				Name:          p.current.node.Name,
				MaterialIndex: -1,
			},
			corners: make(map[objCorner]uint32),
		}
		if idx, found := p.materialIdx[p.curMtl]; found {
			om.mesh.MaterialIndex = idx
		}
		if p.curMtl != "" {
			om.mesh.Name += "_" + p.curMtl
		}
		p.current.meshes[p.curMtl] = om
		p.current.order = append(p.current.order, p.curMtl)
	}

	polygon := make([]uint32, 0, len(args))
	for _, a := range args {
		c, err := p.parseCorner(a)
		if err != nil {
			return err
		}
		polygon = append(polygon, om.vertex(c, p))
	}
	for i := 1; i+1 < len(polygon); i++ {
		om.mesh.Faces = append(om.mesh.Faces, scenegraph.Face{
			Indices: []uint32{polygon[0], polygon[i], polygon[i+1]},
		})
	}
	return nil
}

// parseCorner parses "v", "v/vt", "v//vn" or "v/vt/vn" into zero-based
// indices, -1 marking an absent attribute.
func (p *objParser) parseCorner(s string) (objCorner, error) {
	parts := strings.Split(s, "/")
	c := objCorner{v: -1, vt: -1, vn: -1}

	var err error
	if c.v, err = resolveIndex(parts[0], len(p.positions)); err != nil || c.v < 0 {
		return c, fmt.Errorf("bad vertex index %q", s)
	}
	if len(parts) > 1 && parts[1] != "" {
		if c.vt, err = resolveIndex(parts[1], len(p.texcoords)); err != nil {
			return c, fmt.Errorf("bad texcoord index %q", s)
		}
	}
	if len(parts) > 2 && parts[2] != "" {
		if c.vn, err = resolveIndex(parts[2], len(p.normals)); err != nil {
			return c, fmt.Errorf("bad normal index %q", s)
		}
	}
	return c, nil
}

// resolveIndex converts a 1-based (or negative, relative) OBJ index.
func resolveIndex(s string, count int) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1, err
	}
	switch {
	case n > 0 && n <= count:
		return n - 1, nil
	case n < 0 && count+n >= 0:
		return count + n, nil
	default:
		return -1, fmt.Errorf("index %d out of range", n)
	}
}

// vertex returns the mesh-local index for a face corner, appending a new
// vertex the first time the corner is seen.
func (om *objMesh) vertex(c objCorner, p *objParser) uint32 {
	if idx, ok := om.corners[c]; ok {
		return idx
	}
	m := om.mesh
	idx := uint32(len(m.Positions))
	m.Positions = append(m.Positions, p.positions[c.v])

	if c.vt >= 0 {
		if !om.hasUV {
			// Backfill vertices added before the first UV-carrying corner.
			m.TexCoords = [][][2]float32{make([][2]float32, idx)}
			om.hasUV = true
		}
		m.TexCoords[0] = append(m.TexCoords[0], p.texcoords[c.vt])
	} else if om.hasUV {
		m.TexCoords[0] = append(m.TexCoords[0], [2]float32{})
	}

	if c.vn >= 0 {
		if !om.hasNorm {
			m.Normals = make([][3]float32, idx)
			om.hasNorm = true
		}
		m.Normals = append(m.Normals, p.normals[c.vn])
	} else if om.hasNorm {
		m.Normals = append(m.Normals, [3]float32{})
	}

	om.corners[c] = idx
	return idx
}

func (p *objParser) loadMTL(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var cur *scenegraph.Material
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		fields := strings.Fields(line)
		ident := strings.ToLower(fields[0])

		if ident == "newmtl" {
			name := strings.Join(fields[1:], " ")
			cur = scenegraph.NewMaterial(name)
			p.materialIdx[name] = len(p.materials)
			p.materials = append(p.materials, cur)
			continue
		}
		if cur == nil || len(fields) < 2 {
			continue
		}
		if slot, ok := mtlTextureSlots[ident]; ok {
			// Options such as "-bm 0.5" precede the file name.
			cur.AddTexture(slot, fields[len(fields)-1])
		}
	}
	return scanner.Err()
}

func (p *objParser) finish(name string) (*scenegraph.Scene, error) {
	p.scene.Materials = p.materials
	p.scene.Root = &scenegraph.Node{Name: name}

	for _, g := range p.groups {
		for _, mtl := range g.order {
			om := g.meshes[mtl]
			if len(om.mesh.Faces) == 0 {
				continue
			}
			g.node.Meshes = append(g.node.Meshes, len(p.scene.Meshes))
			p.scene.Meshes = append(p.scene.Meshes, om.mesh)
		}
		if len(g.node.Meshes) > 0 {
			p.scene.Root.Children = append(p.scene.Root.Children, g.node)
		}
	}

	if len(p.scene.Meshes) == 0 {
		return nil, fmt.Errorf("no faces: %w", scenegraph.ErrIncompleteScene)
	}
	return p.scene, nil
}

func parseVec3(args []string) ([3]float32, error) {
	var v [3]float32
	if len(args) < 3 {
		return v, fmt.Errorf("expected 3 components, got %d", len(args))
	}
	for i := 0; i < 3; i++ {
		f, err := strconv.ParseFloat(args[i], 32)
		if err != nil {
			return v, err
		}
		v[i] = float32(f)
	}
	return v, nil
}

func parseVec2(args []string) ([2]float32, error) {
	var v [2]float32
	if len(args) < 1 {
		return v, fmt.Errorf("expected 2 components, got %d", len(args))
	}
	for i := 0; i < 2 && i < len(args); i++ {
		f, err := strconv.ParseFloat(args[i], 32)
		if err != nil {
			return v, err
		}
		v[i] = float32(f)
	}
	return v, nil
}
