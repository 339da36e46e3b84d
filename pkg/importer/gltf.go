package importer

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/hungryfish/pkg/scenegraph"
)

// GLTF imports glTF 2.0 assets (.gltf with external or data-URI buffers, and
// binary .glb).
//
// Every primitive becomes one scene mesh. Images stored in a buffer view or a
// data URI become embedded textures referenced as "*<n>"; images with a file
// URI are referenced by that (unescaped) URI.
type GLTF struct{}

// Import opens path and converts the document.
func (g *GLTF) Import(path string) (*scenegraph.Scene, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gltf %s: %w", path, err)
	}
	scene, err := convertDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return scene, nil
}

// convertDocument builds a scene graph from a parsed glTF document.
func convertDocument(doc *gltf.Document) (*scenegraph.Scene, error) {
	if len(doc.Nodes) == 0 {
		return nil, fmt.Errorf("no nodes: %w", scenegraph.ErrIncompleteScene)
	}

	scene := &scenegraph.Scene{}
	imageRefs := convertImages(doc, scene)

	for i, m := range doc.Materials {
		scene.Materials = append(scene.Materials, convertMaterial(doc, m, i, imageRefs))
	}

	// glTF meshes map to one scene mesh per primitive.
	meshMap := make([][]int, len(doc.Meshes))
	for mi, m := range doc.Meshes {
		for pi, prim := range m.Primitives {
			sm, err := convertPrimitive(doc, prim, len(doc.Materials))
			if err != nil {
				return nil, fmt.Errorf("mesh %d primitive %d: %w", mi, pi, err)
			}
			if sm == nil {
				continue
			}
			sm.Name = primitiveName(m.Name, mi, pi, len(m.Primitives))
			meshMap[mi] = append(meshMap[mi], len(scene.Meshes))
			scene.Meshes = append(scene.Meshes, sm)
		}
	}

	nodes := make([]*scenegraph.Node, len(doc.Nodes))
	for i, n := range doc.Nodes {
		name := n.Name
		if name == "" {
			name = "node_" + strconv.Itoa(i)
		}
		nodes[i] = &scenegraph.Node{Name: name}
		if n.Mesh != nil && *n.Mesh >= 0 && *n.Mesh < len(meshMap) {
			nodes[i].Meshes = append(nodes[i].Meshes, meshMap[*n.Mesh]...)
		}
	}
	for i, n := range doc.Nodes {
		for _, c := range n.Children {
			if c < 0 || c >= len(nodes) {
				return nil, fmt.Errorf("node %d: child %d out of range: %w", i, c, scenegraph.ErrIncompleteScene)
			}
			nodes[i].Children = append(nodes[i].Children, nodes[c])
		}
	}
	if hasCycle(doc) {
		return nil, fmt.Errorf("node hierarchy contains a cycle: %w", scenegraph.ErrIncompleteScene)
	}

	roots := rootNodes(doc)
	if len(roots) == 0 {
		return nil, fmt.Errorf("no root nodes: %w", scenegraph.ErrIncompleteScene)
	}
	scene.Root = &scenegraph.Node{Name: "RootNode"}
	for _, r := range roots {
		scene.Root.Children = append(scene.Root.Children, nodes[r])
	}

	return scene, nil
}

// convertImages registers embedded images and returns the texture reference
// for every document image.
func convertImages(doc *gltf.Document, scene *scenegraph.Scene) []string {
	refs := make([]string, len(doc.Images))
	for i, img := range doc.Images {
		switch {
		case img.BufferView != nil:
			var data []byte
			if *img.BufferView >= 0 && *img.BufferView < len(doc.BufferViews) {
				// A failed read leaves Data empty; the loader reports it at decode time.
				data, _ = modeler.ReadBufferView(doc, doc.BufferViews[*img.BufferView])
			}
			refs[i] = addEmbedded(scene, data, img.MimeType)
		case img.IsEmbeddedResource():
			data, _ := img.MarshalData()
			mime := img.MimeType
			if mime == "" {
				mime = dataURIMime(img.URI)
			}
			refs[i] = addEmbedded(scene, data, mime)
		case img.URI != "":
			uri, err := url.PathUnescape(img.URI)
			if err != nil {
				uri = img.URI
			}
			refs[i] = uri
		}
	}
	return refs
}

func addEmbedded(scene *scenegraph.Scene, data []byte, mime string) string {
	idx := len(scene.Textures)
	scene.Textures = append(scene.Textures, &scenegraph.EmbeddedTexture{
		Width:      len(data),
		Height:     0,
		FormatHint: formatHint(mime),
		Data:       data,
	})
	return string(scenegraph.EmbeddedMarker) + strconv.Itoa(idx)
}

func formatHint(mime string) string {
	switch mime {
	case "image/jpeg":
		return "jpg"
	case "":
		return ""
	default:
		return strings.TrimPrefix(mime, "image/")
	}
}

// dataURIMime extracts the media type from "data:image/png;base64,...".
func dataURIMime(uri string) string {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return ""
	}
	if i := strings.IndexAny(rest, ";,"); i >= 0 {
		return rest[:i]
	}
	return ""
}

func textureRef(doc *gltf.Document, texIndex int, imageRefs []string) string {
	if texIndex < 0 || texIndex >= len(doc.Textures) {
		return ""
	}
	src := doc.Textures[texIndex].Source
	if src == nil || *src < 0 || *src >= len(imageRefs) {
		return ""
	}
	return imageRefs[*src]
}

func convertMaterial(doc *gltf.Document, m *gltf.Material, index int, imageRefs []string) *scenegraph.Material {
	name := m.Name
	if name == "" {
		name = "material_" + strconv.Itoa(index)
	}
	mat := scenegraph.NewMaterial(name)

	bind := func(texIndex int, types ...scenegraph.TextureType) {
		ref := textureRef(doc, texIndex, imageRefs)
		if ref == "" {
			return
		}
		for _, t := range types {
			mat.AddTexture(t, ref)
		}
	}

	if pbr := m.PBRMetallicRoughness; pbr != nil {
		if pbr.BaseColorTexture != nil {
			bind(pbr.BaseColorTexture.Index, scenegraph.TextureDiffuse, scenegraph.TextureBaseColor)
		}
		if pbr.MetallicRoughnessTexture != nil {
			bind(pbr.MetallicRoughnessTexture.Index, scenegraph.TextureMetalness, scenegraph.TextureDiffuseRoughness)
		}
	}
	if m.NormalTexture != nil && m.NormalTexture.Index != nil {
		bind(*m.NormalTexture.Index, scenegraph.TextureNormals)
	}
	if m.OcclusionTexture != nil && m.OcclusionTexture.Index != nil {
		bind(*m.OcclusionTexture.Index, scenegraph.TextureLightmap)
	}
	if m.EmissiveTexture != nil {
		bind(m.EmissiveTexture.Index, scenegraph.TextureEmissive)
	}
	return mat
}

// convertPrimitive reads one primitive's attributes and triangulates it.
// Returns nil, nil for primitives that carry no triangles.
func convertPrimitive(doc *gltf.Document, prim *gltf.Primitive, materialCount int) (*scenegraph.Mesh, error) {
	switch prim.Mode {
	case gltf.PrimitiveTriangles, gltf.PrimitiveTriangleStrip, gltf.PrimitiveTriangleFan:
	default:
		return nil, nil
	}

	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return nil, nil
	}
	acc, err := accessor(doc, posIdx)
	if err != nil {
		return nil, err
	}
	positions, err := modeler.ReadPosition(doc, acc, nil)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}

	mesh := &scenegraph.Mesh{
		Positions:     positions,
		MaterialIndex: -1,
	}

	if idx, ok := prim.Attributes[gltf.NORMAL]; ok {
		acc, err := accessor(doc, idx)
		if err != nil {
			return nil, err
		}
		mesh.Normals, err = modeler.ReadNormal(doc, acc, nil)
		if err != nil {
			return nil, fmt.Errorf("normals: %w", err)
		}
	}

	for ch := 0; ; ch++ {
		idx, ok := prim.Attributes["TEXCOORD_"+strconv.Itoa(ch)]
		if !ok {
			break
		}
		acc, err := accessor(doc, idx)
		if err != nil {
			return nil, err
		}
		uvs, err := modeler.ReadTextureCoord(doc, acc, nil)
		if err != nil {
			return nil, fmt.Errorf("texcoord %d: %w", ch, err)
		}
		mesh.TexCoords = append(mesh.TexCoords, uvs)
	}

	var indices []uint32
	if prim.Indices != nil {
		acc, err := accessor(doc, *prim.Indices)
		if err != nil {
			return nil, err
		}
		indices, err = modeler.ReadIndices(doc, acc, nil)
		if err != nil {
			return nil, fmt.Errorf("indices: %w", err)
		}
	} else {
		indices = make([]uint32, len(positions))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	mesh.Faces = triangulate(prim.Mode, indices)

	if prim.Material != nil && *prim.Material >= 0 && *prim.Material < materialCount {
		mesh.MaterialIndex = *prim.Material
	}
	return mesh, nil
}

func accessor(doc *gltf.Document, idx int) (*gltf.Accessor, error) {
	if idx < 0 || idx >= len(doc.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range", idx)
	}
	return doc.Accessors[idx], nil
}

// triangulate converts an index stream of the given topology into triangles.
func triangulate(mode gltf.PrimitiveMode, idx []uint32) []scenegraph.Face {
	var faces []scenegraph.Face
	tri := func(a, b, c uint32) {
		faces = append(faces, scenegraph.Face{Indices: []uint32{a, b, c}})
	}

	switch mode {
	case gltf.PrimitiveTriangleStrip:
		for i := 0; i+2 < len(idx); i++ {
			if i%2 == 0 {
				tri(idx[i], idx[i+1], idx[i+2])
			} else {
				tri(idx[i+1], idx[i], idx[i+2])
			}
		}
	case gltf.PrimitiveTriangleFan:
		for i := 1; i+1 < len(idx); i++ {
			tri(idx[0], idx[i], idx[i+1])
		}
	default:
		for i := 0; i+2 < len(idx); i += 3 {
			tri(idx[i], idx[i+1], idx[i+2])
		}
	}
	return faces
}

func primitiveName(meshName string, meshIdx, primIdx, primCount int) string {
	if meshName == "" {
		meshName = "mesh_" + strconv.Itoa(meshIdx)
	}
	if primCount == 1 {
		return meshName
	}
	return meshName + "_" + strconv.Itoa(primIdx)
}

// rootNodes returns the nodes of the default scene, falling back to the first
// scene and then to every node without a parent.
func rootNodes(doc *gltf.Document) []int {
	valid := func(nodes []int) []int {
		var out []int
		for _, n := range nodes {
			if n >= 0 && n < len(doc.Nodes) {
				out = append(out, n)
			}
		}
		return out
	}

	if doc.Scene != nil && *doc.Scene >= 0 && *doc.Scene < len(doc.Scenes) {
		return valid(doc.Scenes[*doc.Scene].Nodes)
	}
	if len(doc.Scenes) > 0 {
		return valid(doc.Scenes[0].Nodes)
	}

	hasParent := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			if c >= 0 && c < len(hasParent) {
				hasParent[c] = true
			}
		}
	}
	var roots []int
	for i := range doc.Nodes {
		if !hasParent[i] {
			roots = append(roots, i)
		}
	}
	return roots
}

// hasCycle reports whether the node child links form a cycle.
func hasCycle(doc *gltf.Document) bool {
	const (
		unvisited = iota
		inProgress
		done
	)
	state := make([]int, len(doc.Nodes))

	type frame struct {
		node, next int
	}
	for start := range doc.Nodes {
		if state[start] != unvisited {
			continue
		}
		stack := []frame{{node: start}}
		state[start] = inProgress
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			children := doc.Nodes[top.node].Children
			if top.next >= len(children) {
				state[top.node] = done
				stack = stack[:len(stack)-1]
				continue
			}
			c := children[top.next]
			top.next++
			switch state[c] {
			case inProgress:
				return true
			case unvisited:
				state[c] = inProgress
				stack = append(stack, frame{node: c})
			}
		}
	}
	return false
}
