package model

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/Faultbox/hungryfish/pkg/scenegraph"
)

func TestLoad_EmbeddedTextureSharedAcrossSlots(t *testing.T) {
	mat := scenegraph.NewMaterial("skin")
	mat.AddTexture(scenegraph.TextureDiffuse, "*0")
	mat.AddTexture(scenegraph.TextureSpecular, "*0")

	m := newTestModel(singleMeshScene(mat, pngBlob()), nil)
	m.Load("/assets/fish.glb")

	if len(m.backend.uploads) != 1 {
		t.Fatalf("expected exactly 1 texture upload, got %d", len(m.backend.uploads))
	}
	if m.TextureCount() != 1 {
		t.Errorf("TextureCount() = %d, want 1", m.TextureCount())
	}

	texs := m.Meshes()[0].Textures
	if len(texs) != 2 {
		t.Fatalf("expected 2 texture records, got %d", len(texs))
	}
	if texs[0].Handle != texs[1].Handle {
		t.Errorf("handles differ: %d vs %d", texs[0].Handle, texs[1].Handle)
	}
	if texs[0].Type != scenegraph.TextureDiffuse || texs[1].Type != scenegraph.TextureSpecular {
		t.Errorf("types = %v, %v", texs[0].Type, texs[1].Type)
	}
	if texs[0].Identity != "/assets/fish.glb*0" {
		t.Errorf("Identity = %q", texs[0].Identity)
	}

	hits, misses := m.Cache().Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("Stats() = %d hits, %d misses, want 1, 1", hits, misses)
	}
}

func TestLoad_CachesAreScopedPerModel(t *testing.T) {
	newScene := func() *scenegraph.Scene {
		mat := scenegraph.NewMaterial("skin")
		mat.AddTexture(scenegraph.TextureDiffuse, "*0")
		return singleMeshScene(mat, pngBlob())
	}

	shark := newTestModel(newScene(), nil)
	shark.Load("/assets/shark.glb")
	fish := newTestModel(newScene(), nil)
	fish.Load("/assets/fish.glb")

	a := shark.Meshes()[0].Textures[0]
	b := fish.Meshes()[0].Textures[0]
	if a.Handle == b.Handle {
		t.Errorf("models share handle %d", a.Handle)
	}
	if a.Identity == b.Identity {
		t.Errorf("identities collide: %q", a.Identity)
	}
	if len(shark.backend.uploads) != 1 || len(fish.backend.uploads) != 1 {
		t.Errorf("each model should upload once, got %d and %d",
			len(shark.backend.uploads), len(fish.backend.uploads))
	}

	// Same asset loaded twice into separate models still uploads twice.
	again := newTestModel(newScene(), nil)
	again.Load("/assets/shark.glb")
	if again.Meshes()[0].Textures[0].Handle == a.Handle {
		t.Error("second model reused a handle from another model's cache")
	}
}

func TestLoad_MissingAttributesAreZero(t *testing.T) {
	m := newTestModel(singleMeshScene(scenegraph.NewMaterial("plain")), nil)
	m.Load("fish.obj")

	mesh := m.Meshes()[0]
	if len(mesh.Vertices) != 3 {
		t.Fatalf("expected 3 vertices, got %d", len(mesh.Vertices))
	}
	for i, v := range mesh.Vertices {
		if v.Normal != [3]float32{} {
			t.Errorf("vertex %d normal = %v, want zero", i, v.Normal)
		}
		if v.TexCoord != [2]float32{} {
			t.Errorf("vertex %d uv = %v, want zero", i, v.TexCoord)
		}
	}
	if mesh.Vertices[1].Position != [3]float32{1, 0, 0} {
		t.Errorf("position not copied: %v", mesh.Vertices[1].Position)
	}
}

func TestLoad_TraversalOrder(t *testing.T) {
	meshes := make([]*scenegraph.Mesh, 4)
	for i, name := range []string{"n0.m0", "n0.m1", "n1.m0", "n2c.m0"} {
		meshes[i] = triangle(name, -1)
	}
	scene := &scenegraph.Scene{
		Root: &scenegraph.Node{
			Name:   "n0",
			Meshes: []int{0, 1},
			Children: []*scenegraph.Node{
				{Name: "n1", Meshes: []int{2}},
				{Name: "n2", Children: []*scenegraph.Node{
					{Name: "n2c", Meshes: []int{3}},
				}},
			},
		},
		Meshes: meshes,
	}

	m := newTestModel(scene, nil)
	m.Load("scene.glb")

	var got []string
	for _, mesh := range m.Meshes() {
		got = append(got, mesh.Name)
	}
	want := []string{"n0.m0", "n0.m1", "n1.m0", "n2c.m0"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("mesh order = %v, want %v", got, want)
	}
}

func TestLoad_ImportFailure(t *testing.T) {
	m := newTestModel(nil, os.ErrNotExist)
	m.Load("missing.glb")

	if m.MeshCount() != 0 {
		t.Errorf("MeshCount() = %d, want 0", m.MeshCount())
	}
	if m.Path() != "missing.glb" {
		t.Errorf("Path() = %q", m.Path())
	}
	entries := m.logs.FilterMessage("model import failed").All()
	if len(entries) != 1 || entries[0].Level != zapcore.ErrorLevel {
		t.Fatalf("expected one error diagnostic, got %v", m.logs.All())
	}
	if entries[0].ContextMap()["path"] != "missing.glb" {
		t.Errorf("diagnostic missing path: %v", entries[0].ContextMap())
	}

	// Drawing and destroying an empty model are no-ops.
	u := &fakeUniforms{}
	m.Draw(u)
	m.Destroy()
	if u.uses != 0 || len(m.backend.draws) != 0 {
		t.Error("empty model should not draw")
	}
}

func TestLoad_SlotEnumerationOrder(t *testing.T) {
	mat := scenegraph.NewMaterial("mixed")
	mat.AddTexture(scenegraph.TextureHeight, "bump.png")
	mat.AddTexture(scenegraph.TextureSpecular, "shine.png")

	m := newTestModel(singleMeshScene(mat), nil)
	m.decoder.files["/assets/bump.png"] = true
	m.decoder.files["/assets/shine.png"] = true
	m.Load("/assets/fish.obj")

	texs := m.Meshes()[0].Textures
	if len(texs) != 2 {
		t.Fatalf("expected 2 textures, got %d", len(texs))
	}
	if texs[0].Type != scenegraph.TextureSpecular || texs[1].Type != scenegraph.TextureHeight {
		t.Errorf("order = %v, %v; want Specular, Height", texs[0].Type, texs[1].Type)
	}
}

func TestLoad_FaceIndicesEmittedAsIs(t *testing.T) {
	mesh := triangle("quad", -1)
	mesh.Positions = append(mesh.Positions, [3]float32{1, 1, 0})
	mesh.Faces = []scenegraph.Face{{Indices: []uint32{0, 1, 3, 2}}, {Indices: []uint32{2, 1}}}
	scene := &scenegraph.Scene{
		Root:   &scenegraph.Node{Meshes: []int{0}},
		Meshes: []*scenegraph.Mesh{mesh},
	}

	m := newTestModel(scene, nil)
	m.Load("quad.obj")

	want := []uint32{0, 1, 3, 2, 2, 1}
	if got := m.Meshes()[0].Indices; !reflect.DeepEqual(got, want) {
		t.Errorf("Indices = %v, want %v", got, want)
	}
}

func TestLoad_AttributesCopiedWhenPresent(t *testing.T) {
	mesh := triangle("lit", -1)
	mesh.Normals = [][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}}
	mesh.TexCoords = [][][2]float32{{{0, 0}, {1, 0}, {0, 1}}}
	scene := &scenegraph.Scene{Root: &scenegraph.Node{Meshes: []int{0}}, Meshes: []*scenegraph.Mesh{mesh}}

	m := newTestModel(scene, nil)
	m.Load("lit.glb")

	v := m.Meshes()[0].Vertices[2]
	if v.Normal != [3]float32{0, 0, 1} || v.TexCoord != [2]float32{0, 1} {
		t.Errorf("vertex 2 = %+v", v)
	}
	b := m.Bounds()
	if b.Min != [3]float32{0, 0, 0} || b.Max != [3]float32{1, 1, 0} {
		t.Errorf("Bounds() = %+v", b)
	}
}

func TestBounds_SkipsEmptyMeshes(t *testing.T) {
	far := &scenegraph.Mesh{
		Name:          "far",
		Positions:     [][3]float32{{5, 5, 5}, {6, 5, 5}, {5, 6, 5}},
		Faces:         []scenegraph.Face{{Indices: []uint32{0, 1, 2}}},
		MaterialIndex: -1,
	}
	empty := &scenegraph.Mesh{Name: "empty", MaterialIndex: -1}
	scene := &scenegraph.Scene{
		Root:   &scenegraph.Node{Meshes: []int{0, 1}},
		Meshes: []*scenegraph.Mesh{empty, far},
	}

	m := newTestModel(scene, nil)
	m.Load("far.glb")

	if m.MeshCount() != 2 {
		t.Fatalf("MeshCount() = %d, want 2", m.MeshCount())
	}
	b := m.Bounds()
	if b.Min != [3]float32{5, 5, 5} || b.Max != [3]float32{6, 6, 5} {
		t.Errorf("Bounds() = %+v, origin from the empty mesh leaked in", b)
	}

	if got := newTestModel(&scenegraph.Scene{Root: &scenegraph.Node{}}, nil).Bounds(); got != (Bounds{}) {
		t.Errorf("empty model Bounds() = %+v", got)
	}
}

func TestLoad_EmbeddedDecodePaths(t *testing.T) {
	raw := &scenegraph.EmbeddedTexture{Width: 2, Height: 1, Data: []byte{1, 2, 3, 4, 5, 6, 7, 8}}
	short := &scenegraph.EmbeddedTexture{Width: 2, Height: 2, Data: []byte{1, 2, 3, 4}}
	padded := &scenegraph.EmbeddedTexture{Width: 4, Data: []byte("okayTRAILING")}

	mat := scenegraph.NewMaterial("embedded")
	mat.AddTexture(scenegraph.TextureDiffuse, "*0")
	mat.AddTexture(scenegraph.TextureSpecular, "*1")
	mat.AddTexture(scenegraph.TextureAmbient, "*2")
	mat.AddTexture(scenegraph.TextureEmissive, "*9")

	m := newTestModel(singleMeshScene(mat, raw, short, padded), nil)
	m.Load("fish.glb")

	texs := m.Meshes()[0].Textures
	if len(texs) != 2 {
		t.Fatalf("expected raw and compressed textures, got %d", len(texs))
	}

	// Raw pixels go straight to the GPU as RGBA.
	first := m.backend.uploads[0]
	if first.Channels != 4 || first.Width != 2 || first.Height != 1 || len(first.Pix) != 8 {
		t.Errorf("raw upload = %+v", first)
	}

	if len(m.decoder.calls) != 1 {
		t.Fatalf("expected one decode call, got %d", len(m.decoder.calls))
	}
	call := m.decoder.calls[0]
	if !call.flip {
		t.Error("compressed embedded textures must be decoded with a vertical flip")
	}
	if string(call.data) != "okay" {
		t.Errorf("decoded %q, want data clamped to width", call.data)
	}

	var sawShort, sawRange bool
	for _, e := range m.logs.FilterMessage("texture decode failed").All() {
		err, _ := e.ContextMap()["error"].(string)
		switch e.ContextMap()["identity"] {
		case "fish.glb*1":
			sawShort = err != ""
		case "fish.glb*9":
			sawRange = err != ""
		}
	}
	if !sawShort || !sawRange {
		t.Errorf("missing diagnostics (short=%v range=%v): %v", sawShort, sawRange, m.logs.All())
	}
}

func TestLoad_ExternalPaths(t *testing.T) {
	mat := scenegraph.NewMaterial("external")
	mat.AddTexture(scenegraph.TextureDiffuse, "textures/skin.png")
	mat.AddTexture(scenegraph.TextureSpecular, "./textures/skin.png")
	mat.AddTexture(scenegraph.TextureNormals, "/shared/normal.png")
	mat.AddTexture(scenegraph.TextureHeight, "missing.png")
	mat.AddTexture(scenegraph.TextureOpacity, "")

	m := newTestModel(singleMeshScene(mat), nil)
	m.decoder.files["/assets/models/textures/skin.png"] = true
	m.decoder.files["/shared/normal.png"] = true
	m.Load("/assets/models/fish.obj")

	texs := m.Meshes()[0].Textures
	if len(texs) != 3 {
		t.Fatalf("expected 3 textures, got %d: %+v", len(texs), texs)
	}
	if texs[0].Identity != "/assets/models/textures/skin.png" {
		t.Errorf("relative ref resolved to %q", texs[0].Identity)
	}
	if texs[0].Handle != texs[1].Handle {
		t.Error("equivalent relative paths should share one texture")
	}
	if texs[2].Identity != "/shared/normal.png" {
		t.Errorf("rooted ref resolved to %q", texs[2].Identity)
	}
	if len(m.backend.uploads) != 2 {
		t.Errorf("expected 2 uploads, got %d", len(m.backend.uploads))
	}
	for _, c := range m.decoder.calls {
		if c.flip {
			t.Errorf("external file %s decoded with flip", c.path)
		}
	}

	failed := m.logs.FilterMessage("texture decode failed").All()
	if len(failed) != 1 || failed[0].ContextMap()["identity"] != "/assets/models/missing.png" {
		t.Errorf("expected one decode diagnostic for missing.png, got %v", failed)
	}
}

func TestLoad_MalformedEmbeddedRefs(t *testing.T) {
	mat := scenegraph.NewMaterial("broken")
	for _, ref := range []string{"a*1", "*1x", "**2", "*", "*-1"} {
		mat.AddTexture(scenegraph.TextureDiffuse, ref)
	}

	m := newTestModel(singleMeshScene(mat, pngBlob()), nil)
	m.Load("fish.glb")

	if n := len(m.Meshes()[0].Textures); n != 0 {
		t.Errorf("expected all slots skipped, got %d textures", n)
	}
	if len(m.decoder.calls) != 0 || len(m.backend.uploads) != 0 {
		t.Error("malformed references must not reach the decoder or GPU")
	}
	if n := m.logs.FilterMessage("texture decode failed").Len(); n != 5 {
		t.Errorf("expected 5 diagnostics, got %d", n)
	}
}

func TestLoad_UploadFailure(t *testing.T) {
	mat := scenegraph.NewMaterial("skin")
	mat.AddTexture(scenegraph.TextureDiffuse, "*0")

	m := newTestModel(singleMeshScene(mat, pngBlob()), nil)
	m.backend.failTextures = true
	m.Load("fish.glb")

	if n := len(m.Meshes()[0].Textures); n != 0 {
		t.Errorf("expected no textures, got %d", n)
	}
	if m.TextureCount() != 0 {
		t.Error("failed uploads must not be cached")
	}
	entries := m.logs.FilterMessage("texture upload failed").All()
	if len(entries) != 1 || entries[0].Level != zapcore.WarnLevel {
		t.Errorf("expected one upload warning, got %v", m.logs.All())
	}
	if m.logs.FilterMessage("texture decode failed").Len() != 0 {
		t.Error("upload failure reported as decode failure")
	}
}

func TestLoad_MeshUploadFailureKeepsMesh(t *testing.T) {
	m := newTestModel(singleMeshScene(scenegraph.NewMaterial("plain")), nil)
	m.backend.failMeshes = true
	m.Load("fish.glb")

	if m.MeshCount() != 1 {
		t.Fatalf("MeshCount() = %d, want 1", m.MeshCount())
	}
	u := &fakeUniforms{}
	m.Draw(u)
	if len(m.backend.draws) != 0 {
		t.Error("mesh without buffers must not be drawn")
	}
	if m.logs.FilterMessage("mesh upload failed").Len() != 1 {
		t.Error("expected mesh upload diagnostic")
	}
}

func TestLoad_MissingMeshIndex(t *testing.T) {
	scene := &scenegraph.Scene{
		Root:   &scenegraph.Node{Name: "root", Meshes: []int{0, 7}},
		Meshes: []*scenegraph.Mesh{triangle("only", -1)},
	}
	m := newTestModel(scene, nil)
	m.Load("fish.glb")

	if m.MeshCount() != 1 {
		t.Errorf("MeshCount() = %d, want 1", m.MeshCount())
	}
	if m.logs.FilterMessage("node references missing mesh").Len() != 1 {
		t.Error("expected missing mesh diagnostic")
	}
}

func TestLoad_SecondLoadAppends(t *testing.T) {
	m := newTestModel(singleMeshScene(scenegraph.NewMaterial("plain")), nil)
	m.Load("fish.glb")
	m.Load("fish.glb")
	if m.MeshCount() != 2 {
		t.Errorf("MeshCount() = %d, want 2", m.MeshCount())
	}
}

func TestDraw_UniformNamesAndUnits(t *testing.T) {
	mat := scenegraph.NewMaterial("skin")
	mat.AddTexture(scenegraph.TextureDiffuse, "a.png")
	mat.AddTexture(scenegraph.TextureDiffuse, "b.png")
	mat.AddTexture(scenegraph.TextureSpecular, "c.png")

	m := newTestModel(singleMeshScene(mat), nil)
	for _, f := range []string{"a.png", "b.png", "c.png"} {
		m.decoder.files[f] = true
	}
	m.Load("fish.obj")

	u := &fakeUniforms{}
	m.Draw(u)

	want := []uniformSet{
		{"texture_diffuse1", 0},
		{"texture_diffuse2", 1},
		{"texture_specular1", 2},
	}
	if !reflect.DeepEqual(u.sets, want) {
		t.Errorf("uniforms = %v, want %v", u.sets, want)
	}
	if u.uses != 1 {
		t.Errorf("Use() called %d times, want 1", u.uses)
	}

	texs := m.Meshes()[0].Textures
	for i, bind := range m.backend.binds {
		if bind[0] != uint32(i) || bind[1] != texs[i].Handle {
			t.Errorf("bind %d = %v", i, bind)
		}
	}
	if len(m.backend.draws) != 1 || m.backend.draws[0].IndexCount != 3 {
		t.Errorf("draws = %+v", m.backend.draws)
	}
	if m.backend.resets != 1 {
		t.Errorf("expected active unit reset after draw, got %d", m.backend.resets)
	}

	// Drawing again yields the same bindings.
	u2 := &fakeUniforms{}
	m.Draw(u2)
	if !reflect.DeepEqual(u2.sets, want) {
		t.Errorf("second draw uniforms = %v", u2.sets)
	}
}

func TestDestroy_DeletesSharedHandlesOnce(t *testing.T) {
	mat := scenegraph.NewMaterial("skin")
	mat.AddTexture(scenegraph.TextureDiffuse, "*0")
	mat.AddTexture(scenegraph.TextureBaseColor, "*0")
	scene := singleMeshScene(mat, pngBlob())
	scene.Meshes = append(scene.Meshes, triangle("fin", 0))
	scene.Root.Meshes = []int{0, 1}

	m := newTestModel(scene, nil)
	m.Load("fish.glb")
	handle := m.Meshes()[0].Textures[0].Handle
	m.Destroy()

	if !reflect.DeepEqual(m.backend.deletedTextures, []uint32{handle}) {
		t.Errorf("deleted textures = %v, want [%d]", m.backend.deletedTextures, handle)
	}
	if len(m.backend.deletedMeshes) != 2 {
		t.Errorf("deleted %d meshes, want 2", len(m.backend.deletedMeshes))
	}
	if m.MeshCount() != 0 || m.TextureCount() != 0 {
		t.Error("Destroy should leave the model empty")
	}
}

func TestNew_Defaults(t *testing.T) {
	m := New(Deps{Backend: &fakeBackend{}})
	if m.importer == nil || m.decoder == nil || m.log == nil {
		t.Error("New should fill in default collaborators")
	}

	// The default importer rejects unknown formats without panicking.
	m.Load("fish.fbx")
	if m.MeshCount() != 0 {
		t.Error("unsupported format should load nothing")
	}
}

func TestParseRef(t *testing.T) {
	tests := []struct {
		raw     string
		want    TextureRef
		wantErr error
	}{
		{"*0", EmbeddedRef{AssetPath: "/a/fish.glb", Index: 0}, nil},
		{"*12", EmbeddedRef{AssetPath: "/a/fish.glb", Index: 12}, nil},
		{"skin.png", ExternalRef{Path: "/a/skin.png"}, nil},
		{"../shared/skin.png", ExternalRef{Path: "/shared/skin.png"}, nil},
		{"/abs/skin.png", ExternalRef{Path: "/abs/skin.png"}, nil},
		{`\\server\skin.png`, ExternalRef{Path: `\\server\skin.png`}, nil},
		{`C:\tex\skin.png`, ExternalRef{Path: `C:\tex\skin.png`}, nil},
		{"a*1", nil, ErrBadEmbeddedRef},
		{"*1x", nil, ErrBadEmbeddedRef},
		{"**2", nil, ErrBadEmbeddedRef},
		{"*", nil, ErrBadEmbeddedRef},
		{"*-1", nil, ErrBadEmbeddedRef},
		{"*99999999999999999999999", nil, ErrBadEmbeddedRef},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseRef(tt.raw, "/a/fish.glb", "/a")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ParseRef() error = %v, want %v", err, tt.wantErr)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseRef() = %#v, want %#v", got, tt.want)
			}
		})
	}

	if id := (EmbeddedRef{AssetPath: "/a/fish.glb", Index: 3}).Identity(); id != "/a/fish.glb*3" {
		t.Errorf("Identity() = %q", id)
	}
}

func TestLoad_RawTextureDimensionsRejected(t *testing.T) {
	huge := math.MaxInt>>1 + 1 // huge*4*4 wraps to 0
	tests := []struct {
		name string
		tex  *scenegraph.EmbeddedTexture
	}{
		{"zero width", &scenegraph.EmbeddedTexture{Width: 0, Height: 1, Data: []byte{1, 2, 3, 4}}},
		{"negative height", &scenegraph.EmbeddedTexture{Width: 1, Height: -1, Data: []byte{1, 2, 3, 4}}},
		{"overflowing size", &scenegraph.EmbeddedTexture{Width: huge, Height: 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mat := scenegraph.NewMaterial("raw")
			mat.AddTexture(scenegraph.TextureDiffuse, "*0")

			m := newTestModel(singleMeshScene(mat, tt.tex), nil)
			m.Load("fish.glb")

			if len(m.backend.uploads) != 0 {
				t.Errorf("uploaded %d textures, want none", len(m.backend.uploads))
			}
			entries := m.logs.FilterMessage("texture decode failed").All()
			if len(entries) != 1 {
				t.Fatalf("got %d decode diagnostics, want 1", len(entries))
			}
			msg, _ := entries[0].ContextMap()["error"].(string)
			if !strings.Contains(msg, ErrRawSize.Error()) {
				t.Errorf("error = %q, want %v", msg, ErrRawSize)
			}
		})
	}
}

func TestLoad_MissingMaterialLibraryLogged(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fish.obj")
	obj := "mtllib missing.mtl\nv 0 0 0\nv 1 0 0\nv 0 1 0\nusemtl skin\nf 1 2 3\n"
	if err := os.WriteFile(path, []byte(obj), 0644); err != nil {
		t.Fatal(err)
	}

	log, logs := observedLogger()
	m := New(Deps{Backend: &fakeBackend{}, Decoder: &fakeDecoder{}, Log: log})
	m.Load(path)

	if m.MeshCount() != 1 || m.TextureCount() != 0 {
		t.Errorf("meshes = %d, textures = %d", m.MeshCount(), m.TextureCount())
	}
	entries := logs.FilterMessage("material library failed to load").All()
	if len(entries) != 1 {
		t.Fatalf("got %d warnings, want 1: %v", len(entries), logs.All())
	}
	if entries[0].Level != zapcore.WarnLevel {
		t.Errorf("level = %v, want warn", entries[0].Level)
	}
}
