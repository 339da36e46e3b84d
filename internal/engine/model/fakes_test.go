package model

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Faultbox/hungryfish/internal/engine/texture"
	"github.com/Faultbox/hungryfish/pkg/scenegraph"
)

type fakeImporter struct {
	scene *scenegraph.Scene
	err   error
}

func (f *fakeImporter) Import(string) (*scenegraph.Scene, error) {
	return f.scene, f.err
}

type decodeCall struct {
	path string
	data []byte
	flip bool
}

// fakeDecoder returns a 1x1 RGBA image for any data except blobs starting
// with "bad", and serves files from an in-memory map.
type fakeDecoder struct {
	files map[string]bool
	calls []decodeCall
}

func (d *fakeDecoder) DecodeFile(path string, flip bool) (*texture.Image, error) {
	d.calls = append(d.calls, decodeCall{path: path, flip: flip})
	if !d.files[path] {
		return nil, fmt.Errorf("%s: %w", path, os.ErrNotExist)
	}
	return &texture.Image{Pix: []byte{1, 2, 3, 4}, Width: 1, Height: 1, Channels: 4}, nil
}

func (d *fakeDecoder) DecodeBytes(data []byte, flip bool) (*texture.Image, error) {
	d.calls = append(d.calls, decodeCall{data: data, flip: flip})
	if bytes.HasPrefix(data, []byte("bad")) {
		return nil, texture.ErrUnsupportedFormat
	}
	return &texture.Image{Pix: []byte{1, 2, 3}, Width: 1, Height: 1, Channels: 3}, nil
}

// handleSeq is shared by every fakeBackend so handles never repeat across
// models, as on a real GL context.
var handleSeq uint32

type fakeBackend struct {
	failTextures bool
	failMeshes   bool

	uploads         []*texture.Image
	meshUploads     int
	binds           [][2]uint32 // unit, handle
	draws           []MeshBuffers
	resets          int
	deletedMeshes   []MeshBuffers
	deletedTextures []uint32
}

func (b *fakeBackend) UploadTexture(img *texture.Image) (uint32, error) {
	if b.failTextures {
		return 0, errors.New("out of texture memory")
	}
	b.uploads = append(b.uploads, img)
	handleSeq++
	return handleSeq, nil
}

func (b *fakeBackend) UploadMesh(vertices []Vertex, indices []uint32) (MeshBuffers, error) {
	if b.failMeshes {
		return MeshBuffers{}, errors.New("buffer allocation failed")
	}
	b.meshUploads++
	handleSeq++
	return MeshBuffers{VAO: handleSeq, VBO: handleSeq, EBO: handleSeq, IndexCount: int32(len(indices))}, nil
}

func (b *fakeBackend) BindTexture(unit int, handle uint32) {
	b.binds = append(b.binds, [2]uint32{uint32(unit), handle})
}

func (b *fakeBackend) DrawMesh(buf MeshBuffers) { b.draws = append(b.draws, buf) }
func (b *fakeBackend) ResetTextureUnit()        { b.resets++ }

func (b *fakeBackend) DeleteMesh(buf MeshBuffers) {
	b.deletedMeshes = append(b.deletedMeshes, buf)
}

func (b *fakeBackend) DeleteTexture(handle uint32) {
	b.deletedTextures = append(b.deletedTextures, handle)
}

type uniformSet struct {
	name  string
	value int32
}

type fakeUniforms struct {
	uses int
	sets []uniformSet
}

func (u *fakeUniforms) Use() { u.uses++ }

func (u *fakeUniforms) SetInt(name string, v int32) {
	u.sets = append(u.sets, uniformSet{name, v})
}

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

// triangle returns a one-triangle mesh without normals or UVs.
func triangle(name string, material int) *scenegraph.Mesh {
	return &scenegraph.Mesh{
		Name:          name,
		Positions:     [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Faces:         []scenegraph.Face{{Indices: []uint32{0, 1, 2}}},
		MaterialIndex: material,
	}
}

// singleMeshScene wraps one mesh bound to one material under the root.
func singleMeshScene(mat *scenegraph.Material, textures ...*scenegraph.EmbeddedTexture) *scenegraph.Scene {
	return &scenegraph.Scene{
		Root:      &scenegraph.Node{Name: "root", Meshes: []int{0}},
		Meshes:    []*scenegraph.Mesh{triangle("body", 0)},
		Materials: []*scenegraph.Material{mat},
		Textures:  textures,
	}
}

func pngBlob() *scenegraph.EmbeddedTexture {
	data := []byte("\x89PNG fake payload")
	return &scenegraph.EmbeddedTexture{Width: len(data), FormatHint: "png", Data: data}
}

type testModel struct {
	*Model
	backend *fakeBackend
	decoder *fakeDecoder
	logs    *observer.ObservedLogs
}

func newTestModel(scene *scenegraph.Scene, importErr error) *testModel {
	log, logs := observedLogger()
	tm := &testModel{
		backend: &fakeBackend{},
		decoder: &fakeDecoder{files: map[string]bool{}},
		logs:    logs,
	}
	tm.Model = New(Deps{
		Importer: &fakeImporter{scene: scene, err: importErr},
		Decoder:  tm.decoder,
		Backend:  tm.backend,
		Log:      log,
	})
	return tm
}
