// Package skybox draws a cubemap behind the scene.
package skybox

import (
	"errors"
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/hungryfish/internal/engine/texture"
)

// ErrNoFaces is returned when none of the face images could be loaded.
var ErrNoFaces = errors.New("no skybox faces loaded")

// FaceCount is the number of cubemap faces, ordered right, left, top,
// bottom, front, back (+X, -X, +Y, -Y, +Z, -Z).
const FaceCount = 6

// FaceDecoder reads face images. *texture.Decoder implements it.
type FaceDecoder interface {
	DecodeFile(path string, flip bool) (*texture.Image, error)
}

// Uploader creates the GPU objects. *gpu.GL implements it.
type Uploader interface {
	UploadCubemap(faces []*texture.Image) (uint32, error)
	UploadPositions(positions []float32) (vao, vbo uint32, err error)
}

// Program is the part of a shader program Draw touches.
type Program interface {
	Use()
	SetInt(name string, v int32)
	SetMat4(name string, m mgl32.Mat4)
}

// Skybox is an uploaded cubemap and its unit cube.
type Skybox struct {
	texture uint32
	vao     uint32
	vbo     uint32
}

// LoadFaces decodes the face images in cubemap order. A face that fails to
// decode is logged and left nil. Faces are repacked to RGB. It returns the
// number of faces loaded.
func LoadFaces(dec FaceDecoder, paths []string, log *zap.Logger) ([]*texture.Image, int) {
	faces := make([]*texture.Image, FaceCount)
	loaded := 0
	for i, path := range paths {
		if i >= FaceCount {
			break
		}
		img, err := dec.DecodeFile(path, false)
		if err != nil {
			log.Warn("cubemap face failed to load", zap.Int("face", i), zap.String("path", path), zap.Error(err))
			continue
		}
		faces[i] = img.Repack(3)
		loaded++
	}
	return faces, loaded
}

// New loads the faces at paths and uploads them.
func New(dec FaceDecoder, up Uploader, paths []string, log *zap.Logger) (*Skybox, error) {
	faces, loaded := LoadFaces(dec, paths, log)
	if loaded == 0 {
		return nil, ErrNoFaces
	}

	tex, err := up.UploadCubemap(faces)
	if err != nil {
		return nil, fmt.Errorf("upload cubemap: %w", err)
	}
	vao, vbo, err := up.UploadPositions(cubeVertices[:])
	if err != nil {
		gl.DeleteTextures(1, &tex)
		return nil, fmt.Errorf("upload cube: %w", err)
	}

	log.Info("skybox loaded", zap.Int("faces", loaded))
	return &Skybox{texture: tex, vao: vao, vbo: vbo}, nil
}

// Draw renders the cubemap at infinite distance. The depth test passes at
// the far plane so it can be drawn first or last.
func (s *Skybox) Draw(p Program, view, projection mgl32.Mat4) {
	gl.DepthFunc(gl.LEQUAL)
	p.Use()
	p.SetMat4("view", StripTranslation(view))
	p.SetMat4("projection", projection)
	p.SetInt("skybox", 0)

	gl.BindVertexArray(s.vao)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_CUBE_MAP, s.texture)
	gl.DrawArrays(gl.TRIANGLES, 0, int32(len(cubeVertices)/3))
	gl.BindVertexArray(0)
	gl.DepthFunc(gl.LESS)
}

// Destroy frees the GPU objects.
func (s *Skybox) Destroy() {
	if s.vao != 0 {
		gl.DeleteVertexArrays(1, &s.vao)
	}
	if s.vbo != 0 {
		gl.DeleteBuffers(1, &s.vbo)
	}
	if s.texture != 0 {
		gl.DeleteTextures(1, &s.texture)
	}
	*s = Skybox{}
}

// StripTranslation keeps only the rotation of a view matrix.
func StripTranslation(view mgl32.Mat4) mgl32.Mat4 {
	return view.Mat3().Mat4()
}

var cubeVertices = [...]float32{
	-1, 1, -1,
	-1, -1, -1,
	1, -1, -1,
	1, -1, -1,
	1, 1, -1,
	-1, 1, -1,

	-1, -1, 1,
	-1, -1, -1,
	-1, 1, -1,
	-1, 1, -1,
	-1, 1, 1,
	-1, -1, 1,

	1, -1, -1,
	1, -1, 1,
	1, 1, 1,
	1, 1, 1,
	1, 1, -1,
	1, -1, -1,

	-1, -1, 1,
	-1, 1, 1,
	1, 1, 1,
	1, 1, 1,
	1, -1, 1,
	-1, -1, 1,

	-1, 1, -1,
	1, 1, -1,
	1, 1, 1,
	1, 1, 1,
	-1, 1, 1,
	-1, 1, -1,

	-1, -1, -1,
	-1, -1, 1,
	1, -1, -1,
	1, -1, -1,
	-1, -1, 1,
	1, -1, 1,
}
