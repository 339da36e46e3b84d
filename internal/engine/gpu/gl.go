// Package gpu uploads decoded images and mesh buffers to OpenGL and issues
// the draw calls models need. GL implements model.Backend.
package gpu

import (
	"errors"
	"fmt"
	"strings"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/hungryfish/internal/engine/model"
	"github.com/Faultbox/hungryfish/internal/engine/texture"
)

var (
	// ErrInvalidImage is returned for images whose dimensions or channel
	// count cannot be uploaded.
	ErrInvalidImage = errors.New("invalid image")
	// ErrEmptyMesh is returned when a mesh has no vertices or no indices.
	ErrEmptyMesh = errors.New("empty mesh")
)

const vertexSize = int(unsafe.Sizeof(model.Vertex{}))

// CubemapFaces is the number of faces a cubemap takes, in the order
// +X, -X, +Y, -Y, +Z, -Z.
const CubemapFaces = 6

// GL is the OpenGL 4.1 backend. It must only be used on the thread that
// owns the GL context.
type GL struct {
	// Anisotropy is the max anisotropic filtering level for 2D textures.
	// Zero leaves the driver default. It is clamped to what the driver
	// reports; drivers without anisotropic filtering get none.
	Anisotropy float32

	maxAnisotropy float32
	probed        bool
}

// New returns a backend with 8x anisotropic filtering.
func New() *GL {
	return &GL{Anisotropy: 8}
}

var _ model.Backend = (*GL)(nil)

// UploadTexture creates a mipmapped, repeating 2D texture from img.
// Three-channel images upload as RGB, everything else as RGBA.
func (g *GL) UploadTexture(img *texture.Image) (uint32, error) {
	if err := Validate(img); err != nil {
		return 0, err
	}
	format := PixelFormat(img.Channels)
	aniso := g.anisotropy()
	drainErrors(gl.GetError)

	var id uint32
	gl.GenTextures(1, &id)
	gl.BindTexture(gl.TEXTURE_2D, id)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, int32(format), int32(img.Width), int32(img.Height), 0,
		format, gl.UNSIGNED_BYTE, unsafe.Pointer(&img.Pix[0]))
	gl.GenerateMipmap(gl.TEXTURE_2D)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
	if aniso > 0 {
		gl.TexParameterf(gl.TEXTURE_2D, gl.TEXTURE_MAX_ANISOTROPY, aniso)
	}
	gl.BindTexture(gl.TEXTURE_2D, 0)

	if err := glError("texture upload"); err != nil {
		gl.DeleteTextures(1, &id)
		return 0, err
	}
	return id, nil
}

// UploadCubemap creates a clamped, linearly filtered cubemap. faces are
// indexed +X, -X, +Y, -Y, +Z, -Z; nil entries are left unspecified.
func (g *GL) UploadCubemap(faces []*texture.Image) (uint32, error) {
	if len(faces) != CubemapFaces {
		return 0, fmt.Errorf("%w: cubemap needs %d faces, got %d", ErrInvalidImage, CubemapFaces, len(faces))
	}

	drainErrors(gl.GetError)
	var id uint32
	gl.GenTextures(1, &id)
	gl.BindTexture(gl.TEXTURE_CUBE_MAP, id)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	for i, img := range faces {
		if img == nil {
			continue
		}
		if err := Validate(img); err != nil {
			gl.BindTexture(gl.TEXTURE_CUBE_MAP, 0)
			gl.DeleteTextures(1, &id)
			return 0, fmt.Errorf("face %d: %w", i, err)
		}
		format := PixelFormat(img.Channels)
		gl.TexImage2D(gl.TEXTURE_CUBE_MAP_POSITIVE_X+uint32(i), 0, int32(format),
			int32(img.Width), int32(img.Height), 0, format, gl.UNSIGNED_BYTE, unsafe.Pointer(&img.Pix[0]))
	}
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_WRAP_R, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_CUBE_MAP, 0)

	if err := glError("cubemap upload"); err != nil {
		gl.DeleteTextures(1, &id)
		return 0, err
	}
	return id, nil
}

// UploadMesh creates the VAO, VBO and EBO for an interleaved mesh.
// Attribute 0 is position, 1 normal, 2 texture coordinates.
func (g *GL) UploadMesh(vertices []model.Vertex, indices []uint32) (model.MeshBuffers, error) {
	if len(vertices) == 0 || len(indices) == 0 {
		return model.MeshBuffers{}, ErrEmptyMesh
	}

	drainErrors(gl.GetError)
	var buf model.MeshBuffers
	gl.GenVertexArrays(1, &buf.VAO)
	gl.BindVertexArray(buf.VAO)

	gl.GenBuffers(1, &buf.VBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, buf.VBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*vertexSize, unsafe.Pointer(&vertices[0]), gl.STATIC_DRAW)

	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, int32(vertexSize), 0)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, int32(vertexSize), 3*4)
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointerWithOffset(2, 2, gl.FLOAT, false, int32(vertexSize), 6*4)
	gl.EnableVertexAttribArray(2)

	gl.GenBuffers(1, &buf.EBO)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, buf.EBO)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(indices)*4, unsafe.Pointer(&indices[0]), gl.STATIC_DRAW)

	gl.BindVertexArray(0)
	buf.IndexCount = int32(len(indices))

	if err := glError("mesh upload"); err != nil {
		g.DeleteMesh(buf)
		return model.MeshBuffers{}, err
	}
	return buf, nil
}

// UploadPositions creates a VAO holding tightly packed vec3 positions at
// attribute 0, drawn with DrawArrays.
func (g *GL) UploadPositions(positions []float32) (vao, vbo uint32, err error) {
	if len(positions) == 0 || len(positions)%3 != 0 {
		return 0, 0, ErrEmptyMesh
	}
	drainErrors(gl.GetError)
	gl.GenVertexArrays(1, &vao)
	gl.BindVertexArray(vao)
	gl.GenBuffers(1, &vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(positions)*4, unsafe.Pointer(&positions[0]), gl.STATIC_DRAW)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, 3*4, 0)
	gl.EnableVertexAttribArray(0)
	gl.BindVertexArray(0)

	if err := glError("position upload"); err != nil {
		gl.DeleteVertexArrays(1, &vao)
		gl.DeleteBuffers(1, &vbo)
		return 0, 0, err
	}
	return vao, vbo, nil
}

// BindTexture binds a 2D texture to the given unit.
func (g *GL) BindTexture(unit int, handle uint32) {
	gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
	gl.BindTexture(gl.TEXTURE_2D, handle)
}

// DrawMesh draws buf as indexed triangles.
func (g *GL) DrawMesh(buf model.MeshBuffers) {
	gl.BindVertexArray(buf.VAO)
	gl.DrawElements(gl.TRIANGLES, buf.IndexCount, gl.UNSIGNED_INT, nil)
	gl.BindVertexArray(0)
}

// ResetTextureUnit makes texture unit 0 active.
func (g *GL) ResetTextureUnit() {
	gl.ActiveTexture(gl.TEXTURE0)
}

// DeleteMesh frees the buffers of an uploaded mesh.
func (g *GL) DeleteMesh(buf model.MeshBuffers) {
	if buf.VAO != 0 {
		gl.DeleteVertexArrays(1, &buf.VAO)
	}
	if buf.VBO != 0 {
		gl.DeleteBuffers(1, &buf.VBO)
	}
	if buf.EBO != 0 {
		gl.DeleteBuffers(1, &buf.EBO)
	}
}

// DeleteTexture frees a texture handle.
func (g *GL) DeleteTexture(handle uint32) {
	if handle != 0 {
		gl.DeleteTextures(1, &handle)
	}
}

// ReadPixels reads the default framebuffer as bottom-up RGBA rows.
func (g *GL) ReadPixels(width, height int) []byte {
	if width <= 0 || height <= 0 {
		return nil
	}
	pixels := make([]byte, width*height*4)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, unsafe.Pointer(&pixels[0]))
	return pixels
}

// Validate checks that img can be uploaded: positive dimensions, three or
// four channels and a pixel buffer of exactly Width*Height*Channels bytes.
func Validate(img *texture.Image) error {
	if img == nil {
		return fmt.Errorf("%w: nil", ErrInvalidImage)
	}
	if img.Width <= 0 || img.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidImage, img.Width, img.Height)
	}
	if img.Channels != 3 && img.Channels != 4 {
		return fmt.Errorf("%w: %d channels", ErrInvalidImage, img.Channels)
	}
	if img.Height > len(img.Pix)/img.Channels/img.Width {
		return fmt.Errorf("%w: %d bytes for %dx%dx%d", ErrInvalidImage, len(img.Pix), img.Width, img.Height, img.Channels)
	}
	if want := img.Width * img.Height * img.Channels; len(img.Pix) != want {
		return fmt.Errorf("%w: %d bytes, want %d", ErrInvalidImage, len(img.Pix), want)
	}
	return nil
}

// PixelFormat maps a channel count to the GL pixel format.
func PixelFormat(channels int) uint32 {
	if channels == 3 {
		return gl.RGB
	}
	return gl.RGBA
}

func glError(op string) error {
	return collectErrors(op, gl.GetError)
}

// maxQueuedErrors bounds error draining; a lost context can report an
// error on every call.
const maxQueuedErrors = 16

// collectErrors reads every queued GL error and reports them together.
func collectErrors(op string, next func() uint32) error {
	var codes []string
	for i := 0; i < maxQueuedErrors; i++ {
		code := next()
		if code == gl.NO_ERROR {
			break
		}
		codes = append(codes, fmt.Sprintf("0x%x", code))
	}
	if len(codes) == 0 {
		return nil
	}
	return fmt.Errorf("%s: gl error %s", op, strings.Join(codes, ", "))
}

// drainErrors discards errors left queued by earlier, unrelated calls.
func drainErrors(next func() uint32) {
	for i := 0; i < maxQueuedErrors && next() != gl.NO_ERROR; i++ {
	}
}

// anisotropy returns the level to request for new textures. The driver
// limit is queried once, on first use, since New runs before GL is loaded.
func (g *GL) anisotropy() float32 {
	if !g.probed {
		g.probed = true
		drainErrors(gl.GetError)
		gl.GetFloatv(gl.MAX_TEXTURE_MAX_ANISOTROPY, &g.maxAnisotropy)
		if gl.GetError() != gl.NO_ERROR {
			g.maxAnisotropy = 0
		}
	}
	return ClampAnisotropy(g.Anisotropy, g.maxAnisotropy)
}

// ClampAnisotropy limits want to the driver maximum. A maximum below 1
// means anisotropic filtering is unsupported and yields 0.
func ClampAnisotropy(want, limit float32) float32 {
	if want <= 0 || limit < 1 {
		return 0
	}
	return min(want, limit)
}
