package gpu

import (
	"sync"

	"github.com/Faultbox/hungryfish/internal/engine/model"
	"github.com/Faultbox/hungryfish/internal/engine/texture"
)

// Stats counts what a Headless backend was asked to do.
type Stats struct {
	Textures        int
	TextureBytes    int
	Meshes          int
	Vertices        int
	Indices         int
	Draws           int
	DeletedMeshes   int
	DeletedTextures int
}

// Headless implements model.Backend without a GL context. It validates
// uploads the same way GL does, hands out sequential handles and counts
// every call. Tools use it to run the load pipeline on machines with no
// display.
type Headless struct {
	mu    sync.Mutex
	next  uint32
	stats Stats
}

var _ model.Backend = (*Headless)(nil)

// NewHeadless returns an empty headless backend.
func NewHeadless() *Headless {
	return &Headless{}
}

func (h *Headless) handle() uint32 {
	h.next++
	return h.next
}

// UploadTexture implements model.Backend.
func (h *Headless) UploadTexture(img *texture.Image) (uint32, error) {
	if err := Validate(img); err != nil {
		return 0, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stats.Textures++
	h.stats.TextureBytes += len(img.Pix)
	return h.handle(), nil
}

// UploadMesh implements model.Backend.
func (h *Headless) UploadMesh(vertices []model.Vertex, indices []uint32) (model.MeshBuffers, error) {
	if len(vertices) == 0 || len(indices) == 0 {
		return model.MeshBuffers{}, ErrEmptyMesh
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stats.Meshes++
	h.stats.Vertices += len(vertices)
	h.stats.Indices += len(indices)
	return model.MeshBuffers{
		VAO:        h.handle(),
		VBO:        h.handle(),
		EBO:        h.handle(),
		IndexCount: int32(len(indices)),
	}, nil
}

// BindTexture implements model.Backend.
func (h *Headless) BindTexture(int, uint32) {}

// DrawMesh implements model.Backend.
func (h *Headless) DrawMesh(model.MeshBuffers) {
	h.mu.Lock()
	h.stats.Draws++
	h.mu.Unlock()
}

// ResetTextureUnit implements model.Backend.
func (h *Headless) ResetTextureUnit() {}

// DeleteMesh implements model.Backend.
func (h *Headless) DeleteMesh(model.MeshBuffers) {
	h.mu.Lock()
	h.stats.DeletedMeshes++
	h.mu.Unlock()
}

// DeleteTexture implements model.Backend.
func (h *Headless) DeleteTexture(uint32) {
	h.mu.Lock()
	h.stats.DeletedTextures++
	h.mu.Unlock()
}

// Stats returns a snapshot of the counters.
func (h *Headless) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stats
}
