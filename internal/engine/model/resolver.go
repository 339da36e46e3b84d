package model

import (
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Faultbox/hungryfish/internal/engine/texture"
	"github.com/Faultbox/hungryfish/pkg/scenegraph"
)

// ImageDecoder decodes image files and blobs.
type ImageDecoder interface {
	DecodeFile(path string, flip bool) (*texture.Image, error)
	DecodeBytes(data []byte, flip bool) (*texture.Image, error)
}

// TextureUploader creates GPU textures. A zero handle counts as failure.
type TextureUploader interface {
	UploadTexture(img *texture.Image) (uint32, error)
}

// TextureResolver turns material references of one scene into uploaded
// textures, deduplicating through the model's cache.
type TextureResolver struct {
	cache     *TextureCache
	decoder   ImageDecoder
	uploader  TextureUploader
	log       *zap.Logger
	scene     *scenegraph.Scene
	assetPath string
	assetDir  string
}

// NewTextureResolver binds a resolver to scene, loaded from assetPath.
func NewTextureResolver(cache *TextureCache, decoder ImageDecoder, uploader TextureUploader, log *zap.Logger,
	scene *scenegraph.Scene, assetPath string) *TextureResolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &TextureResolver{
		cache:     cache,
		decoder:   decoder,
		uploader:  uploader,
		log:       log,
		scene:     scene,
		assetPath: assetPath,
		assetDir:  filepath.Dir(assetPath),
	}
}

// Resolve returns the texture for one material binding. ok is false when the
// reference is empty or could not be decoded or uploaded; failures are
// logged and never abort loading.
func (r *TextureResolver) Resolve(raw string, typ scenegraph.TextureType) (Texture, bool) {
	if raw == "" {
		return Texture{}, false
	}

	ref, err := ParseRef(raw, r.assetPath, r.assetDir)
	if err != nil {
		r.log.Warn("texture decode failed",
			zap.String("ref", raw),
			zap.Stringer("type", typ),
			zap.Error(err))
		return Texture{}, false
	}

	id := ref.Identity()
	handle, hit, err := r.cache.Resolve(id, typ, func() (uint32, error) {
		return r.load(ref)
	})
	if err != nil {
		msg := "texture decode failed"
		if errors.Is(err, ErrUpload) {
			msg = "texture upload failed"
		}
		r.log.Warn(msg,
			zap.String("identity", id),
			zap.Stringer("type", typ),
			zap.Error(err))
		return Texture{}, false
	}

	if hit {
		r.log.Debug("texture cache hit", zap.String("identity", id), zap.Stringer("type", typ))
	} else {
		r.log.Debug("texture loaded", zap.String("identity", id), zap.Stringer("type", typ), zap.Uint32("handle", handle))
	}
	return Texture{Handle: handle, Type: typ, Identity: id}, true
}

func (r *TextureResolver) load(ref TextureRef) (uint32, error) {
	img, err := r.decode(ref)
	if err != nil {
		return 0, err
	}

	handle, err := r.uploader.UploadTexture(img)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUpload, err)
	}
	if handle == 0 {
		return 0, fmt.Errorf("%w: zero handle", ErrUpload)
	}
	return handle, nil
}

func (r *TextureResolver) decode(ref TextureRef) (*texture.Image, error) {
	switch ref := ref.(type) {
	case EmbeddedRef:
		return r.decodeEmbedded(ref)
	case ExternalRef:
		return r.decoder.DecodeFile(ref.Path, false)
	default:
		return nil, fmt.Errorf("unknown texture reference %T", ref)
	}
}

func (r *TextureResolver) decodeEmbedded(ref EmbeddedRef) (*texture.Image, error) {
	if ref.Index < 0 || ref.Index >= len(r.scene.Textures) || r.scene.Textures[ref.Index] == nil {
		return nil, fmt.Errorf("%w: %d of %d", ErrEmbeddedIndexRange, ref.Index, len(r.scene.Textures))
	}
	tex := r.scene.Textures[ref.Index]

	if tex.Compressed() {
		n := tex.Width
		if n < 0 || n > len(tex.Data) {
			n = len(tex.Data)
		}
		return r.decoder.DecodeBytes(tex.Data[:n], true)
	}

	// Compare by division so huge dimensions cannot wrap the product.
	if tex.Width <= 0 || tex.Height <= 0 || tex.Height > len(tex.Data)/4/tex.Width {
		return nil, fmt.Errorf("%w: %d bytes for %dx%d", ErrRawSize, len(tex.Data), tex.Width, tex.Height)
	}
	size := tex.Width * tex.Height * 4
	return &texture.Image{
		Pix:      tex.Data[:size],
		Width:    tex.Width,
		Height:   tex.Height,
		Channels: 4,
	}, nil
}
