package model

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Faultbox/hungryfish/pkg/scenegraph"
)

var (
	// ErrBadEmbeddedRef is returned for references that use the embedded
	// marker but are not of the form "*<index>".
	ErrBadEmbeddedRef = errors.New("malformed embedded texture reference")
	// ErrEmbeddedIndexRange is returned when an embedded index has no texture.
	ErrEmbeddedIndexRange = errors.New("embedded texture index out of range")
	// ErrRawSize is returned when raw embedded pixels are shorter than
	// width*height*4.
	ErrRawSize = errors.New("raw embedded texture too short")
	// ErrUpload marks failures of the GPU upload step.
	ErrUpload = errors.New("texture upload failed")
)

// TextureRef is a parsed material texture reference: EmbeddedRef or
// ExternalRef.
type TextureRef interface {
	// Identity is the per-model deduplication key.
	Identity() string
	isTextureRef()
}

// EmbeddedRef points at Scene.Textures[Index] of the asset at AssetPath.
type EmbeddedRef struct {
	AssetPath string
	Index     int
}

// Identity qualifies the index with the asset path so "*0" of two assets
// never collide.
func (r EmbeddedRef) Identity() string {
	return r.AssetPath + string(scenegraph.EmbeddedMarker) + strconv.Itoa(r.Index)
}

func (EmbeddedRef) isTextureRef() {}

// ExternalRef is an image file on disk.
type ExternalRef struct {
	Path string
}

// Identity is the resolved path.
func (r ExternalRef) Identity() string {
	return r.Path
}

func (ExternalRef) isTextureRef() {}

// ParseRef classifies a raw material reference. References containing the
// embedded marker must be exactly "*<decimal>"; anything else is an external
// path, joined to assetDir unless rooted.
func ParseRef(raw, assetPath, assetDir string) (TextureRef, error) {
	i := strings.IndexByte(raw, scenegraph.EmbeddedMarker)
	if i < 0 {
		return ExternalRef{Path: resolvePath(raw, assetDir)}, nil
	}

	digits := raw[1:]
	if i != 0 || digits == "" || strings.TrimLeft(digits, "0123456789") != "" {
		return nil, fmt.Errorf("%w: %q", ErrBadEmbeddedRef, raw)
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrBadEmbeddedRef, raw)
	}
	return EmbeddedRef{AssetPath: assetPath, Index: n}, nil
}

// rooted reports whether p already names a location independent of the
// asset directory: absolute, starting with a separator, or carrying a drive
// or scheme marker.
func rooted(p string) bool {
	return filepath.IsAbs(p) ||
		strings.HasPrefix(p, "/") ||
		strings.HasPrefix(p, `\`) ||
		strings.ContainsRune(p, ':')
}

func resolvePath(raw, assetDir string) string {
	if rooted(raw) {
		return filepath.Clean(raw)
	}
	return filepath.Join(assetDir, raw)
}
