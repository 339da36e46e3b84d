// Package texture decodes image files and blobs into tightly packed pixel
// buffers ready for GPU upload.
package texture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/anthonynsimon/bild/transform"
	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	// ErrUnsupportedFormat is returned when data matches no known image encoding.
	ErrUnsupportedFormat = errors.New("unsupported image format")
	// ErrEmptyData is returned for zero-length input.
	ErrEmptyData = errors.New("empty image data")
)

// Image is a decoded, tightly packed 8-bit image. Row 0 is the top row
// unless the caller asked for a flip.
type Image struct {
	Pix      []byte
	Width    int
	Height   int
	Channels int // 3 (RGB) or 4 (RGBA)
}

// Decoder turns encoded images into Image values. The zero value is ready
// to use.
type Decoder struct{}

// NewDecoder returns a Decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// DecodeFile reads and decodes the image at path.
func (d *Decoder) DecodeFile(path string, flip bool) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, err := d.decode(data, strings.EqualFold(filepath.Ext(path), ".tga"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return pack(img, flip), nil
}

// DecodeBytes decodes an in-memory encoded image.
func (d *Decoder) DecodeBytes(data []byte, flip bool) (*Image, error) {
	img, err := d.decode(data, false)
	if err != nil {
		return nil, err
	}
	return pack(img, flip), nil
}

// Format names the encoding of data as detected by content sniffing, or ""
// when nothing matches.
func Format(data []byte) string {
	kind, err := filetype.Match(data)
	if err == nil && kind != filetype.Unknown {
		return kind.Extension
	}
	if _, err := parseTGAHeader(data); err == nil {
		return "tga"
	}
	return ""
}

func (d *Decoder) decode(data []byte, tga bool) (image.Image, error) {
	if len(data) == 0 {
		return nil, ErrEmptyData
	}
	if !tga && filetype.IsImage(data) {
		img, _, err := image.Decode(bytes.NewReader(data))
		if errors.Is(err, image.ErrFormat) {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, Format(data))
		}
		return img, err
	}
	if _, err := parseTGAHeader(data); err != nil {
		if tga {
			return nil, err
		}
		return nil, ErrUnsupportedFormat
	}
	return DecodeTGA(data)
}

// Channels reports 3 for color models that cannot carry alpha and 4 for
// everything else.
func Channels(img image.Image) int {
	switch m := img.ColorModel(); m {
	case color.GrayModel, color.Gray16Model, color.YCbCrModel, color.CMYKModel:
		return 3
	default:
		if p, ok := m.(color.Palette); ok && opaquePalette(p) {
			return 3
		}
		return 4
	}
}

func opaquePalette(p color.Palette) bool {
	for _, c := range p {
		if _, _, _, a := c.RGBA(); a != 0xffff {
			return false
		}
	}
	return true
}

// pack converts img to straight-alpha RGBA, optionally flips it vertically,
// then drops alpha when the source model has none.
func pack(img image.Image, flip bool) *Image {
	nrgba := toNRGBA(img)
	if flip {
		nrgba = flipV(nrgba)
	}

	out := &Image{
		Pix:      nrgba.Pix,
		Width:    nrgba.Rect.Dx(),
		Height:   nrgba.Rect.Dy(),
		Channels: 4,
	}
	if Channels(img) == 3 {
		out = out.Repack(3)
	}
	return out
}

func toNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	if n, ok := img.(*image.NRGBA); ok && b.Min == (image.Point{}) && n.Stride == 4*b.Dx() {
		return n
	}
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Rect, img, b.Min, draw.Src)
	return dst
}

// flipV mirrors rows. The pixels are handed to bild as an RGBA view so the
// flip is a plain byte move with no premultiplication.
func flipV(img *image.NRGBA) *image.NRGBA {
	view := &image.RGBA{Pix: img.Pix, Stride: img.Stride, Rect: img.Rect}
	f := transform.FlipV(view)
	return &image.NRGBA{Pix: f.Pix, Stride: f.Stride, Rect: f.Rect}
}

// Repack returns a copy of img with the given channel count (3 or 4). Alpha
// is dropped or filled with 255 as needed.
func (img *Image) Repack(channels int) *Image {
	if channels == img.Channels {
		return img
	}
	n := img.Width * img.Height
	out := &Image{
		Pix:      make([]byte, n*channels),
		Width:    img.Width,
		Height:   img.Height,
		Channels: channels,
	}
	for i := 0; i < n; i++ {
		src := img.Pix[i*img.Channels:]
		dst := out.Pix[i*channels:]
		copy(dst[:3], src[:3])
		if channels == 4 {
			dst[3] = 255
		}
	}
	return out
}
