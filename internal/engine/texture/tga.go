package texture

import (
	"fmt"
	"image"
)

// TGA image types handled by DecodeTGA.
const (
	TGATypeTrueColor    = 2
	TGATypeGray         = 3
	TGATypeTrueColorRLE = 10
	TGATypeGrayRLE      = 11
)

const tgaHeaderSize = 18

type tgaHeader struct {
	idLength    int
	imageType   byte
	width       int
	height      int
	bpp         int
	topToBottom bool
}

func (h tgaHeader) gray() bool {
	return h.imageType == TGATypeGray || h.imageType == TGATypeGrayRLE
}

func (h tgaHeader) rle() bool {
	return h.imageType == TGATypeTrueColorRLE || h.imageType == TGATypeGrayRLE
}

// parseTGAHeader validates the fixed 18-byte header. TGA has no magic number,
// so this doubles as the format probe.
func parseTGAHeader(data []byte) (tgaHeader, error) {
	if len(data) < tgaHeaderSize {
		return tgaHeader{}, fmt.Errorf("TGA data too short")
	}
	h := tgaHeader{
		idLength:    int(data[0]),
		imageType:   data[2],
		width:       int(data[12]) | int(data[13])<<8,
		height:      int(data[14]) | int(data[15])<<8,
		bpp:         int(data[16]),
		topToBottom: data[17]&0x20 != 0,
	}

	if data[1] != 0 {
		return h, fmt.Errorf("color-mapped TGA not supported")
	}
	switch h.imageType {
	case TGATypeTrueColor, TGATypeTrueColorRLE:
		if h.bpp != 24 && h.bpp != 32 {
			return h, fmt.Errorf("unsupported TGA bit depth %d", h.bpp)
		}
	case TGATypeGray, TGATypeGrayRLE:
		if h.bpp != 8 {
			return h, fmt.Errorf("unsupported grayscale TGA bit depth %d", h.bpp)
		}
	default:
		return h, fmt.Errorf("unsupported TGA type %d", h.imageType)
	}
	if h.width == 0 || h.height == 0 {
		return h, fmt.Errorf("empty TGA image %dx%d", h.width, h.height)
	}
	return h, nil
}

// DecodeTGA decodes uncompressed and RLE true-color or grayscale TGA data.
// Grayscale files yield *image.Gray, everything else *image.NRGBA.
func DecodeTGA(data []byte) (image.Image, error) {
	h, err := parseTGAHeader(data)
	if err != nil {
		return nil, err
	}

	offset := tgaHeaderSize + h.idLength
	if offset > len(data) {
		return nil, fmt.Errorf("TGA data truncated")
	}

	bytesPerPixel := h.bpp / 8
	pixels, err := tgaPixels(data[offset:], h.width*h.height, bytesPerPixel, h.rle())
	if err != nil {
		return nil, err
	}

	rect := image.Rect(0, 0, h.width, h.height)
	if h.gray() {
		img := image.NewGray(rect)
		for y := 0; y < h.height; y++ {
			copy(img.Pix[h.destRow(y)*img.Stride:], pixels[y*h.width:(y+1)*h.width])
		}
		return img, nil
	}

	img := image.NewNRGBA(rect)
	for y := 0; y < h.height; y++ {
		row := img.Pix[h.destRow(y)*img.Stride:]
		for x := 0; x < h.width; x++ {
			src := pixels[(y*h.width+x)*bytesPerPixel:]
			dst := row[x*4 : x*4+4]
			dst[0], dst[1], dst[2] = src[2], src[1], src[0] // stored BGR(A)
			dst[3] = 255
			if bytesPerPixel == 4 {
				dst[3] = src[3]
			}
		}
	}
	return img, nil
}

// destRow maps a file row to an image row; TGA is bottom-up unless the
// descriptor says otherwise.
func (h tgaHeader) destRow(y int) int {
	if h.topToBottom {
		return y
	}
	return h.height - 1 - y
}

// tgaPixels returns count pixels of bytesPerPixel bytes in file order,
// expanding RLE packets when rle is set.
func tgaPixels(data []byte, count, bytesPerPixel int, rle bool) ([]byte, error) {
	size := count * bytesPerPixel
	if !rle {
		if len(data) < size {
			return nil, fmt.Errorf("TGA pixel data truncated")
		}
		return data[:size], nil
	}

	out := make([]byte, 0, size)
	i := 0
	for len(out) < size {
		if i >= len(data) {
			return nil, fmt.Errorf("TGA RLE data truncated")
		}
		packet := data[i]
		i++
		n := int(packet&0x7F) + 1

		if packet&0x80 != 0 {
			if i+bytesPerPixel > len(data) {
				return nil, fmt.Errorf("TGA RLE data truncated")
			}
			px := data[i : i+bytesPerPixel]
			i += bytesPerPixel
			for k := 0; k < n && len(out) < size; k++ {
				out = append(out, px...)
			}
			continue
		}

		raw := n * bytesPerPixel
		if i+raw > len(data) {
			return nil, fmt.Errorf("TGA RLE data truncated")
		}
		if remaining := size - len(out); raw > remaining {
			raw = remaining
		}
		out = append(out, data[i:i+raw]...)
		i += n * bytesPerPixel
	}
	return out, nil
}
