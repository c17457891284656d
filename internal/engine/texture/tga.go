// Package texture registers the image formats height maps may come in
// beyond the ones golang.org/x/image provides. Importing it for side
// effects makes image.Decode understand true-color TGA files.
package texture

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
)

const (
	tgaUncompressed = 2
	tgaRLE          = 10

	tgaHeaderSize = 18
)

var errTruncated = errors.New("tga: pixel data truncated")

func init() {
	// id length is free, no color map, then the image type
	image.RegisterFormat("tga", "?\x00\x02", Decode, DecodeConfig)
	image.RegisterFormat("tga", "?\x00\x0a", Decode, DecodeConfig)
}

type tgaHeader struct {
	idLength      int
	imageType     byte
	width, height int
	bytesPerPixel int
	topToBottom   bool
}

func parseHeader(h []byte) (tgaHeader, error) {
	hd := tgaHeader{
		idLength:    int(h[0]),
		imageType:   h[2],
		width:       int(h[12]) | int(h[13])<<8,
		height:      int(h[14]) | int(h[15])<<8,
		topToBottom: h[17]&0x20 != 0,
	}
	if h[1] != 0 {
		return hd, errors.New("tga: color-mapped images not supported")
	}
	if hd.imageType != tgaUncompressed && hd.imageType != tgaRLE {
		return hd, fmt.Errorf("tga: unsupported image type %d", hd.imageType)
	}
	switch bpp := int(h[16]); bpp {
	case 24, 32:
		hd.bytesPerPixel = bpp / 8
	default:
		return hd, fmt.Errorf("tga: unsupported bit depth %d", bpp)
	}
	return hd, nil
}

// DecodeConfig returns the size of a TGA image without decoding pixels.
func DecodeConfig(r io.Reader) (image.Config, error) {
	var h [tgaHeaderSize]byte
	if _, err := io.ReadFull(r, h[:]); err != nil {
		return image.Config{}, fmt.Errorf("tga: reading header: %w", err)
	}
	hd, err := parseHeader(h[:])
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{ColorModel: color.RGBAModel, Width: hd.width, Height: hd.height}, nil
}

// Decode reads an uncompressed or RLE true-color TGA image.
func Decode(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) < tgaHeaderSize {
		return nil, errors.New("tga: data too short")
	}
	hd, err := parseHeader(data)
	if err != nil {
		return nil, err
	}
	offset := tgaHeaderSize + hd.idLength
	if offset > len(data) {
		return nil, errTruncated
	}

	img := image.NewRGBA(image.Rect(0, 0, hd.width, hd.height))
	px := pixelWriter{img: img, hd: hd}
	if hd.imageType == tgaUncompressed {
		err = px.raw(data[offset:])
	} else {
		err = px.rle(data[offset:])
	}
	if err != nil {
		return nil, err
	}
	return img, nil
}

// pixelWriter stores BGR(A) pixels in file order.
type pixelWriter struct {
	img *image.RGBA
	hd  tgaHeader
	n   int
}

func (p *pixelWriter) done() bool { return p.n >= p.hd.width*p.hd.height }

func (p *pixelWriter) put(src []byte) {
	x, y := p.n%p.hd.width, p.n/p.hd.width
	if !p.hd.topToBottom {
		y = p.hd.height - 1 - y
	}
	a := uint8(255)
	if p.hd.bytesPerPixel == 4 {
		a = src[3]
	}
	p.img.SetRGBA(x, y, color.RGBA{R: src[2], G: src[1], B: src[0], A: a})
	p.n++
}

func (p *pixelWriter) raw(data []byte) error {
	bpp := p.hd.bytesPerPixel
	if len(data) < p.hd.width*p.hd.height*bpp {
		return errTruncated
	}
	for i := 0; !p.done(); i += bpp {
		p.put(data[i : i+bpp])
	}
	return nil
}

func (p *pixelWriter) rle(data []byte) error {
	bpp := p.hd.bytesPerPixel
	i := 0
	for !p.done() {
		if i >= len(data) {
			return errTruncated
		}
		packet := data[i]
		i++
		count := int(packet&0x7f) + 1

		if packet&0x80 != 0 {
			if i+bpp > len(data) {
				return errTruncated
			}
			for ; count > 0 && !p.done(); count-- {
				p.put(data[i : i+bpp])
			}
			i += bpp
			continue
		}
		for ; count > 0 && !p.done(); count-- {
			if i+bpp > len(data) {
				return errTruncated
			}
			p.put(data[i : i+bpp])
			i += bpp
		}
	}
	return nil
}
